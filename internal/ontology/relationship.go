package ontology

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/record"
	"github.com/specialistvlad/ontograph/internal/traverse"
)

// IsA is the id of the built-in subsumption relation.
const IsA = "is_a"

// Builtins returns a fresh copy of the built-in relation table installed
// into every new graph.
func Builtins() []*record.Record {
	isA := record.New(record.KindRelationship, IsA)
	isA.Name = "is a"
	isA.Builtin = true
	isA.Transitive = true
	isA.Comment = "The subsumption relationship between classes."
	isA.Xrefs = []record.Xref{{ID: "RO:0002353"}}
	return []*record.Record{isA}
}

// Relationship is a view of a relation (an OBO typedef).
type Relationship struct {
	base[*Relationship]
}

func newRelationship(r graphRef, id string) *Relationship {
	return &Relationship{base[*Relationship]{r: r, id: id}}
}

// Superproperties walks up the is_a lineage between relationships.
func (rel *Relationship) Superproperties(opts ...traverse.Option) *LineageHandler[*Relationship] {
	return rel.lineageHandler(true, opts)
}

// Subproperties walks down the is_a lineage between relationships.
func (rel *Relationship) Subproperties(opts ...traverse.Option) *LineageHandler[*Relationship] {
	return rel.lineageHandler(false, opts)
}

// Property is a boolean characteristic of a relationship.
type Property int

const (
	Transitive Property = iota
	Symmetric
	Reflexive
	Asymmetric
	Antisymmetric
	Functional
	InverseFunctional
	Cyclic
	ClassLevel
	MetadataTag
)

var propertyNames = [...]string{
	"is_transitive", "is_symmetric", "is_reflexive", "is_asymmetric", "is_antisymmetric",
	"is_functional", "is_inverse_functional", "is_cyclic", "is_class_level", "is_metadata_tag",
}

// Properties lists every Property in canonical order.
var Properties = []Property{
	Transitive, Symmetric, Reflexive, Asymmetric, Antisymmetric,
	Functional, InverseFunctional, Cyclic, ClassLevel, MetadataTag,
}

// String returns the OBO tag of p.
func (p Property) String() string {
	return propertyNames[p]
}

// PropertyByTag maps an OBO tag such as is_transitive back to its Property.
func PropertyByTag(tag string) (Property, bool) {
	i := slices.Index(propertyNames[:], tag)
	if i < 0 {
		return 0, false
	}
	return Property(i), true
}

func (p Property) field(r *record.Record) *bool {
	switch p {
	case Transitive:
		return &r.Transitive
	case Symmetric:
		return &r.Symmetric
	case Reflexive:
		return &r.Reflexive
	case Asymmetric:
		return &r.Asymmetric
	case Antisymmetric:
		return &r.Antisymmetric
	case Functional:
		return &r.Functional
	case InverseFunctional:
		return &r.InverseFunctional
	case Cyclic:
		return &r.Cyclic
	case ClassLevel:
		return &r.ClassLevel
	default:
		return &r.MetadataTag
	}
}

// Is reports whether the relationship has property p.
func (rel *Relationship) Is(p Property) (v bool, err error) {
	err = rel.read(p.String(), func(r *record.Record) { v = *p.field(r) })
	return v, err
}

// SetProperty sets or clears property p.
func (rel *Relationship) SetProperty(p Property, v bool) error {
	return rel.write("set "+p.String(), func(_ *Ontology, r *record.Record) error {
		*p.field(r) = v
		return nil
	})
}

// DomainID returns the id of the domain class, empty when unset.
func (rel *Relationship) DomainID() (id string, err error) {
	err = rel.read("domain", func(r *record.Record) { id = r.Domain })
	return id, err
}

// Domain returns the domain class, nil when unset.
func (rel *Relationship) Domain() (*Term, error) {
	id, err := rel.DomainID()
	if err != nil || id == "" {
		return nil, err
	}
	return newTerm(rel.r, id), nil
}

// SetDomainID sets the domain by id; an empty id clears it.
func (rel *Relationship) SetDomainID(id string) error {
	return rel.write("set domain", func(_ *Ontology, r *record.Record) error {
		r.Domain = id
		return nil
	})
}

// SetDomain sets the domain class; nil clears it.
func (rel *Relationship) SetDomain(t *Term) error {
	if t == nil {
		return rel.SetDomainID("")
	}
	if err := rel.sameGraph("set domain", t); err != nil {
		return err
	}
	return rel.SetDomainID(t.ID())
}

// RangeID returns the id of the range class, empty when unset.
func (rel *Relationship) RangeID() (id string, err error) {
	err = rel.read("range", func(r *record.Record) { id = r.Range })
	return id, err
}

// Range returns the range class, nil when unset.
func (rel *Relationship) Range() (*Term, error) {
	id, err := rel.RangeID()
	if err != nil || id == "" {
		return nil, err
	}
	return newTerm(rel.r, id), nil
}

// SetRangeID sets the range by id; an empty id clears it.
func (rel *Relationship) SetRangeID(id string) error {
	return rel.write("set range", func(_ *Ontology, r *record.Record) error {
		r.Range = id
		return nil
	})
}

// SetRange sets the range class; nil clears it.
func (rel *Relationship) SetRange(t *Term) error {
	if t == nil {
		return rel.SetRangeID("")
	}
	if err := rel.sameGraph("set range", t); err != nil {
		return err
	}
	return rel.SetRangeID(t.ID())
}

// InverseOfID returns the id of the inverse relation, empty when unset.
func (rel *Relationship) InverseOfID() (id string, err error) {
	err = rel.read("inverse_of", func(r *record.Record) { id = r.InverseOf })
	return id, err
}

// InverseOf returns the inverse relation, nil when unset.
func (rel *Relationship) InverseOf() (*Relationship, error) {
	id, err := rel.InverseOfID()
	if err != nil || id == "" {
		return nil, err
	}
	return newRelationship(rel.r, id), nil
}

// SetInverseOfID sets the inverse relation by id.
func (rel *Relationship) SetInverseOfID(id string) error {
	return rel.write("set inverse_of", func(_ *Ontology, r *record.Record) error {
		r.InverseOf = id
		return nil
	})
}

// SetInverseOf sets the inverse relation; nil clears it.
func (rel *Relationship) SetInverseOf(other *Relationship) error {
	if other == nil {
		return rel.SetInverseOfID("")
	}
	if err := rel.sameGraph("set inverse_of", other); err != nil {
		return err
	}
	return rel.SetInverseOfID(other.ID())
}

// Chain selects holds_over_chain or equivalent_to_chain.
type Chain int

const (
	HoldsOverChain Chain = iota
	EquivalentToChain
)

func (c Chain) String() string {
	if c == EquivalentToChain {
		return "equivalent_to_chain"
	}
	return "holds_over_chain"
}

func (c Chain) field(r *record.Record) *[]record.ChainPair {
	if c == EquivalentToChain {
		return &r.EquivalentToChain
	}
	return &r.HoldsOverChain
}

// Chains returns the pairs of chain c in insertion order.
func (rel *Relationship) Chains(c Chain) (out []record.ChainPair, err error) {
	err = rel.read(c.String(), func(r *record.Record) { out = slices.Clone(*c.field(r)) })
	return out, err
}

// AddChainID appends the pair (first, second) to chain c.
func (rel *Relationship) AddChainID(c Chain, first, second string) error {
	return rel.write("add "+c.String(), func(_ *Ontology, r *record.Record) error {
		if first == "" || second == "" {
			return fmt.Errorf("empty chain member: %w", ontoerr.ErrInvalidValue)
		}
		f := c.field(r)
		*f = record.AddChain(*f, record.ChainPair{First: first, Second: second})
		return nil
	})
}

// AddChain appends the pair (first, second) to chain c.
func (rel *Relationship) AddChain(c Chain, first, second *Relationship) error {
	if err := rel.sameGraph("add "+c.String(), first, second); err != nil {
		return err
	}
	return rel.AddChainID(c, first.ID(), second.ID())
}

// TransitiveOver returns the relations this one is transitive over.
func (rel *Relationship) TransitiveOver() (*RelationshipSet, error) {
	var ids record.Set
	if err := rel.read("transitive_over", func(r *record.Record) { ids = r.TransitiveOver.Clone() }); err != nil {
		return nil, err
	}
	return setOf[*Relationship](rel.r, ids), nil
}

// AddTransitiveOverID records that rel is transitive over id.
func (rel *Relationship) AddTransitiveOverID(id string) error {
	return rel.write("add transitive_over", func(_ *Ontology, r *record.Record) error {
		r.TransitiveOver.Add(id)
		return nil
	})
}

// DisjointOver returns the relations this one is disjoint over.
func (rel *Relationship) DisjointOver() (*RelationshipSet, error) {
	var ids record.Set
	if err := rel.read("disjoint_over", func(r *record.Record) { ids = r.DisjointOver.Clone() }); err != nil {
		return nil, err
	}
	return setOf[*Relationship](rel.r, ids), nil
}

// AddDisjointOverID records that rel is disjoint over id.
func (rel *Relationship) AddDisjointOverID(id string) error {
	return rel.write("add disjoint_over", func(_ *Ontology, r *record.Record) error {
		r.DisjointOver.Add(id)
		return nil
	})
}
