package record

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/specialistvlad/ontograph/internal/ontoerr"
)

// Record holds the owned, mutable fields of one entity. The lineage of an
// entity (its is_a edges) is not part of the record; it lives in the lineage
// store of the owning graph.
//
// Empty strings mean "unset". Relationship-only fields stay zero on terms.
type Record struct {
	ID   string
	Kind Kind

	Name         string
	Namespace    string
	Comment      string
	Definition   *Definition
	CreatedBy    string
	CreationDate time.Time

	Obsolete  bool
	Anonymous bool
	Builtin   bool

	AlternateIDs Set
	Subsets      Set
	Synonyms     []Synonym
	Xrefs        []Xref
	Annotations  []PropertyValue

	// Relationships maps a relation id (never is_a) to target ids.
	Relationships map[string]Set

	Consider       Set
	ReplacedBy     Set
	EquivalentTo   Set
	DisjointFrom   Set
	UnionOf        Set
	IntersectionOf []IntersectionPart

	Domain            string
	Range             string
	InverseOf         string
	Transitive        bool
	Symmetric         bool
	Reflexive         bool
	Asymmetric        bool
	Antisymmetric     bool
	Functional        bool
	InverseFunctional bool
	Cyclic            bool
	ClassLevel        bool
	MetadataTag       bool
	HoldsOverChain    []ChainPair
	EquivalentToChain []ChainPair
	TransitiveOver    Set
	DisjointOver      Set
}

// New returns an empty record with every set allocated.
func New(kind Kind, id string) *Record {
	return &Record{
		ID:             id,
		Kind:           kind,
		AlternateIDs:   Set{},
		Subsets:        Set{},
		Relationships:  map[string]Set{},
		Consider:       Set{},
		ReplacedBy:     Set{},
		EquivalentTo:   Set{},
		DisjointFrom:   Set{},
		UnionOf:        Set{},
		TransitiveOver: Set{},
		DisjointOver:   Set{},
	}
}

// Clone returns a deep copy that shares no memory with r.
func (r *Record) Clone() *Record {
	c := *r
	c.Definition = r.Definition.Clone()
	c.AlternateIDs = r.AlternateIDs.Clone()
	c.Subsets = r.Subsets.Clone()
	c.Synonyms = make([]Synonym, len(r.Synonyms))
	for i, s := range r.Synonyms {
		c.Synonyms[i] = s.Clone()
	}
	c.Xrefs = slices.Clone(r.Xrefs)
	c.Annotations = slices.Clone(r.Annotations)
	c.Relationships = make(map[string]Set, len(r.Relationships))
	for rel, targets := range r.Relationships {
		c.Relationships[rel] = targets.Clone()
	}
	c.Consider = r.Consider.Clone()
	c.ReplacedBy = r.ReplacedBy.Clone()
	c.EquivalentTo = r.EquivalentTo.Clone()
	c.DisjointFrom = r.DisjointFrom.Clone()
	c.UnionOf = r.UnionOf.Clone()
	c.IntersectionOf = slices.Clone(r.IntersectionOf)
	c.HoldsOverChain = slices.Clone(r.HoldsOverChain)
	c.EquivalentToChain = slices.Clone(r.EquivalentToChain)
	c.TransitiveOver = r.TransitiveOver.Clone()
	c.DisjointOver = r.DisjointOver.Clone()
	return &c
}

// RelationIDs returns the relation keys of Relationships in ascending order.
func (r *Record) RelationIDs() []string {
	return slices.Sorted(maps.Keys(r.Relationships))
}

// CheckCardinality rejects any of the four OWL-style axiom sets holding
// exactly one member.
func (r *Record) CheckCardinality() error {
	checks := []struct {
		field string
		n     int
	}{
		{"equivalent_to", len(r.EquivalentTo)},
		{"disjoint_from", len(r.DisjointFrom)},
		{"union_of", len(r.UnionOf)},
		{"intersection_of", len(r.IntersectionOf)},
	}
	for _, c := range checks {
		if c.n == 1 {
			return CardinalityError(r.ID, c.field)
		}
	}
	return nil
}

// CardinalityError reports field of id holding a single member.
func CardinalityError(id, field string) error {
	return ontoerr.Entity("check cardinality", id,
		fmt.Errorf("%s has exactly one member: %w", field, ontoerr.ErrCardinalityViolation))
}
