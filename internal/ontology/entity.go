package ontology

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"weak"

	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/record"
	"github.com/specialistvlad/ontograph/internal/traverse"
)

// graphRef is the non-owning handle views and sets keep on their graph.
// The zero value is unbound.
type graphRef struct {
	wp weak.Pointer[Ontology]
}

func (r graphRef) get() (*Ontology, error) {
	o := r.wp.Value()
	if o == nil || o.Closed() {
		return nil, ontoerr.ErrStaleReference
	}
	return o, nil
}

func (r graphRef) bound() bool {
	return r != graphRef{}
}

func (r graphRef) String() string {
	if o := r.wp.Value(); o != nil {
		return o.id.String()
	}
	if r.bound() {
		return "<discarded>"
	}
	return "<unbound>"
}

// Entity is a view of a term or a relationship: a graph handle plus an id.
// Views compare, order and hash by id alone. They never keep their graph
// alive; once it is closed or collected every field access fails with
// ErrStaleReference.
type Entity interface {
	ID() string
	Kind() record.Kind
	Name() (string, error)
	AlternateIDs() ([]string, error)
	Ontology() (*Ontology, error)
	ref() graphRef
}

func kindOf[E Entity]() record.Kind {
	var zero E
	if _, ok := any(zero).(*Relationship); ok {
		return record.KindRelationship
	}
	return record.KindTerm
}

func makeView[E Entity](r graphRef, id string) E {
	var zero E
	switch any(zero).(type) {
	case *Relationship:
		return any(newRelationship(r, id)).(E)
	default:
		return any(newTerm(r, id)).(E)
	}
}

// base carries the state and the field accessors shared by both kinds.
type base[E Entity] struct {
	r  graphRef
	id string
}

// ID returns the canonical identifier.
func (b *base[E]) ID() string { return b.id }

// Kind tells terms and relationships apart.
func (b *base[E]) Kind() record.Kind { return kindOf[E]() }

func (b *base[E]) ref() graphRef { return b.r }

// Ontology returns the graph the view belongs to.
func (b *base[E]) Ontology() (*Ontology, error) {
	o, err := b.r.get()
	if err != nil {
		return nil, ontoerr.Entity("dereference", b.id, err)
	}
	return o, nil
}

// String renders the view as Term('id') or Relationship('id').
func (b *base[E]) String() string {
	if b.Kind() == record.KindRelationship {
		return fmt.Sprintf("Relationship(%q)", b.id)
	}
	return fmt.Sprintf("Term(%q)", b.id)
}

// Equal compares views by id.
func (b *base[E]) Equal(other Entity) bool {
	return other != nil && b.id == other.ID()
}

// Compare orders views by id.
func (b *base[E]) Compare(other Entity) int {
	return strings.Compare(b.id, other.ID())
}

// rec returns the record behind the view and the graph that stores it. For
// an entity declared by an import that graph is the import, so writes keep
// its alternate-id index and its subset declarations in step with the record.
func (b *base[E]) rec(op string) (*Ontology, *record.Record, error) {
	o, err := b.r.get()
	if err != nil {
		return nil, nil, ontoerr.Entity(op, b.id, err)
	}
	owner, r, err := o.owner(b.Kind(), b.id)
	if err != nil {
		return nil, nil, ontoerr.Entity(op, b.id, err)
	}
	return owner, r, nil
}

func (b *base[E]) read(op string, fn func(r *record.Record)) error {
	_, r, err := b.rec(op)
	if err != nil {
		return err
	}
	fn(r)
	return nil
}

func (b *base[E]) write(op string, fn func(o *Ontology, r *record.Record) error) error {
	o, r, err := b.rec(op)
	if err != nil {
		return err
	}
	if err := fn(o, r); err != nil {
		return ontoerr.Entity(op, b.id, err)
	}
	return nil
}

// sameGraph rejects entities bound to another graph instance.
func (b *base[E]) sameGraph(op string, others ...Entity) error {
	for _, other := range others {
		if other.ref() != b.r {
			return ontoerr.CrossGraph(op, b.r.String(), other.ref().String())
		}
	}
	return nil
}

// Snapshot returns a deep copy of the record behind the view.
func (b *base[E]) Snapshot() (record.Record, error) {
	_, r, err := b.rec("snapshot")
	if err != nil {
		return record.Record{}, err
	}
	return *r.Clone(), nil
}

func (b *base[E]) Name() (name string, err error) {
	err = b.read("name", func(r *record.Record) { name = r.Name })
	return name, err
}

func (b *base[E]) SetName(name string) error {
	return b.write("set name", func(_ *Ontology, r *record.Record) error {
		r.Name = name
		return nil
	})
}

func (b *base[E]) Namespace() (ns string, err error) {
	err = b.read("namespace", func(r *record.Record) { ns = r.Namespace })
	return ns, err
}

func (b *base[E]) SetNamespace(ns string) error {
	return b.write("set namespace", func(_ *Ontology, r *record.Record) error {
		r.Namespace = ns
		return nil
	})
}

func (b *base[E]) Comment() (comment string, err error) {
	err = b.read("comment", func(r *record.Record) { comment = r.Comment })
	return comment, err
}

func (b *base[E]) SetComment(comment string) error {
	return b.write("set comment", func(_ *Ontology, r *record.Record) error {
		r.Comment = comment
		return nil
	})
}

// Definition returns a copy of the definition, nil when unset.
func (b *base[E]) Definition() (def *record.Definition, err error) {
	err = b.read("definition", func(r *record.Record) { def = r.Definition.Clone() })
	return def, err
}

// SetDefinition replaces the definition; nil clears it.
func (b *base[E]) SetDefinition(def *record.Definition) error {
	return b.write("set definition", func(_ *Ontology, r *record.Record) error {
		r.Definition = def.Clone()
		return nil
	})
}

func (b *base[E]) CreatedBy() (by string, err error) {
	err = b.read("created by", func(r *record.Record) { by = r.CreatedBy })
	return by, err
}

func (b *base[E]) SetCreatedBy(by string) error {
	return b.write("set created by", func(_ *Ontology, r *record.Record) error {
		r.CreatedBy = by
		return nil
	})
}

func (b *base[E]) CreationDate() (date time.Time, err error) {
	err = b.read("creation date", func(r *record.Record) { date = r.CreationDate })
	return date, err
}

func (b *base[E]) SetCreationDate(date time.Time) error {
	return b.write("set creation date", func(_ *Ontology, r *record.Record) error {
		r.CreationDate = date
		return nil
	})
}

func (b *base[E]) Obsolete() (v bool, err error) {
	err = b.read("obsolete", func(r *record.Record) { v = r.Obsolete })
	return v, err
}

func (b *base[E]) SetObsolete(v bool) error {
	return b.write("set obsolete", func(_ *Ontology, r *record.Record) error {
		r.Obsolete = v
		return nil
	})
}

func (b *base[E]) Anonymous() (v bool, err error) {
	err = b.read("anonymous", func(r *record.Record) { v = r.Anonymous })
	return v, err
}

func (b *base[E]) SetAnonymous(v bool) error {
	return b.write("set anonymous", func(_ *Ontology, r *record.Record) error {
		r.Anonymous = v
		return nil
	})
}

func (b *base[E]) Builtin() (v bool, err error) {
	err = b.read("builtin", func(r *record.Record) { v = r.Builtin })
	return v, err
}

func (b *base[E]) SetBuiltin(v bool) error {
	return b.write("set builtin", func(_ *Ontology, r *record.Record) error {
		r.Builtin = v
		return nil
	})
}

// AlternateIDs returns the alternate ids in ascending order.
func (b *base[E]) AlternateIDs() (ids []string, err error) {
	err = b.read("alternate ids", func(r *record.Record) { ids = r.AlternateIDs.Sorted() })
	return ids, err
}

// AddAlternateID registers alt for this entity. alt must not be in use by
// any entity or alternate id of the graph.
func (b *base[E]) AddAlternateID(alt string) error {
	return b.write("add alternate id", func(o *Ontology, r *record.Record) error {
		if r.AlternateIDs.Has(alt) {
			return nil
		}
		if err := validID("add alternate id", alt); err != nil {
			return err
		}
		if err := o.records.Alias(alt, r.ID); err != nil {
			return err
		}
		r.AlternateIDs.Add(alt)
		return nil
	})
}

// RemoveAlternateID drops alt and its alias entry.
func (b *base[E]) RemoveAlternateID(alt string) error {
	return b.write("remove alternate id", func(o *Ontology, r *record.Record) error {
		if !r.AlternateIDs.Has(alt) {
			return ontoerr.ErrNotFound
		}
		r.AlternateIDs.Remove(alt)
		o.records.Unalias(alt, r.ID)
		return nil
	})
}

// ClearAlternateIDs drops every alternate id.
func (b *base[E]) ClearAlternateIDs() error {
	return b.write("clear alternate ids", func(o *Ontology, r *record.Record) error {
		for alt := range r.AlternateIDs {
			o.records.Unalias(alt, r.ID)
		}
		r.AlternateIDs = record.Set{}
		return nil
	})
}

// Subsets returns the subset names in ascending order.
func (b *base[E]) Subsets() (names []string, err error) {
	err = b.read("subsets", func(r *record.Record) { names = r.Subsets.Sorted() })
	return names, err
}

// AddSubset adds the entity to a subset declared in the graph metadata.
func (b *base[E]) AddSubset(name string) error {
	return b.write("add subset", func(o *Ontology, r *record.Record) error {
		if !o.hasSubset(name) {
			return fmt.Errorf("%q: %w", name, ontoerr.ErrUndeclaredSubset)
		}
		r.Subsets.Add(name)
		return nil
	})
}

// SetSubsets replaces the subsets. Every name must be declared.
func (b *base[E]) SetSubsets(names ...string) error {
	return b.write("set subsets", func(o *Ontology, r *record.Record) error {
		for _, name := range names {
			if !o.hasSubset(name) {
				return fmt.Errorf("%q: %w", name, ontoerr.ErrUndeclaredSubset)
			}
		}
		r.Subsets = record.NewSet(names...)
		return nil
	})
}

// Synonyms returns copies of the synonyms in insertion order.
func (b *base[E]) Synonyms() (out []record.Synonym, err error) {
	err = b.read("synonyms", func(r *record.Record) {
		out = make([]record.Synonym, len(r.Synonyms))
		for i, s := range r.Synonyms {
			out[i] = s.Clone()
		}
	})
	return out, err
}

// AddSynonym validates s and adds it, replacing a synonym with the same
// description and scope. An unset scope takes the default of the synonym
// type when that type declares one.
func (b *base[E]) AddSynonym(s record.Synonym) error {
	return b.write("add synonym", func(o *Ontology, r *record.Record) error {
		s, err := o.checkSynonym(s)
		if err != nil {
			return err
		}
		r.Synonyms = record.MergeSynonym(r.Synonyms, s.Clone())
		return nil
	})
}

// SetSynonyms replaces the synonyms after validating each of them.
func (b *base[E]) SetSynonyms(synonyms ...record.Synonym) error {
	return b.write("set synonyms", func(o *Ontology, r *record.Record) error {
		var out []record.Synonym
		for _, s := range synonyms {
			s, err := o.checkSynonym(s)
			if err != nil {
				return err
			}
			out = record.MergeSynonym(out, s.Clone())
		}
		r.Synonyms = out
		return nil
	})
}

func (o *Ontology) checkSynonym(s record.Synonym) (record.Synonym, error) {
	if !s.Scope.Valid() {
		return s, fmt.Errorf("synonym scope %q: %w", s.Scope, ontoerr.ErrInvalidValue)
	}
	if s.Type == "" {
		return s, nil
	}
	st, ok := o.synonymType(s.Type)
	if !ok {
		return s, fmt.Errorf("%q: %w", s.Type, ontoerr.ErrUndeclaredSynonymType)
	}
	if s.Scope == record.ScopeNone {
		s.Scope = st.Scope
	}
	return s, nil
}

// Xrefs returns the cross-references ordered by id.
func (b *base[E]) Xrefs() (out []record.Xref, err error) {
	err = b.read("xrefs", func(r *record.Record) {
		out = slices.Clone(r.Xrefs)
		record.SortXrefs(out)
	})
	return out, err
}

// AddXref adds x, replacing an xref with the same id.
func (b *base[E]) AddXref(x record.Xref) error {
	return b.write("add xref", func(_ *Ontology, r *record.Record) error {
		if x.ID == "" {
			return fmt.Errorf("empty xref id: %w", ontoerr.ErrInvalidValue)
		}
		r.Xrefs = record.MergeXref(r.Xrefs, x)
		return nil
	})
}

// SetXrefs replaces the cross-references.
func (b *base[E]) SetXrefs(xrefs ...record.Xref) error {
	return b.write("set xrefs", func(_ *Ontology, r *record.Record) error {
		var out []record.Xref
		for _, x := range xrefs {
			if x.ID == "" {
				return fmt.Errorf("empty xref id: %w", ontoerr.ErrInvalidValue)
			}
			out = record.MergeXref(out, x)
		}
		r.Xrefs = out
		return nil
	})
}

// Annotations returns the property values in insertion order.
func (b *base[E]) Annotations() (out []record.PropertyValue, err error) {
	err = b.read("annotations", func(r *record.Record) { out = slices.Clone(r.Annotations) })
	return out, err
}

// AddAnnotation adds a property value unless an identical one exists.
func (b *base[E]) AddAnnotation(pv record.PropertyValue) error {
	return b.write("add annotation", func(_ *Ontology, r *record.Record) error {
		if pv.Property == "" {
			return fmt.Errorf("empty annotation property: %w", ontoerr.ErrInvalidValue)
		}
		r.Annotations = record.AddAnnotation(r.Annotations, pv)
		return nil
	})
}

// SetAnnotations replaces the property values.
func (b *base[E]) SetAnnotations(pvs ...record.PropertyValue) error {
	return b.write("set annotations", func(_ *Ontology, r *record.Record) error {
		var out []record.PropertyValue
		for _, pv := range pvs {
			if pv.Property == "" {
				return fmt.Errorf("empty annotation property: %w", ontoerr.ErrInvalidValue)
			}
			out = record.AddAnnotation(out, pv)
		}
		r.Annotations = out
		return nil
	})
}

// Relationships returns relation id to sorted target ids. is_a is never
// listed; it lives in the lineage.
func (b *base[E]) Relationships() (out map[string][]string, err error) {
	err = b.read("relationships", func(r *record.Record) {
		out = make(map[string][]string, len(r.Relationships))
		for rel, targets := range r.Relationships {
			out[rel] = targets.Sorted()
		}
	})
	return out, err
}

// Targets returns the targets of one relation as a set.
func (b *base[E]) Targets(rel *Relationship) (*EntitySet[E], error) {
	if err := b.sameGraph("targets", rel); err != nil {
		return nil, err
	}
	var ids record.Set
	if err := b.read("targets", func(r *record.Record) { ids = r.Relationships[rel.ID()].Clone() }); err != nil {
		return nil, err
	}
	return setOf[E](b.r, ids), nil
}

// AddRelationship links the entity to target through rel.
func (b *base[E]) AddRelationship(rel *Relationship, target E) error {
	if err := b.sameGraph("add relationship", rel, target); err != nil {
		return err
	}
	if _, _, err := rel.rec("add relationship"); err != nil {
		return err
	}
	return b.AddRelationshipID(rel.ID(), target.ID())
}

// AddRelationshipID links by ids. Readers use it because the relation or the
// target may be declared by a frame that has not been ingested yet.
func (b *base[E]) AddRelationshipID(relID, targetID string) error {
	return b.write("add relationship", func(_ *Ontology, r *record.Record) error {
		if relID == IsA {
			return fmt.Errorf("is_a edges belong to the lineage: %w", ontoerr.ErrInvalidValue)
		}
		if relID == "" || targetID == "" {
			return fmt.Errorf("empty relation or target: %w", ontoerr.ErrInvalidValue)
		}
		targets, ok := r.Relationships[relID]
		if !ok {
			targets = record.Set{}
			r.Relationships[relID] = targets
		}
		targets.Add(targetID)
		return nil
	})
}

// RemoveRelationship unlinks target from rel.
func (b *base[E]) RemoveRelationship(rel *Relationship, target E) error {
	if err := b.sameGraph("remove relationship", rel, target); err != nil {
		return err
	}
	return b.write("remove relationship", func(_ *Ontology, r *record.Record) error {
		targets := r.Relationships[rel.ID()]
		if !targets.Has(target.ID()) {
			return ontoerr.ErrNotFound
		}
		targets.Remove(target.ID())
		if targets.Len() == 0 {
			delete(r.Relationships, rel.ID())
		}
		return nil
	})
}

// Axiom names one of the set-valued axioms linking an entity to others of
// its own kind.
type Axiom int

const (
	Consider Axiom = iota
	ReplacedBy
	EquivalentTo
	DisjointFrom
	UnionOf
)

func (a Axiom) String() string {
	return [...]string{"consider", "replaced_by", "equivalent_to", "disjoint_from", "union_of"}[a]
}

// constrained axioms never hold exactly one member.
func (a Axiom) constrained() bool {
	return a == EquivalentTo || a == DisjointFrom || a == UnionOf
}

func (a Axiom) field(r *record.Record) *record.Set {
	switch a {
	case Consider:
		return &r.Consider
	case ReplacedBy:
		return &r.ReplacedBy
	case EquivalentTo:
		return &r.EquivalentTo
	case DisjointFrom:
		return &r.DisjointFrom
	default:
		return &r.UnionOf
	}
}

// Axiom returns the members of axiom a.
func (b *base[E]) Axiom(a Axiom) (*EntitySet[E], error) {
	var ids record.Set
	if err := b.read(a.String(), func(r *record.Record) { ids = a.field(r).Clone() }); err != nil {
		return nil, err
	}
	return setOf[E](b.r, ids), nil
}

// SetAxiom replaces the members of axiom a. equivalent_to, disjoint_from and
// union_of reject a single member.
func (b *base[E]) SetAxiom(a Axiom, members *EntitySet[E]) error {
	if members == nil {
		members = &EntitySet[E]{}
	}
	if members.r.bound() && members.r != b.r {
		return ontoerr.CrossGraph("set "+a.String(), b.r.String(), members.r.String())
	}
	return b.write("set "+a.String(), func(_ *Ontology, r *record.Record) error {
		if a.constrained() && members.Len() == 1 {
			return record.CardinalityError(r.ID, a.String())
		}
		*a.field(r) = members.ids.Clone()
		return nil
	})
}

// AddAxiomID adds one member to axiom a without checking cardinality.
// Readers add members clause by clause and call CheckCardinality once the
// whole frame is applied.
func (b *base[E]) AddAxiomID(a Axiom, id string) error {
	return b.write("add "+a.String(), func(_ *Ontology, r *record.Record) error {
		if id == "" {
			return fmt.Errorf("empty id: %w", ontoerr.ErrInvalidValue)
		}
		a.field(r).Add(id)
		return nil
	})
}

func (b *base[E]) Consider() (*EntitySet[E], error)     { return b.Axiom(Consider) }
func (b *base[E]) ReplacedBy() (*EntitySet[E], error)   { return b.Axiom(ReplacedBy) }
func (b *base[E]) EquivalentTo() (*EntitySet[E], error) { return b.Axiom(EquivalentTo) }
func (b *base[E]) DisjointFrom() (*EntitySet[E], error) { return b.Axiom(DisjointFrom) }
func (b *base[E]) UnionOf() (*EntitySet[E], error)      { return b.Axiom(UnionOf) }

func (b *base[E]) SetConsider(s *EntitySet[E]) error     { return b.SetAxiom(Consider, s) }
func (b *base[E]) SetReplacedBy(s *EntitySet[E]) error   { return b.SetAxiom(ReplacedBy, s) }
func (b *base[E]) SetEquivalentTo(s *EntitySet[E]) error { return b.SetAxiom(EquivalentTo, s) }
func (b *base[E]) SetDisjointFrom(s *EntitySet[E]) error { return b.SetAxiom(DisjointFrom, s) }
func (b *base[E]) SetUnionOf(s *EntitySet[E]) error      { return b.SetAxiom(UnionOf, s) }

// IntersectionOf returns the intersection operands in insertion order.
func (b *base[E]) IntersectionOf() (out []record.IntersectionPart, err error) {
	err = b.read("intersection_of", func(r *record.Record) { out = slices.Clone(r.IntersectionOf) })
	return out, err
}

// SetIntersectionOf replaces the intersection operands; a single operand is
// a cardinality violation.
func (b *base[E]) SetIntersectionOf(parts ...record.IntersectionPart) error {
	return b.write("set intersection_of", func(_ *Ontology, r *record.Record) error {
		var out []record.IntersectionPart
		for _, p := range parts {
			out = record.AddIntersection(out, p)
		}
		if len(out) == 1 {
			return record.CardinalityError(r.ID, "intersection_of")
		}
		r.IntersectionOf = out
		return nil
	})
}

// AddIntersectionPart adds one operand without checking cardinality.
func (b *base[E]) AddIntersectionPart(part record.IntersectionPart) error {
	return b.write("add intersection_of", func(_ *Ontology, r *record.Record) error {
		if part.Target == "" {
			return fmt.Errorf("empty intersection target: %w", ontoerr.ErrInvalidValue)
		}
		r.IntersectionOf = record.AddIntersection(r.IntersectionOf, part)
		return nil
	})
}

// CheckCardinality validates the constrained axioms of the record.
func (b *base[E]) CheckCardinality() error {
	_, r, err := b.rec("check cardinality")
	if err != nil {
		return err
	}
	return r.CheckCardinality()
}

// lineageHandler builds the handler walking up (superclasses) or down.
func (b *base[E]) lineageHandler(up bool, opts []traverse.Option) *LineageHandler[E] {
	return &LineageHandler[E]{r: b.r, id: b.id, up: up, opts: opts}
}
