package ontology

import (
	"iter"

	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/record"
	"github.com/specialistvlad/ontograph/internal/traverse"
)

// EntitySet is a mutable set of entities of one graph. It binds to the graph
// of its first member and unbinds when emptied; adding or comparing entities
// of another graph fails with ErrCrossGraphOperation.
//
// The zero value is an empty, unbound set ready to use.
type EntitySet[E Entity] struct {
	r   graphRef
	ids record.Set
}

// TermSet is a set of terms.
type TermSet = EntitySet[*Term]

// RelationshipSet is a set of relationships.
type RelationshipSet = EntitySet[*Relationship]

// NewEntitySet builds a set from entities, which must share one graph.
func NewEntitySet[E Entity](entities ...E) (*EntitySet[E], error) {
	s := &EntitySet[E]{}
	for _, e := range entities {
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewTermSet builds a set of terms.
func NewTermSet(terms ...*Term) (*TermSet, error) {
	return NewEntitySet(terms...)
}

// NewRelationshipSet builds a set of relationships.
func NewRelationshipSet(rels ...*Relationship) (*RelationshipSet, error) {
	return NewEntitySet(rels...)
}

func setOf[E Entity](r graphRef, ids record.Set) *EntitySet[E] {
	s := &EntitySet[E]{ids: ids}
	if len(ids) > 0 {
		s.r = r
	}
	return s
}

func (s *EntitySet[E]) check(op string, r graphRef) error {
	if s.r.bound() && r.bound() && s.r != r {
		return ontoerr.CrossGraph(op, s.r.String(), r.String())
	}
	return nil
}

// binding returns the graph shared by s and other, failing when they differ.
func (s *EntitySet[E]) binding(op string, other *EntitySet[E]) (graphRef, error) {
	if err := s.check(op, other.r); err != nil {
		return graphRef{}, err
	}
	if s.r.bound() {
		return s.r, nil
	}
	return other.r, nil
}

func (s *EntitySet[E]) settle() {
	if len(s.ids) == 0 {
		s.r = graphRef{}
	}
}

// Ontology returns the bound graph; an unbound set reports ErrStaleReference.
func (s *EntitySet[E]) Ontology() (*Ontology, error) {
	return s.r.get()
}

// Len returns the number of members.
func (s *EntitySet[E]) Len() int {
	return len(s.ids)
}

// Contains reports whether e is a member. Entities of another graph never are.
func (s *EntitySet[E]) Contains(e E) bool {
	return e.ref() == s.r && s.ids.Has(e.ID())
}

// Add inserts e, binding the set to the graph of e when it was empty.
func (s *EntitySet[E]) Add(e E) error {
	if err := s.check("add", e.ref()); err != nil {
		return err
	}
	if s.ids == nil {
		s.ids = record.Set{}
	}
	s.r = e.ref()
	s.ids.Add(e.ID())
	return nil
}

// Remove deletes e; it fails with ErrNotFound when e is not a member.
func (s *EntitySet[E]) Remove(e E) error {
	if err := s.check("remove", e.ref()); err != nil {
		return err
	}
	if !s.ids.Has(e.ID()) {
		return ontoerr.Entity("remove", e.ID(), ontoerr.ErrNotFound)
	}
	s.ids.Remove(e.ID())
	s.settle()
	return nil
}

// Discard deletes e if it is a member.
func (s *EntitySet[E]) Discard(e E) error {
	if err := s.check("discard", e.ref()); err != nil {
		return err
	}
	s.ids.Remove(e.ID())
	s.settle()
	return nil
}

// Pop removes and returns the smallest member by id.
func (s *EntitySet[E]) Pop() (E, error) {
	var zero E
	if len(s.ids) == 0 {
		return zero, ontoerr.Entity("pop", "", ontoerr.ErrNotFound)
	}
	id := s.ids.Sorted()[0]
	r := s.r
	s.ids.Remove(id)
	s.settle()
	return makeView[E](r, id), nil
}

// Clear empties and unbinds the set.
func (s *EntitySet[E]) Clear() {
	s.ids = record.Set{}
	s.r = graphRef{}
}

// Clone returns an independent copy bound to the same graph.
func (s *EntitySet[E]) Clone() *EntitySet[E] {
	return &EntitySet[E]{r: s.r, ids: s.ids.Clone()}
}

// All yields the members in map order. Views are created lazily.
func (s *EntitySet[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for id := range s.ids {
			if !yield(makeView[E](s.r, id)) {
				return
			}
		}
	}
}

// Sorted returns the members ordered by id.
func (s *EntitySet[E]) Sorted() []E {
	ids := s.ids.Sorted()
	out := make([]E, len(ids))
	for i, id := range ids {
		out[i] = makeView[E](s.r, id)
	}
	return out
}

// IDs returns the member ids in ascending order.
func (s *EntitySet[E]) IDs() []string {
	return s.ids.Sorted()
}

// Names returns the distinct names of the members in ascending order.
// Members without a name are skipped.
func (s *EntitySet[E]) Names() ([]string, error) {
	names := record.Set{}
	for _, e := range s.Sorted() {
		name, err := e.Name()
		if err != nil {
			return nil, err
		}
		if name != "" {
			names.Add(name)
		}
	}
	return names.Sorted(), nil
}

// AlternateIDs returns every alternate id of the members in ascending order.
func (s *EntitySet[E]) AlternateIDs() ([]string, error) {
	alts := record.Set{}
	for _, e := range s.Sorted() {
		ids, err := e.AlternateIDs()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			alts.Add(id)
		}
	}
	return alts.Sorted(), nil
}

// Union returns the members of either set.
func (s *EntitySet[E]) Union(other *EntitySet[E]) (*EntitySet[E], error) {
	out := s.Clone()
	if err := out.UnionWith(other); err != nil {
		return nil, err
	}
	return out, nil
}

// Intersection returns the members of both sets.
func (s *EntitySet[E]) Intersection(other *EntitySet[E]) (*EntitySet[E], error) {
	out := s.Clone()
	if err := out.IntersectWith(other); err != nil {
		return nil, err
	}
	return out, nil
}

// Difference returns the members of s missing from other.
func (s *EntitySet[E]) Difference(other *EntitySet[E]) (*EntitySet[E], error) {
	out := s.Clone()
	if err := out.DifferenceWith(other); err != nil {
		return nil, err
	}
	return out, nil
}

// SymmetricDifference returns the members of exactly one of the sets.
func (s *EntitySet[E]) SymmetricDifference(other *EntitySet[E]) (*EntitySet[E], error) {
	out := s.Clone()
	if err := out.SymmetricDifferenceWith(other); err != nil {
		return nil, err
	}
	return out, nil
}

// IsSubset reports whether every member of s is in other.
func (s *EntitySet[E]) IsSubset(other *EntitySet[E]) (bool, error) {
	if _, err := s.binding("subset", other); err != nil {
		return false, err
	}
	for id := range s.ids {
		if !other.ids.Has(id) {
			return false, nil
		}
	}
	return true, nil
}

// IsSuperset reports whether every member of other is in s.
func (s *EntitySet[E]) IsSuperset(other *EntitySet[E]) (bool, error) {
	return other.IsSubset(s)
}

// Equal reports whether both sets hold the same members.
func (s *EntitySet[E]) Equal(other *EntitySet[E]) (bool, error) {
	if _, err := s.binding("equal", other); err != nil {
		return false, err
	}
	return s.ids.Equal(other.ids), nil
}

// UnionWith adds the members of other, adopting its graph when s is unbound.
func (s *EntitySet[E]) UnionWith(other *EntitySet[E]) error {
	r, err := s.binding("union", other)
	if err != nil {
		return err
	}
	if s.ids == nil {
		s.ids = record.Set{}
	}
	for id := range other.ids {
		s.ids.Add(id)
	}
	s.r = r
	s.settle()
	return nil
}

// IntersectWith keeps only the members also in other.
func (s *EntitySet[E]) IntersectWith(other *EntitySet[E]) error {
	r, err := s.binding("intersection", other)
	if err != nil {
		return err
	}
	for id := range s.ids {
		if !other.ids.Has(id) {
			s.ids.Remove(id)
		}
	}
	s.r = r
	s.settle()
	return nil
}

// DifferenceWith removes the members of other.
func (s *EntitySet[E]) DifferenceWith(other *EntitySet[E]) error {
	r, err := s.binding("difference", other)
	if err != nil {
		return err
	}
	for id := range other.ids {
		s.ids.Remove(id)
	}
	s.r = r
	s.settle()
	return nil
}

// SymmetricDifferenceWith keeps the members of exactly one of the sets.
func (s *EntitySet[E]) SymmetricDifferenceWith(other *EntitySet[E]) error {
	r, err := s.binding("symmetric difference", other)
	if err != nil {
		return err
	}
	if s.ids == nil {
		s.ids = record.Set{}
	}
	for id := range other.ids {
		if s.ids.Has(id) {
			s.ids.Remove(id)
		} else {
			s.ids.Add(id)
		}
	}
	s.r = r
	s.settle()
	return nil
}

// Superclasses walks up from every member at once.
func (s *EntitySet[E]) Superclasses(opts ...traverse.Option) *Iterator[E] {
	return newIterator[E](s.r, s.ids.Sorted(), true, opts)
}

// Subclasses walks down from every member at once.
func (s *EntitySet[E]) Subclasses(opts ...traverse.Option) *Iterator[E] {
	return newIterator[E](s.r, s.ids.Sorted(), false, opts)
}
