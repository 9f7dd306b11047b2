package ontology

import (
	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/record"
	"github.com/specialistvlad/ontograph/internal/traverse"
)

// Iterator walks the is_a lineage and yields views of the reached entities.
type Iterator[E Entity] struct {
	*traverse.BFS[E]
	r graphRef
}

// newIterator starts a walk from seeds. It keeps only the weak graph handle,
// so a pending iterator does not keep its graph alive either.
func newIterator[E Entity](r graphRef, seeds []string, up bool, opts []traverse.Option) *Iterator[E] {
	if len(seeds) == 0 {
		return &Iterator[E]{BFS: traverse.New[E](nil, nil, nil, 0, opts...), r: r}
	}
	o, err := r.get()
	if err != nil {
		return &Iterator[E]{BFS: traverse.Failed[E](err), r: r}
	}

	kind := kindOf[E]()
	neighbors := func(id string) []string {
		o, err := r.get()
		if err != nil {
			return nil
		}
		if up {
			return o.lineage(kind).Sup(id)
		}
		return o.lineage(kind).Sub(id)
	}
	materialize := func(id string) (E, error) {
		if _, err := r.get(); err != nil {
			var zero E
			return zero, ontoerr.Entity("traverse", id, err)
		}
		return makeView[E](r, id), nil
	}
	return &Iterator[E]{
		BFS: traverse.New[E](seeds, neighbors, materialize, o.count(kind), opts...),
		r:   r,
	}
}

// ToSet drains the walk into a set.
func (it *Iterator[E]) ToSet() (*EntitySet[E], error) {
	ids := record.Set{}
	for e := range it.All() {
		ids.Add(e.ID())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return setOf[E](it.r, ids), nil
}

// LineageHandler is returned by Superclasses, Subclasses and their
// relationship counterparts. It starts walks and edits the direct edges of
// one entity in the direction it was created for.
type LineageHandler[E Entity] struct {
	r    graphRef
	id   string
	up   bool
	opts []traverse.Option
}

// Iter starts a new walk. Every call walks again from scratch.
func (h *LineageHandler[E]) Iter() *Iterator[E] {
	return newIterator[E](h.r, []string{h.id}, h.up, h.opts)
}

// ToSet collects a walk into a set.
func (h *LineageHandler[E]) ToSet() (*EntitySet[E], error) {
	return h.Iter().ToSet()
}

// Collect returns the walk as a slice in traversal order.
func (h *LineageHandler[E]) Collect() ([]E, error) {
	return h.Iter().Collect()
}

// edge orients an edit: walking up, other is the parent.
func (h *LineageHandler[E]) edge(other string) (child, parent string) {
	if h.up {
		return h.id, other
	}
	return other, h.id
}

func (h *LineageHandler[E]) prepare(op string, other E) (*Ontology, error) {
	if other.ref() != h.r {
		return nil, ontoerr.CrossGraph(op, h.r.String(), other.ref().String())
	}
	o, err := h.r.get()
	if err != nil {
		return nil, ontoerr.Entity(op, h.id, err)
	}
	kind := kindOf[E]()
	for _, id := range []string{h.id, other.ID()} {
		if _, err := o.resolve(kind, id); err != nil {
			return nil, ontoerr.Entity(op, id, err)
		}
	}
	return o, nil
}

// Add links other as a direct superclass (walking up) or subclass.
func (h *LineageHandler[E]) Add(other E) error {
	o, err := h.prepare("add lineage edge", other)
	if err != nil {
		return err
	}
	child, parent := h.edge(other.ID())
	o.lineage(kindOf[E]()).AddEdge(child, parent)
	return nil
}

// Remove unlinks a direct edge; it fails with ErrNotFound if absent.
func (h *LineageHandler[E]) Remove(other E) error {
	o, err := h.prepare("remove lineage edge", other)
	if err != nil {
		return err
	}
	child, parent := h.edge(other.ID())
	store := o.lineage(kindOf[E]())
	if l, ok := store.Get(child); !ok || !l.Sup.Has(parent) {
		return ontoerr.Entity("remove lineage edge", other.ID(), ontoerr.ErrNotFound)
	}
	store.RemoveEdge(child, parent)
	return nil
}

// Clear removes every direct edge in the handler's direction, on both sides.
func (h *LineageHandler[E]) Clear() error {
	o, err := h.r.get()
	if err != nil {
		return ontoerr.Entity("clear lineage", h.id, err)
	}
	store := o.lineage(kindOf[E]())
	if h.up {
		store.ClearSup(h.id)
	} else {
		store.ClearSub(h.id)
	}
	return nil
}

// SuperclassesOf walks up from several entities of one graph at once.
func SuperclassesOf[E Entity](entities []E, opts ...traverse.Option) (*Iterator[E], error) {
	return iteratorOf(entities, true, opts)
}

// SubclassesOf walks down from several entities of one graph at once.
func SubclassesOf[E Entity](entities []E, opts ...traverse.Option) (*Iterator[E], error) {
	return iteratorOf(entities, false, opts)
}

func iteratorOf[E Entity](entities []E, up bool, opts []traverse.Option) (*Iterator[E], error) {
	seeds, err := NewEntitySet(entities...)
	if err != nil {
		return nil, err
	}
	return newIterator[E](seeds.r, seeds.ids.Sorted(), up, opts), nil
}
