// Package traverse implements the distance-bounded breadth-first walk used
// for every ancestor and descendant query.
//
// One algorithm serves all four queries (superclasses, subclasses,
// superproperties, subproperties). Callers choose the direction by passing a
// neighbor function and the result type by passing a materializer.
package traverse

import (
	"iter"
	"slices"
)

// Neighbors returns the immediate neighbors of id. A missing id has none.
type Neighbors func(id string) []string

// Materializer turns a reached id into the value handed to the caller.
type Materializer[T any] func(id string) (T, error)

type options struct {
	maxDistance int
	bounded     bool
	withSelf    bool
}

// Option configures a walk.
type Option func(*options)

// WithDistance bounds the walk to ids at most d edges away from a seed.
// A negative d leaves the walk unbounded, which is the default.
func WithDistance(d int) Option {
	return func(o *options) {
		o.bounded = d >= 0
		o.maxDistance = d
	}
}

// WithSelf controls whether the seeds are produced first. Defaults to true.
func WithSelf(withSelf bool) Option {
	return func(o *options) {
		o.withSelf = withSelf
	}
}

type step struct {
	id       string
	distance int
}

// BFS is a single, non-restartable walk. Each reachable id is produced
// exactly once; neighbors are visited in ascending id order, so the sequence
// is deterministic for an unchanged graph.
type BFS[T any] struct {
	neighbors   Neighbors
	materialize Materializer[T]
	total       int
	opts        options

	linked   map[string]struct{}
	done     map[string]struct{}
	frontier []step
	queue    []string
	err      error
}

// New prepares a walk from seeds. total is the number of entities the walk
// could possibly reach and only feeds LengthHint.
func New[T any](seeds []string, neighbors Neighbors, materialize Materializer[T], total int, opts ...Option) *BFS[T] {
	o := options{withSelf: true}
	for _, opt := range opts {
		opt(&o)
	}

	sorted := slices.Clone(seeds)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	b := &BFS[T]{
		neighbors:   neighbors,
		materialize: materialize,
		total:       total,
		opts:        o,
		linked:      make(map[string]struct{}, len(sorted)),
		done:        make(map[string]struct{}),
		frontier:    make([]step, 0, len(sorted)),
	}
	for _, id := range sorted {
		b.linked[id] = struct{}{}
		b.frontier = append(b.frontier, step{id: id})
		if o.withSelf {
			b.queue = append(b.queue, id)
		}
	}
	return b
}

// Next produces the next entity. It returns false once the walk is exhausted
// or materialization failed; Err tells the two apart.
func (b *BFS[T]) Next() (T, bool) {
	var zero T
	for b.err == nil {
		if len(b.queue) > 0 {
			id := b.queue[0]
			b.queue = b.queue[1:]
			v, err := b.materialize(id)
			if err != nil {
				b.err = err
				return zero, false
			}
			return v, true
		}
		if len(b.frontier) == 0 {
			return zero, false
		}
		b.expand()
	}
	return zero, false
}

func (b *BFS[T]) expand() {
	s := b.frontier[0]
	b.frontier = b.frontier[1:]
	b.done[s.id] = struct{}{}

	if b.opts.bounded && s.distance >= b.opts.maxDistance {
		return
	}

	neighbors := slices.Clone(b.neighbors(s.id))
	slices.Sort(neighbors)
	for _, n := range neighbors {
		if _, ok := b.done[n]; !ok {
			b.frontier = append(b.frontier, step{id: n, distance: s.distance + 1})
		}
	}
	for _, n := range neighbors {
		if _, ok := b.linked[n]; !ok {
			b.linked[n] = struct{}{}
			b.queue = append(b.queue, n)
		}
	}
}

// Err returns the materialization error that stopped the walk, if any.
func (b *BFS[T]) Err() error {
	return b.err
}

// LengthHint estimates how many entities remain. It never underestimates
// while the walk is incomplete and is zero once it is exhausted.
func (b *BFS[T]) LengthHint() int {
	if b.err != nil || (len(b.queue) == 0 && len(b.frontier) == 0) {
		return 0
	}
	return max(b.total-len(b.linked)+len(b.queue), len(b.queue))
}

// All adapts the walk to a range-over-func sequence. Check Err afterwards.
func (b *BFS[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := b.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Collect drains the walk.
func (b *BFS[T]) Collect() ([]T, error) {
	var out []T
	for v := range b.All() {
		out = append(out, v)
	}
	return out, b.err
}

// Failed returns a walk that produces nothing and reports err.
func Failed[T any](err error) *BFS[T] {
	return &BFS[T]{err: err}
}
