package lineage

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/specialistvlad/ontograph/internal/record"
)

const shardCount = 32

// Lineage is a snapshot of the immediate neighbors of one id.
type Lineage struct {
	Sub record.Set
	Sup record.Set
}

type entry struct {
	sub record.Set
	sup record.Set
}

func newEntry() *entry {
	return &entry{sub: record.Set{}, sup: record.Set{}}
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Store is the is_a lineage cache of one entity kind.
//
// Ids are spread over shards by hash and each shard has its own mutex, so
// concurrent edge insertions only contend when they touch ids of the same
// shard. Operations touching two ids lock both shards in index order.
type Store struct {
	shards [shardCount]shard
}

// New creates an empty lineage store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*entry)
	}
	return s
}

func (s *Store) index(id string) int {
	return int(xxhash.Sum64String(id) % shardCount)
}

func (s *Store) lockOne(id string) *shard {
	sh := &s.shards[s.index(id)]
	sh.mu.Lock()
	return sh
}

func (s *Store) lockPair(a, b string) (*shard, *shard, func()) {
	ia, ib := s.index(a), s.index(b)
	sa, sb := &s.shards[ia], &s.shards[ib]
	switch {
	case ia == ib:
		sa.mu.Lock()
		return sa, sb, sa.mu.Unlock
	case ia < ib:
		sa.mu.Lock()
		sb.mu.Lock()
	default:
		sb.mu.Lock()
		sa.mu.Lock()
	}
	return sa, sb, func() {
		sa.mu.Unlock()
		sb.mu.Unlock()
	}
}

func (sh *shard) entry(id string) *entry {
	e, ok := sh.entries[id]
	if !ok {
		e = newEntry()
		sh.entries[id] = e
	}
	return e
}

// Ensure makes id present with empty neighbor sets if it is missing.
func (s *Store) Ensure(id string) {
	sh := s.lockOne(id)
	defer sh.mu.Unlock()
	sh.entry(id)
}

// Has reports whether id has an entry.
func (s *Store) Has(id string) bool {
	sh := s.lockOne(id)
	defer sh.mu.Unlock()
	_, ok := sh.entries[id]
	return ok
}

// AddEdge records parent as a direct superclass of child, on both sides.
func (s *Store) AddEdge(child, parent string) {
	sc, sp, unlock := s.lockPair(child, parent)
	defer unlock()
	sc.entry(child).sup.Add(parent)
	sp.entry(parent).sub.Add(child)
}

// AddSup records only the child side of an edge. The store is asymmetric
// until Symmetrize runs.
func (s *Store) AddSup(child, parent string) {
	sh := s.lockOne(child)
	defer sh.mu.Unlock()
	sh.entry(child).sup.Add(parent)
}

// RemoveEdge deletes the edge between child and parent on both sides.
func (s *Store) RemoveEdge(child, parent string) {
	sc, sp, unlock := s.lockPair(child, parent)
	defer unlock()
	if e, ok := sc.entries[child]; ok {
		e.sup.Remove(parent)
	}
	if e, ok := sp.entries[parent]; ok {
		e.sub.Remove(child)
	}
}

// ClearSup removes every superclass edge of child.
func (s *Store) ClearSup(child string) {
	for _, parent := range s.Sup(child) {
		s.RemoveEdge(child, parent)
	}
}

// ClearSub removes every subclass edge of parent.
func (s *Store) ClearSub(parent string) {
	for _, child := range s.Sub(parent) {
		s.RemoveEdge(child, parent)
	}
}

// Sup returns the direct superclasses of id in ascending order.
func (s *Store) Sup(id string) []string {
	sh := s.lockOne(id)
	defer sh.mu.Unlock()
	if e, ok := sh.entries[id]; ok {
		return e.sup.Sorted()
	}
	return nil
}

// Sub returns the direct subclasses of id in ascending order.
func (s *Store) Sub(id string) []string {
	sh := s.lockOne(id)
	defer sh.mu.Unlock()
	if e, ok := sh.entries[id]; ok {
		return e.sub.Sorted()
	}
	return nil
}

// Get returns a copy of the lineage of id.
func (s *Store) Get(id string) (Lineage, bool) {
	sh := s.lockOne(id)
	defer sh.mu.Unlock()
	e, ok := sh.entries[id]
	if !ok {
		return Lineage{}, false
	}
	return Lineage{Sub: e.sub.Clone(), Sup: e.sup.Clone()}, true
}

// Snapshot copies the whole store.
func (s *Store) Snapshot() map[string]Lineage {
	out := make(map[string]Lineage)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, e := range sh.entries {
			out[id] = Lineage{Sub: e.sub.Clone(), Sup: e.sup.Clone()}
		}
		sh.mu.Unlock()
	}
	return out
}

// IDs returns every id with an entry, ascending.
func (s *Store) IDs() []string {
	var ids []string
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id := range sh.entries {
			ids = append(ids, id)
		}
		sh.mu.Unlock()
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of ids with an entry.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Merge unions the neighbor sets of other into s, per id. Existing edges are
// kept; nothing is overwritten.
func (s *Store) Merge(other *Store) {
	if other == nil || other == s {
		return
	}
	for id, l := range other.Snapshot() {
		sh := s.lockOne(id)
		e := sh.entry(id)
		for sub := range l.Sub {
			e.sub.Add(sub)
		}
		for sup := range l.Sup {
			e.sup.Add(sup)
		}
		sh.mu.Unlock()
	}
}

// Rename moves every edge of from onto to and drops the entry of from. An
// edge between from and to disappears.
func (s *Store) Rename(from, to string) {
	if from == to {
		return
	}
	l, ok := s.Get(from)
	if !ok {
		return
	}
	s.Ensure(to)
	for parent := range l.Sup {
		s.RemoveEdge(from, parent)
		if parent != to {
			s.AddEdge(to, parent)
		}
	}
	for child := range l.Sub {
		s.RemoveEdge(child, from)
		if child != to {
			s.AddEdge(child, to)
		}
	}
	sh := s.lockOne(from)
	delete(sh.entries, from)
	sh.mu.Unlock()
}

// Symmetrize adds every missing reverse edge and returns how many were added.
// Ids only referenced by an edge gain an entry.
func (s *Store) Symmetrize() int {
	snapshot := s.Snapshot()
	repaired := 0
	for id, l := range snapshot {
		for parent := range l.Sup {
			if p, ok := snapshot[parent]; !ok || !p.Sub.Has(id) {
				s.AddEdge(id, parent)
				repaired++
			}
		}
		for child := range l.Sub {
			if c, ok := snapshot[child]; !ok || !c.Sup.Has(id) {
				s.AddEdge(child, id)
				repaired++
			}
		}
	}
	return repaired
}

// Verify checks that every edge is recorded on both sides.
func (s *Store) Verify() error {
	snapshot := s.Snapshot()
	for _, id := range sortedKeys(snapshot) {
		l := snapshot[id]
		for _, parent := range l.Sup.Sorted() {
			if p, ok := snapshot[parent]; !ok || !p.Sub.Has(id) {
				return fmt.Errorf("lineage of %q lists superclass %q without the reverse edge", id, parent)
			}
		}
		for _, child := range l.Sub.Sorted() {
			if c, ok := snapshot[child]; !ok || !c.Sup.Has(id) {
				return fmt.Errorf("lineage of %q lists subclass %q without the reverse edge", id, child)
			}
		}
	}
	return nil
}

// DetectCycles returns an error naming an id on an is_a cycle, if any.
func (s *Store) DetectCycles() error {
	snapshot := s.Snapshot()

	// permanent: fully explored ids. temporary: ids on the current DFS path.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("is_a cycle detected involving %q", id)
		}
		temporary[id] = true
		for _, parent := range snapshot[id].Sup.Sorted() {
			if err := visit(parent); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range sortedKeys(snapshot) {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]Lineage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
