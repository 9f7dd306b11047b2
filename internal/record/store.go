package record

import (
	"fmt"
	"sync"

	"github.com/specialistvlad/ontograph/internal/ontoerr"
)

// Store owns every Record of one graph, keyed by id.
//
// The maps are guarded by an RWMutex so that ingestion workers may create
// records for different ids concurrently. The records themselves are not
// locked: a record is only ever written by the worker that owns its id.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	aliases map[string]string // Key: alternate id, Value: canonical id
	order   [2][]string       // insertion order per Kind, builtins excluded
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		aliases: make(map[string]string),
	}
}

// Create adds a new record. It fails with ErrDuplicateIdentifier when id is
// already used by a record of any kind or registered as an alternate id.
func (s *Store) Create(kind Kind, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFreeLocked(id); err != nil {
		return nil, ontoerr.Entity("create "+kind.String(), id, err)
	}
	r := New(kind, id)
	s.records[id] = r
	s.order[kind] = append(s.order[kind], id)
	return r, nil
}

// GetOrCreate returns the record for id, creating it when absent. Readers use
// it so that several frames may enrich the same entity. An existing record of
// another kind is a duplicate identifier.
func (s *Store) GetOrCreate(kind Kind, id string) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.records[id]; ok {
		if r.Kind != kind {
			return nil, false, ontoerr.Entity("create "+kind.String(), id,
				fmt.Errorf("already declared as a %s: %w", r.Kind, ontoerr.ErrDuplicateIdentifier))
		}
		return r, false, nil
	}
	if canonical, ok := s.aliases[id]; ok {
		return nil, false, ontoerr.Entity("create "+kind.String(), id,
			fmt.Errorf("alternate id of %q: %w", canonical, ontoerr.ErrDuplicateIdentifier))
	}
	r := New(kind, id)
	s.records[id] = r
	s.order[kind] = append(s.order[kind], id)
	return r, true, nil
}

// Install adds a builtin record. Builtins are reachable by id but never
// appear in insertion-ordered iteration.
func (s *Store) Install(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFreeLocked(r.ID); err != nil {
		return ontoerr.Entity("install builtin", r.ID, err)
	}
	s.records[r.ID] = r
	return nil
}

// Lookup finds a record by its canonical id only.
func (s *Store) Lookup(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	return r, ok
}

// Get finds a record by id, falling back to the alternate-id index.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.records[id]; ok {
		return r, nil
	}
	if canonical, ok := s.aliases[id]; ok {
		if r, ok := s.records[canonical]; ok {
			return r, nil
		}
	}
	return nil, ontoerr.Entity("get", id, ontoerr.ErrNotFound)
}

// InUse reports whether id names a record or an alternate id.
func (s *Store) InUse(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.checkFreeLocked(id) != nil
}

// Alias registers alt as an alternate id of canonical. Registering the same
// pair twice is a no-op.
func (s *Store) Alias(alt, canonical string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.aliases[alt]; ok && current == canonical {
		return nil
	}
	if err := s.checkFreeLocked(alt); err != nil {
		return ontoerr.Entity("add alternate id", alt, err)
	}
	s.aliases[alt] = canonical
	return nil
}

// Unalias drops alt from the alternate-id index if it points at canonical.
func (s *Store) Unalias(alt, canonical string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aliases[alt] == canonical {
		delete(s.aliases, alt)
	}
}

// Canonical resolves an alternate id to the id it stands for.
func (s *Store) Canonical(alt string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canonical, ok := s.aliases[alt]
	return canonical, ok
}

// IDs returns the ids of kind in insertion order.
func (s *Store) IDs(kind Kind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order[kind]))
	copy(out, s.order[kind])
	return out
}

// Len returns the number of non-builtin records of kind.
func (s *Store) Len(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order[kind])
}

func (s *Store) checkFreeLocked(id string) error {
	if r, ok := s.records[id]; ok {
		return fmt.Errorf("already declared as a %s: %w", r.Kind, ontoerr.ErrDuplicateIdentifier)
	}
	if canonical, ok := s.aliases[id]; ok {
		return fmt.Errorf("alternate id of %q: %w", canonical, ontoerr.ErrDuplicateIdentifier)
	}
	return nil
}
