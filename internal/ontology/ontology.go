package ontology

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"

	"github.com/specialistvlad/ontograph/internal/curie"
	"github.com/specialistvlad/ontograph/internal/lineage"
	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/record"
)

// Ontology is the graph container. It owns every entity record, one lineage
// store per entity kind, the metadata slot and the import registry.
type Ontology struct {
	id     uuid.UUID
	self   weak.Pointer[Ontology]
	closed atomic.Bool
	path   string

	records  *record.Store
	lineages [2]*lineage.Store

	metaMu  sync.RWMutex
	meta    Metadata
	metaSet bool

	importsMu sync.RWMutex
	imports   map[string]*Ontology
}

// Option configures a new Ontology.
type Option func(*config)

type config struct {
	path     string
	builtins []*record.Record
}

// WithPath records the location the graph was loaded from.
func WithPath(path string) Option {
	return func(c *config) { c.path = path }
}

// WithBuiltins replaces the built-in relation table.
func WithBuiltins(builtins ...*record.Record) Option {
	return func(c *config) { c.builtins = builtins }
}

// New creates an empty graph with the built-in relations installed.
func New(opts ...Option) *Ontology {
	c := config{builtins: Builtins()}
	for _, opt := range opts {
		opt(&c)
	}

	o := &Ontology{
		id:       uuid.New(),
		path:     c.path,
		records:  record.NewStore(),
		lineages: [2]*lineage.Store{lineage.New(), lineage.New()},
		meta:     NewMetadata(),
		imports:  make(map[string]*Ontology),
	}
	o.self = weak.Make(o)

	for _, b := range c.builtins {
		r := b.Clone()
		r.Builtin = true
		if err := o.records.Install(r); err != nil {
			panic(fmt.Sprintf("ontology: invalid builtin table: %v", err))
		}
		o.lineages[r.Kind].Ensure(r.ID)
	}
	return o
}

// InstanceID identifies this graph instance in logs and errors.
func (o *Ontology) InstanceID() uuid.UUID {
	return o.id
}

// Path returns the location the graph was loaded from, if any.
func (o *Ontology) Path() string {
	return o.path
}

// Close discards the graph. Views and sets still holding it fail with
// ErrStaleReference from now on.
func (o *Ontology) Close() {
	o.closed.Store(true)
}

// Closed reports whether Close was called.
func (o *Ontology) Closed() bool {
	return o.closed.Load()
}

func (o *Ontology) ref() graphRef {
	return graphRef{wp: o.self}
}

func (o *Ontology) lineage(kind record.Kind) *lineage.Store {
	return o.lineages[kind]
}

// Lineage exposes the is_a lineage store of kind for bulk export.
func (o *Ontology) Lineage(kind record.Kind) *lineage.Store {
	return o.lineages[kind]
}

// CreateTerm declares a new term.
func (o *Ontology) CreateTerm(id string) (*Term, error) {
	if err := o.create(record.KindTerm, id); err != nil {
		return nil, err
	}
	return newTerm(o.ref(), id), nil
}

// CreateRelationship declares a new relationship.
func (o *Ontology) CreateRelationship(id string) (*Relationship, error) {
	if err := o.create(record.KindRelationship, id); err != nil {
		return nil, err
	}
	return newRelationship(o.ref(), id), nil
}

func (o *Ontology) create(kind record.Kind, id string) error {
	if err := validID("create "+kind.String(), id); err != nil {
		return err
	}
	if _, err := o.records.Create(kind, id); err != nil {
		return err
	}
	o.lineages[kind].Ensure(id)
	return nil
}

// EnsureTerm returns the term id, creating it when absent. Readers call it for
// every frame so that repeated frames enrich one entity.
func (o *Ontology) EnsureTerm(id string) (*Term, bool, error) {
	created, err := o.ensure(record.KindTerm, id)
	if err != nil {
		return nil, false, err
	}
	return newTerm(o.ref(), id), created, nil
}

// EnsureRelationship is EnsureTerm for relationships.
func (o *Ontology) EnsureRelationship(id string) (*Relationship, bool, error) {
	created, err := o.ensure(record.KindRelationship, id)
	if err != nil {
		return nil, false, err
	}
	return newRelationship(o.ref(), id), created, nil
}

func (o *Ontology) ensure(kind record.Kind, id string) (bool, error) {
	if err := validID("create "+kind.String(), id); err != nil {
		return false, err
	}
	_, created, err := o.records.GetOrCreate(kind, id)
	if err != nil {
		return false, err
	}
	if created {
		o.lineages[kind].Ensure(id)
	}
	return created, nil
}

func validID(op, id string) error {
	if _, err := curie.Parse(id); err != nil {
		return ontoerr.Entity(op, id, fmt.Errorf("%v: %w", err, ontoerr.ErrInvalidValue))
	}
	return nil
}

// GetTerm looks up a term by id or alternate id, then through imports.
func (o *Ontology) GetTerm(id string) (*Term, error) {
	r, err := o.resolve(record.KindTerm, id)
	if err != nil {
		return nil, ontoerr.Entity("get term", id, ontoerr.ErrNotFound)
	}
	return newTerm(o.ref(), r.ID), nil
}

// GetRelationship looks up a relationship by id or alternate id, then
// through imports. Built-in relations such as is_a are always found.
func (o *Ontology) GetRelationship(id string) (*Relationship, error) {
	r, err := o.resolve(record.KindRelationship, id)
	if err != nil {
		return nil, ontoerr.Entity("get relationship", id, ontoerr.ErrNotFound)
	}
	return newRelationship(o.ref(), r.ID), nil
}

// Get looks up an entity of any kind.
func (o *Ontology) Get(id string) (Entity, error) {
	if t, err := o.GetTerm(id); err == nil {
		return t, nil
	}
	if r, err := o.GetRelationship(id); err == nil {
		return r, nil
	}
	return nil, ontoerr.Entity("get", id, ontoerr.ErrNotFound)
}

// Contains reports whether id resolves to an entity of any kind.
func (o *Ontology) Contains(id string) bool {
	_, err := o.Get(id)
	return err == nil
}

// resolve finds the record of kind for id: direct hit, alternate id, then
// imports in reference order.
func (o *Ontology) resolve(kind record.Kind, id string) (*record.Record, error) {
	_, r, err := o.owner(kind, id)
	return r, err
}

// owner finds the record of id together with the graph that stores it:
// this graph, or the import that declares the id.
func (o *Ontology) owner(kind record.Kind, id string) (*Ontology, *record.Record, error) {
	if r, err := o.records.Get(id); err == nil {
		if r.Kind != kind {
			return nil, nil, ontoerr.ErrNotFound
		}
		return o, r, nil
	}
	for _, ref := range o.ImportRefs() {
		if owner, r, err := o.importGraph(ref).owner(kind, id); err == nil {
			return owner, r, nil
		}
	}
	return nil, nil, ontoerr.ErrNotFound
}

// knows reports whether id has a record of any kind here or in an import.
func (o *Ontology) knows(id string) bool {
	if _, err := o.records.Get(id); err == nil {
		return true
	}
	for _, ref := range o.ImportRefs() {
		if o.importGraph(ref).knows(id) {
			return true
		}
	}
	return false
}

// Terms returns every term in insertion order: declared terms first, then
// terms of imports not shadowed by a local declaration.
func (o *Ontology) Terms() []*Term {
	return views(o, o.ids(record.KindTerm), newTerm)
}

// DeclaredTerms returns only the terms declared by this graph.
func (o *Ontology) DeclaredTerms() []*Term {
	return views(o, o.records.IDs(record.KindTerm), newTerm)
}

// Relationships returns every non-builtin relationship, imports included.
func (o *Ontology) Relationships() []*Relationship {
	return views(o, o.ids(record.KindRelationship), newRelationship)
}

// DeclaredRelationships returns only the relationships declared by this graph.
func (o *Ontology) DeclaredRelationships() []*Relationship {
	return views(o, o.records.IDs(record.KindRelationship), newRelationship)
}

func views[E Entity](o *Ontology, ids []string, mk func(graphRef, string) E) []E {
	out := make([]E, len(ids))
	for i, id := range ids {
		out[i] = mk(o.ref(), id)
	}
	return out
}

func (o *Ontology) ids(kind record.Kind) []string {
	ids := o.records.IDs(kind)
	seen := record.NewSet(ids...)
	for _, ref := range o.ImportRefs() {
		for _, id := range o.importGraph(ref).ids(kind) {
			if !seen.Has(id) && !o.records.InUse(id) {
				seen.Add(id)
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// count bounds the number of entities of kind reachable from this graph.
func (o *Ontology) count(kind record.Kind) int {
	n := o.lineages[kind].Len()
	for _, ref := range o.ImportRefs() {
		n += o.importGraph(ref).count(kind)
	}
	return n
}

// LinkSuperclass records parent as a direct superclass of child by id, on
// both sides of the lineage store. Neither id needs a record yet; Finalize
// creates stubs for ids left undefined.
func (o *Ontology) LinkSuperclass(kind record.Kind, child, parent string) error {
	if err := validID("link superclass", child); err != nil {
		return err
	}
	if err := validID("link superclass", parent); err != nil {
		return err
	}
	o.lineages[kind].AddEdge(child, parent)
	return nil
}

// AddImport registers sub under reference in the import registry.
func (o *Ontology) AddImport(reference string, sub *Ontology) {
	o.importsMu.Lock()
	defer o.importsMu.Unlock()
	o.imports[reference] = sub
}

// Imports returns a copy of the import registry.
func (o *Ontology) Imports() map[string]*Ontology {
	o.importsMu.RLock()
	defer o.importsMu.RUnlock()
	return maps.Clone(o.imports)
}

// ImportRefs returns the registered import references in ascending order.
func (o *Ontology) ImportRefs() []string {
	o.importsMu.RLock()
	defer o.importsMu.RUnlock()
	return slices.Sorted(maps.Keys(o.imports))
}

func (o *Ontology) importGraph(ref string) *Ontology {
	o.importsMu.RLock()
	defer o.importsMu.RUnlock()
	return o.imports[ref]
}

// String identifies the graph in logs.
func (o *Ontology) String() string {
	if o.path != "" {
		return fmt.Sprintf("Ontology(%s)", o.path)
	}
	return fmt.Sprintf("Ontology(%s)", o.id)
}
