package ontology

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/ontograph/internal/ctxlog"
	"github.com/specialistvlad/ontograph/internal/record"
)

// maxConcurrentImports bounds how many references resolve at once.
const maxConcurrentImports = 8

// Resolver turns an import reference into a fully parsed graph. depth is the
// import budget left for the imported document itself; a negative depth is
// unbounded.
type Resolver interface {
	Resolve(ctx context.Context, reference string, depth int, basePath string, timeout time.Duration) (*Ontology, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, reference string, depth int, basePath string, timeout time.Duration) (*Ontology, error)

func (f ResolverFunc) Resolve(ctx context.Context, reference string, depth int, basePath string, timeout time.Duration) (*Ontology, error) {
	return f(ctx, reference, depth, basePath, timeout)
}

// ResolveImports resolves every reference and stores the results in the
// import registry. A depth of 0 does nothing; each reference is resolved
// with one level less, and a negative depth stays unbounded.
func (o *Ontology) ResolveImports(ctx context.Context, resolver Resolver, refs []string, depth int, basePath string, timeout time.Duration) error {
	if depth == 0 || len(refs) == 0 {
		return nil
	}
	if resolver == nil {
		return fmt.Errorf("resolve imports of %s: no resolver configured", o)
	}
	next := depth - 1
	if depth < 0 {
		next = -1
	}

	logger := ctxlog.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentImports)
	for _, ref := range refs {
		g.Go(func() error {
			sub, err := resolver.Resolve(gctx, ref, next, basePath, timeout)
			if err != nil {
				return fmt.Errorf("resolve import %q: %w", ref, err)
			}
			o.AddImport(ref, sub)
			logger.Debug("Import resolved.", "reference", ref, "importer", o.id, "imported", sub.id)
			return nil
		})
	}
	return g.Wait()
}

// MergeImports folds the lineage stores of every import into this graph by
// union. Imports are fully parsed graphs, so their own imports are already
// folded into them.
func (o *Ontology) MergeImports() {
	for _, ref := range o.ImportRefs() {
		sub := o.importGraph(ref)
		for kind := range o.lineages {
			o.lineages[kind].Merge(sub.lineages[kind])
		}
	}
}

// Symmetrize repairs one-sided lineage edges and folds lineage nodes named
// by an alternate id into their canonical node. It then creates a bare record
// for every id taking part in the lineage, or used as a relation, without a
// record here or in any import. It returns the ids of the created stubs.
func (o *Ontology) Symmetrize() ([]string, error) {
	var stubs []string
	for k, store := range o.lineages {
		kind := record.Kind(k)
		store.Symmetrize()
		for _, id := range store.IDs() {
			if canonical, ok := o.canonicalOf(id); ok {
				store.Rename(id, canonical)
			}
		}
		for _, id := range store.IDs() {
			if o.knows(id) {
				continue
			}
			if _, _, err := o.records.GetOrCreate(kind, id); err != nil {
				return stubs, err
			}
			stubs = append(stubs, id)
		}
	}

	for _, relID := range o.usedRelations() {
		if o.knows(relID) {
			continue
		}
		if _, _, err := o.records.GetOrCreate(record.KindRelationship, relID); err != nil {
			return stubs, err
		}
		o.lineages[record.KindRelationship].Ensure(relID)
		stubs = append(stubs, relID)
	}
	return stubs, nil
}

// canonicalOf returns the canonical id of an alternate id declared here or
// in an import. It reports false for canonical and unknown ids.
func (o *Ontology) canonicalOf(id string) (string, bool) {
	if _, ok := o.records.Lookup(id); ok {
		return "", false
	}
	if canonical, ok := o.records.Canonical(id); ok {
		return canonical, true
	}
	for _, ref := range o.ImportRefs() {
		if canonical, ok := o.importGraph(ref).canonicalOf(id); ok {
			return canonical, true
		}
	}
	return "", false
}

func (o *Ontology) usedRelations() []string {
	used := record.Set{}
	for kind := range o.lineages {
		for _, id := range o.records.IDs(record.Kind(kind)) {
			r, ok := o.records.Lookup(id)
			if !ok {
				continue
			}
			for rel := range r.Relationships {
				used.Add(rel)
			}
		}
	}
	return used.Sorted()
}

// Finalize runs after every frame of a document has been ingested: it merges
// the lineage of the imports, repairs one-sided edges and creates stubs for
// undefined ids. It returns the stub ids.
func (o *Ontology) Finalize(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	o.MergeImports()
	stubs, err := o.Symmetrize()
	if err != nil {
		return nil, fmt.Errorf("finalize %s: %w", o, err)
	}

	logger.Debug("Graph finalized.",
		"graph", o.id,
		"terms", o.records.Len(record.KindTerm),
		"relationships", o.records.Len(record.KindRelationship),
		"imports", len(o.ImportRefs()),
		"stubs", len(stubs),
	)
	return stubs, nil
}
