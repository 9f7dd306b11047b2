// Package obo reads and writes documents in the OBO 1.4 flat-file format.
package obo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/specialistvlad/ontograph/internal/ctxlog"
	"github.com/specialistvlad/ontograph/internal/diag"
	"github.com/specialistvlad/ontograph/internal/ingest"
	"github.com/specialistvlad/ontograph/internal/metrics"
	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/ontology"
	"github.com/specialistvlad/ontograph/internal/record"
)

// Reader parses OBO documents into graphs. The zero value parses with one
// worker per CPU and resolves no imports.
type Reader struct {
	// Workers bounds frame ingestion; not positive means one per CPU.
	Workers int
	// ImportDepth is passed to Resolver; negative is unbounded.
	ImportDepth int
	// Timeout bounds each remote fetch made by Resolver.
	Timeout time.Duration
	// Resolver turns import references into graphs. Nil skips imports.
	Resolver ontology.Resolver
	// BasePath anchors relative imports; empty means the directory of path.
	BasePath string

	Diag    *diag.Collector
	Metrics *metrics.Metrics
}

// Read parses src. path is used for error locations and as the base of
// relative imports. On failure no graph is returned.
func (r *Reader) Read(ctx context.Context, src io.Reader, path string) (*ontology.Ontology, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Reading OBO document.")

	sc := newScanner(src, path)
	header, ok := sc.next()
	if !ok {
		return nil, scanError(sc, path)
	}
	meta, err := r.decodeHeader(ctx, path, header)
	if err != nil {
		return nil, err
	}

	o := ontology.New(ontology.WithPath(path))
	if err := r.build(ctx, o, sc, meta, path); err != nil {
		o.Close()
		return nil, err
	}
	return o, nil
}

func (r *Reader) build(ctx context.Context, o *ontology.Ontology, sc *scanner, meta ontology.Metadata, path string) error {
	logger := ctxlog.FromContext(ctx)
	if err := o.SetMetadata(meta); err != nil {
		return err
	}

	if r.Resolver != nil && r.ImportDepth != 0 {
		base := r.BasePath
		if base == "" && path != "" {
			base = filepath.Dir(path)
		}
		if err := o.ResolveImports(ctx, r.Resolver, meta.Imports, r.ImportDepth, base, r.Timeout); err != nil {
			return err
		}
	}

	pool := ingest.New[keyedFrame](ctx, r.Workers, func(ctx context.Context, _ int, f keyedFrame) error {
		return r.applyFrame(ctx, o, path, f)
	})
	submitted := 0
	for {
		f, ok := sc.next()
		if !ok {
			break
		}
		if f.kind == frameInstance {
			r.Metrics.FrameIngested(f.kind.String())
			r.warn(ctx, diag.Warning{Path: path, Line: f.line, Message: "instance frames are not supported, skipping"})
			continue
		}
		id, err := frameID(path, f)
		if err != nil {
			if poolErr := pool.Wait(); poolErr != nil {
				return poolErr
			}
			return err
		}
		if err := pool.Submit(id, keyedFrame{frame: f, id: id}); err != nil {
			break
		}
		submitted++
	}
	poolErr := pool.Wait()
	if poolErr != nil {
		return poolErr
	}
	if sc.err != nil {
		return scanError(sc, path)
	}

	stubs, err := o.Finalize(ctx)
	if err != nil {
		return err
	}
	logger.Debug("OBO document read.", "frames", submitted, "stubs", len(stubs), "workers", pool.Size())
	return nil
}

func scanError(sc *scanner, path string) error {
	if sc.err == nil {
		return nil
	}
	var malformed *ontoerr.MalformedDocumentError
	if errors.As(sc.err, &malformed) {
		return sc.err
	}
	return fmt.Errorf("read %s: %w", path, sc.err)
}

type keyedFrame struct {
	frame
	id string
}

// frameID extracts the single id clause of a frame.
func frameID(path string, f frame) (string, error) {
	id := ""
	for _, c := range f.clauses {
		if c.tag != "id" {
			continue
		}
		if id != "" {
			return "", ontoerr.Malformed(path, c.line, 1, c.text, "duplicate id clause")
		}
		var err *clauseError
		if id, err = identifier(c.value); err != nil {
			return "", ontoerr.Malformed(path, c.line, 5, c.text, err.reason)
		}
	}
	if id == "" {
		return "", ontoerr.Malformed(path, f.line, 1, f.kind.String(), "frame without id")
	}
	return id, nil
}

// entity is the part of the view API shared by terms and relationships that
// frame clauses write through.
type entity interface {
	ID() string
	SetName(string) error
	SetNamespace(string) error
	SetComment(string) error
	SetDefinition(*record.Definition) error
	SetCreatedBy(string) error
	SetCreationDate(time.Time) error
	SetObsolete(bool) error
	SetAnonymous(bool) error
	SetBuiltin(bool) error
	AddAlternateID(string) error
	AddSubset(string) error
	AddSynonym(record.Synonym) error
	AddXref(record.Xref) error
	AddAnnotation(record.PropertyValue) error
	AddRelationshipID(rel, target string) error
	AddAxiomID(ontology.Axiom, string) error
	AddIntersectionPart(record.IntersectionPart) error
	CheckCardinality() error
}

// applyFrame runs on the worker owning f.id.
func (r *Reader) applyFrame(ctx context.Context, o *ontology.Ontology, path string, f keyedFrame) error {
	var (
		e    entity
		rel  *ontology.Relationship
		kind record.Kind
		err  error
	)
	switch f.kind {
	case frameTerm:
		kind = record.KindTerm
		e, _, err = o.EnsureTerm(f.id)
	case frameTypedef:
		kind = record.KindRelationship
		rel, _, err = o.EnsureRelationship(f.id)
		e = rel
	}
	if err != nil {
		return fmt.Errorf("%s:%d: %w", displayPath(path), f.line, err)
	}

	for _, raw := range f.clauses {
		c, cerr := decodeClause(raw)
		if cerr != nil {
			if cerr.fatal {
				return ontoerr.Malformed(path, raw.line, len(raw.tag)+2, raw.text, cerr.reason)
			}
			r.warn(ctx, diag.Warning{Path: path, Line: raw.line, Message: cerr.reason})
			continue
		}
		if err := r.applyClause(o, e, rel, kind, c); err != nil {
			return fmt.Errorf("%s:%d: %w", displayPath(path), raw.line, err)
		}
	}
	if err := e.CheckCardinality(); err != nil {
		return fmt.Errorf("%s:%d: %w", displayPath(path), f.line, err)
	}
	r.Metrics.FrameIngested(f.kind.String())
	return nil
}

// applyClause dispatches one clause. rel is nil for terms.
func (r *Reader) applyClause(o *ontology.Ontology, e entity, rel *ontology.Relationship, kind record.Kind, c Clause) error {
	switch c.Tag {
	case TagID:
		return nil
	case TagName:
		return e.SetName(c.Text)
	case TagNamespace:
		return e.SetNamespace(c.Text)
	case TagComment:
		return e.SetComment(c.Text)
	case TagDef:
		return e.SetDefinition(c.Definition)
	case TagCreatedBy:
		return e.SetCreatedBy(c.Text)
	case TagCreationDate:
		return e.SetCreationDate(c.Date)
	case TagIsObsolete:
		return e.SetObsolete(c.Bool)
	case TagIsAnonymous:
		return e.SetAnonymous(c.Bool)
	case TagBuiltin:
		return e.SetBuiltin(c.Bool)
	case TagAltID:
		return e.AddAlternateID(c.ID)
	case TagSubset:
		return e.AddSubset(c.Text)
	case TagSynonym:
		return e.AddSynonym(c.Synonym)
	case TagXref:
		return e.AddXref(c.Xref)
	case TagPropertyValue:
		return e.AddAnnotation(c.Value)
	case TagIsA:
		return o.LinkSuperclass(kind, e.ID(), c.ID)
	case TagRelationship:
		return e.AddRelationshipID(c.Relation, c.Target)
	case TagIntersectionOf:
		return e.AddIntersectionPart(record.IntersectionPart{Relation: c.Relation, Target: c.Target})
	case TagUnionOf:
		return e.AddAxiomID(ontology.UnionOf, c.ID)
	case TagEquivalentTo:
		return e.AddAxiomID(ontology.EquivalentTo, c.ID)
	case TagDisjointFrom:
		return e.AddAxiomID(ontology.DisjointFrom, c.ID)
	case TagReplacedBy:
		return e.AddAxiomID(ontology.ReplacedBy, c.ID)
	case TagConsider:
		return e.AddAxiomID(ontology.Consider, c.ID)
	}

	if rel == nil {
		return fmt.Errorf("%s is only valid in a typedef frame: %w", c.Name, ontoerr.ErrInvalidValue)
	}
	switch c.Tag {
	case TagDomain:
		return rel.SetDomainID(c.ID)
	case TagRange:
		return rel.SetRangeID(c.ID)
	case TagInverseOf:
		return rel.SetInverseOfID(c.ID)
	case TagTransitiveOver:
		return rel.AddTransitiveOverID(c.ID)
	case TagDisjointOver:
		return rel.AddDisjointOverID(c.ID)
	case TagHoldsOverChain:
		return rel.AddChainID(ontology.HoldsOverChain, c.Chain.First, c.Chain.Second)
	case TagEquivalentToChain:
		return rel.AddChainID(ontology.EquivalentToChain, c.Chain.First, c.Chain.Second)
	case TagProperty:
		return rel.SetProperty(c.Property, c.Bool)
	}
	return fmt.Errorf("unhandled clause %s: %w", c.Name, ontoerr.ErrInvalidValue)
}

func (r *Reader) warn(ctx context.Context, w diag.Warning) {
	r.Diag.Warn(ctx, w)
	r.Metrics.Warning()
}

func displayPath(path string) string {
	if path == "" {
		return "<input>"
	}
	return path
}
