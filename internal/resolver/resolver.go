// Package resolver locates, fetches and parses the documents named by import
// clauses. It implements ontology.Resolver on top of the OBO reader.
//
// A reference is looked up in this order: configured override, absolute URL,
// relative to a remote base, file relative to the base path (with the known
// extensions and their compressed variants), search patterns, and finally
// the OBO PURL service. Parsed graphs are cached by content digest and
// import depth, so the same document imported twice is parsed once.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/ontograph/internal/ctxlog"
	"github.com/specialistvlad/ontograph/internal/diag"
	"github.com/specialistvlad/ontograph/internal/metrics"
	"github.com/specialistvlad/ontograph/internal/obo"
	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/ontology"
)

// DefaultPURLBase is where references that match nothing locally are fetched.
const DefaultPURLBase = "http://purl.obolibrary.org/obo/"

// sniffSize is how much of a document is inspected to pick a reader.
const sniffSize = 4096

// ErrImportCycle is returned when a document transitively imports itself.
var ErrImportCycle = errors.New("import cycle")

// Config holds the resolver settings. The zero value resolves files and URLs
// with http.DefaultClient and falls back to DefaultPURLBase.
type Config struct {
	// Overrides maps a reference to the location to use instead.
	Overrides map[string]string
	// Search holds doublestar patterns, relative to the base path unless
	// absolute, tried when no file matches directly.
	Search []string
	// BasePath anchors the imports of root documents loaded with Load.
	// Empty means the directory of the document itself.
	BasePath string
	// Workers is handed to the reader of every imported document.
	Workers  int
	PURLBase string
	Client   *http.Client

	Diag    *diag.Collector
	Metrics *metrics.Metrics
}

type cacheKey struct {
	digest [32]byte
	depth  int
}

// Resolver is safe for concurrent use.
type Resolver struct {
	cfg    Config
	client *http.Client

	mu    sync.Mutex
	cache map[cacheKey]*ontology.Ontology
}

var _ ontology.Resolver = (*Resolver)(nil)

// New creates a resolver.
func New(cfg Config) *Resolver {
	if cfg.PURLBase == "" {
		cfg.PURLBase = DefaultPURLBase
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		cfg:    cfg,
		client: client,
		cache:  make(map[cacheKey]*ontology.Ontology),
	}
}

// Resolve implements ontology.Resolver.
func (r *Resolver) Resolve(ctx context.Context, reference string, depth int, basePath string, timeout time.Duration) (*ontology.Ontology, error) {
	logger := ctxlog.FromContext(ctx).With("reference", reference)

	doc, err := r.locate(ctx, reference, basePath, timeout)
	if err != nil {
		return nil, err
	}
	key := cacheKey{digest: doc.digest, depth: depth}
	if o := r.cached(key); o != nil {
		r.cfg.Metrics.ImportResolved(metrics.SourceCache)
		logger.Debug("Import served from cache.", "location", doc.location)
		return o, nil
	}

	o, err := r.parse(ctx, doc, depth, timeout)
	if err != nil {
		return nil, err
	}
	o = r.store(key, o)
	r.cfg.Metrics.ImportResolved(doc.source)
	logger.Debug("Import resolved.", "location", doc.location, "source", doc.source)
	return o, nil
}

// Load reads the root document at location, which may be a path or an
// http(s) URL, and resolves its imports up to depth. Root documents are not
// cached.
func (r *Resolver) Load(ctx context.Context, location string, depth int, timeout time.Duration) (*ontology.Ontology, error) {
	var (
		doc document
		err error
	)
	if isURL(location) {
		doc, err = r.fetchURL(ctx, location, timeout, metrics.SourceURL)
	} else {
		doc, err = r.readFile(location, metrics.SourceFile)
	}
	if err != nil {
		return nil, err
	}
	if r.cfg.BasePath != "" {
		doc.base = r.cfg.BasePath
	}
	return r.parse(ctx, doc, depth, timeout)
}

// Len returns the number of cached graphs.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

func (r *Resolver) parse(ctx context.Context, doc document, depth int, timeout time.Duration) (*ontology.Ontology, error) {
	chain := chainFrom(ctx)
	if slices.Contains(chain, doc.digest) {
		return nil, fmt.Errorf("%s: %w", doc.location, ErrImportCycle)
	}
	if !obo.CanRead(doc.data[:min(len(doc.data), sniffSize)]) {
		return nil, fmt.Errorf("%s: %w", doc.location, ontoerr.ErrUnsupportedFormat)
	}

	reader := obo.Reader{
		Workers:     r.cfg.Workers,
		ImportDepth: depth,
		Timeout:     timeout,
		Resolver:    r,
		BasePath:    doc.base,
		Diag:        r.cfg.Diag,
		Metrics:     r.cfg.Metrics,
	}
	return reader.Read(withChain(ctx, chain, doc.digest), bytes.NewReader(doc.data), doc.location)
}

func (r *Resolver) cached(key cacheKey) *ontology.Ontology {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache[key]
}

// store caches o unless a concurrent resolution got there first, in which
// case the earlier graph wins and o is discarded.
func (r *Resolver) store(key cacheKey, o *ontology.Ontology) *ontology.Ontology {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[key]; ok {
		o.Close()
		return existing
	}
	r.cache[key] = o
	return o
}

type chainKey struct{}

// chainFrom returns the digests of the documents being parsed on the
// current import path.
func chainFrom(ctx context.Context) [][32]byte {
	chain, _ := ctx.Value(chainKey{}).([][32]byte)
	return chain
}

func withChain(ctx context.Context, chain [][32]byte, digest [32]byte) context.Context {
	return context.WithValue(ctx, chainKey{}, append(slices.Clip(chain), digest))
}
