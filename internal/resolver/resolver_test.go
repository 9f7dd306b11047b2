package resolver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ontograph/internal/metrics"
	"github.com/specialistvlad/ontograph/internal/ontoerr"
	"github.com/specialistvlad/ontograph/internal/ontology"
)

const (
	defaultTimeout = 2 * time.Second

	docB = "[Term]\nid: B:1\nname: from b\n"
)

// writeFile creates name under dir, making parent directories as needed.
func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func requireName(t *testing.T, o *ontology.Ontology, id, want string) {
	t.Helper()
	term, err := o.GetTerm(id)
	require.NoError(t, err)
	name, err := term.Name()
	require.NoError(t, err)
	assert.Equal(t, want, name)
}

// importCount reads ontograph_imports_resolved_total for source.
func importCount(t *testing.T, m *metrics.Metrics, source string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "ontograph_imports_resolved_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "source" && lp.GetValue() == source {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestResolve_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.obo", []byte(docB))
	writeFile(t, dir, "c.obo.gz", gzipped(t, "[Term]\nid: C:1\nname: compressed\n"))
	writeFile(t, dir, "deep/nested/d.obo", []byte("[Term]\nid: D:1\nname: found by search\n"))
	override := writeFile(t, dir, "elsewhere/custom.obo", []byte("[Term]\nid: E:1\nname: overridden\n"))

	testCases := []struct {
		name   string
		ref    string
		id     string
		want   string
		source string
	}{
		{"exact file name", "b.obo", "B:1", "from b", metrics.SourceFile},
		{"extension added", "b", "B:1", "from b", metrics.SourceFile},
		{"gzip variant", "c.obo", "C:1", "compressed", metrics.SourceFile},
		{"search pattern", "d", "D:1", "found by search", metrics.SourceSearch},
		{"override", "pinned", "E:1", "overridden", metrics.SourceOverride},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New()
			r := New(Config{
				Overrides: map[string]string{"pinned": override},
				Search:    []string{"**/*.obo"},
				Metrics:   m,
			})
			o, err := r.Resolve(context.Background(), tc.ref, 0, dir, defaultTimeout)
			require.NoError(t, err)
			requireName(t, o, tc.id, tc.want)
			assert.Equal(t, 1.0, importCount(t, m, tc.source))
		})
	}
}

func TestResolve_HTTP(t *testing.T) {
	gzipBody := gzipped(t, "[Term]\nid: G:1\nname: gzip encoded\n")
	zstdBody := zstded(t, "[Term]\nid: Z:1\nname: zstd encoded\n")

	mux := http.NewServeMux()
	mux.HandleFunc("/plain.obo", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(docB))
	})
	mux.HandleFunc("/encoded.obo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(gzipBody)
	})
	mux.HandleFunc("/packed.obo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "zstd")
		_, _ = w.Write(zstdBody)
	})
	mux.HandleFunc("/obo/pato.obo", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[Term]\nid: PATO:1\nname: quality\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	testCases := []struct {
		name   string
		ref    string
		id     string
		want   string
		source string
	}{
		{"plain", srv.URL + "/plain.obo", "B:1", "from b", metrics.SourceURL},
		{"gzip", srv.URL + "/encoded.obo", "G:1", "gzip encoded", metrics.SourceURL},
		{"zstd", srv.URL + "/packed.obo", "Z:1", "zstd encoded", metrics.SourceURL},
		{"purl fallback", "pato", "PATO:1", "quality", metrics.SourcePURL},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New()
			r := New(Config{PURLBase: srv.URL + "/obo/", Client: srv.Client(), Metrics: m})
			o, err := r.Resolve(context.Background(), tc.ref, 0, t.TempDir(), defaultTimeout)
			require.NoError(t, err)
			requireName(t, o, tc.id, tc.want)
			assert.Equal(t, 1.0, importCount(t, m, tc.source))
		})
	}
}

func TestResolve_RelativeToRemoteBase(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/onto/root.obo", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("import: child.obo\n\n[Term]\nid: R:1\nis_a: C:1\n"))
	})
	mux.HandleFunc("/onto/child.obo", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[Term]\nid: C:1\nname: child\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	r := New(Config{Client: srv.Client(), PURLBase: srv.URL + "/missing/"})
	o, err := r.Load(context.Background(), srv.URL+"/onto/root.obo", -1, defaultTimeout)
	require.NoError(t, err)
	requireName(t, o, "C:1", "child")
	assert.Equal(t, []string{"child.obo"}, o.ImportRefs())
}

func TestResolve_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	r := New(Config{PURLBase: srv.URL + "/obo/", Client: srv.Client()})
	_, err := r.Resolve(context.Background(), "nothing", 0, t.TempDir(), defaultTimeout)
	require.ErrorIs(t, err, ontoerr.ErrNotFound)
}

func TestResolve_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	r := New(Config{Client: srv.Client()})
	_, err := r.Resolve(context.Background(), srv.URL+"/x.obo", 0, "", defaultTimeout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.NotErrorIs(t, err, ontoerr.ErrNotFound)
}

func TestResolve_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(defaultTimeout):
		}
	}))
	t.Cleanup(srv.Close)

	r := New(Config{Client: srv.Client()})
	_, err := r.Resolve(context.Background(), srv.URL+"/slow.obo", 0, "", 20*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolve_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.owl", []byte(`<?xml version="1.0"?><rdf:RDF/>`))

	r := New(Config{})
	_, err := r.Resolve(context.Background(), "x", 0, dir, defaultTimeout)
	require.ErrorIs(t, err, ontoerr.ErrUnsupportedFormat)
}

func TestResolve_Cache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.obo", []byte(docB))
	writeFile(t, dir, "copy/b.obo", []byte(docB))

	m := metrics.New()
	r := New(Config{Metrics: m})
	ctx := context.Background()

	first, err := r.Resolve(ctx, "b", 0, dir, defaultTimeout)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "copy/b.obo", 0, dir, defaultTimeout)
	require.NoError(t, err)
	assert.Same(t, first, second, "identical content is parsed once")
	assert.Equal(t, 1.0, importCount(t, m, metrics.SourceCache))

	deeper, err := r.Resolve(ctx, "b", -1, dir, defaultTimeout)
	require.NoError(t, err)
	assert.NotSame(t, first, deeper, "the import depth is part of the cache key")
	assert.Equal(t, 2, r.Len())
}

func TestResolve_ConcurrentCallersShareOneGraph(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.obo", []byte(docB))
	r := New(Config{})

	const callers = 100
	results := make([]*ontology.Ontology, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := r.Resolve(context.Background(), "b.obo", 0, dir, defaultTimeout)
			if assert.NoError(t, err) {
				results[i] = o
			}
		}()
	}
	wg.Wait()

	for _, o := range results {
		assert.Same(t, results[0], o)
	}
	assert.Equal(t, 1, r.Len())
}

func TestResolve_Cycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.obo", []byte("import: b.obo\n\n[Term]\nid: A:1\n"))
	writeFile(t, dir, "b.obo", []byte("import: a.obo\n\n[Term]\nid: B:1\n"))

	r := New(Config{})
	_, err := r.Resolve(context.Background(), "a.obo", -1, dir, defaultTimeout)
	require.ErrorIs(t, err, ErrImportCycle)
}

func TestResolve_NestedImportsAtDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "root.obo", []byte("import: mid.obo\n\n[Term]\nid: R:1\nis_a: M:1\n"))
	writeFile(t, dir, "mid.obo", []byte("import: leaf.obo\n\n[Term]\nid: M:1\nis_a: L:1\n"))
	writeFile(t, dir, "leaf.obo", []byte("[Term]\nid: L:1\nname: leaf\n"))

	r := New(Config{})
	ctx := context.Background()

	full, err := r.Load(ctx, filepath.Join(dir, "root.obo"), -1, defaultTimeout)
	require.NoError(t, err)
	requireName(t, full, "L:1", "leaf")

	shallow, err := r.Load(ctx, filepath.Join(dir, "root.obo"), 1, defaultTimeout)
	require.NoError(t, err)
	_, err = shallow.GetTerm("M:1")
	require.NoError(t, err)
	leaf, err := shallow.GetTerm("L:1")
	require.NoError(t, err, "the lineage target exists as a stub")
	name, err := leaf.Name()
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestLoad_MissingFile(t *testing.T) {
	r := New(Config{})
	_, err := r.Load(context.Background(), filepath.Join(t.TempDir(), "absent.obo"), 0, defaultTimeout)
	require.ErrorIs(t, err, ontoerr.ErrNotFound)
}

func TestLoad_BasePathAnchorsRootImports(t *testing.T) {
	docs := t.TempDir()
	vendor := t.TempDir()
	root := writeFile(t, docs, "root.obo", []byte("import: b\n\n[Term]\nid: R:1\n"))
	writeFile(t, vendor, "b.obo", []byte(docB))

	r := New(Config{BasePath: vendor})
	o, err := r.Load(context.Background(), root, -1, defaultTimeout)
	require.NoError(t, err)
	requireName(t, o, "B:1", "from b")
}
