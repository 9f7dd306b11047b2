package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/specialistvlad/ontograph/internal/ctxlog"
	"github.com/specialistvlad/ontograph/internal/metrics"
	"github.com/specialistvlad/ontograph/internal/ontoerr"
)

// maxDocumentSize bounds a single document after decompression.
const maxDocumentSize = 1 << 30

var (
	extensions  = []string{"", ".obo", ".json", ".owl"}
	compression = []string{"", ".gz"}

	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

	errMissing = errors.New("no document at location")
)

// document is a fetched, decompressed document.
type document struct {
	data     []byte
	digest   [32]byte
	location string
	// base anchors the relative imports of the document itself.
	base   string
	source string
}

func newDocument(data []byte, location, base, source string) (document, error) {
	data, err := decompress(data)
	if err != nil {
		return document{}, fmt.Errorf("decompress %s: %w", location, err)
	}
	return document{
		data:     data,
		digest:   blake3.Sum256(data),
		location: location,
		base:     base,
		source:   source,
	}, nil
}

// locate finds and fetches reference, trying each kind of location in turn.
func (r *Resolver) locate(ctx context.Context, reference, basePath string, timeout time.Duration) (document, error) {
	logger := ctxlog.FromContext(ctx)

	if loc, ok := r.cfg.Overrides[reference]; ok {
		logger.Debug("Using import override.", "reference", reference, "location", loc)
		if isURL(loc) {
			return r.fetchURL(ctx, loc, timeout, metrics.SourceOverride)
		}
		return r.readFile(loc, metrics.SourceOverride)
	}

	if isURL(reference) {
		return r.fetchURL(ctx, reference, timeout, metrics.SourceURL)
	}

	if isURL(basePath) {
		base, err := url.Parse(basePath)
		if err != nil {
			return document{}, fmt.Errorf("parse base %q: %w", basePath, err)
		}
		ref, err := url.Parse(reference)
		if err != nil {
			return document{}, fmt.Errorf("parse reference %q: %w", reference, err)
		}
		doc, err := r.fetchURL(ctx, base.ResolveReference(ref).String(), timeout, metrics.SourceURL)
		if !errors.Is(err, errMissing) {
			return doc, err
		}
	} else {
		if p, ok := findFile(reference, basePath); ok {
			return r.readFile(p, metrics.SourceFile)
		}
		p, ok, err := r.search(reference, basePath)
		if err != nil {
			return document{}, err
		}
		if ok {
			return r.readFile(p, metrics.SourceSearch)
		}
	}

	purl := r.cfg.PURLBase + strings.TrimPrefix(reference, "/")
	if path.Ext(reference) == "" {
		purl += ".obo"
	}
	doc, err := r.fetchURL(ctx, purl, timeout, metrics.SourcePURL)
	if errors.Is(err, errMissing) {
		return document{}, fmt.Errorf("import %q: %w", reference, ontoerr.ErrNotFound)
	}
	return doc, err
}

// findFile tries reference relative to basePath with every known extension,
// compressed or not.
func findFile(reference, basePath string) (string, bool) {
	p := reference
	if !filepath.IsAbs(p) && basePath != "" {
		p = filepath.Join(basePath, reference)
	}
	for _, ext := range extensions {
		for _, comp := range compression {
			if candidate := p + ext + comp; isFile(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// search runs the configured patterns and returns the first match, in
// lexical order, whose file name is reference with a known extension.
func (r *Resolver) search(reference, basePath string) (string, bool, error) {
	name := path.Base(filepath.ToSlash(reference))
	var wanted []string
	for _, ext := range extensions {
		for _, comp := range compression {
			wanted = append(wanted, name+ext+comp)
		}
	}

	for _, pattern := range r.cfg.Search {
		if !filepath.IsAbs(pattern) && basePath != "" {
			pattern = filepath.Join(basePath, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return "", false, fmt.Errorf("search pattern %q: %w", pattern, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if slices.Contains(wanted, filepath.Base(m)) {
				return m, true, nil
			}
		}
	}
	return "", false, nil
}

func (r *Resolver) readFile(p, source string) (document, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document{}, fmt.Errorf("read %s: %w", p, ontoerr.ErrNotFound)
		}
		return document{}, fmt.Errorf("read %s: %w", p, err)
	}
	return newDocument(data, p, filepath.Dir(p), source)
}

// fetchURL downloads u. A 404 is reported as errMissing so the caller can
// try the next kind of location.
func (r *Resolver) fetchURL(ctx context.Context, u string, timeout time.Duration, source string) (document, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return document{}, fmt.Errorf("GET %s: %w", u, err)
	}
	req.Header.Set("Accept-Encoding", "gzip, zstd")

	resp, err := r.client.Do(req)
	if err != nil {
		return document{}, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return document{}, fmt.Errorf("GET %s: %w", u, errMissing)
	case resp.StatusCode != http.StatusOK:
		return document{}, fmt.Errorf("GET %s: unexpected status %s", u, resp.Status)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return document{}, fmt.Errorf("GET %s: %w", u, err)
	}
	ctxlog.FromContext(ctx).Debug("Document downloaded.", "url", u, "bytes", len(data), "encoding", resp.Header.Get("Content-Encoding"))
	return newDocument(data, u, baseURL(resp.Request.URL), source)
}

// baseURL is the directory of u, with a trailing slash so that relative
// references resolve inside it.
func baseURL(u *url.URL) string {
	return u.ResolveReference(&url.URL{Path: "./"}).String()
}

// decompress undoes gzip or zstd compression, recognized by magic bytes.
// Uncompressed data is returned as is.
func decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return readLimited(zr)
	case bytes.HasPrefix(data, zstdMagic):
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return readLimited(zr)
	}
	return data, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
