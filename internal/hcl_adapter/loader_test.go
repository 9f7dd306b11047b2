package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ontograph/internal/config"
)

func writeHCL(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func fixedEnv(kv ...string) func() []string {
	return func() []string { return kv }
}

func TestLoader_Load_Defaults(t *testing.T) {
	l := NewLoader()
	model, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Equal(t, config.New(), model)
}

func TestLoader_Load_AllSettings(t *testing.T) {
	dir := t.TempDir()
	p := writeHCL(t, dir, "ontograph.hcl", `
workers      = 8
import_depth = 2
timeout      = "1m30s"
base_path    = env.ONTO_HOME
search       = ["vendor/**/*.obo", "/abs/*.obo"]

log {
  level  = "DEBUG"
  format = "json"
}

metrics {
  listen = ":9090"
}

import "go" {
  location = "mirror/go.obo"
}

import "ro" {
  location = "https://example.org/ro.obo"
}
`)

	l := &Loader{Environ: fixedEnv("ONTO_HOME=/srv/onto", "BROKEN")}
	model, err := l.Load(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 8, model.Workers)
	assert.Equal(t, 2, model.ImportDepth)
	assert.Equal(t, 90*time.Second, model.Timeout)
	assert.Equal(t, "/srv/onto", model.BasePath)
	assert.Equal(t, []string{filepath.Join(dir, "vendor/**/*.obo"), "/abs/*.obo"}, model.Search)
	assert.Equal(t, config.Log{Level: "debug", Format: "json"}, model.Log)
	assert.Equal(t, ":9090", model.Metrics.Listen)
	assert.Equal(t, map[string]string{
		"go": filepath.Join(dir, "mirror/go.obo"),
		"ro": "https://example.org/ro.obo",
	}, model.Imports)
}

func TestLoader_Load_DirectoryMerge(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "a.hcl", `
workers = 2
search  = ["one/*.obo"]
log {
  level = "warn"
}
`)
	writeHCL(t, dir, "b.hcl", `
workers = 4
search  = ["two/*.obo"]
log {
  format = "json"
}
`)
	writeHCL(t, dir, "notes.txt", `workers = "ignored"`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 4, model.Workers)
	assert.Equal(t, []string{filepath.Join(dir, "one/*.obo"), filepath.Join(dir, "two/*.obo")}, model.Search)
	assert.Equal(t, config.Log{Level: "warn", Format: "json"}, model.Log)
	assert.Equal(t, config.DefaultImportDepth, model.ImportDepth)
}

func TestLoader_Load_FileListedTwice(t *testing.T) {
	dir := t.TempDir()
	p := writeHCL(t, dir, "a.hcl", `search = ["x/*.obo"]`)

	model, err := NewLoader().Load(context.Background(), p, dir)
	require.NoError(t, err)
	assert.Len(t, model.Search, 1)
}

func TestLoader_Load_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "syntax error", content: `workers = `, wantErr: "failed to parse HCL file"},
		{name: "unknown attribute", content: `threads = 4`, wantErr: "failed to decode HCL file"},
		{name: "wrong type", content: `workers = "many"`, wantErr: "failed to decode HCL file"},
		{name: "unknown env variable", content: `base_path = env.NOPE`, wantErr: "failed to decode HCL file"},
		{name: "import without location", content: `import "go" {}`, wantErr: "failed to decode HCL file"},
		{name: "bad timeout", content: `timeout = "soon"`, wantErr: "timeout"},
		{name: "negative workers", content: `workers = -1`, wantErr: "workers must not be negative"},
		{name: "bad log level", content: "log {\n  level = \"loud\"\n}", wantErr: "invalid log level"},
		{name: "bad log format", content: "log {\n  format = \"xml\"\n}", wantErr: "invalid log format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeHCL(t, t.TempDir(), "c.hcl", tc.content)
			l := &Loader{Environ: fixedEnv()}

			_, err := l.Load(context.Background(), p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoader_Load_ProcessEnvironment(t *testing.T) {
	t.Setenv("ONTOGRAPH_TEST_BASE", "/from/env")
	p := writeHCL(t, t.TempDir(), "c.hcl", `base_path = env.ONTOGRAPH_TEST_BASE`)

	model, err := NewLoader().Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", model.BasePath)
}
