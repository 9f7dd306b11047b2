package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/ontograph/internal/app"
	"github.com/specialistvlad/ontograph/internal/hcl_adapter"
)

const sampleDocument = `format-version: 1.4
ontology: test
subsetdef: slim "Slim"

[Term]
id: T:1
name: root

[Term]
id: T:2
name: middle
is_a: T:1
subset: slim

[Term]
id: T:3
name: leaf
def: "A leaf." [REF:1]
synonym: "bottom" EXACT []
is_a: T:2
relationship: part_of T:1

[Typedef]
id: part_of
name: part of
is_transitive: true
`

const cyclicDocument = `[Term]
id: C:1
is_a: C:2

[Term]
id: C:2
is_a: C:1
`

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// execute runs the command tree with args and an empty configuration.
func execute(t *testing.T, args ...string) (string, *app.SafeBuffer, error) {
	t.Helper()
	var out bytes.Buffer
	logs := &app.SafeBuffer{}

	root := NewRootCmd(&out, logs, hcl_adapter.NewLoader())
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.hcl")}, args...))
	err := root.Execute()
	return out.String(), logs, err
}

func TestStats(t *testing.T) {
	doc := writeDoc(t, "sample.obo", sampleDocument)

	out, _, err := execute(t, "stats", doc)
	require.NoError(t, err)

	var got statsView
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, doc, got.Location)
	assert.Equal(t, "1.4", got.FormatVersion)
	assert.Equal(t, "test", got.Ontology)
	assert.Equal(t, countView{Declared: 3, Total: 3}, got.Terms)
	assert.Equal(t, countView{Declared: 1, Total: 1}, got.Relationships)
	assert.Equal(t, []string{"slim"}, got.Subsets)
	assert.Zero(t, got.Warnings)
	assert.NotEmpty(t, got.Instance)
}

func TestShow(t *testing.T) {
	doc := writeDoc(t, "sample.obo", sampleDocument)

	t.Run("term", func(t *testing.T) {
		out, _, err := execute(t, "show", doc, "T:3")
		require.NoError(t, err)

		var got entityView
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, "T:3", got.ID)
		assert.Equal(t, "term", got.Kind)
		assert.Equal(t, "leaf", got.Name)
		assert.Equal(t, []string{"T:2"}, got.IsA)
		assert.Equal(t, map[string][]string{"part_of": {"T:1"}}, got.Relationships)
		require.NotNil(t, got.Definition)
		assert.Equal(t, "A leaf.", got.Definition.Text)
		assert.Equal(t, []string{"REF:1"}, got.Definition.Xrefs)
		require.Len(t, got.Synonyms, 1)
		assert.Equal(t, synonymView{Text: "bottom", Scope: "EXACT"}, got.Synonyms[0])
	})

	t.Run("relationship", func(t *testing.T) {
		out, _, err := execute(t, "show", doc, "part_of")
		require.NoError(t, err)

		var got entityView
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, "relationship", got.Kind)
		assert.Equal(t, "part of", got.Name)
		assert.Equal(t, []string{"is_transitive"}, got.Properties)
	})

	t.Run("missing", func(t *testing.T) {
		_, _, err := execute(t, "show", doc, "T:404")
		require.Error(t, err)
		assert.Equal(t, 1, ExitCode(err))
	})
}

func TestLineageCommands(t *testing.T) {
	doc := writeDoc(t, "sample.obo", sampleDocument)

	testCases := []struct {
		name string
		args []string
		want string
	}{
		{name: "ancestors", args: []string{"ancestors", doc, "T:3"}, want: "T:3\nT:2\nT:1\n"},
		{name: "ancestors without self", args: []string{"ancestors", "--with-self=false", doc, "T:3"}, want: "T:2\nT:1\n"},
		{name: "ancestors at distance one", args: []string{"ancestors", "-d", "1", doc, "T:3"}, want: "T:3\nT:2\n"},
		{name: "descendants", args: []string{"descendants", doc, "T:1"}, want: "T:1\nT:2\nT:3\n"},
		{name: "descendants of a leaf", args: []string{"descendants", "--with-self=false", doc, "T:3"}, want: ""},
		{name: "relationship", args: []string{"ancestors", doc, "part_of"}, want: "part_of\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := execute(t, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestConvert(t *testing.T) {
	doc := writeDoc(t, "sample.obo", sampleDocument)

	t.Run("stdout", func(t *testing.T) {
		out, _, err := execute(t, "convert", doc)
		require.NoError(t, err)
		assert.Contains(t, out, "format-version: 1.4\n")
		assert.Contains(t, out, "[Term]\nid: T:3\n")
		assert.Contains(t, out, "[Typedef]\nid: part_of\n")
	})

	t.Run("file round trip", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out.obo")
		out, _, err := execute(t, "convert", "-o", target, doc)
		require.NoError(t, err)
		assert.Empty(t, out)

		first, err := os.ReadFile(target)
		require.NoError(t, err)

		again := filepath.Join(t.TempDir(), "again.obo")
		_, _, err = execute(t, "--workers", "1", "convert", "-o", again, target)
		require.NoError(t, err)
		second, err := os.ReadFile(again)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	})
}

func TestCheck(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		out, _, err := execute(t, "check", writeDoc(t, "sample.obo", sampleDocument))
		require.NoError(t, err)

		var got checkView
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.True(t, got.OK)
		assert.Empty(t, got.Problems)
	})

	t.Run("cycle", func(t *testing.T) {
		out, _, err := execute(t, "check", writeDoc(t, "cyclic.obo", cyclicDocument))
		require.Error(t, err)
		assert.Equal(t, 1, ExitCode(err))

		var got checkView
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.False(t, got.OK)
		require.Len(t, got.Problems, 1)
		assert.Contains(t, got.Problems[0], "is_a cycle")
	})
}

func TestUsageErrors(t *testing.T) {
	doc := writeDoc(t, "sample.obo", sampleDocument)

	testCases := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{name: "unknown flag", args: []string{"stats", "--nope", doc}, wantCode: 2},
		{name: "missing argument", args: []string{"show", doc}, wantCode: 2},
		{name: "negative workers", args: []string{"--workers", "-1", "stats", doc}, wantCode: 2},
		{name: "bad log level", args: []string{"--log-level", "loud", "stats", doc}, wantCode: 2},
		{name: "serve without address", args: []string{"serve"}, wantCode: 2},
		{name: "missing document", args: []string{"stats", doc + ".missing"}, wantCode: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, ExitCode(err))
		})
	}
}

func TestLogFlags(t *testing.T) {
	doc := writeDoc(t, "sample.obo", sampleDocument)
	_, logs, err := execute(t, "--log-level", "debug", "--log-format", "json", "stats", doc)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"msg":"Document loaded."`)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ontograph dev\n", out)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.Equal(t, 3, ExitCode(&ExitError{Code: 3, Message: "custom"}))
}
