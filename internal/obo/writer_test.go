package obo

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ontograph/internal/ontology"
	"github.com/specialistvlad/ontograph/internal/record"
)

func write(t *testing.T, o *ontology.Ontology) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, o))
	return buf.String()
}

// requireSameGraph compares metadata, lineage and every declared record.
func requireSameGraph(t *testing.T, want, got *ontology.Ontology) {
	t.Helper()
	assert.Equal(t, want.Metadata(), got.Metadata())
	for _, kind := range []record.Kind{record.KindTerm, record.KindRelationship} {
		assert.Equal(t, want.Lineage(kind).Snapshot(), got.Lineage(kind).Snapshot(), kind.String())
	}

	require.Len(t, got.DeclaredTerms(), len(want.DeclaredTerms()))
	for _, term := range want.DeclaredTerms() {
		other, err := got.GetTerm(term.ID())
		require.NoError(t, err)
		snapshotsEqual(t, term, other)
	}
	require.Len(t, got.DeclaredRelationships(), len(want.DeclaredRelationships()))
	for _, rel := range want.DeclaredRelationships() {
		other, err := got.GetRelationship(rel.ID())
		require.NoError(t, err)
		snapshotsEqual(t, rel, other)
	}
}

func snapshotsEqual(t *testing.T, want, got interface {
	Snapshot() (record.Record, error)
}) {
	t.Helper()
	w, err := want.Snapshot()
	require.NoError(t, err)
	g, err := got.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, w, g)
}

func TestWrite_RoundTrip(t *testing.T) {
	first, _ := mustRead(t, Reader{Workers: 1}, sampleDocument)
	text := write(t, first)

	second, _ := mustRead(t, Reader{Workers: 1}, text)
	requireSameGraph(t, first, second)
	assert.Equal(t, text, write(t, second), "writing is stable across round trips")
}

func TestWrite_Layout(t *testing.T) {
	o, _ := mustRead(t, Reader{Workers: 1}, sampleDocument)
	text := write(t, o)

	assert.True(t, strings.HasPrefix(text, "format-version: 1.4\n"))
	assert.Contains(t, text, "date: 01:02:2024 10:30\n")
	assert.Contains(t, text, "\n[Term]\nid: TST:0000002\nname: child\nalt_id: TST:0000099\n")
	assert.Contains(t, text, "is_a: TST:0000001\n")
	assert.Contains(t, text, "relationship: part_of TST:0000003\n")
	assert.Contains(t, text, "is_anti_symmetric: true\n")
	assert.Contains(t, text, "creation_date: 2024-01-02T03:04:05Z\n")
	assert.NotContains(t, text, "id: is_a\n", "built-in relations are not written")
	assert.NotContains(t, text, "[Instance]")
	assert.NotContains(t, text, "is_obsolete")

	terms := strings.Index(text, "[Term]")
	typedefs := strings.Index(text, "[Typedef]")
	require.Positive(t, terms)
	assert.Greater(t, typedefs, terms, "typedefs follow terms")
}

func TestWrite_Escaping(t *testing.T) {
	o := ontology.New()
	t.Cleanup(o.Close)
	require.NoError(t, o.SetMetadata(ontology.NewMetadata()))

	term, err := o.CreateTerm("X:1")
	require.NoError(t, err)
	require.NoError(t, term.SetName("odd {name} with \"quotes\" ! bang\nand a newline"))
	require.NoError(t, term.SetComment(`back\slash and tab	here`))
	require.NoError(t, term.SetDefinition(&record.Definition{
		Text:  `say "hi" \ then leave`,
		Xrefs: []record.Xref{{ID: "URL:http://x.org/a,b", Description: "a, \"b\""}, {ID: "X:2"}},
	}))
	require.NoError(t, term.AddXref(record.Xref{ID: "DB:with space]"}))
	require.NoError(t, term.AddAnnotation(record.LiteralValue("seeAlso", "a \"quoted\" literal", "xsd:anyURI")))
	require.NoError(t, term.AddAnnotation(record.ResourceValue("seeAlso", "X:2")))
	require.NoError(t, term.SetCreationDate(time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)))
	_, err = o.Finalize(context.Background())
	require.NoError(t, err)

	text := write(t, o)
	back, _ := mustRead(t, Reader{}, text)
	requireSameGraph(t, o, back)
}

func TestWrite_StaleGraph(t *testing.T) {
	o, _ := mustRead(t, Reader{}, "[Term]\nid: X:1\n")
	o.Close()

	var buf bytes.Buffer
	require.Error(t, Write(&buf, o))
}
