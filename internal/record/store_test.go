package record

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ontograph/internal/ontoerr"
)

func TestStore_CreateSharedNamespace(t *testing.T) {
	s := NewStore()

	_, err := s.Create(KindTerm, "TST:001")
	require.NoError(t, err)

	_, err = s.Create(KindTerm, "TST:001")
	assert.ErrorIs(t, err, ontoerr.ErrDuplicateIdentifier)

	_, err = s.Create(KindRelationship, "TST:001")
	assert.ErrorIs(t, err, ontoerr.ErrDuplicateIdentifier, "terms and relationships share ids")

	_, err = s.Create(KindRelationship, "part_of")
	require.NoError(t, err)

	assert.Equal(t, []string{"TST:001"}, s.IDs(KindTerm))
	assert.Equal(t, []string{"part_of"}, s.IDs(KindRelationship))
}

func TestStore_GetOrCreate(t *testing.T) {
	s := NewStore()

	r1, created, err := s.GetOrCreate(KindTerm, "TST:001")
	require.NoError(t, err)
	assert.True(t, created)

	r2, created, err := s.GetOrCreate(KindTerm, "TST:001")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, r1, r2)

	_, _, err = s.GetOrCreate(KindRelationship, "TST:001")
	assert.ErrorIs(t, err, ontoerr.ErrDuplicateIdentifier)
	assert.Equal(t, 1, s.Len(KindTerm))
}

func TestStore_AlternateIDs(t *testing.T) {
	s := NewStore()
	canonical, err := s.Create(KindTerm, "HP:0009882")
	require.NoError(t, err)
	_, err = s.Create(KindTerm, "HP:0000001")
	require.NoError(t, err)

	require.NoError(t, s.Alias("HP:0001198", "HP:0009882"))
	require.NoError(t, s.Alias("HP:0001198", "HP:0009882"), "idempotent")

	got, err := s.Get("HP:0001198")
	require.NoError(t, err)
	assert.Same(t, canonical, got)

	_, ok := s.Lookup("HP:0001198")
	assert.False(t, ok, "lookup does not follow aliases")

	err = s.Alias("HP:0001198", "HP:0000001")
	assert.ErrorIs(t, err, ontoerr.ErrDuplicateIdentifier)

	err = s.Alias("HP:0000001", "HP:0009882")
	assert.ErrorIs(t, err, ontoerr.ErrDuplicateIdentifier, "alias may not shadow a record")

	_, err = s.Create(KindTerm, "HP:0001198")
	assert.ErrorIs(t, err, ontoerr.ErrDuplicateIdentifier)

	s.Unalias("HP:0001198", "HP:0000001")
	assert.True(t, s.InUse("HP:0001198"), "unalias with wrong canonical is ignored")

	s.Unalias("HP:0001198", "HP:0009882")
	_, err = s.Get("HP:0001198")
	assert.ErrorIs(t, err, ontoerr.ErrNotFound)
}

func TestStore_InstallBuiltin(t *testing.T) {
	s := NewStore()
	isA := New(KindRelationship, "is_a")
	isA.Builtin = true
	require.NoError(t, s.Install(isA))

	got, err := s.Get("is_a")
	require.NoError(t, err)
	assert.True(t, got.Builtin)
	assert.Empty(t, s.IDs(KindRelationship))

	_, err = s.Create(KindRelationship, "is_a")
	assert.ErrorIs(t, err, ontoerr.ErrDuplicateIdentifier)
}

func TestStore_ConcurrentCreate(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	numGoroutines := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("TST:%03d", i%10)
			_, _, err := s.GetOrCreate(KindTerm, id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len(KindTerm))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := New(KindTerm, "TST:001")
	r.Definition = &Definition{Text: "x", Xrefs: []Xref{{ID: "PMID:1"}}}
	r.Relationships["part_of"] = NewSet("TST:002")
	r.Synonyms = []Synonym{{Description: "a", Scope: ScopeExact, Xrefs: []Xref{{ID: "ISBN:1"}}}}

	c := r.Clone()
	c.Definition.Xrefs[0].ID = "PMID:2"
	c.Relationships["part_of"].Add("TST:003")
	c.Synonyms[0].Xrefs[0].ID = "ISBN:2"

	assert.Equal(t, "PMID:1", r.Definition.Xrefs[0].ID)
	assert.Equal(t, 1, r.Relationships["part_of"].Len())
	assert.Equal(t, "ISBN:1", r.Synonyms[0].Xrefs[0].ID)
}

func TestRecord_CheckCardinality(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(r *Record)
		expectErr bool
	}{
		{name: "empty", mutate: func(*Record) {}},
		{name: "union of one", mutate: func(r *Record) { r.UnionOf.Add("A") }, expectErr: true},
		{name: "union of two", mutate: func(r *Record) { r.UnionOf.Add("A"); r.UnionOf.Add("B") }},
		{name: "disjoint from one", mutate: func(r *Record) { r.DisjointFrom.Add("A") }, expectErr: true},
		{name: "equivalent to one", mutate: func(r *Record) { r.EquivalentTo.Add("A") }, expectErr: true},
		{
			name:      "intersection of one",
			mutate:    func(r *Record) { r.IntersectionOf = []IntersectionPart{{Target: "A"}} },
			expectErr: true,
		},
		{
			name: "intersection genus and differentia",
			mutate: func(r *Record) {
				r.IntersectionOf = []IntersectionPart{{Target: "A"}, {Relation: "part_of", Target: "B"}}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(KindTerm, "TST:001")
			tc.mutate(r)
			err := r.CheckCardinality()
			if tc.expectErr {
				assert.ErrorIs(t, err, ontoerr.ErrCardinalityViolation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeHelpers(t *testing.T) {
	xrefs := MergeXref(nil, Xref{ID: "A"})
	xrefs = MergeXref(xrefs, Xref{ID: "A", Description: "desc"})
	xrefs = MergeXref(xrefs, Xref{ID: "B"})
	require.Len(t, xrefs, 2)
	assert.Equal(t, "desc", xrefs[0].Description)

	syns := MergeSynonym(nil, Synonym{Description: "x", Scope: ScopeExact})
	syns = MergeSynonym(syns, Synonym{Description: "x", Scope: ScopeExact, Type: "abbrev"})
	syns = MergeSynonym(syns, Synonym{Description: "x", Scope: ScopeBroad})
	require.Len(t, syns, 2)
	assert.Equal(t, "abbrev", syns[0].Type)

	pvs := AddAnnotation(nil, LiteralValue("p", "v", ""))
	pvs = AddAnnotation(pvs, LiteralValue("p", "v", XSDString))
	assert.Len(t, pvs, 1)
	assert.Equal(t, XSDString, pvs[0].Datatype)
	assert.False(t, pvs[0].IsResource())
	assert.True(t, ResourceValue("p", "X:1").IsResource())
}
