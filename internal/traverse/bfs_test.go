package traverse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A small diamond with a tail:
//
//	root
//	├── a
//	│   └── c
//	└── b
//	    └── c
//	        └── d
var children = map[string][]string{
	"root": {"b", "a"},
	"a":    {"c"},
	"b":    {"c"},
	"c":    {"d"},
}

func neighbors(id string) []string {
	return children[id]
}

func identity(id string) (string, error) {
	return id, nil
}

func walk(t *testing.T, seeds []string, opts ...Option) []string {
	t.Helper()
	got, err := New(seeds, neighbors, identity, 5, opts...).Collect()
	require.NoError(t, err)
	return got
}

func TestBFS_Order(t *testing.T) {
	assert.Equal(t, []string{"root", "a", "b", "c", "d"}, walk(t, []string{"root"}))
	assert.Equal(t, []string{"a", "b", "c", "d"}, walk(t, []string{"root"}, WithSelf(false)))
}

func TestBFS_Distance(t *testing.T) {
	testCases := []struct {
		name     string
		distance int
		withSelf bool
		want     []string
	}{
		{"zero with self", 0, true, []string{"root"}},
		{"zero without self", 0, false, nil},
		{"one", 1, true, []string{"root", "a", "b"}},
		{"two", 2, true, []string{"root", "a", "b", "c"}},
		{"negative is unbounded", -1, true, []string{"root", "a", "b", "c", "d"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := walk(t, []string{"root"}, WithDistance(tc.distance), WithSelf(tc.withSelf))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBFS_MonotonicDistance(t *testing.T) {
	prev := map[string]bool{}
	for d := 0; d <= 4; d++ {
		cur := map[string]bool{}
		for _, id := range walk(t, []string{"root"}, WithDistance(d)) {
			cur[id] = true
		}
		for id := range prev {
			assert.True(t, cur[id], "distance %d lost %s", d, id)
		}
		prev = cur
	}
	assert.Len(t, prev, len(walk(t, []string{"root"})))
}

func TestBFS_MultipleSeedsUnique(t *testing.T) {
	got := walk(t, []string{"b", "a", "a"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestBFS_Deterministic(t *testing.T) {
	first := walk(t, []string{"root"})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, walk(t, []string{"root"}))
	}
}

func TestBFS_Cycle(t *testing.T) {
	cyclic := map[string][]string{"x": {"y"}, "y": {"x"}}
	got, err := New([]string{"x"}, func(id string) []string { return cyclic[id] }, identity, 2).Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestBFS_LengthHint(t *testing.T) {
	b := New([]string{"root"}, neighbors, identity, 5)
	assert.Equal(t, 5, b.LengthHint())

	seen := 0
	for {
		hint := b.LengthHint()
		_, ok := b.Next()
		if !ok {
			break
		}
		seen++
		assert.GreaterOrEqual(t, hint, 1)
	}
	assert.Equal(t, 5, seen)
	assert.Zero(t, b.LengthHint())
}

func TestBFS_MaterializeError(t *testing.T) {
	boom := errors.New("boom")
	b := New([]string{"root"}, neighbors, func(id string) (string, error) {
		if id == "b" {
			return "", boom
		}
		return id, nil
	}, 5)

	got, err := b.Collect()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"root", "a"}, got)
	assert.Zero(t, b.LengthHint())

	_, ok := b.Next()
	assert.False(t, ok, "not restartable after failure")
}

func TestBFS_RangeBreak(t *testing.T) {
	b := New([]string{"root"}, neighbors, identity, 5)
	for id := range b.All() {
		if id == "a" {
			break
		}
	}
	rest, err := b.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, rest)
}
