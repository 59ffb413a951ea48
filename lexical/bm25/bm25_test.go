package bm25

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_Basic(t *testing.T) {
	idx := New()

	docs := []string{
		"the quick brown fox",
		"jumped over the lazy dog",
		"quick brown dogs",
		"fox and dog",
	}
	for i, d := range docs {
		require.NoError(t, idx.Add(uint32(i), d))
	}
	assert.Equal(t, 4, idx.Len())

	results, err := idx.Search("fox", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	found := map[uint32]bool{}
	for _, r := range results {
		found[r.DocID] = true
		assert.Positive(t, r.Score)
	}
	assert.True(t, found[0])
	assert.True(t, found[3])
	// the shorter document ranks first
	assert.Equal(t, uint32(3), results[0].DocID)
}

func TestMemoryIndex_TopK(t *testing.T) {
	idx := New()
	for i := 0; i < 20; i++ {
		text := "common"
		if i%5 == 0 {
			text += " rare rare"
		}
		require.NoError(t, idx.Add(uint32(i), text))
	}

	res, err := idx.Search("common rare", 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []uint32{0, 5, 10}, []uint32{res[0].DocID, res[1].DocID, res[2].DocID})
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
	assert.GreaterOrEqual(t, res[1].Score, res[2].Score)
}

func TestMemoryIndex_SearchMatchesScores(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(7, "diabetes rate in fulton county"))
	require.NoError(t, idx.Add(2, "asthma rate in cobb county"))
	require.NoError(t, idx.Add(5, "diabetes diabetes diabetes"))

	scores := idx.Scores("diabetes county")
	res, err := idx.Search("diabetes county", 10)
	require.NoError(t, err)
	require.Len(t, res, len(scores))
	for _, r := range res {
		assert.InDelta(t, scores[r.DocID], r.Score, 1e-6)
	}
}

func TestMemoryIndex_Delete(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(1, "test content"))
	require.NoError(t, idx.Add(2, "other content"))

	res, _ := idx.Search("test", 10)
	assert.Len(t, res, 1)

	require.NoError(t, idx.Delete(1))
	res, _ = idx.Search("test", 10)
	assert.Empty(t, res)
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Add(1, "test content again"))
	res, _ = idx.Search("test", 10)
	assert.Len(t, res, 1)
}

func TestMemoryIndex_Replace(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(1, "alpha"))
	require.NoError(t, idx.Add(1, "beta"))

	res, _ := idx.Search("alpha", 10)
	assert.Empty(t, res)
	res, _ = idx.Search("beta", 10)
	assert.Len(t, res, 1)
	assert.Equal(t, 1, idx.Len())
}

func TestMemoryIndex_OutOfOrderIDs(t *testing.T) {
	idx := New()
	for _, id := range []uint32{9, 3, 6, 1} {
		require.NoError(t, idx.Add(id, "shared"))
	}
	res, err := idx.Search("shared", 10)
	require.NoError(t, err)
	require.Len(t, res, 4)
	// equal scores fall back to document order
	assert.Equal(t, uint32(1), res[0].DocID)
	assert.Equal(t, uint32(9), res[3].DocID)
}

func TestMemoryIndex_ManyRepetitions(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Add(1, strings.Repeat("word ", 300)))

	res, _ := idx.Search("word", 1)
	require.Len(t, res, 1)
	assert.Positive(t, res[0].Score)
}

func TestMemoryIndex_Empty(t *testing.T) {
	idx := New()
	res, err := idx.Search("anything", 5)
	require.NoError(t, err)
	assert.Empty(t, res)

	require.NoError(t, idx.Add(0, "something"))
	res, err = idx.Search("", 5)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = idx.Search("something", 0)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.NoError(t, idx.Close())
}
