package sampling

import (
	"testing"

	"github.com/hupe1980/lakescan/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_SizeLadder(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "comprehensive"},
		{10*MiB - 1, "comprehensive"},
		{10 * MiB, "balanced"},
		{100*MiB - 1, "balanced"},
		{100 * MiB, "fast"},
		{1*GiB - 1, "fast"},
		{1 * GiB, "minimal"},
		{50 * GiB, "minimal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Select(tt.size, Auto, "").Name, "size %d", tt.size)
	}
}

func TestSelect_Monotonic(t *testing.T) {
	prev := Select(0, "", "").TargetRows
	for size := int64(1 * MiB); size < 4*GiB; size *= 2 {
		rows := Select(size, "", "").TargetRows
		assert.LessOrEqual(t, rows, prev)
		prev = rows
	}
}

func TestSelect_ExplicitName(t *testing.T) {
	assert.Equal(t, "fast", Select(1, "FAST", "compare trends").Name)
	// unknown names fall back to automatic selection
	assert.Equal(t, "comprehensive", Select(1, "bogus", "").Name)
}

func TestSelect_Keywords(t *testing.T) {
	assert.Equal(t, "comprehensive", Select(5*GiB, "auto", "Compare obesity trends by county").Name)
	assert.Equal(t, "minimal", Select(1*MiB, "auto", "Give me a quick overview").Name)
	assert.Equal(t, "balanced", Select(50*MiB, "auto", "diabetes in GA").Name)
}

func TestSet_ByName(t *testing.T) {
	_, err := DefaultSet().ByName("nope")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	st, err := DefaultSet().ByName("balanced")
	require.NoError(t, err)
	assert.Equal(t, 5000, st.TargetRows)
	assert.Equal(t, "balanced (5000 rows, < 100 MiB)", st.String())
}

func TestSet_Validate(t *testing.T) {
	require.NoError(t, DefaultSet().Validate())

	assert.Error(t, Set{}.Validate())
	assert.Error(t, Set{{Name: "a", TargetRows: 1}, {Name: "b", TargetRows: 1}}.Validate())
	assert.Error(t, Set{{Name: "a", MaxSourceBytes: 10, TargetRows: 1}, {Name: "a", TargetRows: 1}}.Validate())
	assert.Error(t, Set{{Name: "a", MaxSourceBytes: 10, TargetRows: 1}, {Name: "b", MaxSourceBytes: 5, TargetRows: 1}}.Validate())
	assert.Error(t, Set{{Name: "auto", TargetRows: 1}}.Validate())
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, Bounded, ModeFor(nil))
	assert.Equal(t, Bounded, ModeFor(filter.Map{"state": ""}))
	assert.Equal(t, Progressive, ModeFor(filter.Map{"state": "GA"}))
}

func TestSelect_KeywordsAreWholeWords(t *testing.T) {
	assert.Equal(t, "balanced", Select(50*MiB, "", "asthma in Fulton County").Name)
	assert.Equal(t, "minimal", Select(50*MiB, "", "how many rows in total?").Name)
}

func TestSelect_PluralKeyword(t *testing.T) {
	assert.Equal(t, "comprehensive", Select(5*GiB, "", "show obesity trends").Name)
}
