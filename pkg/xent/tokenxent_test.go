package xent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotal(t *testing.T) {
	tx := New([]string{"a", "b", "c"}, []float64{1.0, 2.5, 0.5})
	assert.Equal(t, 4.0, tx.Total())
}

func TestSurface(t *testing.T) {
	tx := New([]string{"Once ", "upon", " a time"}, []float64{1, 2, 3})
	assert.Equal(t, "Once upon a time", tx.Surface())
}

func TestSlice(t *testing.T) {
	tx := New([]string{"a", "b", "c", "d"}, []float64{1, 2, 3, 4})
	got := tx.Slice(1, 3)
	assert.Equal(t, 2, len(got))
	assert.Equal(t, 5.0, got.Total())
}

func TestSliceOutOfRangeClamped(t *testing.T) {
	tx := New([]string{"a", "b"}, []float64{1, 2})
	assert.Equal(t, 2, len(tx.Slice(-5, 100)))
	assert.Equal(t, 0, len(tx.Slice(5, 10)))
}

func TestDiffAndAligned(t *testing.T) {
	a := New([]string{"x", "y"}, []float64{3, 4})
	b := New([]string{"x", "y"}, []float64{1, 1})
	require.True(t, Aligned(a, b))

	d := Diff(a, b)
	assert.Equal(t, 2.0, d[0].Bits)
	assert.Equal(t, 3.0, d[1].Bits)
}

func TestNotAlignedDifferentSurfaces(t *testing.T) {
	a := New([]string{"x", "y"}, []float64{3, 4})
	b := New([]string{"x", "z"}, []float64{1, 1})
	assert.False(t, Aligned(a, b))
}

func TestNotAlignedDifferentLength(t *testing.T) {
	a := New([]string{"x", "y"}, []float64{3, 4})
	b := New([]string{"x"}, []float64{1})
	assert.False(t, Aligned(a, b))
}

func TestJSONRoundTrip(t *testing.T) {
	tx := New([]string{"He", "llo"}, []float64{1.25, 2.5})

	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Equal(t, `[["He",1.25],["llo",2.5]]`, string(data))

	var out TokenXent
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, tx, out)
}

func TestJSONRoundTripEmpty(t *testing.T) {
	var tx TokenXent
	data, err := json.Marshal(tx)
	require.NoError(t, err)

	var out TokenXent
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 0, len(out))
}
