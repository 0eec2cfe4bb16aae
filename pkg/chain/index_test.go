package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bomeara/bamm/pkg/phylo"
)

func TestEventIndex_InsertRemoveSize(t *testing.T) {
	t.Parallel()

	tree, err := phylo.ParseNewick(testNewick)
	require.NoError(t, err)

	ix := NewEventIndex()
	assert.Equal(t, 0, ix.Size())

	a := testEventAt(t, tree, 2.0)
	b := testEventAt(t, tree, 8.0)

	ix.Insert(a)
	ix.Insert(b)
	assert.Equal(t, 2, ix.Size())
	assert.True(t, ix.Contains(a))

	ix.Remove(a)
	assert.Equal(t, 1, ix.Size())
	assert.False(t, ix.Contains(a))

	assert.Panics(t, func() { ix.Remove(a) }, "removing a non-member must panic")
	assert.Panics(t, func() { ix.Insert(b) }, "double insert must panic")
}

func TestEventIndex_PickUniformEmptyPanics(t *testing.T) {
	t.Parallel()

	ix := NewEventIndex()

	assert.PanicsWithError(t, ErrEmptyIndex.Error(), func() { ix.PickUniform(testRNG(1)) })
}

func TestEventIndex_SortedByMapTime(t *testing.T) {
	t.Parallel()

	tree, err := phylo.ParseNewick(testNewick)
	require.NoError(t, err)

	ix := NewEventIndex()

	a := testEventAt(t, tree, 8.0)
	b := testEventAt(t, tree, 2.0)
	c := testEventAt(t, tree, 5.0)

	ix.Insert(a)
	ix.Insert(b)
	ix.Insert(c)

	assert.Equal(t, []*Event{b, c, a}, ix.Sorted())
}

func TestEventIndex_SelectionIndependentOfInsertionOrder(t *testing.T) {
	t.Parallel()

	tree, err := phylo.ParseNewick(testNewick)
	require.NoError(t, err)

	ix := NewEventIndex()
	rng := testRNG(42)

	counts := map[*Event]int{}
	for _, x := range []float64{9.0, 1.0, 4.0} {
		e := testEventAt(t, tree, x)
		ix.Insert(e)
		counts[e] = 0
	}

	const trials = 30000

	for i := 0; i < trials; i++ {
		counts[ix.PickUniform(rng)]++
	}

	for e, n := range counts {
		assert.InDelta(t, 1.0/3.0, float64(n)/trials, 0.02, "event at %g", e.MapTime())
	}
}
