package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalMove_ThenRevertRestoresState(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 20)

	for i := 0; i < 6; i++ {
		c.AddRandomEvent()
	}

	for trial := 0; trial < 200; trial++ {
		before := captureSnapshot(c)

		moved := c.LocalMove()
		assert.NotNil(t, moved)
		assert.True(t, c.PendingMove())
		assertEffectiveEventInvariant(t, c)

		c.RevertLastMove()
		assert.False(t, c.PendingMove())
		assertEffectiveEventInvariant(t, c)
		assertSnapshotEqual(t, before, c)
	}
}

func TestGlobalMove_ThenRevertRestoresState(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 21)

	for i := 0; i < 6; i++ {
		c.AddRandomEvent()
	}

	for trial := 0; trial < 200; trial++ {
		before := captureSnapshot(c)

		moved := c.GlobalMove()
		assert.NotNil(t, moved)
		assertEffectiveEventInvariant(t, c)

		c.RevertLastMove()
		assertEffectiveEventInvariant(t, c)
		assertSnapshotEqual(t, before, c)
	}
}

func TestEventMove_SingleEventAcrossBranches(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 22)

	// One event on the tree: every global move relocates it, often to a
	// different branch, and the whole tree must stay consistent.
	c.AddEventAt(5.0, &testParams{rate: 1.0})

	for trial := 0; trial < 100; trial++ {
		moved := c.GlobalMove()
		assert.NotNil(t, moved)
		assert.Equal(t, 1, c.EventCount())
		assert.Equal(t, 1, c.TotalBranchEvents())
		assertEffectiveEventInvariant(t, c)
	}
}

func TestMove_KeepsEventInIndex(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 23)

	e := c.AddEventAt(5.0, &testParams{rate: 1.0})

	moved := c.GlobalMove()
	assert.Same(t, e, moved, "the only event must be the one selected")
	assert.Equal(t, 1, c.EventCount())
}

func TestMove_OnEmptyTreeIsNoOp(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 24)

	assert.Nil(t, c.LocalMove())
	assert.Nil(t, c.GlobalMove())
	assert.False(t, c.PendingMove())
}

func TestRevertLastMove_NoPendingMovePanics(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 25)
	c.AddEventAt(5.0, &testParams{rate: 1.0})

	assert.PanicsWithError(t, ErrNoPendingMove.Error(), func() { c.RevertLastMove() })

	c.LocalMove()
	c.RevertLastMove()

	// A second revert without an intervening move must fail.
	assert.PanicsWithError(t, ErrNoPendingMove.Error(), func() { c.RevertLastMove() })
}

func TestRevertLastMove_ClearedByInsertAndDelete(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 26)
	c.AddEventAt(5.0, &testParams{rate: 1.0})

	c.LocalMove()
	assert.True(t, c.PendingMove())

	e := c.AddEventAt(1.0, &testParams{rate: 1.0})
	assert.False(t, c.PendingMove(), "insert must clear the pending-move slot")
	assert.Panics(t, func() { c.RevertLastMove() })

	c.LocalMove()
	c.DeleteEvent(e)
	assert.False(t, c.PendingMove(), "delete must clear the pending-move slot")
	assert.Panics(t, func() { c.RevertLastMove() })
}

func TestPickRandomEvent_EmptyPanics(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 27)

	assert.PanicsWithError(t, ErrEmptyIndex.Error(), func() { c.PickRandomEvent() })
}

func TestPickRandomEvent_UniformSelection(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, 28)

	events := make(map[*Event]int, 5)
	for _, x := range []float64{0.5, 2.0, 5.0, 8.0, 9.9} {
		events[c.AddEventAt(x, &testParams{rate: 1.0})] = 0
	}

	const trials = 50000

	for i := 0; i < trials; i++ {
		events[c.PickRandomEvent()]++
	}

	for e, n := range events {
		freq := float64(n) / trials
		assert.InDelta(t, 0.2, freq, 0.015, "event at %g", e.MapTime())
	}
}
