package chain

import "fmt"

// AddRandomEvent inserts a new event at a position drawn uniformly over the
// total map length, with payload drawn from the params factory, and returns
// it.
func (c *Chain) AddRandomEvent() *Event {
	x := c.rng.Float64() * c.tree.TotalMapLength()

	return c.AddEventAt(x, c.newParams(c.rng))
}

// AddEventAt inserts a new event at map position x with the given payload:
// the event is attached to the branch containing x, recorded in that
// branch's ledger and the event index, and the effective-event caches are
// propagated from the new position. Panics with ErrPositionOutOfRange when
// x lies outside the total map length.
func (c *Chain) AddEventAt(x float64, params Params) *Event {
	e := NewEvent(c.tree, x, params)

	c.History(e.Node()).AddEvent(e)
	c.index.Insert(e)
	c.forwardSetBranchHistories(e)

	// Inserts cannot be reverted; any outstanding move slot is stale.
	c.lastEventModified = nil

	return e
}

// DeleteEvent removes e from its branch history and the event index, then
// propagates from the event immediately root-ward of the deleted position,
// which now governs everything e used to shadow. Panics with
// ErrEventNotFound for a non-member or for the root event, which is
// undeletable.
func (c *Chain) DeleteEvent(e *Event) {
	if e.IsRoot() {
		panic(fmt.Errorf("%w: the root event cannot be deleted", ErrEventNotFound))
	}

	if !c.index.Contains(e) {
		panic(fmt.Errorf("%w: event at map time %g is not on the tree", ErrEventNotFound, e.MapTime()))
	}

	h := c.History(e.Node())
	previous := h.LastEventBefore(e)

	h.RemoveEvent(e)
	c.index.Remove(e)

	c.forwardSetBranchHistories(previous)

	c.lastEventModified = nil
}

// PickRandomEvent selects a uniformly random non-root event. Panics with
// ErrEmptyIndex when no events exist.
func (c *Chain) PickRandomEvent() *Event {
	return c.index.PickUniform(c.rng)
}

// LocalMove relocates a uniformly random event by a bounded perturbation
// drawn from Uniform(-scale/2, +scale/2), reflected at the map boundaries.
// Returns the moved event, or nil when no events are on the tree.
func (c *Chain) LocalMove() *Event {
	return c.eventMove(true)
}

// GlobalMove relocates a uniformly random event to a fresh position drawn
// uniformly over the total map length, independent of its current position.
// Returns the moved event, or nil when no events are on the tree.
func (c *Chain) GlobalMove() *Event {
	return c.eventMove(false)
}

func (c *Chain) eventMove(local bool) *Event {
	if c.index.Size() == 0 {
		return nil
	}

	chosen := c.index.PickUniform(c.rng)

	// The event preceding the chosen one: histories must be re-propagated
	// from here after the move, since it now governs what chosen used to.
	previous := c.History(chosen.Node()).LastEventBefore(chosen)

	c.lastEventModified = chosen

	// Pop off the current branch; the event stays in the index, only its
	// position and owner change.
	c.History(chosen.Node()).RemoveEvent(chosen)

	if local {
		step := c.rng.Float64()*c.scale - 0.5*c.scale
		chosen.MoveLocal(c.tree, step)
	} else {
		chosen.MoveGlobal(c.tree, c.rng.Float64()*c.tree.TotalMapLength())
	}

	c.History(chosen.Node()).AddEvent(chosen)

	c.forwardSetBranchHistories(previous)
	c.forwardSetBranchHistories(chosen)

	return chosen
}

// RevertLastMove replays the exact inverse of the single most recent local
// or global move: the moved event is popped off its current branch, its
// recorded position and owner are restored, it is re-added to the restored
// branch, and histories are propagated from both boundaries. Panics with
// ErrNoPendingMove when no move is outstanding.
func (c *Chain) RevertLastMove() {
	if c.lastEventModified == nil {
		panic(ErrNoPendingMove)
	}

	e := c.lastEventModified

	// The event root-ward of e's current (rejected) position; it governs
	// that region once e leaves.
	newPrevious := c.History(e.Node()).LastEventBefore(e)

	c.History(e.Node()).RemoveEvent(e)
	e.Revert()
	c.History(e.Node()).AddEvent(e)

	c.forwardSetBranchHistories(newPrevious)
	c.forwardSetBranchHistories(e)

	c.lastEventModified = nil
}

// PendingMove reports whether a move is outstanding and can be reverted.
func (c *Chain) PendingMove() bool {
	return c.lastEventModified != nil
}
