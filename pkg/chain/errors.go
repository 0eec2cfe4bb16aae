package chain

import "errors"

// Contract-violation sentinels. These conditions can never occur under
// correct use of the move protocol; when one does, the chain state is
// already suspect and the operation panics with the sentinel wrapped in the
// panic value rather than returning it, since any recovery would mask a
// propagation bug and silently corrupt the posterior.
var (
	// ErrPositionOutOfRange signals a map position outside [0, totalMapLength).
	ErrPositionOutOfRange = errors.New("map position outside the tree")

	// ErrEventNotFound signals an event missing from the branch history or
	// index that was expected to contain it.
	ErrEventNotFound = errors.New("event not found")

	// ErrEmptyIndex signals a random selection from an empty event index.
	ErrEmptyIndex = errors.New("event index is empty")

	// ErrNoPendingMove signals a revert with no outstanding move.
	ErrNoPendingMove = errors.New("no pending move to revert")
)
