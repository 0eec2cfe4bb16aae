// Package chain implements the event/branch-history engine for a
// reversible-jump MCMC over a piecewise-constant process on a phylogenetic
// tree: events (change-points) on branches, per-branch event ledgers with
// cached effective events, the incremental propagation algorithm that keeps
// the caches consistent after an edit, and the move engine that proposes
// and reverts structural edits.
package chain

import (
	"fmt"
	"math"

	"github.com/bomeara/bamm/pkg/phylo"
)

// Params is the model-specific parameter payload attached to an event.
// The engine treats it as opaque; Clone must return an independent copy.
type Params interface {
	Clone() Params
}

// Event is a single change-point on a branch. Exactly one event per chain
// is the root event: a sentinel with no map position, conceptually at the
// tree's origin, never deleted and never moved.
type Event struct {
	mapTime float64
	node    *phylo.Node
	params  Params
	isRoot  bool

	// Previous position, recorded by Relocate and consumed by Revert.
	// At most one outstanding undo is supported, matching the
	// single-proposal-at-a-time MCMC protocol.
	prevMapTime float64
	prevNode    *phylo.Node
	hasPrev     bool
}

// NewEvent creates an event at map position mapTime, attached to the node
// whose branch interval contains that position. Panics with
// ErrPositionOutOfRange when no branch contains mapTime; with correct
// geometry this is unreachable.
func NewEvent(tree *phylo.Tree, mapTime float64, params Params) *Event {
	node := tree.NodeAtMapPosition(mapTime)
	if node == nil {
		panic(fmt.Errorf("%w: map time %g, total map length %g",
			ErrPositionOutOfRange, mapTime, tree.TotalMapLength()))
	}

	return &Event{mapTime: mapTime, node: node, params: params}
}

// newRootEvent creates the distinguished root event.
func newRootEvent(tree *phylo.Tree, params Params) *Event {
	return &Event{node: tree.Root(), params: params, isRoot: true}
}

// MapTime returns the event's position in the global map coordinate.
func (e *Event) MapTime() float64 {
	return e.mapTime
}

// Node returns the node owning the branch the event currently resides on.
func (e *Event) Node() *phylo.Node {
	return e.node
}

// Params returns the model-specific payload.
func (e *Event) Params() Params {
	return e.params
}

// SetParams replaces the model-specific payload.
func (e *Event) SetParams(p Params) {
	e.params = p
}

// IsRoot reports whether this is the chain's root event.
func (e *Event) IsRoot() bool {
	return e.isRoot
}

// Relocate moves the event to a new map position, reassigning the owning
// node when the position falls in a different branch's interval, and
// records the prior position for a possible revert. The caller must have
// popped the event off its branch history first.
func (e *Event) Relocate(tree *phylo.Tree, mapTime float64) {
	if e.isRoot {
		panic("the root event cannot be moved")
	}

	node := tree.NodeAtMapPosition(mapTime)
	if node == nil {
		panic(fmt.Errorf("%w: map time %g, total map length %g",
			ErrPositionOutOfRange, mapTime, tree.TotalMapLength()))
	}

	e.prevMapTime = e.mapTime
	e.prevNode = e.node
	e.hasPrev = true

	e.mapTime = mapTime
	e.node = node
}

// MoveLocal relocates the event by step, reflecting at the boundaries of
// the total map length (see ReflectIntoMap).
func (e *Event) MoveLocal(tree *phylo.Tree, step float64) {
	e.Relocate(tree, ReflectIntoMap(e.mapTime+step, tree.TotalMapLength()))
}

// MoveGlobal relocates the event to the absolute position x, which the
// caller draws uniformly over the total map length.
func (e *Event) MoveGlobal(tree *phylo.Tree, x float64) {
	e.Relocate(tree, x)
}

// Revert restores the position and owning node recorded by the last
// Relocate and clears the recorded state. Panics with ErrNoPendingMove when
// no relocation is outstanding.
func (e *Event) Revert() {
	if !e.hasPrev {
		panic(fmt.Errorf("%w: event at map time %g has no recorded previous position",
			ErrNoPendingMove, e.mapTime))
	}

	e.mapTime = e.prevMapTime
	e.node = e.prevNode
	e.prevNode = nil
	e.hasPrev = false
}

// ReflectIntoMap maps x into [0, total) by reflecting at both boundaries.
// This is the local-move boundary policy: a step that would escape the tree
// bounces back, keeping the proposal symmetric so detailed balance holds.
// Reflection repeats until the position lands inside the interval, which
// handles steps larger than the map itself.
func ReflectIntoMap(x, total float64) float64 {
	if total <= 0 {
		panic(fmt.Errorf("%w: total map length %g", ErrPositionOutOfRange, total))
	}

	for x < 0 || x > total {
		if x < 0 {
			x = -x
		}

		if x > total {
			x = 2*total - x
		}
	}

	// The branch intervals are half-open, so fold the measure-zero landing
	// on the far boundary to the largest representable interior position.
	if x == total {
		x = math.Nextafter(total, 0)
	}

	return x
}
