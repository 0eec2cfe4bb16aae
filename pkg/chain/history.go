package chain

import (
	"fmt"
	"sort"
)

// BranchHistory is the per-branch ordered ledger of events plus the two
// caches maintained by the propagation algorithm: the node event (the event
// governing this node) and the ancestral node event (the value last pushed
// down from the ancestor, which governs the node whenever its own ledger is
// empty).
type BranchHistory struct {
	// events is ordered by ascending map time, root-ward to tip-ward.
	events []*Event

	nodeEvent          *Event
	ancestralNodeEvent *Event
}

// AddEvent inserts e into the ordered ledger. When e becomes the new
// tip-most entry it also becomes the node event.
func (h *BranchHistory) AddEvent(e *Event) {
	i := sort.Search(len(h.events), func(i int) bool {
		return h.events[i].MapTime() > e.MapTime()
	})

	h.events = append(h.events, nil)
	copy(h.events[i+1:], h.events[i:])
	h.events[i] = e

	if i == len(h.events)-1 {
		h.nodeEvent = e
	}
}

// RemoveEvent erases e from the ledger. Panics with ErrEventNotFound when e
// is not on this branch.
func (h *BranchHistory) RemoveEvent(e *Event) {
	i := h.indexOf(e)
	if i < 0 {
		panic(fmt.Errorf("%w: event at map time %g is not on this branch", ErrEventNotFound, e.MapTime()))
	}

	copy(h.events[i:], h.events[i+1:])
	h.events[len(h.events)-1] = nil
	h.events = h.events[:len(h.events)-1]
}

// LastEventBefore returns the event immediately root-ward of e on this
// branch, or the current ancestral node event when e is the first entry.
// Panics with ErrEventNotFound when e is not on this branch.
func (h *BranchHistory) LastEventBefore(e *Event) *Event {
	i := h.indexOf(e)
	if i < 0 {
		panic(fmt.Errorf("%w: event at map time %g is not on this branch", ErrEventNotFound, e.MapTime()))
	}

	if i == 0 {
		return h.ancestralNodeEvent
	}

	return h.events[i-1]
}

// indexOf locates e by identity. Per-branch event counts stay small, so a
// linear scan beats maintaining an auxiliary position map.
func (h *BranchHistory) indexOf(e *Event) int {
	for i, cur := range h.events {
		if cur == e {
			return i
		}
	}

	return -1
}

// LastEvent returns the tip-most event on this branch, or nil when the
// ledger is empty.
func (h *BranchHistory) LastEvent() *Event {
	if len(h.events) == 0 {
		return nil
	}

	return h.events[len(h.events)-1]
}

// EventCount returns the number of events on this branch.
func (h *BranchHistory) EventCount() int {
	return len(h.events)
}

// Events returns the ledger in root-ward to tip-ward order. The slice is
// owned by the history and must not be modified.
func (h *BranchHistory) Events() []*Event {
	return h.events
}

// NodeEvent returns the cached effective event governing this node.
func (h *BranchHistory) NodeEvent() *Event {
	return h.nodeEvent
}

// SetNodeEvent writes the node-event cache. Only the propagation algorithm
// should call this.
func (h *BranchHistory) SetNodeEvent(e *Event) {
	h.nodeEvent = e
}

// AncestralNodeEvent returns the cached value last pushed down from the
// ancestor.
func (h *BranchHistory) AncestralNodeEvent() *Event {
	return h.ancestralNodeEvent
}

// SetAncestralNodeEvent writes the ancestral-node-event cache. Only the
// propagation algorithm should call this.
func (h *BranchHistory) SetAncestralNodeEvent(e *Event) {
	h.ancestralNodeEvent = e
}
