package chain

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// EventIndex is the chain-wide collection of all non-root events. It does
// not own events (ownership stays with the branch histories); it exists to
// support membership tracking and uniform random selection.
type EventIndex struct {
	events  []*Event
	members map[*Event]struct{}
}

// NewEventIndex creates an empty index.
func NewEventIndex() *EventIndex {
	return &EventIndex{members: map[*Event]struct{}{}}
}

// Insert adds e to the index. Inserting an existing member is a contract
// violation.
func (ix *EventIndex) Insert(e *Event) {
	if _, ok := ix.members[e]; ok {
		panic(fmt.Errorf("event at map time %g is already in the index", e.MapTime()))
	}

	ix.members[e] = struct{}{}
	ix.events = append(ix.events, e)
}

// Remove erases e from the index. Panics with ErrEventNotFound when e is
// not a member.
func (ix *EventIndex) Remove(e *Event) {
	if _, ok := ix.members[e]; !ok {
		panic(fmt.Errorf("%w: event at map time %g is not in the index", ErrEventNotFound, e.MapTime()))
	}

	delete(ix.members, e)

	for i, cur := range ix.events {
		if cur == e {
			copy(ix.events[i:], ix.events[i+1:])
			ix.events[len(ix.events)-1] = nil
			ix.events = ix.events[:len(ix.events)-1]

			return
		}
	}
}

// Contains reports whether e is a member.
func (ix *EventIndex) Contains(e *Event) bool {
	_, ok := ix.members[e]

	return ok
}

// Size returns the number of indexed events.
func (ix *EventIndex) Size() int {
	return len(ix.events)
}

// PickUniform selects a member with probability 1/Size each, uniform over
// the current member set regardless of insertion order. Panics with
// ErrEmptyIndex when no non-root events exist.
func (ix *EventIndex) PickUniform(rng *rand.Rand) *Event {
	if len(ix.events) == 0 {
		panic(ErrEmptyIndex)
	}

	return ix.events[rng.IntN(len(ix.events))]
}

// Sorted returns the members ordered by ascending map time. Used for
// deterministic serialization; selection does not depend on order.
func (ix *EventIndex) Sorted() []*Event {
	out := make([]*Event, len(ix.events))
	copy(out, ix.events)
	sort.Slice(out, func(i, j int) bool { return out[i].MapTime() < out[j].MapTime() })

	return out
}
