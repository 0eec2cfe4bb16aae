package chain

import "github.com/bomeara/bamm/pkg/phylo"

// forwardSetBranchHistories recomputes the node-event caches in the subtree
// affected by an edit that changed the tip-most event on e's branch (or the
// root's effective state). Cost is bounded by the nodes whose effective
// event actually changes: a branch carrying any of its own events acts as a
// barrier, since its tip-most event shadows anything pushed from above.
func (c *Chain) forwardSetBranchHistories(e *Event) {
	node := e.Node()
	h := c.History(node)

	if e == c.rootEvent {
		// The root's governing event is its own tip-most branch event,
		// falling back to the root event when its ledger is empty.
		v := h.LastEvent()
		if v == nil {
			v = c.rootEvent
		}

		h.SetNodeEvent(v)

		if node.Left != nil {
			c.forwardSetHistoriesRecursive(node.Left)
		}

		if node.Right != nil {
			c.forwardSetHistoriesRecursive(node.Right)
		}

		return
	}

	if e == h.LastEvent() {
		// e is the most tip-ward event on its branch, so it now governs
		// this node and flows into the descendants.
		h.SetNodeEvent(e)

		if node.Left != nil && node.Right != nil {
			c.forwardSetHistoriesRecursive(node.Left)
			c.forwardSetHistoriesRecursive(node.Right)
		}
	}
	// Otherwise a more tip-ward event on the same branch shadows e and
	// nothing downstream can have changed.
}

// forwardSetHistoriesRecursive pushes the ancestor's governing event into
// p and, while branch ledgers stay empty, onward into p's descendants.
func (c *Chain) forwardSetHistoriesRecursive(p *phylo.Node) {
	v := c.History(p.Anc).NodeEvent()

	h := c.History(p)
	h.SetAncestralNodeEvent(v)

	if h.EventCount() != 0 {
		// p's own tip-most event shadows v; the push stops here.
		return
	}

	h.SetNodeEvent(v)

	if p.Left != nil {
		c.forwardSetHistoriesRecursive(p.Left)
	}

	if p.Right != nil {
		c.forwardSetHistoriesRecursive(p.Right)
	}
}
