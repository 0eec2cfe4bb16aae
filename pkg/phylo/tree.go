// Package phylo provides the fixed rooted binary tree over which the event
// process is defined: per-branch geometry, the global 1-D map coordinate,
// and tip/MRCA lookup. Topology and geometry are assigned once at
// construction and are immutable afterwards.
package phylo

import (
	"errors"
	"fmt"
)

// ErrUnknownTip is returned when a tip name does not resolve to a node.
var ErrUnknownTip = errors.New("unknown tip name")

// Node is a single node of the tree together with the branch leading to it.
// MapStart and MapEnd delimit the half-open interval this branch occupies in
// the tree's global map coordinate. Left and Right are both nil for a tip
// and both non-nil for an internal node. Anc is nil only for the root.
type Node struct {
	Index  int
	Name   string
	Length float64

	MapStart float64
	MapEnd   float64

	// Time is the cumulative branch length from the root to this node's
	// tip-ward end.
	Time float64

	Left  *Node
	Right *Node
	Anc   *Node

	// subtreeMapEnd is the map cursor value after the whole subtree rooted
	// at this node has been assigned, used for positional descent.
	subtreeMapEnd float64
}

// IsTip reports whether the node is a terminal taxon.
func (n *Node) IsTip() bool {
	return n.Left == nil && n.Right == nil
}

// ContainsMapPosition reports whether x falls inside this branch's
// [MapStart, MapEnd) interval.
func (n *Node) ContainsMapPosition(x float64) bool {
	return x >= n.MapStart && x < n.MapEnd
}

// Tree is a fixed rooted binary tree with assigned map coordinates.
type Tree struct {
	root  *Node
	nodes []*Node
	tips  map[string]*Node

	totalMapLength     float64
	maxRootToTipLength float64
}

// newTree finalizes a parsed topology: assigns preorder indices, map
// coordinates, node times, and builds the tip lookup.
func newTree(root *Node) (*Tree, error) {
	t := &Tree{
		root: root,
		tips: map[string]*Node{},
	}

	cursor := 0.0

	var assign func(n *Node, ancTime float64) error

	assign = func(n *Node, ancTime float64) error {
		n.Index = len(t.nodes)
		t.nodes = append(t.nodes, n)

		n.MapStart = cursor
		n.MapEnd = cursor + n.Length
		n.Time = ancTime + n.Length
		cursor = n.MapEnd

		if n.IsTip() {
			if n.Name == "" {
				return errors.New("tip without a name")
			}

			if _, dup := t.tips[n.Name]; dup {
				return fmt.Errorf("duplicate tip name %q", n.Name)
			}

			t.tips[n.Name] = n

			if n.Time > t.maxRootToTipLength {
				t.maxRootToTipLength = n.Time
			}

			n.subtreeMapEnd = cursor

			return nil
		}

		if n.Left == nil || n.Right == nil {
			return errors.New("tree is not binary: internal node with a single descendant")
		}

		err := assign(n.Left, n.Time)
		if err != nil {
			return err
		}

		err = assign(n.Right, n.Time)
		if err != nil {
			return err
		}

		n.subtreeMapEnd = cursor

		return nil
	}

	err := assign(root, 0)
	if err != nil {
		return nil, err
	}

	t.totalMapLength = cursor

	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Nodes returns all nodes in preorder. The slice is owned by the tree and
// must not be modified.
func (t *Tree) Nodes() []*Node {
	return t.nodes
}

// NodeCount returns the number of nodes (branches) in the tree.
func (t *Tree) NodeCount() int {
	return len(t.nodes)
}

// TotalMapLength returns the sum of all branch lengths, which is the extent
// of the global map coordinate.
func (t *Tree) TotalMapLength() float64 {
	return t.totalMapLength
}

// MaxRootToTipLength returns the maximum cumulative branch length from the
// root to any tip. Local event moves are scaled relative to this value.
func (t *Tree) MaxRootToTipLength() float64 {
	return t.maxRootToTipLength
}

// NodeByName returns the tip with the given name.
func (t *Tree) NodeByName(name string) (*Node, error) {
	n, ok := t.tips[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTip, name)
	}

	return n, nil
}

// MRCA returns the most recent common ancestor of the two named tips.
func (t *Tree) MRCA(nameA, nameB string) (*Node, error) {
	a, err := t.NodeByName(nameA)
	if err != nil {
		return nil, err
	}

	b, err := t.NodeByName(nameB)
	if err != nil {
		return nil, err
	}

	onPathToRoot := map[*Node]bool{}
	for n := a; n != nil; n = n.Anc {
		onPathToRoot[n] = true
	}

	for n := b; n != nil; n = n.Anc {
		if onPathToRoot[n] {
			return n, nil
		}
	}

	// Both paths end at the root, so this is unreachable on a valid tree.
	return nil, errors.New("tips do not share an ancestor")
}

// NodeAtMapPosition returns the node whose branch interval contains the map
// position x, or nil if x lies outside [0, TotalMapLength). The descent
// follows subtree map spans, so lookup cost is proportional to tree depth.
func (t *Tree) NodeAtMapPosition(x float64) *Node {
	if x < 0 || x >= t.totalMapLength {
		return nil
	}

	n := t.root
	for {
		if x < n.MapEnd {
			return n
		}

		if n.Left == nil {
			return nil
		}

		if x < n.Left.subtreeMapEnd {
			n = n.Left
		} else {
			n = n.Right
		}
	}
}
