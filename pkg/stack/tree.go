package stack

import (
	"fmt"
	"io"
	"strings"
)

type node struct {
	item     int
	parent   int
	depth    int
	children []int
}

// Tree is a call tree stored in a flat arena. Node 0 is a synthetic root.
type Tree struct {
	items []MethodItem
	nodes []node
}

// NewTree builds the call tree of items listed in exit order, callees
// before their caller, as they come out of the event replay.
// An item whose parent is missing attaches to the closest shallower node.
func NewTree(items []MethodItem) *Tree {
	t := newTree(items)

	// Walking the items backwards, a parent always comes before its children.
	last := 0
	for i := len(items) - 1; i >= 0; i-- {
		last = t.attach(last, i)
	}
	for i := range t.nodes {
		c := t.nodes[i].children
		for l, r := 0, len(c)-1; l < r; l, r = l+1, r-1 {
			c[l], c[r] = c[r], c[l]
		}
	}

	return t
}

// NewTreeFromCallOrder builds the call tree of items listed in call order,
// callers before their callees, as returned by Reconstruct and Trim.
// An item whose parent is missing attaches to the closest shallower node.
func NewTreeFromCallOrder(items []MethodItem) *Tree {
	t := newTree(items)

	last := 0
	for i := range items {
		last = t.attach(last, i)
	}

	return t
}

func newTree(items []MethodItem) *Tree {
	t := &Tree{
		items: items,
		nodes: make([]node, 1, len(items)+1),
	}
	t.nodes[0] = node{item: -1, parent: -1, depth: -1}

	return t
}

// attach adds item i under the closest ancestor of last shallower than it,
// and returns the new node.
func (t *Tree) attach(last, i int) int {
	d := t.items[i].Depth
	p := last
	for p != 0 && t.nodes[p].depth >= d {
		p = t.nodes[p].parent
	}
	t.nodes = append(t.nodes, node{item: i, parent: p, depth: d})
	n := len(t.nodes) - 1
	t.nodes[p].children = append(t.nodes[p].children, n)

	return n
}

// Len returns the number of nodes, the root excluded.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Flatten returns the items in call order.
func (t *Tree) Flatten() []MethodItem {
	out := make([]MethodItem, 0, t.Len())
	t.walk(0, func(n node) {
		out = append(out, t.items[n.item])
	})

	return out
}

// Print writes the tree indented by level, one call per line.
func (t *Tree) Print(w io.Writer, namer Namer) error {
	var err error
	t.walkLevel(0, 0, func(n node, level int) {
		if err != nil {
			return
		}
		item := t.items[n.item]
		_, err = fmt.Fprintf(w, "%s%s[%d]\n", strings.Repeat("    ", level), name(namer, item.FuncID), item.Duration)
	})

	return err
}

func (t *Tree) walk(n int, fn func(node)) {
	for _, c := range t.nodes[n].children {
		fn(t.nodes[c])
		t.walk(c, fn)
	}
}

func (t *Tree) walkLevel(n, level int, fn func(node, int)) {
	for _, c := range t.nodes[n].children {
		fn(t.nodes[c], level)
		t.walkLevel(c, level+1, fn)
	}
}
