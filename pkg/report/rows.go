package report

import (
	"strings"

	"github.com/srodi/memon/pkg/tree"
)

// Row is one rendered line of a process tree.
type Row struct {
	Node   *tree.Node
	Tree   int    // index of the tree in the forest
	Depth  int    // 0 for roots
	Prefix string // box-drawing guide, empty for roots
}

// Report is everything a renderer needs for one cycle.
type Report struct {
	Term        string
	Matched     int // processes selected by name, before collapsing into roots
	Forest      tree.Forest
	SystemBytes uint64 // total physical memory, 0 when unknown
}

// Rows flattens the forest in display order: trees in forest order, each in
// pre-order with children in their stored order.
func Rows(f tree.Forest) []Row {
	var rows []Row
	for i, root := range f {
		rows = appendRows(rows, root, i, 0, nil, true)
	}
	return rows
}

// appendRows walks n; open records, per ancestor level below the root,
// whether that ancestor still has siblings to draw after it.
func appendRows(rows []Row, n *tree.Node, treeIdx, depth int, open []bool, last bool) []Row {
	var prefix strings.Builder
	if depth > 0 {
		for _, more := range open {
			if more {
				prefix.WriteString("│  ")
			} else {
				prefix.WriteString("   ")
			}
		}
		if last {
			prefix.WriteString("└─ ")
		} else {
			prefix.WriteString("├─ ")
		}
	}
	rows = append(rows, Row{Node: n, Tree: treeIdx, Depth: depth, Prefix: prefix.String()})

	var childOpen []bool
	if depth > 0 {
		childOpen = append(append([]bool(nil), open...), !last)
	}
	for i, child := range n.Children {
		rows = appendRows(rows, child, treeIdx, depth+1, childOpen, i == len(n.Children)-1)
	}
	return rows
}
