// Package tree turns a flat process snapshot into ranked memory trees.
package tree

import (
	"fmt"

	"github.com/srodi/memon/pkg/types"
)

// RankCount is how many individual processes receive a rank.
const RankCount = 3

// Node is one process in a tree. A node owns its children exclusively.
type Node struct {
	types.ProcessRecord
	Children     []*Node
	SubtreeBytes uint64 // own RSS plus every descendant's, set by Annotate
	Rank         int    // 1..RankCount, 0 when unranked
}

// Forest is the ordered list of trees produced in one cycle, one per root match.
type Forest []*Node

// Walk visits n and its descendants in pre-order. fn receives the depth
// (0 for n) and whether the node is the last child of its parent.
func (n *Node) Walk(fn func(node *Node, depth int, last bool)) {
	n.walk(fn, 0, true)
}

func (n *Node) walk(fn func(*Node, int, bool), depth int, last bool) {
	fn(n, depth, last)
	for i, child := range n.Children {
		child.walk(fn, depth+1, i == len(n.Children)-1)
	}
}

// Count returns the number of processes in the subtree rooted at n.
func (n *Node) Count() int {
	count := 1
	for _, child := range n.Children {
		count += child.Count()
	}
	return count
}

// Nodes flattens the forest in pre-order, roots in forest order.
func (f Forest) Nodes() []*Node {
	var nodes []*Node
	for _, root := range f {
		root.Walk(func(node *Node, _ int, _ bool) {
			nodes = append(nodes, node)
		})
	}
	return nodes
}

// Count returns the number of processes across all trees.
func (f Forest) Count() int {
	total := 0
	for _, root := range f {
		total += root.Count()
	}
	return total
}

// TotalBytes sums the subtree totals of every root. Only meaningful after Annotate.
func (f Forest) TotalBytes() uint64 {
	var total uint64
	for _, root := range f {
		total += root.SubtreeBytes
	}
	return total
}

// Summary condenses one tree for the footer line.
type Summary struct {
	Procs      int
	TotalBytes uint64
	AvgBytes   uint64
}

// Summarize reports process count, total and average RSS for the tree at n.
func Summarize(n *Node) Summary {
	s := Summary{Procs: n.Count(), TotalBytes: n.SubtreeBytes}
	if s.Procs > 0 {
		s.AvgBytes = s.TotalBytes / uint64(s.Procs)
	}
	return s
}

// Verify checks the forest invariants: no PID appears twice, every subtree
// total equals its own RSS plus its children's totals, and each rank value is
// held by at most one node.
func (f Forest) Verify() error {
	seen := make(map[int]struct{})
	ranks := make(map[int]int)
	var check func(n *Node) error
	check = func(n *Node) error {
		if _, dup := seen[n.PID]; dup {
			return fmt.Errorf("pid %d appears more than once", n.PID)
		}
		seen[n.PID] = struct{}{}
		if n.Rank < 0 || n.Rank > RankCount {
			return fmt.Errorf("pid %d has invalid rank %d", n.PID, n.Rank)
		}
		if n.Rank != 0 {
			if other, dup := ranks[n.Rank]; dup {
				return fmt.Errorf("rank %d held by pids %d and %d", n.Rank, other, n.PID)
			}
			ranks[n.Rank] = n.PID
		}
		sum := n.RSSBytes
		for _, child := range n.Children {
			if err := check(child); err != nil {
				return err
			}
			sum += child.SubtreeBytes
		}
		if sum != n.SubtreeBytes {
			return fmt.Errorf("pid %d subtree bytes %d, want %d", n.PID, n.SubtreeBytes, sum)
		}
		return nil
	}
	for _, root := range f {
		if err := check(root); err != nil {
			return err
		}
	}
	return nil
}
