package tree

import "sort"

// Annotate fills SubtreeBytes and Rank for every node and returns the same
// forest. It only reads the nodes' own RSS values, so running it again on an
// unchanged forest yields identical results.
func Annotate(f Forest) Forest {
	for _, root := range f {
		sumSubtree(root)
	}

	nodes := f.Nodes()
	for _, n := range nodes {
		n.Rank = 0
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].RSSBytes == nodes[j].RSSBytes {
			return nodes[i].PID < nodes[j].PID
		}
		return nodes[i].RSSBytes > nodes[j].RSSBytes
	})
	for i := 0; i < len(nodes) && i < RankCount; i++ {
		nodes[i].Rank = i + 1
	}
	return f
}

// sumSubtree computes totals bottom-up.
func sumSubtree(n *Node) uint64 {
	total := n.RSSBytes
	for _, child := range n.Children {
		total += sumSubtree(child)
	}
	n.SubtreeBytes = total
	return total
}

// Ranked returns the ranked nodes ordered by rank.
func (f Forest) Ranked() []*Node {
	ranked := make([]*Node, 0, RankCount)
	for _, n := range f.Nodes() {
		if n.Rank != 0 {
			ranked = append(ranked, n)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	return ranked
}
