package tree

import "github.com/srodi/memon/pkg/types"

// Build reconstructs one tree per root from a flat snapshot.
//
// The snapshot comes from a live process table, so parent links are not
// trusted: a record whose parent is missing is simply parentless, a PID is
// never entered twice (which breaks self-parent and cyclic chains), and a
// root already attached under an earlier root is not repeated. Roots absent
// from the snapshot are skipped.
func Build(records []types.ProcessRecord, roots []int) Forest {
	byPID := make(map[int]types.ProcessRecord, len(records))
	children := make(map[int][]int, len(records))
	for _, rec := range records {
		if _, dup := byPID[rec.PID]; dup {
			continue
		}
		byPID[rec.PID] = rec
		children[rec.PPID] = append(children[rec.PPID], rec.PID)
	}

	visited := make(map[int]struct{}, len(records))
	forest := make(Forest, 0, len(roots))
	for _, pid := range roots {
		if _, done := visited[pid]; done {
			continue
		}
		rec, ok := byPID[pid]
		if !ok {
			continue
		}
		forest = append(forest, attach(rec, byPID, children, visited))
	}
	return forest
}

func attach(rec types.ProcessRecord, byPID map[int]types.ProcessRecord, children map[int][]int, visited map[int]struct{}) *Node {
	visited[rec.PID] = struct{}{}
	node := &Node{ProcessRecord: rec}
	for _, pid := range children[rec.PID] {
		if _, done := visited[pid]; done {
			continue
		}
		node.Children = append(node.Children, attach(byPID[pid], byPID, children, visited))
	}
	return node
}
