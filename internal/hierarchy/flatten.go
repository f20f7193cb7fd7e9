package hierarchy

import "codenav/internal/index"

// FlatNode is one row of a breadth-first flattening of a Tree.
type FlatNode struct {
	Symbol    index.SymbolRef `json:"symbol"`
	Relation  RelationKind    `json:"relation"`
	Depth     int             `json:"depth"`
	External  bool            `json:"external,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
}

// Flatten walks the tree breadth-first from the root and returns every
// symbol exactly once, in level order. The root's children carry the
// incoming group before the outgoing group, so when both directions reached
// the same symbol the incoming occurrence wins.
func Flatten(tree *Tree) []FlatNode {
	if tree == nil || tree.Root == nil {
		return nil
	}
	visited := make(map[string]bool)
	out := make([]FlatNode, 0, tree.NodeCount)
	queue := []*Node{tree.Root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n.Symbol.ID] {
			continue
		}
		visited[n.Symbol.ID] = true
		out = append(out, FlatNode{
			Symbol:    n.Symbol,
			Relation:  n.Relation,
			Depth:     n.Depth,
			External:  n.External,
			Truncated: n.Truncated,
		})
		queue = append(queue, n.Children...)
	}
	return out
}
