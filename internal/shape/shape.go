package shape

import (
	"context"
	"log/slog"

	"codenav/internal/budget"
	"codenav/internal/envelope"
	"codenav/internal/hierarchy"
	"codenav/internal/overflow"
)

// Shaper turns raw result sets into budgeted response envelopes. When the
// reducer drops items, the full set is written once to the overflow store
// and the envelope points at it.
type Shaper struct {
	store  overflow.Store
	cfg    budget.Config
	logger *slog.Logger
}

// NewShaper creates a shaper over the given overflow store and budget.
func NewShaper(store overflow.Store, cfg budget.Config, logger *slog.Logger) *Shaper {
	return &Shaper{store: store, cfg: cfg, logger: logger}
}

// ShapeList applies the response budget to items and fills b with the kept
// prefix, in source order. On truncation the complete item set is spilled
// under label and the overflow pointer becomes the envelope's first
// advisory. A failing overflow store degrades to a truncated envelope
// without a pointer; the response itself still succeeds.
func (s *Shaper) ShapeList(ctx context.Context, b *envelope.Builder, label string, items []interface{}, requestedMax int) error {
	return s.ShapeListWith(ctx, b, label, items, requestedMax, budget.ItemCosts(items))
}

// ShapeListWith is ShapeList with a caller-supplied cost model, for result
// sets too large or too uniform to be worth measuring item by item.
func (s *Shaper) ShapeListWith(ctx context.Context, b *envelope.Builder, label string, items []interface{}, requestedMax int, costs budget.CostFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	decision := budget.Reduce(len(items), requestedMax, s.cfg, costs)
	b.Items(items[:decision.Returned], decision.Total, decision.Returned)
	b.WithBudget(s.cfg.Budget, decision.EstimatedCost)

	if !decision.Truncated {
		return nil
	}
	b.WithTruncation(true, decision.Returned, decision.Total, string(decision.Reason))
	s.spill(ctx, b, label, items)
	return nil
}

// ShapeGraph budgets a hierarchy tree through its breadth-first flat view,
// then prunes the tree so every kept node still has its complete ancestor
// chain. Parents that lost children are marked truncated. The flat rows
// spill to overflow, so pages read back in level order.
func (s *Shaper) ShapeGraph(ctx context.Context, b *envelope.Builder, label string, tree *hierarchy.Tree, requestedMax int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	flat := hierarchy.Flatten(tree)
	items := make([]interface{}, len(flat))
	for i := range flat {
		items[i] = flat[i]
	}

	decision := budget.Reduce(len(items), requestedMax, s.cfg, budget.ItemCosts(items))
	b.WithBudget(s.cfg.Budget, decision.EstimatedCost)

	if !decision.Truncated {
		b.Tree(tree.Root, decision.Total, decision.Returned)
		return nil
	}

	keep := make(map[string]bool, decision.Returned)
	for _, row := range flat[:decision.Returned] {
		keep[row.Symbol.ID] = true
	}
	pruned := pruneTree(tree, keep)
	b.Tree(pruned.Root, decision.Total, decision.Returned)
	b.WithTruncation(true, decision.Returned, decision.Total, string(decision.Reason))
	s.spill(ctx, b, label, items)
	return nil
}

// spill writes the full result set to the overflow store and attaches the
// pointer to the envelope.
func (s *Shaper) spill(ctx context.Context, b *envelope.Builder, label string, items []interface{}) {
	rec, err := s.store.Put(ctx, label, items)
	if err != nil {
		s.logger.Warn("overflow store rejected spill", "label", label, "items", len(items), "error", err)
		b.WarningWithCode("OVERFLOW_UNAVAILABLE", "full result set could not be stored; rerun with a larger budget to see more")
		return
	}
	b.WithOverflow(rec.ID, rec.PageSize, rec.Pages())
}

// pruneTree returns a copy of tree keeping the nodes in keep plus every
// ancestor of a kept node. The root always survives.
func pruneTree(tree *hierarchy.Tree, keep map[string]bool) *hierarchy.Tree {
	root := pruneNode(tree.Root, keep, true)
	pruned := *tree
	pruned.Root = root
	pruned.NodeCount = countNodes(root)
	return &pruned
}

func pruneNode(n *hierarchy.Node, keep map[string]bool, isRoot bool) *hierarchy.Node {
	var kept []*hierarchy.Node
	dropped := false
	for _, c := range n.Children {
		if pc := pruneNode(c, keep, false); pc != nil {
			kept = append(kept, pc)
		} else {
			dropped = true
		}
	}
	if !isRoot && !keep[n.Symbol.ID] && len(kept) == 0 {
		return nil
	}

	clone := *n
	clone.Children = kept
	if dropped {
		clone.Truncated = true
	}
	return &clone
}

func countNodes(n *hierarchy.Node) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += countNodes(c)
	}
	return count
}
