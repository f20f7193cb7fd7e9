package hierarchy

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"codenav/internal/index"
)

// Builder expands bounded relationship trees over a project index.
type Builder struct {
	idx    index.ProjectIndex
	logger *slog.Logger
	// allowExternal reports whether an external symbol may appear as a
	// leaf on outgoing edges. Nil allows none.
	allowExternal func(index.SymbolRef) bool
}

// NewBuilder creates a builder over idx.
func NewBuilder(idx index.ProjectIndex, logger *slog.Logger) *Builder {
	return &Builder{idx: idx, logger: logger}
}

// AllowExternal installs the allow-list predicate consulted before an
// external symbol is kept on an outgoing edge.
func (b *Builder) AllowExternal(allow func(index.SymbolRef) bool) {
	b.allowExternal = allow
}

type edge struct {
	sym  index.SymbolRef
	kind RelationKind
}

// Build expands a relationship tree around root. Each direction keeps its
// own visited set, so a symbol appears at most once per direction no matter
// how many paths reach it, and cycles terminate. Expansion stops at the
// depth and node budgets; nodes cut off there are marked truncated.
func (b *Builder) Build(ctx context.Context, root index.SymbolRef, opts Options) (*Tree, error) {
	opts = opts.normalized()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rootNode := &Node{Symbol: root, Relation: RelationRoot}
	tree := &Tree{Root: rootNode, Mode: opts.Mode, Direction: opts.Direction, NodeCount: 1}

	if opts.MaxDepth <= 0 {
		rootNode.Truncated = true
		return tree, nil
	}

	if opts.Direction == DirectionIncoming || opts.Direction == DirectionBoth {
		visited := map[string]bool{root.ID: true}
		if err := b.expand(ctx, rootNode, DirectionIncoming, opts, visited, tree); err != nil {
			return nil, err
		}
	}
	if opts.Direction == DirectionOutgoing || opts.Direction == DirectionBoth {
		visited := map[string]bool{root.ID: true}
		if err := b.expand(ctx, rootNode, DirectionOutgoing, opts, visited, tree); err != nil {
			return nil, err
		}
	}

	b.logger.Debug("built hierarchy",
		"mode", string(opts.Mode),
		"direction", string(opts.Direction),
		"root", root.Name,
		"nodes", tree.NodeCount)
	return tree, nil
}

// expand grows one direction of the tree below parent. visited is shared
// across the whole direction: a symbol is claimed (added to visited) before
// its own expansion recurses, and edges to already-claimed symbols are
// dropped rather than duplicated.
func (b *Builder) expand(ctx context.Context, parent *Node, dir Direction, opts Options, visited map[string]bool, tree *Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if parent.Depth >= opts.MaxDepth {
		parent.Truncated = true
		return nil
	}

	edges, err := b.edges(ctx, parent.Symbol, dir, opts.Mode)
	if err != nil {
		return err
	}
	sortEdges(edges)

	for _, e := range edges {
		if visited[e.sym.ID] {
			continue
		}
		if tree.NodeCount >= opts.MaxNodes {
			parent.Truncated = true
			break
		}
		visited[e.sym.ID] = true
		child := &Node{
			Symbol:   e.sym,
			Relation: e.kind,
			Depth:    parent.Depth + 1,
			External: e.sym.External,
		}
		parent.Children = append(parent.Children, child)
		tree.NodeCount++
		if e.sym.External {
			continue // externals are terminal, never expanded
		}
		if err := b.expand(ctx, child, dir, opts, visited, tree); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) edges(ctx context.Context, sym index.SymbolRef, dir Direction, mode Mode) ([]edge, error) {
	switch {
	case mode == ModeTypes && dir == DirectionIncoming:
		return b.incomingTypeEdges(ctx, sym)
	case mode == ModeTypes:
		return b.outgoingTypeEdges(ctx, sym)
	case dir == DirectionIncoming:
		return b.callerEdges(ctx, sym)
	default:
		return b.calleeEdges(ctx, sym)
	}
}

// callerEdges finds the declarations whose bodies reference sym. Reference
// sites outside any known declaration are skipped.
func (b *Builder) callerEdges(ctx context.Context, sym index.SymbolRef) ([]edge, error) {
	refs, err := b.idx.FindReferences(ctx, sym)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	edges := make([]edge, 0, len(refs))
	for _, ref := range refs {
		if ref.IsDefinition {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		span := index.Span{
			StartLine:   ref.Location.Line,
			StartColumn: ref.Location.Column,
			EndLine:     ref.Location.EndLine,
			EndColumn:   ref.Location.EndColumn,
		}
		if span.EndLine == 0 {
			span.EndLine = span.StartLine
		}
		caller, err := b.idx.ResolveEnclosingDeclaration(ctx, ref.Location.Path, span)
		if err != nil {
			if errors.Is(err, index.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if seen[caller.ID] {
			continue
		}
		seen[caller.ID] = true
		edges = append(edges, edge{sym: caller, kind: RelationCaller})
	}
	return edges, nil
}

func (b *Builder) calleeEdges(ctx context.Context, sym index.SymbolRef) ([]edge, error) {
	callees, err := b.idx.OutgoingCalls(ctx, sym)
	if err != nil {
		return nil, err
	}
	edges := make([]edge, 0, len(callees))
	for _, callee := range callees {
		if !b.outgoingAllowed(callee) {
			continue
		}
		edges = append(edges, edge{sym: callee, kind: RelationCallee})
	}
	return edges, nil
}

func (b *Builder) incomingTypeEdges(ctx context.Context, sym index.SymbolRef) ([]edge, error) {
	if sym.Kind.IsType() {
		return b.derivedEdges(ctx, sym)
	}
	return b.overrideEdges(ctx, sym)
}

// derivedEdges finds types deriving from or implementing sym, one level
// down. Transitivity comes from the recursion above.
func (b *Builder) derivedEdges(ctx context.Context, sym index.SymbolRef) ([]edge, error) {
	derived, err := b.idx.FindDerivedTypes(ctx, sym, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	edges := make([]edge, 0, len(derived))
	for _, d := range derived {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		edges = append(edges, edge{sym: d, kind: Classify(sym, d)})
	}

	if sym.Kind == index.KindInterface {
		impls, err := b.idx.FindImplementations(ctx, sym)
		if err != nil {
			return nil, err
		}
		for _, im := range impls {
			if seen[im.ID] {
				continue
			}
			seen[im.ID] = true
			edges = append(edges, edge{sym: im, kind: Classify(sym, im)})
		}
	}
	return edges, nil
}

// overrideEdges finds members overriding or implementing sym. When the
// index records no implementation edges for an abstract class member, the
// container's derived types are probed for same-named members instead.
func (b *Builder) overrideEdges(ctx context.Context, sym index.SymbolRef) ([]edge, error) {
	impls, err := b.idx.FindImplementations(ctx, sym)
	if err != nil {
		return nil, err
	}
	if len(impls) == 0 {
		impls, err = b.probeDerivedMembers(ctx, sym)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	edges := make([]edge, 0, len(impls))
	for _, im := range impls {
		if seen[im.ID] {
			continue
		}
		seen[im.ID] = true
		edges = append(edges, edge{sym: im, kind: Classify(sym, im)})
	}
	return edges, nil
}

// probeDerivedMembers handles indexers that emit no implementation edge for
// abstract class members: walk every type derived from the member's
// container and take the members whose name matches.
func (b *Builder) probeDerivedMembers(ctx context.Context, sym index.SymbolRef) ([]index.SymbolRef, error) {
	if !sym.Modifiers.Abstract || sym.ContainerID == "" {
		return nil, nil
	}
	container, err := b.idx.Symbol(ctx, sym.ContainerID)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if container.Kind == index.KindInterface {
		return nil, nil
	}

	derived, err := b.idx.FindDerivedTypes(ctx, container, true)
	if err != nil {
		return nil, err
	}
	var hits []index.SymbolRef
	for _, d := range derived {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members, err := b.idx.Members(ctx, d)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.Name == sym.Name {
				hits = append(hits, m)
			}
		}
	}
	return hits, nil
}

func (b *Builder) outgoingTypeEdges(ctx context.Context, sym index.SymbolRef) ([]edge, error) {
	if sym.Kind.IsType() {
		bases, err := b.idx.BaseTypes(ctx, sym)
		if err != nil {
			return nil, err
		}
		edges := make([]edge, 0, len(bases))
		for _, base := range bases {
			if !b.outgoingAllowed(base) {
				continue
			}
			edges = append(edges, edge{sym: base, kind: RelationBaseType})
		}
		return edges, nil
	}

	base, ok, err := b.idx.OverriddenMember(ctx, sym)
	if err != nil {
		return nil, err
	}
	if !ok || !b.outgoingAllowed(base) {
		return nil, nil
	}
	return []edge{{sym: base, kind: RelationBaseMember}}, nil
}

func (b *Builder) outgoingAllowed(sym index.SymbolRef) bool {
	if !sym.External {
		return true
	}
	return b.allowExternal != nil && b.allowExternal(sym)
}

// sortEdges orders siblings by declaration location, then symbol ID, so
// tree shape is deterministic across runs.
func sortEdges(edges []edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i].sym, edges[j].sym
		if a.Location.Path != b.Location.Path {
			return a.Location.Path < b.Location.Path
		}
		if a.Location.Line != b.Location.Line {
			return a.Location.Line < b.Location.Line
		}
		if a.Location.Column != b.Location.Column {
			return a.Location.Column < b.Location.Column
		}
		return a.ID < b.ID
	})
}
