package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"codenav/internal/budget"
	"codenav/internal/envelope"
	naverrors "codenav/internal/errors"
	"codenav/internal/hierarchy"
	"codenav/internal/index"
	"codenav/internal/overflow"
)

const (
	defaultMaxResults    = 100
	diagnosticSampleSize = 16
)

// position is the file/line/column triple every symbol-rooted tool takes.
type position struct {
	file string
	line int
	col  int
}

func (p position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.file, p.line, p.col)
}

// intArg returns the integer value of key, or def when the key is absent.
// JSON numbers arrive as float64. A present non-numeric value reports
// ok=false.
func intArg(args map[string]interface{}, key string, def int) (int, bool) {
	v, present := args[key]
	if !present {
		return def, true
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func boolArg(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// positionArgs validates the file/line/column arguments. Failures carry
// RootNotFound: its hints already tell the caller to check the position.
func positionArgs(args map[string]interface{}) (position, error) {
	file, ok := args["file"].(string)
	if !ok || file == "" {
		return position{}, naverrors.New(naverrors.RootNotFound, "'file' argument is required", nil)
	}
	line, ok := intArg(args, "line", 0)
	if !ok || line <= 0 {
		return position{}, naverrors.New(naverrors.RootNotFound, "'line' must be a positive integer", nil)
	}
	col, ok := intArg(args, "column", 0)
	if !ok || col <= 0 {
		return position{}, naverrors.New(naverrors.RootNotFound, "'column' must be a positive integer", nil)
	}
	return position{file: file, line: line, col: col}, nil
}

// boundsArgs reads maxDepth and maxNodes, falling back to the configured
// graph defaults. Non-positive values are rejected; depth above the hard
// ceiling is clamped by the walk itself.
func (s *Server) boundsArgs(args map[string]interface{}) (depth, maxNodes int, err error) {
	depth, ok := intArg(args, "maxDepth", s.graph.MaxDepth)
	if !ok || depth <= 0 {
		return 0, 0, naverrors.New(naverrors.InvalidDepthOrBudget, "'maxDepth' must be a positive integer", nil)
	}
	maxNodes, ok = intArg(args, "maxNodes", s.graph.MaxNodes)
	if !ok || maxNodes <= 0 {
		return 0, 0, naverrors.New(naverrors.InvalidDepthOrBudget, "'maxNodes' must be a positive integer", nil)
	}
	return depth, maxNodes, nil
}

func directionArg(args map[string]interface{}) (hierarchy.Direction, error) {
	v, present := args["direction"]
	if !present {
		return hierarchy.DirectionBoth, nil
	}
	if str, ok := v.(string); ok {
		switch dir := hierarchy.Direction(str); dir {
		case hierarchy.DirectionIncoming, hierarchy.DirectionOutgoing, hierarchy.DirectionBoth:
			return dir, nil
		}
	}
	return "", naverrors.New(naverrors.InvalidDepthOrBudget,
		fmt.Sprintf("'direction' must be incoming, outgoing or both, got %v", v), nil).
		WithHints("valid directions: incoming, outgoing, both")
}

// resolveRoot resolves a position to its symbol. A position the index knows
// nothing about becomes RootNotFound; cancellation propagates unchanged.
func (s *Server) resolveRoot(ctx context.Context, pos position) (index.SymbolRef, error) {
	ref, err := s.idx.ResolveSymbolAtPosition(ctx, pos.file, pos.line, pos.col)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return index.SymbolRef{}, naverrors.New(naverrors.RootNotFound,
				fmt.Sprintf("no symbol at %s", pos), err)
		}
		return index.SymbolRef{}, err
	}
	return ref, nil
}

// toolGetCallHierarchy implements the get_call_hierarchy tool
func (s *Server) toolGetCallHierarchy(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	start := time.Now()
	b := envelope.New("get_call_hierarchy")

	pos, err := positionArgs(args)
	if err != nil {
		return b.Error(err).Build(), nil
	}
	dir, err := directionArg(args)
	if err != nil {
		return b.Error(err).Build(), nil
	}
	depth, maxNodes, err := s.boundsArgs(args)
	if err != nil {
		return b.Error(err).Build(), nil
	}

	root, err := s.resolveRoot(ctx, pos)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	tree, err := s.builder.Build(ctx, root, hierarchy.Options{
		Mode:      hierarchy.ModeCalls,
		Direction: dir,
		MaxDepth:  depth,
		MaxNodes:  maxNodes,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	b.Message(fmt.Sprintf("call hierarchy for %s: %d node(s)", root.Name, tree.NodeCount))
	if err := s.shaper.ShapeGraph(ctx, b, "call-hierarchy:"+root.Name, tree, maxNodes); err != nil {
		return nil, err
	}

	b.WithFreshness(s.freshness)
	b.WithElapsed(time.Since(start))
	return b.Build(), nil
}

// toolGetTypeHierarchy implements the get_type_hierarchy tool
func (s *Server) toolGetTypeHierarchy(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	start := time.Now()
	b := envelope.New("get_type_hierarchy")

	pos, err := positionArgs(args)
	if err != nil {
		return b.Error(err).Build(), nil
	}
	depth, maxNodes, err := s.boundsArgs(args)
	if err != nil {
		return b.Error(err).Build(), nil
	}
	if !boolArg(args, "transitive", true) {
		depth = 1 // immediate relations only
	}

	root, err := s.resolveRoot(ctx, pos)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	tree, err := s.builder.Build(ctx, root, hierarchy.Options{
		Mode:      hierarchy.ModeTypes,
		Direction: hierarchy.DirectionBoth,
		MaxDepth:  depth,
		MaxNodes:  maxNodes,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	b.Message(fmt.Sprintf("type hierarchy for %s: %d node(s)", root.Name, tree.NodeCount))
	if err := s.shaper.ShapeGraph(ctx, b, "type-hierarchy:"+root.Name, tree, maxNodes); err != nil {
		return nil, err
	}

	b.WithFreshness(s.freshness)
	b.WithElapsed(time.Since(start))
	return b.Build(), nil
}

// referenceItem is one reference row in a find_references response.
type referenceItem struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine,omitempty"`
	EndColumn int    `json:"endColumn,omitempty"`
}

// toolFindReferences implements the find_references tool
func (s *Server) toolFindReferences(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	start := time.Now()
	b := envelope.New("find_references")

	pos, err := positionArgs(args)
	if err != nil {
		return b.Error(err).Build(), nil
	}
	maxResults, ok := intArg(args, "maxResults", defaultMaxResults)
	if !ok || maxResults <= 0 {
		return b.Error(naverrors.New(naverrors.InvalidDepthOrBudget,
			"'maxResults' must be a positive integer", nil)).Build(), nil
	}

	root, err := s.resolveRoot(ctx, pos)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	refs, err := s.idx.FindReferences(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	items := make([]interface{}, 0, len(refs))
	for _, ref := range refs {
		items = append(items, referenceItem{
			Path:      ref.Location.Path,
			Line:      ref.Location.Line,
			Column:    ref.Location.Column,
			EndLine:   ref.Location.EndLine,
			EndColumn: ref.Location.EndColumn,
		})
	}
	sortByLocation(items)

	b.Message(fmt.Sprintf("%d reference(s) to %s", len(refs), root.Name))
	if err := s.shaper.ShapeList(ctx, b, "references:"+root.Name, items, maxResults); err != nil {
		return nil, err
	}

	b.WithFreshness(s.freshness)
	b.WithElapsed(time.Since(start))
	return b.Build(), nil
}

// diagnosticItem is one finding row in a get_diagnostics response.
type diagnosticItem struct {
	Severity string `json:"severity"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
}

// toolGetDiagnostics implements the get_diagnostics tool
func (s *Server) toolGetDiagnostics(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	start := time.Now()
	b := envelope.New("get_diagnostics")

	scope, _ := args["scope"].(string)
	if scope == "" {
		scope = "project"
	}
	if scope != "project" && !strings.HasPrefix(scope, "file:") {
		return b.Error(naverrors.New(naverrors.InvalidDepthOrBudget,
			fmt.Sprintf("scope must be 'project' or 'file:<path>', got %q", scope), nil).
			WithHints("pass scope 'project' for the whole project, or 'file:<path>' for one file")).Build(), nil
	}
	maxResults, ok := intArg(args, "maxResults", defaultMaxResults)
	if !ok || maxResults <= 0 {
		return b.Error(naverrors.New(naverrors.InvalidDepthOrBudget,
			"'maxResults' must be a positive integer", nil)).Build(), nil
	}

	diags, err := s.idx.Diagnostics(ctx, scope)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	items := make([]interface{}, 0, len(diags))
	for _, d := range diags {
		items = append(items, diagnosticItem{
			Severity: d.Severity,
			Code:     d.Code,
			Message:  d.Message,
			Path:     d.Location.Path,
			Line:     d.Location.Line,
			Column:   d.Location.Column,
		})
	}
	sortByLocation(items)

	b.Message(fmt.Sprintf("%d diagnostic(s) in %s", len(diags), scope))
	// Diagnostic messages are uniform enough that a sampled mean beats
	// measuring every row.
	costs := budget.SampledCost(items, diagnosticSampleSize)
	if err := s.shaper.ShapeListWith(ctx, b, "diagnostics:"+scope, items, maxResults, costs); err != nil {
		return nil, err
	}

	b.WithFreshness(s.freshness)
	b.WithElapsed(time.Since(start))
	return b.Build(), nil
}

// renameEdit is a single occurrence slot in a rename plan.
type renameEdit struct {
	Line         int  `json:"line"`
	Column       int  `json:"column"`
	EndLine      int  `json:"endLine,omitempty"`
	EndColumn    int  `json:"endColumn,omitempty"`
	IsDefinition bool `json:"isDefinition,omitempty"`
}

// renameFilePlan groups the edits for one file.
type renameFilePlan struct {
	Path  string       `json:"path"`
	Edits []renameEdit `json:"edits"`
}

// toolRenameSymbol implements the rename_symbol tool
func (s *Server) toolRenameSymbol(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	start := time.Now()
	b := envelope.New("rename_symbol")

	pos, err := positionArgs(args)
	if err != nil {
		return b.Error(err).Build(), nil
	}
	newName, _ := args["newName"].(string)
	if newName == "" || strings.ContainsAny(newName, " \t\n") {
		return b.Error(naverrors.New(naverrors.InvalidDepthOrBudget,
			"'newName' must be a non-empty identifier", nil).
			WithHints("newName may not contain whitespace")).Build(), nil
	}

	root, err := s.resolveRoot(ctx, pos)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	occs, err := s.idx.OccurrencesOf(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return b.Error(err).Build(), nil
	}

	byPath := make(map[string]*renameFilePlan)
	for _, occ := range occs {
		plan, ok := byPath[occ.Location.Path]
		if !ok {
			plan = &renameFilePlan{Path: occ.Location.Path}
			byPath[occ.Location.Path] = plan
		}
		plan.Edits = append(plan.Edits, renameEdit{
			Line:         occ.Location.Line,
			Column:       occ.Location.Column,
			EndLine:      occ.Location.EndLine,
			EndColumn:    occ.Location.EndColumn,
			IsDefinition: occ.IsDefinition,
		})
	}

	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	items := make([]interface{}, 0, len(paths))
	for _, path := range paths {
		plan := byPath[path]
		sort.Slice(plan.Edits, func(i, j int) bool {
			if plan.Edits[i].Line != plan.Edits[j].Line {
				return plan.Edits[i].Line < plan.Edits[j].Line
			}
			return plan.Edits[i].Column < plan.Edits[j].Column
		})
		items = append(items, *plan)
	}

	b.Message(fmt.Sprintf("rename %s to %s: %d occurrence(s) across %d file(s)",
		root.Name, newName, len(occs), len(paths)))
	b.Data(map[string]interface{}{
		"symbol":  root.Name,
		"newName": newName,
	})
	if !boolArg(args, "preview", true) {
		b.Warning("applying edits is not supported; returning the edit plan only")
	}
	if err := s.shaper.ShapeList(ctx, b, "rename:"+root.Name, items, 0); err != nil {
		return nil, err
	}

	b.WithFreshness(s.freshness)
	b.WithElapsed(time.Since(start))
	return b.Build(), nil
}

// toolReadOverflowPage implements the read_overflow_page tool
func (s *Server) toolReadOverflowPage(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	start := time.Now()
	b := envelope.New("read_overflow_page")

	id, _ := args["overflowId"].(string)
	if id == "" {
		return b.Error(naverrors.New(naverrors.InvalidDepthOrBudget,
			"'overflowId' argument is required", nil).
			WithHints("use the overflowId from a truncated response")).Build(), nil
	}
	page, ok := intArg(args, "page", 1)
	if !ok || page <= 0 {
		return b.Error(naverrors.New(naverrors.InvalidDepthOrBudget,
			"'page' must be a positive integer", nil)).Build(), nil
	}

	pg, err := s.store.GetPage(ctx, id, page)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if errors.Is(err, overflow.ErrNotFound) {
			return b.Error(naverrors.New(naverrors.OverflowRecordNotFound,
				fmt.Sprintf("overflow record %s page %d not found", id, page), err)).Build(), nil
		}
		return b.Error(err).Build(), nil
	}

	items := make([]interface{}, len(pg.Items))
	for i, raw := range pg.Items {
		items[i] = raw
	}

	b.Message(fmt.Sprintf("page %d of %d for %s", pg.Number, pg.PageCount, pg.Label))
	b.Items(items, pg.TotalCount, len(items))
	if pg.Number < pg.PageCount {
		b.SuggestCall("read_overflow_page",
			map[string]interface{}{"overflowId": id, "page": pg.Number + 1},
			"next page")
	}

	b.WithElapsed(time.Since(start))
	return b.Build(), nil
}

// toolGetStatus implements the get_status tool
func (s *Server) toolGetStatus(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	b := envelope.New("get_status")

	data := map[string]interface{}{
		"version": s.version,
		"project": map[string]interface{}{
			"name":     s.projectName,
			"language": s.projectLanguage,
		},
	}
	if s.freshness != nil {
		data["index"] = s.freshness
	}
	if s.store != nil {
		stats, err := s.store.Stats(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			b.Warning("overflow store stats unavailable: " + err.Error())
		} else {
			data["overflow"] = stats
		}
	}

	b.Message("codenav " + s.version)
	b.Data(data)
	return b.Build(), nil
}

// sortByLocation orders reference and diagnostic rows by path, line, column
// so responses are deterministic regardless of index iteration order.
func sortByLocation(items []interface{}) {
	key := func(v interface{}) (string, int, int) {
		switch it := v.(type) {
		case referenceItem:
			return it.Path, it.Line, it.Column
		case diagnosticItem:
			return it.Path, it.Line, it.Column
		}
		return "", 0, 0
	}
	sort.SliceStable(items, func(i, j int) bool {
		pi, li, ci := key(items[i])
		pj, lj, cj := key(items[j])
		if pi != pj {
			return pi < pj
		}
		if li != lj {
			return li < lj
		}
		return ci < cj
	})
}
