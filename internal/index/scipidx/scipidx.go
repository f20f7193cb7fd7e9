// Package scipidx answers the symbol-index contract from a SCIP index file.
// The whole index is held in memory as lookup tables built once at Load;
// an Index is immutable afterwards and safe for concurrent use.
package scipidx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codenav/internal/index"
	"codenav/internal/symbols"
)

// Index is an in-memory ProjectIndex over one loaded SCIP index.
type Index struct {
	path      string
	root      string
	indexedAt time.Time
	loadedAt  time.Time
	tool      string
	logger    *slog.Logger
	maxLines  int
	scanner   *symbols.Scanner

	docs       []*document
	docsByPath map[string]*document
	symbols    map[string]index.SymbolRef
	defs       map[string]index.Location
	occs       map[string][]index.Reference
	bases      map[string][]string // symbol -> its implementation targets (supertypes, overridden members)
	impls      map[string][]string // reverse of bases
	members    map[string][]string // container -> declared member IDs
	diags      []index.Diagnostic
}

var _ index.ProjectIndex = (*Index)(nil)

// Stats describes the loaded index for status reporting.
type Stats struct {
	Path      string
	Tool      string
	IndexedAt time.Time
	LoadedAt  time.Time
	Documents int
	Symbols   int
}

// Stats returns the loaded index's vital numbers.
func (x *Index) Stats() Stats {
	return Stats{
		Path:      x.path,
		Tool:      x.tool,
		IndexedAt: x.indexedAt,
		LoadedAt:  x.loadedAt,
		Documents: len(x.docs),
		Symbols:   len(x.symbols),
	}
}

// ResolveSymbolAtPosition resolves the symbol whose occurrence covers the
// given 1-indexed position. When occurrences nest, the narrowest one wins.
func (x *Index) ResolveSymbolAtPosition(ctx context.Context, doc string, line, col int) (index.SymbolRef, error) {
	if err := ctx.Err(); err != nil {
		return index.SymbolRef{}, err
	}

	d, ok := x.docsByPath[doc]
	if !ok {
		return index.SymbolRef{}, fmt.Errorf("%w: document %s is not in the index", index.ErrNotFound, doc)
	}

	best := -1
	for i, occ := range d.occurrences {
		if !occ.span.Contains(line, col) {
			continue
		}
		if best < 0 || narrower(occ.span, d.occurrences[best].span) {
			best = i
		}
	}
	if best < 0 {
		return index.SymbolRef{}, fmt.Errorf("%w: no symbol at %s:%d:%d", index.ErrNotFound, doc, line, col)
	}

	return x.symbols[d.occurrences[best].symbolID], nil
}

func narrower(a, b index.Span) bool {
	al := a.EndLine - a.StartLine
	bl := b.EndLine - b.StartLine
	if al != bl {
		return al < bl
	}
	return a.EndColumn-a.StartColumn < b.EndColumn-b.StartColumn
}

// FindReferences returns every non-definition occurrence of the symbol.
func (x *Index) FindReferences(ctx context.Context, sym index.SymbolRef) ([]index.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var refs []index.Reference
	for _, r := range x.occs[sym.ID] {
		if r.IsDefinition {
			continue
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// OccurrencesOf returns every occurrence of the symbol, definitions
// included, in document order.
func (x *Index) OccurrencesOf(ctx context.Context, sym index.SymbolRef) ([]index.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := x.occs[sym.ID]
	refs := make([]index.Reference, len(src))
	copy(refs, src)
	return refs, nil
}

// FindImplementations returns the symbols that declare an implementation
// relationship to the given symbol: implementing types for an interface,
// overriding members for a member.
func (x *Index) FindImplementations(ctx context.Context, sym index.SymbolRef) ([]index.SymbolRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return x.resolveAll(x.impls[sym.ID]), nil
}

// FindDerivedTypes returns the types derived from the given type symbol,
// transitively when transitive is true.
func (x *Index) FindDerivedTypes(ctx context.Context, typeSym index.SymbolRef, transitive bool) ([]index.SymbolRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !transitive {
		return x.derivedOf(typeSym.ID), nil
	}

	visited := map[string]bool{typeSym.ID: true}
	var all []index.SymbolRef
	queue := []string{typeSym.ID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range x.derivedOf(cur) {
			if visited[d.ID] {
				continue
			}
			visited[d.ID] = true
			all = append(all, d)
			queue = append(queue, d.ID)
		}
	}
	return all, nil
}

func (x *Index) derivedOf(id string) []index.SymbolRef {
	var out []index.SymbolRef
	for _, impl := range x.impls[id] {
		ref, ok := x.symbols[impl]
		if !ok || !ref.Kind.IsType() {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// BaseTypes returns the immediate supertypes the given type extends or
// implements.
func (x *Index) BaseTypes(ctx context.Context, sym index.SymbolRef) ([]index.SymbolRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []index.SymbolRef
	for _, id := range x.bases[sym.ID] {
		ref, ok := x.symbols[id]
		if !ok || !ref.Kind.IsType() {
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

// OverriddenMember returns the member the given member directly overrides
// or implements, and false at the top of the chain.
func (x *Index) OverriddenMember(ctx context.Context, sym index.SymbolRef) (index.SymbolRef, bool, error) {
	if err := ctx.Err(); err != nil {
		return index.SymbolRef{}, false, err
	}

	for _, id := range x.bases[sym.ID] {
		ref, ok := x.symbols[id]
		if !ok || ref.Kind.IsType() {
			continue
		}
		return ref, true, nil
	}
	return index.SymbolRef{}, false, nil
}

// ResolveEnclosingDeclaration resolves the declaration whose inferred body
// range contains the start of the given span.
func (x *Index) ResolveEnclosingDeclaration(ctx context.Context, doc string, span index.Span) (index.SymbolRef, error) {
	if err := ctx.Err(); err != nil {
		return index.SymbolRef{}, err
	}

	d, ok := x.docsByPath[doc]
	if !ok {
		return index.SymbolRef{}, fmt.Errorf("%w: document %s is not in the index", index.ErrNotFound, doc)
	}

	line := span.StartLine
	// Last declaration starting at or before the span start.
	i := sort.Search(len(d.declRanges), func(i int) bool {
		return d.declRanges[i].start > line
	}) - 1
	if i < 0 || line > d.declRanges[i].end {
		if ref, ok := x.scanEnclosing(ctx, d, line); ok {
			return ref, nil
		}
		return index.SymbolRef{}, fmt.Errorf("%w: no declaration encloses %s:%d", index.ErrNotFound, doc, line)
	}

	return x.symbols[d.declRanges[i].symbolID], nil
}

// scanEnclosing recovers an enclosing declaration from source when the
// index has no usable body range for a position, which happens when the
// indexer records a definition without a kind the range builder maps. The
// scanned declaration still has to match a definition occurrence in the
// index; source the index never saw stays unresolvable. Without CGO the
// scanner reports ErrNoCGO and the lookup stays index-only.
func (x *Index) scanEnclosing(ctx context.Context, d *document, line int) (index.SymbolRef, bool) {
	lang, ok := symbols.LanguageFromExtension(strings.ToLower(filepath.Ext(d.relativePath)))
	if !ok {
		return index.SymbolRef{}, false
	}

	src, err := os.ReadFile(filepath.Join(x.root, d.relativePath))
	if err != nil {
		return index.SymbolRef{}, false
	}

	decl, ok, err := x.scanner.EnclosingDeclaration(ctx, src, lang, line)
	if err != nil || !ok {
		return index.SymbolRef{}, false
	}

	// Map the scanned declaration back onto an indexed symbol: a matching
	// definition occurrence on the declaration's first line.
	for _, occ := range d.occurrences {
		if !occ.isDefinition || occ.span.StartLine != decl.StartLine {
			continue
		}
		ref, ok := x.symbols[occ.symbolID]
		if ok && ref.Name == decl.Name {
			x.logger.Debug("enclosing declaration recovered from source",
				"doc", d.relativePath, "line", line, "symbol", ref.ID)
			return ref, true
		}
	}
	return index.SymbolRef{}, false
}

// DeclarationLocation returns the declaration location of a symbol, and
// false for symbols with no source in the index.
func (x *Index) DeclarationLocation(sym index.SymbolRef) (index.Location, bool) {
	loc, ok := x.defs[sym.ID]
	return loc, ok
}

// OutgoingCalls returns the callable symbols referenced from within the
// declaration range of sym, in occurrence order.
func (x *Index) OutgoingCalls(ctx context.Context, sym index.SymbolRef) ([]index.SymbolRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc, ok := x.defs[sym.ID]
	if !ok {
		return nil, nil
	}
	d, ok := x.docsByPath[loc.Path]
	if !ok {
		return nil, nil
	}

	r, ok := d.rangeBySym[sym.ID]
	if !ok {
		r = declRange{symbolID: sym.ID, start: loc.Line, end: loc.Line + x.maxLines}
	}

	var out []index.SymbolRef
	seen := make(map[string]bool)
	for _, occ := range d.occurrences {
		if occ.symbolID == sym.ID || occ.isDefinition {
			continue
		}
		if occ.span.StartLine < r.start || occ.span.StartLine > r.end {
			continue
		}
		if seen[occ.symbolID] {
			continue
		}
		ref, ok := x.symbols[occ.symbolID]
		if !ok {
			continue
		}
		if ref.Kind != index.KindFunction && ref.Kind != index.KindMethod && !isCallableID(occ.symbolID) {
			continue
		}
		seen[occ.symbolID] = true
		out = append(out, ref)
	}
	return out, nil
}

// Members returns the members declared by the given type.
func (x *Index) Members(ctx context.Context, typeSym index.SymbolRef) ([]index.SymbolRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return x.resolveAll(x.members[typeSym.ID]), nil
}

// Symbol resolves a stable symbol ID back to its ref.
func (x *Index) Symbol(ctx context.Context, id string) (index.SymbolRef, error) {
	if err := ctx.Err(); err != nil {
		return index.SymbolRef{}, err
	}

	ref, ok := x.symbols[id]
	if !ok {
		return index.SymbolRef{}, fmt.Errorf("%w: unknown symbol %s", index.ErrNotFound, id)
	}
	return ref, nil
}

// Diagnostics returns the analyzer findings recorded in the index for the
// given scope: "project" for everything, "file:<path>" for one document.
func (x *Index) Diagnostics(ctx context.Context, scope string) ([]index.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case scope == "" || scope == "project":
		out := make([]index.Diagnostic, len(x.diags))
		copy(out, x.diags)
		return out, nil
	case strings.HasPrefix(scope, "file:"):
		path := strings.TrimPrefix(scope, "file:")
		var out []index.Diagnostic
		for _, diag := range x.diags {
			if diag.Location.Path == path {
				out = append(out, diag)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown diagnostics scope %q", scope)
	}
}

func (x *Index) resolveAll(ids []string) []index.SymbolRef {
	var out []index.SymbolRef
	for _, id := range ids {
		if ref, ok := x.symbols[id]; ok {
			out = append(out, ref)
		}
	}
	return out
}
