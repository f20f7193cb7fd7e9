package scipidx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"codenav/internal/config"
	naverrors "codenav/internal/errors"
	"codenav/internal/index"
	"codenav/internal/symbols"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// occurrence is one symbol occurrence, positions already 1-indexed.
type occurrence struct {
	symbolID     string
	span         index.Span
	isDefinition bool
}

// declRange is the inferred body extent of one declaration, 1-indexed lines.
type declRange struct {
	symbolID string
	start    int
	end      int
}

// document holds the per-file lookup structures.
type document struct {
	relativePath string
	language     string
	occurrences  []occurrence // sorted by start position
	declRanges   []declRange  // sorted by start line
	rangeBySym   map[string]declRange
}

// Load reads and parses the SCIP index file for a project. The returned
// Index is immutable; reloading means calling Load again.
func Load(projectRoot string, cfg config.IndexConfig, logger *slog.Logger) (*Index, error) {
	path := cfg.ScipPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectRoot, path)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, naverrors.New(naverrors.IndexUnavailable,
			fmt.Sprintf("SCIP index not found at %s", path), err)
	}
	if err != nil {
		return nil, naverrors.New(naverrors.IndexUnavailable,
			fmt.Sprintf("failed to stat SCIP index at %s", path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, naverrors.New(naverrors.IndexUnavailable,
			fmt.Sprintf("failed to read SCIP index from %s", path), err)
	}

	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, naverrors.New(naverrors.IndexUnavailable,
			fmt.Sprintf("failed to parse SCIP index from %s", path), err)
	}

	maxLines := cfg.MaxFunctionLines
	if maxLines <= 0 {
		maxLines = 500
	}

	idx := &Index{
		path:       path,
		root:       projectRoot,
		indexedAt:  info.ModTime(),
		loadedAt:   time.Now(),
		logger:     logger,
		maxLines:   maxLines,
		scanner:    symbols.NewScanner(),
		docsByPath: make(map[string]*document),
		symbols:    make(map[string]index.SymbolRef),
		defs:       make(map[string]index.Location),
		occs:       make(map[string][]index.Reference),
		bases:      make(map[string][]string),
		impls:      make(map[string][]string),
		members:    make(map[string][]string),
	}
	if meta := raw.Metadata; meta != nil && meta.ToolInfo != nil {
		idx.tool = meta.ToolInfo.Name
		if meta.ToolInfo.Version != "" {
			idx.tool += " " + meta.ToolInfo.Version
		}
	}

	idx.build(&raw, maxLines)

	logger.Info("SCIP index loaded",
		"path", path,
		"documents", len(idx.docs),
		"symbols", len(idx.symbols),
		"tool", idx.tool)

	return idx, nil
}

// build converts the raw protobuf index into the lookup tables. Two passes:
// the first collects occurrences, definitions and raw symbol information
// across all documents; the second resolves refs, since externality and
// container kinds are only known once every definition has been seen.
func (x *Index) build(raw *scippb.Index, maxLines int) {
	rawInfo := make(map[string]*scippb.SymbolInformation)
	order := make([]string, 0, len(raw.Documents)*8)
	seen := make(map[string]bool)
	note := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		order = append(order, id)
	}

	for _, sym := range raw.ExternalSymbols {
		rawInfo[sym.Symbol] = sym
		note(sym.Symbol)
	}

	for _, rawDoc := range raw.Documents {
		doc := &document{
			relativePath: rawDoc.RelativePath,
			language:     rawDoc.Language,
			rangeBySym:   make(map[string]declRange),
		}

		for _, sym := range rawDoc.Symbols {
			rawInfo[sym.Symbol] = sym
			note(sym.Symbol)
		}

		for _, occ := range rawDoc.Occurrences {
			span, ok := rangeToSpan(occ.Range)
			if !ok {
				continue
			}
			isDef := occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0
			doc.occurrences = append(doc.occurrences, occurrence{
				symbolID:     occ.Symbol,
				span:         span,
				isDefinition: isDef,
			})
			note(occ.Symbol)

			if isDef {
				if _, exists := x.defs[occ.Symbol]; !exists {
					x.defs[occ.Symbol] = index.Location{
						Path:      doc.relativePath,
						Line:      span.StartLine,
						Column:    span.StartColumn,
						EndLine:   span.EndLine,
						EndColumn: span.EndColumn,
					}
				}
			}

			for _, diag := range occ.Diagnostics {
				x.diags = append(x.diags, index.Diagnostic{
					Severity: severityString(diag.Severity),
					Code:     diag.Code,
					Message:  diag.Message,
					Location: index.Location{
						Path:      doc.relativePath,
						Line:      span.StartLine,
						Column:    span.StartColumn,
						EndLine:   span.EndLine,
						EndColumn: span.EndColumn,
					},
				})
			}
		}

		sort.SliceStable(doc.occurrences, func(i, j int) bool {
			a, b := doc.occurrences[i].span, doc.occurrences[j].span
			if a.StartLine != b.StartLine {
				return a.StartLine < b.StartLine
			}
			return a.StartColumn < b.StartColumn
		})

		x.docs = append(x.docs, doc)
		x.docsByPath[doc.relativePath] = doc
	}

	// Second pass: one SymbolRef per ID. A symbol without a definition
	// occurrence anywhere in the index is declared outside the project.
	for _, id := range order {
		parsed := parseSymbolID(id)
		info := rawInfo[id]

		name := parsed.simpleName()
		kind := index.KindUnknown
		var docStrings []string
		container := ""
		if info != nil {
			if info.DisplayName != "" {
				name = info.DisplayName
			}
			kind = mapKind(info.Kind)
			docStrings = info.Documentation
			container = info.EnclosingSymbol
		}
		if kind == index.KindUnknown {
			kind = inferKind(parsed.descriptor)
		}
		if container == "" {
			container = parsed.containerID()
		}

		loc, hasDef := x.defs[id]

		ref := index.SymbolRef{
			ID:          id,
			Name:        name,
			Kind:        kind,
			Location:    loc,
			ContainerID: container,
			External:    !hasDef,
			Modifiers: index.Modifiers{
				Abstract: hasSignatureWord(docStrings, "abstract"),
				Virtual:  hasSignatureWord(docStrings, "virtual"),
				Override: hasSignatureWord(docStrings, "override"),
				Sealed:   hasSignatureWord(docStrings, "sealed"),
				Static:   hasSignatureWord(docStrings, "static"),
			},
		}
		x.symbols[id] = ref

		if container != "" {
			x.members[container] = append(x.members[container], id)
		}
		if info != nil {
			for _, rel := range info.Relationships {
				if rel.IsImplementation {
					x.bases[id] = append(x.bases[id], rel.Symbol)
					x.impls[rel.Symbol] = append(x.impls[rel.Symbol], id)
				}
			}
		}
	}

	// Interface members are implicitly abstract whatever the signature says.
	for id, ref := range x.symbols {
		if ref.Kind.IsType() || ref.ContainerID == "" {
			continue
		}
		if c, ok := x.symbols[ref.ContainerID]; ok && c.Kind == index.KindInterface {
			ref.Modifiers.Abstract = true
			x.symbols[id] = ref
		}
	}

	// Occurrence lists per symbol, in document order.
	for _, doc := range x.docs {
		for _, occ := range doc.occurrences {
			x.occs[occ.symbolID] = append(x.occs[occ.symbolID], index.Reference{
				Location: index.Location{
					Path:      doc.relativePath,
					Line:      occ.span.StartLine,
					Column:    occ.span.StartColumn,
					EndLine:   occ.span.EndLine,
					EndColumn: occ.span.EndColumn,
				},
				SymbolID:     occ.symbolID,
				IsDefinition: occ.isDefinition,
			})
		}
		x.buildDeclRanges(doc, maxLines)
	}
}

// buildDeclRanges infers the body extent of each declaration in a document.
// Indexers rarely emit enclosing ranges, so a declaration is assumed to run
// to the line before the next declaration, or maxLines past its own start
// for the last one.
func (x *Index) buildDeclRanges(doc *document, maxLines int) {
	var decls []declRange
	for _, occ := range doc.occurrences {
		if !occ.isDefinition {
			continue
		}
		ref, ok := x.symbols[occ.symbolID]
		if !ok {
			continue
		}
		switch ref.Kind {
		case index.KindFunction, index.KindMethod,
			index.KindClass, index.KindInterface, index.KindStruct, index.KindEnum:
			decls = append(decls, declRange{symbolID: occ.symbolID, start: occ.span.StartLine})
		}
	}

	sort.SliceStable(decls, func(i, j int) bool { return decls[i].start < decls[j].start })

	for i := range decls {
		decls[i].end = decls[i].start + maxLines
		if i+1 < len(decls) {
			decls[i].end = decls[i+1].start - 1
		}
	}

	doc.declRanges = decls
	for _, d := range decls {
		if _, exists := doc.rangeBySym[d.symbolID]; !exists {
			doc.rangeBySym[d.symbolID] = d
		}
	}
}

// rangeToSpan converts a SCIP range to a 1-indexed span.
// SCIP ranges are 0-indexed: [startLine, startChar, endChar] when the range
// is on one line, [startLine, startChar, endLine, endChar] otherwise.
func rangeToSpan(r []int32) (index.Span, bool) {
	if len(r) < 3 {
		return index.Span{}, false
	}
	span := index.Span{
		StartLine:   int(r[0]) + 1,
		StartColumn: int(r[1]) + 1,
	}
	if len(r) == 3 {
		span.EndLine = span.StartLine
		span.EndColumn = int(r[2]) + 1
	} else {
		span.EndLine = int(r[2]) + 1
		span.EndColumn = int(r[3]) + 1
	}
	return span, true
}

func severityString(s scippb.Severity) string {
	switch s {
	case scippb.Severity_Error:
		return "error"
	case scippb.Severity_Warning:
		return "warning"
	case scippb.Severity_Information:
		return "info"
	case scippb.Severity_Hint:
		return "hint"
	default:
		return "info"
	}
}
