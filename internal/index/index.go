package index

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that resolve nothing: no symbol at a
// position, no declaration enclosing a span. It means "the index has no
// answer", not "the index is broken"; callers translate it into a
// user-facing error kind at the tool boundary.
var ErrNotFound = errors.New("not found")

// SymbolKind classifies a symbol at the granularity the navigation tools
// care about.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindStruct    SymbolKind = "struct"
	KindEnum      SymbolKind = "enum"
	KindField     SymbolKind = "field"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindNamespace SymbolKind = "namespace"
	KindUnknown   SymbolKind = "unknown"
)

// IsType reports whether the kind names a type declaration (the kinds that
// can have derived types).
func (k SymbolKind) IsType() bool {
	switch k {
	case KindClass, KindInterface, KindStruct, KindEnum:
		return true
	}
	return false
}

// Modifiers captures the declaration modifiers relevant to override
// hierarchy construction.
type Modifiers struct {
	Abstract bool
	Virtual  bool
	Override bool
	Sealed   bool
	Static   bool
}

// Location represents a position or range in source code.
type Location struct {
	// Path is the file path relative to the project root.
	Path string

	// Line is the line number (1-indexed).
	Line int

	// Column is the column number (1-indexed).
	Column int

	// EndLine is the end line (for ranges).
	EndLine int

	// EndColumn is the end column (for ranges).
	EndColumn int
}

// Span is a range within a single document, without the document path.
type Span struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Contains reports whether the span contains the given 1-indexed position.
func (s Span) Contains(line, col int) bool {
	if line < s.StartLine || line > s.EndLine {
		return false
	}
	if line == s.StartLine && col < s.StartColumn {
		return false
	}
	if line == s.EndLine && s.EndColumn > 0 && col > s.EndColumn {
		return false
	}
	return true
}

// SymbolRef is the opaque, stable identity of a code element as the index
// returned it. Immutable once obtained; two refs denote the same element
// iff their IDs are equal.
type SymbolRef struct {
	// ID is the stable identity string (the SCIP symbol for indexed code).
	ID string

	// Name is the human-readable display name.
	Name string

	// Kind is the symbol kind.
	Kind SymbolKind

	// Location is the primary declaration location. Zero for symbols with
	// no source (external, compiled-only).
	Location Location

	// ContainerID is the ID of the declaring type or namespace, empty at
	// top level.
	ContainerID string

	// Modifiers are the declaration modifiers.
	Modifiers Modifiers

	// External marks symbols declared outside the project's own source
	// (dependencies, vendored code, the standard library).
	External bool
}

// Valid reports whether the ref denotes a symbol at all.
func (r SymbolRef) Valid() bool { return r.ID != "" }

// Reference is a single occurrence of a symbol in source.
type Reference struct {
	// Location is where the occurrence appears.
	Location Location

	// SymbolID is the stable ID of the referenced symbol.
	SymbolID string

	// IsDefinition marks the defining occurrence.
	IsDefinition bool
}

// Diagnostic is one analyzer finding attached to a location.
type Diagnostic struct {
	// Severity is one of "error", "warning", "info", "hint".
	Severity string

	// Code is the analyzer-specific diagnostic code, if any.
	Code string

	// Message is the human-readable diagnostic text.
	Message string

	// Location is where the finding applies.
	Location Location
}

// ProjectIndex is the symbol-index capability contract the navigation core
// consumes. Implementations answer from a prebuilt index; they never parse
// or type-check source themselves. All methods honor ctx cancellation.
type ProjectIndex interface {
	// ResolveSymbolAtPosition resolves the symbol whose occurrence covers
	// the given 1-indexed position. Returns ErrNotFound if nothing is
	// there.
	ResolveSymbolAtPosition(ctx context.Context, doc string, line, col int) (SymbolRef, error)

	// FindReferences returns every non-definition occurrence of the
	// symbol across the project. Empty result is not an error.
	FindReferences(ctx context.Context, sym SymbolRef) ([]Reference, error)

	// FindImplementations returns the symbols that directly implement or
	// override the given symbol.
	FindImplementations(ctx context.Context, sym SymbolRef) ([]SymbolRef, error)

	// FindDerivedTypes returns the types derived from the given type
	// symbol, transitively when transitive is true.
	FindDerivedTypes(ctx context.Context, typeSym SymbolRef, transitive bool) ([]SymbolRef, error)

	// ResolveEnclosingDeclaration resolves the declaration (function,
	// method, type) whose body encloses the given span. Returns
	// ErrNotFound when the span is outside any known declaration.
	ResolveEnclosingDeclaration(ctx context.Context, doc string, span Span) (SymbolRef, error)

	// DeclarationLocation returns the declaration location of a symbol,
	// and false for symbols with no source.
	DeclarationLocation(sym SymbolRef) (Location, bool)

	// OverriddenMember returns the member the given member directly
	// overrides, and false at the top of the chain.
	OverriddenMember(ctx context.Context, sym SymbolRef) (SymbolRef, bool, error)

	// OutgoingCalls returns the callable symbols referenced from within the
	// declaration range of sym.
	OutgoingCalls(ctx context.Context, sym SymbolRef) ([]SymbolRef, error)

	// BaseTypes returns the immediate supertypes the given type extends or
	// implements.
	BaseTypes(ctx context.Context, sym SymbolRef) ([]SymbolRef, error)

	// Members returns the members declared by the given type.
	Members(ctx context.Context, typeSym SymbolRef) ([]SymbolRef, error)

	// Symbol resolves a stable symbol ID back to its ref. Returns
	// ErrNotFound for IDs the index has never seen.
	Symbol(ctx context.Context, id string) (SymbolRef, error)

	// OccurrencesOf returns every occurrence of the symbol, definitions
	// included, in document order.
	OccurrencesOf(ctx context.Context, sym SymbolRef) ([]Reference, error)

	// Diagnostics returns the analyzer findings recorded in the index for
	// the given scope: "project" or "file:<path>".
	Diagnostics(ctx context.Context, scope string) ([]Diagnostic, error)
}
