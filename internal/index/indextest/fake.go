package indextest

import (
	"context"
	"fmt"
	"sync"

	"codenav/internal/index"
)

// FakeIndex is a scriptable in-memory ProjectIndex for tests. Populate it
// with AddSymbol and the relation helpers, then hand it to the code under
// test. Every method observes ctx and invokes the OnCall hook first, which
// lets tests cancel a traversal partway through.
type FakeIndex struct {
	mu sync.Mutex

	Symbols     map[string]index.SymbolRef
	References  map[string][]index.Reference
	Impls       map[string][]string
	Derived     map[string][]string
	Bases       map[string][]string
	Overrides   map[string]string
	Calls       map[string][]string
	TypeMembers map[string][]string
	Positions   map[string]string // "path:line:col" -> symbol ID
	Enclosing   map[string]string // "path:line" -> symbol ID
	Findings    map[string][]index.Diagnostic

	OnCall    func(method string)
	CallCount int
}

// New returns an empty FakeIndex ready to be populated.
func New() *FakeIndex {
	return &FakeIndex{
		Symbols:     make(map[string]index.SymbolRef),
		References:  make(map[string][]index.Reference),
		Impls:       make(map[string][]string),
		Derived:     make(map[string][]string),
		Bases:       make(map[string][]string),
		Overrides:   make(map[string]string),
		Calls:       make(map[string][]string),
		TypeMembers: make(map[string][]string),
		Positions:   make(map[string]string),
		Enclosing:   make(map[string]string),
		Findings:    make(map[string][]index.Diagnostic),
	}
}

// Fn is shorthand for a function symbol declared at path:line.
func Fn(id, name, path string, line int) index.SymbolRef {
	return index.SymbolRef{
		ID:   id,
		Name: name,
		Kind: index.KindFunction,
		Location: index.Location{
			Path: path, Line: line, Column: 1,
			EndLine: line, EndColumn: 40,
		},
	}
}

// Type is shorthand for a type symbol declared at path:line.
func Type(id, name string, kind index.SymbolKind, path string, line int) index.SymbolRef {
	return index.SymbolRef{
		ID:   id,
		Name: name,
		Kind: kind,
		Location: index.Location{
			Path: path, Line: line, Column: 1,
			EndLine: line, EndColumn: 40,
		},
	}
}

// Method is shorthand for a method symbol owned by containerID.
func Method(id, name, containerID, path string, line int) index.SymbolRef {
	return index.SymbolRef{
		ID:          id,
		Name:        name,
		Kind:        index.KindMethod,
		ContainerID: containerID,
		Location: index.Location{
			Path: path, Line: line, Column: 1,
			EndLine: line, EndColumn: 40,
		},
	}
}

// AddSymbol registers a symbol and returns the ref for convenience.
func (f *FakeIndex) AddSymbol(ref index.SymbolRef) index.SymbolRef {
	f.Symbols[ref.ID] = ref
	if ref.Location.Path != "" {
		f.Positions[posKey(ref.Location.Path, ref.Location.Line, ref.Location.Column)] = ref.ID
	}
	if ref.ContainerID != "" {
		f.TypeMembers[ref.ContainerID] = append(f.TypeMembers[ref.ContainerID], ref.ID)
	}
	return ref
}

// AddCall wires caller -> callee: an outgoing call for the caller plus a
// reference whose enclosing declaration resolves back to the caller. Each
// call gets its own source line below the caller's declaration.
func (f *FakeIndex) AddCall(callerID, calleeID string) {
	f.Calls[callerID] = append(f.Calls[callerID], calleeID)
	caller, ok := f.Symbols[callerID]
	if !ok {
		panic(fmt.Sprintf("indextest: AddCall caller %q not registered", callerID))
	}
	line := caller.Location.Line + len(f.Calls[callerID])
	f.References[calleeID] = append(f.References[calleeID], index.Reference{
		Location: index.Location{Path: caller.Location.Path, Line: line, Column: 5},
		SymbolID: calleeID,
	})
	f.Enclosing[lineKey(caller.Location.Path, line)] = callerID
}

// AddReference records a bare occurrence of symbolID at path:line that no
// declaration encloses.
func (f *FakeIndex) AddReference(symbolID, path string, line int) {
	f.References[symbolID] = append(f.References[symbolID], index.Reference{
		Location: index.Location{Path: path, Line: line, Column: 5},
		SymbolID: symbolID,
	})
}

// AddImplementation wires base -> impl for FindImplementations.
func (f *FakeIndex) AddImplementation(baseID, implID string) {
	f.Impls[baseID] = append(f.Impls[baseID], implID)
}

// AddDerived wires base -> derived for both directions of the type walk.
func (f *FakeIndex) AddDerived(baseID, derivedID string) {
	f.Derived[baseID] = append(f.Derived[baseID], derivedID)
	f.Bases[derivedID] = append(f.Bases[derivedID], baseID)
}

// AddOverride records that member overrides base.
func (f *FakeIndex) AddOverride(memberID, baseID string) {
	f.Overrides[memberID] = baseID
}

func posKey(path string, line, col int) string {
	return fmt.Sprintf("%s:%d:%d", path, line, col)
}

func lineKey(path string, line int) string {
	return fmt.Sprintf("%s:%d", path, line)
}

// observe counts the call, fires the hook, and reports ctx state. The hook
// runs before the ctx check so a hook that cancels aborts this very call.
func (f *FakeIndex) observe(ctx context.Context, method string) error {
	f.mu.Lock()
	f.CallCount++
	hook := f.OnCall
	f.mu.Unlock()
	if hook != nil {
		hook(method)
	}
	return ctx.Err()
}

func (f *FakeIndex) resolve(ids []string) []index.SymbolRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	refs := make([]index.SymbolRef, 0, len(ids))
	for _, id := range ids {
		if ref, ok := f.Symbols[id]; ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (f *FakeIndex) ResolveSymbolAtPosition(ctx context.Context, doc string, line, col int) (index.SymbolRef, error) {
	if err := f.observe(ctx, "ResolveSymbolAtPosition"); err != nil {
		return index.SymbolRef{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.Positions[posKey(doc, line, col)]
	if !ok {
		return index.SymbolRef{}, fmt.Errorf("%w: %s:%d:%d", index.ErrNotFound, doc, line, col)
	}
	return f.Symbols[id], nil
}

func (f *FakeIndex) FindReferences(ctx context.Context, sym index.SymbolRef) ([]index.Reference, error) {
	if err := f.observe(ctx, "FindReferences"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]index.Reference(nil), f.References[sym.ID]...), nil
}

func (f *FakeIndex) FindImplementations(ctx context.Context, sym index.SymbolRef) ([]index.SymbolRef, error) {
	if err := f.observe(ctx, "FindImplementations"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	ids := append([]string(nil), f.Impls[sym.ID]...)
	f.mu.Unlock()
	return f.resolve(ids), nil
}

func (f *FakeIndex) FindDerivedTypes(ctx context.Context, typeSym index.SymbolRef, transitive bool) ([]index.SymbolRef, error) {
	if err := f.observe(ctx, "FindDerivedTypes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	var ids []string
	if transitive {
		seen := map[string]bool{typeSym.ID: true}
		queue := append([]string(nil), f.Derived[typeSym.ID]...)
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			queue = append(queue, f.Derived[id]...)
		}
	} else {
		ids = append(ids, f.Derived[typeSym.ID]...)
	}
	f.mu.Unlock()
	return f.resolve(ids), nil
}

func (f *FakeIndex) ResolveEnclosingDeclaration(ctx context.Context, doc string, span index.Span) (index.SymbolRef, error) {
	if err := f.observe(ctx, "ResolveEnclosingDeclaration"); err != nil {
		return index.SymbolRef{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.Enclosing[lineKey(doc, span.StartLine)]
	if !ok {
		return index.SymbolRef{}, fmt.Errorf("%w: nothing encloses %s:%d", index.ErrNotFound, doc, span.StartLine)
	}
	return f.Symbols[id], nil
}

func (f *FakeIndex) DeclarationLocation(sym index.SymbolRef) (index.Location, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.Symbols[sym.ID]
	if !ok || ref.Location.Path == "" {
		return index.Location{}, false
	}
	return ref.Location, true
}

func (f *FakeIndex) OverriddenMember(ctx context.Context, sym index.SymbolRef) (index.SymbolRef, bool, error) {
	if err := f.observe(ctx, "OverriddenMember"); err != nil {
		return index.SymbolRef{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	baseID, ok := f.Overrides[sym.ID]
	if !ok {
		return index.SymbolRef{}, false, nil
	}
	base, ok := f.Symbols[baseID]
	return base, ok, nil
}

func (f *FakeIndex) OutgoingCalls(ctx context.Context, sym index.SymbolRef) ([]index.SymbolRef, error) {
	if err := f.observe(ctx, "OutgoingCalls"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	ids := append([]string(nil), f.Calls[sym.ID]...)
	f.mu.Unlock()
	return f.resolve(ids), nil
}

func (f *FakeIndex) BaseTypes(ctx context.Context, sym index.SymbolRef) ([]index.SymbolRef, error) {
	if err := f.observe(ctx, "BaseTypes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	ids := append([]string(nil), f.Bases[sym.ID]...)
	f.mu.Unlock()
	return f.resolve(ids), nil
}

func (f *FakeIndex) Members(ctx context.Context, typeSym index.SymbolRef) ([]index.SymbolRef, error) {
	if err := f.observe(ctx, "Members"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	ids := append([]string(nil), f.TypeMembers[typeSym.ID]...)
	f.mu.Unlock()
	return f.resolve(ids), nil
}

func (f *FakeIndex) Symbol(ctx context.Context, id string) (index.SymbolRef, error) {
	if err := f.observe(ctx, "Symbol"); err != nil {
		return index.SymbolRef{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.Symbols[id]
	if !ok {
		return index.SymbolRef{}, fmt.Errorf("%w: %s", index.ErrNotFound, id)
	}
	return ref, nil
}

func (f *FakeIndex) OccurrencesOf(ctx context.Context, sym index.SymbolRef) ([]index.Reference, error) {
	if err := f.observe(ctx, "OccurrencesOf"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	occs := make([]index.Reference, 0, len(f.References[sym.ID])+1)
	if ref, ok := f.Symbols[sym.ID]; ok && ref.Location.Path != "" {
		occs = append(occs, index.Reference{Location: ref.Location, SymbolID: sym.ID, IsDefinition: true})
	}
	occs = append(occs, f.References[sym.ID]...)
	return occs, nil
}

func (f *FakeIndex) Diagnostics(ctx context.Context, scope string) ([]index.Diagnostic, error) {
	if err := f.observe(ctx, "Diagnostics"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]index.Diagnostic(nil), f.Findings[scope]...), nil
}
