package hierarchy

import (
	"context"
	"errors"
	"testing"

	"codenav/internal/index"
	"codenav/internal/index/indextest"
	"codenav/internal/slogutil"
)

func newTestBuilder(fake *indextest.FakeIndex) *Builder {
	return NewBuilder(fake, slogutil.NewDiscardLogger())
}

// walk collects every node of the tree depth-first.
func walk(root *Node) []*Node {
	var nodes []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		nodes = append(nodes, n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(root)
	return nodes
}

func countID(root *Node, id string) int {
	count := 0
	for _, n := range walk(root) {
		if n.Symbol.ID == id {
			count++
		}
	}
	return count
}

func findChild(parent *Node, id string) *Node {
	for _, c := range parent.Children {
		if c.Symbol.ID == id {
			return c
		}
	}
	return nil
}

func TestBuildDiamondNoDuplicates(t *testing.T) {
	// D calls both B and C; B and C both call A. Walking callers from A,
	// D must appear exactly once even though two paths reach it.
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Apply", "a.go", 10))
	fake.AddSymbol(indextest.Fn("B", "Build", "b.go", 10))
	fake.AddSymbol(indextest.Fn("C", "Check", "c.go", 10))
	fake.AddSymbol(indextest.Fn("D", "Drive", "d.go", 10))
	fake.AddCall("B", "A")
	fake.AddCall("C", "A")
	fake.AddCall("D", "B")
	fake.AddCall("D", "C")

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionIncoming,
		MaxDepth:  3,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := countID(tree.Root, "D"); got != 1 {
		t.Errorf("symbol D appears %d times, want 1", got)
	}
	if tree.NodeCount != 4 {
		t.Errorf("NodeCount = %d, want 4", tree.NodeCount)
	}

	b := findChild(tree.Root, "B")
	c := findChild(tree.Root, "C")
	if b == nil || c == nil {
		t.Fatalf("root children = %v, want B and C", tree.Root.Children)
	}
	if b.Relation != RelationCaller {
		t.Errorf("B relation = %q, want caller", b.Relation)
	}
	// D lands under whichever branch claimed it first; the other branch
	// drops the duplicate edge.
	if len(b.Children)+len(c.Children) != 1 {
		t.Errorf("D attached %d times across branches, want 1", len(b.Children)+len(c.Children))
	}
}

func TestBuildCycleTerminates(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Ping", "a.go", 10))
	fake.AddSymbol(indextest.Fn("B", "Pong", "b.go", 10))
	fake.AddCall("A", "B")
	fake.AddCall("B", "A")

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionBoth,
		MaxDepth:  5, // above the hard limit; must still terminate
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// B shows up once per direction (as caller and as callee), A only as
	// the root.
	if got := countID(tree.Root, "B"); got != 2 {
		t.Errorf("symbol B appears %d times, want 2 (once per direction)", got)
	}
	if got := countID(tree.Root, "A"); got != 1 {
		t.Errorf("symbol A appears %d times, want 1", got)
	}
	if tree.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", tree.NodeCount)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(tree.Root.Children))
	}
	if tree.Root.Children[0].Relation != RelationCaller || tree.Root.Children[1].Relation != RelationCallee {
		t.Errorf("root children relations = %q, %q; want caller then callee",
			tree.Root.Children[0].Relation, tree.Root.Children[1].Relation)
	}
}

func TestBuildDepthZero(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Apply", "a.go", 10))
	fake.AddSymbol(indextest.Fn("B", "Build", "b.go", 10))
	fake.AddCall("B", "A")

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionBoth,
		MaxDepth:  0,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !tree.Root.Truncated {
		t.Error("root should be marked truncated at depth 0")
	}
	if len(tree.Root.Children) != 0 {
		t.Errorf("root has %d children, want 0", len(tree.Root.Children))
	}
	if tree.NodeCount != 1 {
		t.Errorf("NodeCount = %d, want 1", tree.NodeCount)
	}
	if fake.CallCount != 0 {
		t.Errorf("index was queried %d times at depth 0, want 0", fake.CallCount)
	}
}

func TestBuildDepthLimitMarksFrontier(t *testing.T) {
	// Call chain E -> D -> C -> B -> A, walked from A with depth 2.
	fake := indextest.New()
	for _, s := range []struct {
		id, name, path string
	}{
		{"A", "Apply", "a.go"}, {"B", "Build", "b.go"}, {"C", "Check", "c.go"},
		{"D", "Drive", "d.go"}, {"E", "Emit", "e.go"},
	} {
		fake.AddSymbol(indextest.Fn(s.id, s.name, s.path, 10))
	}
	fake.AddCall("B", "A")
	fake.AddCall("C", "B")
	fake.AddCall("D", "C")
	fake.AddCall("E", "D")

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionIncoming,
		MaxDepth:  2,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if tree.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3 (A, B, C)", tree.NodeCount)
	}
	b := findChild(tree.Root, "B")
	if b == nil {
		t.Fatal("B missing from tree")
	}
	c := findChild(b, "C")
	if c == nil {
		t.Fatal("C missing from tree")
	}
	if !c.Truncated {
		t.Error("frontier node C should be marked truncated")
	}
	if len(c.Children) != 0 {
		t.Errorf("frontier node C has %d children, want 0", len(c.Children))
	}
	if countID(tree.Root, "D") != 0 {
		t.Error("D beyond the depth limit should not appear")
	}
}

func TestBuildMaxNodes(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Apply", "a.go", 10))
	for _, id := range []string{"C1", "C2", "C3", "C4", "C5"} {
		fake.AddSymbol(indextest.Fn(id, "Caller"+id, id+".go", 10))
		fake.AddCall(id, "A")
	}

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionIncoming,
		MaxDepth:  2,
		MaxNodes:  3,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if tree.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", tree.NodeCount)
	}
	if len(tree.Root.Children) != 2 {
		t.Errorf("root has %d children, want 2", len(tree.Root.Children))
	}
	if !tree.Root.Truncated {
		t.Error("root should be marked truncated when the node budget cuts its children")
	}
}

func TestBuildExternalLeaf(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Apply", "a.go", 10))
	fake.AddSymbol(indextest.Fn("L", "Local", "l.go", 10))
	ext := indextest.Fn("EXT", "Marshal", "", 0)
	ext.External = true
	fake.AddSymbol(ext)
	fake.AddSymbol(indextest.Fn("M", "More", "m.go", 10))
	fake.Calls["A"] = []string{"L", "EXT"}
	fake.Calls["EXT"] = []string{"M"}

	builder := newTestBuilder(fake)
	opts := Options{Mode: ModeCalls, Direction: DirectionOutgoing, MaxDepth: 3}

	// Without an allow-list, external callees are dropped.
	tree, err := builder.Build(context.Background(), fake.Symbols["A"], opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if countID(tree.Root, "EXT") != 0 {
		t.Error("external symbol included without an allow-list")
	}

	// Allow-listed externals appear, but only as leaves.
	builder.AllowExternal(func(ref index.SymbolRef) bool { return ref.ID == "EXT" })
	tree, err = builder.Build(context.Background(), fake.Symbols["A"], opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	extNode := findChild(tree.Root, "EXT")
	if extNode == nil {
		t.Fatal("allow-listed external symbol missing from tree")
	}
	if !extNode.External {
		t.Error("external node not flagged external")
	}
	if len(extNode.Children) != 0 {
		t.Errorf("external node has %d children, want 0 (never expanded)", len(extNode.Children))
	}
	if countID(tree.Root, "M") != 0 {
		t.Error("symbol behind an external boundary should not appear")
	}
}

func TestBuildCallerSkipsUnresolvedSites(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Apply", "a.go", 10))
	fake.AddSymbol(indextest.Fn("B", "Build", "b.go", 10))
	fake.AddCall("B", "A")
	// A reference site no declaration encloses (top-level init expression).
	fake.AddReference("A", "loose.go", 3)
	// The defining occurrence must not surface as a caller either.
	fake.References["A"] = append(fake.References["A"], index.Reference{
		Location:     index.Location{Path: "a.go", Line: 10, Column: 1},
		SymbolID:     "A",
		IsDefinition: true,
	})

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionIncoming,
		MaxDepth:  1,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(tree.Root.Children) != 1 || tree.Root.Children[0].Symbol.ID != "B" {
		t.Errorf("root children = %+v, want exactly B", tree.Root.Children)
	}
}

func TestBuildOverrideFallbackProbe(t *testing.T) {
	// An abstract class member with no recorded implementation edges:
	// derived types are probed for same-named members.
	fake := indextest.New()
	fake.AddSymbol(indextest.Type("Base", "Repository", index.KindClass, "base.go", 5))
	fake.AddSymbol(indextest.Type("D1", "SqlRepository", index.KindClass, "d1.go", 5))
	fake.AddSymbol(indextest.Type("D2", "MemRepository", index.KindClass, "d2.go", 5))
	fake.AddDerived("Base", "D1")
	fake.AddDerived("Base", "D2")

	abstract := indextest.Method("Base.Save", "Save", "Base", "base.go", 8)
	abstract.Modifiers.Abstract = true
	fake.AddSymbol(abstract)

	impl := indextest.Method("D1.Save", "Save", "D1", "d1.go", 8)
	impl.Modifiers.Override = true
	fake.AddSymbol(impl)
	fake.AddSymbol(indextest.Method("D2.Load", "Load", "D2", "d2.go", 8))

	tree, err := newTestBuilder(fake).Build(context.Background(), abstract, Options{
		Mode:      ModeTypes,
		Direction: DirectionIncoming,
		MaxDepth:  2,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(tree.Root.Children) != 1 {
		t.Fatalf("root has %d children, want 1 probe hit", len(tree.Root.Children))
	}
	child := tree.Root.Children[0]
	if child.Symbol.ID != "D1.Save" {
		t.Errorf("probe found %q, want D1.Save", child.Symbol.ID)
	}
	if child.Relation != RelationDirectOverride {
		t.Errorf("relation = %q, want %q", child.Relation, RelationDirectOverride)
	}
}

func TestBuildTypeHierarchy(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Type("IShape", "IShape", index.KindInterface, "shape.go", 5))
	fake.AddSymbol(indextest.Type("ISolid", "ISolid", index.KindInterface, "solid.go", 5))
	fake.AddSymbol(indextest.Type("Circle", "Circle", index.KindClass, "circle.go", 5))
	fake.AddDerived("IShape", "ISolid")
	fake.AddImplementation("IShape", "Circle")
	fake.Bases["Circle"] = []string{"IShape"}

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["IShape"], Options{
		Mode:      ModeTypes,
		Direction: DirectionIncoming,
		MaxDepth:  1,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	circle := findChild(tree.Root, "Circle")
	solid := findChild(tree.Root, "ISolid")
	if circle == nil || solid == nil {
		t.Fatalf("root children = %+v, want Circle and ISolid", tree.Root.Children)
	}
	if circle.Relation != RelationImplementingClass {
		t.Errorf("Circle relation = %q, want %q", circle.Relation, RelationImplementingClass)
	}
	if solid.Relation != RelationDerivedInterface {
		t.Errorf("ISolid relation = %q, want %q", solid.Relation, RelationDerivedInterface)
	}

	up, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["Circle"], Options{
		Mode:      ModeTypes,
		Direction: DirectionOutgoing,
		MaxDepth:  1,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	base := findChild(up.Root, "IShape")
	if base == nil {
		t.Fatal("base type IShape missing from outgoing walk")
	}
	if base.Relation != RelationBaseType {
		t.Errorf("IShape relation = %q, want %q", base.Relation, RelationBaseType)
	}
}

func TestBuildBaseMemberChain(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Method("M1", "Handle", "T1", "t1.go", 8))
	fake.AddSymbol(indextest.Method("M2", "Handle", "T2", "t2.go", 8))
	fake.AddSymbol(indextest.Method("M3", "Handle", "T3", "t3.go", 8))
	fake.AddOverride("M3", "M2")
	fake.AddOverride("M2", "M1")
	// A corrupt index could close the chain into a loop; the visited set
	// must still terminate the walk.
	fake.AddOverride("M1", "M3")

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["M3"], Options{
		Mode:      ModeTypes,
		Direction: DirectionOutgoing,
		MaxDepth:  4,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	m2 := findChild(tree.Root, "M2")
	if m2 == nil {
		t.Fatal("M2 missing from base chain")
	}
	if m2.Relation != RelationBaseMember {
		t.Errorf("M2 relation = %q, want %q", m2.Relation, RelationBaseMember)
	}
	m1 := findChild(m2, "M1")
	if m1 == nil {
		t.Fatal("M1 missing from base chain")
	}
	if len(m1.Children) != 0 {
		t.Error("looped base chain must stop at the visited root")
	}
	if tree.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", tree.NodeCount)
	}
}

func TestBuildCancellation(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Apply", "a.go", 10))
	fake.AddSymbol(indextest.Fn("B", "Build", "b.go", 10))
	fake.AddSymbol(indextest.Fn("C", "Check", "c.go", 10))
	fake.AddCall("B", "A")
	fake.AddCall("C", "B")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fake.OnCall = func(string) {
		calls++
		if calls == 2 {
			cancel()
		}
	}

	tree, err := newTestBuilder(fake).Build(ctx, fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionIncoming,
		MaxDepth:  3,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}
	if tree != nil {
		t.Error("canceled build must not return a partial tree")
	}
}

func TestBuildNoEdges(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Apply", "a.go", 10))

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionBoth,
		MaxDepth:  2,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(tree.Root.Children) != 0 {
		t.Errorf("root has %d children, want 0", len(tree.Root.Children))
	}
	if tree.Root.Truncated {
		t.Error("a genuinely edge-free root is not truncated")
	}
}

func TestBuildDeterministicOrder(t *testing.T) {
	fake := indextest.New()
	fake.AddSymbol(indextest.Fn("A", "Apply", "a.go", 10))
	// Registered out of order; children must come back sorted by location.
	fake.AddSymbol(indextest.Fn("Z", "Zip", "z.go", 10))
	fake.AddSymbol(indextest.Fn("M", "Map", "m.go", 10))
	fake.AddSymbol(indextest.Fn("B", "Build", "b.go", 10))
	fake.AddCall("Z", "A")
	fake.AddCall("M", "A")
	fake.AddCall("B", "A")

	tree, err := newTestBuilder(fake).Build(context.Background(), fake.Symbols["A"], Options{
		Mode:      ModeCalls,
		Direction: DirectionIncoming,
		MaxDepth:  1,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var got []string
	for _, c := range tree.Root.Children {
		got = append(got, c.Symbol.ID)
	}
	want := []string{"B", "M", "Z"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("children order = %v, want %v", got, want)
		}
	}
}
