package mcp

import (
	"context"
	"strings"
	"testing"

	"codenav/internal/hierarchy"
	"codenav/internal/index"
	"codenav/internal/index/indextest"
)

// callGraphFixture wires main -> helper -> leaf.
func callGraphFixture(fake *indextest.FakeIndex) {
	fake.AddSymbol(indextest.Fn("sym:main", "main", "cmd/main.go", 10))
	fake.AddSymbol(indextest.Fn("sym:helper", "helper", "lib/helper.go", 5))
	fake.AddSymbol(indextest.Fn("sym:leaf", "leaf", "lib/leaf.go", 3))
	fake.AddCall("sym:main", "sym:helper")
	fake.AddCall("sym:helper", "sym:leaf")
}

func helperArgs(extra map[string]interface{}) map[string]interface{} {
	args := map[string]interface{}{
		"file":   "lib/helper.go",
		"line":   5,
		"column": 1,
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func TestGetCallHierarchyIncoming(t *testing.T) {
	server, fake := newTestServer(t)
	callGraphFixture(fake)

	resp, err := server.toolGetCallHierarchy(context.Background(),
		helperArgs(map[string]interface{}{"direction": "incoming"}))
	if err != nil {
		t.Fatalf("toolGetCallHierarchy() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}

	root, ok := resp.Tree.(*hierarchy.Node)
	if !ok {
		t.Fatalf("Tree should be a *hierarchy.Node, got %T", resp.Tree)
	}
	if root.Symbol.ID != "sym:helper" {
		t.Errorf("root = %s, want sym:helper", root.Symbol.ID)
	}
	if len(root.Children) != 1 {
		t.Fatalf("root should have 1 caller, got %d", len(root.Children))
	}
	if root.Children[0].Symbol.ID != "sym:main" {
		t.Errorf("caller = %s, want sym:main", root.Children[0].Symbol.ID)
	}
	if root.Children[0].Relation != hierarchy.RelationCaller {
		t.Errorf("relation = %s, want caller", root.Children[0].Relation)
	}
}

func TestGetCallHierarchyOutgoing(t *testing.T) {
	server, fake := newTestServer(t)
	callGraphFixture(fake)

	resp, err := server.toolGetCallHierarchy(context.Background(),
		helperArgs(map[string]interface{}{"direction": "outgoing"}))
	if err != nil {
		t.Fatalf("toolGetCallHierarchy() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}

	root := resp.Tree.(*hierarchy.Node)
	if len(root.Children) != 1 {
		t.Fatalf("root should have 1 callee, got %d", len(root.Children))
	}
	if root.Children[0].Symbol.ID != "sym:leaf" {
		t.Errorf("callee = %s, want sym:leaf", root.Children[0].Symbol.ID)
	}
	if root.Children[0].Relation != hierarchy.RelationCallee {
		t.Errorf("relation = %s, want callee", root.Children[0].Relation)
	}
}

func TestGetCallHierarchyBothDirections(t *testing.T) {
	server, fake := newTestServer(t)
	callGraphFixture(fake)

	resp, err := server.toolGetCallHierarchy(context.Background(), helperArgs(nil))
	if err != nil {
		t.Fatalf("toolGetCallHierarchy() error = %v", err)
	}

	root := resp.Tree.(*hierarchy.Node)
	if len(root.Children) != 2 {
		t.Fatalf("root should have caller and callee, got %d children", len(root.Children))
	}
	// Incoming group comes before outgoing.
	if root.Children[0].Relation != hierarchy.RelationCaller {
		t.Errorf("children[0].relation = %s, want caller", root.Children[0].Relation)
	}
	if root.Children[1].Relation != hierarchy.RelationCallee {
		t.Errorf("children[1].relation = %s, want callee", root.Children[1].Relation)
	}
	if resp.Returned != 3 {
		t.Errorf("returned = %d, want 3", resp.Returned)
	}
}

func TestGetCallHierarchyInvalidDirection(t *testing.T) {
	server, fake := newTestServer(t)
	callGraphFixture(fake)

	resp, err := server.toolGetCallHierarchy(context.Background(),
		helperArgs(map[string]interface{}{"direction": "sideways"}))
	if err != nil {
		t.Fatalf("toolGetCallHierarchy() error = %v", err)
	}
	if resp.Success {
		t.Fatal("expected failure for invalid direction")
	}
	if resp.ErrorCode != "INVALID_DEPTH_OR_BUDGET" {
		t.Errorf("errorCode = %s, want INVALID_DEPTH_OR_BUDGET", resp.ErrorCode)
	}
	if len(resp.Hints) == 0 {
		t.Error("expected hints on invalid direction")
	}
}

func TestGetCallHierarchyDepthValidation(t *testing.T) {
	server, fake := newTestServer(t)
	callGraphFixture(fake)

	resp, err := server.toolGetCallHierarchy(context.Background(),
		helperArgs(map[string]interface{}{"maxDepth": -1}))
	if err != nil {
		t.Fatalf("toolGetCallHierarchy() error = %v", err)
	}
	if resp.Success {
		t.Fatal("expected failure for negative maxDepth")
	}
	if resp.ErrorCode != "INVALID_DEPTH_OR_BUDGET" {
		t.Errorf("errorCode = %s, want INVALID_DEPTH_OR_BUDGET", resp.ErrorCode)
	}
}

func TestGetCallHierarchyRootNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.toolGetCallHierarchy(context.Background(), map[string]interface{}{
		"file":   "nowhere.go",
		"line":   1,
		"column": 1,
	})
	if err != nil {
		t.Fatalf("toolGetCallHierarchy() error = %v", err)
	}
	if resp.Success {
		t.Fatal("expected failure for unknown position")
	}
	if resp.ErrorCode != "ROOT_NOT_FOUND" {
		t.Errorf("errorCode = %s, want ROOT_NOT_FOUND", resp.ErrorCode)
	}
	if len(resp.Hints) == 0 {
		t.Error("expected recovery hints")
	}
}

func TestGetCallHierarchyMissingPosition(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.toolGetCallHierarchy(context.Background(), map[string]interface{}{
		"line": 5, "column": 1,
	})
	if err != nil {
		t.Fatalf("toolGetCallHierarchy() error = %v", err)
	}
	if resp.Success {
		t.Fatal("expected failure for missing file argument")
	}
	if resp.ErrorCode != "ROOT_NOT_FOUND" {
		t.Errorf("errorCode = %s, want ROOT_NOT_FOUND", resp.ErrorCode)
	}
}

func TestGetTypeHierarchy(t *testing.T) {
	server, fake := newTestServer(t)
	fake.AddSymbol(indextest.Type("sym:store", "Store", index.KindInterface, "store.go", 3))
	fake.AddSymbol(indextest.Type("sym:mem", "MemStore", index.KindClass, "memstore.go", 10))
	fake.AddImplementation("sym:store", "sym:mem")

	resp, err := server.toolGetTypeHierarchy(context.Background(), map[string]interface{}{
		"file": "store.go", "line": 3, "column": 1,
	})
	if err != nil {
		t.Fatalf("toolGetTypeHierarchy() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}

	root := resp.Tree.(*hierarchy.Node)
	if root.Symbol.ID != "sym:store" {
		t.Errorf("root = %s, want sym:store", root.Symbol.ID)
	}
	if len(root.Children) != 1 {
		t.Fatalf("root should have 1 implementation, got %d", len(root.Children))
	}
	if root.Children[0].Relation != hierarchy.RelationImplementingClass {
		t.Errorf("relation = %s, want implementing-class", root.Children[0].Relation)
	}
}

func TestGetTypeHierarchyTransitive(t *testing.T) {
	server, fake := newTestServer(t)
	fake.AddSymbol(indextest.Type("sym:base", "Base", index.KindClass, "base.go", 1))
	fake.AddSymbol(indextest.Type("sym:mid", "Mid", index.KindClass, "mid.go", 1))
	fake.AddSymbol(indextest.Type("sym:deep", "Deep", index.KindClass, "deep.go", 1))
	fake.AddDerived("sym:base", "sym:mid")
	fake.AddDerived("sym:mid", "sym:deep")

	args := map[string]interface{}{"file": "base.go", "line": 1, "column": 1}

	resp, err := server.toolGetTypeHierarchy(context.Background(), args)
	if err != nil {
		t.Fatalf("toolGetTypeHierarchy() error = %v", err)
	}
	if resp.Returned != 3 {
		t.Errorf("transitive walk returned = %d, want 3", resp.Returned)
	}

	args["transitive"] = false
	resp, err = server.toolGetTypeHierarchy(context.Background(), args)
	if err != nil {
		t.Fatalf("toolGetTypeHierarchy() error = %v", err)
	}
	if resp.Returned != 2 {
		t.Errorf("direct-only walk returned = %d, want 2", resp.Returned)
	}
	root := resp.Tree.(*hierarchy.Node)
	if len(root.Children) != 1 || root.Children[0].Symbol.ID != "sym:mid" {
		t.Fatalf("direct-only walk should stop at Mid, got %+v", root.Children)
	}
	if !root.Children[0].Truncated {
		t.Error("Mid should be marked truncated where the walk stopped")
	}
}

func TestFindReferences(t *testing.T) {
	server, fake := newTestServer(t)
	fake.AddSymbol(indextest.Fn("sym:f", "f", "f.go", 1))
	fake.AddReference("sym:f", "c.go", 3)
	fake.AddReference("sym:f", "a.go", 1)
	fake.AddReference("sym:f", "b.go", 2)

	resp, err := server.toolFindReferences(context.Background(), map[string]interface{}{
		"file": "f.go", "line": 1, "column": 1,
	})
	if err != nil {
		t.Fatalf("toolFindReferences() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}
	if resp.TotalFound != 3 || resp.Returned != 3 {
		t.Errorf("totalFound/returned = %d/%d, want 3/3", resp.TotalFound, resp.Returned)
	}

	items := resp.Items.([]interface{})
	first := items[0].(referenceItem)
	if first.Path != "a.go" {
		t.Errorf("items should be sorted by path, first = %s", first.Path)
	}
}

func TestFindReferencesTruncation(t *testing.T) {
	server, fake := newTestServer(t)
	fake.AddSymbol(indextest.Fn("sym:f", "f", "f.go", 1))
	fake.AddReference("sym:f", "a.go", 1)
	fake.AddReference("sym:f", "b.go", 2)
	fake.AddReference("sym:f", "c.go", 3)

	resp, err := server.toolFindReferences(context.Background(), map[string]interface{}{
		"file": "f.go", "line": 1, "column": 1, "maxResults": 2,
	})
	if err != nil {
		t.Fatalf("toolFindReferences() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}

	if !resp.Truncated {
		t.Fatal("response should be truncated")
	}
	if resp.TotalFound != 3 || resp.Returned != 2 {
		t.Errorf("totalFound/returned = %d/%d, want 3/2", resp.TotalFound, resp.Returned)
	}
	if resp.OverflowID == "" {
		t.Fatal("truncated response should carry an overflow id")
	}
	if resp.OverflowPages != 2 {
		t.Errorf("overflowPages = %d, want 2 (3 items, page size 2)", resp.OverflowPages)
	}
	if len(resp.Advisories) == 0 || !strings.Contains(resp.Advisories[0], resp.OverflowID) {
		t.Errorf("first advisory should name the overflow id, got %v", resp.Advisories)
	}

	// The stored record pages back the full set.
	page, err := server.store.GetPage(context.Background(), resp.OverflowID, 2)
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if page.TotalCount != 3 || len(page.Items) != 1 {
		t.Errorf("page 2: totalCount %d items %d, want 3 and 1", page.TotalCount, len(page.Items))
	}
}

func TestFindReferencesNone(t *testing.T) {
	server, fake := newTestServer(t)
	fake.AddSymbol(indextest.Fn("sym:lonely", "lonely", "l.go", 1))

	resp, err := server.toolFindReferences(context.Background(), map[string]interface{}{
		"file": "l.go", "line": 1, "column": 1,
	})
	if err != nil {
		t.Fatalf("toolFindReferences() error = %v", err)
	}
	if !resp.Success {
		t.Fatal("no references is a success, not an error")
	}
	if resp.TotalFound != 0 || resp.Truncated {
		t.Errorf("totalFound = %d truncated = %v, want 0 and false", resp.TotalFound, resp.Truncated)
	}
}

func TestGetDiagnostics(t *testing.T) {
	server, fake := newTestServer(t)
	fake.Findings["project"] = []index.Diagnostic{
		{Severity: "warning", Code: "unused", Message: "x is unused",
			Location: index.Location{Path: "b.go", Line: 4}},
		{Severity: "error", Code: "undef", Message: "y is undefined",
			Location: index.Location{Path: "a.go", Line: 9}},
	}

	resp, err := server.toolGetDiagnostics(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("toolGetDiagnostics() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}
	if resp.TotalFound != 2 {
		t.Errorf("totalFound = %d, want 2", resp.TotalFound)
	}

	items := resp.Items.([]interface{})
	first := items[0].(diagnosticItem)
	if first.Path != "a.go" || first.Severity != "error" {
		t.Errorf("items should be sorted by path, first = %+v", first)
	}
}

func TestGetDiagnosticsFileScope(t *testing.T) {
	server, fake := newTestServer(t)
	fake.Findings["file:main.go"] = []index.Diagnostic{
		{Severity: "hint", Message: "simplify", Location: index.Location{Path: "main.go", Line: 2}},
	}

	resp, err := server.toolGetDiagnostics(context.Background(), map[string]interface{}{
		"scope": "file:main.go",
	})
	if err != nil {
		t.Fatalf("toolGetDiagnostics() error = %v", err)
	}
	if resp.TotalFound != 1 {
		t.Errorf("totalFound = %d, want 1", resp.TotalFound)
	}
}

func TestGetDiagnosticsBadScope(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.toolGetDiagnostics(context.Background(), map[string]interface{}{
		"scope": "dir:src",
	})
	if err != nil {
		t.Fatalf("toolGetDiagnostics() error = %v", err)
	}
	if resp.Success {
		t.Fatal("expected failure for unknown scope form")
	}
	if resp.ErrorCode != "INVALID_DEPTH_OR_BUDGET" {
		t.Errorf("errorCode = %s, want INVALID_DEPTH_OR_BUDGET", resp.ErrorCode)
	}
}

func TestRenameSymbol(t *testing.T) {
	server, fake := newTestServer(t)
	fake.AddSymbol(indextest.Fn("sym:old", "OldName", "def.go", 10))
	fake.AddReference("sym:old", "use.go", 20)
	fake.AddReference("sym:old", "use.go", 5)
	fake.AddReference("sym:old", "another.go", 7)

	resp, err := server.toolRenameSymbol(context.Background(), map[string]interface{}{
		"file": "def.go", "line": 10, "column": 1, "newName": "NewName",
	})
	if err != nil {
		t.Fatalf("toolRenameSymbol() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}

	items := resp.Items.([]interface{})
	if len(items) != 3 {
		t.Fatalf("expected plans for 3 files, got %d", len(items))
	}

	plans := make([]renameFilePlan, len(items))
	for i := range items {
		plans[i] = items[i].(renameFilePlan)
	}
	if plans[0].Path != "another.go" || plans[1].Path != "def.go" || plans[2].Path != "use.go" {
		t.Errorf("plans should be sorted by path, got %s %s %s",
			plans[0].Path, plans[1].Path, plans[2].Path)
	}
	if !plans[1].Edits[0].IsDefinition {
		t.Error("the definition edit should be flagged")
	}
	if plans[2].Edits[0].Line != 5 || plans[2].Edits[1].Line != 20 {
		t.Errorf("edits should be sorted by line, got %d then %d",
			plans[2].Edits[0].Line, plans[2].Edits[1].Line)
	}
}

func TestRenameSymbolBadNewName(t *testing.T) {
	server, fake := newTestServer(t)
	fake.AddSymbol(indextest.Fn("sym:old", "OldName", "def.go", 10))

	for _, newName := range []string{"", "has space"} {
		resp, err := server.toolRenameSymbol(context.Background(), map[string]interface{}{
			"file": "def.go", "line": 10, "column": 1, "newName": newName,
		})
		if err != nil {
			t.Fatalf("toolRenameSymbol(%q) error = %v", newName, err)
		}
		if resp.Success {
			t.Errorf("newName %q should be rejected", newName)
		}
		if resp.ErrorCode != "INVALID_DEPTH_OR_BUDGET" {
			t.Errorf("errorCode = %s, want INVALID_DEPTH_OR_BUDGET", resp.ErrorCode)
		}
	}
}

func TestReadOverflowPage(t *testing.T) {
	server, _ := newTestServer(t)

	items := make([]interface{}, 5)
	for i := range items {
		items[i] = map[string]interface{}{"n": i}
	}
	rec, err := server.store.Put(context.Background(), "test", items)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	resp, err := server.toolReadOverflowPage(context.Background(), map[string]interface{}{
		"overflowId": rec.ID, "page": 2,
	})
	if err != nil {
		t.Fatalf("toolReadOverflowPage() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}
	if resp.TotalFound != 5 || resp.Returned != 2 {
		t.Errorf("totalFound/returned = %d/%d, want 5/2", resp.TotalFound, resp.Returned)
	}
	if len(resp.SuggestedNextCalls) != 1 {
		t.Fatalf("page 2 of 3 should suggest the next page, got %v", resp.SuggestedNextCalls)
	}
	if resp.SuggestedNextCalls[0].Params["page"] != 3 {
		t.Errorf("suggested page = %v, want 3", resp.SuggestedNextCalls[0].Params["page"])
	}
}

func TestReadOverflowPageLastPage(t *testing.T) {
	server, _ := newTestServer(t)

	items := []interface{}{map[string]interface{}{"n": 0}, map[string]interface{}{"n": 1}}
	rec, err := server.store.Put(context.Background(), "test", items)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	resp, err := server.toolReadOverflowPage(context.Background(), map[string]interface{}{
		"overflowId": rec.ID,
	})
	if err != nil {
		t.Fatalf("toolReadOverflowPage() error = %v", err)
	}
	if len(resp.SuggestedNextCalls) != 0 {
		t.Errorf("single page should not suggest a next page, got %v", resp.SuggestedNextCalls)
	}
}

func TestReadOverflowPageNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	items := []interface{}{map[string]interface{}{"n": 0}}
	rec, err := server.store.Put(context.Background(), "test", items)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	cases := []struct {
		name string
		args map[string]interface{}
	}{
		{"unknown id", map[string]interface{}{"overflowId": "ovf_nope", "page": 1}},
		{"page out of range", map[string]interface{}{"overflowId": rec.ID, "page": 99}},
	}
	for _, tc := range cases {
		resp, err := server.toolReadOverflowPage(context.Background(), tc.args)
		if err != nil {
			t.Fatalf("%s: error = %v", tc.name, err)
		}
		if resp.Success {
			t.Errorf("%s: expected failure", tc.name)
		}
		if resp.ErrorCode != "OVERFLOW_RECORD_NOT_FOUND" {
			t.Errorf("%s: errorCode = %s, want OVERFLOW_RECORD_NOT_FOUND", tc.name, resp.ErrorCode)
		}
	}
}

func TestReadOverflowPageBadArgs(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.toolReadOverflowPage(context.Background(), map[string]interface{}{
		"overflowId": "ovf_x", "page": -1,
	})
	if err != nil {
		t.Fatalf("toolReadOverflowPage() error = %v", err)
	}
	if resp.Success || resp.ErrorCode != "INVALID_DEPTH_OR_BUDGET" {
		t.Errorf("negative page: errorCode = %s, want INVALID_DEPTH_OR_BUDGET", resp.ErrorCode)
	}

	resp, err = server.toolReadOverflowPage(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("toolReadOverflowPage() error = %v", err)
	}
	if resp.Success || resp.ErrorCode != "INVALID_DEPTH_OR_BUDGET" {
		t.Errorf("missing id: errorCode = %s, want INVALID_DEPTH_OR_BUDGET", resp.ErrorCode)
	}
}

func TestGetStatus(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.toolGetStatus(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("toolGetStatus() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got errorCode %s: %s", resp.ErrorCode, resp.Message)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Data should be a map, got %T", resp.Data)
	}
	if data["version"] != "0.0.0-test" {
		t.Errorf("version = %v, want 0.0.0-test", data["version"])
	}
	project := data["project"].(map[string]interface{})
	if project["name"] != "demo" || project["language"] != "go" {
		t.Errorf("project = %v, want demo/go", project)
	}
	if _, ok := data["overflow"]; !ok {
		t.Error("status should report overflow store stats")
	}
}
