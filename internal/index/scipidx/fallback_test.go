//go:build cgo

package scipidx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"codenav/internal/config"
	"codenav/internal/index"
	"codenav/internal/slogutil"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

const (
	symJobRun    = "scip-python python proj 1.0 job/run."
	symDbConnect = "scip-python python db 2.0 db/connect()."
)

// scip-python records module-level bindings as terms, so the range builder
// has nothing to work with; the tree-sitter scanner recovers the enclosing
// declaration from the source file instead.
func TestResolveEnclosingDeclarationScansSource(t *testing.T) {
	dir := t.TempDir()

	source := `import db

def run():
    db.connect()
    db.sync()
`
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "job.py"), []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	def := int32(scippb.SymbolRole_Definition)
	pb := &scippb.Index{
		Metadata: &scippb.Metadata{
			ToolInfo: &scippb.ToolInfo{Name: "scip-python", Version: "0.6.0"},
		},
		Documents: []*scippb.Document{{
			RelativePath: "src/job.py",
			Language:     "python",
			Occurrences: []*scippb.Occurrence{
				occurrencePB(symJobRun, []int32{2, 4, 7}, def),
				occurrencePB(symDbConnect, []int32{3, 4, 14}, 0),
			},
		}},
	}

	data, err := proto.Marshal(pb)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.scip"), data, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	idx, err := Load(dir, config.IndexConfig{ScipPath: "index.scip"}, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ctx := context.Background()

	ref, err := idx.ResolveEnclosingDeclaration(ctx, "src/job.py", index.Span{StartLine: 4, StartColumn: 5})
	if err != nil {
		t.Fatalf("ResolveEnclosingDeclaration() error = %v", err)
	}
	if ref.ID != symJobRun {
		t.Errorf("ResolveEnclosingDeclaration() = %s, want %s", ref.ID, symJobRun)
	}
	if ref.Name != "run" {
		t.Errorf("Name = %s, want run", ref.Name)
	}

	// The import line is outside every declaration, even for the scanner.
	_, err = idx.ResolveEnclosingDeclaration(ctx, "src/job.py", index.Span{StartLine: 1, StartColumn: 1})
	if !errors.Is(err, index.ErrNotFound) {
		t.Errorf("line 1 error = %v, want ErrNotFound", err)
	}
}
