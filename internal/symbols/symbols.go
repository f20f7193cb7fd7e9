// Package symbols locates declarations in source text using tree-sitter.
// It backs the enclosing-declaration lookup when the symbol index carries
// no usable body range for a position. Scanning requires CGO; without it
// NewScanner returns nil and every scan reports ErrNoCGO.
package symbols

import "errors"

// ErrNoCGO is returned when source scanning is unavailable because the
// binary was built without CGO (tree-sitter).
var ErrNoCGO = errors.New("source scanning requires CGO (tree-sitter)")

// Language identifies a grammar supported by the scanner.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// Declaration is one named declaration found in source, with a 1-indexed
// line extent.
type Declaration struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"` // "function", "method", "class", "interface", "type"
	Container string `json:"container,omitempty"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// LanguageFromExtension returns the Language for a file extension.
func LanguageFromExtension(ext string) (Language, bool) {
	switch ext {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// innermost picks the declaration with the smallest line extent containing
// the given line. Declarations are in pre-order, so on an equal extent the
// later, more deeply nested one wins.
func innermost(decls []Declaration, line int) (Declaration, bool) {
	best := -1
	for i, d := range decls {
		if line < d.StartLine || line > d.EndLine {
			continue
		}
		if best < 0 || d.EndLine-d.StartLine <= decls[best].EndLine-decls[best].StartLine {
			best = i
		}
	}
	if best < 0 {
		return Declaration{}, false
	}
	return decls[best], true
}
