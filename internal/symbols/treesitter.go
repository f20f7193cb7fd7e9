//go:build cgo

package symbols

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Scanner finds declarations in source files using tree-sitter.
type Scanner struct {
	mu     sync.Mutex // sitter.Parser is not safe for concurrent use
	parser *sitter.Parser
}

// NewScanner creates a new declaration scanner.
func NewScanner() *Scanner {
	return &Scanner{
		parser: sitter.NewParser(),
	}
}

// ScanSource parses source bytes and returns every named declaration in
// pre-order: containers before the declarations nested inside them.
func (s *Scanner) ScanSource(ctx context.Context, source []byte, lang Language) ([]Declaration, error) {
	root, err := s.parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}

	fnTypes := functionNodeTypes(lang)
	boxTypes := containerNodeTypes(lang)

	var decls []Declaration
	var walk func(node *sitter.Node, container string)
	walk = func(node *sitter.Node, container string) {
		if node == nil {
			return
		}

		next := container
		switch {
		case contains(boxTypes, node.Type()):
			if name := declarationName(node, source, lang); name != "" {
				decls = append(decls, Declaration{
					Name:      name,
					Kind:      containerKind(node.Type(), lang),
					Container: container,
					StartLine: int(node.StartPoint().Row) + 1,
					EndLine:   int(node.EndPoint().Row) + 1,
				})
				next = name
			}
		case contains(fnTypes, node.Type()):
			if name := declarationName(node, source, lang); name != "" {
				kind := "function"
				if container != "" || node.Type() == "method_declaration" ||
					node.Type() == "method_definition" || node.Type() == "constructor_declaration" {
					kind = "method"
				}
				decls = append(decls, Declaration{
					Name:      name,
					Kind:      kind,
					Container: container,
					StartLine: int(node.StartPoint().Row) + 1,
					EndLine:   int(node.EndPoint().Row) + 1,
				})
			}
		}

		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)), next)
		}
	}

	walk(root, "")
	return decls, nil
}

// EnclosingDeclaration returns the innermost declaration whose line extent
// contains the given 1-indexed line, and false when no declaration does.
func (s *Scanner) EnclosingDeclaration(ctx context.Context, source []byte, lang Language, line int) (Declaration, bool, error) {
	decls, err := s.ScanSource(ctx, source, lang)
	if err != nil {
		return Declaration{}, false, err
	}
	d, ok := innermost(decls, line)
	return d, ok, nil
}

func (s *Scanner) parse(ctx context.Context, source []byte, lang Language) (*sitter.Node, error) {
	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.parser.SetLanguage(grammar)
	tree, err := s.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree.RootNode(), nil
}

// grammarFor returns the tree-sitter grammar for a language.
func grammarFor(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// functionNodeTypes returns the node types for named functions and methods.
func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"function_declaration", "generator_function_declaration", "method_definition"}
	case LangPython:
		return []string{"function_definition"}
	case LangRust:
		return []string{"function_item"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangKotlin:
		return []string{"function_declaration"}
	default:
		return nil
	}
}

// containerNodeTypes returns the node types for classes, interfaces and
// type declarations.
func containerNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"type_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"class_declaration", "interface_declaration"}
	case LangPython:
		return []string{"class_definition"}
	case LangRust:
		return []string{"struct_item", "enum_item", "trait_item", "impl_item"}
	case LangJava:
		return []string{"class_declaration", "interface_declaration", "enum_declaration"}
	case LangKotlin:
		return []string{"class_declaration", "interface_declaration", "object_declaration"}
	default:
		return nil
	}
}

// containerKind maps a container node type to a declaration kind.
func containerKind(nodeType string, lang Language) string {
	if nodeType == "interface_declaration" || nodeType == "trait_item" {
		return "interface"
	}
	switch lang {
	case LangGo, LangRust:
		return "type"
	}
	if nodeType == "enum_declaration" {
		return "type"
	}
	return "class"
}

// declarationName extracts the declared name from a node.
func declarationName(node *sitter.Node, source []byte, lang Language) string {
	var nameNode *sitter.Node

	switch lang {
	case LangGo:
		if node.Type() == "type_declaration" {
			// type_declaration wraps a type_spec that carries the name
			for i := uint32(0); i < node.ChildCount(); i++ {
				child := node.Child(int(i))
				if child != nil && child.Type() == "type_spec" {
					nameNode = child.ChildByFieldName("name")
					break
				}
			}
		} else {
			nameNode = node.ChildByFieldName("name")
		}

	case LangRust:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil && node.Type() == "impl_item" {
			// impl blocks name the type they extend
			for i := uint32(0); i < node.ChildCount(); i++ {
				child := node.Child(int(i))
				if child != nil && child.Type() == "type_identifier" {
					nameNode = child
					break
				}
			}
		}

	case LangKotlin:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil {
			for i := uint32(0); i < node.ChildCount(); i++ {
				child := node.Child(int(i))
				if child != nil && child.Type() == "simple_identifier" {
					nameNode = child
					break
				}
			}
		}

	default:
		nameNode = node.ChildByFieldName("name")
	}

	if nameNode == nil {
		return ""
	}
	return string(source[nameNode.StartByte():nameNode.EndByte()])
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// IsAvailable returns whether source scanning is available.
func IsAvailable() bool {
	return true
}
