package scipidx

import (
	"strings"

	"codenav/internal/index"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
)

// symbolID is a parsed SCIP symbol identifier.
// Format: <scheme> <manager> <package-name> <package-version> <descriptor>,
// or "local <id>" for document-local symbols.
//
// Examples:
//
//	scip-dotnet nuget app 1.0 Billing/Invoice#Total().
//	scip-go gomod example.com/svc v1.2.0 `svc/internal/api`/NewServer().
//	local 12
type symbolID struct {
	scheme     string
	manager    string
	pkg        string
	version    string
	descriptor string
	local      bool
	raw        string
}

func parseSymbolID(id string) symbolID {
	if strings.HasPrefix(id, "local ") {
		return symbolID{scheme: "local", descriptor: id[len("local "):], local: true, raw: id}
	}

	parts := strings.SplitN(id, " ", 5)
	s := symbolID{raw: id}
	switch len(parts) {
	case 5:
		s.scheme, s.manager, s.pkg, s.version, s.descriptor = parts[0], parts[1], parts[2], parts[3], parts[4]
	case 4:
		s.scheme, s.manager, s.pkg, s.descriptor = parts[0], parts[1], parts[2], parts[3]
	default:
		s.descriptor = id
	}
	return s
}

// simpleName extracts the display name from the descriptor: the last path or
// member segment, with the trailing kind marker and any method disambiguator
// removed.
func (s symbolID) simpleName() string {
	d := strings.TrimSuffix(s.descriptor, ".")
	d = strings.TrimSuffix(d, "#")
	d = strings.TrimSuffix(d, "/")

	// scip-go quotes package paths in backticks; the name follows the
	// closing quote.
	if i := strings.LastIndex(d, "`"); i >= 0 && i+1 < len(d) {
		d = d[i+1:]
	}
	if i := strings.LastIndex(d, "#"); i >= 0 && i+1 < len(d) {
		d = d[i+1:]
	}
	if i := strings.LastIndex(d, "/"); i >= 0 && i+1 < len(d) {
		d = d[i+1:]
	}
	if i := strings.LastIndex(d, "."); i >= 0 && i+1 < len(d) {
		d = d[i+1:]
	}
	// Method descriptors carry a disambiguator: Run(), Run(+1).
	if i := strings.Index(d, "("); i >= 0 {
		d = d[:i]
	}
	return d
}

// containerID rebuilds the symbol ID of the declaring type or namespace, or
// returns "" at top level. Local symbols have no container.
func (s symbolID) containerID() string {
	if s.local {
		return ""
	}
	d := strings.TrimSuffix(s.descriptor, ".")
	d = strings.TrimSuffix(d, "#")
	d = strings.TrimSuffix(d, "/")

	cd := ""
	if i := strings.LastIndex(d, "#"); i >= 0 {
		cd = d[:i+1]
	} else if i := strings.LastIndex(d, "/"); i >= 0 {
		cd = d[:i+1]
	}
	if cd == "" {
		return ""
	}
	if s.version == "" {
		return s.scheme + " " + s.manager + " " + s.pkg + " " + cd
	}
	return s.scheme + " " + s.manager + " " + s.pkg + " " + s.version + " " + cd
}

// inferKind infers the symbol kind from the descriptor's trailing marker.
// Used when the indexer left SymbolInformation.Kind unset, which scip-go
// still does for most symbols.
func inferKind(descriptor string) index.SymbolKind {
	switch {
	case strings.HasSuffix(descriptor, ")."):
		if strings.Contains(descriptor, "#") {
			return index.KindMethod
		}
		return index.KindFunction
	case strings.HasSuffix(descriptor, "#"):
		return index.KindClass
	case strings.HasSuffix(descriptor, "/"):
		return index.KindNamespace
	case strings.HasSuffix(descriptor, "."):
		if strings.Contains(descriptor, "#") {
			return index.KindField
		}
		return index.KindVariable
	}
	return index.KindUnknown
}

// isCallableID reports whether a symbol ID names a function or method.
// Method descriptors end in "()." or, for overloads, "(+1).", and both
// leave a ")." in the identifier that no other descriptor kind produces.
func isCallableID(id string) bool {
	return strings.Contains(id, ").")
}

// mapKind maps SCIP SymbolInformation kinds to the navigation kinds.
// Kinds outside this set fall back to descriptor inference.
func mapKind(kind scippb.SymbolInformation_Kind) index.SymbolKind {
	switch kind {
	case scippb.SymbolInformation_Class:
		return index.KindClass
	case scippb.SymbolInformation_Interface, scippb.SymbolInformation_Trait:
		return index.KindInterface
	case scippb.SymbolInformation_Struct:
		return index.KindStruct
	case scippb.SymbolInformation_Enum:
		return index.KindEnum
	case scippb.SymbolInformation_Method, scippb.SymbolInformation_Constructor:
		return index.KindMethod
	case scippb.SymbolInformation_Function, scippb.SymbolInformation_Macro:
		return index.KindFunction
	case scippb.SymbolInformation_Field, scippb.SymbolInformation_Property:
		return index.KindField
	case scippb.SymbolInformation_Variable, scippb.SymbolInformation_Parameter:
		return index.KindVariable
	case scippb.SymbolInformation_Constant, scippb.SymbolInformation_EnumMember:
		return index.KindConstant
	case scippb.SymbolInformation_Namespace, scippb.SymbolInformation_Package:
		return index.KindNamespace
	default:
		return index.KindUnknown
	}
}

// hasSignatureWord reports whether the first documentation entry (the
// signature block by indexer convention) contains the given modifier word.
func hasSignatureWord(docs []string, word string) bool {
	if len(docs) == 0 {
		return false
	}
	return strings.Contains(docs[0], word+" ")
}
