package hierarchy

import (
	"strings"

	"codenav/internal/index"
)

// Mode selects which relationship family a hierarchy walks.
type Mode string

const (
	// ModeCalls walks caller/callee edges.
	ModeCalls Mode = "calls"
	// ModeTypes walks override, implementation and inheritance edges.
	ModeTypes Mode = "types"
)

// Direction selects which way edges are expanded from the focus symbol.
type Direction string

const (
	// DirectionIncoming expands toward the symbols that point at the focus
	// (callers, overriding members, derived types).
	DirectionIncoming Direction = "incoming"
	// DirectionOutgoing expands toward what the focus points at (callees,
	// base types, overridden members).
	DirectionOutgoing Direction = "outgoing"
	// DirectionBoth expands both ways from the focus.
	DirectionBoth Direction = "both"
)

// RelationKind classifies the edge between a node and its parent. The set
// is closed; Classify and the builder produce nothing outside it.
type RelationKind string

const (
	// RelationRoot marks the focus symbol itself.
	RelationRoot RelationKind = "root"
	// RelationCaller is a function that calls its parent.
	RelationCaller RelationKind = "caller"
	// RelationCallee is a function its parent calls.
	RelationCallee RelationKind = "callee"
	// RelationDirectOverride is a member overriding a virtual or abstract
	// class member.
	RelationDirectOverride RelationKind = "direct-override"
	// RelationExplicitInterfaceImpl is a member implementing an interface
	// member under the interface-qualified name.
	RelationExplicitInterfaceImpl RelationKind = "explicit-interface-impl"
	// RelationInterfaceMethodImpl is a member implicitly implementing an
	// interface member.
	RelationInterfaceMethodImpl RelationKind = "interface-method-impl"
	// RelationDerivedClass is a type extending its parent type.
	RelationDerivedClass RelationKind = "derived-class"
	// RelationDerivedInterface is an interface extending its parent
	// interface.
	RelationDerivedInterface RelationKind = "derived-interface"
	// RelationImplementingClass is a non-interface type implementing its
	// parent interface.
	RelationImplementingClass RelationKind = "implementing-class"
	// RelationBaseType is a supertype of its parent.
	RelationBaseType RelationKind = "base-type"
	// RelationBaseMember is the member its parent overrides.
	RelationBaseMember RelationKind = "base-member"
)

// Classify reports how impl relates to base. It depends only on its inputs:
// explicit implementations carry the interface-qualified name, class
// overrides carry the override modifier, and everything else at member
// level is an implicit interface implementation. Type-level edges split on
// the kinds of the two symbols.
func Classify(base, impl index.SymbolRef) RelationKind {
	if base.Kind.IsType() {
		switch {
		case base.Kind == index.KindInterface && impl.Kind == index.KindInterface:
			return RelationDerivedInterface
		case base.Kind == index.KindInterface:
			return RelationImplementingClass
		default:
			return RelationDerivedClass
		}
	}
	if strings.HasSuffix(impl.Name, "."+base.Name) {
		return RelationExplicitInterfaceImpl
	}
	if impl.Modifiers.Override {
		return RelationDirectOverride
	}
	return RelationInterfaceMethodImpl
}

// Node is one symbol in a relationship tree. Children grow away from the
// focus: under an incoming child they are further incoming edges, under an
// outgoing child further outgoing edges. Truncated marks nodes whose
// expansion stopped at the depth or node budget, not nodes proven to be
// leaves.
type Node struct {
	Symbol    index.SymbolRef `json:"symbol"`
	Relation  RelationKind    `json:"relation"`
	Depth     int             `json:"depth"`
	External  bool            `json:"external,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
	Children  []*Node         `json:"children,omitempty"`
}

// Tree is a bounded bidirectional hierarchy centered on Root. The root's
// children hold the incoming group before the outgoing group; every deeper
// level keeps its parent's direction.
type Tree struct {
	Root      *Node     `json:"root"`
	Mode      Mode      `json:"mode"`
	Direction Direction `json:"direction"`
	NodeCount int       `json:"nodeCount"`
}

// Options bound a hierarchy walk.
type Options struct {
	Mode      Mode
	Direction Direction
	// MaxDepth is the number of edge levels to expand. Zero or negative
	// yields just the root, marked truncated. Values above MaxDepth are
	// clamped.
	MaxDepth int
	// MaxNodes caps the total node count of the tree. Zero means
	// DefaultMaxNodes.
	MaxNodes int
}

const (
	// MaxDepth is the hard ceiling on expansion depth.
	MaxDepth = 4
	// DefaultMaxDepth is used when a walk does not say how deep to go.
	DefaultMaxDepth = 2
	// DefaultMaxNodes bounds tree size when the caller does not.
	DefaultMaxNodes = 100
)

func (o Options) normalized() Options {
	if o.Mode == "" {
		o.Mode = ModeCalls
	}
	if o.Direction == "" {
		o.Direction = DirectionBoth
	}
	if o.MaxDepth > MaxDepth {
		o.MaxDepth = MaxDepth // hard limit
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	return o
}
