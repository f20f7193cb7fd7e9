// Package envelope provides the standardized response wrapper for all MCP
// tool responses. Every tool response carries the same envelope: success
// flag, result counts, the shaped items or tree, truncation state with an
// overflow reference when results were cut, and metadata about budget and
// index freshness.
package envelope

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`  // items returned
	Total       int    `json:"total,omitempty"`  // total available
	Reason      string `json:"reason,omitempty"` // "budget-exceeded", "hard-cap", etc.
}

// BudgetInfo reports the cost accounting behind a shaped response.
type BudgetInfo struct {
	Limit         int `json:"limit"`         // budget ceiling in cost units
	EstimatedCost int `json:"estimatedCost"` // estimate for the returned set
}

// IndexFreshness describes the symbol index a response was answered from.
type IndexFreshness struct {
	Path      string `json:"path,omitempty"`      // index file path
	IndexedAt string `json:"indexedAt,omitempty"` // index mtime, RFC3339
	Documents int    `json:"documents,omitempty"` // indexed document count
	Symbols   int    `json:"symbols,omitempty"`   // indexed symbol count
}

// Meta holds response metadata.
type Meta struct {
	Tool       string          `json:"tool,omitempty"`
	ElapsedMs  int64           `json:"elapsedMs,omitempty"`
	Budget     *BudgetInfo     `json:"budget,omitempty"`
	Truncation *Truncation     `json:"truncation,omitempty"`
	Freshness  *IndexFreshness `json:"freshness,omitempty"`
}

// SuggestedCall represents a recommended follow-up tool call.
type SuggestedCall struct {
	Tool   string                 `json:"tool"`             // tool name
	Params map[string]interface{} `json:"params,omitempty"` // pre-filled parameters
	Reason string                 `json:"reason,omitempty"` // why this is suggested
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"` // machine-readable code
	Message string `json:"message"`        // human-readable message
}

// Response is the standard envelope for all MCP tool responses.
//
// Shaped results use Items (flat lists) or Tree (hierarchies) plus the
// TotalFound/Returned/Truncated accounting; operational tools carry their
// payload in Data. When Truncated is true, OverflowID names the stored full
// result and the first advisory explains how to page through it.
type Response struct {
	SchemaVersion string      `json:"schemaVersion"`
	Success       bool        `json:"success"`
	Message       string      `json:"message,omitempty"`
	TotalFound    int         `json:"totalFound"`
	Returned      int         `json:"returned"`
	Items         interface{} `json:"items,omitempty"`
	Tree          interface{} `json:"tree,omitempty"`
	Data          interface{} `json:"data,omitempty"`
	Truncated     bool        `json:"truncated"`
	OverflowID    string      `json:"overflowId,omitempty"`
	OverflowPages int         `json:"overflowPages,omitempty"`
	ErrorCode     string      `json:"errorCode,omitempty"`
	Hints         []string    `json:"hints,omitempty"`
	Advisories    []string    `json:"advisories,omitempty"`

	Warnings           []Warning       `json:"warnings,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
	Meta               *Meta           `json:"meta,omitempty"`
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"
