package mcp

import (
	"context"

	"codenav/internal/envelope"
)

// Tool represents a navigation tool exposed via MCP
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler handles a tool call and returns an envelope response. Domain
// failures are reported inside the envelope; the error return is reserved
// for context cancellation.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (*envelope.Response, error)

// GetToolDefinitions returns all tool definitions
func (s *Server) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "get_call_hierarchy",
			Description: "Build the bounded call hierarchy around the symbol at a position: callers above, callees below, cycle-safe, marked truncated where the depth or node budget cut it off",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file": map[string]interface{}{
						"type":        "string",
						"description": "Source file path, relative to the project root",
					},
					"line": map[string]interface{}{
						"type":        "number",
						"description": "1-indexed line of the symbol occurrence",
					},
					"column": map[string]interface{}{
						"type":        "number",
						"description": "1-indexed column of the symbol occurrence",
					},
					"direction": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"incoming", "outgoing", "both"},
						"default":     "both",
						"description": "Which way to expand: callers (incoming), callees (outgoing), or both",
					},
					"maxDepth": map[string]interface{}{
						"type":        "number",
						"default":     2,
						"description": "Edge levels to expand per direction (1-4)",
					},
					"maxNodes": map[string]interface{}{
						"type":        "number",
						"default":     100,
						"description": "Maximum total nodes in the returned tree",
					},
				},
				"required": []string{"file", "line", "column"},
			},
		},
		{
			Name:        "get_type_hierarchy",
			Description: "Build the type hierarchy around the symbol at a position: derived types, interface implementations and overriding members upward, base types and overridden members downward",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file": map[string]interface{}{
						"type":        "string",
						"description": "Source file path, relative to the project root",
					},
					"line": map[string]interface{}{
						"type":        "number",
						"description": "1-indexed line of the symbol occurrence",
					},
					"column": map[string]interface{}{
						"type":        "number",
						"description": "1-indexed column of the symbol occurrence",
					},
					"transitive": map[string]interface{}{
						"type":        "boolean",
						"default":     true,
						"description": "Walk derived types and overrides transitively; false returns immediate relations only",
					},
					"maxDepth": map[string]interface{}{
						"type":        "number",
						"default":     2,
						"description": "Edge levels to expand per direction (1-4)",
					},
					"maxNodes": map[string]interface{}{
						"type":        "number",
						"default":     100,
						"description": "Maximum total nodes in the returned tree",
					},
				},
				"required": []string{"file", "line", "column"},
			},
		},
		{
			Name:        "find_references",
			Description: "Find all references to the symbol at a position. Truncated result sets are stored in full and can be paged with read_overflow_page",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file": map[string]interface{}{
						"type":        "string",
						"description": "Source file path, relative to the project root",
					},
					"line": map[string]interface{}{
						"type":        "number",
						"description": "1-indexed line of the symbol occurrence",
					},
					"column": map[string]interface{}{
						"type":        "number",
						"description": "1-indexed column of the symbol occurrence",
					},
					"maxResults": map[string]interface{}{
						"type":        "number",
						"default":     100,
						"description": "Maximum number of references to return",
					},
				},
				"required": []string{"file", "line", "column"},
			},
		},
		{
			Name:        "get_diagnostics",
			Description: "List analyzer diagnostics recorded in the index for the whole project or a single file",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scope": map[string]interface{}{
						"type":        "string",
						"default":     "project",
						"description": "Either 'project' or 'file:<path>'",
					},
					"maxResults": map[string]interface{}{
						"type":        "number",
						"default":     100,
						"description": "Maximum number of diagnostics to return",
					},
				},
			},
		},
		{
			Name:        "rename_symbol",
			Description: "Plan a rename of the symbol at a position: every occurrence across the project, grouped per file. Preview only; no files are modified",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file": map[string]interface{}{
						"type":        "string",
						"description": "Source file path, relative to the project root",
					},
					"line": map[string]interface{}{
						"type":        "number",
						"description": "1-indexed line of the symbol occurrence",
					},
					"column": map[string]interface{}{
						"type":        "number",
						"description": "1-indexed column of the symbol occurrence",
					},
					"newName": map[string]interface{}{
						"type":        "string",
						"description": "Replacement name for every occurrence",
					},
					"preview": map[string]interface{}{
						"type":        "boolean",
						"default":     true,
						"description": "Always returns an edit plan; applying edits is the editor's job",
					},
				},
				"required": []string{"file", "line", "column", "newName"},
			},
		},
		{
			Name:        "read_overflow_page",
			Description: "Read one page of a stored overflow record referenced by a truncated response's overflowId",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"overflowId": map[string]interface{}{
						"type":        "string",
						"description": "The overflowId from a truncated response",
					},
					"page": map[string]interface{}{
						"type":        "number",
						"default":     1,
						"description": "1-based page number",
					},
				},
				"required": []string{"overflowId"},
			},
		},
		{
			Name:        "get_status",
			Description: "Get project, index freshness, and overflow store status",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// RegisterTools wires every tool handler into the dispatch table.
func (s *Server) RegisterTools() {
	s.tools["get_call_hierarchy"] = s.toolGetCallHierarchy
	s.tools["get_type_hierarchy"] = s.toolGetTypeHierarchy
	s.tools["find_references"] = s.toolFindReferences
	s.tools["get_diagnostics"] = s.toolGetDiagnostics
	s.tools["rename_symbol"] = s.toolRenameSymbol
	s.tools["read_overflow_page"] = s.toolReadOverflowPage
	s.tools["get_status"] = s.toolGetStatus
}
