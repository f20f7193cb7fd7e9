package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"codenav/internal/envelope"
)

// Resource represents a static resource
type Resource struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// ResourceTemplate represents a dynamic resource with URI template
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
}

// GetResourceDefinitions returns static resources and resource templates
func (s *Server) GetResourceDefinitions() ([]Resource, []ResourceTemplate) {
	resources := []Resource{
		{
			URI:  "codenav://status",
			Name: "Project Status",
		},
	}

	templates := []ResourceTemplate{
		{
			URITemplate: "codenav://overflow/{overflowId}/page/{page}",
			Name:        "Overflow Page",
		},
	}

	return resources, templates
}

// handleResourceRead resolves a resource URI to the same envelopes the tools
// produce. Malformed URIs are protocol errors, not domain envelopes.
func (s *Server) handleResourceRead(ctx context.Context, uri string) (*envelope.Response, error) {
	s.logger.Debug("reading resource", "uri", uri)

	if !strings.HasPrefix(uri, "codenav://") {
		return nil, &MCPError{Code: InvalidParams, Message: "expected codenav:// scheme"}
	}

	path := strings.TrimPrefix(uri, "codenav://")
	parts := strings.Split(path, "/")

	switch parts[0] {
	case "status":
		return s.toolGetStatus(ctx, map[string]interface{}{})
	case "overflow":
		if len(parts) != 4 || parts[2] != "page" {
			return nil, &MCPError{Code: InvalidParams,
				Message: "overflow URI must be codenav://overflow/{overflowId}/page/{page}"}
		}
		page, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, &MCPError{Code: InvalidParams,
				Message: fmt.Sprintf("invalid page number %q", parts[3])}
		}
		return s.toolReadOverflowPage(ctx, map[string]interface{}{
			"overflowId": parts[1],
			"page":       page,
		})
	default:
		return nil, &MCPError{Code: MethodNotFound,
			Message: fmt.Sprintf("unknown resource type: %s", parts[0])}
	}
}
