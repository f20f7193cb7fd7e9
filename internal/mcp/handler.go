package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"codenav/internal/envelope"
)

// handleRequest handles a JSON-RPC request and always produces a response.
func (s *Server) handleRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	s.logger.Debug("handling request",
		"method", msg.Method,
		"id", msg.Id,
	)

	switch msg.Method {
	case "initialize":
		return s.handleInitializeRequest(msg)
	case "tools/list":
		return s.handleListToolsRequest(msg)
	case "tools/call":
		return s.handleCallToolRequest(ctx, msg)
	case "resources/list":
		return s.handleListResourcesRequest(msg)
	case "resources/read":
		return s.handleReadResourceRequest(ctx, msg)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

// handleNotification handles a JSON-RPC notification
func (s *Server) handleNotification(msg *MCPMessage) {
	s.logger.Debug("handling notification", "method", msg.Method)

	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("client initialized")
	case "notifications/cancelled":
		params, ok := msg.Params.(map[string]interface{})
		if !ok {
			return
		}
		s.cancelRequest(params["requestId"])
	default:
		s.logger.Debug("unknown notification", "method", msg.Method)
	}
}

// handleInitializeRequest handles the initialize request
func (s *Server) handleInitializeRequest(msg *MCPMessage) *MCPMessage {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		params = make(map[string]interface{})
	}

	result, err := s.handleInitialize(params)
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError, err.Error(), nil)
	}

	return NewResultMessage(msg.Id, result)
}

// handleListToolsRequest handles the tools/list request
func (s *Server) handleListToolsRequest(msg *MCPMessage) *MCPMessage {
	return NewResultMessage(msg.Id, map[string]interface{}{
		"tools": s.GetToolDefinitions(),
	})
}

// handleCallToolRequest handles the tools/call request. Cancelled handlers
// produce no envelope; the request is answered with a protocol error.
func (s *Server) handleCallToolRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}

	result, err := s.handleCallTool(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return NewErrorMessage(msg.Id, RequestCancelled, "request cancelled", nil)
		}
		var mcpErr *MCPError
		if errors.As(err, &mcpErr) {
			return NewErrorMessage(msg.Id, mcpErr.Code, mcpErr.Message, mcpErr.Data)
		}
		return NewErrorMessage(msg.Id, InternalError, err.Error(), nil)
	}

	return NewResultMessage(msg.Id, result)
}

// handleListResourcesRequest handles the resources/list request
func (s *Server) handleListResourcesRequest(msg *MCPMessage) *MCPMessage {
	resources, templates := s.GetResourceDefinitions()
	return NewResultMessage(msg.Id, map[string]interface{}{
		"resources":         resources,
		"resourceTemplates": templates,
	})
}

// handleReadResourceRequest handles the resources/read request
func (s *Server) handleReadResourceRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}
	uri, ok := params["uri"].(string)
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "missing 'uri' parameter", nil)
	}

	s.logger.Info("reading resource", "uri", uri)

	resp, err := s.handleResourceRead(ctx, uri)
	if err != nil {
		if ctx.Err() != nil {
			return NewErrorMessage(msg.Id, RequestCancelled, "request cancelled", nil)
		}
		var mcpErr *MCPError
		if errors.As(err, &mcpErr) {
			return NewErrorMessage(msg.Id, mcpErr.Code, mcpErr.Message, mcpErr.Data)
		}
		return NewErrorMessage(msg.Id, InternalError, err.Error(), nil)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError, fmt.Sprintf("marshal resource: %v", err), nil)
	}

	return NewResultMessage(msg.Id, map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"uri":      uri,
				"mimeType": "application/json",
				"text":     string(data),
			},
		},
	})
}

// handleCallTool executes a tool and wraps its envelope in the MCP content
// format. Tool-level failures stay inside the envelope; only unknown tools,
// malformed params and cancellation surface as errors here.
func (s *Server) handleCallTool(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	toolName, ok := params["name"].(string)
	if !ok {
		return nil, &MCPError{Code: InvalidParams, Message: "missing tool name"}
	}

	args, ok := params["arguments"].(map[string]interface{})
	if !ok {
		args = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return nil, &MCPError{Code: MethodNotFound, Message: fmt.Sprintf("unknown tool: %s", toolName)}
	}

	s.logger.Info("calling tool", "tool", toolName)

	resp, err := handler(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err // cancelled: no envelope
		}
		resp = envelope.New(toolName).Error(err).Build()
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal tool response: %w", err)
	}

	return map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(data),
			},
		},
	}, nil
}
