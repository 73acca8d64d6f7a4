package mcp

import (
	"encoding/json"
	"fmt"

	"panopticon/internal/envelope"
)

// handleMessage processes an incoming message and returns a response, or nil
// when none is owed (notifications, stray responses).
func (s *Server) handleMessage(msg *Message) *Message {
	if msg.IsResponse() {
		s.logger.Debug("Ignoring client response", map[string]interface{}{
			"id": msg.Id,
		})
		return nil
	}

	if msg.IsRequest() {
		return s.handleRequest(msg)
	}

	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}

	return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
}

// handleRequest handles a JSON-RPC request.
func (s *Server) handleRequest(msg *Message) *Message {
	s.logger.Debug("Handling request", map[string]interface{}{
		"method": msg.Method,
		"id":     msg.Id,
	})

	switch msg.Method {
	case "initialize":
		return s.handleInitializeRequest(msg)
	case "tools/list":
		return s.handleListToolsRequest(msg)
	case "tools/call":
		return s.handleCallToolRequest(msg)
	case "resources/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"resources": []interface{}{},
		})
	case "prompts/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"prompts": []interface{}{},
		})
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

// handleNotification handles a JSON-RPC notification.
func (s *Server) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized", nil)
	default:
		s.logger.Debug("Ignoring notification", map[string]interface{}{
			"method": msg.Method,
		})
	}
}

// handleInitializeRequest handles the initialize request.
func (s *Server) handleInitializeRequest(msg *Message) *Message {
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

// handleListToolsRequest handles the tools/list request.
func (s *Server) handleListToolsRequest(msg *Message) *Message {
	return NewResultMessage(msg.Id, map[string]interface{}{
		"tools": s.GetToolDefinitions(),
	})
}

// handleCallToolRequest handles the tools/call request. Tool failures travel
// inside the envelope as successful JSON-RPC results; only protocol misuse
// becomes a JSON-RPC error.
func (s *Server) handleCallToolRequest(msg *Message) *Message {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}

	toolName, ok := params["name"].(string)
	if !ok || toolName == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: tool name is required", nil)
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return NewErrorMessage(msg.Id, InvalidParams, fmt.Sprintf("Unknown tool: %s", toolName), nil)
	}

	args, ok := params["arguments"].(map[string]interface{})
	if !ok {
		args = make(map[string]interface{})
	}

	s.logger.Info("Calling tool", map[string]interface{}{
		"tool": toolName,
	})

	resp, err := handler(args)
	if err != nil {
		resp = envelope.New().Data(nil).Error(err).Build()
	}

	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError, fmt.Sprintf("marshal response: %v", err), nil)
	}

	return NewResultMessage(msg.Id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(jsonBytes),
			},
		},
	})
}
