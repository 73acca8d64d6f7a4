// Package mcp implements the MCP stdio server: JSON-RPC 2.0 messages, one
// per line, exposing the analysis engine's operations as tools.
package mcp

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"panopticon/internal/engine"
	"panopticon/internal/logging"
)

// Server speaks MCP over stdin/stdout and dispatches tool calls to the
// analysis engine.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *logging.Logger
	version string
	engine  *engine.Engine
	tools   map[string]ToolHandler
}

// NewServer creates an MCP server bound to an engine.
func NewServer(version string, eng *engine.Engine, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger.Component("mcp"),
		version: version,
		engine:  eng,
		tools:   make(map[string]ToolHandler),
	}
	s.registerTools()
	return s
}

// Start begins processing messages and blocks until the input stream closes.
func (s *Server) Start() error {
	s.logger.Info("MCP server starting", map[string]interface{}{
		"version": s.version,
	})

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)", nil)
				return nil
			}
			s.logger.Error("Error reading message", map[string]interface{}{
				"error": err.Error(),
			})

			// Malformed JSON has no usable id; respond with null per JSON-RPC
			_ = s.writeError(nil, ParseError, fmt.Sprintf("Failed to parse message: %v", err))
			continue
		}

		response := s.handleMessage(msg)

		// Notifications don't generate responses
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// SetStdin sets the input stream (for testing).
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing).
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}
