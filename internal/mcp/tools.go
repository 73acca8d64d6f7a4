package mcp

import "panopticon/internal/envelope"

// Tool represents a tool exposed via MCP.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler is a function that handles a tool call and returns an envelope response.
type ToolHandler func(params map[string]interface{}) (*envelope.Response, error)

// repoSchema builds an input schema carrying the shared repository source
// properties plus any tool-specific ones.
func repoSchema(extra map[string]interface{}, required ...string) map[string]interface{} {
	props := map[string]interface{}{
		"location": map[string]interface{}{
			"type":        "string",
			"description": "Repository location: an https/ssh remote or a local path",
		},
		"credential": map[string]interface{}{
			"type":        "string",
			"description": "Access token for private https remotes (never logged or echoed)",
		},
		"branch": map[string]interface{}{
			"type":        "string",
			"description": "Branch to check out (default: the remote's default branch)",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   append([]string{"location"}, required...),
	}
}

// GetToolDefinitions returns all tool definitions.
func (s *Server) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "analyzeRepository",
			Description: "Run the full analysis pipeline against a repository: detect languages, run the matching static analyzers and the security scanner, and return an aggregated report",
			InputSchema: repoSchema(map[string]interface{}{
				"minConfidence": map[string]interface{}{
					"type":        "number",
					"minimum":     0,
					"maximum":     1,
					"description": "Minimum language confidence for analyzer selection (overrides the configured threshold)",
				},
				"languages": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Restrict analysis to these languages (the security scan still runs)",
				},
			}),
		},
		{
			Name:        "detectLanguages",
			Description: "Detect the programming languages used in a repository with confidence scores",
			InputSchema: repoSchema(nil),
		},
		{
			Name:        "getRepositoryStructure",
			Description: "Get a bounded directory tree of the repository plus any dependency manifests found (go.mod, package.json, pyproject.toml, Cargo.toml, pom.xml, pubspec.yaml)",
			InputSchema: repoSchema(map[string]interface{}{
				"maxDepth": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum tree depth (default 4)",
				},
				"maxEntries": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum entries rendered before truncation (default 400)",
				},
			}),
		},
		{
			Name:        "inspectFiles",
			Description: "Read specific files from the repository. Per-file problems (missing, binary, oversized) are reported per file, not as call failures",
			InputSchema: repoSchema(map[string]interface{}{
				"paths": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Repository-relative file paths (max 50)",
				},
			}, "paths"),
		},
		{
			Name:        "listBranches",
			Description: "List the branches known from the repository's remote",
			InputSchema: repoSchema(nil),
		},
		{
			Name:        "compareRevisions",
			Description: "Get a unified diff between two revisions",
			InputSchema: repoSchema(map[string]interface{}{
				"base": map[string]interface{}{
					"type":        "string",
					"description": "Base revision (default: the target's parent)",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"description": "Target revision (default HEAD)",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Limit the diff to one path",
				},
			}),
		},
		{
			Name:        "getCommitHistory",
			Description: "Get the commit log, newest first",
			InputSchema: repoSchema(map[string]interface{}{
				"revision": map[string]interface{}{
					"type":        "string",
					"description": "Revision to log from (default HEAD)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum commits to return (default 20, max 200)",
				},
			}),
		},
		{
			Name:        "getScanHistory",
			Description: "List recorded analysis runs, or fetch one run with its full report by id",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"runId": map[string]interface{}{
						"type":        "string",
						"description": "Fetch a single run, including its stored report",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum runs to list (default 20)",
					},
				},
			},
		},
		{
			Name:        "getStatus",
			Description: "Get server status: version, cache location, history state, and which analyzer binaries are installed",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// registerTools wires tool names to their handlers.
func (s *Server) registerTools() {
	s.tools["analyzeRepository"] = s.toolAnalyzeRepository
	s.tools["detectLanguages"] = s.toolDetectLanguages
	s.tools["getRepositoryStructure"] = s.toolGetRepositoryStructure
	s.tools["inspectFiles"] = s.toolInspectFiles
	s.tools["listBranches"] = s.toolListBranches
	s.tools["compareRevisions"] = s.toolCompareRevisions
	s.tools["getCommitHistory"] = s.toolGetCommitHistory
	s.tools["getScanHistory"] = s.toolGetScanHistory
	s.tools["getStatus"] = s.toolGetStatus
}
