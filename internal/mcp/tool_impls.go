package mcp

import (
	"context"

	"panopticon/internal/engine"
	"panopticon/internal/envelope"
	"panopticon/internal/treeview"
)

// sourceFromParams extracts the shared repository source parameters. Missing
// location is caught by engine validation, not here.
func sourceFromParams(params map[string]interface{}) engine.Source {
	return engine.Source{
		Location:   stringParam(params, "location"),
		Credential: stringParam(params, "credential"),
		Branch:     stringParam(params, "branch"),
	}
}

func stringParam(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}

// intParam reads an integer parameter. JSON numbers arrive as float64.
func intParam(params map[string]interface{}, key string, def int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return def
}

// toolAnalyzeRepository implements the analyzeRepository tool.
func (s *Server) toolAnalyzeRepository(params map[string]interface{}) (*envelope.Response, error) {
	req := engine.AnalyzeRequest{Source: sourceFromParams(params)}
	if v, ok := params["minConfidence"].(float64); ok {
		req.MinConfidence = &v
	}
	if v, ok := params["languages"].([]interface{}); ok {
		for _, item := range v {
			if name, ok := item.(string); ok {
				req.Languages = append(req.Languages, name)
			}
		}
	}

	rep, err := s.engine.AnalyzeRepository(context.Background(), req)
	if err != nil {
		return nil, err
	}

	b := envelope.New().Data(rep)
	if rep.Stale {
		b.WarningWithCode("STALE_WORKSPACE", "the remote could not be refreshed; analysis ran against the cached copy")
	}
	return b.Build(), nil
}

// toolDetectLanguages implements the detectLanguages tool.
func (s *Server) toolDetectLanguages(params map[string]interface{}) (*envelope.Response, error) {
	langs, err := s.engine.DetectLanguages(context.Background(), sourceFromParams(params))
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(map[string]interface{}{
		"languages": langs,
	}).Build(), nil
}

// toolGetRepositoryStructure implements the getRepositoryStructure tool.
func (s *Server) toolGetRepositoryStructure(params map[string]interface{}) (*envelope.Response, error) {
	opts := treeview.Options{
		MaxDepth:   intParam(params, "maxDepth", 0),
		MaxEntries: intParam(params, "maxEntries", 0),
	}

	structure, err := s.engine.DescribeStructure(context.Background(), sourceFromParams(params), opts)
	if err != nil {
		return nil, err
	}

	b := envelope.New().Data(structure)
	if structure.Tree != nil && structure.Tree.Truncated {
		b.Warning("tree truncated; raise maxDepth or maxEntries to see more")
	}
	return b.Build(), nil
}

// toolInspectFiles implements the inspectFiles tool.
func (s *Server) toolInspectFiles(params map[string]interface{}) (*envelope.Response, error) {
	var paths []string
	if v, ok := params["paths"].([]interface{}); ok {
		for _, p := range v {
			if ps, ok := p.(string); ok {
				paths = append(paths, ps)
			}
		}
	}

	files, err := s.engine.InspectFiles(context.Background(), sourceFromParams(params), paths)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(map[string]interface{}{
		"files": files,
	}).Build(), nil
}

// toolListBranches implements the listBranches tool.
func (s *Server) toolListBranches(params map[string]interface{}) (*envelope.Response, error) {
	branches, err := s.engine.ListBranches(context.Background(), sourceFromParams(params))
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(map[string]interface{}{
		"branches": branches,
	}).Build(), nil
}

// toolCompareRevisions implements the compareRevisions tool.
func (s *Server) toolCompareRevisions(params map[string]interface{}) (*envelope.Response, error) {
	cmp, err := s.engine.CompareRevisions(
		context.Background(),
		sourceFromParams(params),
		stringParam(params, "base"),
		stringParam(params, "target"),
		stringParam(params, "path"),
	)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(cmp).Build(), nil
}

// toolGetCommitHistory implements the getCommitHistory tool.
func (s *Server) toolGetCommitHistory(params map[string]interface{}) (*envelope.Response, error) {
	commits, err := s.engine.CommitHistory(
		context.Background(),
		sourceFromParams(params),
		stringParam(params, "revision"),
		intParam(params, "limit", 0),
	)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(map[string]interface{}{
		"commits": commits,
	}).Build(), nil
}

// toolGetScanHistory implements the getScanHistory tool.
func (s *Server) toolGetScanHistory(params map[string]interface{}) (*envelope.Response, error) {
	if id := stringParam(params, "runId"); id != "" {
		entry, err := s.engine.GetRun(id)
		if err != nil {
			return nil, err
		}
		return envelope.New().Data(entry).Build(), nil
	}

	entries, err := s.engine.RecentRuns(intParam(params, "limit", 0))
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(map[string]interface{}{
		"runs": entries,
	}).Build(), nil
}

// toolGetStatus implements the getStatus tool.
func (s *Server) toolGetStatus(params map[string]interface{}) (*envelope.Response, error) {
	tools := s.engine.Doctor(context.Background())

	installed := 0
	for _, t := range tools {
		if t.Installed {
			installed++
		}
	}

	return envelope.New().Data(map[string]interface{}{
		"version":        s.version,
		"cacheDir":       s.engine.CacheDir(),
		"historyEnabled": s.engine.HistoryEnabled(),
		"toolsInstalled": installed,
		"tools":          tools,
	}).Build(), nil
}
