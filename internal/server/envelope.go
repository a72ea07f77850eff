package server

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"notion-mcp/internal/notion"
)

const errorMessageMaxBytes = 2048

// listEnvelope wraps listing tool results for the invoking client.
type listEnvelope struct {
	Results    []json.RawMessage `json:"results"`
	Total      int               `json:"total"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor,omitempty"`
	Truncated  bool              `json:"truncated,omitempty"`
}

// mutationEnvelope wraps mutation tool results.
type mutationEnvelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

// listResult serializes a paginated response. Oversized pages are shrunk by
// dropping trailing results so the serialized envelope stays valid JSON;
// Total keeps the count the API returned.
func (s *Server) listResult(list *notion.ListResponse) *mcp.CallToolResult {
	env := listEnvelope{
		Results:    list.Results,
		Total:      len(list.Results),
		HasMore:    list.HasMore,
		NextCursor: list.NextCursor,
	}
	if env.Results == nil {
		env.Results = []json.RawMessage{}
	}
	data, _ := json.Marshal(env)
	for s.maxBytes > 0 && len(data) > s.maxBytes && len(env.Results) > 1 {
		env.Results = env.Results[:len(env.Results)-1]
		env.Truncated = true
		data, _ = json.Marshal(env)
	}
	return mcp.NewToolResultText(string(data))
}

// objectResult passes a decoded object through verbatim.
func (s *Server) objectResult(raw json.RawMessage) *mcp.CallToolResult {
	return mcp.NewToolResultText(string(raw))
}

// mutationResult wraps the mutated object with a success flag.
func (s *Server) mutationResult(raw json.RawMessage) *mcp.CallToolResult {
	data, _ := json.Marshal(mutationEnvelope{Success: true, Result: raw})
	return mcp.NewToolResultText(string(data))
}

// errorResult converts any failure into an error envelope. Handlers return
// it with a nil Go error so nothing escapes the tool boundary.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("tool call failed", zap.String("tool", tool), zap.Error(err))
	msg := err.Error()
	if len(msg) > errorMessageMaxBytes {
		msg = msg[:errorMessageMaxBytes]
	}
	return mcp.NewToolResultError(msg)
}
