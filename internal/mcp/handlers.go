package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/retrieval"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/toc"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/vectordb"
)

// handleSearchTOC runs a full-text TOC search.
func (s *Server) handleSearchTOC(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	req := toc.SearchRequest{
		Query:   query,
		K:       request.GetInt("k", toc.DefaultK),
		Repo:    request.GetString("repo", ""),
		Program: request.GetString("program", ""),
		Group:   request.GetString("group", ""),
		Lang:    request.GetString("lang", ""),
	}
	hits, err := s.deps.TOC.Search(ctx, req.Query, req.K, req.Filters())
	if err != nil {
		return toolError("search failed", err), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No results found. The table of contents may be empty. Run `sherpa build` to index extraction output."), nil
	}
	return jsonResult(toc.SearchResponse{Query: query, Count: len(hits), Hits: hits})
}

// handleRetrieveSnippets fetches snippet payloads by id.
func (s *Server) handleRetrieveSnippets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := request.GetStringSlice("ids", nil)
	payloads, err := s.deps.Snippets.Fetch(ctx, ids)
	if err != nil {
		return toolError("retrieve failed", err), nil
	}
	return jsonResult(payloads)
}

// handleSearchSnippets runs a semantic snippet search.
func (s *Server) handleSearchSnippets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	var filter *vectordb.SearchFilter
	repo, lang := request.GetString("repo", ""), request.GetString("lang", "")
	if repo != "" || lang != "" {
		filter = &vectordb.SearchFilter{Repo: repo, Lang: lang}
	}

	payloads, err := s.deps.Snippets.Search(ctx, query, limit, filter)
	if err != nil {
		return toolError("search failed", err), nil
	}
	if len(payloads) == 0 {
		return mcp.NewToolResultText("No snippets found. Run `sherpa snippets load` to index snippet exports."), nil
	}
	return jsonResult(payloads)
}

// handleAskCodebase runs one orchestration.
func (s *Server) handleAskCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	resp, err := s.deps.Orchestrator.Run(ctx, retrieval.Request{
		Question:   question,
		ModelID:    request.GetString("model_id", ""),
		MaxResults: request.GetInt("max_results", 0),
		Debug:      request.GetBool("debug", false),
	})
	if err != nil {
		var se *retrieval.StageError
		if errors.As(err, &se) && se.Raw != "" {
			return mcp.NewToolResultError(fmt.Sprintf("%v\n\nRaw LLM output:\n%s", err, se.Raw)), nil
		}
		return toolError("ask failed", err), nil
	}
	return jsonResult(resp)
}

// toolError reports err as a tool-level error carrying its code.
func toolError(msg string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s [%s]: %v", msg, apperr.CodeOf(err), err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
