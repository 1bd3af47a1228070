package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchTOCTool defines the search_toc MCP tool.
var searchTOCTool = mcp.NewTool("search_toc",
	mcp.WithDescription("Full-text search over the classified table of contents. Returns files with their repo, program, bucket and relevance score."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Words to search for in paths, buckets and notes"),
	),
	mcp.WithNumber("k",
		mcp.Description("Maximum number of results, 1 to 50 (default 10)"),
	),
	mcp.WithString("repo", mcp.Description("Only files from this repo")),
	mcp.WithString("program", mcp.Description("Only files from this program")),
	mcp.WithString("group", mcp.Description("Only files in this bucket, e.g. Controller")),
	mcp.WithString("lang", mcp.Description("Only files in this language, e.g. csharp")),
)

// retrieveSnippetsTool defines the retrieve_snippets MCP tool.
var retrieveSnippetsTool = mcp.NewTool("retrieve_snippets",
	mcp.WithDescription("Fetch full code snippet payloads by their vector index ids."),
	mcp.WithArray("ids",
		mcp.Required(),
		mcp.Description("Snippet ids as returned by search_snippets"),
		mcp.Items(map[string]any{"type": "string"}),
	),
)

// searchSnippetsTool defines the search_snippets MCP tool.
var searchSnippetsTool = mcp.NewTool("search_snippets",
	mcp.WithDescription("Semantic search over indexed code snippets."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
	mcp.WithString("repo", mcp.Description("Only snippets from this repo")),
	mcp.WithString("lang", mcp.Description("Only snippets in this language")),
)

// askCodebaseTool defines the ask_codebase MCP tool.
var askCodebaseTool = mcp.NewTool("ask_codebase",
	mcp.WithDescription("Answer a question about the codebase: the LLM picks file patterns, filters the table of contents and answers from the matching files."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The developer's question"),
	),
	mcp.WithString("model_id",
		mcp.Description("Model to use instead of the configured default"),
	),
	mcp.WithNumber("max_results",
		mcp.Description("Maximum records to pull from the table of contents (default 50)"),
	),
	mcp.WithBoolean("debug",
		mcp.Description("Include every prompt and raw LLM response in the result"),
	),
)
