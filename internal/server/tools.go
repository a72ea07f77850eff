package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"notion-mcp/internal/notion"
)

type toolDef struct {
	tool    mcp.Tool
	handler mcpserver.ToolHandlerFunc
}

// toolDefs declares one tool per Notion operation.
func (s *Server) toolDefs() []toolDef {
	return []toolDef{
		{
			tool: mcp.NewTool("notion_search",
				mcp.WithDescription("Search pages and databases shared with the integration by title."),
				mcp.WithString("query", mcp.Description("Text to match against page and database titles.")),
				mcp.WithObject("filter", mcp.Description("Restrict results to pages or databases, e.g. {\"property\": \"object\", \"value\": \"page\"}.")),
				mcp.WithObject("sort", mcp.Description("Sort order for results, e.g. {\"direction\": \"descending\", \"timestamp\": \"last_edited_time\"}.")),
				mcp.WithString("start_cursor", mcp.Description("Pagination cursor from a previous response.")),
				mcp.WithNumber("page_size", mcp.Description("Number of results to return (max 100).")),
			),
			handler: s.handleSearch,
		},
		{
			tool: mcp.NewTool("notion_get_database",
				mcp.WithDescription("Retrieve a database's structure and property schema."),
				mcp.WithString("database_id", mcp.Required(), mcp.Description("ID of the database to retrieve.")),
			),
			handler: s.handleGetDatabase,
		},
		{
			tool: mcp.NewTool("notion_query_database",
				mcp.WithDescription("List the pages in a database, optionally filtered and sorted."),
				mcp.WithString("database_id", mcp.Required(), mcp.Description("ID of the database to query.")),
				mcp.WithObject("filter", mcp.Description("Notion filter object applied to the query.")),
				mcp.WithArray("sorts", mcp.Description("Notion sort objects applied to the query.")),
				mcp.WithString("start_cursor", mcp.Description("Pagination cursor from a previous response.")),
				mcp.WithNumber("page_size", mcp.Description("Number of results to return (max 100).")),
			),
			handler: s.handleQueryDatabase,
		},
		{
			tool: mcp.NewTool("notion_create_database",
				mcp.WithDescription("Create a database as a child of an existing page."),
				mcp.WithObject("parent", mcp.Required(), mcp.Description("Parent page, e.g. {\"page_id\": \"...\"}.")),
				mcp.WithArray("title", mcp.Description("Database title as an array of rich text objects.")),
				mcp.WithObject("properties", mcp.Required(), mcp.Description("Property schema of the database.")),
			),
			handler: s.handleCreateDatabase,
		},
		{
			tool: mcp.NewTool("notion_create_page",
				mcp.WithDescription("Create a page under a page or database parent."),
				mcp.WithObject("parent", mcp.Required(), mcp.Description("Parent of the page, e.g. {\"database_id\": \"...\"} or {\"page_id\": \"...\"}.")),
				mcp.WithObject("properties", mcp.Required(), mcp.Description("Page properties; must match the parent database schema when the parent is a database.")),
				mcp.WithArray("children", mcp.Description("Block objects to render as page content.")),
			),
			handler: s.handleCreatePage,
		},
		{
			tool: mcp.NewTool("notion_get_page",
				mcp.WithDescription("Retrieve a page's metadata and properties."),
				mcp.WithString("page_id", mcp.Required(), mcp.Description("ID of the page to retrieve.")),
			),
			handler: s.handleGetPage,
		},
		{
			tool: mcp.NewTool("notion_update_page",
				mcp.WithDescription("Update a page's properties, or archive it."),
				mcp.WithString("page_id", mcp.Required(), mcp.Description("ID of the page to update.")),
				mcp.WithObject("properties", mcp.Description("Property values to update.")),
				mcp.WithBoolean("archived", mcp.Description("Set true to archive the page, false to restore it.")),
			),
			handler: s.handleUpdatePage,
		},
		{
			tool: mcp.NewTool("notion_get_block",
				mcp.WithDescription("Retrieve a single block by ID."),
				mcp.WithString("block_id", mcp.Required(), mcp.Description("ID of the block to retrieve.")),
			),
			handler: s.handleGetBlock,
		},
		{
			tool: mcp.NewTool("notion_get_block_children",
				mcp.WithDescription("List the child blocks of a block or page."),
				mcp.WithString("block_id", mcp.Required(), mcp.Description("ID of the parent block or page.")),
				mcp.WithString("start_cursor", mcp.Description("Pagination cursor from a previous response.")),
				mcp.WithNumber("page_size", mcp.Description("Number of results to return (max 100).")),
			),
			handler: s.handleGetBlockChildren,
		},
		{
			tool: mcp.NewTool("notion_append_block_children",
				mcp.WithDescription("Append child blocks to a block or page."),
				mcp.WithString("block_id", mcp.Required(), mcp.Description("ID of the parent block or page.")),
				mcp.WithArray("children", mcp.Required(), mcp.Description("Block objects to append.")),
			),
			handler: s.handleAppendBlockChildren,
		},
		{
			tool: mcp.NewTool("notion_delete_block",
				mcp.WithDescription("Move a block to the trash."),
				mcp.WithString("block_id", mcp.Required(), mcp.Description("ID of the block to delete.")),
			),
			handler: s.handleDeleteBlock,
		},
		{
			tool: mcp.NewTool("notion_list_users",
				mcp.WithDescription("List the users in the workspace."),
				mcp.WithString("start_cursor", mcp.Description("Pagination cursor from a previous response.")),
				mcp.WithNumber("page_size", mcp.Description("Number of results to return (max 100).")),
			),
			handler: s.handleListUsers,
		},
		{
			tool: mcp.NewTool("notion_get_user",
				mcp.WithDescription("Retrieve a user by ID."),
				mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the user to retrieve.")),
			),
			handler: s.handleGetUser,
		},
	}
}

// rawArg re-encodes an opaque argument (filter, sorts, properties, children,
// parent) for verbatim forwarding. Returns nil when the argument is absent so
// it stays off the wire.
func rawArg(req mcp.CallToolRequest, key string) json.RawMessage {
	value, ok := req.GetArguments()[key]
	if !ok || value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return raw
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := notion.SearchParams{
		Query:       req.GetString("query", ""),
		Filter:      rawArg(req, "filter"),
		Sort:        rawArg(req, "sort"),
		StartCursor: req.GetString("start_cursor", ""),
		PageSize:    req.GetInt("page_size", 0),
	}
	list, err := s.api.Search(ctx, params)
	if err != nil {
		return s.errorResult("notion_search", err), nil
	}
	return s.listResult(list), nil
}

func (s *Server) handleGetDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	databaseID, err := req.RequireString("database_id")
	if err != nil {
		return s.errorResult("notion_get_database", err), nil
	}
	raw, err := s.api.GetDatabase(ctx, databaseID)
	if err != nil {
		return s.errorResult("notion_get_database", err), nil
	}
	return s.objectResult(raw), nil
}

func (s *Server) handleQueryDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	databaseID, err := req.RequireString("database_id")
	if err != nil {
		return s.errorResult("notion_query_database", err), nil
	}
	params := notion.QueryDatabaseParams{
		Filter:      rawArg(req, "filter"),
		Sorts:       rawArg(req, "sorts"),
		StartCursor: req.GetString("start_cursor", ""),
		PageSize:    req.GetInt("page_size", 0),
	}
	list, err := s.api.QueryDatabase(ctx, databaseID, params)
	if err != nil {
		return s.errorResult("notion_query_database", err), nil
	}
	return s.listResult(list), nil
}

func (s *Server) handleCreateDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent := rawArg(req, "parent")
	if parent == nil {
		return s.errorResult("notion_create_database", errors.New("parent is required")), nil
	}
	properties := rawArg(req, "properties")
	if properties == nil {
		return s.errorResult("notion_create_database", errors.New("properties is required")), nil
	}
	params := notion.CreateDatabaseParams{
		Parent:     parent,
		Title:      rawArg(req, "title"),
		Properties: properties,
	}
	raw, err := s.api.CreateDatabase(ctx, params)
	if err != nil {
		return s.errorResult("notion_create_database", err), nil
	}
	return s.mutationResult(raw), nil
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent := rawArg(req, "parent")
	if parent == nil {
		return s.errorResult("notion_create_page", errors.New("parent is required")), nil
	}
	properties := rawArg(req, "properties")
	if properties == nil {
		return s.errorResult("notion_create_page", errors.New("properties is required")), nil
	}
	params := notion.CreatePageParams{
		Parent:     parent,
		Properties: properties,
		Children:   rawArg(req, "children"),
	}
	raw, err := s.api.CreatePage(ctx, params)
	if err != nil {
		return s.errorResult("notion_create_page", err), nil
	}
	return s.mutationResult(raw), nil
}

func (s *Server) handleGetPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := req.RequireString("page_id")
	if err != nil {
		return s.errorResult("notion_get_page", err), nil
	}
	raw, err := s.api.GetPage(ctx, pageID)
	if err != nil {
		return s.errorResult("notion_get_page", err), nil
	}
	return s.objectResult(raw), nil
}

func (s *Server) handleUpdatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := req.RequireString("page_id")
	if err != nil {
		return s.errorResult("notion_update_page", err), nil
	}
	params := notion.UpdatePageParams{Properties: rawArg(req, "properties")}
	if v, ok := req.GetArguments()["archived"].(bool); ok {
		params.Archived = &v
	}
	raw, err := s.api.UpdatePage(ctx, pageID, params)
	if err != nil {
		return s.errorResult("notion_update_page", err), nil
	}
	return s.mutationResult(raw), nil
}

func (s *Server) handleGetBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return s.errorResult("notion_get_block", err), nil
	}
	raw, err := s.api.GetBlock(ctx, blockID)
	if err != nil {
		return s.errorResult("notion_get_block", err), nil
	}
	return s.objectResult(raw), nil
}

func (s *Server) handleGetBlockChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return s.errorResult("notion_get_block_children", err), nil
	}
	list, err := s.api.GetBlockChildren(ctx, blockID, req.GetString("start_cursor", ""), req.GetInt("page_size", 0))
	if err != nil {
		return s.errorResult("notion_get_block_children", err), nil
	}
	return s.listResult(list), nil
}

func (s *Server) handleAppendBlockChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return s.errorResult("notion_append_block_children", err), nil
	}
	children := rawArg(req, "children")
	if children == nil {
		return s.errorResult("notion_append_block_children", errors.New("children is required")), nil
	}
	raw, err := s.api.AppendBlockChildren(ctx, blockID, children)
	if err != nil {
		return s.errorResult("notion_append_block_children", err), nil
	}
	return s.mutationResult(raw), nil
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return s.errorResult("notion_delete_block", err), nil
	}
	raw, err := s.api.DeleteBlock(ctx, blockID)
	if err != nil {
		return s.errorResult("notion_delete_block", err), nil
	}
	return s.mutationResult(raw), nil
}

func (s *Server) handleListUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.api.ListUsers(ctx, req.GetString("start_cursor", ""), req.GetInt("page_size", 0))
	if err != nil {
		return s.errorResult("notion_list_users", err), nil
	}
	return s.listResult(list), nil
}

func (s *Server) handleGetUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return s.errorResult("notion_get_user", err), nil
	}
	raw, err := s.api.GetUser(ctx, userID)
	if err != nil {
		return s.errorResult("notion_get_user", err), nil
	}
	return s.objectResult(raw), nil
}
