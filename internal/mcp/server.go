// Package mcp exposes the folder cache to MCP clients as read-only tools.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wesm/foldercache/internal/entity"
	"github.com/wesm/foldercache/internal/store"
)

// Tool name constants.
const (
	ToolListFolders    = "list_folders"
	ToolListMessages   = "list_messages"
	ToolSearchMessages = "search_messages"
	ToolGetUser        = "get_user"
	ToolGetStats       = "get_stats"
)

// CacheReader is the cache surface the tools read from.
type CacheReader interface {
	GetFolders(ctx context.Context) (*entity.Folders, error)
	GetFolderMessages(ctx context.Context, folderID int64) (*entity.FolderMessages, error)
	GetSearchMessages(ctx context.Context) (*entity.SearchMessages, error)
	GetUser(ctx context.Context) (entity.User, error)
	GetStats(ctx context.Context) (*store.Stats, error)
}

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

func withOffset() mcp.ToolOption {
	return mcp.WithNumber("offset",
		mcp.Description("Number of results to skip for pagination (default 0)"),
	)
}

// NewServer registers the cache tools on a new MCP server.
func NewServer(cache CacheReader, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"foldercache",
		version,
		server.WithToolCapabilities(false),
	)

	h := &handlers{cache: cache}

	s.AddTool(listFoldersTool(), h.listFolders)
	s.AddTool(listMessagesTool(), h.listMessages)
	s.AddTool(searchMessagesTool(), h.searchMessages)
	s.AddTool(getUserTool(), h.getUser)
	s.AddTool(getStatsTool(), h.getStats)
	return s
}

// Serve serves the cache tools over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, cache CacheReader, version string) error {
	stdio := server.NewStdioServer(NewServer(cache, version))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func listFoldersTool() mcp.Tool {
	return mcp.NewTool(ToolListFolders,
		mcp.WithDescription("List tracked folders in display order: the general folder first, then most recent."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func listMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolListMessages,
		mcp.WithDescription("List the cached messages of one folder in chronological order."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("folder_id",
			mcp.Required(),
			mcp.Description("Folder ID (from list_folders)"),
		),
		withLimit("50"),
		withOffset(),
	)
}

func searchMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchMessages,
		mcp.WithDescription("Search the cached search index by case-insensitive text match. An empty query lists the whole index."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Text to look for in message bodies"),
		),
		withLimit("20"),
		withOffset(),
	)
}

func getUserTool() mcp.Tool {
	return mcp.NewTool(ToolGetUser,
		mcp.WithDescription("Get the current account. An id of 0 means no account is set."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool(ToolGetStats,
		mcp.WithDescription("Get cache overview: folder, message, and search index counts."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
