package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wesm/foldercache/internal/entity"
)

const maxLimit = 1000

type handlers struct {
	cache CacheReader
}

// messagePage is the JSON shape of list_messages and search_messages.
type messagePage struct {
	Total    int              `json:"total"`
	Offset   int              `json:"offset"`
	Messages []entity.Message `json:"messages"`
}

// getIDArg extracts a required positive integer ID from the arguments map.
func getIDArg(args map[string]any, key string) (int64, error) {
	v, ok := args[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%s parameter is required", key)
	}
	if v != math.Trunc(v) || v < 1 || v > math.MaxInt64 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return int64(v), nil
}

func (h *handlers) listFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := h.cache.GetFolders(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list folders failed: %v", err)), nil
	}
	out := folders.Values()
	if out == nil {
		out = []entity.Folder{}
	}
	return jsonResult(out)
}

func (h *handlers) listMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, err := getIDArg(args, "folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	folders, err := h.cache.GetFolders(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list folders failed: %v", err)), nil
	}
	if !folders.Has(id) {
		return mcp.NewToolResultError(fmt.Sprintf("folder %d is not tracked", id)), nil
	}

	msgs, err := h.cache.GetFolderMessages(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list messages failed: %v", err)), nil
	}

	return jsonResult(page(msgs.Values(), limitArg(args, "limit", 50), limitArg(args, "offset", 0)))
}

func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	index, err := h.cache.GetSearchMessages(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	matches := index.Values()
	if q, _ := args["query"].(string); strings.TrimSpace(q) != "" {
		needle := strings.ToLower(strings.TrimSpace(q))
		matches = nil
		for _, m := range index.Values() {
			if strings.Contains(strings.ToLower(m.Text), needle) {
				matches = append(matches, m)
			}
		}
	}

	return jsonResult(page(matches, limitArg(args, "limit", 20), limitArg(args, "offset", 0)))
}

func (h *handlers) getUser(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := h.cache.GetUser(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get user failed: %v", err)), nil
	}
	return jsonResult(user)
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.cache.GetStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}
	return jsonResult(stats)
}

func page(msgs []entity.Message, limit, offset int) messagePage {
	p := messagePage{Total: len(msgs), Offset: offset, Messages: []entity.Message{}}
	if offset >= len(msgs) {
		return p
	}
	end := len(msgs)
	if offset+limit < end {
		end = offset + limit
	}
	p.Messages = append(p.Messages, msgs[offset:end]...)
	return p
}

// limitArg extracts a non-negative integer limit from a map, with a default.
// JSON numbers arrive as float64. Values are clamped to maxLimit.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
