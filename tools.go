package main

import (
	"context"
	"encoding/json"
	"fmt"

	"lokilens-mcp/internal/search"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerAllTools registers the tool surface with the MCP server. The
// engine exposes exactly one tool: the structured log search.
func registerAllTools(server *mcp.Server, svc *search.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_logs",
		Description: search.SearchLogsDescription,
	}, NewSearchLogsHandler(svc))
}

// SearchLogsArgs represents the input arguments for the search_logs tool
type SearchLogsArgs struct {
	SearchID   string   `json:"search_id"`
	TimeRanges []string `json:"time_ranges"`
}

// NewSearchLogsHandler creates the handler for the search_logs tool.
func NewSearchLogsHandler(svc *search.Service) func(context.Context, *mcp.CallToolRequest, SearchLogsArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args SearchLogsArgs) (*mcp.CallToolResult, any, error) {
		if args.SearchID == "" {
			return nil, nil, fmt.Errorf("search_id parameter is required")
		}
		if len(args.TimeRanges) == 0 {
			return nil, nil, fmt.Errorf("at least one time_range is required, in format YYYYMMDDHHMM")
		}

		result, err := svc.Search(ctx, args.SearchID, args.TimeRanges)
		if err != nil {
			return nil, nil, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: formatJSON(result)},
			},
		}, nil, nil
	}
}

// formatJSON formats a result for display
func formatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
