package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tessro/devsup/internal/logbuf"
)

// DefaultLogCount is the number of entries logs_get returns by default.
const DefaultLogCount = 50

const noMatchingLogs = "No matching logs found."

func (s *Server) logTools() []toolDef {
	nameOpt := mcp.WithString("name",
		mcp.Description(`Process name (default "dev")`),
	)

	return []toolDef{
		{
			tool: mcp.NewTool("logs_get",
				mcp.WithDescription("Get captured output of a process, filtered by stream, text and time"),
				nameOpt,
				mcp.WithNumber("count",
					mcp.Description("Maximum number of most recent entries to return (default: 50)"),
					mcp.DefaultNumber(DefaultLogCount),
				),
				mcp.WithString("type",
					mcp.Description("Stream to return"),
					mcp.Enum("all", "stdout", "stderr"),
					mcp.DefaultString("all"),
				),
				mcp.WithString("filter",
					mcp.Description("Only entries containing this text (case-insensitive)"),
				),
				mcp.WithString("after",
					mcp.Description("Only entries strictly after this ISO-8601 timestamp"),
				),
				mcp.WithString("format",
					mcp.Description("Output format"),
					mcp.Enum("text", "json"),
					mcp.DefaultString("text"),
				),
			),
			handler: s.handleLogsGet,
		},
		{
			tool: mcp.NewTool("logs_stats",
				mcp.WithDescription("Get entry counts and time range of a process's captured output"),
				nameOpt,
			),
			handler: s.handleLogsStats,
		},
		{
			tool: mcp.NewTool("logs_clear",
				mcp.WithDescription("Clear a process's in-memory log buffer. The log file is not affected."),
				nameOpt,
			),
			handler: s.handleLogsClear,
		},
	}
}

func (s *Server) handleLogsGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	key := s.key(args)

	count, err := intArg(args, "count", DefaultLogCount)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if count < 1 {
		return mcp.NewToolResultError("count must be a positive integer"), nil
	}
	typ, err := logbuf.ParseStreamType(stringArg(args, "type"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := stringArg(args, "format")
	switch format {
	case "", "text", "json":
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid format %q (want text or json)", format)), nil
	}

	buf, err := s.reg.Logs(key)
	if err != nil {
		return mcp.NewToolResultText(noMatchingLogs), nil
	}

	q := logbuf.Query{
		Type:   typ,
		After:  logbuf.NormalizeAfter(stringArg(args, "after")),
		Filter: stringArg(args, "filter"),
		Count:  count,
	}
	entries := buf.Logs(q)
	s.log.Debug("logs_get", "key", key, "type", typ, "count", count, "matched", len(entries))
	if len(entries) == 0 {
		return mcp.NewToolResultText(noMatchingLogs), nil
	}

	if format == "json" {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to encode logs: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(formatEntries(entries)), nil
}

func (s *Server) handleLogsStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := s.key(request.GetArguments())

	var stats logbuf.Stats
	if buf, err := s.reg.Logs(key); err == nil {
		stats = buf.Stats()
	}
	return mcp.NewToolResultText(formatStats(key, stats)), nil
}

func (s *Server) handleLogsClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := s.key(request.GetArguments())

	if buf, err := s.reg.Logs(key); err == nil {
		buf.Clear()
		s.log.Info("logs_clear", "key", key)
	}
	return mcp.NewToolResultText("Logs cleared"), nil
}
