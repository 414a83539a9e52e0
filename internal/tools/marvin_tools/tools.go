package marvin_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/marvin-mcp/internal/logging"
	"github.com/teemow/marvin-mcp/internal/render"
	"github.com/teemow/marvin-mcp/internal/server"
	"github.com/teemow/marvin-mcp/internal/tools/common"
)

// Tool names.
const (
	ToolAddTask       = "marvin_add_task"
	ToolTodaysTasks   = "marvin_get_todays_tasks"
	ToolMarkDone      = "marvin_mark_done"
	ToolDueTasks      = "marvin_get_due_tasks"
	ToolCategories    = "marvin_get_categories"
	ToolLabels        = "marvin_get_labels"
	ToolChildren      = "marvin_get_children"
	ToolStartTracking = "marvin_start_tracking"
	ToolStopTracking  = "marvin_stop_tracking"
)

// Argument names.
const (
	argResponseFormat = "response_format"
	argDate           = "date"
	argItemID         = "item_id"
	argParentID       = "parent_id"
	argTitle          = "title"
	argNote           = "note"
	argDay            = "day"
	argDueDate        = "due_date"
	argLabelIDs       = "label_ids"
	argTimeEstimate   = "time_estimate"
	argIsStarred      = "is_starred"
)

// ToolNames lists every registered tool in registration order.
var ToolNames = []string{
	ToolAddTask,
	ToolTodaysTasks,
	ToolMarkDone,
	ToolDueTasks,
	ToolCategories,
	ToolLabels,
	ToolChildren,
	ToolStartTracking,
	ToolStopTracking,
}

// RegisterMarvinTools registers all Amazing Marvin tools with the MCP server.
func RegisterMarvinTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	if err := registerTaskTools(s, sc); err != nil {
		return fmt.Errorf("failed to register task tools: %w", err)
	}
	if err := registerOrganizeTools(s, sc); err != nil {
		return fmt.Errorf("failed to register organization tools: %w", err)
	}
	if err := registerTrackingTools(s, sc); err != nil {
		return fmt.Errorf("failed to register tracking tools: %w", err)
	}
	return nil
}

// hints are the MCP tool annotations shared by every tool; only the
// read-only and idempotent hints differ.
func hints(title string, readOnly, idempotent bool) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithTitleAnnotation(title),
		mcp.WithReadOnlyHintAnnotation(readOnly),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(idempotent),
		mcp.WithOpenWorldHintAnnotation(true),
	}
}

func withResponseFormat(description string) mcp.ToolOption {
	return mcp.WithString(argResponseFormat,
		mcp.Description(description),
		mcp.Enum(render.Formats...),
		mcp.DefaultString(string(render.FormatMarkdown)),
	)
}

const (
	listFormatDescription   = "Output format: 'markdown' for human-readable (default) or 'json' for machine-readable structured data"
	simpleFormatDescription = "Output format: 'markdown' (default) or 'json'"
)

func newTool(name, description string, options ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(description)}, options...)...)
}

// listingResult renders l within the server's response limit.
func listingResult(ctx context.Context, sc *server.ServerContext, tool string, l render.Listing, format render.Format) *mcp.CallToolResult {
	out := render.Bound(l, format, sc.ResponseLimit())
	if out.Truncated {
		common.MarkTruncated(ctx)
		sc.Logger().Debug("truncated tool response",
			logging.Tool(tool),
			"shown", out.Shown,
			"total", out.Total,
			"limit", sc.ResponseLimit())
	}
	return mcp.NewToolResultText(out.Text)
}

func confirmationResult(c render.Confirmation, format render.Format) *mcp.CallToolResult {
	return mcp.NewToolResultText(render.RenderConfirmation(c, format))
}

func invalid(err error) *mcp.CallToolResult {
	return common.InvalidArgument(err.Error())
}
