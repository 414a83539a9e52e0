package marvin_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/server"
	"github.com/teemow/marvin-mcp/internal/tools/common"
)

// registerTaskTools registers task creation, listing and completion tools
func registerTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	addTaskTool := newTool(ToolAddTask,
		"Create a new task in Amazing Marvin with support for scheduling, labels and organization. "+
			"The title supports Amazing Marvin shortcuts: #Project, @label, ~timeEstimate, +dueDate, ^priority.",
		append(hints("Add Task to Amazing Marvin", false, false),
			mcp.WithString(argTitle,
				mcp.Required(),
				mcp.Description("Task title. Supports Amazing Marvin shortcuts: "+
					"#ProjectName (parent), @label (label), ~60 (time estimate in minutes), "+
					"+YYYY-MM-DD (due date), ^1 (priority). "+
					"Examples: 'Review budget #Work @urgent ~120 +2024-03-20', 'Call dentist ~15 +tomorrow'"),
				mcp.MinLength(1),
				mcp.MaxLength(MaxTitleLength),
			),
			mcp.WithString(argNote,
				mcp.Description("Additional notes or description for the task"),
				mcp.MaxLength(MaxNoteLength),
			),
			mcp.WithString(argDay,
				mcp.Description("Schedule date in YYYY-MM-DD format to add the task to the daily schedule (e.g., '2024-03-15')"),
				mcp.Pattern(datePattern.String()),
			),
			mcp.WithString(argDueDate,
				mcp.Description("Due date in YYYY-MM-DD format for deadline tracking (e.g., '2024-03-20')"),
				mcp.Pattern(datePattern.String()),
			),
			mcp.WithString(argParentID,
				mcp.Description("ID of the parent project or category (get from marvin_get_categories). Example: 'cat_abc123xyz'"),
			),
			mcp.WithArray(argLabelIDs,
				mcp.Description("Label IDs to attach to the task (get from marvin_get_labels), at most 20. Example: ['label_1', 'label_2']"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithNumber(argTimeEstimate,
				mcp.Description("Estimated time in milliseconds. "+
					"Common values: 900000 (15 min), 1800000 (30 min), 3600000 (1 hour), 7200000 (2 hours)"),
				mcp.Min(float64(MinTimeEstimate)),
				mcp.Max(float64(MaxTimeEstimate)),
			),
			mcp.WithBoolean(argIsStarred,
				mcp.Description("Whether to star/prioritize this task"),
			),
			withResponseFormat(simpleFormatDescription),
		)...,
	)
	s.AddTool(addTaskTool, common.InstrumentedToolHandler(ToolAddTask, marvin.EndpointAddTask, sc, handleAddTask(sc)))

	todaysTasksTool := newTool(ToolTodaysTasks,
		"Retrieve all tasks scheduled for today (or a specific date) in Amazing Marvin.",
		append(hints("Get Today's Tasks", true, true),
			mcp.WithString(argDate,
				mcp.Description("Date in YYYY-MM-DD format (defaults to today). Examples: '2024-03-15', '2024-12-25'"),
				mcp.Pattern(datePattern.String()),
			),
			withResponseFormat(listFormatDescription),
		)...,
	)
	s.AddTool(todaysTasksTool, common.InstrumentedToolHandler(ToolTodaysTasks, marvin.EndpointTodayItems, sc, handleTodaysTasks(sc)))

	markDoneTool := newTool(ToolMarkDone,
		"Mark a specific task as complete in Amazing Marvin. Completing an already completed task succeeds.",
		append(hints("Mark Task as Done", false, true),
			mcp.WithString(argItemID,
				mcp.Required(),
				mcp.Description("The ID of the task to mark as done (shown when viewing tasks). Example: 'task_abc123xyz'"),
				mcp.MinLength(1),
			),
			withResponseFormat(simpleFormatDescription),
		)...,
	)
	s.AddTool(markDoneTool, common.InstrumentedToolHandler(ToolMarkDone, marvin.EndpointMarkDone, sc, handleMarkDone(sc)))

	dueTasksTool := newTool(ToolDueTasks,
		"Get all tasks that are due today or overdue in Amazing Marvin.",
		append(hints("Get Due and Overdue Tasks", true, true),
			mcp.WithString(argDate,
				mcp.Description("Reference date in YYYY-MM-DD format (defaults to today). Tasks due on or before it are returned."),
				mcp.Pattern(datePattern.String()),
			),
			withResponseFormat(listFormatDescription),
		)...,
	)
	s.AddTool(dueTasksTool, common.InstrumentedToolHandler(ToolDueTasks, marvin.EndpointDueItems, sc, handleDueTasks(sc)))

	return nil
}

func handleAddTask(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := argumentsOf(request)

		format, err := args.responseFormat()
		if err != nil {
			return invalid(err), nil
		}
		task, err := parseNewTask(args)
		if err != nil {
			return invalid(err), nil
		}

		created, err := sc.MarvinClient().AddTask(ctx, task)
		if err != nil {
			return common.ToolError(ctx, err), nil
		}
		return confirmationResult(createdConfirmation(created), format), nil
	}
}

func handleTodaysTasks(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := argumentsOf(request)

		format, err := args.responseFormat()
		if err != nil {
			return invalid(err), nil
		}
		date, err := args.dateOrToday(sc.Today())
		if err != nil {
			return invalid(err), nil
		}

		tasks, err := sc.MarvinClient().TodayItems(ctx, date)
		if err != nil {
			return common.ToolError(ctx, err), nil
		}
		return listingResult(ctx, sc, ToolTodaysTasks, todayListing(date, tasks), format), nil
	}
}

func handleMarkDone(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := argumentsOf(request)

		format, err := args.responseFormat()
		if err != nil {
			return invalid(err), nil
		}
		itemID, err := args.requiredID(argItemID)
		if err != nil {
			return invalid(err), nil
		}

		if err := sc.MarvinClient().MarkDone(ctx, itemID); err != nil {
			return common.ToolError(ctx, err), nil
		}
		return confirmationResult(markedDoneConfirmation(itemID), format), nil
	}
}

func handleDueTasks(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := argumentsOf(request)

		format, err := args.responseFormat()
		if err != nil {
			return invalid(err), nil
		}
		asOf, err := args.dateOrToday(sc.Today())
		if err != nil {
			return invalid(err), nil
		}

		tasks, err := sc.MarvinClient().DueItems(ctx, asOf)
		if err != nil {
			return common.ToolError(ctx, err), nil
		}
		return listingResult(ctx, sc, ToolDueTasks, dueListing(asOf, tasks), format), nil
	}
}
