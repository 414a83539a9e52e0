package marvin_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/server"
	"github.com/teemow/marvin-mcp/internal/tools/common"
)

// registerTrackingTools registers the time tracking tools
func registerTrackingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	startTool := newTool(ToolStartTracking,
		"Start time tracking for a specific task in Amazing Marvin. Any running timer is stopped first.",
		append(hints("Start Time Tracking", false, false),
			mcp.WithString(argItemID,
				mcp.Required(),
				mcp.Description("The ID of the task to start tracking (from task lists). Example: 'task_abc123xyz'"),
				mcp.MinLength(1),
			),
			withResponseFormat(simpleFormatDescription),
		)...,
	)
	s.AddTool(startTool, common.InstrumentedToolHandler(ToolStartTracking, marvin.EndpointTrack, sc, handleStartTracking(sc)))

	stopTool := newTool(ToolStopTracking,
		"Stop the currently running time tracker in Amazing Marvin. Succeeds when no timer is running.",
		append(hints("Stop Time Tracking", false, true),
			withResponseFormat(simpleFormatDescription),
		)...,
	)
	s.AddTool(stopTool, common.InstrumentedToolHandler(ToolStopTracking, marvin.EndpointTrack, sc, handleStopTracking(sc)))

	return nil
}

func handleStartTracking(sc *server.ServerContext) common.ToolHandler {
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

		if err := sc.MarvinClient().StartTracking(ctx, itemID); err != nil {
			return common.ToolError(ctx, err), nil
		}
		return confirmationResult(trackingStartedConfirmation(itemID), format), nil
	}
}

func handleStopTracking(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		format, err := argumentsOf(request).responseFormat()
		if err != nil {
			return invalid(err), nil
		}

		if err := sc.MarvinClient().StopTracking(ctx); err != nil {
			return common.ToolError(ctx, err), nil
		}
		return confirmationResult(trackingStoppedConfirmation(), format), nil
	}
}
