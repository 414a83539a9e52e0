package marvin_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/server"
	"github.com/teemow/marvin-mcp/internal/tools/common"
)

// registerOrganizeTools registers the category, label and container tools
func registerOrganizeTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	categoriesTool := newTool(ToolCategories,
		"List all categories and projects in Amazing Marvin to help identify parent IDs.",
		append(hints("List All Categories and Projects", true, true),
			withResponseFormat(simpleFormatDescription),
		)...,
	)
	s.AddTool(categoriesTool, common.InstrumentedToolHandler(ToolCategories, marvin.EndpointCategories, sc, handleCategories(sc)))

	labelsTool := newTool(ToolLabels,
		"List all labels in Amazing Marvin to help identify label IDs for task creation.",
		append(hints("List All Labels", true, true),
			withResponseFormat(simpleFormatDescription),
		)...,
	)
	s.AddTool(labelsTool, common.InstrumentedToolHandler(ToolLabels, marvin.EndpointLabels, sc, handleLabels(sc)))

	childrenTool := newTool(ToolChildren,
		"Get all tasks and projects within a specific category or project in Amazing Marvin.",
		append(hints("Get Items in Category/Project", true, true),
			mcp.WithString(argParentID,
				mcp.Required(),
				mcp.Description("ID of the parent category/project (from marvin_get_categories) or "+
					"'unassigned' for tasks without a parent. Example: 'cat_abc123xyz'"),
				mcp.MinLength(1),
			),
			withResponseFormat(simpleFormatDescription),
		)...,
	)
	s.AddTool(childrenTool, common.InstrumentedToolHandler(ToolChildren, marvin.EndpointChildren, sc, handleChildren(sc)))

	return nil
}

func handleCategories(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		format, err := argumentsOf(request).responseFormat()
		if err != nil {
			return invalid(err), nil
		}

		categories, err := sc.MarvinClient().Categories(ctx)
		if err != nil {
			return common.ToolError(ctx, err), nil
		}
		return listingResult(ctx, sc, ToolCategories, categoriesListing(categories), format), nil
	}
}

func handleLabels(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		format, err := argumentsOf(request).responseFormat()
		if err != nil {
			return invalid(err), nil
		}

		labels, err := sc.MarvinClient().Labels(ctx)
		if err != nil {
			return common.ToolError(ctx, err), nil
		}
		return listingResult(ctx, sc, ToolLabels, labelsListing(labels), format), nil
	}
}

func handleChildren(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := argumentsOf(request)

		format, err := args.responseFormat()
		if err != nil {
			return invalid(err), nil
		}
		parentID, err := args.requiredID(argParentID)
		if err != nil {
			return invalid(err), nil
		}

		items, err := sc.MarvinClient().Children(ctx, parentID)
		if err != nil {
			return common.ToolError(ctx, err), nil
		}
		return listingResult(ctx, sc, ToolChildren, childrenListing(parentID, items), format), nil
	}
}
