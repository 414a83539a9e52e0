package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/marvin-mcp/internal/render"
	"github.com/teemow/marvin-mcp/internal/server"
	"github.com/teemow/marvin-mcp/internal/tools/marvin_tools"
)

// Resource URIs.
const (
	TitleShortcutsURI = "marvin://help/title-shortcuts"
	ServerLimitsURI   = "marvin://server/limits"
)

const (
	mimeMarkdown = "text/markdown"
	mimeJSON     = "application/json"
)

// TitleShortcuts documents the shorthand the upstream parses out of task titles.
const TitleShortcuts = `# Amazing Marvin Title Shortcuts

Task titles passed to marvin_add_task are sent unchanged, so Amazing Marvin
parses these shortcuts itself:

| Shortcut | Meaning | Example |
|---|---|---|
| ` + "`#Project`" + ` | Put the task in a category or project | ` + "`Review budget #Work`" + ` |
| ` + "`@label`" + ` | Attach a label | ` + "`Call bank @phone`" + ` |
| ` + "`~minutes`" + ` | Time estimate in minutes | ` + "`Write report ~90`" + ` |
| ` + "`+date`" + ` | Due date (YYYY-MM-DD or words like tomorrow) | ` + "`Pay rent +2024-04-01`" + ` |
| ` + "`^priority`" + ` | Priority | ` + "`Fix outage ^1`" + ` |

Shortcuts can be combined: ` + "`Review budget #Work @urgent ~120 +2024-03-20`" + `.

Explicit arguments (parent_id, label_ids, time_estimate, due_date) are sent
alongside the title. Use marvin_get_categories and marvin_get_labels to look
up their ids.
`

// Limits describes the bounds a client should plan requests around.
type Limits struct {
	ResponseLimit         int      `json:"responseLimit"`
	RequestTimeoutSeconds float64  `json:"requestTimeoutSeconds"`
	Formats               []string `json:"formats"`
	DefaultFormat         string   `json:"defaultFormat"`
	Tools                 []string `json:"tools"`
	AddTask               struct {
		MaxTitleLength  int   `json:"maxTitleLength"`
		MaxNoteLength   int   `json:"maxNoteLength"`
		MaxLabelIDs     int   `json:"maxLabelIds"`
		MinTimeEstimate int64 `json:"minTimeEstimateMs"`
		MaxTimeEstimate int64 `json:"maxTimeEstimateMs"`
	} `json:"addTask"`
}

// CurrentLimits reports the limits of the running server.
func CurrentLimits(sc *server.ServerContext) Limits {
	l := Limits{
		ResponseLimit:         sc.ResponseLimit(),
		RequestTimeoutSeconds: sc.MarvinClient().Timeout().Seconds(),
		Formats:               render.Formats,
		DefaultFormat:         string(render.FormatMarkdown),
		Tools:                 marvin_tools.ToolNames,
	}
	l.AddTask.MaxTitleLength = marvin_tools.MaxTitleLength
	l.AddTask.MaxNoteLength = marvin_tools.MaxNoteLength
	l.AddTask.MaxLabelIDs = marvin_tools.MaxLabelIDs
	l.AddTask.MinTimeEstimate = marvin_tools.MinTimeEstimate
	l.AddTask.MaxTimeEstimate = marvin_tools.MaxTimeEstimate
	return l
}

// RegisterMarvinResources registers the help and limits resources
func RegisterMarvinResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	shortcutsResource := mcp.NewResource(
		TitleShortcutsURI,
		"Task Title Shortcuts",
		mcp.WithResourceDescription("Shorthand Amazing Marvin understands in task titles (#Project, @label, ~minutes, +date, ^priority)"),
		mcp.WithMIMEType(mimeMarkdown),
	)
	s.AddResource(shortcutsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			&mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: mimeMarkdown,
				Text:     TitleShortcuts,
			},
		}, nil
	})

	limitsResource := mcp.NewResource(
		ServerLimitsURI,
		"Server Limits",
		mcp.WithResourceDescription("Response size limit, upstream timeout, output formats and marvin_add_task input bounds"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(limitsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleLimits(request, sc)
	})

	return nil
}

func handleLimits(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(CurrentLimits(sc), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal server limits: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: mimeJSON,
			Text:     string(jsonData),
		},
	}, nil
}
