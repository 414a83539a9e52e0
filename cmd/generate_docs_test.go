package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/marvin-mcp/internal/tools/marvin_tools"
)

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{marvin_tools.ToolAddTask, "Task Tools"},
		{marvin_tools.ToolTodaysTasks, "Task Tools"},
		{marvin_tools.ToolDueTasks, "Task Tools"},
		{marvin_tools.ToolMarkDone, "Task Tools"},
		{marvin_tools.ToolCategories, "Organization Tools"},
		{marvin_tools.ToolLabels, "Organization Tools"},
		{marvin_tools.ToolChildren, "Organization Tools"},
		{marvin_tools.ToolStartTracking, "Time Tracking Tools"},
		{marvin_tools.ToolStopTracking, "Time Tracking Tools"},
		{"something_else", "Other"},
	}

	for _, tt := range tests {
		if got := getCategoryFromToolName(tt.name); got != tt.want {
			t.Errorf("getCategoryFromToolName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("marvin_example",
		mcp.WithDescription("Example tool"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("response_format", mcp.Description("Output format")),
	)

	md := generateToolMarkdown(tool)

	assert.Contains(t, md, "### marvin_example")
	assert.Contains(t, md, "Example tool")
	assert.Contains(t, md, "_Read-only, Idempotent_")
	assert.Contains(t, md, "- `item_id` (required): Task ID")
	assert.Contains(t, md, "- `response_format` (optional): Output format")
	assert.Less(t, strings.Index(md, "item_id"), strings.Index(md, "response_format"))
}

func TestRunGenerateDocs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tools.md")
	require.NoError(t, runGenerateDocs(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc := string(data)

	assert.Contains(t, doc, "# MCP Tools Reference")
	assert.Contains(t, doc, "## Authentication and Output")
	for _, section := range []string{"## Organization Tools", "## Task Tools", "## Time Tracking Tools"} {
		assert.Contains(t, doc, section)
	}
	assert.NotContains(t, doc, "## Other")
	for _, name := range marvin_tools.ToolNames {
		assert.Contains(t, doc, "### "+name)
	}
}
