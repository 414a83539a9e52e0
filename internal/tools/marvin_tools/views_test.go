package marvin_tools

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/render"
)

func dayMillis(year int, month time.Month, day int) marvin.Timestamp {
	return marvin.Timestamp(time.Date(year, month, day, 9, 30, 0, 0, time.UTC).UnixMilli())
}

func TestDueState(t *testing.T) {
	tests := []struct {
		name       string
		due        marvin.Timestamp
		wantStatus string
		wantDays   int
	}{
		{name: "no due date", due: 0, wantStatus: "", wantDays: 0},
		{name: "overdue", due: dayMillis(2024, time.March, 12), wantStatus: DueStatusOverdue, wantDays: 3},
		{name: "due today", due: dayMillis(2024, time.March, 15), wantStatus: DueStatusDueToday, wantDays: 0},
		{name: "upcoming", due: dayMillis(2024, time.March, 16), wantStatus: DueStatusUpcoming, wantDays: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, days := dueState("2024-03-15", tt.due)
			if status != tt.wantStatus || days != tt.wantDays {
				t.Errorf("dueState() = (%q, %d), want (%q, %d)", status, days, tt.wantStatus, tt.wantDays)
			}
		})
	}
}

func TestTodayListing_Markdown(t *testing.T) {
	tasks := []marvin.Task{
		{ID: "t1", Title: "Review budget", Done: false, DueDate: dayMillis(2024, time.March, 20), TimeEstimate: 5400000, ParentID: "p1", Note: "Q2"},
		{ID: "t2", Title: "", Done: true},
	}

	out := render.Render(todayListing("2024-03-15", tasks), render.FormatMarkdown)

	assert.True(t, strings.HasPrefix(out, "# Today's Tasks (2024-03-15)\n\nFound 2 tasks\n\n"), out)
	assert.Contains(t, out, "## ⬜ Review budget\n- **ID**: t1\n- **Due**: 2024-03-20\n- **Estimate**: 1h 30m\n- **Project**: p1\n- **Note**: Q2\n")
	assert.Contains(t, out, "## ✅ Untitled\n- **ID**: t2\n")
	assert.NotContains(t, out, "**Due**: \n")
}

func TestUntitledMatchesInBothViews(t *testing.T) {
	listings := map[string]render.Listing{
		"today":      todayListing("2024-03-15", []marvin.Task{{ID: "t1"}}),
		"due":        dueListing("2024-03-15", []marvin.Task{{ID: "t1"}}),
		"categories": categoriesListing([]marvin.Category{{ID: "t1"}}),
		"labels":     labelsListing([]marvin.Label{{ID: "t1"}}),
		"children":   childrenListing("p1", []marvin.Task{{ID: "t1"}}),
	}

	for name, listing := range listings {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, render.Render(listing, render.FormatMarkdown), "Untitled")

			var doc map[string]any
			require.NoError(t, json.Unmarshal([]byte(render.Render(listing, render.FormatJSON)), &doc))
			items, ok := doc[listing.ItemsKey].([]any)
			require.True(t, ok)
			require.Len(t, items, 1)
			assert.Equal(t, "Untitled", items[0].(map[string]any)["title"])
		})
	}
}

func TestTodayListing_JSON(t *testing.T) {
	tasks := []marvin.Task{{ID: "t1", Title: "Review budget", TimeEstimate: 2700000}}

	out := render.Render(todayListing("2024-03-15", tasks), render.FormatJSON)

	var doc struct {
		Date  string           `json:"date"`
		Total int              `json:"total"`
		Tasks []map[string]any `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2024-03-15", doc.Date)
	assert.Equal(t, 1, doc.Total)
	require.Len(t, doc.Tasks, 1)

	task := doc.Tasks[0]
	assert.Equal(t, "t1", task["id"])
	assert.Equal(t, false, task["done"])
	assert.Equal(t, "45m", task["timeEstimate"])
	assert.Nil(t, task["dueDate"])
	assert.Contains(t, task, "note")
	assert.Nil(t, task["note"])

	keys := []string{`"id"`, `"title"`, `"done"`, `"dueDate"`, `"timeEstimate"`, `"parentId"`, `"note"`}
	last := -1
	for _, key := range keys {
		idx := strings.Index(out, key)
		require.Greater(t, idx, last, "key %s out of order in %s", key, out)
		last = idx
	}
}

func TestTodayListing_Empty(t *testing.T) {
	l := todayListing("2024-03-15", nil)

	assert.Equal(t, "No tasks scheduled for 2024-03-15.", render.Render(l, render.FormatMarkdown))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(render.Render(l, render.FormatJSON)), &doc))
	assert.Equal(t, float64(0), doc["total"])
	assert.Equal(t, []any{}, doc["tasks"])
}

func TestDueListing(t *testing.T) {
	tasks := []marvin.Task{
		{ID: "t1", Title: "Taxes", DueDate: dayMillis(2024, time.March, 10)},
		{ID: "t2", Title: "Standup", DueDate: dayMillis(2024, time.March, 15)},
	}
	l := dueListing("2024-03-15", tasks)

	md := render.Render(l, render.FormatMarkdown)
	assert.Contains(t, md, "# Due & Overdue Tasks (as of 2024-03-15)")
	assert.Contains(t, md, "Found 2 tasks requiring attention")
	assert.Contains(t, md, "## ⬜ Taxes [OVERDUE]\n")
	assert.Contains(t, md, "- **Days Overdue**: 5\n")
	assert.Contains(t, md, "## ⬜ Standup [DUE TODAY]\n")

	var doc struct {
		AsOf  string           `json:"asOf"`
		Tasks []map[string]any `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(render.Render(l, render.FormatJSON)), &doc))
	assert.Equal(t, "2024-03-15", doc.AsOf)
	require.Len(t, doc.Tasks, 2)
	assert.Equal(t, DueStatusOverdue, doc.Tasks[0]["dueStatus"])
	assert.Equal(t, float64(5), doc.Tasks[0]["daysOverdue"])
	assert.Equal(t, "2024-03-10", doc.Tasks[0]["dueDate"])
	assert.Equal(t, DueStatusDueToday, doc.Tasks[1]["dueStatus"])
	assert.Nil(t, doc.Tasks[1]["daysOverdue"])

	assert.Equal(t, "No due or overdue tasks as of 2024-03-15.", render.Render(dueListing("2024-03-15", nil), render.FormatMarkdown))
}

func TestCategoriesListing(t *testing.T) {
	categories := []marvin.Category{
		{ID: "c1", Title: "Work", Type: "category", Note: strings.Repeat("x", 200)},
		{ID: "p1", Title: "Launch", Type: marvin.ItemTypeProject, ParentID: "c1"},
	}
	l := categoriesListing(categories)

	md := render.Render(l, render.FormatMarkdown)
	assert.Contains(t, md, "Found 2 categories and projects")
	assert.Contains(t, md, "## Work (category)\n- **ID**: c1\n- **Type**: category\n- **Note**: "+strings.Repeat("x", 150)+"…\n")
	assert.Contains(t, md, "## Launch (project)\n- **ID**: p1\n- **Type**: project\n- **Parent**: c1\n")

	single := render.Render(categoriesListing(categories[:1]), render.FormatMarkdown)
	assert.Contains(t, single, "Found 1 category and projects")

	assert.Equal(t, "No categories or projects found.", render.Render(categoriesListing(nil), render.FormatMarkdown))
}

func TestLabelsListing(t *testing.T) {
	l := labelsListing([]marvin.Label{{ID: "l1", Title: "urgent"}})

	assert.Equal(t, "# Labels\n\nFound 1 label\n\n## urgent\n- **ID**: l1\n", render.Render(l, render.FormatMarkdown))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(render.Render(l, render.FormatJSON)), &doc))
	assert.Equal(t, []any{map[string]any{"id": "l1", "title": "urgent"}}, doc["labels"])

	assert.Equal(t, "No labels found.", render.Render(labelsListing(nil), render.FormatMarkdown))
}

func TestChildrenListing(t *testing.T) {
	items := []marvin.Task{
		{ID: "p2", Title: "Website", Type: marvin.ItemTypeProject},
		{ID: "t1", Title: "Draft copy", Done: true},
	}
	l := childrenListing("c1", items)

	md := render.Render(l, render.FormatMarkdown)
	assert.Contains(t, md, "# Items in: c1\n\nFound 2 items")
	assert.Contains(t, md, "## 📁 Website (project)\n")
	assert.Contains(t, md, "## ✅ Draft copy (task)\n- **ID**: t1\n- **Type**: task\n")

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(render.Render(l, render.FormatJSON)), &doc))
	assert.Equal(t, "c1", doc["parent_id"])
	assert.Equal(t, float64(2), doc["total"])

	assert.Equal(t, "No items found under parent ID: unassigned",
		render.Render(childrenListing(marvin.UnassignedParentID, nil), render.FormatMarkdown))
}

func TestConfirmations(t *testing.T) {
	created := createdConfirmation(&marvin.Task{
		ID:           "t9",
		Title:        "Call dentist",
		Day:          "2024-03-15",
		TimeEstimate: 900000,
	})
	md := render.RenderConfirmation(created, render.FormatMarkdown)
	assert.Equal(t, "✅ Task created successfully!\n\n**ID**: t9\n**Title**: Call dentist\n**Scheduled**: 2024-03-15\n**Time Estimate**: 15m", md)

	assert.Contains(t, render.RenderConfirmation(createdConfirmation(&marvin.Task{Title: "x"}), render.FormatMarkdown), "**ID**: N/A")

	started := render.RenderConfirmation(trackingStartedConfirmation("t1"), render.FormatMarkdown)
	assert.Equal(t, "⏱️ Timer started for task!\n\n**Task ID**: t1\n\n_Note: Any previously running timer has been stopped._", started)

	stopped := render.RenderConfirmation(trackingStoppedConfirmation(), render.FormatMarkdown)
	assert.Equal(t, "⏱️ Timer stopped successfully!\n\n_Time tracking has been saved to the task._", stopped)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(render.RenderConfirmation(markedDoneConfirmation("t1"), render.FormatJSON)), &doc))
	assert.Equal(t, "done", doc["status"])
	assert.Equal(t, "t1", doc["id"])
	assert.Equal(t, "✅ Task marked as complete!", doc["message"])
}
