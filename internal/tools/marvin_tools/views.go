package marvin_tools

import (
	"fmt"

	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/render"
)

// Note lengths shown per record.
const (
	taskNoteLength      = 200
	containerNoteLength = 150
)

const (
	markerDone    = "✅"
	markerOpen    = "⬜"
	markerProject = "📁"

	untitled = "Untitled"
)

// Due states reported by marvin_get_due_tasks.
const (
	DueStatusOverdue  = "overdue"
	DueStatusDueToday = "due_today"
	DueStatusUpcoming = "upcoming"
)

func plural(n int, singular, many string) string {
	if n == 1 {
		return singular
	}
	return many
}

// titleOf names untitled items. Headings and the JSON title both use it so
// the two views agree.
func titleOf(title string) string {
	if title == "" {
		return untitled
	}
	return title
}

func doneMarker(done bool) string {
	if done {
		return markerDone
	}
	return markerOpen
}

// optional returns nil for an empty string so the field renders as null in
// JSON and is left out of markdown.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func idField(id string) render.Field {
	return render.Field{Key: "id", Label: "ID", Value: id}
}

func titleField(title string) render.Field {
	return render.Field{Key: "title", Value: titleOf(title)}
}

func doneField(done bool) render.Field {
	return render.Field{Key: "done", Value: done}
}

func dueField(due marvin.Timestamp) render.Field {
	f := render.Field{Key: "dueDate", Label: "Due"}
	if !due.IsZero() {
		f.Value = render.FormatTimestamp(int64(due))
	}
	return f
}

func estimateField(estimate marvin.Millis) render.Field {
	f := render.Field{Key: "timeEstimate", Label: "Estimate"}
	if estimate > 0 {
		f.Value = render.FormatDuration(int64(estimate))
	}
	return f
}

func noteField(note string, max int) render.Field {
	return render.Field{Key: "note", Label: "Note", Value: optional(render.TruncateNote(note, max))}
}

func taskSummary(n int, suffix string) string {
	return fmt.Sprintf("Found %d %s%s", n, plural(n, "task", "tasks"), suffix)
}

// todayListing builds the marvin_get_todays_tasks view.
func todayListing(date string, tasks []marvin.Task) render.Listing {
	records := make([]render.Record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, render.Record{
			Heading: doneMarker(t.Done) + " " + titleOf(t.Title),
			Fields: []render.Field{
				idField(t.ID),
				titleField(t.Title),
				doneField(t.Done),
				dueField(t.DueDate),
				estimateField(t.TimeEstimate),
				{Key: "parentId", Label: "Project", Value: optional(t.ParentID)},
				noteField(t.Note, taskNoteLength),
			},
		})
	}
	return render.Listing{
		Title:    fmt.Sprintf("Today's Tasks (%s)", date),
		Summary:  taskSummary(len(records), ""),
		Meta:     []render.Field{{Key: "date", Value: date}},
		ItemsKey: "tasks",
		Empty:    fmt.Sprintf("No tasks scheduled for %s.", date),
		Records:  records,
	}
}

// dueState classifies a due date against the reference date. Tasks without
// a due date have no state.
func dueState(asOf string, due marvin.Timestamp) (status string, daysOverdue int) {
	if due.IsZero() {
		return "", 0
	}
	days, err := render.DaysBetween(asOf, int64(due))
	if err != nil {
		return "", 0
	}
	switch {
	case days > 0:
		return DueStatusOverdue, days
	case days == 0:
		return DueStatusDueToday, 0
	default:
		return DueStatusUpcoming, 0
	}
}

func dueMarker(status string) string {
	switch status {
	case DueStatusOverdue:
		return " [OVERDUE]"
	case DueStatusDueToday:
		return " [DUE TODAY]"
	default:
		return ""
	}
}

// dueListing builds the marvin_get_due_tasks view.
func dueListing(asOf string, tasks []marvin.Task) render.Listing {
	records := make([]render.Record, 0, len(tasks))
	for _, t := range tasks {
		status, days := dueState(asOf, t.DueDate)

		overdue := render.Field{Key: "daysOverdue", Label: "Days Overdue"}
		if days > 0 {
			overdue.Value = days
		}

		records = append(records, render.Record{
			Heading: doneMarker(t.Done) + " " + titleOf(t.Title) + dueMarker(status),
			Fields: []render.Field{
				idField(t.ID),
				titleField(t.Title),
				doneField(t.Done),
				{Key: "dueStatus", Value: optional(status)},
				dueField(t.DueDate),
				overdue,
				estimateField(t.TimeEstimate),
				noteField(t.Note, taskNoteLength),
			},
		})
	}
	return render.Listing{
		Title:    fmt.Sprintf("Due & Overdue Tasks (as of %s)", asOf),
		Summary:  taskSummary(len(records), " requiring attention"),
		Meta:     []render.Field{{Key: "asOf", Value: asOf}},
		ItemsKey: "tasks",
		Empty:    fmt.Sprintf("No due or overdue tasks as of %s.", asOf),
		Records:  records,
	}
}

// categoriesListing builds the marvin_get_categories view.
func categoriesListing(categories []marvin.Category) render.Listing {
	records := make([]render.Record, 0, len(categories))
	for _, c := range categories {
		kind := c.Type
		if kind == "" {
			kind = "unknown"
		}
		records = append(records, render.Record{
			Heading: fmt.Sprintf("%s (%s)", titleOf(c.Title), kind),
			Fields: []render.Field{
				idField(c.ID),
				titleField(c.Title),
				{Key: "type", Label: "Type", Value: optional(c.Type), Display: kind},
				{Key: "parentId", Label: "Parent", Value: optional(c.ParentID)},
				noteField(c.Note, containerNoteLength),
			},
		})
	}
	n := len(records)
	return render.Listing{
		Title:    "Categories & Projects",
		Summary:  fmt.Sprintf("Found %d %s and projects", n, plural(n, "category", "categories")),
		ItemsKey: "categories",
		Empty:    "No categories or projects found.",
		Records:  records,
	}
}

// labelsListing builds the marvin_get_labels view.
func labelsListing(labels []marvin.Label) render.Listing {
	records := make([]render.Record, 0, len(labels))
	for _, l := range labels {
		records = append(records, render.Record{
			Heading: titleOf(l.Title),
			Fields:  []render.Field{idField(l.ID), titleField(l.Title)},
		})
	}
	n := len(records)
	return render.Listing{
		Title:    "Labels",
		Summary:  fmt.Sprintf("Found %d %s", n, plural(n, "label", "labels")),
		ItemsKey: "labels",
		Empty:    "No labels found.",
		Records:  records,
	}
}

// childrenListing builds the marvin_get_children view.
func childrenListing(parentID string, items []marvin.Task) render.Listing {
	records := make([]render.Record, 0, len(items))
	for _, item := range items {
		kind := item.Type
		if kind == "" {
			kind = "task"
		}
		marker := doneMarker(item.Done)
		if item.IsProject() {
			marker = markerProject
		}
		records = append(records, render.Record{
			Heading: fmt.Sprintf("%s %s (%s)", marker, titleOf(item.Title), kind),
			Fields: []render.Field{
				idField(item.ID),
				titleField(item.Title),
				{Key: "type", Label: "Type", Value: kind},
				doneField(item.Done),
				dueField(item.DueDate),
				estimateField(item.TimeEstimate),
				noteField(item.Note, containerNoteLength),
			},
		})
	}
	n := len(records)
	return render.Listing{
		Title:    "Items in: " + parentID,
		Summary:  fmt.Sprintf("Found %d %s", n, plural(n, "item", "items")),
		Meta:     []render.Field{{Key: "parent_id", Value: parentID}},
		ItemsKey: "items",
		Empty:    "No items found under parent ID: " + parentID,
		Records:  records,
	}
}

// createdConfirmation reports the result of marvin_add_task.
func createdConfirmation(task *marvin.Task) render.Confirmation {
	id := task.ID
	if id == "" {
		id = "N/A"
	}
	due := render.Field{Key: "dueDate", Label: "Due"}
	if !task.DueDate.IsZero() {
		due.Value = render.FormatTimestamp(int64(task.DueDate))
	}
	estimate := render.Field{Key: "timeEstimate", Label: "Time Estimate"}
	if task.TimeEstimate > 0 {
		estimate.Value = render.FormatDuration(int64(task.TimeEstimate))
	}
	return render.Confirmation{
		Headline: "✅ Task created successfully!",
		Status:   "created",
		Fields: []render.Field{
			{Key: "id", Label: "ID", Value: id},
			{Key: "title", Label: "Title", Value: titleOf(task.Title)},
			{Key: "day", Label: "Scheduled", Value: optional(task.Day)},
			due,
			estimate,
		},
	}
}

func markedDoneConfirmation(itemID string) render.Confirmation {
	return render.Confirmation{
		Headline: "✅ Task marked as complete!",
		Status:   "done",
		Fields:   []render.Field{{Key: "id", Label: "Task ID", Value: itemID}},
	}
}

func trackingStartedConfirmation(itemID string) render.Confirmation {
	return render.Confirmation{
		Headline: "⏱️ Timer started for task!",
		Status:   "tracking",
		Fields:   []render.Field{{Key: "id", Label: "Task ID", Value: itemID}},
		Footnote: "Note: Any previously running timer has been stopped.",
	}
}

func trackingStoppedConfirmation() render.Confirmation {
	return render.Confirmation{
		Headline: "⏱️ Timer stopped successfully!",
		Status:   "stopped",
		Footnote: "Time tracking has been saved to the task.",
	}
}
