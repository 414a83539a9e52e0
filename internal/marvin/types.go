package marvin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ItemTypeProject marks a container that holds tasks.
const ItemTypeProject = "project"

// UnassignedParentID lists items without a category or project.
const UnassignedParentID = "unassigned"

// Timestamp is an upstream point in time in milliseconds since the epoch.
// Zero means the field was not set.
//
// The API is inconsistent about dates: most endpoints send numbers, some send
// "YYYY-MM-DD" strings. Both decode to the same value.
type Timestamp int64

// IsZero reports whether the timestamp is unset.
func (t Timestamp) IsZero() bool {
	return t <= 0
}

// Time returns the timestamp as a UTC time.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", data, err)
		}
		*t = parseDateString(s)
		return nil
	}

	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	*t = Timestamp(int64(ms))
	return nil
}

// parseDateString accepts the date shapes seen upstream. Anything else is
// treated as unset rather than failing the whole response.
func parseDateString(s string) Timestamp {
	if s == "" {
		return 0
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return Timestamp(parsed.UnixMilli())
		}
	}
	return 0
}

// Millis is an upstream duration in milliseconds.
type Millis int64

// UnmarshalJSON implements json.Unmarshaler, accepting integers, floats and null.
func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s: %w", data, err)
	}
	*m = Millis(int64(ms))
	return nil
}

// Task is a task or project as returned by the item endpoints.
type Task struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Type         string    `json:"type,omitempty"`
	Done         bool      `json:"done"`
	Day          string    `json:"day,omitempty"`
	DueDate      Timestamp `json:"dueDate"`
	TimeEstimate Millis    `json:"timeEstimate"`
	ParentID     string    `json:"parentId,omitempty"`
	Note         string    `json:"note,omitempty"`
	LabelIDs     []string  `json:"labelIds,omitempty"`
}

// IsProject reports whether the item is a project container.
func (t Task) IsProject() bool {
	return t.Type == ItemTypeProject
}

// Category is a category or project from /categories.
type Category struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	ParentID string `json:"parentId,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Label is a tag that can be attached to tasks.
type Label struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// NewTask is the payload for creating a task. Title may contain the
// upstream shorthand (#Project, @label, ~30m, +today) and is forwarded as is.
type NewTask struct {
	Title        string
	Note         string
	Day          string
	DueDate      string
	ParentID     string
	LabelIDs     []string
	TimeEstimate int64
	IsStarred    *bool
}

type addTaskBody struct {
	Title        string   `json:"title"`
	Done         bool     `json:"done"`
	Note         string   `json:"note,omitempty"`
	Day          string   `json:"day,omitempty"`
	DueDate      string   `json:"dueDate,omitempty"`
	ParentID     string   `json:"parentId,omitempty"`
	LabelIDs     []string `json:"labelIds,omitempty"`
	TimeEstimate int64    `json:"timeEstimate,omitempty"`
	IsStarred    *bool    `json:"isStarred,omitempty"`
}

func (n NewTask) body() addTaskBody {
	return addTaskBody{
		Title:        n.Title,
		Done:         false,
		Note:         n.Note,
		Day:          n.Day,
		DueDate:      n.DueDate,
		ParentID:     n.ParentID,
		LabelIDs:     n.LabelIDs,
		TimeEstimate: n.TimeEstimate,
		IsStarred:    n.IsStarred,
	}
}
