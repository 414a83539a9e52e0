package marvin_tools

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/render"
)

// Input bounds for marvin_add_task.
const (
	MaxTitleLength   = 500
	MaxNoteLength    = 5000
	MaxLabelIDs      = 20
	MinTimeEstimate  = int64(time.Minute / time.Millisecond)
	MaxTimeEstimate  = int64(24 * time.Hour / time.Millisecond)
	dateFormatSyntax = "YYYY-MM-DD"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// arguments is the decoded argument object of a tool call.
type arguments map[string]interface{}

func argumentsOf(request mcp.CallToolRequest) arguments {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// optionalString returns the trimmed string at key. A missing or null value
// is reported as absent.
func (a arguments) optionalString(key string) (string, bool, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("%s must be a string", key)
	}
	return s, true, nil
}

// requiredID returns a non-empty identifier at key.
func (a arguments) requiredID(key string) (string, error) {
	s, ok, err := a.optionalString(key)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// optionalDate returns a calendar date at key, validated against the
// upstream's YYYY-MM-DD syntax.
func (a arguments) optionalDate(key string) (string, bool, error) {
	s, ok, err := a.optionalString(key)
	if err != nil || !ok {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	if !datePattern.MatchString(s) {
		return "", false, fmt.Errorf("%s must be in %s format, got %q", key, dateFormatSyntax, s)
	}
	if _, err := time.Parse(render.DateLayout, s); err != nil {
		return "", false, fmt.Errorf("%s is not a valid calendar date: %q", key, s)
	}
	return s, true, nil
}

func (a arguments) optionalBool(key string) (*bool, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return nil, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &b, nil
}

// optionalInteger accepts JSON numbers without a fractional part.
func (a arguments) optionalInteger(key string) (int64, bool, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, false, fmt.Errorf("%s must be an integer", key)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("%s must be an integer", key)
	}
	return int64(f), true, nil
}

func (a arguments) optionalStringList(key string) ([]string, error) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var out []string
	switch v := raw.(type) {
	case []string:
		out = append(out, v...)
	case []interface{}:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, i)
			}
			out = append(out, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a list of strings", key)
	}
	return out, nil
}

// responseFormat reads response_format, defaulting to markdown.
func (a arguments) responseFormat() (render.Format, error) {
	s, _, err := a.optionalString(argResponseFormat)
	if err != nil {
		return "", err
	}
	return render.ParseFormat(s)
}

// dateOrToday returns the date argument or the reference date when absent.
func (a arguments) dateOrToday(today string) (string, error) {
	date, ok, err := a.optionalDate(argDate)
	if err != nil {
		return "", err
	}
	if !ok {
		return today, nil
	}
	return date, nil
}

// parseNewTask validates the marvin_add_task arguments. The title is passed
// through unmodified so upstream shorthand keeps working.
func parseNewTask(a arguments) (marvin.NewTask, error) {
	var task marvin.NewTask

	title, ok, err := a.optionalString(argTitle)
	if err != nil {
		return task, err
	}
	if !ok || strings.TrimSpace(title) == "" {
		return task, fmt.Errorf("%s is required", argTitle)
	}
	if n := render.Length(title); n > MaxTitleLength {
		return task, fmt.Errorf("%s must be at most %d characters, got %d", argTitle, MaxTitleLength, n)
	}
	task.Title = title

	note, _, err := a.optionalString(argNote)
	if err != nil {
		return task, err
	}
	if n := render.Length(note); n > MaxNoteLength {
		return task, fmt.Errorf("%s must be at most %d characters, got %d", argNote, MaxNoteLength, n)
	}
	task.Note = note

	if task.Day, _, err = a.optionalDate(argDay); err != nil {
		return task, err
	}
	if task.DueDate, _, err = a.optionalDate(argDueDate); err != nil {
		return task, err
	}

	parentID, _, err := a.optionalString(argParentID)
	if err != nil {
		return task, err
	}
	task.ParentID = strings.TrimSpace(parentID)

	labelIDs, err := a.optionalStringList(argLabelIDs)
	if err != nil {
		return task, err
	}
	if len(labelIDs) > MaxLabelIDs {
		return task, fmt.Errorf("%s accepts at most %d labels, got %d", argLabelIDs, MaxLabelIDs, len(labelIDs))
	}
	task.LabelIDs = labelIDs

	estimate, ok, err := a.optionalInteger(argTimeEstimate)
	if err != nil {
		return task, err
	}
	if ok {
		if estimate < MinTimeEstimate || estimate > MaxTimeEstimate {
			return task, fmt.Errorf("%s must be between %d and %d milliseconds, got %d",
				argTimeEstimate, MinTimeEstimate, MaxTimeEstimate, estimate)
		}
		task.TimeEstimate = estimate
	}

	if task.IsStarred, err = a.optionalBool(argIsStarred); err != nil {
		return task, err
	}
	return task, nil
}
