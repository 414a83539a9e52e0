package render

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// DateLayout is the calendar date format used on both sides of the API.
const DateLayout = "2006-01-02"

// NoEstimate is shown for a zero duration.
const NoEstimate = "no estimate"

const (
	msPerMinute = int64(time.Minute / time.Millisecond)
	msPerHour   = int64(time.Hour / time.Millisecond)
)

// FormatTimestamp renders milliseconds since the epoch as a UTC calendar date.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DateLayout)
}

// FormatDate renders t as a UTC calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DaysBetween returns the number of whole calendar days from the date of
// dueMs to the date reference (YYYY-MM-DD), both in UTC. It is positive when
// the due date lies before the reference.
func DaysBetween(reference string, dueMs int64) (int, error) {
	ref, err := time.Parse(DateLayout, reference)
	if err != nil {
		return 0, fmt.Errorf("invalid reference date %q: %w", reference, err)
	}
	due := time.UnixMilli(dueMs).UTC()
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(ref.Sub(dueDay).Hours() / 24), nil
}

// FormatDuration renders a millisecond duration as hours and minutes.
//
//	FormatDuration(5400000) // "1h 30m"
//	FormatDuration(3600000) // "1h"
//	FormatDuration(2700000) // "45m"
//	FormatDuration(30000)   // "< 1m"
//	FormatDuration(0)       // "no estimate"
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return NoEstimate
	}

	hours := ms / msPerHour
	minutes := (ms % msPerHour) / msPerMinute

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return "< 1m"
	}
}

// TruncateNote cuts s to at most max characters, marking the cut with an ellipsis.
func TruncateNote(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}

// Length counts characters the way the response limit does.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
