package render

import (
	"fmt"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultLimit is the maximum number of characters in a tool response.
const DefaultLimit = 25000

// Rendered is a size-bounded response.
type Rendered struct {
	Text      string
	Shown     int
	Total     int
	Truncated bool
}

// Notice explains a truncated response and how to narrow the request.
func Notice(shown, total, limit int) string {
	return fmt.Sprintf("Showing %d of %d records (response limit: %d characters). "+
		"To see the rest, narrow the request: pass a specific `date`, look up items by id, "+
		"or list a single category or project with marvin_get_children.",
		shown, total, limit)
}

// Bound renders l in format, keeping the output within limit characters.
//
// Records are never split. When the full output does not fit, the largest
// prefix of records that fits together with the notice is kept, so the same
// input and limit always produce the same output.
func Bound(l Listing, format Format, limit int) Rendered {
	if limit <= 0 {
		limit = DefaultLimit
	}
	total := len(l.Records)

	full := Render(l, format)
	if Length(full) <= limit {
		return Rendered{Text: full, Shown: total, Total: total}
	}

	var text string
	var shown int
	if format == FormatJSON {
		text, shown = boundJSON(l, limit)
	} else {
		text, shown = boundMarkdown(l, limit)
	}

	return Rendered{Text: text, Shown: shown, Total: total, Truncated: true}
}

func markdownTail(shown, total, limit int) string {
	return "\n---\n\n" + Notice(shown, total, limit)
}

func boundMarkdown(l Listing, limit int) (string, int) {
	header := markdownHeader(l)
	blocks := markdownBlocks(l.Records)
	total := len(blocks)

	best := -1
	used := Length(header)
	for k := 0; k <= total; k++ {
		if k > 0 {
			used += Length(blocks[k-1])
			if k > 1 {
				used++ // "\n" separator
			}
		}
		if used+Length(markdownTail(k, total, limit)) > limit {
			break
		}
		best = k
	}

	if best < 0 {
		return cut(Notice(0, total, limit), limit), 0
	}
	return header + strings.Join(blocks[:best], "\n") + markdownTail(best, total, limit), best
}

func jsonTruncation(shown, total, limit int) *orderedmap.OrderedMap[string, any] {
	t := orderedmap.New[string, any]()
	t.Set("shown", shown)
	t.Set("total", total)
	t.Set("message", Notice(shown, total, limit))
	return t
}

func boundJSON(l Listing, limit int) (string, int) {
	total := len(l.Records)
	render := func(k int) string {
		return renderListingJSON(l, k, jsonTruncation(k, total, limit))
	}

	// Output length grows strictly with k, so the first k that does not fit
	// bounds the answer.
	k := sort.Search(total+1, func(k int) bool {
		return Length(render(k)) > limit
	}) - 1

	if k < 0 {
		return cut(Notice(0, total, limit), limit), 0
	}
	return render(k), k
}

func cut(s string, limit int) string {
	if Length(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
