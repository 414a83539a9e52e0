package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Format selects how a result is rendered.
type Format string

const (
	// FormatMarkdown is the human-readable view and the default.
	FormatMarkdown Format = "markdown"

	// FormatJSON is the machine-readable view.
	FormatJSON Format = "json"
)

// Formats lists the accepted format names in display order.
var Formats = []string{string(FormatMarkdown), string(FormatJSON)}

// ParseFormat validates a format name. An empty name selects markdown.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("response_format must be one of %s, got %q", strings.Join(Formats, ", "), s)
	}
}

// Field is a single named value shown in both views.
type Field struct {
	// Key is the JSON object key.
	Key string

	// Label is the markdown label. Fields without a label are only
	// reflected in the record heading.
	Label string

	// Value is emitted as is in JSON. Nil renders as null in JSON and is
	// omitted from markdown.
	Value any

	// Display overrides the markdown text for Value.
	Display string
}

func (f Field) text() string {
	if f.Display != "" {
		return singleLine(f.Display)
	}
	return singleLine(fmt.Sprint(f.Value))
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine keeps user text on one markdown line so it cannot start a
// heading or list item of its own. JSON values are left unchanged.
func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

// Record is one entry in a listing.
type Record struct {
	Heading string
	Fields  []Field
}

// Listing is an ordered collection of records with a header.
type Listing struct {
	// Title is the markdown H1.
	Title string

	// Summary follows the title in markdown.
	Summary string

	// Meta fields precede "total" in JSON.
	Meta []Field

	// ItemsKey names the JSON array of records.
	ItemsKey string

	// Empty replaces the markdown output when there are no records.
	Empty string

	Records []Record
}

// Confirmation reports the outcome of a mutation.
type Confirmation struct {
	Headline string
	Status   string
	Fields   []Field
	Footnote string
}

// Render renders the complete listing without any size limit.
func Render(l Listing, format Format) string {
	if format == FormatJSON {
		return renderListingJSON(l, len(l.Records), nil)
	}
	return renderListingMarkdown(l)
}

// RenderConfirmation renders a mutation outcome.
func RenderConfirmation(c Confirmation, format Format) string {
	if format == FormatJSON {
		obj := orderedmap.New[string, any]()
		obj.Set("status", c.Status)
		obj.Set("message", c.Headline)
		for _, f := range c.Fields {
			obj.Set(f.Key, f.Value)
		}
		if c.Footnote != "" {
			obj.Set("note", c.Footnote)
		}
		return encodeJSON(obj)
	}

	var b strings.Builder
	b.WriteString(singleLine(c.Headline))
	lines := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Value == nil || f.Label == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s**: %s", f.Label, f.text()))
	}
	if len(lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	if c.Footnote != "" {
		b.WriteString("\n\n_")
		b.WriteString(c.Footnote)
		b.WriteString("_")
	}
	return b.String()
}

func renderListingMarkdown(l Listing) string {
	if len(l.Records) == 0 && l.Empty != "" {
		return l.Empty
	}
	return markdownHeader(l) + strings.Join(markdownBlocks(l.Records), "\n")
}

func markdownHeader(l Listing) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(l.Title)
	b.WriteString("\n\n")
	if l.Summary != "" {
		b.WriteString(l.Summary)
		b.WriteString("\n\n")
	}
	return b.String()
}

func markdownBlocks(records []Record) []string {
	blocks := make([]string, len(records))
	for i, r := range records {
		var b strings.Builder
		b.WriteString("## ")
		b.WriteString(singleLine(r.Heading))
		b.WriteString("\n")
		for _, f := range r.Fields {
			if f.Value == nil || f.Label == "" {
				continue
			}
			fmt.Fprintf(&b, "- **%s**: %s\n", f.Label, f.text())
		}
		blocks[i] = b.String()
	}
	return blocks
}

// recordObject is shared by the JSON listing so both views carry the same values.
func recordObject(r Record) *orderedmap.OrderedMap[string, any] {
	obj := orderedmap.New[string, any]()
	for _, f := range r.Fields {
		obj.Set(f.Key, f.Value)
	}
	return obj
}

func renderListingJSON(l Listing, shown int, truncated *orderedmap.OrderedMap[string, any]) string {
	doc := orderedmap.New[string, any]()
	for _, f := range l.Meta {
		doc.Set(f.Key, f.Value)
	}
	doc.Set("total", len(l.Records))

	items := make([]*orderedmap.OrderedMap[string, any], 0, shown)
	for _, r := range l.Records[:shown] {
		items = append(items, recordObject(r))
	}
	doc.Set(l.ItemsKey, items)

	if truncated != nil {
		doc.Set("truncated", truncated)
	}
	return encodeJSON(doc)
}

func encodeJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
