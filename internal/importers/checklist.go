package importers

import (
	"regexp"
	"strings"
	"time"
)

var (
	checklistRe = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+(.+)$`)
	dueRe       = regexp.MustCompile(`\bdue:(\d{4}-\d{2}-\d{2})\b`)
)

// Item is a single checklist entry found in a markdown file.
type Item struct {
	Title   string     `json:"title"`
	Due     *time.Time `json:"due,omitempty"`
	Checked bool       `json:"checked"`
	File    string     `json:"file"`
	Line    int        `json:"line"`
}

// ParseChecklist extracts checklist items (`- [ ]` or `* [ ]`) from
// markdown content. A `due:YYYY-MM-DD` marker in the item text is parsed
// into the due date and removed from the title.
func ParseChecklist(content, path string) []Item {
	var items []Item
	for i, line := range strings.Split(content, "\n") {
		m := checklistRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title, due := splitDue(m[2])
		if title == "" {
			continue
		}
		items = append(items, Item{
			Title:   title,
			Due:     due,
			Checked: m[1] != " ",
			File:    path,
			Line:    i + 1,
		})
	}
	return items
}

func splitDue(text string) (string, *time.Time) {
	m := dueRe.FindStringSubmatch(text)
	if m == nil {
		return strings.TrimSpace(text), nil
	}
	due, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		// Looks like a marker but is not a real date; leave it in the title.
		return strings.TrimSpace(text), nil
	}
	title := strings.Join(strings.Fields(strings.Replace(text, m[0], "", 1)), " ")
	return title, &due
}
