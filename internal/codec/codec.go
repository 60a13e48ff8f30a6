// Package codec converts between reading-list documents and items.
//
// A document is plain markdown that stays hand-editable:
//
//	# 📖 LaterRead Inbox
//
//	## 🤖 AI/Tech
//
//	- [ ] 🤖 [Title](https://example.com/a) | example.com | 2025-01-10
//	>  one line summary
//	> 📝 a note
//	> 🔗 Related: [Other](https://example.com/b)
package codec

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pbaille/laterread/internal/category"
	"github.com/pbaille/laterread/internal/domain"
)

// Layout describes the fixed parts of one collection document
type Layout struct {
	Title      string
	Preamble   []string
	Hint       string
	SortByDate bool
}

var (
	InboxLayout = Layout{
		Title: "# 📖 LaterRead Inbox",
		Hint:  "Saved links land here. Tick a box to mark an item read.",
	}
	LaterWriteLayout = Layout{
		Title:      "# ✍️ LaterWrite",
		Preamble:   []string{"Content ideas and related articles", "---"},
		Hint:       "Content ideas and related articles",
		SortByDate: true,
	}
)

// LayoutFor returns the layout used for a collection kind
func LayoutFor(kind domain.Kind) Layout {
	if kind == domain.LaterWrite {
		return LaterWriteLayout
	}
	return InboxLayout
}

// Skeleton is the document written when a collection file does not exist yet
func (l Layout) Skeleton() string {
	return l.Title + "\n\n" + l.Hint + "\n"
}

// Skipped records a line that parsing could not attach to an item
type Skipped struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Report summarizes a parse
type Report struct {
	Items   int       `json:"items"`
	Skipped []Skipped `json:"skipped,omitempty"`
}

// Clean reports whether no line was dropped
func (r Report) Clean() bool {
	return len(r.Skipped) == 0
}

// Titles maps normalized urls to item titles for relation rendering
type Titles map[string]string

// IndexTitles builds a title index over every given collection
func IndexTitles(sets ...[]domain.Item) Titles {
	t := make(Titles)
	for _, items := range sets {
		for _, it := range items {
			key := domain.NormalizeURL(it.URL)
			if _, seen := t[key]; !seen {
				t[key] = it.Title
			}
		}
	}
	return t
}

// Codec parses and renders documents against a category registry
type Codec struct {
	reg    *category.Registry
	header *regexp.Regexp
}

// New creates a Codec for reg
func New(reg *category.Registry) *Codec {
	return &Codec{reg: reg, header: headerPattern(reg.Symbols())}
}

// Registry returns the registry the codec was built with
func (c *Codec) Registry() *category.Registry {
	return c.reg
}

// Parse extracts items from doc. It never fails; lines it cannot use are
// listed in the report.
func (c *Codec) Parse(doc string) ([]domain.Item, Report) {
	var (
		items  []domain.Item
		report Report
	)
	lines := strings.Split(doc, "\n")
	skip := func(i int, reason string) {
		report.Skipped = append(report.Skipped, Skipped{Line: i + 1, Text: strings.TrimSuffix(lines[i], "\r"), Reason: reason})
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		switch kind := c.ClassifyLine(line); kind {
		case LineItem:
			it := c.parseHeader(line)
			j := i + 1
			for _, want := range []LineKind{LineSummary, LineNote, LineRelations} {
				if j >= len(lines) {
					break
				}
				next := strings.TrimSuffix(lines[j], "\r")
				if c.ClassifyLine(next) != want {
					continue
				}
				switch want {
				case LineSummary:
					it.Summary = strings.TrimPrefix(next, SummaryMarker)
				case LineNote:
					it.Note = strings.TrimPrefix(next, NoteMarker)
				case LineRelations:
					it.Related = domain.CleanRelations(it.URL, parseRelations(strings.TrimPrefix(next, RelationsMarker)))
				}
				j++
			}
			items = append(items, it)
			i = j - 1
		case LineSummary, LineNote, LineRelations:
			skip(i, fmt.Sprintf("detached %s line", kind))
		case LineText:
			if strings.HasPrefix(line, "- [") {
				skip(i, "unrecognized item header")
			}
		}
	}
	report.Items = len(items)
	return items, report
}

func (c *Codec) parseHeader(line string) domain.Item {
	m := c.header.FindStringSubmatch(line)
	return domain.Item{
		Read:      m[1] == "x",
		Category:  string(c.reg.KeyForSymbol(m[2])),
		Title:     m[3],
		URL:       m[4],
		Domain:    m[5],
		CreatedAt: m[6],
	}
}

// Serialize renders items grouped by category in registry order
func (c *Codec) Serialize(items []domain.Item, layout Layout, titles Titles) string {
	var sb strings.Builder
	sb.WriteString(layout.Title)
	sb.WriteString("\n\n")
	for _, p := range layout.Preamble {
		sb.WriteString(p)
		sb.WriteString("\n\n")
	}

	groups := make(map[category.Key][]domain.Item)
	for _, it := range items {
		k := c.reg.Resolve(it.Category)
		groups[k] = append(groups[k], it)
	}

	for _, k := range c.reg.Order() {
		group := groups[k]
		if len(group) == 0 {
			continue
		}
		if layout.SortByDate {
			sort.SliceStable(group, func(i, j int) bool {
				return group[i].CreatedAt > group[j].CreatedAt
			})
		}
		info := c.reg.Lookup(k)
		sb.WriteString("## " + info.Symbol + " " + info.Label + "\n\n")
		for _, it := range group {
			sb.WriteString(c.RenderItem(it, titles))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderItem renders the header line of it and its optional detail lines
func (c *Codec) RenderItem(it domain.Item, titles Titles) string {
	info := c.reg.Lookup(c.reg.Resolve(it.Category))
	check := " "
	if it.Read {
		check = "x"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- [%s] %s [%s](%s) | %s | %s\n",
		check, info.Symbol, oneLine(it.Title), strings.TrimSpace(it.URL),
		orUnknown(oneLine(it.Domain)), orUnknown(oneLine(it.CreatedAt)))

	if s := oneLine(it.Summary); s != "" {
		sb.WriteString(SummaryMarker + s + "\n")
	}
	if n := oneLine(it.Note); n != "" {
		sb.WriteString(NoteMarker + n + "\n")
	}
	if links := renderLinks(it.Related, titles); links != "" {
		sb.WriteString(RelationsMarker + relatedLabel + " " + links + "\n")
	}
	return sb.String()
}

// renderLinks drops targets that do not resolve to a known item
func renderLinks(targets []string, titles Titles) string {
	var links []string
	for _, t := range targets {
		title, ok := titles[domain.NormalizeURL(t)]
		if !ok {
			continue
		}
		links = append(links, "["+linkTitle.Replace(oneLine(title))+"]("+strings.TrimSpace(t)+")")
	}
	return strings.Join(links, linkSeparator)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
