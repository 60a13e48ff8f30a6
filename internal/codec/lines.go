package codec

import (
	"regexp"
	"strings"
)

// Line markers for the lines that follow an item header
const (
	SummaryMarker   = ">  "
	NoteMarker      = "> 📝 "
	RelationsMarker = "> 🔗 "
	relatedLabel    = "Related:"
	linkSeparator   = " | "
	legacySeparator = ", "
)

// LineKind is the syntactic role of one document line
type LineKind int

const (
	LineBlank LineKind = iota
	LineHeading
	LineItem
	LineSummary
	LineNote
	LineRelations
	LineText
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineHeading:
		return "heading"
	case LineItem:
		return "item"
	case LineSummary:
		return "summary"
	case LineNote:
		return "note"
	case LineRelations:
		return "relations"
	default:
		return "text"
	}
}

func headerPattern(symbols []string) *regexp.Regexp {
	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = regexp.QuoteMeta(s)
	}
	return regexp.MustCompile(`^- \[([ x])\] (` + strings.Join(quoted, "|") + `) \[(.+?)\]\((.+?)\) \| (.+?) \| (.+?)$`)
}

// ClassifyLine returns the role of line. Only lines matching the full header
// grammar with a configured symbol are LineItem.
func (c *Codec) ClassifyLine(line string) LineKind {
	line = strings.TrimSuffix(line, "\r")
	switch {
	case strings.TrimSpace(line) == "":
		return LineBlank
	case strings.HasPrefix(line, "#"):
		return LineHeading
	case strings.HasPrefix(line, SummaryMarker):
		return LineSummary
	case strings.HasPrefix(line, NoteMarker):
		return LineNote
	case strings.HasPrefix(line, RelationsMarker):
		return LineRelations
	case c.header.MatchString(line):
		return LineItem
	}
	return LineText
}

// parseRelations accepts both the legacy comma list of raw urls and the
// current "Related: [title](url) | ..." list.
func parseRelations(s string) []string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, relatedLabel); ok {
		return parseLinks(strings.TrimSpace(rest))
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, ")") {
		return parseLinks(s)
	}
	var out []string
	for _, part := range strings.Split(s, legacySeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// linkTarget matches the url of one "[title](url)" link, anchored on the
// separator or the end of the line so titles may contain " | ".
var linkTarget = regexp.MustCompile(`\]\((\S+?)\)(?: \| |\s*$)`)

func parseLinks(s string) []string {
	var out []string
	for _, m := range linkTarget.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// linkTitle keeps a title from being read as link syntax
var linkTitle = strings.NewReplacer("[", "(", "]", ")", "|", "/")

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(strings.ReplaceAll(s, "\r", " "))
}
