package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/laterread/internal/category"
	"github.com/pbaille/laterread/internal/domain"
)

func newCodec() *Codec {
	return New(category.Default())
}

func TestClassifyLine(t *testing.T) {
	c := newCodec()
	tests := []struct {
		line string
		want LineKind
	}{
		{"", LineBlank},
		{"   ", LineBlank},
		{"# 📖 LaterRead Inbox", LineHeading},
		{"## 🤖 AI/Tech", LineHeading},
		{"- [ ] 🤖 [X](http://a) | a.com | 2025-01-10", LineItem},
		{"- [x] ✍️ [X](http://a) | a.com | 2025-01-10", LineItem},
		{"- [ ] 🦄 [X](http://a) | a.com | 2025-01-10", LineText},
		{"- [ ] 🤖 [X](http://a) | a.com", LineText},
		{">  a summary", LineSummary},
		{"> 📝 a note", LineNote},
		{"> 🔗 Related: [B](http://b)", LineRelations},
		{"> plain quote", LineText},
		{"some prose", LineText},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ClassifyLine(tt.line), "got %s", c.ClassifyLine(tt.line))
		})
	}
}

func TestParseFullItem(t *testing.T) {
	doc := `# 📖 LaterRead Inbox

## 🛠️ Dev Tools

- [x] 🛠️ [Go 1.25](https://go.dev/blog) | go.dev | 2025-08-12
>  Release notes
> 📝 read the GC part
> 🔗 Related: [Other](https://b.com/x) | [Third](https://c.com)
`
	items, report := newCodec().Parse(doc)
	require.Len(t, items, 1)
	assert.True(t, report.Clean())
	assert.Equal(t, 1, report.Items)

	it := items[0]
	assert.Equal(t, domain.Item{
		URL:       "https://go.dev/blog",
		Title:     "Go 1.25",
		Domain:    "go.dev",
		Summary:   "Release notes",
		Category:  "dev-tools",
		Note:      "read the GC part",
		Related:   []string{"https://b.com/x", "https://c.com"},
		CreatedAt: "2025-08-12",
		Read:      true,
	}, it)
}

func TestParseOptionalLinesInOrder(t *testing.T) {
	doc := "- [ ] 📌 [A](http://a) | a | 2025-01-01\n" +
		"> 📝 only a note\n" +
		"\n" +
		"- [ ] 📌 [B](http://b) | b | 2025-01-01\n" +
		"> 🔗 http://a, http://c\n"

	items, report := newCodec().Parse(doc)
	require.Len(t, items, 2)
	assert.True(t, report.Clean())

	assert.Empty(t, items[0].Summary)
	assert.Equal(t, "only a note", items[0].Note)
	assert.Equal(t, []string{"http://a", "http://c"}, items[1].Related, "legacy encoding")
}

func TestParseReportsSkippedLines(t *testing.T) {
	doc := "# 📖 LaterRead Inbox\n" +
		"\n" +
		"- [ ] 🦄 [Y](http://y) | y.com | 2025-01-01\n" +
		">  orphan summary\n" +
		"\n" +
		"- [ ] 🤖 [X](http://x) | x.com | 2025-01-01\n" +
		">  first\n" +
		">  second\n"

	items, report := newCodec().Parse(doc)
	require.Len(t, items, 1)
	assert.Equal(t, "first", items[0].Summary)

	require.Len(t, report.Skipped, 3)
	assert.Equal(t, 3, report.Skipped[0].Line)
	assert.Equal(t, "unrecognized item header", report.Skipped[0].Reason)
	assert.Equal(t, 4, report.Skipped[1].Line)
	assert.Equal(t, "detached summary line", report.Skipped[1].Reason)
	assert.Equal(t, 8, report.Skipped[2].Line)
	assert.False(t, report.Clean())
}

func TestParseCRLF(t *testing.T) {
	doc := "- [ ] 🤖 [X](http://x) | x.com | 2025-01-01\r\n>  s\r\n"
	items, report := newCodec().Parse(doc)
	require.Len(t, items, 1)
	assert.Equal(t, "2025-01-01", items[0].CreatedAt)
	assert.Equal(t, "s", items[0].Summary)
	assert.True(t, report.Clean())
}

func TestSerializeGroupsInRegistryOrder(t *testing.T) {
	items := []domain.Item{
		{URL: "http://g", Title: "G", Domain: "g", Category: "general", CreatedAt: "2025-01-01"},
		{URL: "http://a", Title: "A", Domain: "a", Category: "ai-tech", CreatedAt: "2025-01-02", Summary: "s"},
		{URL: "http://u", Title: "U", Domain: "u", Category: "nonsense", CreatedAt: "2025-01-03"},
	}
	got := newCodec().Serialize(items, InboxLayout, IndexTitles(items))

	want := "# 📖 LaterRead Inbox\n\n" +
		"## 🤖 AI/Tech\n\n" +
		"- [ ] 🤖 [A](http://a) | a | 2025-01-02\n" +
		">  s\n\n" +
		"## 📌 General\n\n" +
		"- [ ] 📌 [G](http://g) | g | 2025-01-01\n\n" +
		"- [ ] 📌 [U](http://u) | u | 2025-01-03\n\n"
	assert.Equal(t, want, got)
}

func TestSerializeLaterWriteSortsByDate(t *testing.T) {
	items := []domain.Item{
		{URL: "http://old", Title: "Old", Domain: "o", Category: "laterwrite", CreatedAt: "2024-12-01"},
		{URL: "http://new", Title: "New", Domain: "n", Category: "laterwrite", CreatedAt: "2025-02-01"},
	}
	got := newCodec().Serialize(items, LaterWriteLayout, nil)

	assert.True(t, strings.HasPrefix(got, "# ✍️ LaterWrite\n\nContent ideas and related articles\n\n---\n\n## ✍️ LaterWrite\n\n"))
	assert.Less(t, strings.Index(got, "[New]"), strings.Index(got, "[Old]"))
}

func TestSerializeDropsUnresolvedRelations(t *testing.T) {
	it := domain.Item{
		URL: "http://a", Title: "A", Domain: "a", Category: "general", CreatedAt: "2025-01-01",
		Related: []string{"http://gone", "http://b"},
	}
	titles := Titles{"http://b": "B"}

	got := newCodec().RenderItem(it, titles)
	assert.Contains(t, got, "> 🔗 Related: [B](http://b)\n")
	assert.NotContains(t, got, "gone")

	got = newCodec().RenderItem(it, nil)
	assert.NotContains(t, got, RelationsMarker)
}

func TestSerializeFillsUnknownFields(t *testing.T) {
	got := newCodec().RenderItem(domain.Item{URL: "http://a", Title: "multi\nline"}, nil)
	assert.Equal(t, "- [ ] 📌 [multi line](http://a) | unknown | unknown\n", got)
}

func TestRoundTrip(t *testing.T) {
	items := []domain.Item{
		{URL: "https://a.com/1", Title: "One", Domain: "a.com", Category: "ai-tech", CreatedAt: "2025-01-10",
			Summary: "first", Related: []string{"https://b.com/2"}},
		{URL: "https://b.com/2", Title: "Two", Domain: "b.com", Category: "design", CreatedAt: "2025-01-09",
			Note: "n", Read: true, Related: []string{"https://a.com/1"}},
		{URL: "https://c.com/3", Title: "Three", Domain: "c.com", Category: "general", CreatedAt: "2025-01-08"},
		{URL: "https://d.com/4", Title: "Four", Domain: "d.com", Category: "ai-tech", CreatedAt: "2025-01-07",
			Summary: "s", Note: "n"},
	}
	c := newCodec()
	for _, layout := range []Layout{InboxLayout, LaterWriteLayout} {
		doc := c.Serialize(items, layout, IndexTitles(items))
		got, report := c.Parse(doc)
		assert.True(t, report.Clean(), doc)
		assert.ElementsMatch(t, items, got)
	}
}

func TestRoundTripTitlesWithLinkSyntax(t *testing.T) {
	items := []domain.Item{
		{URL: "https://a.com/1", Title: "One", Domain: "a.com", Category: "general", CreatedAt: "2025-01-10",
			Related: []string{"https://b.com/2", "https://c.com/3"}},
		{URL: "https://b.com/2", Title: "Go 1.25 | The Go Blog", Domain: "b.com", Category: "general", CreatedAt: "2025-01-09",
			Related: []string{"https://a.com/1"}},
		{URL: "https://c.com/3", Title: "Release [beta] notes", Domain: "c.com", Category: "general", CreatedAt: "2025-01-08",
			Related: []string{"https://a.com/1"}},
	}
	c := newCodec()
	doc := c.Serialize(items, InboxLayout, IndexTitles(items))
	assert.Contains(t, doc, "[Go 1.25 / The Go Blog](https://b.com/2) | [Release (beta) notes](https://c.com/3)")

	got, report := c.Parse(doc)
	assert.True(t, report.Clean(), doc)
	assert.ElementsMatch(t, items, got)
}

func TestParseLinksWithSeparatorInTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "[A](https://a.com) | [B](https://b.com)", []string{"https://a.com", "https://b.com"}},
		{"pipe in title", "[Post | Site](https://b.com/2)", []string{"https://b.com/2"}},
		{"bracket in title", "[a](b) trick](https://x.com) | [C](https://c.com)", []string{"https://x.com", "https://c.com"}},
		{"parens in url", "[W](https://en.wikipedia.org/wiki/Go_(language))", []string{"https://en.wikipedia.org/wiki/Go_(language)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRelations(relatedLabel+" "+tt.in))
		})
	}
}

func TestLegacyRelationsNormalizedOnWrite(t *testing.T) {
	doc := "- [ ] 📌 [A](http://a) | a | 2025-01-01\n" +
		"> 🔗 http://b\n\n" +
		"- [ ] 📌 [B](http://b) | b | 2025-01-01\n"

	c := newCodec()
	items, _ := c.Parse(doc)
	out := c.Serialize(items, InboxLayout, IndexTitles(items))
	assert.Contains(t, out, "> 🔗 Related: [B](http://b)\n")
}

func TestToggleScenario(t *testing.T) {
	c := newCodec()
	doc := "# 📖 LaterRead Inbox\n\n## 🤖 AI/Tech\n\n- [ ] 🤖 [X](http://a) | a.com | 2025-01-10\n"

	items, _ := c.Parse(doc)
	require.Len(t, items, 1)
	items[0].Read = !items[0].Read

	out := c.Serialize(items, InboxLayout, IndexTitles(items))
	assert.Contains(t, out, "- [x] 🤖 [X](http://a) | a.com | 2025-01-10\n")

	again, _ := c.Parse(out)
	require.Len(t, again, 1)
	assert.Equal(t, "ai-tech", again[0].Category)
	assert.True(t, again[0].Read)
}

func TestSkeleton(t *testing.T) {
	items, report := newCodec().Parse(InboxLayout.Skeleton())
	assert.Empty(t, items)
	assert.True(t, report.Clean())
	assert.True(t, strings.HasPrefix(LaterWriteLayout.Skeleton(), "# ✍️ LaterWrite\n"))
}
