package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/laterread/internal/category"
	"github.com/pbaille/laterread/internal/codec"
	"github.com/pbaille/laterread/internal/domain"
)

func newPair(t *testing.T) (*Collection, *Collection) {
	t.Helper()
	dir := t.TempDir()
	c := codec.New(category.Default())
	inbox := NewCollection(domain.Inbox, filepath.Join(dir, "inbox.md"), c, zerolog.Nop())
	later := NewCollection(domain.LaterWrite, filepath.Join(dir, "laterwrite.md"), c, zerolog.Nop())
	Pair(inbox, later)
	return inbox, later
}

func item(url, title string) domain.Item {
	return domain.Item{URL: url, Title: title, Domain: domain.DomainOf(url), Category: "general", CreatedAt: "2025-01-10"}
}

func TestLoadMissingCreatesSkeleton(t *testing.T) {
	inbox, _ := newPair(t)
	ctx := context.Background()

	items, err := inbox.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	b, err := os.ReadFile(inbox.Path())
	require.NoError(t, err)
	assert.Equal(t, codec.InboxLayout.Skeleton(), string(b))
}

func TestInboxAppendKeepsDuplicates(t *testing.T) {
	inbox, _ := newPair(t)
	ctx := context.Background()

	for _, title := range []string{"first", "second"} {
		added, err := inbox.Append(ctx, item("http://a.com", title))
		require.NoError(t, err)
		assert.True(t, added)
	}

	items, err := inbox.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Title, "newest first")
}

func TestLaterWriteAppendDeduplicates(t *testing.T) {
	_, later := newPair(t)
	ctx := context.Background()

	added, err := later.Append(ctx, item("http://a.com", "first"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = later.Append(ctx, item("HTTP://A.com", "second"))
	require.NoError(t, err)
	assert.False(t, added)

	items, err := later.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "first", items[0].Title)
}

func TestToggleReadTwiceRestores(t *testing.T) {
	inbox, _ := newPair(t)
	ctx := context.Background()
	_, err := inbox.Append(ctx, item("http://a.com", "A"))
	require.NoError(t, err)
	before, err := os.ReadFile(inbox.Path())
	require.NoError(t, err)

	found, err := inbox.ToggleRead(ctx, "http://a.com")
	require.NoError(t, err)
	assert.True(t, found)
	it, _, _ := inbox.Find(ctx, "http://a.com")
	assert.True(t, it.Read)

	_, err = inbox.ToggleRead(ctx, "http://a.com")
	require.NoError(t, err)
	after, err := os.ReadFile(inbox.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestMissingURLIsNoOp(t *testing.T) {
	inbox, _ := newPair(t)
	ctx := context.Background()
	_, err := inbox.Append(ctx, item("http://a.com", "A"))
	require.NoError(t, err)
	before, _ := os.ReadFile(inbox.Path())

	found, err := inbox.ToggleRead(ctx, "http://missing")
	require.NoError(t, err)
	assert.False(t, found)

	note := "x"
	found, err = inbox.UpdateFields(ctx, "http://missing", Fields{Note: &note})
	require.NoError(t, err)
	assert.False(t, found)

	found, err = inbox.Delete(ctx, "http://missing")
	require.NoError(t, err)
	assert.False(t, found)

	after, _ := os.ReadFile(inbox.Path())
	assert.Equal(t, string(before), string(after))
}

func TestUpdateFieldsPartial(t *testing.T) {
	inbox, _ := newPair(t)
	ctx := context.Background()
	it := item("http://a.com", "A")
	it.Summary = "keep me"
	_, err := inbox.Append(ctx, it)
	require.NoError(t, err)

	cat, note := "Design", "new note"
	found, err := inbox.UpdateFields(ctx, "http://a.com", Fields{Category: &cat, Note: &note})
	require.NoError(t, err)
	assert.True(t, found)

	got, _, err := inbox.Find(ctx, "http://a.com")
	require.NoError(t, err)
	assert.Equal(t, "design", got.Category)
	assert.Equal(t, "new note", got.Note)
	assert.Equal(t, "keep me", got.Summary)

	bogus := "cooking"
	_, err = inbox.UpdateFields(ctx, "http://a.com", Fields{Category: &bogus})
	require.NoError(t, err)
	got, _, _ = inbox.Find(ctx, "http://a.com")
	assert.Equal(t, "general", got.Category)
}

func TestSetRelationsCleansList(t *testing.T) {
	inbox, _ := newPair(t)
	ctx := context.Background()
	for _, u := range []string{"http://a.com", "http://b.com"} {
		_, err := inbox.Append(ctx, item(u, u))
		require.NoError(t, err)
	}

	found, err := inbox.SetRelations(ctx, "http://a.com", []string{"http://b.com", "http://a.com", "http://b.com"})
	require.NoError(t, err)
	assert.True(t, found)

	got, _, _ := inbox.Find(ctx, "http://a.com")
	assert.Equal(t, []string{"http://b.com"}, got.Related)
}

func TestDeleteLeavesDanglingReferenceUnrendered(t *testing.T) {
	inbox, _ := newPair(t)
	ctx := context.Background()
	for _, u := range []string{"http://a.com", "http://b.com"} {
		_, err := inbox.Append(ctx, item(u, u))
		require.NoError(t, err)
	}
	_, err := inbox.SetRelations(ctx, "http://a.com", []string{"http://b.com"})
	require.NoError(t, err)

	found, err := inbox.Delete(ctx, "http://b.com")
	require.NoError(t, err)
	assert.True(t, found)

	items, err := inbox.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "http://a.com", items[0].URL)

	b, _ := os.ReadFile(inbox.Path())
	assert.NotContains(t, string(b), "http://b.com")
}

func TestRelationsResolveAcrossPair(t *testing.T) {
	inbox, later := newPair(t)
	ctx := context.Background()
	_, err := later.Append(ctx, item("http://w.com", "Draft"))
	require.NoError(t, err)

	it := item("http://a.com", "A")
	it.Related = []string{"http://w.com"}
	_, err = inbox.Append(ctx, it)
	require.NoError(t, err)

	b, err := os.ReadFile(inbox.Path())
	require.NoError(t, err)
	assert.Contains(t, string(b), "> 🔗 Related: [Draft](http://w.com)")
}

func TestSnapshotReportsSkippedLines(t *testing.T) {
	inbox, _ := newPair(t)
	doc := "# 📖 LaterRead Inbox\n\n- [ ] 🦄 [Y](http://y) | y | 2025-01-01\n"
	require.NoError(t, os.WriteFile(inbox.Path(), []byte(doc), 0o644))

	items, report, err := inbox.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, items)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 3, report.Skipped[0].Line)
}

func TestWriteFailureLeavesDocumentIntact(t *testing.T) {
	inbox, _ := newPair(t)
	ctx := context.Background()

	_, err := inbox.Append(ctx, item("http://a.com", "A"))
	require.NoError(t, err)
	before, err := os.ReadFile(inbox.Path())
	require.NoError(t, err)

	// A directory where the temp file goes makes every write fail.
	blocker := inbox.Path() + ".tmp"
	require.NoError(t, os.Mkdir(blocker, 0o755))

	tests := []struct {
		name string
		op   func() error
	}{
		{"append", func() error { _, err := inbox.Append(ctx, item("http://b.com", "B")); return err }},
		{"toggle", func() error { _, err := inbox.ToggleRead(ctx, "http://a.com"); return err }},
		{"set relations", func() error { _, err := inbox.SetRelations(ctx, "http://a.com", []string{"http://x.com"}); return err }},
		{"delete", func() error { _, err := inbox.Delete(ctx, "http://a.com"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.op())

			after, err := os.ReadFile(inbox.Path())
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
		})
	}

	items, err := inbox.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Read)

	require.NoError(t, os.Remove(blocker))
	added, err := inbox.Append(ctx, item("http://b.com", "B"))
	require.NoError(t, err)
	assert.True(t, added, "writes work again once the cause is gone")
}
