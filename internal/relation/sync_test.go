package relation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/laterread/internal/category"
	"github.com/pbaille/laterread/internal/codec"
	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/store"
)

type fixture struct {
	inbox *store.Collection
	later *store.Collection
	sync  *Synchronizer
}

func setup(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	c := codec.New(category.Default())
	f := fixture{
		inbox: store.NewCollection(domain.Inbox, filepath.Join(dir, "inbox.md"), c, zerolog.Nop()),
		later: store.NewCollection(domain.LaterWrite, filepath.Join(dir, "laterwrite.md"), c, zerolog.Nop()),
	}
	store.Pair(f.inbox, f.later)
	f.sync = New(zerolog.Nop(), f.inbox, f.later)

	ctx := context.Background()
	for _, u := range []string{"http://a", "http://b"} {
		_, err := f.inbox.Append(ctx, domain.Item{URL: u, Title: u, Domain: "x", Category: "general", CreatedAt: "2025-01-10"})
		require.NoError(t, err)
	}
	_, err := f.later.Append(ctx, domain.Item{URL: "http://c", Title: "C", Domain: "x", Category: "laterwrite", CreatedAt: "2025-01-10"})
	require.NoError(t, err)
	return f
}

func related(t *testing.T, c *store.Collection, url string) []string {
	t.Helper()
	it, ok, err := c.Find(context.Background(), url)
	require.NoError(t, err)
	require.True(t, ok, url)
	return it.Related
}

func TestLinkAcrossCollections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.sync.Link(ctx, "http://a", []string{"http://b", "http://c", "http://missing"}))
	assert.Equal(t, []string{"http://a"}, related(t, f.inbox, "http://b"))
	assert.Equal(t, []string{"http://a"}, related(t, f.later, "http://c"))

	// idempotent
	require.NoError(t, f.sync.Link(ctx, "http://a", []string{"http://b"}))
	assert.Equal(t, []string{"http://a"}, related(t, f.inbox, "http://b"))
}

func TestSetRelationsKeepsBacklinksSymmetric(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.sync.SetRelations(ctx, "http://a", []string{"http://b", "http://c"}))
	assert.Equal(t, []string{"http://b", "http://c"}, related(t, f.inbox, "http://a"))
	assert.Equal(t, []string{"http://a"}, related(t, f.inbox, "http://b"))
	assert.Equal(t, []string{"http://a"}, related(t, f.later, "http://c"))

	require.NoError(t, f.sync.SetRelations(ctx, "http://a", []string{"http://c"}))
	assert.Equal(t, []string{"http://c"}, related(t, f.inbox, "http://a"))
	assert.Empty(t, related(t, f.inbox, "http://b"))
	assert.Equal(t, []string{"http://a"}, related(t, f.later, "http://c"))
}

func TestSetRelationsFromSecondaryCollection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.sync.SetRelations(ctx, "http://c", []string{"http://a"}))
	assert.Equal(t, []string{"http://a"}, related(t, f.later, "http://c"))
	assert.Equal(t, []string{"http://c"}, related(t, f.inbox, "http://a"))
}

func TestSetRelationsUnknownURL(t *testing.T) {
	f := setup(t)
	err := f.sync.SetRelations(context.Background(), "http://nope", []string{"http://a"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
