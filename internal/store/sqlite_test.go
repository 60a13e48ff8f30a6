package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "laterread.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSecrets(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	_, ok, err := db.GetSecret(ctx, CredentialName)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SetSecret(ctx, CredentialName, "one"))
	require.NoError(t, db.SetSecret(ctx, CredentialName, "two"))
	v, ok, err := db.GetSecret(ctx, CredentialName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)

	require.NoError(t, db.DeleteSecret(ctx, CredentialName))
	require.NoError(t, db.DeleteSecret(ctx, CredentialName))
	_, ok, err = db.GetSecret(ctx, CredentialName)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotices(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	first, err := db.AddNotice(ctx, "saved", "Saved", "A")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	time.Sleep(5 * time.Millisecond)
	_, err = db.AddNotice(ctx, "invalid-response", "Classification failed", "B")
	require.NoError(t, err)

	notices, err := db.ListNotices(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, "invalid-response", notices[0].Kind)
	assert.Equal(t, "A", notices[1].Body)

	notices, err = db.ListNotices(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, notices, 1)
}

func TestRuns(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordRun(ctx, Run{URL: "http://a", Status: "ok", Category: "ai-tech", Summary: "s"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, db.RecordRun(ctx, Run{ID: "job-1", URL: "http://b", Status: "failed", ErrorKind: "rate-limited"}))

	all, err := db.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "job-1", all[0].ID)

	onlyA, err := db.ListRuns(ctx, "http://a", 10)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "ai-tech", onlyA[0].Category)
	assert.NotEmpty(t, onlyA[0].ID)
}
