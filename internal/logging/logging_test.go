package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeWritesToWriterAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "laterread.log")

	data, err := New().FromWriter(&buf).FromPath(path).WithLevel("debug").Make()
	require.NoError(t, err)
	data.Logger.Debug().Str("component", "test").Msg("hello")
	require.NoError(t, data.Close())

	assert.NotEmpty(t, data.SessionID)
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"session":"`+data.SessionID+`"`)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"component":"test"`)
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	data, err := New().FromWriter(&buf).WithLevel("warn").Make()
	require.NoError(t, err)

	data.Logger.Info().Msg("quiet")
	data.Logger.Warn().Msg("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
	assert.NoError(t, data.Close())
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	data, err := New().FromWriter(&buf).WithLevel("chatty").Make()
	require.NoError(t, err)

	data.Logger.Debug().Msg("hidden")
	data.Logger.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNoOutputsDiscards(t *testing.T) {
	data, err := New().Make()
	require.NoError(t, err)
	data.Logger.Error().Msg("nowhere")
	assert.Nil(t, data.LogFile)
}
