package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveExchange(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", filepath.Join(t.TempDir(), "cache"))

	ex := Exchange{
		RunID:     "0f8fad5b-d9cb-469f-a165-70867728950e",
		Timestamp: time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC),
		Provider:  "ollama",
		Model:     "llama3.1:8b",
		Prompt:    "Summarize this post",
		Response:  "세 문장 요약입니다.",
	}

	path, err := SaveExchange(ex)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "2024-03-01T09-30-15-0f8fad5b.json"), "got %s", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Exchange
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ex.RunID, got.RunID)
	assert.Equal(t, ex.Model, got.Model)
	assert.Equal(t, ex.Response, got.Response)
}
