package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/synthd/internal/domain"
)

const requestJSON = `{
  "query": "Do I need approval for annual leave?",
  "chunks": [
    {"id": "chunk1", "source_ref": "handbook.pdf", "text": "annual leave policy requires manager approval", "relevance": 0.9},
    {"id": "chunk2", "source_ref": "facilities.md", "text": "Parking is allocated quarterly.", "relevance": 0.4}
  ]
}`

func TestReadRequest(t *testing.T) {
	t.Run("should read a request from stdin", func(t *testing.T) {
		req, err := readRequest(strings.NewReader(requestJSON), "-")

		require.NoError(t, err)
		require.Len(t, req.Chunks, 2)
		require.Equal(t, "chunk1", req.Chunks[0].ID)
	})

	t.Run("should read a request from a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "req.json")
		require.NoError(t, os.WriteFile(path, []byte(requestJSON), 0o600))

		req, err := readRequest(nil, path)

		require.NoError(t, err)
		require.Equal(t, "Do I need approval for annual leave?", req.Query)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		_, err := readRequest(strings.NewReader("{"), "-")

		require.ErrorContains(t, err, "failed to parse request")
	})
}

func TestSynthesizeCommand(t *testing.T) {
	os.Clearenv()
	t.Setenv("ECHO_CHUNK_DELAY", "-1ms")
	t.Setenv("LOG_LEVEL", "error")

	cmd := synthesizeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(requestJSON))
	cmd.SetArgs([]string{"--request", "-", "--stream"})
	cmd.SetContext(context.Background())

	require.NoError(t, cmd.Execute())

	var result struct {
		Answer     string            `json:"answer"`
		Provider   string            `json:"provider"`
		Citations  []domain.Citation `json:"citations"`
		Confidence float64           `json:"confidence"`
		Error      string            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))

	require.Equal(t, "echo", result.Provider)
	require.Equal(t, "annual leave policy requires manager approval", result.Answer)
	require.Len(t, result.Citations, 1)
	require.Equal(t, "chunk1", result.Citations[0].ChunkID)
	require.InDelta(t, 0.8, result.Confidence, 1e-9)
	require.Empty(t, result.Error)
}

func TestProvidersCommand(t *testing.T) {
	os.Clearenv()
	t.Setenv("LOG_LEVEL", "error")

	cmd := providersCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	cmd.SetContext(context.Background())

	require.NoError(t, cmd.Execute())

	output := out.String()
	require.Contains(t, output, "PRIORITY")
	require.Contains(t, output, "echo")
	require.Contains(t, output, "closed")
	require.Contains(t, output, "not configured")
}
