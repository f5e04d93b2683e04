package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func ollamaStub(t *testing.T, tags string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tags))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OLLAMA_BASE_URL", baseURL)
	t.Setenv("OLLAMA_MODEL", "qwen2.5:3b")
	t.Setenv("OUTPUT_DIR", t.TempDir())
	t.Setenv("LEDGER_DSN", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage: invoice-extractor")
}

func TestRun_ModelMissingPrintsPullHint(t *testing.T) {
	srv := ollamaStub(t, `{"models":[{"name":"llama3:latest","model":"llama3:latest"}]}`)
	setEnv(t, srv.URL)

	code, _, stderr := runCLI(t, t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "ollama pull qwen2.5:3b")
}

func TestRun_OllamaDownPrintsServeHint(t *testing.T) {
	srv := ollamaStub(t, `{}`)
	url := srv.URL
	srv.Close()
	setEnv(t, url)

	code, _, stderr := runCLI(t, t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "ollama serve")
}

func TestRun_EmptyDirectory(t *testing.T) {
	srv := ollamaStub(t, `{"models":[{"name":"qwen2.5:3b","model":"qwen2.5:3b"}]}`)
	setEnv(t, srv.URL)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	code, stdout, _ := runCLI(t, dir)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "No supported files found")
}

func TestRun_MissingInput(t *testing.T) {
	srv := ollamaStub(t, `{"models":[{"name":"qwen2.5:3b","model":"qwen2.5:3b"}]}`)
	setEnv(t, srv.URL)

	code, _, stderr := runCLI(t, filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "NOT_FOUND")
}

func TestRun_InvalidConfig(t *testing.T) {
	setEnv(t, "not-a-url")
	code, _, stderr := runCLI(t, t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "CONFIG_ERROR")
}

func TestFieldSchema(t *testing.T) {
	assert.Equal(t, entity.DefaultFieldSchema(), fieldSchema(nil))

	got := fieldSchema([]common.FieldConfig{{Key: "iban", Description: "Bank account"}})
	require.Len(t, got, 1)
	assert.Equal(t, "iban", got[0].Key)
}
