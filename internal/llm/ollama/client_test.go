package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://ollama:11434/"}, nil)
	assert.Equal(t, "http://ollama:11434", c.cfg.BaseURL)
	assert.Equal(t, "qwen2.5:3b", c.Model())
	assert.Equal(t, 120*time.Second, c.http.Timeout)
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2.5:3b", req.Model)
		assert.Equal(t, "extract this", req.Prompt)
		assert.False(t, req.Stream)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Model: req.Model, Response: `{"invoice_number":"A1"}`, Done: true})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Model: "qwen2.5:3b"}, nil)
	out, err := c.Generate(context.Background(), "", "extract this")
	require.NoError(t, err)
	assert.Equal(t, `{"invoice_number":"A1"}`, out)
}

func TestGenerate_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama9\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := c.Generate(context.Background(), "llama9", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelNotFound)
	assert.Equal(t, common.CodeModelNotFound, common.ErrorCode(err))
	assert.Contains(t, common.Remediation(err, "llama9"), "ollama pull llama9")
}

func TestGenerate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"out of memory"}`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := c.Generate(context.Background(), "", "p")
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestGenerate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(Config{BaseURL: url, Timeout: 2 * time.Second}, nil)
	_, err := c.Generate(context.Background(), "", "p")
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.Contains(t, common.Remediation(err, ""), "ollama serve")
}

func TestGenerate_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := c.Generate(context.Background(), "", "p")
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
}

func TestCheckModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"qwen2.5:3b","model":"qwen2.5:3b"},{"name":"llama3:latest","model":"llama3:latest"}]}`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, nil)
	assert.NoError(t, c.CheckModel(context.Background(), "qwen2.5:3b"))
	assert.NoError(t, c.CheckModel(context.Background(), "llama3"))
	assert.ErrorIs(t, c.CheckModel(context.Background(), "mistral"), common.ErrModelNotFound)
}
