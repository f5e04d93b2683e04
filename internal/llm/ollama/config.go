package ollama

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config for the Ollama client.
type Config struct {
	BaseURL     string        // default http://localhost:11434
	Model       string        // e.g., "qwen2.5:3b"
	Temperature float32       // sampling temperature passed through options
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:3b"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Model is the default model used when callers pass none.
func (c *Client) Model() string { return c.cfg.Model }
