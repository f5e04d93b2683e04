package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var _ llm.Generator = (*Client)(nil)
var _ llm.ModelChecker = (*Client)(nil)

// Generate implements llm.Generator against POST /api/generate with streaming disabled.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.cfg.Model
	}
	start := time.Now()
	c.logger.Debug("ollama.generate.start", "model", model, "prompt_len", len(prompt))

	body := generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": c.cfg.Temperature},
	}
	raw, status, err := llm.DoJSON(ctx, c.http, http.MethodPost, c.cfg.BaseURL+"/api/generate", body, c.logger)
	if err != nil {
		return "", c.classify(model, raw, status, err)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error("ollama.generate.decode_error", "model", model, "error", err, "raw_bytes", len(raw))
		return "", common.ModelUnavailableError("invalid response from model service", err)
	}

	c.logger.Info("ollama.generate.ok",
		"model", model,
		"response_len", len(out.Response),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Response, nil
}

// CheckModel confirms the service answers and lists model among its installed models.
func (c *Client) CheckModel(ctx context.Context, model string) error {
	if model == "" {
		model = c.cfg.Model
	}
	raw, status, err := llm.DoJSON(ctx, c.http, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil, c.logger)
	if err != nil {
		return c.classify(model, raw, status, err)
	}

	var tags tagsResponse
	if err := json.Unmarshal(raw, &tags); err != nil {
		return common.ModelUnavailableError("invalid response from model service", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, model) || sameModel(m.Model, model) {
			c.logger.Debug("ollama.check.ok", "model", model)
			return nil
		}
	}
	c.logger.Warn("ollama.check.model_missing", "model", model, "installed", len(tags.Models))
	return common.ModelNotFoundError(model)
}

// classify maps transport and status failures onto the model error sentinels.
func (c *Client) classify(model string, raw []byte, status int, err error) error {
	if status == 0 {
		return common.ModelUnavailableError(fmt.Sprintf("cannot connect to ollama at %s", c.cfg.BaseURL), err)
	}
	msg := strings.TrimSpace(string(raw))
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error != "" {
		msg = er.Error
	}
	if status == http.StatusNotFound || strings.Contains(strings.ToLower(msg), "not found") {
		return common.ModelNotFoundError(model)
	}
	return common.ModelUnavailableError(fmt.Sprintf("ollama returned status %d: %s", status, msg), err)
}

// sameModel treats "name" and "name:latest" as the same model.
func sameModel(installed, wanted string) bool {
	if installed == "" {
		return false
	}
	if installed == wanted {
		return true
	}
	if !strings.Contains(wanted, ":") {
		return installed == wanted+":latest"
	}
	return false
}
