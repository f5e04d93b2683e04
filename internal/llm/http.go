package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DoJSON sends a request to a full URL and returns the raw response body and status.
// body is JSON-encoded when non-nil. A transport failure returns status 0; a non-2xx
// response returns the body, the status and an error.
func DoJSON(ctx context.Context, client *http.Client, method, url string, body any, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	reqID := uuid.New().String()
	start := time.Now()

	var reader io.Reader
	contentLength := 0
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
			return nil, 0, fmt.Errorf("encode json: %w", err)
		}
		reader = bytes.NewReader(bs)
		contentLength = len(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	logger.Debug("llm.http.request",
		"req_id", reqID,
		"method", method,
		"url", url,
		"content_length", contentLength,
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "error", err)
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}
