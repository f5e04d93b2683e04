package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const timestampLayout = "20060102_150405"

// JSONWriter saves one result envelope per document as <Dir>/<stem>_<timestamp>.json.
type JSONWriter struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

func NewJSONWriter(dir string, logger *slog.Logger) *JSONWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONWriter{dir: dir, now: time.Now, logger: logger}
}

func (w *JSONWriter) Name() string { return "json" }

// Write stores res and returns the written path.
func (w *JSONWriter) Write(res *entity.ExtractionResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil result")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	stem := entity.Document{Path: res.SourceFile}.Stem()
	base := fmt.Sprintf("%s_%s", stem, w.now().Format(timestampLayout))
	path, err := createUnique(w.dir, base, buf.Bytes())
	if err != nil {
		return "", err
	}
	w.logger.Info("export.json.ok", "path", path, "source", res.SourceFile)
	return path, nil
}

// createUnique writes data to <dir>/<base>.json, or <base>_2.json, <base>_3.json and so on
// when an earlier document with the same stem was saved in the same second.
func createUnique(dir, base string, data []byte) (string, error) {
	for n := 1; ; n++ {
		name := base + ".json"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.json", base, n)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", path, err)
		}
		return path, nil
	}
}

// Put saves successful entries and ignores failures.
func (w *JSONWriter) Put(_ context.Context, entry entity.BatchEntry) error {
	if !entry.OK() {
		return nil
	}
	_, err := w.Write(entry.Result)
	return err
}
