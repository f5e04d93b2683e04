package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type ExtractorConfig struct {
	Model  string
	Schema entity.FieldSchema // empty -> entity.DefaultFieldSchema()
}

// RecordExtractor turns invoice text into a record with one model call.
type RecordExtractor struct {
	gen    Generator
	cfg    ExtractorConfig
	logger *slog.Logger
}

func NewRecordExtractor(gen Generator, cfg ExtractorConfig, logger *slog.Logger) *RecordExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Schema) == 0 {
		cfg.Schema = entity.DefaultFieldSchema()
	}
	return &RecordExtractor{gen: gen, cfg: cfg, logger: logger}
}

func (x *RecordExtractor) Schema() entity.FieldSchema { return x.cfg.Schema }

// ExtractRecord returns model-service errors unchanged. Unparseable output is not an
// error; it comes back as a degraded record.
func (x *RecordExtractor) ExtractRecord(ctx context.Context, text string) (*entity.Record, error) {
	start := time.Now()
	x.logger.Info("llm.extract.start",
		"model", x.cfg.Model,
		"text_len", len([]rune(text)),
		"fields", len(x.cfg.Schema),
	)

	prompt := BuildExtractionPrompt(text, x.cfg.Schema)
	resp, err := x.gen.Generate(ctx, x.cfg.Model, prompt)
	if err != nil {
		x.logger.Error("llm.extract.model_error",
			"model", x.cfg.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	rec := ParseModelResponse(resp)
	if rec.IsDegraded() {
		x.logger.Warn("llm.extract.degraded",
			"model", x.cfg.Model,
			"response_len", len(resp),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return rec, nil
	}

	x.logger.Info("llm.extract.ok",
		"model", x.cfg.Model,
		"keys", rec.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}
