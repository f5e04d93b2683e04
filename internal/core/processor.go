package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// TextExtractor acquires the text of a document.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.Document) (entity.ExtractedText, error)
}

// RecordExtractor turns document text into an invoice record.
type RecordExtractor interface {
	ExtractRecord(ctx context.Context, text string) (*entity.Record, error)
}

// RecordValidator judges an extracted record.
type RecordValidator interface {
	Check(rec *entity.Record) llm.Verdict
}

// ResultSink receives every outcome after it is produced. Sink failures are logged, never returned.
type ResultSink interface {
	Put(ctx context.Context, entry entity.BatchEntry) error
}

type Config struct {
	MinTextLength int              // default constants.MinViableTextLength
	Now           func() time.Time // default time.Now
}

// Processor coordinates text extraction, then model extraction, then validation.
type Processor struct {
	logger    *slog.Logger
	text      TextExtractor
	records   RecordExtractor
	validator RecordValidator
	sinks     []ResultSink
	cfg       Config
}

func NewProcessor(
	logger *slog.Logger,
	text TextExtractor,
	records RecordExtractor,
	validator RecordValidator,
	cfg Config,
	sinks ...ResultSink,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = constants.MinViableTextLength
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Processor{
		logger:    logger,
		text:      text,
		records:   records,
		validator: validator,
		sinks:     sinks,
		cfg:       cfg,
	}
}

// Process runs the full pipeline for one file. Errors from each stage are returned as-is.
func (p *Processor) Process(ctx context.Context, path string) (*entity.ExtractionResult, error) {
	ctx = common.WithSource(ctx, path)
	logger := common.LoggerWithContext(ctx, p.logger)

	start := time.Now()
	res, err := p.process(ctx, logger, path)
	if err != nil {
		logger.Error("processor.document.failed",
			"code", common.ErrorCode(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	} else {
		logger.Info("processor.document.ok",
			"method", res.ExtractionMethod,
			"text_len", res.Validation.TextLength,
			"is_valid", res.Validation.IsValid,
			"warnings", len(res.Validation.Warnings),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	p.emit(ctx, logger, entity.BatchEntry{Source: path, Result: res, Err: err})
	return res, err
}

func (p *Processor) process(ctx context.Context, logger *slog.Logger, path string) (*entity.ExtractionResult, error) {
	doc, err := entity.NewDocument(path)
	if err != nil {
		return nil, err
	}

	text, err := p.text.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	logger.Debug("processor.ocr.done", "method", text.Method, "pages", text.Pages, "text_len", text.Length)

	if text.Length < p.cfg.MinTextLength {
		return nil, common.InsufficientTextError(text.Length, p.cfg.MinTextLength)
	}

	rec, err := p.records.ExtractRecord(ctx, text.Text)
	if err != nil {
		return nil, err
	}

	verdict := p.validator.Check(rec)
	return &entity.ExtractionResult{
		SourceFile:       path,
		ProcessedAt:      p.cfg.Now(),
		RawText:          text.Text,
		ExtractionMethod: text.Method,
		PageCount:        text.Pages,
		ExtractedData:    rec,
		Validation: entity.Validation{
			IsValid:      verdict.IsValid,
			TextLength:   text.Length,
			MissingField: verdict.MissingField,
			Warnings:     verdict.Warnings,
		},
	}, nil
}

// ProcessBatch processes paths in order. Every failure becomes an entry; the result has
// exactly one entry per input, in input order.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string) []entity.BatchEntry {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = common.WithRunID(ctx, runID)
	}
	logger := common.LoggerWithContext(ctx, p.logger)
	logger.Info("processor.batch.start", "files", len(paths))

	start := time.Now()
	entries := make([]entity.BatchEntry, 0, len(paths))
	succeeded := 0
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			logger.Warn("processor.batch.item_skipped", "path", path, "error", err)
			entries = append(entries, entity.BatchEntry{Source: path, Err: err})
			continue
		}
		logger.Info("processor.batch.item", "index", i+1, "of", len(paths), "path", path)

		res, err := p.Process(ctx, path)
		if err != nil {
			logger.Warn("processor.batch.item_failed", "path", path, "error", err)
			entries = append(entries, entity.BatchEntry{Source: path, Err: err})
			continue
		}
		succeeded++
		entries = append(entries, entity.BatchEntry{Source: path, Result: res})
	}

	logger.Info("processor.batch.done",
		"files", len(paths),
		"succeeded", succeeded,
		"failed", len(paths)-succeeded,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entries
}

func (p *Processor) emit(ctx context.Context, logger *slog.Logger, entry entity.BatchEntry) {
	for _, sink := range p.sinks {
		if err := sink.Put(ctx, entry); err != nil {
			logger.Warn("processor.sink.failed", "sink", sinkName(sink), "error", err)
		}
	}
}

func sinkName(s ResultSink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}
