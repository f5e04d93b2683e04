package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/ollama"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	client    *ollama.Client
	processor *core.Processor
	closers   []func() error
	stdout    io.Writer
	stderr    io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("invoice-extractor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML config file (defaults to $CONFIG_FILE)")
		xlsx       = fs.Bool("xlsx", false, "write an XLSX summary after a directory batch")
		noSave     = fs.Bool("no-save", false, "do not write per-document JSON results")
		watch      = fs.Bool("watch", false, "keep watching the directory and process new files")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: invoice-extractor [-config f.yaml] [-xlsx] [-no-save] [-watch] <file|dir>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	input := fs.Arg(0)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *xlsx {
		cfg.Output.XLSX = true
	}
	if *noSave {
		cfg.Output.SaveJSON = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := common.NewLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	ctx = common.WithRunID(ctx, uuid.New().String())

	a, err := wire(ctx, cfg, logger, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	if err := a.client.CheckModel(ctx, cfg.Ollama.Model); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if hint := common.Remediation(err, cfg.Ollama.Model); hint != "" {
			fmt.Fprintln(stderr, hint)
		}
		return 1
	}

	info, err := os.Stat(input)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", common.NotFoundError(input))
		return 1
	}
	switch {
	case *watch:
		if !info.IsDir() {
			fmt.Fprintf(stderr, "Error: -watch needs a directory\n")
			return 1
		}
		return a.watchDir(ctx, input)
	case info.IsDir():
		return a.processDir(ctx, input)
	default:
		return a.processFile(ctx, input)
	}
}

func wire(ctx context.Context, cfg *common.Config, logger *slog.Logger, stdout, stderr io.Writer) (*app, error) {
	schema := fieldSchema(cfg.Extraction.Fields)

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:   cfg.OCR.Pdftotext,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,
		TextLayer:   cfg.OCR.TextLayer,
	}, logger)

	client := ollama.NewClient(ollama.Config{
		BaseURL:     cfg.Ollama.BaseURL,
		Model:       cfg.Ollama.Model,
		Temperature: cfg.Ollama.Temperature,
		Timeout:     cfg.Ollama.Timeout,
	}, logger)
	logger.Info("ollama client initialized", "base_url", cfg.Ollama.BaseURL, "model", cfg.Ollama.Model)

	records := llm.NewRecordExtractor(client, llm.ExtractorConfig{Model: cfg.Ollama.Model, Schema: schema}, logger)
	validator, err := llm.NewValidator(cfg.Extraction.RequiredFields, schema, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, client: client, stdout: stdout, stderr: stderr}

	var sinks []core.ResultSink
	if cfg.Output.SaveJSON {
		sinks = append(sinks, export.NewJSONWriter(cfg.Output.Dir, logger))
	}
	if cfg.Ledger.DSN != "" {
		db, err := repository.Open(ctx, repository.Config{DSN: cfg.Ledger.DSN}, logger)
		if err != nil {
			return nil, common.StorageError("open ledger", err)
		}
		a.closers = append(a.closers, db.Close)
		ledger, err := repository.NewResultLedger(ctx, db, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		sinks = append(sinks, ledger)
	}

	a.processor = core.NewProcessor(logger, extractor, records, validator,
		core.Config{MinTextLength: cfg.Extraction.MinTextLength}, sinks...)
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) processFile(ctx context.Context, path string) int {
	res, err := a.processor.Process(ctx, path)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		if hint := common.Remediation(err, a.cfg.Ollama.Model); hint != "" {
			fmt.Fprintln(a.stderr, hint)
		}
		return 1
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.ExtractedData); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	if !res.Validation.IsValid {
		fmt.Fprintf(a.stderr, "Warning: required field missing: %s\n", res.Validation.MissingField)
	}
	return 0
}

func (a *app) processDir(ctx context.Context, dir string) int {
	paths, err := ingest.Discover(dir)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	if len(paths) == 0 {
		fmt.Fprintf(a.stdout, "No supported files found in %s\n", dir)
		return 0
	}
	fmt.Fprintf(a.stdout, "Found %d files to process\n", len(paths))

	entries := a.processor.ProcessBatch(ctx, paths)
	ok := 0
	for _, e := range entries {
		if e.OK() {
			ok++
			continue
		}
		fmt.Fprintf(a.stdout, "  failed: %s: %v\n", filepath.Base(e.Source), e.Err)
	}
	fmt.Fprintf(a.stdout, "Completed: %d/%d successful\n", ok, len(entries))

	if a.cfg.Output.XLSX {
		path, err := a.writeReport(entries)
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(a.stdout, "Summary: %s\n", path)
	}
	return 0
}

func (a *app) writeReport(entries []entity.BatchEntry) (string, error) {
	b, err := export.NewXLSXReport(a.logger).Build(entries)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.cfg.Output.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(a.cfg.Output.Dir, fmt.Sprintf("invoices_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// watchDir processes existing and new files until ctx is cancelled. Identical content is processed once.
func (a *app) watchDir(ctx context.Context, dir string) int {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      a.logger,
	})
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(a.stdout, "Watching %s (Ctrl+C to stop)\n", dir)

	seen := map[string]struct{}{}
	var entries []entity.BatchEntry
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return a.finishWatch(entries)
			}
			sum, err := ingest.Fingerprint(path)
			if err != nil {
				a.logger.Warn("watch.fingerprint_failed", "path", path, "error", err)
				continue
			}
			if _, dup := seen[sum]; dup {
				a.logger.Debug("watch.duplicate", "path", path)
				continue
			}
			seen[sum] = struct{}{}

			res, err := a.processor.Process(ctx, path)
			entries = append(entries, entity.BatchEntry{Source: path, Result: res, Err: err})
			if err != nil {
				if errors.Is(err, common.ErrModelUnavailable) {
					fmt.Fprintln(a.stderr, common.Remediation(err, a.cfg.Ollama.Model))
				}
				fmt.Fprintf(a.stdout, "  failed: %s: %v\n", filepath.Base(path), err)
				continue
			}
			fmt.Fprintf(a.stdout, "  done: %s (valid=%t)\n", filepath.Base(path), res.Validation.IsValid)
		case err, ok := <-errs:
			if ok {
				a.logger.Warn("watch.error", "error", err)
			}
		case <-ctx.Done():
			return a.finishWatch(entries)
		}
	}
}

func (a *app) finishWatch(entries []entity.BatchEntry) int {
	ok := 0
	for _, e := range entries {
		if e.OK() {
			ok++
		}
	}
	fmt.Fprintf(a.stdout, "Completed: %d/%d successful\n", ok, len(entries))
	if a.cfg.Output.XLSX && len(entries) > 0 {
		path, err := a.writeReport(entries)
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(a.stdout, "Summary: %s\n", path)
	}
	return 0
}

func fieldSchema(fields []common.FieldConfig) entity.FieldSchema {
	if len(fields) == 0 {
		return entity.DefaultFieldSchema()
	}
	schema := make(entity.FieldSchema, 0, len(fields))
	for _, f := range fields {
		schema = append(schema, entity.Field{Key: f.Key, Description: f.Description})
	}
	return schema
}
