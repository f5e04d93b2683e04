package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang     string // tesseract language hint, e.g. "tur+eng"; default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	MaxPages int    // 0 = no limit

	TessdataDir string
	PSM         int // page segmentation mode; 0 leaves tesseract's default
	OEM         int // 1 = LSTM; 0 leaves tesseract's default

	TextLayer string // "poppler" (default) | "pdfcpu"
}

// TextLayer reads the embedded text of a PDF, one string per page.
type TextLayer interface {
	Pages(ctx context.Context, pdfPath string) ([]string, error)
}

// Rasterizer renders PDF pages to images in outDir and returns their paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Recognizer runs OCR over a single image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, lang string) (string, error)
}

// PageCounter reports the number of pages in a PDF.
type PageCounter interface {
	PageCount(pdfPath string) (int, error)
}

type Option func(*Extractor)

// WithRunner replaces the command runner used by the default CLI-backed collaborators.
func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }

func WithTextLayer(t TextLayer) Option { return func(e *Extractor) { e.textLayer = t } }

func WithRasterizer(r Rasterizer) Option { return func(e *Extractor) { e.rasterizer = r } }

func WithRecognizer(r Recognizer) Option { return func(e *Extractor) { e.recognizer = r } }

func WithPageCounter(p PageCounter) Option { return func(e *Extractor) { e.pages = p } }

type Extractor struct {
	cfg        Config
	runner     Runner
	textLayer  TextLayer
	rasterizer Rasterizer
	recognizer Recognizer
	pages      PageCounter
	logger     *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	cfg.TextLayer = strings.ToLower(cfg.TextLayer)

	e := &Extractor{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = execRunner{logger: logger}
	}
	if e.pages == nil {
		e.pages = pdfcpuPageCounter{}
	}
	if e.textLayer == nil {
		if cfg.TextLayer == "pdfcpu" {
			e.textLayer = pdfcpuTextLayer{}
		} else {
			e.textLayer = popplerTextLayer{runner: e.runner, bin: cfg.Pdftotext}
		}
	}
	if e.rasterizer == nil {
		e.rasterizer = &pdftoppmRasterizer{
			runner:   e.runner,
			bin:      cfg.Pdftoppm,
			dpi:      cfg.DPI,
			maxPages: cfg.MaxPages,
			pages:    e.pages,
			logger:   logger,
		}
	}
	if e.recognizer == nil {
		e.recognizer = &tesseractRecognizer{
			runner:      e.runner,
			bin:         cfg.Tesseract,
			psm:         cfg.PSM,
			oem:         cfg.OEM,
			tessdataDir: cfg.TessdataDir,
		}
	}
	return e
}

// ExtractPath validates path as a Document and extracts its text.
func (e *Extractor) ExtractPath(ctx context.Context, path string) (entity.ExtractedText, error) {
	doc, err := entity.NewDocument(path)
	if err != nil {
		return entity.ExtractedText{}, err
	}
	return e.Extract(ctx, doc)
}

// Extract picks the acquisition pipeline from the document kind.
func (e *Extractor) Extract(ctx context.Context, doc entity.Document) (entity.ExtractedText, error) {
	start := time.Now()
	e.logger.Debug("ocr.extract.start", "path", doc.Path, "kind", doc.Kind, "lang", e.cfg.Lang)

	var (
		res entity.ExtractedText
		err error
	)
	switch doc.Kind {
	case constants.PDF:
		res, err = e.extractPDF(ctx, doc.Path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, doc.Path)
	default:
		e.logger.Error("ocr.extract.unsupported", "path", doc.Path, "kind", doc.Kind)
		return entity.ExtractedText{}, common.UnsupportedFormatError(string(doc.Kind))
	}
	if err != nil {
		e.logger.Error("ocr.extract.failed", "path", doc.Path, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedText{}, err
	}

	res.Language = e.cfg.Lang
	res.Duration = time.Since(start)
	e.logger.Info("ocr.extract.ok",
		"path", doc.Path,
		"method", res.Method,
		"pages", res.Pages,
		"text_len", res.Length,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// pdfStrategy is one way of getting text out of a PDF. Non-fatal strategies fall
// through to the next one on error or blank output.
type pdfStrategy struct {
	method constants.ExtractionMethod
	fatal  bool
	run    func(ctx context.Context, path string) (text string, pages int, err error)
}

func (e *Extractor) pdfStrategies() []pdfStrategy {
	return []pdfStrategy{
		{method: constants.MethodDirect, run: e.fromTextLayer},
		{method: constants.MethodRasterized, fatal: true, run: e.fromRaster},
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (entity.ExtractedText, error) {
	strategies := e.pdfStrategies()
	for i, s := range strategies {
		text, pages, err := s.run(ctx, path)
		last := i == len(strategies)-1
		if err != nil {
			if s.fatal {
				return entity.ExtractedText{}, common.ExtractionFailureError(
					fmt.Sprintf("%s extraction of %s", s.method, path), err)
			}
			e.logger.Warn("ocr.pdf.strategy_failed", "path", path, "method", s.method, "error", err)
			continue
		}
		if text == "" && !last {
			e.logger.Info("ocr.pdf.strategy_empty", "path", path, "method", s.method)
			continue
		}
		res := entity.NewExtractedText(text, s.method)
		res.Pages = pages
		return res, nil
	}
	return entity.ExtractedText{}, common.ExtractionFailureError("no pdf strategy produced text", nil)
}

func (e *Extractor) fromTextLayer(ctx context.Context, path string) (string, int, error) {
	pages, err := e.textLayer.Pages(ctx, path)
	if err != nil {
		return "", 0, err
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), len(pages), nil
}

func (e *Extractor) fromRaster(ctx context.Context, path string) (string, int, error) {
	tmpDir, err := os.MkdirTemp("", "inv-pp-*")
	if err != nil {
		return "", 0, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("ocr.tmpdir.remove_failed", "dir", dir, "error", err)
		}
	}(tmpDir)

	images, err := e.rasterizer.Rasterize(ctx, path, tmpDir)
	if err != nil {
		return "", 0, err
	}
	if len(images) == 0 {
		return "", 0, fmt.Errorf("no pages rendered")
	}

	texts := make([]string, 0, len(images))
	for i, img := range images {
		txt, err := e.recognizer.Recognize(ctx, img, e.cfg.Lang)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i+1, err)
		}
		texts = append(texts, Normalize(txt))
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), len(images), nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (entity.ExtractedText, error) {
	txt, err := e.recognizer.Recognize(ctx, path, e.cfg.Lang)
	if err != nil {
		return entity.ExtractedText{}, common.ExtractionFailureError("image ocr of "+path, err)
	}
	res := entity.NewExtractedText(Normalize(txt), constants.MethodRasterized)
	res.Pages = 1
	return res, nil
}
