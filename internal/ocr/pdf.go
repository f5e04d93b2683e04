package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type popplerTextLayer struct {
	runner Runner
	bin    string
}

// Pages runs pdftotext and splits its output on form feeds.
func (p popplerTextLayer) Pages(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, commandError("pdftotext", err, errb)
	}
	pages := strings.Split(string(out), "\f")
	// pdftotext terminates every page with \f, leaving an empty tail
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}

type pdftoppmRasterizer struct {
	runner   Runner
	bin      string
	dpi      int
	maxPages int
	pages    PageCounter
	logger   *slog.Logger
}

// capPages reports whether pdftoppm needs a page range. A document already within the cap
// renders whole; when the page count is unknown the range is applied anyway.
func (r *pdftoppmRasterizer) capPages(path string) bool {
	if r.maxPages <= 0 {
		return false
	}
	total, err := r.pages.PageCount(path)
	if err != nil {
		r.logger.Debug("ocr.raster.page_count_failed", "path", path, "error", err)
		return true
	}
	if total <= r.maxPages {
		return false
	}
	r.logger.Info("ocr.raster.page_cap", "path", path, "pages", total, "max_pages", r.maxPages)
	return true
}

func (r *pdftoppmRasterizer) Rasterize(ctx context.Context, path, outDir string) ([]string, error) {
	args := []string{"-r", strconv.Itoa(r.dpi), "-png"}
	if r.capPages(path) {
		args = append(args, "-f", "1", "-l", strconv.Itoa(r.maxPages))
	}
	prefix := filepath.Join(outDir, "page")
	args = append(args, path, prefix)

	// pdftoppm -r 300 -png [-f 1 -l N] <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.bin, args...)
	if err != nil {
		return nil, commandError("pdftoppm", err, errb)
	}

	// pdftoppm zero-pads page numbers to a common width, so lexical order is page order
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("list rendered pages: %w", err)
	}
	sort.Strings(matches)
	if r.maxPages > 0 && len(matches) > r.maxPages {
		matches = matches[:r.maxPages]
	}
	return matches, nil
}

type pdfcpuPageCounter struct{}

func (pdfcpuPageCounter) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu page count: %w", err)
	}
	return n, nil
}
