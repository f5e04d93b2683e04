package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const reportSheet = "Invoices"

var reportHeaders = []string{
	"Source",
	"Status",
	"Invoice Number",
	"Date",
	"Company",
	"Tax Number",
	"Total",
	"VAT",
	"Items",
	"Valid",
	"Method",
	"Error",
}

// XLSXReport renders batch outcomes as a one-sheet workbook.
type XLSXReport struct {
	logger *slog.Logger
}

func NewXLSXReport(logger *slog.Logger) *XLSXReport {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXReport{logger: logger}
}

// Build returns the workbook bytes with one row per entry, in entry order.
func (r *XLSXReport) Build(entries []entity.BatchEntry) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(reportSheet, cell, h)
	}

	failed := 0
	for i, e := range entries {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(reportSheet, cell, v)
		}

		write(1, e.Source)
		if !e.OK() {
			failed++
			write(2, string(constants.ResultStatusFailed))
			msg := "no result"
			if e.Err != nil {
				msg = e.Err.Error()
			}
			write(12, truncate(msg, 240))
			continue
		}

		res := e.Result
		data := res.ExtractedData
		write(2, string(constants.ResultStatusOK))
		write(3, data.Text(constants.FieldInvoiceNumber))
		write(4, data.Text(constants.FieldDate))
		write(5, data.Text(constants.FieldCompanyName))
		write(6, data.Text(constants.FieldTaxNumber))
		write(7, amount(data, constants.FieldTotalAmount))
		write(8, amount(data, constants.FieldVAT))
		write(9, len(data.LineItems()))
		write(10, res.Validation.IsValid)
		write(11, string(res.ExtractionMethod))
		if res.Validation.MissingField != "" {
			write(12, "missing "+res.Validation.MissingField)
		}
	}

	_ = f.SetColWidth(reportSheet, "A", "A", 40) // source
	_ = f.SetColWidth(reportSheet, "B", "B", 10) // status
	_ = f.SetColWidth(reportSheet, "C", "D", 16)
	_ = f.SetColWidth(reportSheet, "E", "E", 32) // company
	_ = f.SetColWidth(reportSheet, "F", "H", 14)
	_ = f.SetColWidth(reportSheet, "I", "K", 10)
	_ = f.SetColWidth(reportSheet, "L", "L", 60) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	r.logger.Info("export.xlsx.ok",
		"rows", len(entries),
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// amount writes numbers as numeric cells and falls back to the raw text.
func amount(rec *entity.Record, key string) any {
	v, ok := rec.Get(key)
	if !ok || v.IsNull() {
		return ""
	}
	if f, ok := v.AsFloat(); ok {
		return f
	}
	return v.Text()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
