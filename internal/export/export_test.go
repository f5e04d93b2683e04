package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func sampleResult(t *testing.T) *entity.ExtractionResult {
	t.Helper()
	rec, err := entity.ParseRecord([]byte(`{"invoice_number":"INV-1","date":"2024-01-15","company_name":"Şirket <A&B>","tax_number":"123","total_amount":1500.5,"vat":"270","items":[{"name":"x","quantity":1,"unit_price":2}]}`))
	require.NoError(t, err)
	return &entity.ExtractionResult{
		SourceFile:       "/in/fatura.pdf",
		ProcessedAt:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		RawText:          "FATURA",
		ExtractionMethod: constants.MethodDirect,
		ExtractedData:    rec,
		Validation:       entity.Validation{IsValid: true, TextLength: 6},
	}
}

func TestJSONWriter_WritesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewJSONWriter(dir, nil)
	w.now = func() time.Time { return time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC) }

	path, err := w.Write(sampleResult(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fatura_20240305_070809.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Şirket <A&B>")
	assert.Contains(t, string(b), "\n  \"source_file\": \"/in/fatura.pdf\"")

	var back map[string]any
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "direct", back["extraction_method"])
}

func TestJSONWriter_SameStemSameSecondDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, nil)
	w.now = func() time.Time { return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC) }

	pdf := sampleResult(t)
	pdf.SourceFile = "/in/invoice.pdf"
	png := sampleResult(t)
	png.SourceFile = "/in/invoice.png"

	first, err := w.Write(pdf)
	require.NoError(t, err)
	second, err := w.Write(png)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "invoice_20240115_103000.json"), first)
	assert.Equal(t, filepath.Join(dir, "invoice_20240115_103000_2.json"), second)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	b, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(b), "/in/invoice.pdf")
}

func TestJSONWriter_PutSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, nil)

	require.NoError(t, w.Put(context.Background(), entity.BatchEntry{Source: "x.pdf", Err: errors.New("boom")}))
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, w.Put(context.Background(), entity.BatchEntry{Source: "/in/fatura.pdf", Result: sampleResult(t)}))
	files, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestXLSXReport_Build(t *testing.T) {
	entries := []entity.BatchEntry{
		{Source: "/in/fatura.pdf", Result: sampleResult(t)},
		{Source: "/in/blank.png", Err: common.InsufficientTextError(3, 50)},
	}

	b, err := NewXLSXReport(nil).Build(entries)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Invoices"}, f.GetSheetList())
	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reportHeaders, rows[0])

	ok := rows[1]
	assert.Equal(t, "/in/fatura.pdf", ok[0])
	assert.Equal(t, "OK", ok[1])
	assert.Equal(t, "INV-1", ok[2])
	assert.Equal(t, "Şirket <A&B>", ok[4])
	assert.Equal(t, "1500.5", ok[6])
	assert.Equal(t, "270", ok[7])
	assert.Equal(t, "1", ok[8])
	assert.Equal(t, "TRUE", ok[9])
	assert.Equal(t, "direct", ok[10])

	failed := rows[2]
	assert.Equal(t, "FAILED", failed[1])
	assert.Contains(t, failed[11], "insufficient")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "şğ…", truncate("şğüşğü", 3))
}
