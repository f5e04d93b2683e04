package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestParseRecord_PreservesOrderAndLiterals(t *testing.T) {
	raw := `{"total_amount":1500.00,"invoice_number":"INV-1","vat":null,"items":[{"name":"Çay","quantity":2,"unit_price":"12.50"}],"paid":true}`

	rec, err := ParseRecord([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{"total_amount", "invoice_number", "vat", "items", "paid"}, rec.Keys())

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, raw, string(out))

	again, err := ParseRecord(out)
	require.NoError(t, err)
	assert.Equal(t, rec, again)
}

func TestParseRecord_RejectsNonObjects(t *testing.T) {
	for _, in := range []string{`[1,2]`, `"text"`, `{"a":1} trailing`, `{"a":}`, ``} {
		_, err := ParseRecord([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestRecord_PresentTreatsNullAsMissing(t *testing.T) {
	rec := NewRecord().
		Set("a", String("x")).
		Set("b", Null())

	assert.True(t, rec.Present("a"))
	assert.False(t, rec.Present("b"))
	assert.False(t, rec.Present("c"))
}

func TestRecord_SetKeepsPosition(t *testing.T) {
	rec := NewRecord().Set("a", Float(1)).Set("b", Float(2)).Set("a", Float(3))
	assert.Equal(t, []string{"a", "b"}, rec.Keys())
	v, _ := rec.Get("a")
	f, ok := v.AsFloat()
	require.True(t, ok)
	assert.Equal(t, 3.0, f)
}

func TestRecord_LineItems(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"items":[{"name":"Product 1","quantity":2,"unit_price":500.00},"junk",{"name":"Product 2","quantity":"1","unit_price":230}]}`))
	require.NoError(t, err)

	items := rec.LineItems()
	require.Len(t, items, 2)
	assert.Equal(t, LineItem{Name: "Product 1", Quantity: 2, UnitPrice: 500}, items[0])
	assert.Equal(t, LineItem{Name: "Product 2", Quantity: 1, UnitPrice: 230}, items[1])
}

func TestRecord_IsDegraded(t *testing.T) {
	assert.True(t, NewRecord().Set(constants.FieldRawResponse, String("hi")).IsDegraded())
	assert.True(t, NewRecord().
		Set(constants.FieldError, String(constants.JSONParseError)).
		Set(constants.FieldRawResponse, String("{bad")).IsDegraded())
	assert.False(t, NewRecord().Set(constants.FieldInvoiceNumber, String("1")).IsDegraded())

	genuine, err := ParseRecord([]byte(`{"invoice_number":"INV-1","raw_response":"n/a"}`))
	require.NoError(t, err)
	assert.False(t, genuine.IsDegraded())

	otherError := NewRecord().
		Set(constants.FieldError, String("model said no")).
		Set(constants.FieldRawResponse, String("x"))
	assert.False(t, otherError.IsDegraded())
}

func TestEncodeJSON_KeepsMarkupLiteral(t *testing.T) {
	rec := NewRecord().Set("company_name", String("A&B <Ltd>"))

	out, err := EncodeJSON(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"company_name":"A&B <Ltd>"}`, string(out))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(BatchEntry{Source: "a.pdf", Err: errors.New("bad <tag> & more")}))
	assert.Equal(t, `{"source_file":"a.pdf","error":"bad <tag> & more"}`+"\n", buf.String())
}

func TestMarshal_EscapesThroughPlainMarshal(t *testing.T) {
	out, err := json.Marshal(NewRecord().Set("company_name", String("A&B")))
	require.NoError(t, err)
	assert.Equal(t, `{"company_name":"A\u0026B"}`, string(out))
}

func TestNewDocument(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "invoice.PDF")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))

	doc, err := NewDocument(pdf)
	require.NoError(t, err)
	assert.Equal(t, constants.PDF, doc.Kind)
	assert.Equal(t, "invoice", doc.Stem())

	_, err = NewDocument(txt)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	_, err = NewDocument(filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNewExtractedText_CountsCharacters(t *testing.T) {
	et := NewExtractedText("ğüşıöç", constants.MethodDirect)
	assert.Equal(t, 6, et.Length)
}

func TestBatchEntry_MarshalJSON(t *testing.T) {
	failed := BatchEntry{Source: "a.pdf", Err: common.InsufficientTextError(10, 50)}
	out, err := json.Marshal(failed)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "a.pdf", decoded["source_file"])
	assert.Contains(t, decoded["error"], "insufficient text")
	assert.Len(t, decoded, 2)

	ok := BatchEntry{Source: "b.pdf", Result: &ExtractionResult{SourceFile: "b.pdf", ExtractedData: NewRecord()}}
	out, err = json.Marshal(ok)
	require.NoError(t, err)
	decoded = map[string]any{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "b.pdf", decoded["source_file"])
	assert.Contains(t, decoded, "validation")
	assert.NotContains(t, decoded, "error")
}
