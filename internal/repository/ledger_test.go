package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: "sqlite://:memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func okEntry(t *testing.T, source, number string) entity.BatchEntry {
	t.Helper()
	rec := entity.NewRecord().Set(constants.FieldInvoiceNumber, entity.String(number))
	return entity.BatchEntry{Source: source, Result: &entity.ExtractionResult{
		SourceFile:       source,
		ProcessedAt:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		ExtractionMethod: constants.MethodRasterized,
		ExtractedData:    rec,
		Validation:       entity.Validation{IsValid: false, TextLength: 120, MissingField: "date"},
	}}
}

func TestParseDSN(t *testing.T) {
	d, dsn := ParseDSN("postgres://u:p@localhost/db")
	assert.Equal(t, DialectPostgres, d)
	assert.Equal(t, "postgres://u:p@localhost/db", dsn)

	d, dsn = ParseDSN("sqlite://./ledger.db")
	assert.Equal(t, DialectSQLite, d)
	assert.Equal(t, "./ledger.db", dsn)

	d, dsn = ParseDSN("ledger.db")
	assert.Equal(t, DialectSQLite, d)
	assert.Equal(t, "ledger.db", dsn)
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &DB{Dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestResultLedger_RecordAndList(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	require.NoError(t, db.HealthCheck(ctx, time.Second))

	l, err := NewResultLedger(ctx, db, nil)
	require.NoError(t, err)

	require.NoError(t, l.Record(ctx, "run-1", okEntry(t, "/in/a.pdf", "INV-1")))
	require.NoError(t, l.Record(ctx, "run-1", entity.BatchEntry{Source: "/in/b.pdf", Err: common.InsufficientTextError(3, 50)}))
	require.NoError(t, l.Record(ctx, "run-2", okEntry(t, "/in/c.pdf", "INV-3")))

	rows, err := l.ListRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	a := rows[0]
	assert.Equal(t, "/in/a.pdf", a.Source)
	assert.Equal(t, constants.ResultStatusOK, a.Status)
	assert.Equal(t, "INV-1", a.InvoiceNumber)
	assert.False(t, a.IsValid)
	assert.Equal(t, "rasterized", a.Method)
	assert.Equal(t, 120, a.TextLength)
	assert.Contains(t, a.ResultJSON, `"missing_field":"date"`)
	assert.Equal(t, 2024, a.ProcessedAt.Year())

	b := rows[1]
	assert.Equal(t, constants.ResultStatusFailed, b.Status)
	assert.Contains(t, b.Error, "INSUFFICIENT_TEXT")
	assert.Empty(t, b.ResultJSON)

	none, err := l.ListRun(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResultLedger_PutUsesContextRunID(t *testing.T) {
	ctx := common.WithRunID(context.Background(), "run-ctx")
	l, err := NewResultLedger(ctx, openMemory(t), nil)
	require.NoError(t, err)

	require.NoError(t, l.Put(ctx, entity.BatchEntry{Source: "/in/x.png", Err: errors.New("boom")}))
	rows, err := l.ListRun(ctx, "run-ctx")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "boom", rows[0].Error)
	assert.Equal(t, "ledger", l.Name())
}

func TestResultLedger_StorageErrors(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	l, err := NewResultLedger(ctx, db, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = l.Record(ctx, "run", okEntry(t, "/in/a.pdf", "1"))
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestResultLedger_ResultJSONKeepsMarkup(t *testing.T) {
	ctx := context.Background()
	l, err := NewResultLedger(ctx, openMemory(t), nil)
	require.NoError(t, err)

	entry := okEntry(t, "/in/a.pdf", "INV-1")
	entry.Result.ExtractedData.Set(constants.FieldCompanyName, entity.String("A&B <Ltd>"))
	require.NoError(t, l.Record(ctx, "run-html", entry))

	rows, err := l.ListRun(ctx, "run-html")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].ResultJSON, `"company_name":"A&B <Ltd>"`)
}
