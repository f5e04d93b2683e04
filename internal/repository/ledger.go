package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// LedgerRow is one stored outcome.
type LedgerRow struct {
	ID            int64
	RunID         string
	Source        string
	Status        constants.ResultStatus
	InvoiceNumber string
	IsValid       bool
	Method        string
	TextLength    int
	Error         string
	ResultJSON    string
	ProcessedAt   time.Time
}

type ResultLedger interface {
	Record(ctx context.Context, runID string, entry entity.BatchEntry) error
	ListRun(ctx context.Context, runID string) ([]LedgerRow, error)
	Put(ctx context.Context, entry entity.BatchEntry) error
	Name() string
}

type resultLedger struct {
	db     *DB
	now    func() time.Time
	logger *slog.Logger
}

// NewResultLedger creates the invoice_results table when missing.
func NewResultLedger(ctx context.Context, db *DB, logger *slog.Logger) (ResultLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &resultLedger{db: db, now: time.Now, logger: logger}
	if err := l.migrate(ctx); err != nil {
		return nil, common.StorageError("create invoice_results", err)
	}
	return l, nil
}

func (l *resultLedger) migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	boolType := "INTEGER"
	if l.db.Dialect == DialectPostgres {
		id = "BIGSERIAL PRIMARY KEY"
		boolType = "BOOLEAN"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS invoice_results (
			id ` + id + `,
			run_id TEXT NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			invoice_number TEXT NOT NULL DEFAULT '',
			is_valid ` + boolType + ` NOT NULL,
			method TEXT NOT NULL DEFAULT '',
			text_length INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			result_json TEXT NOT NULL DEFAULT '',
			processed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoice_results_run ON invoice_results (run_id)`,
	}
	for _, s := range stmts {
		if _, err := l.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (l *resultLedger) Name() string { return "ledger" }

// Record stores one batch entry under runID.
func (l *resultLedger) Record(ctx context.Context, runID string, entry entity.BatchEntry) error {
	row := LedgerRow{
		RunID:       runID,
		Source:      entry.Source,
		Status:      constants.ResultStatusFailed,
		ProcessedAt: l.now().UTC(),
	}
	if entry.OK() {
		res := entry.Result
		b, err := entity.EncodeJSON(res)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		row.Status = constants.ResultStatusOK
		row.InvoiceNumber = res.ExtractedData.Text(constants.FieldInvoiceNumber)
		row.IsValid = res.Validation.IsValid
		row.Method = string(res.ExtractionMethod)
		row.TextLength = res.Validation.TextLength
		row.ResultJSON = string(b)
		if !res.ProcessedAt.IsZero() {
			row.ProcessedAt = res.ProcessedAt.UTC()
		}
	} else if entry.Err != nil {
		row.Error = entry.Err.Error()
	}

	_, err := l.db.ExecContext(ctx, l.db.rebind(`INSERT INTO invoice_results
		(run_id, source, status, invoice_number, is_valid, method, text_length, error, result_json, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		row.RunID, row.Source, string(row.Status), row.InvoiceNumber, row.IsValid,
		row.Method, row.TextLength, row.Error, row.ResultJSON, row.ProcessedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		l.logger.Error("repository.ledger.record_failed", "run_id", runID, "source", entry.Source, "error", err)
		return common.StorageError("record result", err)
	}
	l.logger.Debug("repository.ledger.recorded", "run_id", runID, "source", entry.Source, "status", row.Status)
	return nil
}

// ListRun returns the rows of runID in insertion order.
func (l *resultLedger) ListRun(ctx context.Context, runID string) ([]LedgerRow, error) {
	rows, err := l.db.QueryContext(ctx, l.db.rebind(`SELECT
		id, run_id, source, status, invoice_number, is_valid, method, text_length, error, result_json, processed_at
		FROM invoice_results WHERE run_id = ? ORDER BY id`), runID)
	if err != nil {
		l.logger.Error("repository.ledger.list_failed", "run_id", runID, "error", err)
		return nil, common.StorageError("list run", err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var (
			r      LedgerRow
			status string
			at     string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Source, &status, &r.InvoiceNumber, &r.IsValid,
			&r.Method, &r.TextLength, &r.Error, &r.ResultJSON, &at); err != nil {
			return nil, common.StorageError("scan run", err)
		}
		r.Status = constants.ResultStatus(status)
		r.ProcessedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError("list run", err)
	}
	return out, nil
}

// Put records entry under the run ID carried by ctx, or a fresh one.
func (l *resultLedger) Put(ctx context.Context, entry entity.BatchEntry) error {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
	}
	return l.Record(ctx, runID, entry)
}
