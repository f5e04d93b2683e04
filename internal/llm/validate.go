package llm

import (
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Verdict is the full validator outcome for one record.
type Verdict struct {
	IsValid      bool
	MissingField string
	Warnings     []string
}

// Validator checks records for the required fields and reports schema findings as warnings.
type Validator struct {
	required []string
	schema   *jsonschema.Schema
	logger   *slog.Logger
}

func NewValidator(required []string, fields entity.FieldSchema, logger *slog.Logger) (*Validator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(required) == 0 {
		required = constants.DefaultRequiredFields
	}
	if len(fields) == 0 {
		fields = entity.DefaultFieldSchema()
	}
	schema, err := compileSchema(BuildInvoiceJSONSchema(fields))
	if err != nil {
		return nil, fmt.Errorf("invoice schema: %w", err)
	}
	return &Validator{
		required: append([]string(nil), required...),
		schema:   schema,
		logger:   logger,
	}, nil
}

// Validate reports whether every required field is present and non-null.
// The first missing field is logged and checking stops there.
func (v *Validator) Validate(rec *entity.Record) bool {
	return v.firstMissing(rec) == ""
}

func (v *Validator) firstMissing(rec *entity.Record) string {
	for _, key := range v.required {
		if !rec.Present(key) {
			v.logger.Warn("llm.validate.missing_field", "field", key)
			return key
		}
	}
	return ""
}

// Check is Validate plus advisory warnings. Warnings never change IsValid.
func (v *Validator) Check(rec *entity.Record) Verdict {
	missing := v.firstMissing(rec)
	verdict := Verdict{IsValid: missing == "", MissingField: missing}

	if rec.IsDegraded() {
		verdict.Warnings = append(verdict.Warnings, "model response could not be parsed as JSON")
		return verdict
	}
	findings, err := schemaFindings(v.schema, rec)
	if err != nil {
		v.logger.Warn("llm.validate.schema_error", "error", err)
		return verdict
	}
	if len(findings) > 0 {
		v.logger.Debug("llm.validate.schema_findings", "count", len(findings))
	}
	verdict.Warnings = append(verdict.Warnings, findings...)
	return verdict
}
