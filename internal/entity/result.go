package entity

import (
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Validation summarizes the validator verdict stored in the result envelope.
type Validation struct {
	IsValid      bool     `json:"is_valid"`
	TextLength   int      `json:"text_length"`
	MissingField string   `json:"missing_field,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// ExtractionResult is the envelope produced for one successfully processed document.
type ExtractionResult struct {
	SourceFile       string                     `json:"source_file"`
	ProcessedAt      time.Time                  `json:"processed_at"`
	RawText          string                     `json:"raw_text"`
	ExtractionMethod constants.ExtractionMethod `json:"extraction_method"`
	PageCount        int                        `json:"page_count,omitempty"`
	ExtractedData    *Record                    `json:"extracted_data"`
	Validation       Validation                 `json:"validation"`
}

// BatchEntry is one batch outcome: either a result or an error for the source file.
type BatchEntry struct {
	Source string
	Result *ExtractionResult
	Err    error
}

func (e BatchEntry) OK() bool {
	return e.Err == nil && e.Result != nil
}

type batchError struct {
	SourceFile string `json:"source_file"`
	Error      string `json:"error"`
}

func (e BatchEntry) MarshalJSON() ([]byte, error) {
	if e.OK() {
		return EncodeJSON(e.Result)
	}
	msg := "no result"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return EncodeJSON(batchError{SourceFile: e.Source, Error: msg})
}
