package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeExtractionFailure = "EXTRACTION_FAILURE"
	CodeInsufficientText  = "INSUFFICIENT_TEXT"
	CodeModelUnavailable  = "MODEL_UNAVAILABLE"
	CodeModelNotFound     = "MODEL_NOT_FOUND"
	CodeConfig            = "CONFIG_ERROR"
	CodeStorage           = "STORAGE_ERROR"
)

// Processing errors. Match with errors.Is.
var (
	ErrNotFound          = errors.New("document not found")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailure = errors.New("text extraction failed")
	ErrInsufficientText  = errors.New("insufficient text extracted")
	ErrModelUnavailable  = errors.New("model service unavailable")
	ErrModelNotFound     = errors.New("model not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStorage           = errors.New("storage error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NotFoundError(path string) error {
	return NewAppError(CodeNotFound, fmt.Sprintf("file not found: %s", path), ErrNotFound)
}

func UnsupportedFormatError(ext string) error {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("unsupported file format: %q", ext), ErrUnsupportedFormat)
}

// ExtractionFailureError keeps both the sentinel and the underlying cause reachable via errors.Is.
func ExtractionFailureError(message string, cause error) error {
	return NewAppError(CodeExtractionFailure, message, errors.Join(ErrExtractionFailure, cause))
}

func InsufficientTextError(length, minimum int) error {
	return NewAppError(CodeInsufficientText,
		fmt.Sprintf("insufficient text extracted: %d characters (minimum %d)", length, minimum),
		ErrInsufficientText)
}

func ModelUnavailableError(message string, cause error) error {
	if cause == nil {
		return NewAppError(CodeModelUnavailable, message, ErrModelUnavailable)
	}
	return NewAppError(CodeModelUnavailable, message, errors.Join(ErrModelUnavailable, cause))
}

func StorageError(message string, cause error) error {
	return NewAppError(CodeStorage, message, errors.Join(ErrStorage, cause))
}

func ModelNotFoundError(model string) error {
	return NewAppError(CodeModelNotFound, fmt.Sprintf("model %q not found", model), ErrModelNotFound)
}

// Remediation returns an operator hint for errors that have a known fix, or "".
func Remediation(err error, model string) string {
	switch {
	case errors.Is(err, ErrModelNotFound):
		return fmt.Sprintf("Install it with: ollama pull %s", model)
	case errors.Is(err, ErrModelUnavailable):
		return "Make sure Ollama is running: 'ollama serve'"
	case errors.Is(err, ErrInsufficientText):
		return "Check the document quality or the OCR language setting"
	}
	return ""
}

// ErrorCode extracts the AppError code from err, or "" when err carries none.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
