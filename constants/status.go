package constants

// ExtractionMethod records which text-acquisition path produced the text.
type ExtractionMethod string

const (
	MethodDirect     ExtractionMethod = "direct"     // embedded PDF text layer
	MethodRasterized ExtractionMethod = "rasterized" // OCR over rendered pages or image input
)

// ResultStatus is the per-document outcome stored in the result ledger.
type ResultStatus string

const (
	ResultStatusOK     ResultStatus = "OK"
	ResultStatusFailed ResultStatus = "FAILED"
)

// MinViableTextLength is the smallest text (in characters) worth sending to the model.
const MinViableTextLength = 50
