package constants

// Invoice field keys.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldDate          = "date"
	FieldCompanyName   = "company_name"
	FieldTaxNumber     = "tax_number"
	FieldTotalAmount   = "total_amount"
	FieldVAT           = "vat"
	FieldItems         = "items"
)

// Keys used by degraded records.
const (
	FieldRawResponse = "raw_response"
	FieldError       = "error"
)

// JSONParseError is the error value placed in a degraded record when the model output is not JSON.
const JSONParseError = "JSON parse error"

// DefaultRequiredFields are the fields a record must carry (non-null) to be valid.
var DefaultRequiredFields = []string{
	FieldInvoiceNumber,
	FieldDate,
	FieldCompanyName,
	FieldTotalAmount,
}
