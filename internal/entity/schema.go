package entity

import "github.com/joseph-ayodele/invoice-extractor/constants"

// Field names one piece of information to extract.
type Field struct {
	Key         string
	Description string
}

// FieldSchema is the ordered list of fields the model is asked to extract.
type FieldSchema []Field

// DefaultFieldSchema is the invoice schema used when configuration supplies none.
func DefaultFieldSchema() FieldSchema {
	return FieldSchema{
		{Key: constants.FieldInvoiceNumber, Description: "Invoice number"},
		{Key: constants.FieldDate, Description: "Invoice date"},
		{Key: constants.FieldCompanyName, Description: "Issuing company name"},
		{Key: constants.FieldTaxNumber, Description: "Tax identification number"},
		{Key: constants.FieldTotalAmount, Description: "Total amount"},
		{Key: constants.FieldVAT, Description: "VAT amount"},
		{Key: constants.FieldItems, Description: "Product/service list (name, quantity, unit price)"},
	}
}

func (s FieldSchema) Keys() []string {
	keys := make([]string, len(s))
	for i, f := range s {
		keys[i] = f.Key
	}
	return keys
}

func (s FieldSchema) Has(key string) bool {
	for _, f := range s {
		if f.Key == key {
			return true
		}
	}
	return false
}
