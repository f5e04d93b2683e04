package llm

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const promptExample = `{
    "invoice_number": "INV-2024-001",
    "date": "2024-01-15",
    "company_name": "Example Company Inc.",
    "tax_number": "1234567890",
    "total_amount": 1500.00,
    "vat": 270.00,
    "items": [
        {"name": "Product 1", "quantity": 2, "unit_price": 500.00},
        {"name": "Product 2", "quantity": 1, "unit_price": 230.00}
    ]
}`

var promptRules = []string{
	"Respond only in JSON format, no other explanations",
	"If information is not found, use null as the value",
	`Provide dates in "YYYY-MM-DD" format`,
	"Provide amounts as numeric values (without currency symbols)",
	"Provide product list as an array",
}

// BuildExtractionPrompt renders the instruction text sent to the model. It is pure:
// the same text and schema always produce the same prompt.
func BuildExtractionPrompt(text string, schema entity.FieldSchema) string {
	var b strings.Builder
	b.WriteString("You are an invoice analysis assistant. Extract the specified information from the following invoice text and return it in JSON format.\n\n")

	b.WriteString("INVOICE TEXT:\n")
	b.WriteString(text)
	b.WriteString("\n\n")

	b.WriteString("INFORMATION TO EXTRACT:\n")
	for _, f := range schema {
		b.WriteString("- ")
		b.WriteString(f.Key)
		b.WriteString(": ")
		b.WriteString(f.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("RULES:\n")
	for i, rule := range promptRules {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("EXAMPLE OUTPUT FORMAT:\n")
	b.WriteString(promptExample)
	b.WriteString("\n\n")

	b.WriteString("Now analyze the invoice text above and provide the JSON output:")
	return b.String()
}
