package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) describing the
// expected shape of each known field. Every field may be null and unknown keys are allowed,
// so the schema only ever produces advisory findings.
func BuildInvoiceJSONSchema(fields entity.FieldSchema) map[string]any {
	props := map[string]any{}
	for _, f := range fields {
		switch f.Key {
		case constants.FieldDate:
			props[f.Key] = map[string]any{
				"type":    []string{"string", "null"},
				"pattern": `^\d{4}-\d{2}-\d{2}$`,
			}
		case constants.FieldTotalAmount, constants.FieldVAT:
			props[f.Key] = amountProp()
		case constants.FieldItems:
			props[f.Key] = map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":       map[string]any{"type": []string{"string", "null"}},
						"quantity":   amountProp(),
						"unit_price": amountProp(),
					},
					"required": []string{"name"},
				},
			}
		default:
			props[f.Key] = map[string]any{"type": []string{"string", "number", "null"}}
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func amountProp() map[string]any {
	return map[string]any{"type": []string{"number", "null"}}
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("invoice.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("invoice.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// schemaFindings validates rec against schema and flattens failures into readable lines.
func schemaFindings(schema *jsonschema.Schema, rec *entity.Record) ([]string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	err = schema.Validate(v)
	if err == nil {
		return nil, nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, err
	}
	var out []string
	collectLeafErrors(ve, &out)
	return out, nil
}

func collectLeafErrors(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectLeafErrors(c, out)
	}
}
