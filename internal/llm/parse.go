package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ParseModelResponse turns raw model output into a record. It never fails:
//   - no '{' or no '}'           -> {"raw_response": text}
//   - span from first '{' to last '}' is not a JSON object -> {"error": "JSON parse error", "raw_response": text}
//   - otherwise the parsed object, unmodified
func ParseModelResponse(text string) *entity.Record {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 {
		return entity.NewRecord().Set(constants.FieldRawResponse, entity.String(text))
	}
	if end < start {
		return parseErrorRecord(text)
	}
	rec, err := entity.ParseRecord([]byte(text[start : end+1]))
	if err != nil {
		return parseErrorRecord(text)
	}
	return rec
}

func parseErrorRecord(text string) *entity.Record {
	return entity.NewRecord().
		Set(constants.FieldError, entity.String(constants.JSONParseError)).
		Set(constants.FieldRawResponse, entity.String(text))
}
