package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	model    string
	prompt   string
}

func (s *stubGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	s.calls++
	s.model = model
	s.prompt = prompt
	return s.response, s.err
}

func TestRecordExtractor_ParsesModelOutput(t *testing.T) {
	gen := &stubGenerator{response: "Sure!\n{\"invoice_number\": \"F-9\", \"total_amount\": 118.0}"}
	x := NewRecordExtractor(gen, ExtractorConfig{Model: "qwen2.5:3b"}, nil)

	rec, err := x.ExtractRecord(context.Background(), "FATURA F-9 toplam 118,00")
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "qwen2.5:3b", gen.model)
	assert.Contains(t, gen.prompt, "FATURA F-9 toplam 118,00")
	assert.Equal(t, "F-9", rec.Text("invoice_number"))
	assert.Equal(t, "118.0", rec.Text("total_amount"))
}

func TestRecordExtractor_DegradesInsteadOfFailing(t *testing.T) {
	gen := &stubGenerator{response: "I could not find an invoice."}
	x := NewRecordExtractor(gen, ExtractorConfig{}, nil)

	rec, err := x.ExtractRecord(context.Background(), "text")
	require.NoError(t, err)
	assert.True(t, rec.IsDegraded())
}

func TestRecordExtractor_PropagatesModelErrors(t *testing.T) {
	for _, modelErr := range []error{
		common.ModelUnavailableError("cannot connect", nil),
		common.ModelNotFoundError("qwen2.5:3b"),
	} {
		gen := &stubGenerator{err: modelErr}
		x := NewRecordExtractor(gen, ExtractorConfig{}, nil)

		rec, err := x.ExtractRecord(context.Background(), "text")
		assert.Nil(t, rec)
		assert.Same(t, modelErr, err)
	}
}
