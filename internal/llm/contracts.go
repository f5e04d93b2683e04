package llm

import "context"

// Generator is a language-model backend that completes a prompt in one non-streamed call.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ModelChecker verifies that a model is installed and the service is reachable.
type ModelChecker interface {
	CheckModel(ctx context.Context, model string) error
}
