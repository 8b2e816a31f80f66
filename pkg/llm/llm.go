package llm

import (
	"context"
	"errors"
)

// CompletionProvider turns a prompt into the raw text of a model reply.
// Implementations do no cleanup of the reply; callers own parsing.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	ErrEmptyCompletion = errors.New("completion returned no choices")
	ErrProviderTimeout = errors.New("completion provider timed out")
)

// ProviderFunc adapts a plain function to CompletionProvider.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
