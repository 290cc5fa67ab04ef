package ai

import "context"

// Runtime is a minimal interface implemented by chat-completion backends.
// It aligns to the shared request/response types in this package.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// RuntimeFunc adapts a plain function to Runtime.
type RuntimeFunc func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

func (f RuntimeFunc) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return f(ctx, req)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenAI = "openai"
)
