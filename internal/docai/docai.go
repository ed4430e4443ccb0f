// Package docai wraps the hosted LLM behind a small text-generation
// contract. The rest of the backend depends on Generator only, never on a
// vendor SDK.
package docai

import (
	"context"
	"errors"
	"time"
)

// Generator is the external collaborator contract for text generation and
// structured document extraction.
type Generator interface {
	// GenerateText returns the model's raw reply for a prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// ExtractDocumentDetails asks the model to describe the document at
	// fileURI and returns the parsed JSON reply. The reply is cleaned of
	// Markdown code fences before parsing; unparseable output fails with
	// ErrMalformedOutput and nothing is returned.
	ExtractDocumentDetails(ctx context.Context, fileURI, prompt string) (map[string]any, error)
}

type Config struct {
	Provider        string
	Model           string
	ProjectID       string
	Location        string
	OpenAIAPIKey    string
	SessionCacheTTL time.Duration
	SessionCacheMax int
}

var (
	ErrEmptyOutput     = errors.New("model returned empty output")
	ErrMalformedOutput = errors.New("model output is not valid JSON")
	ErrUnknownProvider = errors.New("unsupported llm provider")
)
