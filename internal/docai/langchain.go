package docai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/googleai/vertex"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client implements Generator on top of langchaingo, selecting the model
// backend from configuration. Model handles are cached per session key so
// repeated calls from one dispatcher batch reuse the same client.
type Client struct {
	model    llms.Model
	sessions *SessionCache
	logger   *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	model, err := newModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		model:    model,
		sessions: NewSessionCache(cfg.SessionCacheTTL, cfg.SessionCacheMax),
		logger:   logger.With("component", "docai"),
	}, nil
}

func newModel(ctx context.Context, cfg Config) (llms.Model, error) {
	switch cfg.Provider {
	case "vertexai":
		return vertex.New(ctx,
			googleai.WithCloudProject(cfg.ProjectID),
			googleai.WithCloudLocation(cfg.Location),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "openai":
		return openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// GenerateText sends one prompt and returns the model's text reply.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	response, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		c.logger.Error("text generation failed", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrEmptyOutput
	}

	return response.Choices[0].Content, nil
}

// GenerateTextInSession keeps a rolling conversation per session key, so
// repeated calls from the same caller carry their history. Idle sessions
// fall out of the cache after the configured TTL.
func (c *Client) GenerateTextInSession(ctx context.Context, sessionKey, prompt string) (string, error) {
	var history []llms.MessageContent
	if cached, ok := c.sessions.Get(sessionKey); ok {
		history = cached.([]llms.MessageContent)
	}

	content := append(history, llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(prompt),
		},
	})

	response, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		c.logger.Error("session text generation failed", "session", sessionKey, "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrEmptyOutput
	}

	reply := response.Choices[0].Content
	content = append(content, llms.MessageContent{
		Role: llms.ChatMessageTypeAI,
		Parts: []llms.ContentPart{
			llms.TextPart(reply),
		},
	})
	c.sessions.Put(sessionKey, content)

	return reply, nil
}

// ExtractDocumentDetails generates against the document reference, cleans
// the reply of code fences, and parses it as a JSON object.
func (c *Client) ExtractDocumentDetails(ctx context.Context, fileURI, prompt string) (map[string]any, error) {
	if prompt == "" {
		prompt = BuildExtractionPrompt(fileURI)
	}

	raw, err := c.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseJSONObject(raw)
	if err != nil {
		c.logger.Error("failed to parse extraction output", "file_uri", fileURI, "err", err)
		return nil, err
	}

	c.logger.Info("extracted document details", "file_uri", fileURI)
	return parsed, nil
}
