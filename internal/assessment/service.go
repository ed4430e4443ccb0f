package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aignite/docqa-backend/internal/docai"
)

type ServiceAPI interface {
	GenerateMCQs(ctx context.Context, userID int64, gcsFileIDs []int64, subChapters string) (*MCQSet, error)
}

type Service struct {
	resolver FileResolver
	model    SessionGenerator
	logger   *slog.Logger
}

func NewService(resolver FileResolver, model SessionGenerator, logger *slog.Logger) *Service {
	return &Service{
		resolver: resolver,
		model:    model,
		logger:   logger,
	}
}

// GenerateMCQs builds a question set for the given files, scoped to the
// requested subchapters. Requests from the same user share one model
// session so follow-up calls keep avoiding earlier questions.
func (s *Service) GenerateMCQs(ctx context.Context, userID int64, gcsFileIDs []int64, subChapters string) (*MCQSet, error) {
	uris, err := s.resolver.FileURIs(gcsFileIDs)
	if err != nil {
		return nil, err
	}
	if len(uris) == 0 {
		return nil, ErrNoFiles
	}

	prompt := docai.BuildMCQPrompt(uris, subChapters)
	sessionKey := fmt.Sprintf("user:%d", userID)

	raw, err := s.model.GenerateTextInSession(ctx, sessionKey, prompt)
	if err != nil {
		return nil, err
	}

	var set MCQSet
	if err := json.Unmarshal([]byte(docai.CleanOutput(raw)), &set); err != nil {
		s.logger.Error("mcq output did not parse", "error", err)
		return nil, ErrMalformedOutput
	}
	if len(set.Questions) == 0 {
		return nil, ErrMalformedOutput
	}

	s.logger.Info("generated mcqs",
		"user_id", userID,
		"files", len(uris),
		"questions", len(set.Questions))
	return &set, nil
}
