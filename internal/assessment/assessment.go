package assessment

import (
	"context"
	"errors"
)

// FileResolver maps requested gcs_file_ids onto stored files so the MCQ
// prompt can reference the real gs:// objects.
type FileResolver interface {
	FileURIs(gcsFileIDs []int64) ([]string, error)
}

// SessionGenerator is the model contract for conversational generation.
// Session keys group requests from the same user so the model keeps the
// running question context.
type SessionGenerator interface {
	GenerateTextInSession(ctx context.Context, sessionKey, prompt string) (string, error)
}

// MCQ is one generated multiple-choice question. Field names follow the
// JSON shape the model is prompted to return.
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type MCQSet struct {
	Questions []MCQ `json:"questions"`
}

var (
	ErrNoFiles         = errors.New("no matching gcs files")
	ErrMalformedOutput = errors.New("model output is not a question set")
)
