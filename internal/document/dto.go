package document

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type IngestDTO struct {
	URI string `json:"uri"`
}

func (d IngestDTO) Validate() error {
	if strings.TrimSpace(d.URI) == "" {
		return ValidationError{Field: "uri", Message: "uri is required"}
	}
	if !strings.HasPrefix(d.URI, "gs://") {
		return ValidationError{Field: "uri", Message: "uri must start with gs://"}
	}
	return nil
}

// FileSummary is the per-object slice of an ingest response.
type FileSummary struct {
	GCSFileID int64  `json:"gcs_file_id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
}

type IngestResult struct {
	URIID               int64         `json:"uri_id"`
	URI                 string        `json:"uri"`
	TotalDocumentsFound int           `json:"total_documents_found"`
	Files               []FileSummary `json:"files"`
	Message             string        `json:"message"`
}

type ProcessResult struct {
	GCSFileID int64              `json:"gcs_file_id"`
	Skipped   bool               `json:"skipped"`
	Details   *NormalizedDetails `json:"details,omitempty"`
	Message   string             `json:"message"`
}
