package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aignite/docqa-backend/internal/docai"
	"github.com/aignite/docqa-backend/internal/storage"
)

type ServiceAPI interface {
	IngestURI(ctx context.Context, userID int64, rawURI string) (*IngestResult, error)
	ProcessDocument(ctx context.Context, gcsFileID int64) (*ProcessResult, error)
	ListDocumentDetails(ctx context.Context, limit, offset int) ([]*DocumentDetails, error)
	ListGCSFiles(ctx context.Context, uriID int64, limit, offset int) ([]*GCSFile, error)
	DocumentList(ctx context.Context, limit, offset int) ([]*DocumentSummary, error)
	Subjects(ctx context.Context) ([]string, error)
}

type Service struct {
	repo       RepositoryAPI
	lister     storage.ObjectLister
	ai         docai.Generator
	dispatcher DispatcherAPI
	freshness  time.Duration
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, lister storage.ObjectLister, ai docai.Generator, dispatcher DispatcherAPI, freshness time.Duration, logger *slog.Logger) *Service {
	if freshness <= 0 {
		freshness = 24 * time.Hour
	}
	return &Service{
		repo:       repo,
		lister:     lister,
		ai:         ai,
		dispatcher: dispatcher,
		freshness:  freshness,
		logger:     logger,
	}
}

// IngestURI records the prefix, lists its objects, upserts one gcs_files row
// per object and queues an extraction job for each. Re-ingesting the same
// prefix reuses the existing rows and queues the jobs again.
func (s *Service) IngestURI(ctx context.Context, userID int64, rawURI string) (*IngestResult, error) {
	dto := IngestDTO{URI: rawURI}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	bucket, prefix, err := storage.ParseURI(rawURI)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.CreateURI(&URI{
		URI:    rawURI,
		UserID: userID,
		Status: URIStatusPending,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateURIStatus(entry.ID, URIStatusProcessing); err != nil {
		return nil, err
	}

	objects, err := s.lister.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	files := make([]*GCSFile, 0, len(objects))
	for _, obj := range objects {
		meta, _ := json.Marshal(obj.Metadata)
		files = append(files, &GCSFile{
			URI:          obj.URI,
			URIID:        entry.ID,
			Name:         obj.Name,
			Bucket:       obj.Bucket,
			ContentType:  obj.ContentType,
			Size:         obj.Size,
			MD5Hash:      obj.MD5Hash,
			CRC32C:       obj.CRC32C,
			Etag:         obj.Etag,
			TimeCreated:  obj.TimeCreated,
			Updated:      obj.Updated,
			FileMetadata: meta,
		})
	}
	stored, err := s.repo.UpsertGCSFiles(files)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		URIID:               entry.ID,
		URI:                 rawURI,
		TotalDocumentsFound: len(stored),
		Files:               make([]FileSummary, 0, len(stored)),
		Message:             "documents queued for processing",
	}
	for _, f := range stored {
		result.Files = append(result.Files, FileSummary{GCSFileID: f.ID, Name: f.Name, Size: f.Size})
		if err := s.dispatcher.Enqueue(f.ID, userID); err != nil {
			s.logger.Error("failed to enqueue extraction job",
				"gcs_file_id", f.ID,
				"error", err)
		}
	}

	s.logger.Info("ingested uri",
		"uri", rawURI,
		"uri_id", entry.ID,
		"documents_found", len(stored))
	return result, nil
}

// ProcessDocument runs the model extraction for one file. A row newer than
// the freshness window short-circuits the call without touching the model.
func (s *Service) ProcessDocument(ctx context.Context, gcsFileID int64) (*ProcessResult, error) {
	file, err := s.repo.GetGCSFile(gcsFileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, ErrFileNotFound
	}

	latest, err := s.repo.LatestDetailsForFile(gcsFileID)
	if err != nil {
		return nil, err
	}
	if latest != nil && time.Since(latest.UpdatedAt) < s.freshness {
		s.logger.Info("skipping extraction, details are fresh",
			"gcs_file_id", gcsFileID,
			"updated_at", latest.UpdatedAt)
		var details NormalizedDetails
		_ = json.Unmarshal(latest.ExtractedData, &details)
		return &ProcessResult{
			GCSFileID: gcsFileID,
			Skipped:   true,
			Details:   &details,
			Message:   "document details already up to date",
		}, nil
	}

	fileURI := storage.ObjectURI(file.Bucket, file.Name)
	prompt := docai.BuildExtractionPrompt(fileURI)
	raw, err := s.ai.ExtractDocumentDetails(ctx, fileURI, prompt)
	if err != nil {
		return nil, err
	}
	normalized := normalizeDetails(raw)

	extracted, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	full, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateDocumentDetails(&DocumentDetails{
		GCSFileID:     gcsFileID,
		Subject:       normalized.Subject,
		ExtractedData: extracted,
		FullMetadata:  full,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("document processed",
		"gcs_file_id", gcsFileID,
		"subject", normalized.Subject,
		"chapters", len(normalized.Chapters))
	return &ProcessResult{
		GCSFileID: gcsFileID,
		Details:   &normalized,
		Message:   "document processed",
	}, nil
}

func (s *Service) ListDocumentDetails(ctx context.Context, limit, offset int) ([]*DocumentDetails, error) {
	return s.repo.ListDocumentDetails(clampLimit(limit), offset)
}

func (s *Service) ListGCSFiles(ctx context.Context, uriID int64, limit, offset int) ([]*GCSFile, error) {
	return s.repo.ListGCSFiles(uriID, clampLimit(limit), offset)
}

func (s *Service) DocumentList(ctx context.Context, limit, offset int) ([]*DocumentSummary, error) {
	return s.repo.DocumentList(clampLimit(limit), offset)
}

func (s *Service) Subjects(ctx context.Context) ([]string, error) {
	return s.repo.Subjects()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}

// normalizeDetails pulls the known fields out of a raw model payload,
// tolerating missing or oddly typed entries.
func normalizeDetails(raw map[string]any) NormalizedDetails {
	out := NormalizedDetails{Chapters: []Chapter{}}
	if subject, ok := raw["subject"].(string); ok {
		out.Subject = subject
	}
	chapters, ok := raw["chapters"].([]any)
	if !ok {
		return out
	}
	for _, item := range chapters {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		chapter := Chapter{Subchapters: []string{}}
		if name, ok := entry["name"].(string); ok {
			chapter.Name = name
		}
		if subs, ok := entry["subchapters"].([]any); ok {
			for _, sub := range subs {
				if s, ok := sub.(string); ok {
					chapter.Subchapters = append(chapter.Subchapters, s)
				}
			}
		}
		out.Chapters = append(out.Chapters, chapter)
	}
	return out
}
