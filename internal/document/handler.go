package document

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aignite/docqa-backend/internal"
	"github.com/aignite/docqa-backend/internal/auth"
	"github.com/aignite/docqa-backend/internal/docai"
	"github.com/aignite/docqa-backend/internal/storage"
	"github.com/aignite/docqa-backend/internal/transport"
	"github.com/aignite/docqa-backend/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Ingest handles POST /documents/ingest?uri=gs://bucket/prefix.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rawURI := r.URL.Query().Get("uri")
	result, err := h.Service.IngestURI(r.Context(), user.ID, rawURI)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidURI):
			h.WriteError(w, http.StatusBadRequest, "uri must be a gs://bucket/prefix path")
		default:
			if _, ok := err.(ValidationError); ok {
				h.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.Logger.Error("ingest failed", "uri", rawURI, "error", err)
			h.WriteError(w, http.StatusInternalServerError, "failed to ingest documents")
		}
		return
	}

	h.WriteJSON(w, http.StatusAccepted, result)
}

// Process handles POST /documents/process?gcs_file_id=N.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(r.URL.Query().Get("gcs_file_id"), 10, 64)
	if err != nil || fileID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "gcs_file_id must be a positive integer")
		return
	}

	result, err := h.Service.ProcessDocument(r.Context(), fileID)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileNotFound):
			h.HandleError(w, internal.NewNotFoundError("gcs file not found", internal.ErrCodeFileNotFound))
		case errors.Is(err, docai.ErrEmptyOutput), errors.Is(err, docai.ErrMalformedOutput):
			h.Logger.Error("extraction produced unusable output", "gcs_file_id", fileID, "error", err)
			h.HandleError(w, internal.NewExtractionError("document extraction failed", err))
		default:
			h.Logger.Error("processing failed", "gcs_file_id", fileID, "error", err)
			h.WriteError(w, http.StatusInternalServerError, "failed to process document")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// ListDocuments handles GET /documents with limit/offset paging.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	details, err := h.Service.ListDocumentDetails(r.Context(), limit, offset)
	if err != nil {
		h.Logger.Error("failed to list document details", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": details,
		"count":     len(details),
	})
}

// ListGCSFiles handles GET /documents/files?uri_id=N.
func (h *Handler) ListGCSFiles(w http.ResponseWriter, r *http.Request) {
	uriID, err := strconv.ParseInt(r.URL.Query().Get("uri_id"), 10, 64)
	if err != nil || uriID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "uri_id must be a positive integer")
		return
	}

	limit, offset := paging(r)
	files, err := h.Service.ListGCSFiles(r.Context(), uriID, limit, offset)
	if err != nil {
		h.Logger.Error("failed to list gcs files", "uri_id", uriID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"files": files,
		"count": len(files),
	})
}

// DocumentList handles GET /documents/list, the per-file latest-subject view.
func (h *Handler) DocumentList(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	summaries, err := h.Service.DocumentList(r.Context(), limit, offset)
	if err != nil {
		h.Logger.Error("failed to build document list", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": summaries,
		"count":     len(summaries),
	})
}

// Subjects handles GET /documents/subjects.
func (h *Handler) Subjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.Service.Subjects(r.Context())
	if err != nil {
		h.Logger.Error("failed to list subjects", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subjects": subjects,
	})
}

func paging(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
