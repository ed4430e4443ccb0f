package assessment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aignite/docqa-backend/internal"
	"github.com/aignite/docqa-backend/internal/auth"
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

// GenerateMCQs handles GET /assessments/mcqs?gcs_file_ids=1,2&sub_chapters=...
func (h *Handler) GenerateMCQs(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	fileIDs, err := parseIDList(r.URL.Query().Get("gcs_file_ids"))
	if err != nil || len(fileIDs) == 0 {
		h.WriteError(w, http.StatusBadRequest, "gcs_file_ids must be a comma-separated list of positive integers")
		return
	}
	subChapters := r.URL.Query().Get("sub_chapters")

	set, err := h.Service.GenerateMCQs(r.Context(), user.ID, fileIDs, subChapters)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFiles):
			h.HandleError(w, internal.NewNotFoundError("no matching gcs files", internal.ErrCodeFileNotFound))
		case errors.Is(err, ErrMalformedOutput):
			h.HandleError(w, internal.NewExtractionError("question generation failed", err))
		default:
			h.Logger.Error("mcq generation failed", "error", err)
			h.WriteError(w, http.StatusInternalServerError, "question generation failed")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, set)
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("invalid id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
