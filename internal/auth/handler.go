package auth

import (
	"errors"
	"log/slog"
	"net/http"

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

// Login handles POST /auth/login with form-encoded username and password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	dto := LoginDTO{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	session, err := h.Service.Login(dto)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err)

		switch {
		case errors.Is(err, ErrInvalidCredentials):
			h.WriteError(w, http.StatusUnauthorized, "invalid username or password")
		case errors.Is(err, ErrRoleNotFound):
			h.WriteError(w, http.StatusForbidden, "user role not found")
		default:
			if _, ok := err.(ValidationError); ok {
				h.WriteError(w, http.StatusBadRequest, err.Error())
			} else {
				h.WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, session)
}

// Logout handles POST /auth/logout for the authenticated user.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.Logout(user.ID); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			h.WriteError(w, http.StatusNotFound, "token not found or already logged out")
			return
		}
		h.Logger.Error("logout failed", "user_id", user.ID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

// AuthMiddleware verifies the bearer token and puts the user in the context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		user, err := h.Service.VerifyToken(token)
		if err != nil {
			h.Logger.Warn("token verification failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid or revoked token")
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireEndpoint gates a route behind a named endpoint-role mapping.
// Unmapped endpoints reject every role.
func (h *Handler) RequireEndpoint(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				h.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if err := h.Service.AuthorizeEndpoint(user, endpoint); err != nil {
				switch {
				case errors.Is(err, ErrEndpointNotConfigured):
					h.WriteError(w, http.StatusForbidden, "endpoint not configured")
				case errors.Is(err, ErrPermissionDenied):
					h.WriteError(w, http.StatusForbidden, "insufficient role for endpoint")
				default:
					h.Logger.Error("authorization check failed", "endpoint", endpoint, "error", err)
					h.WriteError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
