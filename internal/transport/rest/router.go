package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/aignite/docqa-backend/internal/assessment"
	"github.com/aignite/docqa-backend/internal/auth"
	"github.com/aignite/docqa-backend/internal/document"
	"github.com/aignite/docqa-backend/internal/transport/middleware"
	"github.com/aignite/docqa-backend/internal/transport/swagger"
	"github.com/aignite/docqa-backend/internal/user"
	"github.com/go-chi/chi"
)

// Endpoint names as stored in endpoint_roles. Routes gated by these names
// reject every role unless a row maps the name to it.
const (
	EndpointIngestDocuments  = "ingest_documents"
	EndpointProcessDocument  = "process_document"
	EndpointReadDocuments    = "read_documents"
	EndpointReadGCSFiles     = "read_gcs_files"
	EndpointReadDocumentList = "read_document_list"
	EndpointReadSubjects     = "read_subjects"
	EndpointReadUsers        = "read_users"
	EndpointGenerateMCQs     = "generate_mcqs"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, userHandler *user.Handler, documentHandler *document.Handler, assessmentHandler *assessment.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)

			sr.Group(func(ar chi.Router) {
				ar.Use(authHandler.AuthMiddleware)
				ar.Post("/logout", authHandler.Logout)
			})
		})

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/users/me", userHandler.GetCurrentUser)
			pr.Post("/users", userHandler.Register)
			pr.Group(func(ur chi.Router) {
				ur.Use(authHandler.RequireEndpoint(EndpointReadUsers))
				ur.Get("/users", userHandler.List)
			})

			pr.Route("/documents", func(dr chi.Router) {
				dr.Group(func(gr chi.Router) {
					gr.Use(authHandler.RequireEndpoint(EndpointIngestDocuments))
					gr.Post("/ingest", documentHandler.Ingest)
				})
				dr.Group(func(gr chi.Router) {
					gr.Use(authHandler.RequireEndpoint(EndpointProcessDocument))
					gr.Post("/process", documentHandler.Process)
				})
				dr.Group(func(gr chi.Router) {
					gr.Use(authHandler.RequireEndpoint(EndpointReadDocuments))
					gr.Get("/", documentHandler.ListDocuments)
				})
				dr.Group(func(gr chi.Router) {
					gr.Use(authHandler.RequireEndpoint(EndpointReadGCSFiles))
					gr.Get("/files", documentHandler.ListGCSFiles)
				})
				dr.Group(func(gr chi.Router) {
					gr.Use(authHandler.RequireEndpoint(EndpointReadDocumentList))
					gr.Get("/list", documentHandler.DocumentList)
				})
				dr.Group(func(gr chi.Router) {
					gr.Use(authHandler.RequireEndpoint(EndpointReadSubjects))
					gr.Get("/subjects", documentHandler.Subjects)
				})
			})

			pr.Group(func(gr chi.Router) {
				gr.Use(authHandler.RequireEndpoint(EndpointGenerateMCQs))
				gr.Get("/assessments/mcqs", assessmentHandler.GenerateMCQs)
			})
		})
	})
}
