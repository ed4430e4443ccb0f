package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aignite/docqa-backend/internal"
	"github.com/aignite/docqa-backend/internal/assessment"
	"github.com/aignite/docqa-backend/internal/auth"
	authpg "github.com/aignite/docqa-backend/internal/auth/postgres"
	"github.com/aignite/docqa-backend/internal/dispatch"
	"github.com/aignite/docqa-backend/internal/docai"
	"github.com/aignite/docqa-backend/internal/document"
	docpg "github.com/aignite/docqa-backend/internal/document/postgres"
	"github.com/aignite/docqa-backend/internal/storage"
	"github.com/aignite/docqa-backend/internal/transport/rest"
	"github.com/aignite/docqa-backend/internal/user"
	userpg "github.com/aignite/docqa-backend/internal/user/postgres"
	"github.com/aignite/docqa-backend/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	GormDB     *gorm.DB
	Router     *chi.Mux
	Dispatcher *dispatch.Dispatcher
	Lister     *storage.GCSLister
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.Dispatcher.Shutdown()
		if deps.Lister != nil {
			_ = deps.Lister.Close()
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	db, gormDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	ctx := context.Background()

	authRepo := authpg.NewRepository(gormDB)
	userRepo := userpg.NewUserRepository(gormDB)
	docRepo := docpg.NewRepository(gormDB)

	permCache := auth.NewPermissionCache(authRepo, config.Security.PermissionTTL, lg)
	if err := permCache.Load(); err != nil {
		return nil, fmt.Errorf("failed to load endpoint permissions: %w", err)
	}

	tokenGen := auth.NewJWTTokenGenerator(config.Security.JWTSecret, config.Security.TokenDuration)
	authService := auth.NewService(authRepo, tokenGen, permCache, config.Security.BCryptCost, lg)
	userService := user.NewService(userRepo, authService, lg)

	lister, err := storage.NewGCSLister(ctx, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	aiClient, err := docai.NewClient(ctx, docai.Config{
		Provider:        config.AI.Provider,
		Model:           config.AI.Model,
		ProjectID:       config.GCS.ProjectID,
		Location:        config.GCS.Location,
		OpenAIAPIKey:    config.AI.OpenAIAPIKey,
		SessionCacheTTL: config.AI.SessionCacheTTL,
		SessionCacheMax: config.AI.SessionCacheMax,
	}, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		SelfBaseURL:  config.Dispatch.SelfBaseURL,
		MaxWorkers:   config.Dispatch.MaxWorkers,
		JobQueueSize: config.Dispatch.JobQueueSize,
		MaxRetries:   config.Dispatch.MaxRetries,
		RetryBackoff: config.Dispatch.RetryBackoff,
		HTTPTimeout:  config.Dispatch.HTTPTimeout,
	}, docRepo, lg)

	docService := document.NewService(docRepo, lister, aiClient, dispatcher, 24*time.Hour, lg)
	assessService := assessment.NewService(docRepo, aiClient, lg)

	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler(userService)
	docHandler := document.NewHandler(docService)
	assessHandler := assessment.NewHandler(assessService)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, authHandler, userHandler, docHandler, assessHandler, lg)

	return &Dependencies{
		Config:     config,
		DB:         db,
		GormDB:     gormDB,
		Router:     router,
		Dispatcher: dispatcher,
		Lister:     lister,
		Logger:     lg,
	}, nil
}

// initDB opens one pgx connection pool and hands the same pool to gorm so
// the health check and the repositories share it.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: dbConn.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return dbConn, gormDB, nil
}
