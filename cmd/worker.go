package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aignite/docqa-backend/internal/dispatch"
	docpg "github.com/aignite/docqa-backend/internal/document/postgres"
	"github.com/aignite/docqa-backend/pkg/logger"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for background jobs",
	Long:  `Start and manage worker pools for background document extraction.`,
}

// Extraction worker command
var extractionWorkerCmd = &cobra.Command{
	Use:   "extraction",
	Short: "Start the extraction sweep worker",
	Long:  `Periodically finds gcs files without extraction results and queues them for processing`,
	Run: func(cmd *cobra.Command, args []string) {
		startExtractionWorker()
	},
}

var (
	maxWorkers    int
	jobQueueSize  int
	sweepInterval time.Duration
	sweepBatch    int
)

func startExtractionWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	_, gormDB, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	docRepo := docpg.NewRepository(gormDB)

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		SelfBaseURL:  config.Dispatch.SelfBaseURL,
		MaxWorkers:   getIntFlag(maxWorkers, config.Dispatch.MaxWorkers),
		JobQueueSize: getIntFlag(jobQueueSize, config.Dispatch.JobQueueSize),
		MaxRetries:   config.Dispatch.MaxRetries,
		RetryBackoff: config.Dispatch.RetryBackoff,
		HTTPTimeout:  config.Dispatch.HTTPTimeout,
	}, docRepo, lg)

	lg.Info("extraction worker started",
		"sweep_interval", sweepInterval,
		"sweep_batch", sweepBatch)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	sweep := func() {
		files, err := docRepo.FilesMissingDetails(sweepBatch)
		if err != nil {
			lg.Error("sweep query failed", "error", err)
			return
		}
		for _, f := range files {
			if err := dispatcher.Enqueue(f.ID, 0); err != nil {
				lg.Warn("sweep enqueue rejected", "gcs_file_id", f.ID, "error", err)
				return
			}
		}
		if len(files) > 0 {
			lg.Info("sweep queued pending files", "count", len(files))
		}
	}

	sweep()

	for {
		select {
		case <-ticker.C:
			sweep()
		case sig := <-sigChan:
			lg.Info("received signal, shutting down extraction worker", "signal", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			shutdownDone := make(chan struct{})
			go func() {
				dispatcher.Shutdown()
				close(shutdownDone)
			}()

			select {
			case <-shutdownDone:
				lg.Info("extraction worker shutdown complete")
			case <-ctx.Done():
				lg.Warn("shutdown timeout reached, forcing exit")
			}
			return
		}
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	extractionWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	extractionWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	extractionWorkerCmd.Flags().DurationVar(&sweepInterval, "sweep-interval", 5*time.Minute, "How often to look for unprocessed files")
	extractionWorkerCmd.Flags().IntVar(&sweepBatch, "sweep-batch", 50, "Maximum files queued per sweep")

	workerCmd.AddCommand(extractionWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
