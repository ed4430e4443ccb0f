package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Job is one background extraction request: call the processing endpoint
// for the file with the ingesting user's credentials.
type Job struct {
	GCSFileID int64
	UserID    int64
	Attempt   int
}

// TokenSource resolves the bearer token for the user who ingested a file.
type TokenSource interface {
	TokenForFile(gcsFileID int64) (token string, userID int64, err error)
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {

			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "gcs_file_id", job.GCSFileID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	SelfBaseURL  string
	MaxWorkers   int
	JobQueueSize int
	MaxRetries   int
	RetryBackoff time.Duration
	HTTPTimeout  time.Duration
}

// Dispatcher fans extraction jobs out to an in-process worker pool. Each
// job re-enters the service through the HTTP processing endpoint so
// background work passes the same auth gate as interactive calls. Failed
// jobs are retried with a fixed backoff; exhausted jobs land on the
// dead-letter list.
type Dispatcher struct {
	selfBaseURL  string
	tokens       TokenSource
	httpClient   *http.Client
	maxRetries   int
	retryBackoff time.Duration
	logger       *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once

	deadMu      sync.Mutex
	deadLetters []Job
}

func NewDispatcher(config Config, tokens TokenSource, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	retryBackoff := config.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = 2 * time.Second
	}

	httpTimeout := config.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}

	d := &Dispatcher{
		selfBaseURL:  config.SelfBaseURL,
		tokens:       tokens,
		httpClient:   &http.Client{Timeout: httpTimeout},
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		logger:       logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.startWorkerPool()

	return d
}

func (d *Dispatcher) startWorkerPool() {
	d.once.Do(func() {

		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.processJob)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("extraction worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:

			select {
			case jobChannel := <-d.workerPool:

				select {
				case jobChannel <- job:

				case <-d.ctx.Done():
					d.logger.Info("dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Enqueue queues one extraction job. A full queue rejects instead of
// blocking the caller.
func (d *Dispatcher) Enqueue(gcsFileID, userID int64) error {
	job := Job{GCSFileID: gcsFileID, UserID: userID}

	select {
	case d.jobQueue <- job:
		d.logger.Info("extraction job queued",
			"gcs_file_id", gcsFileID,
			"queue_length", len(d.jobQueue))
		return nil
	default:
		d.logger.Warn("job queue full, rejecting extraction job",
			"gcs_file_id", gcsFileID,
			"queue_capacity", cap(d.jobQueue))
		return fmt.Errorf("extraction queue full")
	}
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down extraction dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("extraction dispatcher shutdown complete")
}

// DeadLetters returns the jobs that exhausted their retries.
func (d *Dispatcher) DeadLetters() []Job {
	d.deadMu.Lock()
	defer d.deadMu.Unlock()
	out := make([]Job, len(d.deadLetters))
	copy(out, d.deadLetters)
	return out
}

func (d *Dispatcher) deadLetter(job Job, reason string) {
	d.deadMu.Lock()
	d.deadLetters = append(d.deadLetters, job)
	d.deadMu.Unlock()

	d.logger.Error("extraction job dead-lettered",
		"gcs_file_id", job.GCSFileID,
		"attempts", job.Attempt+1,
		"reason", reason)
}

func (d *Dispatcher) processJob(job Job) {
	token, _, err := d.tokens.TokenForFile(job.GCSFileID)
	if err != nil {
		// no valid session for the ingesting user, retrying cannot help
		d.deadLetter(job, fmt.Sprintf("no token for file: %v", err))
		return
	}

	status, err := d.callProcessEndpoint(job, token)
	switch {
	case err == nil && status == http.StatusOK:
		d.logger.Info("extraction job completed", "gcs_file_id", job.GCSFileID)
		return
	case err == nil && status == http.StatusNotFound:
		// the file row disappeared, retrying cannot help
		d.logger.Warn("extraction target not found, dropping job", "gcs_file_id", job.GCSFileID)
		return
	}

	reason := fmt.Sprintf("status %d", status)
	if err != nil {
		reason = err.Error()
	}

	if job.Attempt >= d.maxRetries {
		d.deadLetter(job, reason)
		return
	}

	d.logger.Warn("extraction job failed, retrying",
		"gcs_file_id", job.GCSFileID,
		"attempt", job.Attempt+1,
		"reason", reason)

	select {
	case <-time.After(d.retryBackoff):
	case <-d.ctx.Done():
		return
	}

	job.Attempt++
	select {
	case d.jobQueue <- job:
	default:
		d.deadLetter(job, "queue full on retry")
	}
}

func (d *Dispatcher) callProcessEndpoint(job Job, token string) (int, error) {
	url := fmt.Sprintf("%s/api/v1/documents/process?gcs_file_id=%d", d.selfBaseURL, job.GCSFileID)

	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create process request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("process request failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
