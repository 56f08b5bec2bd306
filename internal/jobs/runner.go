package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cliplab/backend/internal/logging"
	"github.com/cliplab/backend/internal/models"
	"github.com/cliplab/backend/internal/repositories"
)

// ErrQueueBusy is returned when the job queue has no room left.
var ErrQueueBusy = errors.New("job queue busy")

// ErrUnknownOperation is returned for operations no handler is registered for.
var ErrUnknownOperation = errors.New("unknown operation")

var errRunnerClosed = errors.New("job runner closed")

// ProgressFunc lets a handler report its current milestone.
type ProgressFunc func(status string, current, total int)

// Handler executes one operation and returns its JSON-serializable result.
type Handler func(ctx context.Context, job models.Job, report ProgressFunc) (any, error)

// ArtifactStore persists a finished job's result payload and returns a URL
// where it can be fetched.
type ArtifactStore interface {
	StoreResult(ctx context.Context, jobID string, payload []byte) (string, error)
}

// RunnerConfig controls the concurrency characteristics of the runner.
type RunnerConfig struct {
	QueueSize  int
	Workers    int
	JobTimeout time.Duration
}

// Runner executes background jobs on a bounded worker pool, persisting every
// state transition through the job repository.
type Runner struct {
	repo     repositories.JobRepository
	store    ArtifactStore
	handlers map[string]Handler
	logger   *slog.Logger
	timeout  time.Duration

	jobs   chan models.Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRunner constructs the runner and starts its worker pool. The handler map
// must be complete at construction time.
func NewRunner(repo repositories.JobRepository, store ArtifactStore, handlers map[string]Handler, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{
		repo:     repo,
		store:    store,
		handlers: handlers,
		logger:   logger,
		timeout:  cfg.JobTimeout,
		jobs:     make(chan models.Job, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Supports reports whether a handler is registered for the operation.
func (r *Runner) Supports(operation string) bool {
	_, ok := r.handlers[operation]
	return ok
}

// Enqueue schedules a job for execution. It never blocks: a full queue fails
// fast with ErrQueueBusy so the caller can turn it into a retryable response.
func (r *Runner) Enqueue(ctx context.Context, job models.Job) error {
	if !r.Supports(job.Operation) {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, job.Operation)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return errRunnerClosed
	default:
	}

	select {
	case r.jobs <- job:
		return nil
	default:
		return ErrQueueBusy
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cancel()
		close(r.jobs)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case job, ok := <-r.jobs:
			if !ok {
				return
			}
			r.handleJob(job)
		}
	}
}

func (r *Runner) handleJob(job models.Job) {
	handler, ok := r.handlers[job.Operation]
	if !ok {
		r.recordFailure(job.ID, "operation is not supported")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	ctx = logging.WithLogger(ctx, r.logger.With("jobId", job.ID, "operation", job.Operation))
	ctx, span := logging.StartSpan(ctx, "jobs."+job.Operation)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job handler panicked", "jobId", job.ID, "operation", job.Operation, "panic", rec)
			r.recordFailure(job.ID, "internal error while processing the job")
		}
	}()

	report := func(status string, current, total int) {
		if err := r.repo.UpdateProgress(ctx, job.ID, status, current, total); err != nil {
			r.logger.Error("persist job progress", "jobId", job.ID, "error", err)
		}
	}

	result, err := handler(ctx, job, report)
	if err != nil {
		r.logger.Error("job failed", "jobId", job.ID, "operation", job.Operation, "error", err)
		r.recordFailure(job.ID, userMessage(err))
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		r.logger.Error("encode job result", "jobId", job.ID, "error", err)
		r.recordFailure(job.ID, "internal error while encoding the result")
		return
	}

	var resultURL string
	if r.store != nil {
		resultURL, err = r.store.StoreResult(ctx, job.ID, payload)
		if err != nil {
			// The result still lives in the database; a missing artifact
			// link is not worth failing the whole job over.
			r.logger.Error("store job artifact", "jobId", job.ID, "error", err)
			resultURL = ""
		}
	}

	if err := r.repo.MarkSuccess(ctx, job.ID, payload, resultURL); err != nil {
		r.logger.Error("mark job success", "jobId", job.ID, "error", err)
	}
}

func (r *Runner) recordFailure(jobID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.repo.MarkFailure(ctx, jobID, message); err != nil {
		r.logger.Error("mark job failure", "jobId", jobID, "error", err)
	}
}
