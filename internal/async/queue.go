// Package async runs document uploads on a bounded pool of background workers.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("upload queue is shutting down")

// Job is one document waiting to be uploaded.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string

	parent trace.SpanContext
}

var tracer = otel.Tracer("github.com/joseph-ayodele/questionnaire-tracker/internal/async")

// Uploader is the work each job runs.
type Uploader interface {
	Upload(ctx context.Context, path string) entity.UploadSummary
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

type UploadQueue struct {
	up      Uploader
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Job, entity.UploadSummary)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*UploadQueue)

func WithWorkers(n int) Option {
	return func(q *UploadQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *UploadQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *UploadQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback run by the worker after each job.
func WithOnDone(f func(Job, entity.UploadSummary)) Option {
	return func(q *UploadQueue) { q.onDone = f }
}

var _ Queue = (*UploadQueue)(nil)

func NewUploadQueue(up Uploader, logger *slog.Logger, opts ...Option) *UploadQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &UploadQueue{
		up:      up,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *UploadQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.start", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("async.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *UploadQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.parent.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, job.parent)
	}
	ctx, span := tracer.Start(ctx, "async.upload", trace.WithAttributes(
		attribute.String("upload.path", job.Path),
		attribute.Int("async.worker_id", workerID),
	))
	defer span.End()

	start := time.Now()
	sum := q.up.Upload(ctx, job.Path)
	span.SetAttributes(attribute.Bool("upload.success", sum.Success), attribute.Int("upload.questions", sum.TotalQuestions))

	attrs := []any{
		"worker_id", workerID,
		"path", job.Path,
		"trace_id", job.TraceID,
		"job_id", sum.JobID,
		"wait_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if sum.Success {
		q.logger.Info("async.upload.ok", append(attrs, "country", sum.Country, "questions", sum.TotalQuestions)...)
	} else {
		q.logger.Warn("async.upload.failed", append(attrs, "message", sum.Message)...)
	}
	if q.onDone != nil {
		q.onDone(job, sum)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *UploadQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	// jobs enqueued inside a traced request keep that trace
	job.parent = trace.SpanContextFromContext(ctx)
	if job.TraceID == "" {
		if job.parent.HasTraceID() {
			job.TraceID = job.parent.TraceID().String()
		} else {
			job.TraceID = uuid.NewString()
		}
	}
	select {
	case q.ch <- job:
		q.logger.Info("async.enqueue.ok", "path", job.Path, "trace_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("async.enqueue.backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx to end.
func (q *UploadQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
