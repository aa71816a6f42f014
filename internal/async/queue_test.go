package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
	delay time.Duration
}

func (r *recordingUploader) Upload(ctx context.Context, path string) entity.UploadSummary {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return entity.UploadSummary{Success: true, TotalQuestions: 1}
}

func TestUploadQueue_DrainsOnShutdown(t *testing.T) {
	up := &recordingUploader{delay: 5 * time.Millisecond}
	var done sync.WaitGroup
	done.Add(5)
	q := NewUploadQueue(up, nil,
		WithWorkers(2),
		WithQueueSize(2),
		WithOnDone(func(Job, entity.UploadSummary) { done.Done() }),
	)

	for _, p := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	done.Wait()

	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}, up.paths)
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late.pdf"}), ErrQueueClosed)

	// second shutdown is a no-op
	q.Shutdown(ctx)
}

func TestUploadQueue_EnqueueHonorsContext(t *testing.T) {
	block := make(chan struct{})
	up := blockingUploader{block: block}
	q := NewUploadQueue(up, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(block)
		q.Shutdown(context.Background())
	}()

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "running.pdf"}))
	// wait until the worker has taken the first job
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "queued.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "overflow.pdf"}), context.DeadlineExceeded)
}

type blockingUploader struct{ block chan struct{} }

func (b blockingUploader) Upload(ctx context.Context, _ string) entity.UploadSummary {
	select {
	case <-b.block:
	case <-ctx.Done():
	}
	return entity.UploadSummary{}
}

func TestUploadQueue_TraceIDFromContext(t *testing.T) {
	up := &recordingUploader{}
	got := make(chan Job, 2)
	q := NewUploadQueue(up, nil, WithWorkers(1), WithOnDone(func(j Job, _ entity.UploadSummary) { got <- j }))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 0x0c, 1},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	traced := trace.ContextWithSpanContext(context.Background(), sc)

	require.NoError(t, q.Enqueue(traced, Job{Path: "traced.pdf"}))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "plain.pdf", TraceID: "given"}))
	q.Shutdown(context.Background())

	ids := map[string]string{}
	for i := 0; i < 2; i++ {
		j := <-got
		ids[j.Path] = j.TraceID
	}
	assert.Equal(t, sc.TraceID().String(), ids["traced.pdf"])
	assert.Equal(t, "given", ids["plain.pdf"])
}
