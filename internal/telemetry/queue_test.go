package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedSink blocks every delivery until release is closed.
type gatedSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []ErrorReport
}

func (s *gatedSink) Report(ctx context.Context, r ErrorReport) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, r)
	return nil
}

func (s *gatedSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.got))
	for _, r := range s.got {
		out = append(out, r.Message)
	}
	return out
}

func TestQueue_ReportDoesNotBlock(t *testing.T) {
	sink := &gatedSink{release: make(chan struct{})}
	q := NewQueue(sink, 1)

	start := time.Now()
	// One report may be in flight in the worker, one sits in the buffer.
	for i := 0; i < 5; i++ {
		_ = q.Report(context.Background(), ErrorReport{Message: "boom"})
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, q.Dropped(), int64(3))

	close(sink.release)
	require.NoError(t, q.Close(context.Background()))
}

func TestQueue_FullBufferDrops(t *testing.T) {
	sink := &gatedSink{release: make(chan struct{})}
	q := NewQueue(sink, 1)
	defer func() {
		close(sink.release)
		_ = q.Close(context.Background())
	}()

	var full bool
	for i := 0; i < 10 && !full; i++ {
		full = q.Report(context.Background(), ErrorReport{Message: "boom"}) == ErrQueueFull
	}
	assert.True(t, full)
}

func TestQueue_CloseDeliversBuffered(t *testing.T) {
	sink := &gatedSink{release: make(chan struct{})}
	close(sink.release)
	q := NewQueue(sink, 8)

	require.NoError(t, q.Report(context.Background(), ErrorReport{Message: "first"}))
	require.NoError(t, q.Report(context.Background(), ErrorReport{Message: "second"}))
	require.NoError(t, q.Close(context.Background()))

	assert.Equal(t, []string{"first", "second"}, sink.messages())
	assert.ErrorIs(t, q.Report(context.Background(), ErrorReport{Message: "late"}), ErrQueueFull)
}

func TestQueue_CloseHonoursContext(t *testing.T) {
	sink := &gatedSink{release: make(chan struct{})}
	q := NewQueue(sink, 1)
	require.NoError(t, q.Report(context.Background(), ErrorReport{Message: "stuck"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)

	close(sink.release)
	require.NoError(t, q.Close(context.Background()))
}
