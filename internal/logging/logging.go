// Package logging builds the zerolog logger injected into the API client.
//
// The level threshold follows the environment: debug in development, info
// everywhere else. Events below the threshold are dropped by zerolog before
// any field is encoded. In production, error-level events are additionally
// queued for a telemetry.Sink and delivered off the logging goroutine.
package logging

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/MacJediWizard/checkin/internal/config"
	"github.com/MacJediWizard/checkin/internal/telemetry"
	"github.com/rs/zerolog"
)

// SourceAPI tags events emitted by the request pipeline.
const SourceAPI = "API"

// Options configures New.
type Options struct {
	Environment config.Environment
	// Output defaults to os.Stderr.
	Output io.Writer
	// Console enables human-readable output.
	Console bool
	// Sink receives production error events. Nil means telemetry.NopSink.
	Sink telemetry.Sink
	// QueueSize bounds undelivered reports; 0 means telemetry.DefaultQueueSize.
	QueueSize int
}

// FlushFunc delivers queued telemetry reports, giving up when ctx is done.
type FlushFunc func(ctx context.Context) error

func noFlush(context.Context) error { return nil }

// Level returns the threshold for an environment.
func Level(env config.Environment) zerolog.Level {
	if env == config.EnvDevelopment {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// New creates a leveled, timestamped logger. Call the returned FlushFunc
// before exit so queued error reports are not lost.
func New(opts Options) (zerolog.Logger, FlushFunc) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		Level(Level(opts.Environment)).
		With().Timestamp().Logger()

	if opts.Environment != config.EnvProduction || opts.Sink == nil {
		return logger, noFlush
	}
	if _, nop := opts.Sink.(telemetry.NopSink); nop {
		return logger, noFlush
	}

	queue := telemetry.NewQueue(opts.Sink, opts.QueueSize)
	return logger.Hook(sinkHook{queue: queue}), queue.Close
}

type reportErrKey struct{}

// withReportError attaches err to ctx for the telemetry hook.
func withReportError(ctx context.Context, err error) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, reportErrKey{}, err)
}

// sinkHook queues error-level events for telemetry. It never blocks.
type sinkHook struct {
	queue *telemetry.Queue
}

func (h sinkHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel {
		return
	}
	report := telemetry.ErrorReport{
		Level:      level.String(),
		Message:    msg,
		OccurredAt: time.Now().UTC(),
	}
	if err, ok := e.GetCtx().Value(reportErrKey{}).(error); ok && err != nil {
		report.Error = err.Error()
		var coded interface{ Code() string }
		if errors.As(err, &coded) {
			report.Code = coded.Code()
		}
		var status interface{ StatusCode() int }
		if errors.As(err, &status) {
			report.Status = status.StatusCode()
		}
	}
	// Dropped when the queue is full.
	_ = h.queue.Report(e.GetCtx(), report)
}

// APIRequest logs an outgoing request.
func APIRequest(l zerolog.Logger, method, path string, payload any) {
	l.Debug().
		Str("source", SourceAPI).
		Str("method", method).
		Str("path", path).
		Interface("payload", payload).
		Msgf("API Request: %s %s", method, path)
}

// APIResponse logs a received response.
func APIResponse(l zerolog.Logger, method, path string, status int, payload any) {
	l.Debug().
		Str("source", SourceAPI).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Interface("payload", payload).
		Msgf("API Response: %s %s - %d", method, path, status)
}

// APIError logs a failed request. The error's code and status travel with
// the telemetry report.
func APIError(ctx context.Context, l zerolog.Logger, method, path string, err error) {
	l.Error().
		Ctx(withReportError(ctx, err)).
		Err(err).
		Str("source", SourceAPI).
		Str("method", method).
		Str("path", path).
		Msgf("API Error: %s %s", method, path)
}
