// Package telemetry forwards production error reports to an external collector.
//
// Reporting is opt-in. A report carries the log message, level, time, the API
// error code and status when known, and an anonymous per-process instance ID.
// Request payloads and tokens are never sent.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SendTimeout bounds a single report delivery.
const SendTimeout = 5 * time.Second

// ErrorReport is the payload delivered to the collector.
type ErrorReport struct {
	InstanceID string    `json:"instance_id"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	Code       string    `json:"code,omitempty"`
	Status     int       `json:"status,omitempty"`
	Version    string    `json:"version,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink receives error reports.
type Sink interface {
	Report(ctx context.Context, report ErrorReport) error
}

// NopSink discards every report. It is the default until a collector is configured.
type NopSink struct{}

// Report implements Sink.
func (NopSink) Report(context.Context, ErrorReport) error { return nil }

// HTTPSink posts reports as JSON to an HTTP endpoint.
type HTTPSink struct {
	endpoint   string
	version    string
	instanceID string
	client     *http.Client
}

// NewHTTPSink creates a sink posting to endpoint.
func NewHTTPSink(endpoint, version string) *HTTPSink {
	return &HTTPSink{
		endpoint:   endpoint,
		version:    version,
		instanceID: uuid.New().String(),
		client: &http.Client{
			Timeout: SendTimeout,
		},
	}
}

// InstanceID returns the anonymous identifier attached to every report.
func (s *HTTPSink) InstanceID() string {
	return s.instanceID
}

// Report implements Sink.
func (s *HTTPSink) Report(ctx context.Context, report ErrorReport) error {
	if report.InstanceID == "" {
		report.InstanceID = s.instanceID
	}
	if report.Version == "" {
		report.Version = s.version
	}
	if report.OccurredAt.IsZero() {
		report.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal error report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("checkin/%s", s.version))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
