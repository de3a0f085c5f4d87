package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := counter.WithLabelValues(labels...).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func getHistogramCount(t *testing.T, hist *prometheus.HistogramVec, label string) uint64 {
	t.Helper()
	var m dto.Metric
	if err := hist.WithLabelValues(label).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_RecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "QR_EXPIRED")
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	okServer, _ := newFakeBackend(t, http.StatusOK, `{"success":true}`)
	failServer, _ := newFakeBackend(t, http.StatusOK, `{"success":false,"error":{"code":"QR_EXPIRED","message":"expired"}}`)
	oddServer, _ := newFakeBackend(t, http.StatusConflict, `{"success":false,"error":{"code":"SOMETHING_NEW","message":"new"}}`)

	ok := newTestClient(t, okServer.URL, WithMetrics(m))
	fail := newTestClient(t, failServer.URL, WithMetrics(m))

	_ = ok.Do(context.Background(), http.MethodGet, "/users", RequestConfig{}, nil)
	_ = ok.Do(context.Background(), http.MethodGet, "/users", RequestConfig{}, nil)
	_ = fail.Do(context.Background(), http.MethodPost, "/attendance/qr-checkin", RequestConfig{SkipAuth: true}, nil)
	_ = ok.Do(context.Background(), "BAD METHOD", "/users", RequestConfig{}, nil)
	_ = newTestClient(t, oddServer.URL, WithMetrics(m)).Do(context.Background(), http.MethodGet, "/users", RequestConfig{}, nil)

	if got := getCounterValue(t, m.Requests, "GET", outcomeSuccess); got != 2 {
		t.Errorf("expected 2 successful GETs, got %f", got)
	}
	if got := getCounterValue(t, m.Requests, "POST", outcomeLogical); got != 1 {
		t.Errorf("expected 1 logical failure, got %f", got)
	}
	if got := getCounterValue(t, m.Requests, "BAD METHOD", outcomeSetup); got != 1 {
		t.Errorf("expected 1 setup failure, got %f", got)
	}
	if got := getCounterValue(t, m.Errors, "QR_EXPIRED"); got != 1 {
		t.Errorf("expected 1 QR_EXPIRED error, got %f", got)
	}
	if got := getCounterValue(t, m.Errors, otherCode); got != 1 {
		t.Errorf("expected 1 unknown code recorded as other, got %f", got)
	}
	if got := getCounterValue(t, m.Errors, CodeUnknownError); got != 1 {
		t.Errorf("expected 1 UNKNOWN_ERROR from the setup failure, got %f", got)
	}
	if got := getHistogramCount(t, m.Duration, "GET"); got != 3 {
		t.Errorf("expected 3 GET duration samples, got %d", got)
	}
}

func TestMetrics_UnknownCodesShareOneSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	for _, code := range []string{"A", "B", "C", CodeNetworkError} {
		m.observe("GET", outcomeLogical, code, 0)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var series int
	for _, f := range families {
		if f.GetName() == "checkin_api_errors_total" {
			series = len(f.GetMetric())
		}
	}
	if series != 2 {
		t.Errorf("expected 2 code series (other, NETWORK_ERROR), got %d", series)
	}
	if got := getCounterValue(t, m.Errors, otherCode); got != 3 {
		t.Errorf("expected 3 observations under other, got %f", got)
	}
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Error("expected error registering collectors twice")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.observe("GET", outcomeSuccess, "", 0)
}
