// Package api is the typed HTTP client for the attendance backend.
//
// Every backend response is an envelope {success, data, error}. Client.Do
// returns the decoded data on success and an *Error otherwise, whatever the
// failure: a logical failure in a 2xx response, a non-2xx status, a transport
// failure after the request was sent, or a request that could not be built.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MacJediWizard/checkin/internal/config"
	"github.com/MacJediWizard/checkin/internal/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Header and query names that make up the wire contract.
const (
	HeaderAuthorization = "Authorization"
	HeaderSkipAuth      = "X-Skip-Auth"
	HeaderRequestID     = "X-Request-ID"
	CacheBustParam      = "_t"
)

// Client sends requests to the backend. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialProvider
	logger      zerolog.Logger
	metrics     *Metrics
	now         func() time.Time
	headers     map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCredentials sets the bearer token source for authenticated requests.
func WithCredentials(p CredentialProvider) Option {
	return func(c *Client) { c.credentials = p }
}

// WithLogger sets the logger for request, response and error events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l.With().Str("component", "api_client").Logger() }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock overrides the time source used for the cache-bust parameter.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithDefaultHeader adds a header sent on every request. Per-call headers win.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) { c.headers[http.CanonicalHeaderKey(key)] = value }
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https scheme")
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: config.DefaultTimeout},
		logger:     zerolog.Nop(),
		now:        time.Now,
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithToken returns a copy of the client that authenticates with a fixed
// bearer token. The receiver is left untouched.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.headers = make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		cp.headers[k] = v
	}
	cp.credentials = StaticToken(token)
	return &cp
}

// Do sends one request and decodes the envelope's data into out.
// out may be nil when the caller does not need the data.
func (c *Client) Do(ctx context.Context, method, path string, cfg RequestConfig, out any) error {
	start := time.Now()

	req, err := c.newRequest(ctx, method, path, cfg)
	if err != nil {
		return c.fail(ctx, method, path, outcomeSetup, start, setupError(err))
	}

	logging.APIRequest(c.logger, method, path, cfg.Body)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(ctx, method, path, outcomeNetwork, start, networkError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ctx, method, path, outcomeNetwork, start, networkError(fmt.Errorf("read response: %w", err)))
	}

	var env rawEnvelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var info *ErrorInfo
		if decodeErr == nil {
			info = env.Error
		}
		return c.fail(ctx, method, path, outcomeServer, start, serverError(resp.StatusCode, info))
	}

	logging.APIResponse(c.logger, method, path, resp.StatusCode, responsePayload(body))

	if decodeErr != nil {
		return c.fail(ctx, method, path, outcomeLogical, start, newError(resp.StatusCode, ErrorInfo{
			Code:    CodeUnknownError,
			Message: "Malformed response from server",
		}, fmt.Errorf("decode envelope: %w", decodeErr)))
	}

	if !env.Success {
		info := ErrorInfo{Code: CodeUnknownError, Message: FallbackMessage}
		if env.Error != nil {
			info = *env.Error
		}
		return c.fail(ctx, method, path, outcomeLogical, start, newError(resp.StatusCode, info, nil))
	}

	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return c.fail(ctx, method, path, outcomeLogical, start, newError(resp.StatusCode, ErrorInfo{
				Code:    CodeUnknownError,
				Message: "Malformed response from server",
			}, fmt.Errorf("decode data: %w", err)))
		}
	}

	c.metrics.observe(method, outcomeSuccess, "", time.Since(start))
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, cfg RequestConfig) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse request URL: %w", err)
	}

	q := u.Query()
	for k, vs := range cfg.Params {
		q[k] = append([]string(nil), vs...)
	}
	// Always overrides a caller-supplied value.
	q.Set(CacheBustParam, strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	var body io.Reader
	if cfg.Body != nil {
		data, err := json.Marshal(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.New().String())
	}

	if cfg.SkipAuth {
		req.Header.Del(HeaderAuthorization)
		req.Header.Set(HeaderSkipAuth, "true")
		return req, nil
	}

	if req.Header.Get(HeaderAuthorization) == "" && c.credentials != nil {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			// The backend decides whether an anonymous request is acceptable.
			c.logger.Warn().Err(err).Str("path", path).Msg("failed to get credentials for request")
		} else if token != "" {
			req.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
	}

	return req, nil
}

func (c *Client) fail(ctx context.Context, method, path, outcome string, start time.Time, apiErr *Error) error {
	logging.APIError(ctx, c.logger, method, path, apiErr)
	c.metrics.observe(method, outcome, apiErr.Code(), time.Since(start))
	return apiErr
}

// responsePayload keeps valid JSON bodies structured in the log line.
func responsePayload(body []byte) any {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

// Get issues a GET and returns the envelope data.
func Get[T any](ctx context.Context, c *Client, path string, cfg RequestConfig) (T, error) {
	return call[T](ctx, c, http.MethodGet, path, cfg)
}

// Post issues a POST with body and returns the envelope data.
func Post[T any](ctx context.Context, c *Client, path string, body any, cfg RequestConfig) (T, error) {
	cfg.Body = body
	return call[T](ctx, c, http.MethodPost, path, cfg)
}

// Put issues a PUT with body and returns the envelope data.
func Put[T any](ctx context.Context, c *Client, path string, body any, cfg RequestConfig) (T, error) {
	cfg.Body = body
	return call[T](ctx, c, http.MethodPut, path, cfg)
}

// Patch issues a PATCH with body and returns the envelope data.
func Patch[T any](ctx context.Context, c *Client, path string, body any, cfg RequestConfig) (T, error) {
	cfg.Body = body
	return call[T](ctx, c, http.MethodPatch, path, cfg)
}

// Delete issues a DELETE and returns the envelope data.
func Delete[T any](ctx context.Context, c *Client, path string, cfg RequestConfig) (T, error) {
	cfg.Body = nil
	return call[T](ctx, c, http.MethodDelete, path, cfg)
}

func call[T any](ctx context.Context, c *Client, method, path string, cfg RequestConfig) (T, error) {
	var out T
	if err := c.Do(ctx, method, path, cfg, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
