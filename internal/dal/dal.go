// Package dal maps each backend route onto a typed call through api.Client.
package dal

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/pkg/models"
)

// Service exposes the backend routes. It is safe for concurrent use.
type Service struct {
	client *api.Client
}

// New creates a Service that sends requests through client.
func New(client *api.Client) *Service {
	return &Service{client: client}
}

// Client returns the underlying API client.
func (s *Service) Client() *api.Client {
	return s.client
}

// WithToken returns a Service whose requests carry token, leaving s unchanged.
func (s *Service) WithToken(token string) *Service {
	return &Service{client: s.client.WithToken(token)}
}

var public = api.RequestConfig{SkipAuth: true}

func pageValues(p models.PageParams) url.Values {
	p = p.Normalize()
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

func (s *Service) post(ctx context.Context, path string, body any, cfg api.RequestConfig) error {
	cfg.Body = body
	return s.client.Do(ctx, http.MethodPost, path, cfg, nil)
}
