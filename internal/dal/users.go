package dal

import (
	"context"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/pkg/models"
)

// SearchUsers runs a free-text search over users.
func (s *Service) SearchUsers(ctx context.Context, p models.SearchUserParams) (api.Paginated[models.User], error) {
	q := pageValues(p.PageParams)
	q.Set("q", p.Query)
	return api.Get[api.Paginated[models.User]](ctx, s.client, "/users/search", api.RequestConfig{Params: q})
}

// ListUsers returns one page of all users.
func (s *Service) ListUsers(ctx context.Context, p models.PageParams) (api.Paginated[models.User], error) {
	return api.Get[api.Paginated[models.User]](ctx, s.client, "/users", api.RequestConfig{Params: pageValues(p)})
}

// FilterUsers returns users whose field matches value.
func (s *Service) FilterUsers(ctx context.Context, p models.FilterUserParams) (api.Paginated[models.User], error) {
	q := pageValues(p.PageParams)
	q.Set("field", p.Field)
	q.Set("value", p.Value)
	return api.Get[api.Paginated[models.User]](ctx, s.client, "/users/filter", api.RequestConfig{Params: q})
}
