package dal

import (
	"context"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/pkg/models"
)

// Register performs the first registration step.
func (s *Service) Register(ctx context.Context, req models.BasicRegisterRequest) (models.AuthResponse, error) {
	return api.Post[models.AuthResponse](ctx, s.client, "/auth/register", req, public)
}

// CompleteRegistration submits the full member profile.
func (s *Service) CompleteRegistration(ctx context.Context, req models.CompleteRegisterRequest) (models.AuthResponse, error) {
	return api.Post[models.AuthResponse](ctx, s.client, "/auth/register/complete", req, public)
}

// Login exchanges credentials for a token pair.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (models.AuthResponse, error) {
	return api.Post[models.AuthResponse](ctx, s.client, "/auth/login", req, public)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (s *Service) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (models.AuthResponse, error) {
	return api.Post[models.AuthResponse](ctx, s.client, "/auth/refresh", req, public)
}

// Logout ends the authenticated session on the backend.
func (s *Service) Logout(ctx context.Context) error {
	return s.post(ctx, "/auth/logout", nil, api.RequestConfig{})
}
