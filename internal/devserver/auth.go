package devserver

import (
	"errors"
	"net/http"

	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) authResponse(user models.User, access, refresh string) models.AuthResponse {
	return models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
		ExpiresIn:    int(s.tokenTTL.Seconds()),
	}
}

func (s *Server) issue(c *gin.Context, status int, user models.User) {
	access, refresh := s.store.IssueTokens(user.ID, s.tokenTTL)
	ok(c, status, s.authResponse(user, access, refresh))
}

// POST /auth/register
func (s *Server) register(c *gin.Context) {
	var req models.BasicRegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.store.CreateUser(req.Email, req.Password, models.Profile{})
	if err != nil {
		s.failStore(c, err)
		return
	}
	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	s.issue(c, http.StatusCreated, user)
}

// POST /auth/register/complete
func (s *Server) completeRegistration(c *gin.Context) {
	var req models.CompleteRegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.store.CompleteUser(req.Email, req.Password, req.Profile)
	if err != nil {
		s.failStore(c, err)
		return
	}
	s.logger.Info().Str("user_id", user.ID).Msg("registration completed")
	s.issue(c, http.StatusOK, user)
}

// POST /auth/login
func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.store.Authenticate(req.Email, req.Password)
	if errors.Is(err, ErrUserNotFound) {
		err = ErrInvalidCredentials
	}
	if err != nil {
		s.failStore(c, err)
		return
	}
	s.issue(c, http.StatusOK, user)
}

// POST /auth/refresh
func (s *Server) refreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	user, access, refresh, err := s.store.Rotate(req.RefreshToken, s.tokenTTL)
	if err != nil {
		s.failStore(c, err)
		return
	}
	ok(c, http.StatusOK, s.authResponse(user, access, refresh))
}

// POST /auth/logout
func (s *Server) logout(c *gin.Context) {
	s.store.Revoke(c.GetString(tokenContextKey))
	ok(c, http.StatusOK, nil)
}
