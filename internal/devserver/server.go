// Package devserver is an in-memory development backend that serves the
// check-in route surface with the standard response envelope.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Error codes returned by the development backend.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeEmailTaken         = "EMAIL_ALREADY_REGISTERED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidRefresh     = "INVALID_REFRESH_TOKEN"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidFilter      = "INVALID_FILTER_FIELD"
	CodeQRNotFound         = "QR_CODE_NOT_FOUND"
	CodeQRExpired          = "QR_CODE_EXPIRED"
	CodeQRUsed             = "QR_CODE_ALREADY_USED"
)

// ErrorCodes lists every code the development backend can return.
var ErrorCodes = []string{
	CodeUnauthorized,
	CodeValidation,
	CodeBadRequest,
	CodeEmailTaken,
	CodeInvalidCredentials,
	CodeInvalidRefresh,
	CodeUserNotFound,
	CodeInvalidFilter,
	CodeQRNotFound,
	CodeQRExpired,
	CodeQRUsed,
}

const (
	DefaultTokenTTL = time.Hour
	DefaultQRTTL    = 5 * time.Minute
)

// Options configures a Server.
type Options struct {
	Logger     zerolog.Logger
	TokenTTL   time.Duration
	QRTTL      time.Duration
	BcryptCost int
	// Registry, when set, is served on GET /metrics.
	Registry *prometheus.Registry
	Now      func() time.Time
}

// Server is the development backend.
type Server struct {
	store    *Store
	logger   zerolog.Logger
	tokenTTL time.Duration
	qrTTL    time.Duration
	engine   *gin.Engine
}

// New creates a Server with empty state.
func New(opts Options) *Server {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.QRTTL == 0 {
		opts.QRTTL = DefaultQRTTL
	}
	useJSONFieldNames()

	s := &Server{
		store:    NewStore(opts.BcryptCost, opts.Now),
		logger:   opts.Logger.With().Str("component", "devserver").Logger(),
		tokenTTL: opts.TokenTTL,
		qrTTL:    opts.QRTTL,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(opts.Logger))
	if opts.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}
	s.registerRoutes(r)
	s.engine = r
	return s
}

// Store exposes the server state, mainly for seeding in tests.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	auth := r.Group("/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/register/complete", s.completeRegistration)
		auth.POST("/login", s.login)
		auth.POST("/refresh", s.refreshToken)
		auth.POST("/logout", s.requireAuth(), s.logout)
	}

	users := r.Group("/users", s.requireAuth())
	{
		users.GET("", s.listUsers)
		users.GET("/search", s.searchUsers)
		users.GET("/filter", s.filterUsers)
	}

	attendance := r.Group("/attendance")
	{
		attendance.POST("/qr-checkin", s.qrCheckIn)
		attendance.POST("", s.requireAuth(), s.createAttendance)
		attendance.GET("/history", s.requireAuth(), s.attendanceHistory)
		attendance.GET("/analytics", s.requireAuth(), s.attendanceAnalytics)
	}

	r.POST("/qr/generate", s.requireAuth(), s.generateQRCode)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("development backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down development backend")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// GET /health
func (s *Server) health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "healthy"})
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, api.Envelope[any]{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string, details []api.FieldError) {
	c.AbortWithStatusJSON(status, api.Envelope[any]{
		Error: &api.ErrorInfo{Code: code, Message: message, Details: details},
	})
}

// failStore maps store errors onto response codes.
func (s *Server) failStore(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		fail(c, http.StatusConflict, CodeEmailTaken, "Email is already registered", nil)
	case errors.Is(err, ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", nil)
	case errors.Is(err, ErrUserNotFound):
		fail(c, http.StatusNotFound, CodeUserNotFound, "User not found", nil)
	case errors.Is(err, ErrInvalidToken):
		fail(c, http.StatusUnauthorized, CodeInvalidRefresh, "Invalid or expired refresh token", nil)
	case errors.Is(err, ErrQRNotFound):
		fail(c, http.StatusNotFound, CodeQRNotFound, "QR code not found", nil)
	case errors.Is(err, ErrQRExpired):
		fail(c, http.StatusGone, CodeQRExpired, "QR code has expired", nil)
	case errors.Is(err, ErrQRUsed):
		fail(c, http.StatusConflict, CodeQRUsed, "QR code has already been used", nil)
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled store error")
		fail(c, http.StatusInternalServerError, api.CodeServerError, "Internal server error", nil)
	}
}
