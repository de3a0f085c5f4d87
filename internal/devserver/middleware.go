package devserver

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	userContextKey  = "devserver_user"
	tokenContextKey = "devserver_token"
)

// sensitiveParams lists query parameter names whose values are redacted from logs.
var sensitiveParams = map[string]bool{
	"token":         true,
	"refresh_token": true,
	"password":      true,
	"q":             true,
	"value":         true,
}

func redactQueryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	redacted := false
	for name, values := range params {
		if sensitiveParams[strings.ToLower(name)] {
			for i := range values {
				values[i] = "[REDACTED]"
			}
			redacted = true
		}
	}

	if !redacted {
		return rawQuery
	}
	return params.Encode()
}

// RequestLogger returns a middleware that logs HTTP requests using zerolog.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := redactQueryString(c.Request.URL.RawQuery)

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= 400 && status < 500 {
			event = log.Warn()
		} else if status >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetHeader(api.HeaderRequestID)).
			Int("body_size", c.Writer.Size()).
			Msg("request")
	}
}

// extractBearerToken returns the token from an Authorization header value,
// or "" if the header is not a Bearer token.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}

// requireAuth rejects requests without a valid access token.
// X-Skip-Auth does not bypass it.
func (s *Server) requireAuth() gin.HandlerFunc {
	log := s.logger.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader(api.HeaderAuthorization))
		if token == "" {
			log.Debug().
				Str("path", c.Request.URL.Path).
				Bool("skip_auth", c.GetHeader(api.HeaderSkipAuth) == "true").
				Msg("missing bearer token")
			fail(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required", nil)
			return
		}

		user, err := s.store.UserForToken(token)
		if err != nil {
			log.Debug().Str("path", c.Request.URL.Path).Msg("invalid access token")
			fail(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired access token", nil)
			return
		}

		c.Set(userContextKey, user)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

func currentUser(c *gin.Context) models.User {
	u, _ := c.Get(userContextKey)
	user, _ := u.(models.User)
	return user
}
