// Package session keeps backend tokens in a browser cookie session and serves
// them as API credentials for requests made on the signed-in user's behalf.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

const (
	// SessionName is the name of the session cookie.
	SessionName = "checkin_session"
	// AccessTokenKey is the session key for the backend access token.
	AccessTokenKey = "access_token"
	// RefreshTokenKey is the session key for the backend refresh token.
	RefreshTokenKey = "refresh_token"
	// ExpiresAtKey is the session key for the access token expiry (unix seconds).
	ExpiresAtKey = "expires_at"
)

var (
	// ErrNoRequest means the context carries no incoming request.
	ErrNoRequest = errors.New("no incoming request in context")
	// ErrNoToken means the session holds no access token.
	ErrNoToken = errors.New("no access token in session")
	// ErrTokenExpired means the stored access token is past its expiry.
	ErrTokenExpired = errors.New("access token expired")
)

// Config holds session store configuration.
type Config struct {
	Secret     []byte
	MaxAge     int  // seconds
	Secure     bool // require HTTPS
	HTTPOnly   bool // prevent JavaScript access
	SameSite   http.SameSite
	CookiePath string
}

// DefaultConfig returns a Config with secure defaults.
func DefaultConfig(secret []byte, secure bool) Config {
	return Config{
		Secret:     secret,
		MaxAge:     86400,
		Secure:     secure,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		CookiePath: "/",
	}
}

// Tokens is what a successful login or refresh leaves in the session.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds; 0 means unknown.
	ExpiresIn int
}

// Store wraps a gorilla/sessions cookie store.
type Store struct {
	store  *sessions.CookieStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates a new session store.
func NewStore(cfg Config, logger zerolog.Logger) (*Store, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}

	store := sessions.NewCookieStore(cfg.Secret)
	store.Options = &sessions.Options{
		Path:     cfg.CookiePath,
		MaxAge:   cfg.MaxAge,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}

	return &Store{
		store:  store,
		logger: logger.With().Str("component", "session").Logger(),
		now:    time.Now,
	}, nil
}

// Get retrieves the session from the request.
func (s *Store) Get(r *http.Request) (*sessions.Session, error) {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// SetTokens stores backend tokens in the session.
func (s *Store) SetTokens(r *http.Request, w http.ResponseWriter, t Tokens) error {
	session, err := s.Get(r)
	if err != nil {
		return err
	}
	session.Values[AccessTokenKey] = t.AccessToken
	session.Values[RefreshTokenKey] = t.RefreshToken
	if t.ExpiresIn > 0 {
		session.Values[ExpiresAtKey] = s.now().Add(time.Duration(t.ExpiresIn) * time.Second).Unix()
	} else {
		delete(session.Values, ExpiresAtKey)
	}
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token if it has not expired.
func (s *Store) AccessToken(r *http.Request) (string, error) {
	session, err := s.Get(r)
	if err != nil {
		return "", err
	}
	token, _ := session.Values[AccessTokenKey].(string)
	if token == "" {
		return "", ErrNoToken
	}
	if exp, ok := session.Values[ExpiresAtKey].(int64); ok && s.now().Unix() >= exp {
		return "", ErrTokenExpired
	}
	return token, nil
}

// RefreshToken returns the stored refresh token, if any.
func (s *Store) RefreshToken(r *http.Request) string {
	session, err := s.Get(r)
	if err != nil {
		return ""
	}
	token, _ := session.Values[RefreshTokenKey].(string)
	return token
}

// Clear removes tokens and expires the cookie (logout).
func (s *Store) Clear(r *http.Request, w http.ResponseWriter) error {
	session, err := s.Get(r)
	if err != nil {
		return err
	}
	delete(session.Values, AccessTokenKey)
	delete(session.Values, RefreshTokenKey)
	delete(session.Values, ExpiresAtKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

type requestKey struct{}

// WithRequest attaches the incoming request to ctx so a Provider can read
// its session cookie.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// RequestFromContext returns the request attached by WithRequest.
func RequestFromContext(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	return r, ok && r != nil
}

// Middleware attaches each incoming request to its own context.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequest(r.Context(), r)))
	})
}

// Provider serves the signed-in user's access token as API credentials.
type Provider struct {
	store *Store
}

// Provider returns a credential provider backed by this store.
func (s *Store) Provider() *Provider {
	return &Provider{store: s}
}

// Token reads the access token from the session of the request in ctx.
func (p *Provider) Token(ctx context.Context) (string, error) {
	r, ok := RequestFromContext(ctx)
	if !ok {
		return "", ErrNoRequest
	}
	token, err := p.store.AccessToken(r)
	if err != nil {
		p.store.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("no usable session token")
		return "", err
	}
	return token, nil
}
