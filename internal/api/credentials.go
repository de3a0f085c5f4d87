package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoCredentials is returned by a provider that has no token to offer.
var ErrNoCredentials = errors.New("no credentials available")

// CredentialProvider supplies the bearer token for authenticated requests.
//
// The call site picks the implementation for its execution context: a
// browser-session provider when acting for a signed-in user, a token source
// when acting as a service, a static token for tools and tests.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, error)

// Token implements CredentialProvider.
func (f CredentialFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken always returns the same token.
type StaticToken string

// Token implements CredentialProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

// TokenSourceProvider serves tokens from an oauth2.TokenSource, caching them
// until they expire.
type TokenSourceProvider struct {
	src oauth2.TokenSource
}

// NewTokenSourceProvider wraps src with expiry-aware caching.
func NewTokenSourceProvider(src oauth2.TokenSource) *TokenSourceProvider {
	return &TokenSourceProvider{src: oauth2.ReuseTokenSource(nil, src)}
}

// Token implements CredentialProvider.
func (p *TokenSourceProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.src.Token()
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if !tok.Valid() {
		return "", ErrNoCredentials
	}
	return tok.AccessToken, nil
}

// ClientCredentialsConfig configures a service identity for server-side calls.
type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	// TokenURL is used as-is when set; otherwise it is discovered from Issuer.
	TokenURL string
	Issuer   string
	Scopes   []string
}

// NewClientCredentialsProvider builds a provider using the OAuth2 client
// credentials grant. hc may be nil.
//
// ctx is used for discovery; token refreshes run detached from its
// cancellation so the provider can outlive the call that built it.
func NewClientCredentialsProvider(ctx context.Context, cfg ClientCredentialsConfig, hc *http.Client) (*TokenSourceProvider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client_id is required")
	}
	if hc != nil {
		ctx = oidc.ClientContext(ctx, hc)
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		if cfg.Issuer == "" {
			return nil, errors.New("either token_url or issuer is required")
		}
		provider, err := oidc.NewProvider(ctx, cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("discover token endpoint: %w", err)
		}
		tokenURL = provider.Endpoint().TokenURL
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       cfg.Scopes,
	}
	return &TokenSourceProvider{src: cc.TokenSource(context.WithoutCancel(ctx))}, nil
}
