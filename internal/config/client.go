// Package config provides configuration management for the checkin client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout is the absolute per-request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// DefaultConfigDir returns the default config directory (~/.checkin).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".checkin"), nil
}

// DefaultConfigPath returns the default config file path (~/.checkin/config.yml).
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// ClientConfig holds the client's configuration.
type ClientConfig struct {
	ServerURL      string `yaml:"server_url,omitempty"`
	AccessToken    string `yaml:"access_token,omitempty"`
	RefreshToken   string `yaml:"refresh_token,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`

	HTTPProxy   string `yaml:"http_proxy,omitempty"`
	HTTPSProxy  string `yaml:"https_proxy,omitempty"`
	NoProxy     string `yaml:"no_proxy,omitempty"`
	SOCKS5Proxy string `yaml:"socks5_proxy,omitempty"`

	// Service credentials, used instead of a stored access token when set.
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	Issuer       string `yaml:"issuer,omitempty"`
	TokenURL     string `yaml:"token_url,omitempty"`
}

// Validate checks that the configuration has required fields for operation.
func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("server_url must use http or https scheme")
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	return nil
}

// IsLoggedIn returns true if an access token has been stored.
func (c *ClientConfig) IsLoggedIn() bool {
	return c.AccessToken != ""
}

// Timeout returns the configured request timeout, falling back to DefaultTimeout.
func (c *ClientConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetProxyConfig returns the proxy settings, or nil when none are set.
func (c *ClientConfig) GetProxyConfig() *ProxyConfig {
	p := &ProxyConfig{
		HTTPProxy:   c.HTTPProxy,
		HTTPSProxy:  c.HTTPSProxy,
		NoProxy:     c.NoProxy,
		SOCKS5Proxy: c.SOCKS5Proxy,
	}
	if !p.HasProxy() {
		return nil
	}
	return p
}

// HasClientCredentials reports whether service credentials are configured.
// Either an OIDC issuer or an explicit token URL locates the token endpoint.
func (c *ClientConfig) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != "" && (c.Issuer != "" || c.TokenURL != "")
}

// ClearTokens forgets any stored credentials.
func (c *ClientConfig) ClearTokens() {
	c.AccessToken = ""
	c.RefreshToken = ""
}

// Load reads the configuration from the given path.
// If the file does not exist, an empty config is returned.
func Load(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClientConfig{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads the configuration from the default path.
func LoadDefault() (*ClientConfig, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the configuration to the given path, creating directories as needed.
func (c *ClientConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// Tokens live in this file, so user-only read/write.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// SaveDefault saves the configuration to the default path.
func (c *ClientConfig) SaveDefault() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.Save(path)
}
