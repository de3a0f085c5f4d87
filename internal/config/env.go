package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// LoadEnvironment reads ENV, defaulting to development for unset or unknown values.
func LoadEnvironment() Environment {
	env := Environment(strings.ToLower(strings.TrimSpace(os.Getenv("ENV"))))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return env
	default:
		return EnvDevelopment
	}
}

// ApplyEnv overlays environment variables onto the file configuration.
// Unset variables leave the file values untouched.
func (c *ClientConfig) ApplyEnv() {
	if v := os.Getenv("CHECKIN_SERVER_URL"); v != "" {
		c.ServerURL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv("CHECKIN_ACCESS_TOKEN"); v != "" {
		c.AccessToken = v
	}
	if n := getEnvInt("CHECKIN_TIMEOUT_SECONDS", 0); n > 0 {
		c.TimeoutSeconds = n
	}
	if v := getEnvAny("HTTP_PROXY", "http_proxy"); v != "" {
		c.HTTPProxy = v
	}
	if v := getEnvAny("HTTPS_PROXY", "https_proxy"); v != "" {
		c.HTTPSProxy = v
	}
	if v := getEnvAny("NO_PROXY", "no_proxy"); v != "" {
		c.NoProxy = v
	}
	if v := getEnvAny("SOCKS5_PROXY", "socks5_proxy"); v != "" {
		c.SOCKS5Proxy = v
	}
	if v := os.Getenv("CHECKIN_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv("CHECKIN_CLIENT_SECRET"); v != "" {
		c.ClientSecret = v
	}
	if v := os.Getenv("CHECKIN_OIDC_ISSUER"); v != "" {
		c.Issuer = v
	}
	if v := os.Getenv("CHECKIN_TOKEN_URL"); v != "" {
		c.TokenURL = v
	}
}

// getEnvAny returns the first non-empty value among the given keys.
func getEnvAny(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// TelemetryEnabled reports whether production error forwarding is switched on (CHECKIN_TELEMETRY).
func TelemetryEnabled() bool {
	return getEnvBool("CHECKIN_TELEMETRY", false)
}

// TelemetryEndpoint returns the collector URL for error reports (CHECKIN_TELEMETRY_URL).
func TelemetryEndpoint() string {
	return strings.TrimSpace(os.Getenv("CHECKIN_TELEMETRY_URL"))
}
