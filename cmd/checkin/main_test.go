package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/internal/config"
	"github.com/MacJediWizard/checkin/internal/devserver"
	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type cliEnv struct {
	serverURL  string
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("ENV", "development")
	for _, k := range []string{
		"CHECKIN_SERVER_URL", "CHECKIN_ACCESS_TOKEN", "CHECKIN_CLIENT_ID", "CHECKIN_TELEMETRY",
		"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy", "SOCKS5_PROXY", "socks5_proxy",
	} {
		t.Setenv(k, "")
	}

	srv := devserver.New(devserver.Options{Logger: zerolog.Nop(), BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &cliEnv{
		serverURL:  ts.URL,
		configPath: filepath.Join(t.TempDir(), "config.yml"),
	}
}

// run executes the CLI with the env's config file and returns stdout.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath, "-q"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

func TestCLI_EndToEnd(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "config", "set-server", env.serverURL+"/")
	require.NoError(t, err)
	assert.Contains(t, out, env.serverURL)

	cfg, err := config.Load(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, env.serverURL, cfg.ServerURL)

	out, err = env.run(t, "", "register",
		"--email", "ada@example.com", "--password", "password123",
		"--first-name", "Ada", "--last-name", "Obi", "--member")
	require.NoError(t, err)
	user := decode[models.User](t, out)
	assert.Equal(t, "Ada", user.FirstName)
	assert.True(t, user.Member)

	cfg, err = config.Load(env.configPath)
	require.NoError(t, err)
	assert.True(t, cfg.IsLoggedIn())
	assert.NotEmpty(t, cfg.RefreshToken)

	out, err = env.run(t, "", "users", "list")
	require.NoError(t, err)
	page := decode[api.Paginated[models.User]](t, out)
	assert.Equal(t, 1, page.Pagination.Total)

	out, err = env.run(t, "", "users", "search", "obi")
	require.NoError(t, err)
	assert.Len(t, decode[api.Paginated[models.User]](t, out).Data, 1)

	out, err = env.run(t, "", "users", "filter", "member", "false")
	require.NoError(t, err)
	assert.Empty(t, decode[api.Paginated[models.User]](t, out).Data)

	out, err = env.run(t, "", "qr", "generate", user.ID)
	require.NoError(t, err)
	qr := decode[models.QRCode](t, out)
	require.NotEmpty(t, qr.Token)

	out, err = env.run(t, "", "attendance", "checkin", qr.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, decode[models.Attendance](t, out).UserID)

	out, err = env.run(t, "", "attendance", "create", user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, decode[models.Attendance](t, out).UserID)

	today := time.Now().UTC().Format("2006-01-02")
	out, err = env.run(t, "", "attendance", "history", "--from", today, "--to", today)
	require.NoError(t, err)
	assert.Equal(t, 2, decode[api.Paginated[models.Attendance]](t, out).Pagination.Total)

	out, err = env.run(t, "", "attendance", "analytics", "--date", today)
	require.NoError(t, err)
	stats := decode[models.AttendanceAnalytics](t, out)
	assert.Equal(t, 1, stats.TotalAttendees)
	assert.Equal(t, 1, stats.MembersCount)

	out, err = env.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	cfg, err = config.Load(env.configPath)
	require.NoError(t, err)
	assert.False(t, cfg.IsLoggedIn())
	assert.Equal(t, env.serverURL, cfg.ServerURL)

	_, err = env.run(t, "", "users", "list")
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))

	// Password prompted on stdin.
	out, err = env.run(t, "password123\n", "login", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, decode[models.User](t, out).ID)
}

func TestCLI_RefreshRotatesTokens(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "config", "set-server", env.serverURL)
	require.NoError(t, err)
	out, err := env.run(t, "", "register", "--email", "ben@example.com", "--password", "password123")
	require.NoError(t, err)
	user := decode[models.User](t, out)

	before, err := config.Load(env.configPath)
	require.NoError(t, err)

	out, err = env.run(t, "", "refresh")
	require.NoError(t, err)
	assert.Equal(t, user.ID, decode[models.User](t, out).ID)

	after, err := config.Load(env.configPath)
	require.NoError(t, err)
	assert.NotEmpty(t, after.AccessToken)
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
	assert.Equal(t, env.serverURL, after.ServerURL)

	_, err = env.run(t, "", "users", "list")
	require.NoError(t, err)

	// The previous refresh token was consumed by the rotation.
	after.RefreshToken = before.RefreshToken
	require.NoError(t, after.Save(env.configPath))
	_, err = env.run(t, "", "refresh")
	require.Error(t, err)
	assert.True(t, api.IsAPIError(err, devserver.CodeInvalidRefresh))

	_, err = env.run(t, "", "logout")
	require.NoError(t, err)
	_, err = env.run(t, "", "refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no refresh token stored")
}

func TestCLI_MetricsFile(t *testing.T) {
	env := newCLIEnv(t)
	metricsPath := filepath.Join(t.TempDir(), "checkin.prom")

	_, err := env.run(t, "", "config", "set-server", env.serverURL)
	require.NoError(t, err)

	_, err = env.run(t, "", "--metrics-file", metricsPath, "users", "list")
	require.Error(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `checkin_api_requests_total{method="GET",outcome="server_error"} 1`)
	assert.Contains(t, text, `checkin_api_errors_total{code="UNAUTHORIZED"} 1`)
}

func TestCLI_LoginFailureShowsBackendMessage(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "--server", env.serverURL, "login", "--email", "nobody@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", api.DisplayMessage(err))

	_, err = env.run(t, "", "--server", env.serverURL, "register", "--email", "bad", "--password", "x")
	require.Error(t, err)
	assert.True(t, api.IsValidationError(err))
	assert.Contains(t, api.DisplayMessage(err), "email: must be a valid email address")
}

func TestCLI_RequiresServer(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "users", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_url is required")
}

func TestCLI_ConfigPathAndVersion(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, env.configPath+"\n", out)

	out, err = env.run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "checkin dev")

	_, err = env.run(t, "", "config", "set-server", "ftp://example.com")
	assert.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"short", "****"},
		{"abcdefghijklmnop", "abcd...mnop"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.token); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}
