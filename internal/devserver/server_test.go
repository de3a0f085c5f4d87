package devserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/internal/dal"
	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testTokenTTL = 72 * time.Hour

type testEnv struct {
	server *Server
	url    string
	svc    *dal.Service
	clock  *fakeClock
}

func newTestEnv(t *testing.T, reg *prometheus.Registry) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)}
	srv := New(Options{
		Logger:     zerolog.Nop(),
		TokenTTL:   testTokenTTL,
		BcryptCost: bcrypt.MinCost,
		Registry:   reg,
		Now:        clock.Now,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := api.NewClient(ts.URL, api.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	return &testEnv{server: srv, url: ts.URL, svc: dal.New(client), clock: clock}
}

// signUp registers and completes a profile, returning a service carrying the token.
func (e *testEnv) signUp(t *testing.T, email string, profile models.Profile) (*dal.Service, models.AuthResponse) {
	t.Helper()
	ctx := context.Background()
	_, err := e.svc.Register(ctx, models.BasicRegisterRequest{Email: email, Password: "password123"})
	require.NoError(t, err)
	resp, err := e.svc.CompleteRegistration(ctx, models.CompleteRegisterRequest{
		Email: email, Password: "password123", Profile: profile,
	})
	require.NoError(t, err)
	return e.svc.WithToken(resp.AccessToken), resp
}

func requireAPIError(t *testing.T, err error, status int, code string) *api.Error {
	t.Helper()
	apiErr, ok := api.AsError(err)
	require.True(t, ok, "expected *api.Error, got %v", err)
	assert.Equal(t, status, apiErr.StatusCode())
	assert.Equal(t, code, apiErr.Code())
	return apiErr
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, models.BasicRegisterRequest{Email: "Ada@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.Equal(t, int(testTokenTTL.Seconds()), reg.ExpiresIn)

	_, err = env.svc.Register(ctx, models.BasicRegisterRequest{Email: "ada@example.com", Password: "password123"})
	requireAPIError(t, err, http.StatusConflict, CodeEmailTaken)

	done, err := env.svc.CompleteRegistration(ctx, models.CompleteRegisterRequest{
		Email: "ada@example.com", Password: "password123",
		Profile: models.Profile{FirstName: "Ada", LastName: "Obi", Member: true},
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, done.User.ID)
	assert.Equal(t, "Ada", done.User.FirstName)

	_, err = env.svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	requireAPIError(t, err, http.StatusUnauthorized, CodeInvalidCredentials)
	_, err = env.svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	requireAPIError(t, err, http.StatusUnauthorized, CodeInvalidCredentials)

	login, err := env.svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := env.svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)

	_, err = env.svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	requireAPIError(t, err, http.StatusUnauthorized, CodeInvalidRefresh)

	authed := env.svc.WithToken(refreshed.AccessToken)
	require.NoError(t, authed.Logout(ctx))

	_, err = authed.ListUsers(ctx, models.PageParams{})
	requireAPIError(t, err, http.StatusUnauthorized, CodeUnauthorized)
}

func TestValidationFailures(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.Register(context.Background(), models.BasicRegisterRequest{Email: "not-an-email", Password: "short"})
	apiErr := requireAPIError(t, err, http.StatusUnprocessableEntity, CodeValidation)
	assert.True(t, api.IsValidationError(err))
	assert.ElementsMatch(t, []api.FieldError{
		{Field: "email", Message: "must be a valid email address"},
		{Field: "password", Message: "must be at least 8 characters"},
	}, apiErr.Details())

	_, err = env.svc.CompleteRegistration(context.Background(), models.CompleteRegisterRequest{
		Email: "a@b.co", Password: "password123",
	})
	apiErr = requireAPIError(t, err, http.StatusUnprocessableEntity, CodeValidation)
	assert.Equal(t, "Validation failed. fname: is required, lname: is required", api.DisplayMessage(apiErr))
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.ListUsers(ctx, models.PageParams{})
	requireAPIError(t, err, http.StatusUnauthorized, CodeUnauthorized)
	assert.True(t, api.IsAuthError(err))

	// X-Skip-Auth is not honoured on authenticated routes.
	err = env.svc.Client().Do(ctx, http.MethodGet, "/users", api.RequestConfig{SkipAuth: true}, nil)
	requireAPIError(t, err, http.StatusUnauthorized, CodeUnauthorized)

	_, err = env.svc.WithToken("made-up").GenerateQRCode(ctx, models.GenerateQRRequest{UserID: "u1"})
	requireAPIError(t, err, http.StatusUnauthorized, CodeUnauthorized)
}

func TestUserListing(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	authed, _ := env.signUp(t, "ada@example.com", models.Profile{FirstName: "Ada", LastName: "Obi", Gender: "female", Member: true})
	env.signUp(t, "ben@example.com", models.Profile{FirstName: "Ben", LastName: "Ade", Gender: "male", Visitor: true})
	env.signUp(t, "cara@example.com", models.Profile{FirstName: "Cara", LastName: "Lee", Gender: "female", Member: true})

	page, err := authed.ListUsers(ctx, models.PageParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Cara", page.Data[0].FirstName)
	assert.Equal(t, api.Pagination{Page: 2, Limit: 2, Total: 3, TotalPages: 2}, page.Pagination)

	found, err := authed.SearchUsers(ctx, models.SearchUserParams{Query: "ADE"})
	require.NoError(t, err)
	require.Len(t, found.Data, 1)
	assert.Equal(t, "Ben", found.Data[0].FirstName)
	assert.Equal(t, 10, found.Pagination.Limit)

	filtered, err := authed.FilterUsers(ctx, models.FilterUserParams{Field: "member", Value: "true"})
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Pagination.Total)

	_, err = authed.FilterUsers(ctx, models.FilterUserParams{Field: "password", Value: "x"})
	requireAPIError(t, err, http.StatusBadRequest, CodeInvalidFilter)
}

func TestQRCheckIn(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	authed, resp := env.signUp(t, "ada@example.com", models.Profile{FirstName: "Ada", LastName: "Obi", Member: true})

	qr, err := authed.GenerateQRCode(ctx, models.GenerateQRRequest{UserID: resp.User.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, qr.Token)
	assert.Equal(t, env.clock.Now().Add(DefaultQRTTL), qr.ExpiresAt)

	// Public route: no token needed.
	a, err := env.svc.QRCheckIn(ctx, models.QRCheckInRequest{QRCodeToken: qr.Token})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, a.UserID)
	assert.Equal(t, "Ada", a.User.FirstName)

	_, err = env.svc.QRCheckIn(ctx, models.QRCheckInRequest{QRCodeToken: qr.Token})
	requireAPIError(t, err, http.StatusConflict, CodeQRUsed)

	_, err = env.svc.QRCheckIn(ctx, models.QRCheckInRequest{QRCodeToken: "unknown"})
	requireAPIError(t, err, http.StatusNotFound, CodeQRNotFound)

	stale, err := authed.GenerateQRCode(ctx, models.GenerateQRRequest{UserID: resp.User.ID})
	require.NoError(t, err)
	env.clock.Advance(DefaultQRTTL + time.Second)
	_, err = env.svc.QRCheckIn(ctx, models.QRCheckInRequest{QRCodeToken: stale.Token})
	requireAPIError(t, err, http.StatusGone, CodeQRExpired)

	_, err = authed.GenerateQRCode(ctx, models.GenerateQRRequest{UserID: "missing"})
	requireAPIError(t, err, http.StatusNotFound, CodeUserNotFound)
}

func TestAttendanceHistoryAndAnalytics(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	authed, ada := env.signUp(t, "ada@example.com", models.Profile{FirstName: "Ada", LastName: "Obi", Member: true})
	_, ben := env.signUp(t, "ben@example.com", models.Profile{FirstName: "Ben", LastName: "Ade", Visitor: true})

	_, err := authed.CreateAttendance(ctx, models.CreateAttendanceRequest{UserID: ada.User.ID})
	require.NoError(t, err)
	env.clock.Advance(time.Hour)
	_, err = authed.CreateAttendance(ctx, models.CreateAttendanceRequest{UserID: ben.User.ID})
	require.NoError(t, err)
	_, err = authed.CreateAttendance(ctx, models.CreateAttendanceRequest{UserID: ada.User.ID})
	require.NoError(t, err)
	env.clock.Advance(24 * time.Hour)
	_, err = authed.CreateAttendance(ctx, models.CreateAttendanceRequest{UserID: ben.User.ID})
	require.NoError(t, err)

	_, err = authed.CreateAttendance(ctx, models.CreateAttendanceRequest{UserID: "missing"})
	requireAPIError(t, err, http.StatusNotFound, CodeUserNotFound)

	history, err := authed.AttendanceHistory(ctx, models.AttendanceHistoryParams{StartDate: "2026-03-01", EndDate: "2026-03-01"})
	require.NoError(t, err)
	assert.Equal(t, 3, history.Pagination.Total)
	require.Len(t, history.Data, 3)
	assert.Equal(t, ada.User.ID, history.Data[2].UserID, "oldest last")
	assert.Equal(t, 9, history.Data[2].CheckedInAt.Hour())

	all, err := authed.AttendanceHistory(ctx, models.AttendanceHistoryParams{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Pagination.Total)

	_, err = authed.AttendanceHistory(ctx, models.AttendanceHistoryParams{StartDate: "03/01/2026"})
	apiErr := requireAPIError(t, err, http.StatusUnprocessableEntity, CodeValidation)
	assert.Equal(t, []api.FieldError{{Field: "start_date", Message: "must be a date in YYYY-MM-DD format"}}, apiErr.Details())

	stats, err := authed.AttendanceAnalytics(ctx, models.AttendanceAnalyticsParams{Date: "2026-03-01"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAnalytics{
		Date:           "2026-03-01",
		TotalAttendees: 2,
		MembersCount:   1,
		VisitorsCount:  1,
		HourlyBreakdown: []models.HourlyCount{
			{Hour: 9, Count: 1},
			{Hour: 10, Count: 2},
		},
	}, stats)

	_, err = authed.AttendanceAnalytics(ctx, models.AttendanceAnalyticsParams{})
	requireAPIError(t, err, http.StatusUnprocessableEntity, CodeValidation)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "checkin_test_total", Help: "test"}))
	env := newTestEnv(t, reg)

	health, err := api.Get[map[string]string](context.Background(), env.svc.Client(), "/health", api.RequestConfig{SkipAuth: true})
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])

	resp, err := http.Get(env.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "checkin_test_total")
}
