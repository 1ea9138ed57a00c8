package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/config"
)

type capturingMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *capturingMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[email] = token
	return nil
}

func (m *capturingMailer) token(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

func setupApp(t *testing.T) (*App, *capturingMailer) {
	t.Helper()

	raw, err := os.ReadFile("../../config/app.json")
	require.NoError(t, err)

	cfg := &config.BaseConfig{}
	require.NoError(t, json.Unmarshal(raw, cfg))
	cfg.Persistence.Driver = config.DriverSQLite
	cfg.Persistence.DSN = ":memory:"
	cfg.Persistence.MaxOpenConns = 1
	cfg.Persistence.MigrateOnStart = true
	cfg.Auth.BcryptCost = 4
	require.NoError(t, cfg.Validate())

	mailer := &capturingMailer{tokens: map[string]string{}}
	app := &App{cfg: cfg, logger: newLogger()}
	app.SetMailer(mailer)

	ctx := context.Background()
	for _, step := range []func(context.Context, *App) error{
		WithPersistence,
		WithRedis,
		WithServices,
		WithHTTPServer,
	} {
		require.NoError(t, step(ctx, app))
	}
	t.Cleanup(func() { _ = app.Close() })

	return app, mailer
}

func call(t *testing.T, app *App, method, path, bearer string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := app.srv.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func register(t *testing.T, app *App, first, email string) auth.UserInfo {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName": first,
		"lastName":  "Tester",
		"email":     email,
		"password":  "correct-horse",
		"birthDate": "1990-01-02",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[auth.UserInfo](t, body)
}

func login(t *testing.T, app *App, email, password string) (int, auth.TokenBundle) {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		return status, auth.TokenBundle{}
	}
	return status, decode[auth.TokenBundle](t, body)
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t)

	status, body := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestHealth_UsesPersistencePingTimeout(t *testing.T) {
	app, _ := setupApp(t)

	app.cfg.Persistence.PingTimeoutExpression = "1500ms"
	assert.Equal(t, 1500*time.Millisecond, app.healthTimeout())

	require.NoError(t, app.db.Close())
	status, body := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"status":"unavailable"}`, string(body))
}

func TestApprovalWorkflow(t *testing.T) {
	app, _ := setupApp(t)

	admin := register(t, app, "Ada", "ada@example.com")
	assert.Equal(t, "Admin", admin.Role)
	assert.True(t, admin.Status)

	driver := register(t, app, "Alan", "alan@example.com")
	assert.Equal(t, "Driver", driver.Role)
	assert.False(t, driver.Status)

	status, _ := login(t, app, "alan@example.com", "correct-horse")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, adminTokens := login(t, app, "ada@example.com", "correct-horse")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, adminTokens.RefreshToken)

	status, body := call(t, app, http.MethodGet, "/api/users/waiting-for-approval", adminTokens.Token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	pending := decode[auth.Page[auth.UserInfo]](t, body)
	require.Len(t, pending.Data, 1)
	assert.Equal(t, driver.ID, pending.Data[0].ID)

	status, body = call(t, app, http.MethodPost, "/api/users/"+itoa(driver.ID)+"/approve?roleId=2", adminTokens.Token, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = call(t, app, http.MethodPost, "/api/users/"+itoa(driver.ID)+"/approve", adminTokens.Token, nil)
	assert.Equal(t, http.StatusConflict, status, string(body))

	status, managerTokens := login(t, app, "alan@example.com", "correct-horse")
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, app, http.MethodGet, "/api/users/"+itoa(driver.ID), managerTokens.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Manager", decode[auth.UserInfo](t, body).Role)

	status, body = call(t, app, http.MethodDelete, "/api/users/"+itoa(admin.ID), managerTokens.Token, nil)
	assert.Equal(t, http.StatusForbidden, status, string(body))

	status, body = call(t, app, http.MethodGet, "/api/users?search=ADA", managerTokens.Token, nil)
	require.Equal(t, http.StatusOK, status)
	found := decode[auth.Page[auth.UserInfo]](t, body)
	assert.Equal(t, 1, found.Meta.TotalItems)
}

func TestUsersRoutesRequireBearer(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := call(t, app, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/users", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDriverCannotListPendingUsers(t *testing.T) {
	app, _ := setupApp(t)

	register(t, app, "Ada", "ada@example.com")
	driver := register(t, app, "Alan", "alan@example.com")

	_, adminTokens := login(t, app, "ada@example.com", "correct-horse")
	status, _ := call(t, app, http.MethodPost, "/api/users/"+itoa(driver.ID)+"/approve", adminTokens.Token, nil)
	require.Equal(t, http.StatusOK, status)

	_, driverTokens := login(t, app, "alan@example.com", "correct-horse")
	status, _ = call(t, app, http.MethodGet, "/api/users/waiting-for-approval", driverTokens.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRefreshAndLogout(t *testing.T) {
	app, _ := setupApp(t)
	register(t, app, "Ada", "ada@example.com")

	_, tokens := login(t, app, "ada@example.com", "correct-horse")

	status, body := call(t, app, http.MethodPost, "/api/auth/refreshToken", "", map[string]string{
		"refreshToken": tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	refreshed := decode[auth.TokenBundle](t, body)
	assert.NotEmpty(t, refreshed.Token)
	assert.Equal(t, tokens.RefreshToken, refreshed.RefreshToken)

	status, body = call(t, app, http.MethodPost, "/api/auth/logout", tokens.Token, map[string]string{
		"refreshToken": tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Logged out", decode[auth.MessageResponse](t, body).Message)

	status, _ = call(t, app, http.MethodPost, "/api/auth/refreshToken", "", map[string]string{
		"refreshToken": tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPasswordResetFlow(t *testing.T) {
	app, mailer := setupApp(t)
	register(t, app, "Ada", "ada@example.com")

	status, body := call(t, app, http.MethodPost, "/api/auth/forgotPassword", "", map[string]string{
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	token := mailer.token("ada@example.com")
	require.NotEmpty(t, token)

	status, body = call(t, app, http.MethodPost, "/api/auth/resetPassword", "", map[string]string{
		"token":       token,
		"newPassword": "battery-staple",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = login(t, app, "ada@example.com", "correct-horse")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = login(t, app, "ada@example.com", "battery-staple")
	assert.Equal(t, http.StatusOK, status)
}

func TestLoginThrottle(t *testing.T) {
	app, _ := setupApp(t)
	register(t, app, "Ada", "ada@example.com")

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		status, _ := login(t, app, "ada@example.com", "wrong-password")
		statuses = append(statuses, status)
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
	}, statuses)
}

func TestValidateTokenEndpoint(t *testing.T) {
	app, _ := setupApp(t)
	register(t, app, "Ada", "ada@example.com")
	_, tokens := login(t, app, "ada@example.com", "correct-horse")

	status, body := call(t, app, http.MethodPost, "/api/auth/validateToken", "", map[string]string{"token": tokens.Token})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[auth.ValidateTokenResponse](t, body).Valid)

	status, body = call(t, app, http.MethodPost, "/api/auth/validateToken", "", map[string]string{"token": "garbage"})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[auth.ValidateTokenResponse](t, body).Valid)
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
