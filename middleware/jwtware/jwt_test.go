package jwtware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/middleware/jwtware"
)

const secret = "jwtware-test-secret-long-enough"

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	keys, err := auth.NewHMACKeys([]byte(secret), "test")
	require.NoError(t, err)
	return auth.NewTokenService(keys, "auth-service", []string{"auth-service"}, 600)
}

func issue(t *testing.T, ts *auth.TokenService, id int, role auth.Role) string {
	t.Helper()
	user := auth.NewUser("Ada", "Lovelace", "ada@example.com", time.Time{}).
		WithID(id).
		WithActivation(&role, true)
	bundle, err := ts.IssueAccessToken(user, false)
	require.NoError(t, err)
	return bundle.Token
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func bearer(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func TestNew_HeaderExtraction(t *testing.T) {
	ts := newTokens(t)
	app := fiber.New()
	app.Get("/", jwtware.New(jwtware.Config{Verifier: ts}), func(c *fiber.Ctx) error {
		claims, ok := jwtware.ClaimsFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.JSON(fiber.Map{
			"id":    claims.UID,
			"token": c.Locals(auth.LocalsTokenKey),
		})
	})

	token := issue(t, ts, 5, auth.RoleDriver)

	t.Run("valid token", func(t *testing.T) {
		status, body := send(t, app, bearer("/", token))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "5", body["id"])
		assert.Equal(t, token, body["token"])
	})

	t.Run("lower case scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "bearer "+token)
		status, _ := send(t, app, req)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("missing header", func(t *testing.T) {
		status, body := send(t, app, bearer("/", ""))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "MISSING_TOKEN", body["error"])
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Basic "+token)
		status, _ := send(t, app, req)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("invalid token", func(t *testing.T) {
		status, body := send(t, app, bearer("/", "not.a.token"))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, auth.TextCodeInvalidToken, body["error"])
	})

	t.Run("token from another issuer", func(t *testing.T) {
		keys, err := auth.NewHMACKeys([]byte(secret), "test")
		require.NoError(t, err)
		other := auth.NewTokenService(keys, "elsewhere", nil, 600)

		status, _ := send(t, app, bearer("/", issue(t, other, 5, auth.RoleDriver)))
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestRequireRoles(t *testing.T) {
	ts := newTokens(t)
	base := jwtware.Config{Verifier: ts}

	app := fiber.New()
	ok := func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) }
	app.Get("/staff", jwtware.RequireRoles(base, auth.RoleAdmin, auth.RoleManager), ok)
	app.Get("/any", jwtware.RequireRoles(base), ok)

	tests := []struct {
		path   string
		role   auth.Role
		status int
	}{
		{path: "/staff", role: auth.RoleAdmin, status: http.StatusNoContent},
		{path: "/staff", role: auth.RoleManager, status: http.StatusNoContent},
		{path: "/staff", role: auth.RoleDriver, status: http.StatusForbidden},
		{path: "/any", role: auth.RoleDriver, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.path+" "+tt.role.String(), func(t *testing.T) {
			status, _ := send(t, app, bearer(tt.path, issue(t, ts, 1, tt.role)))
			assert.Equal(t, tt.status, status)
		})
	}

	// RequireRoles copies the base config
	assert.Empty(t, base.AllowedRoles)
}

func TestNew_Lookups(t *testing.T) {
	ts := newTokens(t)
	token := issue(t, ts, 9, auth.RoleManager)

	app := fiber.New()
	mw := jwtware.New(jwtware.Config{
		Verifier:    ts,
		TokenLookup: "header:Authorization,cookie:jwt,query:auth_token",
	})
	app.Get("/", mw, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
		status, _ := send(t, app, req)
		assert.Equal(t, http.StatusNoContent, status)
	})

	t.Run("query", func(t *testing.T) {
		status, _ := send(t, app, httptest.NewRequest(http.MethodGet, "/?auth_token="+token, nil))
		assert.Equal(t, http.StatusNoContent, status)
	})

	t.Run("none", func(t *testing.T) {
		status, _ := send(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

type ctxKey struct{}

func TestNew_HooksAndFilter(t *testing.T) {
	ts := newTokens(t)
	token := issue(t, ts, 3, auth.RoleAdmin)
	errBlocked := errors.New("blocked")

	var enriched any
	app := fiber.New()
	app.Get("/", jwtware.New(jwtware.Config{
		Verifier: ts,
		Filter: func(c *fiber.Ctx) bool {
			return c.Query("skip") == "1"
		},
		ContextEnricher: func(ctx context.Context, claims *auth.AccessClaims) context.Context {
			return context.WithValue(ctx, ctxKey{}, claims.UID)
		},
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(c *fiber.Ctx, claims *auth.AccessClaims) error {
				if c.Query("block") == "1" {
					return errBlocked
				}
				return nil
			},
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, errBlocked) {
				return c.SendStatus(http.StatusTeapot)
			}
			return c.SendStatus(http.StatusUnauthorized)
		},
	}), func(c *fiber.Ctx) error {
		enriched = c.UserContext().Value(ctxKey{})
		return c.SendStatus(http.StatusNoContent)
	})

	status, _ := send(t, app, bearer("/", token))
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, "3", enriched)

	status, _ = send(t, app, bearer("/?block=1", token))
	assert.Equal(t, http.StatusTeapot, status)

	status, _ = send(t, app, bearer("/", "garbage"))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = send(t, app, bearer("/?skip=1", ""))
	assert.Equal(t, http.StatusNoContent, status)
}

func TestNew_RequiresVerifier(t *testing.T) {
	assert.Panics(t, func() { jwtware.New() })
}

func TestGetExtractors(t *testing.T) {
	assert.Len(t, jwtware.GetExtractors("header:Authorization, query:token ,bogus,param:id"), 3)
	assert.Empty(t, jwtware.GetExtractors(""))
}
