package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/logger"
	"foodorder/internal/middleware"
	"foodorder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier map[string]services.Identity

func (v staticVerifier) Verify(_ context.Context, token string) (services.Identity, error) {
	return v[token], nil
}

func newTestApp(routes func(app *fiber.App)) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusTeapot).SendString(string(apperr.KindOf(err)))
		},
	})
	routes(app)
	return app
}

func forwarder() *services.AuthorizationForwarder {
	verifier := staticVerifier{
		"cust": {Valid: true, UserID: "u1", Roles: []string{"customer"}},
		"chef": {Valid: true, UserID: "r1", Roles: []string{"restaurant"}},
	}
	return services.NewAuthorizationForwarder(verifier, services.UpstreamPolicy{Timeout: time.Second})
}

func call(t *testing.T, app *fiber.App, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(func(app *fiber.App) {
		app.Get("/", middleware.AuthRequired(forwarder()), func(c *fiber.Ctx) error {
			p, ok := middleware.PrincipalFrom(c)
			if !ok {
				return fiber.ErrInternalServerError
			}
			return c.SendString(p.UserID + "|" + services.CredentialFromContext(c.UserContext()))
		})
	})

	status, body := call(t, app, "Bearer cust")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1|Bearer cust", body)

	_, body = call(t, app, "")
	assert.Equal(t, string(apperr.KindUnauthenticated), body)

	_, body = call(t, app, "Bearer unknown")
	assert.Equal(t, string(apperr.KindInvalidCredential), body)
}

func TestRequireRole(t *testing.T) {
	app := newTestApp(func(app *fiber.App) {
		app.Get("/", middleware.AuthRequired(forwarder()), middleware.RequireRole("restaurant", "admin"), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		})
	})

	status, _ := call(t, app, "Bearer chef")
	assert.Equal(t, http.StatusNoContent, status)

	_, body := call(t, app, "Bearer cust")
	assert.Equal(t, string(apperr.KindForbidden), body)
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(logger.RequestID(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(middleware.HeaderRequestID))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID))
}
