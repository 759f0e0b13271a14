package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/console/internal/auth"
	"github.com/Kyz7/console/internal/role"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedApp(v *auth.Verifier) *fiber.App {
	app := fiber.New()
	app.Get("/me", auth.JWTProtected(v), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"subject": auth.Subject(c),
			"role":    auth.CurrentRole(c),
			"token":   auth.Token(c) != "",
		})
	})
	app.Get("/admin", auth.JWTProtected(v), auth.RequireRole(role.Admin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func call(t *testing.T, app *fiber.App, path, header string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ========== JWT MIDDLEWARE ==========

func TestJWTProtected(t *testing.T) {
	v := auth.NewVerifier(secret)
	app := protectedApp(v)

	t.Run("Success - Valid token populates locals", func(t *testing.T) {
		token, _ := v.Sign("7", " staff ", time.Hour)
		resp := call(t, app, "/me", "Bearer "+token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Error - Missing header", func(t *testing.T) {
		resp := call(t, app, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Error - Wrong scheme", func(t *testing.T) {
		token, _ := v.Sign("7", "STAFF", time.Hour)
		resp := call(t, app, "/me", "Token "+token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Error - Garbage token", func(t *testing.T) {
		resp := call(t, app, "/me", "Bearer not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Error - Unknown role is forbidden rather than downgraded", func(t *testing.T) {
		token, _ := v.Sign("7", "SUPERUSER", time.Hour)
		resp := call(t, app, "/me", "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestRequireRole(t *testing.T) {
	v := auth.NewVerifier(secret)
	app := protectedApp(v)

	cases := []struct {
		role string
		want int
	}{
		{"MASTER_ADMIN", http.StatusOK},
		{"MASTER_STAFF", http.StatusOK},
		{"ADMIN", http.StatusOK},
		{"STAFF", http.StatusForbidden},
		{"CUSTOMER", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			token, _ := v.Sign("7", tc.role, time.Hour)
			resp := call(t, app, "/admin", "Bearer "+token)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
