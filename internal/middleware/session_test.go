package middleware

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nuansasolution/portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionTestSecret = "session-test-secret"

func signSessionToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := &domain.PortalClaims{
		UserID: "user-1",
		Email:  "budi@nuansa.id",
		Phone:  "+628123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(sessionTestSecret))
	require.NoError(t, err)
	return token
}

func setupSessionApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/me", VerifyPortalToken(sessionTestSecret), handler)
	app.Get("/quote", OptionalPortalToken(sessionTestSecret), handler)
	return app
}

func getWithToken(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	return resp
}

func TestVerifyPortalTokenStoresSession(t *testing.T) {
	var got *domain.Session
	app := setupSessionApp(func(c *fiber.Ctx) error {
		sess, ok := SessionFrom(c)
		require.True(t, ok)
		got = sess
		return c.SendStatus(fiber.StatusOK)
	})

	token := signSessionToken(t, time.Hour)
	resp := getWithToken(t, app, "/me", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "budi@nuansa.id", got.Email)
	assert.Equal(t, "+628123", got.Phone)
	assert.Equal(t, token, got.Token)
}

// The session token is read long after the request that carried it has been
// recycled; it must not alias the request's header buffer.
func TestSessionTokenSurvivesSubsequentRequests(t *testing.T) {
	var got *domain.Session
	app := setupSessionApp(func(c *fiber.Ctx) error {
		if got == nil {
			got, _ = SessionFrom(c)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	token := signSessionToken(t, time.Hour)
	getWithToken(t, app, "/me", token)
	require.NotNil(t, got)

	// churn the request buffers with different tokens
	other := signSessionToken(t, 2*time.Hour)
	for i := 0; i < 20; i++ {
		getWithToken(t, app, "/me", other)
	}

	assert.Equal(t, token, got.Token)
}

func TestExpiredTokenRejectedWithAuthExpired(t *testing.T) {
	app := setupSessionApp(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp := getWithToken(t, app, "/me", signSessionToken(t, -time.Minute))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "AUTH_EXPIRED", body["code"])
}

func TestMissingTokenRejected(t *testing.T) {
	app := setupSessionApp(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp := getWithToken(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOptionalTokenAllowsAnonymous(t *testing.T) {
	app := setupSessionApp(func(c *fiber.Ctx) error {
		_, ok := SessionFrom(c)
		assert.False(t, ok)
		return c.SendStatus(fiber.StatusOK)
	})

	resp := getWithToken(t, app, "/quote", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
