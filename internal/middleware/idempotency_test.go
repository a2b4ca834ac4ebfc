package middleware

import (
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIdempotencyApp(t *testing.T) (*fiber.App, *atomic.Int32) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	var hits atomic.Int32
	app := fiber.New()
	app.Use(IdempotencyMiddleware(redisClient, time.Minute))
	app.Post("/pay", func(c *fiber.Ctx) error {
		hits.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order_id": "ORD-1"})
	})
	return app, &hits
}

func postPay(t *testing.T, app *fiber.App, correlationID string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("POST", "/pay", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	return resp
}

func TestReplayPreservesStatusCode(t *testing.T) {
	app, hits := setupIdempotencyApp(t)

	first := postPay(t, app, "corr-1")
	assert.Equal(t, fiber.StatusCreated, first.StatusCode)
	assert.Empty(t, first.Header.Get("X-Idempotent-Replay"))

	// cache write is asynchronous
	time.Sleep(100 * time.Millisecond)

	replay := postPay(t, app, "corr-1")
	assert.Equal(t, fiber.StatusCreated, replay.StatusCode)
	assert.Equal(t, "true", replay.Header.Get("X-Idempotent-Replay"))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDistinctCorrelationIDsRunIndependently(t *testing.T) {
	app, hits := setupIdempotencyApp(t)

	postPay(t, app, "corr-a")
	postPay(t, app, "corr-b")
	assert.Equal(t, int32(2), hits.Load())
}

func TestMissingCorrelationIDSkipsCache(t *testing.T) {
	app, hits := setupIdempotencyApp(t)

	postPay(t, app, "")
	postPay(t, app, "")
	assert.Equal(t, int32(2), hits.Load())
}
