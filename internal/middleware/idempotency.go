package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// cachedResponse is what the replay cache stores: the original status code
// must survive alongside the body so a replayed 201 stays a 201.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyMiddleware provides idempotency for mutating requests using
// X-Correlation-ID. If the same correlation ID is received within the TTL,
// the cached response is replayed instead of re-running the checkout flow.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != "POST" && c.Method() != "PATCH" && c.Method() != "PUT" {
			return c.Next()
		}

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			// No correlation ID = no idempotency check
			return c.Next()
		}

		key := fmt.Sprintf("portal:idempotency:%s", correlationID)
		ctx := context.Background()

		cached, err := redisClient.Get(ctx, key).Bytes()
		if err == nil && len(cached) > 0 {
			var stored cachedResponse
			if json.Unmarshal(cached, &stored) == nil && stored.Status != 0 {
				c.Set("X-Idempotent-Replay", "true")
				c.Set("Content-Type", "application/json")
				return c.Status(stored.Status).Send(stored.Body)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Cache successful responses (2xx status codes)
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 300 {
			body := c.Response().Body()
			if len(body) > 0 {
				payload, err := json.Marshal(cachedResponse{
					Status: statusCode,
					Body:   append([]byte(nil), body...),
				})
				if err == nil {
					go func() {
						bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
						defer cancel()
						redisClient.Set(bgCtx, key, payload, ttl)
					}()
				}
			}
		}

		return nil
	}
}
