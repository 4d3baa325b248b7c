package ratelimit

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Limiter admits or rejects one request for a key. A nil result with a nil
// error means the key is not limited.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// PerKey returns middleware limiting requests by the key returned from keyFn.
// Requests without a key pass through. Limiter errors fail open.
func PerKey(limiter Limiter, limit int, keyFn func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		key := keyFn(c)
		if key == "" {
			return c.Next()
		}

		result, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			log.Printf("[ratelimit] Limiter unavailable, allowing request: %v", err)
			c.Set("X-RateLimit-Error", "limiter unavailable")
			return c.Next()
		}
		if result == nil {
			return c.Next()
		}

		setRateLimitHeaders(c, result, limit)

		if !result.Allowed {
			return sendRateLimitExceeded(c, result)
		}
		return c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(c *fiber.Ctx, result *Result, limit int) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// sendRateLimitExceeded sends a 429 Too Many Requests response.
func sendRateLimitExceeded(c *fiber.Ctx, result *Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	c.Set("Retry-After", strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       "too_many_requests",
		"message":     fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
		"retry_after": retryAfter,
	})
}
