package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

type stubLimiter struct {
	result *Result
	err    error
	keys   []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (*Result, error) {
	s.keys = append(s.keys, key)
	return s.result, s.err
}

func TestPerKey(t *testing.T) {
	tests := []struct {
		name           string
		limiter        *stubLimiter
		key            string
		expectedStatus int
		expectedHeader string
		expectedBody   string
	}{
		{
			name:           "allowed",
			limiter:        &stubLimiter{result: &Result{Allowed: true, Remaining: 4, ResetAt: time.Now().Add(time.Minute)}},
			key:            "7",
			expectedStatus: http.StatusOK,
			expectedHeader: "4",
			expectedBody:   "ok",
		},
		{
			name:           "denied",
			limiter:        &stubLimiter{result: &Result{Allowed: false, ResetAt: time.Now().Add(time.Minute), RetryAfter: 12 * time.Second}},
			key:            "7",
			expectedStatus: http.StatusTooManyRequests,
			expectedHeader: "0",
			expectedBody:   "retry after 12 seconds",
		},
		{
			name:           "limiter error fails open",
			limiter:        &stubLimiter{err: errors.New("redis down")},
			key:            "7",
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
		{
			name:           "nil result passes",
			limiter:        &stubLimiter{},
			key:            "7",
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
		{
			name:           "no key passes",
			limiter:        &stubLimiter{result: &Result{Allowed: false}},
			key:            "",
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(PerKey(tt.limiter, 5, func(*fiber.Ctx) string { return tt.key }))
			app.Get("/test", func(c *fiber.Ctx) error { return c.SendString("ok") })

			resp, err := app.Test(httptest.NewRequest("GET", "/test", nil), -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.expectedStatus)
			}
			if tt.expectedHeader != "" && resp.Header.Get("X-RateLimit-Remaining") != tt.expectedHeader {
				t.Errorf("X-RateLimit-Remaining = %q, want %q", resp.Header.Get("X-RateLimit-Remaining"), tt.expectedHeader)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(strings.ToLower(string(body)), tt.expectedBody) {
				t.Errorf("body = %s, want to contain %q", body, tt.expectedBody)
			}
			if tt.expectedStatus == http.StatusTooManyRequests && resp.Header.Get("Retry-After") != "12" {
				t.Errorf("Retry-After = %q, want 12", resp.Header.Get("Retry-After"))
			}
			if tt.key == "" && len(tt.limiter.keys) != 0 {
				t.Error("limiter should not be consulted without a key")
			}
		})
	}
}

func TestPerKey_NilLimiter(t *testing.T) {
	app := fiber.New()
	app.Use(PerKey(nil, 5, func(*fiber.Ctx) string { return "k" }))
	app.Get("/test", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil), -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want 200", resp.StatusCode)
	}
}
