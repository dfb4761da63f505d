package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/talenthub/backend/pkg/utils"
)

func TestAuthRequiredSetsLocals(t *testing.T) {
	token, err := utils.GenerateToken("42", "business", "secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	app := fiber.New()
	app.Get("/me", AuthRequired("secret"), RequireRole("business"), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequiredRejectsBadHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/me", AuthRequired("secret"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("header %q: expected status 401, got %d", header, resp.StatusCode)
		}
	}
}

func TestRequireRoleRejectsOtherRoles(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", "freelancer")
		return c.Next()
	})
	app.Get("/recommended", RequireRole("business"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/recommended", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.StatusCode)
	}
}

func TestLimiterPoolAllowsBurstPerKey(t *testing.T) {
	pool := NewLimiterPool(0.001, 2)
	defer pool.Shutdown()

	if !pool.Allow("a") || !pool.Allow("a") {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if pool.Allow("a") {
		t.Fatal("expected third action to be limited")
	}
	if !pool.Allow("b") {
		t.Fatal("expected independent bucket for another key")
	}
}

func TestLimiterPoolEvictsIdleKeys(t *testing.T) {
	pool := NewLimiterPool(1, 1)
	defer pool.Shutdown()
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pool.now = func() time.Time { return current }

	pool.Allow("idle")
	current = current.Add(pool.ttl + time.Second)
	pool.evictIdle()

	pool.mu.Lock()
	_, ok := pool.entries["idle"]
	pool.mu.Unlock()
	if ok {
		t.Fatal("expected idle key to be evicted")
	}
}

func TestRateLimitReturns429(t *testing.T) {
	pool := NewLimiterPool(0.001, 1)
	defer pool.Shutdown()

	app := fiber.New()
	app.Get("/", RateLimit(pool), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	first, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	second, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if first.StatusCode != http.StatusOK || second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.StatusCode, second.StatusCode)
	}
}
