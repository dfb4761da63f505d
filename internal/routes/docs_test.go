package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/talenthub/backend/internal/config"
)

func TestRegisterDocsRoutesServesIndexAndSpec(t *testing.T) {
	app := fiber.New()
	app.Get("/api/v1/freelancers/:id", func(c *fiber.Ctx) error { return nil })
	cfg := &config.Config{AppEnv: "development", EnableDocs: true}

	if err := registerDocsRoutes(app, cfg); err != nil {
		t.Fatalf("registerDocsRoutes: %v", err)
	}

	pageResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs", nil))
	if err != nil {
		t.Fatalf("app.Test docs page: %v", err)
	}
	defer pageResp.Body.Close()

	if pageResp.StatusCode != http.StatusOK {
		t.Fatalf("expected docs page status 200, got %d", pageResp.StatusCode)
	}
	if got := pageResp.Header.Get("Content-Security-Policy"); !strings.Contains(got, "default-src 'none'") {
		t.Fatalf("expected restrictive CSP, got %q", got)
	}
	page, _ := io.ReadAll(pageResp.Body)
	if !strings.Contains(string(page), "/api/v1/freelancers/:id") || !strings.Contains(string(page), "Freelancer detail") {
		t.Fatalf("expected route with summary in docs index, got %s", page)
	}

	specResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	if err != nil {
		t.Fatalf("app.Test docs spec: %v", err)
	}
	defer specResp.Body.Close()

	if specResp.StatusCode != http.StatusOK {
		t.Fatalf("expected docs spec status 200, got %d", specResp.StatusCode)
	}
	if got := specResp.Header.Get(fiber.HeaderContentType); !strings.Contains(got, "application/yaml") {
		t.Fatalf("expected yaml content type, got %q", got)
	}
}

func TestRegisterDocsRoutesSkipsWhenDisabled(t *testing.T) {
	app := fiber.New()
	cfg := &config.Config{AppEnv: "production", EnableDocs: true}

	if err := registerDocsRoutes(app, cfg); err != nil {
		t.Fatalf("registerDocsRoutes: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 when docs are not in development, got %d", resp.StatusCode)
	}
}

func TestEmbeddedOpenAPISpecParses(t *testing.T) {
	doc, err := parseOpenAPISpec(openAPISpec)
	if err != nil {
		t.Fatalf("parseOpenAPISpec: %v", err)
	}
	if doc.Paths["/api/v1/conversations/{id}/view"]["get"].Summary == "" {
		t.Fatal("expected view endpoint to be documented")
	}
	if _, err := parseOpenAPISpec([]byte("info: {title: x}")); err == nil {
		t.Fatal("expected document without paths to be rejected")
	}
}

func TestOpenAPIPath(t *testing.T) {
	if got := openAPIPath("/api/v1/conversations/:id/messages/:messageId/reactions"); got != "/api/v1/conversations/{id}/messages/{messageId}/reactions" {
		t.Fatalf("unexpected path %q", got)
	}
}
