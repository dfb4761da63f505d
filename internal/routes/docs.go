package routes

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/talenthub/backend/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpec []byte

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    body { margin: 0; font-family: Georgia, "Times New Roman", serif; color: #132019; background: #f6f7f4; }
    main { max-width: 960px; margin: 0 auto; padding: 40px 20px; }
    table { width: 100%; border-collapse: collapse; background: #fff; border: 1px solid #d8ddd6; }
    th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #d8ddd6; }
    code { font-family: ui-monospace, monospace; }
    .method { font-weight: bold; color: #1f6f4a; }
    .muted { color: #536258; }
  </style>
</head>
<body>
<main>
  <h1>{{ .Title }}</h1>
  <p class="muted">{{ .Description }}</p>
  <p class="muted">Loaded {{ .LoadedAt }} &middot; <a href="/docs/openapi.yaml">openapi.yaml</a></p>
  <table>
    <thead><tr><th>Method</th><th>Path</th><th>Summary</th></tr></thead>
    <tbody>
    {{ range .Routes }}<tr><td class="method">{{ .Method }}</td><td><code>{{ .Path }}</code></td><td>{{ .Summary }}</td></tr>
    {{ end }}
    </tbody>
  </table>
</main>
</body>
</html>
`

type docsRoute struct {
	Method  string
	Path    string
	Summary string
}

type docsPageData struct {
	Title       string
	Description string
	LoadedAt    string
	Routes      []docsRoute
}

// openAPIDocument is the subset of the OpenAPI document the index page reads.
type openAPIDocument struct {
	OpenAPI string `yaml:"openapi"`
	Info    struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
	} `yaml:"info"`
	Paths map[string]map[string]struct {
		Summary string `yaml:"summary"`
	} `yaml:"paths"`
}

func parseOpenAPISpec(spec []byte) (*openAPIDocument, error) {
	var doc openAPIDocument
	if err := yaml.Unmarshal(spec, &doc); err != nil {
		return nil, err
	}
	if doc.OpenAPI == "" || len(doc.Paths) == 0 {
		return nil, fmt.Errorf("openapi document has no version or paths")
	}
	return &doc, nil
}

// registerDocsRoutes must run after every other route is registered so the
// index lists them all.
func registerDocsRoutes(app *fiber.App, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	doc, err := parseOpenAPISpec(openAPISpec)
	if err != nil {
		return fmt.Errorf("load openapi spec: %w", err)
	}

	indexTemplate, err := template.New("docs-index").Parse(docsIndexHTML)
	if err != nil {
		return fmt.Errorf("parse docs template: %w", err)
	}

	pageData := docsPageData{
		Title:       doc.Info.Title,
		Description: doc.Info.Description,
		LoadedAt:    time.Now().UTC().Format(time.RFC3339),
		Routes:      collectRoutes(app, doc),
	}

	indexHandler := func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; base-uri 'none'; form-action 'none'; frame-ancestors 'none'")

		var body bytes.Buffer
		if err := indexTemplate.Execute(&body, pageData); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render api docs")
		}

		return c.Status(fiber.StatusOK).Send(body.Bytes())
	}

	app.Get("/docs", indexHandler)
	app.Get("/docs/", indexHandler)
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, "application/yaml; charset=utf-8")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="openapi.yaml"`)
		return c.Status(fiber.StatusOK).Send(openAPISpec)
	})

	return nil
}

// collectRoutes lists the app's routes with summaries from the OpenAPI document.
// Fiber's implicit HEAD routes and middleware mounts are skipped.
func collectRoutes(app *fiber.App, doc *openAPIDocument) []docsRoute {
	seen := make(map[string]struct{})
	routes := make([]docsRoute, 0)
	for _, route := range app.GetRoutes(true) {
		if route.Method == fiber.MethodHead || route.Method == fiber.MethodOptions || route.Method == "USE" {
			continue
		}
		key := route.Method + " " + route.Path
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		summary := ""
		if operations, ok := doc.Paths[openAPIPath(route.Path)]; ok {
			summary = operations[strings.ToLower(route.Method)].Summary
		}
		routes = append(routes, docsRoute{Method: route.Method, Path: route.Path, Summary: summary})
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	return routes
}

// openAPIPath rewrites fiber's ":param" segments to "{param}".
func openAPIPath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			segments[i] = "{" + strings.TrimPrefix(segment, ":") + "}"
		}
	}
	return strings.Join(segments, "/")
}

func applyDocsBaseHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("Cross-Origin-Resource-Policy", "same-origin")
	c.Set("X-Robots-Tag", "noindex, nofollow")
}
