package mlapi

import (
	"html/template"
	"net/http"
)

// DocsOption configures the docs UI.
type DocsOption func(*docsConfig)

type docsConfig struct {
	Title   string
	SpecURL string
}

// WithDocsTitle sets the page title for the docs UI.
func WithDocsTitle(title string) DocsOption {
	return func(c *docsConfig) {
		c.Title = title
	}
}

// WithDocsSpecURL sets the spec URL the docs UI loads (default "/openapi.json").
func WithDocsSpecURL(url string) DocsOption {
	return func(c *docsConfig) {
		c.SpecURL = url
	}
}

var docsTemplate = template.Must(template.New("docs").Parse(docsHTML))

// ServeDocs serves Swagger UI at the given path, pointed at the router's
// OpenAPI spec.
func (r *Router) ServeDocs(path string, opts ...DocsOption) {
	cfg := &docsConfig{
		Title:   r.title,
		SpecURL: "/openapi.json",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r.handle(http.MethodGet, path, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := docsTemplate.Execute(w, cfg); err != nil {
			r.logger.Error("render docs", "error", err)
		}
	}))
}

const docsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => {
      window.ui = SwaggerUIBundle({ url: "{{.SpecURL}}", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>`
