package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed templates/index.html
var assets embed.FS

var indexTmpl = template.Must(template.ParseFS(assets, "templates/index.html"))

// PageConfig is the static text on the page.
type PageConfig struct {
	Title  string
	Footer string
	TopN   int
}

// PageHandler serves the single dashboard page. All data is fetched by the
// page from /ws, or /api/dashboard when websockets are unavailable.
type PageHandler struct {
	page []byte
}

// NewPageHandler renders the page once; its content never changes.
func NewPageHandler(cfg PageConfig) (*PageHandler, error) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, cfg); err != nil {
		return nil, err
	}
	return &PageHandler{page: buf.Bytes()}, nil
}

func (h *PageHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
}

func (h *PageHandler) Index(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, h.page)
}
