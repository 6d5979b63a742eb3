package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestIndex(t *testing.T) {
	h, err := NewPageHandler(PageConfig{Title: "Stock <Dashboard>", Footer: "data as of today", TopN: 5})
	if err != nil {
		t.Fatalf("NewPageHandler: %v", err)
	}
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"Stock &lt;Dashboard&gt;", "data as of today", `id="price-chart"`, `id="rsi-chart"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}
