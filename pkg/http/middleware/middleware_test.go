package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applogger "StockDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

func serve(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "10.0.0.7:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name string
		lim  *stubLimiter
		want int
	}{
		{"allowed", &stubLimiter{allow: true}, http.StatusOK},
		{"rejected", &stubLimiter{allow: false}, http.StatusTooManyRequests},
		{"limiter error fails open", &stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(RateLimit(tt.lim, applogger.NewNop(), nil))
			e.GET("/api/tickers", ok)

			rec := serve(e, "/api/tickers")
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d", rec.Code, tt.want)
			}
			if len(tt.lim.keys) != 1 || tt.lim.keys[0] != "10.0.0.7" {
				t.Fatalf("unexpected limiter keys %v", tt.lim.keys)
			}
		})
	}
}

func TestRateLimitSkip(t *testing.T) {
	lim := &stubLimiter{allow: false}
	e := echo.New()
	e.Use(RateLimit(lim, applogger.NewNop(), func(c echo.Context) bool { return c.Path() == "/healthz" }))
	e.GET("/healthz", ok)

	if rec := serve(e, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("skipped route limited: %d", rec.Code)
	}
	if len(lim.keys) != 0 {
		t.Fatalf("limiter consulted for skipped route")
	}
}

func TestRecover(t *testing.T) {
	e := echo.New()
	e.Use(Recover(applogger.NewNop()))
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	rec := serve(e, "/boom")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":500`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"https://dash.example.com"}, AllowMethods: []string{http.MethodGet}}))
	e.GET("/api/tickers", ok)

	req := httptest.NewRequest(http.MethodGet, "/api/tickers", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://dash.example.com" {
		t.Fatalf("allowed origin not echoed: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tickers", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example.com")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
		t.Fatalf("disallowed origin echoed: %q", got)
	}
}
