package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StockDash/internal/domain/models"
	"StockDash/internal/repository"
	"StockDash/internal/usecase"
	xlogger "StockDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

func newTestServer() *echo.Echo {
	preds := []models.PredictionRow{
		{Ticker: "AAPL", ReturnPercent: 1.5},
		{Ticker: "MSFT", ReturnPercent: -0.75},
		{Ticker: "NVDA", ReturnPercent: 4},
		{Ticker: "NOPE", ReturnPercent: math.NaN()},
	}
	price := []models.PriceSeriesRow{
		{Ticker: "AAPL", Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Close: 1, Forecast: 1, Lower: 1, Upper: 1},
	}
	tech := []models.TechnicalRow{
		{Ticker: "AAPL", Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), SMA: 1, RSI: 50},
	}
	earn := []models.EarningsRow{{Ticker: "AAPL", Date: "2024Q1", Revenue: 1, EPSActual: 1, EPSEstimate: 1}}
	store := repository.New("test", preds, price, tech, earn)
	dash := usecase.NewDashboard(store, usecase.DashboardOptions{TopN: 5}, nil, nil)

	e := echo.New()
	NewDashboardEchoHandler(xlogger.NewNop(), dash).RegisterRoutes(e)
	return e
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func get(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s: decode: %v body=%s", target, err, rec.Body.String())
	}
	return rec, env
}

func TestTickers(t *testing.T) {
	rec, env := get(t, newTestServer(), "/api/tickers")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var res models.TickersResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Tickers) != 4 || res.Default != "AAPL" {
		t.Fatalf("unexpected tickers %+v", res)
	}
}

func TestDashboard(t *testing.T) {
	rec, env := get(t, newTestServer(), "/api/dashboard?ticker=AAPL&sma_include=2&sma_exclude=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	var d struct {
		Ticker     string `json:"ticker"`
		Text       string `json:"predicted_return_text"`
		PriceChart struct {
			Data []json.RawMessage `json:"data"`
		} `json:"price_chart"`
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Ticker != "AAPL" || len(d.PriceChart.Data) != 5 || d.Errors != nil {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if d.Text != "The predicted return of the AAPL is 1.50%." {
		t.Fatalf("unexpected text %q", d.Text)
	}
}

func TestDashboardValidation(t *testing.T) {
	rec, env := get(t, newTestServer(), "/api/dashboard?ticker=AAPL&sma_include=-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(string(env.Data), `"ERR_GTE"`) || !strings.Contains(string(env.Data), `"sma_include"`) {
		t.Fatalf("unexpected errors %s", env.Data)
	}

	rec, _ = get(t, newTestServer(), "/api/dashboard?sma_include=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric count, got %d", rec.Code)
	}
}

func TestPrediction(t *testing.T) {
	e := newTestServer()

	rec, env := get(t, e, "/api/predictions/MSFT")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(string(env.Data), "The predicted return of the MSFT is -0.75%.") {
		t.Fatalf("unexpected body %s", env.Data)
	}

	rec, env = get(t, e, "/api/predictions/ZZZZ")
	if rec.Code != http.StatusNotFound || env.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(string(env.Data), "ERR_NOT_FOUND") {
		t.Fatalf("unexpected body %s", env.Data)
	}

	rec, env = get(t, e, "/api/predictions/NOPE")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"predicted_return_percent":null`) {
		t.Fatalf("NaN prediction should encode as null: %d %s", rec.Code, env.Data)
	}
}

type topBody struct {
	Direction string `json:"direction"`
	Rows      []struct {
		Ticker  string   `json:"ticker"`
		Percent *float64 `json:"predicted_return_percent"`
	} `json:"rows"`
}

func TestTop(t *testing.T) {
	e := newTestServer()

	_, env := get(t, e, "/api/top")
	var res topBody
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Direction != "best" || len(res.Rows) != 3 || res.Rows[0].Ticker != "NVDA" {
		t.Fatalf("unexpected best rows %+v", res)
	}

	_, env = get(t, e, "/api/top?direction=worst&n=1")
	res = topBody{}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0].Ticker != "MSFT" || *res.Rows[0].Percent != -0.75 {
		t.Fatalf("unexpected worst rows %+v", res)
	}

	rec, env := get(t, e, "/api/top?direction=sideways")
	if rec.Code != http.StatusBadRequest || !strings.Contains(string(env.Data), "ERR_ONEOF") {
		t.Fatalf("expected oneof error, got %d %s", rec.Code, env.Data)
	}
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"predictions":4`) {
		t.Fatalf("unexpected health %d %s", rec.Code, rec.Body.String())
	}
}
