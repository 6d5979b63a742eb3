package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"StockDash/internal/domain/models"
	"StockDash/internal/repository"
	"StockDash/internal/usecase"
	xlogger "StockDash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type connCounter struct{ open atomic.Int64 }

func (c *connCounter) WSConnected()    { c.open.Add(1) }
func (c *connCounter) WSDisconnected() { c.open.Add(-1) }

type frame struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

func startServer(t *testing.T) (*DashboardHandler, *connCounter, string) {
	t.Helper()
	preds := []models.PredictionRow{
		{Ticker: "AAPL", ReturnPercent: 1.5},
		{Ticker: "MSFT", ReturnPercent: -0.75},
	}
	store := repository.New("test", preds, nil, nil, nil)
	dash := usecase.NewDashboard(store, usecase.DashboardOptions{TopN: 5}, nil, nil)

	counter := &connCounter{}
	h := NewDashboardHandler(xlogger.NewNop(), dash, counter)
	e := echo.New()
	h.RegisterRoutes(e)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return h, counter, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestSessionGreeting(t *testing.T) {
	_, _, url := startServer(t)
	conn := dial(t, url)

	f := readFrame(t, conn)
	if f.Type != TypeTickers {
		t.Fatalf("expected tickers frame first, got %q", f.Type)
	}
	var tickers models.TickersResponse
	if err := json.Unmarshal(f.Data, &tickers); err != nil {
		t.Fatalf("decode tickers: %v", err)
	}
	if len(tickers.Tickers) != 2 || tickers.Default != "AAPL" {
		t.Fatalf("unexpected tickers %+v", tickers)
	}

	f = readFrame(t, conn)
	if f.Type != TypeDashboard || !strings.Contains(string(f.Data), `"ticker":"AAPL"`) {
		t.Fatalf("expected default dashboard, got %s %s", f.Type, f.Data)
	}
}

func TestRenderOnMessage(t *testing.T) {
	_, _, url := startServer(t)
	conn := dial(t, url)
	readFrame(t, conn)
	readFrame(t, conn)

	if err := conn.WriteJSON(models.UIState{Ticker: "MSFT", SMAInclude: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, conn)
	if f.Type != TypeDashboard {
		t.Fatalf("expected dashboard, got %q", f.Type)
	}
	var d models.Dashboard
	if err := json.Unmarshal(f.Data, &d); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if d.Ticker != "MSFT" || d.PredictedReturnText != "The predicted return of the MSFT is -0.75%." {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if len(d.PriceChart.Data) != 5 {
		t.Fatalf("expected SMA trace, got %d traces", len(d.PriceChart.Data))
	}
	if _, ok := d.Errors[models.ChartPrice]; !ok {
		t.Fatalf("expected missing price data to be reported, got %v", d.Errors)
	}
}

func TestErrorFrames(t *testing.T) {
	_, _, url := startServer(t)
	conn := dial(t, url)
	readFrame(t, conn)
	readFrame(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, conn)
	if f.Type != TypeError || !strings.Contains(string(f.Errors), "ERR_BAD_JSON") {
		t.Fatalf("expected bad json error, got %s %s", f.Type, f.Errors)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"sma_exclude":-2}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	f = readFrame(t, conn)
	if f.Type != TypeError || !strings.Contains(string(f.Errors), "ERR_GTE") {
		t.Fatalf("expected validation error, got %s %s", f.Type, f.Errors)
	}

	// the session survives bad input
	if err := conn.WriteJSON(models.UIState{Ticker: "AAPL"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f = readFrame(t, conn); f.Type != TypeDashboard {
		t.Fatalf("expected dashboard after errors, got %q", f.Type)
	}
}

func TestCloseEndsSessions(t *testing.T) {
	h, counter, url := startServer(t)
	conn := dial(t, url)
	readFrame(t, conn)
	readFrame(t, conn)

	if h.Sessions() != 1 || counter.open.Load() != 1 {
		t.Fatalf("expected one session, got %d/%d", h.Sessions(), counter.open.Load())
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for h.Sessions() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.Sessions() != 0 || counter.open.Load() != 0 {
		t.Fatalf("expected no sessions, got %d/%d", h.Sessions(), counter.open.Load())
	}
}
