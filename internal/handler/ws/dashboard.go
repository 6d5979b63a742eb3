package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"StockDash/internal/domain/models"
	"StockDash/internal/usecase"
	xhttp "StockDash/pkg/http"
	xlogger "StockDash/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 4
)

// Message types sent to the page.
const (
	TypeTickers   = "tickers"
	TypeDashboard = "dashboard"
	TypeError     = "error"
)

// Envelope is every server-to-client frame.
type Envelope struct {
	Type   string      `json:"type"`
	Data   interface{} `json:"data,omitempty"`
	Errors interface{} `json:"errors,omitempty"`
}

// ConnMetrics tracks open sessions.
type ConnMetrics interface {
	WSConnected()
	WSDisconnected()
}

// DashboardHandler pushes a full render for every UIState the page sends.
// Each connection handles its messages one at a time in its read loop.
type DashboardHandler struct {
	dash     *usecase.Dashboard
	logger   *xlogger.Logger
	metrics  ConnMetrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewDashboardHandler(logger *xlogger.Logger, dash *usecase.Dashboard, m ConnMetrics) *DashboardHandler {
	return &DashboardHandler{
		dash:    dash,
		logger:  logger,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

type client struct {
	id   string
	h    *DashboardHandler
	conn *websocket.Conn
	send chan Envelope
	done chan struct{}
	once sync.Once
}

// Serve upgrades the request and runs the session until the peer leaves.
func (h *DashboardHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	cl := &client{
		id:   uuid.NewString(),
		h:    h,
		conn: conn,
		send: make(chan Envelope, sendBuffer),
		done: make(chan struct{}),
	}
	h.register(cl)
	h.logger.Info("websocket session opened",
		xlogger.String("session", cl.id),
		xlogger.String("remote", c.RealIP()),
	)

	go cl.writePump()
	cl.enqueue(Envelope{Type: TypeTickers, Data: h.dash.Tickers()})
	cl.enqueue(Envelope{Type: TypeDashboard, Data: h.dash.Render(models.UIState{})})
	cl.readPump(c.Request().Context())
	return nil
}

func (h *DashboardHandler) register(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSConnected()
	}
}

func (h *DashboardHandler) unregister(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	if ok && h.metrics != nil {
		h.metrics.WSDisconnected()
	}
}

// Sessions returns the number of open sessions.
func (h *DashboardHandler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close sends a close frame to every session. echo's Shutdown does not track
// hijacked connections.
func (h *DashboardHandler) Close() error {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	for _, cl := range clients {
		cl.close()
	}
	return nil
}

func (cl *client) close() {
	cl.once.Do(func() { close(cl.done) })
}

func (cl *client) enqueue(env Envelope) bool {
	select {
	case cl.send <- env:
		return true
	case <-cl.done:
		return false
	}
}

func (cl *client) readPump(ctx context.Context) {
	defer func() {
		cl.close()
		cl.h.unregister(cl)
		cl.h.logger.Info("websocket session closed", xlogger.String("session", cl.id))
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.h.logger.Warn("websocket read error", xlogger.String("session", cl.id), xlogger.Error(err))
			}
			return
		}
		if !cl.enqueue(cl.h.handle(ctx, msg)) {
			return
		}
	}
}

// handle turns one client frame into the reply frame.
func (h *DashboardHandler) handle(ctx context.Context, msg []byte) Envelope {
	var state models.UIState
	if err := json.Unmarshal(msg, &state); err != nil {
		return Envelope{Type: TypeError, Errors: []xhttp.ValidationError{{Code: "ERR_BAD_JSON", Message: err.Error()}}}
	}
	if verr := xhttp.ValidateStruct(ctx, &state); verr != nil {
		return Envelope{Type: TypeError, Errors: verr}
	}
	return Envelope{Type: TypeDashboard, Data: h.dash.Render(state)}
}

func (cl *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case env := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(env); err != nil {
				cl.h.logger.Warn("websocket write error", xlogger.String("session", cl.id), xlogger.Error(err))
				cl.close()
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.close()
				return
			}
		case <-cl.done:
			_ = cl.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
