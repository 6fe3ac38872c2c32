package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/app"
	"github.com/GriffinCanCode/opencode-tui/internal/domain/protocol"
	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/id"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	defaultBacklog = 1024
)

// ErrSlowConsumer is returned by Send when a view's queue is full
var ErrSlowConsumer = apperr.Sentinel(apperr.KindTransient, "view is not reading fast enough")

// ErrClosed is returned by Send after the connection ended
var ErrClosed = errors.New("view closed")

// Router is the provider side of a view
type Router interface {
	Attach(v app.View) error
	Detach(id string)
	HandleMessage(ctx context.Context, viewID string, msg protocol.Inbound) error
}

// Config configures a Handler
type Config struct {
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	// Backlog bounds queued outbound frames per view
	Backlog int
	// CheckOrigin overrides the upgrader origin check
	CheckOrigin func(r *http.Request) bool
}

// Handler manages WebSocket connections
type Handler struct {
	router   Router
	upgrader websocket.Upgrader
	metrics  *monitoring.Metrics
	backlog  int
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(router Router, cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = defaultBacklog
	}
	if cfg.CheckOrigin == nil {
		// Loopback middleware already guards the route
		cfg.CheckOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		metrics: cfg.Metrics,
		backlog: cfg.Backlog,
		logger:  cfg.Logger.Named("ws"),
	}
}

// HandleConnection upgrades the request and serves the view until it
// disconnects
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(ws, h.backlog, h.metrics)
	logger := h.logger.With(zap.String("view", conn.ID()))

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.writePump(logger)
	}()

	logger.Info("View attached")
	if err := h.router.Attach(conn); err != nil {
		logger.Warn("Attach failed", zap.Error(err))
	}

	h.readPump(c.Request.Context(), conn, logger)

	h.router.Detach(conn.ID())
	conn.close()
	<-done
	logger.Info("View detached")
}

func (h *Handler) readPump(ctx context.Context, conn *Conn, logger *zap.Logger) {
	ws := conn.ws
	ws.SetReadLimit(utils.MaxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		h.dispatch(ctx, conn.ID(), raw, logger)
	}
}

// dispatch decodes and routes one frame. Nothing here ends the connection.
func (h *Handler) dispatch(ctx context.Context, viewID string, raw []byte, logger *zap.Logger) {
	msg, known, err := protocol.DecodeInbound(raw)
	if err != nil {
		logger.Debug("Dropping malformed frame", zap.Error(err))
		return
	}
	if !known {
		logger.Debug("Dropping unknown frame")
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("in", string(msg.Kind()))
	}

	if err := h.router.HandleMessage(ctx, viewID, msg); err != nil {
		fields := []zap.Field{
			zap.String("type", string(msg.Kind())),
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err),
		}
		if apperr.Warning(err) {
			logger.Warn("Message not handled", fields...)
		} else {
			logger.Error("Message failed", fields...)
		}
	}
}

// Conn is one attached view
type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	metrics *monitoring.Metrics

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, backlog int, metrics *monitoring.Metrics) *Conn {
	return &Conn{
		id:      id.NewConnID().String(),
		ws:      ws,
		send:    make(chan []byte, backlog),
		metrics: metrics,
	}
}

// ID implements app.View
func (c *Conn) ID() string {
	return c.id
}

// Send implements app.View. It queues the frame without blocking; a full
// queue disconnects the view.
func (c *Conn) Send(msg protocol.Outbound) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- frame:
		if c.metrics != nil {
			c.metrics.RecordWSMessage("out", string(msg.Kind()))
		}
		return nil
	default:
		c.closed = true
		close(c.send)
		return ErrSlowConsumer
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the queue and pings. It closes the socket when the
// queue is closed, which also unblocks the reader.
func (c *Conn) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("WebSocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
