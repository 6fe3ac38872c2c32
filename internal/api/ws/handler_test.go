package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/opencode-tui/internal/app"
	"github.com/GriffinCanCode/opencode-tui/internal/domain/protocol"
	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/monitoring"
)

type fakeRouter struct {
	mu       sync.Mutex
	views    map[string]app.View
	received []protocol.Inbound
	detached []string
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{views: make(map[string]app.View)}
}

func (r *fakeRouter) Attach(v app.View) error {
	r.mu.Lock()
	r.views[v.ID()] = v
	r.mu.Unlock()
	return v.Send(protocol.WebviewVisible{})
}

func (r *fakeRouter) Detach(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, id)
	r.detached = append(r.detached, id)
}

func (r *fakeRouter) HandleMessage(_ context.Context, viewID string, msg protocol.Inbound) error {
	r.mu.Lock()
	r.received = append(r.received, msg)
	v := r.views[viewID]
	r.mu.Unlock()

	if _, ok := msg.(protocol.Ready); ok && v != nil {
		return v.Send(protocol.PlatformInfo{Platform: "linux"})
	}
	return nil
}

func (r *fakeRouter) messages() []protocol.Inbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Inbound(nil), r.received...)
}

func (r *fakeRouter) detachedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.detached)
}

func startServer(t *testing.T, router Router, metrics *monitoring.Metrics) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.GET("/terminal", NewHandler(router, Config{Metrics: metrics}).HandleConnection)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/terminal"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readKind(t *testing.T, conn *websocket.Conn) protocol.Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, known, err := protocol.DecodeOutbound(raw)
	require.NoError(t, err)
	require.True(t, known)
	return msg
}

func TestConnectionLifecycle(t *testing.T) {
	router := newFakeRouter()
	metrics := monitoring.NewMetrics()
	conn := dial(t, startServer(t, router, metrics))

	assert.Equal(t, protocol.WebviewVisible{}, readKind(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ready"}`)))
	assert.Equal(t, protocol.PlatformInfo{Platform: "linux"}, readKind(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"terminalInput","data":"ls\r"}`)))
	require.Eventually(t, func() bool { return len(router.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, protocol.TerminalInput{Data: "ls\r"}, router.messages()[1])

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return router.detachedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestMalformedFramesAreDropped(t *testing.T) {
	router := newFakeRouter()
	conn := dial(t, startServer(t, router, nil))
	readKind(t, conn)

	for _, frame := range []string{`not json`, `{"data":"x"}`, `{"type":"nope"}`, `{"type":"terminalResize","cols":"wide"}`} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	}
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"listTerminals"}`)))

	require.Eventually(t, func() bool { return len(router.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, protocol.ListTerminals{}, router.messages()[0])
	assert.Equal(t, 0, router.detachedCount())
}

func TestSendToSlowConsumerCloses(t *testing.T) {
	c := &Conn{id: "conn_test", send: make(chan []byte, 1)}

	require.NoError(t, c.Send(protocol.ClearTerminal{}))
	assert.ErrorIs(t, c.Send(protocol.ClearTerminal{}), ErrSlowConsumer)
	assert.ErrorIs(t, c.Send(protocol.ClearTerminal{}), ErrClosed)

	assert.NotPanics(t, c.close)
}

func TestUpgradeRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/terminal", NewHandler(newFakeRouter(), Config{}).HandleConnection)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/terminal", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
