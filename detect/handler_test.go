package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwaylab/swingsense/protocol"
)

// --- Helpers ---

func detectTestServer(t *testing.T, backend Backend) *httptest.Server {
	t.Helper()
	h := NewHandler(testDetectionConfig(), backend, nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialDetect(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, ts float64) protocol.EventMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := protocol.FrameMessage{Timestamp: ts, ImageBase64: "aW1n"}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))

	_, resp, err := conn.Read(ctx)
	require.NoError(t, err)

	var event protocol.EventMessage
	require.NoError(t, json.Unmarshal(resp, &event))
	return event
}

// --- Tests ---

func TestHandler_EndToEndDetection(t *testing.T) {
	backend := &stubBackend{result: &Result{SwingDetected: true, Confidence: 0.9}}
	srv := detectTestServer(t, backend)
	conn := dialDetect(t, srv)

	event := sendFrame(t, conn, 0.0)
	assert.Equal(t, protocol.StatusAwaitingMoreData, event.Status)

	event = sendFrame(t, conn, 0.6)
	assert.Equal(t, protocol.StatusAwaitingMoreData, event.Status)

	event = sendFrame(t, conn, 1.3)
	require.Equal(t, protocol.StatusEvaluated, event.Status)
	assert.True(t, *event.SwingDetected)
	assert.InDelta(t, 0.9, *event.Confidence, 1e-9)

	// 紧随其后的帧落在冷却期内
	event = sendFrame(t, conn, 1.6)
	assert.Equal(t, protocol.StatusCooldown, event.Status)
}

func TestHandler_MalformedMessageKeepsConnectionOpen(t *testing.T) {
	backend := &stubBackend{result: &Result{}}
	srv := detectTestServer(t, backend)
	conn := dialDetect(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))
	_, resp, err := conn.Read(ctx)
	require.NoError(t, err)

	var event protocol.EventMessage
	require.NoError(t, json.Unmarshal(resp, &event))
	assert.Equal(t, protocol.StatusError, event.Status)

	// 连接仍然可用
	event = sendFrame(t, conn, 0.0)
	assert.Equal(t, protocol.StatusAwaitingMoreData, event.Status)
}

func TestHandler_FreshWindowPerConnection(t *testing.T) {
	backend := &stubBackend{result: &Result{SwingDetected: false, Confidence: 0.2}}
	srv := detectTestServer(t, backend)

	// 第一条连接积累了接近阈值的跨度
	conn1 := dialDetect(t, srv)
	sendFrame(t, conn1, 0.0)
	sendFrame(t, conn1, 1.0)
	conn1.Close(websocket.StatusNormalClosure, "drop")

	// 新连接必须从空窗口开始：单帧只能得到 awaiting_more_data
	conn2 := dialDetect(t, srv)
	event := sendFrame(t, conn2, 5.0)
	assert.Equal(t, protocol.StatusAwaitingMoreData, event.Status)
	require.NotNil(t, event.ContextSize)
	assert.Equal(t, 1, *event.ContextSize)
}
