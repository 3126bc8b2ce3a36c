package detect

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/fairwaylab/swingsense/config"
	"github.com/fairwaylab/swingsense/internal/metrics"
)

// Handler 在 /ws/detect-golf-swing 上接受检测连接。
//
// 每条连接升级后获得独立的 Engine：窗口、冷却与状态机都以连接为粒度，
// 连接关闭即释放，重连得到的是全新的空窗口。
type Handler struct {
	cfg       config.DetectionConfig
	backend   Backend
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewHandler 创建检测连接处理器。
func NewHandler(cfg config.DetectionConfig, backend Backend, collector *metrics.Collector, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:       cfg,
		backend:   backend,
		collector: collector,
		logger:    logger.With(zap.String("component", "detect_handler")),
	}
}

// ServeWS 升级 HTTP 请求为 WebSocket 并驱动单连接消息循环。
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	if h.collector != nil {
		h.collector.RecordConnectionOpened()
		defer h.collector.RecordConnectionClosed()
	}
	h.logger.Info("detection connection opened", zap.String("remote", r.RemoteAddr))

	engine := NewEngine(h.cfg, h.backend, h.collector, h.logger)
	h.serve(r.Context(), conn, engine)
}

// serve 消息循环：读一帧、同步处理、回推一条事件，直到连接关闭。
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, engine *Engine) {
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				h.logger.Info("detection connection closed")
			} else {
				h.logger.Warn("detection connection read error", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		event := engine.HandleFrame(ctx, data)

		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("marshal event failed", zap.Error(err))
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			h.logger.Warn("detection connection write error", zap.Error(err))
			return
		}
	}
}
