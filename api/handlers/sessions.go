package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fairwaylab/swingsense/history"
	"github.com/fairwaylab/swingsense/types"
)

// =============================================================================
// 📼 会话历史 Handler
// =============================================================================

// SessionStore 会话历史读取端契约
type SessionStore interface {
	Recent(ctx context.Context, n int) ([]history.SessionRecord, error)
	Get(ctx context.Context, id string) (*history.SessionRecord, error)
}

// SessionsHandler 会话历史查询处理器
type SessionsHandler struct {
	store  SessionStore
	logger *zap.Logger
}

// NewSessionsHandler 创建会话历史处理器
func NewSessionsHandler(store SessionStore, logger *zap.Logger) *SessionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionsHandler{
		store:  store,
		logger: logger.With(zap.String("component", "sessions_handler")),
	}
}

// HandleList 处理 GET /api/v1/sessions?limit=n
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			WriteError(w, types.NewError(types.ErrProtocolError, "limit must be an integer in [1,200]"), h.logger)
			return
		}
		limit = n
	}

	records, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to list sessions").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, records)
}

// HandleGet 处理 GET /api/v1/sessions/{id}
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, types.NewError(types.ErrProtocolError, "session id is required"), h.logger)
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			WriteError(w, typed, h.logger)
			return
		}
		WriteError(w, types.NewError(types.ErrInternalError, "failed to load session").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, rec)
}
