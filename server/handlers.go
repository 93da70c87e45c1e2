package server

import (
	"context"
	"encoding/json"
	"net/http"

	"Melodix/config"
	"Melodix/core/auth"
	"Melodix/core/search"
	"Melodix/logger"
	"Melodix/model"
	"Melodix/repository"
)

// SessionStore 服务端保存的刷新会话
type SessionStore interface {
	Create(ctx context.Context, user *model.User) (*model.RefreshSession, error)
	Get(ctx context.Context, sid string) (*model.RefreshSession, error)
	Delete(ctx context.Context, sid string) error
	Rotate(ctx context.Context, sid string) (*model.RefreshSession, error)
}

// APIHandler 处理所有API请求
type APIHandler struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	sessions SessionStore
	tokens   *auth.TokenManager
	provider *search.Provider
	hub      *EventHub
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	cfg *config.Config,
	userRepo repository.UserRepository,
	sessions SessionStore,
	tokens *auth.TokenManager,
	provider *search.Provider,
	hub *EventHub,
) *APIHandler {
	return &APIHandler{
		cfg:      cfg,
		userRepo: userRepo,
		sessions: sessions,
		tokens:   tokens,
		provider: provider,
		hub:      hub,
	}
}

// HealthHandler 健康检查
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	index := h.provider.Current()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"searchAvailable": index != nil,
		"indexVersion":    h.provider.Version(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("[HTTP] 写入响应失败", logger.ErrorField(err))
	}
}
