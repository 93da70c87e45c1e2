package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// corsMiddleware 添加 CORS 头
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			// 需要携带 cookie，不能使用 *
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter 注册所有路由
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", h.RegisterHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/refresh", h.RefreshHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/logout", h.LogoutHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/me", h.AuthMiddleware(h.MeHandler)).Methods(http.MethodGet, http.MethodOptions)

	// 曲库与搜索
	router.HandleFunc("/api/library", h.AuthMiddleware(h.LibraryHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/search", h.AuthMiddleware(h.SearchHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/search/suggest", h.AuthMiddleware(h.SuggestHandler)).Methods(http.MethodGet, http.MethodOptions)

	router.HandleFunc("/ws/events", h.hub.ServeWS)

	return router
}
