package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Melodix/cache"
	"Melodix/core/auth"
	"Melodix/core/session"
	"Melodix/logger"
	"Melodix/model"
	"Melodix/repository"
)

// RefreshTokenCookie 刷新令牌所在的 cookie 名
const RefreshTokenCookie = "refresh_token"

type contextKey string

const (
	userIDKey   contextKey = "userID"
	usernameKey contextKey = "username"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"` // 可以是用户名或邮箱
	Password string `json:"password"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("[Login] 解析请求体失败", logger.ErrorField(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username/Email and password are required", http.StatusBadRequest)
		return
	}

	// 支持用户名或邮箱登录
	var user *model.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetUserByEmail(r.Context(), req.Username)
	} else {
		user, err = h.userRepo.GetUserByUsername(r.Context(), req.Username)
	}
	if err != nil {
		logger.Error("[Login] 查询用户失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		logger.Warn("[Login] 用户不存在", logger.String("username", req.Username))
		http.Error(w, "Invalid username/email or password", http.StatusUnauthorized)
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 密码验证失败", logger.String("username", req.Username))
		http.Error(w, "Invalid username/email or password", http.StatusUnauthorized)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		logger.Error("[Login] 创建会话失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	logger.Info("[Login] 登录成功", logger.String("username", user.Username))
}

// RegisterHandler handles user registration requests
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		http.Error(w, "Username, password and email are required", http.StatusBadRequest)
		return
	}
	if strings.Contains(req.Username, "@") {
		http.Error(w, "Username must not contain '@'", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}
	if _, err := h.userRepo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] 用户名或邮箱已存在",
				logger.String("username", req.Username),
				logger.String("email", req.Email))
			http.Error(w, "Username or email already exists", http.StatusConflict)
			return
		}
		logger.Error("[Register] 创建用户失败", logger.ErrorField(err))
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		logger.Error("[Register] 创建会话失败", logger.ErrorField(err))
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	logger.Info("[Register] 注册成功", logger.String("username", user.Username))
}

// startSession opens a refresh session, sets both cookies and writes
// {token, user}.
func (h *APIHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) error {
	sess, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		return err
	}
	pair, err := h.tokens.Issue(user, sess.ID)
	if err != nil {
		return err
	}
	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, authResponse{Token: pair.AccessToken, User: user})
	return nil
}

// RefreshHandler rotates the refresh session named by the refresh_token
// cookie and issues a new token pair. Each refresh token works once.
func (h *APIHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		http.Error(w, "Refresh token is required", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.Parse(cookie.Value, auth.TokenTypeRefresh)
	if err != nil {
		logger.Warn("[Refresh] 刷新令牌无效", logger.ErrorField(err))
		h.clearAuthCookies(w)
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	next, err := h.sessions.Rotate(r.Context(), claims.SessionID)
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			logger.Warn("[Refresh] 会话不存在或已被使用",
				logger.String("sid", claims.SessionID), logger.Int64("userID", claims.UserID))
			h.clearAuthCookies(w)
			http.Error(w, "Session expired", http.StatusUnauthorized)
			return
		}
		logger.Error("[Refresh] 轮换会话失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &model.User{ID: next.UserID, Username: next.Username}
	pair, err := h.tokens.Issue(user, next.ID)
	if err != nil {
		logger.Error("[Refresh] 签发令牌失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": pair.AccessToken})
}

// LogoutHandler 删除会话并清除 cookie
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		if claims, err := h.tokens.Parse(cookie.Value, auth.TokenTypeRefresh); err == nil {
			if err := h.sessions.Delete(r.Context(), claims.SessionID); err != nil {
				logger.Warn("[Logout] 删除会话失败", logger.ErrorField(err))
			}
		}
	}
	h.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler 返回当前用户
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		logger.Error("[Auth] 查询用户失败", logger.Int64("userID", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		username, _ := GetUsernameFromContext(r.Context())
		logger.Warn("[Auth] 令牌对应的用户不存在",
			logger.Int64("userID", userID), logger.String("username", username))
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) setAuthCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/api/auth",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *APIHandler) clearAuthCookies(w http.ResponseWriter) {
	for _, c := range []struct{ name, path string }{
		{session.AccessTokenCookie, "/"},
		{RefreshTokenCookie, "/api/auth"},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cfg.CookieSecure,
		})
	}
}

// bearerToken 优先取 Authorization 头，其次取 access_token cookie
func bearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", fmt.Errorf("invalid authorization header format")
		}
		return parts[1], nil
	}
	if cookie, err := r.Cookie(session.AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", fmt.Errorf("authorization is required")
}

// AuthMiddleware is a middleware function that checks for a valid access token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := h.tokens.Parse(raw, auth.TokenTypeAccess)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, usernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameKey).(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
