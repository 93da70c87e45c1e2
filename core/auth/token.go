package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"Melodix/model"

	"github.com/golang-jwt/jwt/v5"
)

// Token 类型，写入 typ 声明
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims 是访问令牌和刷新令牌共用的声明
type Claims struct {
	UserID    int64  `json:"uid"`
	Username  string `json:"username"`
	TokenType string `json:"typ"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair 一次签发的两个令牌
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// TokenManager signs and verifies HS256 tokens with a shared secret.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager 创建 TokenManager
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// RefreshTTL 刷新令牌有效期，与 Redis 会话的 TTL 保持一致
func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// Issue signs a fresh access/refresh pair for user. sid binds the refresh
// token to its server-side session.
func (m *TokenManager) Issue(user *model.User, sid string) (TokenPair, error) {
	now := m.now()
	pair := TokenPair{
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	var err error
	pair.AccessToken, err = m.sign(user, TokenTypeAccess, "", now, pair.AccessExpiresAt)
	if err != nil {
		return TokenPair{}, err
	}
	pair.RefreshToken, err = m.sign(user, TokenTypeRefresh, sid, now, pair.RefreshExpiresAt)
	if err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

func (m *TokenManager) sign(user *model.User, typ, sid string, now, exp time.Time) (string, error) {
	claims := &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		TokenType: typ,
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies signature and expiry of raw and checks that it is a token
// of type typ.
func (m *TokenManager) Parse(raw, typ string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != typ {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.TokenType, typ)
	}
	return claims, nil
}
