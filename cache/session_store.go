package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Melodix/logger"
	"Melodix/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const sessionKeyPrefix = "session:refresh:"

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("refresh session not found")

// SessionStore keeps refresh sessions in Redis. Each session lives under
// session:refresh:<sid> and expires together with its refresh token.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionStore 创建基于 Redis 的会话存储
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, now: time.Now}
}

func sessionKey(sid string) string {
	return sessionKeyPrefix + sid
}

// Create opens a new session for user and returns it.
func (s *SessionStore) Create(ctx context.Context, user *model.User) (*model.RefreshSession, error) {
	now := s.now()
	sess := &model.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	logger.Debug("[Session] 创建刷新会话",
		logger.String("sid", sess.ID), logger.Int64("userID", user.ID))
	return sess, nil
}

// Get 读取会话，不存在时返回 ErrSessionNotFound
func (s *SessionStore) Get(ctx context.Context, sid string) (*model.RefreshSession, error) {
	data, err := s.client.Get(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess model.RefreshSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete 删除会话，会话不存在不视为错误
func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Rotate consumes the session sid and opens a replacement for the same user.
// A session can be rotated once; a second attempt with the same sid fails
// with ErrSessionNotFound.
func (s *SessionStore) Rotate(ctx context.Context, sid string) (*model.RefreshSession, error) {
	data, err := s.client.GetDel(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to consume session: %w", err)
	}

	var old model.RefreshSession
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	next, err := s.Create(ctx, &model.User{ID: old.UserID, Username: old.Username})
	if err != nil {
		return nil, err
	}
	logger.Info("[Session] 刷新会话已轮换",
		logger.String("from", old.ID), logger.String("to", next.ID), logger.Int64("userID", old.UserID))
	return next, nil
}
