package cache

import (
	"context"
	"testing"
	"time"

	"Melodix/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewSessionStore(rdb, time.Hour), mr
}

func TestSessionStoreLifecycle(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	user := &model.User{ID: 7, Username: "alice"}

	sess, err := store.Create(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.True(t, mr.Exists("session:refresh:"+sess.ID))
	assert.Equal(t, time.Hour, mr.TTL("session:refresh:"+sess.ID))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// 重复删除不报错
	assert.NoError(t, store.Delete(ctx, sess.ID))
}

func TestSessionStoreRotate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, &model.User{ID: 3, Username: "bob"})
	require.NoError(t, err)

	next, err := store.Rotate(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, next.ID)
	assert.Equal(t, int64(3), next.UserID)

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// 旧会话不能再次轮换
	_, err = store.Rotate(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, &model.User{ID: 1, Username: "carol"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
