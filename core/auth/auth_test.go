package auth

import (
	"testing"
	"time"

	"Melodix/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, VerifyPassword("s3cret", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("", hash))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)
	user := &model.User{ID: 42, Username: "alice"}

	pair, err := m.Issue(user, "sid-1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))
	assert.Equal(t, 24*time.Hour, m.RefreshTTL())
	assert.Equal(t, m.RefreshTTL(), pair.RefreshExpiresAt.Sub(pair.AccessExpiresAt)+15*time.Minute)

	access, err := m.Parse(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), access.UserID)
	assert.Equal(t, "alice", access.Username)
	assert.Empty(t, access.SessionID)

	refresh, err := m.Parse(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", refresh.SessionID)

	_, err = m.Parse(pair.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestParseRejectsBadTokens(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute, time.Hour)
	user := &model.User{ID: 1, Username: "bob"}

	other := NewTokenManager("other-secret", time.Minute, time.Hour)
	pair, err := other.Issue(user, "sid")
	require.NoError(t, err)
	_, err = m.Parse(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("not-a-jwt", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// 过期令牌
	expired := NewTokenManager("test-secret", time.Minute, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	pair, err = expired.Issue(user, "sid")
	require.NoError(t, err)
	_, err = m.Parse(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// alg none 不被接受
	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1, TokenType: TokenTypeAccess})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(raw, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
