package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return NewManagerWithKey(key, 15*time.Minute, 24*time.Hour, "campus-live")
}

func TestManager_TokenPairRoundTrip(t *testing.T) {
	m := newTestManager(t)

	access, refresh, accessExp, refreshExp, err := m.GenerateTokenPair("u-1", "alice@campus.edu", "alice", []string{"user"})
	require.NoError(t, err)
	assert.Less(t, accessExp, refreshExp)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice@campus.edu", claims.Email)
	assert.Equal(t, TypeAccess, claims.Type)

	claims, err = m.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, claims.Type)
}

func TestManager_RefreshRejectsAccessToken(t *testing.T) {
	m := newTestManager(t)
	access, refresh, _, _, err := m.GenerateTokenPair("u-1", "alice@campus.edu", "alice", nil)
	require.NoError(t, err)

	_, _, _, _, err = m.RefreshTokens(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	newAccess, _, _, _, err := m.RefreshTokens(refresh)
	require.NoError(t, err)
	claims, err := m.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice@campus.edu", claims.Email)
}

func TestManager_ExpiredToken(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	access, _, _, _, err := m.GenerateTokenPair("u-1", "alice@campus.edu", "alice", nil)
	require.NoError(t, err)

	_, err = m.ValidateToken(access)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_RevocationOnlyAffectsEarlierTokens(t *testing.T) {
	m := newTestManager(t)
	base := time.Now()
	m.now = func() time.Time { return base }

	old, _, _, _, err := m.GenerateTokenPair("u-1", "alice@campus.edu", "alice", nil)
	require.NoError(t, err)

	m.RevokeUserTokens("u-1")
	assert.True(t, m.IsRevoked("u-1"))

	_, err = m.ValidateToken(old)
	assert.ErrorIs(t, err, ErrRevokedToken)

	m.now = func() time.Time { return base.Add(2 * time.Second) }
	fresh, _, _, _, err := m.GenerateTokenPair("u-1", "alice@campus.edu", "alice", nil)
	require.NoError(t, err)
	_, err = m.ValidateToken(fresh)
	assert.NoError(t, err)

	m.now = func() time.Time { return base.Add(25 * time.Hour) }
	m.CleanupExpiredRevocations()
	assert.False(t, m.IsRevoked("u-1"))
}

func TestManager_RealtimeCredential(t *testing.T) {
	m := newTestManager(t)

	token, exp, err := m.GenerateRealtimeToken("u-1", "alice@campus.edu", []string{"room:lobby"}, time.Hour)
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())

	verifier := NewVerifier(m.PublicKey(), "campus-live")
	claims, err := verifier.ValidateRealtime(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@campus.edu", claims.ClientID)
	assert.Equal(t, []string{"room:lobby"}, claims.Scope)

	access, _, _, _, err := m.GenerateTokenPair("u-1", "alice@campus.edu", "alice", nil)
	require.NoError(t, err)
	_, err = verifier.ValidateRealtime(access)
	assert.ErrorIs(t, err, ErrWrongType)

	_, _, err = m.GenerateRealtimeToken("u-1", "", nil, time.Hour)
	assert.Error(t, err)
}

func TestVerifier_RejectsForeignKeyAndIssuer(t *testing.T) {
	m := newTestManager(t)
	other := newTestManager(t)

	token, _, err := m.GenerateRealtimeToken("u-1", "alice@campus.edu", nil, time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier(other.PublicKey(), "campus-live").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewVerifier(m.PublicKey(), "someone-else").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoadPublicKey_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	data, err := EncodePublicKey(m.PublicKey())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "realtime.pub")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	key, err := LoadPublicKey(path)
	require.NoError(t, err)
	assert.True(t, key.Equal(m.PublicKey()))

	_, err = LoadPrivateKey(path)
	assert.Error(t, err)
}
