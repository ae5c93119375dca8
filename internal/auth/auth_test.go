package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "smartdash")
	token, err := tm.Generate("sess-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	id, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenManager("secret", "smartdash").Generate("sess-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = NewTokenManager("other", "smartdash").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", "smartdash")
	token, err := tm.Generate("sess-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestResetToken(t *testing.T) {
	token, hash, err := NewResetToken()
	require.NoError(t, err)
	assert.Len(t, token, 40)
	assert.Equal(t, hash, HashResetToken(token))
	assert.NotEqual(t, token, hash)
}
