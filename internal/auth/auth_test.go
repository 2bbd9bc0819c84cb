package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := CreateHash("correct horse battery staple", Params)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	match, err := ComparePasswordAndHash("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = ComparePasswordAndHash("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestPasswordHashesAreSalted(t *testing.T) {
	h1, err := CreateHash("secret", Params)
	require.NoError(t, err)
	h2, err := CreateHash("secret", Params)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestCompareRejectsMalformedHash(t *testing.T) {
	_, err := ComparePasswordAndHash("secret", "not-an-encoded-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestJWTRoundTrip(t *testing.T) {
	Init()

	token, err := CreateJWT(42)
	require.NoError(t, err)

	userID, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestJWTRejectsGarbage(t *testing.T) {
	Init()

	_, err := AuthenticateJWT("definitely.not.ajwt")
	assert.Error(t, err)
}
