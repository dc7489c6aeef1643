package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, VerifyPassword("s3cret-password", hash))
	assert.False(t, VerifyPassword("wrong-password", hash))
	assert.False(t, VerifyPassword("s3cret-password", "not-a-hash"))
}

func TestGenerateVerificationToken(t *testing.T) {
	token, err := GenerateVerificationToken()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "eventreg-verify="))
	// 20 random bytes hex-encoded
	assert.Len(t, strings.TrimPrefix(token, "eventreg-verify="), 40)

	other, err := GenerateVerificationToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestSignatures(t *testing.T) {
	key := []byte("test-secret")

	sig := SignMessage(key, "conf.example.com|org-id")
	assert.True(t, VerifySignature(key, "conf.example.com|org-id", sig))
	assert.False(t, VerifySignature(key, "evil.example.com|org-id", sig))
	assert.False(t, VerifySignature([]byte("other-key"), "conf.example.com|org-id", sig))
	assert.False(t, VerifySignature(key, "conf.example.com|org-id", "zzzz"))
}
