package noisecore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519IdentitySignVerifyRoundTrip(t *testing.T) {
	id, err := GenerateEd25519Identity()
	require.NoError(t, err)

	msg := []byte("message to sign")
	sig, err := id.Sign(msg)
	require.NoError(t, err)

	verifier, err := parseEd25519PublicKey(id.PublicKeyBytes())
	require.NoError(t, err)
	assert.True(t, verifier.Verify(msg, sig))
	assert.False(t, verifier.Verify([]byte("different message"), sig))
}

func TestLoadOrGenerateEd25519IdentityPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.key")

	first, err := LoadOrGenerateEd25519Identity(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 64)

	second, err := LoadOrGenerateEd25519Identity(path)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey, second.PublicKey)
}

func TestParseEd25519PublicKeyRejectsWrongLength(t *testing.T) {
	_, err := parseEd25519PublicKey([]byte("too short"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidIdentityKey)
}
