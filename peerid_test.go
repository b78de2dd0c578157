package noisecore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePeerIDIsDeterministic(t *testing.T) {
	key := []byte("a stable identity public key!!!")
	a := DerivePeerID(key)
	b := DerivePeerID(key)
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())
}

func TestDerivePeerIDDiffersByKey(t *testing.T) {
	a := DerivePeerID([]byte("key one"))
	b := DerivePeerID([]byte("key two"))
	assert.NotEqual(t, a, b)
}

func TestPeerIDStringIsBase58(t *testing.T) {
	id := DerivePeerID([]byte("some identity key"))
	s := id.String()
	assert.NotEmpty(t, s)
	// Base58 excludes 0, O, I, l.
	assert.NotContains(t, s, "0")
	assert.NotContains(t, s, "O")
	assert.NotContains(t, s, "I")
	assert.NotContains(t, s, "l")
}
