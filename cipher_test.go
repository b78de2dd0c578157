package noisecore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDHKeyPairClamping(t *testing.T) {
	kp, err := generateDHKeyPair()
	require.NoError(t, err)

	assert.Equal(t, byte(0), kp.private[0]&0x07, "low 3 bits of byte 0 must be clear")
	assert.Equal(t, byte(0), kp.private[31]&0x80, "high bit of byte 31 must be clear")
	assert.Equal(t, byte(0x40), kp.private[31]&0x40, "bit 6 of byte 31 must be set")
}

func TestDHAgreement(t *testing.T) {
	a, err := generateDHKeyPair()
	require.NoError(t, err)
	b, err := generateDHKeyPair()
	require.NoError(t, err)

	sharedA, err := dh(a.private, b.public)
	require.NoError(t, err)
	sharedB, err := dh(b.private, a.public)
	require.NoError(t, err)

	assert.Equal(t, sharedA, sharedB)
}

func TestAEADRoundTrip(t *testing.T) {
	var key [aeadKeyLen]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	ciphertext, err := aeadSeal(key, 7, []byte("ad"), []byte("hello world"))
	require.NoError(t, err)

	plaintext, err := aeadOpen(key, 7, []byte("ad"), ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), plaintext)
}

func TestAEADOpenRejectsTamperedCiphertext(t *testing.T) {
	var key [aeadKeyLen]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	ciphertext, err := aeadSeal(key, 0, nil, []byte("hello"))
	require.NoError(t, err)
	ciphertext[0] ^= 0xff

	_, err = aeadOpen(key, 0, nil, ciphertext)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMacFailure)
}

func TestAEADOpenRejectsWrongNonce(t *testing.T) {
	var key [aeadKeyLen]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	ciphertext, err := aeadSeal(key, 3, nil, []byte("hello"))
	require.NoError(t, err)

	_, err = aeadOpen(key, 4, nil, ciphertext)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMacFailure)
}

func TestNonceBytesEncoding(t *testing.T) {
	n := nonceBytes(1)
	assert.Equal(t, [aeadNonceLen]byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}, n)

	n = nonceBytes(0x0102030405060708)
	assert.Equal(t, [aeadNonceLen]byte{0, 0, 0, 0, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, n)
}
