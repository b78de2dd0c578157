package noisecore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakePayloadEncodeDecodeRoundTrip(t *testing.T) {
	p := &HandshakePayload{
		IdentityKey: []byte("32-byte-ish-identity-key-value!"),
		IdentitySig: []byte("signature-bytes"),
		Extensions: &Extensions{
			WebtransportCerthashes: [][]byte{[]byte("hash-one"), []byte("hash-two")},
			StreamMuxers:           []string{"/yamux/1.0.0"},
		},
	}

	wire := encodeHandshakePayload(p)
	decoded, err := decodeHandshakePayload(wire)
	require.NoError(t, err)

	assert.Equal(t, p.IdentityKey, decoded.IdentityKey)
	assert.Equal(t, p.IdentitySig, decoded.IdentitySig)
	require.NotNil(t, decoded.Extensions)
	assert.Equal(t, p.Extensions.WebtransportCerthashes, decoded.Extensions.WebtransportCerthashes)
	assert.Equal(t, p.Extensions.StreamMuxers, decoded.Extensions.StreamMuxers)
}

func TestDecodeHandshakePayloadMissingIdentityKey(t *testing.T) {
	p := &HandshakePayload{IdentitySig: []byte("sig")}
	wire := encodeHandshakePayload(p)
	_, err := decodeHandshakePayload(wire)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingIdentityKey)
}

func TestDecodeHandshakePayloadMissingIdentitySig(t *testing.T) {
	p := &HandshakePayload{IdentityKey: []byte("key")}
	wire := encodeHandshakePayload(p)
	_, err := decodeHandshakePayload(wire)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingIdentitySig)
}

func TestBuildAndVerifyHandshakePayload(t *testing.T) {
	signer, err := GenerateEd25519Identity()
	require.NoError(t, err)

	staticKP, err := generateDHKeyPair()
	require.NoError(t, err)

	wire, err := buildHandshakePayload(signer, staticKP.public, nil)
	require.NoError(t, err)

	peerID, identityKey, ext, err := verifyHandshakePayload(wire, staticKP.public)
	require.NoError(t, err)
	assert.Nil(t, ext)
	assert.Equal(t, signer.PeerID(), peerID)
	assert.Equal(t, []byte(signer.PublicKey), []byte(identityKey))
}

func TestVerifyHandshakePayloadRejectsBadSignature(t *testing.T) {
	signer, err := GenerateEd25519Identity()
	require.NoError(t, err)

	staticKP, err := generateDHKeyPair()
	require.NoError(t, err)
	otherStaticKP, err := generateDHKeyPair()
	require.NoError(t, err)

	wire, err := buildHandshakePayload(signer, staticKP.public, nil)
	require.NoError(t, err)

	// Verifying against a different static key than the one that was
	// actually signed must fail.
	_, _, _, err = verifyHandshakePayload(wire, otherStaticKP.public)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyHandshakePayloadRejectsInvalidIdentityKey(t *testing.T) {
	p := &HandshakePayload{
		IdentityKey: []byte("too-short"),
		IdentitySig: []byte("sig"),
	}
	wire := encodeHandshakePayload(p)

	var staticPub [dhLen]byte
	_, _, _, err := verifyHandshakePayload(wire, staticPub)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidIdentityKey)
}
