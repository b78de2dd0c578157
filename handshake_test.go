package noisecore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXXHandshakeRoundTrip(t *testing.T) {
	initiatorStatic, err := generateDHKeyPair()
	require.NoError(t, err)
	responderStatic, err := generateDHKeyPair()
	require.NoError(t, err)

	initiator, err := NewHandshakeState(RoleInitiator, initiatorStatic)
	require.NoError(t, err)
	responder, err := NewHandshakeState(RoleResponder, responderStatic)
	require.NoError(t, err)

	msg1, keys1, err := initiator.WriteMessage(nil)
	require.NoError(t, err)
	assert.Nil(t, keys1)
	require.NoError(t, requireReadMsg1(responder, msg1))

	msg2, keys2, err := responder.WriteMessage([]byte("responder hello"))
	require.NoError(t, err)
	assert.Nil(t, keys2)

	payload2, keys3, err := initiator.ReadMessage(msg2)
	require.NoError(t, err)
	assert.Nil(t, keys3)
	assert.Equal(t, []byte("responder hello"), payload2)

	msg3, initiatorKeys, err := initiator.WriteMessage([]byte("initiator hello"))
	require.NoError(t, err)
	require.NotNil(t, initiatorKeys)

	payload3, responderKeys, err := responder.ReadMessage(msg3)
	require.NoError(t, err)
	require.NotNil(t, responderKeys)
	assert.Equal(t, []byte("initiator hello"), payload3)

	assert.Equal(t, initiatorKeys.SendKey, responderKeys.RecvKey)
	assert.Equal(t, initiatorKeys.RecvKey, responderKeys.SendKey)

	remoteStaticAtInitiator, ok := initiator.RemoteStaticPublicKey()
	require.True(t, ok)
	assert.Equal(t, responderStatic.public, remoteStaticAtInitiator)

	remoteStaticAtResponder, ok := responder.RemoteStaticPublicKey()
	require.True(t, ok)
	assert.Equal(t, initiatorStatic.public, remoteStaticAtResponder)
}

func requireReadMsg1(responder *HandshakeState, msg1 []byte) error {
	_, _, err := responder.ReadMessage(msg1)
	return err
}

func TestHandshakeRejectsWrongRoleWrite(t *testing.T) {
	kp, err := generateDHKeyPair()
	require.NoError(t, err)
	initiator, err := NewHandshakeState(RoleInitiator, kp)
	require.NoError(t, err)

	// An initiator may not write again before reading Msg2.
	_, _, err = initiator.WriteMessage(nil)
	require.NoError(t, err)
	_, _, err = initiator.WriteMessage(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolStateViolation)
}

func TestHandshakeRejectsShortMsg1(t *testing.T) {
	kp, err := generateDHKeyPair()
	require.NoError(t, err)
	responder, err := NewHandshakeState(RoleResponder, kp)
	require.NoError(t, err)

	_, _, err = responder.ReadMessage(make([]byte, dhLen-1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestHandshakeRejectsShortMsg2(t *testing.T) {
	initiatorStatic, err := generateDHKeyPair()
	require.NoError(t, err)
	initiator, err := NewHandshakeState(RoleInitiator, initiatorStatic)
	require.NoError(t, err)

	_, _, err = initiator.WriteMessage(nil)
	require.NoError(t, err)

	_, _, err = initiator.ReadMessage(make([]byte, dhLen+(dhLen+aeadTagLen)+aeadTagLen-1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestHandshakeRejectsShortMsg3(t *testing.T) {
	initiatorStatic, err := generateDHKeyPair()
	require.NoError(t, err)
	responderStatic, err := generateDHKeyPair()
	require.NoError(t, err)
	initiator, err := NewHandshakeState(RoleInitiator, initiatorStatic)
	require.NoError(t, err)
	responder, err := NewHandshakeState(RoleResponder, responderStatic)
	require.NoError(t, err)

	msg1, _, err := initiator.WriteMessage(nil)
	require.NoError(t, err)
	_, _, err = responder.ReadMessage(msg1)
	require.NoError(t, err)

	_, _, err = responder.ReadMessage(make([]byte, (dhLen+aeadTagLen)+aeadTagLen-1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestHandshakeRejectsTamperedMsg2(t *testing.T) {
	initiatorStatic, err := generateDHKeyPair()
	require.NoError(t, err)
	responderStatic, err := generateDHKeyPair()
	require.NoError(t, err)
	initiator, err := NewHandshakeState(RoleInitiator, initiatorStatic)
	require.NoError(t, err)
	responder, err := NewHandshakeState(RoleResponder, responderStatic)
	require.NoError(t, err)

	msg1, _, err := initiator.WriteMessage(nil)
	require.NoError(t, err)
	_, _, err = responder.ReadMessage(msg1)
	require.NoError(t, err)

	msg2, _, err := responder.WriteMessage(nil)
	require.NoError(t, err)
	msg2[len(msg2)-1] ^= 0xff

	_, _, err = initiator.ReadMessage(msg2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMacFailure)
}
