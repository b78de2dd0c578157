package noisecore

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"time"
)

// lengthPrefixLen is the size of the big-endian length prefix that precedes
// every handshake message on the wire, per spec.md §4.5.
const lengthPrefixLen = 2

// maxHandshakeMessageLen is the largest handshake message the length prefix
// can address.
const maxHandshakeMessageLen = 1<<16 - 1

// HandshakeResult carries everything a completed handshake produced: the
// session keys for the secured channel, the verified remote peer identity,
// and any extensions the remote side attached to its payload.
type HandshakeResult struct {
	Keys              *SessionKeys
	RemoteStaticKey   [dhLen]byte
	RemotePeerID      PeerID
	RemoteIdentityKey Ed25519PublicKeyBytes
	RemoteExtensions  *Extensions
}

// writeHandshakeMessage length-prefixes msg and writes it to rw in full,
// per the framing rule in spec.md §4.5.
func writeHandshakeMessage(rw io.Writer, msg []byte) error {
	if len(msg) > maxHandshakeMessageLen {
		return newErr("writeHandshakeMessage", KindMalformedMessage, nil)
	}
	var prefix [lengthPrefixLen]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(msg)))
	if _, err := rw.Write(prefix[:]); err != nil {
		return newErr("writeHandshakeMessage", KindTransportError, err)
	}
	if _, err := rw.Write(msg); err != nil {
		return newErr("writeHandshakeMessage", KindTransportError, err)
	}
	return nil
}

// readHandshakeMessage reads one length-prefixed handshake message from r.
func readHandshakeMessage(r io.Reader) ([]byte, error) {
	var prefix [lengthPrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, newErr("readHandshakeMessage", KindShortRead, err)
	}
	length := binary.BigEndian.Uint16(prefix[:])
	msg := make([]byte, length)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, newErr("readHandshakeMessage", KindShortRead, err)
	}
	return msg, nil
}

// deadlineSetter is implemented by transports that support read/write
// deadlines, mirroring the conn collaborator this corpus's secured sessions
// expect (net.Pipe and wsconn.Conn both do). Transports that don't support
// deadlines simply don't implement it, and RunInitiator/RunResponder skip
// deadline wiring.
type deadlineSetter interface {
	SetDeadline(time.Time) error
}

// RunInitiator drives the initiator side of the XX handshake described in
// spec.md §4.3/§4.5 over rw, binding the local identity per §4.4, and
// returns the resulting session keys and verified remote identity.
// nonceEncoding must name the nonce layout this build implements
// (Config.NonceEncoding, typically NonceEncodingLittleEndian4_11) — it is
// validated before anything is written to rw, per §4.6/§9's requirement
// that a deployment can verify both peers agree on one encoding.
func RunInitiator(ctx context.Context, rw io.ReadWriteCloser, localStatic dhKeyPair, signer IdentitySigner, ext *Extensions, nonceEncoding string, logger *slog.Logger) (*HandshakeResult, error) {
	return runHandshake(ctx, rw, RoleInitiator, localStatic, signer, ext, nonceEncoding, logger)
}

// RunResponder drives the responder side of the XX handshake over rw.
func RunResponder(ctx context.Context, rw io.ReadWriteCloser, localStatic dhKeyPair, signer IdentitySigner, ext *Extensions, nonceEncoding string, logger *slog.Logger) (*HandshakeResult, error) {
	return runHandshake(ctx, rw, RoleResponder, localStatic, signer, ext, nonceEncoding, logger)
}

func runHandshake(ctx context.Context, rw io.ReadWriteCloser, role Role, localStatic dhKeyPair, signer IdentitySigner, ext *Extensions, nonceEncoding string, logger *slog.Logger) (result *HandshakeResult, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Any error aborts the handshake all-or-nothing and closes the
	// transport, per spec.md §4.5/§7 — never leaves a half-open channel.
	defer func() {
		if err != nil {
			rw.Close()
		}
	}()

	if err := ValidateNonceEncoding(nonceEncoding); err != nil {
		return nil, wrapHandshake("init", err)
	}

	if ds, ok := rw.(deadlineSetter); ok {
		if deadline, ok := ctx.Deadline(); ok {
			if derr := ds.SetDeadline(deadline); derr == nil {
				defer ds.SetDeadline(time.Time{})
			}
		}
	}

	hs, err := NewHandshakeState(role, localStatic)
	if err != nil {
		return nil, wrapHandshake("init", err)
	}

	payload, err := buildHandshakePayload(signer, hs.LocalStaticPublicKey(), ext)
	if err != nil {
		return nil, wrapHandshake("build-payload", err)
	}

	var keys *SessionKeys
	var remotePayload []byte
	switch role {
	case RoleInitiator:
		keys, remotePayload, err = runInitiatorSequence(rw, hs, payload)
	case RoleResponder:
		keys, remotePayload, err = runResponderSequence(rw, hs, payload)
	default:
		err = newErr("runHandshake", KindProtocolStateViolation, nil)
	}
	if err != nil {
		return nil, wrapHandshake("exchange", err)
	}

	remoteStatic, ok := hs.RemoteStaticPublicKey()
	if !ok {
		return nil, wrapHandshake("exchange", newErr("runHandshake", KindProtocolStateViolation, nil))
	}

	peerID, identityKey, remoteExt, err := verifyHandshakePayload(remotePayload, remoteStatic)
	if err != nil {
		return nil, wrapHandshake("verify-identity", err)
	}

	logger.Debug("handshake complete", "role", role, "peer", peerID.String())

	return &HandshakeResult{
		Keys:              keys,
		RemoteStaticKey:   remoteStatic,
		RemotePeerID:      peerID,
		RemoteIdentityKey: identityKey,
		RemoteExtensions:  remoteExt,
	}, nil
}

// runInitiatorSequence runs the initiator's three-message side of the XX
// exchange: write e, read e/ee/s/es/payload, write s/se/payload. The
// responder's payload (decrypted at message 2) is returned for identity
// verification by the caller.
func runInitiatorSequence(rw io.ReadWriteCloser, hs *HandshakeState, localPayload []byte) (*SessionKeys, []byte, error) {
	msg1, _, err := hs.WriteMessage(nil)
	if err != nil {
		return nil, nil, err
	}
	if err := writeHandshakeMessage(rw, msg1); err != nil {
		return nil, nil, err
	}

	wire2, err := readHandshakeMessage(rw)
	if err != nil {
		return nil, nil, err
	}
	remotePayload, _, err := hs.ReadMessage(wire2)
	if err != nil {
		return nil, nil, err
	}

	msg3, keys, err := hs.WriteMessage(localPayload)
	if err != nil {
		return nil, nil, err
	}
	if err := writeHandshakeMessage(rw, msg3); err != nil {
		return nil, nil, err
	}

	return keys, remotePayload, nil
}

// runResponderSequence runs the responder's three-message side: read e,
// write e/ee/s/es/payload, read s/se/payload. The initiator's payload
// (decrypted at message 3) is returned for identity verification.
func runResponderSequence(rw io.ReadWriteCloser, hs *HandshakeState, localPayload []byte) (*SessionKeys, []byte, error) {
	wire1, err := readHandshakeMessage(rw)
	if err != nil {
		return nil, nil, err
	}
	if _, _, err := hs.ReadMessage(wire1); err != nil {
		return nil, nil, err
	}

	msg2, _, err := hs.WriteMessage(localPayload)
	if err != nil {
		return nil, nil, err
	}
	if err := writeHandshakeMessage(rw, msg2); err != nil {
		return nil, nil, err
	}

	wire3, err := readHandshakeMessage(rw)
	if err != nil {
		return nil, nil, err
	}
	remotePayload, keys, err := hs.ReadMessage(wire3)
	if err != nil {
		return nil, nil, err
	}

	return keys, remotePayload, nil
}
