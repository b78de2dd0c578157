package noisecore

// Role identifies which side of the XX handshake a HandshakeState plays.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// progress is the handshake's five-state machine from spec.md §4.3.
type progress int

const (
	progressInitial progress = iota
	progressSentE
	progressSentEES
	progressComplete
	progressError
)

// SessionKeys are the two independent AEAD keys Split produces at
// handshake completion, already assigned per the role-based rule in
// spec.md §3: initiator sends with k1/recvs with k2, responder the
// reverse.
type SessionKeys struct {
	SendKey [aeadKeyLen]byte
	RecvKey [aeadKeyLen]byte
}

// HandshakeState drives one XX handshake for either role. Per spec.md
// §3/§9 it holds ephemeral key material and symmetric state by value and
// is destroyed (zeroed) on completion or error; nothing outside this type
// ever needs to see ck/h/k directly.
type HandshakeState struct {
	role        Role
	ss          symmetricState
	local       dhKeyPair // local static keypair
	ephem       dhKeyPair // local ephemeral keypair, generated at construction
	remoteE     [dhLen]byte
	remoteS     [dhLen]byte
	haveRemoteE bool
	haveRemoteS bool
	state       progress
}

// NewHandshakeState creates a handshake engine for the given role and
// local static keypair, generating a fresh ephemeral keypair immediately
// per spec.md §3's "Handshake context" data model.
func NewHandshakeState(role Role, localStatic dhKeyPair) (*HandshakeState, error) {
	ephem, err := generateDHKeyPair()
	if err != nil {
		return nil, newErr("NewHandshakeState", KindTransportError, err)
	}
	return &HandshakeState{
		role:  role,
		ss:    initSymmetricState(),
		local: localStatic,
		ephem: ephem,
		state: progressInitial,
	}, nil
}

// LocalStaticPublicKey returns this handshake's local static public key,
// used by the identity-binding layer to sign the static-key-with-prefix
// message (spec.md §4.4).
func (hs *HandshakeState) LocalStaticPublicKey() [dhLen]byte {
	return hs.local.public
}

// RemoteStaticPublicKey returns the remote static public key, valid once
// it has been received (after Msg2 for the initiator, after Msg3 for the
// responder).
func (hs *HandshakeState) RemoteStaticPublicKey() ([dhLen]byte, bool) {
	return hs.remoteS, hs.haveRemoteS
}

func (hs *HandshakeState) fail(err error) error {
	hs.state = progressError
	hs.zero()
	return err
}

// WriteMessage emits the next handshake message this role is allowed to
// write, carrying payload as its encrypted application data. Msg1 carries
// no payload: payload is ignored there and an empty payload is hashed.
// On the message that completes the handshake it also returns the
// derived SessionKeys; keys is nil on the first two messages of each
// role's sequence.
func (hs *HandshakeState) WriteMessage(payload []byte) (message []byte, keys *SessionKeys, err error) {
	switch {
	case hs.role == RoleInitiator && hs.state == progressInitial:
		message, err = hs.writeMsg1()
	case hs.role == RoleResponder && hs.state == progressSentE:
		message, err = hs.writeMsg2(payload)
	case hs.role == RoleInitiator && hs.state == progressSentEES:
		message, keys, err = hs.writeMsg3(payload)
	default:
		return nil, nil, hs.fail(newErr("WriteMessage", KindProtocolStateViolation, nil))
	}
	if err != nil {
		return nil, nil, hs.fail(err)
	}
	return message, keys, nil
}

// ReadMessage consumes the next handshake message this role is allowed
// to read, returning the decrypted payload. On the message that
// completes the handshake it also returns the derived SessionKeys.
func (hs *HandshakeState) ReadMessage(message []byte) (payload []byte, keys *SessionKeys, err error) {
	switch {
	case hs.role == RoleResponder && hs.state == progressInitial:
		err = hs.readMsg1(message)
	case hs.role == RoleInitiator && hs.state == progressSentE:
		payload, err = hs.readMsg2(message)
	case hs.role == RoleResponder && hs.state == progressSentEES:
		payload, keys, err = hs.readMsg3(message)
	default:
		return nil, nil, hs.fail(newErr("ReadMessage", KindProtocolStateViolation, nil))
	}
	if err != nil {
		return nil, nil, hs.fail(err)
	}
	return payload, keys, nil
}

// --- Msg1: initiator -> responder, token "e" ---

func (hs *HandshakeState) writeMsg1() ([]byte, error) {
	hs.ss.mixHash(hs.ephem.public[:])
	hs.ss.mixHash(nil) // empty payload, per spec.md §4.3
	hs.state = progressSentE
	return append([]byte(nil), hs.ephem.public[:]...), nil
}

func (hs *HandshakeState) readMsg1(message []byte) error {
	if len(message) < dhLen {
		return newErr("readMsg1", KindMalformedMessage, nil)
	}
	copy(hs.remoteE[:], message[:dhLen])
	hs.haveRemoteE = true
	hs.ss.mixHash(hs.remoteE[:])
	hs.ss.mixHash(nil)
	hs.state = progressSentE
	return nil
}

// --- Msg2: responder -> initiator, tokens "e, ee, s, es" + payload ---

func (hs *HandshakeState) writeMsg2(payload []byte) ([]byte, error) {
	out := append([]byte(nil), hs.ephem.public[:]...)
	hs.ss.mixHash(hs.ephem.public[:])

	ee, err := dh(hs.ephem.private, hs.remoteE)
	if err != nil {
		return nil, err
	}
	hs.ss.mixKey(ee[:])

	ctS, err := hs.ss.encryptAndHash(hs.local.public[:])
	if err != nil {
		return nil, err
	}
	out = append(out, ctS...)

	es, err := dh(hs.local.private, hs.remoteE)
	if err != nil {
		return nil, err
	}
	hs.ss.mixKey(es[:])

	ctPayload, err := hs.ss.encryptAndHash(payload)
	if err != nil {
		return nil, err
	}
	out = append(out, ctPayload...)

	hs.state = progressSentEES
	return out, nil
}

func (hs *HandshakeState) readMsg2(message []byte) ([]byte, error) {
	const minLen = dhLen + (dhLen + aeadTagLen) + aeadTagLen
	if len(message) < minLen {
		return nil, newErr("readMsg2", KindMalformedMessage, nil)
	}

	copy(hs.remoteE[:], message[:dhLen])
	hs.haveRemoteE = true
	hs.ss.mixHash(hs.remoteE[:])
	rest := message[dhLen:]

	ee, err := dh(hs.ephem.private, hs.remoteE)
	if err != nil {
		return nil, err
	}
	hs.ss.mixKey(ee[:])

	encStaticLen := dhLen + aeadTagLen
	if len(rest) < encStaticLen {
		return nil, newErr("readMsg2", KindMalformedMessage, nil)
	}
	rs, err := hs.ss.decryptAndHash(rest[:encStaticLen])
	if err != nil {
		return nil, err
	}
	copy(hs.remoteS[:], rs)
	hs.haveRemoteS = true
	rest = rest[encStaticLen:]

	es, err := dh(hs.ephem.private, hs.remoteS)
	if err != nil {
		return nil, err
	}
	hs.ss.mixKey(es[:])

	payload, err := hs.ss.decryptAndHash(rest)
	if err != nil {
		return nil, err
	}

	hs.state = progressSentEES
	return payload, nil
}

// --- Msg3: initiator -> responder, tokens "s, se" + payload ---

func (hs *HandshakeState) writeMsg3(payload []byte) ([]byte, *SessionKeys, error) {
	ctS, err := hs.ss.encryptAndHash(hs.local.public[:])
	if err != nil {
		return nil, nil, err
	}
	out := append([]byte(nil), ctS...)

	se, err := dh(hs.local.private, hs.remoteE)
	if err != nil {
		return nil, nil, err
	}
	hs.ss.mixKey(se[:])

	ctPayload, err := hs.ss.encryptAndHash(payload)
	if err != nil {
		return nil, nil, err
	}
	out = append(out, ctPayload...)

	k1, k2 := hs.ss.split()
	hs.zero()
	hs.state = progressComplete
	return out, &SessionKeys{SendKey: k1, RecvKey: k2}, nil
}

func (hs *HandshakeState) readMsg3(message []byte) ([]byte, *SessionKeys, error) {
	const minLen = (dhLen + aeadTagLen) + aeadTagLen
	if len(message) < minLen {
		return nil, nil, newErr("readMsg3", KindMalformedMessage, nil)
	}

	encStaticLen := dhLen + aeadTagLen
	rs, err := hs.ss.decryptAndHash(message[:encStaticLen])
	if err != nil {
		return nil, nil, err
	}
	copy(hs.remoteS[:], rs)
	hs.haveRemoteS = true
	rest := message[encStaticLen:]

	se, err := dh(hs.ephem.private, hs.remoteS)
	if err != nil {
		return nil, nil, err
	}
	hs.ss.mixKey(se[:])

	payload, err := hs.ss.decryptAndHash(rest)
	if err != nil {
		return nil, nil, err
	}

	k1, k2 := hs.ss.split()
	hs.zero()
	hs.state = progressComplete
	return payload, &SessionKeys{SendKey: k2, RecvKey: k1}, nil
}

// zero destroys the handshake's secrets in place, per spec.md §3's
// ownership rule: all intermediate handshake state is zeroized on
// completion or error.
func (hs *HandshakeState) zero() {
	hs.ss.zero()
	for i := range hs.ephem.private {
		hs.ephem.private[i] = 0
	}
}
