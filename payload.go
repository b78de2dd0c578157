package noisecore

import (
	"bytes"
)

// payloadSigPrefix is prepended to the Noise static public key before
// signing it with the long-term identity key, per spec.md §4.4/§6.
const payloadSigPrefix = "noise-libp2p-static-key:"

// IdentitySigner is the long-term identity key collaborator this core
// consumes but does not own (spec.md §1: "Identity key material ... is
// consumed, not implemented here"). Sign must produce a signature
// verifiable by the matching IdentityVerifier.
type IdentitySigner interface {
	// PublicKeyBytes returns the serialized long-term public key, embedded
	// verbatim in the handshake payload.
	PublicKeyBytes() []byte
	// Sign signs msg with the long-term identity private key.
	Sign(msg []byte) ([]byte, error)
}

// IdentityVerifier verifies signatures against a parsed identity public
// key. The only implementation is the Ed25519 verifier returned by
// parseEd25519PublicKey (identitykey.go), a plain function that
// verifyHandshakePayload calls directly; no other key type can be plugged
// in.
type IdentityVerifier interface {
	Verify(msg, sig []byte) bool
}

// Extensions carries the optional nested extensions record from spec.md
// §3/§6. It is treated as opaque by the core: the core neither interprets
// nor validates its contents.
type Extensions struct {
	WebtransportCerthashes [][]byte
	StreamMuxers           []string
}

// HandshakePayload is the identity-binding payload built and parsed at
// Msg2/Msg3, per spec.md §3/§4.4/§6.
type HandshakePayload struct {
	IdentityKey []byte
	IdentitySig []byte
	Extensions  *Extensions
}

// Protobuf-wire tag numbers from spec.md §6. Both are length-delimited
// (wire type 2), matching the existing libp2p NoiseHandshakePayload
// schema; see DESIGN.md for why this is a hand-written TLV codec rather
// than a google.golang.org/protobuf-generated type.
const (
	tagIdentityKey    = 1
	tagIdentitySig    = 2
	tagExtensions     = 4
	tagExtCerthashes  = 1
	tagExtStreamMuxer = 2

	wireTypeLenDelim = 2
)

func putVarint(buf *bytes.Buffer, v uint64) {
	for v >= 0x80 {
		buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	buf.WriteByte(byte(v))
}

func readVarint(data []byte) (v uint64, n int, ok bool) {
	var shift uint
	for i := 0; i < len(data); i++ {
		b := data[i]
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, true
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, false
		}
	}
	return 0, 0, false
}

func putTag(buf *bytes.Buffer, fieldNum int, wireType int) {
	putVarint(buf, uint64(fieldNum)<<3|uint64(wireType))
}

func putLenDelim(buf *bytes.Buffer, fieldNum int, data []byte) {
	putTag(buf, fieldNum, wireTypeLenDelim)
	putVarint(buf, uint64(len(data)))
	buf.Write(data)
}

// encodeExtensions serializes Extensions as a nested length-delimited
// message per §6's tag layout.
func encodeExtensions(ext *Extensions) []byte {
	var buf bytes.Buffer
	for _, ch := range ext.WebtransportCerthashes {
		putLenDelim(&buf, tagExtCerthashes, ch)
	}
	for _, m := range ext.StreamMuxers {
		putLenDelim(&buf, tagExtStreamMuxer, []byte(m))
	}
	return buf.Bytes()
}

func decodeExtensions(data []byte) (*Extensions, error) {
	ext := &Extensions{}
	for len(data) > 0 {
		key, n, ok := readVarint(data)
		if !ok {
			return nil, newErr("decodeExtensions", KindMalformedMessage, nil)
		}
		data = data[n:]
		fieldNum := int(key >> 3)
		wireType := int(key & 0x7)
		if wireType != wireTypeLenDelim {
			return nil, newErr("decodeExtensions", KindMalformedMessage, nil)
		}
		length, n, ok := readVarint(data)
		if !ok || uint64(len(data)-n) < length {
			return nil, newErr("decodeExtensions", KindMalformedMessage, nil)
		}
		data = data[n:]
		value := data[:length]
		data = data[length:]
		switch fieldNum {
		case tagExtCerthashes:
			ext.WebtransportCerthashes = append(ext.WebtransportCerthashes, append([]byte(nil), value...))
		case tagExtStreamMuxer:
			ext.StreamMuxers = append(ext.StreamMuxers, string(value))
		}
	}
	return ext, nil
}

// encodeHandshakePayload serializes a HandshakePayload to its wire form.
func encodeHandshakePayload(p *HandshakePayload) []byte {
	var buf bytes.Buffer
	putLenDelim(&buf, tagIdentityKey, p.IdentityKey)
	putLenDelim(&buf, tagIdentitySig, p.IdentitySig)
	if p.Extensions != nil {
		putLenDelim(&buf, tagExtensions, encodeExtensions(p.Extensions))
	}
	return buf.Bytes()
}

// decodeHandshakePayload parses the wire form back into a
// HandshakePayload, failing with MissingIdentityKey/MissingIdentitySig
// when either required field is absent, per spec.md §4.4.
func decodeHandshakePayload(data []byte) (*HandshakePayload, error) {
	p := &HandshakePayload{}
	for len(data) > 0 {
		key, n, ok := readVarint(data)
		if !ok {
			return nil, newErr("decodeHandshakePayload", KindMalformedMessage, nil)
		}
		data = data[n:]
		fieldNum := int(key >> 3)
		wireType := int(key & 0x7)
		if wireType != wireTypeLenDelim {
			return nil, newErr("decodeHandshakePayload", KindMalformedMessage, nil)
		}
		length, n, ok := readVarint(data)
		if !ok || uint64(len(data)-n) < length {
			return nil, newErr("decodeHandshakePayload", KindMalformedMessage, nil)
		}
		data = data[n:]
		value := data[:length]
		data = data[length:]
		switch fieldNum {
		case tagIdentityKey:
			p.IdentityKey = append([]byte(nil), value...)
		case tagIdentitySig:
			p.IdentitySig = append([]byte(nil), value...)
		case tagExtensions:
			ext, err := decodeExtensions(value)
			if err != nil {
				return nil, err
			}
			p.Extensions = ext
		}
	}
	if len(p.IdentityKey) == 0 {
		return nil, newErr("decodeHandshakePayload", KindMissingIdentityKey, nil)
	}
	if len(p.IdentitySig) == 0 {
		return nil, newErr("decodeHandshakePayload", KindMissingIdentitySig, nil)
	}
	return p, nil
}

// buildHandshakePayload implements spec.md §4.4's "Build payload (local
// side)": sign the local Noise static public key with the prefix, embed
// the identity public key alongside it, and encode.
func buildHandshakePayload(signer IdentitySigner, localStaticPub [dhLen]byte, ext *Extensions) ([]byte, error) {
	msg := append([]byte(payloadSigPrefix), localStaticPub[:]...)
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, newErr("buildHandshakePayload", KindBadSignature, err)
	}
	payload := &HandshakePayload{
		IdentityKey: signer.PublicKeyBytes(),
		IdentitySig: sig,
		Extensions:  ext,
	}
	return encodeHandshakePayload(payload), nil
}

// verifyHandshakePayload implements spec.md §4.4's "Verify payload
// (remote side)": decode, deserialize the remote identity key, verify
// the signature against the *remote's* static key with the prefix, and
// derive the remote peer identifier.
func verifyHandshakePayload(data []byte, remoteStaticPub [dhLen]byte) (peerID PeerID, identityPub Ed25519PublicKeyBytes, extensions *Extensions, err error) {
	payload, err := decodeHandshakePayload(data)
	if err != nil {
		return PeerID{}, nil, nil, err
	}

	remoteKey, err := parseEd25519PublicKey(payload.IdentityKey)
	if err != nil {
		return PeerID{}, nil, nil, err
	}

	msg := append([]byte(payloadSigPrefix), remoteStaticPub[:]...)
	if !remoteKey.Verify(msg, payload.IdentitySig) {
		return PeerID{}, nil, nil, newErr("verifyHandshakePayload", KindBadSignature, nil)
	}

	return DerivePeerID(payload.IdentityKey), payload.IdentityKey, payload.Extensions, nil
}
