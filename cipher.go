package noisecore

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

// Fixed sizes used throughout the handshake and transport, per spec.md §3/§6.
const (
	hashLen      = sha256.Size // 32
	dhLen        = 32
	aeadKeyLen   = chacha20poly1305.KeySize // 32
	aeadTagLen   = chacha20poly1305.Overhead
	aeadNonceLen = chacha20poly1305.NonceSize // 12
)

func sha256Sum(data ...[]byte) [hashLen]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [hashLen]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hmacSHA256(key, data []byte) [hashLen]byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	var out [hashLen]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// dhKeyPair is a Curve25519 keypair, generated following the clamping
// sequence used throughout this corpus for X25519 keys.
type dhKeyPair struct {
	private [dhLen]byte
	public  [dhLen]byte
}

// StaticKeypair is a handshake's long-term Noise static keypair. Callers
// treat it as opaque: generate one with GenerateStaticKeypair and hand it
// to RunInitiator/RunResponder.
type StaticKeypair = dhKeyPair

// GenerateStaticKeypair generates a fresh random static Curve25519 keypair
// for use as a handshake's local static key.
func GenerateStaticKeypair() (StaticKeypair, error) {
	return generateDHKeyPair()
}

func generateDHKeyPair() (dhKeyPair, error) {
	var kp dhKeyPair
	if _, err := rand.Read(kp.private[:]); err != nil {
		return kp, newErr("generateDHKeyPair", KindTransportError, err)
	}
	kp.private[0] &= 248
	kp.private[31] &= 127
	kp.private[31] |= 64

	pub, err := curve25519.X25519(kp.private[:], curve25519.Basepoint)
	if err != nil {
		return kp, newErr("generateDHKeyPair", KindTransportError, err)
	}
	copy(kp.public[:], pub)
	return kp, nil
}

// dh performs X25519(private, remotePublic). A zero remote public key
// yields a zero shared secret, per §4.1 — the core does not reject
// low-order points beyond what the transcript hash already binds.
func dh(private, remotePublic [dhLen]byte) ([dhLen]byte, error) {
	var out [dhLen]byte
	shared, err := curve25519.X25519(private[:], remotePublic[:])
	if err != nil {
		return out, newErr("dh", KindTransportError, err)
	}
	copy(out[:], shared)
	return out, nil
}

// nonceBytes encodes a 64-bit counter into a 12-octet ChaCha20-Poly1305
// nonce: 4 zero octets followed by the counter, little-endian, in octets
// 4..11. Per the Open Question resolution in DESIGN.md this single
// encoding is shared by the handshake symmetric state and the
// post-handshake transport cipher.
func nonceBytes(n uint64) [aeadNonceLen]byte {
	var nonce [aeadNonceLen]byte
	for i := 0; i < 8; i++ {
		nonce[4+i] = byte(n >> (8 * i))
	}
	return nonce
}

// aeadSeal encrypts plaintext with ChaCha20-Poly1305, returning
// ciphertext||tag.
func aeadSeal(key [aeadKeyLen]byte, n uint64, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, newErr("aeadSeal", KindTransportError, err)
	}
	nonce := nonceBytes(n)
	return aead.Seal(nil, nonce[:], plaintext, ad), nil
}

// aeadOpen authenticates and decrypts ciphertext||tag, returning
// ErrMacFailure on authentication failure.
func aeadOpen(key [aeadKeyLen]byte, n uint64, ad, ciphertextAndTag []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, newErr("aeadOpen", KindTransportError, err)
	}
	nonce := nonceBytes(n)
	plaintext, err := aead.Open(nil, nonce[:], ciphertextAndTag, ad)
	if err != nil {
		return nil, newErr("aeadOpen", KindMacError, err)
	}
	return plaintext, nil
}
