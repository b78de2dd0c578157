package noisecore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Ed25519PublicKeyBytes is the serialized form of an identity public key as
// it travels in a HandshakePayload's identity_key field.
type Ed25519PublicKeyBytes = ed25519.PublicKey

// ed25519Verifier adapts an ed25519.PublicKey to the IdentityVerifier
// interface payload.go consumes.
type ed25519Verifier struct {
	pub ed25519.PublicKey
}

func (v ed25519Verifier) Verify(msg, sig []byte) bool {
	return ed25519.Verify(v.pub, msg, sig)
}

// parseEd25519PublicKey deserializes identityKey, a remote peer's
// identity_key field, as an Ed25519 public key. Any other length fails to
// deserialize and is an InvalidIdentityKey per spec.md §4.4 step 2 — this
// is a malformed *remote* key, distinct from UnsupportedIdentityKey, which
// is reserved for a local signer of an unsupported type rejected at
// construction time (§4.4's final paragraph).
func parseEd25519PublicKey(identityKey []byte) (ed25519Verifier, error) {
	if len(identityKey) != ed25519.PublicKeySize {
		return ed25519Verifier{}, newErr("parseEd25519PublicKey", KindInvalidIdentityKey, nil)
	}
	return ed25519Verifier{pub: ed25519.PublicKey(identityKey)}, nil
}

// Ed25519Identity is the demo/test IdentitySigner implementation: a node's
// long-term Ed25519 keypair, generated, loaded, and persisted the way the
// teacher's Curve25519 node identity is, adapted from a DH key to a signing
// key since the identity layer here signs rather than performs key
// agreement.
type Ed25519Identity struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
}

// GenerateEd25519Identity creates a new random identity keypair.
func GenerateEd25519Identity() (*Ed25519Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate identity key: %w", err)
	}
	return &Ed25519Identity{PrivateKey: priv, PublicKey: pub}, nil
}

// Ed25519IdentityFromPrivateKey recreates an identity from a serialized
// private key.
func Ed25519IdentityFromPrivateKey(privKey ed25519.PrivateKey) (*Ed25519Identity, error) {
	if len(privKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("identity private key: want %d bytes, got %d", ed25519.PrivateKeySize, len(privKey))
	}
	pub := privKey.Public().(ed25519.PublicKey)
	return &Ed25519Identity{PrivateKey: privKey, PublicKey: pub}, nil
}

// LoadOrGenerateEd25519Identity loads an identity from path, or generates
// and persists a new one if path does not hold a valid key.
func LoadOrGenerateEd25519Identity(path string) (*Ed25519Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) == ed25519.PrivateKeySize {
		return Ed25519IdentityFromPrivateKey(ed25519.PrivateKey(data))
	}

	id, err := GenerateEd25519Identity()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create identity directory: %w", err)
	}
	if err := os.WriteFile(path, id.PrivateKey, 0600); err != nil {
		return nil, fmt.Errorf("save identity: %w", err)
	}
	return id, nil
}

// PublicKeyBytes implements IdentitySigner.
func (id *Ed25519Identity) PublicKeyBytes() []byte {
	return append([]byte(nil), id.PublicKey...)
}

// Sign implements IdentitySigner.
func (id *Ed25519Identity) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(id.PrivateKey, msg), nil
}

// PeerID returns the PeerID this identity's public key derives to.
func (id *Ed25519Identity) PeerID() PeerID {
	return DerivePeerID(id.PublicKey)
}

// PublicKeyHex returns the public key as a hex string, for logs and CLI
// display.
func (id *Ed25519Identity) PublicKeyHex() string {
	return hex.EncodeToString(id.PublicKey)
}

// String returns a human-readable identity summary.
func (id *Ed25519Identity) String() string {
	return fmt.Sprintf("Identity{peer=%s, pubkey=%s...}", id.PeerID(), id.PublicKeyHex()[:16])
}
