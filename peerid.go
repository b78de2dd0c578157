package noisecore

import (
	"golang.org/x/crypto/blake2s"

	"github.com/mr-tron/base58"
)

// PeerID is a content-derived identifier for a remote identity public key,
// following this corpus's AddressFromPublicKey pattern (internal/identity
// in the teacher repo) adapted from a 160-bit address to a full 256-bit
// digest since nothing here needs the teacher's shorter on-wire address.
type PeerID [32]byte

// DerivePeerID computes the PeerID for a serialized identity public key:
// BLAKE2s-256 of the raw key bytes.
func DerivePeerID(identityPublicKey []byte) PeerID {
	return PeerID(blake2s.Sum256(identityPublicKey))
}

// String renders the PeerID as Base58, mirroring the display encoding this
// corpus uses for peer-facing identifiers.
func (id PeerID) String() string {
	return base58.Encode(id[:])
}

// IsZero reports whether id is the zero value, useful before a handshake
// has produced a verified remote identity.
func (id PeerID) IsZero() bool {
	return id == PeerID{}
}
