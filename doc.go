// Package noisecore implements a Noise_XX handshake engine bound to
// libp2p-style long-term identity keys, and the length-framed AEAD secured
// channel that runs over the session keys the handshake produces.
//
// A handshake is driven with NewHandshakeState plus WriteMessage/ReadMessage
// directly, or with the higher-level RunInitiator/RunResponder, which add
// the wire framing, identity-payload construction, and remote identity
// verification. The resulting SessionKeys feed a Channel, which frames,
// encrypts, and sequences application data in both directions.
package noisecore
