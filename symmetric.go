package noisecore

// protocolName is the Noise protocol identifier this core implements,
// exactly 32 octets (HASHLEN) so it needs no padding — spec.md §4.2/§6.
const protocolName = "Noise_XX_25519_ChaChaPoly_SHA256"

func init() {
	if len(protocolName) != hashLen {
		panic("noisecore: protocol name must be exactly HASHLEN octets")
	}
}

// symmetricState holds the Noise (ck, h, k, n) tuple and evolves it in
// place, per spec.md §3/§4.2. It is mutated directly rather than
// copy-on-write, following the "systems implementation" guidance in
// spec.md §9.
type symmetricState struct {
	ck       [hashLen]byte
	h        [hashLen]byte
	k        [aeadKeyLen]byte
	hasKey   bool
	n        uint64
}

// initSymmetricState sets h/ck from the protocol name and mixes in the
// (empty) prologue, per spec.md §4.2 steps 1-4.
func initSymmetricState() symmetricState {
	var s symmetricState
	copy(s.h[:], protocolName)
	s.ck = s.h
	s.mixHash(nil)
	return s
}

func (s *symmetricState) mixHash(data []byte) {
	s.h = sha256Sum(s.h[:], data)
}

// mixKey runs the two-output HKDF defined in spec.md §4.2 and resets the
// nonce counter, per the invariant that updating k always resets n.
func (s *symmetricState) mixKey(input []byte) {
	ck, k := hkdf2(s.ck, input)
	s.ck = ck
	s.k = k
	s.hasKey = true
	s.n = 0
}

// encryptAndHash implements spec.md §4.2's EncryptAndHash: identity
// encryption while k is empty, AEAD-with-h-as-AD once a key has been
// mixed in, mixing the resulting ciphertext (or the plaintext, in the
// empty-key case) into h either way.
func (s *symmetricState) encryptAndHash(plaintext []byte) ([]byte, error) {
	if !s.hasKey {
		s.mixHash(plaintext)
		return append([]byte(nil), plaintext...), nil
	}
	ciphertext, err := aeadSeal(s.k, s.n, s.h[:], plaintext)
	if err != nil {
		return nil, err
	}
	s.n++
	s.mixHash(ciphertext)
	return ciphertext, nil
}

// decryptAndHash implements spec.md §4.2's DecryptAndHash, mirroring
// encryptAndHash. A MAC failure here is fatal to the handshake.
func (s *symmetricState) decryptAndHash(ciphertext []byte) ([]byte, error) {
	if !s.hasKey {
		s.mixHash(ciphertext)
		return append([]byte(nil), ciphertext...), nil
	}
	plaintext, err := aeadOpen(s.k, s.n, s.h[:], ciphertext)
	if err != nil {
		return nil, err
	}
	s.n++
	s.mixHash(ciphertext)
	return plaintext, nil
}

// split derives the two transport keys from the final chaining key, per
// spec.md §4.2/§3. The caller is responsible for the role-based
// send/recv assignment described in §3.
func (s *symmetricState) split() (k1, k2 [aeadKeyLen]byte) {
	return hkdf2(s.ck, nil)
}

// hkdf2 is the two-output HKDF from spec.md §4.2: temp = HMAC(chain,
// input); out1 = HMAC(temp, 0x01); out2 = HMAC(temp, out1||0x02).
func hkdf2(chain [hashLen]byte, input []byte) (out1, out2 [hashLen]byte) {
	temp := hmacSHA256(chain[:], input)
	out1 = hmacSHA256(temp[:], []byte{0x01})
	out2 = hmacSHA256(temp[:], append(append([]byte(nil), out1[:]...), 0x02))
	return out1, out2
}

// zero destroys the symmetric state's secrets in place, per spec.md §3's
// "Ownership" paragraph: all intermediate handshake state is zeroized on
// completion or error.
func (s *symmetricState) zero() {
	for i := range s.ck {
		s.ck[i] = 0
	}
	for i := range s.h {
		s.h[i] = 0
	}
	for i := range s.k {
		s.k[i] = 0
	}
	s.hasKey = false
	s.n = 0
}
