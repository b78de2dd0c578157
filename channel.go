package noisecore

import (
	"encoding/binary"
	"io"
	"log/slog"
	"sync"
	"time"
)

// SecurityProtocolID is the identifier this channel reports for its
// security protocol, mirroring how libp2p security transports name
// themselves on a multistream-select negotiation.
const SecurityProtocolID = "/noise"

// recordLengthPrefixLen is the size of the big-endian length prefix on
// every transport record, per spec.md §5.2.
const recordLengthPrefixLen = 2

// MaxRecordPayloadLen is the largest plaintext payload a single transport
// record can carry before framing and the AEAD tag, per spec.md §5.2/§5.5
// (65535 minus the 16-byte tag).
const MaxRecordPayloadLen = 1<<16 - 1 - aeadTagLen

// Channel is the post-handshake secured duplex channel from spec.md §5:
// independent send/receive AEAD keys and nonce counters, length-framed
// records, and no tolerance for reordered or dropped records — a
// departure from the teacher's NoiseCipher, which allows the receive
// counter to advance past gaps.
type Channel struct {
	conn io.ReadWriteCloser

	sendKey [aeadKeyLen]byte
	recvKey [aeadKeyLen]byte
	sendN   uint64
	recvN   uint64

	writeLock *fifoMutex
	readLock  *fifoMutex

	readTimeout time.Duration
	readBuf     []byte // leftover decrypted bytes from a prior Read
	eof         bool   // peer closed the transport at a clean record boundary

	remotePeerID      PeerID
	remoteIdentityKey Ed25519PublicKeyBytes

	logger *slog.Logger
}

// NewChannel wraps conn with the secured record framing described in
// spec.md §5, using the session keys and verified remote identity a
// completed handshake produced. nonceEncoding must name the nonce layout
// this build implements (Config.NonceEncoding, typically
// NonceEncodingLittleEndian4_11) — it is validated before the channel
// seals or opens a single record, since the channel's AEAD nonces use the
// same layout the handshake just verified both peers agree on.
func NewChannel(conn io.ReadWriteCloser, result *HandshakeResult, readTimeout time.Duration, nonceEncoding string, logger *slog.Logger) (*Channel, error) {
	if err := ValidateNonceEncoding(nonceEncoding); err != nil {
		return nil, newErr("NewChannel", KindProtocolStateViolation, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		conn:              conn,
		sendKey:           result.Keys.SendKey,
		recvKey:           result.Keys.RecvKey,
		writeLock:         newFIFOMutex(),
		readLock:          newFIFOMutex(),
		readTimeout:       readTimeout,
		remotePeerID:      result.RemotePeerID,
		remoteIdentityKey: result.RemoteIdentityKey,
		logger:            logger,
	}, nil
}

// RemotePeerID returns the verified identity of the remote side.
func (c *Channel) RemotePeerID() PeerID { return c.remotePeerID }

// RemoteIdentityPublicKey returns the remote side's long-term identity
// public key, as verified during the handshake.
func (c *Channel) RemoteIdentityPublicKey() Ed25519PublicKeyBytes { return c.remoteIdentityKey }

// SecurityProtocolID reports the protocol identifier for this channel.
func (c *Channel) SecurityProtocolID() string { return SecurityProtocolID }

// Write encrypts p as a single record and writes it to the underlying
// transport, per spec.md §5.2/§5.3. Per §5.5, p longer than
// MaxRecordPayloadLen fails with RecordTooLarge rather than being split
// across multiple records.
func (c *Channel) Write(p []byte) (int, error) {
	if len(p) > MaxRecordPayloadLen {
		return 0, newErr("Channel.Write", KindRecordTooLarge, nil)
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	ciphertext, err := aeadSeal(c.sendKey, c.sendN, nil, p)
	if err != nil {
		return 0, newErr("Channel.Write", KindTransportError, err)
	}
	c.sendN++

	var prefix [recordLengthPrefixLen]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(ciphertext)))

	if _, err := c.conn.Write(prefix[:]); err != nil {
		return 0, newErr("Channel.Write", KindTransportError, err)
	}
	if _, err := c.conn.Write(ciphertext); err != nil {
		return 0, newErr("Channel.Write", KindTransportError, err)
	}
	return len(p), nil
}

// Read fills p with decrypted record data, returning as soon as at least
// one byte is available, per the io.Reader contract. A record larger than
// len(p) is buffered across successive Read calls. Per spec.md §4.6 step 1
// and §8's boundary behavior, a clean EOF at a record boundary yields
// (0, nil), the same return value as a legitimate empty-payload record —
// the two are distinguishable only via channel state (IsEOF), never via
// this method's return value.
func (c *Channel) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	c.readLock.Lock()
	defer c.readLock.Unlock()

	if len(c.readBuf) == 0 && !c.eof {
		plaintext, err := c.readRecord()
		if err != nil {
			return 0, err
		}
		c.readBuf = plaintext
	}

	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

// IsEOF reports whether the channel has observed a clean close from the
// peer at a record boundary, the channel-state signal spec.md §8 requires
// callers use to distinguish that case from a legitimate empty-payload
// record, since Read returns the same (0, nil) for both.
func (c *Channel) IsEOF() bool {
	c.readLock.Lock()
	defer c.readLock.Unlock()
	return c.eof
}

// ReadFull reads exactly len(p) decrypted bytes, blocking across as many
// records as necessary. It returns ErrShortRead if the peer closes cleanly
// before len(p) bytes have arrived, and whatever error Read surfaces
// otherwise.
func (c *Channel) ReadFull(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := c.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 && c.IsEOF() {
			return total, newErr("Channel.ReadFull", KindShortRead, nil)
		}
	}
	return total, nil
}

// readRecord reads and decrypts the next whole record from the transport.
// A clean EOF while reading the length prefix (no bytes consumed at all)
// marks the channel EOF and returns (nil, nil), per spec.md §4.6 step 1;
// any other EOF is a genuine mid-frame truncation and is fatal.
func (c *Channel) readRecord() ([]byte, error) {
	if err := c.applyReadDeadline(); err != nil {
		return nil, err
	}

	var prefix [recordLengthPrefixLen]byte
	if _, err := io.ReadFull(c.conn, prefix[:]); err != nil {
		if err == io.EOF {
			c.eof = true
			return nil, nil
		}
		return nil, c.classifyReadErr(err)
	}
	length := binary.BigEndian.Uint16(prefix[:])

	ciphertext := make([]byte, length)
	if _, err := io.ReadFull(c.conn, ciphertext); err != nil {
		return nil, c.classifyReadErr(err)
	}

	plaintext, err := aeadOpen(c.recvKey, c.recvN, nil, ciphertext)
	if err != nil {
		return nil, err
	}
	c.recvN++
	return plaintext, nil
}

type deadlineAwareConn interface {
	SetReadDeadline(time.Time) error
}

func (c *Channel) applyReadDeadline() error {
	if c.readTimeout <= 0 {
		return nil
	}
	ds, ok := c.conn.(deadlineAwareConn)
	if !ok {
		return nil
	}
	if err := ds.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return newErr("Channel.readRecord", KindTransportError, err)
	}
	return nil
}

func (c *Channel) classifyReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return newErr("Channel.readRecord", KindShortRead, err)
	}
	if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
		return newErr("Channel.readRecord", KindReadTimeout, err)
	}
	return newErr("Channel.readRecord", KindTransportError, err)
}

// Close closes the underlying transport.
func (c *Channel) Close() error {
	return c.conn.Close()
}

var _ sync.Locker = (*fifoMutex)(nil)
