package noisecore

import (
	"fmt"
)

// ErrorKind classifies a failure from this package, per the error taxonomy
// in the spec: transport, framing, protocol, and cryptographic failures
// are each distinguishable so callers can decide what is recoverable.
type ErrorKind int

const (
	// KindUnknown is never produced by this package; it exists so the
	// zero value of Error is visibly invalid.
	KindUnknown ErrorKind = iota
	KindTransportError
	KindShortRead
	KindProtocolStateViolation
	KindMalformedMessage
	KindMacError
	KindMissingIdentityKey
	KindMissingIdentitySig
	KindInvalidIdentityKey
	KindBadSignature
	KindUnsupportedIdentityKey
	KindRecordTooLarge
	KindReadTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransportError:
		return "TransportError"
	case KindShortRead:
		return "ShortRead"
	case KindProtocolStateViolation:
		return "ProtocolStateViolation"
	case KindMalformedMessage:
		return "MalformedMessage"
	case KindMacError:
		return "MacError"
	case KindMissingIdentityKey:
		return "MissingIdentityKey"
	case KindMissingIdentitySig:
		return "MissingIdentitySig"
	case KindInvalidIdentityKey:
		return "InvalidIdentityKey"
	case KindBadSignature:
		return "BadSignature"
	case KindUnsupportedIdentityKey:
		return "UnsupportedIdentityKey"
	case KindRecordTooLarge:
		return "RecordTooLarge"
	case KindReadTimeout:
		return "ReadTimeout"
	default:
		return "Unknown"
	}
}

// Error is the error type every failure in this package surfaces as. It
// carries a Kind so callers can switch on the taxonomy in spec.md §7
// without parsing message strings, while still composing with errors.Is/As
// via Unwrap.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("noisecore: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("noisecore: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, noisecore.ErrMacFailure) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Sentinel errors for the common kinds, so callers can write
// errors.Is(err, noisecore.ErrMacFailure) without constructing an *Error.
var (
	ErrMacFailure              = &Error{Kind: KindMacError}
	ErrProtocolStateViolation  = &Error{Kind: KindProtocolStateViolation}
	ErrMalformedMessage        = &Error{Kind: KindMalformedMessage}
	ErrShortRead               = &Error{Kind: KindShortRead}
	ErrMissingIdentityKey      = &Error{Kind: KindMissingIdentityKey}
	ErrMissingIdentitySig      = &Error{Kind: KindMissingIdentitySig}
	ErrInvalidIdentityKey      = &Error{Kind: KindInvalidIdentityKey}
	ErrBadSignature            = &Error{Kind: KindBadSignature}
	ErrUnsupportedIdentityKey  = &Error{Kind: KindUnsupportedIdentityKey}
	ErrRecordTooLarge          = &Error{Kind: KindRecordTooLarge}
	ErrReadTimeout             = &Error{Kind: KindReadTimeout}
	ErrTransport               = &Error{Kind: KindTransportError}
)

// HandshakeFailure wraps any error that aborted a handshake, per §4.5's
// propagation policy: the handshake is all-or-nothing, and the caller is
// always given one wrapping error regardless of which stage failed.
type HandshakeFailure struct {
	Stage string
	Err   error
}

func (e *HandshakeFailure) Error() string {
	return fmt.Sprintf("noisecore: handshake failed at %s: %v", e.Stage, e.Err)
}

func (e *HandshakeFailure) Unwrap() error { return e.Err }

func wrapHandshake(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &HandshakeFailure{Stage: stage, Err: err}
}
