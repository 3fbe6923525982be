package dispatch

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrCode is the broker's error taxonomy, shared by every layer that builds
// or inspects an *Error: the service handlers that detect a bad request,
// the connection manager that turns a failure into a wire status byte, and
// the public btbridged package that re-exports this type for callers
// outside the module.
type ErrCode string

const (
	// CodeMalformed marks a PDU that underflowed or overflowed during decode.
	CodeMalformed ErrCode = "malformed pdu"
	// CodeUnsupported marks a PDU with no registered service or opcode handler.
	CodeUnsupported ErrCode = "unsupported"
	// CodeResource marks an allocation failure.
	CodeResource ErrCode = "resource exhausted"
	// CodeIO marks a socket or pipe failure.
	CodeIO ErrCode = "i/o error"
	// CodeHal marks a pass-through failure status from the native Bluetooth
	// interface.
	CodeHal ErrCode = "hal error"
	// CodeStateConflict marks an invalid state transition: double
	// registration, unregistering an absent service, or reopening the HAL.
	CodeStateConflict ErrCode = "state conflict"
)

// CodeStatus maps an error category onto the wire status byte a
// dispatch-failure reply carries. It mirrors the subset of bt_status_t the
// daemon itself can originate without a HAL round trip: malformed requests,
// unknown opcodes and resource exhaustion get their own distinct codes;
// everything else collapses to BT_STATUS_FAIL, matching core_register_module and
// core_unregister_module's behavior of not distinguishing failure causes on
// the wire.
func CodeStatus(code ErrCode) uint8 {
	switch code {
	case CodeMalformed:
		return 7 // halapi.StatusParmInvalid
	case CodeUnsupported:
		return 6 // halapi.StatusUnsupported
	case CodeResource:
		return 3 // halapi.StatusNoMem
	default:
		return 1 // halapi.StatusFail
	}
}

// Error is a structured broker error carrying enough context to log and to
// translate into a wire error reply. It implements StatusError via Status,
// so any *Error reaching the connection manager's error-reply path is
// translated by CodeStatus rather than falling through to a generic
// failure byte.
type Error struct {
	Service uint8         // Service byte the error concerns (0 if not applicable)
	Opcode  uint8         // Opcode byte the error concerns (0 if not applicable)
	Conn    string        // Connection the error occurred on: "cmd", "ntf", "" if not applicable
	Code    ErrCode       // High-level error category
	Errno   syscall.Errno // Underlying errno, 0 if not applicable
	Msg     string        // Human-readable message
	Inner   error         // Wrapped error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	switch {
	case e.Conn != "" && e.Errno != 0:
		return fmt.Sprintf("btbridged: %s (conn=%s errno=%d)", msg, e.Conn, e.Errno)
	case e.Conn != "":
		return fmt.Sprintf("btbridged: %s (conn=%s service=0x%02x opcode=0x%02x)", msg, e.Conn, e.Service, e.Opcode)
	case e.Errno != 0:
		return fmt.Sprintf("btbridged: %s (errno=%d)", msg, e.Errno)
	default:
		return fmt.Sprintf("btbridged: %s (service=0x%02x opcode=0x%02x)", msg, e.Service, e.Opcode)
	}
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is comparison against another *Error by Code alone,
// so callers can test "is this a Malformed error" without matching every
// field.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// Status implements StatusError.
func (e *Error) Status() uint8 { return CodeStatus(e.Code) }

var _ StatusError = (*Error)(nil)

// NewError builds an Error with the given code and message, scoped to a
// service/opcode pair.
func NewError(service, opcode uint8, code ErrCode, msg string) *Error {
	return &Error{Service: service, Opcode: opcode, Code: code, Msg: msg}
}

// NewConnError builds an Error scoped to a connection (conn is "cmd" or
// "ntf") rather than a service/opcode pair, for read/write-path I/O
// failures.
func NewConnError(conn string, code ErrCode, inner error) *Error {
	e := &Error{Conn: conn, Code: code, Inner: inner}
	if inner != nil {
		e.Msg = inner.Error()
	}
	if errno, ok := inner.(syscall.Errno); ok {
		e.Errno = errno
	}
	return e
}

// WrapError wraps inner with a service/opcode scope and the given code,
// preserving it for errors.Unwrap/As.
func WrapError(service, opcode uint8, code ErrCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	e := &Error{Service: service, Opcode: opcode, Code: code, Msg: inner.Error(), Inner: inner}
	if errno, ok := inner.(syscall.Errno); ok {
		e.Errno = errno
	}
	return e
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrCode) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}
