package btbridged

import "github.com/ehrlich-b/btbridged/internal/dispatch"

// Error is the broker's structured error type, re-exported from
// internal/dispatch where the connection manager's dispatch-failure path
// inspects it for its wire status (see dispatch.Error).
type Error = dispatch.Error

// ErrCode is the broker's error taxonomy.
type ErrCode = dispatch.ErrCode

const (
	// ErrMalformed marks a PDU that underflowed or overflowed during decode.
	ErrMalformed = dispatch.CodeMalformed
	// ErrUnsupported marks a PDU with no registered service or opcode handler.
	ErrUnsupported = dispatch.CodeUnsupported
	// ErrResource marks an allocation failure.
	ErrResource = dispatch.CodeResource
	// ErrIO marks a socket or pipe failure.
	ErrIO = dispatch.CodeIO
	// ErrHal marks a pass-through failure status from the native Bluetooth
	// interface.
	ErrHal = dispatch.CodeHal
	// ErrStateConflict marks an invalid state transition: double
	// registration, unregistering an absent service, or reopening the HAL.
	ErrStateConflict = dispatch.CodeStateConflict
)

// NewError builds an Error with the given code and message, scoped to a
// service/opcode pair.
func NewError(service, opcode uint8, code ErrCode, msg string) *Error {
	return dispatch.NewError(service, opcode, code, msg)
}

// NewConnError builds an Error scoped to a connection (conn is "cmd" or
// "ntf") rather than a service/opcode pair, for read/write-path I/O
// failures.
func NewConnError(conn string, code ErrCode, inner error) *Error {
	return dispatch.NewConnError(conn, code, inner)
}

// WrapError wraps inner with a service/opcode scope and the given code,
// preserving it for errors.Unwrap/As.
func WrapError(service, opcode uint8, code ErrCode, inner error) *Error {
	return dispatch.WrapError(service, opcode, code, inner)
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrCode) bool {
	return dispatch.IsCode(err, code)
}
