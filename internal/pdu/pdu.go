// Package pdu implements the wire framing, typed codec, and read/write
// buffering for the broker's binary protocol: a 4-byte header
// {service:u8, opcode:u8, length:u16 LE} followed by length payload bytes.
package pdu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed {service, opcode, length} header width.
const HeaderSize = 4

// MaxPayload is the largest payload length the u16 length field can carry.
const MaxPayload = 0xFFFF

// NotificationBit marks opcodes 0x80-0xFF as notifications; such opcodes
// must never appear as requests on the command socket.
const NotificationBit = 0x80

// ErrOverflow is returned when a write would step past a buffer's capacity.
var ErrOverflow = errors.New("pdu: overflow")

// ErrMalformed is returned when a read would step past the PDU's declared
// payload length.
var ErrMalformed = errors.New("pdu: malformed")

// PDU is a single framed protocol message.
type PDU struct {
	Service uint8
	Opcode  uint8
	Payload []byte
}

// New creates an empty PDU for the given service/opcode.
func New(service, opcode uint8) *PDU {
	return &PDU{Service: service, Opcode: opcode}
}

// Len returns the declared payload length.
func (p *PDU) Len() uint16 { return uint16(len(p.Payload)) }

// IsNotification reports whether the opcode's high bit marks a
// notification rather than a command/response.
func (p *PDU) IsNotification() bool { return p.Opcode&NotificationBit != 0 }

// Encode serializes the header and payload contiguously.
func (p *PDU) Encode() []byte {
	if len(p.Payload) > MaxPayload {
		panic(fmt.Sprintf("pdu: payload too large: %d", len(p.Payload)))
	}
	buf := getBuffer(HeaderSize + len(p.Payload))
	buf[0] = p.Service
	buf[1] = p.Opcode
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(p.Payload)))
	copy(buf[HeaderSize:], p.Payload)
	return buf
}

// DecodeHeader parses a 4-byte header. The caller must supply exactly
// HeaderSize bytes.
func DecodeHeader(hdr []byte) (service, opcode uint8, length uint16, err error) {
	if len(hdr) != HeaderSize {
		return 0, 0, 0, fmt.Errorf("pdu: short header (%d bytes)", len(hdr))
	}
	return hdr[0], hdr[1], binary.LittleEndian.Uint16(hdr[2:4]), nil
}

// Decode parses a complete wire buffer (header + payload) into a PDU.
func Decode(buf []byte) (*PDU, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("pdu: short buffer (%d bytes): %w", len(buf), ErrMalformed)
	}
	service, opcode, length, err := DecodeHeader(buf[:HeaderSize])
	if err != nil {
		return nil, err
	}
	if len(buf) != HeaderSize+int(length) {
		return nil, fmt.Errorf("pdu: declared length %d does not match buffer: %w", length, ErrMalformed)
	}
	payload := make([]byte, length)
	copy(payload, buf[HeaderSize:])
	return &PDU{Service: service, Opcode: opcode, Payload: payload}, nil
}

// ErrorReply builds the single-byte error reply PDU described by the
// protocol's dispatch-failure contract: same service, opcode 0x00, payload
// is the one-byte status code.
func ErrorReply(service uint8, status uint8) *PDU {
	return &PDU{Service: service, Opcode: 0x00, Payload: []byte{status}}
}
