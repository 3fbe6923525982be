package pdu

import (
	"encoding/binary"

	"github.com/ehrlich-b/btbridged/internal/halapi"
)

// Reader walks a PDU's payload with a sticky cursor: once a bounds check
// fails, every subsequent read is a no-op and Err returns ErrMalformed.
// This mirrors the original protocol's read_pdu_at, which bounds-checks
// each field against the PDU's declared length before touching bytes.
type Reader struct {
	pdu *PDU
	off int
	err error
}

// NewReader starts a cursor at the given offset into pdu's payload.
func NewReader(p *PDU, offset int) *Reader {
	return &Reader{pdu: p, off: offset}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.pdu.Payload) {
		r.err = ErrMalformed
		return nil
	}
	b := r.pdu.Payload[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) I8() int8 { return int8(r.U8()) }

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) I16() int16 { return int16(r.U16()) }

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 { return int64(r.U64()) }

// Bytes reads n raw bytes ("m" in the wire mnemonics).
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *Reader) BdAddr() halapi.BdAddr {
	var a halapi.BdAddr
	copy(a[:], r.take(halapi.BdAddrSize))
	return a
}

func (r *Reader) Uuid() halapi.Uuid {
	var u halapi.Uuid
	copy(u[:], r.take(halapi.UuidSize))
	return u
}

func (r *Reader) BdName() halapi.BdName {
	var n halapi.BdName
	copy(n[:], r.take(halapi.BdNameSize))
	return n
}

func (r *Reader) PinCode() halapi.PinCode {
	var p halapi.PinCode
	copy(p[:], r.take(halapi.PinCodeSize))
	return p
}

// Property reads {type:u8, len:u16, value:bytes(len)}.
func (r *Reader) Property() halapi.Property {
	t := r.U8()
	l := r.U16()
	v := r.Bytes(int(l))
	return halapi.Property{Type: halapi.PropertyType(t), Value: v}
}

// PropertyList reads a u8 count followed by that many Property values.
func (r *Reader) PropertyList() []halapi.Property {
	n := r.U8()
	out := make([]halapi.Property, 0, n)
	for i := uint8(0); i < n && r.err == nil; i++ {
		out = append(out, r.Property())
	}
	return out
}

// Writer accumulates a PDU payload, growing as data is appended. It also
// supports overwriting already-written bytes at a fixed offset, failing
// with ErrOverflow if the write would step past the current length.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with size as a capacity hint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// PDU finalizes the writer's buffer into a PDU with the given header.
func (w *Writer) PDU(service, opcode uint8) *PDU {
	return &PDU{Service: service, Opcode: opcode, Payload: w.buf}
}

func (w *Writer) append(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) AppendU8(v uint8) *Writer  { return w.append([]byte{v}) }
func (w *Writer) AppendI8(v int8) *Writer   { return w.AppendU8(uint8(v)) }

func (w *Writer) AppendU16(v uint16) *Writer {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.append(b[:])
}
func (w *Writer) AppendI16(v int16) *Writer { return w.AppendU16(uint16(v)) }

func (w *Writer) AppendU32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.append(b[:])
}
func (w *Writer) AppendI32(v int32) *Writer { return w.AppendU32(uint32(v)) }

func (w *Writer) AppendU64(v uint64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.append(b[:])
}
func (w *Writer) AppendI64(v int64) *Writer { return w.AppendU64(uint64(v)) }

func (w *Writer) AppendBytes(b []byte) *Writer { return w.append(b) }

func (w *Writer) AppendBdAddr(a halapi.BdAddr) *Writer { return w.append(a[:]) }
func (w *Writer) AppendUuid(u halapi.Uuid) *Writer     { return w.append(u[:]) }
func (w *Writer) AppendBdName(n halapi.BdName) *Writer { return w.append(n[:]) }
func (w *Writer) AppendPinCode(p halapi.PinCode) *Writer { return w.append(p[:]) }

func (w *Writer) AppendProperty(p halapi.Property) *Writer {
	w.AppendU8(uint8(p.Type))
	w.AppendU16(uint16(len(p.Value)))
	return w.append(p.Value)
}

func (w *Writer) AppendPropertyList(props []halapi.Property) *Writer {
	w.AppendU8(uint8(len(props)))
	for _, p := range props {
		w.AppendProperty(p)
	}
	return w
}

// WriteU8At overwrites a single byte within the already-written length,
// returning ErrOverflow if offset falls outside [0, len(buf)).
func (w *Writer) WriteU8At(offset int, v uint8) error {
	if offset < 0 || offset >= len(w.buf) {
		return ErrOverflow
	}
	w.buf[offset] = v
	return nil
}
