package pdu

import "fmt"

// ReadBuffer accumulates inbound bytes for one connection until a full PDU
// has arrived. It mirrors struct pdu_rbuf from the original protocol: a
// fixed-size byte slice with a length cursor, sized for the maximum payload
// the connection is willing to accept.
type ReadBuffer struct {
	maxPayload int
	buf        []byte
	len        int
}

// NewReadBuffer allocates a read buffer that rejects any PDU whose declared
// payload exceeds maxPayload.
func NewReadBuffer(maxPayload int) *ReadBuffer {
	return &ReadBuffer{
		maxPayload: maxPayload,
		buf:        make([]byte, HeaderSize+maxPayload),
	}
}

// Len reports how many bytes are currently buffered.
func (b *ReadBuffer) Len() int { return b.len }

// Free returns the writable tail slice a reader may fill via a single
// read(2)/recvmsg(2) call.
func (b *ReadBuffer) Free() []byte {
	return b.buf[b.len:]
}

// Commit advances the cursor after n bytes have been copied into Free().
func (b *ReadBuffer) Commit(n int) {
	b.len += n
}

// HasHeader reports whether enough bytes have arrived to decode the header.
func (b *ReadBuffer) HasHeader() bool {
	return b.len >= HeaderSize
}

// DeclaredLen returns the header's declared payload length. The caller
// must check HasHeader first.
func (b *ReadBuffer) DeclaredLen() uint16 {
	return uint16(b.buf[2]) | uint16(b.buf[3])<<8
}

// HasFullPdu reports whether the buffer holds a complete header+payload.
func (b *ReadBuffer) HasFullPdu() bool {
	if !b.HasHeader() {
		return false
	}
	return b.len >= HeaderSize+int(b.DeclaredLen())
}

// IsFull reports whether the buffer has reached capacity without yet
// holding a full PDU, which indicates a malformed or oversized stream.
func (b *ReadBuffer) IsFull() bool {
	return !b.HasFullPdu() && b.len == len(b.buf)
}

// Remaining reports how many more bytes are needed to complete the current
// PDU, given what's already buffered. Before the header is complete it
// reports the bytes still missing from the header. The connection manager
// does not size its reads by it; it reads into the whole Free() tail.
func (b *ReadBuffer) Remaining() int {
	if !b.HasHeader() {
		return HeaderSize - b.len
	}
	need := HeaderSize + int(b.DeclaredLen())
	if need <= b.len {
		return 0
	}
	return need - b.len
}

// TakePdu decodes and removes the complete PDU at the front of the buffer,
// shifting any trailing bytes (the start of the next PDU) down to offset 0.
func (b *ReadBuffer) TakePdu() (*PDU, error) {
	if !b.HasFullPdu() {
		return nil, fmt.Errorf("pdu: buffer does not hold a full pdu")
	}
	total := HeaderSize + int(b.DeclaredLen())
	p, err := Decode(b.buf[:total])
	if err != nil {
		return nil, err
	}
	copy(b.buf, b.buf[total:b.len])
	b.len -= total
	return p, nil
}

// Reset clears the buffer, discarding any partial PDU.
func (b *ReadBuffer) Reset() {
	b.len = 0
}
