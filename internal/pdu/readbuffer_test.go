package pdu

import "testing"

func TestReadBufferFeedPartialThenComplete(t *testing.T) {
	rb := NewReadBuffer(64)

	// feed just the header
	header := []byte{0x01, 0x02, 0x03, 0x00}
	copy(rb.Free(), header)
	rb.Commit(len(header))

	if !rb.HasHeader() {
		t.Fatal("HasHeader() = false after header bytes committed")
	}
	if rb.HasFullPdu() {
		t.Fatal("HasFullPdu() = true before payload arrives")
	}
	if got, want := rb.Remaining(), 3; got != want {
		t.Errorf("Remaining() = %d, want %d", got, want)
	}

	payload := []byte{0xAA, 0xBB, 0xCC}
	copy(rb.Free(), payload)
	rb.Commit(len(payload))

	if !rb.HasFullPdu() {
		t.Fatal("HasFullPdu() = false after full payload committed")
	}

	p, err := rb.TakePdu()
	if err != nil {
		t.Fatalf("TakePdu() error = %v", err)
	}
	if p.Service != 0x01 || p.Opcode != 0x02 {
		t.Errorf("TakePdu() header = {%#x,%#x}", p.Service, p.Opcode)
	}
	if rb.Len() != 0 {
		t.Errorf("Len() after TakePdu() = %d, want 0", rb.Len())
	}
}

func TestReadBufferPipelinedPdus(t *testing.T) {
	rb := NewReadBuffer(64)

	first := (&PDU{Service: 1, Opcode: 1, Payload: []byte{0x01}}).Encode()
	second := (&PDU{Service: 1, Opcode: 2, Payload: []byte{0x02, 0x03}}).Encode()

	n := copy(rb.Free(), append(append([]byte{}, first...), second...))
	rb.Commit(n)

	p1, err := rb.TakePdu()
	if err != nil {
		t.Fatalf("TakePdu() first error = %v", err)
	}
	if p1.Opcode != 1 {
		t.Errorf("first pdu opcode = %#x, want 1", p1.Opcode)
	}

	if !rb.HasFullPdu() {
		t.Fatal("HasFullPdu() = false, second pdu should already be buffered")
	}
	p2, err := rb.TakePdu()
	if err != nil {
		t.Fatalf("TakePdu() second error = %v", err)
	}
	if p2.Opcode != 2 {
		t.Errorf("second pdu opcode = %#x, want 2", p2.Opcode)
	}
	if rb.Len() != 0 {
		t.Errorf("Len() after draining both pdus = %d, want 0", rb.Len())
	}
}

func TestReadBufferOverflowDetection(t *testing.T) {
	rb := NewReadBuffer(4) // max payload smaller than a declared length below

	// header declares a payload of 100 bytes, exceeding this buffer's capacity
	header := []byte{0x01, 0x01, 100, 0x00}
	copy(rb.Free(), header)
	rb.Commit(len(header))

	for !rb.IsFull() && rb.Len() < len(rb.buf) {
		rb.Commit(copy(rb.Free(), make([]byte, len(rb.Free()))))
	}

	if !rb.IsFull() {
		t.Fatal("IsFull() = false, want true once buffer capacity is exhausted without a full pdu")
	}
	if rb.HasFullPdu() {
		t.Fatal("HasFullPdu() = true, want false for an oversized declared length")
	}
}

func TestReadBufferReset(t *testing.T) {
	rb := NewReadBuffer(16)
	rb.Commit(copy(rb.Free(), []byte{0x01, 0x02}))
	rb.Reset()
	if rb.Len() != 0 {
		t.Errorf("Len() after Reset() = %d, want 0", rb.Len())
	}
	if rb.HasHeader() {
		t.Error("HasHeader() = true after Reset()")
	}
}
