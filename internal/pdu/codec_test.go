package pdu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ehrlich-b/btbridged/internal/halapi"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	addr := halapi.BdAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	w := NewWriter(16)
	w.AppendU8(0x42).AppendU16(0xBEEF).AppendU32(0xCAFEBABE).AppendBdAddr(addr).AppendBytes([]byte("hi"))
	p := w.PDU(0x03, 0x01)

	r := NewReader(p, 0)
	if got := r.U8(); got != 0x42 {
		t.Errorf("U8() = %#x, want 0x42", got)
	}
	if got := r.U16(); got != 0xBEEF {
		t.Errorf("U16() = %#x, want 0xBEEF", got)
	}
	if got := r.U32(); got != 0xCAFEBABE {
		t.Errorf("U32() = %#x, want 0xCAFEBABE", got)
	}
	if got := r.BdAddr(); got != addr {
		t.Errorf("BdAddr() = %v, want %v", got, addr)
	}
	if got := r.Bytes(2); !bytes.Equal(got, []byte("hi")) {
		t.Errorf("Bytes(2) = %q, want %q", got, "hi")
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestReaderOverrunIsSticky(t *testing.T) {
	p := &PDU{Payload: []byte{1, 2}}
	r := NewReader(p, 0)

	_ = r.U32() // needs 4 bytes, only 2 available
	if !errors.Is(r.Err(), ErrMalformed) {
		t.Fatalf("Err() = %v, want ErrMalformed", r.Err())
	}

	// Subsequent reads must not panic and must report the same error.
	_ = r.U8()
	if !errors.Is(r.Err(), ErrMalformed) {
		t.Errorf("Err() after further reads = %v, want ErrMalformed", r.Err())
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	prop := halapi.Property{Type: 3, Value: []byte{9, 9, 9}}

	w := NewWriter(8)
	w.AppendProperty(prop)
	p := w.PDU(0x02, 0x04)

	r := NewReader(p, 0)
	got := r.Property()
	if got.Type != prop.Type || !bytes.Equal(got.Value, prop.Value) {
		t.Errorf("Property() = %+v, want %+v", got, prop)
	}
}

func TestPropertyListRoundTrip(t *testing.T) {
	props := []halapi.Property{
		{Type: 1, Value: []byte{0x01}},
		{Type: 2, Value: []byte{0x02, 0x03}},
	}

	w := NewWriter(16)
	w.AppendPropertyList(props)
	p := w.PDU(0x02, 0x04)

	r := NewReader(p, 0)
	got := r.PropertyList()
	if len(got) != len(props) {
		t.Fatalf("PropertyList() len = %d, want %d", len(got), len(props))
	}
	for i := range props {
		if got[i].Type != props[i].Type || !bytes.Equal(got[i].Value, props[i].Value) {
			t.Errorf("PropertyList()[%d] = %+v, want %+v", i, got[i], props[i])
		}
	}
}

func TestWriteU8AtOverflow(t *testing.T) {
	w := NewWriter(4)
	w.AppendU8(0x01)

	if err := w.WriteU8At(0, 0xFF); err != nil {
		t.Errorf("WriteU8At(0, ...) error = %v", err)
	}
	if err := w.WriteU8At(5, 0xFF); !errors.Is(err, ErrOverflow) {
		t.Errorf("WriteU8At(5, ...) error = %v, want ErrOverflow", err)
	}
}
