package dispatch

import (
	"errors"
	"testing"

	"github.com/ehrlich-b/btbridged/internal/pdu"
)

func TestRegisterRejectsDuplicate(t *testing.T) {
	tbl := New(nil)
	tbl.BindFactory(0x01, func(mode uint8, send func(*pdu.PDU)) (Handler, Unregister, error) {
		return HandlerFunc(func(cmd *pdu.PDU) (*pdu.PDU, error) { return nil, nil }), nil, nil
	})

	if err := tbl.Register(0x01, 0x00); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := tbl.Register(0x01, 0x00); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second Register() error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterRejectsUnboundService(t *testing.T) {
	tbl := New(nil)
	if err := tbl.Register(0x05, 0x00); err == nil {
		t.Fatal("Register() on unbound service returned nil error")
	}
}

func TestUnregisterRejectsCore(t *testing.T) {
	tbl := New(nil)
	tbl.BindCore(HandlerFunc(func(cmd *pdu.PDU) (*pdu.PDU, error) { return nil, nil }))

	if err := tbl.Unregister(CoreService); !errors.Is(err, ErrCoreImmutable) {
		t.Errorf("Unregister(core) error = %v, want ErrCoreImmutable", err)
	}
}

func TestUnregisterRunsTeardownAndFreesSlot(t *testing.T) {
	tbl := New(nil)
	tornDown := false
	tbl.BindFactory(0x02, func(mode uint8, send func(*pdu.PDU)) (Handler, Unregister, error) {
		h := HandlerFunc(func(cmd *pdu.PDU) (*pdu.PDU, error) { return nil, nil })
		return h, func() error { tornDown = true; return nil }, nil
	})

	if err := tbl.Register(0x02, 0x00); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := tbl.Unregister(0x02); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if !tornDown {
		t.Error("teardown was not invoked")
	}
	// slot must be free again
	if err := tbl.Register(0x02, 0x00); err != nil {
		t.Errorf("re-Register() after Unregister() error = %v", err)
	}
}

func TestUnregisterRejectsEmptySlot(t *testing.T) {
	tbl := New(nil)
	if err := tbl.Unregister(0x03); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Unregister(empty) error = %v, want ErrNotRegistered", err)
	}
}

func TestDispatchRoutesByService(t *testing.T) {
	tbl := New(nil)
	called := false
	tbl.BindCore(HandlerFunc(func(cmd *pdu.PDU) (*pdu.PDU, error) {
		called = true
		return pdu.New(cmd.Service, cmd.Opcode), nil
	}))

	_, err := tbl.Dispatch(&pdu.PDU{Service: CoreService, Opcode: 0x01})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !called {
		t.Error("bound handler was not invoked")
	}
}

func TestDispatchUnsupportedService(t *testing.T) {
	tbl := New(nil)
	_, err := tbl.Dispatch(&pdu.PDU{Service: 0x09})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Dispatch() error = %v, want ErrUnsupported", err)
	}
}

func TestOpcodeTableDispatch(t *testing.T) {
	var ot OpcodeTable
	ot.Bind(0x01, func(cmd *pdu.PDU) (*pdu.PDU, error) {
		return pdu.New(cmd.Service, 0x01), nil
	})

	resp, err := ot.Dispatch(&pdu.PDU{Service: 0x00, Opcode: 0x01})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if resp.Opcode != 0x01 {
		t.Errorf("resp.Opcode = %#x, want 0x01", resp.Opcode)
	}

	if _, err := ot.Dispatch(&pdu.PDU{Opcode: 0x02}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Dispatch(unbound opcode) error = %v, want ErrUnsupported", err)
	}
}
