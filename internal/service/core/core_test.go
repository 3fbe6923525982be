package core

import (
	"testing"

	"github.com/ehrlich-b/btbridged/internal/dispatch"
	"github.com/ehrlich-b/btbridged/internal/pdu"
)

func newTestTable() (*dispatch.Table, *Service) {
	tbl := dispatch.New(nil)
	svc := New(tbl)
	tbl.BindCore(svc)
	tbl.BindFactory(0x05, func(mode uint8, send func(*pdu.PDU)) (dispatch.Handler, dispatch.Unregister, error) {
		return dispatch.HandlerFunc(func(cmd *pdu.PDU) (*pdu.PDU, error) { return nil, nil }), nil, nil
	})
	return tbl, svc
}

func TestRegisterModuleSuccess(t *testing.T) {
	tbl, svc := newTestTable()

	cmd := &pdu.PDU{Service: 0x00, Opcode: 0x01, Payload: []byte{0x05, 0x00}}
	resp, err := svc.Handle(cmd)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Service != 0x00 || resp.Opcode != 0x01 {
		t.Errorf("resp header = {%#x,%#x}", resp.Service, resp.Opcode)
	}
	if _, dispatchErr := tbl.Dispatch(&pdu.PDU{Service: 0x05, Opcode: 0x00}); dispatchErr != nil {
		t.Errorf("service 0x05 not reachable after registration: %v", dispatchErr)
	}
}

func TestRegisterModuleRejectsDuplicate(t *testing.T) {
	_, svc := newTestTable()

	cmd := &pdu.PDU{Service: 0x00, Opcode: 0x01, Payload: []byte{0x05, 0x00}}
	if _, err := svc.Handle(cmd); err != nil {
		t.Fatalf("first register: Handle() error = %v", err)
	}
	if _, err := svc.Handle(cmd); err == nil {
		t.Fatal("second register: Handle() returned nil error, want already-registered failure")
	}
}

func TestUnregisterModuleRejectsCore(t *testing.T) {
	_, svc := newTestTable()

	cmd := &pdu.PDU{Service: 0x00, Opcode: 0x02, Payload: []byte{0x00}}
	if _, err := svc.Handle(cmd); err == nil {
		t.Fatal("unregistering SERVICE_CORE succeeded, want rejection")
	}
}

func TestUnregisterModuleRoundTrip(t *testing.T) {
	tbl, svc := newTestTable()

	reg := &pdu.PDU{Service: 0x00, Opcode: 0x01, Payload: []byte{0x05, 0x00}}
	if _, err := svc.Handle(reg); err != nil {
		t.Fatalf("register: Handle() error = %v", err)
	}

	unreg := &pdu.PDU{Service: 0x00, Opcode: 0x02, Payload: []byte{0x05}}
	if _, err := svc.Handle(unreg); err != nil {
		t.Fatalf("unregister: Handle() error = %v", err)
	}

	if _, err := tbl.Dispatch(&pdu.PDU{Service: 0x05, Opcode: 0x00}); err == nil {
		t.Error("service 0x05 still reachable after unregistration")
	}
	// it must be registrable again
	if _, err := svc.Handle(reg); err != nil {
		t.Errorf("re-register after unregister: Handle() error = %v", err)
	}
}
