package hal

import (
	"sync"
	"testing"

	"github.com/ehrlich-b/btbridged/internal/halapi"
)

type stubSock struct{}

func (stubSock) Listen(t halapi.SockType, serviceName string, uuid halapi.Uuid, channel uint16, flags uint8) (int, halapi.Status) {
	return -1, halapi.StatusUnsupported
}

func (stubSock) Connect(addr halapi.BdAddr, t halapi.SockType, uuid halapi.Uuid, channel uint16, flags uint8) (int, halapi.Status) {
	return -1, halapi.StatusUnsupported
}

type stubAdapter struct {
	cb halapi.Callbacks
}

func (s *stubAdapter) Init(cb halapi.Callbacks) halapi.Status { s.cb = cb; return halapi.StatusSuccess }
func (s *stubAdapter) Enable() halapi.Status                  { return halapi.StatusSuccess }
func (s *stubAdapter) Disable() halapi.Status                 { return halapi.StatusSuccess }
func (s *stubAdapter) Cleanup()                                {}
func (s *stubAdapter) GetAdapterProperties() halapi.Status                      { return halapi.StatusSuccess }
func (s *stubAdapter) GetAdapterProperty(halapi.PropertyType) halapi.Status      { return halapi.StatusSuccess }
func (s *stubAdapter) SetAdapterProperty(halapi.Property) halapi.Status         { return halapi.StatusSuccess }
func (s *stubAdapter) GetRemoteDeviceProperties(halapi.BdAddr) halapi.Status     { return halapi.StatusSuccess }
func (s *stubAdapter) GetRemoteDeviceProperty(halapi.BdAddr, halapi.PropertyType) halapi.Status {
	return halapi.StatusSuccess
}
func (s *stubAdapter) SetRemoteDeviceProperty(halapi.BdAddr, halapi.Property) halapi.Status {
	return halapi.StatusSuccess
}
func (s *stubAdapter) GetRemoteServiceRecord(halapi.BdAddr, halapi.Uuid) halapi.Status { return halapi.StatusSuccess }
func (s *stubAdapter) GetRemoteServices(halapi.BdAddr) halapi.Status                   { return halapi.StatusSuccess }
func (s *stubAdapter) StartDiscovery() halapi.Status                                   { return halapi.StatusSuccess }
func (s *stubAdapter) CancelDiscovery() halapi.Status                                  { return halapi.StatusSuccess }
func (s *stubAdapter) CreateBond(halapi.BdAddr) halapi.Status                          { return halapi.StatusSuccess }
func (s *stubAdapter) RemoveBond(halapi.BdAddr) halapi.Status                          { return halapi.StatusSuccess }
func (s *stubAdapter) CancelBond(halapi.BdAddr) halapi.Status                          { return halapi.StatusSuccess }
func (s *stubAdapter) PinReply(halapi.BdAddr, bool, halapi.PinCode, uint8) halapi.Status {
	return halapi.StatusSuccess
}
func (s *stubAdapter) SspReply(halapi.BdAddr, halapi.SspVariant, bool, uint32) halapi.Status {
	return halapi.StatusSuccess
}
func (s *stubAdapter) DutModeConfigure(bool) halapi.Status            { return halapi.StatusSuccess }
func (s *stubAdapter) DutModeSend(uint16, []byte) halapi.Status       { return halapi.StatusSuccess }
func (s *stubAdapter) LeTestMode(uint16, []byte) halapi.Status        { return halapi.StatusSuccess }
func (s *stubAdapter) Sock() halapi.Sock                              { return stubSock{} }

func resetSingleton() {
	singletonMu.Lock()
	singleton = nil
	singletonMu.Unlock()
}

func TestOpenIsIdempotentForSameAdapter(t *testing.T) {
	resetSingleton()
	defer resetSingleton()

	inner := &stubAdapter{}
	a1, err := Open(inner, nil, func(uint8, uint8, []byte) {})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	a2, err := Open(inner, nil, func(uint8, uint8, []byte) {})
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if a1 != a2 {
		t.Error("second Open() with the same adapter returned a different instance")
	}
}

func TestOpenRejectsDifferentAdapterWhileOpen(t *testing.T) {
	resetSingleton()
	defer resetSingleton()

	if _, err := Open(&stubAdapter{}, nil, func(uint8, uint8, []byte) {}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := Open(&stubAdapter{}, nil, func(uint8, uint8, []byte) {}); err == nil {
		t.Fatal("Open() with a second distinct adapter returned nil error")
	}
}

func TestCallbackNotifiesWithoutQueue(t *testing.T) {
	resetSingleton()
	defer resetSingleton()

	var mu sync.Mutex
	var gotService, gotOpcode uint8
	var gotPayload []byte

	a, err := Open(&stubAdapter{}, nil, func(service, opcode uint8, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		gotService, gotOpcode, gotPayload = service, opcode, payload
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	a.AdapterStateChanged(0x02)

	mu.Lock()
	defer mu.Unlock()
	if gotService != halapi.ServiceBtCore || gotOpcode != halapi.OpcodeAdapterStateChangedNtf {
		t.Errorf("notify header = {%#x,%#x}", gotService, gotOpcode)
	}
	if len(gotPayload) != 1 || gotPayload[0] != 0x02 {
		t.Errorf("notify payload = %v, want [0x02]", gotPayload)
	}
}
