package btbridged

import (
	"sync"

	"github.com/ehrlich-b/btbridged/internal/halapi"
)

// MockAdapter is a test double for halapi.Adapter. Every method returns a
// configurable status (StatusSuccess by default) and records that it was
// called, so tests can assert on call counts without standing up a real
// platform HAL module.
type MockAdapter struct {
	mu sync.Mutex

	// Status is returned by every method unless overridden per-opcode in
	// Statuses.
	Status halapi.Status
	// Statuses, keyed by opcode, overrides Status for every call with that
	// opcode.
	Statuses map[int]halapi.Status

	calls map[string]int

	sock *MockSock

	lastCallbacks     halapi.Callbacks
	lastAdapterProp   halapi.Property
	lastRemoteAddr    halapi.BdAddr
	lastRemoteProp    halapi.Property
	lastBondAddr      halapi.BdAddr
	lastDutModeEnable bool
}

// NewMockAdapter creates a MockAdapter that reports success by default and
// backs its Sock() with a fresh MockSock.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		Status:   halapi.StatusSuccess,
		Statuses: make(map[int]halapi.Status),
		calls:    make(map[string]int),
		sock:     NewMockSock(),
	}
}

func (m *MockAdapter) record(opcode int, name string) halapi.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	if s, ok := m.Statuses[opcode]; ok {
		return s
	}
	return m.Status
}

func (m *MockAdapter) Init(callbacks halapi.Callbacks) halapi.Status {
	m.mu.Lock()
	m.lastCallbacks = callbacks
	m.mu.Unlock()
	return m.record(0, "Init")
}

func (m *MockAdapter) Enable() halapi.Status  { return m.record(halapi.OpcodeEnable, "Enable") }
func (m *MockAdapter) Disable() halapi.Status { return m.record(halapi.OpcodeDisable, "Disable") }
func (m *MockAdapter) Cleanup()               { m.record(0, "Cleanup") }

func (m *MockAdapter) GetAdapterProperties() halapi.Status {
	return m.record(halapi.OpcodeGetAdapterProperties, "GetAdapterProperties")
}

func (m *MockAdapter) GetAdapterProperty(t halapi.PropertyType) halapi.Status {
	return m.record(halapi.OpcodeGetAdapterProperty, "GetAdapterProperty")
}

func (m *MockAdapter) SetAdapterProperty(p halapi.Property) halapi.Status {
	m.mu.Lock()
	m.lastAdapterProp = p
	m.mu.Unlock()
	return m.record(halapi.OpcodeSetAdapterProperty, "SetAdapterProperty")
}

func (m *MockAdapter) GetRemoteDeviceProperties(addr halapi.BdAddr) halapi.Status {
	m.mu.Lock()
	m.lastRemoteAddr = addr
	m.mu.Unlock()
	return m.record(halapi.OpcodeGetRemoteDeviceProperties, "GetRemoteDeviceProperties")
}

func (m *MockAdapter) GetRemoteDeviceProperty(addr halapi.BdAddr, t halapi.PropertyType) halapi.Status {
	m.mu.Lock()
	m.lastRemoteAddr = addr
	m.mu.Unlock()
	return m.record(halapi.OpcodeGetRemoteDeviceProperty, "GetRemoteDeviceProperty")
}

func (m *MockAdapter) SetRemoteDeviceProperty(addr halapi.BdAddr, p halapi.Property) halapi.Status {
	m.mu.Lock()
	m.lastRemoteAddr = addr
	m.lastRemoteProp = p
	m.mu.Unlock()
	return m.record(halapi.OpcodeSetRemoteDeviceProperty, "SetRemoteDeviceProperty")
}

func (m *MockAdapter) GetRemoteServiceRecord(addr halapi.BdAddr, uuid halapi.Uuid) halapi.Status {
	return m.record(halapi.OpcodeGetRemoteServiceRecord, "GetRemoteServiceRecord")
}

func (m *MockAdapter) GetRemoteServices(addr halapi.BdAddr) halapi.Status {
	return m.record(halapi.OpcodeGetRemoteServices, "GetRemoteServices")
}

func (m *MockAdapter) StartDiscovery() halapi.Status {
	return m.record(halapi.OpcodeStartDiscovery, "StartDiscovery")
}

func (m *MockAdapter) CancelDiscovery() halapi.Status {
	return m.record(halapi.OpcodeCancelDiscovery, "CancelDiscovery")
}

func (m *MockAdapter) CreateBond(addr halapi.BdAddr) halapi.Status {
	m.mu.Lock()
	m.lastBondAddr = addr
	m.mu.Unlock()
	return m.record(halapi.OpcodeCreateBond, "CreateBond")
}

func (m *MockAdapter) RemoveBond(addr halapi.BdAddr) halapi.Status {
	m.mu.Lock()
	m.lastBondAddr = addr
	m.mu.Unlock()
	return m.record(halapi.OpcodeRemoveBond, "RemoveBond")
}

func (m *MockAdapter) CancelBond(addr halapi.BdAddr) halapi.Status {
	m.mu.Lock()
	m.lastBondAddr = addr
	m.mu.Unlock()
	return m.record(halapi.OpcodeCancelBond, "CancelBond")
}

func (m *MockAdapter) PinReply(addr halapi.BdAddr, accept bool, pin halapi.PinCode, pinLen uint8) halapi.Status {
	return m.record(halapi.OpcodePinReply, "PinReply")
}

func (m *MockAdapter) SspReply(addr halapi.BdAddr, variant halapi.SspVariant, accept bool, passkey uint32) halapi.Status {
	return m.record(halapi.OpcodeSspReply, "SspReply")
}

func (m *MockAdapter) DutModeConfigure(enable bool) halapi.Status {
	m.mu.Lock()
	m.lastDutModeEnable = enable
	m.mu.Unlock()
	return m.record(halapi.OpcodeDutModeConfigure, "DutModeConfigure")
}

func (m *MockAdapter) DutModeSend(opcode uint16, data []byte) halapi.Status {
	return m.record(halapi.OpcodeDutModeSend, "DutModeSend")
}

func (m *MockAdapter) LeTestMode(opcode uint16, data []byte) halapi.Status {
	return m.record(halapi.OpcodeLeTestMode, "LeTestMode")
}

func (m *MockAdapter) Sock() halapi.Sock { return m.sock }

// Callbacks returns the Callbacks implementation passed to the most recent
// Init call, or nil if Init has not been called.
func (m *MockAdapter) Callbacks() halapi.Callbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCallbacks
}

// CallCount returns how many times method was invoked.
func (m *MockAdapter) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Reset clears all recorded calls and configured per-opcode statuses.
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
	m.Statuses = make(map[int]halapi.Status)
}

// MockSock is a test double for halapi.Sock, handing back a caller-supplied
// fd (or -1) and status for both Listen and Connect.
type MockSock struct {
	mu sync.Mutex

	ListenFd, ConnectFd int
	Status              halapi.Status

	listenCalls, connectCalls int
	lastConnectAddr           halapi.BdAddr
}

// NewMockSock creates a MockSock reporting success with fd 0 by default.
func NewMockSock() *MockSock {
	return &MockSock{Status: halapi.StatusSuccess}
}

func (s *MockSock) Listen(t halapi.SockType, serviceName string, uuid halapi.Uuid, channel uint16, flags uint8) (int, halapi.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenCalls++
	return s.ListenFd, s.Status
}

func (s *MockSock) Connect(addr halapi.BdAddr, t halapi.SockType, uuid halapi.Uuid, channel uint16, flags uint8) (int, halapi.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectCalls++
	s.lastConnectAddr = addr
	return s.ConnectFd, s.Status
}

// ListenCalls returns how many times Listen was invoked.
func (s *MockSock) ListenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenCalls
}

// ConnectCalls returns how many times Connect was invoked.
func (s *MockSock) ConnectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectCalls
}

var (
	_ halapi.Adapter = (*MockAdapter)(nil)
	_ halapi.Sock    = (*MockSock)(nil)
)
