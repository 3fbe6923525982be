// Package hal adapts a pluggable halapi.Adapter into the dispatch layer's
// dependency, and turns the adapter's asynchronous callbacks into PDU
// notifications submitted through the task queue. It is the Go translation
// of bt-core.c's wrapper functions plus the notification builders in
// bt-core-io.c, generalized so the underlying native module is injected
// rather than linked in directly (there is no cgo HAL in this environment).
package hal

import (
	"fmt"
	"sync"

	"github.com/ehrlich-b/btbridged/internal/halapi"
	"github.com/ehrlich-b/btbridged/internal/taskqueue"
)

// NotifyFunc delivers a fully-built notification PDU to the notification
// socket. The dispatch/conn layers supply this.
type NotifyFunc func(service, opcode uint8, payload []byte)

// Adapter wraps a halapi.Adapter with process-wide init/cleanup semantics
// and callback plumbing that is safe to call from the adapter's own
// foreign threads.
type Adapter struct {
	inner  halapi.Adapter
	queue  *taskqueue.Queue
	notify NotifyFunc
}

var (
	singletonMu sync.Mutex
	singleton   *Adapter
)

// Open idempotently initializes the process-wide HAL adapter instance. A
// second Open call with the same inner adapter is a no-op; a call with a
// different inner adapter while one is already open fails, mirroring the
// original daemon's single bt_interface_t binding.
func Open(inner halapi.Adapter, queue *taskqueue.Queue, notify NotifyFunc) (*Adapter, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton != nil {
		if singleton.inner == inner {
			return singleton, nil
		}
		return nil, fmt.Errorf("hal: already initialized with a different adapter")
	}

	a := &Adapter{inner: inner, queue: queue, notify: notify}
	status := inner.Init(a)
	if !status.Ok() {
		return nil, fmt.Errorf("hal: Init failed: %s", status)
	}
	singleton = a
	return a, nil
}

// Close tears down the process-wide HAL adapter instance.
func Close() {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton == nil {
		return
	}
	singleton.inner.Cleanup()
	singleton = nil
}

// Inner returns the wrapped halapi.Adapter for direct command dispatch.
func (a *Adapter) Inner() halapi.Adapter { return a.inner }

// submit hands fn to the task queue so it runs on the reactor goroutine,
// never touching sockets or dispatch state directly from a callback thread.
func (a *Adapter) submit(fn func()) {
	if a.queue == nil {
		fn()
		return
	}
	a.queue.Submit(func(any) { fn() }, nil)
}

// --- halapi.Callbacks ---

func (a *Adapter) AdapterStateChanged(state uint8) {
	a.submit(func() {
		a.notify(halapi.ServiceBtCore, halapi.OpcodeAdapterStateChangedNtf, []byte{state})
	})
}

func (a *Adapter) AdapterPropertiesChanged(status halapi.Status, properties []halapi.Property) {
	a.submit(func() {
		payload := encodePropertiesNtf(uint8(status), properties)
		a.notify(halapi.ServiceBtCore, halapi.OpcodeAdapterPropertiesChangedNtf, payload)
	})
}

func (a *Adapter) RemoteDeviceProperties(status halapi.Status, addr halapi.BdAddr, properties []halapi.Property) {
	a.submit(func() {
		payload := append([]byte{uint8(status)}, addr[:]...)
		payload = append(payload, encodePropertiesNtf(0, properties)[1:]...)
		a.notify(halapi.ServiceBtCore, halapi.OpcodeRemoteDevicePropertiesNtf, payload)
	})
}

func (a *Adapter) DeviceFound(properties []halapi.Property) {
	a.submit(func() {
		payload := encodePropertiesNtf(0, properties)[1:]
		a.notify(halapi.ServiceBtCore, halapi.OpcodeDeviceFoundNtf, payload)
	})
}

func (a *Adapter) DiscoveryStateChanged(state uint8) {
	a.submit(func() {
		a.notify(halapi.ServiceBtCore, halapi.OpcodeDiscoveryStateChangedNtf, []byte{state})
	})
}

func (a *Adapter) PinRequest(addr halapi.BdAddr, name halapi.BdName, classOfDevice uint32) {
	a.submit(func() {
		payload := make([]byte, 0, halapi.BdAddrSize+halapi.BdNameSize+4)
		payload = append(payload, addr[:]...)
		payload = append(payload, name[:]...)
		payload = append(payload, u32le(classOfDevice)...)
		a.notify(halapi.ServiceBtCore, halapi.OpcodePinRequestNtf, payload)
	})
}

func (a *Adapter) SspRequest(addr halapi.BdAddr, name halapi.BdName, classOfDevice uint32, variant halapi.SspVariant, passkey uint32) {
	a.submit(func() {
		payload := make([]byte, 0, halapi.BdAddrSize+halapi.BdNameSize+4+1+4)
		payload = append(payload, addr[:]...)
		payload = append(payload, name[:]...)
		payload = append(payload, u32le(classOfDevice)...)
		payload = append(payload, uint8(variant))
		payload = append(payload, u32le(passkey)...)
		a.notify(halapi.ServiceBtCore, halapi.OpcodeSspRequestNtf, payload)
	})
}

func (a *Adapter) BondStateChanged(status halapi.Status, addr halapi.BdAddr, state uint8) {
	a.submit(func() {
		payload := append([]byte{uint8(status)}, addr[:]...)
		payload = append(payload, state)
		a.notify(halapi.ServiceBtCore, halapi.OpcodeBondStateChangedNtf, payload)
	})
}

func (a *Adapter) AclStateChanged(status halapi.Status, addr halapi.BdAddr, state uint8) {
	a.submit(func() {
		payload := append([]byte{uint8(status)}, addr[:]...)
		payload = append(payload, state)
		a.notify(halapi.ServiceBtCore, halapi.OpcodeAclStateChangedNtf, payload)
	})
}

func (a *Adapter) DutModeRecv(opcode uint16, data []byte) {
	a.submit(func() {
		payload := append(u16le(opcode), uint8(len(data)))
		payload = append(payload, data...)
		a.notify(halapi.ServiceBtCore, halapi.OpcodeDutModeReceiveNtf, payload)
	})
}

func (a *Adapter) LeTestModeRecv(status halapi.Status, numPackets uint16) {
	a.submit(func() {
		payload := append([]byte{uint8(status)}, u16le(numPackets)...)
		a.notify(halapi.ServiceBtCore, halapi.OpcodeLeTestModeNtf, payload)
	})
}

func encodePropertiesNtf(status uint8, properties []halapi.Property) []byte {
	payload := []byte{status, uint8(len(properties))}
	for _, p := range properties {
		payload = append(payload, uint8(p.Type))
		payload = append(payload, u16le(uint16(len(p.Value)))...)
		payload = append(payload, p.Value...)
	}
	return payload
}

func u16le(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
