// Package dispatch implements the two-level service/opcode routing table
// described by the original daemon's core.c and bt-proto.c: an inbound PDU
// is first routed by its Service byte to a registered handler, which then
// routes by its Opcode byte to a concrete command function.
package dispatch

import (
	"fmt"

	"github.com/ehrlich-b/btbridged/internal/metrics"
	"github.com/ehrlich-b/btbridged/internal/pdu"
)

// Handler processes one command PDU and returns a response payload (for a
// successful call) or an error. The Table calls Handler.Handle for every
// PDU whose Service byte maps to a registered service.
type Handler interface {
	Handle(cmd *pdu.PDU) (*pdu.PDU, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(cmd *pdu.PDU) (*pdu.PDU, error)

func (f HandlerFunc) Handle(cmd *pdu.PDU) (*pdu.PDU, error) { return f(cmd) }

// Factory builds a service's Handler at registration time, given the mode
// the client requested and a sender the service can use to push
// unsolicited notifications. It mirrors register_service[] in core.c. The
// returned Unregister (possibly nil) is invoked if the service is later
// torn down, mirroring unregister_service[].
type Factory func(mode uint8, send func(*pdu.PDU)) (Handler, Unregister, error)

// Unregister tears down a previously registered service. It mirrors
// unregister_service[] in core.c.
type Unregister func() error

// StatusError lets a service handler attach a precise wire status code to
// an error, so the connection manager's error-reply PDU carries more detail
// than a generic failure byte.
type StatusError interface {
	error
	Status() uint8
}

// ErrUnsupported is returned when a Service or Opcode byte has no
// registered handler.
var ErrUnsupported = fmt.Errorf("dispatch: unsupported")

// ErrAlreadyRegistered is returned by Register when the service slot is
// already occupied.
var ErrAlreadyRegistered = fmt.Errorf("dispatch: service already registered")

// ErrNotRegistered is returned by Unregister when the service slot is
// empty.
var ErrNotRegistered = fmt.Errorf("dispatch: service not registered")

// ErrCoreImmutable is returned when a caller attempts to unregister the
// permanently bound core service.
var ErrCoreImmutable = fmt.Errorf("dispatch: core service cannot be unregistered")

// CoreService is the service ID permanently bound at Table construction
// and never subject to Register/Unregister.
const CoreService = 0x00

// Table is the two-level service/opcode dispatch table. One Table exists
// per daemon instance; services register and unregister into its single
// 256-entry slot array exactly as core_register_module/core_unregister_module
// do against service_handler[].
type Table struct {
	handlers  [256]Handler
	factories [256]Factory
	teardowns [256]Unregister
	send      func(*pdu.PDU)
	metrics   *metrics.Metrics
}

// New creates an empty table. send is invoked by services to push
// unsolicited notification PDUs out to the client.
func New(send func(*pdu.PDU)) *Table {
	return &Table{send: send}
}

// SetMetrics attaches m so Register/Unregister/Dispatch record broker-wide
// counters. Optional; a Table with no metrics attached behaves exactly as
// before.
func (t *Table) SetMetrics(m *metrics.Metrics) {
	t.metrics = m
}

// BindFactory makes a service ID registerable via Register by associating
// it with a Factory (whose call at Register time also yields the matching
// Unregister), mirroring how register_service and unregister_service are
// populated at startup in the original daemon.
func (t *Table) BindFactory(service uint8, factory Factory) {
	t.factories[service] = factory
}

// BindCore installs a handler directly at the reserved core service slot,
// bypassing Register/Unregister (mirrors init_core pinning SERVICE_CORE).
func (t *Table) BindCore(h Handler) {
	t.handlers[CoreService] = h
}

// Register activates the service identified by service using the mode
// byte the client supplied, delegating to the bound Factory. It rejects a
// service ID with no bound factory, and rejects a service ID whose slot is
// already occupied by a live handler.
func (t *Table) Register(service, mode uint8) error {
	if t.handlers[service] != nil {
		return fmt.Errorf("%w: service 0x%02x", ErrAlreadyRegistered, service)
	}
	factory := t.factories[service]
	if factory == nil {
		return fmt.Errorf("dispatch: no factory bound for service 0x%02x", service)
	}
	h, teardown, err := factory(mode, t.send)
	if err != nil {
		return fmt.Errorf("dispatch: factory for service 0x%02x: %w", service, err)
	}
	t.handlers[service] = h
	t.teardowns[service] = teardown
	if t.metrics != nil {
		t.metrics.RecordServiceRegistered()
	}
	return nil
}

// Unregister deactivates a previously registered service. SERVICE_CORE may
// never be unregistered.
func (t *Table) Unregister(service uint8) error {
	if service == CoreService {
		return ErrCoreImmutable
	}
	if t.handlers[service] == nil {
		return fmt.Errorf("%w: service 0x%02x", ErrNotRegistered, service)
	}
	if teardown := t.teardowns[service]; teardown != nil {
		if err := teardown(); err != nil {
			return fmt.Errorf("dispatch: teardown for service 0x%02x: %w", service, err)
		}
	}
	t.handlers[service] = nil
	t.teardowns[service] = nil
	if t.metrics != nil {
		t.metrics.RecordServiceUnregistered()
	}
	return nil
}

// Dispatch routes cmd by its Service byte to a registered Handler. It is
// the Go analogue of handle_pdu_by_service.
func (t *Table) Dispatch(cmd *pdu.PDU) (*pdu.PDU, error) {
	if t.metrics != nil {
		t.metrics.RecordReceived(cmd.Service)
	}
	h := t.handlers[cmd.Service]
	if h == nil {
		if t.metrics != nil {
			t.metrics.RecordDispatchError()
		}
		return nil, fmt.Errorf("%w: service 0x%02x", ErrUnsupported, cmd.Service)
	}
	resp, err := h.Handle(cmd)
	if err != nil && t.metrics != nil {
		t.metrics.RecordDispatchError()
	}
	if err == nil && resp != nil && t.metrics != nil {
		t.metrics.RecordSent(resp.Service)
	}
	return resp, err
}

// OpcodeTable is a 256-entry opcode-keyed handler table a service uses
// internally, mirroring the handler[256] tables built with designated
// initializers in core-io.c and bt-core-io.c.
type OpcodeTable struct {
	entries [256]func(cmd *pdu.PDU) (*pdu.PDU, error)
}

// Bind installs fn at opcode.
func (o *OpcodeTable) Bind(opcode uint8, fn func(cmd *pdu.PDU) (*pdu.PDU, error)) {
	o.entries[opcode] = fn
}

// Dispatch routes cmd by its Opcode byte, the analogue of
// handle_pdu_by_opcode.
func (o *OpcodeTable) Dispatch(cmd *pdu.PDU) (*pdu.PDU, error) {
	fn := o.entries[cmd.Opcode]
	if fn == nil {
		return nil, fmt.Errorf("%w: opcode 0x%02x", ErrUnsupported, cmd.Opcode)
	}
	return fn(cmd)
}
