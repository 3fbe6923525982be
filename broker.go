// Package btbridged provides the main API for running the Bluetooth
// protocol broker: a single-threaded reactor that accepts a command and a
// notification socket, frames and dispatches PDUs against a pluggable
// Bluetooth HAL adapter, and ships HAL callbacks back out as notification
// PDUs.
package btbridged

import (
	"fmt"
	"time"

	"github.com/ehrlich-b/btbridged/internal/conn"
	"github.com/ehrlich-b/btbridged/internal/dispatch"
	"github.com/ehrlich-b/btbridged/internal/hal"
	"github.com/ehrlich-b/btbridged/internal/halapi"
	"github.com/ehrlich-b/btbridged/internal/logging"
	"github.com/ehrlich-b/btbridged/internal/metrics"
	"github.com/ehrlich-b/btbridged/internal/pdu"
	"github.com/ehrlich-b/btbridged/internal/reactor"
	"github.com/ehrlich-b/btbridged/internal/service/btcore"
	"github.com/ehrlich-b/btbridged/internal/service/btsock"
	"github.com/ehrlich-b/btbridged/internal/service/core"
	"github.com/ehrlich-b/btbridged/internal/taskqueue"
)

// Params configures a Broker.
type Params struct {
	// Adapter is the Bluetooth HAL adapter the broker drives. Required.
	Adapter halapi.Adapter

	// ListenFd is an already-bound, already-listening Unix domain socket
	// fd the broker accepts client connections on. Required.
	ListenFd int
}

// BrokerState mirrors the device lifecycle states the original project's
// backend.go tracked, renamed to the broker's own vocabulary.
type BrokerState string

const (
	BrokerStateCreated BrokerState = "created"
	BrokerStateRunning BrokerState = "running"
	BrokerStateStopped BrokerState = "stopped"
)

// Broker owns one reactor, its task queue, the dispatch table, the
// connection manager, and the process-wide HAL adapter binding. Only one
// Broker may run per process, since the HAL adapter singleton is
// process-wide (see internal/hal).
type Broker struct {
	r       *reactor.Reactor
	tasks   *taskqueue.Queue
	table   *dispatch.Table
	mgr     *conn.Manager
	metrics *metrics.Metrics
	adapter *hal.Adapter

	state BrokerState
}

// New builds a Broker wired against params, but does not start serving
// connections. Call Run to start it.
func New(params Params) (*Broker, error) {
	if params.Adapter == nil {
		return nil, fmt.Errorf("btbridged: Params.Adapter is required")
	}
	if params.ListenFd < 0 {
		return nil, fmt.Errorf("btbridged: Params.ListenFd must be a valid fd")
	}

	r, err := reactor.New()
	if err != nil {
		return nil, fmt.Errorf("btbridged: %w", err)
	}

	tasks, err := taskqueue.New()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("btbridged: %w", err)
	}

	m := metrics.New()

	b := &Broker{r: r, tasks: tasks, metrics: m, state: BrokerStateCreated}

	// The table's send function and the adapter's notify function both
	// need a reference to the connection manager, which in turn needs the
	// table; tie the knot with b's own fields rather than a forward
	// declaration.
	send := func(p *pdu.PDU) { b.mgr.SendToNtf(p) }
	table := dispatch.New(send)
	table.SetMetrics(m)
	table.BindCore(core.New(table))
	table.BindFactory(halapi.ServiceBtCore, btcore.Factory(params.Adapter))

	sendFD := func(p *pdu.PDU, fd int) { b.mgr.SendFDToCmd(p, fd) }
	table.BindFactory(halapi.ServiceBtSock, btsock.Factory(params.Adapter.Sock(), sendFD))

	b.table = table
	b.mgr = conn.New(r, table, params.ListenFd)
	b.mgr.SetMetrics(m)

	notify := func(service, opcode uint8, payload []byte) {
		b.mgr.SendToNtf(&pdu.PDU{Service: service, Opcode: opcode, Payload: payload})
	}
	adapter, err := hal.Open(params.Adapter, tasks, notify)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("btbridged: %w", err)
	}
	b.adapter = adapter

	return b, nil
}

// Run installs the task queue and listening socket with the reactor and
// blocks, serving connections until Stop is called or the reactor
// encounters an unrecoverable error. It mirrors the original daemon's
// main() calling epoll_loop after one-time setup.
func (b *Broker) Run() error {
	b.state = BrokerStateRunning
	err := b.r.Run(func(r *reactor.Reactor) error {
		if err := b.tasks.Install(r); err != nil {
			return err
		}
		return b.mgr.Install()
	})
	b.state = BrokerStateStopped
	return err
}

// Stop requests that Run return, then releases the HAL adapter, the task
// queue's wakeup pipe, and the epoll instance.
func (b *Broker) Stop() {
	b.r.Stop()

	// Give the reactor's blocked epoll_wait a moment to have already woken
	// on the stop-triggering event (typically the peer closing the command
	// socket); Run's loop checks the stopped flag between iterations, not
	// mid-wait.
	time.Sleep(time.Millisecond)

	hal.Close()
	b.tasks.Close()
	if err := b.r.Close(); err != nil {
		logging.Warnf("btbridged: closing reactor: %v", err)
	}
}

// State returns the broker's current lifecycle state.
func (b *Broker) State() BrokerState {
	return b.state
}

// IsRunning reports whether the broker is actively serving connections.
func (b *Broker) IsRunning() bool {
	return b.state == BrokerStateRunning
}

// Metrics returns the broker's Prometheus collector. Register it with a
// prometheus.Registerer to expose it; the broker never opens its own
// metrics listening socket.
func (b *Broker) Metrics() *metrics.Metrics {
	return b.metrics
}

// Adapter returns the wrapped HAL adapter, primarily useful for tests that
// want to drive the native stack directly.
func (b *Broker) Adapter() *hal.Adapter {
	return b.adapter
}
