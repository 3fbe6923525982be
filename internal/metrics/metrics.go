// Package metrics tracks broker-wide operational counters using the same
// atomic-counter style as the original project's root metrics.go, exposed
// as a prometheus.Collector so an embedder can register it with its own
// Registerer. The broker never opens its own metrics listening socket
// (that would violate the single-listening-socket contract the connection
// manager enforces), so Collect is the only exposition path.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks PDU, connection, and HAL-callback activity for one broker
// instance.
type Metrics struct {
	// PDUs received and sent on the command socket, by service.
	PdusReceived [256]atomic.Uint64
	PdusSent     [256]atomic.Uint64

	// Notifications pushed on the notification socket.
	NotificationsSent atomic.Uint64

	// Dispatch outcomes.
	DispatchErrors atomic.Uint64
	MalformedPdus  atomic.Uint64

	// Connection lifecycle.
	ConnectionsAccepted   atomic.Uint64
	ConnectionsRejected   atomic.Uint64
	ConnectionsTornDown   atomic.Uint64

	// Ancillary fd transfers (BT-Sock LISTEN/CONNECT replies).
	FdsSent atomic.Uint64

	// Registry churn.
	ServicesRegistered   atomic.Uint64
	ServicesUnregistered atomic.Uint64

	descPdusReceived         *prometheus.Desc
	descPdusSent             *prometheus.Desc
	descNotificationsSent    *prometheus.Desc
	descDispatchErrors       *prometheus.Desc
	descMalformedPdus        *prometheus.Desc
	descConnectionsAccepted  *prometheus.Desc
	descConnectionsRejected  *prometheus.Desc
	descConnectionsTornDown  *prometheus.Desc
	descFdsSent              *prometheus.Desc
	descServicesRegistered   *prometheus.Desc
	descServicesUnregistered *prometheus.Desc
}

// New creates an empty Metrics collector.
func New() *Metrics {
	return &Metrics{
		descPdusReceived: prometheus.NewDesc(
			"btbridged_pdus_received_total", "Total command PDUs received, by service", []string{"service"}, nil),
		descPdusSent: prometheus.NewDesc(
			"btbridged_pdus_sent_total", "Total response PDUs sent, by service", []string{"service"}, nil),
		descNotificationsSent: prometheus.NewDesc(
			"btbridged_notifications_sent_total", "Total unsolicited notification PDUs sent", nil, nil),
		descDispatchErrors: prometheus.NewDesc(
			"btbridged_dispatch_errors_total", "Total PDUs that failed service/opcode dispatch", nil, nil),
		descMalformedPdus: prometheus.NewDesc(
			"btbridged_malformed_pdus_total", "Total PDUs rejected for malformed framing or payload", nil, nil),
		descConnectionsAccepted: prometheus.NewDesc(
			"btbridged_connections_accepted_total", "Total client sockets accepted", nil, nil),
		descConnectionsRejected: prometheus.NewDesc(
			"btbridged_connections_rejected_total", "Total client sockets rejected (already have command and notification sockets)", nil, nil),
		descConnectionsTornDown: prometheus.NewDesc(
			"btbridged_connections_torn_down_total", "Total client sockets torn down", nil, nil),
		descFdsSent: prometheus.NewDesc(
			"btbridged_fds_sent_total", "Total file descriptors handed off via SCM_RIGHTS", nil, nil),
		descServicesRegistered: prometheus.NewDesc(
			"btbridged_services_registered_total", "Total REGISTER_MODULE calls that succeeded", nil, nil),
		descServicesUnregistered: prometheus.NewDesc(
			"btbridged_services_unregistered_total", "Total UNREGISTER_MODULE calls that succeeded", nil, nil),
	}
}

// RecordReceived counts one inbound command PDU for service.
func (m *Metrics) RecordReceived(service uint8) { m.PdusReceived[service].Add(1) }

// RecordSent counts one outbound response PDU for service.
func (m *Metrics) RecordSent(service uint8) { m.PdusSent[service].Add(1) }

// RecordNotificationSent counts one outbound notification PDU.
func (m *Metrics) RecordNotificationSent() { m.NotificationsSent.Add(1) }

// RecordDispatchError counts one PDU that failed to route to a handler.
func (m *Metrics) RecordDispatchError() { m.DispatchErrors.Add(1) }

// RecordMalformedPdu counts one PDU rejected during framing or decode.
func (m *Metrics) RecordMalformedPdu() { m.MalformedPdus.Add(1) }

// RecordConnectionAccepted counts one accepted client socket.
func (m *Metrics) RecordConnectionAccepted() { m.ConnectionsAccepted.Add(1) }

// RecordConnectionRejected counts one socket rejected for exceeding the
// two-connection-per-client limit.
func (m *Metrics) RecordConnectionRejected() { m.ConnectionsRejected.Add(1) }

// RecordConnectionTornDown counts one connection closed, whether by error
// or orderly EOF.
func (m *Metrics) RecordConnectionTornDown() { m.ConnectionsTornDown.Add(1) }

// RecordFdSent counts one ancillary fd handed off over SCM_RIGHTS.
func (m *Metrics) RecordFdSent() { m.FdsSent.Add(1) }

// RecordServiceRegistered counts one successful REGISTER_MODULE.
func (m *Metrics) RecordServiceRegistered() { m.ServicesRegistered.Add(1) }

// RecordServiceUnregistered counts one successful UNREGISTER_MODULE.
func (m *Metrics) RecordServiceUnregistered() { m.ServicesUnregistered.Add(1) }

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.descPdusReceived
	ch <- m.descPdusSent
	ch <- m.descNotificationsSent
	ch <- m.descDispatchErrors
	ch <- m.descMalformedPdus
	ch <- m.descConnectionsAccepted
	ch <- m.descConnectionsRejected
	ch <- m.descConnectionsTornDown
	ch <- m.descFdsSent
	ch <- m.descServicesRegistered
	ch <- m.descServicesUnregistered
}

// Collect implements prometheus.Collector. Per-service counters are only
// emitted for services that have seen at least one PDU, so an idle
// broker's scrape stays small.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for service := 0; service < 256; service++ {
		if v := m.PdusReceived[service].Load(); v > 0 {
			ch <- prometheus.MustNewConstMetric(m.descPdusReceived, prometheus.CounterValue, float64(v), serviceLabel(service))
		}
		if v := m.PdusSent[service].Load(); v > 0 {
			ch <- prometheus.MustNewConstMetric(m.descPdusSent, prometheus.CounterValue, float64(v), serviceLabel(service))
		}
	}
	ch <- prometheus.MustNewConstMetric(m.descNotificationsSent, prometheus.CounterValue, float64(m.NotificationsSent.Load()))
	ch <- prometheus.MustNewConstMetric(m.descDispatchErrors, prometheus.CounterValue, float64(m.DispatchErrors.Load()))
	ch <- prometheus.MustNewConstMetric(m.descMalformedPdus, prometheus.CounterValue, float64(m.MalformedPdus.Load()))
	ch <- prometheus.MustNewConstMetric(m.descConnectionsAccepted, prometheus.CounterValue, float64(m.ConnectionsAccepted.Load()))
	ch <- prometheus.MustNewConstMetric(m.descConnectionsRejected, prometheus.CounterValue, float64(m.ConnectionsRejected.Load()))
	ch <- prometheus.MustNewConstMetric(m.descConnectionsTornDown, prometheus.CounterValue, float64(m.ConnectionsTornDown.Load()))
	ch <- prometheus.MustNewConstMetric(m.descFdsSent, prometheus.CounterValue, float64(m.FdsSent.Load()))
	ch <- prometheus.MustNewConstMetric(m.descServicesRegistered, prometheus.CounterValue, float64(m.ServicesRegistered.Load()))
	ch <- prometheus.MustNewConstMetric(m.descServicesUnregistered, prometheus.CounterValue, float64(m.ServicesUnregistered.Load()))
}

var _ prometheus.Collector = (*Metrics)(nil)

func serviceLabel(service int) string {
	const hex = "0123456789abcdef"
	return "0x" + string([]byte{hex[(service>>4)&0xf], hex[service&0xf]})
}
