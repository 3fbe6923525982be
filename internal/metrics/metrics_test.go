package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordReceivedAndSentPerService(t *testing.T) {
	m := New()

	m.RecordReceived(0x00)
	m.RecordReceived(0x00)
	m.RecordReceived(0x01)
	m.RecordSent(0x01)

	if got := m.PdusReceived[0x00].Load(); got != 2 {
		t.Errorf("PdusReceived[0x00] = %d, want 2", got)
	}
	if got := m.PdusReceived[0x01].Load(); got != 1 {
		t.Errorf("PdusReceived[0x01] = %d, want 1", got)
	}
	if got := m.PdusSent[0x01].Load(); got != 1 {
		t.Errorf("PdusSent[0x01] = %d, want 1", got)
	}
	if got := m.PdusSent[0x00].Load(); got != 0 {
		t.Errorf("PdusSent[0x00] = %d, want 0", got)
	}
}

func TestRecordConnectionLifecycle(t *testing.T) {
	m := New()

	m.RecordConnectionAccepted()
	m.RecordConnectionAccepted()
	m.RecordConnectionRejected()
	m.RecordConnectionTornDown()

	if got := m.ConnectionsAccepted.Load(); got != 2 {
		t.Errorf("ConnectionsAccepted = %d, want 2", got)
	}
	if got := m.ConnectionsRejected.Load(); got != 1 {
		t.Errorf("ConnectionsRejected = %d, want 1", got)
	}
	if got := m.ConnectionsTornDown.Load(); got != 1 {
		t.Errorf("ConnectionsTornDown = %d, want 1", got)
	}
}

func TestCollectOmitsIdleServices(t *testing.T) {
	m := New()
	m.RecordReceived(0x02)

	count := testutil.CollectAndCount(m, "btbridged_pdus_received_total")
	if count != 1 {
		t.Errorf("CollectAndCount(pdus_received) = %d, want 1 (only service 0x02 touched)", count)
	}
}

func TestCollectReportsRegistrationCounters(t *testing.T) {
	m := New()
	m.RecordServiceRegistered()
	m.RecordServiceRegistered()
	m.RecordServiceUnregistered()

	if count := testutil.CollectAndCount(m, "btbridged_services_registered_total"); count != 1 {
		t.Errorf("CollectAndCount(services_registered) = %d, want 1", count)
	}
	if count := testutil.CollectAndCount(m, "btbridged_services_unregistered_total"); count != 1 {
		t.Errorf("CollectAndCount(services_unregistered) = %d, want 1", count)
	}
}
