package btbridged

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/btbridged/internal/halapi"
)

func newListenFd(t *testing.T) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socket() error = %v", err)
	}
	t.Cleanup(func() { unix.Close(fd) })

	addr := &unix.SockaddrUnix{Name: "\x00btbridged-broker-test"}
	if err := unix.Bind(fd, addr); err != nil {
		t.Fatalf("bind() error = %v", err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		t.Fatalf("listen() error = %v", err)
	}
	return fd
}

func TestNewRequiresAdapter(t *testing.T) {
	_, err := New(Params{ListenFd: newListenFd(t)})
	if err == nil {
		t.Fatal("New() with nil Adapter returned nil error")
	}
}

func TestNewRequiresValidListenFd(t *testing.T) {
	_, err := New(Params{Adapter: NewMockAdapter(), ListenFd: -1})
	if err == nil {
		t.Fatal("New() with negative ListenFd returned nil error")
	}
}

func TestNewWiresCoreAndFactories(t *testing.T) {
	b, err := New(Params{Adapter: NewMockAdapter(), ListenFd: newListenFd(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Stop()

	if err := b.table.Register(halapi.ServiceBtCore, 0); err != nil {
		t.Fatalf("Register(BtCore) error = %v", err)
	}
	if err := b.table.Register(halapi.ServiceBtCore, 0); err == nil {
		t.Error("second Register(BtCore) should fail as already registered")
	}
	if err := b.table.Register(halapi.ServiceBtSock, 0); err != nil {
		t.Fatalf("Register(BtSock) error = %v", err)
	}
}

func TestNewOpensHalAdapter(t *testing.T) {
	adapter := NewMockAdapter()
	b, err := New(Params{Adapter: adapter, ListenFd: newListenFd(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Stop()

	if adapter.CallCount("Init") != 1 {
		t.Errorf("adapter.Init call count = %d, want 1", adapter.CallCount("Init"))
	}
	if b.Adapter() == nil {
		t.Error("Adapter() returned nil after successful Open")
	}
}

func TestStateTransitionsAndMetrics(t *testing.T) {
	b, err := New(Params{Adapter: NewMockAdapter(), ListenFd: newListenFd(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := b.State(); got != BrokerStateCreated {
		t.Errorf("State() = %v, want %v", got, BrokerStateCreated)
	}
	if b.IsRunning() {
		t.Error("IsRunning() = true before Run")
	}
	if b.Metrics() == nil {
		t.Error("Metrics() returned nil")
	}

	b.Stop()
}
