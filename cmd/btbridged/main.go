// Command btbridged runs the Bluetooth protocol broker daemon: it wires a
// Bluetooth HAL adapter to the reactor/dispatch/connection stack and serves
// one client's command and notification sockets until signalled to stop.
//
// The daemon never opens its own listening socket (an external collaborator
// is expected to hand it one, already bound and listening, the way Android's
// init process hands bluetoothd a pre-bound socket via ANDROID_SOCKET_*).
// This binary wires the in-process MockAdapter as its HAL, the same way the
// teacher's ublk-mem command wires an in-memory storage backend rather than
// a real block device; a production deployment supplies its own
// halapi.Adapter, built against its platform's native Bluetooth stack.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/btbridged"
	"github.com/ehrlich-b/btbridged/internal/constants"
	"github.com/ehrlich-b/btbridged/internal/logging"
)

func main() {
	logger := logging.NewLogger(logging.DefaultConfig())
	logging.SetDefault(logger)

	listenFd, err := controlSocketFd(constants.ControlSocketName)
	if err != nil {
		logger.Error("failed to acquire listening socket", "error", err)
		os.Exit(1)
	}

	broker, err := btbridged.New(btbridged.Params{
		Adapter:  btbridged.NewMockAdapter(),
		ListenFd: listenFd,
	})
	if err != nil {
		logger.Error("failed to construct broker", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		broker.Stop()
	}()

	logger.Info("serving", "listen_fd", listenFd)
	if err := broker.Run(); err != nil {
		logger.Error("reactor loop exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped cleanly")
}

// controlSocketFd resolves the pre-bound listening socket for name from the
// environment variable an external collaborator sets before exec, mirroring
// Android init's android_get_control_socket: ANDROID_SOCKET_<name> holds the
// fd number as a decimal string. Falls back to fd 3, the conventional first
// passed descriptor, if the variable is unset.
func controlSocketFd(name string) (int, error) {
	key := "ANDROID_SOCKET_" + name
	val, ok := os.LookupEnv(key)
	if !ok {
		const fallback = 3
		if !isValidFd(fallback) {
			return 0, fmt.Errorf("%s not set and fd %d is not a valid socket", key, fallback)
		}
		return fallback, nil
	}

	fd, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid fd number: %w", key, val, err)
	}
	if !isValidFd(fd) {
		return 0, fmt.Errorf("%s=%d is not a valid socket", key, fd)
	}
	return fd, nil
}

func isValidFd(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}
