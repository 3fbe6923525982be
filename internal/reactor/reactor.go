// Package reactor implements a single-threaded, epoll-backed readiness
// loop: callers register a file descriptor and an interest mask, and the
// loop invokes the registered callback whenever epoll reports that fd
// ready. It is the Go translation of the original daemon's epoll_loop,
// kept deliberately single-threaded so that every callback runs with
// exclusive access to connection and dispatch state.
package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/btbridged/internal/constants"
	"github.com/ehrlich-b/btbridged/internal/logging"
)

// Callback is invoked with the ready fd, the epoll event mask that fired,
// and the opaque data supplied at Register time.
type Callback func(fd int, events uint32, data any)

type fdState struct {
	events uint32
	cb     Callback
	data   any
}

// Reactor owns one epoll instance and the registration table of fds it
// watches. It is not safe for concurrent use from multiple goroutines;
// all registration and the Run loop are expected to execute on the same
// goroutine (the "main thread" of the daemon).
type Reactor struct {
	epfd  int
	state [constants.MaxReactorFDs]fdState

	mu      sync.Mutex
	running bool
	stopped bool
}

// New creates an epoll instance and its registration table.
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &Reactor{epfd: epfd}, nil
}

// Register adds fd to the epoll set with the given interest mask, or
// updates its mask and callback if already registered.
func (r *Reactor) Register(fd int, events uint32, cb Callback, data any) error {
	if fd < 0 || fd >= len(r.state) {
		return fmt.Errorf("reactor: fd %d exceeds capacity %d", fd, len(r.state))
	}
	if cb == nil {
		return fmt.Errorf("reactor: nil callback for fd %d", fd)
	}

	enabled := r.state[fd].events != 0
	r.state[fd] = fdState{events: events, cb: cb, data: data}

	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if enabled {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(r.epfd, op, fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl fd %d: %w", fd, err)
	}
	return nil
}

// Deregister removes fd from the epoll set.
func (r *Reactor) Deregister(fd int) {
	if fd < 0 || fd >= len(r.state) {
		return
	}
	if r.state[fd].events == 0 {
		return
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		logging.Warnf("reactor: epoll_ctl del fd %d: %v", fd, err)
	}
	r.state[fd] = fdState{}
}

// Run performs one-time init (typically wiring up the task queue and the
// listening socket) and then blocks, dispatching readiness events until
// Stop is called or an unrecoverable epoll_wait error occurs.
func (r *Reactor) Run(init func(*Reactor) error) error {
	if init != nil {
		if err := init(r); err != nil {
			return fmt.Errorf("reactor: init: %w", err)
		}
	}

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	for {
		r.mu.Lock()
		stopped := r.stopped
		r.mu.Unlock()
		if stopped {
			return nil
		}

		if err := r.iteration(); err != nil {
			return err
		}
	}
}

func (r *Reactor) iteration() error {
	var events [constants.MaxReactorFDs]unix.EpollEvent

	n, err := unix.EpollWait(r.epfd, events[:], -1)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("reactor: epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		st := r.state[fd]
		if st.cb == nil {
			continue
		}
		st.cb(fd, events[i].Events, st.data)
	}
	return nil
}

// Stop requests that Run return after completing its current iteration.
func (r *Reactor) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// Close releases the epoll instance. Callers must stop Run first.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}
