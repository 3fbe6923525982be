// Package taskqueue lets foreign threads (HAL callback threads) hand work
// back to the reactor's single goroutine. It is the Go translation of the
// original daemon's pipe-backed task queue: a write to pipefd[1] wakes the
// reactor, which reads the ready marker and drains a list of queued tasks.
//
// The original queued a raw pointer by writing its bytes directly into the
// pipe, relying on PIPE_BUF atomicity. A moving Go pointer cannot be
// smuggled through a pipe that way, so this translation keeps the pipe
// purely as a wakeup signal and moves the actual task payload into a
// mutex-guarded slice the reactor goroutine drains on each wakeup.
package taskqueue

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/btbridged/internal/logging"
	"github.com/ehrlich-b/btbridged/internal/reactor"
)

// Task is a unit of work submitted from any goroutine to be run on the
// reactor's goroutine.
type Task struct {
	Func func(data any)
	Data any
}

// Queue is a cross-goroutine task queue drained by the reactor loop.
type Queue struct {
	readFd, writeFd int

	mu      sync.Mutex
	pending []*Task
}

// New creates the wakeup pipe. The queue is not usable until Install
// registers its read end with a reactor.
func New() (*Queue, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("taskqueue: pipe2: %w", err)
	}
	return &Queue{readFd: fds[0], writeFd: fds[1]}, nil
}

// Install registers the queue's read end with r so that submitted tasks
// are executed on r's goroutine.
func (q *Queue) Install(r *reactor.Reactor) error {
	return r.Register(q.readFd, unix.EPOLLIN|unix.EPOLLERR, q.onReadable, nil)
}

// Close releases both ends of the wakeup pipe.
func (q *Queue) Close() {
	unix.Close(q.writeFd)
	unix.Close(q.readFd)
}

// Submit enqueues fn to run on the reactor goroutine with data as its
// argument, then wakes the reactor. Safe to call from any goroutine,
// including HAL callback threads.
func (q *Queue) Submit(fn func(data any), data any) error {
	q.mu.Lock()
	q.pending = append(q.pending, &Task{Func: fn, Data: data})
	q.mu.Unlock()

	for {
		_, err := unix.Write(q.writeFd, []byte{1})
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			// wakeup byte already pending in the pipe; the drain this
			// triggers will still pick up the task we just appended.
			return nil
		}
		if err != nil {
			return fmt.Errorf("taskqueue: write: %w", err)
		}
		return nil
	}
}

func (q *Queue) onReadable(fd int, events uint32, data any) {
	var buf [64]byte
	for {
		_, err := unix.Read(q.readFd, buf[:])
		if err == nil {
			continue
		}
		if err == unix.EAGAIN {
			break
		}
		if err == unix.EINTR {
			continue
		}
		logging.Errorf("taskqueue: read: %v", err)
		break
	}

	q.mu.Lock()
	tasks := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, t := range tasks {
		t.Func(t.Data)
	}
}
