package pdu

import "golang.org/x/sys/unix"

// WriteBuffer is a single queued outbound PDU plus an optional ancillary
// file descriptor to attach to its first send (used by BT-Sock's LISTEN
// and CONNECT replies to hand a socket fd to the client via SCM_RIGHTS).
// It mirrors struct pdu_wbuf's off/buf pair: off tracks how much of buf has
// already been written by a previous partial send.
type WriteBuffer struct {
	buf []byte
	off int

	// FD is attached ancillary data for the first sendmsg call only; once
	// any bytes have been written (off > 0) the fd must not be resent.
	FD    int
	HasFD bool
}

// NewWriteBuffer wraps an encoded PDU for queued delivery.
func NewWriteBuffer(p *PDU) *WriteBuffer {
	return &WriteBuffer{buf: p.Encode()}
}

// WithFD attaches an ancillary descriptor to be sent alongside the first
// chunk of this buffer's bytes.
func (w *WriteBuffer) WithFD(fd int) *WriteBuffer {
	w.FD = fd
	w.HasFD = true
	return w
}

// Pending returns the not-yet-written tail of the buffer.
func (w *WriteBuffer) Pending() []byte {
	return w.buf[w.off:]
}

// Consumed advances the write cursor after n bytes have been accepted by
// the kernel. The ancillary fd (if any) is attached on the sendmsg call
// that carries the first byte of the buffer, so once that call has
// succeeded the sender's copy of the fd must be closed; HasFD doubles as
// the one-shot guard so it is never closed twice.
func (w *WriteBuffer) Consumed(n int) {
	w.off += n
	if w.HasFD {
		unix.Close(w.FD)
		w.HasFD = false
	}
}

// Done reports whether every byte of this buffer has been written.
func (w *WriteBuffer) Done() bool {
	return w.off >= len(w.buf)
}

// Abort closes any ancillary fd still attached without having been sent,
// for use when a queued buffer is discarded before its send completes
// (the connection it was queued on is torn down first).
func (w *WriteBuffer) Abort() {
	if w.HasFD {
		unix.Close(w.FD)
		w.HasFD = false
	}
}

// Release returns the buffer's backing array to the pool. Callers must not
// touch the WriteBuffer again afterward; this is called once a fully sent
// buffer is popped off a SendQueue.
func (w *WriteBuffer) Release() {
	putBuffer(w.buf)
	w.buf = nil
}

// SendQueue is a FIFO of pending write buffers for one connection, mirroring
// the original's per-connection STAILQ of pdu_wbuf entries.
type SendQueue struct {
	items []*WriteBuffer
}

// Push enqueues a buffer for later delivery.
func (q *SendQueue) Push(w *WriteBuffer) {
	q.items = append(q.items, w)
}

// Front returns the head-of-line buffer, or nil if the queue is empty.
func (q *SendQueue) Front() *WriteBuffer {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Pop removes the head-of-line buffer once it has been fully written.
func (q *SendQueue) Pop() {
	if len(q.items) == 0 {
		return
	}
	q.items = q.items[1:]
}

// Empty reports whether no buffers remain queued, which is the signal to
// drop EPOLLOUT interest on the connection's fd.
func (q *SendQueue) Empty() bool {
	return len(q.items) == 0
}

// Drain discards every queued buffer, closing any ancillary fd still
// attached and releasing each buffer's backing array. Called when the
// connection a queue belongs to is torn down with sends still pending.
func (q *SendQueue) Drain() {
	for _, w := range q.items {
		w.Abort()
		w.Release()
	}
	q.items = nil
}
