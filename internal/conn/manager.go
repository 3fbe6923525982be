// Package conn implements the daemon's connection lifecycle: accepting the
// two client sockets (command/response and notification), framing reads
// into complete PDUs for dispatch, and framing writes back onto the wire,
// including ancillary file descriptors attached via SCM_RIGHTS. It is the
// Go translation of the original daemon's bt-io.c.
package conn

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/btbridged/internal/constants"
	"github.com/ehrlich-b/btbridged/internal/dispatch"
	"github.com/ehrlich-b/btbridged/internal/logging"
	"github.com/ehrlich-b/btbridged/internal/metrics"
	"github.com/ehrlich-b/btbridged/internal/pdu"
	"github.com/ehrlich-b/btbridged/internal/reactor"
)

// Role distinguishes the two sockets a client must connect, in order: the
// first accepted connection carries command/response PDUs, the second
// carries unsolicited notifications.
type Role int

const (
	RoleCommand Role = iota
	RoleNotification
)

// Manager owns the listening socket and the (at most one) client's two
// connections. It never accepts a third connection.
type Manager struct {
	r       *reactor.Reactor
	table   *dispatch.Table
	lfd     int
	cmdFd   int
	ntfFd   int
	cmdConn *connection
	ntfConn *connection
	metrics *metrics.Metrics
}

type connection struct {
	fd       int
	rbuf     *pdu.ReadBuffer
	sendQ    pdu.SendQueue
	readable bool // whether the reactor callback should also watch EPOLLIN
	onEvent  reactor.Callback
}

// New creates a manager bound to an already-listening socket fd.
func New(r *reactor.Reactor, table *dispatch.Table, listenFd int) *Manager {
	return &Manager{r: r, table: table, lfd: listenFd}
}

// SetMetrics attaches m so connection and fd-transfer lifecycle events are
// counted. Optional.
func (m *Manager) SetMetrics(metrics *metrics.Metrics) {
	m.metrics = metrics
}

// Install registers the listening socket with the reactor.
func (m *Manager) Install() error {
	return m.r.Register(m.lfd, unix.EPOLLIN|unix.EPOLLERR, m.onListenEvent, nil)
}

func (m *Manager) onListenEvent(fd int, events uint32, data any) {
	if events&unix.EPOLLERR != 0 {
		m.r.Deregister(fd)
		logging.Error("conn: listening socket error")
		return
	}
	if events&unix.EPOLLIN == 0 {
		logging.Warnf("conn: unsupported event mask on listen fd: %#x", events)
		return
	}
	m.acceptOne()
}

func (m *Manager) acceptOne() {
	sockFd, _, err := unix.Accept(m.lfd)
	if err != nil {
		logging.Errorf("conn: accept: %v", err)
		return
	}

	var role Role
	switch {
	case m.cmdConn == nil:
		role = RoleCommand
	case m.ntfConn == nil:
		role = RoleNotification
	default:
		logging.Warn("conn: too many connected sockets, rejecting")
		if m.metrics != nil {
			m.metrics.RecordConnectionRejected()
		}
		unix.Close(sockFd)
		return
	}

	if err := m.setup(sockFd, role); err != nil {
		logging.Errorf("conn: setup: %v", err)
		unix.Close(sockFd)
		return
	}
	if m.metrics != nil {
		m.metrics.RecordConnectionAccepted()
	}
}

func (m *Manager) setup(fd int, role Role) error {
	switch role {
	case RoleCommand:
		c := &connection{
			fd:       fd,
			rbuf:     pdu.NewReadBuffer(constants.DefaultReadBufferPayload),
			readable: true,
			onEvent:  m.onCmdEvent,
		}
		if err := m.r.Register(fd, unix.EPOLLIN|unix.EPOLLERR, c.onEvent, nil); err != nil {
			return fmt.Errorf("register cmd fd: %w", err)
		}
		m.cmdConn = c
		m.cmdFd = fd
		return nil
	case RoleNotification:
		c := &connection{fd: fd, onEvent: m.onNtfEvent}
		if err := m.r.Register(fd, unix.EPOLLERR, c.onEvent, nil); err != nil {
			return fmt.Errorf("register ntf fd: %w", err)
		}
		m.ntfConn = c
		m.ntfFd = fd
		return nil
	default:
		return fmt.Errorf("conn: unknown role %d", role)
	}
}

func (m *Manager) onNtfEvent(fd int, events uint32, data any) {
	if events&unix.EPOLLERR != 0 {
		m.teardownNtf()
		return
	}
	if events&unix.EPOLLOUT != 0 && m.ntfConn != nil {
		m.drain(m.ntfConn, m.ntfFd)
	}
}

func (m *Manager) teardownNtf() {
	if m.ntfConn == nil {
		return
	}
	m.r.Deregister(m.ntfFd)
	unix.Close(m.ntfFd)
	m.ntfConn.sendQ.Drain()
	m.ntfConn = nil
	m.ntfFd = 0
	if m.metrics != nil {
		m.metrics.RecordConnectionTornDown()
	}
	m.teardownCmd()
}

func (m *Manager) onCmdEvent(fd int, events uint32, data any) {
	if events&unix.EPOLLERR != 0 {
		m.teardownCmd()
		return
	}
	if events&unix.EPOLLOUT != 0 {
		m.flushCmd()
	}
	if events&unix.EPOLLIN != 0 {
		m.readCmd()
	}
}

func (m *Manager) teardownCmd() {
	if m.cmdConn == nil {
		return
	}
	m.r.Deregister(m.cmdFd)
	unix.Close(m.cmdFd)
	m.cmdConn.sendQ.Drain()
	m.cmdConn = nil
	m.cmdFd = 0
	if m.metrics != nil {
		m.metrics.RecordConnectionTornDown()
	}
	m.teardownNtf()
}

func (m *Manager) readCmd() {
	c := m.cmdConn
	if c == nil {
		return
	}

	n, err := unix.Read(c.fd, c.rbuf.Free())
	if err != nil {
		logging.Errorf("conn: read: %v", err)
		m.teardownCmd()
		return
	}
	if n == 0 {
		m.teardownCmd()
		return
	}
	c.rbuf.Commit(n)

	for c.rbuf.HasFullPdu() {
		cmd, err := c.rbuf.TakePdu()
		if err != nil {
			logging.Errorf("conn: malformed pdu: %v", err)
			if m.metrics != nil {
				m.metrics.RecordMalformedPdu()
			}
			m.teardownCmd()
			return
		}
		m.handlePdu(cmd)
	}

	if c.rbuf.IsFull() {
		logging.Errorf("conn: buffer too small for declared pdu length %d", c.rbuf.DeclaredLen())
		m.teardownCmd()
	}
}

func (m *Manager) handlePdu(cmd *pdu.PDU) {
	resp, err := m.table.Dispatch(cmd)
	if err != nil {
		if m.metrics != nil && errors.Is(err, pdu.ErrMalformed) {
			m.metrics.RecordMalformedPdu()
		}
		logging.Warnf("conn: dispatch service 0x%02x opcode 0x%02x: %v", cmd.Service, cmd.Opcode, err)
		m.SendToCmd(pdu.ErrorReply(cmd.Service, dispatchErrorStatus(err)))
		return
	}
	if resp != nil {
		m.SendToCmd(resp)
	}
}

// SendToCmd queues p for delivery on the command/response socket.
func (m *Manager) SendToCmd(p *pdu.PDU) {
	m.send(m.cmdConn, m.cmdFd, pdu.NewWriteBuffer(p))
}

// SendToNtf queues p for delivery on the notification socket.
func (m *Manager) SendToNtf(p *pdu.PDU) {
	if m.metrics != nil && m.ntfConn != nil {
		m.metrics.RecordNotificationSent()
	}
	m.send(m.ntfConn, m.ntfFd, pdu.NewWriteBuffer(p))
}

// SendFDToCmd queues p for delivery on the command socket with fd attached
// via SCM_RIGHTS on its first send, used by BT-Sock's LISTEN/CONNECT
// replies.
func (m *Manager) SendFDToCmd(p *pdu.PDU, fd int) {
	if m.metrics != nil && m.cmdConn != nil {
		m.metrics.RecordFdSent()
	}
	m.send(m.cmdConn, m.cmdFd, pdu.NewWriteBuffer(p).WithFD(fd))
}

func (m *Manager) send(c *connection, fd int, wb *pdu.WriteBuffer) {
	if c == nil {
		logging.Warn("conn: send with no connection established, dropping pdu")
		return
	}
	wasEmpty := c.sendQ.Empty()
	c.sendQ.Push(wb)
	if wasEmpty {
		m.drain(c, fd)
	}
}

func (m *Manager) flushCmd() {
	if m.cmdConn != nil {
		m.drain(m.cmdConn, m.cmdFd)
	}
}

func (m *Manager) drain(c *connection, fd int) {
	baseInterest := uint32(unix.EPOLLERR)
	if c.readable {
		baseInterest |= unix.EPOLLIN
	}

	for {
		wb := c.sendQ.Front()
		if wb == nil {
			m.r.Register(fd, baseInterest, c.onEvent, nil)
			return
		}

		n, err := m.writeOne(fd, wb)
		if err != nil {
			if err == unix.EAGAIN {
				m.r.Register(fd, baseInterest|unix.EPOLLOUT, c.onEvent, nil)
				return
			}
			logging.Errorf("conn: sendmsg: %v", err)
			m.teardownForFd(fd)
			return
		}
		wb.Consumed(n)
		if wb.Done() {
			c.sendQ.Pop()
			wb.Release()
		} else {
			m.r.Register(fd, baseInterest|unix.EPOLLOUT, c.onEvent, nil)
			return
		}
	}
}

func (m *Manager) teardownForFd(fd int) {
	switch fd {
	case m.cmdFd:
		m.teardownCmd()
	case m.ntfFd:
		m.teardownNtf()
	}
}

func (m *Manager) writeOne(fd int, wb *pdu.WriteBuffer) (int, error) {
	data := wb.Pending()
	if !wb.HasFD {
		n, err := unix.Write(fd, data)
		return n, err
	}
	rights := unix.UnixRights(wb.FD)
	if err := unix.Sendmsg(fd, data, rights, nil, 0); err != nil {
		return 0, err
	}
	return len(data), nil
}

func dispatchErrorStatus(err error) uint8 {
	var se dispatch.StatusError
	if errors.As(err, &se) {
		return se.Status()
	}
	switch {
	case errors.Is(err, pdu.ErrMalformed):
		return dispatch.CodeStatus(dispatch.CodeMalformed)
	case errors.Is(err, dispatch.ErrUnsupported):
		return dispatch.CodeStatus(dispatch.CodeUnsupported)
	default:
		return dispatch.CodeStatus(dispatch.CodeIO)
	}
}
