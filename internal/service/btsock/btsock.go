// Package btsock implements the BT-Sock service: LISTEN and CONNECT,
// which hand back a bound or connected socket fd over SCM_RIGHTS. It is
// the Go translation of bt-sock.c and bt-sock-io.c.
package btsock

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/btbridged/internal/dispatch"
	"github.com/ehrlich-b/btbridged/internal/halapi"
	"github.com/ehrlich-b/btbridged/internal/pdu"
)

// FDSender delivers a response PDU on the command socket with fd attached
// via ancillary data. The connection manager supplies this.
type FDSender func(p *pdu.PDU, fd int)

// Service implements dispatch.Handler for SERVICE_BT_SOCK.
type Service struct {
	sock   halapi.Sock
	sendFD FDSender
	ops    dispatch.OpcodeTable
}

// New builds the BT-Sock service against sock, sending LISTEN/CONNECT
// replies (with their attached fd) through sendFD rather than the normal
// response path, since those two opcodes never return a plain payload.
func New(sock halapi.Sock, sendFD FDSender) *Service {
	s := &Service{sock: sock, sendFD: sendFD}
	s.ops.Bind(halapi.OpcodeListen, s.listen)
	s.ops.Bind(halapi.OpcodeConnect, s.connect)
	return s
}

// Factory adapts New to dispatch.Factory for registration through
// SERVICE_CORE's REGISTER_MODULE, mirroring register_bt_sock.
func Factory(sock halapi.Sock, sendFD FDSender) dispatch.Factory {
	return func(mode uint8, send func(*pdu.PDU)) (dispatch.Handler, dispatch.Unregister, error) {
		return New(sock, sendFD), nil, nil
	}
}

// Handle implements dispatch.Handler. LISTEN and CONNECT ship their own
// reply via sendFD and return (nil, nil) on success so the dispatch layer
// does not also send a bodyless response.
func (s *Service) Handle(cmd *pdu.PDU) (*pdu.PDU, error) {
	return s.ops.Dispatch(cmd)
}

type statusError struct{ status halapi.Status }

func (e statusError) Error() string { return "btsock: " + e.status.String() }
func (e statusError) Status() uint8 { return uint8(e.status) }

func (s *Service) listen(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	t := halapi.SockType(r.U8())
	serviceName := r.Bytes(256)
	uuid := r.Uuid()
	channel := r.U16()
	flags := r.U8()
	if r.Err() != nil {
		return nil, r.Err()
	}

	fd, status := s.sock.Listen(t, cString(serviceName), uuid, channel, flags)
	if !status.Ok() {
		if fd >= 0 {
			unix.Close(fd)
		}
		return nil, statusError{status}
	}

	s.sendFD(pdu.New(cmd.Service, cmd.Opcode), fd)
	return nil, nil
}

func (s *Service) connect(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	t := halapi.SockType(r.U8())
	uuid := r.Uuid()
	channel := r.U16()
	flags := r.U8()
	if r.Err() != nil {
		return nil, r.Err()
	}

	fd, status := s.sock.Connect(addr, t, uuid, channel, flags)
	if !status.Ok() {
		if fd >= 0 {
			unix.Close(fd)
		}
		return nil, statusError{status}
	}

	s.sendFD(pdu.New(cmd.Service, cmd.Opcode), fd)
	return nil, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
