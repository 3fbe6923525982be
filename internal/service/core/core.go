// Package core implements the Core service, the one service permanently
// bound at SERVICE_CORE and responsible for registering and unregistering
// every other service. It is the Go translation of core.c and core-io.c.
package core

import (
	"github.com/ehrlich-b/btbridged/internal/dispatch"
	"github.com/ehrlich-b/btbridged/internal/halapi"
	"github.com/ehrlich-b/btbridged/internal/pdu"
)

const (
	opcodeRegisterModule   = 0x01
	opcodeUnregisterModule = 0x02
)

// Service wraps a dispatch.Table and exposes the REGISTER_MODULE and
// UNREGISTER_MODULE opcodes as its own handler, installed at SERVICE_CORE.
type Service struct {
	table *dispatch.Table
	ops   dispatch.OpcodeTable
}

// New builds the core service and binds its opcode handlers. The returned
// Service still needs table.BindCore(svc) to take effect.
func New(table *dispatch.Table) *Service {
	s := &Service{table: table}
	s.ops.Bind(opcodeRegisterModule, s.registerModule)
	s.ops.Bind(opcodeUnregisterModule, s.unregisterModule)
	return s
}

// Handle implements dispatch.Handler.
func (s *Service) Handle(cmd *pdu.PDU) (*pdu.PDU, error) {
	return s.ops.Dispatch(cmd)
}

func (s *Service) registerModule(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	service := r.U8()
	mode := r.U8()
	if r.Err() != nil {
		return nil, r.Err()
	}

	if err := s.table.Register(service, mode); err != nil {
		return nil, err
	}

	return pdu.New(cmd.Service, cmd.Opcode), nil
}

func (s *Service) unregisterModule(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	service := r.U8()
	if r.Err() != nil {
		return nil, r.Err()
	}

	if err := s.table.Unregister(service); err != nil {
		return nil, err
	}

	return pdu.New(cmd.Service, cmd.Opcode), nil
}

// StatusForError maps any registration/unregistration error to the wire
// status code it is reported as, mirroring core_register_module and
// core_unregister_module, which both collapse every failure to
// BT_STATUS_FAIL rather than distinguishing causes on the wire.
func StatusForError(err error) halapi.Status {
	return halapi.StatusFail
}
