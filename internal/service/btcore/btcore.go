// Package btcore implements the BT-Core service: the adapter lifecycle,
// property, discovery, and bonding commands, plus DUT/LE test mode
// pass-throughs. It is the Go translation of bt-core.c and bt-core-io.c,
// generalized to call through the halapi.Adapter interface instead of a
// linked-in native module.
package btcore

import (
	"github.com/ehrlich-b/btbridged/internal/dispatch"
	"github.com/ehrlich-b/btbridged/internal/halapi"
	"github.com/ehrlich-b/btbridged/internal/pdu"
)

// Service implements dispatch.Handler for SERVICE_BT_CORE.
type Service struct {
	adapter halapi.Adapter
	ops     dispatch.OpcodeTable
}

// New builds the BT-Core service against adapter and binds every command
// opcode. Use Factory to wire this into a dispatch.Table's Register flow.
func New(adapter halapi.Adapter) *Service {
	s := &Service{adapter: adapter}
	s.ops.Bind(halapi.OpcodeEnable, s.enable)
	s.ops.Bind(halapi.OpcodeDisable, s.disable)
	s.ops.Bind(halapi.OpcodeGetAdapterProperties, s.getAdapterProperties)
	s.ops.Bind(halapi.OpcodeGetAdapterProperty, s.getAdapterProperty)
	s.ops.Bind(halapi.OpcodeSetAdapterProperty, s.setAdapterProperty)
	s.ops.Bind(halapi.OpcodeGetRemoteDeviceProperties, s.getRemoteDeviceProperties)
	s.ops.Bind(halapi.OpcodeGetRemoteDeviceProperty, s.getRemoteDeviceProperty)
	s.ops.Bind(halapi.OpcodeSetRemoteDeviceProperty, s.setRemoteDeviceProperty)
	s.ops.Bind(halapi.OpcodeGetRemoteServiceRecord, s.getRemoteServiceRecord)
	s.ops.Bind(halapi.OpcodeGetRemoteServices, s.getRemoteServices)
	s.ops.Bind(halapi.OpcodeStartDiscovery, s.startDiscovery)
	s.ops.Bind(halapi.OpcodeCancelDiscovery, s.cancelDiscovery)
	s.ops.Bind(halapi.OpcodeCreateBond, s.createBond)
	s.ops.Bind(halapi.OpcodeRemoveBond, s.removeBond)
	s.ops.Bind(halapi.OpcodeCancelBond, s.cancelBond)
	s.ops.Bind(halapi.OpcodePinReply, s.pinReply)
	s.ops.Bind(halapi.OpcodeSspReply, s.sspReply)
	s.ops.Bind(halapi.OpcodeDutModeConfigure, s.dutModeConfigure)
	s.ops.Bind(halapi.OpcodeDutModeSend, s.dutModeSend)
	s.ops.Bind(halapi.OpcodeLeTestMode, s.leTestMode)
	return s
}

// Factory adapts New to dispatch.Factory for registration via
// SERVICE_CORE's REGISTER_MODULE, mirroring register_bt_core.
func Factory(adapter halapi.Adapter) dispatch.Factory {
	return func(mode uint8, send func(*pdu.PDU)) (dispatch.Handler, dispatch.Unregister, error) {
		return New(adapter), nil, nil
	}
}

// Handle implements dispatch.Handler.
func (s *Service) Handle(cmd *pdu.PDU) (*pdu.PDU, error) {
	return s.ops.Dispatch(cmd)
}

func statusReply(cmd *pdu.PDU, status halapi.Status) (*pdu.PDU, error) {
	if !status.Ok() {
		return nil, dispatchStatusError{status}
	}
	return pdu.New(cmd.Service, cmd.Opcode), nil
}

// dispatchStatusError lets a handler surface a HAL status as the error the
// dispatch/conn layer reports back to the client as an error-reply PDU.
type dispatchStatusError struct{ status halapi.Status }

func (e dispatchStatusError) Error() string { return "btcore: " + e.status.String() }

// Status implements dispatch.StatusError so the connection manager's
// error-reply PDU carries the precise HAL status rather than a generic
// failure code.
func (e dispatchStatusError) Status() uint8 { return uint8(e.status) }

func (s *Service) enable(cmd *pdu.PDU) (*pdu.PDU, error) {
	return statusReply(cmd, s.adapter.Enable())
}

func (s *Service) disable(cmd *pdu.PDU) (*pdu.PDU, error) {
	return statusReply(cmd, s.adapter.Disable())
}

func (s *Service) getAdapterProperties(cmd *pdu.PDU) (*pdu.PDU, error) {
	return statusReply(cmd, s.adapter.GetAdapterProperties())
}

func (s *Service) getAdapterProperty(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	t := halapi.PropertyType(r.U8())
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.GetAdapterProperty(t))
}

func (s *Service) setAdapterProperty(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	p := r.Property()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.SetAdapterProperty(p))
}

func (s *Service) getRemoteDeviceProperties(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.GetRemoteDeviceProperties(addr))
}

func (s *Service) getRemoteDeviceProperty(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	t := halapi.PropertyType(r.U8())
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.GetRemoteDeviceProperty(addr, t))
}

func (s *Service) setRemoteDeviceProperty(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	p := r.Property()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.SetRemoteDeviceProperty(addr, p))
}

func (s *Service) getRemoteServiceRecord(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	uuid := r.Uuid()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.GetRemoteServiceRecord(addr, uuid))
}

func (s *Service) getRemoteServices(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.GetRemoteServices(addr))
}

func (s *Service) startDiscovery(cmd *pdu.PDU) (*pdu.PDU, error) {
	return statusReply(cmd, s.adapter.StartDiscovery())
}

func (s *Service) cancelDiscovery(cmd *pdu.PDU) (*pdu.PDU, error) {
	return statusReply(cmd, s.adapter.CancelDiscovery())
}

func (s *Service) createBond(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.CreateBond(addr))
}

func (s *Service) removeBond(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.RemoveBond(addr))
}

func (s *Service) cancelBond(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.CancelBond(addr))
}

func (s *Service) pinReply(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	accept := r.U8()
	pin := r.PinCode()
	pinLen := r.U8()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.PinReply(addr, accept != 0, pin, pinLen))
}

func (s *Service) sspReply(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	addr := r.BdAddr()
	variant := halapi.SspVariant(r.U8())
	accept := r.U8()
	passkey := r.U32()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.SspReply(addr, variant, accept != 0, passkey))
}

func (s *Service) dutModeConfigure(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	enable := r.U8()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.DutModeConfigure(enable != 0))
}

func (s *Service) dutModeSend(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	opcode := r.U16()
	length := r.U8()
	data := r.Bytes(int(length))
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.DutModeSend(opcode, data))
}

func (s *Service) leTestMode(cmd *pdu.PDU) (*pdu.PDU, error) {
	r := pdu.NewReader(cmd, 0)
	opcode := r.U16()
	length := r.U8()
	data := r.Bytes(int(length))
	if r.Err() != nil {
		return nil, r.Err()
	}
	return statusReply(cmd, s.adapter.LeTestMode(opcode, data))
}
