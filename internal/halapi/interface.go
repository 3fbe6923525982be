package halapi

// Adapter is the Go translation of the native Bluetooth HAL's adapter
// interface (bt_interface_t in the original header). A HAL adapter
// implementation delegates each method to the platform's loaded module.
// Every method is a thin pass-through: the broker never interprets the
// arguments or results, it only marshals them to and from PDUs.
type Adapter interface {
	Init(callbacks Callbacks) Status
	Enable() Status
	Disable() Status
	Cleanup()

	GetAdapterProperties() Status
	GetAdapterProperty(t PropertyType) Status
	SetAdapterProperty(p Property) Status

	GetRemoteDeviceProperties(addr BdAddr) Status
	GetRemoteDeviceProperty(addr BdAddr, t PropertyType) Status
	SetRemoteDeviceProperty(addr BdAddr, p Property) Status

	GetRemoteServiceRecord(addr BdAddr, uuid Uuid) Status
	GetRemoteServices(addr BdAddr) Status

	StartDiscovery() Status
	CancelDiscovery() Status

	CreateBond(addr BdAddr) Status
	RemoveBond(addr BdAddr) Status
	CancelBond(addr BdAddr) Status

	PinReply(addr BdAddr, accept bool, pin PinCode, pinLen uint8) Status
	SspReply(addr BdAddr, variant SspVariant, accept bool, passkey uint32) Status

	DutModeConfigure(enable bool) Status
	DutModeSend(opcode uint16, data []byte) Status
	LeTestMode(opcode uint16, data []byte) Status

	// Sock returns the socket sub-interface, analogous to
	// bt_core_get_profile_interface(BT_PROFILE_SOCKETS_ID) in the original.
	Sock() Sock
}

// Sock is the Go translation of btsock_interface_t.
type Sock interface {
	Listen(t SockType, serviceName string, uuid Uuid, channel uint16, flags uint8) (fd int, status Status)
	Connect(addr BdAddr, t SockType, uuid Uuid, channel uint16, flags uint8) (fd int, status Status)
}

// Callbacks receives asynchronous events from the native stack. The HAL
// adapter installs an implementation of Callbacks at Init time; the
// implementation MUST NOT touch sockets or dispatch tables directly (see
// the task-queue handoff in internal/hal) since these methods
// run on threads owned by the native stack.
type Callbacks interface {
	AdapterStateChanged(state uint8)
	AdapterPropertiesChanged(status Status, properties []Property)
	RemoteDeviceProperties(status Status, addr BdAddr, properties []Property)
	DeviceFound(properties []Property)
	DiscoveryStateChanged(state uint8)
	PinRequest(addr BdAddr, name BdName, classOfDevice uint32)
	SspRequest(addr BdAddr, name BdName, classOfDevice uint32, variant SspVariant, passkey uint32)
	BondStateChanged(status Status, addr BdAddr, state uint8)
	AclStateChanged(status Status, addr BdAddr, state uint8)
	DutModeRecv(opcode uint16, data []byte)
	LeTestModeRecv(status Status, numPackets uint16)
}
