package halapi

// ServiceBtCore is the service ID bound to the BT-Core command set.
const ServiceBtCore = 0x01

// ServiceBtSock is the service ID bound to the BT-Sock command set.
const ServiceBtSock = 0x02

// BT-Core command/response opcodes, taken from the adapter interface's
// method table in order.
const (
	OpcodeEnable                     = 0x01
	OpcodeDisable                     = 0x02
	OpcodeGetAdapterProperties        = 0x03
	OpcodeGetAdapterProperty          = 0x04
	OpcodeSetAdapterProperty          = 0x05
	OpcodeGetRemoteDeviceProperties   = 0x06
	OpcodeGetRemoteDeviceProperty     = 0x07
	OpcodeSetRemoteDeviceProperty     = 0x08
	OpcodeGetRemoteServiceRecord      = 0x09
	OpcodeGetRemoteServices           = 0x0a
	OpcodeStartDiscovery              = 0x0b
	OpcodeCancelDiscovery             = 0x0c
	OpcodeCreateBond                  = 0x0d
	OpcodeRemoveBond                  = 0x0e
	OpcodeCancelBond                  = 0x0f
	OpcodePinReply                    = 0x10
	OpcodeSspReply                    = 0x11
	OpcodeDutModeConfigure            = 0x12
	OpcodeDutModeSend                 = 0x13
	OpcodeLeTestMode                  = 0x14
)

// BT-Core notification opcodes.
const (
	OpcodeAdapterStateChangedNtf      = 0x81
	OpcodeAdapterPropertiesChangedNtf = 0x82
	OpcodeRemoteDevicePropertiesNtf   = 0x83
	OpcodeDeviceFoundNtf              = 0x84
	OpcodeDiscoveryStateChangedNtf    = 0x85
	OpcodePinRequestNtf               = 0x86
	OpcodeSspRequestNtf               = 0x87
	OpcodeBondStateChangedNtf         = 0x88
	OpcodeAclStateChangedNtf          = 0x89
	OpcodeDutModeReceiveNtf           = 0x8a
	OpcodeLeTestModeNtf               = 0x8b
)

// BT-Sock command/response opcodes.
const (
	OpcodeListen  = 0x01
	OpcodeConnect = 0x02
)
