// Package constants holds shared sizing and timing constants for the broker.
package constants

const (
	// MaxReactorFDs is the fixed capacity of the reactor's registration table.
	MaxReactorFDs = 64

	// DefaultReadBufferPayload is the default maximum PDU payload size a
	// read buffer will accept before declaring overflow.
	DefaultReadBufferPayload = 1024

	// PDUHeaderSize is the fixed {service, opcode, length} header size.
	PDUHeaderSize = 4

	// ListenBacklog is the backlog passed to listen(2) for the control socket.
	ListenBacklog = 16

	// ControlSocketName identifies the pre-bound listening socket handed to
	// the daemon by its environment.
	ControlSocketName = "bluetoothd"

	// CoreServiceID is permanently bound to the Core service.
	CoreServiceID = 0x00

	// NotificationOpcodeBit marks opcodes 0x80-0xFF as notifications.
	NotificationOpcodeBit = 0x80
)
