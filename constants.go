package btbridged

import "github.com/ehrlich-b/btbridged/internal/constants"

// Re-export a few sizing constants callers embedding the broker commonly
// need without reaching into internal/constants directly.
const (
	DefaultReadBufferPayload = constants.DefaultReadBufferPayload
	ListenBacklog            = constants.ListenBacklog
	CoreServiceID            = constants.CoreServiceID
)
