package transport

import "errors"

// Sentinel errors surfaced by ref discovery and the fetch negotiation.
var (
	ErrBranchNotFound  = errors.New("transport: branch not found on remote")
	ErrProtocolFraming = errors.New("transport: malformed protocol-v2 response")
	ErrNetwork         = errors.New("transport: network request failed")
)
