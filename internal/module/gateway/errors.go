package gateway

import "errors"

// Module errors.
var (
	ErrGatewayNotFound = errors.New("gateway not found")
)
