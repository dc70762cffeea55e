package network

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailed indicates the client could not connect to the node.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrAuthFailed indicates authentication (e.g., RPC credentials) was rejected.
	ErrAuthFailed = errors.New("network: authentication failed")

	// ErrTxNotFound indicates the requested transaction does not exist.
	ErrTxNotFound = errors.New("network: transaction not found")

	// ErrBlockNotFound indicates no main-chain block exists at the requested height.
	ErrBlockNotFound = errors.New("network: block not found")

	// ErrBroadcastRejected indicates the node rejected the broadcast transaction.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrInvalidResponse indicates the node returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")
)

// Node RPC error codes.
const (
	rpcInvalidAddressOrKey = -5
	rpcInvalidParameter    = -8
)

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("network: rpc error %d: %s", e.Code, e.Message)
}

func asRPCError(err error, target **RPCError) bool {
	return errors.As(err, target)
}
