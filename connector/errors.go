package connector

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected     = 4001
	CodeUnauthorized     = 4100
	CodeUnsupported      = 4200
	CodeDisconnected     = 4900
	CodeChainDisconnect  = 4901
	CodeMethodNotFound   = -32601
	codeUnknownWalletErr = -1
)

var (
	// ErrConnectorNotFound is returned when a requested connector id is not configured.
	ErrConnectorNotFound = errors.New("connector not found")
	// ErrProviderUnavailable is returned when no host wallet could be reached.
	ErrProviderUnavailable = errors.New("no provider available")
	// ErrProviderDestroyed is returned by a provider after Destroy.
	ErrProviderDestroyed = errors.New("provider destroyed")
)

// ConnectionError is a wallet-level failure during a prompting connect,
// e.g. the user rejecting the request.
type ConnectionError struct {
	Code    int
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("connection failed (code %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("connection failed (code %d): %s", e.Code, e.Message)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UserRejected reports whether the user declined the request in the wallet.
func (e *ConnectionError) UserRejected() bool {
	return e.Code == CodeUserRejected
}

// wrapConnectionError converts a wallet error into a *ConnectionError,
// keeping the JSON-RPC error code when the wallet supplied one.
func wrapConnectionError(err error) error {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return err
	}
	code := codeUnknownWalletErr
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		code = rpcErr.ErrorCode()
	}
	return &ConnectionError{Code: code, Message: err.Error(), Err: err}
}

// isUnsupported reports whether err says the wallet does not implement a method.
func isUnsupported(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case CodeUnsupported, CodeMethodNotFound:
			return true
		}
	}
	return false
}
