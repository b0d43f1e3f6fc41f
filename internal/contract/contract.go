package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/ethquery/connector"
)

var (
	// ErrMethodNotFound is returned when the ABI has no function with the given name.
	ErrMethodNotFound = errors.New("method not found in ABI")
	// ErrNotReadFunction is returned when Read is asked to call a state-changing function.
	ErrNotReadFunction = errors.New("function is not a read operation")
	// ErrNotWriteFunction is returned when Write is asked to send a view or pure function.
	ErrNotWriteFunction = errors.New("function is not a write operation")
	// ErrNotPayable is returned when value is attached to a non-payable function.
	ErrNotPayable = errors.New("function is not payable")
	// ErrReverted is returned by WaitMined when the receipt reports failure.
	ErrReverted = errors.New("transaction reverted")
)

// Caller executes eth_call. connector.Provider satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
}

// Transactor submits transactions. *connector.Signer satisfies it.
type Transactor interface {
	SendTransaction(ctx context.Context, tx connector.TxRequest) (common.Hash, error)
}

// ReceiptSource looks up receipts. connector.Provider satisfies it.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Contract binds an ABI to a deployed address.
type Contract struct {
	Address common.Address
	ABI     abi.ABI
}

// New returns a Contract for the hex address.
func New(address string, parsed abi.ABI) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q is not an address", ErrInvalidArgument, address)
	}
	return &Contract{Address: common.HexToAddress(address), ABI: parsed}, nil
}

// Method looks up a function by name.
func (c *Contract) Method(name string) (abi.Method, error) {
	m, ok := c.ABI.Methods[name]
	if !ok {
		return abi.Method{}, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
	return m, nil
}

// IsRead reports whether m is view or pure.
func IsRead(m abi.Method) bool {
	return m.StateMutability == "view" || m.StateMutability == "pure" || m.Constant
}

// Pack resolves name and encodes its arguments as calldata.
func (c *Contract) Pack(name string, args []string) (abi.Method, []byte, error) {
	m, err := c.Method(name)
	if err != nil {
		return m, nil, err
	}
	values, err := ConvertArgs(m, args)
	if err != nil {
		return m, nil, err
	}
	data, err := c.ABI.Pack(name, values...)
	if err != nil {
		return m, nil, fmt.Errorf("encoding %s: %w", m.Sig, err)
	}
	return m, data, nil
}

// Read calls a view or pure function and decodes its outputs.
func (c *Contract) Read(ctx context.Context, caller Caller, from common.Address, name string, args ...string) ([]any, error) {
	m, err := c.Method(name)
	if err != nil {
		return nil, err
	}
	if !IsRead(m) {
		return nil, fmt.Errorf("%w: %s", ErrNotReadFunction, m.Sig)
	}
	_, data, err := c.Pack(name, args)
	if err != nil {
		return nil, err
	}

	out, err := caller.CallContract(ctx, ethereum.CallMsg{From: from, To: &c.Address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", m.Sig, err)
	}
	values, err := m.Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", m.Sig, err)
	}
	return values, nil
}

// Write sends a state-changing call and returns its transaction hash.
// value may be nil.
func (c *Contract) Write(ctx context.Context, tx Transactor, value *big.Int, name string, args ...string) (common.Hash, error) {
	m, err := c.Method(name)
	if err != nil {
		return common.Hash{}, err
	}
	if IsRead(m) {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrNotWriteFunction, m.Sig)
	}
	if value != nil && value.Sign() > 0 && !m.Payable {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrNotPayable, m.Sig)
	}
	_, data, err := c.Pack(name, args)
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := tx.SendTransaction(ctx, connector.TxRequest{To: &c.Address, Value: value, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("sending %s: %w", m.Sig, err)
	}
	return hash, nil
}

// WaitMined polls for the receipt of hash until it is mined or ctx ends.
// A failed receipt is returned together with ErrReverted.
func WaitMined(ctx context.Context, src ReceiptSource, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := src.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
			}
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
