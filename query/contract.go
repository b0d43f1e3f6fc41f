package query

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/ethquery/client"
	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/internal/contract"
)

// ContractCall names a function on a deployed contract.
type ContractCall struct {
	Address string
	ABI     abi.ABI
	Method  string
	Args    []string
	// Value is wei attached to a payable write.
	Value *big.Int
	// PollInterval is how often WriteContract polls for the receipt.
	PollInterval time.Duration
}

// ReadContract calls a view or pure function through the current provider.
func ReadContract(ctx context.Context, c *client.Client, call ContractCall) ([]any, error) {
	p := Provider(c)
	if p == nil {
		return nil, connector.ErrProviderUnavailable
	}
	k, err := contract.New(call.Address, call.ABI)
	if err != nil {
		return nil, err
	}

	var from common.Address
	if acct := c.State().Account(); common.IsHexAddress(acct) {
		from = common.HexToAddress(acct)
	}
	return k.Read(ctx, p, from, call.Method, call.Args...)
}

// WriteContract sends a state-changing call from the connected account and
// waits for it to be mined.
func WriteContract(ctx context.Context, c *client.Client, call ContractCall) (*types.Receipt, error) {
	signer, err := Signer(c)
	if err != nil {
		return nil, err
	}
	k, err := contract.New(call.Address, call.ABI)
	if err != nil {
		return nil, err
	}

	hash, err := k.Write(ctx, signer, call.Value, call.Method, call.Args...)
	if err != nil {
		return nil, err
	}
	return contract.WaitMined(ctx, signer.Provider(), hash, call.PollInterval)
}
