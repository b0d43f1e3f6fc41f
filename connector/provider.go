package connector

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Provider is a JSON-RPC capable handle to the chain the wallet is on.
type Provider interface {
	Request(ctx context.Context, result any, method string, params ...any) error

	// Accounts lists authorized accounts without prompting (eth_accounts).
	Accounts(ctx context.Context) ([]string, error)
	// RequestAccounts asks the wallet for authorization (eth_requestAccounts).
	RequestAccounts(ctx context.Context) ([]string, error)
	// ChainID returns the network identity. It is cheap enough to be used as
	// a liveness probe.
	ChainID(ctx context.Context) (*big.Int, error)

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// Destroy releases the provider. Later requests fail with ErrProviderDestroyed.
	Destroy()
}

// HostProvider adapts a Host into a Provider.
type HostProvider struct {
	host      Host
	destroyed atomic.Bool
}

// NewHostProvider wraps h.
func NewHostProvider(h Host) *HostProvider {
	return &HostProvider{host: h}
}

func (p *HostProvider) Request(ctx context.Context, result any, method string, params ...any) error {
	if p.destroyed.Load() {
		return ErrProviderDestroyed
	}
	return p.host.Request(ctx, result, method, params...)
}

func (p *HostProvider) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.Request(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *HostProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.Request(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *HostProvider) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := p.Request(ctx, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return (*big.Int)(&id), nil
}

func (p *HostProvider) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var bal hexutil.Big
	if err := p.Request(ctx, &bal, "eth_getBalance", account, blockArg(blockNumber)); err != nil {
		return nil, err
	}
	return (*big.Int)(&bal), nil
}

func (p *HostProvider) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out hexutil.Bytes
	if err := p.Request(ctx, &out, "eth_call", callArg(msg), blockArg(blockNumber)); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *HostProvider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var r *types.Receipt
	if err := p.Request(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (p *HostProvider) Destroy() {
	p.destroyed.Store(true)
}

func (p *HostProvider) String() string {
	return fmt.Sprintf("HostProvider(destroyed=%t)", p.destroyed.Load())
}

func blockArg(n *big.Int) string {
	if n == nil {
		return "latest"
	}
	return hexutil.EncodeBig(n)
}

func callArg(msg ethereum.CallMsg) map[string]any {
	arg := map[string]any{}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From
	}
	if msg.To != nil {
		arg["to"] = msg.To
	}
	if len(msg.Data) > 0 {
		arg["input"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	if msg.GasPrice != nil {
		arg["gasPrice"] = (*hexutil.Big)(msg.GasPrice)
	}
	return arg
}
