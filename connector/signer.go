package connector

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Signer is an authorized account behind a Provider.
type Signer struct {
	provider Provider
	address  common.Address
}

// TxRequest is a transaction for the wallet to fill in, sign and broadcast.
type TxRequest struct {
	To    *common.Address
	Value *big.Int
	Data  []byte
	Gas   uint64
}

// NewSigner derives a signer for account from p.
func NewSigner(p Provider, account string) (*Signer, error) {
	if p == nil {
		return nil, ErrProviderUnavailable
	}
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid signer address %q", account)
	}
	return &Signer{provider: p, address: common.HexToAddress(account)}, nil
}

// Address returns the signing account.
func (s *Signer) Address() common.Address {
	return s.address
}

// Provider returns the provider the signer sends requests through.
func (s *Signer) Provider() Provider {
	return s.provider
}

// SignMessage signs msg with personal_sign (EIP-191) and returns the 65-byte signature.
func (s *Signer) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	var sig hexutil.Bytes
	if err := s.provider.Request(ctx, &sig, "personal_sign", hexutil.Bytes(msg), s.address); err != nil {
		return nil, fmt.Errorf("personal_sign: %w", err)
	}
	return sig, nil
}

// SendTransaction asks the wallet to sign and broadcast tx, returning its hash.
func (s *Signer) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	arg := map[string]any{"from": s.address}
	if tx.To != nil {
		arg["to"] = tx.To
	}
	if tx.Value != nil {
		arg["value"] = (*hexutil.Big)(tx.Value)
	}
	if len(tx.Data) > 0 {
		arg["data"] = hexutil.Bytes(tx.Data)
	}
	if tx.Gas != 0 {
		arg["gas"] = hexutil.Uint64(tx.Gas)
	}

	var hash common.Hash
	if err := s.provider.Request(ctx, &hash, "eth_sendTransaction", arg); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendTransaction: %w", err)
	}
	return hash, nil
}
