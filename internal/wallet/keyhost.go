package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// RPCError is a wallet error with an EIP-1193 code. It satisfies rpc.Error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string  { return e.Message }
func (e *RPCError) ErrorCode() int { return e.Code }

var (
	errRejected     = &RPCError{Code: connector.CodeUserRejected, Message: "user rejected the request"}
	errUnauthorized = &RPCError{Code: connector.CodeUnauthorized, Message: "account not authorized"}
)

// Approver asks the user whether to expose the account. A non-nil error
// rejects the request.
type Approver func(ctx context.Context, account common.Address) error

// KeyHost is a wallet Host backed by a local private key. Signing happens
// in process; chain reads and broadcasts go to a node.
type KeyHost struct {
	key     *ecdsa.PrivateKey
	address common.Address
	node    *ethclient.Client
	approve Approver
	log     zerolog.Logger
	events  connector.Emitter

	mu         sync.Mutex
	authorized bool
	chainID    *big.Int
}

// KeyHostOption configures a KeyHost.
type KeyHostOption func(*KeyHost)

// WithApprover installs the connection prompt. Without one every
// eth_requestAccounts is approved.
func WithApprover(a Approver) KeyHostOption {
	return func(h *KeyHost) { h.approve = a }
}

// WithKeyHostLogger sets the host logger.
func WithKeyHostLogger(l zerolog.Logger) KeyHostOption {
	return func(h *KeyHost) { h.log = l }
}

// WithAuthorized starts the host with the account already exposed, as a
// wallet restores a previously granted permission.
func WithAuthorized(on bool) KeyHostOption {
	return func(h *KeyHost) { h.authorized = on }
}

// NewKeyHost creates a host for key talking to node.
func NewKeyHost(key *ecdsa.PrivateKey, node *ethclient.Client, opts ...KeyHostOption) *KeyHost {
	h := &KeyHost{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		node:    node,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Address returns the account the host signs for.
func (h *KeyHost) Address() common.Address {
	return h.address
}

func (h *KeyHost) On(event string, fn connector.Handler) connector.ListenerID {
	return h.events.On(event, fn)
}

func (h *KeyHost) RemoveListener(event string, id connector.ListenerID) {
	h.events.RemoveListener(event, id)
}

// Request serves the wallet methods locally and forwards everything else
// to the node.
func (h *KeyHost) Request(ctx context.Context, result any, method string, params ...any) error {
	args, err := rawParams(params)
	if err != nil {
		return err
	}

	switch method {
	case "eth_accounts":
		return respond(result, h.accounts())
	case "eth_requestAccounts":
		if err := h.requestAccounts(ctx); err != nil {
			return err
		}
		return respond(result, h.accounts())
	case "eth_chainId":
		id, err := h.chain(ctx)
		if err != nil {
			return err
		}
		return respond(result, (*hexutil.Big)(id))
	case "personal_sign":
		sig, err := h.personalSign(args)
		if err != nil {
			return err
		}
		return respond(result, hexutil.Bytes(sig))
	case "eth_sendTransaction":
		hash, err := h.sendTransaction(ctx, args)
		if err != nil {
			return err
		}
		return respond(result, hash)
	case "wallet_revokePermissions":
		h.Lock()
		return respond(result, nil)
	case "wallet_switchEthereumChain", "wallet_addEthereumChain":
		return &RPCError{Code: connector.CodeUnsupported, Message: method + " is not supported by a keystore wallet"}
	default:
		return h.node.Client().CallContext(ctx, result, method, params...)
	}
}

// Lock withdraws the account, as a browser wallet does when it locks.
func (h *KeyHost) Lock() {
	h.mu.Lock()
	was := h.authorized
	h.authorized = false
	h.mu.Unlock()

	if was {
		h.log.Debug().Msg("account locked")
		h.events.EmitJSON(connector.EventAccountsChanged, []string{}) //nolint:errcheck
	}
}

// Close notifies listeners and closes the node connection.
func (h *KeyHost) Close() {
	h.events.EmitJSON(connector.EventDisconnect, map[string]any{ //nolint:errcheck
		"code":    connector.CodeDisconnected,
		"message": "wallet closed",
	})
	h.node.Close()
}

func (h *KeyHost) accounts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.authorized {
		return []string{}
	}
	return []string{h.address.Hex()}
}

func (h *KeyHost) isAuthorized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authorized
}

func (h *KeyHost) requestAccounts(ctx context.Context) error {
	if h.isAuthorized() {
		return nil
	}
	if h.approve != nil {
		if err := h.approve(ctx, h.address); err != nil {
			h.log.Debug().Err(err).Msg("connection rejected")
			return errRejected
		}
	}
	h.mu.Lock()
	h.authorized = true
	h.mu.Unlock()
	h.log.Debug().Str("account", h.address.Hex()).Msg("account exposed")
	return nil
}

func (h *KeyHost) chain(ctx context.Context) (*big.Int, error) {
	h.mu.Lock()
	id := h.chainID
	h.mu.Unlock()
	if id != nil {
		return id, nil
	}

	id, err := h.node.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain id: %w", err)
	}
	h.mu.Lock()
	h.chainID = id
	h.mu.Unlock()
	return id, nil
}

// personalSign takes [message, address]; the message is hex data or plain text.
func (h *KeyHost) personalSign(args []json.RawMessage) ([]byte, error) {
	if len(args) < 2 {
		return nil, &RPCError{Code: -32602, Message: "personal_sign expects message and address"}
	}
	var addr common.Address
	if err := json.Unmarshal(args[1], &addr); err != nil {
		return nil, &RPCError{Code: -32602, Message: "invalid address: " + err.Error()}
	}
	if err := h.checkSender(addr); err != nil {
		return nil, err
	}

	var text string
	if err := json.Unmarshal(args[0], &text); err != nil {
		return nil, &RPCError{Code: -32602, Message: "invalid message: " + err.Error()}
	}
	msg := []byte(text)
	if strings.HasPrefix(text, "0x") {
		if b, err := hexutil.Decode(text); err == nil {
			msg = b
		}
	}
	return SignMessage(h.key, msg)
}

type txArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
	Gas   *hexutil.Uint64 `json:"gas"`
}

func (a txArgs) data() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

func (h *KeyHost) sendTransaction(ctx context.Context, args []json.RawMessage) (common.Hash, error) {
	if len(args) < 1 {
		return common.Hash{}, &RPCError{Code: -32602, Message: "eth_sendTransaction expects a transaction"}
	}
	var tx txArgs
	if err := json.Unmarshal(args[0], &tx); err != nil {
		return common.Hash{}, &RPCError{Code: -32602, Message: "invalid transaction: " + err.Error()}
	}
	from := h.address
	if tx.From != nil {
		from = *tx.From
	}
	if err := h.checkSender(from); err != nil {
		return common.Hash{}, err
	}

	chainID, err := h.chain(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := h.node.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("reading nonce: %w", err)
	}

	value := new(big.Int)
	if tx.Value != nil {
		value = tx.Value.ToInt()
	}

	var gas uint64
	if tx.Gas != nil {
		gas = uint64(*tx.Gas)
	} else {
		gas, err = h.node.EstimateGas(ctx, ethereum.CallMsg{From: from, To: tx.To, Value: value, Data: tx.data()})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimating gas: %w", err)
		}
	}

	tip, err := h.node.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggesting tip: %w", err)
	}
	price, err := h.node.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggesting gas price: %w", err)
	}
	// Leave room for the base fee to double before the tx is priced out.
	feeCap := new(big.Int).Mul(price, big.NewInt(2))
	if feeCap.Cmp(tip) < 0 {
		feeCap = new(big.Int).Set(tip)
	}

	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        tx.To,
		Value:     value,
		Data:      tx.data(),
	})
	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(chainID), h.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}
	if err := h.node.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcasting transaction: %w", err)
	}

	h.log.Info().Str("hash", signed.Hash().Hex()).Uint64("nonce", nonce).Msg("transaction sent")
	return signed.Hash(), nil
}

func (h *KeyHost) checkSender(addr common.Address) error {
	if !h.isAuthorized() {
		return errUnauthorized
	}
	if addr != h.address {
		return &RPCError{Code: connector.CodeUnauthorized, Message: fmt.Sprintf("unknown account %s", addr.Hex())}
	}
	return nil
}

// rawParams re-encodes Go params to JSON so local methods decode them the
// same way a remote wallet would.
func rawParams(params []any) ([]json.RawMessage, error) {
	if len(params) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding params: %w", err)
	}
	var out []json.RawMessage
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func respond(result, v any) error {
	if result == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, result); err != nil {
		return errors.Join(errors.New("decoding wallet result"), err)
	}
	return nil
}
