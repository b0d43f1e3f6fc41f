package query_test

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ethquery/client"
	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/internal/wallet"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var txHash = common.HexToHash("0x5e1d3a76fbf824220eafc8c79ad578ad2b67d01b0c2425eb1f1347e8f50882ab")

// walletHost is an in-memory EIP-1193 wallet that signs with a fixed key.
type walletHost struct {
	connector.Emitter

	key  *ecdsa.PrivateKey
	addr common.Address

	mu           sync.Mutex
	authorized   bool
	balance      *big.Int
	callResult   []byte
	calls        []string
	sent         []map[string]any
	pendingPolls int
}

func newWalletHost(t *testing.T, authorized bool) *walletHost {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return &walletHost{
		key:          key,
		addr:         crypto.PubkeyToAddress(key.PublicKey),
		authorized:   authorized,
		balance:      big.NewInt(0),
		pendingPolls: 1,
	}
}

func (h *walletHost) Request(_ context.Context, result any, method string, params ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, method)

	var v any
	switch method {
	case "eth_accounts":
		v = []string{}
		if h.authorized {
			v = []string{h.addr.Hex()}
		}
	case "eth_requestAccounts":
		h.authorized = true
		v = []string{h.addr.Hex()}
	case "eth_chainId":
		v = "0x1"
	case "eth_getBalance":
		v = (*hexutil.Big)(h.balance)
	case "eth_call":
		v = hexutil.Bytes(h.callResult)
	case "personal_sign":
		sig, err := wallet.SignMessage(h.key, params[0].(hexutil.Bytes))
		if err != nil {
			return err
		}
		v = hexutil.Bytes(sig)
	case "eth_sendTransaction":
		h.sent = append(h.sent, params[0].(map[string]any))
		v = txHash
	case "eth_getTransactionReceipt":
		if h.pendingPolls > 0 {
			h.pendingPolls--
			v = nil
			break
		}
		v = &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      params[0].(common.Hash),
			BlockNumber: big.NewInt(12),
			Logs:        []*types.Log{},
		}
	case "wallet_revokePermissions":
		h.authorized = false
	default:
		return fmt.Errorf("unsupported method %s", method)
	}

	if result == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, result)
}

func (h *walletHost) called(method string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.calls {
		if m == method {
			return true
		}
	}
	return false
}

// newClient builds a client over h and waits for its initial probe.
func newClient(t *testing.T, h *walletHost) *client.Client {
	t.Helper()
	inj := connector.NewInjected(connector.StaticHost(h))
	c := client.New([]connector.Connector{inj})
	select {
	case <-c.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("client never initialized")
	}
	return c
}
