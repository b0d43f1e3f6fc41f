package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/internal/wallet"
)

const (
	testKeyHex  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
	usdcAddress = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

// resetFlags puts every flag back to its default so runs don't leak into
// each other through the package-level flag variables.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil) //nolint:errcheck
		} else {
			f.Value.Set(f.DefValue) //nolint:errcheck
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes ethq against the config dir with in-memory key storage.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	ks := keystores.get(dir)
	openKeystore = func(string) (wallet.KeystoreBackend, error) { return ks, nil }

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

// keystores keeps one in-memory keystore per config dir across runs.
var keystores = &keystoreSet{m: map[string]*wallet.InMemoryKeystore{}}

type keystoreSet struct {
	mu sync.Mutex
	m  map[string]*wallet.InMemoryKeystore
}

func (s *keystoreSet) get(dir string) *wallet.InMemoryKeystore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ks, ok := s.m[dir]; ok {
		return ks
	}
	ks := wallet.NewInMemoryKeystore()
	s.m[dir] = ks
	return ks
}

func readConfigFile(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

// walletServer is an EIP-1193 wallet reachable over HTTP JSON-RPC.
type walletServer struct {
	*httptest.Server

	mu         sync.Mutex
	authorized bool
	calls      []string
}

func newWalletServer(t *testing.T, authorized bool) *walletServer {
	t.Helper()
	ws := &walletServer{authorized: authorized}
	ws.Server = httptest.NewServer(http.HandlerFunc(ws.serve))
	t.Cleanup(ws.Close)
	return ws
}

func (ws *walletServer) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck

	ws.mu.Lock()
	ws.calls = append(ws.calls, req.Method)
	var result any
	switch req.Method {
	case "eth_accounts":
		result = []string{}
		if ws.authorized {
			result = []string{testAddress}
		}
	case "eth_requestAccounts":
		ws.authorized = true
		result = []string{testAddress}
	case "eth_chainId":
		result = "0x7a69"
	case "eth_getBalance":
		wei, _ := new(big.Int).SetString("1500000000000000000", 10)
		result = (*hexutil.Big)(wei)
	case "wallet_revokePermissions":
		ws.authorized = false
	}
	ws.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}
	if result == nil && req.Method != "wallet_revokePermissions" {
		delete(resp, "result")
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (ws *walletServer) called(method string) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, m := range ws.calls {
		if m == method {
			return true
		}
	}
	return false
}

func TestChains(t *testing.T) {
	out, err := run(t, t.TempDir(), "chains")
	require.NoError(t, err)
	assert.Contains(t, out, "base")
	assert.Contains(t, out, "8453")
	assert.Contains(t, out, "sepolia")
}

func TestConfigSetAndList(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "config", "set", "poll_interval", "2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, readConfigFile(t, dir)["poll_interval"])

	out, err := run(t, dir, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"poll_interval": 2`)
	assert.Contains(t, out, dir)
}

func TestConfigSetRejectsUnknownKey(t *testing.T) {
	_, err := run(t, t.TempDir(), "config", "set", "colour", "blue")
	assert.ErrorContains(t, err, "unknown key")
}

func TestConfigSetKeepsEnvOutOfFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ETHQ_HOST_URL", "ws://from-env:8546")

	_, err := run(t, dir, "config", "set", "watch_interval", "30")
	require.NoError(t, err)

	file := readConfigFile(t, dir)
	assert.Equal(t, "ws://127.0.0.1:8546", file["host_url"])
	assert.EqualValues(t, 30, file["watch_interval"])
}

func TestWalletLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "wallet", "add", "dev", "--key", testKeyHex)
	require.NoError(t, err)
	assert.Contains(t, out, testAddress)

	_, err = run(t, dir, "wallet", "add", "watcher", usdcAddress)
	require.NoError(t, err)

	out, err = run(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
	assert.Contains(t, out, "watcher")
	assert.Contains(t, out, "2 wallet(s)")

	_, err = run(t, dir, "wallet", "use", "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", readConfigFile(t, dir)["default_wallet"])

	// No -y and no answer on stdin: nothing is removed.
	out, err = run(t, dir, "wallet", "remove", "watcher")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	_, err = run(t, dir, "wallet", "remove", "watcher", "-y")
	require.NoError(t, err)
	out, err = run(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "watcher")
}

func TestWalletAddNeedsAddressOrKey(t *testing.T) {
	_, err := run(t, t.TempDir(), "wallet", "add", "lonely")
	assert.ErrorContains(t, err, "address required")
}

func TestWalletGenerate(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "wallet", "generate", "fresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Private key")

	_, err = run(t, dir, "wallet", "generate", "fresh")
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestVerify(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	sig, err := wallet.SignMessage(key, []byte("hello ethq"))
	require.NoError(t, err)
	dir := t.TempDir()

	out, err := run(t, dir, "verify", "hello ethq", "--sig", hexutil.Encode(sig), "--address", strings.ToLower(testAddress))
	require.NoError(t, err)
	assert.Contains(t, out, testAddress)
	assert.Contains(t, out, "signer matches")

	_, err = run(t, dir, "verify", "hello ethq", "--sig", hexutil.Encode(sig), "--address", usdcAddress)
	assert.ErrorContains(t, err, "mismatch")

	_, err = run(t, dir, "verify", "hello ethq", "--sig", "0xdead")
	assert.Error(t, err)
}

func TestContractAddListRemove(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "contract", "add", "usdc", usdcAddress)
	require.NoError(t, err)
	assert.Contains(t, out, "Ethereum (1)")

	_, err = run(t, dir, "contract", "add", "counter", testAddress,
		"--chain", "31337", "--sig", "function count() view returns (uint256)")
	require.NoError(t, err)

	out, err = run(t, dir, "contract", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "usdc")
	assert.Contains(t, out, "counter")
	assert.Contains(t, out, "builtin:erc20")
	assert.Contains(t, out, "2 contract(s)")

	_, err = run(t, dir, "contract", "remove", "usdc")
	require.NoError(t, err)
	_, err = run(t, dir, "contract", "remove", "counter")
	assert.Error(t, err, "counter lives on 31337, not the default chain")

	out, err = run(t, dir, "contract", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "usdc")
	assert.Contains(t, out, "1 contract(s)")
}

func TestContractAddRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "contract", "add", "x", "0x1234")
	assert.Error(t, err)
	_, err = run(t, dir, "contract", "add", "x", usdcAddress, "--chain", "atlantis")
	assert.ErrorContains(t, err, "chain not found")
	_, err = run(t, dir, "contract", "add", "x", usdcAddress, "--builtin", "erc20", "--sig", "function f()")
	assert.Error(t, err)
}

func TestContractAddFromArtifact(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Counter.json")
	require.NoError(t, os.WriteFile(artifact, []byte(`{"contractName":"Counter","abi":[
		{"type":"function","name":"count","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
	],"bytecode":"0x00"}`), 0o600))

	_, err := run(t, dir, "contract", "add", "counter", testAddress, "--abi", artifact, "--chain", "anvil")
	require.NoError(t, err)
	out, err := run(t, dir, "contract", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "custom (1)")
}

func TestContractImport(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "deployments.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"contracts":{
		"usdc": {"ethereum": {"address": "`+usdcAddress+`", "builtin": "erc20"},
		         "nowhere":  {"address": "`+usdcAddress+`", "builtin": "erc20"}}
	}}`), 0o600))

	out, err := run(t, dir, "contract", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "saved usdc@1")
	assert.Contains(t, out, "skipped usdc on nowhere")
	assert.Contains(t, out, "1 imported, 1 skipped")
}

func TestContractBuiltins(t *testing.T) {
	out, err := run(t, t.TempDir(), "contract", "builtins")
	require.NoError(t, err)
	assert.Contains(t, out, "erc20")
}

func TestInjectedSessionFlow(t *testing.T) {
	ws := newWalletServer(t, false)
	dir := t.TempDir()
	_, err := run(t, dir, "config", "set", "host_url", ws.URL)
	require.NoError(t, err)

	out, err := run(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "disconnected")
	assert.Contains(t, out, "ethq connect")

	out, err = run(t, dir, "connect", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected.")
	assert.Contains(t, out, testAddress)
	assert.Contains(t, out, "31337")

	out, err = run(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, testAddress)

	out, err = run(t, dir, "balance", "--wei")
	require.NoError(t, err)
	assert.Contains(t, out, "1500000000000000000")

	out, err = run(t, dir, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "1.5")

	out, err = run(t, dir, "disconnect")
	require.NoError(t, err)
	assert.Contains(t, out, "Disconnected.")
	assert.True(t, ws.called("wallet_revokePermissions"))

	out, err = run(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "disconnected")
}

func TestBalanceNeedsConnection(t *testing.T) {
	ws := newWalletServer(t, false)
	dir := t.TempDir()
	_, err := run(t, dir, "config", "set", "host_url", ws.URL)
	require.NoError(t, err)

	_, err = run(t, dir, "balance")
	assert.ErrorContains(t, err, "not connected")
}

func TestErrLine(t *testing.T) {
	rejected := &connector.ConnectionError{Code: connector.CodeUserRejected, Message: "User rejected the request."}
	assert.Contains(t, errLine(fmt.Errorf("connect: %w", rejected)), "request rejected in the wallet")
	assert.Contains(t, errLine(fmt.Errorf("boom")), "boom")
}

func TestResolveChainID(t *testing.T) {
	id, err := resolveChainID("polygon")
	require.NoError(t, err)
	assert.Equal(t, int64(137), id)

	id, err = resolveChainID("31337")
	require.NoError(t, err)
	assert.Equal(t, int64(31337), id)

	_, err = resolveChainID("")
	assert.Error(t, err)
}

func TestExtractABI(t *testing.T) {
	bare := `[{"type":"function","name":"f","inputs":[],"outputs":[]}]`
	assert.JSONEq(t, bare, string(extractABI([]byte(bare))))
	assert.JSONEq(t, bare, string(extractABI([]byte(`{"abi":`+bare+`,"bytecode":"0x"}`))))
}
