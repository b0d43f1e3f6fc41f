package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/Mohsinsiddi/ethquery/internal/contract"
)

// RegistryAddress is the ENS registry, the same on mainnet and Sepolia.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// ErrNoRecord is returned when a name or address has no ENS record.
var ErrNoRecord = errors.New("no ENS record")

const resolverABI = `[
	{"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]}
]`

var ensABI = func() abi.ABI {
	parsed, err := contract.ParseABI([]byte(resolverABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	return !common.IsHexAddress(s) && strings.Contains(s, ".")
}

// Resolve returns the address record of name.
func Resolve(ctx context.Context, caller contract.Caller, name string) (common.Address, error) {
	node := Namehash(name)
	resolver, err := lookupResolver(ctx, caller, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}

	out, err := call(ctx, caller, resolver, "addr", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver: %w", err)
	}
	addr, _ := out[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s has no address", ErrNoRecord, name)
	}
	return addr, nil
}

// ReverseLookup returns the primary name of address via addr.reverse.
func ReverseLookup(ctx context.Context, caller contract.Caller, address common.Address) (string, error) {
	node := Namehash(strings.ToLower(strings.TrimPrefix(address.Hex(), "0x")) + ".addr.reverse")
	resolver, err := lookupResolver(ctx, caller, node)
	if err != nil {
		return "", fmt.Errorf("%s: %w", address.Hex(), err)
	}

	out, err := call(ctx, caller, resolver, "name", node)
	if err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	name, _ := out[0].(string)
	if name == "" {
		return "", fmt.Errorf("%w: %s has no reverse name", ErrNoRecord, address.Hex())
	}
	return name, nil
}

// Namehash implements EIP-137: namehash("") is 32 zero bytes and each label,
// right to left, is folded in as keccak256(node ++ keccak256(label)).
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		node = common.BytesToHash(keccak256(node.Bytes(), keccak256([]byte(labels[i]))))
	}
	return node
}

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

func lookupResolver(ctx context.Context, caller contract.Caller, node common.Hash) (common.Address, error) {
	out, err := call(ctx, caller, RegistryAddress, "resolver", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	resolver, _ := out[0].(common.Address)
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no resolver set", ErrNoRecord)
	}
	return resolver, nil
}

func call(ctx context.Context, caller contract.Caller, to common.Address, method string, node common.Hash) ([]any, error) {
	data, err := ensABI.Pack(method, node)
	if err != nil {
		return nil, err
	}
	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	out, err := ensABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decoding %s: empty result", method)
	}
	return out, nil
}
