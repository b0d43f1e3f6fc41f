package chain

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Chain holds display metadata for a single EVM network.
type Chain struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	ChainID        int64  `json:"chain_id"`
	NativeCurrency string `json:"native_currency"`
	Decimals       int    `json:"decimals"`
	Explorer       string `json:"explorer"`
	Testnet        bool   `json:"testnet"`
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry returns the registry of known networks, sorted by chain id.
func NewRegistry() *Registry {
	chains := allChains()
	slices.SortFunc(chains, func(a, b Chain) int { return cmp.Compare(a.ChainID, b.ChainID) })
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a chain by its slug name (e.g. "base", "sepolia").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrChainNotFound, name)
	}
	return c, nil
}

// GetByChainID finds a chain by its numeric chain id.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrChainNotFound, id)
	}
	return c, nil
}

// ResolveID accepts a chain name from the registry or a positive numeric id.
// Unknown numeric ids are accepted as is.
func (r *Registry) ResolveID(s string) (int64, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id <= 0 {
			return 0, fmt.Errorf("%w: invalid chain id %d", ErrChainNotFound, id)
		}
		return id, nil
	}
	c, err := r.GetByName(s)
	if err != nil {
		return 0, err
	}
	return c.ChainID, nil
}

// Describe returns "Display Name (id)" for known chains and "chain id" otherwise.
func (r *Registry) Describe(id int64) string {
	if c, err := r.GetByChainID(id); err == nil {
		return fmt.Sprintf("%s (%d)", c.DisplayName, id)
	}
	return fmt.Sprintf("chain %d", id)
}

// Currency returns the native currency symbol and decimals for id,
// defaulting to ETH/18 for unknown chains.
func (r *Registry) Currency(id int64) (symbol string, decimals int) {
	if c, err := r.GetByChainID(id); err == nil {
		return c.NativeCurrency, c.Decimals
	}
	return "ETH", 18
}

// TxURL returns the explorer link for a transaction, or "" without an explorer.
func (c *Chain) TxURL(hash string) string {
	if c.Explorer == "" {
		return ""
	}
	return c.Explorer + "/tx/" + hash
}

// AddressURL returns the explorer link for an address, or "" without an explorer.
func (c *Chain) AddressURL(addr string) string {
	if c.Explorer == "" {
		return ""
	}
	return c.Explorer + "/address/" + addr
}

// --- chain data ---

func allChains() []Chain {
	return []Chain{
		{Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://etherscan.io"},
		{Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://sepolia.etherscan.io", Testnet: true},
		{Name: "holesky", DisplayName: "Holesky", ChainID: 17000, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://holesky.etherscan.io", Testnet: true},
		{Name: "optimism", DisplayName: "Optimism", ChainID: 10, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://optimistic.etherscan.io"},
		{Name: "bnb", DisplayName: "BNB Chain", ChainID: 56, NativeCurrency: "BNB", Decimals: 18, Explorer: "https://bscscan.com"},
		{Name: "gnosis", DisplayName: "Gnosis", ChainID: 100, NativeCurrency: "xDAI", Decimals: 18, Explorer: "https://gnosisscan.io"},
		{Name: "polygon", DisplayName: "Polygon", ChainID: 137, NativeCurrency: "POL", Decimals: 18, Explorer: "https://polygonscan.com"},
		{Name: "amoy", DisplayName: "Polygon Amoy", ChainID: 80002, NativeCurrency: "POL", Decimals: 18, Explorer: "https://amoy.polygonscan.com", Testnet: true},
		{Name: "base", DisplayName: "Base", ChainID: 8453, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://basescan.org"},
		{Name: "base-sepolia", DisplayName: "Base Sepolia", ChainID: 84532, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://sepolia.basescan.org", Testnet: true},
		{Name: "arbitrum", DisplayName: "Arbitrum", ChainID: 42161, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://arbiscan.io"},
		{Name: "avalanche", DisplayName: "Avalanche", ChainID: 43114, NativeCurrency: "AVAX", Decimals: 18, Explorer: "https://snowtrace.io"},
		{Name: "linea", DisplayName: "Linea", ChainID: 59144, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://lineascan.build"},
		{Name: "scroll", DisplayName: "Scroll", ChainID: 534352, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://scrollscan.com"},
		{Name: "zksync", DisplayName: "zkSync Era", ChainID: 324, NativeCurrency: "ETH", Decimals: 18, Explorer: "https://explorer.zksync.io"},
		{Name: "anvil", DisplayName: "Local (Anvil/Hardhat)", ChainID: 31337, NativeCurrency: "ETH", Decimals: 18, Testnet: true},
		{Name: "geth-dev", DisplayName: "Local (geth --dev)", ChainID: 1337, NativeCurrency: "ETH", Decimals: 18, Testnet: true},
	}
}
