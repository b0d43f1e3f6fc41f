package query

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/ethquery/client"
	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/internal/ens"
)

// ResolveAddress returns s as a checksummed address, resolving ENS names
// through the connected provider.
func ResolveAddress(ctx context.Context, c *client.Client, s string) (string, error) {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s).Hex(), nil
	}
	if !ens.IsName(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	p := Provider(c)
	if p == nil {
		return "", connector.ErrProviderUnavailable
	}
	addr, err := ens.Resolve(ctx, p, s)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// LookupName returns the primary ENS name of address, if it has one.
func LookupName(ctx context.Context, c *client.Client, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	p := Provider(c)
	if p == nil {
		return "", connector.ErrProviderUnavailable
	}
	return ens.ReverseLookup(ctx, p, common.HexToAddress(address))
}
