package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/ethquery/client"
	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/internal/chain"
)

// DefaultPollInterval is how often WatchBalance refetches when no interval is given.
const DefaultPollInterval = 4 * time.Second

// ErrInvalidAddress is returned for an empty or malformed address.
var ErrInvalidAddress = errors.New("invalid address")

// Balance returns the balance of address in wei, or in ether when format is set.
func Balance(ctx context.Context, c *client.Client, address string, format bool) (string, error) {
	p := Provider(c)
	if p == nil {
		return "", connector.ErrProviderUnavailable
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	wei, err := p.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return "", fmt.Errorf("fetching balance: %w", err)
	}
	if format {
		return chain.WeiToETH(wei), nil
	}
	return wei.String(), nil
}

// WatchBalance fetches the balance immediately and then every interval,
// passing each result to fn, until ctx ends. It returns ctx.Err().
func WatchBalance(ctx context.Context, c *client.Client, address string, format bool, interval time.Duration, fn func(balance string, err error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(Balance(ctx, c, address, format))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
