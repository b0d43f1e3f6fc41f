package rpc

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// pingTimeout bounds a single health check.
const pingTimeout = 5 * time.Second

// Ping dials url and measures one eth_blockNumber round trip.
func Ping(ctx context.Context, url string) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ep := Endpoint{URL: url}
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		ep.Err = err
		return ep
	}
	defer c.Close()

	start := time.Now()
	block, err := c.BlockNumber(ctx)
	ep.Latency = time.Since(start)
	ep.BlockNumber = block
	ep.Err = err
	return ep
}
