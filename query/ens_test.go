package query_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/query"
)

func TestResolveAddressPassesHexThrough(t *testing.T) {
	c := newClient(t, newWalletHost(t, false))

	addr, err := query.ResolveAddress(context.Background(), c, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, addr)
}

func TestResolveAddressRejectsGarbage(t *testing.T) {
	c := newClient(t, newWalletHost(t, true))

	_, err := query.ResolveAddress(context.Background(), c, "not-an-address")
	assert.ErrorIs(t, err, query.ErrInvalidAddress)
}

func TestResolveAddressNeedsProvider(t *testing.T) {
	c := newClient(t, newWalletHost(t, false))

	_, err := query.ResolveAddress(context.Background(), c, "vitalik.eth")
	assert.ErrorIs(t, err, connector.ErrProviderUnavailable)
}

func TestResolveAddressThroughWallet(t *testing.T) {
	h := newWalletHost(t, true)
	// Registry and resolver both answer with this word, so the resolver
	// lookup and the addr record resolve to the same address.
	h.callResult = common.LeftPadBytes(common.HexToAddress(tokenAddr).Bytes(), 32)
	c := newClient(t, h)

	addr, err := query.ResolveAddress(context.Background(), c, "usdc.eth")
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, addr)
	assert.True(t, h.called("eth_call"))
}
