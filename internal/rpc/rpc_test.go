package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nodeServer answers eth_blockNumber with blockNum after delay.
func nodeServer(t *testing.T, blockNum uint64, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x%x"}`, req.ID, blockNum)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const deadNode = "http://127.0.0.1:19994"

func TestPingHealthy(t *testing.T) {
	srv := nodeServer(t, 1000, 0)

	ep := Ping(context.Background(), srv.URL)
	require.NoError(t, ep.Err)
	assert.True(t, ep.Healthy())
	assert.Equal(t, srv.URL, ep.URL)
	assert.Equal(t, uint64(1000), ep.BlockNumber)
	assert.Positive(t, ep.Latency)
}

func TestPingUnreachable(t *testing.T) {
	ep := Ping(context.Background(), deadNode)
	assert.False(t, ep.Healthy())
}

func TestBenchmarkKeepsOrder(t *testing.T) {
	a := nodeServer(t, 10, 0)
	b := nodeServer(t, 20, 0)

	results := Benchmark(context.Background(), []string{a.URL, deadNode, b.URL})
	require.Len(t, results, 3)
	assert.Equal(t, uint64(10), results[0].BlockNumber)
	assert.False(t, results[1].Healthy())
	assert.Equal(t, uint64(20), results[2].BlockNumber)
}

func TestSplitURLs(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, SplitURLs(" http://a ,, http://b,"))
	assert.Nil(t, SplitURLs(""))
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmFastest, a)

	a, err = ParseAlgorithm("failover")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmFailover, a)

	_, err = ParseAlgorithm("round-robin")
	assert.Error(t, err)
}

func TestPickFastestPrefersLowLatency(t *testing.T) {
	eps := []Endpoint{
		{URL: "slow", Latency: 400 * time.Millisecond, BlockNumber: 100},
		{URL: "fast", Latency: 20 * time.Millisecond, BlockNumber: 100},
	}
	winner, err := Pick(eps, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, "fast", winner.URL)
}

func TestPickFastestSkipsStaleNodes(t *testing.T) {
	eps := []Endpoint{
		{URL: "stale-but-fast", Latency: time.Millisecond, BlockNumber: 90},
		{URL: "synced", Latency: 300 * time.Millisecond, BlockNumber: 100},
	}
	winner, err := Pick(eps, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, "synced", winner.URL)
}

func TestPickSkipsFailedNodes(t *testing.T) {
	eps := []Endpoint{
		{URL: "down", Err: errors.New("refused")},
		{URL: "up", Latency: 50 * time.Millisecond, BlockNumber: 5},
	}
	for _, algo := range []Algorithm{AlgorithmFastest, AlgorithmFailover} {
		winner, err := Pick(eps, algo)
		require.NoError(t, err, algo)
		assert.Equal(t, "up", winner.URL, algo)
	}
}

func TestPickNothingHealthy(t *testing.T) {
	eps := []Endpoint{{URL: "down", Err: errors.New("refused")}}
	_, err := Pick(eps, AlgorithmFastest)
	assert.ErrorIs(t, err, ErrNoHealthyNode)
	_, err = Pick(nil, AlgorithmFailover)
	assert.ErrorIs(t, err, ErrNoHealthyNode)
}

func TestSelectSingleURLSkipsProbe(t *testing.T) {
	u, err := Select(context.Background(), []string{deadNode}, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, deadNode, u)
}

func TestSelectEmpty(t *testing.T) {
	_, err := Select(context.Background(), nil, AlgorithmFastest)
	assert.ErrorIs(t, err, ErrNoHealthyNode)
}

func TestSelectFailoverInOrder(t *testing.T) {
	first := nodeServer(t, 1, 50*time.Millisecond)
	second := nodeServer(t, 1, 0)

	u, err := Select(context.Background(), []string{deadNode, first.URL, second.URL}, AlgorithmFailover)
	require.NoError(t, err)
	assert.Equal(t, first.URL, u)
}

func TestSelectFastest(t *testing.T) {
	slow := nodeServer(t, 7, 200*time.Millisecond)
	fast := nodeServer(t, 7, 0)

	u, err := Select(context.Background(), []string{slow.URL, deadNode, fast.URL}, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, fast.URL, u)
}
