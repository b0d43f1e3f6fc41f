package price

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTransport struct {
	body string
	code int
	err  error
}

func (ft *fixedTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	if ft.err != nil {
		return nil, ft.err
	}
	return &http.Response{
		StatusCode: ft.code,
		Status:     http.StatusText(ft.code),
		Body:       io.NopCloser(strings.NewReader(ft.body)),
		Header:     make(http.Header),
	}, nil
}

func newMockFetcher(body string, code int) *Fetcher {
	return NewFetcher("usd", WithHTTPClient(&http.Client{Transport: &fixedTransport{body: body, code: code}}))
}

func TestNewFetcherCurrency(t *testing.T) {
	assert.Equal(t, "usd", NewFetcher("").Currency())
	assert.Equal(t, "eur", NewFetcher("EUR").Currency())
}

func TestPrice(t *testing.T) {
	f := newMockFetcher(`{"ethereum":{"usd":3000.50}}`, http.StatusOK)

	p, err := f.Price(context.Background(), "eth")
	require.NoError(t, err)
	assert.InDelta(t, 3000.50, p, 0.001)
}

func TestPriceRequestShape(t *testing.T) {
	var gotPath, gotIDs, gotVs string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIDs = r.URL.Query().Get("ids")
		gotVs = r.URL.Query().Get("vs_currencies")
		io.WriteString(w, `{"binancecoin":{"eur":512}}`) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewFetcher("eur", WithBaseURL(srv.URL+"/"))
	p, err := f.Price(context.Background(), "BNB")
	require.NoError(t, err)
	assert.InDelta(t, 512, p, 0.001)
	assert.Equal(t, "/simple/price", gotPath)
	assert.Equal(t, "binancecoin", gotIDs)
	assert.Equal(t, "eur", gotVs)
}

func TestPriceUnknownCurrency(t *testing.T) {
	_, err := newMockFetcher(`{}`, http.StatusOK).Price(context.Background(), "DOGE")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestPriceMissingFromResponse(t *testing.T) {
	_, err := newMockFetcher(`{"ethereum":{}}`, http.StatusOK).Price(context.Background(), "ETH")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestPriceHTTPError(t *testing.T) {
	_, err := newMockFetcher(`rate limited`, http.StatusTooManyRequests).Price(context.Background(), "ETH")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching price")
}

func TestPriceBadJSON(t *testing.T) {
	_, err := newMockFetcher(`not json`, http.StatusOK).Price(context.Background(), "ETH")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing price response")
}

func TestPriceTransportError(t *testing.T) {
	f := NewFetcher("usd", WithHTTPClient(&http.Client{Transport: &fixedTransport{err: errors.New("offline")}}))
	_, err := f.Price(context.Background(), "ETH")
	assert.ErrorContains(t, err, "offline")
}
