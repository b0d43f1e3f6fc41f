package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the CoinGecko public API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrNoPrice is returned when a currency has no known or returned price.
var ErrNoPrice = errors.New("price not available")

// coinGeckoIDs maps native currency symbols to CoinGecko coin ids.
var coinGeckoIDs = map[string]string{
	"ETH":  "ethereum",
	"BNB":  "binancecoin",
	"POL":  "polygon-ecosystem-token",
	"AVAX": "avalanche-2",
	"XDAI": "xdai",
}

// Fetcher retrieves native token prices from CoinGecko.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	currency string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBaseURL points the fetcher at another CoinGecko compatible API.
func WithBaseURL(u string) Option {
	return func(f *Fetcher) { f.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher creates a fetcher quoting in currency, "usd" when empty.
func NewFetcher(currency string, opts ...Option) *Fetcher {
	if currency == "" {
		currency = "usd"
	}
	f := &Fetcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  DefaultBaseURL,
		currency: strings.ToLower(currency),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Currency returns the quote currency, lowercased.
func (f *Fetcher) Currency() string { return f.currency }

// Price returns the price of one unit of the native currency symbol.
func (f *Fetcher) Price(ctx context.Context, symbol string) (float64, error) {
	id, ok := coinGeckoIDs[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown currency %s", ErrNoPrice, symbol)
	}

	q := url.Values{"ids": {id}, "vs_currencies": {f.currency}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching price: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetching price: %s", resp.Status)
	}

	// {"ethereum":{"usd":1234.56}}
	var raw map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, fmt.Errorf("parsing price response: %w", err)
	}
	p, ok := raw[id][f.currency]
	if !ok {
		return 0, fmt.Errorf("%w: %s in %s", ErrNoPrice, symbol, f.currency)
	}
	return p, nil
}
