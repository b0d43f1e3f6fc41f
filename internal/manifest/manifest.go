// Package manifest imports deployment manifests into the contract registry.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mohsinsiddi/ethquery/internal/chain"
	"github.com/Mohsinsiddi/ethquery/internal/contract"
)

// maxBody caps manifest and ABI downloads.
const maxBody = 8 << 20

// Manifest lists deployments as contracts[name][chain], where chain is a
// registry name or a numeric chain id.
type Manifest struct {
	Contracts map[string]map[string]Entry `json:"contracts"`
}

// Entry is one deployment. The ABI comes from ABI, Builtin or ABIURL, in
// that order of preference.
type Entry struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi,omitempty"`
	Builtin string          `json:"builtin,omitempty"`
	ABIURL  string          `json:"abi_url,omitempty"`
}

// Result summarises an import.
type Result struct {
	Imported []string // "name@chainID"
	Skipped  []string // "name on chain: reason"
}

// Importer loads manifests into a contract registry.
type Importer struct {
	reg    *contract.Registry
	chains *chain.Registry
	client *http.Client
	log    zerolog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithHTTPClient replaces the client used for remote manifests and ABIs.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Importer) { i.client = c }
}

// WithLogger sets the logger for skipped entries.
func WithLogger(l zerolog.Logger) Option {
	return func(i *Importer) { i.log = l }
}

// New creates an Importer writing into reg.
func New(reg *contract.Registry, opts ...Option) *Importer {
	i := &Importer{
		reg:    reg,
		chains: chain.NewRegistry(),
		client: &http.Client{Timeout: 15 * time.Second},
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Import reads the manifest at source, an http(s) URL or a file path, adds
// every usable entry to the registry and saves it. Entries that fail are
// reported in Result.Skipped rather than aborting the import.
func (i *Importer) Import(ctx context.Context, source string) (*Result, error) {
	data, err := i.read(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := i.reg.Load(); err != nil {
		return nil, err
	}

	res := &Result{}
	for name, deployments := range m.Contracts {
		for chainRef, d := range deployments {
			key, err := i.add(ctx, name, chainRef, d)
			if err != nil {
				i.log.Warn().Err(err).Str("contract", name).Str("chain", chainRef).Msg("skipping manifest entry")
				res.Skipped = append(res.Skipped, fmt.Sprintf("%s on %s: %v", name, chainRef, err))
				continue
			}
			res.Imported = append(res.Imported, key)
		}
	}
	slices.Sort(res.Imported)
	slices.Sort(res.Skipped)

	if len(res.Imported) > 0 {
		if err := i.reg.Save(); err != nil {
			return nil, fmt.Errorf("saving contracts: %w", err)
		}
	}
	return res, nil
}

func (i *Importer) add(ctx context.Context, name, chainRef string, d Entry) (string, error) {
	chainID, err := i.chains.ResolveID(chainRef)
	if err != nil {
		return "", err
	}
	e := &contract.Entry{Name: name, ChainID: chainID, Address: d.Address}
	switch {
	case len(d.ABI) > 0:
		e.ABI = d.ABI
	case d.Builtin != "":
		e.Builtin = d.Builtin
	case d.ABIURL != "":
		if e.ABI, err = i.read(ctx, d.ABIURL); err != nil {
			return "", fmt.Errorf("fetching ABI: %w", err)
		}
	default:
		return "", fmt.Errorf("no abi, builtin or abi_url")
	}
	if err := i.reg.Add(e); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%d", e.Name, chainID), nil
}

func (i *Importer) read(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", source, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}
