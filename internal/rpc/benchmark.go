package rpc

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SplitURLs parses a comma separated node list, dropping blanks.
func SplitURLs(list string) []string {
	var out []string
	for _, u := range strings.Split(list, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Benchmark pings every url concurrently. Results keep the order of urls.
func Benchmark(ctx context.Context, urls []string) []Endpoint {
	results := make([]Endpoint, len(urls))
	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			results[i] = Ping(ctx, u)
			return nil
		})
	}
	g.Wait() //nolint:errcheck
	return results
}

// Select returns the node to use from urls. A single url is returned
// without probing.
func Select(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyNode
	case 1:
		return urls[0], nil
	}

	if algo == AlgorithmFailover {
		for _, u := range urls {
			if ep := Ping(ctx, u); ep.Healthy() {
				return u, nil
			}
		}
		return "", ErrNoHealthyNode
	}

	winner, err := Pick(Benchmark(ctx, urls), algo)
	if err != nil {
		return "", fmt.Errorf("%w (tried %d nodes)", err, len(urls))
	}
	return winner.URL, nil
}
