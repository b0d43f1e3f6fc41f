package rpc

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoHealthyNode is returned when no node answered.
var ErrNoHealthyNode = errors.New("no healthy node available")

// Algorithm defines how a node is chosen from several.
type Algorithm string

const (
	// AlgorithmFastest benchmarks every node and takes the best scoring one.
	AlgorithmFastest Algorithm = "fastest"
	// AlgorithmFailover takes the first node, in order, that answers.
	AlgorithmFailover Algorithm = "failover"

	// Nodes further than this many blocks behind the best are skipped.
	staleBlockThreshold = 3
)

// ParseAlgorithm validates an algorithm name. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmFailover:
		return a, nil
	}
	return "", fmt.Errorf("unknown node selection %q (want %q or %q)", s, AlgorithmFastest, AlgorithmFailover)
}

// Endpoint is one node with its measured attributes.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Healthy reports whether the last probe succeeded.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Pick selects an endpoint from probed results.
func Pick(endpoints []Endpoint, algo Algorithm) (*Endpoint, error) {
	if algo == AlgorithmFailover {
		for i := range endpoints {
			if endpoints[i].Healthy() {
				return &endpoints[i], nil
			}
		}
		return nil, ErrNoHealthyNode
	}

	var bestBlock uint64
	for _, e := range endpoints {
		if e.Healthy() && e.BlockNumber > bestBlock {
			bestBlock = e.BlockNumber
		}
	}

	var (
		winner    *Endpoint
		bestScore float64
	)
	for i := range endpoints {
		e := &endpoints[i]
		if !e.Healthy() || bestBlock-e.BlockNumber > staleBlockThreshold {
			continue
		}
		if s := score(e, bestBlock); winner == nil || s > bestScore {
			winner, bestScore = e, s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyNode
	}
	return winner, nil
}

// score favours low latency and loses a point per block behind the best.
func score(e *Endpoint, bestBlock uint64) float64 {
	var s float64
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else {
		s += 1000.0
	}
	return s + float64(10-(bestBlock-e.BlockNumber))
}
