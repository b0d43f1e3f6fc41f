package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Mohsinsiddi/ethquery/connector"
)

type stubProvider struct {
	connector.Provider
	name string
}

// stubConnector is a scriptable connector.
type stubConnector struct {
	id       string
	provider connector.Provider

	mu          sync.Mutex
	connected   bool
	account     string
	chainID     int64
	connectData connector.Data
	connectErr  error
	sink        connector.EventSink

	connectGate chan struct{}
	probeGate   chan struct{}
	probing     chan struct{} // closed when IsConnected starts waiting on probeGate
	disconnects atomic.Int32
}

func newStub(id string) *stubConnector {
	p := &stubProvider{name: id + "-provider"}
	return &stubConnector{
		id:          id,
		provider:    p,
		account:     "0xABC",
		chainID:     137,
		connectData: connector.Data{Account: "0xABC", ChainID: 137, Provider: p},
	}
}

func (s *stubConnector) ID() string   { return s.id }
func (s *stubConnector) Name() string { return "Stub " + s.id }

func (s *stubConnector) Connect(ctx context.Context) (connector.Data, error) {
	if s.connectGate != nil {
		select {
		case <-s.connectGate:
		case <-ctx.Done():
			return connector.Data{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return connector.Data{}, s.connectErr
	}
	s.connected = true
	return s.connectData, nil
}

func (s *stubConnector) Disconnect(context.Context) error {
	s.disconnects.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *stubConnector) Provider(context.Context) (connector.Provider, error) {
	return s.provider, nil
}

func (s *stubConnector) IsConnected(context.Context) (bool, error) {
	if s.probeGate != nil {
		if s.probing != nil {
			close(s.probing)
		}
		<-s.probeGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected, nil
}

func (s *stubConnector) Account(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, nil
}

func (s *stubConnector) ChainID(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainID, nil
}

func (s *stubConnector) SetEventSink(sink connector.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

func (s *stubConnector) events() connector.EventSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return connector.NopSink{}
	}
	return s.sink
}

// recorder collects every published state.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) listen(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.states))
	for i, s := range r.states {
		out[i] = s.Status
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
