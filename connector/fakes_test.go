package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// rpcError satisfies rpc.Error.
type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return fmt.Sprintf("%s (%d)", e.msg, e.code) }
func (e *rpcError) ErrorCode() int { return e.code }

// fakeHost is an in-memory EIP-1193 wallet.
type fakeHost struct {
	mu       sync.Mutex
	accounts []string
	chainID  string
	errs     map[string]error
	calls    []string

	nextID   ListenerID
	handlers map[string]map[ListenerID]Handler

	dispatching             bool
	removedWhileDispatching bool
}

func newFakeHost(chainID string, accounts ...string) *fakeHost {
	return &fakeHost{
		accounts: accounts,
		chainID:  chainID,
		errs:     map[string]error{},
		handlers: map[string]map[ListenerID]Handler{},
	}
}

func (h *fakeHost) Request(_ context.Context, result any, method string, _ ...any) error {
	h.mu.Lock()
	h.calls = append(h.calls, method)
	err := h.errs[method]
	accounts := append([]string{}, h.accounts...)
	chainID := h.chainID
	h.mu.Unlock()

	if err != nil {
		return err
	}

	var v any
	switch method {
	case "eth_accounts", "eth_requestAccounts":
		v = accounts
	case "eth_chainId":
		v = chainID
	case "wallet_revokePermissions":
		v = nil
	default:
		return &rpcError{code: CodeMethodNotFound, msg: "method not found"}
	}
	if result == nil {
		return nil
	}
	b, _ := json.Marshal(v)
	return json.Unmarshal(b, result)
}

func (h *fakeHost) On(event string, fn Handler) ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	if h.handlers[event] == nil {
		h.handlers[event] = map[ListenerID]Handler{}
	}
	h.handlers[event][h.nextID] = fn
	return h.nextID
}

func (h *fakeHost) RemoveListener(event string, id ListenerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dispatching {
		h.removedWhileDispatching = true
	}
	delete(h.handlers[event], id)
}

func (h *fakeHost) listenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.handlers {
		n += len(m)
	}
	return n
}

func (h *fakeHost) called(method string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.calls {
		if c == method {
			return true
		}
	}
	return false
}

func (h *fakeHost) emit(event string, payload any) {
	b, _ := json.Marshal(payload)

	h.mu.Lock()
	var fns []Handler
	for _, fn := range h.handlers[event] {
		fns = append(fns, fn)
	}
	h.dispatching = true
	h.mu.Unlock()

	for _, fn := range fns {
		fn(b)
	}

	h.mu.Lock()
	h.dispatching = false
	h.mu.Unlock()
}

// recordingSink captures relayed events.
type recordingSink struct {
	mu           sync.Mutex
	accounts     [][]string
	chains       []any
	disconnected int
}

func (s *recordingSink) AccountsChanged(a []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
}

func (s *recordingSink) ChainChanged(id any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains = append(s.chains, id)
}

func (s *recordingSink) Disconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected++
}

// manualScheduler queues deferred tasks until Run.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *manualScheduler) Defer(task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
}

func (s *manualScheduler) Run() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, t := range tasks {
		t()
	}
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// memFlags is an in-memory FlagStore.
type memFlags struct {
	mu    sync.Mutex
	flags map[string]bool
}

func (m *memFlags) ConnectedFlag(id string) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.flags[id]
	return v, ok
}

func (m *memFlags) SetConnectedFlag(id string, connected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flags == nil {
		m.flags = map[string]bool{}
	}
	m.flags[id] = connected
	return nil
}
