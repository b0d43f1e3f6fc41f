package client

import "github.com/Mohsinsiddi/ethquery/connector"

// Status is the connection status of a Client.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	// StatusReconnecting is reserved for automatic reconnects; nothing
	// produces it yet. Treat it like StatusConnecting.
	StatusReconnecting
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Pending reports whether a connection attempt is in progress.
func (s Status) Pending() bool {
	return s == StatusConnecting || s == StatusReconnecting
}

// State is the single source of truth for the connection. A State value is
// never modified after it has been published; every change yields a new one.
type State struct {
	Connector connector.Connector
	Data      *connector.Data
	Status    Status
	// IsInitialized flips once the initial probe for an existing connection
	// has finished, whatever its outcome.
	IsInitialized bool
}

// Account returns the connected account or "".
func (s State) Account() string {
	if s.Data == nil {
		return ""
	}
	return s.Data.Account
}

// ChainID returns the current chain id or 0.
func (s State) ChainID() int64 {
	if s.Data == nil {
		return 0
	}
	return s.Data.ChainID
}

// Provider returns the provider from the last snapshot, or nil.
func (s State) Provider() connector.Provider {
	if s.Data == nil {
		return nil
	}
	return s.Data.Provider
}

// Update is a state transition input for Reduce.
type Update interface {
	update()
}

type (
	// Connecting marks a connect attempt in progress.
	Connecting struct{}
	// Connected records a successful explicit connect.
	Connected struct {
		Connector connector.Connector
		Data      connector.Data
	}
	// Restored records a connection found by the initial probe.
	Restored struct {
		Connector connector.Connector
		Data      connector.Data
	}
	// Disconnected clears the connection.
	Disconnected struct{}
	// Initialized marks the initial probe as finished.
	Initialized struct{}
	// AccountsChanged records a wallet account switch.
	AccountsChanged struct {
		Connector connector.Connector
		Data      connector.Data
	}
	// ChainChanged records a wallet chain switch. It merges into the
	// current data (empty fields keep their value) and leaves Status alone.
	// With no active connector only the chain id is kept.
	ChainChanged struct {
		Connector connector.Connector
		Data      connector.Data
	}
)

func (Connecting) update()      {}
func (Connected) update()       {}
func (Restored) update()        {}
func (Disconnected) update()    {}
func (Initialized) update()     {}
func (AccountsChanged) update() {}
func (ChainChanged) update()    {}

// Reduce applies u to s and returns the resulting state. It is pure: s is
// not modified and Data is copied.
func Reduce(s State, u Update) State {
	switch u := u.(type) {
	case Connecting:
		s.Status = StatusConnecting
	case Connected:
		s = connectedState(s, u.Connector, u.Data)
	case Restored:
		s = connectedState(s, u.Connector, u.Data)
		s.IsInitialized = true
	case AccountsChanged:
		if foreign(s, u.Connector) {
			return s
		}
		s = connectedState(s, u.Connector, u.Data)
	case ChainChanged:
		if foreign(s, u.Connector) {
			return s
		}
		d := connector.Data{ChainID: u.Data.ChainID}
		if s.Connector != nil && s.Data != nil {
			d = *s.Data
			d.ChainID = u.Data.ChainID
			if u.Data.Account != "" {
				d.Account = u.Data.Account
			}
			if u.Data.Provider != nil {
				d.Provider = u.Data.Provider
			}
		}
		s.Data = &d
	case Disconnected:
		s.Connector, s.Data, s.Status = nil, nil, StatusDisconnected
	case Initialized:
		s.IsInitialized = true
	}
	return s
}

// connectedState keeps "connected implies an account" true: data without an
// account collapses to disconnected.
func connectedState(s State, c connector.Connector, d connector.Data) State {
	if !d.Connected() {
		return Reduce(s, Disconnected{})
	}
	s.Connector, s.Data, s.Status = c, &d, StatusConnected
	return s
}

// foreign reports whether c is not the active connector of s while another
// one is.
func foreign(s State, c connector.Connector) bool {
	return s.Connector != nil && s.Connector != c
}
