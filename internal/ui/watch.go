package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/ethquery/internal/chain"
	"github.com/Mohsinsiddi/ethquery/query"
)

// AccountMsg carries a new account view from a client subscription.
type AccountMsg query.AccountData

// BalanceMsg carries the latest balance poll result.
type BalanceMsg struct {
	Value string
	Err   error
	At    time.Time
}

// EventMsg appends a line to the event log, e.g. "accounts changed".
type EventMsg string

// WatchModel is the Bubble Tea model for the live connection view.
type WatchModel struct {
	Connector string
	Chains    *chain.Registry
	// Disconnect is run when the user presses d.
	Disconnect func() tea.Msg

	Account  query.AccountData
	Balance  BalanceMsg
	Events   []string
	Frame    int
	Quitting bool
}

const maxEvents = 8

type watchTickMsg struct{}

func watchSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m WatchModel) Init() tea.Cmd { return watchSpinTick() }

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "d":
			if m.Disconnect != nil && m.Account.IsConnected {
				return m, m.Disconnect
			}
		}

	case watchTickMsg:
		m.Frame = (m.Frame + 1) % len(spinnerFrames)
		return m, watchSpinTick()

	case AccountMsg:
		prev := m.Account
		m.Account = query.AccountData(msg)
		if line := describeChange(prev, m.Account); line != "" {
			m = m.log(line)
		}

	case BalanceMsg:
		m.Balance = msg

	case EventMsg:
		m = m.log(string(msg))
	}
	return m, nil
}

func (m WatchModel) log(line string) WatchModel {
	stamped := time.Now().Format(time.TimeOnly) + "  " + line
	m.Events = append([]string{stamped}, m.Events...)
	if len(m.Events) > maxEvents {
		m.Events = m.Events[:maxEvents]
	}
	return m
}

func describeChange(prev, next query.AccountData) string {
	switch {
	case !prev.IsConnected && next.IsConnected:
		return "connected " + next.Address
	case prev.IsConnected && next.IsDisconnected:
		return "disconnected"
	case next.IsConnected && prev.Address != next.Address:
		return "account changed to " + next.Address
	case next.IsConnected && prev.ChainID != next.ChainID:
		return fmt.Sprintf("chain changed to %d", next.ChainID)
	}
	return ""
}

func (m WatchModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("👁  Wallet · "+m.Connector) + "\n")

	a := m.Account
	status := "disconnected"
	switch {
	case a.IsConnected:
		status = "connected"
	case a.IsConnecting:
		status = "connecting"
	}
	if !a.IsInitialized {
		sb.WriteString(StyleInfo.Render(spinnerFrames[m.Frame]+" checking for an existing connection…") + "\n")
	} else {
		sb.WriteString(padR(Meta("status:"), 10) + Status(status) + "\n")
	}

	if a.IsConnected {
		chainName := fmt.Sprint(a.ChainID)
		symbol := "ETH"
		if m.Chains != nil {
			chainName = m.Chains.Describe(a.ChainID)
			symbol, _ = m.Chains.Currency(a.ChainID)
		}
		sb.WriteString(padR(Meta("account:"), 10) + Addr(a.Address) + "\n")
		sb.WriteString(padR(Meta("chain:"), 10) + ChainName(chainName) + "\n")

		switch {
		case m.Balance.Err != nil:
			sb.WriteString(padR(Meta("balance:"), 10) + Err(m.Balance.Err.Error()) + "\n")
		case m.Balance.Value != "":
			sb.WriteString(padR(Meta("balance:"), 10) + Val(m.Balance.Value) + " " + Meta(symbol) +
				Meta("  @ "+m.Balance.At.Format(time.TimeOnly)) + "\n")
		default:
			sb.WriteString(padR(Meta("balance:"), 10) + Meta(spinnerFrames[m.Frame]+" fetching…") + "\n")
		}
	}

	sb.WriteString("\n" + StyleHeader.Render("Events") + "\n")
	if len(m.Events) == 0 {
		sb.WriteString(Meta("  waiting for wallet events…") + "\n")
	}
	for _, e := range m.Events {
		sb.WriteString("  " + Meta(e) + "\n")
	}

	sb.WriteString("\n" + Meta("[ d ] disconnect   [ q ] quit") + "\n")
	return sb.String()
}
