package client

import (
	"context"

	"github.com/Mohsinsiddi/ethquery/connector"
)

// sink turns wallet events from one connector into state transitions.
type sink struct {
	c    *Client
	conn connector.Connector
}

func (s *sink) AccountsChanged(accounts []string) {
	log := s.c.log.With().Str("connector", s.conn.ID()).Logger()
	if s.inactive() {
		log.Debug().Msg("ignoring accounts change from inactive connector")
		return
	}
	log.Debug().Strs("accounts", accounts).Msg("accounts changed")

	ctx, cancel := context.WithTimeout(s.c.baseCtx, eventTimeout)
	defer cancel()

	if len(accounts) == 0 {
		s.c.disconnect(ctx, 0, s.conn)
		return
	}

	provider, err := s.conn.Provider(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("refreshing provider")
	}
	chainID, err := s.conn.ChainID(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("refreshing chain id")
	}

	s.c.apply(AccountsChanged{
		Connector: s.conn,
		Data:      connector.Data{Account: accounts[0], ChainID: chainID, Provider: provider},
	})
}

func (s *sink) ChainChanged(raw any) {
	log := s.c.log.With().Str("connector", s.conn.ID()).Logger()
	if s.inactive() {
		log.Debug().Msg("ignoring chain change from inactive connector")
		return
	}

	chainID, err := connector.ParseChainID(raw)
	if err != nil {
		log.Warn().Err(err).Interface("chain_id", raw).Msg("ignoring chain change")
		return
	}
	log.Debug().Int64("chain_id", chainID).Msg("chain changed")

	ctx, cancel := context.WithTimeout(s.c.baseCtx, eventTimeout)
	defer cancel()

	provider, err := s.conn.Provider(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("refreshing provider")
	}
	account, err := s.conn.Account(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("refreshing account")
	}

	s.c.apply(ChainChanged{
		Connector: s.conn,
		Data:      connector.Data{Account: account, ChainID: chainID, Provider: provider},
	})
}

func (s *sink) Disconnected() {
	s.c.log.Debug().Str("connector", s.conn.ID()).Msg("disconnect event")

	ctx, cancel := context.WithTimeout(s.c.baseCtx, eventTimeout)
	defer cancel()
	s.c.disconnect(ctx, 0, s.conn)
}

// inactive reports whether another connector has taken over since this sink
// was installed.
func (s *sink) inactive() bool {
	return foreign(s.c.State(), s.conn)
}
