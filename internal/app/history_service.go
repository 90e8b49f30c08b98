package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledhal/internal/arbiter"
	"github.com/dokzlo13/ledhal/internal/config"
	"github.com/dokzlo13/ledhal/internal/db"
	"github.com/dokzlo13/ledhal/internal/eventbus"
	"github.com/dokzlo13/ledhal/internal/ledger"
)

// HistoryService records applied light changes in the SQLite ledger.
// It is disabled when no database path is configured.
type HistoryService struct {
	cfg    *config.Config
	bus    *eventbus.Bus
	DB     *db.DB
	Ledger *ledger.Ledger
}

// NewHistoryService opens the database if one is configured.
func NewHistoryService(cfg *config.Config, bus *eventbus.Bus) (*HistoryService, error) {
	s := &HistoryService{cfg: cfg, bus: bus}
	if cfg.Database.Path == "" {
		return s, nil
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)
	return s, nil
}

// Enabled reports whether history is recorded.
func (s *HistoryService) Enabled() bool {
	return s.Ledger != nil
}

// Start prunes old history and subscribes to light changes.
func (s *HistoryService) Start() {
	if !s.Enabled() {
		log.Debug().Msg("Light history disabled")
		return
	}

	retention := time.Duration(s.cfg.Database.RetentionDays) * 24 * time.Hour
	if n, err := s.Ledger.DeleteOlderThan(retention); err != nil {
		log.Warn().Err(err).Msg("Failed to prune light history")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("Pruned light history")
	}

	s.bus.Subscribe(eventbus.EventTypeLightChanged, s.record)
}

func (s *HistoryService) record(e eventbus.Event) {
	c, ok := e.Payload.(arbiter.Change)
	if !ok {
		return
	}

	entry := ledger.Entry{
		ChangeID:  c.ID,
		Seq:       c.Seq,
		Source:    c.Source,
		Timestamp: c.At,
		Indicator: c.Indicator,
		State:     c.State,
		Owner:     c.Owner,
	}
	if c.Indicator.SharesSpeaker() {
		out := c.Output
		entry.Output = &out
	}
	if c.Err != nil {
		entry.Error = c.Err.Error()
	}

	if err := s.Ledger.Append(entry); err != nil {
		log.Error().Err(err).Str("change_id", c.ID).Msg("Failed to record light change")
	}
}

// Close closes the database.
func (s *HistoryService) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
