package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledhal/internal/arbiter"
	"github.com/dokzlo13/ledhal/internal/config"
	"github.com/dokzlo13/ledhal/internal/httpapi"
)

// HTTPService wraps the HTTP API server.
type HTTPService struct {
	cfg    *config.Config
	server *httpapi.Server
	wg     sync.WaitGroup
}

// NewHTTPService creates a new HTTPService.
func NewHTTPService(cfg *config.Config, a *arbiter.Arbiter) *HTTPService {
	return &HTTPService{
		cfg:    cfg,
		server: httpapi.NewServer(cfg.HTTP.Host, cfg.HTTP.Port, a, cfg.HTTP.Metrics),
	}
}

// Start begins the API server if enabled.
func (s *HTTPService) Start(ctx context.Context) {
	if !s.cfg.HTTP.Enabled {
		log.Debug().Msg("HTTP API disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Run(ctx, s.cfg.GetShutdownTimeout()); err != nil {
			log.Error().Err(err).Msg("HTTP API server error")
		}
	}()
}

// Wait blocks until the server goroutine returned.
func (s *HTTPService) Wait() {
	s.wg.Wait()
}
