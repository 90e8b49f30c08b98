package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledhal/internal/arbiter"
	"github.com/dokzlo13/ledhal/internal/config"
	"github.com/dokzlo13/ledhal/internal/endpoint"
	"github.com/dokzlo13/ledhal/internal/eventbus"
	"github.com/dokzlo13/ledhal/internal/lights"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core
	Layout  endpoint.Layout
	Writer  endpoint.Writer
	Arbiter *arbiter.Arbiter
	Bus     *eventbus.Bus

	// Optional services
	History *HistoryService
	Lua     *LuaService
	HTTP    *HTTPService
}

// NewServices creates all services with proper dependency injection.
// A nil writer selects the sysfs writer.
func NewServices(cfg *config.Config, w endpoint.Writer) (*Services, error) {
	s := &Services{cfg: cfg}

	s.Layout = LayoutFromConfig(cfg)
	if w == nil {
		w = endpoint.NewSysfs()
	}
	s.Writer = w

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Changes are published after the arbiter released its lock. The history
	// must see every change, so this publish waits for queue space.
	s.Arbiter = arbiter.New(s.Writer, s.Layout, arbiter.WithChangeHandler(func(c arbiter.Change) {
		s.Bus.PublishWait(eventbus.Event{Type: eventbus.EventTypeLightChanged, Payload: c})
	}))

	var err error
	s.History, err = NewHistoryService(cfg, s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Lua = NewLuaService(cfg, s.Arbiter, s.Bus)
	s.HTTP = NewHTTPService(cfg, s.Arbiter)

	return s, nil
}

// LayoutFromConfig builds the endpoint layout from the leds section.
func LayoutFromConfig(cfg *config.Config) endpoint.Layout {
	return endpoint.NewLayout(cfg.LEDs.Base, endpoint.Names{
		Red:       cfg.LEDs.Red,
		Green:     cfg.LEDs.Green,
		Blue:      cfg.LEDs.Blue,
		Backlight: cfg.LEDs.Backlight,
		Buttons:   cfg.LEDs.Buttons,
	})
}

// Start starts all services in the correct order.
func (s *Services) Start(ctx context.Context) error {
	s.History.Start()

	// Start from a dark cluster; no light state survives a restart.
	_ = s.Arbiter.SetBattery(lights.State{})

	if err := s.Lua.LoadScript(ctx); err != nil {
		return err
	}
	s.Lua.Start(ctx)
	s.HTTP.Start(ctx)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.HTTP != nil {
		s.HTTP.Wait()
	}
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.History != nil {
		s.History.Close()
	}
	log.Debug().Msg("Services closed")
}

func (s *Services) shutdownTimeout() time.Duration {
	if d := s.cfg.GetShutdownTimeout(); d > 0 {
		return d
	}
	return 5 * time.Second
}
