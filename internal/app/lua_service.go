package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledhal/internal/arbiter"
	"github.com/dokzlo13/ledhal/internal/config"
	"github.com/dokzlo13/ledhal/internal/eventbus"
	luart "github.com/dokzlo13/ledhal/internal/lua"
)

// LuaService wraps the Lua runtime. It is inactive without a script.
type LuaService struct {
	cfg     *config.Config
	bus     *eventbus.Bus
	Runtime *luart.Runtime
	wg      sync.WaitGroup
}

// NewLuaService creates a new LuaService.
func NewLuaService(cfg *config.Config, a *arbiter.Arbiter, bus *eventbus.Bus) *LuaService {
	s := &LuaService{cfg: cfg, bus: bus}
	if cfg.Script != "" {
		s.Runtime = luart.NewRuntime(a)
	}
	return s
}

// LoadScript loads and executes the startup script.
// Must be called before Start().
func (s *LuaService) LoadScript(ctx context.Context) error {
	if s.Runtime == nil {
		return nil
	}
	if err := s.Runtime.LoadScript(ctx, s.cfg.Script); err != nil {
		return err
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.EventTypeScriptLoaded, Payload: s.cfg.Script})
	return nil
}

// Start begins the Lua worker goroutine and forwards light changes to
// lights.on_change handlers.
func (s *LuaService) Start(ctx context.Context) {
	if s.Runtime == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Runtime.Run(ctx)
	}()

	if s.Runtime.HasChangeHandlers() {
		s.bus.Subscribe(eventbus.EventTypeLightChanged, func(e eventbus.Event) {
			if c, ok := e.Payload.(arbiter.Change); ok {
				s.Runtime.NotifyChange(ctx, c)
			}
		})
		log.Debug().Msg("Forwarding light changes to Lua")
	}
}

// Close waits for the worker and closes the Lua runtime.
// The context passed to Start must be cancelled first.
func (s *LuaService) Close() {
	if s.Runtime != nil {
		s.wg.Wait()
		s.Runtime.Close()
	}
}
