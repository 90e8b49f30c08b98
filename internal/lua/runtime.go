// Package lua runs user scripts that drive the light indicators.
package lua

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/ledhal/internal/arbiter"
	"github.com/dokzlo13/ledhal/internal/lua/modules"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = fmt.Errorf("lua runtime closed")

// LuaWork represents work to be executed on the Lua VM.
// All Lua execution goes through Run's goroutine; LState is not thread-safe.
type LuaWork func(ctx context.Context)

// Runtime manages the Lua VM with single-threaded execution
type Runtime struct {
	L *lua.LState

	logModule    *modules.LogModule
	lightsModule *modules.LightsModule

	workQueue chan LuaWork

	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a new Lua runtime with the log and lights modules preloaded
func NewRuntime(l modules.Lights) *Runtime {
	r := &Runtime{
		L:            lua.NewState(),
		logModule:    modules.NewLogModule(),
		lightsModule: modules.NewLightsModule(l),
		workQueue:    make(chan LuaWork, 100),
		closing:      make(chan struct{}),
	}

	r.L.PreloadModule("log", r.logModule.Loader)
	r.L.PreloadModule("lights", r.lightsModule.Loader)

	return r
}

// Close signals the runtime to stop accepting new work and closes the Lua state.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
	})
	// workQueue is left open; Do/DoSync observe closing instead.
	r.L.Close()
}

// Do queues work to be executed on the Lua VM (thread-safe, non-blocking).
// Returns false if the runtime is closing, queue is full, or context is cancelled.
func (r *Runtime) Do(ctx context.Context, work LuaWork) bool {
	select {
	case <-r.closing:
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping Lua work")
		return false
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// DoSync queues work and blocks until there's space (thread-safe, blocking).
func (r *Runtime) DoSync(ctx context.Context, work LuaWork) error {
	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- work:
		return nil
	}
}

// Run is the only goroutine that touches the VM after LoadScript returned.
// It exits when ctx is cancelled or the runtime is closed.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (r *Runtime) executeWork(ctx context.Context, work LuaWork) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	r.L.SetContext(ctx)
	work(ctx)
}

// LoadScript executes a Lua file (must be called before Run).
// lights.sleep inside the script is interrupted when ctx is cancelled.
func (r *Runtime) LoadScript(ctx context.Context, path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")

	r.L.SetContext(ctx)
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Int("change_handlers", len(r.lightsModule.ChangeHandlers())).Msg("Lua script loaded successfully")
	return nil
}

// LoadString executes Lua source (must be called before Run).
func (r *Runtime) LoadString(ctx context.Context, src string) error {
	r.L.SetContext(ctx)
	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("failed to execute Lua source: %w", err)
	}
	return nil
}

// HasChangeHandlers reports whether the script registered lights.on_change.
func (r *Runtime) HasChangeHandlers() bool {
	return len(r.lightsModule.ChangeHandlers()) > 0
}

// NotifyChange queues the lights.on_change callbacks for c. Changes made by
// the handlers themselves are skipped. It never blocks; when the work queue
// is full the change is dropped.
func (r *Runtime) NotifyChange(ctx context.Context, c arbiter.Change) bool {
	if !r.HasChangeHandlers() || c.Source == modules.SourceOnChange {
		return false
	}
	return r.Do(ctx, func(context.Context) {
		r.callChangeHandlers(c)
	})
}

func (r *Runtime) callChangeHandlers(c arbiter.Change) {
	r.lightsModule.RunningHandlers(true)
	defer r.lightsModule.RunningHandlers(false)

	for _, fn := range r.lightsModule.ChangeHandlers() {
		err := r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
			lua.LString(c.Indicator),
			modules.StateToTable(r.L, c.State),
			lua.LString(c.Owner),
		)
		if err != nil {
			log.Error().Err(err).Str("indicator", string(c.Indicator)).Msg("Lua on_change handler failed")
		}
	}
}
