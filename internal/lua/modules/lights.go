package modules

import (
	"errors"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/ledhal/internal/arbiter"
	"github.com/dokzlo13/ledhal/internal/lights"
	"github.com/dokzlo13/ledhal/internal/speaker"
)

// Change sources recorded for updates made by scripts.
const (
	SourceScript   = "lua"
	SourceOnChange = "lua:on_change"
)

// Lights is the arbiter surface exposed to scripts.
type Lights interface {
	UpdateFrom(source string, ind lights.Indicator, s lights.State) error
	Snapshot() arbiter.Snapshot
}

// LightsModule provides lights.set(), lights.off(), lights.get(),
// lights.owner(), lights.resolve(), lights.brightness(), lights.on_change()
// and lights.sleep() to Lua.
//
// Updates made from inside an on_change handler are tagged SourceOnChange and
// are not fed back to the handlers, so a handler may call lights.set freely.
type LightsModule struct {
	lights   Lights
	handlers []*lua.LFunction
	inChange bool
}

// NewLightsModule creates a new lights module
func NewLightsModule(l Lights) *LightsModule {
	return &LightsModule{lights: l}
}

// Loader is the module loader for Lua
func (m *LightsModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "set", L.NewFunction(m.set))
	L.SetField(mod, "off", L.NewFunction(m.off))
	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "owner", L.NewFunction(m.owner))
	L.SetField(mod, "resolve", L.NewFunction(m.resolve))
	L.SetField(mod, "brightness", L.NewFunction(m.brightness))
	L.SetField(mod, "on_change", L.NewFunction(m.onChange))
	L.SetField(mod, "sleep", L.NewFunction(m.sleep))

	L.Push(mod)
	return 1
}

// ChangeHandlers returns the functions registered with lights.on_change.
func (m *LightsModule) ChangeHandlers() []*lua.LFunction {
	return m.handlers
}

// RunningHandlers marks whether on_change handlers are executing. It must be
// called from the goroutine that owns the Lua state.
func (m *LightsModule) RunningHandlers(running bool) {
	m.inChange = running
}

func (m *LightsModule) source() string {
	if m.inChange {
		return SourceOnChange
	}
	return SourceScript
}

// set(name, {color=..., flash=..., on_ms=..., off_ms=...}) -> true | nil, err
func (m *LightsModule) set(L *lua.LState) int {
	ind, ok := checkIndicator(L, 1)
	if !ok {
		return 2
	}
	state, err := stateFromTable(L.CheckTable(2))
	if err != nil {
		return pushError(L, err)
	}
	if err := m.lights.UpdateFrom(m.source(), ind, state); err != nil {
		return pushError(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// off(name) -> true | nil, err
func (m *LightsModule) off(L *lua.LState) int {
	ind, ok := checkIndicator(L, 1)
	if !ok {
		return 2
	}
	if err := m.lights.UpdateFrom(m.source(), ind, lights.State{}); err != nil {
		return pushError(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// get(name) -> table
func (m *LightsModule) get(L *lua.LState) int {
	ind, ok := checkIndicator(L, 1)
	if !ok {
		return 2
	}
	L.Push(StateToTable(L, m.lights.Snapshot().States[ind]))
	return 1
}

// owner() -> name of the indicator driving the RGB cluster
func (m *LightsModule) owner(L *lua.LState) int {
	L.Push(lua.LString(m.lights.Snapshot().Owner))
	return 1
}

// resolve({color=..., ...}) -> {red=, green=, blue=, blinking=, on_ms=, off_ms=}
func (m *LightsModule) resolve(L *lua.LState) int {
	state, err := stateFromTable(L.CheckTable(1))
	if err != nil {
		return pushError(L, err)
	}
	out := speaker.Resolve(state)

	tbl := L.NewTable()
	L.SetField(tbl, "red", lua.LBool(out.Red))
	L.SetField(tbl, "green", lua.LBool(out.GreenDriven()))
	L.SetField(tbl, "blue", lua.LBool(out.Blue))
	L.SetField(tbl, "blinking", lua.LBool(out.Blinking))
	L.SetField(tbl, "on_ms", lua.LNumber(out.OnMS))
	L.SetField(tbl, "off_ms", lua.LNumber(out.OffMS))
	L.Push(tbl)
	return 1
}

// brightness(color) -> 0..255
func (m *LightsModule) brightness(L *lua.LState) int {
	color, err := colorArg(L.CheckAny(1))
	if err != nil {
		return pushError(L, err)
	}
	L.Push(lua.LNumber(lights.Brightness(lights.State{Color: color})))
	return 1
}

// on_change(fn) - fn(name, state_table, owner) runs after every applied update
func (m *LightsModule) onChange(L *lua.LState) int {
	m.handlers = append(m.handlers, L.CheckFunction(1))
	return 0
}

// sleep(ms) - pause the script; aborts when the runtime context is cancelled
func (m *LightsModule) sleep(L *lua.LState) int {
	d := time.Duration(L.CheckInt(1)) * time.Millisecond
	ctx := L.Context()
	if ctx == nil {
		time.Sleep(d)
		return 0
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		L.RaiseError("sleep interrupted: %v", ctx.Err())
	}
	return 0
}

func checkIndicator(L *lua.LState, n int) (lights.Indicator, bool) {
	ind, err := lights.ParseIndicator(L.CheckString(n))
	if err != nil {
		pushError(L, err)
		return "", false
	}
	return ind, true
}

func pushError(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func colorArg(v lua.LValue) (uint32, error) {
	switch c := v.(type) {
	case lua.LNumber:
		if c < 0 || c > 0xffffffff {
			return 0, &lights.Error{Kind: lights.InvalidArgument, Op: "parse color", Err: errors.New("color out of range")}
		}
		return uint32(c), nil
	case lua.LString:
		return lights.ParseColor(string(c))
	}
	return 0, &lights.Error{Kind: lights.InvalidArgument, Op: "parse color", Err: errors.New("color must be a string or number")}
}

func stateFromTable(tbl *lua.LTable) (lights.State, error) {
	var s lights.State

	if v := tbl.RawGetString("color"); v != lua.LNil {
		color, err := colorArg(v)
		if err != nil {
			return s, err
		}
		s.Color = color
	}

	mode, err := lights.ParseFlashMode(lua.LVAsString(tbl.RawGetString("flash")))
	if err != nil {
		return s, err
	}
	s.FlashMode = mode
	s.FlashOnMS = int(lua.LVAsNumber(tbl.RawGetString("on_ms")))
	s.FlashOffMS = int(lua.LVAsNumber(tbl.RawGetString("off_ms")))
	if s.FlashOnMS < 0 || s.FlashOffMS < 0 {
		return s, &lights.Error{Kind: lights.InvalidArgument, Op: "parse state", Err: errors.New("negative flash duration")}
	}
	return s, nil
}

// StateToTable converts a light state to the table shape used by scripts.
func StateToTable(L *lua.LState, s lights.State) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "color", lua.LString(lights.FormatColor(s.Color)))
	L.SetField(tbl, "flash", lua.LString(s.FlashMode.String()))
	L.SetField(tbl, "on_ms", lua.LNumber(s.FlashOnMS))
	L.SetField(tbl, "off_ms", lua.LNumber(s.FlashOffMS))
	L.SetField(tbl, "lit", lua.LBool(lights.IsLit(s)))
	return tbl
}
