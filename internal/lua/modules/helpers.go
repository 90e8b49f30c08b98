package modules

import (
	lua "github.com/yuin/gopher-lua"
)

// fieldValue converts a Lua value into something zerolog can encode.
// Sequences become slices, other tables become maps.
func fieldValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LNilType:
		return nil
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			seq := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				seq = append(seq, fieldValue(val.RawGetInt(i)))
			}
			return seq
		}
		m := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			m[lua.LVAsString(k)] = fieldValue(v)
		})
		return m
	default:
		return v.String()
	}
}
