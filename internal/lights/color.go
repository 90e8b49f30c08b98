package lights

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor accepts "#rgb", "#rrggbb", "0xAARRGGBB" or a decimal number and
// returns the packed 0xAARRGGBB value. Hex triplets get an opaque alpha byte.
func ParseColor(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		c, err := colorful.Hex(s)
		if err != nil {
			return 0, &Error{Kind: InvalidArgument, Op: "parse color", Err: err}
		}
		r, g, b := c.RGB255()
		return 0xff000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b), nil
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, &Error{Kind: InvalidArgument, Op: "parse color", Err: err}
		}
		return uint32(v), nil
	case s == "":
		return 0, &Error{Kind: InvalidArgument, Op: "parse color", Err: fmt.Errorf("empty color")}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, &Error{Kind: InvalidArgument, Op: "parse color", Err: err}
	}
	return uint32(v), nil
}

// FormatColor renders the RGB part of a packed color as "#rrggbb".
func FormatColor(color uint32) string {
	c := colorful.Color{
		R: float64((color>>16)&0xff) / 255,
		G: float64((color>>8)&0xff) / 255,
		B: float64(color&0xff) / 255,
	}
	return c.Hex()
}
