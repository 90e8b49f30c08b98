// Package lights defines the logical light model shared by all indicators
// and the color translation rules used to map it onto hardware.
package lights

import "fmt"

// FlashMode selects how an indicator blinks.
type FlashMode int

const (
	FlashNone FlashMode = iota
	FlashTimed
	// FlashHardware is accepted from callers but has no delays of its own;
	// it is driven like FlashNone.
	FlashHardware
)

// String returns the lowercase name used in config, CLI and HTTP payloads.
func (m FlashMode) String() string {
	switch m {
	case FlashNone:
		return "none"
	case FlashTimed:
		return "timed"
	case FlashHardware:
		return "hardware"
	default:
		return fmt.Sprintf("flash(%d)", int(m))
	}
}

// ParseFlashMode parses a flash mode name. Empty means none.
func ParseFlashMode(s string) (FlashMode, error) {
	switch s {
	case "", "none":
		return FlashNone, nil
	case "timed":
		return FlashTimed, nil
	case "hardware":
		return FlashHardware, nil
	}
	return FlashNone, &Error{Kind: InvalidArgument, Op: "parse flash mode", Err: fmt.Errorf("unknown flash mode %q", s)}
}

// State is the logical request of one indicator. It is always replaced as a
// whole, never merged.
type State struct {
	// Color is 0xAARRGGBB. The alpha byte is ignored.
	Color      uint32    `json:"color" yaml:"color"`
	FlashMode  FlashMode `json:"flash_mode" yaml:"flash_mode"`
	FlashOnMS  int       `json:"flash_on_ms" yaml:"flash_on_ms"`
	FlashOffMS int       `json:"flash_off_ms" yaml:"flash_off_ms"`
}

// RGB splits the color into its red, green and blue bytes.
func (s State) RGB() (r, g, b uint8) {
	return uint8(s.Color >> 16), uint8(s.Color >> 8), uint8(s.Color)
}

// Indicator names one logical light category.
type Indicator string

const (
	Backlight     Indicator = "backlight"
	Buttons       Indicator = "buttons"
	Battery       Indicator = "battery"
	Notifications Indicator = "notifications"
	Attention     Indicator = "attention"
)

// Indicators lists every indicator in a stable order.
var Indicators = []Indicator{Backlight, Buttons, Battery, Notifications, Attention}

// ParseIndicator validates an indicator name.
func ParseIndicator(name string) (Indicator, error) {
	for _, ind := range Indicators {
		if string(ind) == name {
			return ind, nil
		}
	}
	return "", &Error{Kind: InvalidArgument, Op: "open", Errno: errnoInvalid, Err: fmt.Errorf("unknown light %q", name)}
}

// SharesSpeaker reports whether the indicator competes for the RGB cluster.
func (i Indicator) SharesSpeaker() bool {
	return i == Battery || i == Notifications || i == Attention
}
