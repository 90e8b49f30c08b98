package endpoint

import "path/filepath"

// DefaultBase is where the kernel exposes LED class devices.
const DefaultBase = "/sys/class/leds"

// Channel holds the control files of one LED.
type Channel struct {
	Brightness string
	Trigger    string
	DelayOn    string
	DelayOff   string
}

// NewChannel returns the standard attribute paths of the LED in dir.
func NewChannel(dir string) Channel {
	return Channel{
		Brightness: filepath.Join(dir, "brightness"),
		Trigger:    filepath.Join(dir, "trigger"),
		DelayOn:    filepath.Join(dir, "delay_on"),
		DelayOff:   filepath.Join(dir, "delay_off"),
	}
}

// Names are the LED class device names, relative to the base directory.
type Names struct {
	Red       string
	Green     string
	Blue      string
	Backlight string
	Buttons   string
}

// DefaultNames matches the common Android kernel naming.
var DefaultNames = Names{
	Red:       "red",
	Green:     "green",
	Blue:      "blue",
	Backlight: "lcd-backlight",
	Buttons:   "button-backlight",
}

// Layout is the full set of endpoints driven by the daemon.
type Layout struct {
	Red       Channel
	Green     Channel
	Blue      Channel
	Backlight string
	Buttons   string
}

// NewLayout builds a layout rooted at base. Empty names fall back to
// DefaultNames.
func NewLayout(base string, names Names) Layout {
	if base == "" {
		base = DefaultBase
	}
	pick := func(name, def string) string {
		if name == "" {
			return def
		}
		return name
	}

	return Layout{
		Red:       NewChannel(filepath.Join(base, pick(names.Red, DefaultNames.Red))),
		Green:     NewChannel(filepath.Join(base, pick(names.Green, DefaultNames.Green))),
		Blue:      NewChannel(filepath.Join(base, pick(names.Blue, DefaultNames.Blue))),
		Backlight: filepath.Join(base, pick(names.Backlight, DefaultNames.Backlight), "brightness"),
		Buttons:   filepath.Join(base, pick(names.Buttons, DefaultNames.Buttons), "brightness"),
	}
}

// Paths lists every endpoint of the layout.
func (l Layout) Paths() []string {
	paths := []string{l.Backlight, l.Buttons}
	for _, ch := range []Channel{l.Red, l.Green, l.Blue} {
		paths = append(paths, ch.Brightness, ch.Trigger, ch.DelayOn, ch.DelayOff)
	}
	return paths
}
