// Package speaker drives the shared red/green/blue LED cluster.
package speaker

import "github.com/dokzlo13/ledhal/internal/lights"

// channelThreshold is the minimum byte value for a channel to be requested.
const channelThreshold = 128

// Output is the physical form of one logical state.
type Output struct {
	// Requested channels (byte >= 128).
	Red   bool `json:"red"`
	Green bool `json:"green"`
	Blue  bool `json:"blue"`

	Blinking bool `json:"blinking"`
	OnMS     int  `json:"on_ms,omitempty"`
	OffMS    int  `json:"off_ms,omitempty"`
}

// Resolve computes the output for s without touching hardware.
func Resolve(s lights.State) Output {
	var onMS, offMS int
	if s.FlashMode == lights.FlashTimed {
		onMS, offMS = s.FlashOnMS, s.FlashOffMS
	}

	r, g, b := s.RGB()
	out := Output{
		Red:      r >= channelThreshold,
		Green:    g >= channelThreshold,
		Blue:     b >= channelThreshold,
		Blinking: onMS > 0 && offMS > 0,
	}
	if out.Blinking {
		out.OnMS, out.OffMS = onMS, offMS
	}
	return out
}

// GreenDriven reports whether green is actually lit. Green never blinks
// together with red or blue because the timers are not synchronized.
func (o Output) GreenDriven() bool {
	if o.Blinking {
		return o.Green && !o.Red && !o.Blue
	}
	return o.Green
}
