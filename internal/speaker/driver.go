package speaker

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledhal/internal/endpoint"
	"github.com/dokzlo13/ledhal/internal/lights"
)

const (
	triggerNone  = "none"
	triggerTimer = "timer"
	fullOn       = 255
)

// Driver applies logical states to the RGB cluster. It is not safe for
// concurrent use; callers serialize access.
type Driver struct {
	w     endpoint.Writer
	red   endpoint.Channel
	green endpoint.Channel
	blue  endpoint.Channel
}

// NewDriver creates a driver for the cluster described by layout.
func NewDriver(w endpoint.Writer, layout endpoint.Layout) *Driver {
	return &Driver{
		w:     w,
		red:   layout.Red,
		green: layout.Green,
		blue:  layout.Blue,
	}
}

// Drive resets all three channels and then applies s.
//
// Every write is attempted even if earlier ones fail. The returned error
// joins all failures and is informational: a broken LED must not keep the
// others from updating.
func (d *Driver) Drive(s lights.State) (Output, error) {
	out := Resolve(s)

	log.Debug().
		Stringer("mode", s.FlashMode).
		Str("color", fmt.Sprintf("%08X", s.Color)).
		Int("on_ms", out.OnMS).
		Int("off_ms", out.OffMS).
		Msg("Driving speaker light")

	var errs []error
	try := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	// Channels keep their trigger and brightness across writes, so stale
	// blink or steady state must be cleared first.
	for _, ch := range []endpoint.Channel{d.red, d.green, d.blue} {
		try(d.w.WriteInt(ch.Brightness, 0))
		try(d.w.WriteString(ch.Trigger, triggerNone))
	}

	if out.Blinking {
		if out.Red {
			d.blink(d.red, out, try)
		}
		if out.GreenDriven() {
			d.blink(d.green, out, try)
		}
		if out.Blue {
			d.blink(d.blue, out, try)
		}
	} else {
		if out.Red {
			try(d.w.WriteInt(d.red.Brightness, fullOn))
		}
		if out.Green {
			try(d.w.WriteInt(d.green.Brightness, fullOn))
		}
		if out.Blue {
			try(d.w.WriteInt(d.blue.Brightness, fullOn))
		}
	}

	return out, errors.Join(errs...)
}

func (d *Driver) blink(ch endpoint.Channel, out Output, try func(error)) {
	try(d.w.WriteString(ch.Trigger, triggerTimer))
	try(d.w.WriteInt(ch.DelayOn, out.OnMS))
	try(d.w.WriteInt(ch.DelayOff, out.OffMS))
}
