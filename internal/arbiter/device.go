package arbiter

import (
	"errors"
	"sync/atomic"

	"github.com/dokzlo13/ledhal/internal/lights"
)

// ErrDeviceClosed is returned by Set after Close.
var ErrDeviceClosed = &lights.Error{Kind: lights.InvalidArgument, Op: "set", Err: errors.New("device closed")}

// Device is a handle bound to one indicator, as handed out to the device
// framework.
type Device struct {
	a      *Arbiter
	ind    lights.Indicator
	closed atomic.Bool
}

// Open returns a handle for the named light. Unknown names fail with
// InvalidArgument (EINVAL).
func (a *Arbiter) Open(name string) (*Device, error) {
	ind, err := lights.ParseIndicator(name)
	if err != nil {
		return nil, err
	}
	return &Device{a: a, ind: ind}, nil
}

// Indicator returns the light the handle is bound to.
func (d *Device) Indicator() lights.Indicator {
	return d.ind
}

// Set applies s through the handle's entry point. A nil handle is rejected
// before any state is touched.
//
// Backlight and buttons report their endpoint write error. Battery,
// notifications and attention always succeed, even if a cluster write
// failed.
func (d *Device) Set(s lights.State) error {
	if d == nil || d.a == nil {
		return lights.ErrNilDevice
	}
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	return d.a.Update(d.ind, s)
}

// Close releases the handle. Closing a nil handle is a no-op.
func (d *Device) Close() error {
	if d == nil {
		return nil
	}
	d.closed.Store(true)
	return nil
}
