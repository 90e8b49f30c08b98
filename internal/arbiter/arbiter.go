// Package arbiter owns the logical light states and decides which of them
// reaches the hardware.
//
// Backlight and buttons map one-to-one onto their own endpoints. Attention,
// notifications and battery share the RGB cluster; the first lit one in that
// order wins, and battery is driven even when unlit so that the cluster is
// switched off when nothing else wants it.
package arbiter

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledhal/internal/endpoint"
	"github.com/dokzlo13/ledhal/internal/lights"
	"github.com/dokzlo13/ledhal/internal/metrics"
	"github.com/dokzlo13/ledhal/internal/speaker"
)

// speakerOrder is the priority order of the cluster, highest first.
var speakerOrder = []lights.Indicator{lights.Attention, lights.Notifications, lights.Battery}

// Change describes one processed update.
type Change struct {
	ID string

	// Seq and At are taken under the lock; Seq increases in the order the
	// hardware was driven.
	Seq uint64
	At  time.Time

	// Source names the caller (http, lua, cli, ...); empty when unknown.
	Source string

	Indicator lights.Indicator
	State     lights.State

	// Owner and Output are set for cluster indicators.
	Owner  lights.Indicator
	Output speaker.Output

	// Level is the value written for backlight and buttons.
	Level int

	// Err holds write failures, including absorbed ones.
	Err error
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithChangeHandler registers fn to be called after every update, outside
// the lock.
func WithChangeHandler(fn func(Change)) Option {
	return func(a *Arbiter) {
		a.onChange = fn
	}
}

// Arbiter serializes all light updates and hardware writes behind one mutex.
type Arbiter struct {
	mu     sync.Mutex
	w      endpoint.Writer
	layout endpoint.Layout
	driver *speaker.Driver
	states map[lights.Indicator]lights.State
	owner  lights.Indicator
	seq    uint64

	onChange func(Change)
}

// New creates an arbiter writing through w.
func New(w endpoint.Writer, layout endpoint.Layout, opts ...Option) *Arbiter {
	a := &Arbiter{
		w:      w,
		layout: layout,
		driver: speaker.NewDriver(w, layout),
		states: make(map[lights.Indicator]lights.State, len(lights.Indicators)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetBacklight writes the perceived brightness of s to the backlight.
func (a *Arbiter) SetBacklight(s lights.State) error {
	return a.setBacklight("", s)
}

// SetButtons switches the button backlight fully on or off.
func (a *Arbiter) SetButtons(s lights.State) error {
	return a.setButtons("", s)
}

// SetBattery stores the battery state and re-arbitrates the cluster.
func (a *Arbiter) SetBattery(s lights.State) error {
	return a.setSpeaker("", lights.Battery, s)
}

// SetNotification stores the notification state and re-arbitrates the cluster.
func (a *Arbiter) SetNotification(s lights.State) error {
	return a.setSpeaker("", lights.Notifications, s)
}

// SetAttention stores the attention state and re-arbitrates the cluster.
func (a *Arbiter) SetAttention(s lights.State) error {
	return a.setSpeaker("", lights.Attention, s)
}

// Update dispatches s to the entry point of ind.
func (a *Arbiter) Update(ind lights.Indicator, s lights.State) error {
	return a.UpdateFrom("", ind, s)
}

// UpdateFrom is Update with the caller recorded as the Source of the change.
func (a *Arbiter) UpdateFrom(source string, ind lights.Indicator, s lights.State) error {
	switch ind {
	case lights.Backlight:
		return a.setBacklight(source, s)
	case lights.Buttons:
		return a.setButtons(source, s)
	case lights.Battery, lights.Notifications, lights.Attention:
		return a.setSpeaker(source, ind, s)
	}
	_, err := lights.ParseIndicator(string(ind))
	return err
}

func (a *Arbiter) setBacklight(source string, s lights.State) error {
	return a.setLevel(source, lights.Backlight, a.layout.Backlight, s, lights.Brightness(s))
}

func (a *Arbiter) setButtons(source string, s lights.State) error {
	level := 0
	if lights.IsLit(s) {
		level = 255
	}
	return a.setLevel(source, lights.Buttons, a.layout.Buttons, s, level)
}

func (a *Arbiter) setLevel(source string, ind lights.Indicator, path string, s lights.State, level int) error {
	metrics.IndicatorUpdate(string(ind))

	a.mu.Lock()
	a.states[ind] = s
	err := a.w.WriteInt(path, level)
	c := a.changeLocked(source, ind, s)
	a.mu.Unlock()

	c.Level, c.Err = level, err
	a.notify(c)
	return err
}

// setSpeaker never fails: cluster write errors are absorbed per endpoint.
func (a *Arbiter) setSpeaker(source string, ind lights.Indicator, s lights.State) error {
	metrics.IndicatorUpdate(string(ind))

	a.mu.Lock()
	a.states[ind] = s
	owner, out, err := a.resolveAndDriveLocked()
	c := a.changeLocked(source, ind, s)
	a.mu.Unlock()

	if err != nil {
		log.Debug().Err(err).Str("indicator", string(ind)).Msg("Speaker light partially applied")
	}
	c.Owner, c.Output, c.Err = owner, out, err
	a.notify(c)
	return nil
}

func (a *Arbiter) changeLocked(source string, ind lights.Indicator, s lights.State) Change {
	a.seq++
	return Change{
		ID:        uuid.NewString(),
		Seq:       a.seq,
		At:        time.Now(),
		Source:    source,
		Indicator: ind,
		State:     s,
	}
}

func (a *Arbiter) resolveAndDriveLocked() (lights.Indicator, speaker.Output, error) {
	owner := a.winnerLocked()
	out, err := a.driver.Drive(a.states[owner])

	if owner != a.owner {
		log.Info().
			Str("from", string(a.owner)).
			Str("to", string(owner)).
			Msg("Speaker light owner changed")
		a.owner = owner
	}
	metrics.SpeakerOwner(string(owner), indicatorNames(speakerOrder))

	return owner, out, err
}

func (a *Arbiter) winnerLocked() lights.Indicator {
	for _, ind := range speakerOrder[:len(speakerOrder)-1] {
		if lights.IsLit(a.states[ind]) {
			return ind
		}
	}
	return lights.Battery
}

func (a *Arbiter) notify(c Change) {
	if a.onChange != nil {
		a.onChange(c)
	}
}

// Snapshot is a copy of the logical states and the current cluster owner.
type Snapshot struct {
	States map[lights.Indicator]lights.State
	Owner  lights.Indicator
}

// Snapshot returns a consistent copy of the current states.
func (a *Arbiter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	states := make(map[lights.Indicator]lights.State, len(lights.Indicators))
	for _, ind := range lights.Indicators {
		states[ind] = a.states[ind]
	}
	return Snapshot{States: states, Owner: a.owner}
}

func indicatorNames(inds []lights.Indicator) []string {
	names := make([]string, len(inds))
	for i, ind := range inds {
		names[i] = string(ind)
	}
	return names
}
