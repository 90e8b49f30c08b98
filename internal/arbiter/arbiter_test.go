package arbiter

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/dokzlo13/ledhal/internal/endpoint"
	"github.com/dokzlo13/ledhal/internal/lights"
	"github.com/dokzlo13/ledhal/internal/speaker"
)

var layout = endpoint.NewLayout("/leds", endpoint.DefaultNames)

var (
	redBlink   = lights.State{Color: 0xffff0000, FlashMode: lights.FlashTimed, FlashOnMS: 500, FlashOffMS: 500}
	blueSteady = lights.State{Color: 0xff0000ff}
	greenBlink = lights.State{Color: 0xff00ff00, FlashMode: lights.FlashTimed, FlashOnMS: 100, FlashOffMS: 200}
	off        = lights.State{}
)

// expectedWrites returns what a lone driver writes for s.
func expectedWrites(s lights.State) []endpoint.Write {
	rec := endpoint.NewRecorder()
	_, _ = speaker.NewDriver(rec, layout).Drive(s)
	return rec.Writes()
}

func TestArbiter_Priority(t *testing.T) {
	tests := []struct {
		name      string
		attention lights.State
		notify    lights.State
		battery   lights.State
		wantOwner lights.Indicator
		want      lights.State
	}{
		{"attention_beats_notification", redBlink, blueSteady, greenBlink, lights.Attention, redBlink},
		{"notification_beats_battery", off, blueSteady, greenBlink, lights.Notifications, blueSteady},
		{"battery_when_others_unlit", off, off, greenBlink, lights.Battery, greenBlink},
		{"unlit_battery_turns_cluster_off", off, off, off, lights.Battery, off},
		{"alpha_only_attention_is_unlit", lights.State{Color: 0xff000000}, blueSteady, off, lights.Notifications, blueSteady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := endpoint.NewRecorder()
			var last Change
			a := New(rec, layout, WithChangeHandler(func(c Change) { last = c }))

			_ = a.SetBattery(tt.battery)
			_ = a.SetNotification(tt.notify)
			rec.Reset()
			if err := a.SetAttention(tt.attention); err != nil {
				t.Fatalf("SetAttention: %v", err)
			}

			if last.Owner != tt.wantOwner {
				t.Errorf("owner = %q, want %q", last.Owner, tt.wantOwner)
			}
			if got, want := rec.Writes(), expectedWrites(tt.want); !reflect.DeepEqual(got, want) {
				t.Errorf("writes =\n%v\nwant\n%v", got, want)
			}
			if a.Snapshot().Owner != tt.wantOwner {
				t.Errorf("snapshot owner = %q, want %q", a.Snapshot().Owner, tt.wantOwner)
			}
		})
	}
}

func TestArbiter_StateIsOverwrittenNotMerged(t *testing.T) {
	rec := endpoint.NewRecorder()
	a := New(rec, layout)

	_ = a.SetNotification(redBlink)
	_ = a.SetNotification(lights.State{Color: 0x000000ff})

	got := a.Snapshot().States[lights.Notifications]
	if got != (lights.State{Color: 0x000000ff}) {
		t.Errorf("state = %+v, want plain blue without flash", got)
	}
}

func TestArbiter_Backlight(t *testing.T) {
	rec := endpoint.NewRecorder()
	a := New(rec, layout)

	if err := a.SetBacklight(lights.State{Color: 0xff808080}); err != nil {
		t.Fatalf("SetBacklight: %v", err)
	}
	want := []endpoint.Write{{Path: layout.Backlight, Value: "128"}}
	if got := rec.Writes(); !reflect.DeepEqual(got, want) {
		t.Errorf("writes = %v, want %v", got, want)
	}
}

func TestArbiter_Buttons(t *testing.T) {
	rec := endpoint.NewRecorder()
	a := New(rec, layout)

	_ = a.SetButtons(lights.State{Color: 0x00000001})
	_ = a.SetButtons(lights.State{Color: 0xff000000})
	want := []endpoint.Write{
		{Path: layout.Buttons, Value: "255"},
		{Path: layout.Buttons, Value: "0"},
	}
	if got := rec.Writes(); !reflect.DeepEqual(got, want) {
		t.Errorf("writes = %v, want %v", got, want)
	}
}

func TestArbiter_BacklightAndButtonsDoNotTouchCluster(t *testing.T) {
	rec := endpoint.NewRecorder()
	a := New(rec, layout)
	_ = a.SetAttention(redBlink)
	rec.Reset()

	_ = a.SetBacklight(lights.State{Color: 0xffffffff})
	_ = a.SetButtons(lights.State{Color: 0xffffffff})

	for _, w := range rec.Writes() {
		if w.Path != layout.Backlight && w.Path != layout.Buttons {
			t.Errorf("unexpected cluster write %v", w)
		}
	}
	if a.Snapshot().Owner != lights.Attention {
		t.Errorf("owner changed to %q", a.Snapshot().Owner)
	}
}

// Backlight and buttons report write failures while the cluster indicators
// swallow them. The asymmetry is intentional compatibility behavior.
func TestArbiter_ErrorPropagationAsymmetry(t *testing.T) {
	rec := endpoint.NewRecorder()
	ioErr := &lights.Error{Kind: lights.IOFailure, Op: "open", Errno: unix.ENODEV}
	for _, p := range layout.Paths() {
		rec.FailOn(p, ioErr)
	}

	var changes []Change
	a := New(rec, layout, WithChangeHandler(func(c Change) { changes = append(changes, c) }))

	if err := a.SetBacklight(blueSteady); lights.Code(err) != -int(unix.ENODEV) {
		t.Errorf("SetBacklight code = %d, want %d", lights.Code(err), -int(unix.ENODEV))
	}
	if err := a.SetButtons(blueSteady); !errors.Is(err, &lights.Error{Kind: lights.IOFailure}) {
		t.Errorf("SetButtons err = %v, want IOFailure", err)
	}
	for _, set := range []func(lights.State) error{a.SetBattery, a.SetNotification, a.SetAttention} {
		if err := set(redBlink); err != nil {
			t.Errorf("cluster setter returned %v, want nil", err)
		}
	}

	if len(changes) != 5 {
		t.Fatalf("changes = %d, want 5", len(changes))
	}
	for _, c := range changes {
		if c.Err == nil {
			t.Errorf("change for %s should carry the absorbed error", c.Indicator)
		}
	}
}

func TestArbiter_Update(t *testing.T) {
	rec := endpoint.NewRecorder()
	a := New(rec, layout)

	if err := a.Update(lights.Backlight, lights.State{Color: 0xffffffff}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := a.Update("keyboard", off); !lights.IsKind(err, lights.InvalidArgument) {
		t.Errorf("Update(unknown) err = %v, want InvalidArgument", err)
	}
}

func TestArbiter_ConcurrentUpdatesDoNotInterleave(t *testing.T) {
	rec := endpoint.NewRecorder()
	a := New(rec, layout)

	states := []lights.State{redBlink, blueSteady, greenBlink, off}
	allowed := make([][]endpoint.Write, 0, len(states))
	for _, s := range states {
		allowed = append(allowed, expectedWrites(s))
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s := states[(g+i)%len(states)]
				switch (g + i) % 3 {
				case 0:
					_ = a.SetAttention(s)
				case 1:
					_ = a.SetNotification(s)
				default:
					_ = a.SetBattery(s)
				}
				if i%17 == 0 {
					_ = a.SetBacklight(s)
				}
			}
		}(g)
	}
	wg.Wait()

	// Split the log into drive sequences; each starts with the red reset.
	var seqs [][]endpoint.Write
	for _, w := range rec.Writes() {
		if w.Path == layout.Backlight {
			continue
		}
		if w.Path == layout.Red.Brightness && w.Value == "0" {
			seqs = append(seqs, nil)
		}
		if len(seqs) == 0 {
			t.Fatalf("write %v before any reset", w)
		}
		seqs[len(seqs)-1] = append(seqs[len(seqs)-1], w)
	}

	if len(seqs) != 8*200 {
		t.Fatalf("drive sequences = %d, want %d", len(seqs), 8*200)
	}
	for i, seq := range seqs {
		ok := false
		for _, want := range allowed {
			if reflect.DeepEqual(seq, want) {
				ok = true
				break
			}
		}
		if !ok {
			t.Fatalf("sequence %d mixes updates: %v", i, seq)
		}
	}
}

func TestArbiter_ChangesAreSequencedInApplyOrder(t *testing.T) {
	var mu sync.Mutex
	var changes []Change
	a := New(endpoint.NewRecorder(), layout, WithChangeHandler(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = a.UpdateFrom("test", lights.Attention, lights.State{Color: uint32(g*1000 + i + 1)})
			}
		}(g)
	}
	wg.Wait()

	if len(changes) != 200 {
		t.Fatalf("changes = %d, want 200", len(changes))
	}
	bySeq := make(map[uint64]Change, len(changes))
	var last Change
	for _, c := range changes {
		if _, dup := bySeq[c.Seq]; dup {
			t.Fatalf("duplicate seq %d", c.Seq)
		}
		bySeq[c.Seq] = c
		if c.Seq > last.Seq {
			last = c
		}
		if c.Source != "test" {
			t.Errorf("Source = %q, want test", c.Source)
		}
		if c.At.IsZero() {
			t.Error("At not set")
		}
	}
	for seq := uint64(1); seq <= 200; seq++ {
		if _, ok := bySeq[seq]; !ok {
			t.Fatalf("missing seq %d", seq)
		}
		if seq > 1 && bySeq[seq].At.Before(bySeq[seq-1].At) {
			t.Errorf("seq %d stamped before seq %d", seq, seq-1)
		}
	}

	// The highest sequence number is the state left on the hardware.
	if got := a.Snapshot().States[lights.Attention]; got != last.State {
		t.Errorf("final state = %+v, last change = %+v", got, last.State)
	}
}
