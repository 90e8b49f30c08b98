package endpoint

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/dokzlo13/ledhal/internal/lights"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = old })
	return &buf
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestSysfs_WriteIntAppendsNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "red", "brightness")
	touch(t, path)

	w := NewSysfs()
	if err := w.WriteInt(path, 255); err != nil {
		t.Fatalf("WriteInt: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "255\n" {
		t.Errorf("content = %q, want %q", got, "255\n")
	}
}

func TestSysfs_WriteString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "red", "trigger")
	touch(t, path)

	w := NewSysfs()
	if err := w.WriteString(path, "timer"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "timer\n" {
		t.Errorf("content = %q, want %q", got, "timer\n")
	}
}

func TestSysfs_DoesNotCreateMissingEndpoint(t *testing.T) {
	captureLog(t)
	path := filepath.Join(t.TempDir(), "missing")

	err := NewSysfs().WriteInt(path, 1)
	if err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("writer must not create endpoints")
	}

	var le *lights.Error
	if !errors.As(err, &le) {
		t.Fatalf("error type = %T, want *lights.Error", err)
	}
	if le.Kind != lights.IOFailure || le.Op != "open" || le.Endpoint != path {
		t.Errorf("unexpected error fields: %+v", le)
	}
	if le.Errno != unix.ENOENT {
		t.Errorf("Errno = %v, want ENOENT", le.Errno)
	}
	if lights.Code(err) != -int(unix.ENOENT) {
		t.Errorf("Code = %d, want %d", lights.Code(err), -int(unix.ENOENT))
	}
}

func TestSysfs_WarnsOncePerEndpoint(t *testing.T) {
	buf := captureLog(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	w := NewSysfs()
	for i := 0; i < 3; i++ {
		_ = w.WriteInt(a, i)
		_ = w.WriteString(a, "none")
	}
	if n := strings.Count(buf.String(), "Failed to open control endpoint"); n != 1 {
		t.Fatalf("warnings after repeated failures on one endpoint = %d, want 1", n)
	}

	_ = w.WriteInt(b, 0)
	if n := strings.Count(buf.String(), "Failed to open control endpoint"); n != 2 {
		t.Errorf("warnings after failure on a second endpoint = %d, want 2", n)
	}
}

func TestSysfs_FailureDoesNotRetry(t *testing.T) {
	captureLog(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "late")

	w := NewSysfs()
	if err := w.WriteInt(path, 1); err == nil {
		t.Fatal("expected error")
	}

	// Once the endpoint appears, the next write succeeds silently.
	touch(t, path)
	if err := w.WriteInt(path, 7); err != nil {
		t.Fatalf("WriteInt after endpoint appeared: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "7\n" {
		t.Errorf("content = %q, want %q", got, "7\n")
	}
}

func TestNewLayout(t *testing.T) {
	l := NewLayout("/tmp/leds", Names{Red: "r"})
	if l.Red.Trigger != "/tmp/leds/r/trigger" {
		t.Errorf("Red.Trigger = %q", l.Red.Trigger)
	}
	if l.Green.DelayOff != "/tmp/leds/green/delay_off" {
		t.Errorf("Green.DelayOff = %q", l.Green.DelayOff)
	}
	if l.Backlight != "/tmp/leds/lcd-backlight/brightness" {
		t.Errorf("Backlight = %q", l.Backlight)
	}
	if l.Buttons != "/tmp/leds/button-backlight/brightness" {
		t.Errorf("Buttons = %q", l.Buttons)
	}
	if len(l.Paths()) != 14 {
		t.Errorf("Paths() len = %d, want 14", len(l.Paths()))
	}

	if d := NewLayout("", Names{}); d.Blue.Brightness != "/sys/class/leds/blue/brightness" {
		t.Errorf("default Blue.Brightness = %q", d.Blue.Brightness)
	}
}
