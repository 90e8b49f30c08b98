package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dokzlo13/ledhal/internal/db"
	"github.com/dokzlo13/ledhal/internal/ledger"
	"github.com/dokzlo13/ledhal/internal/lights"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveCmd(t *testing.T) {
	out, err := run(t, "resolve", "#ffff00", "--flash", "timed", "--on-ms", "500", "--off-ms", "500")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, want := range []string{"red:        true", "green:      false", "blink:      500ms on / 500ms off"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveCmd_BadColor(t *testing.T) {
	if _, err := run(t, "resolve", "teal"); err == nil {
		t.Error("expected error for bad color")
	}
}

func TestSetCmd_DryRun(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("leds:\n  base: /fake/leds\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := run(t, "-c", cfgPath, "set", "backlight", "#ffffff", "--dry-run")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if strings.TrimSpace(out) != "/fake/leds/lcd-backlight/brightness <- 255" {
		t.Errorf("output = %q", out)
	}
}

func TestSetCmd_WritesSysfs(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "leds")
	target := filepath.Join(base, "button-backlight", "brightness")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("leds:\n  base: "+base+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := run(t, "-c", cfgPath, "set", "buttons", "0x00000001"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "255\n" {
		t.Errorf("buttons = %q, want %q", got, "255\n")
	}
}

func TestSetCmd_UnknownLight(t *testing.T) {
	if _, err := run(t, "set", "keyboard", "#ffffff", "--dry-run"); err == nil {
		t.Error("expected error for unknown light")
	}
}

func TestSetCmd_MissingExplicitConfig(t *testing.T) {
	if _, err := run(t, "-c", filepath.Join(t.TempDir(), "nope.yaml"), "set", "buttons", "#ffffff", "--dry-run"); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestHistoryCmd(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.sqlite")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	l := ledger.New(database.DB)
	at := time.Now()
	_ = l.Append(ledger.Entry{ChangeID: "1", Seq: 1, Source: "http", Indicator: lights.Attention, Timestamp: at, State: lights.State{Color: 0xffff0000}, Owner: lights.Attention})
	_ = l.Append(ledger.Entry{ChangeID: "2", Seq: 2, Indicator: lights.Buttons, Timestamp: at, State: lights.State{Color: 0xffffffff}})
	database.Close()

	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("database:\n  path: "+dbPath+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := run(t, "-c", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "buttons") || !strings.Contains(lines[1], "attention") {
		t.Errorf("history not newest first:\n%s", out)
	}
	if !strings.Contains(lines[1], "http") || !strings.Contains(lines[1], "#ff0000") || !strings.Contains(lines[1], "owner=attention") {
		t.Errorf("attention line = %q", lines[1])
	}

	out, err = run(t, "-c", cfgPath, "history", "attention", "-n", "5")
	if err != nil {
		t.Fatalf("history attention: %v", err)
	}
	if strings.Contains(out, "buttons") {
		t.Errorf("filter ignored:\n%s", out)
	}
}

func TestHistoryCmd_Disabled(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := run(t, "-c", cfgPath, "history"); err == nil {
		t.Error("expected error without database path")
	}
}
