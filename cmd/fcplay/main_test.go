package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvDefaults(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "fcplay.env")
	env := "FCPLAY_TOPIC=bounce\nFCPLAY_WS=:9999\n"
	if err := os.WriteFile(filename, []byte(env), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FCPLAY_ENV", filename)
	t.Setenv("FCPLAY_TOPIC", "")
	os.Unsetenv("FCPLAY_TOPIC")
	t.Setenv("FCPLAY_WS", ":7777")

	loadEnv()

	if got := getenv("FCPLAY_TOPIC", "fcurve"); got != "bounce" {
		t.Fatal(got)
	}
	// The environment wins.
	if got := getenv("FCPLAY_WS", ":8080"); got != ":7777" {
		t.Fatal(got)
	}
	if got := getenv("FCPLAY_NOPE", "x"); got != "x" {
		t.Fatal(got)
	}

	_, fs := NewMQTTCouplings(nil)
	if got := fs.Lookup("t").DefValue; got != "bounce" {
		t.Fatal(got)
	}
	_, fs = NewWebSocketCouplings(nil)
	if got := fs.Lookup("addr").DefValue; got != ":7777" {
		t.Fatal(got)
	}
}

func TestMissingEnv(t *testing.T) {
	t.Setenv("FCPLAY_ENV", filepath.Join(t.TempDir(), "nope.env"))
	loadEnv()
}

func TestCouplings(t *testing.T) {
	s, _ := NewStdCouplings([]string{"-tags", "-frames"})
	if !s.Tags || !s.Frames || s.Timestamps {
		t.Fatal(s)
	}

	c, _ := NewMQTTCouplings([]string{"-h", "tcp://example.com:1883", "-t", "x:1", "-per-curve", "-control", "ctl"})
	if c.Topic != "x:1" || !c.PerCurve || c.ControlTopic != "ctl" || c.Client == nil {
		t.Fatal(c)
	}

	w, _ := NewWebSocketCouplings([]string{"-addr", ":0", "-backlog", "3"})
	if w.Addr != ":0" || w.Server.Backlog != 3 {
		t.Fatal(w)
	}
}
