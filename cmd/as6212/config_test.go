// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/GermanBionicSystems/as6212/as6212"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "as6212.toml")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestDefaultConfig(t *testing.T) {
	v, err := newConfig("")
	if err != nil {
		t.Fatal(err)
	}
	opts, err := optsFromConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(opts, as6212.DefaultOpts()) {
		t.Errorf("got %+v expected %+v", opts, as6212.DefaultOpts())
	}
	addr, err := parseAddress(v.GetString("sensor.address"))
	if err != nil || addr != as6212.DefaultAddress {
		t.Errorf("address=%#x, %v", addr, err)
	}
}

func TestConfigFile(t *testing.T) {
	file := writeConfig(t, `
[sensor]
bus = "/dev/i2c-3"
address = "0x49"

[alert]
low = -5.5
high = 30
mode = "interrupt"
polarity = "high"
faults = 3

[conversion]
cycle_ms = 4000
sleep = true
`)
	v, err := newConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	if bus := v.GetString("sensor.bus"); bus != "/dev/i2c-3" {
		t.Errorf("bus=%q", bus)
	}
	if addr, err := parseAddress(v.GetString("sensor.address")); err != nil || addr != 0x49 {
		t.Errorf("address=%#x, %v", addr, err)
	}
	opts, err := optsFromConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	expected := &as6212.Opts{
		SleepMode:         true,
		CycleTime:         as6212.Cycle4000ms,
		AlertMode:         as6212.ModeInterrupt,
		Polarity:          as6212.ActiveHigh,
		ConsecutiveFaults: 3,
		AlertLow:          -5.5,
		AlertHigh:         30,
	}
	if !reflect.DeepEqual(opts, expected) {
		t.Errorf("got %+v expected %+v", opts, expected)
	}
}

func TestConfigErrors(t *testing.T) {
	if _, err := newConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected an error for a missing file")
	}
	tests := []string{
		"[conversion]\ncycle_ms = 500\n",
		"[alert]\nfaults = 0\n",
		"[alert]\nfaults = 5\n",
		"[alert]\nmode = \"edge\"\n",
		"[alert]\npolarity = \"sideways\"\n",
		"[alert]\nlow = 90.0\n",
	}
	for _, content := range tests {
		v, err := newConfig(writeConfig(t, content))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := optsFromConfig(v); err == nil {
			t.Errorf("expected an error for %q", content)
		}
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		s        string
		expected uint16
		ok       bool
	}{
		{"0x48", 0x48, true},
		{"72", 0x48, true},
		{" 0x4b ", 0x4b, true},
		{"0x80", 0, false},
		{"x", 0, false},
		{"", 0, false},
	}
	for _, test := range tests {
		got, err := parseAddress(test.s)
		if (err == nil) != test.ok || got != test.expected {
			t.Errorf("parseAddress(%q)=%#x, %v", test.s, got, err)
		}
	}
}
