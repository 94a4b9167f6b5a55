// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/GermanBionicSystems/as6212/as6212"
	"github.com/spf13/viper"
)

// newConfig returns a viper instance holding the built-in preset. A TOML
// file, if any, is layered on top.
//
//	[sensor]
//	bus = "/dev/i2c-1"
//	address = "0x48"
//
//	[alert]
//	low = 75.0
//	high = 80.0
//	mode = "comparator"   # or "interrupt"
//	polarity = "low"      # or "high"
//	faults = 1
//
//	[conversion]
//	cycle_ms = 250
//	sleep = false
func newConfig(file string) (*viper.Viper, error) {
	v := viper.New()
	def := as6212.DefaultOpts()
	v.SetDefault("sensor.bus", "")
	v.SetDefault("sensor.address", fmt.Sprintf("%#x", as6212.DefaultAddress))
	v.SetDefault("alert.low", def.AlertLow)
	v.SetDefault("alert.high", def.AlertHigh)
	v.SetDefault("alert.mode", def.AlertMode.String())
	v.SetDefault("alert.polarity", "low")
	v.SetDefault("alert.faults", def.ConsecutiveFaults)
	v.SetDefault("conversion.cycle_ms", def.CycleTime.Milliseconds())
	v.SetDefault("conversion.sleep", def.SleepMode)
	if file == "" {
		return v, nil
	}
	v.SetConfigType("toml")
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return v, nil
}

func parseAddress(s string) (uint16, error) {
	a, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil || a > 0x7f {
		return 0, fmt.Errorf("invalid I²C address %q", s)
	}
	return uint16(a), nil
}

// optsFromConfig converts the preset to driver options. Unlike the driver,
// which ignores out of range settings, the tool rejects them.
func optsFromConfig(v *viper.Viper) (*as6212.Opts, error) {
	opts := &as6212.Opts{
		SleepMode:         v.GetBool("conversion.sleep"),
		ConsecutiveFaults: v.GetInt("alert.faults"),
		AlertLow:          v.GetFloat64("alert.low"),
		AlertHigh:         v.GetFloat64("alert.high"),
	}
	ms := v.GetInt("conversion.cycle_ms")
	ct, ok := as6212.CycleTimeFromDuration(time.Duration(ms) * time.Millisecond)
	if !ok {
		return nil, fmt.Errorf("conversion.cycle_ms must be 125, 250, 1000 or 4000, got %d", ms)
	}
	opts.CycleTime = ct
	switch m := strings.ToLower(v.GetString("alert.mode")); m {
	case "comparator":
		opts.AlertMode = as6212.ModeComparator
	case "interrupt":
		opts.AlertMode = as6212.ModeInterrupt
	default:
		return nil, fmt.Errorf("alert.mode must be comparator or interrupt, got %q", m)
	}
	switch p := strings.ToLower(v.GetString("alert.polarity")); p {
	case "low", "active-low":
		opts.Polarity = as6212.ActiveLow
	case "high", "active-high":
		opts.Polarity = as6212.ActiveHigh
	default:
		return nil, fmt.Errorf("alert.polarity must be low or high, got %q", p)
	}
	if opts.ConsecutiveFaults < as6212.MinConsecutiveFaults || opts.ConsecutiveFaults > as6212.MaxConsecutiveFaults {
		return nil, fmt.Errorf("alert.faults must be between 1 and 4, got %d", opts.ConsecutiveFaults)
	}
	if opts.AlertLow >= opts.AlertHigh {
		return nil, fmt.Errorf("alert.low (%g) must be below alert.high (%g)", opts.AlertLow, opts.AlertHigh)
	}
	return opts, nil
}
