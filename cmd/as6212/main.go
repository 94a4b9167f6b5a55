// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// as6212 reads and configures an AS6212 temperature sensor.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/GermanBionicSystems/as6212/as6212"
	"github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func main() {
	app := cli.NewApp()
	app.Name = "as6212"
	app.Usage = "read and configure an AS6212 temperature sensor"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load the sensor preset from TOML `FILE`",
		},
		cli.StringFlag{
			Name:  "bus, b",
			Usage: "I²C bus to use, the first one found if empty",
		},
		cli.StringFlag{
			Name:  "address, a",
			Usage: "I²C address of the sensor",
		},
		cli.BoolFlag{
			Name:  "fahrenheit, f",
			Usage: "print temperatures in °F",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "log every step",
		},
	}
	app.Before = func(c *cli.Context) error {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		log.SetOutput(colorable.NewColorableStderr())
		if c.GlobalBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:   "read",
			Usage:  "print the temperature and alert limits",
			Action: withSensor(read),
		},
		{
			Name:  "watch",
			Usage: "print the temperature until interrupted",
			Flags: []cli.Flag{
				cli.DurationFlag{
					Name:  "interval, i",
					Value: time.Second,
					Usage: "time between readings, at least 125ms",
				},
			},
			Action: withSensor(watch),
		},
		{
			Name:   "config",
			Usage:  "print the configuration register fields",
			Action: withSensor(showConfig),
		},
		{
			Name:   "apply",
			Usage:  "write the preset (built-in defaults overlaid with --config)",
			Action: withSensor(apply),
		},
		{
			Name:   "defaults",
			Usage:  "restore the factory preset: 250ms, comparator, active low, 1 fault, 75°C/80°C",
			Action: withSensor(defaults),
		},
		{
			Name:   "sleep",
			Usage:  "enter sleep mode",
			Action: withSensor(func(s *session) error { return s.dev.SleepModeOn() }),
		},
		{
			Name:   "wake",
			Usage:  "leave sleep mode and resume continuous conversion",
			Action: withSensor(func(s *session) error { return s.dev.SleepModeOff() }),
		},
		{
			Name:   "oneshot",
			Usage:  "convert once while in sleep mode and print the result",
			Action: withSensor(oneShot),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// session is what every command runs against.
type session struct {
	ctx  *cli.Context
	cfg  *viper.Viper
	bus  i2c.BusCloser
	dev  *as6212.Dev
	unit as6212.Unit
}

func withSensor(fn func(s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(s)
	}
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := newConfig(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if c.GlobalIsSet("bus") {
		cfg.Set("sensor.bus", c.GlobalString("bus"))
	}
	if c.GlobalIsSet("address") {
		cfg.Set("sensor.address", c.GlobalString("address"))
	}
	addr, err := parseAddress(cfg.GetString("sensor.address"))
	if err != nil {
		return nil, err
	}

	if _, err := host.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(cfg.GetString("sensor.bus"))
	if err != nil {
		return nil, fmt.Errorf("failed to open I²C: %w", err)
	}
	dev, err := as6212.NewI2C(bus, addr, nil)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	log.WithFields(log.Fields{"bus": bus.String(), "address": fmt.Sprintf("%#x", addr)}).Debug("sensor found")

	s := &session{ctx: c, cfg: cfg, bus: bus, dev: dev, unit: as6212.Celsius}
	if c.GlobalBool("fahrenheit") {
		s.unit = as6212.Fahrenheit
	}
	return s, nil
}

func (s *session) close() {
	if err := s.dev.Halt(); err != nil {
		log.WithError(err).Warn("halt")
	}
	if err := s.bus.Close(); err != nil {
		log.WithError(err).Warn("closing bus")
	}
}

// gauge builds a bar display from the limits currently in the device.
func (s *session) gauge() (*gauge, error) {
	low, err := s.dev.Threshold(as6212.ThresholdLow, s.unit)
	if err != nil {
		return nil, err
	}
	high, err := s.dev.Threshold(as6212.ThresholdHigh, s.unit)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"low": low, "high": high}).Debug("alert limits")
	return newGauge(colorable.NewColorableStdout(), 24, s.unit, low, high), nil
}

func read(s *session) error {
	g, err := s.gauge()
	if err != nil {
		return err
	}
	t, err := s.dev.ReadTemperature(s.unit)
	if err != nil {
		return err
	}
	fmt.Printf("limits: %.4f%s .. %.4f%s\n", g.low, s.unit, g.high, s.unit)
	return g.print(t)
}

func watch(s *session) error {
	g, err := s.gauge()
	if err != nil {
		return err
	}
	ch, err := s.dev.SenseContinuous(s.ctx.Duration("interval"))
	if err != nil {
		return err
	}
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)
	for {
		select {
		case <-stop:
			log.Debug("interrupted")
			return s.dev.Halt()
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			t := env.Temperature.Celsius()
			if s.unit == as6212.Fahrenheit {
				t = as6212.CelsiusToFahrenheit(t)
			}
			if err := g.print(t); err != nil {
				return err
			}
		}
	}
}

func showConfig(s *session) error {
	word, err := s.dev.ReadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("CONFIG = %#04x\n", word)
	for f := as6212.FieldAlert; f <= as6212.FieldSingleShot; f++ {
		fmt.Printf("  %-18s bits %2d-%-2d = %d\n", f, f.Offset(), f.Offset()+f.Width()-1, f.Get(word))
	}
	ct := as6212.CycleTime(as6212.FieldConversionRate.Get(word))
	fmt.Printf("conversion every %s, %s mode, %s, %d fault(s)\n",
		ct,
		as6212.AlertMode(as6212.FieldInterruptMode.Get(word)),
		as6212.AlertPolarity(as6212.FieldAlertPolarity.Get(word)),
		as6212.FieldConsecutiveFaults.Get(word)+1)
	return nil
}

func apply(s *session) error {
	opts, err := optsFromConfig(s.cfg)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"sleep":    opts.SleepMode,
		"cycle":    opts.CycleTime,
		"mode":     opts.AlertMode,
		"polarity": opts.Polarity,
		"faults":   opts.ConsecutiveFaults,
		"low":      opts.AlertLow,
		"high":     opts.AlertHigh,
	}).Info("applying preset")
	return s.dev.Configure(opts)
}

func defaults(s *session) error {
	log.Info("applying factory preset")
	return s.dev.ApplyDefaultSettings()
}

func oneShot(s *session) error {
	sleeping, err := s.dev.SleepMode()
	if err != nil {
		return err
	}
	if !sleeping {
		return errors.New("the sensor converts continuously, run `as6212 sleep` first")
	}
	if err := s.dev.TriggerSingleShot(); err != nil {
		return err
	}
	deadline := time.Now().Add(time.Second)
	for {
		busy, err := s.dev.SingleShotStatus()
		if err != nil {
			return err
		}
		if !busy {
			break
		}
		if time.Now().After(deadline) {
			return errors.New("single shot conversion did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}
	t, err := s.dev.ReadTemperature(s.unit)
	if err != nil {
		return err
	}
	fmt.Printf("%.4f%s\n", t, s.unit)
	return nil
}
