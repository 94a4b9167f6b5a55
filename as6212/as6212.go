// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as6212

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the I²C address with ADD0 tied to GND.
const DefaultAddress uint16 = 0x48

const resolutionTemperature physic.Temperature = 7_812_500 * physic.NanoKelvin

// Opts is the configuration applied by NewI2C after the device answered the
// probe. Use DefaultOpts() for the canned preset.
type Opts struct {
	SleepMode         bool
	CycleTime         CycleTime
	AlertMode         AlertMode
	Polarity          AlertPolarity
	ConsecutiveFaults int
	// Alert limits in degrees Celsius.
	AlertLow  float64
	AlertHigh float64
}

// DefaultOpts returns the preset applied by ApplyDefaultSettings: continuous
// conversion every 250ms, comparator mode, active low alert, one fault,
// limits 75°C and 80°C.
func DefaultOpts() *Opts {
	return &Opts{
		SleepMode:         false,
		CycleTime:         Cycle250ms,
		AlertMode:         ModeComparator,
		Polarity:          ActiveLow,
		ConsecutiveFaults: 1,
		AlertLow:          75,
		AlertHigh:         80,
	}
}

// Dev is a handle to an AS6212 sensor.
//
// Every configuration change is a read-modify-write of the configuration
// register. Nothing is cached, every getter goes to the bus.
type Dev struct {
	d        *i2c.Dev
	mu       sync.Mutex
	shutdown chan struct{}
}

// NewI2C probes the sensor at addr on bus b and returns a handle to it. If
// opts is nil the device configuration is left untouched.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}
	if err := dev.probe(); err != nil {
		return nil, err
	}
	if opts != nil {
		if err := dev.Configure(opts); err != nil {
			return nil, err
		}
	}
	return dev, nil
}

// probe selects the temperature register and nothing else. It is the
// smallest transaction periph buses accept, and fails without an address ACK.
func (dev *Dev) probe() error {
	if err := dev.d.Tx([]byte{byte(RegTemperature)}, nil); err != nil {
		return fmt.Errorf("as6212: no device at %#x: %w", dev.d.Addr, err)
	}
	return nil
}

// Present reports whether the device acknowledges its address.
func (dev *Dev) Present() bool {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.probe() == nil
}

// Address returns the I²C address the device was opened with.
func (dev *Dev) Address() uint16 {
	return dev.d.Addr
}

// readRegister selects reg and reads its two bytes, MSB first.
func (dev *Dev) readRegister(reg Register) (uint16, error) {
	r := make([]byte, 2)
	if err := dev.d.Tx([]byte{byte(reg)}, r); err != nil {
		return 0, fmt.Errorf("as6212: read %s: %w", reg, err)
	}
	return binary.BigEndian.Uint16(r), nil
}

// writeRegister writes the register address and the big-endian value in one
// transaction.
func (dev *Dev) writeRegister(reg Register, value uint16) error {
	w := []byte{byte(reg), 0, 0}
	binary.BigEndian.PutUint16(w[1:], value)
	if err := dev.d.Tx(w, nil); err != nil {
		return fmt.Errorf("as6212: write %s: %w", reg, err)
	}
	return nil
}

// ReadRegister returns the raw contents of reg.
func (dev *Dev) ReadRegister(reg Register) (uint16, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.readRegister(reg)
}

// WriteRegister stores a raw value in reg.
func (dev *Dev) WriteRegister(reg Register, value uint16) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeRegister(reg, value)
}

// ReadConfig returns the raw configuration register.
func (dev *Dev) ReadConfig() (uint16, error) {
	return dev.ReadRegister(RegConfiguration)
}

// SetConfig overwrites the whole configuration register.
func (dev *Dev) SetConfig(word uint16) error {
	return dev.WriteRegister(RegConfiguration, word)
}

// ReadTemperature returns the last converted temperature in unit u.
func (dev *Dev) ReadTemperature(u Unit) (float64, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	raw, err := dev.readRegister(RegTemperature)
	if err != nil {
		return 0, err
	}
	return u.fromCelsius(DecodeTemperature(raw)), nil
}

// Threshold returns the low or high alert limit in unit u.
func (dev *Dev) Threshold(which Threshold, u Unit) (float64, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	raw, err := dev.readRegister(which.register())
	if err != nil {
		return 0, err
	}
	return u.fromCelsius(DecodeTemperature(raw)), nil
}

// SetThreshold sets the low or high alert limit. value is in unit u, and is
// truncated to a multiple of Resolution.
func (dev *Dev) SetThreshold(which Threshold, value float64, u Unit) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeRegister(which.register(), EncodeTemperature(u.toCelsius(value)))
}

// ReadConfigField returns the stored value of one configuration field.
func (dev *Dev) ReadConfigField(f Field) (uint16, error) {
	if !f.valid() {
		return 0, fmt.Errorf("as6212: unknown field %s", f)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	config, err := dev.readRegister(RegConfiguration)
	if err != nil {
		return 0, err
	}
	return f.Get(config), nil
}

// WriteConfigField replaces one configuration field, leaving the others as
// read from the device. Bits of value beyond the field width are dropped.
func (dev *Dev) WriteConfigField(f Field, value uint16) error {
	if !f.valid() {
		return fmt.Errorf("as6212: unknown field %s", f)
	}
	if f == FieldAlert {
		return errors.New("as6212: alert status is read-only")
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.updateConfig(func(config uint16) (uint16, bool) {
		return f.Set(config, value), true
	})
}

// updateConfig reads the configuration register, applies fn and writes the
// result back unless fn declines.
func (dev *Dev) updateConfig(fn func(config uint16) (uint16, bool)) error {
	config, err := dev.readRegister(RegConfiguration)
	if err != nil {
		return err
	}
	config, ok := fn(config)
	if !ok {
		return nil
	}
	return dev.writeRegister(RegConfiguration, config)
}

func (dev *Dev) configBit(f Field) (bool, error) {
	v, err := dev.ReadConfigField(f)
	return v != 0, err
}

// AlertStatus returns the state of the alert flag, adjusted for polarity by
// the device.
func (dev *Dev) AlertStatus() (bool, error) {
	return dev.configBit(FieldAlert)
}

// SetConsecutiveFaults sets how many out of limit conversions in a row
// change the alert state. Values outside 1..4 are ignored and the device is
// not touched.
func (dev *Dev) SetConsecutiveFaults(faults int) error {
	code, ok := encodeFaults(faults)
	if !ok {
		return nil
	}
	return dev.WriteConfigField(FieldConsecutiveFaults, code)
}

// ConsecutiveFaults returns the fault count, 1 to 4.
func (dev *Dev) ConsecutiveFaults() (int, error) {
	code, err := dev.ReadConfigField(FieldConsecutiveFaults)
	if err != nil {
		return 0, err
	}
	return decodeFaults(code), nil
}

// SetInterruptMode selects comparator or interrupt alerting.
func (dev *Dev) SetInterruptMode(mode AlertMode) error {
	return dev.WriteConfigField(FieldInterruptMode, uint16(mode))
}

// InterruptMode returns the alerting mode.
func (dev *Dev) InterruptMode() (AlertMode, error) {
	v, err := dev.ReadConfigField(FieldInterruptMode)
	return AlertMode(v), err
}

// SetConversionCycleTime sets the interval between conversions in
// continuous mode. Unknown codes are ignored and the device is not touched.
func (dev *Dev) SetConversionCycleTime(c CycleTime) error {
	if !c.valid() {
		return nil
	}
	return dev.WriteConfigField(FieldConversionRate, uint16(c))
}

// ConversionCycleTime returns the conversion rate code. Use Duration() or
// Milliseconds() on the result for the interval.
func (dev *Dev) ConversionCycleTime() (CycleTime, error) {
	v, err := dev.ReadConfigField(FieldConversionRate)
	return CycleTime(v), err
}

// SetAlertPolarity sets the active level of the alert output.
func (dev *Dev) SetAlertPolarity(p AlertPolarity) error {
	return dev.WriteConfigField(FieldAlertPolarity, uint16(p))
}

// AlertPolarity returns the active level of the alert output.
func (dev *Dev) AlertPolarity() (AlertPolarity, error) {
	v, err := dev.ReadConfigField(FieldAlertPolarity)
	return AlertPolarity(v), err
}

// SleepModeOn puts the device in sleep mode. A single shot conversion is
// requested in the same write, so the temperature register holds a fresh
// value about 150ms later.
func (dev *Dev) SleepModeOn() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.updateConfig(func(config uint16) (uint16, bool) {
		config = FieldSleepMode.Set(config, 1)
		return FieldSingleShot.Set(config, 1), true
	})
}

// SleepModeOff returns the device to continuous conversion.
func (dev *Dev) SleepModeOff() error {
	return dev.WriteConfigField(FieldSleepMode, 0)
}

// SleepMode reports whether the device is in sleep mode.
func (dev *Dev) SleepMode() (bool, error) {
	return dev.configBit(FieldSleepMode)
}

// TriggerSingleShot starts a single conversion. It does nothing unless the
// device is in sleep mode.
func (dev *Dev) TriggerSingleShot() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.updateConfig(func(config uint16) (uint16, bool) {
		if FieldSleepMode.Get(config) == 0 {
			return config, false
		}
		return FieldSingleShot.Set(config, 1), true
	})
}

// SingleShotStatus reports whether a single shot conversion is ongoing.
func (dev *Dev) SingleShotStatus() (bool, error) {
	return dev.configBit(FieldSingleShot)
}

// Configure applies opts one field at a time, each step being its own
// read-modify-write, then writes both alert limits.
func (dev *Dev) Configure(opts *Opts) error {
	sleep := dev.SleepModeOff
	if opts.SleepMode {
		sleep = dev.SleepModeOn
	}
	steps := []func() error{
		sleep,
		func() error { return dev.SetConversionCycleTime(opts.CycleTime) },
		func() error { return dev.SetInterruptMode(opts.AlertMode) },
		func() error { return dev.SetAlertPolarity(opts.Polarity) },
		func() error { return dev.SetConsecutiveFaults(opts.ConsecutiveFaults) },
		func() error { return dev.SetThreshold(ThresholdLow, opts.AlertLow, Celsius) },
		func() error { return dev.SetThreshold(ThresholdHigh, opts.AlertHigh, Celsius) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDefaultSettings configures the device with DefaultOpts().
func (dev *Dev) ApplyDefaultSettings() error {
	return dev.Configure(DefaultOpts())
}

// Sense reads the temperature into env. Implements physic.SenseEnv.
func (dev *Dev) Sense(env *physic.Env) error {
	c, err := dev.ReadTemperature(Celsius)
	if err != nil {
		return err
	}
	env.Temperature = physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
	return nil
}

// SenseContinuous reads the temperature every interval and sends it on the
// returned channel until Halt is called. Implements physic.SenseEnv.
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < 125*time.Millisecond {
		return nil, errors.New("as6212: invalid duration, minimum 125ms")
	}
	dev.mu.Lock()
	if dev.shutdown != nil {
		dev.mu.Unlock()
		return nil, errors.New("as6212: SenseContinuous already running")
	}
	shutdown := make(chan struct{})
	dev.shutdown = shutdown
	dev.mu.Unlock()

	channelSize := 16
	ch := make(chan physic.Env, channelSize)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				e := physic.Env{}
				if err := dev.Sense(&e); err == nil && len(ch) < channelSize {
					ch <- e
				}
			}
		}
	}()
	return ch, nil
}

// Precision returns the temperature resolution. Implements physic.SenseEnv.
func (dev *Dev) Precision(env *physic.Env) {
	env.Temperature = resolutionTemperature
	env.Pressure = 0
	env.Humidity = 0
}

// Halt stops a running SenseContinuous. The device configuration is not
// changed. Implements conn.Resource.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		close(dev.shutdown)
		dev.shutdown = nil
	}
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("as6212: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
