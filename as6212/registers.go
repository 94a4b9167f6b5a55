// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as6212

import (
	"fmt"
	"math"
	"time"
)

// Register is the address of one of the four 16 bit device registers.
type Register byte

const (
	// RegTemperature holds the last converted temperature. Read-only.
	RegTemperature Register = 0x0
	// RegConfiguration holds the configuration bitfield. Refer to Field.
	RegConfiguration Register = 0x1
	// RegLowThreshold holds the alert low temperature limit.
	RegLowThreshold Register = 0x2
	// RegHighThreshold holds the alert high temperature limit.
	RegHighThreshold Register = 0x3
)

func (r Register) String() string {
	switch r {
	case RegTemperature:
		return "TVAL"
	case RegConfiguration:
		return "CONFIG"
	case RegLowThreshold:
		return "TLOW"
	case RegHighThreshold:
		return "THIGH"
	default:
		return fmt.Sprintf("Register(%#x)", byte(r))
	}
}

// Configuration register presets.
const (
	// ConfigDefault is the power-on state of the configuration register.
	ConfigDefault uint16 = 0x40a0
	// ConfigSleep is the power-on state with sleep mode set.
	ConfigSleep uint16 = 0x41a0
	// ConfigSleepSingleShot is sleep mode with a single shot conversion
	// requested.
	ConfigSleepSingleShot uint16 = 0xc1a0
)

// Field identifies a sub-field of the configuration register.
type Field byte

const (
	// FieldAlert is the alert status bit. Read-only.
	FieldAlert Field = iota
	// FieldConversionRate is the 2 bit conversion cycle time code. Refer to
	// CycleTime.
	FieldConversionRate
	// FieldSleepMode is set while the device is in sleep mode.
	FieldSleepMode
	// FieldInterruptMode selects between comparator (0) and interrupt (1)
	// alerting.
	FieldInterruptMode
	// FieldAlertPolarity selects between active low (0) and active high (1)
	// alert output.
	FieldAlertPolarity
	// FieldConsecutiveFaults is the 2 bit consecutive fault code. The stored
	// value is the number of faults minus one.
	FieldConsecutiveFaults
	// FieldSingleShot starts a single shot conversion when written in sleep
	// mode, and reads 1 while the conversion is ongoing.
	FieldSingleShot
)

type fieldLayout struct {
	name   string
	offset uint
	width  uint
}

var fieldLayouts = [...]fieldLayout{
	FieldAlert:             {"Alert", 5, 1},
	FieldConversionRate:    {"ConversionRate", 6, 2},
	FieldSleepMode:         {"SleepMode", 8, 1},
	FieldInterruptMode:     {"InterruptMode", 9, 1},
	FieldAlertPolarity:     {"AlertPolarity", 10, 1},
	FieldConsecutiveFaults: {"ConsecutiveFaults", 11, 2},
	FieldSingleShot:        {"SingleShot", 15, 1},
}

// Offset returns the position of the field's least significant bit.
func (f Field) Offset() uint {
	return fieldLayouts[f].offset
}

// Width returns the number of bits in the field.
func (f Field) Width() uint {
	return fieldLayouts[f].width
}

func (f Field) valid() bool {
	return int(f) < len(fieldLayouts)
}

func (f Field) String() string {
	if f.valid() {
		return fieldLayouts[f].name
	}
	return fmt.Sprintf("Field(%d)", byte(f))
}

// Get extracts the field from a configuration word.
func (f Field) Get(word uint16) uint16 {
	return UnpackField(word, f.Offset(), f.Width())
}

// Set returns word with the field replaced by value.
func (f Field) Set(word, value uint16) uint16 {
	return PackField(word, f.Offset(), f.Width(), value)
}

// PackField overwrites width bits of word starting at offset with the low
// bits of value. Bits of value above width are dropped, other bits of word
// are preserved.
func PackField(word uint16, offset, width uint, value uint16) uint16 {
	mask := uint16(1<<width-1) << offset
	return word&^mask | value<<offset&mask
}

// UnpackField returns the width bits of word starting at offset, zero
// extended.
func UnpackField(word uint16, offset, width uint) uint16 {
	return word >> offset & uint16(1<<width-1)
}

func boolToBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// Resolution is the temperature value of one LSB in the temperature and
// threshold registers, in degrees Celsius.
const Resolution = 0.0078125

const (
	maxPositiveCount = math.MaxInt16
	// Largest magnitude DecodeTemperature produces for a negative value,
	// in counts.
	maxNegativeCount = math.MaxUint16 - 1
)

// DecodeTemperature converts a raw temperature or threshold register value
// to degrees Celsius.
//
// Values with the top bit set decode as ((raw - 1) * Resolution) * -1, which
// is the transfer function documented for the part and not textbook two's
// complement.
func DecodeTemperature(raw uint16) float64 {
	if raw < 0x8000 {
		return float64(raw) * Resolution
	}
	return (float64(raw-1) * Resolution) * -1
}

// EncodeTemperature converts degrees Celsius to a raw register value. The
// count is truncated toward zero, so fractions of Resolution are lost.
//
// Counts in the int16 range are stored two's complement, as the device
// expects for thresholds. Counts below that fold onto the negative branch of
// DecodeTemperature so that encoding inverts decoding over all 16 bit
// values.
func EncodeTemperature(celsius float64) uint16 {
	count := math.Trunc(celsius / Resolution)
	switch {
	case math.IsNaN(count):
		return 0
	case count > maxPositiveCount:
		count = maxPositiveCount
	case count < -maxNegativeCount:
		count = -maxNegativeCount
	}
	c := int32(count)
	if c >= math.MinInt16 {
		return uint16(int16(c))
	}
	return uint16(-c + 1)
}

// CelsiusToFahrenheit converts degrees Celsius to degrees Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 {
	return c*(9.0/5.0) + 32.0
}

// FahrenheitToCelsius converts degrees Fahrenheit to degrees Celsius.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32.0) * (5.0 / 9.0)
}

// CycleTime is the stored 2 bit conversion rate code. The mapping to the
// interval between conversions is not monotonic.
type CycleTime byte

const (
	Cycle4000ms CycleTime = iota
	Cycle1000ms
	Cycle250ms
	Cycle125ms
)

// Duration returns the interval between conversions for the code, or 0 for
// an unknown code.
func (c CycleTime) Duration() time.Duration {
	switch c {
	case Cycle4000ms:
		return 4000 * time.Millisecond
	case Cycle1000ms:
		return 1000 * time.Millisecond
	case Cycle250ms:
		return 250 * time.Millisecond
	case Cycle125ms:
		return 125 * time.Millisecond
	default:
		return 0
	}
}

// Milliseconds returns the interval in milliseconds: 125, 250, 1000, 4000 or
// 0 for an unknown code.
func (c CycleTime) Milliseconds() int {
	return int(c.Duration() / time.Millisecond)
}

func (c CycleTime) valid() bool {
	return c <= Cycle125ms
}

func (c CycleTime) String() string {
	if !c.valid() {
		return fmt.Sprintf("CycleTime(%d)", byte(c))
	}
	return c.Duration().String()
}

// CycleTimeFromDuration returns the code for d. ok is false if d is not one
// of 125ms, 250ms, 1s or 4s.
func CycleTimeFromDuration(d time.Duration) (c CycleTime, ok bool) {
	for c = Cycle4000ms; c.valid(); c++ {
		if c.Duration() == d {
			return c, true
		}
	}
	return 0, false
}

// Consecutive fault counts accepted by the device.
const (
	MinConsecutiveFaults = 1
	MaxConsecutiveFaults = 4
)

// encodeFaults maps a fault count in [1, 4] to its stored code.
func encodeFaults(faults int) (uint16, bool) {
	if faults < MinConsecutiveFaults || faults > MaxConsecutiveFaults {
		return 0, false
	}
	return uint16(faults - 1), true
}

func decodeFaults(code uint16) int {
	return int(code) + 1
}

// AlertMode selects how the alert output behaves.
type AlertMode byte

const (
	// ModeComparator keeps the alert active while the temperature is past a
	// threshold.
	ModeComparator AlertMode = 0
	// ModeInterrupt activates the alert until the next register read.
	ModeInterrupt AlertMode = 1
)

func (m AlertMode) String() string {
	if m == ModeInterrupt {
		return "interrupt"
	}
	return "comparator"
}

// AlertPolarity is the active level of the alert output.
type AlertPolarity byte

const (
	ActiveLow  AlertPolarity = 0
	ActiveHigh AlertPolarity = 1
)

func (p AlertPolarity) String() string {
	if p == ActiveHigh {
		return "active-high"
	}
	return "active-low"
}

// Unit is the temperature scale used by the float64 accessors.
type Unit byte

const (
	Celsius Unit = iota
	Fahrenheit
)

func (u Unit) fromCelsius(c float64) float64 {
	if u == Fahrenheit {
		return CelsiusToFahrenheit(c)
	}
	return c
}

func (u Unit) toCelsius(v float64) float64 {
	if u == Fahrenheit {
		return FahrenheitToCelsius(v)
	}
	return v
}

func (u Unit) String() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// Threshold selects one of the two alert limit registers.
type Threshold byte

const (
	ThresholdLow Threshold = iota
	ThresholdHigh
)

func (t Threshold) register() Register {
	if t == ThresholdHigh {
		return RegHighThreshold
	}
	return RegLowThreshold
}

func (t Threshold) String() string {
	if t == ThresholdHigh {
		return "high"
	}
	return "low"
}
