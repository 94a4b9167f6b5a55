// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/GermanBionicSystems/as6212/as6212"
	"github.com/maruel/ansi256"
)

var (
	colorCold = color.NRGBA{0x20, 0x60, 0xff, 0xff}
	colorOK   = color.NRGBA{0x20, 0xc0, 0x40, 0xff}
	colorHot  = color.NRGBA{0xff, 0x30, 0x20, 0xff}
	colorOff  = color.NRGBA{0x30, 0x30, 0x30, 0xff}
)

// gauge prints a reading followed by a bar of ANSI blocks. The bar spans
// the alert window with one margin cell each side, and is coloured by where
// the reading sits relative to the limits.
type gauge struct {
	w       io.Writer
	width   int
	palette ansi256.Palette
	unit    as6212.Unit
	low     float64
	high    float64

	buf bytes.Buffer
}

func newGauge(w io.Writer, width int, unit as6212.Unit, low, high float64) *gauge {
	if width < 3 {
		width = 3
	}
	return &gauge{w: w, width: width, palette: *ansi256.Default, unit: unit, low: low, high: high}
}

// level returns the colour for t.
func (g *gauge) level(t float64) color.NRGBA {
	switch {
	case t < g.low:
		return colorCold
	case t > g.high:
		return colorHot
	default:
		return colorOK
	}
}

// filled returns how many cells of the bar t lights up.
func (g *gauge) filled(t float64) int {
	inner := g.width - 2
	switch {
	case t < g.low:
		return 0
	case t > g.high:
		return g.width
	case g.high <= g.low:
		return 1 + inner
	}
	return 1 + int(float64(inner)*(t-g.low)/(g.high-g.low))
}

func (g *gauge) print(t float64) error {
	g.buf.Reset()
	c := g.level(t)
	n := g.filled(t)
	_, _ = fmt.Fprintf(&g.buf, "\r\033[0m%9.4f%s ", t, g.unit)
	for i := 0; i < g.width; i++ {
		cell := colorOff
		if i < n {
			cell = c
		}
		_, _ = io.WriteString(&g.buf, g.palette.Block(cell))
	}
	_, _ = g.buf.WriteString("\033[0m\n")
	_, err := g.buf.WriteTo(g.w)
	return err
}
