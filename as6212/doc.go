// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// Package as6212 provides a driver for the ams AS6212 I²C digital
// temperature sensor, as found on the SparkFun Qwiic AS6212 board.
//
// Range: -40°C - 125°C
//
// Accuracy: +/- 0.2°C (-10°C - 65°C)
//
// Resolution: 0.0078125°C
//
// The register codec (DecodeTemperature, EncodeTemperature, PackField,
// UnpackField) is usable on its own, without a bus.
//
// Dev does not cache anything. Each configuration setter is a
// read-modify-write of the configuration register, so bits the caller did
// not name are preserved.
//
// For detailed information, refer to the [datasheet].
//
// A command line tool is available in cmd/as6212.
//
// [datasheet]: https://ams.com/documents/20143/36005/AS6212_DS000677_1-00.pdf
package as6212
