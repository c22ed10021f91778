// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Heliograph - VE.Direct MPPT Telemetry Decoder
//
// A CLI tool for decoding, monitoring and publishing the text telemetry
// stream of solar charge controllers.

package main

import (
	"os"

	"github.com/Thermoquad/heliograph/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
