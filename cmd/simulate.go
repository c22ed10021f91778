// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	simInterval    time.Duration
	simCorruptRate float64
	simHexRate     float64
	simCount       int
	simSeed        int64
	simDayLength   int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Write synthetic VE.Direct frames to a connection",
	Long: `Generate telemetry for a simulated solar day and write it as VE.Direct
text frames.

Useful for exercising monitor, raw_log and serve without a charge controller,
for example through a virtual serial pair:

  socat -d -d pty,raw,echo=0 pty,raw,echo=0

Frames can be corrupted with a single flipped bit and interleaved with HEX
protocol messages to exercise rejection and resynchronization.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().DurationVar(&simInterval, "interval", time.Second, "Time between frames")
	simulateCmd.Flags().Float64Var(&simCorruptRate, "corrupt-rate", 0, "Fraction of frames with a flipped bit (0-1)")
	simulateCmd.Flags().Float64Var(&simHexRate, "hex-rate", 0, "Fraction of frames preceded by a HEX message (0-1)")
	simulateCmd.Flags().IntVar(&simCount, "count", 0, "Number of frames to write (0 = forever)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed (0 = time based)")
	simulateCmd.Flags().IntVar(&simDayLength, "day-length", 600, "Frames per simulated day")
}

// generator produces telemetry for a simulated solar day
type generator struct {
	rng       *rand.Rand
	dayLength int
	frame     int

	batteryVoltage float64
	yieldTotal     float64 // kWh
	yieldToday     float64 // kWh
	maxPowerToday  int
	day            int
}

func newGenerator(seed int64, dayLength int) *generator {
	if dayLength < 2 {
		dayLength = 2
	}
	return &generator{
		rng:            rand.New(rand.NewSource(seed)),
		dayLength:      dayLength,
		batteryVoltage: 12.4,
		yieldTotal:     123.45,
	}
}

// irradiance is the fraction of peak sun for the current frame
func (g *generator) irradiance() float64 {
	phase := float64(g.frame%g.dayLength) / float64(g.dayLength)
	// Daylight covers the middle half of the day
	if phase < 0.25 || phase > 0.75 {
		return 0
	}
	return math.Sin((phase - 0.25) * 2 * math.Pi)
}

// Next returns the lines of the next frame and advances the simulation
func (g *generator) Next() []vedirect.Line {
	if g.frame > 0 && g.frame%g.dayLength == 0 {
		g.day++
		g.yieldToday = 0
		g.maxPowerToday = 0
	}

	const peakPower = 250.0
	sun := g.irradiance()
	noise := 1 + (g.rng.Float64()-0.5)*0.04

	pvPower := math.Max(0, peakPower*sun*noise)
	pvVoltage := 0.0
	if sun > 0 {
		pvVoltage = 17.5 + 2.0*sun
	}

	state := vedirect.StateOff
	tracker := vedirect.TrackerOff
	offReason := vedirect.OffReason(0)
	switch {
	case pvPower < 1:
		pvPower = 0
		offReason = vedirect.OffReasonNoInputPower
		g.batteryVoltage = math.Max(12.2, g.batteryVoltage-0.002)
	case g.batteryVoltage >= 14.4:
		state = vedirect.StateAbsorption
		tracker = vedirect.TrackerLimited
		pvPower = math.Min(pvPower, 40)
	case g.batteryVoltage >= 13.8 && g.yieldToday > 0.5:
		state = vedirect.StateFloat
		tracker = vedirect.TrackerLimited
		pvPower = math.Min(pvPower, 20)
	default:
		state = vedirect.StateBulk
		tracker = vedirect.TrackerActive
	}

	loadCurrent := 0.3
	chargeCurrent := 0.0
	if pvPower > 0 {
		chargeCurrent = pvPower * 0.96 / g.batteryVoltage
		g.batteryVoltage = math.Min(14.4, g.batteryVoltage+chargeCurrent*0.0002)
	}

	hours := simInterval.Hours()
	if hours <= 0 {
		hours = 1.0 / 3600
	}
	g.yieldToday += pvPower * hours / 1000
	g.yieldTotal += pvPower * hours / 1000
	if int(pvPower) > g.maxPowerToday {
		g.maxPowerToday = int(pvPower)
	}

	g.frame++

	return []vedirect.Line{
		{Label: "PID", Value: "0xA053"},
		{Label: "FW", Value: "159"},
		{Label: "SER#", Value: "HQ2207SIM01"},
		{Label: "V", Value: milli(g.batteryVoltage)},
		{Label: "I", Value: milli(chargeCurrent)},
		{Label: "VPV", Value: milli(pvVoltage)},
		{Label: "PPV", Value: strconv.Itoa(int(math.Round(pvPower)))},
		{Label: "CS", Value: strconv.Itoa(int(state))},
		{Label: "MPPT", Value: strconv.Itoa(int(tracker))},
		{Label: "OR", Value: fmt.Sprintf("0x%08X", uint32(offReason))},
		{Label: "ERR", Value: "0"},
		{Label: "LOAD", Value: "ON"},
		{Label: "IL", Value: milli(loadCurrent)},
		{Label: "H19", Value: strconv.Itoa(int(g.yieldTotal * 100))},
		{Label: "H20", Value: strconv.Itoa(int(g.yieldToday * 100))},
		{Label: "H21", Value: strconv.Itoa(g.maxPowerToday)},
		{Label: "HSDS", Value: strconv.Itoa(g.day)},
	}
}

// milli formats a value in thousandths as the controller does
func milli(v float64) string {
	return strconv.Itoa(int(math.Round(v * 1000)))
}

// corruptFrame flips one random bit of a copy of frame
func corruptFrame(rng *rand.Rand, frame []byte) []byte {
	out := make([]byte, len(frame))
	copy(out, frame)
	out[rng.Intn(len(out))] ^= 1 << uint(rng.Intn(8))
	return out
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simCorruptRate < 0 || simCorruptRate > 1 {
		return fmt.Errorf("--corrupt-rate must be between 0 and 1, got %g", simCorruptRate)
	}
	if simHexRate < 0 || simHexRate > 1 {
		return fmt.Errorf("--hex-rate must be between 0 and 1, got %g", simHexRate)
	}
	if simInterval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", simInterval)
	}

	seed := simSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	conn, connInfo, err := OpenConnection(cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.WithFields(logrus.Fields{
		"conn":         connInfo,
		"interval":     simInterval,
		"corrupt_rate": simCorruptRate,
		"hex_rate":     simHexRate,
		"seed":         seed,
	}).Info("Simulating charge controller")

	gen := newGenerator(seed, simDayLength)
	rng := rand.New(rand.NewSource(seed + 1))

	ticker := time.NewTicker(simInterval)
	defer ticker.Stop()

	written, corrupted := 0, 0
	for simCount == 0 || written < simCount {
		if rng.Float64() < simHexRate {
			msg := vedirect.EncodeHexMessage(fmt.Sprintf("A%04X%02X", rng.Intn(0x10000), rng.Intn(0x100)))
			if _, err := conn.Write(msg); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
		}

		frame, err := vedirect.EncodeFrame(gen.Next())
		if err != nil {
			return fmt.Errorf("failed to encode frame: %w", err)
		}
		if rng.Float64() < simCorruptRate {
			frame = corruptFrame(rng, frame)
			corrupted++
		}

		if _, err := conn.Write(frame); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		written++
		logger.WithFields(logrus.Fields{
			"frame":     written,
			"corrupted": corrupted,
		}).Debug("Frame written")

		<-ticker.C
	}

	logger.WithFields(logrus.Fields{
		"frames":    written,
		"corrupted": corrupted,
	}).Info("Simulation finished")
	return nil
}
