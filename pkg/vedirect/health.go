// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"errors"
	"fmt"
	"time"
)

// Health tracks frame evaluations and data freshness
type Health struct {
	StartTime          time.Time
	LastEvaluation     time.Time
	LastGood           time.Time
	StalenessThreshold time.Duration

	// Counters
	FramesOK        uint64
	FramesBad       uint64
	ChecksumErrors    uint64
	MalformedFrames   uint64
	InterruptedFrames uint64
	LineOverflows     uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // rejections/sec

	clock func() time.Time
}

// HealthStatus is a point-in-time view of Health for publication
type HealthStatus struct {
	FramesOK       uint64
	FramesBad      uint64
	LineOverflows  uint64
	LastGood       time.Time
	FrameAge       time.Duration
	HasFrameAge    bool // false until the first good frame
	DataValid      bool
	StalenessLimit time.Duration
}

// NewHealth creates a health tracker. A nil clock uses time.Now.
func NewHealth(threshold time.Duration, clock func() time.Time) *Health {
	if clock == nil {
		clock = time.Now
	}
	if threshold <= 0 {
		threshold = NominalInterval * DefaultStalenessMultiple
	}
	now := clock()
	return &Health{
		StartTime:          now,
		StalenessThreshold: threshold,
		clock:              clock,
	}
}

// Record counts one completed frame evaluation. A nil err is a good frame.
func (h *Health) Record(err error) {
	now := h.clock()
	h.LastEvaluation = now

	if err == nil {
		h.FramesOK++
		h.LastGood = now
		return
	}

	h.FramesBad++
	switch {
	case errors.Is(err, ErrChecksumMismatch):
		h.ChecksumErrors++
	case errors.Is(err, ErrFrameInterrupted):
		h.InterruptedFrames++
	default:
		h.MalformedFrames++
	}
}

// RecordOverflow counts an abandoned line. It is not a frame evaluation.
func (h *Health) RecordOverflow() {
	h.LineOverflows++
}

// Evaluations returns the number of completed checksum evaluations
func (h *Health) Evaluations() uint64 {
	return h.FramesOK + h.FramesBad
}

// FrameAge returns the time since the last good frame, or false if there
// has never been one
func (h *Health) FrameAge() (time.Duration, bool) {
	if h.LastGood.IsZero() {
		return 0, false
	}
	return h.clock().Sub(h.LastGood), true
}

// DataValid reports whether the last good frame is fresher than the
// staleness threshold
func (h *Health) DataValid() bool {
	age, ok := h.FrameAge()
	return ok && age < h.StalenessThreshold
}

// Status snapshots the tracker at the current time
func (h *Health) Status() HealthStatus {
	age, ok := h.FrameAge()
	return HealthStatus{
		FramesOK:       h.FramesOK,
		FramesBad:      h.FramesBad,
		LineOverflows:  h.LineOverflows,
		LastGood:       h.LastGood,
		FrameAge:       age,
		HasFrameAge:    ok,
		DataValid:      ok && age < h.StalenessThreshold,
		StalenessLimit: h.StalenessThreshold,
	}
}

// CalculateRates calculates frame and error rates
func (h *Health) CalculateRates() {
	elapsed := h.clock().Sub(h.StartTime).Seconds()
	if elapsed > 0 {
		h.FrameRate = float64(h.Evaluations()) / elapsed
		h.ErrorRate = float64(h.FramesBad) / elapsed
	}
}

// String returns a formatted health summary
func (h *Health) String() string {
	h.CalculateRates()

	var okPercent, checksumPercent, malformedPercent float64
	if total := h.Evaluations(); total > 0 {
		okPercent = float64(h.FramesOK) * 100.0 / float64(total)
		checksumPercent = float64(h.ChecksumErrors) * 100.0 / float64(total)
		malformedPercent = float64(h.MalformedFrames) * 100.0 / float64(total)
	}

	elapsed := h.clock().Sub(h.StartTime)

	result := fmt.Sprintf("=== Frame Health (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", h.Evaluations())
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", h.FramesOK, okPercent)

	if h.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", h.ChecksumErrors, checksumPercent)
	}
	if h.MalformedFrames > 0 {
		result += fmt.Sprintf("Malformed:       %8d (%.1f%%)\n", h.MalformedFrames, malformedPercent)
	}
	if h.InterruptedFrames > 0 {
		result += fmt.Sprintf("Interrupted:     %8d\n", h.InterruptedFrames)
	}
	if h.LineOverflows > 0 {
		result += fmt.Sprintf("Line Overflows:  %8d\n", h.LineOverflows)
	}

	if age, ok := h.FrameAge(); ok {
		validity := "valid"
		if !h.DataValid() {
			validity = "STALE"
		}
		result += fmt.Sprintf("Frame Age:       %8.1f s (%s)\n", age.Seconds(), validity)
	} else {
		result += "Frame Age:            n/a (no valid frame yet)\n"
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", h.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", h.ErrorRate)
	result += "====================================\n"

	return result
}
