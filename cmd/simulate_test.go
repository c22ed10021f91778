// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"math/bits"
	"math/rand"
	"testing"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
)

func TestGenerator_FramesDecode(t *testing.T) {
	gen := newGenerator(42, 20)
	monitor := vedirect.NewMonitor()

	sawNight, sawDay := false, false
	for i := 0; i < 40; i++ {
		frames, err := monitor.Feed(vedirect.MustEncodeFrame(gen.Next()))
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if len(frames) != 1 {
			t.Fatalf("frame %d: expected 1 accepted frame, got %d", i, len(frames))
		}

		s := frames[0].Snapshot()
		power, ok := s.PanelPower()
		if !ok {
			t.Fatalf("frame %d: PPV missing", i)
		}
		reason, _ := s.OffReason()
		if power == 0 {
			sawNight = true
			if reason&vedirect.OffReasonNoInputPower == 0 {
				t.Errorf("frame %d: no PV power but off reason 0x%08X", i, uint32(reason))
			}
		} else {
			sawDay = true
		}

		if anomalies := vedirect.ValidateFrame(frames[0]); len(anomalies) > 0 {
			t.Errorf("frame %d: unexpected anomalies: %v", i, anomalies)
		}
	}

	if !sawNight || !sawDay {
		t.Errorf("expected both night and day frames (night=%v day=%v)", sawNight, sawDay)
	}
	if got := monitor.Health().FramesOK; got != 40 {
		t.Errorf("FramesOK = %d, want 40", got)
	}
}

func TestGenerator_DayRollover(t *testing.T) {
	gen := newGenerator(7, 10)
	for i := 0; i < 10; i++ {
		gen.Next()
	}
	monitor := vedirect.NewMonitor()
	if _, err := monitor.Feed(vedirect.MustEncodeFrame(gen.Next())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	day, ok := monitor.Snapshot().DaySequence()
	if !ok || day != 1 {
		t.Errorf("DaySequence = %d (ok=%v), want 1", day, ok)
	}
	if yield, _ := monitor.Snapshot().YieldToday(); yield != 0 {
		t.Errorf("YieldToday after rollover = %v, want 0", yield)
	}
}

func TestCorruptFrame(t *testing.T) {
	gen := newGenerator(1, 20)
	good := vedirect.MustEncodeFrame(gen.Next())
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 500; i++ {
		bad := corruptFrame(rng, good)

		diff := 0
		for j := range bad {
			diff += bits.OnesCount8(bad[j] ^ good[j])
		}
		if diff != 1 {
			t.Fatalf("round %d: expected exactly 1 flipped bit, got %d", i, diff)
		}

		monitor := vedirect.NewMonitor()
		frames, _ := monitor.Feed(bad)
		if len(frames) != 0 {
			t.Fatalf("round %d: corrupted frame was accepted", i)
		}
	}

	if !bytes.Equal(good, vedirect.MustEncodeFrame(newGenerator(1, 20).Next())) {
		t.Error("corruptFrame modified its input")
	}
}

func TestSimulatedStream_WithHexMessages(t *testing.T) {
	gen := newGenerator(3, 30)
	var stream []byte
	for i := 0; i < 10; i++ {
		stream = append(stream, vedirect.EncodeHexMessage("A0102000543")...)
		stream = append(stream, vedirect.MustEncodeFrame(gen.Next())...)
	}

	monitor := vedirect.NewMonitor()
	frames, err := monitor.Feed(stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 10 {
		t.Errorf("expected 10 frames, got %d", len(frames))
	}
}
