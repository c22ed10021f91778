// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"errors"
	"time"
)

// Config holds the monitor configuration
type Config struct {
	// MaxLineLength bounds a single line before it is abandoned
	MaxLineLength int

	// NominalInterval is the controller's reporting period
	NominalInterval time.Duration

	// StalenessMultiple scales NominalInterval into the staleness threshold
	StalenessMultiple int

	// StalenessThreshold overrides NominalInterval × StalenessMultiple
	StalenessThreshold time.Duration

	// Clock returns the current time (optional)
	Clock func() time.Time
}

func defaultConfig() Config {
	return Config{
		MaxLineLength:     MaxLineLength,
		NominalInterval:   NominalInterval,
		StalenessMultiple: DefaultStalenessMultiple,
		Clock:             time.Now,
	}
}

// threshold returns the effective staleness threshold
func (c Config) threshold() time.Duration {
	if c.StalenessThreshold > 0 {
		return c.StalenessThreshold
	}
	interval := c.NominalInterval
	if interval <= 0 {
		interval = NominalInterval
	}
	multiple := c.StalenessMultiple
	if multiple <= 0 {
		multiple = DefaultStalenessMultiple
	}
	return interval * time.Duration(multiple)
}

// Option is a functional option for configuring the Monitor
type Option func(*Config)

// WithMaxLineLength sets the line buffer limit
func WithMaxLineLength(n int) Option {
	return func(c *Config) {
		c.MaxLineLength = n
	}
}

// WithNominalInterval sets the controller's reporting period
func WithNominalInterval(d time.Duration) Option {
	return func(c *Config) {
		c.NominalInterval = d
	}
}

// WithStalenessMultiple sets how many reporting periods may pass before data
// is considered stale
func WithStalenessMultiple(n int) Option {
	return func(c *Config) {
		c.StalenessMultiple = n
	}
}

// WithStalenessThreshold sets an absolute staleness threshold
func WithStalenessThreshold(d time.Duration) Option {
	return func(c *Config) {
		c.StalenessThreshold = d
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// Report is the combined snapshot handed to the reporting layer
type Report struct {
	Snapshot Snapshot
	Derived  Derived
	Health   HealthStatus
	Updated  time.Time // close time of the last accepted frame
}

// Monitor owns one decoder and the state derived from its accepted frames.
// It is not safe for concurrent use; hand Report copies to other goroutines.
type Monitor struct {
	decoder  *Decoder
	snapshot Snapshot
	derived  Derived
	health   *Health
	updated  time.Time
	pending  bool
}

// NewMonitor creates a monitor
func NewMonitor(opts ...Option) *Monitor {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	decoder := NewDecoderSize(cfg.MaxLineLength)
	decoder.now = cfg.Clock

	return &Monitor{
		decoder: decoder,
		health:  NewHealth(cfg.threshold(), cfg.Clock),
	}
}

// DecodeByte feeds one byte. Returns the accepted frame, if this byte closed
// one, and any rejection or overflow error.
func (m *Monitor) DecodeByte(b byte) (*Frame, error) {
	frame, err := m.decoder.DecodeByte(b)
	switch {
	case errors.Is(err, ErrLineOverflow):
		m.health.RecordOverflow()
	case err != nil:
		m.health.Record(err)
	case frame != nil:
		m.accept(frame)
	}
	return frame, err
}

// Feed decodes a chunk of the byte stream and returns the accepted frames
// together with the joined rejection and overflow errors
func (m *Monitor) Feed(p []byte) ([]*Frame, error) {
	var frames []*Frame
	var errs []error
	for _, b := range p {
		frame, err := m.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames, errors.Join(errs...)
}

// accept commits a good frame: health first, then snapshot and derived values
func (m *Monitor) accept(frame *Frame) {
	m.health.Record(nil)
	values := frame.Snapshot()
	m.snapshot.merge(values)
	m.derived = ComputeDerived(values)
	m.updated = frame.Timestamp()
	m.pending = true
}

// Snapshot returns the latest known decoded values
func (m *Monitor) Snapshot() Snapshot {
	return m.snapshot
}

// Derived returns the metrics of the last accepted frame
func (m *Monitor) Derived() Derived {
	return m.derived
}

// Health returns the health tracker
func (m *Monitor) Health() *Health {
	return m.health
}

// DecoderStats returns the stream-level counters
func (m *Monitor) DecoderStats() DecoderStats {
	return m.decoder.Stats()
}

// Report returns the combined snapshot with health evaluated now
func (m *Monitor) Report() Report {
	return Report{
		Snapshot: m.snapshot,
		Derived:  m.derived,
		Health:   m.health.Status(),
		Updated:  m.updated,
	}
}

// TakeUpdate returns the report and true once after each accepted frame
func (m *Monitor) TakeUpdate() (Report, bool) {
	if !m.pending {
		return Report{}, false
	}
	m.pending = false
	return m.Report(), true
}
