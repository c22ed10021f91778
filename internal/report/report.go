// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package report turns decoder reports into published readings. It owns the
// catalogue of reading keys and decides which of them are emitted.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
)

// Kind classifies a reading key
type Kind int

// Reading kinds
const (
	KindSensor Kind = iota
	KindText
	KindBinary
)

// String returns the kind name as used in the configuration file
func (k Kind) String() string {
	switch k {
	case KindSensor:
		return "sensor"
	case KindText:
		return "text_sensor"
	case KindBinary:
		return "binary_sensor"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry describes one publishable key
type Entry struct {
	Key  string
	Kind Kind
	Unit string
	Help string

	number func(vedirect.Report) (float64, bool)
	text   func(vedirect.Report) (string, bool)
	binary func(vedirect.Report) (bool, bool)
}

func field(f vedirect.Field) func(vedirect.Report) (float64, bool) {
	return func(r vedirect.Report) (float64, bool) { return r.Snapshot.Value(f) }
}

func fieldText(f vedirect.Field) func(vedirect.Report) (string, bool) {
	return func(r vedirect.Report) (string, bool) { return r.Snapshot.Text(f) }
}

func sensor(key, unit, help string, fn func(vedirect.Report) (float64, bool)) Entry {
	return Entry{Key: key, Kind: KindSensor, Unit: unit, Help: help, number: fn}
}

func textSensor(key, help string, fn func(vedirect.Report) (string, bool)) Entry {
	return Entry{Key: key, Kind: KindText, Help: help, text: fn}
}

func binarySensor(key, help string, fn func(vedirect.Report) (bool, bool)) Entry {
	return Entry{Key: key, Kind: KindBinary, Help: help, binary: fn}
}

var catalogue = []Entry{
	sensor("battery_voltage", "V", "Battery voltage", field(vedirect.FieldBatteryVoltage)),
	sensor("panel_voltage", "V", "Panel voltage", field(vedirect.FieldPanelVoltage)),
	sensor("panel_power", "W", "Panel power", field(vedirect.FieldPanelPower)),
	sensor("battery_current", "A", "Battery current, positive when charging", field(vedirect.FieldBatteryCurrent)),
	sensor("load_current", "A", "Load output current", field(vedirect.FieldLoadCurrent)),
	sensor("off_reason_raw", "", "Off reason bitmask", field(vedirect.FieldOffReason)),
	sensor("state_code", "", "Operating state code", field(vedirect.FieldState)),
	sensor("error_code", "", "Charger error code", field(vedirect.FieldErrorCode)),
	sensor("max_power_today", "W", "Maximum power today", field(vedirect.FieldMaxPowerToday)),
	sensor("yield_today", "kWh", "Yield today", field(vedirect.FieldYieldToday)),
	sensor("yield_total", "kWh", "Resettable total yield", field(vedirect.FieldYieldTotal)),
	sensor("mppt_mode_code", "", "Tracker operation mode code", field(vedirect.FieldTrackerMode)),
	sensor("yield_yesterday", "kWh", "Yield yesterday", field(vedirect.FieldYieldYesterday)),
	sensor("max_power_yesterday", "W", "Maximum power yesterday", field(vedirect.FieldMaxPowerYesterday)),
	sensor("battery_power", "W", "Battery power from the last frame", func(r vedirect.Report) (float64, bool) {
		return r.Derived.BatteryPower()
	}),
	sensor("load_power", "W", "Load power from the last frame", func(r vedirect.Report) (float64, bool) {
		return r.Derived.LoadPower()
	}),
	sensor("pv_efficiency", "%", "Share of panel power reaching the battery", func(r vedirect.Report) (float64, bool) {
		return r.Derived.PVEfficiency()
	}),
	sensor("frame_age", "s", "Seconds since the last good frame", func(r vedirect.Report) (float64, bool) {
		return r.Health.FrameAge.Seconds(), r.Health.HasFrameAge
	}),
	sensor("frames_ok", "", "Accepted frames", func(r vedirect.Report) (float64, bool) {
		return float64(r.Health.FramesOK), true
	}),
	sensor("frames_bad", "", "Rejected frames", func(r vedirect.Report) (float64, bool) {
		return float64(r.Health.FramesBad), true
	}),

	textSensor("off_reason_text", "Off reason", fieldText(vedirect.FieldOffReason)),
	textSensor("state_text", "Operating state", fieldText(vedirect.FieldState)),
	textSensor("error_text", "Charger error", fieldText(vedirect.FieldErrorCode)),
	textSensor("mppt_mode_text", "Tracker operation mode", fieldText(vedirect.FieldTrackerMode)),
	textSensor("load_output_text", "Load output state", fieldText(vedirect.FieldLoadOutput)),
	textSensor("product_id", "Product identifier", fieldText(vedirect.FieldProductID)),
	textSensor("firmware", "Firmware version", fieldText(vedirect.FieldFirmware)),
	textSensor("serial_number", "Serial number", fieldText(vedirect.FieldSerialNumber)),

	binarySensor("load_output_on", "Load output enabled", func(r vedirect.Report) (bool, bool) {
		return r.Snapshot.LoadOutputOn()
	}),
	binarySensor("data_valid", "Last good frame is within the staleness threshold", func(r vedirect.Report) (bool, bool) {
		return r.Health.DataValid, true
	}),
}

var byKey = func() map[string]*Entry {
	m := make(map[string]*Entry, len(catalogue))
	for i := range catalogue {
		m[catalogue[i].Key] = &catalogue[i]
	}
	return m
}()

// Catalogue returns every publishable key in catalogue order
func Catalogue() []Entry {
	entries := make([]Entry, len(catalogue))
	copy(entries, catalogue)
	return entries
}

// Lookup returns the entry for a key
func Lookup(key string) (Entry, bool) {
	e, ok := byKey[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Message is one set of readings as published to sinks
type Message struct {
	Timestamp time.Time          `json:"timestamp" cbor:"timestamp"`
	Sensors   map[string]float64 `json:"sensors,omitempty" cbor:"sensors,omitempty"`
	Text      map[string]string  `json:"text,omitempty" cbor:"text,omitempty"`
	Binary    map[string]bool    `json:"binary,omitempty" cbor:"binary,omitempty"`
}

// Len returns the number of readings in the message
func (m Message) Len() int {
	return len(m.Sensors) + len(m.Text) + len(m.Binary)
}

// Publisher selects the configured keys from each report
type Publisher struct {
	entries []*Entry
	now     func() time.Time
}

// NewPublisher creates a publisher for the given keys. An empty list selects
// every key of that kind. Unknown keys and keys listed under the wrong kind
// are configuration errors.
func NewPublisher(sensors, text, binary []string) (*Publisher, error) {
	p := &Publisher{now: time.Now}
	seen := map[string]bool{}

	add := func(kind Kind, keys []string) error {
		if len(keys) == 0 {
			for i := range catalogue {
				if catalogue[i].Kind == kind && !seen[catalogue[i].Key] {
					seen[catalogue[i].Key] = true
					p.entries = append(p.entries, &catalogue[i])
				}
			}
			return nil
		}
		for _, key := range keys {
			e, ok := byKey[key]
			if !ok {
				return fmt.Errorf("unknown %s key %q", kind, key)
			}
			if e.Kind != kind {
				return fmt.Errorf("key %q is a %s, not a %s", key, e.Kind, kind)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			p.entries = append(p.entries, e)
		}
		return nil
	}

	if err := add(KindSensor, sensors); err != nil {
		return nil, err
	}
	if err := add(KindText, text); err != nil {
		return nil, err
	}
	if err := add(KindBinary, binary); err != nil {
		return nil, err
	}
	return p, nil
}

// Keys returns the selected keys, sorted
func (p *Publisher) Keys() []string {
	keys := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		keys = append(keys, e.Key)
	}
	sort.Strings(keys)
	return keys
}

// Readings returns the selected keys whose values are currently known
func (p *Publisher) Readings(r vedirect.Report) Message {
	msg := Message{Timestamp: p.now()}

	for _, e := range p.entries {
		switch e.Kind {
		case KindSensor:
			if v, ok := e.number(r); ok {
				if msg.Sensors == nil {
					msg.Sensors = map[string]float64{}
				}
				msg.Sensors[e.Key] = v
			}
		case KindText:
			if v, ok := e.text(r); ok {
				if msg.Text == nil {
					msg.Text = map[string]string{}
				}
				msg.Text[e.Key] = v
			}
		case KindBinary:
			if v, ok := e.binary(r); ok {
				if msg.Binary == nil {
					msg.Binary = map[string]bool{}
				}
				msg.Binary[e.Key] = v
			}
		}
	}

	return msg
}
