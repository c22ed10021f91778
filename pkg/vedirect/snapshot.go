// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

// Snapshot holds the latest known value of every decoded field. Each field is
// independently present or absent. Snapshot is a value type; copies never
// share state.
type Snapshot struct {
	present uint32
	numbers [numFields]float64
	texts   [numFields]string
}

// Has reports whether a field has been decoded
func (s Snapshot) Has(f Field) bool {
	if f < 0 || f >= numFields {
		return false
	}
	return s.present&(1<<uint(f)) != 0
}

// Len returns the number of present fields
func (s Snapshot) Len() int {
	n := 0
	for f := Field(0); f < numFields; f++ {
		if s.Has(f) {
			n++
		}
	}
	return n
}

func (s *Snapshot) set(f Field, v decodedValue) {
	s.present |= 1 << uint(f)
	s.numbers[f] = v.number
	s.texts[f] = v.text
}

// merge copies every field present in other over s
func (s *Snapshot) merge(other Snapshot) {
	for f := Field(0); f < numFields; f++ {
		if other.Has(f) {
			s.set(f, decodedValue{number: other.numbers[f], text: other.texts[f]})
		}
	}
}

// Value returns the numeric view of a field in canonical units. Codes and
// bitmasks are returned as their integer value and the load output as 1/0.
// Text-only fields have no numeric view.
func (s Snapshot) Value(f Field) (float64, bool) {
	if !s.Has(f) {
		return 0, false
	}
	if spec := specsByField[f]; spec.Rule == RuleText {
		return 0, false
	}
	return s.numbers[f], true
}

// Text returns the textual view of a field: lookup-table text for codes,
// joined reasons for the off-reason mask, ON/OFF for the load output and the
// raw value for text fields. Plain measurements have no textual view.
func (s Snapshot) Text(f Field) (string, bool) {
	if !s.Has(f) {
		return "", false
	}
	switch f {
	case FieldState:
		return State(s.numbers[f]).String(), true
	case FieldErrorCode:
		return ErrorCode(s.numbers[f]).String(), true
	case FieldTrackerMode:
		return TrackerMode(s.numbers[f]).String(), true
	case FieldOffReason:
		return OffReason(s.numbers[f]).String(), true
	case FieldLoadOutput:
		return LoadOutputText(s.numbers[f] != 0), true
	}
	if specsByField[f].Rule == RuleText {
		return s.texts[f], true
	}
	return "", false
}

// BatteryVoltage returns the battery voltage in volts
func (s Snapshot) BatteryVoltage() (float64, bool) { return s.Value(FieldBatteryVoltage) }

// PanelVoltage returns the panel voltage in volts
func (s Snapshot) PanelVoltage() (float64, bool) { return s.Value(FieldPanelVoltage) }

// PanelPower returns the panel power in watts
func (s Snapshot) PanelPower() (float64, bool) { return s.Value(FieldPanelPower) }

// BatteryCurrent returns the battery current in amps, positive when charging
func (s Snapshot) BatteryCurrent() (float64, bool) { return s.Value(FieldBatteryCurrent) }

// LoadCurrent returns the load output current in amps
func (s Snapshot) LoadCurrent() (float64, bool) { return s.Value(FieldLoadCurrent) }

// MaxPowerToday returns today's peak power in watts
func (s Snapshot) MaxPowerToday() (float64, bool) { return s.Value(FieldMaxPowerToday) }

// YieldToday returns today's yield in kWh
func (s Snapshot) YieldToday() (float64, bool) { return s.Value(FieldYieldToday) }

// YieldTotal returns the resettable total yield in kWh
func (s Snapshot) YieldTotal() (float64, bool) { return s.Value(FieldYieldTotal) }

// YieldYesterday returns yesterday's yield in kWh
func (s Snapshot) YieldYesterday() (float64, bool) { return s.Value(FieldYieldYesterday) }

// MaxPowerYesterday returns yesterday's peak power in watts
func (s Snapshot) MaxPowerYesterday() (float64, bool) { return s.Value(FieldMaxPowerYesterday) }

// LoadOutputOn returns the load output state
func (s Snapshot) LoadOutputOn() (bool, bool) {
	v, ok := s.Value(FieldLoadOutput)
	return v != 0, ok
}

// OffReason returns the raw off-reason bitmask
func (s Snapshot) OffReason() (OffReason, bool) {
	v, ok := s.Value(FieldOffReason)
	return OffReason(v), ok
}

// State returns the operating state code
func (s Snapshot) State() (State, bool) {
	v, ok := s.Value(FieldState)
	return State(v), ok
}

// ErrorCode returns the charger error code
func (s Snapshot) ErrorCode() (ErrorCode, bool) {
	v, ok := s.Value(FieldErrorCode)
	return ErrorCode(v), ok
}

// TrackerMode returns the MPPT operating mode code
func (s Snapshot) TrackerMode() (TrackerMode, bool) {
	v, ok := s.Value(FieldTrackerMode)
	return TrackerMode(v), ok
}

// DaySequence returns the historical day sequence number
func (s Snapshot) DaySequence() (int, bool) {
	v, ok := s.Value(FieldDaySequence)
	return int(v), ok
}

// ProductID returns the raw product identifier, e.g. 0xA053
func (s Snapshot) ProductID() (string, bool) { return s.Text(FieldProductID) }

// Firmware returns the firmware version string
func (s Snapshot) Firmware() (string, bool) { return s.Text(FieldFirmware) }

// SerialNumber returns the device serial number
func (s Snapshot) SerialNumber() (string, bool) { return s.Text(FieldSerialNumber) }
