// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"fmt"
	"strconv"
	"strings"
)

// Field identifies a decoded telemetry value
type Field int

// Known fields
const (
	FieldBatteryVoltage Field = iota
	FieldPanelVoltage
	FieldPanelPower
	FieldBatteryCurrent
	FieldLoadCurrent
	FieldLoadOutput
	FieldOffReason
	FieldState
	FieldErrorCode
	FieldMaxPowerToday
	FieldYieldToday
	FieldYieldTotal
	FieldTrackerMode
	FieldProductID
	FieldFirmware
	FieldSerialNumber
	FieldYieldYesterday
	FieldMaxPowerYesterday
	FieldDaySequence

	numFields
)

// Rule is the decode rule applied to a field's raw value
type Rule int

// Decode rules
const (
	RuleUnsigned Rule = iota
	RuleSigned
	RuleCode
	RuleBitmask
	RuleOnOff
	RuleText
)

// String returns the rule name
func (r Rule) String() string {
	switch r {
	case RuleUnsigned:
		return "unsigned"
	case RuleSigned:
		return "signed"
	case RuleCode:
		return "code"
	case RuleBitmask:
		return "bitmask"
	case RuleOnOff:
		return "on/off"
	case RuleText:
		return "text"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// FieldSpec describes how one protocol label is decoded
type FieldSpec struct {
	Label string
	Field Field
	Name  string
	Rule  Rule
	Scale float64 // device unit to canonical unit
	Unit  string  // canonical unit
}

// fieldTable is the protocol field catalogue, in the order the controller
// sends its block
var fieldTable = []FieldSpec{
	{LabelProductID, FieldProductID, "product_id", RuleText, 1, ""},
	{LabelFirmware, FieldFirmware, "firmware", RuleText, 1, ""},
	{LabelSerialNumber, FieldSerialNumber, "serial_number", RuleText, 1, ""},
	{LabelBatteryVoltage, FieldBatteryVoltage, "battery_voltage", RuleUnsigned, 0.001, "V"},
	{LabelBatteryCurrent, FieldBatteryCurrent, "battery_current", RuleSigned, 0.001, "A"},
	{LabelPanelVoltage, FieldPanelVoltage, "panel_voltage", RuleUnsigned, 0.001, "V"},
	{LabelPanelPower, FieldPanelPower, "panel_power", RuleUnsigned, 1, "W"},
	{LabelState, FieldState, "state_code", RuleCode, 1, ""},
	{LabelTrackerMode, FieldTrackerMode, "mppt_mode_code", RuleCode, 1, ""},
	{LabelOffReason, FieldOffReason, "off_reason_raw", RuleBitmask, 1, ""},
	{LabelError, FieldErrorCode, "error_code", RuleCode, 1, ""},
	{LabelLoadOutput, FieldLoadOutput, "load_output_on", RuleOnOff, 1, ""},
	{LabelLoadCurrent, FieldLoadCurrent, "load_current", RuleUnsigned, 0.001, "A"},
	{LabelYieldTotal, FieldYieldTotal, "yield_total", RuleUnsigned, 0.01, "kWh"},
	{LabelYieldToday, FieldYieldToday, "yield_today", RuleUnsigned, 0.01, "kWh"},
	{LabelMaxPowerToday, FieldMaxPowerToday, "max_power_today", RuleUnsigned, 1, "W"},
	{LabelYieldYesterday, FieldYieldYesterday, "yield_yesterday", RuleUnsigned, 0.01, "kWh"},
	{LabelMaxPowerYesterday, FieldMaxPowerYesterday, "max_power_yesterday", RuleUnsigned, 1, "W"},
	{LabelDaySequence, FieldDaySequence, "day_sequence", RuleUnsigned, 1, ""},
}

var (
	specsByLabel = map[string]*FieldSpec{}
	specsByField [numFields]*FieldSpec
)

func init() {
	for i := range fieldTable {
		spec := &fieldTable[i]
		specsByLabel[spec.Label] = spec
		specsByField[spec.Field] = spec
	}
}

// LookupLabel returns the field spec for a protocol label
func LookupLabel(label string) (FieldSpec, bool) {
	spec, ok := specsByLabel[label]
	if !ok {
		return FieldSpec{}, false
	}
	return *spec, true
}

// Spec returns the field spec for a known field
func (f Field) Spec() (FieldSpec, bool) {
	if f < 0 || f >= numFields {
		return FieldSpec{}, false
	}
	return *specsByField[f], true
}

// String returns the canonical snake_case name of the field
func (f Field) String() string {
	if spec, ok := f.Spec(); ok {
		return spec.Name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Fields returns every known field in catalogue order
func Fields() []Field {
	fields := make([]Field, 0, len(fieldTable))
	for _, spec := range fieldTable {
		fields = append(fields, spec.Field)
	}
	return fields
}

// decodedValue is one field value after its rule has been applied
type decodedValue struct {
	number float64
	text   string
}

// decodeField applies a field's rule and scale to a raw value
func decodeField(spec *FieldSpec, raw string) (decodedValue, error) {
	fail := func(err error) (decodedValue, error) {
		return decodedValue{}, &FieldError{Label: spec.Label, Value: raw, Rule: spec.Rule, Err: err}
	}

	switch spec.Rule {
	case RuleUnsigned, RuleCode:
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fail(err)
		}
		return decodedValue{number: float64(n) * spec.Scale}, nil

	case RuleSigned:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return fail(err)
		}
		return decodedValue{number: float64(n) * spec.Scale}, nil

	case RuleBitmask:
		n, err := parseBitmask(raw)
		if err != nil {
			return fail(err)
		}
		return decodedValue{number: float64(n)}, nil

	case RuleOnOff:
		switch strings.ToUpper(raw) {
		case "ON":
			return decodedValue{number: 1, text: "ON"}, nil
		case "OFF":
			return decodedValue{number: 0, text: "OFF"}, nil
		}
		return fail(fmt.Errorf("expected ON or OFF"))

	case RuleText:
		if raw == "" {
			return fail(fmt.Errorf("empty value"))
		}
		return decodedValue{text: raw}, nil
	}

	return fail(fmt.Errorf("unsupported rule %s", spec.Rule))
}

// parseBitmask accepts 0x-prefixed hex (as sent by the controller) or decimal
func parseBitmask(raw string) (uint64, error) {
	if len(raw) > 2 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		return strconv.ParseUint(raw[2:], 16, 32)
	}
	return strconv.ParseUint(raw, 10, 32)
}
