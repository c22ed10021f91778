// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"fmt"
	"strings"
)

// AnomalyType represents different types of implausible telemetry
type AnomalyType int

const (
	AnomalyVoltageRange AnomalyType = iota
	AnomalyCurrentRange
	AnomalyPowerRange
	AnomalyInconsistent
	AnomalyUnknownCode
)

// Plausibility limits, sized for the largest controllers in the family
const (
	maxBatteryVoltage = 70.0   // V, 48 V systems at equalization
	maxPanelVoltage   = 250.0  // V
	maxBatteryCurrent = 100.0  // A
	maxPanelPower     = 6000.0 // W
)

// ValidationError represents one implausible value in an accepted frame.
// Validation is diagnostic only; it never rejects a frame.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks an accepted frame's values for anomalies
// Returns a slice of validation errors (empty if the frame is plausible)
func ValidateFrame(f *Frame) []ValidationError {
	s := f.Snapshot()
	errors := []ValidationError{}

	errors = append(errors, validateRanges(s)...)
	errors = append(errors, validateConsistency(s)...)
	errors = append(errors, validateCodes(s)...)

	return errors
}

// validateRanges checks measurements against physical limits
func validateRanges(s Snapshot) []ValidationError {
	errors := []ValidationError{}

	if v, ok := s.BatteryVoltage(); ok && v > maxBatteryVoltage {
		errors = append(errors, ValidationError{
			Type:    AnomalyVoltageRange,
			Message: fmt.Sprintf("Battery voltage out of range (%.2f V, max %.0f V)", v, maxBatteryVoltage),
			Details: map[string]interface{}{"value": v, "max": maxBatteryVoltage},
		})
	}

	if v, ok := s.PanelVoltage(); ok && v > maxPanelVoltage {
		errors = append(errors, ValidationError{
			Type:    AnomalyVoltageRange,
			Message: fmt.Sprintf("Panel voltage out of range (%.2f V, max %.0f V)", v, maxPanelVoltage),
			Details: map[string]interface{}{"value": v, "max": maxPanelVoltage},
		})
	}

	if i, ok := s.BatteryCurrent(); ok && (i > maxBatteryCurrent || i < -maxBatteryCurrent) {
		errors = append(errors, ValidationError{
			Type:    AnomalyCurrentRange,
			Message: fmt.Sprintf("Battery current out of range (%.3f A, limit ±%.0f A)", i, maxBatteryCurrent),
			Details: map[string]interface{}{"value": i, "max": maxBatteryCurrent},
		})
	}

	if p, ok := s.PanelPower(); ok && p > maxPanelPower {
		errors = append(errors, ValidationError{
			Type:    AnomalyPowerRange,
			Message: fmt.Sprintf("Panel power out of range (%.0f W, max %.0f W)", p, maxPanelPower),
			Details: map[string]interface{}{"value": p, "max": maxPanelPower},
		})
	}

	return errors
}

// validateConsistency checks values that constrain each other
func validateConsistency(s Snapshot) []ValidationError {
	errors := []ValidationError{}

	ppv, hasPPV := s.PanelPower()
	vpv, hasVPV := s.PanelVoltage()
	if hasPPV && hasVPV && ppv > 0 && vpv == 0 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInconsistent,
			Message: fmt.Sprintf("Panel power %.0f W with zero panel voltage", ppv),
			Details: map[string]interface{}{"panel_power": ppv, "panel_voltage": vpv},
		})
	}

	today, hasToday := s.YieldToday()
	total, hasTotal := s.YieldTotal()
	if hasToday && hasTotal && today > total {
		errors = append(errors, ValidationError{
			Type:    AnomalyInconsistent,
			Message: fmt.Sprintf("Yield today (%.2f kWh) exceeds total yield (%.2f kWh)", today, total),
			Details: map[string]interface{}{"yield_today": today, "yield_total": total},
		})
	}

	return errors
}

// validateCodes flags codes that the lookup tables do not know
func validateCodes(s Snapshot) []ValidationError {
	errors := []ValidationError{}

	for _, f := range []Field{FieldState, FieldErrorCode, FieldTrackerMode} {
		text, ok := s.Text(f)
		if !ok || !strings.HasPrefix(text, "Unknown(") {
			continue
		}
		code, _ := s.Value(f)
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownCode,
			Message: fmt.Sprintf("Unmapped %s=%d", f, int(code)),
			Details: map[string]interface{}{"field": f.String(), "code": int(code)},
		})
	}

	return errors
}
