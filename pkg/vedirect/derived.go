// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

// Derived holds power figures computed from a single accepted frame
type Derived struct {
	batteryPower    float64
	loadPower       float64
	pvEfficiency    float64
	hasBatteryPower bool
	hasLoadPower    bool
	hasPVEfficiency bool
}

// ComputeDerived computes derived metrics from the fields of one frame.
// Inputs are never mixed across frames, so a missing input suppresses the
// value instead of reusing an older reading.
func ComputeDerived(s Snapshot) Derived {
	var d Derived

	v, hasV := s.BatteryVoltage()
	i, hasI := s.BatteryCurrent()
	if hasV && hasI {
		d.batteryPower = v * i
		d.hasBatteryPower = true
	}

	if il, ok := s.LoadCurrent(); hasV && ok {
		d.loadPower = v * il
		d.hasLoadPower = true
	}

	if ppv, ok := s.PanelPower(); ok && d.hasBatteryPower {
		d.pvEfficiency = pvEfficiency(d.batteryPower, ppv)
		d.hasPVEfficiency = true
	}

	return d
}

// pvEfficiency is the share of panel power reaching the battery, in percent
func pvEfficiency(batteryPower, panelPower float64) float64 {
	if panelPower <= 0 {
		return 0
	}
	charging := batteryPower
	if charging < 0 {
		charging = 0
	}
	return clamp(charging/panelPower*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BatteryPower returns V×I in watts, positive when charging
func (d Derived) BatteryPower() (float64, bool) {
	return d.batteryPower, d.hasBatteryPower
}

// LoadPower returns V×IL in watts
func (d Derived) LoadPower() (float64, bool) {
	return d.loadPower, d.hasLoadPower
}

// PVEfficiency returns the charging power as a percentage of panel power
func (d Derived) PVEfficiency() (float64, bool) {
	return d.pvEfficiency, d.hasPVEfficiency
}
