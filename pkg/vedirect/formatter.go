// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"fmt"
	"strings"
)

// FormatFrame formats an accepted frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] FRAME fields=%d checksum=0x%02X\n", timestamp, f.Len(), f.checksum)
	result += FormatSnapshot(f.values)

	if unknown := f.UnknownLabels(); len(unknown) > 0 {
		parts := make([]string, 0, len(unknown))
		for _, label := range unknown {
			parts = append(parts, fmt.Sprintf("%s=%s", label, f.fields[label]))
		}
		result += fmt.Sprintf("  Unknown: %s\n", strings.Join(parts, ", "))
	}

	return result
}

// FormatSnapshot formats the present fields of a snapshot, one group per line
func FormatSnapshot(s Snapshot) string {
	var b strings.Builder

	if pid, ok := s.ProductID(); ok {
		fw, _ := s.Firmware()
		ser, _ := s.SerialNumber()
		fmt.Fprintf(&b, "  Device: PID=%s FW=%s SER#=%s\n", pid, fw, ser)
	}

	battery := []string{}
	if v, ok := s.BatteryVoltage(); ok {
		battery = append(battery, fmt.Sprintf("%.3f V", v))
	}
	if i, ok := s.BatteryCurrent(); ok {
		battery = append(battery, fmt.Sprintf("%.3f A", i))
	}
	if len(battery) > 0 {
		fmt.Fprintf(&b, "  Battery: %s\n", strings.Join(battery, ", "))
	}

	panel := []string{}
	if v, ok := s.PanelVoltage(); ok {
		panel = append(panel, fmt.Sprintf("%.3f V", v))
	}
	if p, ok := s.PanelPower(); ok {
		panel = append(panel, fmt.Sprintf("%.0f W", p))
	}
	if len(panel) > 0 {
		fmt.Fprintf(&b, "  Panel: %s\n", strings.Join(panel, ", "))
	}

	if state, ok := s.State(); ok {
		fmt.Fprintf(&b, "  State: %s (%d)", state, int(state))
		if mode, ok := s.TrackerMode(); ok {
			fmt.Fprintf(&b, ", MPPT: %s (%d)", mode, int(mode))
		}
		if code, ok := s.ErrorCode(); ok {
			fmt.Fprintf(&b, ", Error: %s (%d)", code, int(code))
		}
		b.WriteString("\n")
	}

	load := []string{}
	if on, ok := s.LoadOutputOn(); ok {
		load = append(load, LoadOutputText(on))
	}
	if il, ok := s.LoadCurrent(); ok {
		load = append(load, fmt.Sprintf("%.3f A", il))
	}
	if or, ok := s.OffReason(); ok {
		load = append(load, fmt.Sprintf("Off reason: %s (0x%08X)", or, uint32(or)))
	}
	if len(load) > 0 {
		fmt.Fprintf(&b, "  Load: %s\n", strings.Join(load, ", "))
	}

	yield := []string{}
	if y, ok := s.YieldToday(); ok {
		yield = append(yield, fmt.Sprintf("today %.2f kWh", y))
	}
	if p, ok := s.MaxPowerToday(); ok {
		yield = append(yield, fmt.Sprintf("peak %.0f W", p))
	}
	if y, ok := s.YieldYesterday(); ok {
		yield = append(yield, fmt.Sprintf("yesterday %.2f kWh", y))
	}
	if y, ok := s.YieldTotal(); ok {
		yield = append(yield, fmt.Sprintf("total %.2f kWh", y))
	}
	if len(yield) > 0 {
		fmt.Fprintf(&b, "  Yield: %s\n", strings.Join(yield, ", "))
	}

	return b.String()
}

// FormatDerived formats the derived metrics that are present
func FormatDerived(d Derived) string {
	parts := []string{}
	if p, ok := d.BatteryPower(); ok {
		parts = append(parts, fmt.Sprintf("battery %.1f W", p))
	}
	if p, ok := d.LoadPower(); ok {
		parts = append(parts, fmt.Sprintf("load %.1f W", p))
	}
	if e, ok := d.PVEfficiency(); ok {
		parts = append(parts, fmt.Sprintf("efficiency %.1f%%", e))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("  Derived: %s\n", strings.Join(parts, ", "))
}

// FormatReport formats a combined report including health
func FormatReport(r Report) string {
	result := FormatSnapshot(r.Snapshot)
	result += FormatDerived(r.Derived)

	h := r.Health
	age := "n/a"
	if h.HasFrameAge {
		age = fmt.Sprintf("%.1f s", h.FrameAge.Seconds())
	}
	valid := "STALE"
	if h.DataValid {
		valid = "valid"
	}
	result += fmt.Sprintf("  Health: ok=%d bad=%d age=%s data=%s\n", h.FramesOK, h.FramesBad, age, valid)
	return result
}
