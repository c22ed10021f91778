// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"fmt"
	"strings"
)

// unknownCode renders a code that has no table entry
func unknownCode(code int64) string {
	return fmt.Sprintf("Unknown(%d)", code)
}

// String returns the human-readable name for an operating state
func (s State) String() string {
	switch s {
	case StateOff:
		return "Off"
	case StateLowPower:
		return "Low power"
	case StateFault:
		return "Fault"
	case StateBulk:
		return "Bulk"
	case StateAbsorption:
		return "Absorption"
	case StateFloat:
		return "Float"
	case StateStorage:
		return "Storage"
	case StateEqualize:
		return "Equalize (manual)"
	case StateInverting:
		return "Inverting"
	case StatePowerSupply:
		return "Power supply"
	case StateStartingUp:
		return "Starting-up"
	case StateRepeatedAbsorption:
		return "Repeated absorption"
	case StateAutoEqualize:
		return "Auto equalize / Recondition"
	case StateBatterySafe:
		return "BatterySafe"
	case StateExternalControl:
		return "External control"
	default:
		return unknownCode(int64(s))
	}
}

// String returns the human-readable description of an error code
func (e ErrorCode) String() string {
	switch e {
	case ErrorNone:
		return "No error"
	case ErrorBatteryVoltageHigh:
		return "Battery voltage too high"
	case ErrorRemoteTempSensor:
		return "Remote temperature sensor failure"
	case ErrorRemoteTempSensorShort:
		return "Remote temperature sensor failure (short)"
	case ErrorRemoteTempSensorLost:
		return "Remote temperature sensor failure (connection lost)"
	case ErrorRemoteVoltageSense:
		return "Remote battery voltage sense failure"
	case ErrorRemoteVoltageSenseLow:
		return "Remote battery voltage sense failure (low)"
	case ErrorRemoteVoltageSenseLost:
		return "Remote battery voltage sense failure (connection lost)"
	case ErrorBatteryHighRipple:
		return "Battery high ripple voltage"
	case ErrorBatteryTempLow:
		return "Battery temperature too low"
	case ErrorChargerTempHigh:
		return "Charger temperature too high"
	case ErrorChargerOverCurrent:
		return "Charger over current"
	case ErrorChargerCurrentReversed:
		return "Charger current reversed"
	case ErrorBulkTimeLimit:
		return "Bulk time limit exceeded"
	case ErrorCurrentSensor:
		return "Current sensor issue"
	case ErrorTerminalsOverheated:
		return "Terminals overheated"
	case ErrorConverter:
		return "Converter issue"
	case ErrorInputVoltageHigh:
		return "Input voltage too high (solar panel)"
	case ErrorInputCurrentHigh:
		return "Input current too high (solar panel)"
	case ErrorInputShutdownBattery:
		return "Input shutdown (excessive battery voltage)"
	case ErrorInputShutdownOffMode:
		return "Input shutdown (current flow during off mode)"
	case ErrorCommunicationLost:
		return "Communication error (lost connection with device)"
	case ErrorSyncChargingConfig:
		return "Synchronised charging device configuration issue"
	case ErrorBMSConnectionLost:
		return "BMS connection lost"
	case ErrorNetworkMisconfigured:
		return "Network misconfigured"
	case ErrorCalibrationLost:
		return "Factory calibration data lost"
	case ErrorInvalidFirmware:
		return "Invalid/incompatible firmware"
	case ErrorUserSettingsInvalid:
		return "User settings invalid"
	default:
		return unknownCode(int64(e))
	}
}

// offReasonNames is ordered by bit position so joined names are stable
var offReasonNames = []struct {
	bit  OffReason
	name string
}{
	{OffReasonNoInputPower, "No input power"},
	{OffReasonPowerSwitch, "Switched off (power switch)"},
	{OffReasonDeviceMode, "Switched off (device mode)"},
	{OffReasonRemoteInput, "Remote input"},
	{OffReasonProtection, "Protection active"},
	{OffReasonPaygo, "Paygo"},
	{OffReasonBMS, "BMS"},
	{OffReasonEngineShutdown, "Engine shutdown detection"},
	{OffReasonAnalysingInputVolt, "Analysing input voltage"},
}

// Reasons returns the names of every active bit. Bits without a name are
// reported as Unknown(0x...) so no bit is silently dropped.
func (o OffReason) Reasons() []string {
	reasons := []string{}
	remaining := o
	for _, entry := range offReasonNames {
		if o&entry.bit != 0 {
			reasons = append(reasons, entry.name)
			remaining &^= entry.bit
		}
	}
	if remaining != 0 {
		reasons = append(reasons, fmt.Sprintf("Unknown(0x%X)", uint32(remaining)))
	}
	return reasons
}

// String joins the active off reasons; zero means the output is enabled
func (o OffReason) String() string {
	if o == 0 {
		return "None"
	}
	return strings.Join(o.Reasons(), ", ")
}

// String returns the human-readable name for a tracker mode
func (m TrackerMode) String() string {
	switch m {
	case TrackerOff:
		return "Off"
	case TrackerLimited:
		return "Voltage/current limited"
	case TrackerActive:
		return "MPP Tracker active"
	default:
		return unknownCode(int64(m))
	}
}

// LoadOutputText renders the LOAD field the way the controller sends it
func LoadOutputText(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
