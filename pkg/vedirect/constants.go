// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package vedirect decodes the VE.Direct text protocol streamed by solar MPPT
// charge controllers.
//
// The controller sends a block of Label<TAB>Value lines roughly once per
// second. Each block ends with a "Checksum" field whose single value byte
// makes the modulo-256 sum of every byte in the block zero. This package
// splits the raw byte stream into lines, validates blocks, decodes the known
// fields into canonical units, derives power figures and tracks frame health.
//
// The package does no I/O. Feed it bytes from any transport and poll the
// resulting Report.
package vedirect

import "time"

// Protocol framing bytes
const (
	LineTerminator = '\n'
	CarriageReturn = '\r'
	FieldSeparator = '\t'
	HexMarker      = ':'
)

// ChecksumLabel is the label of the terminal field of every frame.
const ChecksumLabel = "Checksum"

// Buffer and timing limits
const (
	// MaxLineLength bounds a single Label<TAB>Value line, excluding CR/LF.
	// Victron recommends 9 bytes of label and 33 bytes of value.
	MaxLineLength = 96

	// NominalInterval is the controller's block reporting period.
	NominalInterval = time.Second

	// DefaultStalenessMultiple scales NominalInterval into the staleness
	// threshold.
	DefaultStalenessMultiple = 10
)

// Field labels
const (
	LabelBatteryVoltage    = "V"
	LabelPanelVoltage      = "VPV"
	LabelPanelPower        = "PPV"
	LabelBatteryCurrent    = "I"
	LabelLoadCurrent       = "IL"
	LabelLoadOutput        = "LOAD"
	LabelOffReason         = "OR"
	LabelState             = "CS"
	LabelError             = "ERR"
	LabelMaxPowerToday     = "H21"
	LabelYieldToday        = "H20"
	LabelYieldTotal        = "H19"
	LabelTrackerMode       = "MPPT"
	LabelProductID         = "PID"
	LabelFirmware          = "FW"
	LabelSerialNumber      = "SER#"
	LabelYieldYesterday    = "H22"
	LabelMaxPowerYesterday = "H23"
	LabelDaySequence       = "HSDS"
)

// Decoder states (internal)
const (
	stateAwaitingLine = iota
	stateInLine
	stateChecksumValue
	stateHexMessage
	stateDiscarding
)

// State represents the charger operating state reported in CS
type State int

// Operating state values
const (
	StateOff                State = 0
	StateLowPower           State = 1
	StateFault              State = 2
	StateBulk               State = 3
	StateAbsorption         State = 4
	StateFloat              State = 5
	StateStorage            State = 6
	StateEqualize           State = 7
	StateInverting          State = 9
	StatePowerSupply        State = 11
	StateStartingUp         State = 245
	StateRepeatedAbsorption State = 246
	StateAutoEqualize       State = 247
	StateBatterySafe        State = 248
	StateExternalControl    State = 252
)

// ErrorCode represents the charger error reported in ERR
type ErrorCode int

// Error code values
const (
	ErrorNone                   ErrorCode = 0
	ErrorBatteryVoltageHigh     ErrorCode = 2
	ErrorRemoteTempSensor       ErrorCode = 3
	ErrorRemoteTempSensorShort  ErrorCode = 4
	ErrorRemoteTempSensorLost   ErrorCode = 5
	ErrorRemoteVoltageSense     ErrorCode = 6
	ErrorRemoteVoltageSenseLow  ErrorCode = 7
	ErrorRemoteVoltageSenseLost ErrorCode = 8
	ErrorBatteryHighRipple      ErrorCode = 11
	ErrorBatteryTempLow         ErrorCode = 14
	ErrorChargerTempHigh        ErrorCode = 17
	ErrorChargerOverCurrent     ErrorCode = 18
	ErrorChargerCurrentReversed ErrorCode = 19
	ErrorBulkTimeLimit          ErrorCode = 20
	ErrorCurrentSensor          ErrorCode = 21
	ErrorTerminalsOverheated    ErrorCode = 26
	ErrorConverter              ErrorCode = 28
	ErrorInputVoltageHigh       ErrorCode = 33
	ErrorInputCurrentHigh       ErrorCode = 34
	ErrorInputShutdownBattery   ErrorCode = 38
	ErrorInputShutdownOffMode   ErrorCode = 39
	ErrorCommunicationLost      ErrorCode = 65
	ErrorSyncChargingConfig     ErrorCode = 66
	ErrorBMSConnectionLost      ErrorCode = 67
	ErrorNetworkMisconfigured   ErrorCode = 68
	ErrorCalibrationLost        ErrorCode = 116
	ErrorInvalidFirmware        ErrorCode = 117
	ErrorUserSettingsInvalid    ErrorCode = 119
)

// OffReason is the OR bitmask describing why the charger output is off
type OffReason uint32

// Off-reason bits
const (
	OffReasonNoInputPower       OffReason = 0x00000001
	OffReasonPowerSwitch        OffReason = 0x00000002
	OffReasonDeviceMode         OffReason = 0x00000004
	OffReasonRemoteInput        OffReason = 0x00000008
	OffReasonProtection         OffReason = 0x00000010
	OffReasonPaygo              OffReason = 0x00000020
	OffReasonBMS                OffReason = 0x00000040
	OffReasonEngineShutdown     OffReason = 0x00000080
	OffReasonAnalysingInputVolt OffReason = 0x00000100
)

// TrackerMode represents the MPPT operating mode
type TrackerMode int

// Tracker mode values
const (
	TrackerOff     TrackerMode = 0
	TrackerLimited TrackerMode = 1
	TrackerActive  TrackerMode = 2
)
