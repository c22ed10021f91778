// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

// ============================================================
// Test Helpers
// ============================================================

// sampleLines is a block as sent by a SmartSolar 100/20 in bulk charge
func sampleLines() []Line {
	return []Line{
		{"PID", "0xA053"},
		{"FW", "159"},
		{"SER#", "HQ1234ABCDE"},
		{"V", "12800"},
		{"I", "2000"},
		{"VPV", "18500"},
		{"PPV", "30"},
		{"CS", "3"},
		{"MPPT", "2"},
		{"OR", "0x00000000"},
		{"ERR", "0"},
		{"LOAD", "ON"},
		{"IL", "300"},
		{"H19", "12345"},
		{"H20", "45"},
		{"H21", "120"},
		{"H22", "50"},
		{"H23", "130"},
		{"HSDS", "17"},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// decodeAll feeds data byte by byte and collects frames and errors
func decodeAll(d *Decoder, data []byte) ([]*Frame, []error) {
	var frames []*Frame
	var errs []error
	for _, b := range data {
		frame, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames, errs
}

// withLine returns sampleLines with one label's value replaced
func withLine(label, value string) []Line {
	lines := sampleLines()
	for i := range lines {
		if lines[i].Label == label {
			lines[i].Value = value
			return lines
		}
	}
	return append(lines, Line{label, value})
}

// ============================================================
// Checksum Tests
// ============================================================

func TestChecksumFor(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{"empty data", []byte{}, 0x00},
		{"single byte", []byte{0x01}, 0xFF},
		{"multiple bytes", []byte{0x01, 0x02, 0x03, 0x04}, 0xF6},
		{"wraps", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0x04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChecksumFor(tt.data); got != tt.expected {
				t.Errorf("ChecksumFor() = 0x%02X, want 0x%02X", got, tt.expected)
			}
		})
	}
}

func TestEncodedFrameSumsToZero(t *testing.T) {
	frame := MustEncodeFrame(sampleLines())

	var c Checksum
	c.Write(frame)
	if !c.Valid() {
		t.Errorf("Encoded frame sum = 0x%02X, want 0", c.Sum())
	}
	if !bytes.HasPrefix(frame, []byte("\r\nPID\t0xA053")) {
		t.Errorf("Frame should start with CR LF and the first field, got %q", frame[:12])
	}
	if !bytes.Contains(frame, []byte("\r\nChecksum\t")) {
		t.Error("Frame should end with the Checksum field")
	}
}

func TestEncodeFrame_RejectsFramingBytes(t *testing.T) {
	bad := [][]Line{
		{{"", "1"}},
		{{"Checksum", "1"}},
		{{"V", "12\t800"}},
		{{"V", "12:800"}},
		{{"LONG", strings.Repeat("x", MaxLineLength)}},
	}
	for i, lines := range bad {
		if _, err := EncodeFrame(lines); err == nil {
			t.Errorf("case %d: expected error for %q", i, lines[0].Label)
		}
	}
}

// ============================================================
// Decoder Tests
// ============================================================

func TestDecoder_ValidFrame(t *testing.T) {
	d := NewDecoder()
	frames, errs := decodeAll(d, MustEncodeFrame(sampleLines()))

	if len(errs) != 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}

	s := frames[0].Snapshot()
	checks := []struct {
		field Field
		want  float64
	}{
		{FieldBatteryVoltage, 12.8},
		{FieldBatteryCurrent, 2.0},
		{FieldPanelVoltage, 18.5},
		{FieldPanelPower, 30},
		{FieldState, 3},
		{FieldTrackerMode, 2},
		{FieldOffReason, 0},
		{FieldErrorCode, 0},
		{FieldLoadOutput, 1},
		{FieldLoadCurrent, 0.3},
		{FieldYieldTotal, 123.45},
		{FieldYieldToday, 0.45},
		{FieldMaxPowerToday, 120},
		{FieldYieldYesterday, 0.5},
		{FieldMaxPowerYesterday, 130},
		{FieldDaySequence, 17},
	}
	for _, c := range checks {
		got, ok := s.Value(c.field)
		if !ok {
			t.Errorf("%s missing", c.field)
			continue
		}
		if !almostEqual(got, c.want) {
			t.Errorf("%s = %v, want %v", c.field, got, c.want)
		}
	}

	if pid, _ := s.ProductID(); pid != "0xA053" {
		t.Errorf("ProductID = %q, want 0xA053", pid)
	}
	if ser, _ := s.SerialNumber(); ser != "HQ1234ABCDE" {
		t.Errorf("SerialNumber = %q", ser)
	}
	if state, _ := s.Text(FieldState); state != "Bulk" {
		t.Errorf("State text = %q, want Bulk", state)
	}
	if s.Len() != len(sampleLines()) {
		t.Errorf("Snapshot has %d fields, want %d", s.Len(), len(sampleLines()))
	}
	if d.InFrame() {
		t.Error("Decoder should start a fresh frame after close")
	}
}

func TestDecoder_ChecksumMismatch(t *testing.T) {
	frame := MustEncodeFrame(sampleLines())
	frame[len(frame)-1]++

	d := NewDecoder()
	frames, errs := decodeAll(d, frame)

	if len(frames) != 0 {
		t.Fatalf("Corrupted frame was accepted")
	}
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %v", errs)
	}
	if !errors.Is(errs[0], ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got %v", errs[0])
	}
	var fe *FrameError
	if !errors.As(errs[0], &fe) || fe.Sum != 0x01 {
		t.Errorf("Expected FrameError with sum 0x01, got %v", errs[0])
	}
}

func TestDecoder_SingleByteFlipRejected(t *testing.T) {
	good := MustEncodeFrame(sampleLines())
	follow := MustEncodeFrame(withLine("V", "13000"))

	for i := range good {
		corrupted := make([]byte, len(good))
		copy(corrupted, good)
		corrupted[i] ^= 0x01

		d := NewDecoder()
		frames, errs := decodeAll(d, corrupted)
		more, moreErrs := decodeAll(d, follow)
		frames = append(frames, more...)
		errs = append(errs, moreErrs...)

		for _, f := range frames {
			if v, _ := f.Snapshot().BatteryVoltage(); !almostEqual(v, 13.0) {
				t.Fatalf("flip at %d (%q): corrupted frame accepted", i, good[i])
			}
		}
		rejected := false
		for _, err := range errs {
			if IsRejection(err) {
				rejected = true
			}
		}
		if !rejected {
			t.Fatalf("flip at %d (%q): no rejection reported", i, good[i])
		}
	}
}

func TestDecoder_MalformedField(t *testing.T) {
	d := NewDecoder()
	frames, errs := decodeAll(d, MustEncodeFrame(withLine("V", "12.8")))

	if len(frames) != 0 {
		t.Fatal("Frame with malformed V was accepted")
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrMalformedField) {
		t.Fatalf("Expected ErrMalformedField, got %v", errs)
	}
	if errors.Is(errs[0], ErrChecksumMismatch) {
		t.Error("Malformed frame should not match ErrChecksumMismatch")
	}

	var fieldErr *FieldError
	if !errors.As(errs[0], &fieldErr) {
		t.Fatalf("Expected FieldError in chain, got %T", errs[0])
	}
	if fieldErr.Label != "V" || fieldErr.Value != "12.8" || fieldErr.Rule != RuleUnsigned {
		t.Errorf("Unexpected field error: %+v", fieldErr)
	}
}

func TestDecoder_MalformedErrorCode(t *testing.T) {
	spec, ok := LookupLabel(LabelError)
	if !ok || spec.Field != FieldErrorCode {
		t.Fatalf("ERR maps to %v (ok=%v), want FieldErrorCode", spec.Field, ok)
	}

	frames, errs := decodeAll(NewDecoder(), MustEncodeFrame(withLine("ERR", "x2")))
	if len(frames) != 0 || len(errs) != 1 {
		t.Fatalf("Expected one rejection, got %d frames, %v", len(frames), errs)
	}
	var fieldErr *FieldError
	if !errors.As(errs[0], &fieldErr) || fieldErr.Label != LabelError || fieldErr.Rule != RuleCode {
		t.Errorf("Expected FieldError for ERR, got %v", errs[0])
	}
}

func TestDecoder_UnknownLabelsIgnored(t *testing.T) {
	lines := append(sampleLines(), Line{"Relay", "OFF"}, Line{"AR", "0"}, Line{"MON", "-1"})

	d := NewDecoder()
	frames, errs := decodeAll(d, MustEncodeFrame(lines))
	if len(errs) != 0 || len(frames) != 1 {
		t.Fatalf("Expected 1 frame and no errors, got %d frames, %v", len(frames), errs)
	}

	unknown := frames[0].UnknownLabels()
	if strings.Join(unknown, ",") != "Relay,AR,MON" {
		t.Errorf("UnknownLabels = %v", unknown)
	}
	if raw, ok := frames[0].Raw("Relay"); !ok || raw != "OFF" {
		t.Errorf("Raw(Relay) = %q, %v", raw, ok)
	}
	if frames[0].Snapshot().Len() != len(sampleLines()) {
		t.Error("Unknown labels must not occupy known slots")
	}
}

func TestDecoder_LineOverflowResync(t *testing.T) {
	d := NewDecoder()
	stream := MustEncodeFrame(sampleLines())
	stream = append(stream, bytes.Repeat([]byte("x"), 3*MaxLineLength)...)
	stream = append(stream, MustEncodeFrame(withLine("V", "13250"))...)

	frames, errs := decodeAll(d, stream)

	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d (errors %v)", len(frames), errs)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrLineOverflow) {
		t.Fatalf("Expected a single ErrLineOverflow, got %v", errs)
	}
	if v, _ := frames[1].Snapshot().BatteryVoltage(); !almostEqual(v, 13.25) {
		t.Errorf("Frame after resync decoded V=%v, want 13.25", v)
	}
	if d.Stats().LineOverflows != 1 {
		t.Errorf("LineOverflows = %d, want 1", d.Stats().LineOverflows)
	}
}

func TestDecoder_OverflowAbandonsFrame(t *testing.T) {
	long := MustEncodeFrame(sampleLines())
	// Splice an over-long line in front of the Checksum field
	idx := bytes.LastIndex(long, []byte("\r\nChecksum"))
	stream := append([]byte{}, long[:idx]...)
	stream = append(stream, []byte("\r\nX\t"+strings.Repeat("y", 2*MaxLineLength))...)
	stream = append(stream, long[idx:]...)
	stream = append(stream, MustEncodeFrame(withLine("V", "13100"))...)

	d := NewDecoder()
	frames, errs := decodeAll(d, stream)

	if len(frames) == 0 {
		t.Fatal("Frame after the overflow was not decoded")
	}
	for _, f := range frames[:len(frames)-1] {
		if f.Snapshot().Has(FieldBatteryVoltage) {
			t.Error("Fields from the abandoned frame were accepted")
		}
	}
	if v, _ := frames[len(frames)-1].Snapshot().BatteryVoltage(); !almostEqual(v, 13.1) {
		t.Errorf("Last frame V=%v, want 13.1", v)
	}
	if !errors.Is(errors.Join(errs...), ErrLineOverflow) {
		t.Error("Expected ErrLineOverflow")
	}
}

func TestDecoder_HexMessageSkipped(t *testing.T) {
	frame := MustEncodeFrame(sampleLines())
	stream := append([]byte{}, frame...)
	stream = append(stream, EncodeHexMessage("A0102000543")...)
	stream = append(stream, frame...)

	d := NewDecoder()
	frames, errs := decodeAll(d, stream)
	if len(errs) != 0 || len(frames) != 2 {
		t.Fatalf("Expected 2 frames around a HEX message, got %d, %v", len(frames), errs)
	}
	if d.Stats().HexMessages != 1 {
		t.Errorf("HexMessages = %d, want 1", d.Stats().HexMessages)
	}
	if state, _ := frames[1].Snapshot().State(); state != StateBulk {
		t.Errorf("State = %v, want Bulk", state)
	}
}

func TestDecoder_HexMessageInsideFrameRejected(t *testing.T) {
	frame := MustEncodeFrame(sampleLines())
	idx := bytes.Index(frame, []byte("\r\nCS")) + 2
	stream := append([]byte{}, frame[:idx]...)
	stream = append(stream, EncodeHexMessage("A0102000543")...)
	stream = append(stream, frame[idx:]...)
	stream = append(stream, frame...)

	d := NewDecoder()
	frames, errs := decodeAll(d, stream)
	if len(errs) != 1 || !errors.Is(errs[0], ErrFrameInterrupted) {
		t.Fatalf("Expected one ErrFrameInterrupted, got %v", errs)
	}
	var frameErr *FrameError
	if !errors.As(errs[0], &frameErr) || frameErr.Kind != KindInterrupted {
		t.Errorf("Expected KindInterrupted, got %v", errs[0])
	}
	if len(frames) != 1 {
		t.Errorf("Expected the following frame to be accepted, got %d frames", len(frames))
	}
}

func TestDecoder_ColonAnywhereRejected(t *testing.T) {
	good := MustEncodeFrame(sampleLines())

	for pos := range good {
		if good[pos] == HexMarker {
			continue
		}
		bad := append([]byte{}, good...)
		bad[pos] = HexMarker

		frames, _ := NewDecoder().Feed(bad)
		if len(frames) != 0 {
			t.Fatalf("':' at %d (replacing 0x%02X) was accepted", pos, good[pos])
		}
	}
}

func TestDecoder_ColonInsideValueIsData(t *testing.T) {
	frame := MustEncodeFrame(sampleLines())
	idx := bytes.Index(frame, []byte("HQ1234"))
	bad := append([]byte{}, frame...)
	bad[idx+2] = HexMarker

	d := NewDecoder()
	frames, errs := decodeAll(d, bad)
	if len(frames) != 0 || len(errs) != 1 || !errors.Is(errs[0], ErrChecksumMismatch) {
		t.Fatalf("Expected a checksum mismatch, got %d frames, %v", len(frames), errs)
	}
	if d.Stats().HexMessages != 0 {
		t.Errorf("HexMessages = %d, want 0", d.Stats().HexMessages)
	}
}

// frameWithChecksum pads sampleLines until the checksum byte equals want
func frameWithChecksum(t *testing.T, want byte) []byte {
	t.Helper()
	for n := 1; n <= 40; n++ {
		for c := byte('!'); c <= '~'; c++ {
			if c == HexMarker {
				continue
			}
			pad := strings.Repeat("A", n) + string(c)
			frame := MustEncodeFrame(append(sampleLines(), Line{"PAD", pad}))
			if frame[len(frame)-1] == want {
				return frame
			}
		}
	}
	t.Fatalf("could not build a frame with checksum byte 0x%02X", want)
	return nil
}

func TestDecoder_ChecksumByteMayBeFramingByte(t *testing.T) {
	for _, want := range []byte{LineTerminator, CarriageReturn, FieldSeparator, HexMarker, 0x00} {
		frame := frameWithChecksum(t, want)

		d := NewDecoder()
		stream := append(frame, MustEncodeFrame(sampleLines())...)
		frames, errs := decodeAll(d, stream)
		if len(errs) != 0 || len(frames) != 2 {
			t.Errorf("checksum byte 0x%02X: got %d frames, errors %v", want, len(frames), errs)
			continue
		}
		if frames[0].Checksum() != want {
			t.Errorf("Checksum() = 0x%02X, want 0x%02X", frames[0].Checksum(), want)
		}
	}
}

func TestDecoder_FeedAcrossChunks(t *testing.T) {
	stream := append(MustEncodeFrame(sampleLines()), MustEncodeFrame(withLine("V", "12900"))...)

	reference, err := NewDecoder().Feed(stream)
	if err != nil || len(reference) != 2 {
		t.Fatalf("single feed: %d frames, %v", len(reference), err)
	}

	for _, size := range []int{1, 2, 3, 7, 16, 64, len(stream)} {
		d := NewDecoder()
		var frames []*Frame
		for off := 0; off < len(stream); off += size {
			end := off + size
			if end > len(stream) {
				end = len(stream)
			}
			got, err := d.Feed(stream[off:end])
			if err != nil {
				t.Fatalf("chunk size %d: %v", size, err)
			}
			frames = append(frames, got...)
		}
		if len(frames) != 2 {
			t.Fatalf("chunk size %d: got %d frames", size, len(frames))
		}
		for i := range frames {
			if frames[i].Snapshot() != reference[i].Snapshot() {
				t.Errorf("chunk size %d: frame %d differs from single feed", size, i)
			}
		}
	}
}

func TestDecoder_LinesWithoutSeparatorIgnored(t *testing.T) {
	frame := MustEncodeFrame(sampleLines())
	idx := bytes.Index(frame, []byte("\r\nV\t"))
	stream := append([]byte{}, frame[:idx]...)
	stream = append(stream, []byte("\r\nnoise")...)
	stream = append(stream, frame[idx:]...)

	// The noise bytes are part of the sum, so patch the checksum byte
	stream[len(stream)-1] = 0
	stream[len(stream)-1] = ChecksumFor(stream[:len(stream)-1])

	d := NewDecoder()
	frames, errs := decodeAll(d, stream)
	if len(errs) != 0 || len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d, %v", len(frames), errs)
	}
	if d.Stats().IgnoredLines != 1 {
		t.Errorf("IgnoredLines = %d, want 1", d.Stats().IgnoredLines)
	}
}

// ============================================================
// Field Decoding Tests
// ============================================================

func TestDecodeField(t *testing.T) {
	tests := []struct {
		label   string
		raw     string
		want    float64
		text    string
		wantErr bool
	}{
		{"V", "12800", 12.8, "", false},
		{"V", "-5", 0, "", true},
		{"V", "", 0, "", true},
		{"I", "-1500", -1.5, "", false},
		{"I", "1e3", 0, "", true},
		{"OR", "0x00000005", 5, "", false},
		{"OR", "0X0000000A", 10, "", false},
		{"OR", "5", 5, "", false},
		{"OR", "0xZZ", 0, "", true},
		{"LOAD", "ON", 1, "ON", false},
		{"LOAD", "off", 0, "OFF", false},
		{"LOAD", "MAYBE", 0, "", true},
		{"H20", "123", 1.23, "", false},
		{"CS", "245", 245, "", false},
		{"FW", "159", 0, "159", false},
		{"SER#", "", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.label+"="+tt.raw, func(t *testing.T) {
			spec := specsByLabel[tt.label]
			v, err := decodeField(spec, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %+v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !almostEqual(v.number, tt.want) || v.text != tt.text {
				t.Errorf("got (%v, %q), want (%v, %q)", v.number, v.text, tt.want, tt.text)
			}
		})
	}
}

func TestFieldCatalogue(t *testing.T) {
	if len(Fields()) != int(numFields) {
		t.Fatalf("Fields() returned %d, want %d", len(Fields()), numFields)
	}
	for _, f := range Fields() {
		spec, ok := f.Spec()
		if !ok || spec.Field != f {
			t.Errorf("Spec(%d) inconsistent", f)
		}
		if got, ok := LookupLabel(spec.Label); !ok || got.Field != f {
			t.Errorf("LookupLabel(%q) inconsistent", spec.Label)
		}
	}
	if _, ok := LookupLabel("Checksum"); ok {
		t.Error("Checksum must not be a decoded field")
	}
	if FieldBatteryVoltage.String() != "battery_voltage" {
		t.Errorf("String() = %q", FieldBatteryVoltage.String())
	}
}

// ============================================================
// Lookup Table Tests
// ============================================================

func TestStateText(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateOff, "Off"},
		{StateFault, "Fault"},
		{StateBulk, "Bulk"},
		{StateAbsorption, "Absorption"},
		{StateFloat, "Float"},
		{StateEqualize, "Equalize (manual)"},
		{StateInverting, "Inverting"},
		{StateStartingUp, "Starting-up"},
		{StateBatterySafe, "BatterySafe"},
		{StateExternalControl, "External control"},
		{State(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d) = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestUnmappedStateKeepsCode(t *testing.T) {
	d := NewDecoder()
	frames, errs := decodeAll(d, MustEncodeFrame(withLine("CS", "99")))
	if len(errs) != 0 || len(frames) != 1 {
		t.Fatalf("Unmapped state must not reject the frame: %v", errs)
	}
	s := frames[0].Snapshot()
	if code, _ := s.State(); code != 99 {
		t.Errorf("state code = %d, want 99", code)
	}
	if text, _ := s.Text(FieldState); text != "Unknown(99)" {
		t.Errorf("state text = %q, want Unknown(99)", text)
	}
}

func TestErrorCodeText(t *testing.T) {
	if ErrorNone.String() != "No error" {
		t.Errorf("ErrorNone = %q", ErrorNone.String())
	}
	if ErrorBatteryVoltageHigh.String() != "Battery voltage too high" {
		t.Errorf("ErrorBatteryVoltageHigh = %q", ErrorBatteryVoltageHigh.String())
	}
	if ErrorCode(200).String() != "Unknown(200)" {
		t.Errorf("ErrorCode(200) = %q", ErrorCode(200).String())
	}
}

func TestOffReasonText(t *testing.T) {
	tests := []struct {
		mask OffReason
		want string
	}{
		{0x00, "None"},
		{0x01, "No input power"},
		{0x05, "No input power, Switched off (device mode)"},
		{0x100, "Analysing input voltage"},
		{0x1000, "Unknown(0x1000)"},
		{0x1001, "No input power, Unknown(0x1000)"},
	}
	for _, tt := range tests {
		if got := tt.mask.String(); got != tt.want {
			t.Errorf("OffReason(0x%X) = %q, want %q", uint32(tt.mask), got, tt.want)
		}
	}
	if n := len(OffReason(0x05).Reasons()); n != 2 {
		t.Errorf("Reasons(0x05) has %d entries, want 2", n)
	}
}

func TestTrackerModeText(t *testing.T) {
	if TrackerOff.String() != "Off" || TrackerLimited.String() != "Voltage/current limited" || TrackerActive.String() != "MPP Tracker active" {
		t.Error("Unexpected tracker mode text")
	}
	if TrackerMode(7).String() != "Unknown(7)" {
		t.Errorf("TrackerMode(7) = %q", TrackerMode(7).String())
	}
}

// ============================================================
// Formatter and Validator Tests
// ============================================================

func TestFormatFrame(t *testing.T) {
	frames, _ := NewDecoder().Feed(MustEncodeFrame(append(sampleLines(), Line{"Relay", "OFF"})))
	out := FormatFrame(frames[0])

	for _, want := range []string{"FRAME fields=20", "Battery: 12.800 V, 2.000 A", "State: Bulk (3)", "MPP Tracker active", "Off reason: None", "Unknown: Relay=OFF"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatFrame missing %q:\n%s", want, out)
		}
	}
}

func TestValidateFrame(t *testing.T) {
	frames, _ := NewDecoder().Feed(MustEncodeFrame(sampleLines()))
	if errs := ValidateFrame(frames[0]); len(errs) != 0 {
		t.Errorf("Plausible frame flagged: %v", errs)
	}

	lines := withLine("V", "90000")
	lines = withLineIn(lines, "CS", "99")
	lines = withLineIn(lines, "H20", "99999")
	frames, _ = NewDecoder().Feed(MustEncodeFrame(lines))
	errs := ValidateFrame(frames[0])

	types := map[AnomalyType]int{}
	for _, e := range errs {
		types[e.Type]++
	}
	if types[AnomalyVoltageRange] != 1 || types[AnomalyUnknownCode] != 1 || types[AnomalyInconsistent] != 1 {
		t.Errorf("Unexpected anomalies: %v", errs)
	}
}

func withLineIn(lines []Line, label, value string) []Line {
	for i := range lines {
		if lines[i].Label == label {
			lines[i].Value = value
		}
	}
	return lines
}
