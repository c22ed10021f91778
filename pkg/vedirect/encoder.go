// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"fmt"
	"strings"
)

// Line is one Label<TAB>Value pair on the wire
type Line struct {
	Label string
	Value string
}

// EncodeFrame creates a complete wire-formatted text frame: every line is
// preceded by CR LF and the frame ends with the Checksum field whose byte
// makes the frame sum zero.
func EncodeFrame(lines []Line) ([]byte, error) {
	frame := make([]byte, 0, 16*len(lines)+16)

	for _, l := range lines {
		if err := validateLine(l); err != nil {
			return nil, err
		}
		frame = append(frame, CarriageReturn, LineTerminator)
		frame = append(frame, l.Label...)
		frame = append(frame, FieldSeparator)
		frame = append(frame, l.Value...)
	}

	frame = append(frame, CarriageReturn, LineTerminator)
	frame = append(frame, ChecksumLabel...)
	frame = append(frame, FieldSeparator)
	frame = append(frame, ChecksumFor(frame))

	return frame, nil
}

// MustEncodeFrame encodes a frame and panics on invalid lines.
// Use EncodeFrame for error handling.
func MustEncodeFrame(lines []Line) []byte {
	data, err := EncodeFrame(lines)
	if err != nil {
		panic(fmt.Sprintf("vedirect: encode error: %v", err))
	}
	return data
}

// EncodeHexMessage wraps a HEX-protocol payload the way the controller
// interleaves it with text frames. Such messages are skipped by the decoder.
func EncodeHexMessage(payload string) []byte {
	return []byte(string(HexMarker) + payload + string(LineTerminator))
}

func validateLine(l Line) error {
	if l.Label == "" {
		return fmt.Errorf("empty label")
	}
	if l.Label == ChecksumLabel {
		return fmt.Errorf("label %q is reserved", ChecksumLabel)
	}
	if strings.ContainsAny(l.Label, "\t\r\n:") || strings.ContainsAny(l.Value, "\t\r\n:") {
		return fmt.Errorf("line %q contains framing bytes", l.Label)
	}
	if len(l.Label)+1+len(l.Value) > MaxLineLength {
		return fmt.Errorf("line %q too long: %d bytes (max %d)", l.Label, len(l.Label)+1+len(l.Value), MaxLineLength)
	}
	return nil
}
