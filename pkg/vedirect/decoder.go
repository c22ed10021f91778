// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"bytes"
	"errors"
	"time"
)

// DecoderStats counts stream-level events that are not frame evaluations
type DecoderStats struct {
	Lines         uint64 // Label<TAB>Value lines folded into frames
	IgnoredLines  uint64 // lines without a separator or label
	LineOverflows uint64
	HexMessages   uint64 // asynchronous :... messages skipped
}

// Decoder implements the VE.Direct text frame accumulator state machine
type Decoder struct {
	state    int
	line     []byte
	maxLine  int
	checksum Checksum
	started  bool // bytes of the current frame are in the running sum
	hexSplit bool // a HEX message arrived inside the current frame
	frame    *Frame
	stats    DecoderStats
	now      func() time.Time
}

// NewDecoder creates a decoder with the default maximum line length
func NewDecoder() *Decoder {
	return NewDecoderSize(MaxLineLength)
}

// NewDecoderSize creates a decoder with a custom maximum line length
func NewDecoderSize(maxLine int) *Decoder {
	if maxLine <= len(ChecksumLabel) {
		maxLine = MaxLineLength
	}
	return &Decoder{
		state:   stateAwaitingLine,
		line:    make([]byte, 0, maxLine),
		maxLine: maxLine,
		now:     time.Now,
	}
}

// Reset drops the in-progress line and frame and clears the running sum
func (d *Decoder) Reset() {
	d.state = stateAwaitingLine
	d.line = d.line[:0]
	d.restart()
	d.frame = nil
}

// restart clears the running sum and the per-frame flags
func (d *Decoder) restart() {
	d.checksum.Reset()
	d.started = false
	d.hexSplit = false
}

// Stats returns the stream-level counters
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// InFrame reports whether any line has been folded into an unfinished frame
func (d *Decoder) InFrame() bool {
	return d.frame != nil
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a checksum-valid, fully decoded frame when the checksum byte closes
// it, or nil while the frame is incomplete. Returns a *FrameError when a
// closing frame is rejected and ErrLineOverflow when a line is abandoned.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateChecksumValue:
		// Any byte value is legal here, including CR, LF and ':'
		d.checksum.Add(b)
		return d.closeFrame(b)

	case stateHexMessage:
		// HEX messages are not part of the text frame checksum
		if b == LineTerminator {
			d.stats.HexMessages++
			d.state = stateAwaitingLine
		}
		return nil, nil

	case stateDiscarding:
		// Resynchronize on the next terminator. The CR LF that ends the
		// discard is the leading terminator of the next frame.
		if b == LineTerminator {
			d.checksum.Add(b)
			d.started = true
			d.state = stateAwaitingLine
			return nil, nil
		}
		d.restart()
		if b == CarriageReturn {
			d.checksum.Add(b)
			d.started = true
		}
		return nil, nil
	}

	// A HEX message only starts a line. Elsewhere ':' is an ordinary byte.
	if b == HexMarker && d.state == stateAwaitingLine {
		if d.started {
			d.hexSplit = true
		}
		d.state = stateHexMessage
		return nil, nil
	}

	d.checksum.Add(b)
	d.started = true

	switch b {
	case CarriageReturn:
		return nil, nil

	case LineTerminator:
		if d.state == stateInLine {
			d.processLine()
		}
		d.line = d.line[:0]
		d.state = stateAwaitingLine
		return nil, nil

	case FieldSeparator:
		if string(d.line) == ChecksumLabel {
			d.line = d.line[:0]
			d.state = stateChecksumValue
			return nil, nil
		}
	}

	if len(d.line) >= d.maxLine {
		d.stats.LineOverflows++
		d.line = d.line[:0]
		d.frame = nil
		d.restart()
		d.state = stateDiscarding
		return nil, ErrLineOverflow
	}

	d.line = append(d.line, b)
	d.state = stateInLine
	return nil, nil
}

// Feed decodes a chunk of the byte stream. Progress is carried across calls.
// Returns every frame accepted within the chunk and the joined rejection and
// overflow errors, if any.
func (d *Decoder) Feed(p []byte) ([]*Frame, error) {
	var frames []*Frame
	var errs []error
	for _, b := range p {
		frame, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames, errors.Join(errs...)
}

// processLine folds the buffered line into the current frame
func (d *Decoder) processLine() {
	tab := bytes.IndexByte(d.line, FieldSeparator)
	if tab <= 0 {
		d.stats.IgnoredLines++
		return
	}
	label := string(d.line[:tab])
	value := string(d.line[tab+1:])

	if d.frame == nil {
		d.frame = newFrame()
	}
	d.frame.add(label, value)
	d.stats.Lines++

	spec, ok := specsByLabel[label]
	if !ok {
		return
	}
	v, err := decodeField(spec, value)
	if err != nil {
		if d.frame.malformed == nil {
			d.frame.malformed = err
		}
		return
	}
	d.frame.values.set(spec.Field, v)
}

// closeFrame evaluates the finished frame and starts a new one
func (d *Decoder) closeFrame(checksum byte) (*Frame, error) {
	frame := d.frame
	if frame == nil {
		frame = newFrame()
	}
	valid := d.checksum.Valid()
	sum := d.checksum.Sum()
	hexSplit := d.hexSplit

	d.frame = nil
	d.restart()
	d.line = d.line[:0]
	d.state = stateAwaitingLine

	// Bytes inside the HEX message were left out of the sum, so it proves
	// nothing about the frame
	if hexSplit {
		return nil, &FrameError{Kind: KindInterrupted, Sum: sum, Fields: frame.Len()}
	}
	if !valid {
		return nil, &FrameError{Kind: KindChecksumMismatch, Sum: sum, Fields: frame.Len()}
	}
	if frame.malformed != nil {
		return nil, &FrameError{Kind: KindMalformed, Fields: frame.Len(), Err: frame.malformed}
	}

	frame.checksum = checksum
	frame.timestamp = d.now()
	return frame, nil
}
