// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is
var (
	// ErrChecksumMismatch is matched by a FrameError whose byte sum was not zero
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrMalformedField is matched by a FrameError rejected for an unparseable
	// known field
	ErrMalformedField = errors.New("malformed field")

	// ErrFrameInterrupted is matched by a FrameError whose lines were split
	// by a HEX message, leaving the byte sum unverifiable
	ErrFrameInterrupted = errors.New("frame interrupted by HEX message")

	// ErrLineOverflow is returned when a line exceeds the maximum length. The
	// in-progress frame is abandoned; this is not a frame attempt.
	ErrLineOverflow = errors.New("line overflow")
)

// RejectKind classifies a rejected frame
type RejectKind int

// Rejection kinds
const (
	KindChecksumMismatch RejectKind = iota
	KindMalformed
	KindInterrupted
)

// String returns the kind name
func (k RejectKind) String() string {
	switch k {
	case KindChecksumMismatch:
		return "checksum mismatch"
	case KindMalformed:
		return "malformed field"
	case KindInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("reject(%d)", int(k))
	}
}

// FrameError reports a frame rejected at close
type FrameError struct {
	Kind   RejectKind
	Sum    byte // running sum at close, zero for malformed frames
	Fields int  // lines folded into the frame
	Err    error
}

// Error implements the error interface
func (e *FrameError) Error() string {
	switch e.Kind {
	case KindChecksumMismatch:
		return fmt.Sprintf("frame rejected: checksum mismatch (sum 0x%02X over %d fields)", e.Sum, e.Fields)
	case KindInterrupted:
		return fmt.Sprintf("frame rejected: interrupted by HEX message after %d fields", e.Fields)
	default:
		return fmt.Sprintf("frame rejected: %v", e.Err)
	}
}

// Unwrap exposes the underlying field error, if any
func (e *FrameError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the rejection kind
func (e *FrameError) Is(target error) bool {
	switch target {
	case ErrChecksumMismatch:
		return e.Kind == KindChecksumMismatch
	case ErrMalformedField:
		return e.Kind == KindMalformed
	case ErrFrameInterrupted:
		return e.Kind == KindInterrupted
	}
	return false
}

// FieldError reports a known label whose value failed its decode rule
type FieldError struct {
	Label string
	Value string
	Rule  Rule
	Err   error
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s=%q is not a valid %s value: %v", e.Label, e.Value, e.Rule, e.Err)
}

// Unwrap returns the parse error
func (e *FieldError) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err is a frame rejection of any kind
func IsRejection(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}
