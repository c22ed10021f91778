// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

import "time"

// Frame is one checksum-terminated block of Label<TAB>Value lines
type Frame struct {
	fields    map[string]string // raw values, unknown labels included
	labels    []string          // arrival order
	values    Snapshot          // known fields decoded from this frame only
	malformed error             // first field that failed its rule
	checksum  byte
	timestamp time.Time
}

func newFrame() *Frame {
	return &Frame{fields: make(map[string]string)}
}

// add records a raw line; a repeated label keeps its first position and its
// last value
func (f *Frame) add(label, value string) {
	if _, seen := f.fields[label]; !seen {
		f.labels = append(f.labels, label)
	}
	f.fields[label] = value
}

// Len returns the number of distinct labels in the frame
func (f *Frame) Len() int {
	return len(f.labels)
}

// Labels returns the frame's labels in arrival order
func (f *Frame) Labels() []string {
	labels := make([]string, len(f.labels))
	copy(labels, f.labels)
	return labels
}

// Raw returns the undecoded value of a label
func (f *Frame) Raw(label string) (string, bool) {
	v, ok := f.fields[label]
	return v, ok
}

// UnknownLabels returns labels that are not in the field catalogue
func (f *Frame) UnknownLabels() []string {
	unknown := []string{}
	for _, label := range f.labels {
		if _, ok := specsByLabel[label]; !ok {
			unknown = append(unknown, label)
		}
	}
	return unknown
}

// Snapshot returns the fields decoded from this frame alone
func (f *Frame) Snapshot() Snapshot {
	return f.values
}

// Checksum returns the frame's trailing checksum byte
func (f *Frame) Checksum() byte {
	return f.checksum
}

// Timestamp returns the time the frame closed
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}
