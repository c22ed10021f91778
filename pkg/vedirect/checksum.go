// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vedirect

// Checksum accumulates the modulo-256 byte sum of a frame. A frame is valid
// when the sum, including the trailing checksum byte, is zero.
type Checksum struct {
	sum byte
}

// Add folds one byte into the running sum
func (c *Checksum) Add(b byte) {
	c.sum += b
}

// Write folds a byte slice into the running sum. It never fails.
func (c *Checksum) Write(p []byte) (int, error) {
	for _, b := range p {
		c.sum += b
	}
	return len(p), nil
}

// Sum returns the current running sum
func (c *Checksum) Sum() byte {
	return c.sum
}

// Valid reports whether the running sum is zero
func (c *Checksum) Valid() bool {
	return c.sum == 0
}

// Reset clears the running sum for a new frame
func (c *Checksum) Reset() {
	c.sum = 0
}

// ChecksumFor returns the byte that, appended to data, makes the frame sum
// zero (the two's complement of the byte sum)
func ChecksumFor(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}
