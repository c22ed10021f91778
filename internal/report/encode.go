// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Deterministic encoding keeps identical readings byte-identical on the wire
var cborMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: cbor options: %v", err))
	}
	return mode
}()

// EncodeJSON encodes a message as JSON
func EncodeJSON(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode readings as JSON: %w", err)
	}
	return data, nil
}

// EncodeCBOR encodes a message as deterministic CBOR
func EncodeCBOR(m Message) ([]byte, error) {
	data, err := cborMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode readings as CBOR: %w", err)
	}
	return data, nil
}

// DecodeCBOR decodes a message encoded by EncodeCBOR
func DecodeCBOR(data []byte) (Message, error) {
	var m Message
	if err := cbor.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode CBOR readings: %w", err)
	}
	return m, nil
}

// Encoder returns the encode function for an encoding name
func Encoder(encoding string) (func(Message) ([]byte, error), error) {
	switch encoding {
	case "cbor":
		return EncodeCBOR, nil
	case "json":
		return EncodeJSON, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", encoding)
}
