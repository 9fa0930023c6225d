// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditsource

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Format is the encoding of the individual events in the stream.
type Format string

const (
	// FormatJSON is a sequence of JSON values, one event each, as the
	// API server's log backend writes them (usually one per line).
	FormatJSON Format = "json"

	// FormatCBOR is an RFC 8742 CBOR sequence of event maps keyed by
	// the same field names as the JSON form.
	FormatCBOR Format = "cbor"
)

// ParseFormat parses a format name as accepted on the command line.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatCBOR:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unknown input format %q (want json or cbor)", name)
	}
}

// eventDecoder reads one value per call into the pointer it is given.
// Both encoding/json and fxamacker/cbor decoders satisfy it, and both
// return io.EOF exactly when the input ends cleanly between values.
type eventDecoder interface {
	Decode(value any) error
}

// cborDecodeMode rejects map keys outside the schema (matched
// case-sensitively) and repeated keys, as the JSON decoder does, and
// decodes opaque bodies into
// string-keyed maps so they pretty-print the same way JSON bodies do.
var cborDecodeMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		DefaultMapType:    reflect.TypeOf(map[string]any(nil)),
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		FieldNameMatching: cbor.FieldNameMatchingCaseSensitive,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("auditsource: invalid CBOR decode options: %v", err))
	}
	return mode
}()

func newEventDecoder(format Format, reader io.Reader) eventDecoder {
	if format == FormatCBOR {
		return cborDecodeMode.NewDecoder(reader)
	}
	return &strictJSONDecoder{values: json.NewDecoder(reader)}
}
