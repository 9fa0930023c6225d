// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/kale/lib/testutil"
)

const receiveTimeout = 5 * time.Second

// testRecord returns one JSON-encoded audit event for uri. The second
// argument offsets the request timestamp so callers can build ordered
// or shuffled sequences.
func testRecord(uri string, second int) string {
	return fmt.Sprintf(`{"kind":"Event","apiVersion":"audit.k8s.io/v1","level":"Metadata",`+
		`"auditID":"00000000-0000-4000-8000-%012d","stage":"ResponseComplete",`+
		`"requestURI":%q,"verb":"get","user":{"username":"system:admin"},`+
		`"requestReceivedTimestamp":"2026-03-01T10:00:%02d.000000Z",`+
		`"stageTimestamp":"2026-03-01T10:00:%02d.500000Z","annotations":{}}`+"\n",
		second, uri, second, second)
}

func startStream(t *testing.T, input io.Reader, format Format) *Stream {
	t.Helper()
	stream := Start(context.Background(), input, Options{Format: format})
	t.Cleanup(stream.Close)
	return stream
}

func TestStreamFiltersNonResourceRequests(t *testing.T) {
	input := testRecord("/healthz", 1) + testRecord("/api/v1/pods", 2)
	stream := startStream(t, strings.NewReader(input), FormatJSON)

	item := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "first item")
	if item.Err != nil {
		t.Fatalf("first item is an error: %v", item.Err)
	}
	if item.Record.RequestURI != "/api/v1/pods" {
		t.Errorf("first delivered record = %q, /healthz should have been dropped", item.Record.RequestURI)
	}

	last := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "end of input")
	if !errors.Is(last.Err, ErrEndOfInput) {
		t.Fatalf("final item error = %v, want ErrEndOfInput", last.Err)
	}
	if extra := testutil.RequireClosed(t, stream.Items(), receiveTimeout, "items closed"); extra != 0 {
		t.Errorf("%d items delivered after end of input", extra)
	}

	stats := stream.Stats()
	if stats.Accepted != 1 || stats.Filtered != 1 {
		t.Errorf("Stats = %+v, want 1 accepted and 1 filtered", stats)
	}
}

func TestStreamStopsAtDecodeFailure(t *testing.T) {
	input := testRecord("/api/v1/pods", 1) +
		"{not json}\n" +
		testRecord("/api/v1/services", 2)
	stream := startStream(t, strings.NewReader(input), FormatJSON)

	first := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "first record")
	if first.Err != nil || first.Record.RequestURI != "/api/v1/pods" {
		t.Fatalf("first item = %+v, want the /api/v1/pods record", first)
	}

	failure := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "decode failure")
	var decodeError *DecodeError
	if !errors.As(failure.Err, &decodeError) {
		t.Fatalf("second item error = %v, want *DecodeError", failure.Err)
	}
	if decodeError.Record != 2 {
		t.Errorf("DecodeError.Record = %d, want 2", decodeError.Record)
	}
	if errors.Is(failure.Err, ErrEndOfInput) {
		t.Error("a decode failure must not match ErrEndOfInput")
	}

	if extra := testutil.RequireClosed(t, stream.Items(), receiveTimeout, "items closed"); extra != 0 {
		t.Errorf("%d items delivered after the decode failure, ingestion should stop", extra)
	}
}

func TestStreamFailureTextsAreDistinguishable(t *testing.T) {
	ended := startStream(t, strings.NewReader(""), FormatJSON)
	endItem := testutil.RequireReceive(t, ended.Items(), receiveTimeout, "end of empty input")

	broken := startStream(t, strings.NewReader("[1, 2"), FormatJSON)
	brokenItem := testutil.RequireReceive(t, broken.Items(), receiveTimeout, "truncated input")

	if endItem.Err == nil || brokenItem.Err == nil {
		t.Fatalf("both items should carry errors: %v, %v", endItem.Err, brokenItem.Err)
	}
	if endItem.Err.Error() == brokenItem.Err.Error() {
		t.Errorf("end of input and decode failure share the text %q", endItem.Err)
	}
	if !strings.Contains(endItem.Err.Error(), "end of the input") {
		t.Errorf("end of input text = %q", endItem.Err)
	}
	if !strings.Contains(brokenItem.Err.Error(), "failed to decode") {
		t.Errorf("decode failure text = %q", brokenItem.Err)
	}
}

func TestStreamRejectsUnknownFields(t *testing.T) {
	base := testRecord("/api/v1/pods", 1)
	cases := map[string]string{
		"extra field":         strings.Replace(base, `"verb":"get"`, `"verb":"get","surprise":1`, 1),
		"case-variant field":  strings.Replace(base, `"verb":"get"`, `"VERB":"get"`, 1),
		"repeated field":      strings.Replace(base, `"verb":"get"`, `"verb":"get","verb":"delete"`, 1),
		"nested case-variant": strings.Replace(base, `"username":"system:admin"`, `"Username":"system:admin"`, 1),
		"nested repeated":     strings.Replace(base, `"username":"system:admin"`, `"username":"system:admin","username":"root"`, 1),
		"repeated annotation": strings.Replace(base, `"annotations":{}`, `"annotations":{"a":"1","a":"2"}`, 1),
	}
	for name, record := range cases {
		t.Run(name, func(t *testing.T) {
			if record == base {
				t.Fatal("test record was not modified")
			}
			stream := startStream(t, strings.NewReader(record), FormatJSON)

			item := testutil.RequireReceive(t, stream.Items(), receiveTimeout, name)
			var decodeError *DecodeError
			if !errors.As(item.Err, &decodeError) {
				t.Fatalf("item = %+v, want a DecodeError", item)
			}
		})
	}
}

func TestStreamAcceptsOpaqueBodies(t *testing.T) {
	record := strings.Replace(testRecord("/api/v1/pods", 1), `"annotations":{}`,
		`"annotations":{},"requestObject":{"Kind":"Pod","spec":{"NodeName":"a"}}`, 1)
	stream := startStream(t, strings.NewReader(record), FormatJSON)

	item := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "record with body")
	if item.Err != nil {
		t.Fatalf("opaque body keys should not be checked against the schema: %v", item.Err)
	}
	body, ok := item.Record.RequestObject.(map[string]any)
	if !ok || body["Kind"] != "Pod" {
		t.Errorf("RequestObject = %#v", item.Record.RequestObject)
	}
}

func TestStreamRejectsCaseVariantCBORFields(t *testing.T) {
	event := map[string]any{
		"kind":                     "Event",
		"apiVersion":               "audit.k8s.io/v1",
		"level":                    "Metadata",
		"auditID":                  "5f0c1b9e-3c52-4c55-9a8e-2f3b1e4d6a70",
		"stage":                    "ResponseComplete",
		"requestURI":               "/api/v1/pods",
		"verb":                     "get",
		"Verb":                     "delete",
		"user":                     map[string]any{"username": "alice"},
		"requestReceivedTimestamp": "2026-03-01T10:00:00Z",
		"stageTimestamp":           "2026-03-01T10:00:01Z",
	}
	data, err := cbor.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	stream := startStream(t, bytes.NewReader(data), FormatCBOR)

	item := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "case-variant CBOR key")
	var decodeError *DecodeError
	if !errors.As(item.Err, &decodeError) {
		t.Fatalf("item = %+v, want a DecodeError", item)
	}
}

func TestStreamRejectsInvalidRecords(t *testing.T) {
	record := strings.Replace(testRecord("/api/v1/pods", 1), `"level":"Metadata"`, `"level":"Loud"`, 1)
	stream := startStream(t, strings.NewReader(record), FormatJSON)

	item := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "invalid level")
	if item.Err == nil || !strings.Contains(item.Err.Error(), "unknown level") {
		t.Fatalf("item error = %v, want validation failure for the level", item.Err)
	}
}

func TestStreamDecompressesInput(t *testing.T) {
	plain := testRecord("/api/v1/pods", 1) + testRecord("/apis/apps/v1/deployments", 2)

	compressors := map[Compression]func(t *testing.T, data []byte) []byte{
		CompressionGzip: func(t *testing.T, data []byte) []byte {
			var buffer bytes.Buffer
			writer := gzip.NewWriter(&buffer)
			if _, err := writer.Write(data); err != nil {
				t.Fatal(err)
			}
			if err := writer.Close(); err != nil {
				t.Fatal(err)
			}
			return buffer.Bytes()
		},
		CompressionZstd: func(t *testing.T, data []byte) []byte {
			encoder, err := zstd.NewWriter(nil)
			if err != nil {
				t.Fatal(err)
			}
			defer encoder.Close()
			return encoder.EncodeAll(data, nil)
		},
		CompressionLZ4: func(t *testing.T, data []byte) []byte {
			var buffer bytes.Buffer
			writer := lz4.NewWriter(&buffer)
			if _, err := writer.Write(data); err != nil {
				t.Fatal(err)
			}
			if err := writer.Close(); err != nil {
				t.Fatal(err)
			}
			return buffer.Bytes()
		},
	}

	for compression, compress := range compressors {
		t.Run(compression.String(), func(t *testing.T) {
			stream := startStream(t, bytes.NewReader(compress(t, []byte(plain))), FormatJSON)

			for _, want := range []string{"/api/v1/pods", "/apis/apps/v1/deployments"} {
				item := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "record %s", want)
				if item.Err != nil {
					t.Fatalf("unexpected error: %v", item.Err)
				}
				if item.Record.RequestURI != want {
					t.Errorf("record = %q, want %q", item.Record.RequestURI, want)
				}
			}
			last := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "end of input")
			if !errors.Is(last.Err, ErrEndOfInput) {
				t.Errorf("final error = %v, want ErrEndOfInput", last.Err)
			}
			if got := stream.Stats().Compression; got != compression {
				t.Errorf("Stats().Compression = %v, want %v", got, compression)
			}
		})
	}
}

func TestStreamDecodesCBORSequence(t *testing.T) {
	event := map[string]any{
		"kind":                     "Event",
		"apiVersion":               "audit.k8s.io/v1",
		"level":                    "Request",
		"auditID":                  "5f0c1b9e-3c52-4c55-9a8e-2f3b1e4d6a70",
		"stage":                    "ResponseComplete",
		"requestURI":               "/api/v1/namespaces/default/configmaps",
		"verb":                     "create",
		"user":                     map[string]any{"username": "alice"},
		"requestObject":            map[string]any{"kind": "ConfigMap", "data": map[string]any{"a": "b"}},
		"requestReceivedTimestamp": "2026-03-01T10:00:00Z",
		"stageTimestamp":           "2026-03-01T10:00:01Z",
	}
	first, err := cbor.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	event["surprise"] = true
	second, err := cbor.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}

	stream := startStream(t, bytes.NewReader(append(first, second...)), FormatCBOR)

	item := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "CBOR record")
	if item.Err != nil {
		t.Fatalf("decode CBOR record: %v", item.Err)
	}
	body, ok := item.Record.RequestObject.(map[string]any)
	if !ok || body["kind"] != "ConfigMap" {
		t.Errorf("RequestObject = %#v, want a string-keyed map with kind ConfigMap", item.Record.RequestObject)
	}

	failure := testutil.RequireReceive(t, stream.Items(), receiveTimeout, "CBOR unknown field")
	var decodeError *DecodeError
	if !errors.As(failure.Err, &decodeError) || decodeError.Record != 2 {
		t.Errorf("second item error = %v, want DecodeError at record 2", failure.Err)
	}
}

func TestStreamCloseReleasesConsumer(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	stream := Start(context.Background(), reader, Options{})
	go func() {
		writer.Write([]byte(testRecord("/api/v1/pods", 1)))
	}()
	testutil.RequireReceive(t, stream.Items(), receiveTimeout, "record before close")

	stream.Close()
	testutil.RequireClosed(t, stream.Items(), receiveTimeout, "items closed after Close")
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", "cbor"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q): %v", name, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml) should fail")
	}
}
