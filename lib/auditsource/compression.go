// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditsource

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the container an input stream arrived in.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// String returns the human-readable name of a compression kind.
func (compression Compression) String() string {
	switch compression {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", compression)
	}
}

// Frame magic numbers. Rotated audit logs are commonly gzip'd by
// logrotate; zstd and LZ4 show up from log shippers.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// detectCompression peeks at the first bytes of reader without
// consuming them. Inputs shorter than a magic number are treated as
// uncompressed.
func detectCompression(reader *bufio.Reader) (Compression, error) {
	header, err := reader.Peek(4)
	if err != nil && err != io.EOF {
		return CompressionNone, err
	}
	switch {
	case bytes.HasPrefix(header, zstdMagic):
		return CompressionZstd, nil
	case bytes.HasPrefix(header, lz4Magic):
		return CompressionLZ4, nil
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip, nil
	default:
		return CompressionNone, nil
	}
}

// decompress wraps input in the decompressor its header calls for.
// The returned close function releases decoder resources; it does not
// close input.
func decompress(input io.Reader) (io.Reader, Compression, func(), error) {
	buffered := bufio.NewReaderSize(input, 64*1024)
	compression, err := detectCompression(buffered)
	if err != nil {
		return nil, CompressionNone, nil, fmt.Errorf("reading input header: %w", err)
	}

	switch compression {
	case CompressionGzip:
		reader, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, compression, nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		// Concatenated gzip members (logrotate appends) read as one stream.
		reader.Multistream(true)
		return reader, compression, func() { reader.Close() }, nil

	case CompressionZstd:
		reader, err := zstd.NewReader(buffered, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, compression, nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		return reader, compression, reader.Close, nil

	case CompressionLZ4:
		return lz4.NewReader(buffered), compression, func() {}, nil

	default:
		return buffered, compression, func() {}, nil
	}
}
