// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// NewGzipSource wraps a gzip-compressed byte source. The decoder reads
// decompressed bytes; fragmentation guarantees are unaffected because
// refills stay boundary-safe whatever the source hands back per read.
func NewGzipSource(src io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("opening gzip source: %w", err)
	}
	return zr, nil
}

// NewZstdSource wraps a zstd-compressed byte source.
func NewZstdSource(src io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("opening zstd source: %w", err)
	}
	return zr.IOReadCloser(), nil
}
