// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package benchmark generates synthetic wire streams for benchmarking
// the response decoder.
package benchmark

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/Query-farm/mapi-go/mapi/mapitest"
)

// Columns returns a representative mixed-type column set.
func Columns() [][2]string {
	return [][2]string{
		{"id", "lng"},
		{"name", "char"},
		{"score", "dbl"},
		{"active", "bit"},
		{"created", "timestamp"},
	}
}

// Rows generates n rows matching Columns, with quoted text fields.
func Rows(n int) [][]string {
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("'user_%d'", i),
			fmt.Sprintf("%d.%03d", i%100, i%1000),
			fmt.Sprintf("%d", i%2),
			"2026-08-29 12:00:00",
		}
	}
	return rows
}

// QueryStream renders a complete query response with n rows.
func QueryStream(n int) []byte {
	return mapitest.QueryResponse(Columns(), Rows(n))
}

// GzipStream renders QueryStream(n) gzip-compressed.
func GzipStream(n int) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(QueryStream(n)); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ZstdStream renders QueryStream(n) zstd-compressed.
func ZstdStream(n int) []byte {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		panic(err)
	}
	if _, err := zw.Write(QueryStream(n)); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
