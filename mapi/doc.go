// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package mapi implements a Go client for MAPI-style tabular query
// servers: engines that answer each executed statement with a
// row-oriented, line/tab delimited byte stream.
//
// The core of the package is the response decoder. A server response is
// a sequence of units, each introduced by an ASCII header of the form
//
//	<tag:int>\n<status:int>\n
//
// where the tag selects the payload shape ([TagResult] column headers,
// [TagTable] row data, [TagUpdate] an affected-row count) and the status
// carries the column count, row count, or affected-row count. A negative
// tag or status marks an error unit whose payload is a chunked server
// diagnostic. Column headers arrive as `<name>,<typename>\n` pairs; row
// data arrives as tab/newline delimited fields in row-major order, each
// optionally wrapped in one matching pair of single or double quotes.
//
// The decoder reads through a fixed-capacity buffer and tolerates
// arbitrary fragmentation of the underlying transport: any token (a
// field, a unit header, a type name) may be split across reads, and
// scanning resumes from the preserved token start after every refill.
// Decoding the same byte sequence split into 1-byte reads or delivered
// in a single read produces an identical [ResultSet].
//
// # Usage
//
//	conn, err := mapi.Dial("localhost:50000")
//	if err != nil { ... }
//	defer conn.Close()
//
//	rs, err := conn.Query(ctx, "SELECT id, name FROM users")
//	if err != nil { ... }
//	defer rs.Close()
//	for rs.Next() {
//		id, _ := rs.Value(1)
//		name, _ := rs.Value(2)
//		...
//	}
//
// Column and row ordinals presented to callers start at 1, following
// the convention of the servers this package talks to.
//
// # Concurrency
//
// Decoding is synchronous and blocking. Exactly one decode may be in
// flight per stream; [Conn] serializes statement execution internally,
// so a Conn may be shared between goroutines, but a [ResultSet] and a
// [Statement] may not. Cancellation is external: closing the underlying
// transport makes the next blocking read fail, which surfaces as a
// [KindCommunication] error.
//
// # Observability
//
// Install a [DecodeHook] via [Conn.SetDecodeHook] to observe every
// decode with its [DecodeStatistics]. The mapi/otel subpackage provides
// an OpenTelemetry implementation with tracing and metrics.
//
// # Arrow interchange
//
// [ResultSet.ToArrow] converts a decoded result into an Apache Arrow
// RecordBatch for columnar interchange with Arrow-native consumers.
package mapi
