// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package mapitest provides wire-format fixtures for testing the mapi
// protocol decoder. It builds well-formed (and deliberately malformed)
// response units as raw bytes, offers a fragmenting reader that
// delivers a byte stream in reads of bounded size, and runs a minimal
// scripted server for end-to-end connection tests.
package mapitest

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Tag values mirroring the protocol constants; kept local so fixtures
// stay independent of the package under test.
const (
	TagResult = 1
	TagTable  = 2
	TagUpdate = 3
	TagEnd    = 4
	TagError  = -1
)

// Frame renders one unit header.
func Frame(tag, status int) []byte {
	return []byte(fmt.Sprintf("%d\n%d\n", tag, status))
}

// Header renders a result header payload from name/typename pairs.
func Header(pairs ...[2]string) []byte {
	var b bytes.Buffer
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s,%s\n", p[0], p[1])
	}
	return b.Bytes()
}

// Rows renders a table payload: tab-separated fields, newline-terminated
// rows. Fields are emitted verbatim; quote them in the input if the
// test needs quoted fields.
func Rows(rows [][]string) []byte {
	var b bytes.Buffer
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// ErrorUnit renders a complete error unit: header with the given
// status, the message split into chunks of at most chunkSize bytes,
// and the terminal zero-length chunk marker.
func ErrorUnit(status int, message string, chunkSize int) []byte {
	var b bytes.Buffer
	b.Write(Frame(TagError, status))
	for len(message) > 0 {
		n := chunkSize
		if n <= 0 || n > len(message) {
			n = len(message)
		}
		fmt.Fprintf(&b, "%d\n%s", n, message[:n])
		message = message[n:]
	}
	b.WriteString("0\n")
	return b.Bytes()
}

// QueryResponse renders a full query response: result header unit,
// column pairs, table unit, and rows.
func QueryResponse(pairs [][2]string, rows [][]string) []byte {
	var b bytes.Buffer
	b.Write(Frame(TagResult, len(pairs)))
	b.Write(Header(pairs...))
	b.Write(Frame(TagTable, len(rows)))
	b.Write(Rows(rows))
	return b.Bytes()
}

// UpdateResponse renders an update unit reporting affected rows.
func UpdateResponse(affected int) []byte {
	return Frame(TagUpdate, affected)
}

// Concat joins response fragments into one stream.
func Concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// ChunkReader delivers a byte stream in reads of at most Size bytes,
// regardless of how much the caller asks for. With Size 1 every token
// is split across reads, which is exactly what the decoder's
// fragmentation guarantees are tested against.
type ChunkReader struct {
	data []byte
	off  int
	// Size is the maximum number of bytes returned per Read.
	Size int
}

// NewChunkReader creates a ChunkReader over data with the given maximum
// read size.
func NewChunkReader(data []byte, size int) *ChunkReader {
	if size < 1 {
		size = 1
	}
	return &ChunkReader{data: data, Size: size}
}

func (c *ChunkReader) Read(p []byte) (int, error) {
	if c.off >= len(c.data) {
		return 0, io.EOF
	}
	n := c.Size
	if n > len(p) {
		n = len(p)
	}
	if n > len(c.data)-c.off {
		n = len(c.data) - c.off
	}
	copy(p, c.data[c.off:c.off+n])
	c.off += n
	return n, nil
}

// ServeScript reads newline-terminated statements from rw and answers
// each with the next scripted response, in order. It returns when the
// script is exhausted or the transport errors. Run it in a goroutine
// against one end of a net.Pipe.
func ServeScript(rw io.ReadWriter, responses ...[]byte) error {
	buf := make([]byte, 1)
	for _, resp := range responses {
		// Consume one statement: everything up to and including '\n'.
		for {
			if _, err := io.ReadFull(rw, buf); err != nil {
				return err
			}
			if buf[0] == '\n' {
				break
			}
		}
		if _, err := rw.Write(resp); err != nil {
			return err
		}
	}
	return nil
}
