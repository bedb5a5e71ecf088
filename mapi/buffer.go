// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// defaultBufferSize is the capacity of the decode buffer. One decode
// call owns the buffer exclusively; the size only affects how often the
// byte source is read, never what is decoded.
const defaultBufferSize = 8192

// errTruncated reports a clean end-of-stream in the middle of a token.
var errTruncated = errors.New("stream ended mid-token")

// blockReader is a fixed-capacity buffer over a byte source. It tracks
// the unread region [pos, end) and refills on demand without discarding
// bytes of a partially scanned token. Invariant: pos <= end <= cap.
type blockReader struct {
	src   io.Reader
	buf   []byte
	pos   int
	end   int
	eof   bool
	stats *DecodeStatistics
}

func newBlockReader(src io.Reader, size int, stats *DecodeStatistics) *blockReader {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &blockReader{src: src, buf: make([]byte, size), stats: stats}
}

// fill retains the unread bytes starting at offset keep, compacts them
// to the front of the buffer, and issues one blocking read to fill the
// remainder. It returns false when the read yields zero bytes, which
// marks a clean end of stream.
func (b *blockReader) fill(keep int) (bool, error) {
	if b.eof {
		return false, nil
	}
	if keep < b.end {
		copy(b.buf, b.buf[keep:b.end])
	}
	b.end -= keep
	b.pos -= keep
	if b.end == len(b.buf) {
		// A single token larger than the whole buffer: grow instead of
		// failing, the capacity is a transport tuning knob only.
		b.buf = append(b.buf, make([]byte, len(b.buf))...)
	}
	n, err := b.src.Read(b.buf[b.end:])
	b.end += n
	if b.stats != nil {
		b.stats.recordRefill(int64(n))
	}
	if err != nil {
		if err == io.EOF {
			b.eof = true
			return n > 0, nil
		}
		return false, fmt.Errorf("reading from byte source: %w", err)
	}
	if n == 0 {
		b.eof = true
		return false, nil
	}
	return true, nil
}

// scanUntil returns the bytes before the first occurrence of any
// delimiter byte, together with the delimiter itself, and consumes
// both. The token start is preserved across refills, so a token split
// over any number of reads is reassembled intact. The returned slice
// aliases the buffer and is only valid until the next operation.
//
// A clean end of stream before any token byte returns io.EOF; a clean
// end of stream mid-token returns errTruncated.
func (b *blockReader) scanUntil(delims string) ([]byte, byte, error) {
	start := b.pos
	i := b.pos
	for {
		for i < b.end {
			if strings.IndexByte(delims, b.buf[i]) >= 0 {
				tok := b.buf[start:i]
				d := b.buf[i]
				b.pos = i + 1
				return tok, d, nil
			}
			i++
		}
		// Delimiter not buffered yet: keep the partial token, refill,
		// and resume scanning where we left off.
		scanned := i - start
		got, err := b.fill(start)
		if err != nil {
			return nil, 0, err
		}
		start, i = 0, scanned
		if !got {
			if scanned == 0 {
				return nil, 0, io.EOF
			}
			return nil, 0, errTruncated
		}
	}
}

// scanInt scans up to delim and converts the token to an integer: a
// discrete scan-and-convert step, so integers are as boundary-safe as
// any other token.
func (b *blockReader) scanInt(delim byte) (int, error) {
	tok, _, err := b.scanUntil(string(delim))
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(string(tok))
	if err != nil {
		return 0, err
	}
	return v, nil
}

// readN consumes exactly n bytes, refilling as needed, and returns them
// in a freshly allocated slice.
func (b *blockReader) readN(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for n > 0 {
		if b.pos == b.end {
			got, err := b.fill(b.pos)
			if err != nil {
				return nil, err
			}
			if !got {
				return nil, errTruncated
			}
		}
		take := b.end - b.pos
		if take > n {
			take = n
		}
		out = append(out, b.buf[b.pos:b.pos+take]...)
		b.pos += take
		n -= take
	}
	return out, nil
}
