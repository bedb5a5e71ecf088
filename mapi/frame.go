// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Unit tags. Any negative tag marks an error unit.
const (
	// TagResult introduces column headers; status is the column count.
	TagResult = 1
	// TagTable introduces row data; status is the row count.
	TagTable = 2
	// TagUpdate reports a non-query statement; status is the affected-row count.
	TagUpdate = 3
	// TagEnd ends the server session.
	TagEnd = 4
)

// readFrame reads one unit header: an integer tag followed by an
// integer status, each as a discrete boundary-safe scan-and-convert
// step. A failure to read the tag, or a TagEnd unit, reports the
// session as gone. A negative tag or status marks an error unit;
// readFrame fully drains its chunked diagnostic payload so the stream
// is positioned at the next unit regardless of outcome, and returns
// the diagnostic as a KindServer error.
func readFrame(b *blockReader) (tag, status int, err *Error) {
	tag, serr := b.scanInt('\n')
	if serr != nil {
		return 0, 0, frameError("unit tag", serr)
	}
	if tag == TagEnd {
		return tag, 0, errorf(KindCommunication, "server ended the session")
	}

	status, serr = b.scanInt('\n')
	if serr != nil {
		return tag, 0, frameError("unit status", serr)
	}

	if tag < 0 || status < 0 {
		msg, derr := drainErrorUnit(b)
		if derr != nil {
			// Reported, but the server error stays the recorded failure.
			slog.Warn("draining error unit payload", "err", derr)
		}
		if msg == "" {
			msg = "no result available (status < 0)"
		}
		return tag, status, errorf(KindServer, "%s", msg)
	}

	if tag != TagResult && tag != TagTable && tag != TagUpdate {
		return tag, status, errorf(KindProtocol, "unrecognized unit tag %d", tag)
	}
	return tag, status, nil
}

// frameError maps a header scan failure: a clean or dirty stream end is
// a communication failure, a non-numeric token is a protocol error.
func frameError(what string, err error) *Error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return errorf(KindProtocol, "malformed %s %q", what, numErr.Num)
	}
	return errorf(KindCommunication, "reading %s: %v", what, err)
}

// drainErrorUnit consumes an error unit's payload: length-delimited
// chunks of the form <len:int>\n<len bytes>, terminated by a zero
// length. It returns the concatenated diagnostic text. The payload is
// drained to completion even on malformed chunks so that, when
// possible, the stream stays positioned for the next unit.
func drainErrorUnit(b *blockReader) (string, error) {
	var msg strings.Builder
	for {
		n, err := b.scanInt('\n')
		if err != nil {
			if err == io.EOF || err == errTruncated {
				return msg.String(), errorf(KindCommunication, "stream ended inside error unit")
			}
			var numErr *strconv.NumError
			if errors.As(err, &numErr) {
				return msg.String(), errorf(KindProtocol, "malformed diagnostic chunk header %q", numErr.Num)
			}
			return msg.String(), errorf(KindCommunication, "reading diagnostic chunk header: %v", err)
		}
		if n == 0 {
			return msg.String(), nil
		}
		if n < 0 {
			return msg.String(), errorf(KindProtocol, "negative diagnostic chunk length %d", n)
		}
		chunk, err := b.readN(n)
		if err != nil {
			return msg.String(), errorf(KindCommunication, "reading diagnostic chunk: %v", err)
		}
		msg.Write(chunk)
	}
}
