// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"context"
	"io"
	"log/slog"
)

// decodeState tracks the result assembler through one decode call.
type decodeState int

const (
	stateInitial decodeState = iota
	stateHeader
	stateRows
	stateDone
	stateError
)

// Decoder assembles one ResultSet per decode call from a byte source.
// It assumes exclusive ownership of the stream for the duration of a
// call and holds no locks of its own; callers sharing a stream must
// serialize decodes.
type Decoder struct {
	src     io.Reader
	bufSize int
	hook    DecodeHook

	// b persists across decode calls so that bytes buffered past the
	// end of one response are not lost before the next one.
	b *blockReader
}

// NewDecoder creates a Decoder reading from src.
func NewDecoder(src io.Reader) *Decoder {
	return &Decoder{src: src, bufSize: defaultBufferSize}
}

// SetBufferSize sets the decode buffer capacity. Values below one byte
// are ignored, and calls after the first decode have no effect. The
// size never affects what is decoded, only how often the byte source
// is read.
func (d *Decoder) SetBufferSize(n int) {
	if n > 0 {
		d.bufSize = n
	}
}

// SetDecodeHook registers a hook that is called around each decode.
func (d *Decoder) SetDecodeHook(hook DecodeHook) {
	d.hook = hook
}

// Decode reads one complete server response and assembles it into a
// ResultSet, which the given Statement owns from then on. On failure it
// records exactly one error on the Statement and returns no usable
// ResultSet. Any ResultSet from a previous decode on the same Statement
// is released before reading begins.
func (d *Decoder) Decode(ctx context.Context, stmt *Statement) (*ResultSet, error) {
	stmt.releaseResult()

	info := DecodeInfo{
		Query:       stmt.expandedQuery,
		StatementID: stmt.id,
		RemoteAddr:  stmt.remoteAddr(),
	}
	stats := &DecodeStatistics{}

	var hookToken HookToken
	var hookActive bool
	if d.hook != nil {
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					slog.Error("decode hook start panic", "err", rv)
				}
			}()
			var hookCtx context.Context
			hookCtx, hookToken = d.hook.OnDecodeStart(ctx, info)
			if hookCtx != nil {
				ctx = hookCtx
			}
			hookActive = true
		}()
	}

	rs, decodeErr := d.decode(stats)

	if hookActive {
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					slog.Error("decode hook end panic", "err", rv)
				}
			}()
			var err error
			if decodeErr != nil {
				err = decodeErr
			}
			d.hook.OnDecodeEnd(ctx, hookToken, info, stats, err)
		}()
	}

	if decodeErr != nil {
		stmt.recordError(decodeErr)
		return nil, decodeErr
	}
	stmt.adoptResult(rs)
	return rs, nil
}

// assembler drives the frame reader and the payload decoders through
// the INITIAL → HEADER → ROWS → DONE state machine. DONE and ERROR are
// terminal; every decode call starts a fresh assembler in INITIAL.
type assembler struct {
	b     *blockReader
	stats *DecodeStatistics
	state decodeState
}

// fail moves the assembler to its terminal error state. Any partially
// built ResultSet is discarded by the caller.
func (a *assembler) fail(err *Error) (*ResultSet, *Error) {
	a.state = stateError
	return nil, err
}

// decode runs the assembler state machine over one server response.
func (d *Decoder) decode(stats *DecodeStatistics) (*ResultSet, *Error) {
	if d.b == nil {
		d.b = newBlockReader(d.src, d.bufSize, stats)
	}
	d.b.stats = stats
	a := &assembler{
		b:     d.b,
		stats: stats,
		state: stateInitial,
	}
	return a.run()
}

func (a *assembler) run() (*ResultSet, *Error) {
	rs := &ResultSet{}

	tag, status, ferr := readFrame(a.b)
	if ferr != nil {
		return a.fail(ferr)
	}
	a.stats.Frames++

	switch {
	case tag == TagResult && status > 0:
		a.state = stateHeader
		cols, herr := decodeHeader(a.b, status)
		if herr != nil {
			return a.fail(herr)
		}
		rs.Columns = cols
		a.stats.Columns = int64(len(cols))

		tag, status, ferr = readFrame(a.b)
		if ferr != nil {
			return a.fail(ferr)
		}
		a.stats.Frames++
		switch {
		case tag == TagTable && status > 0:
			a.state = stateRows
			rows, rerr := decodeRows(a.b, status, len(cols), a.stats)
			if rerr != nil {
				return a.fail(rerr)
			}
			rs.rows = rows
			a.stats.Rows = int64(len(rows))
		case tag == TagTable && status == 0:
			// Zero-row result: columns retained, no payload follows.
		default:
			return a.fail(errorf(KindProtocol, "unexpected unit tag %d after result header", tag))
		}

	case tag == TagResult && status == 0:
		// A result with no columns carries no payload at all.

	case tag == TagUpdate:
		rs.AffectedRows = int64(status)

	default:
		return a.fail(errorf(KindProtocol, "unexpected unit tag %d", tag))
	}

	a.state = stateDone
	return rs, nil
}
