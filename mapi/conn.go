// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
)

// Conn is a client connection to a query server. It owns the write half
// of the transport and a Decoder over the read half, and serializes
// statement execution so exactly one decode is in flight per stream.
// The decoder itself holds no locks and performs no queuing; the mutex
// here is the caller-side serialization the protocol requires.
type Conn struct {
	mu     sync.Mutex
	w      *bufio.Writer
	dec    *Decoder
	closer io.Closer
	addr   string
	// closed is atomic: Close must work from another goroutine while a
	// decode holds the mutex.
	closed atomic.Bool
}

// Dial connects to a query server over TCP.
func Dial(addr string) (*Conn, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	c := NewConn(nc)
	c.addr = addr
	return c, nil
}

// NewConn wraps an established transport. If rw implements io.Closer,
// Close closes it; this is how external cancellation works: closing
// the transport makes the decoder's next blocking read fail with a
// KindCommunication error.
func NewConn(rw io.ReadWriter) *Conn {
	c := &Conn{
		w:   bufio.NewWriter(rw),
		dec: NewDecoder(rw),
	}
	if closer, ok := rw.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// SetDecodeHook registers a hook called around every decode on this
// connection.
func (c *Conn) SetDecodeHook(hook DecodeHook) {
	c.dec.SetDecodeHook(hook)
}

// SetBufferSize sets the decode buffer capacity.
func (c *Conn) SetBufferSize(n int) {
	c.dec.SetBufferSize(n)
}

// Query executes a statement and returns its ResultSet, which the
// caller owns and must Close.
func (c *Conn) Query(ctx context.Context, query string) (*ResultSet, error) {
	stmt := c.Prepare(query)
	if _, err := stmt.Execute(ctx); err != nil {
		return nil, err
	}
	return stmt.takeResult(), nil
}

// Exec executes a non-query statement and returns the affected-row
// count.
func (c *Conn) Exec(ctx context.Context, query string) (int64, error) {
	rs, err := c.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rs.Close()
	return rs.AffectedRows, nil
}

// execute sends one statement and decodes its response. Holding the
// mutex across both halves is what guarantees one decode per stream.
func (c *Conn) execute(ctx context.Context, stmt *Statement) (*ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		err := errorf(KindCommunication, "connection is closed")
		stmt.recordError(err)
		return nil, err
	}

	stmt.clearErrors()
	stmt.expandedQuery = stmt.expandQuery()

	if err := c.send(stmt.expandedQuery); err != nil {
		cerr := errorf(KindCommunication, "sending statement: %v", err)
		stmt.recordError(cerr)
		return nil, cerr
	}
	return c.dec.Decode(ctx, stmt)
}

// send writes the statement text, terminated the way the server expects,
// and flushes.
func (c *Conn) send(query string) error {
	if _, err := c.w.WriteString(query); err != nil {
		return err
	}
	if _, err := c.w.WriteString(";\n"); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close closes the underlying transport. A decode blocked in a read
// fails with a KindCommunication error; it is never retried.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.closer == nil {
		return nil
	}
	if err := c.closer.Close(); err != nil {
		slog.Error("closing transport", "addr", c.addr, "err", err)
		return err
	}
	return nil
}
