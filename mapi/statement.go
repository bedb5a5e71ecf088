// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Statement is the caller-facing execution context for one SQL
// statement. It accumulates the statement-level error state and owns
// the decoded ResultSet once a decode returns successfully. A Statement
// is not safe for concurrent use.
type Statement struct {
	conn   *Conn // nil for detached statements decoding a recorded stream
	id     string
	query  string
	params map[int]string

	// expandedQuery is the text actually sent, with placeholders bound.
	expandedQuery string

	result *ResultSet
	err    *Error
	closed bool
}

// NewStatement creates a Statement that is not attached to a
// connection. Use it with a Decoder to decode a pre-recorded response
// stream; Execute on a detached Statement fails.
func NewStatement(query string) *Statement {
	return &Statement{
		id:            uuid.NewString(),
		query:         query,
		expandedQuery: query,
	}
}

// Prepare creates a Statement for the given query on this connection.
// Placeholder parameters (`?`) can be bound with Bind before Execute.
func (c *Conn) Prepare(query string) *Statement {
	return &Statement{
		conn:  c,
		id:    uuid.NewString(),
		query: query,
	}
}

// ID returns the statement's unique identifier, as carried in
// DecodeInfo and log fields.
func (s *Statement) ID() string {
	return s.id
}

// Bind binds a string value to the index-th `?` placeholder (the first
// placeholder is index 1). On Execute the placeholder is replaced by
// the value wrapped in single quotes, with embedded single quotes
// backslash-escaped. Binding the same index again overwrites.
func (s *Statement) Bind(index int, value string) {
	if s.params == nil {
		s.params = make(map[int]string)
	}
	s.params[index] = value
}

// Execute sends the statement to the server and decodes the response.
// Any ResultSet from a previous execution is released first. On failure
// the statement-level error is recorded and also returned.
func (s *Statement) Execute(ctx context.Context) (*ResultSet, error) {
	if s.conn == nil {
		return nil, errorf(KindCommunication, "statement is not attached to a connection")
	}
	if s.closed {
		return nil, errorf(KindCommunication, "statement is closed")
	}
	return s.conn.execute(ctx, s)
}

// Err returns the error recorded during the most recent execution, or
// nil.
func (s *Statement) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// Result returns the ResultSet owned by this statement, or nil.
func (s *Statement) Result() *ResultSet {
	return s.result
}

// Close releases the owned ResultSet. The statement cannot be executed
// afterwards.
func (s *Statement) Close() {
	s.releaseResult()
	s.closed = true
}

// recordError records the statement-level error. The first error of an
// execution wins; later ones never overwrite it.
func (s *Statement) recordError(err *Error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *Statement) clearErrors() {
	s.err = nil
}

// releaseResult closes and drops any previously decoded ResultSet.
// Release happens here and nowhere else.
func (s *Statement) releaseResult() {
	if s.result != nil {
		s.result.Close()
		s.result = nil
	}
}

// adoptResult transfers ownership of a freshly decoded ResultSet to the
// statement.
func (s *Statement) adoptResult(rs *ResultSet) {
	s.result = rs
}

// takeResult hands the owned ResultSet over to the caller.
func (s *Statement) takeResult() *ResultSet {
	rs := s.result
	s.result = nil
	return rs
}

func (s *Statement) remoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.addr
}

// expandQuery substitutes bound parameters for `?` placeholders.
// Placeholders without a bound value are sent through verbatim.
func (s *Statement) expandQuery() string {
	if len(s.params) == 0 {
		return s.query
	}
	var sb strings.Builder
	next := 1
	for i := 0; i < len(s.query); i++ {
		ch := s.query[i]
		if ch != '?' {
			sb.WriteByte(ch)
			continue
		}
		value, ok := s.params[next]
		next++
		if !ok {
			sb.WriteByte(ch)
			continue
		}
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(value, "'", `\'`))
		sb.WriteByte('\'')
	}
	return sb.String()
}
