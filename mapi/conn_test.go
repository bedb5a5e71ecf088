// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/mapi-go/mapi/mapitest"
)

// dialPipe wires a Conn to an in-memory transport served by a scripted
// responder.
func dialPipe(t *testing.T, responses ...[]byte) *Conn {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		_ = mapitest.ServeScript(server, responses...)
	}()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return NewConn(client)
}

func TestConnQuery(t *testing.T) {
	conn := dialPipe(t, mapitest.QueryResponse(
		[][2]string{{"id", "int"}, {"name", "char"}},
		[][]string{{"1", "'alice'"}, {"2", "'bob'"}},
	))

	rs, err := conn.Query(context.Background(), "select id, name from users")
	require.NoError(t, err)
	defer rs.Close()

	assert.Equal(t, 2, rs.NumColumns())
	assert.Equal(t, 2, rs.NumRows())
	require.True(t, rs.Next())
	assert.Equal(t, []string{"1", "alice"}, rs.Row())
}

func TestConnExec(t *testing.T) {
	conn := dialPipe(t, mapitest.UpdateResponse(7))

	n, err := conn.Exec(context.Background(), "delete from users where inactive")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestConnStatementSequence(t *testing.T) {
	conn := dialPipe(t,
		mapitest.UpdateResponse(1),
		mapitest.QueryResponse(
			[][2]string{{"count", "lng"}},
			[][]string{{"1"}},
		),
	)

	n, err := conn.Exec(context.Background(), "insert into t values (1)")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rs, err := conn.Query(context.Background(), "select count(*) from t")
	require.NoError(t, err)
	defer rs.Close()
	require.True(t, rs.Next())
	v, ok := rs.Value(1)
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestConnBoundParameters(t *testing.T) {
	conn := dialPipe(t, mapitest.QueryResponse(
		[][2]string{{"id", "int"}},
		[][]string{{"3"}},
	))

	stmt := conn.Prepare("select id from users where name = ?")
	stmt.Bind(1, "O'Brien")
	rs, err := stmt.Execute(context.Background())
	require.NoError(t, err)
	require.True(t, rs.Next())
	assert.Equal(t, []string{"3"}, rs.Row())
}

func TestConnServerError(t *testing.T) {
	conn := dialPipe(t, mapitest.ErrorUnit(-1, "syntax error", 6))

	stmt := conn.Prepare("selec oops")
	_, err := stmt.Execute(context.Background())
	require.Error(t, err)

	var merr *Error
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, KindServer, merr.Kind)
	assert.Contains(t, merr.Message, "syntax error")
	assert.Equal(t, err, stmt.Err())
}

func TestConnErrorThenRecovery(t *testing.T) {
	conn := dialPipe(t,
		mapitest.ErrorUnit(-1, "table missing", 5),
		mapitest.UpdateResponse(2),
	)

	stmt := conn.Prepare("update nowhere set x = 1")
	_, err := stmt.Execute(context.Background())
	require.Error(t, err)

	// The stream is drained past the error unit, so the connection
	// stays usable and the error state resets per execution.
	n, err := conn.Exec(context.Background(), "update t set x = 1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestConnClosedRejectsExecution(t *testing.T) {
	conn := dialPipe(t)
	require.NoError(t, conn.Close())

	_, err := conn.Query(context.Background(), "select 1")
	require.Error(t, err)
	var merr *Error
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, KindCommunication, merr.Kind)
}

func TestConnCloseUnblocksDecode(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConn(client)
	t.Cleanup(func() { server.Close() })

	// A server that consumes the statement and then never answers.
	go func() {
		buf := make([]byte, 256)
		_, _ = server.Read(buf)
	}()

	done := make(chan error, 1)
	go func() {
		_, err := conn.Query(context.Background(), "select sleep()")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		var merr *Error
		require.True(t, errors.As(err, &merr))
		assert.Equal(t, KindCommunication, merr.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("decode did not unblock after Close")
	}
}

func TestDialRefused(t *testing.T) {
	// A listener that is immediately closed gives a port with nothing
	// listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = Dial(addr)
	assert.Error(t, err)
}
