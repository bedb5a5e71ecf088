// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/mapi-go/mapi/mapitest"
)

func decodeFixture(t *testing.T, pairs [][2]string, rows [][]string) *ResultSet {
	t.Helper()
	stream := mapitest.QueryResponse(pairs, rows)
	rs, err := NewDecoder(bytes.NewReader(stream)).Decode(context.Background(), NewStatement("q"))
	require.NoError(t, err)
	return rs
}

func TestArrowSchema(t *testing.T) {
	rs := decodeFixture(t,
		[][2]string{
			{"ok", "bit"},
			{"id", "int"},
			{"total", "lng"},
			{"ratio", "dbl"},
			{"label", "char"},
			{"day", "date"},
			{"at", "timestamp"},
			{"mystery", "blob"},
		},
		nil,
	)

	schema := rs.ArrowSchema()
	require.Equal(t, 8, schema.NumFields())
	assert.Equal(t, arrow.FixedWidthTypes.Boolean, schema.Field(0).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Int32, schema.Field(1).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(2).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, schema.Field(3).Type)
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(4).Type)
	assert.Equal(t, arrow.FixedWidthTypes.Date32, schema.Field(5).Type)
	assert.Equal(t, arrow.FixedWidthTypes.Timestamp_s, schema.Field(6).Type)
	// Unknown types travel as strings.
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(7).Type)
	for i := 0; i < schema.NumFields(); i++ {
		assert.True(t, schema.Field(i).Nullable)
	}
}

func TestToArrow(t *testing.T) {
	rs := decodeFixture(t,
		[][2]string{{"id", "int"}, {"name", "char"}, {"score", "dbl"}},
		[][]string{
			{"1", "'alice'", "1.5"},
			{"2", "'bob'", "2.25"},
		},
	)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	batch, err := rs.ToArrow(mem)
	require.NoError(t, err)

	require.Equal(t, int64(2), batch.NumRows())

	ids := batch.Column(0).(*array.Int32)
	assert.Equal(t, int32(1), ids.Value(0))
	assert.Equal(t, int32(2), ids.Value(1))

	names := batch.Column(1).(*array.String)
	assert.Equal(t, "alice", names.Value(0))
	assert.Equal(t, "bob", names.Value(1))

	scores := batch.Column(2).(*array.Float64)
	assert.Equal(t, 2.25, scores.Value(1))

	batch.Release()
	mem.AssertSize(t, 0)
}

func TestToArrowUnparseableCellsBecomeNull(t *testing.T) {
	rs := decodeFixture(t,
		[][2]string{{"id", "int"}, {"day", "date"}},
		[][]string{
			{"1", "2026-08-29"},
			{"NULL", "not-a-date"},
		},
	)

	batch, err := rs.ToArrow(nil)
	require.NoError(t, err)
	defer batch.Release()

	ids := batch.Column(0).(*array.Int32)
	assert.False(t, ids.IsNull(0))
	assert.True(t, ids.IsNull(1))

	days := batch.Column(1).(*array.Date32)
	assert.False(t, days.IsNull(0))
	assert.True(t, days.IsNull(1))
}

func TestToArrowRoundTripsThroughIPC(t *testing.T) {
	rs := decodeFixture(t,
		[][2]string{{"id", "int"}, {"name", "char"}},
		[][]string{{"1", "'alice'"}, {"2", "'bob'"}},
	)

	batch, err := rs.ToArrow(nil)
	require.NoError(t, err)
	defer batch.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(batch.Schema()))
	require.NoError(t, w.Write(batch))
	require.NoError(t, w.Close())

	r, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer r.Release()

	require.True(t, r.Next())
	got := r.RecordBatch()
	require.Equal(t, int64(2), got.NumRows())
	assert.True(t, got.Schema().Equal(batch.Schema()))
	assert.Equal(t, "bob", got.Column(1).(*array.String).Value(1))
}

func TestToArrowLeavesCursorAlone(t *testing.T) {
	rs := decodeFixture(t,
		[][2]string{{"id", "int"}},
		[][]string{{"1"}, {"2"}},
	)
	require.True(t, rs.Next())

	batch, err := rs.ToArrow(nil)
	require.NoError(t, err)
	defer batch.Release()
	assert.Equal(t, int64(2), batch.NumRows())

	// Cursor still on the first row.
	assert.Equal(t, []string{"1"}, rs.Row())
}
