// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import (
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// arrowType maps a semantic column type to its Arrow interchange type.
// Unknown columns travel as strings.
func arrowType(t Type) arrow.DataType {
	switch t {
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case TypeTinyInt:
		return arrow.PrimitiveTypes.Uint8
	case TypeSmallInt:
		return arrow.PrimitiveTypes.Int16
	case TypeInt:
		return arrow.PrimitiveTypes.Int32
	case TypeBigInt:
		return arrow.PrimitiveTypes.Int64
	case TypeFloat:
		return arrow.PrimitiveTypes.Float32
	case TypeDouble:
		return arrow.PrimitiveTypes.Float64
	case TypeDate:
		return arrow.FixedWidthTypes.Date32
	case TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_s
	default:
		// TypeChar, TypeTime, TypeUnknown
		return arrow.BinaryTypes.String
	}
}

// ArrowSchema returns the Arrow schema corresponding to the result's
// columns, in declaration order. All fields are nullable: a cell that
// cannot be parsed as its column's type becomes a null.
func (rs *ResultSet) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(rs.Columns))
	for i, c := range rs.Columns {
		fields[i] = arrow.Field{
			Name:     c.Name,
			Type:     arrowType(c.Type),
			Nullable: true,
		}
	}
	return arrow.NewSchema(fields, nil)
}

// ToArrow converts the decoded rows into a single Arrow RecordBatch.
// The cursor is not consulted or moved; the whole matrix is converted.
// The caller must Release the returned batch.
func (rs *ResultSet) ToArrow(mem memory.Allocator) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	schema := rs.ArrowSchema()
	cols := make([]arrow.Array, len(rs.Columns))
	for i, c := range rs.Columns {
		cols[i] = buildColumn(mem, c.Type, rs.rows, i)
	}
	batch := array.NewRecordBatch(schema, cols, int64(len(rs.rows)))
	for _, col := range cols {
		col.Release()
	}
	return batch, nil
}

// buildColumn builds one Arrow array from column col of the row matrix.
func buildColumn(mem memory.Allocator, t Type, rows [][]string, col int) arrow.Array {
	switch t {
	case TypeBool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, row := range rows {
			if v, err := strconv.ParseBool(row[col]); err == nil {
				b.Append(v)
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case TypeTinyInt:
		b := array.NewUint8Builder(mem)
		defer b.Release()
		for _, row := range rows {
			if v, err := strconv.ParseUint(row[col], 10, 8); err == nil {
				b.Append(uint8(v))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case TypeSmallInt:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		for _, row := range rows {
			if v, err := strconv.ParseInt(row[col], 10, 16); err == nil {
				b.Append(int16(v))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case TypeInt:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for _, row := range rows {
			if v, err := strconv.ParseInt(row[col], 10, 32); err == nil {
				b.Append(int32(v))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case TypeBigInt:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, row := range rows {
			if v, err := strconv.ParseInt(row[col], 10, 64); err == nil {
				b.Append(v)
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case TypeFloat:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		for _, row := range rows {
			if v, err := strconv.ParseFloat(row[col], 32); err == nil {
				b.Append(float32(v))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case TypeDouble:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, row := range rows {
			if v, err := strconv.ParseFloat(row[col], 64); err == nil {
				b.Append(v)
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case TypeDate:
		b := array.NewDate32Builder(mem)
		defer b.Release()
		for _, row := range rows {
			if ts, err := time.Parse("2006-01-02", row[col]); err == nil {
				b.Append(arrow.Date32FromTime(ts))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	case TypeTimestamp:
		b := array.NewTimestampBuilder(mem, arrow.FixedWidthTypes.Timestamp_s.(*arrow.TimestampType))
		defer b.Release()
		for _, row := range rows {
			if ts, err := time.Parse("2006-01-02 15:04:05", row[col]); err == nil {
				b.Append(arrow.Timestamp(ts.Unix()))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray()
	default:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, row := range rows {
			b.Append(row[col])
		}
		return b.NewArray()
	}
}
