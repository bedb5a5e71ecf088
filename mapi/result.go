// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

// ColumnDescriptor describes one column of a decoded result.
type ColumnDescriptor struct {
	// Name is the column name as declared by the server, byte for byte.
	Name string
	// TypeName is the declared type token from the result header.
	TypeName string
	// Type is the semantic type mapped from TypeName; TypeUnknown when
	// the token is not recognized.
	Type Type
	// DisplayWidth is a rendering hint: len(Name)+2, widened to a
	// type-specific minimum. Callers may adjust it.
	DisplayWidth int
}

// ResultSet holds the decoded outcome of one executed statement: column
// descriptors and a row-major value matrix for queries, or just an
// affected-row count for update statements.
//
// A ResultSet exclusively owns every cell and descriptor name it holds.
// Close is the single release point; the owning Statement closes any
// previous ResultSet before a new decode begins. Column and row
// ordinals exposed to callers are 1-based.
type ResultSet struct {
	// Columns are the column descriptors in declaration order. Empty for
	// update statements.
	Columns []ColumnDescriptor
	// AffectedRows is the server-reported affected-row count for update
	// statements; zero for queries.
	AffectedRows int64

	rows   [][]string
	cursor int // 0 = before the first row
	closed bool
}

// NumColumns returns the number of columns.
func (rs *ResultSet) NumColumns() int {
	return len(rs.Columns)
}

// NumRows returns the number of decoded rows.
func (rs *ResultSet) NumRows() int {
	return len(rs.rows)
}

// Next advances the cursor to the next row. It returns false once the
// rows are exhausted or the ResultSet is closed.
func (rs *ResultSet) Next() bool {
	if rs.closed || rs.cursor >= len(rs.rows) {
		return false
	}
	rs.cursor++
	return true
}

// Row returns the current row's cells in column order, or nil when the
// cursor is not positioned on a row.
func (rs *ResultSet) Row() []string {
	if rs.closed || rs.cursor < 1 || rs.cursor > len(rs.rows) {
		return nil
	}
	return rs.rows[rs.cursor-1]
}

// Value returns the current row's cell for the given 1-based column
// ordinal. The second return is false when the cursor or ordinal is out
// of range.
func (rs *ResultSet) Value(ordinal int) (string, bool) {
	row := rs.Row()
	if row == nil || ordinal < 1 || ordinal > len(row) {
		return "", false
	}
	return row[ordinal-1], true
}

// Rewind repositions the cursor before the first row.
func (rs *ResultSet) Rewind() {
	rs.cursor = 0
}

// Close releases every owned cell and descriptor name. Accessors return
// zero values afterwards. Close is idempotent.
func (rs *ResultSet) Close() {
	if rs == nil || rs.closed {
		return
	}
	rs.closed = true
	rs.Columns = nil
	rs.rows = nil
	rs.cursor = 0
}
