// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

// decodeRows parses nRows*nCols fields from a table unit's payload in
// row-major order. Each field is scanned to the next tab or newline,
// boundary-safe across refills. A field bracketed by exactly one
// matching pair of single or double quotes has the pair stripped and
// the interior stored verbatim, with no further unescaping; any other
// field is stored verbatim. If the stream ends before every declared
// field has been read, the whole decode fails; no partial matrix is
// ever returned.
func decodeRows(b *blockReader, nRows, nCols int, stats *DecodeStatistics) ([][]string, *Error) {
	rows := make([][]string, 0, nRows)
	for r := 0; r < nRows; r++ {
		row := make([]string, nCols)
		for c := 0; c < nCols; c++ {
			field, delim, err := b.scanUntil("\t\n")
			if err != nil {
				// Clean end-of-stream and transport failure are one
				// undifferentiated truncation here.
				return nil, errorf(KindCommunication,
					"stream ended at row %d column %d of %dx%d: %v", r+1, c+1, nRows, nCols, err)
			}
			if c < nCols-1 && delim == '\n' {
				return nil, errorf(KindParse,
					"row %d has %d fields, expected %d", r+1, c+1, nCols)
			}
			if c == nCols-1 && delim == '\t' {
				return nil, errorf(KindParse,
					"row %d has more than %d fields", r+1, nCols)
			}
			row[c] = unquote(field)
			if stats != nil {
				stats.Fields++
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// unquote strips exactly one outer pair of matching quote characters.
// The interior is copied verbatim: escape sequences are the server's
// business, not ours.
func unquote(field []byte) string {
	if len(field) >= 2 {
		first, last := field[0], field[len(field)-1]
		if first == last && (first == '"' || first == '\'') {
			return string(field[1 : len(field)-1])
		}
	}
	return string(field)
}
