// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import "io"

// decodeHeader parses nCols column descriptors from a result unit's
// payload: nCols repetitions of `<name>,<typename>\n`. Both scans are
// boundary-safe. The declared type token is mapped to a semantic type;
// unrecognized tokens yield TypeUnknown, not an error. Descriptors are
// returned in declaration order; callers address the first column as
// ordinal 1.
func decodeHeader(b *blockReader, nCols int) ([]ColumnDescriptor, *Error) {
	cols := make([]ColumnDescriptor, 0, nCols)
	for i := 0; i < nCols; i++ {
		name, _, err := b.scanUntil(",")
		if err != nil {
			return nil, headerError(i, nCols, err)
		}
		// The name slice aliases the buffer; own it before the next scan.
		ownedName := string(name)

		token, _, err := b.scanUntil("\n")
		if err != nil {
			return nil, headerError(i, nCols, err)
		}
		c := ColumnDescriptor{
			Name:         ownedName,
			TypeName:     string(token),
			Type:         typeFor(string(token)),
			DisplayWidth: len(ownedName) + 2,
		}
		refineDisplayWidth(&c)
		cols = append(cols, c)
	}
	return cols, nil
}

// headerError maps a header scan failure. A stream that ends before all
// declared columns arrive is malformed output, not a transport fault.
func headerError(i, nCols int, err error) *Error {
	if err == errTruncated || err == io.EOF {
		return errorf(KindProtocol, "stream ended after column %d of %d", i, nCols)
	}
	return errorf(KindCommunication, "reading column %d of %d: %v", i+1, nCols, err)
}
