// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

// Type is the client-side semantic type of a column, mapped from the
// type token the server declares in a result header.
type Type int

const (
	// TypeUnknown is assigned to any type token the client does not
	// recognize. An unrecognized token is not an error.
	TypeUnknown Type = iota
	TypeBool
	TypeTinyInt
	TypeChar
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDouble
	TypeDate
	TypeTime
	TypeTimestamp
)

// typeTokens maps declared type tokens to semantic types. Built once;
// never mutated after init.
var typeTokens = map[string]Type{
	"bit":       TypeBool,
	"uchr":      TypeTinyInt,
	"char":      TypeChar,
	"sht":       TypeSmallInt,
	"int":       TypeInt,
	"lng":       TypeBigInt,
	"flt":       TypeFloat,
	"dbl":       TypeDouble,
	"date":      TypeDate,
	"time":      TypeTime,
	"timestamp": TypeTimestamp,
}

// typeFor maps a declared type token to its semantic type.
// Unknown tokens yield TypeUnknown.
func typeFor(token string) Type {
	return typeTokens[token]
}

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "bit"
	case TypeTinyInt:
		return "uchr"
	case TypeChar:
		return "char"
	case TypeSmallInt:
		return "sht"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "lng"
	case TypeFloat:
		return "flt"
	case TypeDouble:
		return "dbl"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// minDisplayWidth holds per-type minimum display widths applied on top
// of the len(name)+2 default. Types not listed keep the default.
var minDisplayWidth = map[Type]int{
	TypeSmallInt:  6,
	TypeInt:       11,
	TypeBigInt:    20,
	TypeFloat:     14,
	TypeDouble:    24,
	TypeDate:      10,
	TypeTime:      8,
	TypeTimestamp: 19,
}

// refineDisplayWidth widens a descriptor's display width to the
// type-specific minimum. Callers may adjust DisplayWidth further.
func refineDisplayWidth(c *ColumnDescriptor) {
	if w, ok := minDisplayWidth[c.Type]; ok && w > c.DisplayWidth {
		c.DisplayWidth = w
	}
}
