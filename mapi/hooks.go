// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapi

import "context"

// DecodeHook provides observability callpoints around response decoding.
// Implementations must be safe for concurrent use: a Conn serializes
// decodes on one stream, but several Conns may share a hook.
type DecodeHook interface {
	OnDecodeStart(ctx context.Context, info DecodeInfo) (context.Context, HookToken)
	OnDecodeEnd(ctx context.Context, token HookToken, info DecodeInfo, stats *DecodeStatistics, err error)
}

// HookToken is an opaque value returned by OnDecodeStart and passed back
// to OnDecodeEnd. Only meaningful to the DecodeHook that created it.
type HookToken interface{}

// DecodeInfo carries statement metadata passed to hooks.
type DecodeInfo struct {
	Query       string // statement text as sent to the server
	StatementID string // unique identifier of the executing statement
	RemoteAddr  string // server address, empty for non-network sources
}

// DecodeStatistics holds per-decode counters.
type DecodeStatistics struct {
	Frames    int64 // protocol units consumed
	Columns   int64 // descriptors decoded
	Rows      int64 // rows decoded
	Fields    int64 // individual cells decoded
	Refills   int64 // buffer refills issued to the byte source
	BytesRead int64 // bytes obtained from the byte source
}

// recordRefill records one buffer refill that yielded n bytes.
func (s *DecodeStatistics) recordRefill(n int64) {
	s.Refills++
	s.BytesRead += n
}
