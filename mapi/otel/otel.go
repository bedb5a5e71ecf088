// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package mapiotel provides OpenTelemetry instrumentation for mapi
// client connections. It implements the [mapi.DecodeHook] interface to
// add distributed tracing and metrics to response decoding.
//
// Usage:
//
//	conn, err := mapi.Dial(addr)
//	// ...
//	mapiotel.InstrumentConn(conn, mapiotel.DefaultConfig())
package mapiotel

import (
	"context"
	"fmt"
	"time"

	"github.com/Query-farm/mapi-go/mapi"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "mapi_client"

// Config configures OpenTelemetry instrumentation for a mapi connection.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed decodes.
	// Default true.
	RecordExceptions bool
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with sensible defaults. TracerProvider
// and MeterProvider are resolved from the global OTel SDK at
// instrumentation time.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// InstrumentConn attaches OpenTelemetry instrumentation to a mapi
// connection. The hook is installed via [mapi.Conn.SetDecodeHook].
func InstrumentConn(conn *mapi.Conn, cfg Config) {
	conn.SetDecodeHook(NewHook(cfg))
}

// NewHook builds the instrumentation hook without installing it, for
// callers that construct Decoders directly.
func NewHook(cfg Config) mapi.DecodeHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	hook := &otelHook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}

	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		hook.decodeCounter, _ = meter.Int64Counter("db.client.decodes",
			metric.WithUnit("{decode}"),
			metric.WithDescription("Number of response decodes"),
		)
		hook.durationHistogram, _ = meter.Float64Histogram("db.client.decode.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of response decodes"),
		)
		hook.rowCounter, _ = meter.Int64Counter("db.client.rows",
			metric.WithUnit("{row}"),
			metric.WithDescription("Number of decoded rows"),
		)
	}

	return hook
}

// otelHook implements mapi.DecodeHook with OpenTelemetry tracing and metrics.
type otelHook struct {
	cfg               Config
	tracer            trace.Tracer
	decodeCounter     metric.Int64Counter
	durationHistogram metric.Float64Histogram
	rowCounter        metric.Int64Counter
}

// spanToken is the HookToken returned by OnDecodeStart.
type spanToken struct {
	span      trace.Span
	startTime time.Time
}

// OnDecodeStart starts a client span for the decode.
func (h *otelHook) OnDecodeStart(ctx context.Context, info mapi.DecodeInfo) (context.Context, mapi.HookToken) {
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.system", "mapi"),
		attribute.String("db.statement", info.Query),
		attribute.String("db.mapi.statement_id", info.StatementID),
	}
	if info.RemoteAddr != "" {
		attrs = append(attrs, attribute.String("net.peer.name", info.RemoteAddr))
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, "mapi.decode",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, &spanToken{span: span, startTime: time.Now()}
}

// OnDecodeEnd records span attributes, metrics, and ends the span.
func (h *otelHook) OnDecodeEnd(ctx context.Context, token mapi.HookToken, info mapi.DecodeInfo, stats *mapi.DecodeStatistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("db.system", "mapi"),
			attribute.String("status", status),
		)
		if h.decodeCounter != nil {
			h.decodeCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
		if h.rowCounter != nil && stats != nil {
			h.rowCounter.Add(ctx, stats.Rows, metricAttrs)
		}
	}

	if st.span != nil && st.span.IsRecording() {
		if stats != nil {
			st.span.SetAttributes(
				attribute.Int64("db.mapi.frames", stats.Frames),
				attribute.Int64("db.mapi.columns", stats.Columns),
				attribute.Int64("db.mapi.rows", stats.Rows),
				attribute.Int64("db.mapi.fields", stats.Fields),
				attribute.Int64("db.mapi.refills", stats.Refills),
				attribute.Int64("db.mapi.bytes_read", stats.BytesRead),
			)
		}

		if err != nil {
			st.span.SetStatus(codes.Error, err.Error())
			if h.cfg.RecordExceptions {
				st.span.RecordError(err)
			}
			errType := fmt.Sprintf("%T", err)
			if mapiErr, ok := err.(*mapi.Error); ok {
				errType = string(mapiErr.Kind)
			}
			st.span.SetAttributes(attribute.String("db.mapi.error_kind", errType))
		} else {
			st.span.SetStatus(codes.Ok, "")
		}

		st.span.End()
	}
}
