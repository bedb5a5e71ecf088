// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package mapiotel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Query-farm/mapi-go/mapi"
	"github.com/Query-farm/mapi-go/mapi/mapitest"
)

func testProviders() (*tracetest.SpanRecorder, *sdkmetric.ManualReader, Config) {
	sr := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	cfg := DefaultConfig()
	cfg.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	cfg.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return sr, reader, cfg
}

func decodeWithHook(t *testing.T, hook mapi.DecodeHook, stream []byte) error {
	t.Helper()
	dec := mapi.NewDecoder(bytes.NewReader(stream))
	dec.SetDecodeHook(hook)
	_, err := dec.Decode(context.Background(), mapi.NewStatement("select id from t"))
	return err
}

func findAttr(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestHookRecordsSpan(t *testing.T) {
	sr, _, cfg := testProviders()
	cfg.CustomAttributes = []attribute.KeyValue{attribute.String("service.tier", "test")}

	stream := mapitest.QueryResponse(
		[][2]string{{"id", "int"}},
		[][]string{{"1"}, {"2"}, {"3"}},
	)
	require.NoError(t, decodeWithHook(t, NewHook(cfg), stream))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "mapi.decode", span.Name())
	assert.Equal(t, trace.SpanKindClient, span.SpanKind())
	assert.Equal(t, codes.Ok, span.Status().Code)

	attrs := span.Attributes()
	v, ok := findAttr(attrs, "db.system")
	require.True(t, ok)
	assert.Equal(t, "mapi", v.AsString())

	v, ok = findAttr(attrs, "db.statement")
	require.True(t, ok)
	assert.Equal(t, "select id from t", v.AsString())

	v, ok = findAttr(attrs, "db.mapi.rows")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())

	v, ok = findAttr(attrs, "service.tier")
	require.True(t, ok)
	assert.Equal(t, "test", v.AsString())
}

func TestHookRecordsErrorSpan(t *testing.T) {
	sr, _, cfg := testProviders()

	err := decodeWithHook(t, NewHook(cfg), mapitest.ErrorUnit(-1, "syntax error", 4))
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, codes.Error, span.Status().Code)
	v, ok := findAttr(span.Attributes(), "db.mapi.error_kind")
	require.True(t, ok)
	assert.Equal(t, "ServerError", v.AsString())

	// RecordExceptions defaults to true, so the error is an event too.
	require.NotEmpty(t, span.Events())
	assert.Equal(t, "exception", span.Events()[0].Name)
}

func TestHookRecordsMetrics(t *testing.T) {
	_, reader, cfg := testProviders()
	hook := NewHook(cfg)

	stream := mapitest.QueryResponse(
		[][2]string{{"id", "int"}},
		[][]string{{"1"}, {"2"}},
	)
	require.NoError(t, decodeWithHook(t, hook, stream))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	byName := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}

	decodes, ok := byName["db.client.decodes"]
	require.True(t, ok)
	sum := decodes.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	rows, ok := byName["db.client.rows"]
	require.True(t, ok)
	rowSum := rows.Data.(metricdata.Sum[int64])
	require.Len(t, rowSum.DataPoints, 1)
	assert.Equal(t, int64(2), rowSum.DataPoints[0].Value)

	_, ok = byName["db.client.decode.duration"]
	assert.True(t, ok)
}

func TestHookTracingDisabled(t *testing.T) {
	sr, _, cfg := testProviders()
	cfg.EnableTracing = false

	stream := mapitest.QueryResponse([][2]string{{"id", "int"}}, [][]string{{"1"}})
	require.NoError(t, decodeWithHook(t, NewHook(cfg), stream))

	assert.Empty(t, sr.Ended())
}

func TestInstrumentConn(t *testing.T) {
	sr, _, cfg := testProviders()

	conn := mapi.NewConn(&fakeTransport{r: bytes.NewReader(mapitest.UpdateResponse(4))})
	InstrumentConn(conn, cfg)

	n, err := conn.Exec(context.Background(), "delete from t")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Len(t, sr.Ended(), 1)
}

// fakeTransport serves a canned response and swallows writes.
type fakeTransport struct {
	r *bytes.Reader
	w bytes.Buffer
}

func (t *fakeTransport) Read(p []byte) (int, error)  { return t.r.Read(p) }
func (t *fakeTransport) Write(p []byte) (int, error) { return t.w.Write(p) }
