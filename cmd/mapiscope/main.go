// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// mapiscope decodes server responses and reports what the decoder saw:
// column descriptors, rows, and per-decode statistics. It can execute a
// query against a live server or replay a recorded response stream from
// a file, optionally gzip- or zstd-compressed.
//
// Usage:
//
//	mapiscope -addr localhost:50000 -query "SELECT * FROM t"
//	mapiscope -file response.bin
//	mapiscope -file response.bin.zst -zstd -otel
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Query-farm/mapi-go/mapi"
	mapiotel "github.com/Query-farm/mapi-go/mapi/otel"
)

func main() {
	var (
		addr     = flag.String("addr", "", "server address to dial")
		file     = flag.String("file", "", "recorded response stream to replay")
		query    = flag.String("query", "", "statement to execute (with -addr)")
		gzipIn   = flag.Bool("gzip", false, "treat -file as gzip-compressed")
		zstdIn   = flag.Bool("zstd", false, "treat -file as zstd-compressed")
		bufSize  = flag.Int("buffer", 0, "decode buffer size in bytes")
		repeat   = flag.Int("n", 1, "times to execute the query (with -addr)")
		maxRows  = flag.Int("max-rows", 20, "rows to print, 0 for all")
		useOtel  = flag.Bool("otel", false, "emit OpenTelemetry spans and metrics to stdout")
		showStat = flag.Bool("stats", true, "print decode statistics")
	)
	flag.Parse()

	if (*addr == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -addr or -file is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	statsHook := &statsHook{}
	var hook mapi.DecodeHook = statsHook
	if *useOtel {
		otelHook, shutdown, err := stdoutInstrumentation(ctx)
		if err != nil {
			fatal(err)
		}
		defer shutdown()
		hook = teeHook{statsHook, otelHook}
	}

	perDecode := func() {}
	if *showStat && *repeat > 1 {
		perDecode = func() { printStats(statsHook.stats) }
	}

	var rs *mapi.ResultSet
	var err error
	if *addr != "" {
		rs, err = runQuery(ctx, *addr, *query, *bufSize, *repeat, hook, perDecode)
	} else {
		rs, err = replayFile(ctx, *file, *gzipIn, *zstdIn, *bufSize, hook)
	}
	if err != nil {
		fatal(err)
	}
	defer rs.Close()

	printResult(rs, *maxRows)
	if *showStat {
		printStats(statsHook.stats)
	}
}

func runQuery(ctx context.Context, addr, query string, bufSize, repeat int, hook mapi.DecodeHook, perDecode func()) (*mapi.ResultSet, error) {
	if query == "" {
		return nil, fmt.Errorf("-query is required with -addr")
	}
	conn, err := mapi.Dial(addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if bufSize > 0 {
		conn.SetBufferSize(bufSize)
	}
	conn.SetDecodeHook(hook)

	stmt := conn.Prepare(query)
	for i := 0; i < repeat; i++ {
		if _, err := stmt.Execute(ctx); err != nil {
			return nil, err
		}
		perDecode()
	}
	return stmt.Result(), nil
}

func replayFile(ctx context.Context, path string, gzipIn, zstdIn bool, bufSize int, hook mapi.DecodeHook) (*mapi.ResultSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	switch {
	case gzipIn:
		zr, err := mapi.NewGzipSource(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	case zstdIn:
		zr, err := mapi.NewZstdSource(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}

	dec := mapi.NewDecoder(src)
	if bufSize > 0 {
		dec.SetBufferSize(bufSize)
	}
	dec.SetDecodeHook(hook)
	return dec.Decode(ctx, mapi.NewStatement("replay:"+path))
}

func printResult(rs *mapi.ResultSet, maxRows int) {
	if rs.NumColumns() == 0 {
		fmt.Printf("affected rows: %d\n", rs.AffectedRows)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	for i, col := range rs.Columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprintf(w, "%s (%s)", col.Name, col.TypeName)
	}
	fmt.Fprintln(w)

	printed := 0
	for rs.Next() {
		if maxRows > 0 && printed >= maxRows {
			break
		}
		for i, cell := range rs.Row() {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, cell)
		}
		fmt.Fprintln(w)
		printed++
	}
	w.Flush()

	if maxRows > 0 && rs.NumRows() > maxRows {
		fmt.Printf("... %d of %d rows shown\n", maxRows, rs.NumRows())
	}
}

func printStats(stats mapi.DecodeStatistics) {
	fmt.Printf("frames=%d columns=%d rows=%d fields=%d refills=%d bytes=%d\n",
		stats.Frames, stats.Columns, stats.Rows, stats.Fields, stats.Refills, stats.BytesRead)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// statsHook keeps the statistics of the most recent decode.
type statsHook struct {
	stats mapi.DecodeStatistics
}

func (h *statsHook) OnDecodeStart(ctx context.Context, _ mapi.DecodeInfo) (context.Context, mapi.HookToken) {
	return ctx, nil
}

func (h *statsHook) OnDecodeEnd(_ context.Context, _ mapi.HookToken, _ mapi.DecodeInfo, stats *mapi.DecodeStatistics, _ error) {
	if stats != nil {
		h.stats = *stats
	}
}

// teeHook fans decode callpoints out to several hooks. Tokens are
// collected in order and handed back to their owners on end.
type teeHook []mapi.DecodeHook

func (t teeHook) OnDecodeStart(ctx context.Context, info mapi.DecodeInfo) (context.Context, mapi.HookToken) {
	tokens := make([]mapi.HookToken, len(t))
	for i, h := range t {
		ctx, tokens[i] = h.OnDecodeStart(ctx, info)
	}
	return ctx, tokens
}

func (t teeHook) OnDecodeEnd(ctx context.Context, token mapi.HookToken, info mapi.DecodeInfo, stats *mapi.DecodeStatistics, err error) {
	tokens, ok := token.([]mapi.HookToken)
	if !ok {
		return
	}
	for i, h := range t {
		h.OnDecodeEnd(ctx, tokens[i], info, stats, err)
	}
}

// stdoutInstrumentation wires stdout exporters and returns the otel
// hook plus a flush-and-shutdown func.
func stdoutInstrumentation(ctx context.Context) (mapi.DecodeHook, func(), error) {
	traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))

	metricExp, err := stdoutmetric.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))

	cfg := mapiotel.DefaultConfig()
	cfg.TracerProvider = tp
	cfg.MeterProvider = mp

	shutdown := func() {
		tp.Shutdown(ctx)
		mp.Shutdown(ctx)
	}
	return mapiotel.NewHook(cfg), shutdown, nil
}
