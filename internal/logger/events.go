package logger

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func addSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if !tracingEnabled {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// Lookup logs the outcome of one fundamentals lookup
func Lookup(ctx context.Context, symbol, source string, degraded bool, fields ...any) {
	addSpanEvent(ctx, "fundamentals_lookup",
		attribute.String("symbol", symbol),
		attribute.String("source", source),
		attribute.Bool("degraded", degraded),
	)

	level := slog.LevelInfo
	msg := "Fundamentals fetched"
	if degraded {
		level = slog.LevelWarn
		msg = "Fundamentals unavailable, candidate zeroed"
	}

	allFields := append([]any{
		"type", "LOOKUP",
		"symbol", symbol,
		"source", source,
		"degraded", degraded,
	}, fields...)
	logWithTrace(ctx, level, msg, 2, allFields...)
}

// Verdict logs a quality gate decision for one candidate
func Verdict(ctx context.Context, symbol, verdict string, reasons []string, fields ...any) {
	addSpanEvent(ctx, "gate_verdict",
		attribute.String("symbol", symbol),
		attribute.String("verdict", verdict),
		attribute.StringSlice("reasons", reasons),
	)

	allFields := append([]any{
		"type", "VERDICT",
		"symbol", symbol,
		"verdict", verdict,
	}, fields...)
	if len(reasons) > 0 {
		allFields = append(allFields, "reasons", strings.Join(reasons, "; "))
	}
	logWithTrace(ctx, slog.LevelInfo, "Candidate screened", 2, allFields...)
}

func slogLevelForFailure(err error) slog.Level {
	if errors.Is(err, context.Canceled) {
		return slog.LevelWarn
	}
	return slog.LevelError
}
