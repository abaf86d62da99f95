package store

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with store-specific context, mirroring the
// structured-logging shape used across this lineage: a thin wrapper with
// consistent field names and one Log* helper per notable operation.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, uses the default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// LogAddCell logs a single addCell operation.
func (l *Logger) LogAddCell(ctx context.Context, name string, geneCount int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "addCell failed", "name", name, "err", err)
		return
	}
	l.DebugContext(ctx, "addCell completed", "name", name, "genes", geneCount)
}

// LogSetOp logs a set-algebra operation.
func (l *Logger) LogSetOp(ctx context.Context, op, name string, size int, ok bool) {
	if !ok {
		l.WarnContext(ctx, "set operation rejected", "op", op, "name", name)
		return
	}
	l.InfoContext(ctx, "set operation completed", "op", op, "name", name, "size", size)
}

// LogBuildSimilarPairs logs a SimilarPairs build.
func (l *Logger) LogBuildSimilarPairs(ctx context.Context, name string, cells int, mode string, elapsedMs int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "buildSimilarPairs failed", "name", name, "mode", mode, "err", err)
		return
	}
	l.InfoContext(ctx, "buildSimilarPairs completed", "name", name, "cells", cells, "mode", mode, "elapsed_ms", elapsedMs)
}

// LogBuildGraph logs a cell-similarity graph build.
func (l *Logger) LogBuildGraph(ctx context.Context, vertices, edges, isolatedRemoved int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "buildGraph failed", "err", err)
		return
	}
	l.InfoContext(ctx, "buildGraph completed", "vertices", vertices, "edges", edges, "isolated_removed", isolatedRemoved)
}

// LogCluster logs a label-propagation clustering run.
func (l *Logger) LogCluster(ctx context.Context, iterations, clusters int, converged bool) {
	l.InfoContext(ctx, "cluster completed", "iterations", iterations, "clusters", clusters, "converged", converged)
}
