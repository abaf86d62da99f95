package store

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics for a Store. Implement
// this to integrate with an external monitoring system. Store.AddCell
// calls RecordAddCell; no package in this module calls the other methods.
type MetricsCollector interface {
	// RecordAddCell is called after each addCell call.
	RecordAddCell(duration time.Duration, err error)
	// RecordSetOp records one set-algebra operation.
	RecordSetOp(op string, duration time.Duration, ok bool)
	// RecordBuildSimilarPairs records one SimilarPairs build.
	RecordBuildSimilarPairs(cells int, duration time.Duration, err error)
	// RecordBuildGraph records one cell-similarity graph build.
	RecordBuildGraph(vertices, edges int, duration time.Duration, err error)
	// RecordCluster records one label-propagation run.
	RecordCluster(iterations, clusters int, duration time.Duration)
}

// NoopMetrics discards all recorded metrics.
type NoopMetrics struct{}

func (NoopMetrics) RecordAddCell(time.Duration, error)                {}
func (NoopMetrics) RecordSetOp(string, time.Duration, bool)           {}
func (NoopMetrics) RecordBuildSimilarPairs(int, time.Duration, error) {}
func (NoopMetrics) RecordBuildGraph(int, int, time.Duration, error)   {}
func (NoopMetrics) RecordCluster(int, int, time.Duration)             {}

// AtomicMetrics is an in-memory MetricsCollector suitable for tests and
// simple deployments without an external monitoring stack.
type AtomicMetrics struct {
	AddCellCount           atomic.Int64
	AddCellErrors          atomic.Int64
	AddCellTotalNanos      atomic.Int64
	SetOpCount             atomic.Int64
	SetOpRejected          atomic.Int64
	BuildSimilarPairsCount atomic.Int64
	BuildSimilarPairsError atomic.Int64
	BuildGraphCount        atomic.Int64
	BuildGraphError        atomic.Int64
	ClusterCount           atomic.Int64
}

func (m *AtomicMetrics) RecordAddCell(duration time.Duration, err error) {
	m.AddCellCount.Add(1)
	m.AddCellTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.AddCellErrors.Add(1)
	}
}

func (m *AtomicMetrics) RecordSetOp(_ string, _ time.Duration, ok bool) {
	m.SetOpCount.Add(1)
	if !ok {
		m.SetOpRejected.Add(1)
	}
}

func (m *AtomicMetrics) RecordBuildSimilarPairs(_ int, _ time.Duration, err error) {
	m.BuildSimilarPairsCount.Add(1)
	if err != nil {
		m.BuildSimilarPairsError.Add(1)
	}
}

func (m *AtomicMetrics) RecordBuildGraph(_, _ int, _ time.Duration, err error) {
	m.BuildGraphCount.Add(1)
	if err != nil {
		m.BuildGraphError.Add(1)
	}
}

func (m *AtomicMetrics) RecordCluster(_, _ int, _ time.Duration) {
	m.ClusterCount.Add(1)
}
