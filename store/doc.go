// Package store implements the persistent, memory-mapped entity store
// described in spec.md §3–§4.2: genes, cells, per-cell meta-data, and
// per-cell sparse expression counts, all backed by the mmvec primitives.
//
// A Store is single-writer, multi-reader: AddGene and AddCell, along with
// meta-data writes, must not be called concurrently with each other or
// with reads whose results depend on the write completing. Read paths
// (GeneName, CellExpression, CellMetaData, ...) are safe to call
// concurrently with each other.
package store
