// Package exprgraph provides an embedded single-cell expression-matrix
// analysis store.
//
// It wires together:
//
//   - A persistent, memory-mapped entity store of genes, cells, per-cell
//     meta-data, and sparse expression counts (package store)
//   - Named gene-set and cell-set algebra: regex and name-list selection,
//     union/intersection/difference, random down-sampling (package sets)
//   - Dense local-id subset views for numeric kernels (package subset)
//   - Exact Pearson correlation and random-hyperplane LSH similarity
//     estimation (packages similarity, lsh)
//   - A capped per-cell top-k SimilarPairs index, exact or LSH-backed
//     (package simpairs)
//   - A cell-similarity graph with label-propagation clustering
//     (package graph)
//   - Shannon information-content gene filtering (package infocontent)
//
// # Quick Start
//
//	db, err := exprgraph.Create("./data")
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
//	id, err := db.Store().AddCell(
//	    []store.MetaDatum{{Name: "CellName", Value: "c1"}},
//	    []store.ExpressionInput{{GeneName: "Actb", Count: 12}},
//	)
//
// Build a SimilarPairs index and cluster the resulting graph:
//
//	all := sets.AllCells(db.Store())
//	genes := sets.AllGenes(db.Store())
//	view := subset.Build(db.Store(), genes, all)
//	ix := simpairs.BuildExact(view, genes.Name(), 10, 0.3)
//	g, _ := graph.Build(view, ix)
//	g.Cluster(graph.ClusterOptions{Seed: 1})
//	g.StoreClusterIDs(ctx, db.Store(), "Cluster")
package exprgraph
