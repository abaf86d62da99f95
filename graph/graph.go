// Package graph builds the cell-similarity graph of spec.md §4.9 from a
// SimilarPairs index and runs label-propagation clustering over it. The
// graph is expressed as a plain adjacency list plus a vertex attribute
// table (spec.md §9's "graph library dependency" note: no external graph
// library is warranted for a property graph this shape).
package graph

import (
	"context"
	"sort"
	"strconv"

	"github.com/scrnaseq/exprgraph/simpairs"
	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/subset"
	"github.com/scrnaseq/exprgraph/util"
)

// edge is one adjacency-list entry: the neighbor's local vertex id and
// the similarity-weighted edge weight.
type edge struct {
	to     int
	weight float64
}

// Graph is an undirected, weighted cell-similarity graph with one
// vertex per cell in the view it was built from.
type Graph struct {
	view      *subset.View
	adjacency [][]edge
	cellIDs   []store.CellID // local vertex id -> CellID, after pruning
	clusterID []int          // -1 until Cluster runs
}

// VertexCount returns the number of vertices remaining after isolated
// vertices have been pruned (0 for never-built graphs).
func (g *Graph) VertexCount() int { return len(g.adjacency) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, adj := range g.adjacency {
		n += len(adj)
	}
	return n / 2
}

// CellID returns the store CellID backing local vertex i.
func (g *Graph) CellID(i int) store.CellID { return g.cellIDs[i] }

// ClusterID returns the cluster label assigned to vertex i by the most
// recent Cluster call, or -1 if clustering has not run.
func (g *Graph) ClusterID(i int) int { return g.clusterID[i] }

// Build constructs a cell-similarity graph from ix over view: an edge
// (a,b) exists if either endpoint lists the other in its top-k list (the
// stored lists are already threshold- and k-filtered), with weight equal
// to the recorded similarity. Isolated vertices are removed; removedCount
// reports how many were pruned.
func Build(view *subset.View, ix *simpairs.Index) (g *Graph, removedCount int) {
	n := view.CellCount()
	present := make([]bool, n)
	adjSet := make([]map[int]float64, n)
	for i := range adjSet {
		adjSet[i] = map[int]float64{}
	}

	cellIndex := make(map[store.CellID]int, n)
	for i := 0; i < n; i++ {
		cellIndex[view.GlobalCellID(i)] = i
	}

	for a := 0; a < n; a++ {
		for _, nb := range ix.Neighbors(a) {
			b, ok := cellIndex[nb.CellID]
			if !ok {
				continue
			}
			adjSet[a][b] = nb.Similarity
			adjSet[b][a] = nb.Similarity
			present[a] = true
			present[b] = true
		}
	}

	// Remap surviving vertices to a dense local id space.
	remap := make([]int, n)
	kept := 0
	for i := 0; i < n; i++ {
		if present[i] {
			remap[i] = kept
			kept++
		} else {
			remap[i] = -1
			removedCount++
		}
	}

	keptCellIDs := make([]store.CellID, kept)
	adjacency := make([][]edge, kept)
	for i := 0; i < n; i++ {
		if !present[i] {
			continue
		}
		keptCellIDs[remap[i]] = view.GlobalCellID(i)
		var adj []edge
		for b, w := range adjSet[i] {
			if remap[b] == -1 {
				continue
			}
			adj = append(adj, edge{to: remap[b], weight: w})
		}
		sort.Slice(adj, func(x, y int) bool { return adj[x].to < adj[y].to })
		adjacency[remap[i]] = adj
	}

	clusterID := make([]int, kept)
	for i := range clusterID {
		clusterID[i] = -1
	}

	return &Graph{view: view, adjacency: adjacency, cellIDs: keptCellIDs, clusterID: clusterID}, removedCount
}

// ClusterOptions configures label-propagation clustering, per spec.md
// §4.9.
type ClusterOptions struct {
	MaxIterations  int
	MinClusterSize int // clusters smaller than this collapse into Unclustered
	Seed           int64
}

// Unclustered is the reserved label used for clusters collapsed by
// ClusterOptions.MinClusterSize.
const Unclustered = -2

const defaultMaxIterations = 100

// Cluster runs label propagation: each vertex starts with a unique
// label, then repeatedly adopts the label maximizing the sum of edge
// weights of same-labeled neighbors (ties broken by lowest label id,
// per spec.md §9 Open Question (c)), visiting vertices in a permuted
// order each iteration, until an iteration changes nothing or
// MaxIterations is reached. Returns the number of iterations run and
// whether the run converged before the cap.
func (g *Graph) Cluster(opts ClusterOptions) (iterations int, converged bool) {
	n := len(g.adjacency)
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	rng := util.NewRNG(opts.Seed)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	for it := 0; it < maxIter; it++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		changed := false
		for _, v := range order {
			best, ok := bestNeighborLabel(g.adjacency[v], labels)
			if ok && best != labels[v] {
				labels[v] = best
				changed = true
			}
		}
		iterations++
		if !changed {
			converged = true
			break
		}
	}

	if opts.MinClusterSize > 0 {
		collapseSmallClusters(labels, opts.MinClusterSize)
	}
	copy(g.clusterID, labels)
	return iterations, converged
}

func bestNeighborLabel(adj []edge, labels []int) (int, bool) {
	weightByLabel := map[int]float64{}
	for _, e := range adj {
		weightByLabel[labels[e.to]] += e.weight
	}
	if len(weightByLabel) == 0 {
		return 0, false
	}
	bestLabel, bestWeight := 0, -1.0
	first := true
	for label, w := range weightByLabel {
		if first || w > bestWeight || (w == bestWeight && label < bestLabel) {
			bestLabel, bestWeight = label, w
			first = false
		}
	}
	return bestLabel, true
}

func collapseSmallClusters(labels []int, minSize int) {
	counts := map[int]int{}
	for _, l := range labels {
		counts[l]++
	}
	for i, l := range labels {
		if counts[l] < minSize {
			labels[i] = Unclustered
		}
	}
}

// StoreClusterIDs writes each vertex's cluster label back to cell
// meta-data under metaName, per spec.md §4.9's "store assignments back
// to cell meta-data" step.
func (g *Graph) StoreClusterIDs(ctx context.Context, s *store.Store, metaName string) error {
	for i, clusterID := range g.clusterID {
		value := clusterIDToString(clusterID)
		if err := s.SetCellMetaData(g.CellID(i), metaName, value); err != nil {
			return err
		}
	}
	return nil
}

func clusterIDToString(id int) string {
	if id == Unclustered {
		return "Unclustered"
	}
	return strconv.Itoa(id)
}
