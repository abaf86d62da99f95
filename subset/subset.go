// Package subset builds the dense, local-id view of a (GeneSet, CellSet)
// pair described in spec.md §4.4: a jagged array of (localGeneId, count)
// per cell, restricted to the chosen gene-set, with per-cell sums
// recomputed over that restriction so that downstream numeric kernels
// (similarity, LSH, information content) never have to touch the global
// id space or re-filter on every access.
package subset

import (
	"math"
	"sort"

	"github.com/scrnaseq/exprgraph/sets"
	"github.com/scrnaseq/exprgraph/store"
)

// Entry is one non-zero expression value within a subset view, using a
// local gene id dense in [0, View.GeneCount()).
type Entry struct {
	LocalGeneID int
	Count       float32
}

// CellSums holds the per-cell sums restricted to the view's gene-set,
// mirroring store.cellRecord but recomputed over the subset.
type CellSums struct {
	Sum1         float64
	Sum2         float64
	Norm1Inverse float64
	Norm2Inverse float64
}

// View is the dense, restricted materialization of a gene-set/cell-set
// pair over a store's expression data.
type View struct {
	genes *sets.GeneSet
	cells *sets.CellSet

	rows []([]Entry) // indexed by local cell id
	sums []CellSums  // indexed by local cell id
}

// GeneCount returns |G|.
func (v *View) GeneCount() int { return v.genes.Len() }

// CellCount returns |C|.
func (v *View) CellCount() int { return v.cells.Len() }

// GeneSet returns the gene-set the view was built over.
func (v *View) GeneSet() *sets.GeneSet { return v.genes }

// CellSet returns the cell-set the view was built over.
func (v *View) CellSet() *sets.CellSet { return v.cells }

// Row returns the sorted-by-local-gene-id sparse expression entries for
// the cell at local position i.
func (v *View) Row(i int) []Entry { return v.rows[i] }

// Sums returns the restricted sum1/sum2/inverse-norms for the cell at
// local position i.
func (v *View) Sums(i int) CellSums { return v.sums[i] }

// GlobalCellID maps a local cell position back to its store CellID.
func (v *View) GlobalCellID(i int) store.CellID { return v.cells.GlobalIDs()[i] }

// Build materializes a View for the given store, restricting expression
// data to genes ∈ G and cells ∈ C, per spec.md §4.4.
func Build(s *store.Store, g *sets.GeneSet, c *sets.CellSet) *View {
	v := &View{genes: g, cells: c}
	globalCells := c.GlobalIDs()
	v.rows = make([][]Entry, len(globalCells))
	v.sums = make([]CellSums, len(globalCells))

	for i, cellID := range globalCells {
		full := s.CellExpression(cellID)
		var row []Entry
		var sum1, sum2 float64
		for _, e := range full {
			local, ok := g.LocalID(e.GeneID)
			if !ok {
				continue
			}
			row = append(row, Entry{LocalGeneID: local, Count: e.Count})
			sum1 += float64(e.Count)
			sum2 += float64(e.Count) * float64(e.Count)
		}
		sort.Slice(row, func(a, b int) bool { return row[a].LocalGeneID < row[b].LocalGeneID })
		v.rows[i] = row
		v.sums[i] = computeSums(sum1, sum2)
	}
	return v
}

// computeSums mirrors store.newCellRecord: norms are computed before
// their inverses (spec.md §9 Open Question (a)).
func computeSums(sum1, sum2 float64) CellSums {
	cs := CellSums{Sum1: sum1, Sum2: sum2}
	norm1 := sum1
	norm2 := math.Sqrt(sum2)
	if norm1 != 0 {
		cs.Norm1Inverse = 1 / norm1
	}
	if norm2 != 0 {
		cs.Norm2Inverse = 1 / norm2
	}
	return cs
}
