// Package infocontent computes per-gene Shannon information content over
// a subset view, per spec.md §4.8, and derives a filtered gene-set of
// genes exceeding an information threshold.
package infocontent

import (
	"math"
	"sort"

	"github.com/scrnaseq/exprgraph/subset"
)

// Normalization selects the whole-cell normalization applied to each
// expression value before the per-gene information content is
// accumulated.
type Normalization int

const (
	// None leaves raw counts unnormalized.
	None Normalization = iota
	// L1 scales by the cell's precomputed Norm1Inverse.
	L1
	// L2 scales by the cell's precomputed Norm2Inverse.
	L2
)

const log2 = math.Ln2

func normalize(count float32, sums subset.CellSums, n Normalization) float64 {
	x := float64(count)
	switch n {
	case L1:
		return x * sums.Norm1Inverse
	case L2:
		return x * sums.Norm2Inverse
	default:
		return x
	}
}

// Compute returns the information content, in bits, of every gene in
// v.GeneSet(), per spec.md §4.8:
//
//	I(g) = log|C| + Σ_{c: x_{c,g}>0} p_c·log(p_c),   p_c = x_{c,g} / Σ_c x_{c,g}
//
// normalized and accumulated in double precision.
func Compute(v *subset.View, norm Normalization) []float64 {
	m := v.GeneCount()
	n := v.CellCount()

	byGene := make([][]float64, m) // normalized value per cell with x>0, per gene
	totalByGene := make([]float64, m)
	for c := 0; c < n; c++ {
		sums := v.Sums(c)
		for _, e := range v.Row(c) {
			val := normalize(e.Count, sums, norm)
			if val <= 0 {
				continue
			}
			byGene[e.LocalGeneID] = append(byGene[e.LocalGeneID], val)
			totalByGene[e.LocalGeneID] += val
		}
	}

	info := make([]float64, m)
	logC := math.Log(float64(n))
	for g := 0; g < m; g++ {
		total := totalByGene[g]
		if total <= 0 {
			info[g] = logC / log2
			continue
		}
		var acc float64
		for _, val := range byGene[g] {
			p := val / total
			acc += p * math.Log(p)
		}
		info[g] = (logC + acc) / log2
	}
	return info
}

// FilterAboveThreshold returns the local gene ids (ascending, matching
// v.GeneSet()'s sorted order) whose information content exceeds
// threshold.
func FilterAboveThreshold(info []float64, threshold float64) []int {
	var out []int
	for g, v := range info {
		if v > threshold {
			out = append(out, g)
		}
	}
	sort.Ints(out)
	return out
}
