// Package similarity computes exact Pearson correlation between cells
// over a subset view, per spec.md §4.5, using a two-pointer merge over
// the two cells' sorted sparse gene vectors (spec.md §9's "raw-pointer
// sparse iteration" re-expressed as an index-based iterator pair).
package similarity

import (
	"math"

	"github.com/scrnaseq/exprgraph/subset"
)

// Pearson computes the Pearson correlation between cells a and b, both
// local positions within v. n is the number of genes the correlation is
// computed over — |G| in subset mode. Returns NaN when the denominator
// is zero (both cells have non-constant expression is assumed false),
// per spec.md §4.5: undefined similarity must be reported as NaN and
// excluded from pair selection by the caller.
func Pearson(v *subset.View, a, b int) float64 {
	n := float64(v.GeneCount())
	rowA, rowB := v.Row(a), v.Row(b)
	s := intersectionSum(rowA, rowB)

	sumsA, sumsB := v.Sums(a), v.Sums(b)
	denomA := n*sumsA.Sum2 - sumsA.Sum1*sumsA.Sum1
	denomB := n*sumsB.Sum2 - sumsB.Sum1*sumsB.Sum1
	if denomA <= 0 || denomB <= 0 {
		return math.NaN()
	}
	num := n*s - sumsA.Sum1*sumsB.Sum1
	return num / math.Sqrt(denomA*denomB)
}

// intersectionSum computes Σ_g x_{a,g}·x_{b,g} via a two-pointer merge
// of the two gene-id-sorted entry slices.
func intersectionSum(a, b []subset.Entry) float64 {
	var s float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].LocalGeneID < b[j].LocalGeneID:
			i++
		case a[i].LocalGeneID > b[j].LocalGeneID:
			j++
		default:
			s += float64(a[i].Count) * float64(b[j].Count)
			i++
			j++
		}
	}
	return s
}
