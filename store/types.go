package store

import "math"

// GeneID is a dense, 32-bit global gene identifier.
type GeneID uint32

// CellID is a dense, 32-bit global cell identifier.
type CellID uint32

// InvalidGeneID is the sentinel for "no such gene".
const InvalidGeneID GeneID = math.MaxUint32

// InvalidCellID is the sentinel for "no such cell".
const InvalidCellID CellID = math.MaxUint32

// MetaDatum is a single (name, value) meta-data pair, in the order it was
// recorded. A cell's first MetaDatum is always ("CellName", <cell name>).
type MetaDatum struct {
	Name  string
	Value string
}

// ExpressionInput is a single (gene name, count) pair as supplied by a
// caller of AddCell. Genes are auto-registered on first use.
type ExpressionInput struct {
	GeneName string
	Count    float32
}

// ExpressionCount is a single (GeneID, count) entry of a cell's stored,
// sorted-by-GeneID sparse expression vector.
type ExpressionCount struct {
	GeneID GeneID
	Count  float32
}

// cellRecord is the fixed-layout, on-disk record backing the Cells file
// of spec.md §6: precomputed per-cell scalars used by similarity and LSH.
// Norm1Inverse and Norm2Inverse are computed only after Sum1/Sum2/Norm2
// are known (see spec.md §9 Open Question (a)).
type cellRecord struct {
	Sum1         float64
	Sum2         float64
	Norm2        float64
	Norm1Inverse float64
	Norm2Inverse float64
}

func newCellRecord(sum1, sum2 float64) cellRecord {
	norm2 := math.Sqrt(sum2)
	var norm1Inv, norm2Inv float64
	if sum1 != 0 {
		norm1Inv = 1 / sum1
	}
	if norm2 != 0 {
		norm2Inv = 1 / norm2
	}
	return cellRecord{
		Sum1:         sum1,
		Sum2:         sum2,
		Norm2:        norm2,
		Norm1Inverse: norm1Inv,
		Norm2Inverse: norm2Inv,
	}
}

// metaPair is the fixed-layout (interned name id, interned value id) pair
// backing the CellMetaData file.
type metaPair struct {
	NameID  uint32
	ValueID uint32
}

// exprEntry is the fixed-layout (GeneID, count) pair backing the
// CellExpressionCounts file.
type exprEntry struct {
	GeneID GeneID
	Count  float32
}
