package sets

import (
	"context"
	"regexp"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/util"
	"github.com/scrnaseq/exprgraph/xerrors"
)

// toBitmap builds a roaring bitmap from a sorted ascending []uint32.
func toBitmap(ids []uint32) *roaring.Bitmap {
	b := roaring.New()
	b.AddMany(ids)
	return b
}

func bitmapToSorted(b *roaring.Bitmap) []uint32 {
	return b.ToArray()
}

// SelectGenesByRegex creates a named gene-set containing every gene in s
// whose name fully matches pattern, per spec.md §4.3. ok is false (with
// err nil) if name is already registered; the existing set is kept.
func (r *Registry) SelectGenesByRegex(s *store.Store, name, pattern string) (bool, error) {
	if err := validateSetName(name); err != nil {
		return false, err
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return false, xerrors.Wrap(xerrors.InvalidInput, "sets.SelectGenesByRegex", "invalid regex", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []uint32
	for i := 0; i < s.GeneCount(); i++ {
		if re.MatchString(s.GeneName(store.GeneID(i))) {
			ids = append(ids, uint32(i))
		}
	}
	return r.putGeneSet(name, ids)
}

// SelectGenesByNames creates a named gene-set from an explicit name
// list. Names absent from s are skipped and counted in ignored;
// duplicate names are counted in duplicates and only contribute once.
// ok is false (with err nil) if name is already registered, per spec.md
// §4.3's "fail with NameExists if the output name already exists".
func (r *Registry) SelectGenesByNames(s *store.Store, name string, names []string) (ignored, duplicates int, ok bool, err error) {
	if err := validateSetName(name); err != nil {
		return 0, 0, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[uint32]bool{}
	var ids []uint32
	for _, n := range names {
		id := s.GeneByName(n)
		if id == store.InvalidGeneID {
			ignored++
			continue
		}
		if seen[uint32(id)] {
			duplicates++
			continue
		}
		seen[uint32(id)] = true
		ids = append(ids, uint32(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ok, err = r.putGeneSet(name, ids)
	return ignored, duplicates, ok, err
}

// SelectCellsByRegex creates a named cell-set from every cell in s whose
// name fully matches pattern.
func (r *Registry) SelectCellsByRegex(s *store.Store, name, pattern string) (bool, error) {
	if err := validateSetName(name); err != nil {
		return false, err
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return false, xerrors.Wrap(xerrors.InvalidInput, "sets.SelectCellsByRegex", "invalid regex", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []uint32
	for i := 0; i < s.CellCount(); i++ {
		if re.MatchString(s.CellName(store.CellID(i))) {
			ids = append(ids, uint32(i))
		}
	}
	return r.putCellSet(name, ids)
}

// SelectCellsByMetaDataRegex creates a named cell-set from every cell
// whose meta-data value for metaName fully matches pattern. Cells with
// no such meta-datum are excluded.
func (r *Registry) SelectCellsByMetaDataRegex(s *store.Store, name, metaName, pattern string) (bool, error) {
	if err := validateSetName(name); err != nil {
		return false, err
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return false, xerrors.Wrap(xerrors.InvalidInput, "sets.SelectCellsByMetaDataRegex", "invalid regex", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []uint32
	for i := 0; i < s.CellCount(); i++ {
		v, ok := s.GetCellMetaData(store.CellID(i), metaName)
		if !ok {
			continue
		}
		if re.MatchString(v) {
			ids = append(ids, uint32(i))
		}
	}
	return r.putCellSet(name, ids)
}

// SelectCellsByNames creates a named cell-set from an explicit name
// list, mirroring SelectGenesByNames.
func (r *Registry) SelectCellsByNames(s *store.Store, name string, names []string) (ignored, duplicates int, ok bool, err error) {
	if err := validateSetName(name); err != nil {
		return 0, 0, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[uint32]bool{}
	var ids []uint32
	for _, n := range names {
		id := s.CellByName(n)
		if id == store.InvalidCellID {
			ignored++
			continue
		}
		if seen[uint32(id)] {
			duplicates++
			continue
		}
		seen[uint32(id)] = true
		ids = append(ids, uint32(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ok, err = r.putCellSet(name, ids)
	return ignored, duplicates, ok, err
}

type setOp int

const (
	opUnion setOp = iota
	opIntersect
	opDifference
)

func applyBitmapOp(op setOp, a, b *roaring.Bitmap) *roaring.Bitmap {
	switch op {
	case opUnion:
		return roaring.Or(a, b)
	case opIntersect:
		return roaring.And(a, b)
	default:
		return roaring.AndNot(a, b)
	}
}

func (r *Registry) combineGeneSets(op setOp, resultName string, srcNames []string) (bool, error) {
	if err := validateSetName(resultName); err != nil {
		return false, err
	}
	if len(srcNames) == 0 {
		return false, xerrors.New(xerrors.InvalidInput, "sets.combineGeneSets", "no source sets given")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.geneSets[srcNames[0]]
	if !ok {
		r.logger.LogSetOp(context.Background(), "combineGeneSets", srcNames[0], 0, false)
		return false, nil
	}
	accBitmap := toBitmap(acc.ids)
	for _, n := range srcNames[1:] {
		g, ok := r.geneSets[n]
		if !ok {
			r.logger.LogSetOp(context.Background(), "combineGeneSets", n, 0, false)
			return false, nil
		}
		accBitmap = applyBitmapOp(op, accBitmap, toBitmap(g.ids))
	}
	return r.putGeneSet(resultName, bitmapToSorted(accBitmap))
}

func (r *Registry) combineCellSets(op setOp, resultName string, srcNames []string) (bool, error) {
	if err := validateSetName(resultName); err != nil {
		return false, err
	}
	if len(srcNames) == 0 {
		return false, xerrors.New(xerrors.InvalidInput, "sets.combineCellSets", "no source sets given")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.cellSets[srcNames[0]]
	if !ok {
		r.logger.LogSetOp(context.Background(), "combineCellSets", srcNames[0], 0, false)
		return false, nil
	}
	accBitmap := toBitmap(acc.ids)
	for _, n := range srcNames[1:] {
		c, ok := r.cellSets[n]
		if !ok {
			r.logger.LogSetOp(context.Background(), "combineCellSets", n, 0, false)
			return false, nil
		}
		accBitmap = applyBitmapOp(op, accBitmap, toBitmap(c.ids))
	}
	return r.putCellSet(resultName, bitmapToSorted(accBitmap))
}

// UnionGenes, IntersectGenes and DifferenceGenes combine two or more
// named gene-sets into resultName, per spec.md §4.3's set algebra.
// DifferenceGenes subtracts every later set from the first.
func (r *Registry) UnionGenes(resultName string, srcNames ...string) (bool, error) {
	return r.combineGeneSets(opUnion, resultName, srcNames)
}

func (r *Registry) IntersectGenes(resultName string, srcNames ...string) (bool, error) {
	return r.combineGeneSets(opIntersect, resultName, srcNames)
}

func (r *Registry) DifferenceGenes(resultName string, srcNames ...string) (bool, error) {
	return r.combineGeneSets(opDifference, resultName, srcNames)
}

// UnionCells, IntersectCells and DifferenceCells are the cell-set
// counterparts of the gene-set algebra above.
func (r *Registry) UnionCells(resultName string, srcNames ...string) (bool, error) {
	return r.combineCellSets(opUnion, resultName, srcNames)
}

func (r *Registry) IntersectCells(resultName string, srcNames ...string) (bool, error) {
	return r.combineCellSets(opIntersect, resultName, srcNames)
}

func (r *Registry) DifferenceCells(resultName string, srcNames ...string) (bool, error) {
	return r.combineCellSets(opDifference, resultName, srcNames)
}

// DownsampleCells creates a new cell-set by an independent Bernoulli(p)
// inclusion draw over every cell in the named source set, visited in
// ascending CellId order, using seed for reproducibility, per spec.md
// §4.3. p=1 keeps every cell (a permutation-equal copy of src); p=0
// keeps none; an intermediate p keeps a count within a few standard
// deviations of n·p.
//
// util.RNG's uniform Float64 draw is used in place of the
// Mersenne-Twister generator a C++ implementation would reach for;
// nothing in the example pack provides an MT19937-compatible PRNG, and
// a seeded generator with a fixed draw order gives the same determinism
// contract since only the seed and draw order, not the algorithm, are
// part of the spec's observable contract.
func (r *Registry) DownsampleCells(resultName, srcName string, p float64, seed int64) (bool, error) {
	if err := validateSetName(resultName); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.cellSets[srcName]
	if !ok {
		r.logger.LogSetOp(context.Background(), "DownsampleCells", srcName, 0, false)
		return false, nil
	}
	if p < 0 || p > 1 {
		return false, xerrors.New(xerrors.InvalidInput, "sets.DownsampleCells", "probability out of range")
	}

	rng := util.NewRNG(seed)
	var chosen []uint32
	for _, id := range src.ids {
		if rng.Float64() < p {
			chosen = append(chosen, id)
		}
	}
	return r.putCellSet(resultName, chosen)
}
