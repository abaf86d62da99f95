package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/scrnaseq/exprgraph/mmvec"
	"github.com/scrnaseq/exprgraph/xerrors"
)

const (
	geneNamesFile    = "GeneNames"
	cellsFile        = "Cells"
	cellNamesFile    = "CellNames"
	cellMetaDataFile = "CellMetaData"
	metaNamesFile    = "CellMetaDataNames"
	metaValuesFile   = "CellMetaDataValues"
	metaUsageFile    = "CellMetaDataNamesUsageCount"
	exprCountsFile   = "CellExpressionCounts"
)

// Store is the persistent, memory-mapped entity store of spec.md §3–§4.2:
// genes, cells, per-cell meta-data, and per-cell sparse expression
// counts, wired behind a single handle in the manner of the teacher's
// facade type.
type Store struct {
	mu sync.RWMutex

	dir string

	geneNames *mmvec.StringTable
	cells     *mmvec.Vector[cellRecord]
	cellNames *mmvec.StringTable

	cellMeta      *mmvec.VectorOfVectors[metaPair]
	metaNames     *mmvec.StringTable
	metaValues    *mmvec.StringTable
	metaNameUsage *mmvec.Vector[uint32]

	exprCounts *mmvec.VectorOfVectors[exprEntry]

	logger  *Logger
	metrics MetricsCollector
}

// Create initializes a new, empty store rooted at dir. Fails with
// AlreadyExists if dir already contains a store.
func Create(dir string, opts ...Option) (*Store, error) {
	o := applyOptions(opts)

	if _, err := os.Stat(filepath.Join(dir, geneNamesFile+".buckets")); err == nil {
		return nil, xerrors.New(xerrors.AlreadyExists, "store.Create", "store already exists at "+dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.IOError, "store.Create", "mkdir failed", err)
	}

	s := &Store{dir: dir, logger: o.logger, metrics: o.metrics}

	var err error
	if s.geneNames, err = mmvec.CreateStringTable(filepath.Join(dir, geneNamesFile), 2*o.geneCapacity); err != nil {
		s.closeCreated()
		return nil, err
	}
	if s.cells, err = mmvec.CreateVector[cellRecord](filepath.Join(dir, cellsFile), 0, o.cellCapacity); err != nil {
		s.closeCreated()
		return nil, err
	}
	if s.cellNames, err = mmvec.CreateStringTable(filepath.Join(dir, cellNamesFile), 2*o.cellCapacity); err != nil {
		s.closeCreated()
		return nil, err
	}
	if s.cellMeta, err = mmvec.CreateVectorOfVectors[metaPair](filepath.Join(dir, cellMetaDataFile), o.cellCapacity, o.cellCapacity*4); err != nil {
		s.closeCreated()
		return nil, err
	}
	if s.metaNames, err = mmvec.CreateStringTable(filepath.Join(dir, metaNamesFile), 2*o.cellMetaDataNameCapacity); err != nil {
		s.closeCreated()
		return nil, err
	}
	if s.metaValues, err = mmvec.CreateStringTable(filepath.Join(dir, metaValuesFile), 2*o.cellMetaDataValueCapacity); err != nil {
		s.closeCreated()
		return nil, err
	}
	if s.metaNameUsage, err = mmvec.CreateVector[uint32](filepath.Join(dir, metaUsageFile), 0, o.cellMetaDataNameCapacity); err != nil {
		s.closeCreated()
		return nil, err
	}
	if s.exprCounts, err = mmvec.CreateVectorOfVectors[exprEntry](filepath.Join(dir, exprCountsFile), o.cellCapacity, o.cellCapacity*32); err != nil {
		s.closeCreated()
		return nil, err
	}
	return s, nil
}

// closeCreated best-effort tears down whatever substructures were opened
// before a Create call failed partway through, so no partial artifacts
// are left behind (spec.md §7). A plain nil check on each field is used
// rather than ranging over an interface slice, since a typed-nil pointer
// boxed into an interface is non-nil and would panic on Remove.
func (s *Store) closeCreated() {
	if s.geneNames != nil {
		_ = s.geneNames.Remove()
	}
	if s.cells != nil {
		_ = s.cells.Remove()
	}
	if s.cellNames != nil {
		_ = s.cellNames.Remove()
	}
	if s.cellMeta != nil {
		_ = s.cellMeta.Remove()
	}
	if s.metaNames != nil {
		_ = s.metaNames.Remove()
	}
	if s.metaValues != nil {
		_ = s.metaValues.Remove()
	}
	if s.metaNameUsage != nil {
		_ = s.metaNameUsage.Remove()
	}
	if s.exprCounts != nil {
		_ = s.exprCounts.Remove()
	}
	_ = os.RemoveAll(s.dir)
}

// Open opens a previously created store rooted at dir.
func Open(dir string, opts ...Option) (*Store, error) {
	o := applyOptions(opts)
	s := &Store{dir: dir, logger: o.logger, metrics: o.metrics}

	var err error
	if s.geneNames, err = mmvec.AccessStringTable(filepath.Join(dir, geneNamesFile), true); err != nil {
		return nil, err
	}
	if s.cells, err = mmvec.AccessVector[cellRecord](filepath.Join(dir, cellsFile), true); err != nil {
		return nil, err
	}
	if s.cellNames, err = mmvec.AccessStringTable(filepath.Join(dir, cellNamesFile), true); err != nil {
		return nil, err
	}
	if s.cellMeta, err = mmvec.AccessVectorOfVectors[metaPair](filepath.Join(dir, cellMetaDataFile), true); err != nil {
		return nil, err
	}
	if s.metaNames, err = mmvec.AccessStringTable(filepath.Join(dir, metaNamesFile), true); err != nil {
		return nil, err
	}
	if s.metaValues, err = mmvec.AccessStringTable(filepath.Join(dir, metaValuesFile), true); err != nil {
		return nil, err
	}
	if s.metaNameUsage, err = mmvec.AccessVector[uint32](filepath.Join(dir, metaUsageFile), true); err != nil {
		return nil, err
	}
	if s.exprCounts, err = mmvec.AccessVectorOfVectors[exprEntry](filepath.Join(dir, exprCountsFile), true); err != nil {
		return nil, err
	}
	if s.cells.Len() != s.cellNames.Count() || s.cells.Len() != s.cellMeta.RowCount() || s.cells.Len() != s.exprCounts.RowCount() {
		return nil, xerrors.New(xerrors.Corrupt, "store.Open", "cell substructures disagree on count")
	}
	return s, nil
}

// GeneCount returns the number of distinct registered genes.
func (s *Store) GeneCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geneNames.Count()
}

// CellCount returns the number of distinct registered cells.
func (s *Store) CellCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cells.Len()
}

// GeneName returns the name of the gene with id.
func (s *Store) GeneName(id GeneID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geneNames.Name(uint32(id))
}

// CellName returns the name of the cell with id.
func (s *Store) CellName(id CellID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cellNames.Name(uint32(id))
}

// GeneByName returns the GeneID for name, or InvalidGeneID if unregistered.
func (s *Store) GeneByName(name string) GeneID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.geneNames.Lookup(name)
	if id == mmvec.InvalidStringID {
		return InvalidGeneID
	}
	return GeneID(id)
}

// CellByName returns the CellID for name, or InvalidCellID if unregistered.
func (s *Store) CellByName(name string) CellID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.cellNames.Lookup(name)
	if id == mmvec.InvalidStringID {
		return InvalidCellID
	}
	return CellID(id)
}

// AddGene registers name as a gene if not already present. Returns the
// gene's id and whether it was newly inserted; duplicate registration is
// idempotent, per spec.md §7.
func (s *Store) AddGene(name string) (GeneID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addGeneLocked(name)
}

func (s *Store) addGeneLocked(name string) (GeneID, bool, error) {
	before := s.geneNames.Count()
	id, err := s.geneNames.Intern(name)
	if err != nil {
		return 0, false, err
	}
	return GeneID(id), int(id) == before, nil
}

// AddCell registers a new cell from an ordered meta-data list (whose
// first entry must be ("CellName", <name>)) and a list of gene-name/count
// expression inputs. Unseen genes are auto-registered. See spec.md §4.2
// for the full validation contract.
func (s *Store) AddCell(metaData []MetaDatum, counts []ExpressionInput) (id CellID, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordAddCell(time.Since(start), err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(metaData) == 0 || metaData[0].Name != "CellName" {
		err = xerrors.New(xerrors.InvalidInput, "store.AddCell", "first meta-data entry must be CellName")
		s.logger.LogAddCell(context.Background(), "", 0, err)
		return 0, err
	}
	cellName := metaData[0].Value
	if s.cellNames.Lookup(cellName) != mmvec.InvalidStringID {
		err = xerrors.New(xerrors.InvalidInput, "store.AddCell", "duplicate cell name: "+cellName)
		s.logger.LogAddCell(context.Background(), cellName, 0, err)
		return 0, err
	}

	entries := make([]exprEntry, 0, len(counts))
	for _, c := range counts {
		if c.Count < 0 {
			err = xerrors.New(xerrors.InvalidInput, "store.AddCell", "negative count for gene "+c.GeneName)
			s.logger.LogAddCell(context.Background(), cellName, 0, err)
			return 0, err
		}
		if c.Count == 0 {
			continue
		}
		gid, _, gerr := s.addGeneLocked(c.GeneName)
		if gerr != nil {
			err = gerr
			s.logger.LogAddCell(context.Background(), cellName, 0, err)
			return 0, err
		}
		entries = append(entries, exprEntry{GeneID: gid, Count: c.Count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].GeneID < entries[j].GeneID })
	for i := 1; i < len(entries); i++ {
		if entries[i].GeneID == entries[i-1].GeneID {
			err = xerrors.New(xerrors.InvalidInput, "store.AddCell", "duplicate gene within cell")
			s.logger.LogAddCell(context.Background(), cellName, 0, err)
			return 0, err
		}
	}

	var sum1, sum2 float64
	for _, e := range entries {
		v := float64(e.Count)
		sum1 += v
		sum2 += v * v
	}

	newID, ierr := s.cellNames.Intern(cellName)
	if ierr != nil {
		err = ierr
		s.logger.LogAddCell(context.Background(), cellName, 0, err)
		return 0, err
	}
	if err = s.cells.PushBack(newCellRecord(sum1, sum2)); err != nil {
		s.logger.LogAddCell(context.Background(), cellName, 0, err)
		return 0, err
	}

	if _, err = s.exprCounts.AppendEmptyRow(); err != nil {
		s.logger.LogAddCell(context.Background(), cellName, 0, err)
		return 0, err
	}
	for _, e := range entries {
		if err = s.exprCounts.AppendToLastRow(e); err != nil {
			s.logger.LogAddCell(context.Background(), cellName, 0, err)
			return 0, err
		}
	}

	if _, err = s.cellMeta.AppendEmptyRow(); err != nil {
		s.logger.LogAddCell(context.Background(), cellName, 0, err)
		return 0, err
	}
	for _, md := range metaData {
		nameID, nerr := s.internMetaName(md.Name)
		if nerr != nil {
			err = nerr
			s.logger.LogAddCell(context.Background(), cellName, 0, err)
			return 0, err
		}
		valueID, verr := s.metaValues.Intern(md.Value)
		if verr != nil {
			err = verr
			s.logger.LogAddCell(context.Background(), cellName, 0, err)
			return 0, err
		}
		if err = s.cellMeta.AppendToLastRow(metaPair{NameID: nameID, ValueID: valueID}); err != nil {
			s.logger.LogAddCell(context.Background(), cellName, 0, err)
			return 0, err
		}
	}

	s.logger.LogAddCell(context.Background(), cellName, len(entries), nil)
	return CellID(newID), nil
}

// internMetaName interns name into the meta-data-name table, extending
// the usage-count vector in lockstep and incrementing the count for name.
func (s *Store) internMetaName(name string) (uint32, error) {
	id, err := s.metaNames.Intern(name)
	if err != nil {
		return 0, err
	}
	if int(id) == s.metaNameUsage.Len() {
		if err := s.metaNameUsage.PushBack(0); err != nil {
			return 0, err
		}
	}
	s.metaNameUsage.Set(int(id), s.metaNameUsage.Get(int(id))+1)
	return id, nil
}

// CellMetaData returns cell's meta-data pairs in insertion order, with
// CellName always first.
func (s *Store) CellMetaData(cell CellID) []MetaDatum {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.cellMeta.Row(int(cell))
	out := make([]MetaDatum, len(row))
	for i, p := range row {
		out[i] = MetaDatum{Name: s.metaNames.Name(p.NameID), Value: s.metaValues.Name(p.ValueID)}
	}
	return out
}

// GetCellMetaData looks up the value of name for cell.
func (s *Store) GetCellMetaData(cell CellID, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nameID := s.metaNames.Lookup(name)
	if nameID == mmvec.InvalidStringID {
		return "", false
	}
	for _, p := range s.cellMeta.Row(int(cell)) {
		if p.NameID == nameID {
			return s.metaValues.Name(p.ValueID), true
		}
	}
	return "", false
}

// SetCellMetaData updates name's value for cell in place if present,
// otherwise appends a new pair and increments name's usage counter (see
// spec.md §4.2). Updating an existing pair does not touch the usage
// counter.
func (s *Store) SetCellMetaData(cell CellID, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingNameID := s.metaNames.Lookup(name); existingNameID != mmvec.InvalidStringID {
		row := s.cellMeta.Row(int(cell))
		for i := range row {
			if row[i].NameID == existingNameID {
				valueID, err := s.metaValues.Intern(value)
				if err != nil {
					return err
				}
				row[i].ValueID = valueID
				return nil
			}
		}
	}

	valueID, err := s.metaValues.Intern(value)
	if err != nil {
		return err
	}
	nameID, err := s.internMetaName(name)
	if err != nil {
		return err
	}
	return s.cellMeta.InsertIntoRow(int(cell), metaPair{NameID: nameID, ValueID: valueID})
}

// CellExpression returns cell's sorted, GeneID-unique sparse expression
// vector.
func (s *Store) CellExpression(cell CellID) []ExpressionCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.exprCounts.Row(int(cell))
	out := make([]ExpressionCount, len(row))
	for i, e := range row {
		out[i] = ExpressionCount{GeneID: e.GeneID, Count: e.Count}
	}
	return out
}

// CellSums returns cell's precomputed scalars.
func (s *Store) CellSums(cell CellID) (sum1, sum2, norm2, norm1Inverse, norm2Inverse float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.cells.Get(int(cell))
	return r.Sum1, r.Sum2, r.Norm2, r.Norm1Inverse, r.Norm2Inverse
}

// SyncToDisk forces every backing file to durable storage.
func (s *Store) SyncToDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range []interface{ SyncToDisk() error }{
		s.geneNames, s.cells, s.cellNames, s.cellMeta, s.metaNames, s.metaValues, s.metaNameUsage, s.exprCounts,
	} {
		if err := c.SyncToDisk(); err != nil {
			return err
		}
	}
	return nil
}

// Close syncs and unmaps every backing file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for _, c := range []interface{ Close() error }{
		s.geneNames, s.cells, s.cellNames, s.cellMeta, s.metaNames, s.metaValues, s.metaNameUsage, s.exprCounts,
	} {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
