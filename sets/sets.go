// Package sets implements the gene-set and cell-set algebra of spec.md
// §4.3: named, sorted sets of global ids with regex/meta-data selection,
// union/intersection/difference, and seeded random down-sampling. The
// sorted-set representation is backed by a roaring bitmap for the set
// algebra itself, materialized to a plain ascending []uint32 for storage
// and for the local-id mapping the subset view needs.
package sets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/scrnaseq/exprgraph/mmvec"
	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/xerrors"
)

// GeneSet is an ordered (ascending) list of global GeneIds, defining
// local ids as positions within the list.
type GeneSet struct {
	name    string
	virtual bool // true for the zero-cost AllGenes view
	n       int  // count, used only when virtual
	ids     []uint32
	pos     map[uint32]int
}

// Name returns the set's registered name ("AllGenes" for the virtual set).
func (g *GeneSet) Name() string { return g.name }

// Len returns the number of genes in the set.
func (g *GeneSet) Len() int {
	if g.virtual {
		return g.n
	}
	return len(g.ids)
}

// GlobalIDs returns the ascending global GeneIds of the set.
func (g *GeneSet) GlobalIDs() []store.GeneID {
	n := g.Len()
	out := make([]store.GeneID, n)
	if g.virtual {
		for i := 0; i < n; i++ {
			out[i] = store.GeneID(i)
		}
		return out
	}
	for i, id := range g.ids {
		out[i] = store.GeneID(id)
	}
	return out
}

// LocalID returns the position of global within the set, if present.
func (g *GeneSet) LocalID(global store.GeneID) (int, bool) {
	if g.virtual {
		if int(global) < g.n {
			return int(global), true
		}
		return 0, false
	}
	i, ok := g.pos[uint32(global)]
	return i, ok
}

// Contains reports whether global is a member of the set.
func (g *GeneSet) Contains(global store.GeneID) bool {
	_, ok := g.LocalID(global)
	return ok
}

func newGeneSet(name string, ids []uint32) *GeneSet {
	pos := make(map[uint32]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	return &GeneSet{name: name, ids: ids, pos: pos}
}

// CellSet is an ordered (ascending) list of global CellIds.
type CellSet struct {
	name    string
	virtual bool
	n       int
	ids     []uint32
	pos     map[uint32]int
}

func (c *CellSet) Name() string { return c.name }

func (c *CellSet) Len() int {
	if c.virtual {
		return c.n
	}
	return len(c.ids)
}

func (c *CellSet) GlobalIDs() []store.CellID {
	n := c.Len()
	out := make([]store.CellID, n)
	if c.virtual {
		for i := 0; i < n; i++ {
			out[i] = store.CellID(i)
		}
		return out
	}
	for i, id := range c.ids {
		out[i] = store.CellID(id)
	}
	return out
}

func (c *CellSet) LocalID(global store.CellID) (int, bool) {
	if c.virtual {
		if int(global) < c.n {
			return int(global), true
		}
		return 0, false
	}
	i, ok := c.pos[uint32(global)]
	return i, ok
}

func (c *CellSet) Contains(global store.CellID) bool {
	_, ok := c.LocalID(global)
	return ok
}

func newCellSet(name string, ids []uint32) *CellSet {
	pos := make(map[uint32]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	return &CellSet{name: name, ids: ids, pos: pos}
}

// AllGenes returns the zero-cost virtual set of every gene registered in
// s, per spec.md §3 ("All genes form the implicit set AllGenes").
func AllGenes(s *store.Store) *GeneSet {
	return &GeneSet{name: "AllGenes", virtual: true, n: s.GeneCount()}
}

// AllCells returns the zero-cost virtual set of every cell registered in
// s, per spec.md §3.
func AllCells(s *store.Store) *CellSet {
	return &CellSet{name: "AllCells", virtual: true, n: s.CellCount()}
}

// validateSetName enforces the file-naming convention of spec.md §6: set
// names must round-trip through "GeneSet-<name>-GlobalIds" and
// "CellSets/<name>", so '/' and NUL are rejected.
func validateSetName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return xerrors.New(xerrors.InvalidInput, "sets.validateSetName", "invalid set name: "+name)
	}
	return nil
}

func geneSetPath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("GeneSet-%s-GlobalIds", name))
}

func cellSetPath(dir, name string) string {
	return filepath.Join(dir, "CellSets", name)
}

// Registry owns the collection of named gene-sets and cell-sets backed
// by a store directory, discovered at open via a directory scan and the
// file-naming pattern of spec.md §6.
type Registry struct {
	dir    string
	logger *store.Logger

	mu       sync.RWMutex
	geneSets map[string]*GeneSet
	cellSets map[string]*CellSet
}

var geneSetFilePattern = regexp.MustCompile(`^GeneSet-(.+)-GlobalIds$`)

// NewRegistry opens (or creates, if absent) the named-set registry
// rooted at dir, loading every existing gene-set and cell-set file.
func NewRegistry(dir string, logger *store.Logger) (*Registry, error) {
	if logger == nil {
		logger = store.NoopLogger()
	}
	r := &Registry{dir: dir, logger: logger, geneSets: map[string]*GeneSet{}, cellSets: map[string]*CellSet{}}

	if err := os.MkdirAll(filepath.Join(dir, "CellSets"), 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.IOError, "sets.NewRegistry", "mkdir CellSets failed", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.IOError, "sets.NewRegistry", "readdir failed", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := geneSetFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		ids, err := loadIDs(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		r.geneSets[m[1]] = newGeneSet(m[1], ids)
	}

	cellEntries, err := os.ReadDir(filepath.Join(dir, "CellSets"))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.IOError, "sets.NewRegistry", "readdir CellSets failed", err)
	}
	for _, e := range cellEntries {
		if e.IsDir() {
			continue
		}
		ids, err := loadIDs(filepath.Join(dir, "CellSets", e.Name()))
		if err != nil {
			return nil, err
		}
		r.cellSets[e.Name()] = newCellSet(e.Name(), ids)
	}
	return r, nil
}

func loadIDs(path string) ([]uint32, error) {
	v, err := mmvec.AccessVector[uint32](path, true)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	out := make([]uint32, v.Len())
	copy(out, v.Slice())
	return out, nil
}

func saveIDs(path string, ids []uint32) error {
	v, err := mmvec.CreateVector[uint32](path, len(ids), len(ids))
	if err != nil {
		return err
	}
	for i, id := range ids {
		v.Set(i, id)
	}
	if err := v.SyncToDisk(); err != nil {
		v.Close()
		return err
	}
	return v.Close()
}

// GeneSet returns the named gene-set, if registered.
func (r *Registry) GeneSet(name string) (*GeneSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.geneSets[name]
	return g, ok
}

// CellSet returns the named cell-set, if registered.
func (r *Registry) CellSet(name string) (*CellSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cellSets[name]
	return c, ok
}

// RemoveGeneSet deletes a named gene-set and its backing file. Returns
// false (no error) if name is not registered, per spec.md §7's
// false-return-value convention for NotFound on set-algebra operations.
func (r *Registry) RemoveGeneSet(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.geneSets[name]; !ok {
		r.logger.LogSetOp(context.Background(), "RemoveGeneSet", name, 0, false)
		return false, nil
	}
	if err := os.Remove(geneSetPath(r.dir, name)); err != nil && !os.IsNotExist(err) {
		return false, xerrors.Wrap(xerrors.IOError, "sets.RemoveGeneSet", "remove failed", err)
	}
	delete(r.geneSets, name)
	return true, nil
}

// RemoveCellSet deletes a named cell-set and its backing file.
func (r *Registry) RemoveCellSet(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cellSets[name]; !ok {
		r.logger.LogSetOp(context.Background(), "RemoveCellSet", name, 0, false)
		return false, nil
	}
	if err := os.Remove(cellSetPath(r.dir, name)); err != nil && !os.IsNotExist(err) {
		return false, xerrors.Wrap(xerrors.IOError, "sets.RemoveCellSet", "remove failed", err)
	}
	delete(r.cellSets, name)
	return true, nil
}

// putGeneSet creates the named gene-set. If name is already registered,
// it fails with AlreadyExists reported via the boolean-diagnostic
// convention of spec.md §7 (false, nil) rather than overwriting it,
// per spec.md §4.3's "fail with NameExists if the output name already
// exists".
func (r *Registry) putGeneSet(name string, ids []uint32) (bool, error) {
	if _, exists := r.geneSets[name]; exists {
		r.logger.LogSetOp(context.Background(), "putGeneSet", name, 0, false)
		return false, nil
	}
	if err := saveIDs(geneSetPath(r.dir, name), ids); err != nil {
		return false, err
	}
	r.geneSets[name] = newGeneSet(name, ids)
	r.logger.LogSetOp(context.Background(), "putGeneSet", name, len(ids), true)
	return true, nil
}

// putCellSet is the cell-set counterpart of putGeneSet.
func (r *Registry) putCellSet(name string, ids []uint32) (bool, error) {
	if _, exists := r.cellSets[name]; exists {
		r.logger.LogSetOp(context.Background(), "putCellSet", name, 0, false)
		return false, nil
	}
	if err := saveIDs(cellSetPath(r.dir, name), ids); err != nil {
		return false, err
	}
	r.cellSets[name] = newCellSet(name, ids)
	r.logger.LogSetOp(context.Background(), "putCellSet", name, len(ids), true)
	return true, nil
}
