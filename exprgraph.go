package exprgraph

import (
	"os"
	"path/filepath"

	"github.com/scrnaseq/exprgraph/sets"
	"github.com/scrnaseq/exprgraph/simpairs"
	"github.com/scrnaseq/exprgraph/store"
)

// DB is the top-level handle wiring the entity store and the named-set
// registry behind one directory, mirroring the teacher's single
// lifecycle-scoped handle (open/create → operate → close, per spec.md
// §9's "whole-store global state" note).
type DB struct {
	store                *store.Store
	sets                 *sets.Registry
	simPairsDir          string
	compressSimilarPairs bool
}

// Create initializes a new, empty store and set registry rooted at dir.
func Create(dir string, opts ...store.Option) (*DB, error) {
	s, err := store.Create(dir, opts...)
	if err != nil {
		return nil, err
	}
	r, err := sets.NewRegistry(filepath.Join(dir, "sets"), nil)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	simDir := filepath.Join(dir, "simpairs")
	if err := os.MkdirAll(simDir, 0o755); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &DB{store: s, sets: r, simPairsDir: simDir}, nil
}

// Open accesses a previously created store and its set registry.
func Open(dir string, opts ...store.Option) (*DB, error) {
	s, err := store.Open(dir, opts...)
	if err != nil {
		return nil, err
	}
	r, err := sets.NewRegistry(filepath.Join(dir, "sets"), nil)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	simDir := filepath.Join(dir, "simpairs")
	if err := os.MkdirAll(simDir, 0o755); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &DB{store: s, sets: r, simPairsDir: simDir}, nil
}

// SetSimilarPairsCompression toggles zstd compression of SimilarPairs
// objects written by SaveSimilarPairs; it is off by default.
func (db *DB) SetSimilarPairsCompression(enabled bool) { db.compressSimilarPairs = enabled }

// SaveSimilarPairs persists ix under name, following the
// SimilarPairs-<name> naming convention of spec.md §6.
func (db *DB) SaveSimilarPairs(name string, ix *simpairs.Index) error {
	return simpairs.Save(db.simPairsDir, name, ix, db.compressSimilarPairs)
}

// LoadSimilarPairs reads a previously saved SimilarPairs object. ok is
// false if no object of that name exists.
func (db *DB) LoadSimilarPairs(name string) (ix *simpairs.Index, ok bool, err error) {
	return simpairs.Load(db.simPairsDir, name)
}

// RemoveSimilarPairs deletes the named SimilarPairs object's backing
// file, per spec.md §3's "backing files are removed on deletion".
func (db *DB) RemoveSimilarPairs(name string) (bool, error) {
	return simpairs.Remove(db.simPairsDir, name)
}

// ReuseOrBuildSimilarPairs returns the previously saved index named name
// if simpairs.CanReuse accepts it for g (SPEC_FULL.md's reuse check),
// otherwise it is silently ignored and the caller should build and save
// a fresh one.
func (db *DB) ReuseOrBuildSimilarPairs(name string, g *sets.GeneSet) (*simpairs.Index, bool) {
	ix, ok, err := db.LoadSimilarPairs(name)
	if err != nil || !ok || !simpairs.CanReuse(ix, g) {
		return nil, false
	}
	return ix, true
}

// Store returns the underlying entity store.
func (db *DB) Store() *store.Store { return db.store }

// Sets returns the named gene-set/cell-set registry.
func (db *DB) Sets() *sets.Registry { return db.sets }

// Close releases resources held by this handle.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	return db.store.Close()
}

// SyncToDisk forces durability of the underlying store.
func (db *DB) SyncToDisk() error {
	if db == nil {
		return nil
	}
	return db.store.SyncToDisk()
}
