package simpairs

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/scrnaseq/exprgraph/store"
	"github.com/scrnaseq/exprgraph/xerrors"
)

// indexFilePrefix mirrors sets' GeneSet-/CellSet- file-naming convention
// (spec.md §6's "SimilarPairs-<name>").
const indexFilePrefix = "SimilarPairs-"

// neighborDTO and indexDTO are the gob-encodable mirror of Index: Index
// keeps its slices unexported so callers can't mutate a built index in
// place, but gob requires exported fields to encode them.
type neighborDTO struct {
	CellID     store.CellID
	Similarity float64
}

type indexDTO struct {
	GeneSetName string
	CellSetName string
	K           int
	Threshold   float64
	CellIDs     []store.CellID
	Neighbors   [][]neighborDTO
}

func toDTO(ix *Index) indexDTO {
	neighbors := make([][]neighborDTO, len(ix.neighbors))
	for i, row := range ix.neighbors {
		out := make([]neighborDTO, len(row))
		for j, nb := range row {
			out[j] = neighborDTO{CellID: nb.CellID, Similarity: nb.Similarity}
		}
		neighbors[i] = out
	}
	return indexDTO{
		GeneSetName: ix.GeneSetName,
		CellSetName: ix.CellSetName,
		K:           ix.K,
		Threshold:   ix.Threshold,
		CellIDs:     ix.cellIDs,
		Neighbors:   neighbors,
	}
}

func fromDTO(dto indexDTO) *Index {
	neighbors := make([][]Neighbor, len(dto.Neighbors))
	for i, row := range dto.Neighbors {
		out := make([]Neighbor, len(row))
		for j, nb := range row {
			out[j] = Neighbor{CellID: nb.CellID, Similarity: nb.Similarity}
		}
		neighbors[i] = out
	}
	return &Index{
		GeneSetName: dto.GeneSetName,
		CellSetName: dto.CellSetName,
		K:           dto.K,
		Threshold:   dto.Threshold,
		cellIDs:     dto.CellIDs,
		neighbors:   neighbors,
	}
}

// IndexPath returns the conventional on-disk path of the named
// SimilarPairs object within dir.
func IndexPath(dir, name string) string {
	return filepath.Join(dir, indexFilePrefix+name)
}

// Save persists ix to dir under name, following the SimilarPairs-<name>
// naming convention. When compress is set, the payload is zstd-compressed
// (DB.SetSimilarPairsCompression sets it at the handle level), grounded
// on the teacher's wal segment compression via the same library.
func Save(dir, name string, ix *Index, compress bool) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toDTO(ix)); err != nil {
		return xerrors.Wrap(xerrors.IOError, "simpairs.Save", "encode index", err)
	}

	payload := buf.Bytes()
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return xerrors.Wrap(xerrors.IOError, "simpairs.Save", "create zstd encoder", err)
		}
		payload = enc.EncodeAll(payload, nil)
		_ = enc.Close()
	}

	header := byte(0)
	if compress {
		header = 1
	}
	out := make([]byte, 1+len(payload))
	out[0] = header
	copy(out[1:], payload)

	return os.WriteFile(IndexPath(dir, name), out, 0o644)
}

// Load reads the named SimilarPairs object from dir. ok is false if no
// such file exists.
func Load(dir, name string) (ix *Index, ok bool, err error) {
	raw, err := os.ReadFile(IndexPath(dir, name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, xerrors.Wrap(xerrors.IOError, "simpairs.Load", "read index file", err)
	}
	if len(raw) == 0 {
		return nil, false, xerrors.New(xerrors.Corrupt, "simpairs.Load", "empty index file")
	}

	payload := raw[1:]
	if raw[0] == 1 {
		dec, derr := zstd.NewReader(nil)
		if derr != nil {
			return nil, false, xerrors.Wrap(xerrors.IOError, "simpairs.Load", "create zstd decoder", derr)
		}
		defer dec.Close()
		payload, derr = dec.DecodeAll(payload, nil)
		if derr != nil {
			return nil, false, xerrors.Wrap(xerrors.Corrupt, "simpairs.Load", "decompress index", derr)
		}
	}

	var dto indexDTO
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&dto); err != nil {
		return nil, false, xerrors.Wrap(xerrors.Corrupt, "simpairs.Load", "decode index", err)
	}
	return fromDTO(dto), true, nil
}

// Remove deletes the named SimilarPairs object's backing file, per
// spec.md §3's "their backing files are removed on deletion". ok is
// false if no such file existed.
func Remove(dir, name string) (ok bool, err error) {
	err = os.Remove(IndexPath(dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, xerrors.Wrap(xerrors.IOError, "simpairs.Remove", "remove index file", err)
	}
	return true, nil
}
