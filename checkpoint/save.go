package checkpoint

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/google/uuid"

	"picswarm/comm"
	"picswarm/swarm"
)

// Persistable is the save capability consumed by Save. *swarm.Swarm
// implements it.
type Persistable interface {
	Dim() int
	ParticleLocalCount() int
	ParticleCoordinates() *swarm.FloatVariable
}

// SavedFile references a completed checkpoint, for later metadata or index
// file generation.
type SavedFile struct {
	ID   string
	Path string
	Rows int64
	Cols int
}

type saveOptions struct {
	manifest bool
}

// SaveOption configures Save.
type SaveOption func(*saveOptions)

// WithoutManifest suppresses the CSV manifest sidecar.
func WithoutManifest() SaveOption {
	return func(o *saveOptions) { o.manifest = false }
}

// Save collectively writes the coordinate variable of all local particles,
// across all ranks, to a single checkpoint file. Every rank must call Save
// together with the same path; each rank writes its contiguous slice at an
// offset given by the prefix sum of per-rank counts, in rank order.
func Save(p Persistable, c comm.Communicator, path string, opts ...SaveOption) (*SavedFile, error) {
	o := saveOptions{manifest: true}
	for _, opt := range opts {
		opt(&o)
	}

	dim := p.Dim()
	dims := c.AllGatherInt(dim)
	for r, d := range dims {
		if d != dim {
			return nil, ioErrorf(nil, "collective save dimension mismatch: rank %d writes %d columns, rank %d writes %d",
				c.Rank(), dim, r, d)
		}
	}

	local := p.ParticleLocalCount()
	counts := c.AllGatherInt(local)
	offset := int64(0)
	total := int64(0)
	for r, n := range counts {
		if r < c.Rank() {
			offset += int64(n)
		}
		total += int64(n)
	}

	if c.Rank() == 0 {
		f, err := os.Create(path)
		if err != nil {
			return nil, ioErrorf(err, "creating checkpoint %q", path)
		}
		if err := writeHeader(f, total, int64(dim)); err != nil {
			f.Close()
			return nil, ioErrorf(err, "writing checkpoint header to %q", path)
		}
		if err := f.Close(); err != nil {
			return nil, ioErrorf(err, "closing checkpoint %q", path)
		}
	}
	c.Barrier()

	if local > 0 {
		view := p.ParticleCoordinates().Data()
		defer view.Release()

		buf := &bytes.Buffer{}
		buf.Grow(local * dim * 8)
		for i := 0; i < local; i++ {
			row, err := view.Row(i)
			if err != nil {
				return nil, err
			}
			if err := binary.Write(buf, binary.LittleEndian, row); err != nil {
				return nil, ioErrorf(err, "encoding coordinate rows")
			}
		}

		f, err := os.OpenFile(path, os.O_WRONLY, 0644)
		if err != nil {
			return nil, ioErrorf(err, "opening checkpoint %q for writing", path)
		}
		at := dataOffset() + offset*int64(dim)*8
		if _, err := f.WriteAt(buf.Bytes(), at); err != nil {
			f.Close()
			return nil, ioErrorf(err, "writing %d rows at offset %d", local, offset)
		}
		if err := f.Close(); err != nil {
			return nil, ioErrorf(err, "closing checkpoint %q", path)
		}
	}
	c.Barrier()

	if o.manifest && c.Rank() == 0 {
		if err := writeManifest(path, counts); err != nil {
			return nil, err
		}
	}

	return &SavedFile{
		ID:   uuid.NewString(),
		Path: path,
		Rows: total,
		Cols: dim,
	}, nil
}
