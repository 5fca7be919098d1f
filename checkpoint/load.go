package checkpoint

import (
	"log/slog"

	"picswarm/comm"
	"picswarm/swarm"
)

// DefaultChunkRows is the number of coordinate rows read per chunk during a
// load. Chunking bounds peak memory; it does not change the loaded result.
const DefaultChunkRows = 10000

// Loadable is the restore capability consumed by Load. *swarm.Swarm
// implements it.
type Loadable interface {
	Dim() int
	AddParticlesWithCoordinates(coords [][]float64) ([]int, error)
	RecordLoadMapping(local2global []int64)
}

type loadOptions struct {
	chunkRows int64
	log       *slog.Logger
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithChunkRows sets the number of rows read per chunk.
func WithChunkRows(n int) LoadOption {
	return func(o *loadOptions) {
		if n > 0 {
			o.chunkRows = int64(n)
		}
	}
}

// WithLogger enables per-chunk progress logging.
func WithLogger(l *slog.Logger) LoadOption {
	return func(o *loadOptions) { o.log = l }
}

// Load collectively restores particle coordinates from a checkpoint file
// into an empty or compatible swarm. Every rank must call Load together on
// the same file, before any dependent per-particle variable is restored:
// variables rely on the local-to-global index map this call records.
//
// Rows are read in chunks and submitted to the swarm's add path in row
// order; rows rejected as non-local are dropped from the mapping. The
// recorded map is stamped with the swarm's state version and is invalidated
// by any later structural change.
func Load(target Loadable, c comm.Communicator, path string, opts ...LoadOption) error {
	o := loadOptions{
		chunkRows: DefaultChunkRows,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}

	r, err := OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	hdr := r.Header()
	if hdr.Dataset != DatasetName {
		return ioErrorf(nil, "can't find %q dataset in %q (found %q)", DatasetName, path, hdr.Dataset)
	}
	if hdr.Cols != target.Dim() {
		return swarm.NewUsageError(
			"cannot load %q onto this swarm: file rows have %d components, swarm coordinates have %d",
			path, hdr.Cols, target.Dim())
	}

	// Every rank must be reading the same dataset for the chunk loop, and
	// therefore the add-path collectives, to stay symmetric.
	rows := c.AllGatherInt(int(hdr.Rows))
	for rank, n := range rows {
		if int64(n) != hdr.Rows {
			return ioErrorf(nil, "collective load participation mismatch: rank %d sees %d rows, rank %d sees %d",
				c.Rank(), hdr.Rows, rank, n)
		}
	}

	var local2global []int64
	for start := int64(0); start < hdr.Rows; start += o.chunkRows {
		n := o.chunkRows
		if start+n > hdr.Rows {
			n = hdr.Rows - start
		}
		chunk, err := r.ReadRows(start, n)
		if err != nil {
			return err
		}
		result, err := target.AddParticlesWithCoordinates(chunk)
		if err != nil {
			return err
		}
		accepted := 0
		for k, idx := range result {
			if idx >= 0 {
				local2global = append(local2global, start+int64(k))
				accepted++
			}
		}
		o.log.Info("loaded checkpoint chunk",
			"path", path,
			"rows", n,
			"row_start", start,
			"accepted", accepted,
			"total_rows", hdr.Rows,
		)
	}

	target.RecordLoadMapping(local2global)
	return nil
}
