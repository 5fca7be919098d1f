package checkpoint

import (
	"os"

	"github.com/gocarina/gocsv"
)

// ManifestRow records one rank's slice of the checkpoint dataset.
type ManifestRow struct {
	Rank   int   `csv:"rank"`
	Offset int64 `csv:"offset"`
	Count  int   `csv:"count"`
}

// ManifestPath returns the manifest sidecar path for a checkpoint path.
func ManifestPath(path string) string {
	return path + ".manifest.csv"
}

func writeManifest(path string, counts []int) error {
	rows := make([]ManifestRow, len(counts))
	offset := int64(0)
	for r, n := range counts {
		rows[r] = ManifestRow{Rank: r, Offset: offset, Count: n}
		offset += int64(n)
	}

	f, err := os.Create(ManifestPath(path))
	if err != nil {
		return ioErrorf(err, "creating manifest for %q", path)
	}
	defer f.Close()
	if err := gocsv.Marshal(rows, f); err != nil {
		return ioErrorf(err, "writing manifest for %q", path)
	}
	return nil
}

// ReadManifest reads the manifest sidecar of a checkpoint.
func ReadManifest(path string) ([]ManifestRow, error) {
	f, err := os.Open(ManifestPath(path))
	if err != nil {
		return nil, ioErrorf(err, "opening manifest for %q", path)
	}
	defer f.Close()
	var rows []ManifestRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, ioErrorf(err, "parsing manifest for %q", path)
	}
	return rows, nil
}
