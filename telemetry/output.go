package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// OutputManager handles structured telemetry output with CSV logging.
type OutputManager struct {
	dir       string
	cycleFile *os.File

	cycleHeaderWritten bool
}

// NewOutputManager creates an output manager rooted at dir. Returns nil if
// dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "migration.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating migration.csv: %w", err)
	}
	om.cycleFile = f
	return om, nil
}

// WriteCycle appends one owner-update cycle record to migration.csv.
func (om *OutputManager) WriteCycle(rec CycleRecord) error {
	if om == nil {
		return nil
	}
	records := []CycleRecord{rec}
	if !om.cycleHeaderWritten {
		if err := gocsv.Marshal(records, om.cycleFile); err != nil {
			return fmt.Errorf("writing migration record: %w", err)
		}
		om.cycleHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.cycleFile); err != nil {
		return fmt.Errorf("writing migration record: %w", err)
	}
	return nil
}

// Close flushes and closes the output files.
func (om *OutputManager) Close() error {
	if om == nil || om.cycleFile == nil {
		return nil
	}
	return om.cycleFile.Close()
}
