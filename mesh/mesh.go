// Package mesh defines the mesh-side interfaces the swarm core consumes,
// along with a regular Cartesian reference mesh used by layouts and tests.
// The swarm never inspects mesh geometry beyond these interfaces.
package mesh

// Locator finds the local mesh cell owning a point. It only consults the
// calling rank's partition and performs no communication.
type Locator interface {
	// Locate returns the local id of the cell containing pt, or ok=false
	// when pt lies outside this rank's partition.
	Locate(pt []float64) (cell int, ok bool)
}

// Partition describes one rank's mesh partition.
type Partition interface {
	Locator

	// Dim returns the spatial dimension (2 or 3).
	Dim() int
	// CellCount returns the number of cells in the local partition.
	CellCount() int
	// CellBounds returns the axis-aligned bounds of a local cell. Used by
	// population layouts to place points inside cells.
	CellBounds(cell int) (min, max []float64)
}

// Deformable is implemented by meshes whose geometry can change. Registered
// hooks run after every completed deformation, in registration order.
type Deformable interface {
	AddPostDeformHook(fn func() error)
}
