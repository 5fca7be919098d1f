package mesh

import (
	"fmt"
	"math"
)

// Cartesian is a regular grid mesh over an axis-aligned box, decomposed
// across ranks as contiguous slabs along the first axis. Each instance is
// one rank's partition view; all ranks of a run must construct it with
// identical global parameters.
type Cartesian struct {
	dim  int
	res  []int // global cells per axis
	min  []float64
	max  []float64
	rank int
	size int

	xlo, xhi int // this rank's global cell range along axis 0

	postDeform []func() error
}

// NewCartesian creates a single-rank Cartesian mesh covering [min,max] with
// res cells per axis.
func NewCartesian(res []int, min, max []float64) (*Cartesian, error) {
	return NewCartesianPartition(res, min, max, 0, 1)
}

// NewCartesianPartition creates rank's slab of a Cartesian mesh decomposed
// over size ranks along the first axis.
func NewCartesianPartition(res []int, min, max []float64, rank, size int) (*Cartesian, error) {
	dim := len(res)
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("mesh: dimension must be 2 or 3, got %d", dim)
	}
	if len(min) != dim || len(max) != dim {
		return nil, fmt.Errorf("mesh: res, min and max must all have length %d", dim)
	}
	for i := 0; i < dim; i++ {
		if res[i] < 1 {
			return nil, fmt.Errorf("mesh: resolution along axis %d must be positive, got %d", i, res[i])
		}
		if max[i] <= min[i] {
			return nil, fmt.Errorf("mesh: max must exceed min along axis %d (%g <= %g)", i, max[i], min[i])
		}
	}
	if size < 1 || rank < 0 || rank >= size {
		return nil, fmt.Errorf("mesh: invalid rank %d of %d", rank, size)
	}
	if res[0] < size {
		return nil, fmt.Errorf("mesh: cannot decompose %d cells along axis 0 over %d ranks", res[0], size)
	}

	m := &Cartesian{
		dim:  dim,
		res:  append([]int(nil), res...),
		min:  append([]float64(nil), min...),
		max:  append([]float64(nil), max...),
		rank: rank,
		size: size,
		xlo:  rank * res[0] / size,
		xhi:  (rank + 1) * res[0] / size,
	}
	return m, nil
}

// Dim returns the spatial dimension.
func (m *Cartesian) Dim() int { return m.dim }

// CellCount returns the number of cells in this rank's slab.
func (m *Cartesian) CellCount() int {
	n := m.xhi - m.xlo
	for i := 1; i < m.dim; i++ {
		n *= m.res[i]
	}
	return n
}

func (m *Cartesian) cellWidth(axis int) float64 {
	return (m.max[axis] - m.min[axis]) / float64(m.res[axis])
}

// Locate returns the local id of the cell containing pt. Points outside
// this rank's slab, including points exactly on the upper domain boundary,
// are not contained.
func (m *Cartesian) Locate(pt []float64) (int, bool) {
	if len(pt) != m.dim {
		return -1, false
	}
	idx := make([]int, m.dim)
	for a := 0; a < m.dim; a++ {
		g := int(math.Floor((pt[a] - m.min[a]) / m.cellWidth(a)))
		if g < 0 || g >= m.res[a] {
			return -1, false
		}
		idx[a] = g
	}
	if idx[0] < m.xlo || idx[0] >= m.xhi {
		return -1, false
	}

	// Row-major local numbering with the slab-local axis-0 index leading.
	cell := idx[0] - m.xlo
	for a := 1; a < m.dim; a++ {
		cell = cell*m.res[a] + idx[a]
	}
	return cell, true
}

// CellBounds returns the axis-aligned bounds of a local cell.
func (m *Cartesian) CellBounds(cell int) (min, max []float64) {
	if cell < 0 || cell >= m.CellCount() {
		panic(fmt.Sprintf("mesh: cell %d out of range [0,%d)", cell, m.CellCount()))
	}
	idx := make([]int, m.dim)
	for a := m.dim - 1; a >= 1; a-- {
		idx[a] = cell % m.res[a]
		cell /= m.res[a]
	}
	idx[0] = cell + m.xlo

	min = make([]float64, m.dim)
	max = make([]float64, m.dim)
	for a := 0; a < m.dim; a++ {
		w := m.cellWidth(a)
		min[a] = m.min[a] + float64(idx[a])*w
		max[a] = min[a] + w
	}
	return min, max
}

// AddPostDeformHook registers fn to run after every completed deformation.
func (m *Cartesian) AddPostDeformHook(fn func() error) {
	m.postDeform = append(m.postDeform, fn)
}

// Deformation exposes the geometry mutations permitted inside a DeformMesh
// scope.
type Deformation struct {
	m *Cartesian
}

// Translate shifts the whole domain by delta. Every rank must apply the
// same translation.
func (d *Deformation) Translate(delta []float64) error {
	if len(delta) != d.m.dim {
		return fmt.Errorf("mesh: translation vector must have length %d, got %d", d.m.dim, len(delta))
	}
	for a := 0; a < d.m.dim; a++ {
		d.m.min[a] += delta[a]
		d.m.max[a] += delta[a]
	}
	return nil
}

// DeformMesh runs fn inside a deformation scope and then fires the
// registered post-deform hooks. Hooks do not run when fn fails.
func (m *Cartesian) DeformMesh(fn func(*Deformation) error) error {
	if err := fn(&Deformation{m: m}); err != nil {
		return fmt.Errorf("mesh deformation: %w", err)
	}
	for _, hook := range m.postDeform {
		if err := hook(); err != nil {
			return err
		}
	}
	return nil
}
