package swarm

import (
	"math/rand"

	"gonum.org/v1/gonum/integrate/quad"

	"picswarm/mesh"
)

// Layout generates an initial particle population for one rank's mesh
// partition. Layouts only emit points inside local cells, so populating a
// swarm from its own partition's layout never rejects a point.
type Layout interface {
	Points() [][]float64
}

// PerCellGaussLayout places a tensor-product grid of Gauss-Legendre nodes
// in every local cell: order nodes per axis, order^dim particles per cell.
type PerCellGaussLayout struct {
	mesh  mesh.Partition
	order int
}

// NewPerCellGaussLayout creates a Gauss layout of the given nodal order per
// axis.
func NewPerCellGaussLayout(m mesh.Partition, order int) (*PerCellGaussLayout, error) {
	if order < 1 {
		return nil, usageErrorf("gauss layout order must be positive, got %d", order)
	}
	return &PerCellGaussLayout{mesh: m, order: order}, nil
}

// Points returns the layout's particle positions, cell by cell.
func (l *PerCellGaussLayout) Points() [][]float64 {
	dim := l.mesh.Dim()
	perCell := 1
	for a := 0; a < dim; a++ {
		perCell *= l.order
	}

	var leg quad.Legendre
	pts := make([][]float64, 0, l.mesh.CellCount()*perCell)
	nodes := make([][]float64, dim)
	weights := make([]float64, l.order)

	for cell := 0; cell < l.mesh.CellCount(); cell++ {
		min, max := l.mesh.CellBounds(cell)
		for a := 0; a < dim; a++ {
			nodes[a] = make([]float64, l.order)
			leg.FixedLocations(nodes[a], weights, min[a], max[a])
		}
		// Tensor product over axes, odometer style.
		idx := make([]int, dim)
		for k := 0; k < perCell; k++ {
			pt := make([]float64, dim)
			for a := 0; a < dim; a++ {
				pt[a] = nodes[a][idx[a]]
			}
			pts = append(pts, pt)
			for a := dim - 1; a >= 0; a-- {
				idx[a]++
				if idx[a] < l.order {
					break
				}
				idx[a] = 0
			}
		}
	}
	return pts
}

// PerCellRandomLayout places a fixed number of uniformly random points in
// every local cell, deterministically from the seed.
type PerCellRandomLayout struct {
	mesh    mesh.Partition
	perCell int
	seed    int64
}

// NewPerCellRandomLayout creates a random layout with perCell particles in
// each local cell.
func NewPerCellRandomLayout(m mesh.Partition, perCell int, seed int64) (*PerCellRandomLayout, error) {
	if perCell < 1 {
		return nil, usageErrorf("random layout requires at least one particle per cell, got %d", perCell)
	}
	return &PerCellRandomLayout{mesh: m, perCell: perCell, seed: seed}, nil
}

// Points returns the layout's particle positions, cell by cell.
func (l *PerCellRandomLayout) Points() [][]float64 {
	dim := l.mesh.Dim()
	rng := rand.New(rand.NewSource(l.seed))
	pts := make([][]float64, 0, l.mesh.CellCount()*l.perCell)
	for cell := 0; cell < l.mesh.CellCount(); cell++ {
		min, max := l.mesh.CellBounds(cell)
		for k := 0; k < l.perCell; k++ {
			pt := make([]float64, dim)
			for a := 0; a < dim; a++ {
				pt[a] = min[a] + rng.Float64()*(max[a]-min[a])
			}
			pts = append(pts, pt)
		}
	}
	return pts
}

// PopulateUsingLayout fills the swarm with the layout's points. Every point
// must fall inside the local partition; a rejection indicates a layout that
// does not match the partition and is a usage error.
func (s *Swarm) PopulateUsingLayout(l Layout) error {
	result, err := s.AddParticlesWithCoordinates(l.Points())
	if err != nil {
		return err
	}
	rejected := 0
	for _, idx := range result {
		if idx == RejectedParticle {
			rejected++
		}
	}
	if rejected > 0 {
		return usageErrorf("layout produced %d point(s) outside the local mesh partition", rejected)
	}
	return nil
}
