package swarm

import (
	"testing"

	"picswarm/comm"
	"picswarm/mesh"
)

func TestPerCellGaussLayoutCounts(t *testing.T) {
	m, err := mesh.NewCartesian([]int{16, 16}, []float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	layout, err := NewPerCellGaussLayout(m, 2)
	if err != nil {
		t.Fatal(err)
	}
	pts := layout.Points()
	if len(pts) != 1024 {
		t.Fatalf("16x16 mesh with order-2 gauss layout produced %d points, want 1024", len(pts))
	}
}

func TestPerCellGaussLayoutPointsInOwnCell(t *testing.T) {
	m, err := mesh.NewCartesian([]int{4, 3}, []float64{-1, 0}, []float64{1, 3}) // uneven cell sizes
	if err != nil {
		t.Fatal(err)
	}
	layout, err := NewPerCellGaussLayout(m, 3)
	if err != nil {
		t.Fatal(err)
	}
	pts := layout.Points()
	if len(pts) != 4*3*9 {
		t.Fatalf("point count = %d, want %d", len(pts), 4*3*9)
	}
	perCell := 9
	for i, pt := range pts {
		wantCell := i / perCell
		cell, ok := m.Locate(pt)
		if !ok {
			t.Fatalf("point %d %v not locatable", i, pt)
		}
		if cell != wantCell {
			t.Errorf("point %d %v located in cell %d, want %d", i, pt, cell, wantCell)
		}
	}
}

func TestPerCellGaussLayoutOrderValidation(t *testing.T) {
	m, err := mesh.NewCartesian([]int{2, 2}, []float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewPerCellGaussLayout(m, 0); !isUsageError(err) {
		t.Errorf("order 0 must be rejected, got %v", err)
	}
}

func TestPerCellRandomLayoutDeterministic(t *testing.T) {
	m, err := mesh.NewCartesian([]int{4, 4}, []float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	l1, err := NewPerCellRandomLayout(m, 5, 7)
	if err != nil {
		t.Fatal(err)
	}
	l2, err := NewPerCellRandomLayout(m, 5, 7)
	if err != nil {
		t.Fatal(err)
	}
	a, b := l1.Points(), l2.Points()
	if len(a) != 80 || len(b) != 80 {
		t.Fatalf("point counts = %d, %d, want 80", len(a), len(b))
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("same seed produced different point %d: %v vs %v", i, a[i], b[i])
			}
		}
	}
}

func TestPerCellRandomLayoutPointsInOwnCell(t *testing.T) {
	m, err := mesh.NewCartesian([]int{3, 3}, []float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	layout, err := NewPerCellRandomLayout(m, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, pt := range layout.Points() {
		cell, ok := m.Locate(pt)
		if !ok {
			t.Fatalf("point %d %v not locatable", i, pt)
		}
		if want := i / 10; cell != want {
			t.Errorf("point %d located in cell %d, want %d", i, cell, want)
		}
	}
}

func TestPopulateUsingLayout(t *testing.T) {
	m, err := mesh.NewCartesian([]int{4, 4}, []float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(m, comm.Self{})
	if err != nil {
		t.Fatal(err)
	}
	layout, err := NewPerCellGaussLayout(m, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PopulateUsingLayout(layout); err != nil {
		t.Fatal(err)
	}
	if s.ParticleLocalCount() != 64 {
		t.Errorf("particleLocalCount = %d, want 64", s.ParticleLocalCount())
	}

	// Every cell of the memoized index holds exactly the layout's per-cell
	// population.
	idx := s.CellParticleIndex()
	for cell, members := range idx {
		if len(members) != 4 {
			t.Errorf("cell %d has %d particles, want 4", cell, len(members))
		}
	}
}

type offPartitionLayout struct{}

func (offPartitionLayout) Points() [][]float64 {
	return [][]float64{{0.5, 0.5}, {2, 2}}
}

func TestPopulateRejectsOffPartitionLayout(t *testing.T) {
	s := newTestSwarm(t)
	err := s.PopulateUsingLayout(offPartitionLayout{})
	if !isUsageError(err) {
		t.Fatalf("expected UsageError for off-partition layout, got %v", err)
	}
}
