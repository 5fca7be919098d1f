package swarm

import (
	"errors"
	"testing"

	"picswarm/comm"
	"picswarm/mesh"
)

func newTestSwarm(t *testing.T, opts ...Option) *Swarm {
	t.Helper()
	m, err := mesh.NewCartesian([]int{4, 4}, []float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(m, comm.Self{}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func isUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

func TestAddParticlesWithCoordinates(t *testing.T) {
	s := newTestSwarm(t)

	result, err := s.AddParticlesWithCoordinates([][]float64{
		{0.1, 0.1},
		{0.2, 0.1},
		{0.1, 0.2},
		{-0.1, -0.1},
		{0.8, 0.8},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []int{0, 1, 2, RejectedParticle, 3}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("result[%d] = %d, want %d", i, result[i], want[i])
		}
	}
	if s.ParticleLocalCount() != 4 {
		t.Errorf("particleLocalCount = %d, want 4", s.ParticleLocalCount())
	}

	view := s.ParticleCoordinates().Data()
	defer view.Release()
	wantCoords := [][]float64{{0.1, 0.1}, {0.2, 0.1}, {0.1, 0.2}, {0.8, 0.8}}
	for i, wc := range wantCoords {
		row, err := view.Row(i)
		if err != nil {
			t.Fatal(err)
		}
		if row[0] != wc[0] || row[1] != wc[1] {
			t.Errorf("particle %d at %v, want %v", i, row, wc)
		}
	}
}

func TestAddShapeValidation(t *testing.T) {
	s := newTestSwarm(t)
	_, err := s.AddParticlesWithCoordinates([][]float64{{0.1, 0.1, 0.1}})
	if !isUsageError(err) {
		t.Fatalf("expected UsageError for 3-component row on 2D swarm, got %v", err)
	}
	if s.ParticleLocalCount() != 0 {
		t.Errorf("failed add must not change particle count, have %d", s.ParticleLocalCount())
	}
}

func TestAddRejectedWithLiveView(t *testing.T) {
	s := newTestSwarm(t)
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.5, 0.5}}); err != nil {
		t.Fatal(err)
	}

	view := s.ParticleCoordinates().Data()
	_, err := s.AddParticlesWithCoordinates([][]float64{{0.25, 0.25}})
	if !isUsageError(err) {
		t.Fatalf("expected UsageError while a view is held, got %v", err)
	}
	view.Release()

	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.25, 0.25}}); err != nil {
		t.Fatalf("add after release failed: %v", err)
	}
}

func TestViewStaleAfterStructuralChange(t *testing.T) {
	s := newTestSwarm(t)
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.5, 0.5}}); err != nil {
		t.Fatal(err)
	}

	view := s.ParticleCoordinates().Data()
	view.Release()
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.25, 0.25}}); err != nil {
		t.Fatal(err)
	}

	if _, err := view.At(0, 0); !isUsageError(err) {
		t.Errorf("expected UsageError reading a stale view, got %v", err)
	}
}

func TestStateIDBumpsOncePerAdd(t *testing.T) {
	s := newTestSwarm(t)
	before := s.StateID()

	// A batch of three accepted rows advances the state exactly once.
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.1, 0.1}, {0.2, 0.2}, {0.3, 0.3}}); err != nil {
		t.Fatal(err)
	}
	if s.StateID() != before+1 {
		t.Errorf("stateId advanced by %d, want 1", s.StateID()-before)
	}

	// An all-rejected batch still advances the state once.
	if _, err := s.AddParticlesWithCoordinates([][]float64{{2, 2}}); err != nil {
		t.Fatal(err)
	}
	if s.StateID() != before+2 {
		t.Errorf("stateId advanced by %d after two adds, want 2", s.StateID()-before)
	}
}

func TestOwningCellAssignedOnAdd(t *testing.T) {
	s := newTestSwarm(t)
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.1, 0.1}, {0.9, 0.9}}); err != nil {
		t.Fatal(err)
	}

	cells := s.OwningCell().Data()
	defer cells.Release()
	c0, err := cells.At(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	c1, err := cells.At(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c0 != 0 {
		t.Errorf("particle 0 owning cell = %d, want 0", c0)
	}
	if c1 != 15 {
		t.Errorf("particle 1 owning cell = %d, want 15", c1)
	}
}

func TestCellParticleIndexMemoization(t *testing.T) {
	s := newTestSwarm(t)
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.1, 0.1}, {0.15, 0.15}, {0.9, 0.9}}); err != nil {
		t.Fatal(err)
	}

	idx := s.CellParticleIndex()
	if len(idx[0]) != 2 || len(idx[15]) != 1 {
		t.Fatalf("cell index = %v, want two particles in cell 0 and one in cell 15", idx)
	}

	// Memoized: same backing slice until the state changes.
	if &idx[0] != &s.CellParticleIndex()[0] {
		t.Error("expected memoized cell index on repeated access")
	}

	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.9, 0.1}}); err != nil {
		t.Fatal(err)
	}
	idx2 := s.CellParticleIndex()
	if len(idx2[12]) != 1 {
		t.Errorf("rebuilt cell index missing new particle: %v", idx2)
	}
}

func TestCoordinateInput(t *testing.T) {
	s := newTestSwarm(t)
	pts := [][]float64{{0.1, 0.1}, {0.6, 0.6}, {0.9, 0.2}}
	if _, err := s.AddParticlesWithCoordinates(pts); err != nil {
		t.Fatal(err)
	}

	seen := 0
	for i, row := range s.CoordinateInput() {
		if row[0] != pts[i][0] || row[1] != pts[i][1] {
			t.Errorf("row %d = %v, want %v", i, row, pts[i])
		}
		seen++
	}
	if seen != 3 {
		t.Errorf("iterated %d rows, want 3", seen)
	}
}

func TestVariablesGrowWithParticles(t *testing.T) {
	s := newTestSwarm(t)
	mass, err := s.NewFloatVariable(1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.1, 0.1}, {0.9, 0.9}}); err != nil {
		t.Fatal(err)
	}

	view := mass.Data()
	defer view.Release()
	if view.Len() != 2 {
		t.Fatalf("variable rows = %d, want 2", view.Len())
	}
	if err := view.Set(1, 0, 3.5); err != nil {
		t.Fatal(err)
	}
	got, err := view.At(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3.5 {
		t.Errorf("variable value = %g, want 3.5", got)
	}
}

func TestVariableRegistrationInvalidatesViews(t *testing.T) {
	s := newTestSwarm(t)
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.5, 0.5}}); err != nil {
		t.Fatal(err)
	}

	view := s.ParticleCoordinates().Data()
	if _, err := s.NewFloatVariable(2); !isUsageError(err) {
		t.Fatalf("expected UsageError registering a variable while a view is held, got %v", err)
	}
	view.Release()

	view2 := s.ParticleCoordinates().Data()
	view2.Release()
	if _, err := s.NewIntVariable(1); err != nil {
		t.Fatal(err)
	}
	if _, err := view2.At(0, 0); !isUsageError(err) {
		t.Errorf("expected stale view after variable registration, got %v", err)
	}
}

func TestLocal2GlobalInvalidation(t *testing.T) {
	s := newTestSwarm(t)
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.5, 0.5}}); err != nil {
		t.Fatal(err)
	}

	s.RecordLoadMapping([]int64{17})
	m, ok := s.Local2Global()
	if !ok || len(m) != 1 || m[0] != 17 {
		t.Fatalf("Local2Global = %v,%v; want [17],true", m, ok)
	}

	// Any structural change invalidates the mapping.
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.25, 0.25}}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Local2Global(); ok {
		t.Error("Local2Global must be invalid after a structural change")
	}
}

func TestGlobalCountSingleRank(t *testing.T) {
	s := newTestSwarm(t)
	if _, err := s.AddParticlesWithCoordinates([][]float64{{0.1, 0.1}, {0.9, 0.9}}); err != nil {
		t.Fatal(err)
	}
	if got := s.ParticleGlobalCount(); got != 2 {
		t.Errorf("particleGlobalCount = %d, want 2", got)
	}
}

func TestNewValidation(t *testing.T) {
	m, err := mesh.NewCartesian([]int{4, 4}, []float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(nil, comm.Self{}); !isUsageError(err) {
		t.Errorf("expected UsageError for nil mesh, got %v", err)
	}
	if _, err := New(m, nil); !isUsageError(err) {
		t.Errorf("expected UsageError for nil communicator, got %v", err)
	}
	if _, err := New(m, comm.Self{}, WithEscapeBacklog(0)); !isUsageError(err) {
		t.Errorf("expected UsageError for non-positive backlog, got %v", err)
	}
}
