// Package swarm implements a distributed particle swarm embedded in a
// decomposed mesh. Each rank owns a dense local subset of particles; the
// package tracks which mesh cell and rank owns every particle, migrates
// particles across rank boundaries after their coordinates change, evicts
// particles that leave the domain, and keeps all attached per-particle
// variables consistent with these structural changes.
package swarm

import (
	"iter"
	"log/slog"

	"picswarm/comm"
	"picswarm/mesh"
)

// DefaultEscapeBacklog is the number of pending escapee removals buffered
// before particle storage is physically compacted.
const DefaultEscapeBacklog = 1000

// Swarm owns one rank's particle store. Construct with New; all ranks of a
// run must construct their swarms symmetrically (same variables, in the
// same order) for the collective operations to line up.
type Swarm struct {
	mesh mesh.Partition
	comm comm.Communicator
	log  *slog.Logger

	particleEscape bool
	escape         *escapeRoutine

	st *store

	stateID      int64
	deformActive bool

	// cellIndex memoizes the cell -> particle index map; cleared whenever
	// the state id changes.
	cellIndex [][]int

	loadMap      []int64
	loadMapState int64

	recorder Recorder
	cycle    int64
}

// Option configures a Swarm at construction.
type Option func(*Swarm)

// WithParticleEscape allows particles to leave the domain: unlocatable
// particles are culled instead of raising a ConsistencyError.
func WithParticleEscape() Option {
	return func(s *Swarm) { s.particleEscape = true }
}

// WithEscapeBacklog sets the pending-removal threshold at which escapee
// eviction physically compacts storage.
func WithEscapeBacklog(n int) Option {
	return func(s *Swarm) { s.escape.backlog = n }
}

// WithLogger sets the structured logger used by owner updates.
func WithLogger(l *slog.Logger) Option {
	return func(s *Swarm) { s.log = l }
}

// WithRecorder sets a telemetry recorder notified after each owner-update
// cycle.
func WithRecorder(r Recorder) Option {
	return func(s *Swarm) { s.recorder = r }
}

// New creates a swarm bound to this rank's mesh partition and the given
// communicator. If the mesh supports deformation hooks, the swarm registers
// its owner update to run automatically after every mesh deformation.
func New(m mesh.Partition, c comm.Communicator, opts ...Option) (*Swarm, error) {
	if m == nil {
		return nil, usageErrorf("swarm requires a mesh partition")
	}
	if c == nil {
		return nil, usageErrorf("swarm requires a communicator")
	}
	dim := m.Dim()
	if dim != 2 && dim != 3 {
		return nil, usageErrorf("mesh dimension must be 2 or 3, got %d", dim)
	}

	s := &Swarm{
		mesh:         m,
		comm:         c,
		log:          slog.New(slog.DiscardHandler),
		escape:       &escapeRoutine{backlog: DefaultEscapeBacklog},
		loadMapState: -1,
	}
	s.st = &store{dim: dim}
	s.st.coords = &FloatVariable{sw: s, w: dim, coord: true}
	s.st.owningCell = &IntVariable{sw: s, w: 1}

	for _, opt := range opts {
		opt(s)
	}
	if s.escape.backlog <= 0 {
		return nil, usageErrorf("escape backlog must be positive, got %d", s.escape.backlog)
	}

	if d, ok := m.(mesh.Deformable); ok {
		d.AddPostDeformHook(s.UpdateParticleOwners)
	}
	return s, nil
}

// Dim returns the spatial dimension of the swarm's coordinates.
func (s *Swarm) Dim() int { return s.st.dim }

// Mesh returns the mesh partition the swarm is bound to.
func (s *Swarm) Mesh() mesh.Partition { return s.mesh }

// Comm returns the communicator the swarm was constructed with.
func (s *Swarm) Comm() comm.Communicator { return s.comm }

// ParticleLocalCount returns the number of live particles on this rank.
func (s *Swarm) ParticleLocalCount() int { return s.st.count }

// ParticleGlobalCount returns the total particle count across all ranks.
// This is a synchronous collective: every rank must call it together. The
// result is never cached.
func (s *Swarm) ParticleGlobalCount() int {
	total := 0
	for _, n := range s.comm.AllGatherInt(s.st.count) {
		total += n
	}
	return total
}

// StateID returns the current state version. It increases on every
// structural change and is the staleness key for all derived data.
func (s *Swarm) StateID() int64 { return s.stateID }

// ParticleCoordinates returns the distinguished coordinate variable.
func (s *Swarm) ParticleCoordinates() *FloatVariable { return s.st.coords }

// OwningCell returns the per-particle owning-cell variable. Entries are -1
// for particles whose coordinates changed since the last owner update.
func (s *Swarm) OwningCell() *IntVariable { return s.st.owningCell }

// toggleState advances the state version and drops all memoized derived
// state.
func (s *Swarm) toggleState() {
	s.stateID++
	s.cellIndex = nil
}

// NewFloatVariable registers a float64 per-particle variable of the given
// width. Registration reallocates storage and therefore invalidates
// outstanding views. Every rank must register variables in the same order.
func (s *Swarm) NewFloatVariable(width int) (*FloatVariable, error) {
	if err := s.checkStructuralChange(); err != nil {
		return nil, err
	}
	if width < 1 {
		return nil, usageErrorf("variable width must be positive, got %d", width)
	}
	v := &FloatVariable{sw: s, w: width}
	v.growTo(s.st.count)
	s.st.vars = append(s.st.vars, v)
	s.st.generation++
	return v, nil
}

// NewIntVariable registers an int32 per-particle variable of the given
// width, with the same rules as NewFloatVariable.
func (s *Swarm) NewIntVariable(width int) (*IntVariable, error) {
	if err := s.checkStructuralChange(); err != nil {
		return nil, err
	}
	if width < 1 {
		return nil, usageErrorf("variable width must be positive, got %d", width)
	}
	v := &IntVariable{sw: s, w: width}
	v.growTo(s.st.count)
	s.st.vars = append(s.st.vars, v)
	s.st.generation++
	return v, nil
}

func (s *Swarm) checkStructuralChange() error {
	if s.deformActive {
		return usageErrorf("swarm is locked by an active deform scope; structural changes are not permitted inside it")
	}
	return s.st.checkNoViews()
}

// AddParticlesWithCoordinates adds particles at the given coordinates.
// Points not contained in this rank's mesh partition are rejected. The
// result has one entry per input row, in input order: the new local index
// for accepted points, RejectedParticle for rejected ones.
//
// The call reallocates particle storage, so it fails while any variable
// view is held, and every outstanding view becomes stale afterwards. The
// state version advances exactly once per call.
func (s *Swarm) AddParticlesWithCoordinates(coords [][]float64) ([]int, error) {
	if err := s.checkStructuralChange(); err != nil {
		return nil, err
	}
	for i, row := range coords {
		if len(row) != s.st.dim {
			return nil, usageErrorf(
				"coordinate array must be two-dimensional with shape n×dim: row %d has %d components, swarm dimension is %d",
				i, len(row), s.st.dim)
		}
	}

	result := make([]int, len(coords))
	for i, row := range coords {
		cell, ok := s.mesh.Locate(row)
		if !ok {
			result[i] = RejectedParticle
			continue
		}
		result[i] = s.st.appendRow(row, int32(cell))
	}
	s.st.generation++
	s.toggleState()
	return result, nil
}

// RejectedParticle is the reserved index marking an input row that was not
// added because its point lies outside the local mesh partition.
const RejectedParticle = -1

// CellParticleIndex returns, for every local cell, the local indices of the
// particles it owns. The map is memoized and rebuilt lazily after every
// state change. Entries are only meaningful after an owner update has run
// for the current coordinates.
func (s *Swarm) CellParticleIndex() [][]int {
	if s.cellIndex != nil {
		return s.cellIndex
	}
	idx := make([][]int, s.mesh.CellCount())
	for i := 0; i < s.st.count; i++ {
		cell := s.st.owningCell.data[i]
		if cell >= 0 && int(cell) < len(idx) {
			idx[cell] = append(idx[cell], i)
		}
	}
	s.cellIndex = idx
	return idx
}

// CoordinateInput exposes the particle coordinates as a lazy row stream,
// for use as the input of an evaluation pipeline. Rows are copies; the
// sequence reflects the store at iteration time and must not be retained
// across structural changes.
func (s *Swarm) CoordinateInput() iter.Seq2[int, []float64] {
	return func(yield func(int, []float64) bool) {
		dim := s.st.dim
		for i := 0; i < s.st.count; i++ {
			row := make([]float64, dim)
			copy(row, s.st.coords.data[i*dim:(i+1)*dim])
			if !yield(i, row) {
				return
			}
		}
	}
}

// RecordLoadMapping stores the local-to-global index map produced by a
// checkpoint load, stamped with the current state version. The map becomes
// invalid as soon as the state version changes again.
func (s *Swarm) RecordLoadMapping(local2global []int64) {
	s.loadMap = append([]int64(nil), local2global...)
	s.loadMapState = s.stateID
}

// Local2Global returns the local-to-global map recorded by the last
// checkpoint load, or ok=false if no load has run or a structural change
// has invalidated the map since.
func (s *Swarm) Local2Global() ([]int64, bool) {
	if s.loadMap == nil || s.loadMapState != s.stateID {
		return nil, false
	}
	return s.loadMap, true
}
