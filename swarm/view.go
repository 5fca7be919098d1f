package swarm

// FloatView is a borrowed, generation-tagged window onto a FloatVariable.
// A view created before a structural change (particle add/remove, variable
// registration) is stale; access through a stale or released view fails
// with a UsageError instead of touching relocated memory.
type FloatView struct {
	v        *FloatVariable
	gen      uint64
	released bool
}

func (vw *FloatView) check() error {
	if vw.released {
		return usageErrorf("swarm variable view has been released")
	}
	if vw.gen != vw.v.sw.st.generation {
		return usageErrorf("swarm variable view is stale: storage was reallocated by a structural change since the view was taken")
	}
	return nil
}

// Len returns the number of particle rows visible through the view.
func (vw *FloatView) Len() int { return vw.v.sw.st.count }

// At returns component j of particle i.
func (vw *FloatView) At(i, j int) (float64, error) {
	if err := vw.check(); err != nil {
		return 0, err
	}
	if err := vw.v.sw.st.checkIndex(i, vw.v.w, j); err != nil {
		return 0, err
	}
	return vw.v.data[i*vw.v.w+j], nil
}

// Row copies particle i's components into a new slice.
func (vw *FloatView) Row(i int) ([]float64, error) {
	if err := vw.check(); err != nil {
		return nil, err
	}
	if err := vw.v.sw.st.checkIndex(i, vw.v.w, 0); err != nil {
		return nil, err
	}
	out := make([]float64, vw.v.w)
	copy(out, vw.v.data[i*vw.v.w:(i+1)*vw.v.w])
	return out, nil
}

// Set assigns component j of particle i. Writing the coordinate variable is
// only permitted inside an active deform scope.
func (vw *FloatView) Set(i, j int, x float64) error {
	if err := vw.check(); err != nil {
		return err
	}
	if vw.v.coord && !vw.v.sw.deformActive {
		return usageErrorf("cannot modify particle coordinates outside a deform scope; use Swarm.DeformSwarm")
	}
	if err := vw.v.sw.st.checkIndex(i, vw.v.w, j); err != nil {
		return err
	}
	vw.v.data[i*vw.v.w+j] = x
	if vw.v.coord {
		// The owning cell is unknown until the next owner update.
		vw.v.sw.st.owningCell.data[i] = unknownCell
	}
	return nil
}

// SetRow assigns all components of particle i.
func (vw *FloatView) SetRow(i int, row []float64) error {
	if len(row) != vw.v.w {
		return usageErrorf("row must have %d components, got %d", vw.v.w, len(row))
	}
	for j, x := range row {
		if err := vw.Set(i, j, x); err != nil {
			return err
		}
	}
	return nil
}

// Release returns the borrow. The swarm rejects structural changes while
// any view remains unreleased.
func (vw *FloatView) Release() {
	if !vw.released {
		vw.released = true
		vw.v.sw.st.liveViews--
	}
}

// IntView is the IntVariable counterpart of FloatView.
type IntView struct {
	v        *IntVariable
	gen      uint64
	released bool
}

func (vw *IntView) check() error {
	if vw.released {
		return usageErrorf("swarm variable view has been released")
	}
	if vw.gen != vw.v.sw.st.generation {
		return usageErrorf("swarm variable view is stale: storage was reallocated by a structural change since the view was taken")
	}
	return nil
}

// Len returns the number of particle rows visible through the view.
func (vw *IntView) Len() int { return vw.v.sw.st.count }

// At returns component j of particle i.
func (vw *IntView) At(i, j int) (int32, error) {
	if err := vw.check(); err != nil {
		return 0, err
	}
	if err := vw.v.sw.st.checkIndex(i, vw.v.w, j); err != nil {
		return 0, err
	}
	return vw.v.data[i*vw.v.w+j], nil
}

// Set assigns component j of particle i.
func (vw *IntView) Set(i, j int, x int32) error {
	if err := vw.check(); err != nil {
		return err
	}
	if err := vw.v.sw.st.checkIndex(i, vw.v.w, j); err != nil {
		return err
	}
	vw.v.data[i*vw.v.w+j] = x
	return nil
}

// Release returns the borrow.
func (vw *IntView) Release() {
	if !vw.released {
		vw.released = true
		vw.v.sw.st.liveViews--
	}
}
