package swarm

import "sort"

// store is the contiguous particle storage for one rank: the coordinate
// variable, the owning-cell map and all registered user variables, all
// co-indexed by dense local particle indices in [0, count).
type store struct {
	dim   int
	count int

	// generation is bumped on every structural change; outstanding views
	// carry the generation at which they were taken.
	generation uint64
	liveViews  int

	coords     *FloatVariable
	owningCell *IntVariable
	vars       []variable // user variables, registration order
}

// unknownCell marks a particle whose owning cell has not been established
// since its coordinates last changed.
const unknownCell int32 = -1

func (st *store) all(fn func(variable)) {
	fn(st.coords)
	fn(st.owningCell)
	for _, v := range st.vars {
		fn(v)
	}
}

func (st *store) checkIndex(i, w, j int) error {
	if i < 0 || i >= st.count {
		return usageErrorf("particle index %d out of range [0,%d)", i, st.count)
	}
	if j < 0 || j >= w {
		return usageErrorf("component index %d out of range [0,%d)", j, w)
	}
	return nil
}

// checkNoViews rejects structural changes while borrowed views are live.
func (st *store) checkNoViews() error {
	if st.liveViews > 0 {
		return usageErrorf(
			"%d swarm variable view(s) still held: structural changes reallocate "+
				"variable storage, so all views must be released first", st.liveViews)
	}
	return nil
}

// appendRow adds one particle with the given coordinates and owning cell,
// extending every variable by one zero-filled row. Returns the new local
// index. The caller is responsible for bumping the generation once per
// structural operation.
func (st *store) appendRow(pt []float64, cell int32) int {
	idx := st.count
	st.count++
	st.all(func(v variable) { v.growTo(st.count) })
	copy(st.coords.data[idx*st.dim:(idx+1)*st.dim], pt)
	st.owningCell.data[idx] = cell
	return idx
}

// removeRows compacts storage by removing the given local indices. The
// highest live row is swapped into each removed slot, so survivor order is
// implementation-defined but deterministic within a call. The caller bumps
// the generation.
func (st *store) removeRows(indices []int) {
	if len(indices) == 0 {
		return
	}
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, idx := range sorted {
		last := st.count - 1
		if idx != last {
			st.all(func(v variable) { v.copyRow(idx, last) })
		}
		st.count--
	}
	st.all(func(v variable) { v.truncate(st.count) })
}

// shrinkStorage reallocates every variable's backing array to the live row
// count, releasing the slack left behind by removals.
func (st *store) shrinkStorage() {
	st.all(func(v variable) { v.shrink(st.count) })
}
