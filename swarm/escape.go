package swarm

// escapeRoutine amortizes the cost of evicting escaped particles. Removal
// from the live index range happens immediately during the owner update;
// what is deferred is the physical reallocation of backing storage, which
// only runs once the accumulated eviction count reaches the backlog
// threshold.
type escapeRoutine struct {
	backlog int
	pending int // evictions since the last storage shrink
}

func (e *escapeRoutine) noteEvicted(st *store, n int) {
	if n == 0 {
		return
	}
	e.pending += n
	if e.pending >= e.backlog {
		st.shrinkStorage()
		e.pending = 0
	}
}
