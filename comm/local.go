package comm

import "sync"

// Group is an in-process rank group. Each rank runs as its own goroutine
// holding one *Endpoint; collectives synchronize through a shared hub. It
// exists to run multi-rank swarm logic inside a single process, primarily
// for tests and single-machine runs.
type Group struct {
	n       int
	ints    *gatherHub[int]
	bytes   *gatherHub[[]byte]
	barrier *gatherHub[struct{}]
	mail    [][]chan []byte // mail[src][dst]
}

// NewGroup creates an in-process group of n ranks and returns one endpoint
// per rank. Every endpoint must be driven by its own goroutine for the
// collectives to complete.
func NewGroup(n int) []*Endpoint {
	if n < 1 {
		panic("comm: group size must be at least 1")
	}
	g := &Group{
		n:       n,
		ints:    newGatherHub[int](n),
		bytes:   newGatherHub[[]byte](n),
		barrier: newGatherHub[struct{}](n),
		mail:    make([][]chan []byte, n),
	}
	for src := range g.mail {
		g.mail[src] = make([]chan []byte, n)
		for dst := range g.mail[src] {
			g.mail[src][dst] = make(chan []byte, 64)
		}
	}
	eps := make([]*Endpoint, n)
	for i := range eps {
		eps[i] = &Endpoint{group: g, rank: i}
	}
	return eps
}

// Endpoint is one rank's view of an in-process Group.
type Endpoint struct {
	group *Group
	rank  int
}

// Rank returns this endpoint's rank.
func (e *Endpoint) Rank() int { return e.rank }

// Size returns the group size.
func (e *Endpoint) Size() int { return e.group.n }

// AllGatherInt gathers one integer from every rank.
func (e *Endpoint) AllGatherInt(v int) []int {
	return e.group.ints.gather(e.rank, v)
}

// AllGatherBytes gathers one byte payload from every rank.
func (e *Endpoint) AllGatherBytes(p []byte) [][]byte {
	return e.group.bytes.gather(e.rank, p)
}

// Send delivers p to dst's mailbox without blocking on the receiver.
func (e *Endpoint) Send(dst int, p []byte) {
	e.group.mail[e.rank][dst] <- p
}

// Recv blocks until a message from src arrives.
func (e *Endpoint) Recv(src int) []byte {
	return <-e.group.mail[src][e.rank]
}

// Barrier blocks until all ranks have entered it.
func (e *Endpoint) Barrier() {
	e.group.barrier.gather(e.rank, struct{}{})
}

// gatherHub implements a reusable all-gather rendezvous. The last rank to
// arrive closes the round; earlier arrivals block until then. Rounds are
// strictly ordered, which matches the SPMD discipline of one collective at
// a time per group.
type gatherHub[T any] struct {
	mu  sync.Mutex
	n   int
	cur *gatherRound[T]
}

type gatherRound[T any] struct {
	slots   []T
	arrived int
	done    chan struct{}
}

func newGatherHub[T any](n int) *gatherHub[T] {
	return &gatherHub[T]{n: n}
}

func (h *gatherHub[T]) gather(rank int, v T) []T {
	h.mu.Lock()
	if h.cur == nil {
		h.cur = &gatherRound[T]{
			slots: make([]T, h.n),
			done:  make(chan struct{}),
		}
	}
	r := h.cur
	r.slots[rank] = v
	r.arrived++
	if r.arrived == h.n {
		// Round complete; detach it so the next collective starts fresh.
		h.cur = nil
		close(r.done)
	}
	h.mu.Unlock()
	<-r.done
	return r.slots
}
