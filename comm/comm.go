// Package comm provides the message-passing capability used by collective
// swarm operations. One Communicator endpoint belongs to each cooperating
// rank; every collective call must be made by all ranks of the group or the
// callers block forever. There is no cancellation or timeout.
package comm

// Communicator is the capability injected into operations that cross rank
// boundaries: global particle counts, ownership migration and collective
// checkpoint I/O.
//
// Rank-ordered results: slices returned by the gather operations are indexed
// by rank.
type Communicator interface {
	// Rank returns this endpoint's rank, in [0, Size).
	Rank() int
	// Size returns the number of ranks in the group.
	Size() int
	// AllGatherInt gathers one integer from every rank.
	AllGatherInt(v int) []int
	// AllGatherBytes gathers one byte payload from every rank. Payloads may
	// be empty but every rank must participate.
	AllGatherBytes(p []byte) [][]byte
	// Send delivers a point-to-point message to dst. It does not block on
	// the receiver.
	Send(dst int, p []byte)
	// Recv blocks until a message from src arrives.
	Recv(src int) []byte
	// Barrier blocks until every rank has entered it.
	Barrier()
}

// Self is the trivial single-rank Communicator. All collectives complete
// immediately; point-to-point messaging is not meaningful and panics.
type Self struct{}

// Rank returns 0.
func (Self) Rank() int { return 0 }

// Size returns 1.
func (Self) Size() int { return 1 }

// AllGatherInt returns a one-element slice holding v.
func (Self) AllGatherInt(v int) []int { return []int{v} }

// AllGatherBytes returns a one-element slice holding p.
func (Self) AllGatherBytes(p []byte) [][]byte { return [][]byte{p} }

// Send panics: a single-rank group has no peers.
func (Self) Send(dst int, p []byte) {
	panic("comm: Send on single-rank communicator")
}

// Recv panics: a single-rank group has no peers.
func (Self) Recv(src int) []byte {
	panic("comm: Recv on single-rank communicator")
}

// Barrier is a no-op.
func (Self) Barrier() {}
