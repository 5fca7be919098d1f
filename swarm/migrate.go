package swarm

import (
	"time"
)

// OwnerUpdateStats summarizes one completed owner-update cycle on this
// rank.
type OwnerUpdateStats struct {
	Cycle       int64
	LocalBefore int
	LocalAfter  int
	Relocated   int // owning cell updated in place
	Sent        int // migrated to another rank
	Received    int // migrated in from other ranks
	Escaped     int // evicted as outside every partition
	Duration    time.Duration
}

// Recorder receives owner-update statistics, typically for telemetry.
type Recorder interface {
	RecordOwnerUpdate(OwnerUpdateStats)
}

// UpdateParticleOwners re-localizes every particle after a coordinate or
// mesh change. Particles still inside the local partition get their owning
// cell updated in place; particles now inside another rank's partition are
// packed with all their variable values and transferred there; particles
// outside every partition are evicted when particle escape is enabled and
// raise a ConsistencyError otherwise.
//
// This is a collective operation: every rank must call it together. It runs
// automatically at the end of a deform scope and after mesh deformation;
// local indices of surviving particles are not stable across it.
func (s *Swarm) UpdateParticleOwners() error {
	if s.deformActive {
		return usageErrorf("owner update cannot run inside an active deform scope")
	}
	if err := s.st.checkNoViews(); err != nil {
		return err
	}

	start := time.Now()
	stats := OwnerUpdateStats{Cycle: s.cycle, LocalBefore: s.st.count}

	// Phase 1: local re-localization. Unlocatable particles become strays.
	dim := s.st.dim
	var strays []int
	for i := 0; i < s.st.count; i++ {
		row := s.st.coords.data[i*dim : (i+1)*dim]
		cell, ok := s.mesh.Locate(row)
		if ok {
			s.st.owningCell.data[i] = int32(cell)
			stats.Relocated++
		} else {
			s.st.owningCell.data[i] = unknownCell
			strays = append(strays, i)
		}
	}

	// Phase 2: claim. All ranks exchange stray coordinates, then each rank
	// announces which foreign strays its partition contains. Both gathers
	// are matched by every rank even when nothing moved.
	rank, size := s.comm.Rank(), s.comm.Size()
	gathered := s.comm.AllGatherBytes(packStrayCoords(s.st, strays))

	perRank := make([][][]float64, size)
	offsets := make([]int, size)
	total := 0
	for r, p := range gathered {
		rows, err := unpackStrayCoords(p, dim)
		if err != nil {
			return err
		}
		perRank[r] = rows
		offsets[r] = total
		total += len(rows)
	}

	claims := bitmapBytes(total)
	for r, rows := range perRank {
		if r == rank {
			continue
		}
		for k, row := range rows {
			if _, ok := s.mesh.Locate(row); ok {
				setBit(claims, offsets[r]+k)
			}
		}
	}
	allClaims := s.comm.AllGatherBytes(claims)

	// Phase 3: assignment. Each stray goes to the lowest-ranked claimant,
	// computed identically on every rank; unclaimed strays are escapes.
	dest := make([][]int, size)
	escapesGlobal := 0
	for r := range perRank {
		dest[r] = make([]int, len(perRank[r]))
		for k := range perRank[r] {
			d := -1
			for cand := 0; cand < size; cand++ {
				if cand != r && hasBit(allClaims[cand], offsets[r]+k) {
					d = cand
					break
				}
			}
			dest[r][k] = d
			if d == -1 {
				escapesGlobal++
			}
		}
	}

	if escapesGlobal > 0 && !s.particleEscape {
		return consistencyErrorf(
			"%d particle(s) are not contained in any rank's mesh partition and particle escape is disabled; "+
				"the domain is expected to fully cover all particles", escapesGlobal)
	}

	// Phase 4: transfer. One message per destination rank that receives
	// anything from us; receives are matched from the globally known
	// assignment table. Received records append through the store, so
	// pre-transfer local indices stay valid until the removal below.
	byDest := make(map[int][]int)
	var evicted []int
	for k, i := range strays {
		if d := dest[rank][k]; d >= 0 {
			byDest[d] = append(byDest[d], i)
		} else {
			evicted = append(evicted, i)
		}
	}
	for d := 0; d < size; d++ {
		if d == rank {
			continue
		}
		if idx := byDest[d]; len(idx) > 0 {
			s.comm.Send(d, packRecords(s.st, idx))
			stats.Sent += len(idx)
		}
	}
	for r := 0; r < size; r++ {
		if r == rank {
			continue
		}
		incoming := 0
		for k := range perRank[r] {
			if dest[r][k] == rank {
				incoming++
			}
		}
		if incoming == 0 {
			continue
		}
		n, err := s.appendRecords(s.comm.Recv(r))
		if err != nil {
			return err
		}
		stats.Received += n
	}

	// Phase 5: removal. Migrated-out and escaped particles leave the live
	// index range together in one compaction; escapee bookkeeping decides
	// when backing storage is physically shrunk.
	removal := evicted
	for _, idx := range byDest {
		removal = append(removal, idx...)
	}
	s.st.removeRows(removal)
	s.st.generation++
	s.escape.noteEvicted(s.st, len(evicted))
	stats.Escaped = len(evicted)

	s.toggleState()
	s.cycle++
	stats.LocalAfter = s.st.count
	stats.Duration = time.Since(start)

	s.log.Debug("owner update complete",
		"cycle", stats.Cycle,
		"local_before", stats.LocalBefore,
		"local_after", stats.LocalAfter,
		"relocated", stats.Relocated,
		"sent", stats.Sent,
		"received", stats.Received,
		"escaped", stats.Escaped,
		"duration", stats.Duration,
	)
	if s.recorder != nil {
		s.recorder.RecordOwnerUpdate(stats)
	}
	return nil
}
