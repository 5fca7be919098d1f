package swarm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Wire encoding for particle transfer during ownership migration. All
// payloads are little-endian. A stray-coordinate block carries only the
// positions needed for the claim phase; a record block carries the full
// particle payload: coordinates followed by every registered user variable
// row, in registration order. Variable registration must therefore be
// symmetric across ranks.

func packStrayCoords(st *store, strays []int) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, uint32(len(strays)))
	for _, i := range strays {
		st.coords.encodeRow(buf, i)
	}
	return buf.Bytes()
}

func unpackStrayCoords(p []byte, dim int) ([][]float64, error) {
	r := bytes.NewReader(p)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("decoding stray block header: %w", err)
	}
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("decoding stray coordinates: %w", err)
		}
		rows[i] = row
	}
	return rows, nil
}

func packRecords(st *store, indices []int) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, uint32(len(indices)))
	for _, i := range indices {
		st.coords.encodeRow(buf, i)
		for _, v := range st.vars {
			v.encodeRow(buf, i)
		}
	}
	return buf.Bytes()
}

// appendRecords decodes a record block and appends every particle to the
// local store, locating each one to establish its owning cell. The sender
// only ships records this rank claimed, so location must succeed.
func (s *Swarm) appendRecords(p []byte) (int, error) {
	r := bytes.NewReader(p)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("decoding record block header: %w", err)
	}
	dim := s.st.dim
	for k := 0; k < int(n); k++ {
		row := make([]float64, dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return 0, fmt.Errorf("decoding migrated coordinates: %w", err)
		}
		cell, ok := s.mesh.Locate(row)
		if !ok {
			return 0, consistencyErrorf(
				"received migrated particle at %v that this rank's partition cannot locate", row)
		}
		s.st.count++
		s.st.coords.data = append(s.st.coords.data, row...)
		s.st.owningCell.data = append(s.st.owningCell.data, int32(cell))
		for _, v := range s.st.vars {
			if err := v.decodeAppendRow(r); err != nil {
				return 0, fmt.Errorf("decoding migrated variable row: %w", err)
			}
		}
	}
	return int(n), nil
}

func bitmapBytes(bits int) []byte {
	return make([]byte, (bits+7)/8)
}

func setBit(bm []byte, i int) {
	bm[i/8] |= 1 << uint(i%8)
}

func hasBit(bm []byte, i int) bool {
	return i/8 < len(bm) && bm[i/8]&(1<<uint(i%8)) != 0
}
