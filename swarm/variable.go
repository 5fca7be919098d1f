package swarm

import (
	"bytes"
	"encoding/binary"
)

// variable is the store-internal contract shared by all per-particle data
// arrays. Rows are co-indexed with the coordinate variable; every structural
// operation on the store touches all variables together.
type variable interface {
	width() int
	growTo(rows int)
	copyRow(dst, src int)
	truncate(rows int)
	shrink(rows int)
	encodeRow(buf *bytes.Buffer, row int)
	decodeAppendRow(r *bytes.Reader) error
}

// FloatVariable is a per-particle array of float64 components. Access to
// the data goes through borrowed views; see Data.
type FloatVariable struct {
	sw    *Swarm
	w     int
	data  []float64
	coord bool // the distinguished coordinate variable
}

// Width returns the number of components per particle.
func (v *FloatVariable) Width() int { return v.w }

// Data borrows a view of the variable's storage. The view is invalidated by
// any structural change to the swarm and must be released before particles
// can be added or removed.
func (v *FloatVariable) Data() *FloatView {
	v.sw.st.liveViews++
	return &FloatView{v: v, gen: v.sw.st.generation}
}

func (v *FloatVariable) width() int { return v.w }

func (v *FloatVariable) growTo(rows int) {
	need := rows * v.w
	for len(v.data) < need {
		v.data = append(v.data, 0)
	}
}

func (v *FloatVariable) copyRow(dst, src int) {
	copy(v.data[dst*v.w:(dst+1)*v.w], v.data[src*v.w:(src+1)*v.w])
}

func (v *FloatVariable) truncate(rows int) {
	v.data = v.data[:rows*v.w]
}

func (v *FloatVariable) shrink(rows int) {
	v.data = append([]float64(nil), v.data[:rows*v.w]...)
}

func (v *FloatVariable) encodeRow(buf *bytes.Buffer, row int) {
	binary.Write(buf, binary.LittleEndian, v.data[row*v.w:(row+1)*v.w])
}

func (v *FloatVariable) decodeAppendRow(r *bytes.Reader) error {
	row := make([]float64, v.w)
	if err := binary.Read(r, binary.LittleEndian, row); err != nil {
		return err
	}
	v.data = append(v.data, row...)
	return nil
}

// IntVariable is a per-particle array of int32 components.
type IntVariable struct {
	sw   *Swarm
	w    int
	data []int32
}

// Width returns the number of components per particle.
func (v *IntVariable) Width() int { return v.w }

// Data borrows a view of the variable's storage, subject to the same
// invalidation rules as FloatVariable.Data.
func (v *IntVariable) Data() *IntView {
	v.sw.st.liveViews++
	return &IntView{v: v, gen: v.sw.st.generation}
}

func (v *IntVariable) width() int { return v.w }

func (v *IntVariable) growTo(rows int) {
	need := rows * v.w
	for len(v.data) < need {
		v.data = append(v.data, 0)
	}
}

func (v *IntVariable) copyRow(dst, src int) {
	copy(v.data[dst*v.w:(dst+1)*v.w], v.data[src*v.w:(src+1)*v.w])
}

func (v *IntVariable) truncate(rows int) {
	v.data = v.data[:rows*v.w]
}

func (v *IntVariable) shrink(rows int) {
	v.data = append([]int32(nil), v.data[:rows*v.w]...)
}

func (v *IntVariable) encodeRow(buf *bytes.Buffer, row int) {
	binary.Write(buf, binary.LittleEndian, v.data[row*v.w:(row+1)*v.w])
}

func (v *IntVariable) decodeAppendRow(r *bytes.Reader) error {
	row := make([]int32, v.w)
	if err := binary.Read(r, binary.LittleEndian, row); err != nil {
		return err
	}
	v.data = append(v.data, row...)
	return nil
}
