// Package checkpoint implements collective, chunked save and restore of
// particle coordinate data. A checkpoint is a single array file holding one
// dataset of shape (globalParticleCount, dim): a contiguous block of
// float64 rows in rank order, preceded by a small fixed header.
package checkpoint

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// DatasetName is the conventional name of the coordinate dataset.
const DatasetName = "data"

/*
The on-disk layout is:

	|-- 1 --||-- 2 --||-- ... 3 ... --||-- ...... 4 ...... --|

	1 - (int32) Endianness flag: 0 for little endian, -1 for big endian.
	2 - (int32) Size of the file header, checked for consistency.
	3 - (fileHeader) Dataset name, row and column counts, element size.
	4 - ([]float64) Contiguous row-major block of coordinate rows.
*/
type fileHeader struct {
	Name     [16]byte
	Rows     int64
	Cols     int64
	ElemSize int32
	Pad      int32
}

const (
	littleEndianFlag int32 = 0
	bigEndianFlag    int32 = -1
)

func headerSize() int32 {
	return int32(binary.Size(fileHeader{}))
}

func dataOffset() int64 {
	return int64(4 + 4 + headerSize())
}

// IOError indicates a failure against the checkpoint file itself: a missing
// dataset, a malformed header, or mismatched collective participation.
type IOError struct {
	msg string
	err error
}

func (e *IOError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *IOError) Unwrap() error { return e.err }

func ioErrorf(err error, format string, args ...any) error {
	return &IOError{msg: fmt.Sprintf(format, args...), err: err}
}

func byteOrder(flag int32) (binary.ByteOrder, error) {
	switch flag {
	case littleEndianFlag:
		return binary.LittleEndian, nil
	case bigEndianFlag:
		return binary.BigEndian, nil
	default:
		return nil, ioErrorf(nil, "unrecognized endianness flag %d", flag)
	}
}

// Header describes a checkpoint file's dataset.
type Header struct {
	Dataset  string
	Rows     int64
	Cols     int
	ElemSize int
}

// Reader reads coordinate rows from a checkpoint file.
type Reader struct {
	f     *os.File
	order binary.ByteOrder
	hdr   Header
}

// OpenReader opens a checkpoint file and validates its header.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErrorf(err, "opening checkpoint %q", path)
	}

	var flag, size int32
	// The flag read is order-independent: both values are symmetric.
	if err := binary.Read(f, binary.LittleEndian, &flag); err != nil {
		f.Close()
		return nil, ioErrorf(err, "reading endianness flag from %q", path)
	}
	order, err := byteOrder(flag)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := binary.Read(f, order, &size); err != nil {
		f.Close()
		return nil, ioErrorf(err, "reading header size from %q", path)
	}
	if size != headerSize() {
		f.Close()
		return nil, ioErrorf(nil, "checkpoint %q has header size %d, expected %d", path, size, headerSize())
	}

	var hdr fileHeader
	if err := binary.Read(f, order, &hdr); err != nil {
		f.Close()
		return nil, ioErrorf(err, "reading header from %q", path)
	}
	name := trimName(hdr.Name)
	if hdr.Rows < 0 || hdr.Cols < 1 || hdr.ElemSize != 8 {
		f.Close()
		return nil, ioErrorf(nil, "checkpoint %q has malformed header (rows=%d cols=%d elem=%d)",
			path, hdr.Rows, hdr.Cols, hdr.ElemSize)
	}

	return &Reader{
		f:     f,
		order: order,
		hdr: Header{
			Dataset:  name,
			Rows:     hdr.Rows,
			Cols:     int(hdr.Cols),
			ElemSize: int(hdr.ElemSize),
		},
	}, nil
}

// Header returns the dataset description.
func (r *Reader) Header() Header { return r.hdr }

// ReadRows reads n rows starting at row start. A short tail is an error;
// callers are expected to respect the header's row count.
func (r *Reader) ReadRows(start, n int64) ([][]float64, error) {
	if start < 0 || n < 0 || start+n > r.hdr.Rows {
		return nil, ioErrorf(nil, "row range [%d,%d) outside dataset of %d rows", start, start+n, r.hdr.Rows)
	}
	offset := dataOffset() + start*int64(r.hdr.Cols)*8
	if _, err := r.f.Seek(offset, io.SeekStart); err != nil {
		return nil, ioErrorf(err, "seeking to row %d", start)
	}
	flat := make([]float64, n*int64(r.hdr.Cols))
	if err := binary.Read(r.f, r.order, flat); err != nil {
		return nil, ioErrorf(err, "reading %d rows at row %d", n, start)
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = flat[i*r.hdr.Cols : (i+1)*r.hdr.Cols]
	}
	return rows, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

func trimName(b [16]byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

func writeHeader(f *os.File, rows, cols int64) error {
	var hdr fileHeader
	copy(hdr.Name[:], DatasetName)
	hdr.Rows = rows
	hdr.Cols = cols
	hdr.ElemSize = 8

	if err := binary.Write(f, binary.LittleEndian, littleEndianFlag); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, headerSize()); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, hdr)
}
