package memory

import "io"

// Range exposes [addr, addr+length) of a process's memory as an
// io.ReaderAt. The logical offset records where this range begins
// inside a composite span; it is 0 for a standalone range.
type Range struct {
	mem    ProcessReader
	addr   uint64
	length uint64
	offset uint64
}

func NewRange(mem ProcessReader, addr, length, offset uint64) *Range {
	return &Range{mem: mem, addr: addr, length: length, offset: offset}
}

func (r *Range) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || uint64(off) >= r.length {
		return 0, io.EOF
	}
	rest := r.length - uint64(off)
	short := false
	if uint64(len(p)) > rest {
		p = p[:rest]
		short = true
	}
	n, err := r.mem.ReadMemory(p, r.addr+uint64(off))
	if err == nil && (short || n < len(p)) {
		err = io.EOF
	}
	return n, err
}

func (r *Range) Size() uint64 {
	return r.length
}

func (r *Range) Offset() uint64 {
	return r.offset
}
