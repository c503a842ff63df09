package memory

import "io"

// Source is a read-only byte source an object can be parsed from.
// Logical offset 0 is the first byte of the object, wherever the bytes
// physically live (a file window, live process memory, or a composite
// of both).
type Source interface {
	io.ReaderAt
	Size() uint64
}

// ProcessReader reads bytes from a live process's virtual address
// space. Implementations never write; the memory is externally owned.
type ProcessReader interface {
	ReadMemory(buf []byte, addr uint64) (int, error)
}

// FuncReader adapts a function to ProcessReader.
type FuncReader func(buf []byte, addr uint64) (int, error)

func (f FuncReader) ReadMemory(buf []byte, addr uint64) (int, error) {
	return f(buf, addr)
}
