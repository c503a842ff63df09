// Package objfile parses binary objects (executables, shared
// libraries) out of read-only byte sources and answers the queries a
// stack unwinder needs: validity, architecture, build identifier, load
// bias and function names.
package objfile

import (
	"debug/elf"
	"io"
)

// Arch identifies the machine architecture an object was built for.
type Arch uint8

const (
	ArchUnknown Arch = iota
	ArchX86
	ArchX86_64
	ArchArm
	ArchArm64
	ArchRiscv64
)

func (a Arch) String() string {
	switch a {
	case ArchX86:
		return "x86"
	case ArchX86_64:
		return "x86_64"
	case ArchArm:
		return "arm"
	case ArchArm64:
		return "arm64"
	case ArchRiscv64:
		return "riscv64"
	default:
		return "unknown"
	}
}

func archFromHeader(class elf.Class, machine elf.Machine) Arch {
	switch machine {
	case elf.EM_386:
		return ArchX86
	case elf.EM_X86_64:
		return ArchX86_64
	case elf.EM_ARM:
		return ArchArm
	case elf.EM_AARCH64:
		return ArchArm64
	case elf.EM_RISCV:
		if class == elf.ELFCLASS64 {
			return ArchRiscv64
		}
		return ArchUnknown
	default:
		return ArchUnknown
	}
}

// Object is a parsed binary image. A failed parse is retained in an
// invalid state so callers never pay for the same parse twice; Valid
// reports false for it and every query degrades to an empty answer.
type Object interface {
	// Init parses the byte source. It runs at most once; repeated calls
	// are no-ops.
	Init()
	Valid() bool
	Arch() Arch
	// Invalidate forces the object invalid, e.g. on an architecture
	// mismatch. It never reverts.
	Invalidate()
	// LoadBias is the difference between link-time and file-offset
	// address spaces of the executable segment.
	LoadBias() int64
	BuildID() (BuildID, error)
	// ResolveFunctionName maps a link-time virtual address to the
	// enclosing function and the offset into it.
	ResolveFunctionName(addr uint64) (string, uint64, bool)
}

// Format is the lightweight probe capability resolution heuristics use
// before any full parse happens.
type Format interface {
	// Sniff reports whether r plausibly starts with an object header.
	Sniff(r io.ReaderAt) bool
	// ProbeSize reports whether r starts with a valid object header
	// and, if so, the full object size the header implies. The size may
	// exceed the readable range when only part of the object is mapped.
	ProbeSize(r io.ReaderAt) (uint64, bool)
	// ReadLoadBias extracts the load bias without retaining a parse.
	ReadLoadBias(r io.ReaderAt) (int64, bool)
	// ReadBuildID extracts the build identifier without retaining a
	// parse.
	ReadBuildID(r io.ReaderAt) (BuildID, error)
}
