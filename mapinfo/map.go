// Package mapinfo resolves the binary object backing each region of a
// process's address space, so that a stack unwinder can translate
// addresses into symbol names. Maps are discovered externally and
// handed in as an ordered snapshot; this package decides where an
// object's bytes actually live (a file, a window of a file, live
// process memory, or memory split across two adjacent maps), parses
// them once and caches the result.
package mapinfo

import (
	"sync"

	"github.com/unwindkit/unwindkit/lazy"
	"github.com/unwindkit/unwindkit/objfile"
)

// Flags describe a map's permissions and backing.
type Flags uint8

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagExec
	// FlagDevice marks a region backed by a device; such maps never
	// resolve to an object.
	FlagDevice
)

// Map is one contiguous region of a process's virtual address space.
// Geometry (Start, End, Offset, Flags, Name) is set before the map is
// added to a Maps snapshot and immutable afterwards; the derived state
// populates lazily on first access and is set at most once.
type Map struct {
	Start  uint64
	End    uint64
	Offset uint64
	Flags  Flags
	Name   string

	maps     *Maps
	prevReal int
	nextReal int

	mu       sync.Mutex
	resolved bool
	object   objfile.Object
	// memoryBacked marks an object parsed out of live process memory
	// rather than a file.
	memoryBacked bool
	// objectOffset is subtracted from this map's file offset to get
	// the offset within the logical object.
	objectOffset uint64
	// objectStartOffset is the file offset at which the logical object
	// begins.
	objectStartOffset uint64

	buildID  lazy.Value[objfile.BuildID]
	loadBias lazy.Value[int64]
}

// PrevRealMap returns the nearest preceding map that is not an
// anonymous placeholder, if any.
func (m *Map) PrevRealMap() *Map {
	if m.maps == nil || m.prevReal < 0 {
		return nil
	}
	return m.maps.records[m.prevReal]
}

// NextRealMap returns the nearest following map that is not an
// anonymous placeholder, if any.
func (m *Map) NextRealMap() *Map {
	if m.maps == nil || m.nextReal < 0 {
		return nil
	}
	return m.maps.records[m.nextReal]
}

func (m *Map) Contains(addr uint64) bool {
	return addr >= m.Start && addr < m.End
}

// ObjectOffset is the offset of this map within its logical object.
// Meaningful once the object has been resolved.
func (m *Map) ObjectOffset() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objectOffset
}

// ObjectStartOffset is the file offset at which the logical object
// begins. Meaningful once the object has been resolved.
func (m *Map) ObjectStartOffset() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objectStartOffset
}

// MemoryBacked reports whether the resolved object's bytes came from
// live process memory rather than a file.
func (m *Map) MemoryBacked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.memoryBacked
}

// isReal reports whether this map can back an object, as opposed to a
// purely anonymous placeholder region.
func (m *Map) isReal() bool {
	return m.End > m.Start && (m.Name != "" || m.Offset != 0 || m.Flags != 0)
}
