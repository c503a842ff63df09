package mapinfo

import (
	"os"
	"strings"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/unwindkit/unwindkit/memory"
)

// sourceInfo is the outcome of a byte-source resolution: where the
// object's bytes live and how the map relates to the logical object.
type sourceInfo struct {
	src               memory.Source
	objectOffset      uint64
	objectStartOffset uint64
	memoryBacked      bool
	outcome           string
}

// openSource decides where this map's object bytes live: a file, a
// window of a file, live process memory, or memory split across two
// adjacent maps. It reads only the map's immutable geometry and has no
// side effects on map state, so callers may run it with or without the
// map lock held.
func (m *Map) openSource() sourceInfo {
	if m.End <= m.Start {
		return sourceInfo{outcome: "none"}
	}
	if m.Flags&FlagDevice != 0 {
		return sourceInfo{outcome: "none"}
	}

	o := &m.maps.opts
	if m.Name != "" {
		src, objOff, startOff, err := m.openFileSource()
		if err != nil {
			m.sourceError(err)
		}
		if src != nil {
			return sourceInfo{
				src:               src,
				objectOffset:      objOff,
				objectStartOffset: startOff,
				outcome:           "file",
			}
		}
	}

	if o.Memory == nil {
		return sourceInfo{outcome: "none"}
	}

	// A map at file offset 0 whose bytes start with a header may hold
	// only the beginning of the object, with the tail spilling into the
	// following map of the same file.
	rng := memory.NewRange(o.Memory, m.Start, m.End-m.Start, 0)
	if o.Format.Sniff(rng) {
		next := m.NextRealMap()
		if m.Offset != 0 || m.Name == "" || next == nil ||
			next.Offset <= m.Offset || next.Name != m.Name {
			return sourceInfo{
				src:               rng,
				objectStartOffset: m.Offset,
				memoryBacked:      true,
				outcome:           "memory",
			}
		}
		ranges := &memory.Ranges{}
		ranges.Insert(memory.NewRange(o.Memory, m.Start, m.End-m.Start, 0))
		ranges.Insert(memory.NewRange(o.Memory, next.Start, next.End-next.Start, next.Offset))
		return sourceInfo{
			src:               ranges,
			objectStartOffset: m.Offset,
			memoryBacked:      true,
			outcome:           "composite",
		}
	}

	// Mirror case: the object's header lives in the preceding map of
	// the same file and this map is its continuation.
	prev := m.PrevRealMap()
	if m.Offset == 0 || m.Name == "" || prev == nil ||
		prev.Offset >= m.Offset || prev.Name != m.Name {
		return sourceInfo{outcome: "none"}
	}
	objOff := m.Offset - prev.Offset
	ranges := &memory.Ranges{}
	ranges.Insert(memory.NewRange(o.Memory, prev.Start, prev.End-prev.Start, 0))
	ranges.Insert(memory.NewRange(o.Memory, m.Start, m.End-m.Start, objOff))
	return sourceInfo{
		src:               ranges,
		objectOffset:      objOff,
		objectStartOffset: prev.Offset,
		memoryBacked:      true,
		outcome:           "composite",
	}
}

// openFileSource windows the map's backing file around the object. For
// a zero map offset the whole file is the object. A non-zero offset is
// ambiguous: an object embedded at that offset, an object whose header
// lives in the preceding read-only map, or a whole-file object mapped
// through a window whose start must be remembered for later address
// translation.
func (m *Map) openFileSource() (*memory.FileAtOffset, uint64, uint64, error) {
	format := m.maps.opts.Format
	if m.Offset == 0 {
		src, err := memory.OpenFileAtOffset(m.Name, 0, 0)
		if err != nil {
			return nil, 0, 0, err
		}
		return src, 0, 0, nil
	}

	mapSize := m.End - m.Start
	src, err := memory.OpenFileAtOffset(m.Name, m.Offset, mapSize)
	if err != nil {
		return nil, 0, 0, err
	}

	// Embedded object: a recognized header right at the map offset.
	// The dynamic linker maps only the loadable part of a file, so the
	// header routinely announces a larger object than the map covers;
	// grow the window to the announced size when the file allows it.
	if size, ok := format.ProbeSize(src); ok {
		if size > mapSize {
			if err := src.Reinit(m.Offset, size); err == nil {
				return src, 0, m.Offset, nil
			}
			if err := src.Reinit(m.Offset, mapSize); err == nil {
				return src, 0, m.Offset, nil
			}
			_ = src.Close()
			return nil, 0, 0, nil
		}
		return src, 0, m.Offset, nil
	}

	// Whole-file object mapped through a window. When the preceding
	// map is the read-only header of the same file the object starts
	// at its offset, not ours.
	if err := src.Reinit(0, 0); err == nil && format.Sniff(src) {
		startOff := m.Offset
		if prev := m.PrevRealMap(); prev != nil && prev.Offset == 0 &&
			prev.Flags == FlagRead && prev.Name == m.Name {
			startOff = 0
		}
		return src, m.Offset, startOff, nil
	}

	if objOff, startOff, ok := m.reinitFromPrevReadOnly(src); ok {
		return src, objOff, startOff, nil
	}

	// Nothing recognized the bytes; hand back the raw map window and
	// let the parse fail in the usual way.
	if err := src.Reinit(m.Offset, mapSize); err == nil {
		return src, 0, 0, nil
	}
	_ = src.Close()
	return nil, 0, 0, nil
}

// reinitFromPrevReadOnly re-windows src assuming the object's header
// lives in the preceding read-only map of the same file, at a smaller
// offset. The header must announce an object big enough to reach into
// this map.
func (m *Map) reinitFromPrevReadOnly(src *memory.FileAtOffset) (uint64, uint64, bool) {
	prev := m.PrevRealMap()
	if prev == nil || prev.Flags != FlagRead || prev.Name != m.Name ||
		prev.Offset >= m.Offset {
		return 0, 0, false
	}
	spanSize := m.End - prev.End
	if err := src.Reinit(prev.Offset, spanSize); err != nil {
		return 0, 0, false
	}
	size, ok := m.maps.opts.Format.ProbeSize(src)
	if !ok || size < spanSize {
		return 0, 0, false
	}
	if err := src.Reinit(prev.Offset, size); err != nil {
		return 0, 0, false
	}
	return m.Offset - prev.Offset, prev.Offset, true
}

func (m *Map) sourceError(err error) {
	o := &m.maps.opts
	level.Debug(o.Logger).Log("msg", "byte source init failed", "map", m.Name, "err", err)
	if o.Metrics != nil {
		o.Metrics.Errors.WithLabelValues(errorType(err)).Inc()
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "not_exist"
	case errors.Is(err, os.ErrPermission):
		return "permission"
	case errors.Is(err, syscall.ENOENT):
		return "not_exist"
	case strings.Contains(err.Error(), "past end"):
		return "offset"
	default:
		return "other"
	}
}
