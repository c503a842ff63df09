package mapinfo

import (
	"fmt"
	"io"
	"math"

	"github.com/go-kit/log/level"

	"github.com/unwindkit/unwindkit/memory"
	"github.com/unwindkit/unwindkit/objfile"
)

// LoadBiasUnset is returned while no object format has been recognized
// for a map; it is distinct from a computed bias of 0.
const LoadBiasUnset int64 = math.MaxInt64

// Object resolves, parses and caches the binary object backing this
// map. The first caller does the work; concurrent callers block on the
// map lock and observe the published result. A failed parse is kept as
// an invalid object so it is never repeated. A nil return means no
// resolution path produced any bytes to parse at all.
func (m *Map) Object() objfile.Object {
	m.mu.Lock()
	obj := m.getOrBuildObjectLocked()
	m.mu.Unlock()
	if obj == nil {
		return nil
	}
	return m.reconcileWithPrev(obj)
}

func (m *Map) getOrBuildObjectLocked() objfile.Object {
	if m.resolved {
		return m.object
	}
	m.resolved = true
	o := &m.maps.opts

	cache := o.Cache
	if m.Name == "" {
		cache = nil
	}
	if cache != nil {
		// The cache lock is held across lookup, build and registration
		// so two maps with the same identity cannot both miss.
		cache.mu.Lock()
		defer cache.mu.Unlock()
		if e, ok := cache.get(m.Name, m.Offset); ok {
			m.adoptCachedLocked(e)
			if o.Metrics != nil {
				o.Metrics.CacheHits.Inc()
			}
			return m.object
		}
	}

	info := m.openSource()

	// The resolved start offset may differ from the map offset (split
	// mappings of one file), so the identity must be re-checked after
	// resolution.
	if cache != nil {
		if e, ok := cache.get(m.Name, info.objectStartOffset); ok {
			if c, isCloser := info.src.(io.Closer); isCloser {
				_ = c.Close()
			}
			m.adoptResolvedLocked(e, info)
			if o.Metrics != nil {
				o.Metrics.CacheHits.Inc()
			}
			return m.object
		}
		if o.Metrics != nil {
			o.Metrics.CacheMisses.Inc()
		}
	}
	if o.Metrics != nil {
		o.Metrics.Resolutions.WithLabelValues(info.outcome).Inc()
	}
	if info.src == nil {
		level.Debug(o.Logger).Log("msg", "no object for map",
			"map", m.Name, "start", fmt.Sprintf("0x%x", m.Start))
		return nil
	}

	m.objectOffset = info.objectOffset
	m.objectStartOffset = info.objectStartOffset
	m.memoryBacked = info.memoryBacked

	obj := o.NewObject(info.src)
	if o.Metrics != nil {
		o.Metrics.Parses.Inc()
	}
	obj.Init()
	if obj.Valid() && o.ExpectedArch != objfile.ArchUnknown && obj.Arch() != o.ExpectedArch {
		level.Debug(o.Logger).Log("msg", "architecture mismatch",
			"map", m.Name, "arch", obj.Arch(), "expected", o.ExpectedArch)
		if o.Metrics != nil {
			o.Metrics.ArchMismatches.Inc()
		}
		obj.Invalidate()
	}
	if !obj.Valid() {
		// Keep the identity of failed parses keyed by the raw map
		// offset so unrelated maps never share a failure entry.
		m.objectStartOffset = m.Offset
	}
	m.object = obj
	if cache != nil {
		cache.add(m.Name, m.objectStartOffset, cacheEntry{
			obj:          obj,
			memoryBacked: m.memoryBacked,
			windowOffset: m.objectOffset != 0,
		})
	}
	return obj
}

// adoptCachedLocked points this map at an object another map registered
// under this map's own file offset. The map lock is held.
func (m *Map) adoptCachedLocked(e cacheEntry) {
	m.object = e.obj
	m.memoryBacked = e.memoryBacked
	m.objectStartOffset = m.Offset
	if e.windowOffset {
		// Whole-file object seen through a window: the object begins at
		// file offset 0, so the map's own offset is the translation.
		m.objectOffset = m.Offset
	} else {
		m.objectOffset = 0
	}
}

// adoptResolvedLocked shares a cached object after this map already ran
// its own byte-source resolution; the address translation comes from
// that resolution, only the parsed object is shared.
func (m *Map) adoptResolvedLocked(e cacheEntry, info sourceInfo) {
	m.object = e.obj
	m.memoryBacked = e.memoryBacked
	m.objectOffset = info.objectOffset
	m.objectStartOffset = info.objectStartOffset
}

// reconcileWithPrev converges a header map and a body map that turned
// out to describe one logical object onto a single shared instance.
// Only one map lock is held at a time here; taking both at once would
// invite an ordering deadlock.
func (m *Map) reconcileWithPrev(obj objfile.Object) objfile.Object {
	if !obj.Valid() {
		return obj
	}
	m.mu.Lock()
	startOffset := m.objectStartOffset
	memoryBacked := m.memoryBacked
	m.mu.Unlock()

	// Only a map whose object begins in the preceding map of the same
	// file reconciles.
	prev := m.PrevRealMap()
	if prev == m || prev == nil || startOffset == m.Offset ||
		prev.Offset != startOffset || prev.Name != m.Name {
		return obj
	}

	prev.mu.Lock()
	if prev.object == nil {
		prev.object = obj
		prev.resolved = true
		prev.memoryBacked = memoryBacked
		prev.mu.Unlock()
		return obj
	}
	shared := prev.object
	prev.mu.Unlock()
	if shared == obj {
		return obj
	}

	// Lost the race: drop the freshly built object and converge on the
	// previous map's instance.
	m.mu.Lock()
	m.object = shared
	m.mu.Unlock()
	return shared
}

// BuildID returns the object's build identifier, computing and
// publishing it at most once. Concurrent first computations may race;
// the first publish wins and losers return the winner's value.
func (m *Map) BuildID() objfile.BuildID {
	if id, ok := m.buildID.Load(); ok {
		return id
	}

	m.mu.Lock()
	obj := m.object
	m.mu.Unlock()

	var id objfile.BuildID
	if obj != nil {
		id, _ = obj.BuildID()
	} else if m.Name != "" {
		// Cheap path: read the note straight from the file without
		// constructing an object. Maps resolvable only from process
		// memory get nothing here.
		src, _, _, err := m.openFileSource()
		if err != nil {
			m.sourceError(err)
		}
		if src != nil {
			id, _ = m.maps.opts.Format.ReadBuildID(src)
			_ = src.Close()
		}
	}
	return m.buildID.Publish(id)
}

// PrintableBuildID renders the build identifier for display; empty
// when there is none.
func (m *Map) PrintableBuildID() string {
	return m.BuildID().Printable()
}

// LoadBias returns the bias applied to raw object-relative addresses
// before symbol lookup, or LoadBiasUnset when the map holds no
// recognizable object. Like BuildID it publishes at most once and
// avoids full object construction when a cheap read suffices.
func (m *Map) LoadBias() int64 {
	if bias, ok := m.loadBias.Load(); ok {
		return bias
	}

	m.mu.Lock()
	obj := m.object
	m.mu.Unlock()
	if obj != nil {
		if obj.Valid() {
			return m.loadBias.Publish(obj.LoadBias())
		}
		return m.loadBias.Publish(0)
	}

	if !m.plausibleObject() {
		return LoadBiasUnset
	}
	info := m.openSource()
	if info.src == nil {
		return LoadBiasUnset
	}
	bias, ok := m.maps.opts.Format.ReadLoadBias(info.src)
	if c, isCloser := info.src.(io.Closer); isCloser {
		_ = c.Close()
	}
	if !ok {
		bias = 0
	}
	return m.loadBias.Publish(bias)
}

// plausibleObject is a cheap header sniff, not a full resolution.
func (m *Map) plausibleObject() bool {
	o := &m.maps.opts
	if m.Flags&FlagDevice != 0 || m.End <= m.Start {
		return false
	}
	if m.Name != "" {
		src, err := memory.OpenFileAtOffset(m.Name, m.Offset, 0)
		if err == nil {
			ok := o.Format.Sniff(src)
			if !ok && m.Offset != 0 && src.Reinit(0, 0) == nil {
				ok = o.Format.Sniff(src)
			}
			_ = src.Close()
			return ok
		}
	}
	if o.Memory != nil {
		return o.Format.Sniff(memory.NewRange(o.Memory, m.Start, m.End-m.Start, 0))
	}
	return false
}

// ResolveFunctionName maps an absolute address inside this map to the
// enclosing function name and the offset into it. It requires a
// previously constructed object and never triggers construction; the
// lock is held only long enough to read the reference, since an object
// is never torn down while its map lives.
func (m *Map) ResolveFunctionName(addr uint64) (string, uint64, bool) {
	m.mu.Lock()
	obj := m.object
	objectOffset := m.objectOffset
	m.mu.Unlock()
	if obj == nil || !m.Contains(addr) {
		return "", 0, false
	}
	rel := addr - m.Start + objectOffset
	return obj.ResolveFunctionName(uint64(int64(rel) + obj.LoadBias()))
}
