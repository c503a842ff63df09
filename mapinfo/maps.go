package mapinfo

import (
	"io"

	"github.com/go-kit/log"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"

	"github.com/unwindkit/unwindkit/memory"
	"github.com/unwindkit/unwindkit/metrics"
	"github.com/unwindkit/unwindkit/objfile"
)

// Options configure how a Maps snapshot resolves objects.
type Options struct {
	// Logger defaults to a nop logger.
	Logger log.Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Cache deduplicates objects across maps that resolve to the same
	// backing identity. It is injected explicitly - typically scoped to
	// one unwinding session - rather than kept as process-wide state.
	// Nil disables deduplication.
	Cache *ObjectCache
	// Format probes byte sources for object headers. Defaults to
	// objfile.ELFFormat.
	Format objfile.Format
	// NewObject constructs an unparsed object from a byte source.
	// Defaults to objfile.NewELF.
	NewObject func(r io.ReaderAt) objfile.Object
	// ExpectedArch invalidates objects built for another architecture.
	// ArchUnknown accepts anything.
	ExpectedArch objfile.Arch
	// Memory enables resolving objects out of live process memory when
	// no usable file exists. Nil disables the memory paths.
	Memory memory.ProcessReader
}

// Maps is one snapshot of a process's address-space layout. Records
// are added in address order by the external map-list collaborator and
// the snapshot is rebuilt wholesale when the layout changes; records
// themselves never move, so prev/next links are plain indices.
type Maps struct {
	opts    Options
	records []*Map
}

func NewMaps(opts Options) *Maps {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Format == nil {
		opts.Format = objfile.ELFFormat{}
	}
	if opts.NewObject == nil {
		opts.NewObject = objfile.NewELF
	}
	return &Maps{opts: opts}
}

// Add appends a record. Call ComputeRealLinks once the snapshot is
// fully populated.
func (s *Maps) Add(m *Map) *Map {
	m.maps = s
	m.prevReal = -1
	m.nextReal = -1
	s.records = append(s.records, m)
	return m
}

func (s *Maps) Len() int {
	return len(s.records)
}

func (s *Maps) At(i int) *Map {
	return s.records[i]
}

// ComputeRealLinks wires every record to its nearest neighbors that
// are not anonymous placeholders.
func (s *Maps) ComputeRealLinks() {
	last := -1
	for i, m := range s.records {
		m.prevReal = last
		if m.isReal() {
			last = i
		}
	}
	next := -1
	for i := len(s.records) - 1; i >= 0; i-- {
		m := s.records[i]
		m.nextReal = next
		if m.isReal() {
			next = i
		}
	}
}

// Find returns the map containing addr, or nil.
func (s *Maps) Find(addr uint64) *Map {
	i, found := slices.BinarySearchFunc(s.records, addr, func(m *Map, pc uint64) int {
		if pc < m.Start {
			return 1
		}
		if pc >= m.End {
			return -1
		}
		return 0
	})
	if !found {
		return nil
	}
	return s.records[i]
}

type MapDebugInfo struct {
	Name         string
	Start        uint64
	End          uint64
	Resolved     bool
	Valid        bool
	MemoryBacked bool
}

func (s *Maps) DebugInfo() []MapDebugInfo {
	return lo.Map(s.records, func(m *Map, _ int) MapDebugInfo {
		m.mu.Lock()
		defer m.mu.Unlock()
		return MapDebugInfo{
			Name:         m.Name,
			Start:        m.Start,
			End:          m.End,
			Resolved:     m.resolved,
			Valid:        m.object != nil && m.object.Valid(),
			MemoryBacked: m.memoryBacked,
		}
	})
}
