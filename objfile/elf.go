package objfile

import (
	"debug/elf"
	"io"
	"sync"

	"github.com/ianlancetaylor/demangle"
)

var defaultDemangleOptions = []demangle.Option{demangle.NoParams, demangle.NoTemplateParams}

// ELF implements Object over an arbitrary byte source. The source must
// stay readable for the lifetime of the object; symbol tables are built
// lazily on the first function-name lookup.
type ELF struct {
	r               io.ReaderAt
	demangleOptions []demangle.Option

	mu     sync.Mutex
	inited bool
	valid  bool

	arch     Arch
	loadBias int64
	sections []elf.SectionHeader

	symbols    *symbolTable
	symbolsErr error
}

// NewELF wraps a byte source in an unparsed ELF object. Init must run
// before any queries return meaningful answers.
func NewELF(r io.ReaderAt) Object {
	return &ELF{r: r, demangleOptions: defaultDemangleOptions}
}

func (e *ELF) Init() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inited {
		return
	}
	e.inited = true
	if e.r == nil {
		return
	}
	f, err := elf.NewFile(e.r)
	if err != nil {
		// The parse failure is retained; the object stays invalid and
		// is never re-parsed.
		return
	}
	e.arch = archFromHeader(f.Class, f.Machine)
	e.sections = make([]elf.SectionHeader, 0, len(f.Sections))
	for _, s := range f.Sections {
		e.sections = append(e.sections, s.SectionHeader)
	}
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD && p.Flags&elf.PF_X != 0 {
			e.loadBias = int64(p.Vaddr) - int64(p.Off)
			break
		}
	}
	e.valid = true
}

func (e *ELF) Valid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.valid
}

func (e *ELF) Arch() Arch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arch
}

func (e *ELF) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.valid = false
}

func (e *ELF) LoadBias() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid {
		return 0
	}
	return e.loadBias
}

func (e *ELF) BuildID() (BuildID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid {
		return BuildID{}, ErrNoBuildID
	}
	return buildIDFromSections(e.sections, e.r)
}

func (e *ELF) ResolveFunctionName(addr uint64) (string, uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid {
		return "", 0, false
	}
	if e.symbols == nil && e.symbolsErr == nil {
		e.symbols, e.symbolsErr = loadSymbols(e.r, e.demangleOptions)
	}
	if e.symbolsErr != nil {
		return "", 0, false
	}
	return e.symbols.resolve(addr)
}
