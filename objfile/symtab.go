package objfile

// function symbols from .symtab and .dynsym, merged and sorted by value

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"sort"

	"github.com/ianlancetaylor/demangle"
	"github.com/ulikunitz/xz"
	"golang.org/x/exp/slices"
)

var errNoSymbols = fmt.Errorf("no symbol sections")

type funcSymbol struct {
	value uint64
	size  uint64
	name  string
}

type symbolTable struct {
	syms []funcSymbol
}

func loadSymbols(r io.ReaderAt, demangleOptions []demangle.Option) (*symbolTable, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	syms := collectFuncSymbols(f)
	if len(syms) == 0 {
		// Stripped binaries sometimes carry an xz-compressed summary
		// table in .gnu_debugdata (MiniDebugInfo).
		inner, innerErr := miniDebugELF(f)
		if innerErr != nil {
			return nil, errNoSymbols
		}
		syms = collectFuncSymbols(inner)
		if len(syms) == 0 {
			return nil, errNoSymbols
		}
	}
	if len(demangleOptions) > 0 {
		for i := range syms {
			syms[i].name = demangle.Filter(syms[i].name, demangleOptions...)
		}
	}
	slices.SortFunc(syms, func(a, b funcSymbol) int {
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		default:
			return 0
		}
	})
	return &symbolTable{syms: syms}, nil
}

func collectFuncSymbols(f *elf.File) []funcSymbol {
	var out []funcSymbol
	add := func(t []elf.Symbol) {
		for _, s := range t {
			if s.Value != 0 && elf.ST_TYPE(s.Info) == elf.STT_FUNC {
				out = append(out, funcSymbol{value: s.Value, size: s.Size, name: s.Name})
			}
		}
	}
	symtab, _ := f.Symbols()
	add(symtab)
	dynsym, _ := f.DynamicSymbols()
	add(dynsym)
	return out
}

func miniDebugELF(f *elf.File) (*elf.File, error) {
	s := f.Section(".gnu_debugdata")
	if s == nil {
		return nil, errNoSymbols
	}
	data, err := s.Data()
	if err != nil {
		return nil, err
	}
	xr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var uncompressed bytes.Buffer
	if _, err := io.Copy(&uncompressed, xr); err != nil {
		return nil, err
	}
	return elf.NewFile(bytes.NewReader(uncompressed.Bytes()))
}

func (t *symbolTable) resolve(addr uint64) (string, uint64, bool) {
	if len(t.syms) == 0 {
		return "", 0, false
	}
	i := sort.Search(len(t.syms), func(i int) bool {
		return addr < t.syms[i].value
	}) - 1
	if i < 0 {
		return "", 0, false
	}
	s := t.syms[i]
	if s.size != 0 && addr >= s.value+s.size {
		return "", 0, false
	}
	return s.name, addr - s.value, true
}
