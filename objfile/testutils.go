package objfile

// Helpers for tests: synthesize small ELF images in memory instead of
// shipping binary testdata.

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

type TestSym struct {
	Name  string
	Value uint64
	Size  uint64
}

type TestELFOptions struct {
	Machine    elf.Machine // default EM_X86_64
	Type       elf.Type    // default ET_DYN
	LoadVaddr  uint64      // vaddr of the executable PT_LOAD at file offset 0
	GNUBuildID []byte
	GoBuildID  string
	Symbols    []TestSym
}

// BuildTestELF renders a minimal but well-formed 64-bit little-endian
// ELF image. With no optional content it consists of just the header
// and one executable PT_LOAD, which is enough for format probes; notes
// and a symbol table are emitted when requested.
func BuildTestELF(opt TestELFOptions) []byte {
	if opt.Machine == 0 {
		opt.Machine = elf.EM_X86_64
	}
	if opt.Type == 0 {
		opt.Type = elf.ET_DYN
	}

	type section struct {
		name    string
		typ     elf.SectionType
		data    []byte
		link    uint32
		info    uint32
		entsize uint64
		nameOff uint32
		off     uint64
	}
	var secs []*section

	if len(opt.GNUBuildID) > 0 {
		secs = append(secs, &section{
			name: ".note.gnu.build-id",
			typ:  elf.SHT_NOTE,
			data: gnuNote(opt.GNUBuildID),
		})
	}
	if opt.GoBuildID != "" {
		secs = append(secs, &section{
			name: ".note.go.buildid",
			typ:  elf.SHT_NOTE,
			data: goNote(opt.GoBuildID),
		})
	}
	if len(opt.Symbols) > 0 {
		strtab := []byte{0}
		symdata := make([]byte, elf.Sym64Size) // null symbol
		for _, s := range opt.Symbols {
			var sym elf.Sym64
			sym.Name = uint32(len(strtab))
			strtab = append(strtab, s.Name...)
			strtab = append(strtab, 0)
			sym.Info = byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_FUNC)
			sym.Shndx = 1
			sym.Value = s.Value
			sym.Size = s.Size
			var buf bytes.Buffer
			_ = binary.Write(&buf, binary.LittleEndian, &sym)
			symdata = append(symdata, buf.Bytes()...)
		}
		symtabIndex := uint32(1 + len(secs))
		secs = append(secs, &section{
			name:    ".symtab",
			typ:     elf.SHT_SYMTAB,
			data:    symdata,
			link:    symtabIndex + 1, // .strtab follows
			info:    1,
			entsize: elf.Sym64Size,
		})
		secs = append(secs, &section{
			name: ".strtab",
			typ:  elf.SHT_STRTAB,
			data: strtab,
		})
	}

	shstrtab := &section{name: ".shstrtab", typ: elf.SHT_STRTAB}
	secs = append(secs, shstrtab)
	names := []byte{0}
	for _, s := range secs {
		s.nameOff = uint32(len(names))
		names = append(names, s.name...)
		names = append(names, 0)
	}
	shstrtab.data = names

	const ehsize = 64
	const phentsize = 56
	const shentsize = 64
	off := uint64(ehsize + phentsize)
	for _, s := range secs {
		off = align8(off)
		s.off = off
		off += uint64(len(s.data))
	}
	shoff := align8(off)
	shnum := uint16(1 + len(secs)) // includes the NULL section

	var out bytes.Buffer
	hdr := elf.Header64{
		Type:      uint16(opt.Type),
		Machine:   uint16(opt.Machine),
		Version:   1,
		Phoff:     ehsize,
		Shoff:     shoff,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     1,
		Shentsize: shentsize,
		Shnum:     shnum,
		Shstrndx:  shnum - 1,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = 1
	_ = binary.Write(&out, binary.LittleEndian, &hdr)

	phdr := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    0,
		Vaddr:  opt.LoadVaddr,
		Paddr:  opt.LoadVaddr,
		Filesz: 0x1000,
		Memsz:  0x1000,
		Align:  0x1000,
	}
	_ = binary.Write(&out, binary.LittleEndian, &phdr)

	for _, s := range secs {
		pad(&out, s.off)
		out.Write(s.data)
	}
	pad(&out, shoff)
	_ = binary.Write(&out, binary.LittleEndian, &elf.Section64{}) // NULL section
	for _, s := range secs {
		sh := elf.Section64{
			Name:    s.nameOff,
			Type:    uint32(s.typ),
			Off:     s.off,
			Size:    uint64(len(s.data)),
			Link:    s.link,
			Info:    s.info,
			Entsize: s.entsize,
		}
		_ = binary.Write(&out, binary.LittleEndian, &sh)
	}
	return out.Bytes()
}

func gnuNote(id []byte) []byte {
	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, uint32(4))       // namesz
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(id))) // descsz
	_ = binary.Write(&out, binary.LittleEndian, uint32(3)) // NT_GNU_BUILD_ID
	out.WriteString("GNU\x00")
	out.Write(id)
	return out.Bytes()
}

func goNote(id string) []byte {
	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, uint32(4))          // namesz
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(id)+1)) // descsz
	_ = binary.Write(&out, binary.LittleEndian, uint32(4))          // NT_GO_BUILD_ID
	out.WriteString("Go\x00\x00")
	out.WriteString(id)
	out.WriteByte(0)
	return out.Bytes()
}

func align8(v uint64) uint64 {
	return (v + 7) &^ 7
}

func pad(b *bytes.Buffer, to uint64) {
	for uint64(b.Len()) < to {
		b.WriteByte(0)
	}
}
