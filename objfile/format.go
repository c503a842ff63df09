package objfile

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"io"
)

// ELFFormat is the Format capability backed by debug/elf.
type ELFFormat struct{}

var elfMagic = []byte(elf.ELFMAG)

func (ELFFormat) Sniff(r io.ReaderAt) bool {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return false
	}
	return bytes.Equal(magic[:], elfMagic)
}

// ProbeSize reports the file extent implied by the header tables. The
// dynamic linker maps only the loadable part of a file, so the reported
// size routinely exceeds the readable range; the caller re-windows its
// source to this size before parsing.
func (f ELFFormat) ProbeSize(r io.ReaderAt) (uint64, bool) {
	var ident [elf.EI_NIDENT]byte
	if _, err := r.ReadAt(ident[:], 0); err != nil {
		return 0, false
	}
	if !bytes.Equal(ident[:4], elfMagic) {
		return 0, false
	}
	var bo binary.ByteOrder
	switch elf.Data(ident[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		bo = binary.LittleEndian
	case elf.ELFDATA2MSB:
		bo = binary.BigEndian
	default:
		return 0, false
	}
	switch elf.Class(ident[elf.EI_CLASS]) {
	case elf.ELFCLASS32:
		var hdr elf.Header32
		if err := binary.Read(io.NewSectionReader(r, 0, int64(binary.Size(&hdr))), bo, &hdr); err != nil {
			return 0, false
		}
		return maxExtent(
			uint64(hdr.Shoff), uint64(hdr.Shnum), uint64(hdr.Shentsize),
			uint64(hdr.Phoff), uint64(hdr.Phnum), uint64(hdr.Phentsize),
		), true
	case elf.ELFCLASS64:
		var hdr elf.Header64
		if err := binary.Read(io.NewSectionReader(r, 0, int64(binary.Size(&hdr))), bo, &hdr); err != nil {
			return 0, false
		}
		return maxExtent(
			hdr.Shoff, uint64(hdr.Shnum), uint64(hdr.Shentsize),
			hdr.Phoff, uint64(hdr.Phnum), uint64(hdr.Phentsize),
		), true
	default:
		return 0, false
	}
}

func maxExtent(shoff, shnum, shentsize, phoff, phnum, phentsize uint64) uint64 {
	var size uint64
	if shnum > 0 {
		size = shoff + shnum*shentsize
	}
	if phnum > 0 {
		if end := phoff + phnum*phentsize; end > size {
			size = end
		}
	}
	return size
}

func (ELFFormat) ReadLoadBias(r io.ReaderAt) (int64, bool) {
	f, err := elf.NewFile(r)
	if err != nil {
		return 0, false
	}
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD && p.Flags&elf.PF_X != 0 {
			return int64(p.Vaddr) - int64(p.Off), true
		}
	}
	return 0, true
}

func (ELFFormat) ReadBuildID(r io.ReaderAt) (BuildID, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return BuildID{}, err
	}
	sections := make([]elf.SectionHeader, 0, len(f.Sections))
	for _, s := range f.Sections {
		sections = append(sections, s.SectionHeader)
	}
	return buildIDFromSections(sections, r)
}
