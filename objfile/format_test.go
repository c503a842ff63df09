package objfile

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	f := ELFFormat{}
	img := BuildTestELF(TestELFOptions{})
	require.True(t, f.Sniff(bytes.NewReader(img)))
	require.False(t, f.Sniff(bytes.NewReader([]byte("not an elf at all"))))
	require.False(t, f.Sniff(bytes.NewReader(nil)))
}

func TestProbeSize(t *testing.T) {
	f := ELFFormat{}
	img := BuildTestELF(TestELFOptions{
		Symbols: []TestSym{{Name: "main", Value: 0x1000, Size: 0x10}},
	})
	size, ok := f.ProbeSize(bytes.NewReader(img))
	require.True(t, ok)
	require.Equal(t, uint64(len(img)), size)

	// Truncating the image does not change the header-implied size;
	// that is exactly the case where a partially mapped object must be
	// grown before parsing.
	size, ok = f.ProbeSize(bytes.NewReader(img[:128]))
	require.True(t, ok)
	require.Equal(t, uint64(len(img)), size)

	_, ok = f.ProbeSize(bytes.NewReader([]byte("garbage garbage garbage")))
	require.False(t, ok)
}

func TestReadLoadBias(t *testing.T) {
	f := ELFFormat{}
	img := BuildTestELF(TestELFOptions{LoadVaddr: 0x400000})
	bias, ok := f.ReadLoadBias(bytes.NewReader(img))
	require.True(t, ok)
	require.Equal(t, int64(0x400000), bias)

	img = BuildTestELF(TestELFOptions{})
	bias, ok = f.ReadLoadBias(bytes.NewReader(img))
	require.True(t, ok)
	require.Equal(t, int64(0), bias)

	_, ok = f.ReadLoadBias(bytes.NewReader([]byte("garbage garbage garbage")))
	require.False(t, ok)
}

func TestReadBuildID(t *testing.T) {
	f := ELFFormat{}
	img := BuildTestELF(TestELFOptions{
		GNUBuildID: []byte{0x1f, 0xcf, 0xa0, 0x68, 0xc5},
	})
	id, err := f.ReadBuildID(bytes.NewReader(img))
	require.NoError(t, err)
	require.True(t, id.GNU())
	require.Equal(t, []byte{0x1f, 0xcf, 0xa0, 0x68, 0xc5}, id.Raw)

	img = BuildTestELF(TestELFOptions{})
	_, err = f.ReadBuildID(bytes.NewReader(img))
	require.ErrorIs(t, err, ErrNoBuildID)
}

func TestArchFromHeader(t *testing.T) {
	require.Equal(t, ArchX86_64, archFromHeader(elf.ELFCLASS64, elf.EM_X86_64))
	require.Equal(t, ArchX86, archFromHeader(elf.ELFCLASS32, elf.EM_386))
	require.Equal(t, ArchArm64, archFromHeader(elf.ELFCLASS64, elf.EM_AARCH64))
	require.Equal(t, ArchArm, archFromHeader(elf.ELFCLASS32, elf.EM_ARM))
	require.Equal(t, ArchRiscv64, archFromHeader(elf.ELFCLASS64, elf.EM_RISCV))
	require.Equal(t, ArchUnknown, archFromHeader(elf.ELFCLASS64, elf.EM_PPC64))
	require.Equal(t, "x86_64", ArchX86_64.String())
	require.Equal(t, "unknown", ArchUnknown.String())
}
