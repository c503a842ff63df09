package objfile

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestELFInitValid(t *testing.T) {
	img := BuildTestELF(TestELFOptions{LoadVaddr: 0x1000})
	obj := NewELF(bytes.NewReader(img))
	obj.Init()
	require.True(t, obj.Valid())
	require.Equal(t, ArchX86_64, obj.Arch())
	require.Equal(t, int64(0x1000), obj.LoadBias())
}

func TestELFInitInvalidRetained(t *testing.T) {
	obj := NewELF(bytes.NewReader([]byte("definitely not an object")))
	obj.Init()
	require.False(t, obj.Valid())
	require.Equal(t, int64(0), obj.LoadBias())
	_, _, ok := obj.ResolveFunctionName(0x1000)
	require.False(t, ok)
	_, err := obj.BuildID()
	require.Error(t, err)

	// Init is sticky; a second call does not re-parse or flip state.
	obj.Init()
	require.False(t, obj.Valid())
}

func TestELFInvalidateIsTerminal(t *testing.T) {
	img := BuildTestELF(TestELFOptions{})
	obj := NewELF(bytes.NewReader(img))
	obj.Init()
	require.True(t, obj.Valid())
	obj.Invalidate()
	require.False(t, obj.Valid())
	obj.Init()
	require.False(t, obj.Valid())
}

func TestELFNilSource(t *testing.T) {
	obj := NewELF(nil)
	obj.Init()
	require.False(t, obj.Valid())
}

func TestELFResolveFunctionName(t *testing.T) {
	img := BuildTestELF(TestELFOptions{
		Type: elf.ET_EXEC,
		Symbols: []TestSym{
			{Name: "iter", Value: 0x1149, Size: 0x15},
			{Name: "main", Value: 0x115e, Size: 0x20},
		},
	})
	obj := NewELF(bytes.NewReader(img))
	obj.Init()
	require.True(t, obj.Valid())

	name, off, ok := obj.ResolveFunctionName(0x1149)
	require.True(t, ok)
	require.Equal(t, "iter", name)
	require.Equal(t, uint64(0), off)

	name, off, ok = obj.ResolveFunctionName(0x1160)
	require.True(t, ok)
	require.Equal(t, "main", name)
	require.Equal(t, uint64(2), off)

	_, _, ok = obj.ResolveFunctionName(0x100)
	require.False(t, ok)

	// Past the end of the last sized symbol.
	_, _, ok = obj.ResolveFunctionName(0x1180)
	require.False(t, ok)
}

func TestELFResolveDemangles(t *testing.T) {
	img := BuildTestELF(TestELFOptions{
		Symbols: []TestSym{
			{Name: "_Z3fooi", Value: 0x2000, Size: 0x10},
		},
	})
	obj := NewELF(bytes.NewReader(img))
	obj.Init()
	name, _, ok := obj.ResolveFunctionName(0x2004)
	require.True(t, ok)
	require.Equal(t, "foo", name)
}
