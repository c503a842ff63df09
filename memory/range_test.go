package memory

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// sliceReader serves a fake address space with data starting at base.
func sliceReader(base uint64, data []byte) FuncReader {
	return func(buf []byte, addr uint64) (int, error) {
		if addr < base || addr >= base+uint64(len(data)) {
			return 0, io.EOF
		}
		n := copy(buf, data[addr-base:])
		if n < len(buf) {
			return n, io.EOF
		}
		return n, nil
	}
}

func TestRangeReadAt(t *testing.T) {
	data := []byte{10, 11, 12, 13, 14, 15, 16, 17}
	r := NewRange(sliceReader(0x1000, data), 0x1002, 4, 0)

	require.Equal(t, uint64(4), r.Size())

	buf := make([]byte, 2)
	n, err := r.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{12, 13}, buf)

	// Reads are clamped to the range even though the backing memory
	// continues past it.
	n, err = r.ReadAt(buf, 3)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 1, n)
	require.Equal(t, []byte{15}, buf[:n])

	_, err = r.ReadAt(buf, 4)
	require.ErrorIs(t, err, io.EOF)
}

func TestRangesComposite(t *testing.T) {
	mem := sliceReader(0x1000, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})

	rs := &Ranges{}
	rs.Insert(NewRange(mem, 0x1008, 8, 0x100))
	rs.Insert(NewRange(mem, 0x1000, 4, 0))

	require.Equal(t, uint64(0x108), rs.Size())

	buf := make([]byte, 2)
	n, err := rs.ReadAt(buf, 1)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{1, 2}, buf)

	n, err = rs.ReadAt(buf, 0x102)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{10, 11}, buf)

	// The gap between the two sub-ranges belongs to the first one and
	// reads past its end.
	_, err = rs.ReadAt(buf, 0x50)
	require.ErrorIs(t, err, io.EOF)

	_, err = rs.ReadAt(buf, -1)
	require.ErrorIs(t, err, io.EOF)
}
