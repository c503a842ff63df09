package memory

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestFileAtOffsetWindow(t *testing.T) {
	path := writeTestFile(t, 256)
	fo, err := OpenFileAtOffset(path, 16, 8)
	require.NoError(t, err)
	defer fo.Close()

	require.Equal(t, uint64(8), fo.Size())

	buf := make([]byte, 4)
	n, err := fo.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{16, 17, 18, 19}, buf)

	n, err = fo.ReadAt(buf, 6)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{22, 23}, buf[:n])

	_, err = fo.ReadAt(buf, 8)
	require.ErrorIs(t, err, io.EOF)
}

func TestFileAtOffsetReinit(t *testing.T) {
	path := writeTestFile(t, 256)
	fo, err := OpenFileAtOffset(path, 16, 8)
	require.NoError(t, err)
	defer fo.Close()

	require.NoError(t, fo.Reinit(0, 0))
	require.Equal(t, uint64(256), fo.Size())

	buf := make([]byte, 2)
	_, err = fo.ReadAt(buf, 254)
	require.NoError(t, err)
	require.Equal(t, []byte{254, 255}, buf)

	// Sizes past the end of the file are clamped, mirroring a probe that
	// reported a larger object than the file holds.
	require.NoError(t, fo.Reinit(250, 100))
	require.Equal(t, uint64(6), fo.Size())
}

func TestFileAtOffsetPastEnd(t *testing.T) {
	path := writeTestFile(t, 64)
	_, err := OpenFileAtOffset(path, 64, 0)
	require.Error(t, err)
	_, err = OpenFileAtOffset(path, 1000, 10)
	require.Error(t, err)
}

func TestFileAtOffsetMissingFile(t *testing.T) {
	_, err := OpenFileAtOffset(filepath.Join(t.TempDir(), "nope"), 0, 0)
	require.Error(t, err)
}
