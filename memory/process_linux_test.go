//go:build linux

package memory

import (
	"os"
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestPidReaderOwnMemory(t *testing.T) {
	data := []byte("live process memory read")
	p := NewPidReader(os.Getpid())
	defer p.Close()

	buf := make([]byte, len(data))
	n, err := p.ReadMemory(buf, uint64(uintptr(unsafe.Pointer(&data[0]))))
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)
	runtime.KeepAlive(data)
}

func TestPidReaderEmptyRead(t *testing.T) {
	p := NewPidReader(os.Getpid())
	defer p.Close()
	n, err := p.ReadMemory(nil, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
