//go:build linux

package memory

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// PidReader reads another process's memory, preferring process_vm_readv
// and falling back to /proc/pid/mem when the syscall is unavailable or
// denied.
type PidReader struct {
	pid          int
	mem          *os.File
	vmReadBroken bool
}

func NewPidReader(pid int) *PidReader {
	return &PidReader{pid: pid}
}

func (p *PidReader) ReadMemory(buf []byte, addr uint64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if !p.vmReadBroken {
		local := unix.Iovec{Base: &buf[0]}
		local.SetLen(len(buf))
		remote := unix.RemoteIovec{Base: uintptr(addr), Len: len(buf)}
		n, err := unix.ProcessVMReadv(p.pid, []unix.Iovec{local}, []unix.RemoteIovec{remote}, 0)
		if err == nil {
			return n, nil
		}
		if err != unix.ENOSYS && err != unix.EPERM {
			return 0, err
		}
		p.vmReadBroken = true
	}
	if p.mem == nil {
		f, err := os.Open(fmt.Sprintf("/proc/%d/mem", p.pid))
		if err != nil {
			return 0, err
		}
		p.mem = f
	}
	return p.mem.ReadAt(buf, int64(addr))
}

func (p *PidReader) Close() error {
	if p.mem == nil {
		return nil
	}
	return p.mem.Close()
}
