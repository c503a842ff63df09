package mapinfo

import (
	"strings"

	"github.com/prometheus/procfs"
)

// FromProcMaps builds a snapshot from parsed /proc/<pid>/maps records.
// Regions backed by a device node are flagged so resolution skips
// them; /dev/ashmem regions are ordinary anonymous shared memory and
// stay resolvable.
func FromProcMaps(opts Options, procMaps []*procfs.ProcMap) *Maps {
	s := NewMaps(opts)
	for _, pm := range procMaps {
		m := &Map{
			Start:  uint64(pm.StartAddr),
			End:    uint64(pm.EndAddr),
			Offset: uint64(pm.Offset),
			Flags:  flagsFromPerms(pm.Perms, pm.Pathname),
			Name:   pm.Pathname,
		}
		s.Add(m)
	}
	s.ComputeRealLinks()
	return s
}

func flagsFromPerms(perms *procfs.ProcMapPermissions, pathname string) Flags {
	var f Flags
	if perms != nil {
		if perms.Read {
			f |= FlagRead
		}
		if perms.Write {
			f |= FlagWrite
		}
		if perms.Execute {
			f |= FlagExec
		}
	}
	if strings.HasPrefix(pathname, "/dev/") && !strings.HasPrefix(pathname, "/dev/ashmem") {
		f |= FlagDevice
	}
	return f
}
