package memory

import (
	"io"
	"sort"
)

// Ranges chains disjoint Ranges into one logical contiguous span. Each
// inserted range begins at its logical offset. Reads are served by the
// range containing the read offset and never span a boundary; the
// parser does not issue boundary-crossing reads.
type Ranges struct {
	ranges []*Range
}

// Insert adds a range, keeping the chain ordered by logical offset.
func (rs *Ranges) Insert(r *Range) {
	i := sort.Search(len(rs.ranges), func(i int) bool {
		return rs.ranges[i].offset > r.offset
	})
	rs.ranges = append(rs.ranges, nil)
	copy(rs.ranges[i+1:], rs.ranges[i:])
	rs.ranges[i] = r
}

func (rs *Ranges) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.EOF
	}
	// Last range starting at or before off.
	i := sort.Search(len(rs.ranges), func(i int) bool {
		return rs.ranges[i].offset > uint64(off)
	}) - 1
	if i < 0 {
		return 0, io.EOF
	}
	r := rs.ranges[i]
	return r.ReadAt(p, off-int64(r.offset))
}

// Size reports the combined extent of the chain.
func (rs *Ranges) Size() uint64 {
	var size uint64
	for _, r := range rs.ranges {
		if end := r.offset + r.length; end > size {
			size = end
		}
	}
	return size
}
