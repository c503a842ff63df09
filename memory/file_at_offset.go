package memory

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// FileAtOffset is a read-only window into a file, beginning at a fixed
// file offset. Resolution heuristics re-window the same handle to probe
// a candidate range and then re-map it with a corrected size.
type FileAtOffset struct {
	f      *os.File
	path   string
	offset int64
	size   int64
}

// OpenFileAtOffset opens path and windows it to [offset, offset+size).
// A zero size extends the window to the end of the file. The returned
// source owns the file handle; Close releases it.
func OpenFileAtOffset(path string, offset, size uint64) (*FileAtOffset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	fo := &FileAtOffset{f: f, path: path}
	if err := fo.Reinit(offset, size); err != nil {
		_ = f.Close()
		return nil, err
	}
	return fo, nil
}

// Reinit moves the window without reopening the file. A zero size, or a
// size reaching past the end of the file, extends the window to the end
// of the file.
func (fo *FileAtOffset) Reinit(offset, size uint64) error {
	st, err := fo.f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", fo.path)
	}
	fileSize := uint64(st.Size())
	if offset >= fileSize {
		return errors.Errorf("offset 0x%x past end of %s", offset, fo.path)
	}
	if size == 0 || size > fileSize-offset {
		size = fileSize - offset
	}
	fo.offset = int64(offset)
	fo.size = int64(size)
	return nil
}

func (fo *FileAtOffset) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= fo.size {
		return 0, io.EOF
	}
	if rest := fo.size - off; int64(len(p)) > rest {
		n, err := fo.f.ReadAt(p[:rest], fo.offset+off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return fo.f.ReadAt(p, fo.offset+off)
}

func (fo *FileAtOffset) Size() uint64 {
	return uint64(fo.size)
}

func (fo *FileAtOffset) Offset() uint64 {
	return uint64(fo.offset)
}

func (fo *FileAtOffset) Path() string {
	return fo.path
}

func (fo *FileAtOffset) Close() error {
	return fo.f.Close()
}
