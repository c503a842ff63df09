package objfile

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// BuildID is a format-defined byte sequence identifying a build of an
// object independent of its file path.
type BuildID struct {
	Raw []byte
	Typ string
}

func GNUBuildID(raw []byte) BuildID {
	return BuildID{Raw: raw, Typ: "gnu"}
}

func GoBuildID(raw []byte) BuildID {
	return BuildID{Raw: raw, Typ: "go"}
}

func (b BuildID) Empty() bool {
	return len(b.Raw) == 0 || b.Typ == ""
}

func (b BuildID) GNU() bool {
	return b.Typ == "gnu"
}

// Printable renders the identifier for display: lowercase hex for
// binary GNU ids, the literal string for Go build info.
func (b BuildID) Printable() string {
	if b.Typ == "go" {
		return string(b.Raw)
	}
	return hex.EncodeToString(b.Raw)
}

var ErrNoBuildID = fmt.Errorf("build ID note not found")

func buildIDFromSections(sections []elf.SectionHeader, r io.ReaderAt) (BuildID, error) {
	if s := sectionByName(sections, ".note.gnu.build-id"); s != nil {
		data, err := readSection(r, s)
		if err != nil {
			return BuildID{}, errors.Wrap(err, "reading .note.gnu.build-id")
		}
		if id, err := parseGNUNote(data); err == nil {
			return id, nil
		}
	}
	if s := sectionByName(sections, ".note.go.buildid"); s != nil {
		data, err := readSection(r, s)
		if err != nil {
			return BuildID{}, errors.Wrap(err, "reading .note.go.buildid")
		}
		if id, err := parseGoNote(data); err == nil {
			return id, nil
		}
	}
	return BuildID{}, ErrNoBuildID
}

func parseGNUNote(data []byte) (BuildID, error) {
	if len(data) < 16 {
		return BuildID{}, fmt.Errorf(".note.gnu.build-id is too small")
	}
	namesz := binary.LittleEndian.Uint32(data[0:4])
	descsz := binary.LittleEndian.Uint32(data[4:8])
	// NT_GNU_BUILD_ID notes carry the owner name "GNU\x00".
	if namesz != 4 || !bytes.Equal(data[12:15], []byte("GNU")) {
		return BuildID{}, fmt.Errorf(".note.gnu.build-id is not a GNU build-id")
	}
	desc := data[16:]
	if uint32(len(desc)) < descsz {
		return BuildID{}, fmt.Errorf(".note.gnu.build-id is truncated")
	}
	raw := make([]byte, descsz)
	copy(raw, desc[:descsz])
	return GNUBuildID(raw), nil
}

var goBuildIDSep = []byte("/")

func parseGoNote(data []byte) (BuildID, error) {
	if len(data) < 17 {
		return BuildID{}, fmt.Errorf(".note.go.buildid is too small")
	}
	id := data[16 : len(data)-1]
	if len(id) < 40 || bytes.Count(id, goBuildIDSep) < 2 {
		return BuildID{}, fmt.Errorf("wrong .note.go.buildid")
	}
	raw := make([]byte, len(id))
	copy(raw, id)
	return GoBuildID(raw), nil
}

func sectionByName(sections []elf.SectionHeader, name string) *elf.SectionHeader {
	for i := range sections {
		if sections[i].Name == name {
			return &sections[i]
		}
	}
	return nil
}

func readSection(r io.ReaderAt, s *elf.SectionHeader) ([]byte, error) {
	data := make([]byte, s.Size)
	if _, err := r.ReadAt(data, int64(s.Offset)); err != nil {
		return nil, err
	}
	return data, nil
}
