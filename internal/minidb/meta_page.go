package minidb

import (
	"fmt"
)

// Page 0 never holds tree data. It stores the file magic, the format
// version and the page number of the current root so a reopened
// database can locate the tree without assumptions about its shape.
const (
	MetaPageIdx = uint32(0)

	metaMagic         = uint32(0x4d444231) // "MDB1"
	metaFormatVersion = uint16(1)
)

type MetaPage struct {
	Magic    uint32
	Version  uint16
	RootPage uint32
}

func NewMetaPage() MetaPage {
	return MetaPage{
		Magic:   metaMagic,
		Version: metaFormatVersion,
	}
}

func (m *MetaPage) Size() uint64 {
	return 10
}

func (m *MetaPage) Marshal(buf []byte) ([]byte, error) {
	size := m.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	marshalUint32(buf, m.Magic, 0)
	marshalUint16(buf, m.Version, 4)
	marshalUint32(buf, m.RootPage, 6)

	return buf[:size], nil
}

func (m *MetaPage) Unmarshal(buf []byte) (uint64, error) {
	m.Magic = unmarshalUint32(buf, 0)
	m.Version = unmarshalUint16(buf, 4)
	m.RootPage = unmarshalUint32(buf, 6)

	if m.Magic != metaMagic {
		return 0, fmt.Errorf("unrecognised file magic %#x", m.Magic)
	}
	if m.Version != metaFormatVersion {
		return 0, fmt.Errorf("unsupported format version %d", m.Version)
	}

	return m.Size(), nil
}
