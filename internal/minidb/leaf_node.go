package minidb

type LeafNodeHeader struct {
	Header
	Cells uint32
	// NextLeaf links leaves in ascending key order, 0 means this is
	// the rightmost leaf (page 0 is the meta page, never a leaf)
	NextLeaf uint32
}

func (h *LeafNodeHeader) Size() uint64 {
	return h.Header.Size() + 8
}

func (h *LeafNodeHeader) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := h.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	marshalUint32(buf, h.Cells, i)
	i += 4
	marshalUint32(buf, h.NextLeaf, i)

	return buf[:size], nil
}

func (h *LeafNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := h.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	h.Cells = unmarshalUint32(buf, i)
	i += 4
	h.NextLeaf = unmarshalUint32(buf, i)

	return h.Size(), nil
}

// Cell is a key plus a serialized row, both fixed width.
type Cell struct {
	Key   uint64
	Value [RowSize]byte
}

func (c *Cell) Size() uint64 {
	return LeafNodeCellSize
}

func (c *Cell) Marshal(buf []byte) ([]byte, error) {
	size := c.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	marshalUint64(buf, c.Key, 0)
	copy(buf[8:], c.Value[:])

	return buf[:size], nil
}

func (c *Cell) Unmarshal(buf []byte) (uint64, error) {
	c.Key = unmarshalUint64(buf, 0)
	copy(c.Value[:], buf[8:8+RowSize])

	return c.Size(), nil
}

type LeafNode struct {
	Header LeafNodeHeader
	Cells  [LeafNodeMaxCells]Cell
}

func NewLeafNode() *LeafNode {
	return new(LeafNode)
}

func (n *LeafNode) Size() uint64 {
	size := n.Header.Size()
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		size += n.Cells[idx].Size()
	}
	return size
}

func (n *LeafNode) Marshal(buf []byte) ([]byte, error) {
	size := n.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := n.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		cbuf, err := n.Cells[idx].Marshal(buf[i:])
		if err != nil {
			return nil, err
		}
		i += uint64(len(cbuf))
	}

	return buf[:i], nil
}

func (n *LeafNode) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := n.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		ci, err := n.Cells[idx].Unmarshal(buf[i:])
		if err != nil {
			return 0, err
		}
		i += ci
	}

	return i, nil
}

func (n *LeafNode) Keys() []uint64 {
	keys := make([]uint64, 0, n.Header.Cells)
	for idx := uint32(0); idx < n.Header.Cells; idx++ {
		keys = append(keys, n.Cells[idx].Key)
	}
	return keys
}
