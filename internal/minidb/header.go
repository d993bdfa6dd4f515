package minidb

// Header is common to both leaf and internal nodes. Node kind and root
// flag each take a whole byte, which wastes a little space but keeps
// the access code trivial.
type Header struct {
	IsInternal bool
	IsRoot     bool
	Parent     uint32
}

func (h *Header) Size() uint64 {
	return 6
}

func (h *Header) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	if h.IsInternal {
		buf[0] = 1
	} else {
		buf[0] = 0
	}

	if h.IsRoot {
		buf[1] = 1
	} else {
		buf[1] = 0
	}

	marshalUint32(buf, h.Parent, 2)

	return buf[:size], nil
}

func (h *Header) Unmarshal(buf []byte) (uint64, error) {
	h.IsInternal = buf[0] == 1
	h.IsRoot = buf[1] == 1
	h.Parent = unmarshalUint32(buf, 2)

	return h.Size(), nil
}
