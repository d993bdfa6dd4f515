package minidb

import (
	"fmt"
)

type InternalNodeHeader struct {
	Header
	KeysNum    uint32
	RightChild uint32
}

func (h *InternalNodeHeader) Size() uint64 {
	return h.Header.Size() + 8
}

func (h *InternalNodeHeader) Marshal(buf []byte) ([]byte, error) {
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

	marshalUint32(buf, h.KeysNum, i)
	i += 4
	marshalUint32(buf, h.RightChild, i)

	return buf[:size], nil
}

func (h *InternalNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := h.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	h.KeysNum = unmarshalUint32(buf, i)
	i += 4
	h.RightChild = unmarshalUint32(buf, i)

	return h.Size(), nil
}

// ICell pairs the max key of a subtree with the page number of its root.
type ICell struct {
	Key   uint64
	Child uint32
}

const ICellSize = 12 // (8+4)

func (c *ICell) Size() uint64 {
	return ICellSize
}

func (c *ICell) Marshal(buf []byte) ([]byte, error) {
	size := c.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	marshalUint64(buf, c.Key, 0)
	marshalUint32(buf, c.Child, 8)

	return buf[:size], nil
}

func (c *ICell) Unmarshal(buf []byte) (uint64, error) {
	c.Key = unmarshalUint64(buf, 0)
	c.Child = unmarshalUint32(buf, 8)

	return c.Size(), nil
}

type InternalNode struct {
	Header InternalNodeHeader
	ICells [InternalNodeMaxCells]ICell
}

func NewInternalNode() *InternalNode {
	aNode := new(InternalNode)
	aNode.Header.IsInternal = true
	aNode.Header.RightChild = rightChildNotSet
	return aNode
}

func (n *InternalNode) Size() uint64 {
	return n.Header.Size() + uint64(n.Header.KeysNum)*ICellSize
}

func (n *InternalNode) Marshal(buf []byte) ([]byte, error) {
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

	for idx := uint32(0); idx < n.Header.KeysNum; idx++ {
		cbuf, err := n.ICells[idx].Marshal(buf[i:])
		if err != nil {
			return nil, err
		}
		i += uint64(len(cbuf))
	}

	return buf[:i], nil
}

func (n *InternalNode) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := n.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	for idx := uint32(0); idx < n.Header.KeysNum; idx++ {
		ci, err := n.ICells[idx].Unmarshal(buf[i:])
		if err != nil {
			return 0, err
		}
		i += ci
	}

	return i, nil
}

// IndexOfChild returns the index of the child which should contain the given
// key. For example, if the node has 2 keys, this could return 0 for the
// leftmost child, 1 for the middle child or 2 for the rightmost child.
// The returned value is not a page number!
func (n *InternalNode) IndexOfChild(key uint64) uint32 {
	var (
		minIdx = uint32(0)
		maxIdx = n.Header.KeysNum
	)
	for minIdx != maxIdx {
		idx := (minIdx + maxIdx) / 2
		rightKey := n.ICells[idx].Key
		if rightKey >= key {
			maxIdx = idx
		} else {
			minIdx = idx + 1
		}
	}

	return minIdx
}

// Child returns the page number of the nth child (0 for the leftmost child,
// index equal to number of keys means the rightmost child).
func (n *InternalNode) Child(childIdx uint32) (uint32, error) {
	keysNum := n.Header.KeysNum
	if childIdx > keysNum {
		return 0, fmt.Errorf("childIdx %d out of keysNum %d", childIdx, keysNum)
	}

	if childIdx == keysNum {
		return n.Header.RightChild, nil
	}

	return n.ICells[childIdx].Child, nil
}

func (n *InternalNode) SetChild(childIdx, pageIdx uint32) error {
	keysNum := n.Header.KeysNum
	if childIdx > keysNum {
		return fmt.Errorf("childIdx %d out of keysNum %d", childIdx, keysNum)
	}

	if childIdx == keysNum {
		n.Header.RightChild = pageIdx
		return nil
	}

	n.ICells[childIdx].Child = pageIdx
	return nil
}

func (n *InternalNode) RemoveLastCell() {
	n.ICells[n.Header.KeysNum-1] = ICell{}
	n.Header.KeysNum -= 1
}

func (n *InternalNode) Keys() []uint64 {
	keys := make([]uint64, 0, n.Header.KeysNum)
	for idx := uint32(0); idx < n.Header.KeysNum; idx++ {
		keys = append(keys, n.ICells[idx].Key)
	}
	return keys
}

func (n *InternalNode) Children() []uint32 {
	children := make([]uint32, 0, n.Header.KeysNum+1)
	for idx := uint32(0); idx < n.Header.KeysNum; idx++ {
		children = append(children, n.ICells[idx].Child)
	}
	if n.Header.RightChild != rightChildNotSet {
		children = append(children, n.Header.RightChild)
	}
	return children
}
