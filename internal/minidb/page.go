package minidb

// Page is a fixed size block of the database file, either a leaf or an
// internal node of the tree. Exactly one of the two node pointers is set.
type Page struct {
	Index        uint32
	InternalNode *InternalNode
	LeafNode     *LeafNode
}

func (p *Page) GetMaxKey() (uint64, bool) {
	if p.InternalNode != nil {
		return p.InternalNode.ICells[p.InternalNode.Header.KeysNum-1].Key, true
	}

	// Root leaf node, no keys yet
	if p.LeafNode.Header.Cells == 0 {
		return 0, false
	}

	return p.LeafNode.Cells[p.LeafNode.Header.Cells-1].Key, true
}

func (p *Page) setParent(parentIdx uint32) {
	if p.LeafNode != nil {
		p.LeafNode.Header.Parent = parentIdx
	} else if p.InternalNode != nil {
		p.InternalNode.Header.Parent = parentIdx
	}
}
