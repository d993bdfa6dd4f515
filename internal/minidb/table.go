package minidb

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Table combines the pager and the root page number. It is the only
// surface the front end touches.
type Table struct {
	Name        string
	RootPageIdx uint32
	pager       *Pager
	logger      *zap.Logger
}

func NewTable(logger *zap.Logger, name string, aPager *Pager, rootPageIdx uint32) *Table {
	return &Table{
		Name:        name,
		RootPageIdx: rootPageIdx,
		pager:       aPager,
		logger:      logger,
	}
}

// Insert adds a row keyed by its id. The tree is left untouched when
// the id is already present or a field exceeds its capacity.
func (t *Table) Insert(ctx context.Context, aRow Row) error {
	if err := aRow.Validate(); err != nil {
		return err
	}

	key := uint64(aRow.ID)
	aCursor, err := t.Seek(ctx, key)
	if err != nil {
		return err
	}

	aPage, err := t.pager.ReadPage(ctx, aCursor.PageIdx)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if aPage.LeafNode == nil {
		return fmt.Errorf("trying to insert into non leaf node")
	}

	// If the insert position lies in between existing cells,
	// check for a duplicate key
	if aCursor.CellIdx < aPage.LeafNode.Header.Cells {
		if aPage.LeafNode.Cells[aCursor.CellIdx].Key == key {
			return fmt.Errorf("key %d: %w", key, ErrDuplicateKey)
		}
	}

	t.logger.Sugar().With(
		"page_index", int(aCursor.PageIdx),
		"cell_index", int(aCursor.CellIdx),
		"key", int(key),
	).Debug("inserting row")

	return aCursor.LeafNodeInsert(ctx, key, &aRow)
}

// RowIterator produces the next row of a scan, ErrNoMoreRows once the
// scan is exhausted. It is lazy, finite and not restartable.
type RowIterator func(context.Context) (Row, error)

// Select scans the whole table in ascending key order by driving a
// fresh cursor to exhaustion. The iterator is invalid after an insert.
func (t *Table) Select(ctx context.Context) (RowIterator, error) {
	aCursor, err := t.SeekFirst(ctx)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (Row, error) {
		if aCursor.EndOfTable {
			return Row{}, ErrNoMoreRows
		}
		aRow, err := aCursor.Value(ctx)
		if err != nil {
			return Row{}, err
		}
		if err := aCursor.Advance(ctx); err != nil {
			return Row{}, err
		}
		return aRow, nil
	}, nil
}

// SeekFirst returns a cursor at the first (lowest key) leaf cell.
func (t *Table) SeekFirst(ctx context.Context) (*Cursor, error) {
	pageIdx := t.RootPageIdx
	aPage, err := t.pager.ReadPage(ctx, pageIdx)
	if err != nil {
		return nil, fmt.Errorf("seek first: %w", err)
	}
	for aPage.LeafNode == nil {
		pageIdx = aPage.InternalNode.ICells[0].Child
		aPage, err = t.pager.ReadPage(ctx, pageIdx)
		if err != nil {
			return nil, fmt.Errorf("seek first: %w", err)
		}
	}
	return &Cursor{
		Table:      t,
		PageIdx:    pageIdx,
		CellIdx:    0,
		EndOfTable: aPage.LeafNode.Header.Cells == 0,
	}, nil
}

// Seek the cursor for a key, if it does not exist then return the cursor
// for the page and cell where it should be inserted
func (t *Table) Seek(ctx context.Context, key uint64) (*Cursor, error) {
	aRootPage, err := t.pager.ReadPage(ctx, t.RootPageIdx)
	if err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	if aRootPage.LeafNode != nil {
		return t.leafNodeSeek(t.RootPageIdx, aRootPage, key)
	} else if aRootPage.InternalNode != nil {
		return t.internalNodeSeek(ctx, aRootPage, key)
	}
	return nil, fmt.Errorf("root page is neither leaf nor internal node")
}

func (t *Table) leafNodeSeek(pageIdx uint32, aPage *Page, key uint64) (*Cursor, error) {
	var (
		minIdx uint32
		maxIdx = aPage.LeafNode.Header.Cells

		aCursor = Cursor{
			Table:   t,
			PageIdx: pageIdx,
		}
	)

	// Binary search the sorted cells
	for i := maxIdx; i != minIdx; {
		index := (minIdx + i) / 2
		keyIdx := aPage.LeafNode.Cells[index].Key
		if key == keyIdx {
			aCursor.CellIdx = index
			return &aCursor, nil
		}
		if key < keyIdx {
			i = index
		} else {
			minIdx = index + 1
		}
	}

	aCursor.CellIdx = minIdx

	return &aCursor, nil
}

func (t *Table) internalNodeSeek(ctx context.Context, aPage *Page, key uint64) (*Cursor, error) {
	childIdx := aPage.InternalNode.IndexOfChild(key)
	childPageIdx, err := aPage.InternalNode.Child(childIdx)
	if err != nil {
		return nil, err
	}

	aChildPage, err := t.pager.ReadPage(ctx, childPageIdx)
	if err != nil {
		return nil, fmt.Errorf("internal node seek: %w", err)
	}

	if aChildPage.InternalNode != nil {
		return t.internalNodeSeek(ctx, aChildPage, key)
	}
	return t.leafNodeSeek(childPageIdx, aChildPage, key)
}

// Handle splitting the root.
// Old root copied to new page, becomes left child.
// Address of right child passed in.
// Re-initialize root page to contain the new root node.
// New root node points to two children.
func (t *Table) CreateNewRoot(ctx context.Context, rightChildPageIdx uint32) (*Page, error) {
	oldRootPage, err := t.pager.ModifyPage(ctx, t.RootPageIdx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	rightChildPage, err := t.pager.ModifyPage(ctx, rightChildPageIdx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	leftChildPage, err := t.pager.AllocatePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}
	leftChildPageIdx := leftChildPage.Index

	t.logger.Sugar().With(
		"left_child_index", int(leftChildPageIdx),
		"right_child_index", int(rightChildPageIdx),
	).Debug("create new root")

	// Copy all node contents to left child
	if oldRootPage.LeafNode != nil {
		*leftChildPage.LeafNode = *oldRootPage.LeafNode
		leftChildPage.LeafNode.Header.IsRoot = false
	} else if oldRootPage.InternalNode != nil {
		// New pages by default are leafs so we need to reset left child page
		// as an internal node here
		leftChildPage.InternalNode = NewInternalNode()
		leftChildPage.LeafNode = nil
		*leftChildPage.InternalNode = *oldRootPage.InternalNode
		leftChildPage.InternalNode.Header.IsRoot = false
		// Update parent for all child pages
		for i := uint32(0); i < leftChildPage.InternalNode.Header.KeysNum; i++ {
			aChildPage, err := t.pager.ModifyPage(ctx, leftChildPage.InternalNode.ICells[i].Child)
			if err != nil {
				return nil, fmt.Errorf("create new root: %w", err)
			}
			aChildPage.setParent(leftChildPageIdx)
		}
	}

	// Change root node to a new internal node
	newRootNode := NewInternalNode()
	oldRootPage.LeafNode = nil
	oldRootPage.InternalNode = newRootNode
	newRootNode.Header.IsRoot = true
	newRootNode.Header.KeysNum = 1

	// Set left and right child
	newRootNode.Header.RightChild = rightChildPageIdx
	if err := newRootNode.SetChild(0, leftChildPageIdx); err != nil {
		return nil, err
	}
	leftChildMaxKey, err := t.GetMaxKey(ctx, leftChildPage)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}
	newRootNode.ICells[0].Key = leftChildMaxKey

	// Set parent for both left and right child
	leftChildPage.setParent(t.RootPageIdx)
	rightChildPage.setParent(t.RootPageIdx)

	return leftChildPage, nil
}

// Add a new child/key pair to parent that corresponds to child
func (t *Table) InternalNodeInsert(ctx context.Context, parentPageIdx, childPageIdx uint32) error {
	aParentPage, err := t.pager.ModifyPage(ctx, parentPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	aChildPage, err := t.pager.ModifyPage(ctx, childPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	aChildPage.setParent(parentPageIdx)

	childMaxKey, err := t.GetMaxKey(ctx, aChildPage)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	var (
		index            = aParentPage.InternalNode.IndexOfChild(childMaxKey)
		originalKeyCount = aParentPage.InternalNode.Header.KeysNum
	)

	if aParentPage.InternalNode.Header.KeysNum >= InternalNodeMaxCells {
		return t.InternalNodeSplitInsert(ctx, parentPageIdx, childPageIdx)
	}

	// An internal node with an unset right child is empty
	if aParentPage.InternalNode.Header.RightChild == rightChildNotSet {
		aParentPage.InternalNode.Header.RightChild = childPageIdx
		return nil
	}

	// If we are already at the max number of cells for a node, we cannot
	// increment before splitting. Incrementing without inserting a new
	// key/child pair and immediately splitting would create a new key at
	// (max_cells + 1) with an uninitialized value.
	aParentPage.InternalNode.Header.KeysNum += 1

	rightChildPageIdx := aParentPage.InternalNode.Header.RightChild
	rightChildPage, err := t.pager.ReadPage(ctx, rightChildPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	rightChildMaxKey, err := t.GetMaxKey(ctx, rightChildPage)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	if childMaxKey > rightChildMaxKey {
		// Replace right child
		aParentPage.InternalNode.SetChild(originalKeyCount, rightChildPageIdx)
		aParentPage.InternalNode.ICells[originalKeyCount].Key = rightChildMaxKey
		aParentPage.InternalNode.Header.RightChild = childPageIdx
		return nil
	}

	// Make room for the new cell
	for i := originalKeyCount; i > index; i-- {
		aParentPage.InternalNode.ICells[i] = aParentPage.InternalNode.ICells[i-1]
	}
	aParentPage.InternalNode.SetChild(index, childPageIdx)
	aParentPage.InternalNode.ICells[index].Key = childMaxKey

	return nil
}

// Splits internal node. First, create a sibling node to store (n-1)/2 keys,
// move these keys from the original internal node to the sibling. Second,
// update original node's parent to reflect its new max key after splitting.
// Insert the sibling node into the parent, this could cause parent
// to be split as well. If the original node is root, create new root.
func (t *Table) InternalNodeSplitInsert(ctx context.Context, pageIdx, childPageIdx uint32) error {
	aSplitPage, err := t.pager.ModifyPage(ctx, pageIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	splittingRoot := aSplitPage.InternalNode.Header.IsRoot
	oldMaxKey, err := t.GetMaxKey(ctx, aSplitPage)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	childPage, err := t.pager.ModifyPage(ctx, childPageIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	childMaxKey, err := t.GetMaxKey(ctx, childPage)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	// Create a new page, it will be on the same level as original node
	// and to the right of it
	aNewPage, err := t.pager.AllocatePage(ctx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	newPageIdx := aNewPage.Index
	// Make sure the new page is an internal node
	aNewPage.InternalNode = NewInternalNode()
	aNewPage.LeafNode = nil

	t.logger.Sugar().With(
		"page_index", int(pageIdx),
		"new_page_index", int(newPageIdx),
	).Debug("internal node split insert")

	if splittingRoot {
		// If we are splitting the root, we need to update the split page
		// to point to the new root's left child, newPageIdx will already
		// point to the new root's right child
		aSplitPage, err = t.CreateNewRoot(ctx, newPageIdx)
		if err != nil {
			return err
		}
		// The node being split now lives at a fresh page number
		pageIdx = aSplitPage.Index
	}
	aNewPage.InternalNode.Header.Parent = aSplitPage.InternalNode.Header.Parent

	// First put right child into new node and set right child of old node
	// to an unset page number
	aNewPage.InternalNode.Header.RightChild = aSplitPage.InternalNode.Header.RightChild
	newPageRightChild, err := t.pager.ModifyPage(ctx, aNewPage.InternalNode.Header.RightChild)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	newPageRightChild.setParent(newPageIdx)
	aSplitPage.InternalNode.Header.RightChild = rightChildNotSet

	// For each key until you get to the middle key, move the key and the
	// child to the new node
	for i := uint32(InternalNodeMaxCells) - 1; i > InternalNodeMaxCells/2; i-- {
		if err := t.InternalNodeInsert(ctx, newPageIdx, aSplitPage.InternalNode.ICells[i].Child); err != nil {
			return fmt.Errorf("internal node split insert: %w", err)
		}
		aSplitPage.InternalNode.ICells[i] = ICell{}
		aSplitPage.InternalNode.Header.KeysNum -= 1
	}

	// Set child before middle key, which is now the highest key, to be
	// node's right child, and decrement number of keys
	aSplitPage.InternalNode.Header.RightChild, _ = aSplitPage.InternalNode.Child(aSplitPage.InternalNode.Header.KeysNum - 1)
	aSplitPage.InternalNode.RemoveLastCell()

	maxAfterSplit, err := t.GetMaxKey(ctx, aSplitPage)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	// Determine which of the two nodes after the split should contain
	// the child to be inserted, and insert the child
	if childMaxKey < maxAfterSplit {
		if err := t.InternalNodeInsert(ctx, pageIdx, childPageIdx); err != nil {
			return fmt.Errorf("internal node split insert: %w", err)
		}
		childPage.setParent(pageIdx)
	} else {
		if err := t.InternalNodeInsert(ctx, newPageIdx, childPageIdx); err != nil {
			return fmt.Errorf("internal node split insert: %w", err)
		}
		childPage.setParent(newPageIdx)
	}

	aParentPage, err := t.pager.ModifyPage(ctx, aSplitPage.InternalNode.Header.Parent)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	// Update parent to reflect new max key. If the split node was the
	// parent's rightmost child there is no separator cell to update.
	if idx := aParentPage.InternalNode.IndexOfChild(oldMaxKey); idx < aParentPage.InternalNode.Header.KeysNum {
		aParentPage.InternalNode.ICells[idx].Key = maxAfterSplit
	}

	if splittingRoot {
		return nil
	}

	return t.InternalNodeInsert(ctx, aSplitPage.InternalNode.Header.Parent, newPageIdx)
}

// GetMaxKey returns the maximum key stored in the subtree rooted at the page.
func (t *Table) GetMaxKey(ctx context.Context, aPage *Page) (uint64, error) {
	if aPage.LeafNode != nil {
		if aPage.LeafNode.Header.Cells == 0 {
			return 0, fmt.Errorf("get max key: leaf node has no cells")
		}
		return aPage.LeafNode.Cells[aPage.LeafNode.Header.Cells-1].Key, nil
	}
	rightChild, err := t.pager.ReadPage(ctx, aPage.InternalNode.Header.RightChild)
	if err != nil {
		return 0, err
	}
	return t.GetMaxKey(ctx, rightChild)
}

// BFS visits every page of the tree top down, left to right.
func (t *Table) BFS(ctx context.Context, visit func(*Page)) error {
	aRootPage, err := t.pager.ReadPage(ctx, t.RootPageIdx)
	if err != nil {
		return err
	}

	queue := []*Page{aRootPage}
	for len(queue) > 0 {
		aPage := queue[0]
		queue = queue[1:]

		visit(aPage)

		if aPage.InternalNode == nil {
			continue
		}
		for _, childIdx := range aPage.InternalNode.Children() {
			aChildPage, err := t.pager.ReadPage(ctx, childIdx)
			if err != nil {
				return err
			}
			queue = append(queue, aChildPage)
		}
	}

	return nil
}

// PrintTree dumps the tree shape, used by the .btree meta command.
func (t *Table) PrintTree(ctx context.Context, w io.Writer) error {
	return t.BFS(ctx, func(aPage *Page) {
		if aPage.InternalNode != nil {
			fmt.Fprintln(w, "Internal node,", "page:", aPage.Index, "number of keys:", aPage.InternalNode.Header.KeysNum, "parent:", aPage.InternalNode.Header.Parent)
			fmt.Fprintln(w, "Keys:", aPage.InternalNode.Keys())
			fmt.Fprintln(w, "Children:", aPage.InternalNode.Children())
		} else {
			fmt.Fprintln(w, "Leaf node,", "page:", aPage.Index, "number of cells:", aPage.LeafNode.Header.Cells, "parent:", aPage.LeafNode.Header.Parent, "next leaf:", aPage.LeafNode.Header.NextLeaf)
			fmt.Fprintln(w, "Keys:", aPage.LeafNode.Keys())
		}
		fmt.Fprintln(w, "---------")
	})
}
