package minidb

import (
	"context"
	"fmt"
)

// Cursor is a position in the table's ascending key order. It is a
// single use traversal handle: a cursor obtained before an insert is
// invalid after it, there is no attempt to keep positions stable
// across mutations.
type Cursor struct {
	Table      *Table
	PageIdx    uint32
	CellIdx    uint32
	EndOfTable bool
}

// Value returns the row at the current position without moving the cursor.
func (c *Cursor) Value(ctx context.Context) (Row, error) {
	if c.EndOfTable {
		return Row{}, ErrNoMoreRows
	}

	aPage, err := c.Table.pager.ReadPage(ctx, c.PageIdx)
	if err != nil {
		return Row{}, fmt.Errorf("cursor value: %w", err)
	}
	if aPage.LeafNode == nil {
		return Row{}, fmt.Errorf("cursor points at non leaf page %d", c.PageIdx)
	}

	var aRow Row
	if err := UnmarshalRow(aPage.LeafNode.Cells[c.CellIdx].Value[:], &aRow); err != nil {
		return Row{}, err
	}

	return aRow, nil
}

// Advance moves the cursor to the next cell in ascending key order,
// crossing leaf boundaries via the next leaf pointer.
func (c *Cursor) Advance(ctx context.Context) error {
	if c.EndOfTable {
		return nil
	}

	aPage, err := c.Table.pager.ReadPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("cursor advance: %w", err)
	}
	if aPage.LeafNode == nil {
		return fmt.Errorf("cursor points at non leaf page %d", c.PageIdx)
	}

	c.CellIdx += 1
	if c.CellIdx < aPage.LeafNode.Header.Cells {
		return nil
	}

	// If there is no leaf page to the right, the scan is exhausted
	if aPage.LeafNode.Header.NextLeaf == 0 {
		c.EndOfTable = true
		return nil
	}

	c.PageIdx = aPage.LeafNode.Header.NextLeaf
	c.CellIdx = 0

	return nil
}

func (c *Cursor) LeafNodeInsert(ctx context.Context, key uint64, aRow *Row) error {
	aPage, err := c.Table.pager.ModifyPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("leaf node insert: %w", err)
	}
	if aPage.LeafNode == nil {
		return fmt.Errorf("error inserting row to a non leaf node, key %d", key)
	}

	cells := aPage.LeafNode.Header.Cells
	if cells >= LeafNodeMaxCells {
		// Split leaf node
		return c.LeafNodeSplitInsert(ctx, key, aRow)
	}

	if c.CellIdx < cells {
		// Need make room for new cell
		for i := cells; i > c.CellIdx; i-- {
			aPage.LeafNode.Cells[i] = aPage.LeafNode.Cells[i-1]
		}
	}

	if err := saveToCell(&aPage.LeafNode.Cells[c.CellIdx], key, aRow); err != nil {
		return err
	}
	aPage.LeafNode.Header.Cells += 1

	return nil
}

// Create a new node and move half the cells over.
// Insert the new value in one of the two nodes.
// Update parent or create a new parent.
func (c *Cursor) LeafNodeSplitInsert(ctx context.Context, key uint64, aRow *Row) error {
	aPager := c.Table.pager

	aSplitPage, err := aPager.ModifyPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("leaf node split insert: %w", err)
	}

	originalMaxKey, _ := aSplitPage.GetMaxKey()

	aNewPage, err := aPager.AllocatePage(ctx)
	if err != nil {
		return fmt.Errorf("leaf node split insert: %w", err)
	}

	c.Table.logger.Sugar().With(
		"key", int(key),
		"old_max_key", int(originalMaxKey),
		"new_page_index", int(aNewPage.Index),
	).Debug("leaf node split insert")

	aNewPage.LeafNode = NewLeafNode()
	aNewPage.LeafNode.Header.Parent = aSplitPage.LeafNode.Header.Parent

	aNewPage.LeafNode.Header.NextLeaf = aSplitPage.LeafNode.Header.NextLeaf
	aSplitPage.LeafNode.Header.NextLeaf = aNewPage.Index

	// All existing keys plus new key should be divided evenly between
	// old (left) and new (right) nodes. Starting from the right, move
	// each key to its correct position.
	var (
		leafNodeMaxCells = aSplitPage.LeafNode.Header.Cells
		rightSplitCount  = (leafNodeMaxCells + 1) / 2
		leftSplitCount   = leafNodeMaxCells + 1 - rightSplitCount
	)
	for i := leafNodeMaxCells; ; i-- {
		if i+1 == 0 {
			break
		}
		var (
			destPage *Page
			isLeft   = i < leftSplitCount
		)

		if !isLeft {
			destPage = aNewPage // right
		} else {
			destPage = aSplitPage // left
		}
		cellIdx := i % leftSplitCount
		destCell := &destPage.LeafNode.Cells[cellIdx]

		if i == c.CellIdx {
			if err := saveToCell(destCell, key, aRow); err != nil {
				return err
			}
		} else if i > c.CellIdx {
			*destCell = aSplitPage.LeafNode.Cells[i-1]
		} else {
			*destCell = aSplitPage.LeafNode.Cells[i]
		}
	}

	// Update cell count on both leaf nodes
	aSplitPage.LeafNode.Header.Cells = leftSplitCount
	aNewPage.LeafNode.Header.Cells = rightSplitCount

	if aSplitPage.LeafNode.Header.IsRoot {
		_, err := c.Table.CreateNewRoot(ctx, aNewPage.Index)
		return err
	}

	parentPageIdx := aSplitPage.LeafNode.Header.Parent
	aParentPage, err := aPager.ModifyPage(ctx, parentPageIdx)
	if err != nil {
		return fmt.Errorf("leaf node split insert: %w", err)
	}

	// If we won't need to split the internal node,
	// update parent to reflect new max key
	oldChildIdx := aParentPage.InternalNode.IndexOfChild(originalMaxKey)
	if oldChildIdx < InternalNodeMaxCells {
		oldPageNewMaxKey, _ := aSplitPage.GetMaxKey()
		aParentPage.InternalNode.ICells[oldChildIdx].Key = oldPageNewMaxKey
	}

	return c.Table.InternalNodeInsert(ctx, parentPageIdx, aNewPage.Index)
}

func saveToCell(cell *Cell, key uint64, aRow *Row) error {
	rowBuf, err := aRow.Marshal(nil)
	if err != nil {
		return err
	}
	cell.Key = key
	copy(cell.Value[:], rowBuf)
	return nil
}
