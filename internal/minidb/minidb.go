package minidb

import (
	"errors"
	"math"
)

const (
	PageSize = 4096 // 4 kilobytes

	// Fixed schema of the single "users" table
	TableName    = "users"
	UsernameSize = 32
	EmailSize    = 255

	// id (4B) + username (32B) + email (255B)
	RowSize = 4 + UsernameSize + EmailSize

	// Leaf cell is an 8 byte key followed by a serialized row
	LeafNodeCellSize = 8 + RowSize

	// Page minus leaf node header, divided by cell size
	LeafNodeMaxCells = (PageSize - 14) / LeafNodeCellSize

	// Kept small on purpose so internal node splits happen
	// at row counts a test can reach
	InternalNodeMaxCells = 3
)

const rightChildNotSet = math.MaxUint32

var (
	// ErrDuplicateKey is returned when inserting a row with an id
	// that is already present in the table. The tree is not mutated.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrValueTooLarge is returned when a text field exceeds its
	// fixed column capacity. The tree is not mutated.
	ErrValueTooLarge = errors.New("value exceeds column capacity")
	// ErrNoMoreRows signals the end of a table scan.
	ErrNoMoreRows = errors.New("no more rows")
)
