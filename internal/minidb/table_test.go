package minidb_test

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/go-minidb/minidb/internal/minidb"
	"github.com/go-minidb/minidb/internal/minidb/minidbtest"
)

var (
	gen = minidbtest.NewDataGen(time.Now().Unix())
)

func newTestTable(t *testing.T) *minidb.Table {
	t.Helper()

	dbFile, err := os.CreateTemp("", "testdb")
	require.NoError(t, err)
	t.Cleanup(func() {
		dbFile.Close()
		os.Remove(dbFile.Name())
	})

	aDatabase, err := minidb.NewDatabase(context.Background(), zap.NewNop(), "test", dbFile)
	require.NoError(t, err)

	return aDatabase.Table()
}

func selectAll(t *testing.T, ctx context.Context, aTable *minidb.Table) []minidb.Row {
	t.Helper()

	nextRow, err := aTable.Select(ctx)
	require.NoError(t, err)

	rows := make([]minidb.Row, 0)
	aRow, err := nextRow(ctx)
	for ; err == nil; aRow, err = nextRow(ctx) {
		rows = append(rows, aRow)
	}
	require.ErrorIs(t, err, minidb.ErrNoMoreRows)

	return rows
}

func TestTable_InsertSelect_SingleRow(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
		aRow   = gen.Row()
	)

	require.NoError(t, aTable.Insert(ctx, aRow))

	rows := selectAll(t, ctx, aTable)
	require.Len(t, rows, 1)
	assert.Equal(t, aRow, rows[0])
}

func TestTable_Select_EmptyTable(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
	)

	assert.Empty(t, selectAll(t, ctx, aTable))
}

func TestTable_Select_SortedRegardlessOfInsertOrder(t *testing.T) {
	t.Parallel()

	var (
		ctx      = context.Background()
		aTable   = newTestTable(t)
		inserted = gen.Rows(50)
	)

	for _, aRow := range inserted {
		require.NoError(t, aTable.Insert(ctx, aRow))
	}

	sort.Slice(inserted, func(i, j int) bool {
		return inserted[i].ID < inserted[j].ID
	})

	assert.Equal(t, inserted, selectAll(t, ctx, aTable))
}

func TestTable_Insert_DuplicateKey(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
		aRow   = gen.Row()
	)

	require.NoError(t, aTable.Insert(ctx, aRow))

	duplicate := aRow
	duplicate.Username = "someone_else"
	err := aTable.Insert(ctx, duplicate)
	require.ErrorIs(t, err, minidb.ErrDuplicateKey)

	// The rejected insert must not have touched the tree
	rows := selectAll(t, ctx, aTable)
	require.Len(t, rows, 1)
	assert.Equal(t, aRow, rows[0])
}

func TestTable_Insert_DuplicateKeyInFullLeaf(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
		rows   = gen.SequentialRows(minidb.LeafNodeMaxCells)
	)

	for _, aRow := range rows {
		require.NoError(t, aTable.Insert(ctx, aRow))
	}

	// A duplicate of the last key in a leaf at capacity must be caught
	// before any split happens
	err := aTable.Insert(ctx, rows[len(rows)-1])
	require.ErrorIs(t, err, minidb.ErrDuplicateKey)
	assert.Equal(t, rows, selectAll(t, ctx, aTable))
}

func TestTable_Insert_ValueTooLarge(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
		aRow   = gen.Row()
	)

	aRow.Email = gen.Sentence(100)
	require.Greater(t, len(aRow.Email), minidb.EmailSize)

	err := aTable.Insert(ctx, aRow)
	require.ErrorIs(t, err, minidb.ErrValueTooLarge)
	assert.Empty(t, selectAll(t, ctx, aTable))
}

func TestTable_Insert_LeafSplit(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
		rows   = gen.SequentialRows(minidb.LeafNodeMaxCells + 1)
	)

	for _, aRow := range rows {
		require.NoError(t, aTable.Insert(ctx, aRow))
	}

	var (
		internalNodes int
		leafNodes     int
		leafCells     []int
	)
	require.NoError(t, aTable.BFS(ctx, func(aPage *minidb.Page) {
		if aPage.InternalNode != nil {
			internalNodes++
			assert.True(t, aPage.InternalNode.Header.IsRoot)
			assert.Equal(t, uint32(1), aPage.InternalNode.Header.KeysNum)
		} else {
			leafNodes++
			leafCells = append(leafCells, int(aPage.LeafNode.Header.Cells))
		}
	}))

	assert.Equal(t, 1, internalNodes)
	assert.Equal(t, 2, leafNodes)
	// Cells are divided evenly between the two leaves
	assert.Equal(t, []int{7, 7}, leafCells)

	assert.Equal(t, rows, selectAll(t, ctx, aTable))
}

func TestTable_Insert_ReverseOrder(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
		rows   = gen.SequentialRows(1000)
	)

	for i := len(rows) - 1; i >= 0; i-- {
		require.NoError(t, aTable.Insert(ctx, rows[i]))
	}

	assert.Equal(t, rows, selectAll(t, ctx, aTable))
}

func TestTable_Insert_AscendingThroughFullParent(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
		rows   = gen.SequentialRows(200)
	)

	// Ascending keys always split the rightmost node, so every internal
	// split happens while the node is its parent's rightmost child,
	// including with the parent at full fanout
	for _, aRow := range rows {
		require.NoError(t, aTable.Insert(ctx, aRow))
	}

	assert.Equal(t, rows, selectAll(t, ctx, aTable))
}

func TestTable_Insert_ShuffledLargeTree(t *testing.T) {
	t.Parallel()

	var (
		ctx      = context.Background()
		aTable   = newTestTable(t)
		rows     = gen.SequentialRows(5000)
		shuffled = make([]minidb.Row, len(rows))
	)

	copy(shuffled, rows)
	gen.ShuffleAnySlice(shuffled)

	for _, aRow := range shuffled {
		require.NoError(t, aTable.Insert(ctx, aRow))
	}

	assert.Equal(t, rows, selectAll(t, ctx, aTable))
}

func TestTable_Insert_InternalSplit(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		aTable = newTestTable(t)
		rows   = gen.SequentialRows(500)
	)

	for _, aRow := range rows {
		require.NoError(t, aTable.Insert(ctx, aRow))
	}

	// With 500 sequential keys the tree has multiple internal levels,
	// every node must respect the fanout limits
	var leafKeys []uint64
	require.NoError(t, aTable.BFS(ctx, func(aPage *minidb.Page) {
		if aPage.InternalNode != nil {
			keysNum := aPage.InternalNode.Header.KeysNum
			assert.GreaterOrEqual(t, uint32(minidb.InternalNodeMaxCells), keysNum)
			assert.Greater(t, keysNum, uint32(0))
			keys := aPage.InternalNode.Keys()
			assert.IsNonDecreasing(t, keys)
		} else {
			cells := aPage.LeafNode.Header.Cells
			assert.GreaterOrEqual(t, uint32(minidb.LeafNodeMaxCells), cells)
			assert.Greater(t, cells, uint32(0))
			keys := aPage.LeafNode.Keys()
			assert.IsNonDecreasing(t, keys)
			leafKeys = append(leafKeys, keys...)
		}
	}))

	// Every key lives in exactly one leaf
	assert.Len(t, leafKeys, len(rows))

	assert.Equal(t, rows, selectAll(t, ctx, aTable))
}
