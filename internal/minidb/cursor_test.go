package minidb

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCursor_ValueAndAdvance(t *testing.T) {
	t.Parallel()

	dbFile, err := os.CreateTemp("", "testdb")
	require.NoError(t, err)
	defer dbFile.Close()
	defer os.Remove(dbFile.Name())

	var ctx = context.Background()

	aDatabase, err := NewDatabase(ctx, zap.NewNop(), "test", dbFile)
	require.NoError(t, err)
	aTable := aDatabase.Table()

	for _, i := range []int{2, 1, 3} {
		require.NoError(t, aTable.Insert(ctx, testRow(i)))
	}

	aCursor, err := aTable.SeekFirst(ctx)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.False(t, aCursor.EndOfTable)
		aRow, err := aCursor.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, testRow(i), aRow)
		require.NoError(t, aCursor.Advance(ctx))
	}

	assert.True(t, aCursor.EndOfTable)
	_, err = aCursor.Value(ctx)
	require.ErrorIs(t, err, ErrNoMoreRows)
	// Advancing an exhausted cursor is a no-op
	require.NoError(t, aCursor.Advance(ctx))
}

func TestCursor_EmptyTable(t *testing.T) {
	t.Parallel()

	dbFile, err := os.CreateTemp("", "testdb")
	require.NoError(t, err)
	defer dbFile.Close()
	defer os.Remove(dbFile.Name())

	var ctx = context.Background()

	aDatabase, err := NewDatabase(ctx, zap.NewNop(), "test", dbFile)
	require.NoError(t, err)

	aCursor, err := aDatabase.Table().SeekFirst(ctx)
	require.NoError(t, err)
	assert.True(t, aCursor.EndOfTable)

	_, err = aCursor.Value(ctx)
	require.ErrorIs(t, err, ErrNoMoreRows)
}

func TestCursor_CrossesLeafBoundaries(t *testing.T) {
	t.Parallel()

	dbFile, err := os.CreateTemp("", "testdb")
	require.NoError(t, err)
	defer dbFile.Close()
	defer os.Remove(dbFile.Name())

	var ctx = context.Background()

	aDatabase, err := NewDatabase(ctx, zap.NewNop(), "test", dbFile)
	require.NoError(t, err)
	aTable := aDatabase.Table()

	// One more row than fits into a single leaf forces a split
	total := LeafNodeMaxCells + 1
	for i := 1; i <= total; i++ {
		require.NoError(t, aTable.Insert(ctx, testRow(i)))
	}

	aCursor, err := aTable.SeekFirst(ctx)
	require.NoError(t, err)
	firstLeaf := aCursor.PageIdx

	seen := 0
	crossed := false
	for !aCursor.EndOfTable {
		aRow, err := aCursor.Value(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(seen+1), aRow.ID)
		seen++
		require.NoError(t, aCursor.Advance(ctx))
		if aCursor.PageIdx != firstLeaf {
			crossed = true
		}
	}

	assert.Equal(t, total, seen)
	assert.True(t, crossed)
}
