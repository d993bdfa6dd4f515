package minidb

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Database owns the backing file, the pager and the single users table.
type Database struct {
	Name   string
	file   *os.File
	pager  *Pager
	table  *Table
	logger *zap.Logger
}

// OpenDatabase opens (or creates) the backing file at path and prepares
// the users table.
func OpenDatabase(ctx context.Context, logger *zap.Logger, path string) (*Database, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open database file: %w", err)
	}

	aDatabase, err := NewDatabase(ctx, logger, path, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	aDatabase.file = file

	return aDatabase, nil
}

// NewDatabase builds a database on an already opened file, allocating
// the root leaf on first ever use. Tests that manage their own temp
// files use it directly.
func NewDatabase(ctx context.Context, logger *zap.Logger, name string, file DBFile) (*Database, error) {
	aPager, err := NewPager(file, PageSize)
	if err != nil {
		return nil, err
	}

	rootPageIdx := aPager.RootPage()
	if rootPageIdx == 0 {
		// Brand new database, allocate the root leaf
		aRootPage, err := aPager.AllocatePage(ctx)
		if err != nil {
			return nil, err
		}
		aRootPage.LeafNode.Header.IsRoot = true
		aPager.SetRootPage(aRootPage.Index)
		rootPageIdx = aRootPage.Index
	}

	logger.Sugar().With(
		"name", name,
		"root_page", int(rootPageIdx),
		"total_pages", int(aPager.TotalPages()),
	).Debug("opening database")

	return &Database{
		Name:   name,
		pager:  aPager,
		table:  NewTable(logger, TableName, aPager, rootPageIdx),
		logger: logger,
	}, nil
}

func (d *Database) Table() *Table {
	return d.table
}

// Close flushes all dirty pages and releases the file handle. Callers
// that need durability must not skip it.
func (d *Database) Close(ctx context.Context) error {
	d.logger.Sugar().With(
		"name", d.Name,
		"total_pages", int(d.pager.TotalPages()),
	).Debug("closing database")

	err := d.pager.FlushAll(ctx)
	if d.file != nil {
		err = multierr.Append(err, d.file.Close())
	}
	return err
}
