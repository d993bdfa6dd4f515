package minidb

import (
	"context"
	"fmt"
	"io"
)

type DBFile interface {
	io.ReadSeeker
	io.ReaderAt
	io.WriterAt
}

// Pager owns the database file exclusively and caches pages in memory.
// Pages are loaded lazily on first reference and written back as whole
// pages, only through Flush/FlushAll. Once allocated, a page is never
// freed or reused.
type Pager struct {
	pageSize   int
	totalPages uint32 // total number of pages, including the meta page

	meta  MetaPage
	pages []*Page
	dirty map[uint32]struct{}

	file     DBFile
	fileSize int64
}

// NewPager opens the database file and reads the meta page. An empty
// file is initialized with a fresh meta page; a non empty file must be
// a multiple of the page size and carry the expected magic.
func NewPager(file DBFile, pageSize int) (*Pager, error) {
	aPager := &Pager{
		pageSize: pageSize,
		file:     file,
		pages:    make([]*Page, 0, 1000),
		dirty:    make(map[uint32]struct{}),
	}

	fileSize, err := aPager.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	aPager.fileSize = fileSize

	// Basic check to verify file size is a multiple of page size (4096B)
	if fileSize%int64(pageSize) != 0 {
		return nil, fmt.Errorf("db file size is not divisible by page size: %d", fileSize)
	}

	totalPages := fileSize / int64(pageSize)
	aPager.totalPages = uint32(totalPages)

	if aPager.totalPages == 0 {
		// Brand new file, reserve page 0 for the meta page
		aPager.meta = NewMetaPage()
		aPager.totalPages = 1
		aPager.dirty[MetaPageIdx] = struct{}{}
		return aPager, nil
	}

	buf := make([]byte, aPager.meta.Size())
	if _, err := aPager.file.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("read meta page: %w", err)
	}
	if _, err := aPager.meta.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("read meta page: %w", err)
	}

	return aPager, nil
}

func (p *Pager) TotalPages() uint32 {
	return p.totalPages
}

// RootPage returns the page number of the current tree root, 0 if the
// root has not been allocated yet.
func (p *Pager) RootPage() uint32 {
	return p.meta.RootPage
}

func (p *Pager) SetRootPage(pageIdx uint32) {
	p.meta.RootPage = pageIdx
	p.dirty[MetaPageIdx] = struct{}{}
}

// ReadPage returns a cached page, loading it from file on first reference.
func (p *Pager) ReadPage(ctx context.Context, pageIdx uint32) (*Page, error) {
	return p.getPage(pageIdx)
}

// ModifyPage is ReadPage plus marking the page dirty, callers use it
// when they are about to mutate the node.
func (p *Pager) ModifyPage(ctx context.Context, pageIdx uint32) (*Page, error) {
	aPage, err := p.getPage(pageIdx)
	if err != nil {
		return nil, err
	}
	p.dirty[pageIdx] = struct{}{}
	return aPage, nil
}

// AllocatePage returns a fresh zeroed page one past the current end of
// the file. New pages start life as empty leaf nodes, the caller
// re-initializes them as internal nodes where needed.
func (p *Pager) AllocatePage(ctx context.Context) (*Page, error) {
	return p.ModifyPage(ctx, p.totalPages)
}

func (p *Pager) getPage(pageIdx uint32) (*Page, error) {
	if pageIdx == MetaPageIdx {
		return nil, fmt.Errorf("page 0 is reserved for table metadata")
	}

	if len(p.pages) > int(pageIdx) && p.pages[pageIdx] != nil {
		return p.pages[pageIdx], nil
	}

	// Pages are only ever allocated one past the current end
	if pageIdx > p.totalPages {
		return nil, fmt.Errorf("cannot skip index when getting page, index: %d, total pages: %d", pageIdx, p.totalPages)
	}

	// Extend pages slice
	for i := len(p.pages); i < int(pageIdx)+1; i++ {
		p.pages = append(p.pages, nil)
	}

	// Requesting a new page
	if pageIdx == p.totalPages {
		p.pages[pageIdx] = &Page{Index: pageIdx, LeafNode: NewLeafNode()}
		p.totalPages = pageIdx + 1
		return p.pages[pageIdx], nil
	}

	// Page exists on disk, load it from file
	buf := make([]byte, p.pageSize)
	offset := int64(pageIdx) * int64(p.pageSize)
	if _, err := p.file.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("read page %d: %w", pageIdx, err)
	}

	// First byte is the internal node flag
	if buf[0] == 0 {
		leaf := NewLeafNode()
		if _, err := leaf.Unmarshal(buf); err != nil {
			return nil, err
		}
		p.pages[pageIdx] = &Page{Index: pageIdx, LeafNode: leaf}
	} else {
		internal := NewInternalNode()
		if _, err := internal.Unmarshal(buf); err != nil {
			return nil, err
		}
		p.pages[pageIdx] = &Page{Index: pageIdx, InternalNode: internal}
	}

	return p.pages[pageIdx], nil
}

// Flush writes a single page to its file offset and clears its dirty flag.
func (p *Pager) Flush(ctx context.Context, pageIdx uint32) error {
	buf := make([]byte, p.pageSize)

	if pageIdx == MetaPageIdx {
		if _, err := p.meta.Marshal(buf); err != nil {
			return err
		}
	} else {
		if int(pageIdx) >= len(p.pages) || p.pages[pageIdx] == nil {
			return fmt.Errorf("flushing page %d which was never loaded", pageIdx)
		}
		if _, err := marshalPage(p.pages[pageIdx], buf); err != nil {
			return err
		}
	}

	offset := int64(pageIdx) * int64(p.pageSize)
	if _, err := p.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("flush page %d: %w", pageIdx, err)
	}
	delete(p.dirty, pageIdx)

	return nil
}

// FlushAll writes every dirty page, meta page included. Called once,
// at orderly shutdown.
func (p *Pager) FlushAll(ctx context.Context) error {
	if _, ok := p.dirty[MetaPageIdx]; ok {
		if err := p.Flush(ctx, MetaPageIdx); err != nil {
			return err
		}
	}
	for pageIdx := uint32(1); pageIdx < p.totalPages; pageIdx++ {
		if _, ok := p.dirty[pageIdx]; !ok {
			continue
		}
		if err := p.Flush(ctx, pageIdx); err != nil {
			return err
		}
	}
	return nil
}

func marshalPage(aPage *Page, buf []byte) ([]byte, error) {
	if aPage.LeafNode != nil {
		return aPage.LeafNode.Marshal(buf)
	} else if aPage.InternalNode != nil {
		return aPage.InternalNode.Marshal(buf)
	}
	return nil, fmt.Errorf("error flushing, page %d is neither internal nor leaf node", aPage.Index)
}
