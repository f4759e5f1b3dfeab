package page

import (
	"io"
	"os"
	"sync"

	"storecore/pkg/dberror"
	"storecore/pkg/primitives"

	"github.com/pkg/errors"
)

// BaseFile is the page-granular I/O layer shared by page-stores: page counts,
// whole-page reads and writes, and page allocation at the end of the file.
type BaseFile struct {
	file     *os.File
	tableID  primitives.TableID
	mutex    sync.RWMutex
	filePath primitives.Filepath
}

// NewBaseFile opens (creating if needed) the file at filePath. The table ID is
// derived from the path, so reopening the same file yields the same ID.
func NewBaseFile(filePath primitives.Filepath) (*BaseFile, error) {
	if filePath == "" {
		return nil, errors.New("filePath cannot be empty")
	}

	file, err := os.OpenFile(string(filePath), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file %s", filePath)
	}

	return &BaseFile{
		file:     file,
		tableID:  filePath.Hash(),
		filePath: filePath,
	}, nil
}

func (bf *BaseFile) ID() primitives.TableID {
	return bf.tableID
}

func (bf *BaseFile) FilePath() primitives.Filepath {
	return bf.filePath
}

// NumPages returns the number of whole or partial pages in the file.
func (bf *BaseFile) NumPages() (primitives.PageNumber, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()
	return bf.numPagesLocked()
}

func (bf *BaseFile) numPagesLocked() (primitives.PageNumber, error) {
	if bf.file == nil {
		return 0, errors.New("file is closed")
	}

	info, err := bf.file.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "failed to stat file")
	}

	numPages := primitives.PageNumber(info.Size() / int64(PageSize))
	if info.Size()%int64(PageSize) != 0 {
		numPages++
	}
	return numPages, nil
}

// ReadPageData reads page pageNo. A page at or beyond the end of the file
// fails with dberror.ErrUnknownPage.
func (bf *BaseFile) ReadPageData(pageNo primitives.PageNumber) ([]byte, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	numPages, err := bf.numPagesLocked()
	if err != nil {
		return nil, err
	}
	if pageNo >= numPages {
		return nil, dberror.Detailed(dberror.ErrUnknownPage,
			primitives.NewPageID(bf.tableID, pageNo).String(), "ReadPageData", "BaseFile")
	}

	data := make([]byte, PageSize)
	n, err := bf.file.ReadAt(data, int64(pageNo)*int64(PageSize))
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return nil, dberror.Wrap(err, dberror.CodeIO, "ReadPageData", "BaseFile")
	}
	return data, nil
}

// WritePageData writes exactly one page at pageNo and syncs the file.
func (bf *BaseFile) WritePageData(pageNo primitives.PageNumber, data []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return errors.New("file is closed")
	}
	if len(data) != PageSize {
		return errors.Errorf("invalid page data size: expected %d, got %d", PageSize, len(data))
	}
	return bf.writeLocked(pageNo, data)
}

// AllocatePage appends data as a new page and returns its number. Concurrent
// callers always receive distinct page numbers.
func (bf *BaseFile) AllocatePage(data []byte) (primitives.PageNumber, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if len(data) != PageSize {
		return 0, errors.Errorf("invalid page data size: expected %d, got %d", PageSize, len(data))
	}

	pageNo, err := bf.numPagesLocked()
	if err != nil {
		return 0, err
	}
	if err := bf.writeLocked(pageNo, data); err != nil {
		return 0, err
	}
	return pageNo, nil
}

func (bf *BaseFile) writeLocked(pageNo primitives.PageNumber, data []byte) error {
	if _, err := bf.file.WriteAt(data, int64(pageNo)*int64(PageSize)); err != nil {
		return dberror.Wrap(err, dberror.CodeIO, "WritePageData", "BaseFile")
	}
	if err := bf.file.Sync(); err != nil {
		return dberror.Wrap(err, dberror.CodeIO, "WritePageData", "BaseFile")
	}
	return nil
}

// Close closes the file. Closing twice is a no-op.
func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return nil
	}
	err := bf.file.Close()
	bf.file = nil
	return err
}
