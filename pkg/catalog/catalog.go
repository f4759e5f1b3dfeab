// Package catalog maps tables to the page-stores holding their pages.
package catalog

import (
	stderrors "errors"
	"slices"
	"sync"

	"storecore/pkg/dberror"
	"storecore/pkg/logging"
	"storecore/pkg/primitives"
	"storecore/pkg/storage/heap"
	"storecore/pkg/storage/page"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TableInfo describes one registered table.
type TableInfo struct {
	Name string
	File page.DbFile
}

func (ti *TableInfo) ID() primitives.TableID {
	return ti.File.ID()
}

// Catalog is the registry of tables, addressable by name and by table ID.
// It is safe for concurrent use.
type Catalog struct {
	dataDir     primitives.Filepath
	nameToTable map[string]*TableInfo
	idToTable   map[primitives.TableID]*TableInfo
	mutex       sync.RWMutex
}

// NewCatalog creates an empty catalog whose heap tables live under dataDir.
func NewCatalog(dataDir primitives.Filepath) *Catalog {
	return &Catalog{
		dataDir:     dataDir,
		nameToTable: make(map[string]*TableInfo),
		idToTable:   make(map[primitives.TableID]*TableInfo),
	}
}

// AddTable registers f under name, replacing any table with the same name or
// ID. The replaced file is not closed.
func (c *Catalog) AddTable(name string, f page.DbFile) error {
	if f == nil {
		return errors.New("file cannot be nil")
	}
	if name == "" {
		return errors.New("table name cannot be empty")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if old, ok := c.nameToTable[name]; ok {
		delete(c.idToTable, old.ID())
	}
	if old, ok := c.idToTable[f.ID()]; ok {
		delete(c.nameToTable, old.Name)
	}

	info := &TableInfo{Name: name, File: f}
	c.nameToTable[name] = info
	c.idToTable[f.ID()] = info
	return nil
}

// OpenHeapTable opens (creating if needed) <dataDir>/<name>.dat as a heap
// file and registers it. Opening a name that is already registered returns
// the existing file.
func (c *Catalog) OpenHeapTable(name string) (*heap.HeapFile, error) {
	c.mutex.RLock()
	if info, ok := c.nameToTable[name]; ok {
		c.mutex.RUnlock()
		hf, isHeap := info.File.(*heap.HeapFile)
		if !isHeap {
			return nil, errors.Errorf("table %q is not a heap table", name)
		}
		return hf, nil
	}
	c.mutex.RUnlock()

	if err := c.dataDir.MkdirAll(0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create data dir %s", c.dataDir)
	}

	path := c.dataDir.Join(name + ".dat")
	hf, err := heap.NewHeapFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.AddTable(name, hf); err != nil {
		hf.Close()
		return nil, err
	}

	logging.WithTable(name).Info("opened heap table",
		zap.String("path", path.String()), zap.Uint64("table_id", uint64(hf.ID())))
	return hf, nil
}

// GetDbFile returns the page-store for tableID.
func (c *Catalog) GetDbFile(tableID primitives.TableID) (page.DbFile, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, ok := c.idToTable[tableID]
	if !ok {
		return nil, dberror.Detailed(dberror.ErrUnknownTable, tableID.String(), "GetDbFile", "Catalog")
	}
	return info.File, nil
}

// GetTableID resolves a table name.
func (c *Catalog) GetTableID(name string) (primitives.TableID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, ok := c.nameToTable[name]
	if !ok {
		return primitives.InvalidTableID, dberror.Detailed(dberror.ErrUnknownTable, name, "GetTableID", "Catalog")
	}
	return info.ID(), nil
}

// TableNames returns the registered table names, sorted.
func (c *Catalog) TableNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.nameToTable))
	for name := range c.nameToTable {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close closes every registered file and empties the catalog. All close
// errors are reported, joined.
func (c *Catalog) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var errs []error
	for _, info := range c.nameToTable {
		if err := info.File.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "failed to close table %s", info.Name))
		}
	}
	c.nameToTable = make(map[string]*TableInfo)
	c.idToTable = make(map[primitives.TableID]*TableInfo)
	return stderrors.Join(errs...)
}
