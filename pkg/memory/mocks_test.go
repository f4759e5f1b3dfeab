package memory

import (
	"sync"
	"testing"
	"time"

	"storecore/pkg/dberror"
	"storecore/pkg/primitives"
	"storecore/pkg/storage/page"

	"github.com/pkg/errors"
)

const testTable primitives.TableID = 7

// recorder collects the order of log and page-store calls.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// memStore is an in-memory page-store. Records replace the whole content of
// page 0 on insert and clear it on delete.
type memStore struct {
	id       primitives.TableID
	rec      *recorder
	mu       sync.Mutex
	pages    map[primitives.PageNumber][]byte
	reads    int
	writeErr error
}

func newMemStore(id primitives.TableID, rec *recorder, contents ...string) *memStore {
	s := &memStore{id: id, rec: rec, pages: make(map[primitives.PageNumber][]byte)}
	for i, c := range contents {
		s.pages[primitives.PageNumber(i)] = []byte(c)
	}
	return s
}

func (s *memStore) ID() primitives.TableID { return s.id }

func (s *memStore) ReadPage(pid primitives.PageID) (*page.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	data, ok := s.pages[pid.PageNo()]
	if !ok {
		return nil, dberror.Detailed(dberror.ErrUnknownPage, pid.String(), "ReadPage", "memStore")
	}
	return page.New(pid, data), nil
}

func (s *memStore) WritePage(p *page.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.rec.add("write " + p.ID().String())
	s.pages[p.ID().PageNo()] = p.Data()
	return nil
}

func (s *memStore) content(n primitives.PageNumber) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.pages[n])
}

func (s *memStore) InsertRecord(tid primitives.TransactionID, src page.Source, rec []byte) ([]*page.Page, error) {
	p, err := src.GetPage(tid, primitives.NewPageID(s.id, 0), primitives.ReadWrite)
	if err != nil {
		return nil, err
	}
	p.SetData(rec)
	return []*page.Page{p}, nil
}

func (s *memStore) DeleteRecord(tid primitives.TransactionID, src page.Source, rid page.RecordID) ([]*page.Page, error) {
	p, err := src.GetPage(tid, rid.PageID, primitives.ReadWrite)
	if err != nil {
		return nil, err
	}
	p.SetData([]byte{})
	return []*page.Page{p}, nil
}

func (s *memStore) Close() error { return nil }

type memCatalog struct {
	stores map[primitives.TableID]page.DbFile
}

func (c *memCatalog) GetDbFile(id primitives.TableID) (page.DbFile, error) {
	if f, ok := c.stores[id]; ok {
		return f, nil
	}
	return nil, dberror.Detailed(dberror.ErrUnknownTable, id.String(), "GetDbFile", "memCatalog")
}

// memLog records LogWrite and Force calls.
type memLog struct {
	rec      *recorder
	mu       sync.Mutex
	updates  map[primitives.PageID][2][]byte
	forceErr error
}

func (l *memLog) LogWrite(tid primitives.TransactionID, pid primitives.PageID, before, after []byte) (primitives.LSN, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec.add("log " + pid.String())
	l.updates[pid] = [2][]byte{before, after}
	return primitives.LSN(len(l.updates)), nil
}

func (l *memLog) Force() error {
	if l.forceErr != nil {
		return l.forceErr
	}
	l.rec.add("force")
	return nil
}

type fixture struct {
	pool  *BufferPool
	store *memStore
	log   *memLog
	rec   *recorder
}

// newFixture builds a pool over one table whose page i holds contents[i].
func newFixture(t *testing.T, opts Options, contents ...string) *fixture {
	t.Helper()
	rec := &recorder{}
	store := newMemStore(testTable, rec, contents...)
	wal := &memLog{rec: rec, updates: make(map[primitives.PageID][2][]byte)}
	if opts.LockTimeout == 0 {
		opts.LockTimeout = 100 * time.Millisecond
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	pool := NewBufferPool(&memCatalog{stores: map[primitives.TableID]page.DbFile{testTable: store}}, wal, opts)
	t.Cleanup(func() { _ = pool.Close() })
	return &fixture{pool: pool, store: store, log: wal, rec: rec}
}

func pid(n primitives.PageNumber) primitives.PageID {
	return primitives.NewPageID(testTable, n)
}

var errDiskFull = errors.New("disk full")
