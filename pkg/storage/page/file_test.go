package page

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"storecore/pkg/dberror"
	"storecore/pkg/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestFile(t *testing.T) *BaseFile {
	t.Helper()
	bf, err := NewBaseFile(primitives.Filepath(filepath.Join(t.TempDir(), "t.dat")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bf.Close() })
	return bf
}

func TestBaseFile_AllocateReadWrite(t *testing.T) {
	bf := openTestFile(t)

	first := bytes.Repeat([]byte{1}, PageSize)
	pageNo, err := bf.AllocatePage(first)
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(0), pageNo)

	n, err := bf.NumPages()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(1), n)

	second := bytes.Repeat([]byte{2}, PageSize)
	require.NoError(t, bf.WritePageData(0, second))

	got, err := bf.ReadPageData(0)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestBaseFile_ReadPastEndIsUnknownPage(t *testing.T) {
	bf := openTestFile(t)

	_, err := bf.ReadPageData(3)
	assert.ErrorIs(t, err, dberror.ErrUnknownPage)
}

func TestBaseFile_RejectsWrongSize(t *testing.T) {
	bf := openTestFile(t)

	assert.Error(t, bf.WritePageData(0, []byte("short")))
	_, err := bf.AllocatePage(make([]byte, PageSize+1))
	assert.Error(t, err)
}

func TestBaseFile_ConcurrentAllocationIsUnique(t *testing.T) {
	bf := openTestFile(t)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[primitives.PageNumber]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pageNo, err := bf.AllocatePage(make([]byte, PageSize))
			assert.NoError(t, err)
			mu.Lock()
			seen[pageNo] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
}

func TestBaseFile_IDIsStableForPath(t *testing.T) {
	path := primitives.Filepath(filepath.Join(t.TempDir(), "stable.dat"))
	a, err := NewBaseFile(path)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	b, err := NewBaseFile(path)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, a.ID(), b.ID())
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}
