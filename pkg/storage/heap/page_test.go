package heap

import (
	"bytes"
	"testing"

	"storecore/pkg/dberror"
	"storecore/pkg/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlottedPage_EmptyPageVerifies(t *testing.T) {
	data := NewEmptyPageData()

	assert.Equal(t, 0, numSlots(data))
	assert.Equal(t, dataEnd-headerSize, freeSpace(data))
	assert.NoError(t, verify(primitives.NewPageID(1, 0), data))
}

func TestSlottedPage_InsertReadDelete(t *testing.T) {
	data := NewEmptyPageData()

	s0, err := insertRecord(data, []byte("alpha"))
	require.NoError(t, err)
	s1, err := insertRecord(data, []byte("beta"))
	require.NoError(t, err)
	assert.NotEqual(t, s0, s1)

	rec, ok := readRecord(data, s1)
	require.True(t, ok)
	assert.Equal(t, []byte("beta"), rec)

	require.NoError(t, deleteRecord(data, s0))
	_, ok = readRecord(data, s0)
	assert.False(t, ok)

	rec, ok = readRecord(data, s1)
	require.True(t, ok, "compaction keeps other slots stable")
	assert.Equal(t, []byte("beta"), rec)
	assert.NoError(t, verify(primitives.NewPageID(1, 0), data))
}

func TestSlottedPage_DeleteFreesSpaceAndReusesSlot(t *testing.T) {
	data := NewEmptyPageData()
	rec := bytes.Repeat([]byte{'x'}, 1000)

	var slots []primitives.SlotID
	for fits(data, rec) {
		slot, err := insertRecord(data, rec)
		require.NoError(t, err)
		slots = append(slots, slot)
	}
	require.Len(t, slots, 4)

	_, err := insertRecord(data, rec)
	assert.ErrorIs(t, err, dberror.ErrPageFull)

	require.NoError(t, deleteRecord(data, slots[1]))
	slot, err := insertRecord(data, rec)
	require.NoError(t, err)
	assert.Equal(t, slots[1], slot)
}

func TestSlottedPage_DeleteMissingSlot(t *testing.T) {
	data := NewEmptyPageData()

	assert.ErrorIs(t, deleteRecord(data, 3), dberror.ErrRecordNotFound)

	slot, err := insertRecord(data, []byte("a"))
	require.NoError(t, err)
	require.NoError(t, deleteRecord(data, slot))
	assert.ErrorIs(t, deleteRecord(data, slot), dberror.ErrRecordNotFound)
}

func TestSlottedPage_EmptyRecordSurvivesCompaction(t *testing.T) {
	data := NewEmptyPageData()

	empty, err := insertRecord(data, []byte{})
	require.NoError(t, err)
	other, err := insertRecord(data, []byte("z"))
	require.NoError(t, err)
	require.NoError(t, deleteRecord(data, other))

	rec, ok := readRecord(data, empty)
	require.True(t, ok)
	assert.Empty(t, rec)
}

func TestSlottedPage_ChecksumMismatch(t *testing.T) {
	data := NewEmptyPageData()
	_, err := insertRecord(data, []byte("payload"))
	require.NoError(t, err)

	data[dataEnd-1] ^= 0xFF

	assert.ErrorIs(t, verify(primitives.NewPageID(1, 0), data), dberror.ErrPageCorrupted)
}

func TestSlottedPage_OversizedRecord(t *testing.T) {
	data := NewEmptyPageData()
	_, err := insertRecord(data, make([]byte, MaxRecordSize+1))
	assert.ErrorIs(t, err, dberror.ErrPageFull)

	_, err = insertRecord(data, make([]byte, MaxRecordSize))
	assert.NoError(t, err)
}
