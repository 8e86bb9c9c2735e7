package btree

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larch/common"
	"larch/heap"
)

// buildRelation creates a relation whose records carry the key as a big-endian
// int64 at offset 0, followed by padding.
func buildRelation(t *testing.T, keys []int64) string {
	t.Helper()

	id, _ := uuid.NewUUID()
	name := id.String()

	rel, err := heap.Create(name, 80, 16)
	require.NoError(t, err)

	record := make([]byte, 80)
	for _, k := range keys {
		binary.BigEndian.PutUint64(record, uint64(k))
		_, err := rel.Insert(record)
		require.NoError(t, err)
	}
	require.NoError(t, rel.Close())

	t.Cleanup(func() { common.Remove(name) })
	return name
}

func TestIndex_Name_Embeds_Relation_And_Offset(t *testing.T) {
	relName := buildRelation(t, nil)

	ix, err := Open(relName, 8, Integer, 16)
	require.NoError(t, err)
	defer common.Remove(ix.Name())
	defer ix.Close()

	assert.Equal(t, fmt.Sprintf("%s.8", relName), ix.Name())
}

func TestIndex_Create_Bulk_Loads_The_Relation(t *testing.T) {
	relName := buildRelation(t, ascending(2000))

	ix, err := Open(relName, 0, Integer, 64)
	require.NoError(t, err)
	defer common.Remove(ix.Name())
	defer ix.Close()

	keys, rids := collectLeafChain(t, ix)
	require.Len(t, keys, 2000)
	for i, k := range keys {
		assert.Equal(t, int64(i), k)
	}

	// every rid must resolve to the record carrying its key
	rel, err := heap.Open(relName, 16)
	require.NoError(t, err)
	defer rel.Close()
	for i, rid := range rids {
		record, err := rel.Get(rid)
		require.NoError(t, err)
		assert.Equal(t, uint64(keys[i]), binary.BigEndian.Uint64(record))
	}
}

func TestIndex_Reopen_Uses_The_Persisted_Tree(t *testing.T) {
	relName := buildRelation(t, permuted(3000))

	ix, err := Open(relName, 0, Integer, 64)
	require.NoError(t, err)
	indexName := ix.Name()
	defer common.Remove(indexName)
	require.NoError(t, ix.Close())

	// second open must take the open path and read the metadata back
	ix2, err := Open(relName, 0, Integer, 64)
	require.NoError(t, err)
	defer ix2.Close()

	assert.Equal(t, 3000, scanCount(t, ix2, 0, GTE, 2999, LTE))
	assert.Equal(t, 100, scanCount(t, ix2, 100, GTE, 200, LT))
}

func TestIndex_Reopen_After_Root_Promotion_Finds_The_New_Root(t *testing.T) {
	n := (InternalCapacity + 4) * (LeafCapacity / 2)
	relName := buildRelation(t, ascending(n))

	ix, err := Open(relName, 0, Integer, 64)
	require.NoError(t, err)
	indexName := ix.Name()
	defer common.Remove(indexName)
	promoted := ix.rootPageNum
	require.NoError(t, ix.Close())

	ix2, err := Open(relName, 0, Integer, 64)
	require.NoError(t, err)
	defer ix2.Close()

	assert.Equal(t, promoted, ix2.rootPageNum)
	assert.Equal(t, n, scanCount(t, ix2, -1, GT, int64(n), LT))
}

func TestIndex_Open_Rejects_Mismatching_Metadata(t *testing.T) {
	relName := buildRelation(t, ascending(10))

	ix, err := Open(relName, 0, Integer, 16)
	require.NoError(t, err)
	defer common.Remove(ix.Name())
	require.NoError(t, ix.Close())

	_, err = Open(relName, 0, Double, 16)
	assert.ErrorIs(t, err, ErrBadIndexInfo)
}

func TestIndex_Open_Fails_Without_The_Relation(t *testing.T) {
	id, _ := uuid.NewUUID()
	missing := id.String()
	defer common.Remove(fmt.Sprintf("%s.0", missing))

	_, err := Open(missing, 0, Integer, 16)
	assert.Error(t, err)
}

func TestIndex_Close_Ends_A_Live_Scan(t *testing.T) {
	ix := newTestIndex(t, 16)
	insertAll(ix, ascending(100))

	require.NoError(t, ix.StartScan(10, GTE, 50, LTE))
	_, err := ix.ScanNext()
	require.NoError(t, err)

	require.NoError(t, ix.Close())
	assert.False(t, ix.scanExecuting)
}

func TestIndex_Empty_Relation_Builds_An_Empty_Tree(t *testing.T) {
	relName := buildRelation(t, nil)

	ix, err := Open(relName, 0, Integer, 16)
	require.NoError(t, err)
	defer common.Remove(ix.Name())
	defer ix.Close()

	err = ix.StartScan(0, GTE, 1000, LTE)
	assert.ErrorIs(t, err, ErrNoSuchKeyFound)
}
