package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larch/disk"
	"larch/disk/pages"
	"larch/heap"
)

func TestNode_Capacities_Fit_In_One_Page(t *testing.T) {
	assert.LessOrEqual(t, leafHeaderSize+LeafCapacity*leafEntrySize, disk.PageSize)
	assert.LessOrEqual(t, internalHeaderSize+pointerSize+InternalCapacity*internalPairSize, disk.PageSize)

	// split arithmetic assumes at least a handful of entries per node
	assert.Greater(t, LeafCapacity, 4)
	assert.Greater(t, InternalCapacity, 4)
}

func TestLeaf_Insert_Keeps_Entries_Sorted(t *testing.T) {
	n := leafNode{pages.NewRawPage(7)}
	n.setHeader(&leafHeader{IsLeaf: 1})

	for _, k := range []int64{5, 1, 9, 3, 7, -2} {
		n.insert(k, heap.RID{PageNo: uint64(k + 100), SlotNo: 1})
	}

	require.Equal(t, 6, n.keyCount())
	want := []int64{-2, 1, 3, 5, 7, 9}
	for i, k := range want {
		assert.Equal(t, k, n.keyAt(i))
		assert.Equal(t, heap.RID{PageNo: uint64(k + 100), SlotNo: 1}, n.ridAt(i))
	}
}

func TestLeaf_Insert_Places_Duplicates_After_Their_Equals(t *testing.T) {
	n := leafNode{pages.NewRawPage(7)}
	n.setHeader(&leafHeader{IsLeaf: 1})

	n.insert(4, heap.RID{PageNo: 10, SlotNo: 0})
	n.insert(4, heap.RID{PageNo: 11, SlotNo: 0})
	n.insert(4, heap.RID{PageNo: 12, SlotNo: 0})

	assert.Equal(t, heap.RID{PageNo: 10}, n.ridAt(0))
	assert.Equal(t, heap.RID{PageNo: 11}, n.ridAt(1))
	assert.Equal(t, heap.RID{PageNo: 12}, n.ridAt(2))
}

func TestLeaf_Header_Is_Read_Back_From_The_Page(t *testing.T) {
	p := pages.NewRawPage(7)
	n := leafNode{p}
	n.setHeader(&leafHeader{IsLeaf: 1, KeyCount: 3, RightSib: 42, Parent: 9})

	assert.True(t, isLeafPage(p.GetData()))
	assert.Equal(t, 3, n.keyCount())
	assert.Equal(t, uint64(42), n.rightSib())
	assert.Equal(t, uint64(9), n.parent())

	h := n.header()
	assert.Equal(t, int16(3), h.KeyCount)
	assert.Equal(t, uint64(42), h.RightSib)
}

func TestInternal_Separator_Insert_Shifts_Keys_And_Children(t *testing.T) {
	n := internalNode{pages.NewRawPage(7)}
	n.setHeader(&internalHeader{IsLeaf: 0, Level: 1})
	n.setChildAt(0, 100)

	n.insertSeparatorAt(0, 50, 100, 101) // children [100, 101]
	n.insertSeparatorAt(1, 70, 101, 102) // children [100, 101, 102]

	// splice 60 in the middle: child 101 splits into 201, 202
	i := n.findIndex(60)
	require.Equal(t, 1, i)
	n.insertSeparatorAt(i, 60, 201, 202)

	require.Equal(t, 3, n.keyCount())
	assert.Equal(t, []int64{50, 60, 70}, []int64{n.keyAt(0), n.keyAt(1), n.keyAt(2)})
	assert.Equal(t, uint64(100), n.childAt(0))
	assert.Equal(t, uint64(201), n.childAt(1))
	assert.Equal(t, uint64(202), n.childAt(2))
	assert.Equal(t, uint64(102), n.childAt(3))
}

func TestInternal_FindIndex_Treats_Separators_As_Exclusive_Upper_Bounds(t *testing.T) {
	n := internalNode{pages.NewRawPage(7)}
	n.setHeader(&internalHeader{IsLeaf: 0, Level: 1})
	n.setChildAt(0, 100)
	n.insertSeparatorAt(0, 10, 100, 101)
	n.insertSeparatorAt(1, 20, 101, 102)

	assert.Equal(t, 0, n.findIndex(5))
	assert.Equal(t, 0, n.findIndex(9))
	assert.Equal(t, 1, n.findIndex(10)) // equal keys belong to the right subtree
	assert.Equal(t, 1, n.findIndex(15))
	assert.Equal(t, 2, n.findIndex(20))
	assert.Equal(t, 2, n.findIndex(99))
}

func TestInternal_Header_Level_Discriminates_Child_Kind(t *testing.T) {
	p := pages.NewRawPage(7)
	n := internalNode{p}
	n.setHeader(&internalHeader{IsLeaf: 0, Level: 1, KeyCount: 0, Parent: 3})

	assert.False(t, isLeafPage(p.GetData()))
	assert.Equal(t, 1, n.level())
	assert.Equal(t, uint64(3), n.parent())

	n.setLevel(0)
	assert.Equal(t, 0, n.level())
}
