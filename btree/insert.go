package btree

import (
	"larch/common"
	"larch/heap"
)

// InsertEntry adds one (key, rid) pair. Duplicate keys are allowed and the
// tree grows as needed, so insertion always succeeds; a buffer-pool fault on
// this path is an invariant violation and panics.
func (ix *Index) InsertEntry(key int64, rid heap.RID) {
	ix.insert(key, ix.rootPageNum, rid)
}

func (ix *Index) insert(key int64, pid uint64, rid heap.RID) {
	p, err := ix.pool.GetPage(pid)
	common.PanicIfErr(err)

	if !isLeafPage(p.GetData()) {
		node := internalNode{p}
		if node.keyCount() == 0 {
			// fresh root: seed both leaves around the first key
			ix.seedRoot(node, pid, key, rid)
			common.PanicIfErr(ix.pool.Unpin(pid, true))
			return
		}

		ix.insert(key, node.childAt(node.findIndex(key)), rid)
		common.PanicIfErr(ix.pool.Unpin(pid, false))
		return
	}

	node := leafNode{p}
	if node.keyCount() < LeafCapacity {
		node.insert(key, rid)
	} else {
		ix.leafSplitInsert(key, pid, rid)
	}
	common.PanicIfErr(ix.pool.Unpin(pid, true))
}

// seedRoot turns the empty root into a one-separator node over two fresh
// leaves. The separator is key+1 so that the seed key sorts into the left
// leaf and everything from key+1 upward into the right one.
func (ix *Index) seedRoot(root internalNode, rootPid uint64, key int64, rid heap.RID) {
	lp, err := ix.pool.NewPage()
	common.PanicIfErr(err)
	rp, err := ix.pool.NewPage()
	common.PanicIfErr(err)

	left := leafNode{lp}
	left.setHeader(&leafHeader{
		IsLeaf:   1,
		KeyCount: 1,
		RightSib: rp.GetPageId(),
		Parent:   rootPid,
	})
	left.setKeyAt(0, key)
	left.setRidAt(0, rid)

	right := leafNode{rp}
	right.setHeader(&leafHeader{
		IsLeaf:   1,
		KeyCount: 0,
		RightSib: 0,
		Parent:   rootPid,
	})

	root.setLevel(1)
	root.setKeyCount(1)
	root.setKeyAt(0, key+1)
	root.setChildAt(0, lp.GetPageId())
	root.setChildAt(1, rp.GetPageId())

	common.PanicIfErr(ix.pool.Unpin(lp.GetPageId(), true))
	common.PanicIfErr(ix.pool.Unpin(rp.GetPageId(), true))
}

// leafSplitInsert splits the full leaf at pid, splices the new right half
// into the sibling chain, places the pending entry in whichever half it
// routes to, and merges a one-separator stub over the two halves into the
// leaf's previous parent.
func (ix *Index) leafSplitInsert(key int64, pid uint64, rid heap.RID) {
	p, err := ix.pool.GetPage(pid)
	common.PanicIfErr(err)
	node := leafNode{p}

	middle := LeafCapacity / 2

	np, err := ix.pool.NewPage()
	common.PanicIfErr(err)
	newLeaf := leafNode{np}
	newLeaf.setHeader(&leafHeader{
		IsLeaf:   1,
		KeyCount: int16(LeafCapacity - middle),
		RightSib: node.rightSib(),
		Parent:   0,
	})
	copy(np.GetData()[leafHeaderSize:], p.GetData()[leafHeaderSize+middle*leafEntrySize:leafHeaderSize+LeafCapacity*leafEntrySize])

	node.setKeyCount(middle)
	node.setRightSib(np.GetPageId())

	sp, err := ix.pool.NewPage()
	common.PanicIfErr(err)
	stub := internalNode{sp}
	stub.setHeader(&internalHeader{IsLeaf: 0, Level: 1, KeyCount: 1, Parent: 0})
	stub.setKeyAt(0, newLeaf.keyAt(0))
	stub.setChildAt(0, pid)
	stub.setChildAt(1, np.GetPageId())

	// the parent the stub merges into, remembered before reparenting
	oldParent := node.parent()
	node.setParent(sp.GetPageId())
	newLeaf.setParent(sp.GetPageId())

	if key < stub.keyAt(0) {
		node.insert(key, rid)
	} else {
		newLeaf.insert(key, rid)
	}

	ix.combine(sp.GetPageId(), oldParent)

	common.PanicIfErr(ix.pool.Unpin(pid, true))
	common.PanicIfErr(ix.pool.Unpin(np.GetPageId(), true))
	common.PanicIfErr(ix.pool.Unpin(sp.GetPageId(), true))
}

// combine merges the one-separator stub at stubPid into the internal node at
// parentPid. Either the parent has room (the separator and its two children
// splice in and the children are reparented), or the parent splits around its
// middle key and the promotion recurses until a parent fits or a new root is
// made.
func (ix *Index) combine(stubPid, parentPid uint64) {
	sp, err := ix.pool.GetPage(stubPid)
	common.PanicIfErr(err)
	pp, err := ix.pool.GetPage(parentPid)
	common.PanicIfErr(err)

	stub := internalNode{sp}
	parent := internalNode{pp}

	key := stub.keyAt(0)
	left := stub.childAt(0)
	right := stub.childAt(1)

	if parent.keyCount() < InternalCapacity {
		i := parent.findIndex(key)
		parent.insertSeparatorAt(i, key, left, right)

		leaves := stub.level() == 1
		ix.setParentOf(left, leaves, parentPid)
		ix.setParentOf(right, leaves, parentPid)
	} else {
		ix.splitAndCombine(parent, parentPid, key, left, right)
	}

	common.PanicIfErr(ix.pool.Unpin(stubPid, false))
	common.PanicIfErr(ix.pool.Unpin(parentPid, true))
}

// splitAndCombine is the full-parent half of combine: split parent at its
// middle separator, place the pending (key, left, right) triple into the half
// the promoted key routes it to, fix every child's parent pointer, and push
// the promoted separator up -- into a brand-new root when parent was the root.
func (ix *Index) splitAndCombine(parent internalNode, parentPid uint64, key int64, left, right uint64) {
	np, err := ix.pool.NewPage()
	common.PanicIfErr(err)
	newNode := internalNode{np}

	gp, err := ix.pool.NewPage()
	common.PanicIfErr(err)
	newParent := internalNode{gp}

	splitIndex := InternalCapacity / 2
	promoted := parent.keyAt(splitIndex)

	newNode.setHeader(&internalHeader{
		IsLeaf:   0,
		Level:    int16(parent.level()),
		KeyCount: int16(InternalCapacity - splitIndex - 1),
		Parent:   0,
	})
	newNode.setChildAt(0, parent.childAt(splitIndex+1))
	copy(np.GetData()[keyOff(0):], parent.p.GetData()[keyOff(splitIndex+1):keyOff(InternalCapacity)])

	newParent.setHeader(&internalHeader{IsLeaf: 0, Level: 0, KeyCount: 1, Parent: 0})
	newParent.setKeyAt(0, promoted)
	newParent.setChildAt(0, parentPid)
	newParent.setChildAt(1, np.GetPageId())

	parent.setKeyCount(splitIndex)

	// the pending separator routes against the promoted key; both halves have
	// just been halved, so this insert cannot overflow
	addNode := parent
	if key >= promoted {
		addNode = newNode
	}
	addNode.insertSeparatorAt(addNode.findIndex(key), key, left, right)

	leaves := parent.level() == 1
	for i := 0; i <= parent.keyCount(); i++ {
		ix.setParentOf(parent.childAt(i), leaves, parentPid)
	}
	for i := 0; i <= newNode.keyCount(); i++ {
		ix.setParentOf(newNode.childAt(i), leaves, np.GetPageId())
	}

	oldParent := parent.parent()
	parent.setParent(gp.GetPageId())
	newNode.setParent(gp.GetPageId())

	if oldParent == 0 {
		// parent was the root: the new parent takes over
		newParent.setParent(0)
		ix.setRoot(gp.GetPageId())
	} else {
		ix.combine(gp.GetPageId(), oldParent)
	}

	common.PanicIfErr(ix.pool.Unpin(np.GetPageId(), true))
	common.PanicIfErr(ix.pool.Unpin(gp.GetPageId(), true))
}

// setParentOf rewrites the parent back-pointer of the child page, which is a
// leaf exactly when the node above it has level 1.
func (ix *Index) setParentOf(childPid uint64, isLeafChild bool, parentPid uint64) {
	cp, err := ix.pool.GetPage(childPid)
	common.PanicIfErr(err)

	if isLeafChild {
		leafNode{cp}.setParent(parentPid)
	} else {
		internalNode{cp}.setParent(parentPid)
	}

	common.PanicIfErr(ix.pool.Unpin(childPid, true))
}

// setRoot records a promoted root both in memory and on the metadata page.
func (ix *Index) setRoot(pid uint64) {
	mp, err := ix.pool.GetPage(ix.headerPageNum)
	common.PanicIfErr(err)

	meta := readMeta(mp.GetData())
	meta.RootPageNo = pid
	writeMeta(meta, mp.GetData())

	ix.rootPageNum = pid
	common.PanicIfErr(ix.pool.Unpin(ix.headerPageNum, true))
}
