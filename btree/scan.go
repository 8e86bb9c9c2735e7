package btree

import (
	"errors"
	"sort"

	"larch/buffer"
	"larch/heap"
)

// StartScan descends from the root to the first leaf entry satisfying the low
// bound and keeps that leaf pinned until EndScan. When no entry satisfies
// both bounds the scan is ended and ErrNoSuchKeyFound returned.
func (ix *Index) StartScan(lowVal int64, lowOp Operator, highVal int64, highOp Operator) error {
	if lowOp != GT && lowOp != GTE {
		return ErrBadOpcodes
	}
	if highOp != LT && highOp != LTE {
		return ErrBadOpcodes
	}
	if lowVal > highVal {
		return ErrBadScanRange
	}

	ix.lowVal, ix.highVal = lowVal, highVal
	ix.lowOp, ix.highOp = lowOp, highOp
	ix.scanExecuting = true

	// the metadata page is the authoritative record of the current root
	mp, err := ix.pool.GetPage(ix.headerPageNum)
	if err != nil {
		return err
	}
	ix.currentPageNum = readMeta(mp.GetData()).RootPageNo
	if err := ix.pool.Unpin(ix.headerPageNum, false); err != nil {
		return err
	}

	if err := ix.descendToLeaf(); err != nil {
		return err
	}
	if err := ix.positionInLeaf(); err != nil {
		return err
	}

	node := leafNode{ix.currentPage}
	rid := node.ridAt(ix.nextEntry)
	key := node.keyAt(ix.nextEntry)
	if (rid == heap.RID{}) || key > ix.highVal || (key == ix.highVal && ix.highOp == LT) {
		if err := ix.EndScan(); err != nil {
			return err
		}
		return ErrNoSuchKeyFound
	}
	return nil
}

// descendToLeaf pins pages from the root downward, always pinning the child
// before releasing its parent. A child pointer of 0 occurs only in the
// never-seeded empty tree; the reserved zero page it leads to reads as an
// exhausted leaf, so the usual sentinel checks terminate the scan.
func (ix *Index) descendToLeaf() error {
	p, err := ix.pool.GetPage(ix.currentPageNum)
	if err != nil {
		return err
	}
	ix.currentPage = p

	for ix.currentPageNum != 0 && !isLeafPage(ix.currentPage.GetData()) {
		node := internalNode{ix.currentPage}
		child := node.childAt(node.findIndex(ix.lowVal))

		cp, err := ix.pool.GetPage(child)
		if err != nil {
			return err
		}
		if err := ix.pool.Unpin(ix.currentPageNum, false); err != nil {
			return err
		}
		ix.currentPageNum, ix.currentPage = child, cp
	}
	return nil
}

// positionInLeaf finds the first entry in the pinned leaf that satisfies the
// low bound. When every key falls below it the scan moves to the right
// sibling, whose first entry either qualifies or trips the sentinel check.
func (ix *Index) positionInLeaf() error {
	node := leafNode{ix.currentPage}
	count := node.keyCount()

	i := sort.Search(count, func(i int) bool {
		if ix.lowOp == GTE {
			return node.keyAt(i) >= ix.lowVal
		}
		return node.keyAt(i) > ix.lowVal
	})
	if i < count {
		ix.nextEntry = i
		return nil
	}

	return ix.moveToRightSibling(node)
}

// moveToRightSibling swaps the held pin to the next leaf in the chain. At the
// end of the chain the sibling pointer is 0 and the reserved zero page takes
// over as an exhausted leaf.
func (ix *Index) moveToRightSibling(node leafNode) error {
	next := node.rightSib()

	np, err := ix.pool.GetPage(next)
	if err != nil {
		return err
	}
	if err := ix.pool.Unpin(ix.currentPageNum, false); err != nil {
		return err
	}

	ix.currentPageNum, ix.currentPage = next, np
	ix.nextEntry = 0
	return nil
}

// ScanNext yields the rid of the next qualifying entry. Past the last one it
// returns ErrIndexScanCompleted and leaves the scan active; the caller still
// owns EndScan.
func (ix *Index) ScanNext() (heap.RID, error) {
	if !ix.scanExecuting {
		return heap.RID{}, ErrScanNotInitialized
	}

	node := leafNode{ix.currentPage}
	rid := node.ridAt(ix.nextEntry)
	key := node.keyAt(ix.nextEntry)

	if (rid == heap.RID{}) || key > ix.highVal || (key == ix.highVal && ix.highOp == LT) {
		return heap.RID{}, ErrIndexScanCompleted
	}

	ix.nextEntry++
	if ix.nextEntry >= node.keyCount() || node.ridAt(ix.nextEntry).PageNo == 0 {
		if err := ix.moveToRightSibling(node); err != nil {
			return heap.RID{}, err
		}
	}
	return rid, nil
}

// EndScan releases the held leaf pin and clears the scan state.
func (ix *Index) EndScan() error {
	if !ix.scanExecuting {
		return ErrScanNotInitialized
	}
	ix.scanExecuting = false

	err := ix.pool.Unpin(ix.currentPageNum, false)
	if err != nil && !errors.Is(err, buffer.ErrPageNotPinned) {
		return err
	}
	ix.currentPage = nil
	return nil
}
