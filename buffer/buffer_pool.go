package buffer

import (
	"errors"
	"fmt"
	"sync"

	"larch/disk"
	"larch/disk/pages"
)

// ErrPageNotPinned is returned by Unpin when the page is not resident or its
// pin count is already zero. Teardown paths tolerate it.
var ErrPageNotPinned = errors.New("page is not pinned")

type frame struct {
	page *pages.RawPage
}

// Pool keeps a fixed number of page frames over one page file. Callers pin
// pages with GetPage/NewPage and must release every pin with Unpin, passing
// dirty=true when the buffer was mutated. A dirty page is written back when
// its frame is evicted or on FlushAll.
type Pool struct {
	poolSize    int
	frames      []*frame
	pageMap     map[uint64]int // physical page id => frame index holding that page
	emptyFrames []int
	Replacer    IReplacer
	DiskManager *disk.Manager
	lock        sync.Mutex
}

// NewPool opens or creates the page file and wraps it with a pool of poolSize
// frames. The second return value reports whether the file was created.
func NewPool(dbFile string, poolSize int) (*Pool, bool, error) {
	d, created, err := disk.NewManager(dbFile)
	if err != nil {
		return nil, false, err
	}

	emptyFrames := make([]int, poolSize)
	for i := 0; i < poolSize; i++ {
		emptyFrames[i] = i
	}

	return &Pool{
		poolSize:    poolSize,
		frames:      make([]*frame, poolSize),
		pageMap:     map[uint64]int{},
		emptyFrames: emptyFrames,
		Replacer:    NewClockReplacer(poolSize),
		DiskManager: d,
	}, created, nil
}

func (b *Pool) GetPage(pageId uint64) (*pages.RawPage, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if frameIdx, ok := b.pageMap[pageId]; ok {
		b.pin(pageId)
		return b.frames[frameIdx].page, nil
	}

	frameIdx, err := b.reserveFrame()
	if err != nil {
		return nil, err
	}

	p := b.frames[frameIdx].page
	if err := b.DiskManager.ReadPage(pageId, p.GetData()); err != nil {
		b.emptyFrames = append(b.emptyFrames, frameIdx)
		return nil, fmt.Errorf("ReadPage failed: %w", err)
	}

	p.PageId = pageId
	b.pageMap[pageId] = frameIdx
	b.pin(pageId)
	return p, nil
}

func (b *Pool) NewPage() (*pages.RawPage, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameIdx, err := b.reserveFrame()
	if err != nil {
		return nil, err
	}

	pageId := b.DiskManager.NewPage()
	p := b.frames[frameIdx].page
	p.Clear()
	p.PageId = pageId

	b.pageMap[pageId] = frameIdx
	b.pin(pageId)
	p.SetDirty()
	return p, nil
}

func (b *Pool) Unpin(pageId uint64, isDirty bool) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameIdx, ok := b.pageMap[pageId]
	if !ok {
		return ErrPageNotPinned
	}

	frame := b.frames[frameIdx]
	if frame.page.GetPinCount() <= 0 {
		return ErrPageNotPinned
	}

	if isDirty {
		frame.page.SetDirty()
	}

	frame.page.DecrPinCount()
	if frame.page.GetPinCount() == 0 {
		b.Replacer.Unpin(frameIdx)
	}

	return nil
}

// FlushAll writes every dirty resident page back to the file.
func (b *Pool) FlushAll() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for pid, frameIdx := range b.pageMap {
		p := b.frames[frameIdx].page
		if !p.IsDirty() {
			continue
		}
		if err := b.DiskManager.WritePage(p.GetData(), pid); err != nil {
			return err
		}
		p.SetClean()
	}
	return nil
}

func (b *Pool) Close() error {
	if err := b.FlushAll(); err != nil {
		return err
	}
	return b.DiskManager.Close()
}

func (b *Pool) EmptyFrameSize() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.emptyFrames)
}

// PinnedPageCount reports how many frames currently hold a pin. Zero after a
// public operation completes means no pin leaked.
func (b *Pool) PinnedPageCount() int {
	return b.Replacer.NumPinnedPages()
}

// pin increments the page's pin count and pins its frame so the replacer
// cannot choose it as victim.
func (b *Pool) pin(pageId uint64) {
	frameIdx, ok := b.pageMap[pageId]
	if !ok {
		panic(fmt.Sprintf("pinned a page which does not exist: %v", pageId))
	}

	b.frames[frameIdx].page.IncrPinCount()
	b.Replacer.Pin(frameIdx)
}

// reserveFrame returns a frame index ready to receive a page, evicting a
// victim when no frame is empty. The returned frame is not in the page map.
func (b *Pool) reserveFrame() (int, error) {
	if len(b.emptyFrames) > 0 {
		frameIdx := b.emptyFrames[0]
		b.emptyFrames = b.emptyFrames[1:]
		if b.frames[frameIdx] == nil {
			b.frames[frameIdx] = &frame{page: pages.NewRawPage(0)}
		}
		return frameIdx, nil
	}

	victimIdx, err := b.Replacer.ChooseVictim()
	if err != nil {
		return 0, err
	}

	victim := b.frames[victimIdx]
	if victim.page.GetPinCount() != 0 {
		panic(fmt.Sprintf("a page is chosen as victim while its pin count is not zero. pin count: %v, page_id: %v", victim.page.GetPinCount(), victim.page.GetPageId()))
	}

	delete(b.pageMap, victim.page.GetPageId())
	if victim.page.IsDirty() {
		if err := b.DiskManager.WritePage(victim.page.GetData(), victim.page.GetPageId()); err != nil {
			b.pageMap[victim.page.GetPageId()] = victimIdx
			return 0, err
		}
		victim.page.SetClean()
	}

	return victimIdx, nil
}
