package pages

import "larch/disk"

// RawPage is the in-memory frame of one physical page. The buffer pool tracks
// a pin count and a dirty flag on it; all node views operate directly on Data.
type RawPage struct {
	PageId   uint64
	pinCount int
	isDirty  bool
	Data     []byte
}

func NewRawPage(pageId uint64) *RawPage {
	return &RawPage{
		PageId: pageId,
		Data:   make([]byte, disk.PageSize),
	}
}

func (p *RawPage) GetData() []byte {
	return p.Data
}

func (p *RawPage) GetPageId() uint64 {
	return p.PageId
}

func (p *RawPage) GetPinCount() int {
	return p.pinCount
}

func (p *RawPage) IncrPinCount() {
	p.pinCount++
}

func (p *RawPage) DecrPinCount() {
	p.pinCount--
}

func (p *RawPage) IsDirty() bool {
	return p.isDirty
}

func (p *RawPage) SetDirty() {
	p.isDirty = true
}

func (p *RawPage) SetClean() {
	p.isDirty = false
}

// Clear zeroes the frame so a reused victim frame never leaks the previous
// page's bytes into a freshly allocated page.
func (p *RawPage) Clear() {
	for i := range p.Data {
		p.Data[i] = 0
	}
}
