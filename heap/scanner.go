package heap

import "encoding/binary"

// Scan walks the relation's data pages in physical order and yields one rid
// per record. Record bytes are fetched per rid with File.Get, so the scan
// itself holds no pin between Next calls.
type Scan struct {
	f        *File
	pageNo   uint64
	slot     int
	lastPage uint64
}

// NewScan positions a forward scan before the first record.
func (f *File) NewScan() (*Scan, error) {
	last, err := f.lastDataPage()
	if err != nil {
		return nil, err
	}

	return &Scan{
		f:        f,
		pageNo:   firstDataPage,
		slot:     0,
		lastPage: last,
	}, nil
}

// Next returns the rid of the next record, or ErrEndOfFile when the relation
// is exhausted.
func (s *Scan) Next() (RID, error) {
	for {
		if s.lastPage == 0 || s.pageNo > s.lastPage {
			return RID{}, ErrEndOfFile
		}

		dp, err := s.f.pool.GetPage(s.pageNo)
		if err != nil {
			return RID{}, err
		}
		n := int(binary.BigEndian.Uint16(dp.GetData()))
		if err := s.f.pool.Unpin(s.pageNo, false); err != nil {
			return RID{}, err
		}

		if s.slot < n {
			rid := RID{PageNo: s.pageNo, SlotNo: uint16(s.slot)}
			s.slot++
			return rid, nil
		}

		s.pageNo++
		s.slot = 0
	}
}
