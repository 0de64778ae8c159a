package protocol

import (
	"sync/atomic"

	"github.com/fansqz/dapclient/errs"
)

// SeqAllocator yields the seq field shared by every outbound request,
// starting at 1 and incrementing after each allocation. It is the primary
// response-correlation key for the whole session.
type SeqAllocator struct {
	next int64
}

// NewSeqAllocator returns an allocator whose first Next() call returns 1.
func NewSeqAllocator() *SeqAllocator {
	return &SeqAllocator{next: 1}
}

// Next allocates the next seq. Overflowing the 32-bit range is a fatal
// protocol error — in practice unreachable, since it would take over two
// billion requests in a single session.
func (s *SeqAllocator) Next() (int, error) {
	v := atomic.AddInt64(&s.next, 1) - 1
	if v > 0x7fffffff {
		return 0, errs.ErrSeqOverflow
	}
	return int(v), nil
}
