package memflow

// MemoryViewBatcher queues multiple logical read/write requests and
// flushes them in a single ReadRawIter/WriteRawIter call each, amortising
// the per-page-table-walk overhead across many small requests.
type MemoryViewBatcher struct {
	view   *View
	reads  []batchItem
	writes []batchItem
}

type batchItem struct {
	addr   Address
	buf    []byte
	onDone func(error)
}

// Batcher returns a new, empty batch accumulator bound to v.
func (v *View) Batcher() *MemoryViewBatcher { return &MemoryViewBatcher{view: v} }

// Read queues a read of len(out) bytes at addr. onDone, if non-nil, is
// invoked once Flush runs with nil on success or the attributed error on
// failure.
func (b *MemoryViewBatcher) Read(addr Address, out []byte, onDone func(error)) *MemoryViewBatcher {
	b.reads = append(b.reads, batchItem{addr: addr, buf: out, onDone: onDone})
	return b
}

// Write queues a write of data to addr.
func (b *MemoryViewBatcher) Write(addr Address, data []byte, onDone func(error)) *MemoryViewBatcher {
	b.writes = append(b.writes, batchItem{addr: addr, buf: data, onDone: onDone})
	return b
}

// Flush issues the queued reads (in one ReadRawIter call) and then the
// queued writes (in one WriteRawIter call), clearing the queues. It
// returns a non-nil error if either batch reported any partial failure.
func (b *MemoryViewBatcher) Flush() error {
	var firstErr error

	if len(b.reads) > 0 {
		failed := make([]bool, len(b.reads))
		inp := make([]ReadRequest, len(b.reads))
		for i, it := range b.reads {
			inp[i] = ReadRequest{Addr: it.addr, Out: it.buf}
		}
		err := b.view.ReadRawIter(ReadOps{
			Inp: inp,
			OnFailure: func(err error, addr Address, buf []byte) {
				if i := findBatchItem(b.reads, addr, len(buf)); i >= 0 {
					failed[i] = true
					if b.reads[i].onDone != nil {
						b.reads[i].onDone(err)
					}
				}
			},
		})
		for i, it := range b.reads {
			if !failed[i] && it.onDone != nil {
				it.onDone(nil)
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		b.reads = nil
	}

	if len(b.writes) > 0 {
		failed := make([]bool, len(b.writes))
		inp := make([]WriteRequest, len(b.writes))
		for i, it := range b.writes {
			inp[i] = WriteRequest{Addr: it.addr, In: it.buf}
		}
		err := b.view.WriteRawIter(WriteOps{
			Inp: inp,
			OnFailure: func(err error, addr Address, buf []byte) {
				if i := findBatchItem(b.writes, addr, len(buf)); i >= 0 {
					failed[i] = true
					if b.writes[i].onDone != nil {
						b.writes[i].onDone(err)
					}
				}
			},
		})
		for i, it := range b.writes {
			if !failed[i] && it.onDone != nil {
				it.onDone(nil)
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		b.writes = nil
	}

	return firstErr
}

// findBatchItem locates the queued item that a failure range [addr,
// addr+length) belongs to, by containment within the item's own range.
func findBatchItem(items []batchItem, addr Address, length int) int {
	end := uint64(addr) + uint64(length)
	for i, it := range items {
		if uint64(addr) >= uint64(it.addr) && end <= uint64(it.addr)+uint64(len(it.buf)) {
			return i
		}
	}
	return -1
}
