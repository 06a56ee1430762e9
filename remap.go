package memflow

import (
	"errors"
	"sort"
)

// MemRange is a contiguous span [Base, Base+Length) of a remapped view's
// own address space that corresponds to [RemoteBase, RemoteBase+Length)
// in the underlying view.
type MemRange struct {
	Base       Address
	RemoteBase Address
	Length     uint64
}

// MemoryMap is an ordered, non-overlapping set of MemRange entries used to
// present a restricted or translated window onto an existing view:
// carving a single contiguous module out of a larger address space, or
// splicing several discontiguous physical regions into one linear range.
type MemoryMap struct {
	ranges []MemRange
}

// NewMemoryMap builds a MemoryMap from ranges, sorted by Base. Overlapping
// entries are not rejected; Lookup returns the first match in Base order.
func NewMemoryMap(ranges ...MemRange) *MemoryMap {
	mm := &MemoryMap{ranges: append([]MemRange(nil), ranges...)}
	sort.Slice(mm.ranges, func(i, j int) bool { return mm.ranges[i].Base < mm.ranges[j].Base })
	return mm
}

// Lookup finds the range containing addr and returns the corresponding
// remote address plus how many bytes from addr remain valid within that
// range (capped at the caller-supplied length). ok is false if addr falls
// outside every range.
func (mm *MemoryMap) Lookup(addr Address, length int) (remote Address, n int, ok bool) {
	for _, r := range mm.ranges {
		if uint64(addr) < uint64(r.Base) || uint64(addr) >= uint64(r.Base)+r.Length {
			continue
		}
		off := uint64(addr) - uint64(r.Base)
		avail := r.Length - off
		n = length
		if uint64(n) > avail {
			n = int(avail)
		}
		return r.RemoteBase.Add(off), n, true
	}
	return InvalidAddress, 0, false
}

// remapPrimitives translates every request through a MemoryMap before
// forwarding it to the underlying view, splitting any request that spans
// a range boundary or falls partly outside the map.
type remapPrimitives struct {
	base Primitives
	mm   *MemoryMap
}

// RemapView returns a view that presents mm's ranges as its own address
// space, backed by v for the actual reads and writes.
func (v *View) RemapView(mm *MemoryMap) *View {
	return NewView(&remapPrimitives{base: v.Primitives, mm: mm})
}

// remapChunk remembers which local address a translated request's remote
// range came from, so a success/failure reported against the remote
// address can be attributed back to the caller's own address space.
type remapChunk struct {
	local, remote Address
	length        int
}

func localAddrFor(chunks []remapChunk, remote Address, buf []byte) Address {
	end := uint64(remote) + uint64(len(buf))
	for _, c := range chunks {
		if uint64(remote) >= uint64(c.remote) && end <= uint64(c.remote)+uint64(c.length) {
			return c.local.Add(uint64(remote) - uint64(c.remote))
		}
	}
	return remote
}

func (r *remapPrimitives) ReadRawIter(ops ReadOps) error {
	var translated []ReadRequest
	var chunks []remapChunk
	var ranges []FailedRange
	failed := 0
	total := 0

	for _, req := range ops.Inp {
		total += len(req.Out)
		remaining := req.Out
		cursor := req.Addr
		for len(remaining) > 0 {
			remote, n, ok := r.mm.Lookup(cursor, len(remaining))
			if !ok {
				chunk := remaining
				zero(chunk)
				ranges = append(ranges, FailedRange{VirtAddr: cursor, Length: len(chunk), Err: ErrOutOfBounds})
				failed += len(chunk)
				if ops.OnFailure != nil {
					ops.OnFailure(ErrOutOfBounds, cursor, chunk)
				}
				break
			}
			translated = append(translated, ReadRequest{Addr: remote, Out: remaining[:n]})
			chunks = append(chunks, remapChunk{local: cursor, remote: remote, length: n})
			remaining = remaining[n:]
			cursor = cursor.Add(uint64(n))
		}
	}

	if len(translated) > 0 {
		err := r.base.ReadRawIter(ReadOps{
			Inp: translated,
			OnSuccess: func(addr Address, buf []byte) {
				if ops.OnSuccess != nil {
					ops.OnSuccess(localAddrFor(chunks, addr, buf), buf)
				}
			},
			OnFailure: func(err error, addr Address, buf []byte) {
				local := localAddrFor(chunks, addr, buf)
				ranges = append(ranges, FailedRange{VirtAddr: local, PhysAddr: addr, Length: len(buf), Err: err})
				failed += len(buf)
				if ops.OnFailure != nil {
					ops.OnFailure(err, local, buf)
				}
			},
		})
		if err != nil && !errors.Is(err, ErrPartialRead) {
			return err
		}
	}

	if failed == 0 {
		return nil
	}
	return newPartialError(ErrPartialRead, ranges, total, failed)
}

func (r *remapPrimitives) WriteRawIter(ops WriteOps) error {
	var translated []WriteRequest
	var chunks []remapChunk
	var ranges []FailedRange
	failed := 0
	total := 0

	for _, req := range ops.Inp {
		total += len(req.In)
		remaining := req.In
		cursor := req.Addr
		for len(remaining) > 0 {
			remote, n, ok := r.mm.Lookup(cursor, len(remaining))
			if !ok {
				ranges = append(ranges, FailedRange{VirtAddr: cursor, Length: len(remaining), Err: ErrOutOfBounds})
				failed += len(remaining)
				if ops.OnFailure != nil {
					ops.OnFailure(ErrOutOfBounds, cursor, remaining)
				}
				break
			}
			translated = append(translated, WriteRequest{Addr: remote, In: remaining[:n]})
			chunks = append(chunks, remapChunk{local: cursor, remote: remote, length: n})
			remaining = remaining[n:]
			cursor = cursor.Add(uint64(n))
		}
	}

	if len(translated) > 0 {
		err := r.base.WriteRawIter(WriteOps{
			Inp: translated,
			OnSuccess: func(addr Address, buf []byte) {
				if ops.OnSuccess != nil {
					ops.OnSuccess(localAddrFor(chunks, addr, buf), buf)
				}
			},
			OnFailure: func(err error, addr Address, buf []byte) {
				local := localAddrFor(chunks, addr, buf)
				ranges = append(ranges, FailedRange{VirtAddr: local, PhysAddr: addr, Length: len(buf), Err: err})
				failed += len(buf)
				if ops.OnFailure != nil {
					ops.OnFailure(err, local, buf)
				}
			},
		})
		if err != nil && !errors.Is(err, ErrPartialWrite) {
			return err
		}
	}

	if failed == 0 {
		return nil
	}
	return newPartialError(ErrPartialWrite, ranges, total, failed)
}

func (r *remapPrimitives) Metadata() MemoryViewMetadata {
	m := r.base.Metadata()
	var max uint64
	for _, rg := range r.mm.ranges {
		end := uint64(rg.Base) + rg.Length
		if end > max {
			max = end
		}
	}
	m.MaxAddress = Address(max)
	m.RealSize = max
	return m
}
