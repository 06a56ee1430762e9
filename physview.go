package memflow

// PhysicalView adapts a PhysicalMemory provider directly into a
// MemoryView Primitives implementation, so raw physical dumps can be
// consumed through the exact same helper surface as a translated guest
// virtual address space.
type PhysicalView struct {
	Mem PhysicalMemory
}

// NewPhysicalView wraps mem with the full MemoryView helper surface.
func NewPhysicalView(mem PhysicalMemory) *View {
	return NewView(&PhysicalView{Mem: mem})
}

func (p *PhysicalView) ReadRawIter(ops ReadOps) error {
	reqs := make([]PhysReadRequest, len(ops.Inp))
	for i, r := range ops.Inp {
		reqs[i] = PhysReadRequest{Addr: r.Addr, Out: &Bytes{Buf: r.Out}}
	}
	fails := p.Mem.PhysReadIter(reqs)
	return reportPhysFailures(ops.Inp, fails, ops.OnSuccess, ops.OnFailure, ErrPartialRead)
}

func (p *PhysicalView) WriteRawIter(ops WriteOps) error {
	reqs := make([]PhysWriteRequest, len(ops.Inp))
	for i, r := range ops.Inp {
		reqs[i] = PhysWriteRequest{Addr: r.Addr, In: &BytesRef{Buf: r.In}}
	}
	fails := p.Mem.PhysWriteIter(reqs)
	return reportWriteFailures(ops.Inp, fails, ops.OnSuccess, ops.OnFailure, ErrPartialWrite)
}

func (p *PhysicalView) Metadata() MemoryViewMetadata {
	m := p.Mem.Metadata()
	return MemoryViewMetadata{
		MaxAddress: m.MaxAddress,
		RealSize:   m.RealSize,
		Readonly:   m.Readonly,
		// A raw physical dump has no architecture of its own; default to
		// the overwhelmingly common case and let callers who know better
		// correct it with OverlayArchParts/vmem.OverlayArch.
		LittleEndian: true,
		ArchBits:     64,
	}
}

// reportPhysFailures attributes each PhysFailure back to the ReadRequest it
// came from (by containment, since a provider may report a failure for a
// sub-range of a larger request), zeroes and reports each failed range via
// the OnFailure callback, and returns ErrPartialRead/ErrPartialWrite iff
// any failure occurred.
func reportPhysFailures(inp []ReadRequest, fails []PhysFailure, onSuccess func(Address, []byte), onFailure func(error, Address, []byte), status error) error {
	if len(fails) == 0 {
		if onSuccess != nil {
			for _, r := range inp {
				onSuccess(r.Addr, r.Out)
			}
		}
		return nil
	}
	for _, r := range inp {
		rngs := overlapping(r.Addr, len(r.Out), fails)
		if len(rngs) == 0 {
			if onSuccess != nil {
				onSuccess(r.Addr, r.Out)
			}
			continue
		}
		for _, f := range rngs {
			sub := sliceFor(r, f)
			zero(sub)
			if onFailure != nil {
				onFailure(f.Err, f.Addr, sub)
			}
		}
	}
	return status
}

func reportWriteFailures(inp []WriteRequest, fails []PhysFailure, onSuccess func(Address, []byte), onFailure func(error, Address, []byte), status error) error {
	if len(fails) == 0 {
		if onSuccess != nil {
			for _, r := range inp {
				onSuccess(r.Addr, r.In)
			}
		}
		return nil
	}
	for _, r := range inp {
		rngs := overlapping(r.Addr, len(r.In), fails)
		if len(rngs) == 0 {
			if onSuccess != nil {
				onSuccess(r.Addr, r.In)
			}
			continue
		}
		for _, f := range rngs {
			sub := r.In[uint64(f.Addr)-uint64(r.Addr) : uint64(f.Addr)-uint64(r.Addr)+uint64(f.Length)]
			if onFailure != nil {
				onFailure(f.Err, f.Addr, sub)
			}
		}
	}
	return status
}

func overlapping(addr Address, length int, fails []PhysFailure) []PhysFailure {
	end := uint64(addr) + uint64(length)
	var out []PhysFailure
	for _, f := range fails {
		if uint64(f.Addr) >= uint64(addr) && uint64(f.Addr)+uint64(f.Length) <= end {
			out = append(out, f)
		}
	}
	return out
}

func sliceFor(r ReadRequest, f PhysFailure) []byte {
	off := uint64(f.Addr) - uint64(r.Addr)
	return r.Out[off : off+uint64(f.Length)]
}
