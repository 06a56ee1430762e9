// Package vmem adapts a scoped page-table translator onto a physical
// memory provider, producing a memflow.View over a guest's virtual
// address space. It is the only package that imports both memflow/mmu
// and memflow/arch, so the arch-by-identity overlay convenience lives
// here rather than in the dependency-free root package.
package vmem

import (
	"github.com/mkfyi/memflow"
	"github.com/mkfyi/memflow/arch"
	"github.com/mkfyi/memflow/mmu"
)

// virtualPrimitives implements memflow.Primitives by driving a page-table
// walk for every batched request and forwarding the translated physical
// ranges straight through to the backing PhysicalMemory.
type virtualPrimitives struct {
	mem        memflow.PhysicalMemory
	translator mmu.Scoped
	scratch    []byte
}

// New returns a View over the virtual address space defined by
// translator, backed by mem for the physical reads/writes a walk bottoms
// out in.
func New(mem memflow.PhysicalMemory, translator mmu.Scoped) *memflow.View {
	return memflow.NewView(&virtualPrimitives{mem: mem, translator: translator})
}

// OverlayArch wraps v so its Metadata() reports a's bit-width and
// endianness instead of v's own, without changing v's translation. Unlike
// memflow.View.OverlayArchParts (bits/endianness only), this overload
// accepts the architecture by identity, matching how Scoped itself
// identifies an address space.
func OverlayArch(v *memflow.View, a *arch.Descriptor) *memflow.View {
	return v.OverlayArchParts(a.Bits, a.Endianness == memflow.LittleEndian)
}

// taggedSegment pairs a SplittablePayload with the virtual address of its
// own first byte, adjusting that address across SplitAt so every fragment
// the walker produces still knows where it came from.
type taggedSegment struct {
	virt memflow.Address
	body memflow.SplittablePayload
}

func (t taggedSegment) Len() int { return t.body.Len() }

func (t taggedSegment) SplitAt(i int) (left, right memflow.SplittablePayload) {
	l, r := t.body.SplitAt(i)
	if l != nil {
		left = taggedSegment{virt: t.virt, body: l}
	}
	if r != nil {
		right = taggedSegment{virt: t.virt.Add(uint64(i)), body: r}
	}
	return left, right
}

func (p *virtualPrimitives) ReadRawIter(ops memflow.ReadOps) error {
	items := make([]mmu.WalkItem, 0, len(ops.Inp))
	for _, r := range ops.Inp {
		items = append(items, mmu.WalkItem{
			VirtAddr: r.Addr,
			Payload:  taggedSegment{virt: r.Addr, body: &memflow.Bytes{Buf: r.Out}},
		})
	}

	var physReqs []memflow.PhysReadRequest
	var segs []segment
	var ranges []memflow.FailedRange
	failed, total := 0, totalReadLen(ops.Inp)

	p.translator.VirtToPhysIter(p.mem, items,
		func(phys memflow.PhysicalAddress, payload memflow.SplittablePayload) {
			ts := payload.(taggedSegment)
			bp := ts.body.(*memflow.Bytes)
			physReqs = append(physReqs, memflow.PhysReadRequest{Addr: phys.Address, Out: bp})
			segs = append(segs, segment{virt: ts.virt, buf: bp.Buf})
		},
		func(err error, virt memflow.Address, payload memflow.SplittablePayload) {
			buf := segmentBytes(payload)
			zeroBytes(buf)
			ranges = append(ranges, memflow.FailedRange{VirtAddr: virt, Length: len(buf), Err: err})
			failed += len(buf)
			if ops.OnFailure != nil {
				ops.OnFailure(err, virt, buf)
			}
		},
		p.scratch,
	)

	if len(physReqs) > 0 {
		fails := p.mem.PhysReadIter(physReqs)
		for i, req := range physReqs {
			s := segs[i]
			overlap := overlappingPhys(req.Addr, len(s.buf), fails)
			if len(overlap) == 0 {
				if ops.OnSuccess != nil {
					ops.OnSuccess(s.virt, s.buf)
				}
				continue
			}
			for _, f := range overlap {
				off := uint64(f.Addr) - uint64(req.Addr)
				sub := s.buf[off : off+uint64(f.Length)]
				zeroBytes(sub)
				vaddr := s.virt.Add(off)
				ranges = append(ranges, memflow.FailedRange{VirtAddr: vaddr, PhysAddr: f.Addr, Length: len(sub), Err: f.Err})
				failed += len(sub)
				if ops.OnFailure != nil {
					ops.OnFailure(f.Err, vaddr, sub)
				}
			}
		}
	}

	if failed == 0 {
		return nil
	}
	return &memflow.PartialError{Status: memflow.ErrPartialRead, Ranges: ranges, AllFail: total > 0 && failed >= total}
}

func (p *virtualPrimitives) WriteRawIter(ops memflow.WriteOps) error {
	items := make([]mmu.WalkItem, 0, len(ops.Inp))
	for _, r := range ops.Inp {
		items = append(items, mmu.WalkItem{
			VirtAddr: r.Addr,
			Payload:  taggedSegment{virt: r.Addr, body: &memflow.BytesRef{Buf: r.In}},
		})
	}

	var physReqs []memflow.PhysWriteRequest
	var segs []segment
	var ranges []memflow.FailedRange
	failed, total := 0, totalWriteLen(ops.Inp)

	p.translator.VirtToPhysIter(p.mem, items,
		func(phys memflow.PhysicalAddress, payload memflow.SplittablePayload) {
			ts := payload.(taggedSegment)
			bp := ts.body.(*memflow.BytesRef)
			physReqs = append(physReqs, memflow.PhysWriteRequest{Addr: phys.Address, In: bp})
			segs = append(segs, segment{virt: ts.virt, buf: bp.Buf})
		},
		func(err error, virt memflow.Address, payload memflow.SplittablePayload) {
			buf := segmentBytes(payload)
			ranges = append(ranges, memflow.FailedRange{VirtAddr: virt, Length: len(buf), Err: err})
			failed += len(buf)
			if ops.OnFailure != nil {
				ops.OnFailure(err, virt, buf)
			}
		},
		p.scratch,
	)

	if len(physReqs) > 0 {
		fails := p.mem.PhysWriteIter(physReqs)
		for i, req := range physReqs {
			s := segs[i]
			overlap := overlappingPhys(req.Addr, len(s.buf), fails)
			if len(overlap) == 0 {
				if ops.OnSuccess != nil {
					ops.OnSuccess(s.virt, s.buf)
				}
				continue
			}
			for _, f := range overlap {
				off := uint64(f.Addr) - uint64(req.Addr)
				sub := s.buf[off : off+uint64(f.Length)]
				vaddr := s.virt.Add(off)
				ranges = append(ranges, memflow.FailedRange{VirtAddr: vaddr, PhysAddr: f.Addr, Length: len(sub), Err: f.Err})
				failed += len(sub)
				if ops.OnFailure != nil {
					ops.OnFailure(f.Err, vaddr, sub)
				}
			}
		}
	}

	if failed == 0 {
		return nil
	}
	return &memflow.PartialError{Status: memflow.ErrPartialWrite, Ranges: ranges, AllFail: total > 0 && failed >= total}
}

func (p *virtualPrimitives) Metadata() memflow.MemoryViewMetadata {
	a := p.translator.Arch
	physMeta := p.mem.Metadata()
	return memflow.MemoryViewMetadata{
		MaxAddress:   memflow.Address(a.AddressSpaceSize() - 1),
		RealSize:     a.AddressSpaceSize(),
		Readonly:     physMeta.Readonly,
		LittleEndian: a.Endianness == memflow.LittleEndian,
		ArchBits:     a.Bits,
	}
}

type segment struct {
	virt memflow.Address
	buf  []byte
}

func segmentBytes(p memflow.SplittablePayload) []byte {
	switch v := p.(type) {
	case taggedSegment:
		return segmentBytes(v.body)
	case *memflow.Bytes:
		return v.Buf
	case *memflow.BytesRef:
		return v.Buf
	default:
		return nil
	}
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func totalReadLen(reqs []memflow.ReadRequest) int {
	n := 0
	for _, r := range reqs {
		n += len(r.Out)
	}
	return n
}

func totalWriteLen(reqs []memflow.WriteRequest) int {
	n := 0
	for _, r := range reqs {
		n += len(r.In)
	}
	return n
}

// overlappingPhys returns every PhysFailure fully contained within
// [addr, addr+length), the granularity at which the underlying
// PhysicalMemory is expected to report failures for a request it issued
// itself (one request per translated segment).
func overlappingPhys(addr memflow.Address, length int, fails []memflow.PhysFailure) []memflow.PhysFailure {
	end := uint64(addr) + uint64(length)
	var out []memflow.PhysFailure
	for _, f := range fails {
		if uint64(f.Addr) >= uint64(addr) && uint64(f.Addr)+uint64(f.Length) <= end {
			out = append(out, f)
		}
	}
	return out
}
