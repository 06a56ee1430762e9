// Package mmu implements the data-driven multi-level page-table walker
// and the scoped translator built on top of it. It is the only package
// that issues physical reads of page-table entries; it never touches the
// bytes of the payload being translated, that stays the job of whoever
// drives the walk (memflow/vmem).
package mmu

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/mkfyi/memflow"
	"github.com/mkfyi/memflow/arch"
)

// WalkItem is one (virtual address, payload) pair entering the walker.
type WalkItem struct {
	VirtAddr memflow.Address
	Payload  memflow.SplittablePayload
}

// SuccessFunc receives one successfully translated (physical address,
// payload) pair. The payload's length never exceeds the containing page's
// remaining bytes.
type SuccessFunc func(memflow.PhysicalAddress, memflow.SplittablePayload)

// FailureFunc receives one translation failure, attributed to the virtual
// address of the first byte of the failed payload segment.
type FailureFunc func(err error, virt memflow.Address, payload memflow.SplittablePayload)

// maxEntrySize is the largest page-table entry width any supported
// architecture uses; it bounds how much scratch space one PTE read needs.
const maxEntrySize = 8

type workItem struct {
	level     int
	tableBase memflow.Address
	virt      memflow.Address
	payload   memflow.SplittablePayload
}

// VirtToPhysIter translates a batch of virtual addresses to physical
// addresses by walking the page tables rooted at dtb according to a.
// Successes and failures are routed to onSuccess/onFailure respectively;
// the walker never returns an error of its own, only the partition of its
// input into those two sinks.
//
// scratch is used to batch-read page-table entries; it may be reused
// across calls and its contents on entry are irrelevant (the walker always
// writes before it reads). A scratch buffer shorter than one entry
// (including nil) is replaced by an internal 4096-byte buffer; any other
// short buffer only reduces how many entries are read per round trip;
// correctness is unaffected.
func VirtToPhysIter(
	mem memflow.PhysicalMemory,
	dtb memflow.Address,
	a *arch.Descriptor,
	items []WalkItem,
	onSuccess SuccessFunc,
	onFailure FailureFunc,
	scratch []byte,
) {
	if a == nil {
		for _, it := range items {
			if it.Payload == nil || it.Payload.Len() == 0 {
				continue
			}
			onFailure(fmt.Errorf("mmu: nil architecture: %w", memflow.ErrInvalidArchitecture), it.VirtAddr, it.Payload)
		}
		return
	}

	root := dtb.AlignDown(1 << 12)
	spaceSize := a.AddressSpaceSize()

	pending := make([]workItem, 0, len(items))
	for _, it := range items {
		if it.Payload == nil || it.Payload.Len() == 0 {
			continue // zero-length requests never enter the walker
		}
		if overflows(it.VirtAddr, spaceSize) {
			onFailure(wrapOverflow(it.VirtAddr, a), it.VirtAddr, it.Payload)
			continue
		}
		pending = append(pending, workItem{level: 0, tableBase: root, virt: it.VirtAddr, payload: it.Payload})
	}

	if len(scratch) < maxEntrySize {
		scratch = make([]byte, 4096)
	}

	for len(pending) > 0 {
		next := make([]workItem, 0, len(pending))

		type group struct {
			addr    memflow.Address
			size    uint8
			members []int
		}
		groups := map[memflow.Address]*group{}
		order := make([]memflow.Address, 0, len(pending))
		for idx, w := range pending {
			lvl := a.MMU.Levels[w.level]
			entryAddr := w.tableBase.Add(lvl.Index(uint64(w.virt)) * uint64(lvl.EntrySizeBytes))
			g, ok := groups[entryAddr]
			if !ok {
				g = &group{addr: entryAddr, size: lvl.EntrySizeBytes}
				groups[entryAddr] = g
				order = append(order, entryAddr)
			}
			g.members = append(g.members, idx)
		}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

		entryValues := make(map[memflow.Address]uint64, len(order))
		failedEntries := make(map[memflow.Address]error, 0)

		chunkStart := 0
		for chunkStart < len(order) {
			chunkEnd := chunkStart
			used := 0
			for chunkEnd < len(order) {
				sz := int(groups[order[chunkEnd]].size)
				if used+sz > len(scratch) && chunkEnd > chunkStart {
					break
				}
				used += sz
				chunkEnd++
			}

			reqs := make([]memflow.PhysReadRequest, 0, chunkEnd-chunkStart)
			off := 0
			for i := chunkStart; i < chunkEnd; i++ {
				g := groups[order[i]]
				reqs = append(reqs, memflow.PhysReadRequest{
					Addr: g.addr,
					Out:  &memflow.Bytes{Buf: scratch[off : off+int(g.size)]},
				})
				off += int(g.size)
			}

			fails := mem.PhysReadIter(reqs)
			failSet := make(map[memflow.Address]error, len(fails))
			for _, f := range fails {
				failSet[f.Addr] = f.Err
			}

			off = 0
			for i := chunkStart; i < chunkEnd; i++ {
				g := groups[order[i]]
				buf := scratch[off : off+int(g.size)]
				off += int(g.size)
				if err, bad := failSet[g.addr]; bad {
					failedEntries[g.addr] = fmt.Errorf("mmu: reading page table entry at %s: %w: %v", g.addr, memflow.ErrProviderError, err)
					continue
				}
				var v uint64
				if g.size == 4 {
					v = uint64(binary.LittleEndian.Uint32(buf))
				} else {
					v = binary.LittleEndian.Uint64(buf)
				}
				entryValues[g.addr] = v
			}

			chunkStart = chunkEnd
		}

		for idx, w := range pending {
			lvl := a.MMU.Levels[w.level]
			entryAddr := w.tableBase.Add(lvl.Index(uint64(w.virt)) * uint64(lvl.EntrySizeBytes))

			if err, bad := failedEntries[entryAddr]; bad {
				onFailure(err, w.virt, w.payload)
				continue
			}

			entry := entryValues[entryAddr]
			_ = idx

			if !lvl.Present(entry) {
				onFailure(fmt.Errorf("mmu: %s entry for %s: %w", lvl.Name, w.virt, memflow.ErrPageNotPresent), w.virt, w.payload)
				continue
			}

			isLeaf := a.MMU.IsLeaf(w.level)
			large := !isLeaf && lvl.Large(entry)
			terminates := isLeaf || large

			if !terminates {
				tableBase := memflow.Address(lvl.FrameAddr(entry)).AlignDown(1 << 12)
				next = append(next, workItem{level: w.level + 1, tableBase: tableBase, virt: w.virt, payload: w.payload})
				continue
			}

			pageSize := lvl.PageSize
			frameBase := lvl.FrameAddr(entry)
			if large && frameBase&(pageSize-1) != 0 {
				onFailure(fmt.Errorf("mmu: %s large-page frame %#x misaligned for page size %#x: %w", lvl.Name, frameBase, pageSize, memflow.ErrInvalidPageTable), w.virt, w.payload)
				continue
			}

			pageOffset := uint64(w.virt) & (pageSize - 1)
			physAddr := memflow.Address(frameBase + pageOffset)
			remainingInPage := pageSize - pageOffset

			n := uint64(w.payload.Len())
			if n <= remainingInPage {
				onSuccess(memflow.PhysicalAddress{Address: physAddr, PageSize: uint32(pageSize), PageIndex: uint8(w.level)}, w.payload)
				continue
			}

			front, rest := w.payload.SplitAt(int(remainingInPage))
			if front != nil {
				onSuccess(memflow.PhysicalAddress{Address: physAddr, PageSize: uint32(pageSize), PageIndex: uint8(w.level)}, front)
			}
			if rest != nil {
				nextVirt := w.virt.Add(remainingInPage)
				if overflows(nextVirt, spaceSize) {
					onFailure(wrapOverflow(nextVirt, a), nextVirt, rest)
				} else {
					next = append(next, workItem{level: 0, tableBase: root, virt: nextVirt, payload: rest})
				}
			}
		}

		pending = next
	}
}

func overflows(virt memflow.Address, spaceSize uint64) bool {
	return spaceSize != 0 && uint64(virt) >= spaceSize
}

func wrapOverflow(virt memflow.Address, a *arch.Descriptor) error {
	return fmt.Errorf("mmu: virtual address %s exceeds %d-bit address space of %s: %w", virt, a.AddressSpaceBits, a, memflow.ErrAddressSpaceOverflow)
}
