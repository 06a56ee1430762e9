// Package arch declares the architecture descriptors consumed by the MMU
// walker (memflow/mmu): bit-width, endianness, address-space size, and the
// page-table level layout for each supported CPU mode.
//
// Descriptors are process-lifetime immutable and exposed only as
// package-level *Descriptor variables. Callers compare architectures by
// pointer identity (d1 == d2), never by field-for-field equality: two
// descriptors may coincide structurally (x86-32 and a hypothetical clone
// of it) without being the same architecture.
package arch

import "github.com/mkfyi/memflow"

// LevelSpec describes one level of a radix-tree page walk, root (index 0)
// to leaf (index len(Levels)-1).
type LevelSpec struct {
	// Name is used only for diagnostics (error messages, tests).
	Name string

	// VirtBitLow/VirtBitHigh are the inclusive bit range of the virtual
	// address that indexes this level's table.
	VirtBitLow, VirtBitHigh uint8

	// EntrySizeBytes is the width of one page-table entry at this level (4
	// or 8).
	EntrySizeBytes uint8

	// PageSize is the size, in bytes, of the page mapped if the walk
	// terminates at this level. It is always non-zero for the leaf level
	// (the base page size) and is non-zero for any intermediate level that
	// supports a large/huge page.
	PageSize uint64

	// PresentMask/LargeMask/AddrMask are bitmasks applied to a raw entry
	// value. LargeMask is 0 for levels that cannot terminate as a large
	// page (PageSize must also be 0 in that case, except for the leaf
	// level, which never consults LargeMask).
	PresentMask uint64
	LargeMask   uint64
	AddrMask    uint64
}

// IndexBits returns the number of virtual-address bits used to index this
// level's table.
func (l LevelSpec) IndexBits() uint8 { return l.VirtBitHigh - l.VirtBitLow + 1 }

// EntryCount returns the number of entries in one table at this level.
func (l LevelSpec) EntryCount() uint64 { return uint64(1) << l.IndexBits() }

// Index extracts this level's index bits out of a virtual address.
func (l LevelSpec) Index(virt uint64) uint64 {
	return (virt >> l.VirtBitLow) & (l.EntryCount() - 1)
}

// Present reports whether the present bit is set in a raw entry value.
func (l LevelSpec) Present(entry uint64) bool {
	return entry&l.PresentMask != 0
}

// Large reports whether the large-page bit is set in a raw entry value.
// Always false for a level with LargeMask == 0.
func (l LevelSpec) Large(entry uint64) bool {
	return l.LargeMask != 0 && entry&l.LargeMask != 0
}

// FrameAddr extracts the physical frame/table address bits from a raw
// entry value.
func (l LevelSpec) FrameAddr(entry uint64) uint64 {
	return entry & l.AddrMask
}

// MMUSpec is the declarative description of a radix-tree page walk for one
// architecture.
type MMUSpec struct {
	// Levels runs from the root (highest, index 0) to the leaf (lowest).
	Levels []LevelSpec
}

// PageSizeLevel returns the page size of a walk that terminates at level i,
// or 0 if that level cannot terminate a walk.
func (m MMUSpec) PageSizeLevel(i int) uint64 {
	if i < 0 || i >= len(m.Levels) {
		return 0
	}
	return m.Levels[i].PageSize
}

// IsLeaf reports whether level i is the final (page-table) level of the
// walk, where termination never depends on a large-page bit.
func (m MMUSpec) IsLeaf(i int) bool { return i == len(m.Levels)-1 }

// Descriptor is an immutable architecture record. Never construct a
// Descriptor literal outside this package for use as an
// architecture identity; use one of the package-level singletons (X86,
// X86PAE, X64) so pointer-identity comparisons remain meaningful.
type Descriptor struct {
	Name             string
	Bits             uint8
	Endianness       memflow.Endianness
	AddressSpaceBits uint8
	AddrSizeBytes    uint8
	MMU              MMUSpec
}

// PageSize returns the base (leaf-level) page size of the architecture.
func (d *Descriptor) PageSize() uint64 {
	if len(d.MMU.Levels) == 0 {
		return 0
	}
	return d.MMU.Levels[len(d.MMU.Levels)-1].PageSize
}

// AddressSpaceSize returns 1<<AddressSpaceBits, the size of the virtual
// address space this architecture can name.
func (d *Descriptor) AddressSpaceSize() uint64 {
	if d.AddressSpaceBits >= 64 {
		return 0 // wraps to 2^64; callers treat this as "unbounded"
	}
	return uint64(1) << d.AddressSpaceBits
}

func (d *Descriptor) String() string { return d.Name }

const pageShift = 12 // 4 KiB base page, true for every architecture below

// present/large/addr masks shared by the standard x86 entry formats.
const (
	x86PresentMask uint64 = 1 << 0
	x86LargeMask   uint64 = 1 << 7
	x86AddrMask32  uint64 = 0xFFFFF000
	x86AddrMaskPAE uint64 = 0x000FFFFFFFFFF000
)

// X86 is the 32-bit, non-PAE, 2-level x86 paging architecture (4 MiB large
// pages at the page-directory level, 4-byte entries).
var X86 = &Descriptor{
	Name:             "x86-32",
	Bits:             32,
	Endianness:       memflow.LittleEndian,
	AddressSpaceBits: 32,
	AddrSizeBytes:    4,
	MMU: MMUSpec{
		Levels: []LevelSpec{
			{ // PD
				Name: "PD", VirtBitLow: 22, VirtBitHigh: 31,
				EntrySizeBytes: 4, PageSize: 4 << 20,
				PresentMask: x86PresentMask, LargeMask: x86LargeMask, AddrMask: x86AddrMask32,
			},
			{ // PT
				Name: "PT", VirtBitLow: 12, VirtBitHigh: 21,
				EntrySizeBytes: 4, PageSize: 1 << pageShift,
				PresentMask: x86PresentMask, LargeMask: 0, AddrMask: x86AddrMask32,
			},
		},
	},
}

// X86PAE is 32-bit x86 with PAE enabled: 3-level paging, 8-byte entries, 2
// MiB large pages at the page-directory level.
var X86PAE = &Descriptor{
	Name:             "x86-32-pae",
	Bits:             32,
	Endianness:       memflow.LittleEndian,
	AddressSpaceBits: 32,
	AddrSizeBytes:    4,
	MMU: MMUSpec{
		Levels: []LevelSpec{
			{ // PDPT (only 4 entries, but indexed the same way)
				Name: "PDPT", VirtBitLow: 30, VirtBitHigh: 31,
				EntrySizeBytes: 8, PageSize: 0,
				PresentMask: x86PresentMask, LargeMask: 0, AddrMask: x86AddrMaskPAE,
			},
			{ // PD
				Name: "PD", VirtBitLow: 21, VirtBitHigh: 29,
				EntrySizeBytes: 8, PageSize: 2 << 20,
				PresentMask: x86PresentMask, LargeMask: x86LargeMask, AddrMask: x86AddrMaskPAE,
			},
			{ // PT
				Name: "PT", VirtBitLow: 12, VirtBitHigh: 20,
				EntrySizeBytes: 8, PageSize: 1 << pageShift,
				PresentMask: x86PresentMask, LargeMask: 0, AddrMask: x86AddrMaskPAE,
			},
		},
	},
}

// X64 is the 64-bit x86 architecture: 4-level paging (PML4/PDPT/PD/PT),
// 8-byte entries, 2 MiB large pages at PD and 1 GiB large pages at PDPT.
// Only the low 48 bits of the virtual address are used (address_space_bits
// 48): a standard canonical long-mode address space.
var X64 = &Descriptor{
	Name:             "x86-64",
	Bits:             64,
	Endianness:       memflow.LittleEndian,
	AddressSpaceBits: 48,
	AddrSizeBytes:    8,
	MMU: MMUSpec{
		Levels: []LevelSpec{
			{ // PML4
				Name: "PML4", VirtBitLow: 39, VirtBitHigh: 47,
				EntrySizeBytes: 8, PageSize: 0,
				PresentMask: x86PresentMask, LargeMask: 0, AddrMask: x86AddrMaskPAE,
			},
			{ // PDPT
				Name: "PDPT", VirtBitLow: 30, VirtBitHigh: 38,
				EntrySizeBytes: 8, PageSize: 1 << 30,
				PresentMask: x86PresentMask, LargeMask: x86LargeMask, AddrMask: x86AddrMaskPAE,
			},
			{ // PD
				Name: "PD", VirtBitLow: 21, VirtBitHigh: 29,
				EntrySizeBytes: 8, PageSize: 2 << 20,
				PresentMask: x86PresentMask, LargeMask: x86LargeMask, AddrMask: x86AddrMaskPAE,
			},
			{ // PT
				Name: "PT", VirtBitLow: 12, VirtBitHigh: 20,
				EntrySizeBytes: 8, PageSize: 1 << pageShift,
				PresentMask: x86PresentMask, LargeMask: 0, AddrMask: x86AddrMaskPAE,
			},
		},
	},
}

// ByName resolves one of the well-known architectures by its Descriptor
// Name, for use by the config/demo layer (which only ever sees a string).
// It returns nil for unknown names; config.Descriptor.ResolveArchitecture
// turns that into an error naming the unresolved value.
func ByName(name string) *Descriptor {
	switch name {
	case X86.Name:
		return X86
	case X86PAE.Name:
		return X86PAE
	case X64.Name:
		return X64
	default:
		return nil
	}
}
