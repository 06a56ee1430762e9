package memflow

import "fmt"

// Address is an opaque 64-bit guest address. It is used for both virtual
// and (unqualified) physical addresses; PhysicalAddress adds page metadata
// on top of it where that matters.
type Address uint64

// InvalidAddress is the sentinel returned wherever no valid address exists.
const InvalidAddress Address = ^Address(0)

// IsValid reports whether a is anything other than InvalidAddress.
func (a Address) IsValid() bool { return a != InvalidAddress }

// Add returns a+off. Wraps on overflow like the underlying uint64.
func (a Address) Add(off uint64) Address { return a + Address(off) }

// Sub returns a-off.
func (a Address) Sub(off uint64) Address { return a - Address(off) }

// AlignDown rounds a down to the nearest multiple of align (align must be a
// power of two).
func (a Address) AlignDown(align uint64) Address {
	return Address(uint64(a) &^ (align - 1))
}

// AlignOffset returns the offset of a within its align-sized containing
// block.
func (a Address) AlignOffset(align uint64) uint64 {
	return uint64(a) & (align - 1)
}

func (a Address) String() string {
	if a == InvalidAddress {
		return "<invalid>"
	}
	return fmt.Sprintf("0x%x", uint64(a))
}

// PhysicalAddress pairs a physical Address with the (optional) page metadata
// of the translation step that produced it. PageSize is 0 when no page
// metadata is known (e.g. an address handed in directly by a caller rather
// than produced by a page walk).
type PhysicalAddress struct {
	Address   Address
	PageSize  uint32
	PageIndex uint8
}

// HasPageInfo reports whether PageSize/PageIndex carry real metadata.
func (p PhysicalAddress) HasPageInfo() bool { return p.PageSize != 0 }

// ContainingPage returns the page-aligned base address of p, or p.Address
// itself if no page metadata is present.
func (p PhysicalAddress) ContainingPage() Address {
	if !p.HasPageInfo() {
		return p.Address
	}
	return p.Address.AlignDown(uint64(p.PageSize))
}

func (p PhysicalAddress) String() string {
	if !p.HasPageInfo() {
		return p.Address.String()
	}
	return fmt.Sprintf("%s (page size 0x%x, idx %d)", p.Address, p.PageSize, p.PageIndex)
}

// Endianness is the byte order used to decode integers out of guest memory.
type Endianness uint8

const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) String() string {
	if e == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}
