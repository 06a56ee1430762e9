package mmu

import (
	"github.com/mkfyi/memflow"
	"github.com/mkfyi/memflow/arch"
)

// Scoped binds an architecture descriptor to a directory-table base,
// defining a single virtual address space. It is cheap to copy and
// carries no state of its own beyond its two fields.
type Scoped struct {
	Arch *arch.Descriptor
	DTB  memflow.Address
}

// NewScoped returns a Scoped translator for the given architecture and
// directory-table base. The low 12 bits of dtb are ignored: a
// directory-table base is always page-aligned.
func NewScoped(a *arch.Descriptor, dtb memflow.Address) Scoped {
	return Scoped{Arch: a, DTB: dtb.AlignDown(1 << 12)}
}

// VirtToPhysIter delegates to the package-level walker with this
// translator's bound architecture and dtb.
func (s Scoped) VirtToPhysIter(
	mem memflow.PhysicalMemory,
	items []WalkItem,
	onSuccess SuccessFunc,
	onFailure FailureFunc,
	scratch []byte,
) {
	VirtToPhysIter(mem, s.DTB, s.Arch, items, onSuccess, onFailure, scratch)
}

// TranslationTableID returns dtb>>12, a cheap key for caching layers to
// group translations by address space without hashing the full dtb.
func (s Scoped) TranslationTableID() uint64 {
	return uint64(s.DTB) >> 12
}
