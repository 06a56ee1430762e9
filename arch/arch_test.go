package arch

import "testing"

func TestByNameResolvesWellKnownArchitectures(t *testing.T) {
	cases := []struct {
		name string
		want *Descriptor
	}{
		{"x86-32", X86},
		{"x86-32-pae", X86PAE},
		{"x86-64", X64},
		{"bogus", nil},
	}
	for _, c := range cases {
		got := ByName(c.name)
		if got != c.want {
			t.Errorf("ByName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDescriptorIdentityIsPointerEquality(t *testing.T) {
	clone := &Descriptor{
		Name:             X86.Name,
		Bits:             X86.Bits,
		Endianness:       X86.Endianness,
		AddressSpaceBits: X86.AddressSpaceBits,
		AddrSizeBytes:    X86.AddrSizeBytes,
		MMU:              X86.MMU,
	}
	if clone == X86 {
		t.Fatal("a structurally identical clone must not share X86's pointer identity")
	}
	if ByName("x86-32") != X86 {
		t.Fatal("ByName must return the package singleton, not a new value")
	}
}

func TestAddressSpaceSize(t *testing.T) {
	if got, want := X86.AddressSpaceSize(), uint64(1)<<32; got != want {
		t.Errorf("X86.AddressSpaceSize() = %#x, want %#x", got, want)
	}
	if got, want := X64.AddressSpaceSize(), uint64(1)<<48; got != want {
		t.Errorf("X64.AddressSpaceSize() = %#x, want %#x", got, want)
	}
}

func TestPageSize(t *testing.T) {
	if got, want := X86.PageSize(), uint64(1)<<12; got != want {
		t.Errorf("X86.PageSize() = %#x, want %#x", got, want)
	}
	if got, want := X64.PageSize(), uint64(1)<<12; got != want {
		t.Errorf("X64.PageSize() = %#x, want %#x", got, want)
	}
}

func TestLevelSpecIndexing(t *testing.T) {
	pml4 := X64.MMU.Levels[0]
	if got, want := pml4.IndexBits(), uint8(9); got != want {
		t.Errorf("PML4 IndexBits = %d, want %d", got, want)
	}
	if got, want := pml4.EntryCount(), uint64(512); got != want {
		t.Errorf("PML4 EntryCount = %d, want %d", got, want)
	}

	virt := uint64(0x0000_1234_5678_9ABC)
	idx := pml4.Index(virt)
	if idx != (virt>>39)&0x1FF {
		t.Errorf("PML4 Index(%#x) = %d, want %d", virt, idx, (virt>>39)&0x1FF)
	}
}

func TestLevelSpecPresentAndLarge(t *testing.T) {
	pd := X64.MMU.Levels[2]
	present := uint64(0x1)
	large := uint64(0x1) | (1 << 7)

	if pd.Present(0) {
		t.Error("entry 0 should not be present")
	}
	if !pd.Present(present) {
		t.Error("entry with PresentMask bit set should be present")
	}
	if pd.Large(present) {
		t.Error("entry without the large-page bit should not be large")
	}
	if !pd.Large(large) {
		t.Error("entry with the large-page bit set should be large")
	}
}

func TestMMUSpecIsLeaf(t *testing.T) {
	if X64.MMU.IsLeaf(0) {
		t.Error("PML4 (level 0) is not the leaf of a 4-level walk")
	}
	if !X64.MMU.IsLeaf(len(X64.MMU.Levels) - 1) {
		t.Error("PT (last level) must be the leaf")
	}
}
