package memflow

import "testing"

func TestOverlayArchPartsOverridesMetadataOnly(t *testing.T) {
	fp := newFakePrimitives(4096)
	v := NewView(fp)
	overlay := v.OverlayArchParts(32, false)

	m := overlay.Metadata()
	if m.ArchBits != 32 || m.LittleEndian {
		t.Errorf("overlay metadata = %+v, want ArchBits=32 LittleEndian=false", m)
	}

	// translation is untouched: a write through the overlay is visible
	// through the original view.
	if err := overlay.WriteRaw(0x10, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadRaw(0x10, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadRaw through base view = %v, want %v", got, want)
		}
	}
}

func TestOverlayArchPartsEndiannessAffectsTypedReads(t *testing.T) {
	fp := newFakePrimitives(4096)
	v := NewView(fp)
	if err := v.WriteRaw(0, []byte{0x01, 0x00, 0x00, 0x00}); err != nil {
		t.Fatal(err)
	}

	little := v.OverlayArchParts(32, true)
	big := v.OverlayArchParts(32, false)

	lv, err := little.ReadAddr32(0)
	if err != nil {
		t.Fatal(err)
	}
	bv, err := big.ReadAddr32(0)
	if err != nil {
		t.Fatal(err)
	}
	if lv != 1 {
		t.Errorf("little-endian overlay = %s, want 1", lv)
	}
	if bv != Address(0x01000000) {
		t.Errorf("big-endian overlay = %s, want 0x1000000", bv)
	}
}
