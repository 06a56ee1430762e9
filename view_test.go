package memflow

import (
	"bytes"
	"errors"
	"testing"
)

// fakePrimitives is an in-memory MemoryView backing store used across the
// root package's tests. Addresses in failAt are reported as failures by
// ReadRawIter/WriteRawIter instead of being serviced.
type fakePrimitives struct {
	mem     []byte
	failAt  map[uint64]bool
	meta    MemoryViewMetadata
}

func newFakePrimitives(size int) *fakePrimitives {
	return &fakePrimitives{
		mem:    make([]byte, size),
		failAt: map[uint64]bool{},
		meta:   MemoryViewMetadata{MaxAddress: Address(size - 1), RealSize: uint64(size), LittleEndian: true, ArchBits: 64},
	}
}

func (f *fakePrimitives) ReadRawIter(ops ReadOps) error {
	anyFail := false
	for _, r := range ops.Inp {
		if f.failAt[uint64(r.Addr)] {
			anyFail = true
			if ops.OnFailure != nil {
				ops.OnFailure(ErrPageNotPresent, r.Addr, r.Out)
			}
			continue
		}
		copy(r.Out, f.mem[r.Addr:])
		if ops.OnSuccess != nil {
			ops.OnSuccess(r.Addr, r.Out)
		}
	}
	if anyFail {
		return ErrPartialRead
	}
	return nil
}

func (f *fakePrimitives) WriteRawIter(ops WriteOps) error {
	anyFail := false
	for _, r := range ops.Inp {
		if f.failAt[uint64(r.Addr)] {
			anyFail = true
			if ops.OnFailure != nil {
				ops.OnFailure(ErrPageNotPresent, r.Addr, r.In)
			}
			continue
		}
		copy(f.mem[r.Addr:], r.In)
		if ops.OnSuccess != nil {
			ops.OnSuccess(r.Addr, r.In)
		}
	}
	if anyFail {
		return ErrPartialWrite
	}
	return nil
}

func (f *fakePrimitives) Metadata() MemoryViewMetadata { return f.meta }

func TestViewReadWriteRoundTrip(t *testing.T) {
	fp := newFakePrimitives(4096)
	v := NewView(fp)

	data := []byte("hello, memflow")
	if err := v.WriteRaw(0x100, data); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}

	got, err := v.ReadRaw(0x100, len(data))
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("ReadRaw = %q, want %q", got, data)
	}
}

func TestViewReadRawIntoZeroesFailedRanges(t *testing.T) {
	fp := newFakePrimitives(4096)
	fp.failAt[0x200] = true
	v := NewView(fp)

	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = 0xFF
	}
	err := v.ReadRawInto(0x200, buf)
	if !isPartial(err) {
		t.Fatalf("expected a partial-read error, got %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %#x, want 0 (failed range must be zeroed)", i, b)
		}
	}
	var pe *PartialError
	if !errors.As(err, &pe) {
		t.Fatal("expected *PartialError")
	}
	if !pe.AllFail {
		t.Error("AllFail should be true when every byte of the request failed")
	}
}

func TestReadAddrArch(t *testing.T) {
	fp := newFakePrimitives(4096)
	v := NewView(fp)

	if err := v.WriteRaw(0, []byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadAddrArch(32, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != Address(0x04030201) {
		t.Errorf("ReadAddrArch(32) = %s, want 0x4030201", got)
	}

	if _, err := v.ReadAddrArch(16, 0); !errors.Is(err, ErrInvalidArchitecture) {
		t.Errorf("ReadAddrArch(16) error = %v, want ErrInvalidArchitecture", err)
	}
}

func TestReadCharArrayTruncatesAtNUL(t *testing.T) {
	fp := newFakePrimitives(4096)
	v := NewView(fp)

	raw := make([]byte, 16)
	copy(raw, "hi\x00garbage")
	if err := v.WriteRaw(0, raw); err != nil {
		t.Fatal(err)
	}

	s, err := v.ReadCharArray(0, 16)
	if err != nil {
		t.Fatal(err)
	}
	if s != "hi" {
		t.Errorf("ReadCharArray = %q, want %q", s, "hi")
	}
}

func TestReadCharStringGrowsUntilTerminator(t *testing.T) {
	fp := newFakePrimitives(4096)
	v := NewView(fp)

	long := make([]byte, 40)
	for i := range long {
		long[i] = 'a'
	}
	long[39] = 0
	if err := v.WriteRaw(0, long); err != nil {
		t.Fatal(err)
	}

	s, err := v.ReadCharStringN(0, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 39 {
		t.Errorf("ReadCharStringN length = %d, want 39", len(s))
	}
}

func TestReadCharStringNNoTerminatorFails(t *testing.T) {
	fp := newFakePrimitives(4096)
	v := NewView(fp)

	fill := make([]byte, 64)
	for i := range fill {
		fill[i] = 'x'
	}
	if err := v.WriteRaw(0, fill); err != nil {
		t.Fatal(err)
	}

	if _, err := v.ReadCharStringN(0, 32); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ReadCharStringN without terminator: err = %v, want ErrOutOfBounds", err)
	}
}
