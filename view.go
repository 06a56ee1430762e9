package memflow

import (
	"errors"
	"fmt"
)

// MemoryViewMetadata describes a view's bounds and typed-read defaults.
// It is produced by the view and never mutated.
type MemoryViewMetadata struct {
	MaxAddress   Address
	RealSize     uint64
	Readonly     bool
	LittleEndian bool
	ArchBits     uint8
}

// Primitives is the minimal contract any MemoryView implementation must
// provide: the two batched raw operations and metadata. Everything else,
// typed reads, strings, pointer chases, cursors, batching, overlays,
// remaps, is a derived helper built on top of these three methods by
// View, Go's analogue of a trait's default methods.
type Primitives interface {
	ReadRawIter(ops ReadOps) error
	WriteRawIter(ops WriteOps) error
	Metadata() MemoryViewMetadata
}

// View wraps any Primitives implementation and exposes the full
// MemoryView helper surface. Constructing a View is the only way
// application code should consume a Primitives implementation.
type View struct {
	Primitives
}

// NewView wraps p with the derived MemoryView helpers.
func NewView(p Primitives) *View { return &View{Primitives: p} }

// ReadRawInto fills out with the bytes at addr, zeroing and reporting any
// byte ranges that could not be read. It returns a *PartialError wrapping
// ErrPartialRead if any byte failed; its AllFail field is set when every
// byte failed.
func (v *View) ReadRawInto(addr Address, out []byte) error {
	if len(out) == 0 {
		return nil
	}
	var ranges []FailedRange
	failed := 0
	err := v.ReadRawIter(ReadOps{
		Inp: []ReadRequest{{Addr: addr, Out: out}},
		OnFailure: func(err error, faddr Address, buf []byte) {
			zero(buf)
			ranges = append(ranges, FailedRange{VirtAddr: faddr, Length: len(buf), Err: err})
			failed += len(buf)
		},
	})
	if err != nil && !errors.Is(err, ErrPartialRead) {
		return err
	}
	return newPartialError(ErrPartialRead, ranges, len(out), failed)
}

// ReadRaw is the allocating convenience form of ReadRawInto.
func (v *View) ReadRaw(addr Address, length int) ([]byte, error) {
	buf := make([]byte, length)
	err := v.ReadRawInto(addr, buf)
	return buf, err
}

// WriteRaw writes data to addr. A failure on part of the batch does not
// roll back bytes that were already written; writes are best-effort,
// matching the read path.
func (v *View) WriteRaw(addr Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var ranges []FailedRange
	failed := 0
	err := v.WriteRawIter(WriteOps{
		Inp: []WriteRequest{{Addr: addr, In: data}},
		OnFailure: func(err error, faddr Address, buf []byte) {
			ranges = append(ranges, FailedRange{VirtAddr: faddr, Length: len(buf), Err: err})
			failed += len(buf)
		},
	})
	if err != nil && !errors.Is(err, ErrPartialWrite) {
		return err
	}
	return newPartialError(ErrPartialWrite, ranges, len(data), failed)
}

func (v *View) ReadAddr32(addr Address) (Address, error) {
	var buf [4]byte
	if err := v.ReadRawInto(addr, buf[:]); err != nil {
		return InvalidAddress, err
	}
	return Address(decodeU32(buf[:], v.Metadata().LittleEndian)), nil
}

func (v *View) ReadAddr64(addr Address) (Address, error) {
	var buf [8]byte
	if err := v.ReadRawInto(addr, buf[:]); err != nil {
		return InvalidAddress, err
	}
	return Address(decodeU64(buf[:], v.Metadata().LittleEndian)), nil
}

// ReadAddrArch reads a pointer-width value, dispatching on bits (32 or 64).
func (v *View) ReadAddrArch(bits uint8, addr Address) (Address, error) {
	switch bits {
	case 64:
		return v.ReadAddr64(addr)
	case 32:
		return v.ReadAddr32(addr)
	default:
		return InvalidAddress, fmt.Errorf("memflow: ReadAddrArch: bits=%d: %w", bits, ErrInvalidArchitecture)
	}
}

// ReadCharArray reads exactly len bytes, truncates at the first 0x00 byte,
// and decodes the result as UTF-8 with lossy replacement.
func (v *View) ReadCharArray(addr Address, length int) (string, error) {
	buf, err := v.ReadRaw(addr, length)
	if err != nil {
		if !isPartial(err) {
			return "", err
		}
	}
	if i := indexZero(buf); i >= 0 {
		buf = buf[:i]
	}
	return lossyUTF8(buf), nil
}

// ReadCharStringN reads up to n bytes, growing a buffer geometrically
// starting at 32 bytes, until a zero terminator is found. Fails with
// ErrOutOfBounds if none is found within n bytes.
func (v *View) ReadCharStringN(addr Address, n int) (string, error) {
	size := 32
	if size > n {
		size = n
	}
	if size == 0 {
		return "", fmt.Errorf("memflow: ReadCharStringN: n=0: %w", ErrOutOfBounds)
	}
	buf := make([]byte, size)
	last := 0
	for {
		chunk := buf[last:]
		if err := v.ReadRawInto(addr.Add(uint64(last)), chunk); err != nil {
			if !isPartial(err) {
				return "", err
			}
		}
		if i := indexZero(chunk); i >= 0 {
			buf = buf[:last+i]
			return lossyUTF8(buf), nil
		}
		if len(buf) >= n {
			break
		}
		last = len(buf)
		grow := len(buf)
		if last+grow > n {
			grow = n - last
		}
		buf = append(buf, make([]byte, grow)...)
	}
	return "", fmt.Errorf("memflow: ReadCharStringN: no terminator within %d bytes at %s: %w", n, addr, ErrOutOfBounds)
}

// ReadCharString is ReadCharStringN with a default bound of 4096 bytes.
func (v *View) ReadCharString(addr Address) (string, error) {
	return v.ReadCharStringN(addr, 4096)
}

func isPartial(err error) bool {
	return KindOf(err) == KindPartialRead || KindOf(err) == KindPartialWrite
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
