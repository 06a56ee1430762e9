package memflow

import "unsafe"

// ReadObject reads sizeof(T) bytes at addr and decodes them as T via a raw
// bit-copy. T must be plain-old-data: no pointers, no padding with semantic
// meaning, safe to construct from an all-zero or partially-read byte
// pattern. On partial failure the failed bytes, and hence the
// corresponding bits of the returned T, are zero.
//
// Go's generics require the type parameter to be spelled at the call site
// rather than inferred from a method receiver, so this is a free function
// rather than a method on *View.
func ReadObject[T any](v *View, addr Address) (T, error) {
	var out T
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&out)), int(unsafe.Sizeof(out)))
	err := v.ReadRawInto(addr, buf)
	return out, err
}

// ReadObjectInto reads sizeof(*out) bytes at addr directly into *out.
func ReadObjectInto[T any](v *View, addr Address, out *T) error {
	buf := unsafe.Slice((*byte)(unsafe.Pointer(out)), int(unsafe.Sizeof(*out)))
	return v.ReadRawInto(addr, buf)
}

// WriteObject writes val's bit pattern to addr.
func WriteObject[T any](v *View, addr Address, val T) error {
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&val)), int(unsafe.Sizeof(val)))
	return v.WriteRaw(addr, buf)
}

// Pointer is a typed guest pointer: an Address tagged with the pointee
// type, so ReadPtr/WritePtr know how many bytes to transfer without the
// caller repeating the type at every call site.
type Pointer[T any] Address

// Addr returns the underlying Address.
func (p Pointer[T]) Addr() Address { return Address(p) }

// ReadPtr follows a typed guest pointer and reads the pointee by value.
func ReadPtr[T any](v *View, p Pointer[T]) (T, error) {
	return ReadObject[T](v, p.Addr())
}

// ReadPtrInto follows a typed guest pointer into an existing value.
func ReadPtrInto[T any](v *View, p Pointer[T], out *T) error {
	return ReadObjectInto[T](v, p.Addr(), out)
}

// WritePtr writes val to the address a typed guest pointer refers to.
func WritePtr[T any](v *View, p Pointer[T], val T) error {
	return WriteObject[T](v, p.Addr(), val)
}
