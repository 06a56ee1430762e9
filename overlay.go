package memflow

// overlayPrimitives wraps another Primitives implementation, overriding
// the bit-width/endianness fields reported by Metadata() without
// touching the underlying translation.
type overlayPrimitives struct {
	base         Primitives
	bits         uint8
	littleEndian bool
}

func (o *overlayPrimitives) ReadRawIter(ops ReadOps) error   { return o.base.ReadRawIter(ops) }
func (o *overlayPrimitives) WriteRawIter(ops WriteOps) error { return o.base.WriteRawIter(ops) }

func (o *overlayPrimitives) Metadata() MemoryViewMetadata {
	m := o.base.Metadata()
	m.ArchBits = o.bits
	m.LittleEndian = o.littleEndian
	return m
}

// OverlayArchParts wraps v so that its Metadata() reports the given
// bit-width/endianness instead of v's own, without changing the underlying
// translator. ReadAddr32/ReadAddr64 (and ReadAddrArch through them) decode
// with the overlay's endianness; ReadAddrArch takes its width from its own
// bits argument, not from the overlay. The
// arch-by-identity overload (overlay_arch(arch)) lives in memflow/vmem,
// which is free to import both memflow and memflow/arch; this package
// cannot import memflow/arch without an import cycle (arch imports
// memflow for Endianness).
func (v *View) OverlayArchParts(bits uint8, littleEndian bool) *View {
	return NewView(&overlayPrimitives{base: v.Primitives, bits: bits, littleEndian: littleEndian})
}
