package memflow

// PhysReadRequest is one entry of a batched physical read: fill Out with
// the bytes at Addr. Out is never nil and Out.Len() bytes are requested.
type PhysReadRequest struct {
	Addr Address
	Out  *Bytes
}

// PhysWriteRequest is one entry of a batched physical write: write In's
// bytes to Addr.
type PhysWriteRequest struct {
	Addr Address
	In   *BytesRef
}

// PhysFailure attributes a failure to one physical address range within a
// batched call.
type PhysFailure struct {
	Addr   Address
	Length int
	Err    error
}

// PhysicalMemoryMetadata describes the bounds and access mode of a
// PhysicalMemory provider.
type PhysicalMemoryMetadata struct {
	MaxAddress Address
	RealSize   uint64
	Readonly   bool
}

// PhysicalMemory is the low-level batched physical memory interface. It
// is implemented by collaborators (a connector to a live target, a flat
// memory-dump file, an in-memory fixture for tests); the core only
// consumes it.
//
// Implementations own no concurrency guarantees beyond this: a single
// PhysicalMemory value is exclusively owned by the caller driving one
// batch at a time.
type PhysicalMemory interface {
	// PhysReadIter fills every reqs[i].Out it can. Requests it cannot
	// satisfy are reported in the returned failures slice; Out is left
	// untouched for those (callers zero-fill).
	PhysReadIter(reqs []PhysReadRequest) []PhysFailure

	// PhysWriteIter mirrors PhysReadIter for writes. A failure on one
	// request does not prevent the others in the same batch from being
	// attempted; writes are best-effort.
	PhysWriteIter(reqs []PhysWriteRequest) []PhysFailure

	Metadata() PhysicalMemoryMetadata
}
