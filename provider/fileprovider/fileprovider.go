// Package fileprovider implements memflow.PhysicalMemory over a flat
// memory-dump file, mapped once with mmap instead of copied through
// read/write syscalls on every batch.
package fileprovider

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/mkfyi/memflow"
)

// FileProvider is a memflow.PhysicalMemory backed by a single mmap'd
// file. The mapping covers the whole file; physical address 0 corresponds
// to the first byte of the file.
type FileProvider struct {
	file     *os.File
	mem      []byte
	readonly bool
	log      *slog.Logger
}

// Open maps path into memory. If readonly is false the mapping is
// writable and PhysWriteIter persists to the file via the shared mapping.
func Open(path string, readonly bool) (*FileProvider, error) {
	flag := os.O_RDONLY
	if !readonly {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("fileprovider: open %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fileprovider: stat %s: %w", path, err)
	}
	if st.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("fileprovider: %s is empty", path)
	}

	prot := unix.PROT_READ
	if !readonly {
		prot |= unix.PROT_WRITE
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fileprovider: mmap %s: %w", path, err)
	}

	log := slog.Default().With("provider", "fileprovider", "path", path)
	log.Info("mapped physical memory dump", "size", len(mem), "readonly", readonly)

	return &FileProvider{file: f, mem: mem, readonly: readonly, log: log}, nil
}

// Close unmaps the file and releases the file descriptor.
func (p *FileProvider) Close() error {
	if err := unix.Munmap(p.mem); err != nil {
		p.file.Close()
		return fmt.Errorf("fileprovider: munmap: %w", err)
	}
	return p.file.Close()
}

func (p *FileProvider) PhysReadIter(reqs []memflow.PhysReadRequest) []memflow.PhysFailure {
	var fails []memflow.PhysFailure
	for _, r := range reqs {
		n := r.Out.Len()
		off := int(r.Addr)
		if off < 0 || off+n > len(p.mem) {
			fails = append(fails, memflow.PhysFailure{Addr: r.Addr, Length: n, Err: memflow.ErrOutOfBounds})
			continue
		}
		copy(r.Out.Buf, p.mem[off:off+n])
	}
	return fails
}

func (p *FileProvider) PhysWriteIter(reqs []memflow.PhysWriteRequest) []memflow.PhysFailure {
	var fails []memflow.PhysFailure
	if p.readonly {
		for _, r := range reqs {
			fails = append(fails, memflow.PhysFailure{Addr: r.Addr, Length: r.In.Len(), Err: fmt.Errorf("fileprovider: read-only mapping: %w", memflow.ErrProviderError)})
		}
		return fails
	}
	for _, r := range reqs {
		n := r.In.Len()
		off := int(r.Addr)
		if off < 0 || off+n > len(p.mem) {
			fails = append(fails, memflow.PhysFailure{Addr: r.Addr, Length: n, Err: memflow.ErrOutOfBounds})
			continue
		}
		copy(p.mem[off:off+n], r.In.Buf)
	}
	return fails
}

func (p *FileProvider) Metadata() memflow.PhysicalMemoryMetadata {
	return memflow.PhysicalMemoryMetadata{
		MaxAddress: memflow.Address(len(p.mem) - 1),
		RealSize:   uint64(len(p.mem)),
		Readonly:   p.readonly,
	}
}
