package memflow

import (
	"errors"
	"io"
)

// MemoryCursor exposes a MemoryView as a sequential io.Reader/io.Writer/
// io.Seeker with a movable position.
type MemoryCursor struct {
	view *View
	pos  Address
}

// Cursor returns a MemoryCursor positioned at address 0.
func (v *View) Cursor() *MemoryCursor { return &MemoryCursor{view: v} }

// CursorAt returns a MemoryCursor positioned at addr.
func (v *View) CursorAt(addr Address) *MemoryCursor { return &MemoryCursor{view: v, pos: addr} }

// Position returns the cursor's current address.
func (c *MemoryCursor) Position() Address { return c.pos }

// Seek implements io.Seeker. Offsets are relative to address 0 for
// io.SeekStart, the current position for io.SeekCurrent, and the view's
// Metadata().MaxAddress for io.SeekEnd.
func (c *MemoryCursor) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(c.pos)
	case io.SeekEnd:
		base = int64(c.view.Metadata().MaxAddress)
	default:
		return 0, errors.New("memflow: MemoryCursor.Seek: invalid whence")
	}
	c.pos = Address(base + offset)
	return int64(c.pos), nil
}

// Read implements io.Reader. A partial-read status is surfaced as a
// non-nil error with the bytes read so far (zeroed where they failed)
// still delivered in p.
func (c *MemoryCursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	err := c.view.ReadRawInto(c.pos, p)
	c.pos = c.pos.Add(uint64(len(p)))
	if err != nil && !isPartial(err) {
		return 0, err
	}
	return len(p), err
}

// Write implements io.Writer.
func (c *MemoryCursor) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	err := c.view.WriteRaw(c.pos, p)
	c.pos = c.pos.Add(uint64(len(p)))
	if err != nil && !isPartial(err) {
		return 0, err
	}
	return len(p), err
}
