package memflow

import (
	"bytes"
	"testing"
)

func TestBytesSplitAt(t *testing.T) {
	b := &Bytes{Buf: []byte("hello world")}

	left, right := b.SplitAt(5)
	if got := left.(*Bytes).Buf; !bytes.Equal(got, []byte("hello")) {
		t.Errorf("left = %q, want %q", got, "hello")
	}
	if got := right.(*Bytes).Buf; !bytes.Equal(got, []byte(" world")) {
		t.Errorf("right = %q, want %q", got, " world")
	}

	// splitting at 0 yields a nil left half and the whole buffer as right
	left, right = b.SplitAt(0)
	if left != nil {
		t.Errorf("SplitAt(0) left = %v, want nil", left)
	}
	if right.Len() != b.Len() {
		t.Errorf("SplitAt(0) right.Len() = %d, want %d", right.Len(), b.Len())
	}

	// splitting at Len() yields a nil right half
	left, right = b.SplitAt(b.Len())
	if right != nil {
		t.Errorf("SplitAt(Len()) right = %v, want nil", right)
	}
	if left.Len() != b.Len() {
		t.Errorf("SplitAt(Len()) left.Len() = %d, want %d", left.Len(), b.Len())
	}
}

func TestBytesSplitAtSharesBackingArray(t *testing.T) {
	b := &Bytes{Buf: make([]byte, 8)}
	_, right := b.SplitAt(4)
	right.(*Bytes).Buf[0] = 0xAB
	if b.Buf[4] != 0xAB {
		t.Fatal("SplitAt copied instead of slicing the backing array")
	}
}

func TestNilPayloads(t *testing.T) {
	var b *Bytes
	if b.Len() != 0 {
		t.Errorf("nil *Bytes.Len() = %d, want 0", b.Len())
	}
	left, right := b.SplitAt(3)
	if left != nil || right != nil {
		t.Error("nil *Bytes.SplitAt should return (nil, nil)")
	}
}

func TestTaggedPreservesTag(t *testing.T) {
	tg := Tagged[int]{Tag: 7, Body: &Bytes{Buf: []byte("abcdef")}}
	left, right := tg.SplitAt(3)
	lt := left.(Tagged[int])
	rt := right.(Tagged[int])
	if lt.Tag != 7 || rt.Tag != 7 {
		t.Errorf("Tagged.SplitAt changed Tag: left=%d right=%d, want 7 both", lt.Tag, rt.Tag)
	}
}
