package memflow

import (
	"bytes"
	"testing"
)

func TestBatcherFlushReadsAndWrites(t *testing.T) {
	fp := newFakePrimitives(4096)
	v := NewView(fp)

	if err := v.WriteRaw(0x10, []byte("AAAA")); err != nil {
		t.Fatal(err)
	}
	if err := v.WriteRaw(0x20, []byte("BBBB")); err != nil {
		t.Fatal(err)
	}

	buf1 := make([]byte, 4)
	buf2 := make([]byte, 4)
	var done1, done2 bool

	err := v.Batcher().
		Read(0x10, buf1, func(err error) { done1 = err == nil }).
		Read(0x20, buf2, func(err error) { done2 = err == nil }).
		Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !done1 || !done2 {
		t.Fatal("onDone callbacks should both report success")
	}
	if !bytes.Equal(buf1, []byte("AAAA")) || !bytes.Equal(buf2, []byte("BBBB")) {
		t.Errorf("batched reads returned %q, %q", buf1, buf2)
	}
}

func TestBatcherReportsPerItemFailure(t *testing.T) {
	fp := newFakePrimitives(4096)
	fp.failAt[0x30] = true
	v := NewView(fp)

	buf1 := make([]byte, 4)
	buf2 := make([]byte, 4)
	var err1, err2 error

	_ = v.Batcher().
		Read(0x30, buf1, func(err error) { err1 = err }).
		Read(0x40, buf2, func(err error) { err2 = err }).
		Flush()

	if err1 == nil {
		t.Error("expected the failing item to report an error")
	}
	if err2 != nil {
		t.Errorf("expected the succeeding item to report nil, got %v", err2)
	}
}
