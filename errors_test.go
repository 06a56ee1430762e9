package memflow

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrPageNotPresent, KindPageNotPresent},
		{fmt.Errorf("wrapped: %w", ErrInvalidPageTable), KindInvalidPageTable},
		{ErrPartialRead, KindPartialRead},
		{errors.New("unrelated"), KindNone},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestNewPartialErrorNilWhenNoRanges(t *testing.T) {
	if err := newPartialError(ErrPartialRead, nil, 16, 0); err != nil {
		t.Errorf("newPartialError with no ranges = %v, want nil", err)
	}
}

func TestPartialErrorUnwrapsToStatus(t *testing.T) {
	ranges := []FailedRange{{VirtAddr: 0x1000, Length: 4, Err: ErrPageNotPresent}}
	err := newPartialError(ErrPartialRead, ranges, 16, 4)
	if !errors.Is(err, ErrPartialRead) {
		t.Error("PartialError should unwrap to its Status")
	}
	if errors.Is(err, ErrPartialWrite) {
		t.Error("PartialError should not match the other status sentinel")
	}

	var pe *PartialError
	if !errors.As(err, &pe) {
		t.Fatal("expected *PartialError")
	}
	if pe.AllFail {
		t.Error("AllFail should be false when only part of the request failed")
	}
}
