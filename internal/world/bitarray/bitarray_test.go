package bitarray

import "testing"

func TestGetSetRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		width uint
		n     int
	}{
		{4, 4096}, {5, 4096}, {9, 4096}, {13, 100}, {64, 10}, {7, 4096},
	} {
		b := New(tc.width, tc.n)
		max := uint64(1)<<tc.width - 1
		if tc.width == 64 {
			max = ^uint64(0)
		}
		for i := 0; i < tc.n; i++ {
			v := (uint64(i) * 2654435761) & max
			b.Set(i, v)
		}
		for i := 0; i < tc.n; i++ {
			want := (uint64(i) * 2654435761) & max
			if got := b.Get(i); got != want {
				t.Fatalf("width=%d n=%d i=%d: got %d want %d", tc.width, tc.n, i, got, want)
			}
		}
	}
}

func TestResizeToPreservesEntries(t *testing.T) {
	b := New(4, 4096)
	for i := 0; i < 4096; i++ {
		b.Set(i, uint64(i%16))
	}
	wider := b.ResizeTo(9)
	for i := 0; i < 4096; i++ {
		want := uint64(i % 16)
		if got := wider.Get(i); got != want {
			t.Fatalf("i=%d: got %d want %d", i, got, want)
		}
	}
}

func TestStraddlingWordBoundary(t *testing.T) {
	// width=5, entries straddle 64-bit word boundaries at various offsets.
	b := New(5, 64)
	for i := 0; i < 64; i++ {
		b.Set(i, uint64(i)&0x1F)
	}
	for i := 0; i < 64; i++ {
		if got := b.Get(i); got != uint64(i)&0x1F {
			t.Fatalf("i=%d: got %d want %d", i, got, uint64(i)&0x1F)
		}
	}
}

func TestGetAtIndexMapping(t *testing.T) {
	b := New(4, 4096)
	b.SetAt(1, 2, 3, 7)
	idx := (2 << 8) | (3 << 4) | 1
	if got := b.Get(idx); got != 7 {
		t.Fatalf("index mapping mismatch: got %d", got)
	}
	if got := b.GetAt(1, 2, 3); got != 7 {
		t.Fatalf("GetAt mismatch: got %d", got)
	}
}
