package chunk

import "testing"

func TestSectionPaletteUpgrade(t *testing.T) {
	s := NewSection()

	s.Set(0, 17)
	if got := s.Get(0); got != 17 {
		t.Fatalf("Get(0) = %d, want 17", got)
	}
	if got := s.Get(1); got != AirBlockState {
		t.Fatalf("Get(1) = %d, want air", got)
	}
	if s.bits.Width() != minLocalWidth {
		t.Fatalf("width = %d, want %d", s.bits.Width(), minLocalWidth)
	}

	// Insert 510 more distinct non-air states (palette: air, 17, plus 510 = 512 total).
	next := uint32(18)
	widthSeen := []uint{s.bits.Width()}
	for i := 0; i < 510; i++ {
		s.Set(2+i, next)
		next++
		if w := s.bits.Width(); w != widthSeen[len(widthSeen)-1] {
			widthSeen = append(widthSeen, w)
		}
	}
	if len(s.palette) != 512 {
		t.Fatalf("palette length = %d, want 512", len(s.palette))
	}
	if s.bits.Width() != 9 {
		t.Fatalf("width after 512 entries = %d, want 9", s.bits.Width())
	}

	// One more distinct state migrates to the global palette.
	s.Set(513, next)
	if s.palette != nil {
		t.Fatal("expected migration to global palette")
	}
	if s.bits.Width() != GlobalPaletteBits {
		t.Fatalf("width after migration = %d, want %d", s.bits.Width(), GlobalPaletteBits)
	}

	// Earlier positions still resolve to their original states.
	if got := s.Get(0); got != 17 {
		t.Fatalf("post-migration Get(0) = %d, want 17", got)
	}
	if got := s.Get(513); got != next {
		t.Fatalf("post-migration Get(513) = %d, want %d", got, next)
	}
}

func TestSectionNonAirCounting(t *testing.T) {
	s := NewSection()
	want := 0
	for i := 0; i < 100; i++ {
		state := uint32(i % 5) // includes air (0) every 5th
		s.Set(i, state)
	}
	for i := 0; i < 100; i++ {
		if s.Get(i) != AirBlockState {
			want++
		}
	}
	if s.NonAirCount() != want {
		t.Fatalf("NonAirCount() = %d, want %d", s.NonAirCount(), want)
	}
}

func TestSectionDiscardOnAllAir(t *testing.T) {
	s := NewSection()
	empty := s.Set(0, 5)
	if empty {
		t.Fatal("section should not be empty after setting a non-air block")
	}
	empty = s.Set(0, AirBlockState)
	if !empty {
		t.Fatal("section should report empty once its only non-air block is cleared")
	}
}

func TestOptimizeRebuildsMinimalSortedPalette(t *testing.T) {
	s := NewSection()
	s.Set(0, 50)
	s.Set(1, 10)
	s.Set(2, 30)
	s.Optimize()

	if s.palette == nil {
		t.Fatal("expected local regime after optimize")
	}
	for i := 1; i < len(s.palette); i++ {
		if s.palette[i-1] > s.palette[i] {
			t.Fatalf("palette not sorted: %v", s.palette)
		}
	}
	if got := s.Get(0); got != 50 {
		t.Fatalf("Get(0) after optimize = %d, want 50", got)
	}
	if got := s.Get(1); got != 10 {
		t.Fatalf("Get(1) after optimize = %d, want 10", got)
	}
}
