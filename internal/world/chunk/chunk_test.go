package chunk

import "testing"

func TestPositionPackUnpackRoundTrip(t *testing.T) {
	cases := []Position{
		{X: 0, Z: 0},
		{X: 1, Z: -1},
		{X: -1, Z: 1},
		{X: 1 << 24, Z: -(1 << 24)},
		{X: -2097152, Z: 2097151},
	}
	for _, pos := range cases {
		if got := Unpack(pos.Pack()); got != pos {
			t.Errorf("Unpack(Pack(%+v)) = %+v", pos, got)
		}
	}
}

func TestChunkSectionLifecycle(t *testing.T) {
	c := New(Position{X: 0, Z: 0})
	if c.Section(4) != nil {
		t.Fatalf("fresh chunk has a non-nil section")
	}

	c.SetBlock(3, 70, 5, 17) // section 4
	if c.Section(4) == nil {
		t.Fatalf("section 4 not allocated by SetBlock")
	}
	if got := c.GetBlock(3, 70, 5); got != 17 {
		t.Fatalf("GetBlock = %d, want 17", got)
	}
	if mask := c.SectionBitmask(); mask != 1<<4 {
		t.Fatalf("bitmask = %#x, want bit 4", mask)
	}

	// A section returning to all-air is discarded (nil iff all air).
	c.SetBlock(3, 70, 5, AirBlockState)
	if c.Section(4) != nil {
		t.Fatalf("all-air section not discarded")
	}
	if got := c.GetBlock(3, 70, 5); got != AirBlockState {
		t.Fatalf("GetBlock after clear = %d, want air", got)
	}
}
