// Package chunk implements the voxel storage core: a Section holds 4096 block
// states in a bit-packed array with a dynamically resized local palette that
// migrates to the global palette past a bit-width threshold, and a Chunk
// assembles 16 Sections plus light and biome data into one 16x256x16 column.
package chunk

import (
	"sort"

	"github.com/opencraft/voxelcore/internal/world/bitarray"
)

// AirBlockState is the block-state id representing air. The block registry
// itself is a static external table (out of scope per spec); this package only
// needs to know which id is "nothing" for the non-air counter and section
// discard rule.
const AirBlockState uint32 = 0

const (
	minLocalWidth = 4
	maxLocalWidth = 9
	// GlobalPaletteBits is P, the bit width of the global palette regime: every
	// block-state id is stored directly once the local palette would need more
	// than maxLocalWidth bits.
	GlobalPaletteBits = 15

	blocksPerSection = 4096
)

// Section is one 16x16x16 slice of a Chunk. A nil *Section represents an
// all-air section; Section is only ever allocated once a non-air block is set.
type Section struct {
	bits    *bitarray.BitArray
	palette []uint32 // sorted ascending; nil in the global-palette regime
	nonAir  int

	skyLight   []byte // 2048-byte nibble array
	blockLight []byte // 2048-byte nibble array
}

// NewSection allocates an empty (logically all-air) section in the local
// palette regime, ready to receive its first non-air block.
func NewSection() *Section {
	return &Section{
		bits:       bitarray.New(minLocalWidth, blocksPerSection),
		palette:    []uint32{AirBlockState},
		skyLight:   make([]byte, blocksPerSection/2),
		blockLight: make([]byte, blocksPerSection/2),
	}
}

// NonAirCount returns the cached count of non-air entries.
func (s *Section) NonAirCount() int { return s.nonAir }

// Get returns the block-state id at the given 0..4095 index.
func (s *Section) Get(index int) uint32 {
	if s.palette != nil {
		return s.palette[s.bits.Get(index)]
	}
	return uint32(s.bits.Get(index))
}

// GetAt returns the block-state id at (x,y,z) within the section.
func (s *Section) GetAt(x, y, z int) uint32 { return s.Get((y<<8)|(z<<4)|x) }

// Set stores state at the given index, resizing or migrating the palette as
// needed, and returns whether the section is now entirely air (in which case
// the owning Chunk should discard it).
func (s *Section) Set(index int, state uint32) (emptyNow bool) {
	old := s.Get(index)

	if s.palette != nil {
		idx, found := binarySearchU32(s.palette, state)
		if !found {
			newLen := len(s.palette) + 1
			width := bitsNeeded(newLen)
			if width > maxLocalWidth {
				// Migrate using the OLD (unbumped) palette/bits, then write the new
				// state directly — the global regime has no palette to bump.
				s.migrateToGlobal()
				s.bits.Set(index, uint64(state))
				s.updateNonAir(old, state)
				return s.nonAir == 0
			}
			if width < minLocalWidth {
				width = minLocalWidth
			}
			// Widen first so the bump below never writes an index past the array's
			// mask — the bumped max (oldLen, i.e. newLen-1) always fits once the
			// array is sized for newLen entries.
			if width != s.bits.Width() {
				s.bits = s.bits.ResizeTo(width)
			}

			insertAt := idx
			for i := 0; i < blocksPerSection; i++ {
				cur := s.bits.Get(i)
				if int(cur) >= insertAt {
					s.bits.Set(i, cur+1)
				}
			}

			s.palette = append(s.palette, 0)
			copy(s.palette[insertAt+1:], s.palette[insertAt:len(s.palette)-1])
			s.palette[insertAt] = state
			idx = insertAt
		}
		s.bits.Set(index, uint64(idx))
	} else {
		s.bits.Set(index, uint64(state))
	}

	s.updateNonAir(old, state)
	return s.nonAir == 0
}

// SetAt stores state at (x,y,z) within the section.
func (s *Section) SetAt(x, y, z int, state uint32) bool {
	return s.Set((y<<8)|(z<<4)|x, state)
}

func (s *Section) updateNonAir(old, new uint32) {
	oldAir := old == AirBlockState
	newAir := new == AirBlockState
	if oldAir && !newAir {
		s.nonAir++
	} else if !oldAir && newAir {
		s.nonAir--
	}
}

// migrateToGlobal rebuilds the section into a fresh global-palette bit array
// (per design note: rebuild into a new structure and swap it in, never widen
// bit-by-bit in place) and drops the local palette.
func (s *Section) migrateToGlobal() {
	next := bitarray.New(GlobalPaletteBits, blocksPerSection)
	for i := 0; i < blocksPerSection; i++ {
		localIdx := s.bits.Get(i)
		next.Set(i, uint64(s.palette[localIdx]))
	}
	s.bits = next
	s.palette = nil
}

// Optimize recomputes the minimal palette by scanning all 4096 entries,
// rebuilding a sorted palette and rewriting the data; it may move a
// global-regime section back into the local regime. Invoked on explicit
// request only, never implicitly from Set.
func (s *Section) Optimize() {
	seen := make(map[uint32]bool)
	for i := 0; i < blocksPerSection; i++ {
		seen[s.Get(i)] = true
	}
	newPalette := make([]uint32, 0, len(seen))
	for v := range seen {
		newPalette = append(newPalette, v)
	}
	sort.Slice(newPalette, func(i, j int) bool { return newPalette[i] < newPalette[j] })

	width := bitsNeeded(len(newPalette))
	if width > maxLocalWidth {
		next := bitarray.New(GlobalPaletteBits, blocksPerSection)
		for i := 0; i < blocksPerSection; i++ {
			next.Set(i, uint64(s.Get(i)))
		}
		s.bits = next
		s.palette = nil
		return
	}
	if width < minLocalWidth {
		width = minLocalWidth
	}

	next := bitarray.New(width, blocksPerSection)
	for i := 0; i < blocksPerSection; i++ {
		idx, _ := binarySearchU32(newPalette, s.Get(i))
		next.Set(i, uint64(idx))
	}
	s.bits = next
	s.palette = newPalette
}

// LoadPalette rebuilds the section from a deserialized (width, palette, data)
// triple, sorting the incoming palette if necessary and remapping data indices
// to match (the "palette loading invariant").
func LoadPalette(width uint, palette []uint32, words []uint64, sky, block []byte) *Section {
	s := &Section{
		skyLight:   sky,
		blockLight: block,
	}

	if palette == nil {
		s.bits = bitarray.FromWords(width, blocksPerSection, words)
		s.palette = nil
	} else {
		raw := bitarray.FromWords(width, blocksPerSection, words)
		sorted := append([]uint32(nil), palette...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		if sortedEqual(sorted, palette) {
			s.bits = raw
		} else {
			remapped := bitarray.New(width, blocksPerSection)
			for i := 0; i < blocksPerSection; i++ {
				originalIdx := raw.Get(i)
				newIdx, _ := binarySearchU32(sorted, palette[originalIdx])
				remapped.Set(i, uint64(newIdx))
			}
			s.bits = remapped
		}
		s.palette = sorted
	}

	for i := 0; i < blocksPerSection; i++ {
		if s.Get(i) != AirBlockState {
			s.nonAir++
		}
	}
	return s
}

// Palette exposes the current local palette (nil in the global regime), for
// wire encoding.
func (s *Section) Palette() []uint32 { return s.palette }

// Bits exposes the backing bit array, for wire encoding.
func (s *Section) Bits() *bitarray.BitArray { return s.bits }

// SkyLight and BlockLight expose the nibble arrays, for wire encoding.
func (s *Section) SkyLight() []byte   { return s.skyLight }
func (s *Section) BlockLight() []byte { return s.blockLight }

func sortedEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func binarySearchU32(s []uint32, v uint32) (index int, found bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= v })
	if i < len(s) && s[i] == v {
		return i, true
	}
	return i, false
}

// bitsNeeded returns ceil(log2(n)), the minimum bit width able to index n
// distinct palette entries (0 for n<=1).
func bitsNeeded(n int) uint {
	if n <= 1 {
		return 0
	}
	x := n - 1
	var b uint
	for x > 0 {
		b++
		x >>= 1
	}
	return b
}
