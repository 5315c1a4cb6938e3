// Package wire encodes the voxel storage core's types onto the network, bridging
// internal/world/chunk's in-memory representation and internal/proto's primitive
// field codecs. It lives apart from both so the storage core has no dependency on
// the wire format and the wire layer has no dependency on session/transport state.
package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/opencraft/voxelcore/internal/nbt"
	"github.com/opencraft/voxelcore/internal/proto"
	"github.com/opencraft/voxelcore/internal/world/chunk"
)

// EncodeChunkData writes the ChunkData packet payload for c: the full-chunk flag,
// section bitmask, heightmap NBT, optional biome array, concatenated section
// payloads, and a (currently always empty) block-entity list.
func EncodeChunkData(w io.Writer, c *chunk.Chunk, fullChunk bool) error {
	if _, err := proto.Boolean(fullChunk).WriteTo(w); err != nil {
		return err
	}
	if _, err := proto.VarUInt(c.SectionBitmask()).WriteTo(w); err != nil {
		return err
	}
	if _, err := w.Write(nbt.FlatHeightmap()); err != nil {
		return err
	}

	if fullChunk {
		if _, err := proto.VarUInt(chunk.BiomeVolumeSize).WriteTo(w); err != nil {
			return err
		}
		for _, b := range c.Biomes() {
			if _, err := proto.Int(b).WriteTo(w); err != nil {
				return err
			}
		}
	}

	var sectionsBuf bytes.Buffer
	for i := 0; i < chunk.SectionsPerChunk; i++ {
		sec := c.Section(i)
		if sec == nil {
			continue
		}
		if err := encodeSection(&sectionsBuf, sec); err != nil {
			return err
		}
	}
	if _, err := proto.VarUInt(sectionsBuf.Len()).WriteTo(w); err != nil {
		return err
	}
	if _, err := w.Write(sectionsBuf.Bytes()); err != nil {
		return err
	}

	// No block entities: NBT block-entity encoding is an out-of-scope dependency
	// contract (spec §1); a complete implementation would append their compounds here.
	if _, err := proto.VarUInt(0).WriteTo(w); err != nil {
		return err
	}
	return nil
}

// encodeSection writes one section payload: non-air count (u16), bits-per-block
// (u8), optional VarUInt-prefixed palette, VarUInt long-count, then that many
// u64 long-words of bit-packed data.
func encodeSection(w io.Writer, sec *chunk.Section) error {
	if _, err := proto.Short(sec.NonAirCount()).WriteTo(w); err != nil {
		return err
	}

	bits := sec.Bits()
	if _, err := proto.UnsignedByte(bits.Width()).WriteTo(w); err != nil {
		return err
	}

	if palette := sec.Palette(); palette != nil {
		if _, err := proto.VarUInt(len(palette)).WriteTo(w); err != nil {
			return err
		}
		for _, id := range palette {
			if _, err := proto.VarUInt(id).WriteTo(w); err != nil {
				return err
			}
		}
	}

	words := bits.Words()
	if _, err := proto.VarUInt(len(words)).WriteTo(w); err != nil {
		return err
	}
	for _, word := range words {
		if _, err := proto.Long(int64(word)).WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeSection reads one section payload back into a *chunk.Section, applying
// the palette-loading invariant (sort + remap) if the wire palette wasn't sorted.
func DecodeSection(r io.Reader) (*chunk.Section, error) {
	var nonAir proto.Short
	if _, err := nonAir.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("wire: read non-air count: %w", err)
	}

	var bitsPerBlock proto.UnsignedByte
	if _, err := bitsPerBlock.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("wire: read bits-per-block: %w", err)
	}
	width := uint(bitsPerBlock)

	var palette []uint32
	if width <= 9 {
		var paletteLen proto.VarUInt
		if _, err := paletteLen.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("wire: read palette length: %w", err)
		}
		palette = make([]uint32, paletteLen)
		for i := range palette {
			var v proto.VarUInt
			if _, err := v.ReadFrom(r); err != nil {
				return nil, fmt.Errorf("wire: read palette entry: %w", err)
			}
			palette[i] = uint32(v)
		}
	}

	var longCount proto.VarUInt
	if _, err := longCount.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("wire: read long count: %w", err)
	}
	words := make([]uint64, longCount)
	for i := range words {
		var l proto.Long
		if _, err := l.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("wire: read data word: %w", err)
		}
		words[i] = uint64(l)
	}

	return chunk.LoadPalette(width, palette, words, nil, nil), nil
}
