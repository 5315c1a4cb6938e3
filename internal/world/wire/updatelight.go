package wire

import (
	"io"

	"github.com/opencraft/voxelcore/internal/proto"
	"github.com/opencraft/voxelcore/internal/world/chunk"
)

// EncodeUpdateLight writes the UpdateLight packet payload for c: chunk
// coordinates, the four section bitmasks (sky present, block present, sky
// known-empty, block known-empty), then the present nibble arrays in
// ascending section order. Sections with no stored array are reported in the
// empty masks, which tells the client those sections carry zero light rather
// than leaving them undefined.
func EncodeUpdateLight(w io.Writer, c *chunk.Chunk) error {
	if _, err := proto.VarInt(c.Pos.X).WriteTo(w); err != nil {
		return err
	}
	if _, err := proto.VarInt(c.Pos.Z).WriteTo(w); err != nil {
		return err
	}

	var skyMask, blockMask, emptySkyMask, emptyBlockMask uint32
	for i := 0; i < chunk.LightSectionsPerChunk; i++ {
		if c.SkyLight(i) != nil {
			skyMask |= 1 << uint(i)
		} else {
			emptySkyMask |= 1 << uint(i)
		}
		if c.BlockLight(i) != nil {
			blockMask |= 1 << uint(i)
		} else {
			emptyBlockMask |= 1 << uint(i)
		}
	}

	for _, mask := range []uint32{skyMask, blockMask, emptySkyMask, emptyBlockMask} {
		if _, err := proto.VarUInt(mask).WriteTo(w); err != nil {
			return err
		}
	}

	for i := 0; i < chunk.LightSectionsPerChunk; i++ {
		if data := c.SkyLight(i); data != nil {
			if err := writeLightArray(w, data); err != nil {
				return err
			}
		}
	}
	for i := 0; i < chunk.LightSectionsPerChunk; i++ {
		if data := c.BlockLight(i); data != nil {
			if err := writeLightArray(w, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLightArray(w io.Writer, data []byte) error {
	if _, err := proto.VarUInt(len(data)).WriteTo(w); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
