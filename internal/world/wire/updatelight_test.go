package wire

import (
	"bytes"
	"testing"

	"github.com/opencraft/voxelcore/internal/proto"
	"github.com/opencraft/voxelcore/internal/world/chunk"
)

// TestEncodeUpdateLightMasks checks the mask bookkeeping: sections with a
// stored nibble array land in the present masks and their data follows;
// everything else is declared empty.
func TestEncodeUpdateLightMasks(t *testing.T) {
	c := chunk.New(chunk.Position{X: 3, Z: -2})

	sky := make([]byte, chunk.LightArraySize)
	sky[0] = 0xFF
	c.SetSkyLight(4, sky)

	emitted := make([]byte, chunk.LightArraySize)
	emitted[10] = 0x0F
	c.SetBlockLight(1, emitted)
	c.SetBlockLight(17, make([]byte, chunk.LightArraySize))

	var buf bytes.Buffer
	if err := EncodeUpdateLight(&buf, c); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var x, z proto.VarInt
	if _, err := x.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := z.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	if int32(x) != 3 || int32(z) != -2 {
		t.Errorf("chunk = (%d,%d), want (3,-2)", x, z)
	}

	var masks [4]proto.VarUInt
	for i := range masks {
		if _, err := masks[i].ReadFrom(&buf); err != nil {
			t.Fatal(err)
		}
	}
	skyMask, blockMask, emptySky, emptyBlock := uint32(masks[0]), uint32(masks[1]), uint32(masks[2]), uint32(masks[3])

	if skyMask != 1<<4 {
		t.Errorf("sky mask = %#x, want bit 4 only", skyMask)
	}
	if blockMask != 1<<1|1<<17 {
		t.Errorf("block mask = %#x, want bits 1 and 17", blockMask)
	}
	if skyMask&emptySky != 0 || blockMask&emptyBlock != 0 {
		t.Errorf("present and empty masks overlap: sky %#x/%#x block %#x/%#x", skyMask, emptySky, blockMask, emptyBlock)
	}
	allSections := uint32(1<<chunk.LightSectionsPerChunk) - 1
	if skyMask|emptySky != allSections || blockMask|emptyBlock != allSections {
		t.Errorf("masks do not cover all %d light sections", chunk.LightSectionsPerChunk)
	}

	// One sky array then two block arrays, each length-prefixed.
	for i := 0; i < 3; i++ {
		var n proto.VarUInt
		if _, err := n.ReadFrom(&buf); err != nil {
			t.Fatalf("array %d length: %v", i, err)
		}
		if int(n) != chunk.LightArraySize {
			t.Fatalf("array %d length = %d, want %d", i, n, chunk.LightArraySize)
		}
		data := make([]byte, n)
		if _, err := buf.Read(data); err != nil {
			t.Fatal(err)
		}
		if i == 0 && data[0] != 0xFF {
			t.Errorf("sky array data not preserved")
		}
	}
	if buf.Len() != 0 {
		t.Errorf("%d trailing bytes after light arrays", buf.Len())
	}
}
