// Package nbt is a minimal dependency-contract stub for the named binary tag
// format (out of scope per spec §1: "NBT encoding (a dependency contract)").
// It only supplies the one fixed compound the Play handshake needs — a flat
// heightmap — as a pre-built byte blob, the same approach the teacher used for
// its join-game payload. No dimension codec is encoded here.
package nbt

// flatHeightmap is a minimal NBT compound: {"MOTION_BLOCKING": [long array of 36
// zero-valued longs]}, TAG_Compound-terminated. Every heightmap entry points at
// y=0, which is sufficient since lighting/physics are explicit non-goals.
var flatHeightmap = buildFlatHeightmap()

func buildFlatHeightmap() []byte {
	// TAG_Compound(""), TAG_Long_Array("MOTION_BLOCKING", 36 zero longs), TAG_End.
	name := "MOTION_BLOCKING"
	buf := make([]byte, 0, 3+2+len(name)+4+36*8+1)
	buf = append(buf, 0x0A, 0x00, 0x00) // TAG_Compound, empty root name
	buf = append(buf, 0x0C)             // TAG_Long_Array id
	buf = append(buf, byte(len(name)>>8), byte(len(name)))
	buf = append(buf, name...)
	buf = append(buf, 0x00, 0x00, 0x00, 0x24) // 36 entries
	buf = append(buf, make([]byte, 36*8)...)
	buf = append(buf, 0x00) // TAG_End
	return buf
}

// FlatHeightmap returns the heightmap compound used by every ChunkData packet
// this server sends.
func FlatHeightmap() []byte { return flatHeightmap }
