package proto

import (
	"bytes"
	"testing"
)

func TestVarUIntRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 255, 25565, 2097151, 1<<31 - 1, 1 << 31, ^uint32(0)}
	for _, v := range cases {
		var buf bytes.Buffer
		if _, err := VarUInt(v).WriteTo(&buf); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		var got VarUInt
		if _, err := got.ReadFrom(&buf); err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if uint32(got) != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}
}

func TestVarUIntTooBig(t *testing.T) {
	// Five continuation bytes followed by a terminator (six bytes): exceeds the 5-byte max for a 32-bit value.
	buf := bytes.NewBuffer([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	var v VarUInt
	if _, err := v.ReadFrom(buf); err != ErrVarIntTooBig {
		t.Fatalf("expected ErrVarIntTooBig, got %v", err)
	}
}

func TestVarLongRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 1 << 40, ^uint64(0)}
	for _, v := range cases {
		var buf bytes.Buffer
		if _, err := VarLong(v).WriteTo(&buf); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		var got VarLong
		if _, err := got.ReadFrom(&buf); err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if uint64(got) != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}
}

func TestBlockPositionRoundTrip(t *testing.T) {
	cases := []BlockPosition{
		{X: 0, Y: 0, Z: 0},
		{X: -1 << 25, Y: -2048, Z: -1 << 25},
		{X: 1<<25 - 1, Y: 2047, Z: 1<<25 - 1},
		{X: 100, Y: -64, Z: -200},
	}
	for _, p := range cases {
		var buf bytes.Buffer
		if _, err := p.WriteTo(&buf); err != nil {
			t.Fatalf("write %+v: %v", p, err)
		}
		var got BlockPosition
		if _, err := got.ReadFrom(&buf); err != nil {
			t.Fatalf("read %+v: %v", p, err)
		}
		if got != p {
			t.Fatalf("round trip %+v: got %+v", p, got)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := String("hello, minecraft")
	if _, err := in.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	var out String
	if _, err := out.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %q want %q", out, in)
	}
}
