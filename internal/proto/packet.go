package proto

import (
	"bytes"
	"errors"
	"io"
)

// ErrPacketTooSmall is returned when a decoded packet length is not positive.
var ErrPacketTooSmall = errors.New("proto: packet length too small")

// Packet is an in-memory Minecraft packet: a numeric id plus its opaque payload.
// Packet implements io.Reader and io.Writer over its payload so field types can be
// decoded from / encoded into it directly.
type Packet struct {
	ID   VarUInt
	data bytes.Buffer
}

// NewPacket builds a Packet with the given id, encoding each field in order.
func NewPacket(id VarUInt, fields ...io.WriterTo) *Packet {
	pk := &Packet{ID: id}
	for _, f := range fields {
		_, _ = f.WriteTo(pk)
	}
	return pk
}

func (pk *Packet) Read(p []byte) (int, error)  { return pk.data.Read(p) }
func (pk *Packet) Write(p []byte) (int, error) { return pk.data.Write(p) }
func (pk *Packet) Len() int                    { return pk.data.Len() }
func (pk *Packet) Bytes() []byte               { return pk.data.Bytes() }

// encodeRaw serializes id+payload into raw = VarUInt(id) | payload, the unit that framing
// wraps with either a plain length prefix or a compression header.
func (pk *Packet) encodeRaw() ([]byte, error) {
	var raw bytes.Buffer
	if _, err := pk.ID.WriteTo(&raw); err != nil {
		return nil, err
	}
	if _, err := raw.Write(pk.data.Bytes()); err != nil {
		return nil, err
	}
	return raw.Bytes(), nil
}
