// Package region implements the Region actor: a 2x2 chunk tile that owns its
// chunks, a per-chunk subscriber set, and its own 20 Hz tick schedule with lag
// accounting, per spec §4.D.4.
package region

import (
	"bytes"
	"context"
	"fmt"

	"github.com/opencraft/voxelcore/internal/actor"
	"github.com/opencraft/voxelcore/internal/proto"
	"github.com/opencraft/voxelcore/internal/world/chunk"
	"github.com/opencraft/voxelcore/internal/world/wire"
	"go.uber.org/zap"
)

// Position identifies a region by its 2x2-chunk-tile coordinate.
type Position struct{ X, Z int32 }

// Of returns the region containing the given chunk position.
func Of(c chunk.Position) Position { return Position{X: c.X >> 1, Z: c.Z >> 1} }

// ConnHandle is the minimal surface a Region needs from a player's connection to
// push packets to it; satisfied by the session/player packages without region
// importing either (avoids an upward dependency).
type ConnHandle interface {
	SendPacket(pk *proto.Packet) error
}

// BlockChange describes one block mutation, for broadcast batching.
type BlockChange struct {
	ChunkPos   chunk.Position
	LocalX, Y, LocalZ int
	State      uint32
}

// Message is the union of everything a Region actor accepts, plus actor.StopActor.
type Message interface{ isRegionMessage() }

type GetBlock struct {
	ChunkPos          chunk.Position
	LocalX, Y, LocalZ int
	Reply             chan uint32
}

type SetChunk struct{ Chunk *chunk.Chunk }

type SetBlock struct {
	Change BlockChange
}

type PlayerSubscribe struct {
	ChunkPos     chunk.Position
	PlayerID     int32
	Conn         ConnHandle
	SendComplete bool
	Reply        chan error
}

type PlayerUnsubscribe struct {
	ChunkPos chunk.Position
	PlayerID int32
}

type PerformTick struct {
	Count int
	ack   chan struct{}
}

func (GetBlock) isRegionMessage()          {}
func (SetChunk) isRegionMessage()          {}
func (SetBlock) isRegionMessage()          {}
func (PlayerSubscribe) isRegionMessage()   {}
func (PlayerUnsubscribe) isRegionMessage() {}
func (PerformTick) isRegionMessage()       {}

type stopMsg struct{ actor.StopActor }

func (stopMsg) isRegionMessage() {}

// Handle is the cheaply cloneable sender half of a running Region actor.
type Handle struct {
	inner actor.Handle[Message]
}

func (h Handle) send(msg Message) { h.inner.TrySend(msg) }

// Stop requests the actor shut down; done (if non-nil) closes once state is torn down.
func (h Handle) Stop(done chan struct{}) {
	h.inner.TrySend(stopMsg{actor.StopActor{Done: done}})
}

// GetBlock round-trips through the actor's mailbox; ctx bounds the wait so a
// full mailbox surfaces as actor.ErrMessaging instead of parking the caller.
func (h Handle) GetBlock(ctx context.Context, cp chunk.Position, x, y, z int) (uint32, error) {
	reply := make(chan uint32, 1)
	msg := GetBlock{ChunkPos: cp, LocalX: x, Y: y, LocalZ: z, Reply: reply}
	return actor.Request(ctx, h.inner, Message(msg), reply)
}

func (h Handle) SetChunk(c *chunk.Chunk) { h.send(SetChunk{Chunk: c}) }

func (h Handle) SetBlock(c BlockChange) { h.send(SetBlock{Change: c}) }

func (h Handle) PlayerSubscribe(ctx context.Context, cp chunk.Position, playerID int32, conn ConnHandle, sendComplete bool) error {
	reply := make(chan error, 1)
	msg := PlayerSubscribe{ChunkPos: cp, PlayerID: playerID, Conn: conn, SendComplete: sendComplete, Reply: reply}
	res, err := actor.Request(ctx, h.inner, Message(msg), reply)
	if err != nil {
		return err
	}
	return res
}

func (h Handle) PlayerUnsubscribe(cp chunk.Position, playerID int32) {
	h.send(PlayerUnsubscribe{ChunkPos: cp, PlayerID: playerID})
}

// multiBlockChangeThreshold is the number of same-tick, same-chunk block changes
// at or above which broadcasts batch into MultiBlockChange instead of one BlockChange
// per block (spec §4.D.4, "implementations may batch above a threshold").
const multiBlockChangeThreshold = 2

// subscriberSet maps a subscribed player id to its connection handle.
type subscriberSet map[int32]ConnHandle

// region is the actor's private state.
type region struct {
	pos Position
	log *zap.SugaredLogger

	chunks      map[chunk.Position]*chunk.Chunk
	subscribers map[chunk.Position]subscriberSet

	pendingChanges map[chunk.Position][]BlockChange

	tickCount int64
}

// Spawn starts a Region actor and returns its handle.
func Spawn(pos Position, log *zap.SugaredLogger) Handle {
	mailbox := actor.NewMailbox[Message](actor.DefaultInboxSize)
	r := &region{
		pos:            pos,
		log:            log.With("region_x", pos.X, "region_z", pos.Z),
		chunks:         make(map[chunk.Position]*chunk.Chunk),
		subscribers:    make(map[chunk.Position]subscriberSet),
		pendingChanges: make(map[chunk.Position][]BlockChange),
	}
	go actor.Run(mailbox, r.handle)
	return Handle{inner: mailbox.Handle()}
}

func (r *region) handle(msg Message) bool {
	switch m := msg.(type) {
	case GetBlock:
		c, ok := r.chunks[m.ChunkPos]
		if !ok {
			m.Reply <- chunk.AirBlockState
			return true
		}
		m.Reply <- c.GetBlock(m.LocalX, m.Y, m.LocalZ)

	case SetChunk:
		r.chunks[m.Chunk.Pos] = m.Chunk

	case SetBlock:
		r.applyBlockChange(m.Change)

	case PlayerSubscribe:
		r.subscribe(m)

	case PlayerUnsubscribe:
		if subs, ok := r.subscribers[m.ChunkPos]; ok {
			delete(subs, m.PlayerID)
		}

	case PerformTick:
		r.tick(m.Count)
		if m.ack != nil {
			close(m.ack)
		}

	case stopMsg:
		if m.Done != nil {
			close(m.Done)
		}
		return false
	}
	return true
}

func (r *region) subscribe(m PlayerSubscribe) {
	if m.SendComplete {
		c, ok := r.chunks[m.ChunkPos]
		if !ok {
			c = chunk.New(m.ChunkPos)
			r.chunks[m.ChunkPos] = c
		}
		if err := sendInitialChunk(m.Conn, c); err != nil {
			if m.Reply != nil {
				m.Reply <- err
			}
			return
		}
	}

	subs, ok := r.subscribers[m.ChunkPos]
	if !ok {
		subs = make(subscriberSet)
		r.subscribers[m.ChunkPos] = subs
	}
	subs[m.PlayerID] = m.Conn

	if m.Reply != nil {
		m.Reply <- nil
	}
}

func sendInitialChunk(conn ConnHandle, c *chunk.Chunk) error {
	lightPk := &proto.Packet{ID: proto.PlayCBUpdateLight}
	if err := wire.EncodeUpdateLight(lightPk, c); err != nil {
		return fmt.Errorf("region: encode UpdateLight: %w", err)
	}
	if err := conn.SendPacket(lightPk); err != nil {
		return fmt.Errorf("region: send UpdateLight: %w", err)
	}

	var payload bytes.Buffer
	if _, err := proto.Int(c.Pos.X).WriteTo(&payload); err != nil {
		return err
	}
	if _, err := proto.Int(c.Pos.Z).WriteTo(&payload); err != nil {
		return err
	}
	if err := wire.EncodeChunkData(&payload, c, true); err != nil {
		return fmt.Errorf("region: encode chunk data: %w", err)
	}
	chunkPk := &proto.Packet{ID: proto.PlayCBChunkData}
	chunkPk.Write(payload.Bytes())
	return conn.SendPacket(chunkPk)
}

// applyBlockChange mutates the chunk and queues the change for this tick's
// broadcast; see flushBlockChanges for the batching decision.
func (r *region) applyBlockChange(c BlockChange) {
	ch, ok := r.chunks[c.ChunkPos]
	if !ok {
		ch = chunk.New(c.ChunkPos)
		r.chunks[c.ChunkPos] = ch
	}
	ch.SetBlock(c.LocalX, c.Y, c.LocalZ, c.State)
	r.pendingChanges[c.ChunkPos] = append(r.pendingChanges[c.ChunkPos], c)
}

func (r *region) flushBlockChanges() {
	for pos, changes := range r.pendingChanges {
		subs := r.subscribers[pos]
		if len(subs) == 0 {
			continue
		}
		var pk *proto.Packet
		if len(changes) < multiBlockChangeThreshold {
			c := changes[0]
			pk = proto.NewPacket(proto.PlayCBBlockChange,
				blockPosition(c),
				proto.VarUInt(c.State),
			)
		} else {
			pk = encodeMultiBlockChange(pos, changes)
		}
		for _, conn := range subs {
			if err := conn.SendPacket(pk); err != nil {
				r.log.Debugw("block change send failed", "player_subscriber_error", err)
			}
		}
	}
	r.pendingChanges = make(map[chunk.Position][]BlockChange)
}

func blockPosition(c BlockChange) proto.BlockPosition {
	wx, _, wz := c.ChunkPos.WorldOffset()
	return proto.BlockPosition{X: wx + int32(c.LocalX), Y: int32(c.Y), Z: wz + int32(c.LocalZ)}
}

func encodeMultiBlockChange(pos chunk.Position, changes []BlockChange) *proto.Packet {
	pk := proto.NewPacket(proto.PlayCBMultiBlockChange,
		proto.Int(pos.X), proto.Int(pos.Z),
		proto.VarUInt(len(changes)),
	)
	for _, c := range changes {
		// Each record: horizontal position packed as x<<4|z, then y, then the state.
		_, _ = proto.UnsignedByte(c.LocalX<<4 | c.LocalZ).WriteTo(pk)
		_, _ = proto.UnsignedByte(c.Y).WriteTo(pk)
		_, _ = proto.VarUInt(c.State).WriteTo(pk)
	}
	return pk
}

// tick is invoked once per PerformTick message; count > 1 means the timer is
// asking for a catch-up double-tick after lag accumulated, so the tick's
// effects are applied twice to keep simulated time from falling permanently
// behind wall-clock time.
func (r *region) tick(count int) {
	r.tickCount += int64(count)
	for i := 0; i < count; i++ {
		r.flushBlockChanges()
	}
}
