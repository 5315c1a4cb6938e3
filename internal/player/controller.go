// Package player implements the Player controller actor: the bridge between a
// connection session and a world entity, per spec §4.E. It owns the player's
// connection handle, entity state, and chunk subscription set, and reacts to
// movement/settings messages from the session and subscription callbacks from
// the world/region actors.
package player

import (
	"context"
	"math"

	"github.com/opencraft/voxelcore/internal/actor"
	"github.com/opencraft/voxelcore/internal/proto"
	"github.com/opencraft/voxelcore/internal/world/chunk"
	"github.com/opencraft/voxelcore/internal/world/region"
	"go.uber.org/zap"
)

// ConnHandle is the minimal surface a controller needs to push packets to its
// client; satisfied by internal/session.Session without this package importing
// it (the session owns the controller's Handle, not the reverse).
type ConnHandle interface {
	SendPacket(pk *proto.Packet) error
}

// SubscribeFunc asks the world layer to subscribe this player to pos and
// deliver the outcome back through self.SubscribedChunk. Implementations run
// the actual region round-trip off the controller's goroutine.
type SubscribeFunc func(pos chunk.Position, self Handle)

// Settings mirrors the client's ClientSettings packet fields relevant to
// subscription/view-distance bookkeeping.
type Settings struct {
	Locale       string
	ViewDistance int8
	ChatMode     int32
	ChatColors   bool
	MainHand     int32
}

// Position is a player's world-space position.
type Position struct{ X, Y, Z float64 }

// ChunkPos returns the chunk column containing this position. Floor before
// shifting so coordinates in (-16,0) land in chunk -1, not chunk 0.
func (p Position) ChunkPos() chunk.Position {
	return chunk.Position{X: int32(math.Floor(p.X)) >> 4, Z: int32(math.Floor(p.Z)) >> 4}
}

// Rotation is a player's look direction in degrees.
type Rotation struct{ Yaw, Pitch float32 }

// Entity is the gameplay-visible state of one connected player.
type Entity struct {
	EntityID     int32
	Name         string
	Pos          Position
	Rot          Rotation
	OnGround     bool
	Health       float32
	Settings     Settings
	SelectedSlot int8
}

// Message is the union of everything a Player controller accepts, plus actor.StopActor.
type Message interface{ isPlayerMessage() }

// UpdateSettings stores the client's settings; a changed view distance
// triggers a resubscription diff against the new chunk square.
type UpdateSettings struct{ Settings Settings }

// SetSelectedHotbarSlot asserts slot in [0,8]; if UpdateClient, sends
// HeldItemChange to the owning client first.
type SetSelectedHotbarSlot struct {
	Slot         int8
	UpdateClient bool
}

// PlayerMoved applies a validated position/rotation delta; ignored entirely
// until the last teleport has been confirmed.
type PlayerMoved struct {
	Pos      *Position
	Rot      *Rotation
	OnGround bool
}

// TeleportConfirmed is the session's oneshot signal that the client echoed
// teleport id ID in a TeleportConfirm packet.
type TeleportConfirmed struct{ ID uint16 }

// SubscribedChunk is the world/region callback transitioning a pending
// subscription into an active one (or reporting its failure).
type SubscribedChunk struct {
	Pos    chunk.Position
	Handle region.Handle
	Err    error
}

// getEntity is the request/reply probe used by the session and by tests.
type getEntity struct{ reply chan Entity }

type stopMsg struct{ actor.StopActor }

func (UpdateSettings) isPlayerMessage()        {}
func (SetSelectedHotbarSlot) isPlayerMessage() {}
func (PlayerMoved) isPlayerMessage()           {}
func (TeleportConfirmed) isPlayerMessage()     {}
func (SubscribedChunk) isPlayerMessage()       {}
func (getEntity) isPlayerMessage()             {}
func (stopMsg) isPlayerMessage()               {}

// Handle is the cheaply cloneable sender half of a running Player controller.
type Handle struct {
	inner actor.Handle[Message]
}

func (h Handle) send(msg Message) { h.inner.TrySend(msg) }

// Stop requests the controller shut down; done (if non-nil) closes once torn down.
func (h Handle) Stop(done chan struct{}) {
	h.inner.TrySend(stopMsg{actor.StopActor{Done: done}})
}

func (h Handle) UpdateSettings(s Settings) { h.send(UpdateSettings{Settings: s}) }

func (h Handle) SetSelectedHotbarSlot(slot int8, updateClient bool) {
	h.send(SetSelectedHotbarSlot{Slot: slot, UpdateClient: updateClient})
}

func (h Handle) PlayerMoved(pos *Position, rot *Rotation, onGround bool) {
	h.send(PlayerMoved{Pos: pos, Rot: rot, OnGround: onGround})
}

func (h Handle) TeleportConfirmed(id uint16) { h.send(TeleportConfirmed{ID: id}) }

func (h Handle) SubscribedChunk(pos chunk.Position, rh region.Handle, err error) {
	h.send(SubscribedChunk{Pos: pos, Handle: rh, Err: err})
}

// Entity returns a snapshot of the controller's entity state; ctx bounds the
// round-trip so a full mailbox errors instead of blocking the caller forever.
func (h Handle) Entity(ctx context.Context) (Entity, error) {
	reply := make(chan Entity, 1)
	return actor.Request(ctx, h.inner, Message(getEntity{reply: reply}), reply)
}

// defaultViewDistance is used until the client's first ClientSettings arrives.
const defaultViewDistance = 10

// controller is the actor's private state.
type controller struct {
	log  *zap.SugaredLogger
	conn ConnHandle
	self Handle

	entity Entity

	subscribe  SubscribeFunc
	subscribed map[chunk.Position]region.Handle
	pending    map[chunk.Position]bool

	// viewCenter is the chunk the current subscription square is built around.
	viewCenter chunk.Position

	pendingTeleportID uint16
	teleportConfirmed bool
}

// Spawn starts a Player controller actor for an already-spawned entity and
// returns its handle. The caller (the world/session join sequence) is expected
// to have already performed the initial chunk-subscription sequence in §4.D.5,
// seeding initialSubscriptions; subscribe is how the controller asks for new
// chunks when the player later crosses a chunk boundary or widens its view.
func Spawn(log *zap.SugaredLogger, conn ConnHandle, entity Entity, subscribe SubscribeFunc, initialSubscriptions map[chunk.Position]region.Handle, pendingTeleportID uint16) Handle {
	mailbox := actor.NewMailbox[Message](actor.DefaultInboxSize)
	handle := Handle{inner: mailbox.Handle()}
	if initialSubscriptions == nil {
		initialSubscriptions = make(map[chunk.Position]region.Handle)
	}
	c := &controller{
		log:               log.With("entity_id", entity.EntityID),
		conn:              conn,
		self:              handle,
		entity:            entity,
		subscribe:         subscribe,
		subscribed:        initialSubscriptions,
		pending:           make(map[chunk.Position]bool),
		viewCenter:        entity.Pos.ChunkPos(),
		pendingTeleportID: pendingTeleportID,
	}
	if entity.Settings.ViewDistance <= 0 {
		c.entity.Settings.ViewDistance = defaultViewDistance
	}
	go actor.Run(mailbox, c.handle)
	return handle
}

func (c *controller) handle(msg Message) bool {
	switch m := msg.(type) {
	case UpdateSettings:
		prev := c.entity.Settings.ViewDistance
		c.entity.Settings = m.Settings
		if m.Settings.ViewDistance <= 0 {
			c.entity.Settings.ViewDistance = defaultViewDistance
		}
		if c.entity.Settings.ViewDistance != prev {
			c.refreshView(c.viewCenter)
		}

	case SetSelectedHotbarSlot:
		if m.Slot < 0 || m.Slot > 8 {
			c.log.Errorw("hotbar slot out of range", "slot", m.Slot)
			return true
		}
		if m.UpdateClient {
			pk := proto.NewPacket(proto.PlayCBHeldItemChange, proto.Byte(m.Slot))
			if err := c.conn.SendPacket(pk); err != nil {
				c.log.Debugw("held item change send failed", "error", err)
			}
		}
		c.entity.SelectedSlot = m.Slot

	case PlayerMoved:
		if !c.teleportConfirmed {
			c.log.Debugw("movement ignored pending teleport confirm")
			return true
		}
		if m.Pos != nil {
			c.entity.Pos = *m.Pos
			if newCenter := m.Pos.ChunkPos(); newCenter != c.viewCenter {
				c.refreshView(newCenter)
			}
		}
		if m.Rot != nil {
			c.entity.Rot = *m.Rot
		}
		c.entity.OnGround = m.OnGround

	case TeleportConfirmed:
		if m.ID == c.pendingTeleportID {
			c.teleportConfirmed = true
		}

	case SubscribedChunk:
		delete(c.pending, m.Pos)
		if m.Err != nil {
			c.log.Debugw("chunk subscription failed", "chunk_x", m.Pos.X, "chunk_z", m.Pos.Z, "error", m.Err)
			return true
		}
		if !c.wanted(m.Pos) {
			// The view moved on while this subscription was in flight.
			m.Handle.PlayerUnsubscribe(m.Pos, c.entity.EntityID)
			return true
		}
		c.subscribed[m.Pos] = m.Handle

	case getEntity:
		m.reply <- c.entity

	case stopMsg:
		for pos, rh := range c.subscribed {
			rh.PlayerUnsubscribe(pos, c.entity.EntityID)
		}
		if m.Done != nil {
			close(m.Done)
		}
		return false
	}
	return true
}

// wanted reports whether pos falls inside the current view square.
func (c *controller) wanted(pos chunk.Position) bool {
	r := int32(c.entity.Settings.ViewDistance)
	dx, dz := pos.X-c.viewCenter.X, pos.Z-c.viewCenter.Z
	return dx >= -r && dx <= r && dz >= -r && dz <= r
}

// refreshView applies §4.E's view-distance update rule: diff the (2r+1)^2
// square around center against current subscriptions, unsubscribe leaving
// chunks (sending UnloadChunk), subscribe entering chunks, and emit
// UpdateViewPosition.
func (c *controller) refreshView(center chunk.Position) {
	c.viewCenter = center
	r := int32(c.entity.Settings.ViewDistance)

	for pos, rh := range c.subscribed {
		if c.wanted(pos) {
			continue
		}
		rh.PlayerUnsubscribe(pos, c.entity.EntityID)
		delete(c.subscribed, pos)
		unload := proto.NewPacket(proto.PlayCBUnloadChunk, proto.Int(pos.X), proto.Int(pos.Z))
		if err := c.conn.SendPacket(unload); err != nil {
			c.log.Debugw("unload chunk send failed", "error", err)
		}
	}

	if c.subscribe != nil {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				pos := chunk.Position{X: center.X + dx, Z: center.Z + dz}
				if _, ok := c.subscribed[pos]; ok {
					continue
				}
				if c.pending[pos] {
					continue
				}
				c.pending[pos] = true
				c.subscribe(pos, c.self)
			}
		}
	}

	viewPk := proto.NewPacket(proto.PlayCBUpdateViewPosition, proto.VarInt(center.X), proto.VarInt(center.Z))
	if err := c.conn.SendPacket(viewPk); err != nil {
		c.log.Debugw("update view position send failed", "error", err)
	}
}
