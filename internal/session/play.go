package session

import (
	"context"
	"fmt"
	"time"

	"github.com/opencraft/voxelcore/internal/metrics"
	"github.com/opencraft/voxelcore/internal/player"
	"github.com/opencraft/voxelcore/internal/proto"
	"github.com/opencraft/voxelcore/internal/world/chunk"
	"github.com/opencraft/voxelcore/internal/world/region"
)

// pluginBrand is the value sent on the "minecraft:brand" plugin channel.
const pluginBrand = "voxelcore"

// overworldDimension is the JoinGame dimension id for the only world this
// server exposes (non-goal: multi-dimension support).
const overworldDimension = 0

// beginPlay sends the fixed Play-entry packet sequence per §4.B, then waits
// for the client's ClientSettings to trigger entity spawn — it does not
// block the read loop; ClientSettings arrives as an ordinary dispatched
// packet and spawnPlayer runs from there.
func (s *Session) beginPlay() error {
	joinGame := proto.NewPacket(proto.PlayCBJoinGame,
		proto.Int(0), // entity id: always 0; JoinGame goes out before the id is reserved and no later packet resends it
		proto.UnsignedByte(0), // gamemode: survival
		proto.Int(overworldDimension),
		proto.Long(0), // hashed seed
		proto.UnsignedByte(20), // max players (legacy field, informational only)
		proto.String("default"), // level type
		proto.VarInt(int32(s.deps.Config.ViewDistance)),
		proto.Boolean(false), // reduced debug info
		proto.Boolean(true),  // enable respawn screen
	)
	if err := s.transport.WritePacket(joinGame); err != nil {
		return err
	}

	brandPk := proto.NewPacket(proto.PlayCBPluginMessage, proto.String("minecraft:brand"))
	_, _ = proto.String(pluginBrand).WriteTo(brandPk)
	if err := s.transport.WritePacket(brandPk); err != nil {
		return err
	}

	if err := s.transport.WritePacket(proto.NewPacket(proto.PlayCBHeldItemChange, proto.Byte(0))); err != nil {
		return err
	}
	if err := s.transport.WritePacket(proto.NewPacket(proto.PlayCBDeclareRecipes, proto.VarUInt(0))); err != nil {
		return err
	}
	if err := s.transport.WritePacket(proto.NewPacket(proto.PlayCBTags, proto.VarUInt(0), proto.VarUInt(0), proto.VarUInt(0), proto.VarUInt(0))); err != nil {
		return err
	}
	if err := s.transport.WritePacket(proto.NewPacket(proto.PlayCBEntityStatus, proto.Int(0), proto.Byte(24))); err != nil {
		return err
	}

	cmdPk := &proto.Packet{ID: proto.PlayCBDeclareCommands}
	if err := s.deps.Commands.Encode(cmdPk); err != nil {
		return fmt.Errorf("session: encode command graph: %w", err)
	}
	if err := s.transport.WritePacket(cmdPk); err != nil {
		return err
	}

	return s.transport.WritePacket(proto.NewPacket(proto.PlayCBUnlockRecipes,
		proto.VarUInt(0), proto.Boolean(false), proto.Boolean(false),
		proto.Boolean(false), proto.Boolean(false), proto.Boolean(false), proto.Boolean(false),
		proto.VarUInt(0), proto.VarUInt(0),
	))
}

func (s *Session) handlePlay(pk *proto.Packet) error {
	switch pk.ID {
	case proto.PlaySBClientSettings:
		return s.handleClientSettings(pk)
	case proto.PlaySBTeleportConfirm:
		return s.handleTeleportConfirm(pk)
	case proto.PlaySBKeepAlive:
		return s.handleKeepAliveResponse(pk)
	case proto.PlaySBPlayerPosition, proto.PlaySBPlayerPosAndLook, proto.PlaySBPlayerRotation, proto.PlaySBPlayerMovement:
		return s.handlePlayerMovement(pk)
	case proto.PlaySBHeldItemChange:
		var slot proto.Short
		if _, err := slot.ReadFrom(pk); err != nil {
			return err
		}
		s.player.SetSelectedHotbarSlot(int8(slot), false)
	default:
		// Chat, animation, entity actions and the like are accepted once Play is
		// reached but have no world-visible effect here (non-goal: AI/physics/etc).
	}
	return nil
}

func (s *Session) handleClientSettings(pk *proto.Packet) error {
	var locale proto.String
	var viewDistance proto.Byte
	var chatMode proto.VarUInt
	var chatColors proto.Boolean
	var skinParts proto.UnsignedByte
	var mainHand proto.VarUInt
	if _, err := locale.ReadFrom(pk); err != nil {
		return err
	}
	if _, err := viewDistance.ReadFrom(pk); err != nil {
		return err
	}
	if _, err := chatMode.ReadFrom(pk); err != nil {
		return err
	}
	if _, err := chatColors.ReadFrom(pk); err != nil {
		return err
	}
	if _, err := skinParts.ReadFrom(pk); err != nil {
		return err
	}
	if _, err := mainHand.ReadFrom(pk); err != nil {
		return err
	}

	settings := player.Settings{
		Locale:       string(locale),
		ViewDistance: int8(viewDistance),
		ChatMode:     int32(chatMode),
		ChatColors:   bool(chatColors),
		MainHand:     int32(mainHand),
	}
	// Clamp to the server's configured radius (§4.D.5's view-distance clamp);
	// the controller diffs its subscription square against this value.
	if settings.ViewDistance <= 0 || settings.ViewDistance > s.deps.Config.ViewDistance {
		settings.ViewDistance = s.deps.Config.ViewDistance
	}

	if (player.Handle{}) == s.player {
		return s.spawnPlayer(settings)
	}
	s.player.UpdateSettings(settings)
	return nil
}

// spawnPlayer follows §4.D.5's SpawnEntityPlayerOnline sequence.
func (s *Session) spawnPlayer(settings player.Settings) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entityID, err := s.deps.Universe.ReserveEntityID(ctx)
	if err != nil {
		return fmt.Errorf("session: reserve entity id: %w", err)
	}
	s.entityID = entityID

	w, err := s.deps.Universe.World(ctx, s.deps.Universe.DefaultWorld)
	if err != nil {
		return fmt.Errorf("session: fetch world: %w", err)
	}

	spawnChunk := w.SpawnPosition
	if err := s.transport.WritePacket(proto.NewPacket(proto.PlayCBUpdateViewPosition,
		proto.VarInt(spawnChunk.X), proto.VarInt(spawnChunk.Z))); err != nil {
		return err
	}

	results := w.SubscribeSquare(ctx, spawnChunk, int32(settings.ViewDistance), entityID, s)
	subscribed := make(map[chunk.Position]region.Handle, len(results))
	for _, r := range results {
		if r.Err == nil {
			subscribed[r.Pos] = r.Region
		}
	}

	if err := s.transport.WritePacket(proto.NewPacket(proto.PlayCBWorldBorder,
		proto.VarUInt(3), // "Initialize" action
		proto.Double(0), proto.Double(0), proto.Double(6.0e7), proto.Double(6.0e7),
		proto.VarLong(0), proto.VarUInt(29999984), proto.VarUInt(5), proto.VarUInt(15),
	)); err != nil {
		return err
	}

	wx, wy, wz := spawnChunk.WorldOffset()
	if err := s.transport.WritePacket(proto.NewPacket(proto.PlayCBSpawnPosition,
		proto.BlockPosition{X: wx, Y: wy, Z: wz})); err != nil {
		return err
	}

	s.teleportSeq++
	teleportID := s.teleportSeq
	s.pendingTeleportID = teleportID
	teleportPk := proto.NewPacket(proto.PlayCBPlayerPosAndLook,
		proto.Double(float64(wx)), proto.Double(float64(wy)+1), proto.Double(float64(wz)),
		proto.Float(0), proto.Float(0),
		proto.Byte(0), proto.VarUInt(teleportID),
	)
	if err := s.transport.WritePacket(teleportPk); err != nil {
		return err
	}

	entity := player.Entity{
		EntityID: entityID,
		Name:     s.profile.Name,
		Pos:      player.Position{X: float64(wx), Y: float64(wy) + 1, Z: float64(wz)},
		Settings: settings,
	}
	// The controller asks for further chunks itself as the view square shifts;
	// each request runs the region round-trip off the controller's goroutine
	// and reports back through the controller's own handle.
	subscribe := player.SubscribeFunc(func(pos chunk.Position, self player.Handle) {
		go func() {
			subCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			h, err := w.SubscribeChunk(subCtx, pos, entityID, s)
			self.SubscribedChunk(pos, h, err)
		}()
	})
	s.player = player.Spawn(s.log, s, entity, subscribe, subscribed, teleportID)
	metrics.PlayersOnline.Inc()
	s.keepAlive = newKeepAliveTicker(s)
	go s.keepAlive.Run()
	return nil
}

func (s *Session) handleTeleportConfirm(pk *proto.Packet) error {
	var id proto.VarUInt
	if _, err := id.ReadFrom(pk); err != nil {
		return err
	}
	if uint16(id) == s.pendingTeleportID {
		s.player.TeleportConfirmed(uint16(id))
	}
	return nil
}

func (s *Session) handlePlayerMovement(pk *proto.Packet) error {
	var pos *player.Position
	var rot *player.Rotation
	var onGround proto.Boolean

	switch pk.ID {
	case proto.PlaySBPlayerPosition:
		var x, y, z proto.Double
		x.ReadFrom(pk)
		y.ReadFrom(pk)
		z.ReadFrom(pk)
		onGround.ReadFrom(pk)
		pos = &player.Position{X: float64(x), Y: float64(y), Z: float64(z)}
	case proto.PlaySBPlayerPosAndLook:
		var x, y, z proto.Double
		var yaw, pitch proto.Float
		x.ReadFrom(pk)
		y.ReadFrom(pk)
		z.ReadFrom(pk)
		yaw.ReadFrom(pk)
		pitch.ReadFrom(pk)
		onGround.ReadFrom(pk)
		pos = &player.Position{X: float64(x), Y: float64(y), Z: float64(z)}
		rot = &player.Rotation{Yaw: float32(yaw), Pitch: float32(pitch)}
	case proto.PlaySBPlayerRotation:
		var yaw, pitch proto.Float
		yaw.ReadFrom(pk)
		pitch.ReadFrom(pk)
		onGround.ReadFrom(pk)
		rot = &player.Rotation{Yaw: float32(yaw), Pitch: float32(pitch)}
	case proto.PlaySBPlayerMovement:
		onGround.ReadFrom(pk)
	}

	if (player.Handle{}) != s.player {
		s.player.PlayerMoved(pos, rot, bool(onGround))
	}
	return nil
}
