package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/opencraft/voxelcore/internal/proto"
	"github.com/opencraft/voxelcore/internal/world/chunk"
	"github.com/opencraft/voxelcore/internal/world/region"
	"go.uber.org/zap"
)

// captureConn records every packet pushed to the client.
type captureConn struct {
	mu      sync.Mutex
	packets []*proto.Packet
}

func (c *captureConn) SendPacket(pk *proto.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, pk)
	return nil
}

func (c *captureConn) ids() []proto.VarUInt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]proto.VarUInt, len(c.packets))
	for i, pk := range c.packets {
		out[i] = pk.ID
	}
	return out
}

// mustEntity fetches the controller's entity snapshot, failing the test on a
// messaging error.
func mustEntity(t *testing.T, h Handle) Entity {
	t.Helper()
	e, err := h.Entity(context.Background())
	if err != nil {
		t.Fatalf("Entity: %v", err)
	}
	return e
}

// TestTeleportConfirmGatesMovement drives the gating rule: position packets
// before the teleport confirm must not move the entity; the first one after
// the confirm must.
func TestTeleportConfirmGatesMovement(t *testing.T) {
	log := zap.NewNop().Sugar()
	conn := &captureConn{}
	entity := Entity{EntityID: 1, Pos: Position{X: 8, Y: 64, Z: 8}}

	h := Spawn(log, conn, entity, nil, nil, 7)
	defer h.Stop(nil)

	h.PlayerMoved(&Position{X: 100, Y: 64, Z: 100}, nil, true)
	h.PlayerMoved(&Position{X: 101, Y: 64, Z: 101}, nil, true)

	if got := mustEntity(t, h).Pos; got != entity.Pos {
		t.Fatalf("position moved before teleport confirm: %+v", got)
	}

	h.TeleportConfirmed(7)
	want := Position{X: 102, Y: 64, Z: 102}
	h.PlayerMoved(&want, nil, true)

	if got := mustEntity(t, h).Pos; got != want {
		t.Fatalf("position = %+v after confirm, want %+v", got, want)
	}
}

// TestTeleportConfirmWrongIDStillGates verifies a confirm for a stale id does
// not open the gate.
func TestTeleportConfirmWrongIDStillGates(t *testing.T) {
	log := zap.NewNop().Sugar()
	conn := &captureConn{}
	entity := Entity{EntityID: 1, Pos: Position{X: 8, Y: 64, Z: 8}}

	h := Spawn(log, conn, entity, nil, nil, 7)
	defer h.Stop(nil)

	h.TeleportConfirmed(6)
	h.PlayerMoved(&Position{X: 100, Y: 64, Z: 100}, nil, true)

	if got := mustEntity(t, h).Pos; got != entity.Pos {
		t.Fatalf("position moved after mismatched confirm: %+v", got)
	}
}

// TestViewRefreshOnChunkBoundaryCross checks the view-distance update rule:
// crossing a chunk boundary unsubscribes the leaving column, requests the
// entering column, and emits UpdateViewPosition (plus one UnloadChunk per
// leaving chunk).
func TestViewRefreshOnChunkBoundaryCross(t *testing.T) {
	log := zap.NewNop().Sugar()
	conn := &captureConn{}

	rh := region.Spawn(region.Position{}, log)
	defer rh.Stop(nil)

	var mu sync.Mutex
	requested := make(map[chunk.Position]bool)
	subscribe := SubscribeFunc(func(pos chunk.Position, self Handle) {
		mu.Lock()
		requested[pos] = true
		mu.Unlock()
		self.SubscribedChunk(pos, rh, nil)
	})

	initial := make(map[chunk.Position]region.Handle)
	for dz := int32(-1); dz <= 1; dz++ {
		for dx := int32(-1); dx <= 1; dx++ {
			initial[chunk.Position{X: dx, Z: dz}] = rh
		}
	}

	entity := Entity{
		EntityID: 9,
		Pos:      Position{X: 8, Y: 64, Z: 8},
		Settings: Settings{ViewDistance: 1},
	}
	h := Spawn(log, conn, entity, subscribe, initial, 1)
	defer h.Stop(nil)

	h.TeleportConfirmed(1)
	h.PlayerMoved(&Position{X: 24, Y: 64, Z: 8}, nil, true) // chunk (0,0) -> (1,0)

	// Entity() flushes the mailbox up to this point.
	if got := mustEntity(t, h).Pos.ChunkPos(); (got != chunk.Position{X: 1, Z: 0}) {
		t.Fatalf("view center chunk = %+v, want (1,0)", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(requested)
		mu.Unlock()
		if n == 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	for dz := int32(-1); dz <= 1; dz++ {
		if !requested[chunk.Position{X: 2, Z: dz}] {
			t.Errorf("entering chunk (2,%d) was never requested", dz)
		}
	}
	if len(requested) != 3 {
		t.Errorf("requested %d chunks, want exactly the 3 entering ones: %v", len(requested), requested)
	}
	mu.Unlock()

	var unloads, viewUpdates int
	for _, id := range conn.ids() {
		switch id {
		case proto.PlayCBUnloadChunk:
			unloads++
		case proto.PlayCBUpdateViewPosition:
			viewUpdates++
		}
	}
	if unloads != 3 {
		t.Errorf("sent %d UnloadChunk packets, want 3 (the leaving x=-1 column)", unloads)
	}
	if viewUpdates != 1 {
		t.Errorf("sent %d UpdateViewPosition packets, want 1", viewUpdates)
	}
}

// TestViewRefreshOnViewDistanceChange narrows the view from 2 to 1 and
// expects the ring of 16 chunks at distance 2 to be unloaded without any new
// subscription requests.
func TestViewRefreshOnViewDistanceChange(t *testing.T) {
	log := zap.NewNop().Sugar()
	conn := &captureConn{}

	rh := region.Spawn(region.Position{}, log)
	defer rh.Stop(nil)

	var mu sync.Mutex
	var requests int
	subscribe := SubscribeFunc(func(pos chunk.Position, self Handle) {
		mu.Lock()
		requests++
		mu.Unlock()
		self.SubscribedChunk(pos, rh, nil)
	})

	initial := make(map[chunk.Position]region.Handle)
	for dz := int32(-2); dz <= 2; dz++ {
		for dx := int32(-2); dx <= 2; dx++ {
			initial[chunk.Position{X: dx, Z: dz}] = rh
		}
	}

	entity := Entity{
		EntityID: 9,
		Pos:      Position{X: 8, Y: 64, Z: 8},
		Settings: Settings{ViewDistance: 2},
	}
	h := Spawn(log, conn, entity, subscribe, initial, 1)
	defer h.Stop(nil)

	h.UpdateSettings(Settings{ViewDistance: 1})
	_ = mustEntity(t, h) // flush

	var unloads int
	for _, id := range conn.ids() {
		if id == proto.PlayCBUnloadChunk {
			unloads++
		}
	}
	if unloads != 16 {
		t.Errorf("sent %d UnloadChunk packets, want 16 (the distance-2 ring)", unloads)
	}
	mu.Lock()
	if requests != 0 {
		t.Errorf("narrowing the view made %d subscription requests, want 0", requests)
	}
	mu.Unlock()
}
