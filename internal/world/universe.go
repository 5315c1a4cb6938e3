package world

import (
	"context"

	"github.com/opencraft/voxelcore/internal/actor"
	"go.uber.org/zap"
)

// universeMessage is the union accepted by the Universe actor's mailbox.
type universeMessage interface{ isUniverseMessage() }

type reserveEntityID struct{ reply chan int32 }
type freeEntityID struct{ id int32 }
type getWorld struct {
	key   string
	reply chan *World
}
type universeStop struct{ actor.StopActor }

func (reserveEntityID) isUniverseMessage() {}
func (freeEntityID) isUniverseMessage()    {}
func (getWorld) isUniverseMessage()        {}
func (universeStop) isUniverseMessage()    {}

// UniverseHandle is the sender half of a running Universe actor: the only way
// to reach the entity-id generator or the world table, per §5 "the universe's
// entity-id generator is not shared — it lives inside the universe actor and
// is accessed only through its mailbox."
type UniverseHandle struct {
	inner       actor.Handle[universeMessage]
	DefaultWorld string
}

// ReserveEntityID allocates a fresh entity id via the universe's generator.
func (h UniverseHandle) ReserveEntityID(ctx context.Context) (int32, error) {
	reply := make(chan int32, 1)
	return actor.Request(ctx, h.inner, universeMessage(reserveEntityID{reply: reply}), reply)
}

// FreeEntityID returns id to the universe's free list (called when an entity
// actor terminates, per §7 "the universe mediates entity-id reclamation").
func (h UniverseHandle) FreeEntityID(id int32) {
	h.inner.TrySend(freeEntityID{id: id})
}

// World fetches the named world (creating it on first reference with the
// default generator/loader) from the universe actor.
func (h UniverseHandle) World(ctx context.Context, key string) (*World, error) {
	reply := make(chan *World, 1)
	return actor.Request(ctx, h.inner, universeMessage(getWorld{key: key, reply: reply}), reply)
}

// Stop requests the universe actor shut down.
func (h UniverseHandle) Stop(done chan struct{}) {
	h.inner.TrySend(universeStop{actor.StopActor{Done: done}})
}

// universe is the actor's private state.
type universe struct {
	log *zap.SugaredLogger

	ids *EntityIDGenerator

	worlds       map[string]*World
	defaultWorld string
}

// SpawnUniverse starts the Universe actor, pre-populating a world named
// defaultWorld with the given generator/loader (nil for the flat defaults).
func SpawnUniverse(log *zap.SugaredLogger, defaultWorld string, gen ChunkGenerator, loader ChunkLoader) UniverseHandle {
	mailbox := actor.NewMailbox[universeMessage](actor.DefaultInboxSize)
	u := &universe{
		log:          log,
		ids:          NewEntityIDGenerator(),
		worlds:       make(map[string]*World),
		defaultWorld: defaultWorld,
	}
	u.worlds[defaultWorld] = New(log.With("world", defaultWorld), gen, loader)
	go actor.Run(mailbox, u.handle)
	return UniverseHandle{inner: mailbox.Handle(), DefaultWorld: defaultWorld}
}

func (u *universe) handle(msg universeMessage) bool {
	switch m := msg.(type) {
	case reserveEntityID:
		m.reply <- u.ids.Reserve()

	case freeEntityID:
		u.ids.Free(m.id)

	case getWorld:
		w, ok := u.worlds[m.key]
		if !ok {
			w = New(u.log.With("world", m.key), nil, nil)
			u.worlds[m.key] = w
		}
		m.reply <- w

	case universeStop:
		for _, w := range u.worlds {
			w.Stop()
		}
		if m.Done != nil {
			close(m.Done)
		}
		return false
	}
	return true
}
