// Package world implements the World type and the Universe actor: the World owns
// Regions keyed by region position plus the set of loaded chunk positions and
// a pluggable chunk generator/loader; the Universe owns a set of Worlds, a
// default-world key, and the process-wide EntityIDGenerator, per spec §4.D.5.
package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/opencraft/voxelcore/internal/world/chunk"
	"github.com/opencraft/voxelcore/internal/world/region"
	"go.uber.org/zap"
)

// ChunkGenerator produces a chunk for a position that has no persisted data.
// World generation algorithms are a pluggable trait, out of scope here.
type ChunkGenerator interface {
	Generate(pos chunk.Position) *chunk.Chunk
}

// ChunkLoader retrieves a previously persisted chunk, if any. File formats are
// an implementation choice left to callers.
type ChunkLoader interface {
	Load(pos chunk.Position) (*chunk.Chunk, bool)
}

// GeneratorFunc adapts a plain function to ChunkGenerator.
type GeneratorFunc func(pos chunk.Position) *chunk.Chunk

func (f GeneratorFunc) Generate(pos chunk.Position) *chunk.Chunk { return f(pos) }

// FlatGenerator produces an empty, all-air chunk — the minimal generator
// sufficient for a server with world generation out of scope.
var FlatGenerator GeneratorFunc = func(pos chunk.Position) *chunk.Chunk { return chunk.New(pos) }

// NoopLoader never has persisted data.
type NoopLoader struct{}

func (NoopLoader) Load(chunk.Position) (*chunk.Chunk, bool) { return nil, false }

// ErrYOutOfRange is returned by GetBlockAtPos for y outside [0,256).
var ErrYOutOfRange = fmt.Errorf("world: y out of [0,256) range")

// World owns the Regions composing one named dimension. A *World is handed
// out by the Universe actor to every session that joins it, so regions/loaded
// are guarded by mu rather than confined to a single goroutine the way a
// Region's or the Universe's own actor state is (§5: "Connection handles are
// cheaply clonable and held by both the world... and the player controller").
type World struct {
	log *zap.SugaredLogger

	generator ChunkGenerator
	loader    ChunkLoader

	mu      sync.Mutex
	regions map[region.Position]region.Handle
	tickers map[region.Position]*region.Ticker
	loaded  map[chunk.Position]bool

	SpawnPosition chunk.Position
}

// New creates a World with the given generator/loader (FlatGenerator/NoopLoader
// if nil).
func New(log *zap.SugaredLogger, gen ChunkGenerator, loader ChunkLoader) *World {
	if gen == nil {
		gen = FlatGenerator
	}
	if loader == nil {
		loader = NoopLoader{}
	}
	return &World{
		log:       log,
		generator: gen,
		loader:    loader,
		regions:   make(map[region.Position]region.Handle),
		tickers:   make(map[region.Position]*region.Ticker),
		loaded:    make(map[chunk.Position]bool),
	}
}

// regionForLocked returns the region handle owning cp, spawning it if this is its
// first reference. Caller must hold w.mu.
func (w *World) regionForLocked(cp chunk.Position) region.Handle {
	rp := region.Of(cp)
	h, ok := w.regions[rp]
	if !ok {
		h = region.Spawn(rp, w.log)
		w.regions[rp] = h
		t := region.NewTicker(rp, h, 1)
		w.tickers[rp] = t
		go t.Run()
	}
	return h
}

// Stop shuts down every region this world has spawned, tickers first so no
// further PerformTick lands on a stopping actor. It blocks until each region
// actor has torn down.
func (w *World) Stop() {
	w.mu.Lock()
	tickers := w.tickers
	regions := w.regions
	w.tickers = make(map[region.Position]*region.Ticker)
	w.regions = make(map[region.Position]region.Handle)
	w.loaded = make(map[chunk.Position]bool)
	w.mu.Unlock()

	for _, t := range tickers {
		t.Stop()
	}
	for _, h := range regions {
		done := make(chan struct{})
		h.Stop(done)
		<-done
	}
}

// ensureLoadedLocked loads-or-generates cp into its region on first
// reference, per §4.D.5 get_block_at_pos steps 3-4. Caller must hold w.mu.
func (w *World) ensureLoadedLocked(cp chunk.Position) region.Handle {
	h := w.regionForLocked(cp)
	if !w.loaded[cp] {
		c, ok := w.loader.Load(cp)
		if !ok {
			c = w.generator.Generate(cp)
		}
		h.SetChunk(c)
		w.loaded[cp] = true
	}
	return h
}

// ensureLoaded is ensureLoadedLocked's locking wrapper, for callers outside
// this file's other locked methods (e.g. SubscribeSquare's per-chunk goroutines).
func (w *World) ensureLoaded(cp chunk.Position) region.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ensureLoadedLocked(cp)
}

// GetBlockAtPos returns the block state at the world position (x,y,z). If
// load is true and the owning chunk is not yet loaded, it is loaded (or
// generated) synchronously first; otherwise an unloaded chunk reads as air.
// ctx bounds the region round-trip.
func (w *World) GetBlockAtPos(ctx context.Context, x, y, z int32, load bool) (uint32, error) {
	if y < 0 || y >= 256 {
		return 0, ErrYOutOfRange
	}
	cp := chunk.Position{X: x >> 4, Z: z >> 4}
	lx, lz := int(x&15), int(z&15)

	w.mu.Lock()
	wasLoaded := w.loaded[cp]
	if !wasLoaded && !load {
		w.mu.Unlock()
		return chunk.AirBlockState, nil
	}
	h := w.ensureLoadedLocked(cp)
	w.mu.Unlock()

	return h.GetBlock(ctx, cp, lx, int(y), lz)
}

// SetBlockAtPos mutates a block, loading its chunk first if necessary.
func (w *World) SetBlockAtPos(x, y, z int32, state uint32) error {
	if y < 0 || y >= 256 {
		return ErrYOutOfRange
	}
	cp := chunk.Position{X: x >> 4, Z: z >> 4}
	lx, lz := int(x&15), int(z&15)
	h := w.ensureLoaded(cp)
	h.SetBlock(region.BlockChange{ChunkPos: cp, LocalX: lx, Y: int(y), LocalZ: lz, State: state})
	return nil
}

// ViewSquare returns every chunk position within the (2r+1)^2 square centered
// on center, per §4.D.5 step 3's view-distance clamp.
func ViewSquare(center chunk.Position, r int32) []chunk.Position {
	positions := make([]chunk.Position, 0, (2*r+1)*(2*r+1))
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			positions = append(positions, chunk.Position{X: center.X + dx, Z: center.Z + dz})
		}
	}
	return positions
}

// SubscribeResult is one chunk subscription outcome, returned from
// SubscribeSquare so callers can build their own subscription map.
type SubscribeResult struct {
	Pos    chunk.Position
	Region region.Handle
	Err    error
}

// ConnHandle re-exports region.ConnHandle so callers outside internal/world
// don't need to import internal/world/region directly.
type ConnHandle = region.ConnHandle

// SubscribeChunk loads-or-generates one chunk and subscribes the player to it
// with send_complete=true, returning the owning region's handle. This is the
// single-chunk path the player controller uses when the view square shifts.
func (w *World) SubscribeChunk(ctx context.Context, pos chunk.Position, playerID int32, conn ConnHandle) (region.Handle, error) {
	h := w.ensureLoaded(pos)
	if err := h.PlayerSubscribe(ctx, pos, playerID, conn, true); err != nil {
		return region.Handle{}, err
	}
	return h, nil
}

// SubscribeSquare issues a PlayerSubscribe (send_complete=true) for every
// chunk in the view square, awaiting all of them concurrently, per §4.D.5
// step 3 ("issue a subscription... and await all of them in parallel").
func (w *World) SubscribeSquare(ctx context.Context, center chunk.Position, r int32, playerID int32, conn ConnHandle) []SubscribeResult {
	positions := ViewSquare(center, r)
	results := make([]SubscribeResult, len(positions))
	done := make(chan int, len(positions))

	for i, pos := range positions {
		i, pos := i, pos
		go func() {
			h := w.ensureLoaded(pos)
			err := h.PlayerSubscribe(ctx, pos, playerID, conn, true)
			results[i] = SubscribeResult{Pos: pos, Region: h, Err: err}
			done <- i
		}()
	}

	for range positions {
		select {
		case <-done:
		case <-ctx.Done():
			return results
		}
	}
	return results
}
