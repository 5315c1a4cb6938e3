package world

import "container/heap"

// EntityIDGenerator is a monotone id allocator with a free list: Reserve returns
// the lowest free id, Free returns an id to the pool, and free ids at the tail of
// the allocated range are truncated rather than retained, keeping the id space
// compact. It is owned exclusively by the Universe actor and never shared.
type EntityIDGenerator struct {
	next int32
	free freeIDHeap
	inSet map[int32]bool
}

// NewEntityIDGenerator creates a generator starting at id 0.
func NewEntityIDGenerator() *EntityIDGenerator {
	return &EntityIDGenerator{inSet: make(map[int32]bool)}
}

// Reserve allocates and returns the lowest available entity id.
func (g *EntityIDGenerator) Reserve() int32 {
	if len(g.free) > 0 {
		id := heap.Pop(&g.free).(int32)
		delete(g.inSet, id)
		return id
	}
	id := g.next
	g.next++
	return id
}

// Free returns id to the pool. If id sits at the tail of the allocated range
// (id == next-1), it is truncated instead of stored, and the truncation cascades
// backward through any other freed ids now exposed at the new tail.
func (g *EntityIDGenerator) Free(id int32) {
	if id == g.next-1 {
		g.next--
		for g.next > 0 && g.inSet[g.next-1] {
			g.next--
			g.removeFree(g.next)
		}
		return
	}
	if !g.inSet[id] {
		g.inSet[id] = true
		heap.Push(&g.free, id)
	}
}

// removeFree deletes id from the free heap (used only for tail-truncation cascades).
func (g *EntityIDGenerator) removeFree(id int32) {
	delete(g.inSet, id)
	for i, v := range g.free {
		if v == id {
			heap.Remove(&g.free, i)
			return
		}
	}
}

type freeIDHeap []int32

func (h freeIDHeap) Len() int            { return len(h) }
func (h freeIDHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h freeIDHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *freeIDHeap) Push(x interface{}) { *h = append(*h, x.(int32)) }
func (h *freeIDHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
