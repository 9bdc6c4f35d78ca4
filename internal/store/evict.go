package store

import (
	"container/heap"

	"github.com/rcliao/reasoning-memory/internal/model"
)

// evictionHeap is a min-heap with the next item to evict at the root:
// lowest value, then oldest, then lowest id.
type evictionHeap []model.MemoryItem

func (h evictionHeap) Len() int { return len(h) }

func (h evictionHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.ReasoningValue != b.ReasoningValue {
		return a.ReasoningValue < b.ReasoningValue
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (h evictionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *evictionHeap) Push(x any) { *h = append(*h, x.(model.MemoryItem)) }

func (h *evictionHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// selectEvictions returns the ids of the k items that eviction removes first.
func selectEvictions(items map[string]model.MemoryItem, k int) []string {
	if k <= 0 {
		return nil
	}
	h := make(evictionHeap, 0, len(items))
	for _, it := range items {
		h = append(h, it)
	}
	heap.Init(&h)

	ids := make([]string, 0, k)
	for i := 0; i < k && h.Len() > 0; i++ {
		ids = append(ids, heap.Pop(&h).(model.MemoryItem).ID)
	}
	return ids
}
