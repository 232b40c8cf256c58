package diary

import (
	"sync"

	"github.com/mamadbah2/milkman/internal/domain/models"
)

// Hub fans whole-account snapshots out to subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]func(models.Snapshot)
	nextID uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]func(models.Snapshot))}
}

// Subscribe registers fn for snapshots of userID. The returned cancel func is safe to
// call more than once.
func (h *Hub) Subscribe(userID string, fn func(models.Snapshot)) (cancel func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]func(models.Snapshot))
	}
	h.subs[userID][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
		})
	}
}

// Publish delivers snap to every subscriber of userID. Callbacks run outside the lock.
func (h *Hub) Publish(userID string, snap models.Snapshot) {
	h.mu.RLock()
	fns := make([]func(models.Snapshot), 0, len(h.subs[userID]))
	for _, fn := range h.subs[userID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// subscribers counts the active subscriptions of userID.
func (h *Hub) subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
