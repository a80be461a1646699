package memory

import (
	"context"
	"sort"
	"sync"
)

// SubscriptionRegistry is the single-process registry. It keeps two maps in
// sync, the same dual-index layout as the report store:
//   - byConn: connID → area
//   - byArea: area → set of connIDs
//
// Go Learning Note — map[string]struct{} as a Set:
// Go has no built-in set type. A map whose values are the zero-size
// struct{} is the idiomatic replacement: membership is a map lookup and the
// values cost no memory.
type SubscriptionRegistry struct {
	mu     sync.RWMutex
	byConn map[string]string
	byArea map[string]map[string]struct{}
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		byConn: make(map[string]string),
		byArea: make(map[string]map[string]struct{}),
	}
}

func (r *SubscriptionRegistry) Subscribe(ctx context.Context, connID, area string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connID)
	r.byConn[connID] = area
	if _, ok := r.byArea[area]; !ok {
		r.byArea[area] = make(map[string]struct{})
	}
	r.byArea[area][connID] = struct{}{}
	return nil
}

func (r *SubscriptionRegistry) Unsubscribe(ctx context.Context, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connID)
	return nil
}

func (r *SubscriptionRegistry) ListSubscribers(ctx context.Context, area string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]string, 0, len(r.byArea[area]))
	for id := range r.byArea[area] {
		conns = append(conns, id)
	}
	sort.Strings(conns)
	return conns, nil
}

// removeLocked drops connID from both maps. Caller holds r.mu.
func (r *SubscriptionRegistry) removeLocked(connID string) {
	area, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if set, ok := r.byArea[area]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byArea, area)
		}
	}
}
