package app

import "sync"

// SlotGuard hands out monotonically increasing generation tokens per logical
// slot (e.g. "availability:REEF", "quote:REEF"). A fetch records its token
// before suspending; when the response lands, the result is applied only if
// the token is still the latest for that slot. Slow early responses can no
// longer overwrite newer state.
type SlotGuard struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func NewSlotGuard() *SlotGuard {
	return &SlotGuard{latest: make(map[string]uint64)}
}

// Next issues a new token for the slot, superseding all earlier ones.
func (g *SlotGuard) Next(slot string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest[slot]++
	return g.latest[slot]
}

// IsLatest reports whether token is still the newest issued for the slot.
func (g *SlotGuard) IsLatest(slot string, token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[slot] == token
}
