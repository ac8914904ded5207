package shotdata

import "sync"

// ringCapacity is the fixed size of the in-memory shot history (§4.8, §1 Non-goals).
const ringCapacity = 1000

// Ring is a fixed-capacity, FIFO-evicting shot history.
type Ring struct {
	mu     sync.RWMutex
	shots  []ShotData
	cursor int
	filled bool
}

// NewRing constructs an empty ring at the fixed §4.8 capacity.
func NewRing() *Ring {
	return &Ring{shots: make([]ShotData, ringCapacity)}
}

// Add appends a shot, evicting the oldest entry once at capacity.
func (r *Ring) Add(shot ShotData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shots[r.cursor] = shot
	r.cursor = (r.cursor + 1) % ringCapacity
	if r.cursor == 0 {
		r.filled = true
	}
}

// Recent returns up to limit most-recently-added shots, newest last.
// limit <= 0 means "no limit" (return everything retained).
func (r *Ring) Recent(limit int) []ShotData {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ordered []ShotData
	if r.filled {
		ordered = make([]ShotData, 0, ringCapacity)
		ordered = append(ordered, r.shots[r.cursor:]...)
		ordered = append(ordered, r.shots[:r.cursor]...)
	} else {
		ordered = append(ordered, r.shots[:r.cursor]...)
	}

	if limit > 0 && limit < len(ordered) {
		ordered = ordered[len(ordered)-limit:]
	}
	out := make([]ShotData, len(ordered))
	copy(out, ordered)
	return out
}
