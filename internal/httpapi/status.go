package httpapi

import (
	"sync"
	"time"

	"github.com/divotmaker/flighthook/internal/bus"
)

// ActorStatus is the last-known status/telemetry for one registered actor,
// keyed by global ID for /api/status.
type ActorStatus struct {
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	Telemetry map[string]string `json:"telemetry"`
}

// StatusTable aggregates actor_status and game_state_snapshot events from
// the bus into the live view /api/status reports. It owns an unowned,
// long-lived receiver (§4.1's transient-consumer pattern).
type StatusTable struct {
	mu       sync.RWMutex
	actors   map[string]ActorStatus
	mode     *bus.DetectionMode
	names    map[string]string // global id -> configured name, seeded externally
	receiver *bus.Receiver
	stop     chan struct{}
}

// NewStatusTable subscribes to busInst and starts the aggregation loop.
func NewStatusTable(busInst *bus.Bus) *StatusTable {
	t := &StatusTable{
		actors:   make(map[string]ActorStatus),
		names:    make(map[string]string),
		receiver: busInst.Subscribe(),
		stop:     make(chan struct{}),
	}
	go t.run()
	return t
}

// SetName records a configured name for a global ID, used to fill the
// "name" field before any actor_status event has arrived for it.
func (t *StatusTable) SetName(id, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names[id] = name
	if entry, ok := t.actors[id]; ok {
		entry.Name = name
		t.actors[id] = entry
	}
}

// Forget removes a stopped actor's status and configured name.
func (t *StatusTable) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.actors, id)
	delete(t.names, id)
}

// Snapshot returns the current mode and per-actor status view.
func (t *StatusTable) Snapshot() (*bus.DetectionMode, map[string]ActorStatus) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	actors := make(map[string]ActorStatus, len(t.actors))
	for k, v := range t.actors {
		actors[k] = v
	}
	return t.mode, actors
}

// Close stops the aggregation loop and unsubscribes.
func (t *StatusTable) Close() {
	close(t.stop)
	t.receiver.Close()
}

func (t *StatusTable) run() {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
		for {
			msg, err := t.receiver.Poll()
			if err != nil {
				break
			}
			t.apply(msg)
		}
	}
}

func (t *StatusTable) apply(msg bus.Message) {
	switch event := msg.Event.(type) {
	case bus.ActorStatusEvent:
		t.mu.Lock()
		t.actors[msg.Source] = ActorStatus{
			Name:      t.names[msg.Source],
			Status:    string(event.Status),
			Telemetry: event.Telemetry,
		}
		t.mu.Unlock()
	case bus.GameStateSnapshotEvent:
		t.mu.Lock()
		t.mode = event.Mode
		t.mu.Unlock()
	}
}
