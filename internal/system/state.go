package system

import (
	"sync"

	"github.com/divotmaker/flighthook/internal/bus"
)

// GameState is the authoritative {player_info?, club_info?, mode?} triple
// (§3). All reads go through snapshot copies; no reader ever observes a
// torn value.
type GameState struct {
	PlayerInfo *bus.PlayerInfo
	ClubInfo   *bus.ClubInfo
	Mode       *bus.DetectionMode
}

func (s GameState) clone() GameState {
	clone := GameState{}
	if s.PlayerInfo != nil {
		p := *s.PlayerInfo
		clone.PlayerInfo = &p
	}
	if s.ClubInfo != nil {
		c := *s.ClubInfo
		clone.ClubInfo = &c
	}
	if s.Mode != nil {
		m := *s.Mode
		clone.Mode = &m
	}
	return clone
}

// store is the shared backing cell behind StateWriter/StateReader.
type store struct {
	mu    sync.RWMutex
	state GameState
}

// StateWriter is the sole write handle for authoritative game state,
// exclusively owned by SystemActor (§3, §9 "single-writer game state").
type StateWriter struct {
	s *store
}

// StateReader is a shared read-only handle, cloned into every other
// subscriber context that needs to observe game state.
type StateReader struct {
	s *store
}

// NewGameState constructs the (reader, writer) pair at process start, per
// §9's single-writer design note.
func NewGameState() (*StateReader, *StateWriter) {
	s := &store{}
	return &StateReader{s: s}, &StateWriter{s: s}
}

// Snapshot returns a copy of the current state.
func (r *StateReader) Snapshot() GameState {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.state.clone()
}

// Snapshot returns a copy of the current state.
func (w *StateWriter) Snapshot() GameState {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()
	return w.s.state.clone()
}

// SetPlayerInfo writes player_info and returns the new snapshot.
func (w *StateWriter) SetPlayerInfo(info bus.PlayerInfo) GameState {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.state.PlayerInfo = &info
	return w.s.state.clone()
}

// SetClubInfo writes club_info and returns the new snapshot.
func (w *StateWriter) SetClubInfo(info bus.ClubInfo) GameState {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.state.ClubInfo = &info
	return w.s.state.clone()
}

// SetMode writes mode and returns the new snapshot.
func (w *StateWriter) SetMode(mode bus.DetectionMode) GameState {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.state.Mode = &mode
	return w.s.state.clone()
}

// ToSnapshotEvent converts a GameState into its wire event.
func (s GameState) ToSnapshotEvent() bus.GameStateSnapshotEvent {
	return bus.GameStateSnapshotEvent{
		PlayerInfo: s.PlayerInfo,
		ClubInfo:   s.ClubInfo,
		Mode:       s.Mode,
	}
}
