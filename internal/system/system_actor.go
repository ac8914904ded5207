// Package system implements SystemActor (§4.3): the always-on supervisor
// that owns the sole write handle for authoritative game state and the
// cached configuration, processes game_state_command and config_command
// events serially off the bus, and drives the reload reconciler.
//
// Grounded on the teacher's game/room_manager.go: one actor serially
// owning mutable shared state behind its own goroutine, replying to
// requests correlated by an ID (there: Ask/Reply; here: request_id on
// config_command/config_outcome).
package system

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
	"github.com/divotmaker/flighthook/internal/reload"
)

// SystemActor is the always-on supervisor, ID "system" (§4.2, §4.3).
type SystemActor struct {
	writer     *StateWriter
	registry   *actor.Registry
	reconciler *reload.Reconciler
	log        *zap.SugaredLogger
	persist    func(config.FlighthookConfig) error

	cfgMu sync.RWMutex
	cfg   config.FlighthookConfig

	sender   *bus.Sender
	shutdown *atomic.Bool
	done     chan struct{}
}

// New constructs SystemActor with its initial configuration. persist is
// called with the new config after every accepted mutation (delegated
// persistence per §4.3); it may be nil in tests.
func New(writer *StateWriter, registry *actor.Registry, reconciler *reload.Reconciler, initial config.FlighthookConfig, persist func(config.FlighthookConfig) error, log *zap.SugaredLogger) *SystemActor {
	return &SystemActor{
		writer:     writer,
		registry:   registry,
		reconciler: reconciler,
		cfg:        initial,
		persist:    persist,
		log:        log,
		done:       make(chan struct{}),
	}
}

// Config returns a copy of the currently cached configuration (used by the
// HTTP GET /api/settings handler).
func (a *SystemActor) Config() config.FlighthookConfig {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg.Clone()
}

// Start implements actor.Actor: it spawns the serial event-processing
// goroutine and returns once it is running.
func (a *SystemActor) Start(sender *bus.Sender, receiver *bus.Receiver) {
	a.sender = sender
	a.shutdown = actor.NewShutdownFlag()
	started := make(chan struct{})
	go a.run(receiver, started)
	<-started
}

// Stop is idempotent; it sets the shared shutdown flag observed by run's
// next poll.
func (a *SystemActor) Stop() {
	if a.shutdown != nil {
		a.shutdown.Store(true)
	}
}

// Reconfigure is a no-op: SystemActor is never reconciled (§4.4 step 1
// scopes the reconciler to registry.ids() \ {"system"}).
func (a *SystemActor) Reconfigure(_ any) actor.ReconfigureVerdict {
	return actor.NoChange
}

// Done is closed once the run loop has exited, for tests.
func (a *SystemActor) Done() <-chan struct{} { return a.done }

func (a *SystemActor) run(receiver *bus.Receiver, started chan struct{}) {
	close(started)
	defer close(a.done)

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		if a.shutdown.Load() {
			return
		}
		msg, err := receiver.Poll()
		if err != nil {
			if err == bus.ErrShutdown {
				return
			}
			<-ticker.C
			continue
		}
		a.handle(msg)
	}
}

func (a *SystemActor) handle(msg bus.Message) {
	switch event := msg.Event.(type) {
	case bus.GameStateCommandEvent:
		a.handleGameStateCommand(msg.Source, event)
	case bus.ConfigCommandEvent:
		a.handleConfigCommand(event)
	default:
		// SystemActor only polls for these two event kinds (§4.3).
	}
}

func (a *SystemActor) handleGameStateCommand(_ string, cmd bus.GameStateCommandEvent) {
	switch cmd.Type {
	case bus.SetPlayerInfo:
		if cmd.PlayerInfo == nil {
			return
		}
		snapshot := a.writer.SetPlayerInfo(*cmd.PlayerInfo)
		a.publishSnapshot(snapshot)

	case bus.SetClubInfo:
		if cmd.ClubInfo == nil {
			return
		}
		snapshot := a.writer.SetClubInfo(*cmd.ClubInfo)
		a.publishSnapshot(snapshot)

		mode := clubMode(a.Config(), cmd.ClubInfo.Club)
		snapshot = a.writer.SetMode(mode)
		a.sender.Send(bus.GameStateCommandEvent{Type: bus.SetMode, Mode: &mode}, bus.RawPayload{})
		a.publishSnapshot(snapshot)

	case bus.SetMode:
		if cmd.Mode == nil {
			return
		}
		snapshot := a.writer.SetMode(*cmd.Mode)
		a.publishSnapshot(snapshot)
	}
}

func (a *SystemActor) publishSnapshot(snapshot GameState) {
	a.sender.Send(snapshot.ToSnapshotEvent(), bus.RawPayload{})
}

func (a *SystemActor) handleConfigCommand(cmd bus.ConfigCommandEvent) {
	a.cfgMu.Lock()
	current := a.cfg
	next, err := applyConfigAction(current, cmd.Action)
	if err != nil {
		a.cfgMu.Unlock()
		if a.log != nil {
			a.log.Errorw("system: config mutation rejected", "error", err)
		}
		a.sender.Send(bus.AlertEvent{Level: bus.AlertError, Message: err.Error()}, bus.RawPayload{})
		if cmd.RequestID != "" {
			a.sender.Send(bus.ConfigOutcomeEvent{RequestID: cmd.RequestID}, bus.RawPayload{})
		}
		return
	}

	oldBinds := config.Resolve(current).WebserverBinds()
	newBinds := config.Resolve(next).WebserverBinds()
	restartRequired := !sameSet(oldBinds, newBinds)

	a.cfg = next
	a.cfgMu.Unlock()

	if a.persist != nil {
		if err := a.persist(next); err != nil && a.log != nil {
			a.log.Errorw("system: persisting config failed", "error", err)
		}
	}

	outcome := a.reconciler.Reconcile(config.Resolve(next))

	if cmd.RequestID != "" {
		a.sender.Send(bus.ConfigOutcomeEvent{
			RequestID:       cmd.RequestID,
			RestartRequired: restartRequired,
			Restarted:       nonNil(outcome.Restarted),
			Stopped:         nonNil(outcome.Stopped),
			Started:         nonNil(outcome.Started),
		}, bus.RawPayload{})
	}
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
