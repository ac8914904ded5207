// Package reload implements the reload reconciler (§4.4): given a newly
// resolved configuration, it diffs it against the running actor registry
// and issues start/stop/reconfigure commands, returning the three
// actor-ID lists SystemActor reports in a config_outcome event.
//
// Grounded on other_examples/wudi-gateway's Reload (build-new-state, diff,
// swap, clean-up-old shape), adapted from a whole-gateway-state swap to
// per-actor reconcile verdicts, and on the teacher's room_manager.go for
// registry spawn/stop mechanics via the actor registry.
package reload

import (
	"go.uber.org/zap"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
)

// Factory constructs a fresh Actor instance for a resolved spec: NewMonitor
// for launch-monitor specs, NewIntegration for integration specs.
type Factory interface {
	NewMonitor(spec config.MonitorSpec) actor.Actor
	NewIntegration(spec config.IntegrationSpec) actor.Actor
}

// Outcome reports which actor IDs were restarted, stopped, or started by
// a single reconcile pass.
type Outcome struct {
	Restarted []string
	Stopped   []string
	Started   []string
}

// Reconciler diffs the desired actor set against the registry and
// dispatches start/stop/reconfigure. It is invoked only by SystemActor,
// and only sequentially (§4.4), so it holds no lock of its own beyond the
// registry's.
type Reconciler struct {
	registry *actor.Registry
	busInst  *bus.Bus
	factory  Factory
	log      *zap.SugaredLogger
}

// New constructs a Reconciler.
func New(registry *actor.Registry, busInst *bus.Bus, factory Factory, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{registry: registry, busInst: busInst, factory: factory, log: log}
}

// Reconcile runs the four-step diff in §4.4 and returns the outcome lists.
func (r *Reconciler) Reconcile(resolved config.Resolved) Outcome {
	var outcome Outcome

	current := r.registry.IDSet()
	expected := resolved.IDs()

	// Step 2: deleted.
	for id := range current {
		if _, ok := expected[id]; ok {
			continue
		}
		r.stopAndRemove(id)
		outcome.Stopped = append(outcome.Stopped, id)
	}

	// Step 3: retained -> reconfigure.
	monitorByID := make(map[string]config.MonitorSpec, len(resolved.Monitors))
	for _, m := range resolved.Monitors {
		monitorByID[m.ID] = m
	}
	integrationByID := make(map[string]config.IntegrationSpec, len(resolved.Integrations))
	for _, i := range resolved.Integrations {
		integrationByID[i.ID] = i
	}

	for id := range current {
		if _, ok := expected[id]; !ok {
			continue // handled in step 2
		}
		handle, ok := r.registry.Get(id)
		if !ok {
			continue
		}

		var section any
		if m, ok := monitorByID[id]; ok {
			section = m
		} else if i, ok := integrationByID[id]; ok {
			section = i
		}

		switch handle.Instance.Reconfigure(section) {
		case actor.NoChange:
			// no action
		case actor.Applied:
			// the actor itself already broadcast config_changed (§4.2)
		case actor.RestartRequired:
			r.stopAndRemove(id)
			r.startFresh(id, monitorByID, integrationByID)
			outcome.Restarted = append(outcome.Restarted, id)
		}
	}

	// Step 4: new.
	for id := range expected {
		if _, ok := current[id]; ok {
			continue
		}
		r.startFresh(id, monitorByID, integrationByID)
		outcome.Started = append(outcome.Started, id)
	}

	return outcome
}

func (r *Reconciler) stopAndRemove(id string) {
	handle, ok := r.registry.Get(id)
	if !ok {
		return
	}
	handle.Instance.Stop()
	handle.Shutdown.Store(true)
	r.registry.Remove(id)
	if r.log != nil {
		r.log.Infow("reload: stopped actor", "id", id)
	}
}

func (r *Reconciler) startFresh(id string, monitors map[string]config.MonitorSpec, integrations map[string]config.IntegrationSpec) {
	var instance actor.Actor
	if spec, ok := monitors[id]; ok {
		instance = r.factory.NewMonitor(spec)
	} else if spec, ok := integrations[id]; ok {
		instance = r.factory.NewIntegration(spec)
	} else {
		return
	}

	shutdown := actor.NewShutdownFlag()
	sender := r.busInst.NewSender(id, shutdown)
	receiver := sender.Subscribe()

	r.registry.Put(&actor.Handle{ID: id, Instance: instance, Shutdown: shutdown})
	instance.Start(sender, receiver)
	if r.log != nil {
		r.log.Infow("reload: started actor", "id", id)
	}
}
