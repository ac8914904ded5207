package reload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
)

// fakeActor records lifecycle calls and reports a fixed verdict for
// Reconfigure, set per-test to exercise each reconciler branch.
type fakeActor struct {
	id      string
	verdict actor.ReconfigureVerdict
	started bool
	stopped bool
	sender  *bus.Sender
	onStart func()
}

func (f *fakeActor) Start(sender *bus.Sender, receiver *bus.Receiver) {
	f.started = true
	f.sender = sender
	if f.onStart != nil {
		f.onStart()
	}
}
func (f *fakeActor) Stop()                                      { f.stopped = true }
func (f *fakeActor) Reconfigure(_ any) actor.ReconfigureVerdict { return f.verdict }

type fakeFactory struct {
	verdict     actor.ReconfigureVerdict
	constructed []string
}

func (f *fakeFactory) NewMonitor(spec config.MonitorSpec) actor.Actor {
	f.constructed = append(f.constructed, spec.ID)
	return &fakeActor{id: spec.ID, verdict: f.verdict}
}

func (f *fakeFactory) NewIntegration(spec config.IntegrationSpec) actor.Actor {
	f.constructed = append(f.constructed, spec.ID)
	return &fakeActor{id: spec.ID, verdict: f.verdict}
}

func configWith(mevoIdx []string, gsproIdx []string) config.FlighthookConfig {
	cfg := config.FlighthookConfig{
		Mevo:        map[string]config.MevoSection{},
		GsPro:       map[string]config.GsProSection{},
		Webserver:   map[string]config.WebserverSection{"0": {Name: "main", Bind: ":8080"}},
		MockMonitor: map[string]config.MockMonitorSection{},
		RandomClub:  map[string]config.RandomClubSection{},
	}
	for _, idx := range mevoIdx {
		cfg.Mevo[idx] = config.MevoSection{Name: "mevo-" + idx}
	}
	for _, idx := range gsproIdx {
		cfg.GsPro[idx] = config.GsProSection{Name: "gspro-" + idx}
	}
	return cfg
}

// TestReconcile_StartStopOnSetChange exercises spec scenario 3: removing
// mevo.0 and adding mevo.1 while keeping gspro.0 yields exactly the expected
// started/stopped lists and leaves the registry at {system, mevo.1, gspro.0}.
func TestReconcile_StartStopOnSetChange(t *testing.T) {
	registry := actor.NewRegistry()
	registry.Put(&actor.Handle{ID: actor.SystemID, Shutdown: actor.NewShutdownFlag()})
	factory := &fakeFactory{verdict: actor.NoChange}
	busInst := bus.New(nil)
	r := New(registry, busInst, factory, nil)

	// Seed the registry with the "current" actor set directly (bypassing a
	// first reconcile) so this test isolates the diff logic.
	registry.Put(&actor.Handle{ID: "mevo.0", Instance: &fakeActor{verdict: actor.NoChange}, Shutdown: actor.NewShutdownFlag()})
	registry.Put(&actor.Handle{ID: "gspro.0", Instance: &fakeActor{verdict: actor.NoChange}, Shutdown: actor.NewShutdownFlag()})

	next := configWith([]string{"1"}, []string{"0"})
	outcome := r.Reconcile(config.Resolve(next))

	assert.Equal(t, []string{"mevo.1"}, outcome.Started)
	assert.Equal(t, []string{"mevo.0"}, outcome.Stopped)
	assert.Empty(t, outcome.Restarted)

	gotIDs := registry.IDSet()
	_, hasMevo1 := gotIDs["mevo.1"]
	_, hasMevo0 := gotIDs["mevo.0"]
	_, hasGsPro0 := gotIDs["gspro.0"]
	assert.True(t, hasMevo1)
	assert.False(t, hasMevo0)
	assert.True(t, hasGsPro0)
}

// TestReconcile_RestartRequiredOnAddressChange exercises spec scenario 4: an
// actor reporting RestartRequired is stopped, removed, reconstructed, and
// started, and shows up in the restarted list.
func TestReconcile_RestartRequiredOnAddressChange(t *testing.T) {
	registry := actor.NewRegistry()
	existing := &fakeActor{verdict: actor.RestartRequired}
	registry.Put(&actor.Handle{ID: "mevo.0", Instance: existing, Shutdown: actor.NewShutdownFlag()})

	factory := &fakeFactory{verdict: actor.NoChange}
	busInst := bus.New(nil)
	r := New(registry, busInst, factory, nil)

	next := configWith([]string{"0"}, nil)
	outcome := r.Reconcile(config.Resolve(next))

	assert.Equal(t, []string{"mevo.0"}, outcome.Restarted)
	assert.True(t, existing.stopped)
	require.Len(t, factory.constructed, 1)
	assert.Equal(t, "mevo.0", factory.constructed[0])

	handle, ok := registry.Get("mevo.0")
	require.True(t, ok)
	assert.NotSame(t, actor.Actor(existing), handle.Instance)
}

func TestReconcile_NoChangeDoesNotTouchRegistry(t *testing.T) {
	registry := actor.NewRegistry()
	existing := &fakeActor{verdict: actor.NoChange}
	registry.Put(&actor.Handle{ID: "mevo.0", Instance: existing, Shutdown: actor.NewShutdownFlag()})

	factory := &fakeFactory{verdict: actor.NoChange}
	busInst := bus.New(nil)
	r := New(registry, busInst, factory, nil)

	outcome := r.Reconcile(config.Resolve(configWith([]string{"0"}, nil)))
	assert.Empty(t, outcome.Restarted)
	assert.Empty(t, outcome.Started)
	assert.Empty(t, outcome.Stopped)
	assert.False(t, existing.stopped)
	assert.Empty(t, factory.constructed)
}
