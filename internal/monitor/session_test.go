package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
	"github.com/divotmaker/flighthook/internal/shotdata"
)

// fakeDevice is a scripted DeviceClient standing in for the mock/net
// clients' randomized timing, so tests don't depend on real sleeps.
type fakeDevice struct {
	mu             sync.Mutex
	configureCalls int
	frames         []Frame
}

func (f *fakeDevice) Connect(ctx context.Context) error   { return nil }
func (f *fakeDevice) Handshake(ctx context.Context) error { return nil }
func (f *fakeDevice) Configure(ctx context.Context, mode bus.DetectionMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configureCalls++
	return nil
}
func (f *fakeDevice) Arm(ctx context.Context) error { return nil }
func (f *fakeDevice) Close() error                  { return nil }

func (f *fakeDevice) ReadFrame(ctx context.Context, timeout time.Duration) (Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return Frame{}, ErrReadTimeout
	}
	fr := f.frames[0]
	f.frames = f.frames[1:]
	return fr, nil
}

func (f *fakeDevice) configureCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configureCalls
}

func newTestSession(t *testing.T, frames []Frame) (*Session, *fakeDevice, *bus.Bus, *bus.Receiver, *bus.Sender) {
	t.Helper()
	spec := config.MonitorSpec{
		ID:   "mevo.0",
		Type: actor.TypeMevo,
		Mevo: &config.MevoSection{Name: "bay", Address: "10.0.0.1:1"},
	}
	s := NewSession(spec, nil)
	device := &fakeDevice{frames: frames}
	s.device = device

	busInst := bus.New(nil)
	sender := busInst.NewSender(s.id, actor.NewShutdownFlag())
	receiver := sender.Subscribe()
	s.Start(sender, receiver)
	t.Cleanup(s.Stop)

	observer := busInst.NewSender("observer", actor.NewShutdownFlag()).Subscribe()
	client := busInst.NewSender("test-client", actor.NewShutdownFlag())
	return s, device, busInst, observer, client
}

func pollForEvent(t *testing.T, receiver *bus.Receiver, timeout time.Duration, pred func(bus.Event) bool) (bus.Message, bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		msg, err := receiver.Poll()
		if err == nil {
			if pred(msg.Event) {
				return msg, true
			}
			continue
		}
		time.Sleep(time.Millisecond)
	}
	return bus.Message{}, false
}

func TestSession_EmitsShotAfterCompleteBurst(t *testing.T) {
	frames := []Frame{
		{Kind: FrameFinalBallFlight, Ball: &shotdata.BallData{BackspinRPM: 2500}},
		{Kind: FrameBurstEnd},
	}
	_, _, _, observer, _ := newTestSession(t, frames)

	msg, ok := pollForEvent(t, observer, time.Second, func(e bus.Event) bool {
		ev, ok := e.(bus.LaunchMonitorEvent)
		return ok && ev.Shot != nil
	})
	require.True(t, ok)
	shot := msg.Event.(bus.LaunchMonitorEvent).Shot
	assert.Equal(t, 2500.0, shot.Ball.BackspinRPM)
	assert.False(t, shot.Estimated)
	assert.Equal(t, "mevo.0", shot.Source)
}

// TestSession_SetModeRerunsConfiguring exercises §4.5's requirement that a
// set_mode command rerun the Arming step (via Configuring) instead of only
// updating the in-memory mode field.
func TestSession_SetModeRerunsConfiguring(t *testing.T) {
	_, device, _, _, client := newTestSession(t, nil)

	require.Eventually(t, func() bool { return device.configureCallCount() >= 1 }, time.Second, time.Millisecond)
	before := device.configureCallCount()

	chipping := bus.ModeChipping
	client.Send(bus.GameStateCommandEvent{Type: bus.SetMode, Mode: &chipping}, bus.RawPayload{})

	require.Eventually(t, func() bool { return device.configureCallCount() > before }, time.Second, time.Millisecond)
}

func TestSession_Reconfigure_AddressChangeRestartRequired(t *testing.T) {
	spec := config.MonitorSpec{ID: "mevo.0", Mevo: &config.MevoSection{Name: "bay", Address: "10.0.0.1:1"}}
	s := NewSession(spec, nil)

	changed := *spec.Mevo
	changed.Address = "10.0.0.2:1"
	next := spec
	next.Mevo = &changed

	assert.Equal(t, actor.RestartRequired, s.Reconfigure(next))
}

func TestSession_Reconfigure_OtherFieldChangeApplied(t *testing.T) {
	spec := config.MonitorSpec{ID: "mevo.0", Mevo: &config.MevoSection{Name: "bay", Address: "10.0.0.1:1"}}
	s := NewSession(spec, nil)
	s.sender = bus.New(nil).NewSender(s.id, actor.NewShutdownFlag())

	changed := *spec.Mevo
	changed.BallType = "premium"
	next := spec
	next.Mevo = &changed

	assert.Equal(t, actor.Applied, s.Reconfigure(next))
	assert.Equal(t, "premium", s.spec.Mevo.BallType)
}

func TestSession_Reconfigure_NoChange(t *testing.T) {
	spec := config.MonitorSpec{ID: "mevo.0", Mevo: &config.MevoSection{Name: "bay", Address: "10.0.0.1:1"}}
	s := NewSession(spec, nil)
	assert.Equal(t, actor.NoChange, s.Reconfigure(spec))
}
