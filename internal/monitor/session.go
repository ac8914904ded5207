package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
)

// Phase is a launch-monitor session's internal state (§4.5).
type Phase string

const (
	PhaseConnecting   Phase = "connecting"
	PhaseHandshaking  Phase = "handshaking"
	PhaseConfiguring  Phase = "configuring"
	PhaseArming       Phase = "arming"
	PhaseArmed        Phase = "armed"
	PhaseShooting     Phase = "shooting"
	PhaseDisconnected Phase = "disconnected"
	PhaseReconnecting Phase = "reconnecting"
)

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 30 * time.Second
	pollIdle    = 50 * time.Millisecond
	readTimeout = 200 * time.Millisecond
)

// Session is the launch-monitor actor (§4.5).
type Session struct {
	id     string
	spec   config.MonitorSpec
	device DeviceClient
	log    *zap.SugaredLogger

	sender   *bus.Sender
	shutdown *atomic.Bool
	done     chan struct{}

	accumulator Accumulator
	mode        bus.DetectionMode
	usePartial  config.UsePartialPolicy
	address     string // construction-time address, for Reconfigure diffing
}

// NewSession constructs a launch-monitor session actor for spec.
func NewSession(spec config.MonitorSpec, log *zap.SugaredLogger) *Session {
	s := &Session{
		id:     spec.ID,
		spec:   spec,
		device: NewDeviceClient(spec),
		log:    log,
		mode:   bus.ModeFull,
		done:   make(chan struct{}),
	}
	if spec.Mevo != nil {
		s.usePartial = spec.Mevo.UsePartial
		s.address = spec.Mevo.Address
	}
	return s
}

// Start implements actor.Actor.
func (s *Session) Start(sender *bus.Sender, receiver *bus.Receiver) {
	s.sender = sender
	s.shutdown = actor.NewShutdownFlag()
	started := make(chan struct{})
	go s.run(receiver, started)
	<-started
}

// Stop implements actor.Actor; idempotent.
func (s *Session) Stop() {
	if s.shutdown != nil {
		s.shutdown.Store(true)
	}
}

// Reconfigure implements actor.Actor (§4.2): an address change can't be
// hot-patched (RestartRequired); other Mevo fields are applied in place.
func (s *Session) Reconfigure(section any) actor.ReconfigureVerdict {
	spec, ok := section.(config.MonitorSpec)
	if !ok || spec.Mevo == nil || s.spec.Mevo == nil {
		return actor.NoChange
	}
	if spec.Mevo.Address != s.address {
		return actor.RestartRequired
	}

	changed := *spec.Mevo != *s.spec.Mevo
	s.spec = spec
	s.usePartial = spec.Mevo.UsePartial
	if !changed {
		return actor.NoChange
	}

	s.sender.Send(bus.ConfigChangedEvent{Section: marshalSection(*spec.Mevo)}, bus.RawPayload{})
	return actor.Applied
}

func (s *Session) run(receiver *bus.Receiver, started chan struct{}) {
	close(started)
	defer close(s.done)
	defer s.device.Close()

	ctx := context.Background()
	phase := PhaseConnecting
	backoff := backoffBase

	for {
		if s.shutdown.Load() {
			return
		}

		if s.drainSetModeCommands(receiver) && (phase == PhaseArmed || phase == PhaseShooting) {
			phase = PhaseConfiguring
		}

		switch phase {
		case PhaseConnecting:
			s.publishStatus(bus.StatusStarting, nil)
			if err := s.device.Connect(ctx); err != nil {
				phase = PhaseDisconnected
				s.warn("connect failed", err)
				continue
			}
			phase = PhaseHandshaking

		case PhaseHandshaking:
			s.publishStatus(bus.StatusStarting, nil)
			if err := s.device.Handshake(ctx); err != nil {
				phase = PhaseDisconnected
				s.warn("handshake failed", err)
				continue
			}
			phase = PhaseConfiguring

		case PhaseConfiguring:
			s.publishStatus(bus.StatusStarting, nil)
			if err := s.device.Configure(ctx, s.mode); err != nil {
				phase = PhaseDisconnected
				s.warn("configure failed", err)
				continue
			}
			phase = PhaseArming

		case PhaseArming:
			s.publishStatus(bus.StatusStarting, nil)
			if err := s.device.Arm(ctx); err != nil {
				phase = PhaseDisconnected
				s.warn("arm failed", err)
				continue
			}
			backoff = backoffBase
			phase = PhaseArmed

		case PhaseArmed:
			s.publishStatus(bus.StatusConnected, map[string]string{"armed": "true"})
			frame, err := s.device.ReadFrame(ctx, readTimeout)
			if err == ErrReadTimeout {
				continue
			}
			if err != nil {
				phase = PhaseDisconnected
				s.warn("read failed", err)
				continue
			}
			s.accumulator.Feed(frame)
			phase = PhaseShooting

		case PhaseShooting:
			s.publishStatus(bus.StatusConnected, map[string]string{"shooting": "true"})
			if frame, ok := s.readUntilBurstEnd(ctx); ok {
				shot, emitted := s.accumulator.EndBurst(s.id, s.usePartial, s.mode)
				if emitted {
					s.sender.Send(bus.LaunchMonitorEvent{Shot: shot}, bus.RawPayload{})
				}
				_ = frame
			}
			phase = PhaseArming

		case PhaseDisconnected:
			s.publishStatus(bus.StatusDisconnected, nil)
			phase = PhaseReconnecting

		case PhaseReconnecting:
			s.publishStatus(bus.StatusReconnecting, nil)
			s.sleepOrShutdown(backoff)
			backoff *= 2
			if backoff > backoffCap {
				backoff = backoffCap
			}
			phase = PhaseConnecting
		}
	}
}

// readUntilBurstEnd feeds frames into the accumulator until the burst-end
// marker arrives, a read error occurs (treated as disconnect on the next
// loop iteration via phase fallthrough to Disconnected is not applicable
// here since Shooting must finish the burst it started), or shutdown.
func (s *Session) readUntilBurstEnd(ctx context.Context) (Frame, bool) {
	for {
		if s.shutdown.Load() {
			return Frame{}, false
		}
		frame, err := s.device.ReadFrame(ctx, readTimeout)
		if err == ErrReadTimeout {
			continue
		}
		if err != nil {
			s.warn("read failed mid-burst", err)
			return Frame{}, true // end the burst with whatever was accumulated
		}
		if frame.Kind == FrameBurstEnd {
			return frame, true
		}
		s.accumulator.Feed(frame)
	}
}

// drainSetModeCommands consumes any pending set_mode commands, reporting
// whether the device's detection mode changed. The caller reruns the
// Arming step (via Configuring) on a change (§4.5).
func (s *Session) drainSetModeCommands(receiver *bus.Receiver) bool {
	changed := false
	for {
		msg, err := receiver.Poll()
		if err != nil {
			return changed
		}
		cmd, ok := msg.Event.(bus.GameStateCommandEvent)
		if !ok || cmd.Type != bus.SetMode || cmd.Mode == nil {
			continue
		}
		if *cmd.Mode != s.mode {
			s.mode = *cmd.Mode
			changed = true
		}
	}
}

func (s *Session) publishStatus(status bus.ActorLifecycleStatus, telemetry map[string]string) {
	if telemetry == nil {
		telemetry = map[string]string{}
	}
	s.sender.Send(bus.ActorStatusEvent{Status: status, Telemetry: telemetry}, bus.RawPayload{})
}

func (s *Session) warn(msg string, err error) {
	if s.log != nil {
		s.log.Warnw("monitor: "+msg, "id", s.id, "error", err)
	}
	s.sender.Send(bus.AlertEvent{Level: bus.AlertWarn, Message: msg + ": " + err.Error()}, bus.RawPayload{})
}

func (s *Session) sleepOrShutdown(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if s.shutdown.Load() {
			return
		}
		time.Sleep(pollIdle)
	}
}
