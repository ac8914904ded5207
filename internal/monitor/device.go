// Package monitor implements the launch-monitor session state machine and
// shot accumulator (§4.5).
//
// Grounded on the teacher's game/game_actor_lifecycle.go (explicit phase
// enum driving transitions) and game/ball_actor.go (a long-running
// per-entity actor looping on ticks and external events). The concrete
// wire codec of any specific launch-monitor brand is out of scope per
// spec.md §1 ("external collaborator"); DeviceClient is the interface
// boundary the spec asks us to keep instead.
package monitor

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
	"github.com/divotmaker/flighthook/internal/shotdata"
	"github.com/divotmaker/flighthook/internal/units"
)

// FrameKind discriminates the device frame kinds described in §4.5.
type FrameKind string

const (
	FramePartialEstimate FrameKind = "E8"
	FrameFinalBallFlight FrameKind = "D4"
	FrameClubData        FrameKind = "ED"
	FrameSpinData        FrameKind = "EF"
	FrameBurstEnd        FrameKind = "PROCESSED"
)

// Frame is a single decoded device frame feeding the accumulator.
type Frame struct {
	Kind FrameKind
	Ball *shotdata.BallData
	Club *shotdata.ClubData
	Spin *shotdata.SpinData
}

// ErrReadTimeout signals that no frame arrived within the read deadline;
// this is not a transport failure and must not drive the session into
// Reconnecting.
var ErrReadTimeout = errors.New("monitor: read timeout")

// DeviceClient is the boundary to a concrete launch-monitor wire codec.
// Flighthook's core only depends on this interface (§1 scope note).
type DeviceClient interface {
	Connect(ctx context.Context) error
	Handshake(ctx context.Context) error
	Configure(ctx context.Context, mode bus.DetectionMode) error
	Arm(ctx context.Context) error
	ReadFrame(ctx context.Context, timeout time.Duration) (Frame, error)
	Close() error
}

// mockDeviceClient is the SPEC_FULL.md "mock_monitor" fixture: an
// always-armed synthetic device that periodically produces a complete
// shot burst, useful for exercising the reconciler and accumulator
// without real device I/O.
type mockDeviceClient struct {
	rng       *rand.Rand
	burstStep int
}

func newMockDeviceClient() *mockDeviceClient {
	return &mockDeviceClient{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (m *mockDeviceClient) Connect(ctx context.Context) error   { return nil }
func (m *mockDeviceClient) Handshake(ctx context.Context) error { return nil }
func (m *mockDeviceClient) Configure(ctx context.Context, mode bus.DetectionMode) error {
	return nil
}
func (m *mockDeviceClient) Arm(ctx context.Context) error { return nil }
func (m *mockDeviceClient) Close() error                  { return nil }

// ReadFrame runs a five-call cycle: three read timeouts, then a D4 frame,
// then the PROCESSED burst-end marker (no ED/EF frames), so the session
// spends most of its time in Armed rather than Shooting, matching a real
// device's duty cycle.
func (m *mockDeviceClient) ReadFrame(ctx context.Context, timeout time.Duration) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-time.After(timeout):
	}

	step := m.burstStep % 5
	m.burstStep++
	switch step {
	case 0, 1, 2:
		return Frame{}, ErrReadTimeout
	case 3:
		return Frame{Kind: FrameFinalBallFlight, Ball: m.syntheticBall()}, nil
	default:
		return Frame{Kind: FrameBurstEnd}, nil
	}
}

func (m *mockDeviceClient) syntheticBall() *shotdata.BallData {
	return &shotdata.BallData{
		LaunchSpeed:     units.Velocity{Value: 60 + m.rng.Float64()*30, Unit: units.MilesPerHour},
		LaunchAzimuth:   m.rng.Float64()*4 - 2,
		LaunchElevation: 10 + m.rng.Float64()*10,
		CarryDistance:   units.Distance{Value: 150 + m.rng.Float64()*80, Unit: units.Yards},
		TotalDistance:   units.Distance{Value: 160 + m.rng.Float64()*90, Unit: units.Yards},
		MaxHeight:       units.Distance{Value: 20 + m.rng.Float64()*15, Unit: units.Yards},
		BackspinRPM:     2000 + m.rng.Float64()*3000,
		SidespinRPM:     m.rng.Float64()*1000 - 500,
	}
}

// netDeviceClient models a TCP/serial-connected radar device (the "mevo"
// type prefix). The real wire protocol is out of scope (§1); this client
// only implements the connect/handshake/arm lifecycle shape a real
// implementation would plug concrete framing into.
type netDeviceClient struct {
	address string
	mock    *mockDeviceClient // stands in for the real wire codec
}

func newNetDeviceClient(address string) *netDeviceClient {
	return &netDeviceClient{address: address, mock: newMockDeviceClient()}
}

func (n *netDeviceClient) Connect(ctx context.Context) error {
	if n.address == "" {
		return errors.New("monitor: no address configured")
	}
	return n.mock.Connect(ctx)
}
func (n *netDeviceClient) Handshake(ctx context.Context) error { return n.mock.Handshake(ctx) }
func (n *netDeviceClient) Configure(ctx context.Context, mode bus.DetectionMode) error {
	return n.mock.Configure(ctx, mode)
}
func (n *netDeviceClient) Arm(ctx context.Context) error { return n.mock.Arm(ctx) }
func (n *netDeviceClient) Close() error                  { return n.mock.Close() }
func (n *netDeviceClient) ReadFrame(ctx context.Context, timeout time.Duration) (Frame, error) {
	return n.mock.ReadFrame(ctx, timeout)
}

// NewDeviceClient selects a concrete client for a resolved monitor spec.
func NewDeviceClient(spec config.MonitorSpec) DeviceClient {
	if spec.Mevo != nil {
		return newNetDeviceClient(spec.Mevo.Address)
	}
	return newMockDeviceClient()
}
