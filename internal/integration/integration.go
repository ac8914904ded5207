// Package integration implements the outbound simulator bridge (§4.6): a
// per-configured-simulator actor that filters launch_monitor.shot events by
// routing rule and forwards matches over a framed TCP connection, while
// translating simulator-side club selections into game_state_command
// events on the bus.
//
// Grounded on the teacher's game/paddle_actor.go (a per-peer actor reading
// its own inbox and writing to an owned connection), generalized from a
// paddle's per-tick physics update to an outbound TCP forwarding loop.
package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
	"github.com/divotmaker/flighthook/internal/shotdata"
)

const (
	dialTimeout = 5 * time.Second
	pollIdle    = 20 * time.Millisecond
)

// simulatorConn is the boundary to the simulator's wire framing. The
// concrete framing (GSPro's JSON-over-TCP line protocol, in the real
// deployment) is out of scope per spec.md §1; Bridge only depends on this.
type simulatorConn interface {
	Send(shot *shotdata.ShotData, club bus.ClubInfo) error
	Recv() (club string, ok bool)
	Close() error
}

// Bridge is the simulator-integration actor (§4.6).
type Bridge struct {
	id   string
	spec config.IntegrationSpec
	dial func(ctx context.Context, address string) (simulatorConn, error)
	log  *zap.SugaredLogger

	sender   *bus.Sender
	shutdown *atomic.Bool
	done     chan struct{}

	club   string
	handed string
	mode   bus.DetectionMode
}

// NewBridge constructs a simulator-integration actor for spec. random_club
// sections synthesize club selections locally instead of dialing out
// (SPEC_FULL.md §3 supplemented fixture).
func NewBridge(spec config.IntegrationSpec, log *zap.SugaredLogger) *Bridge {
	b := &Bridge{id: spec.ID, spec: spec, log: log, done: make(chan struct{})}
	if spec.GsPro != nil {
		b.dial = dialGsPro
	}
	return b
}

// Start implements actor.Actor.
func (b *Bridge) Start(sender *bus.Sender, receiver *bus.Receiver) {
	b.sender = sender
	b.shutdown = actor.NewShutdownFlag()
	started := make(chan struct{})
	go b.run(receiver, started)
	<-started
}

// Stop implements actor.Actor; idempotent.
func (b *Bridge) Stop() {
	if b.shutdown != nil {
		b.shutdown.Store(true)
	}
}

// Reconfigure implements actor.Actor: an address change requires a
// restart; routing-filter fields (full/chipping/putting monitor) and the
// random-club fixture's fields are hot-patchable. An Applied verdict is
// accompanied by a config_changed event once the bridge has been started.
func (b *Bridge) Reconfigure(section any) actor.ReconfigureVerdict {
	spec, ok := section.(config.IntegrationSpec)
	if !ok {
		return actor.NoChange
	}
	if spec.GsPro != nil && b.spec.GsPro != nil {
		if spec.GsPro.Address != b.spec.GsPro.Address {
			return actor.RestartRequired
		}
		changed := *spec.GsPro != *b.spec.GsPro
		b.spec = spec
		if !changed {
			return actor.NoChange
		}
		if b.sender != nil {
			raw, _ := json.Marshal(*spec.GsPro)
			b.sender.Send(bus.ConfigChangedEvent{Section: raw}, bus.RawPayload{})
		}
		return actor.Applied
	}
	if spec.RandomClub != nil && b.spec.RandomClub != nil {
		changed := *spec.RandomClub != *b.spec.RandomClub
		b.spec = spec
		if !changed {
			return actor.NoChange
		}
		if b.sender != nil {
			raw, _ := json.Marshal(*spec.RandomClub)
			b.sender.Send(bus.ConfigChangedEvent{Section: raw}, bus.RawPayload{})
		}
		return actor.Applied
	}
	return actor.NoChange
}

func (b *Bridge) run(receiver *bus.Receiver, started chan struct{}) {
	close(started)
	defer close(b.done)

	var conn simulatorConn
	if b.dial != nil {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		c, err := b.dial(ctx, b.spec.GsPro.Address)
		cancel()
		if err != nil {
			b.reportError(err)
		} else {
			conn = c
			defer conn.Close()
		}
	}

	fixture := newRandomClubFixture(b.spec)

	for {
		if b.shutdown.Load() {
			return
		}

		msg, err := receiver.Poll()
		if err == nil {
			b.handle(msg, conn)
			continue
		}
		if err == bus.ErrShutdown {
			return
		}

		if conn != nil {
			if club, ok := conn.Recv(); ok {
				b.setClub(club)
			}
		}
		if fixture != nil {
			if club, ok := fixture.tick(); ok {
				b.setClub(club)
			}
		}

		time.Sleep(pollIdle)
	}
}

func (b *Bridge) handle(msg bus.Message, conn simulatorConn) {
	switch event := msg.Event.(type) {
	case bus.GameStateSnapshotEvent:
		if event.Mode != nil {
			b.mode = *event.Mode
		}
	case bus.LaunchMonitorEvent:
		if event.Shot == nil {
			return
		}
		if !b.routes(event.Shot.Source, b.mode) {
			return
		}
		if conn == nil {
			return
		}
		if err := conn.Send(event.Shot, bus.ClubInfo{Club: b.club}); err != nil {
			b.reportError(err)
		}
	}
}

// routes implements the §4.6 filter rule for a shot from src under mode m.
func (b *Bridge) routes(src string, m bus.DetectionMode) bool {
	if b.spec.GsPro == nil {
		return true
	}
	want := ""
	switch m {
	case bus.ModeFull:
		want = b.spec.GsPro.FullMonitor
	case bus.ModeChipping:
		want = b.spec.GsPro.ChippingMonitor
	case bus.ModePutting:
		want = b.spec.GsPro.PuttingMonitor
	default:
		return true
	}
	return want == "" || want == src
}

func (b *Bridge) setClub(club string) {
	b.club = club
	b.sender.Send(bus.GameStateCommandEvent{
		Type:     bus.SetClubInfo,
		ClubInfo: &bus.ClubInfo{Club: club},
	}, bus.RawPayload{})
	b.publishStatus()
}

func (b *Bridge) publishStatus() {
	b.sender.Send(bus.ActorStatusEvent{
		Status: bus.StatusConnected,
		Telemetry: map[string]string{
			"club":   b.club,
			"handed": b.handed,
			"error":  "",
		},
	}, bus.RawPayload{})
}

func (b *Bridge) reportError(err error) {
	if b.log != nil {
		b.log.Warnw("integration: error", "id", b.id, "error", err)
	}
	b.sender.Send(bus.ActorStatusEvent{
		Status: bus.StatusDisconnected,
		Telemetry: map[string]string{
			"club":   b.club,
			"handed": b.handed,
			"error":  err.Error(),
		},
	}, bus.RawPayload{})
}

// --- GSPro wire stand-in ---

type gsProConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func dialGsPro(ctx context.Context, address string) (simulatorConn, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return &gsProConn{conn: conn, r: bufio.NewReader(conn)}, nil
}

type gsProOutbound struct {
	Shot *shotdata.ShotData `json:"shot"`
	Club string             `json:"club"`
}

func (g *gsProConn) Send(shot *shotdata.ShotData, club bus.ClubInfo) error {
	line, err := json.Marshal(gsProOutbound{Shot: shot, Club: club.Club})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = g.conn.Write(line)
	return err
}

type gsProInbound struct {
	Club string `json:"club"`
}

func (g *gsProConn) Recv() (string, bool) {
	g.conn.SetReadDeadline(time.Now().Add(5 * time.Millisecond))
	line, err := g.r.ReadBytes('\n')
	if err != nil {
		return "", false
	}
	var in gsProInbound
	if err := json.Unmarshal(line, &in); err != nil || in.Club == "" {
		return "", false
	}
	return in.Club, true
}

func (g *gsProConn) Close() error { return g.conn.Close() }
