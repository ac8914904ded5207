package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
	"github.com/divotmaker/flighthook/internal/shotdata"
	"github.com/divotmaker/flighthook/internal/units"
)

type fakeConfigSource struct{ cfg config.FlighthookConfig }

func (f fakeConfigSource) Config() config.FlighthookConfig { return f.cfg }

func setupTestAPI(t *testing.T) (*httptest.Server, *bus.Bus, *shotdata.Ring) {
	t.Helper()
	busInst := bus.New(nil)
	status := NewStatusTable(busInst)
	t.Cleanup(status.Close)
	ring := shotdata.NewRing()
	srv := New(busInst, status, ring, fakeConfigSource{cfg: config.DefaultConfig()}, nil)

	mux := http.NewServeMux()
	srv.Routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, busInst, ring
}

func TestHandleStatus_ReportsActorStatus(t *testing.T) {
	ts, busInst, _ := setupTestAPI(t)

	sender := busInst.NewSender("mevo.0", nil)
	sender.Send(bus.ActorStatusEvent{Status: bus.StatusConnected, Telemetry: map[string]string{"armed": "true"}}, bus.RawPayload{})

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/status")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var body struct {
			Actors map[string]ActorStatus `json:"actors"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		_, ok := body.Actors["mevo.0"]
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestHandleShots_ReturnsRecentAndConverts(t *testing.T) {
	ts, _, ring := setupTestAPI(t)
	ring.Add(shotdata.ShotData{
		Source: "mevo.0", ShotNumber: 1,
		Ball: shotdata.BallData{
			LaunchSpeed:   units.Velocity{Value: 100, Unit: units.MilesPerHour},
			CarryDistance: units.Distance{Value: 200, Unit: units.Yards},
			TotalDistance: units.Distance{Value: 210, Unit: units.Yards},
			MaxHeight:     units.Distance{Value: 30, Unit: units.Yards},
		},
	})

	resp, err := http.Get(ts.URL + "/api/shots?units=metric")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var shots []shotdata.ShotData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&shots))
	require.Len(t, shots, 1)
	assert.Equal(t, units.Meters, shots[0].Ball.CarryDistance.Unit)
}

func TestHandleShots_InvalidLimitIsBadRequest(t *testing.T) {
	ts, _, _ := setupTestAPI(t)
	resp, err := http.Get(ts.URL + "/api/shots?limit=-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleConvert_ConvertsPostedShot(t *testing.T) {
	ts, _, _ := setupTestAPI(t)
	shot := shotdata.ShotData{Ball: shotdata.BallData{
		LaunchSpeed:   units.Velocity{Value: 100, Unit: units.MilesPerHour},
		CarryDistance: units.Distance{Value: 200, Unit: units.Yards},
		TotalDistance: units.Distance{Value: 210, Unit: units.Yards},
		MaxHeight:     units.Distance{Value: 30, Unit: units.Yards},
	}}
	body, _ := json.Marshal(shot)

	resp, err := http.Post(ts.URL+"/api/shots/convert?units=metric", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var converted shotdata.ShotData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&converted))
	assert.Equal(t, units.MetersPerSec, converted.Ball.LaunchSpeed.Unit)
}

func TestHandleMode_PublishesSetModeCommand(t *testing.T) {
	ts, busInst, _ := setupTestAPI(t)
	observer := busInst.Subscribe()
	defer observer.Close()

	body, _ := json.Marshal(map[string]string{"mode": "chipping"})
	resp, err := http.Post(ts.URL+"/api/mode", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		msg, err := observer.Poll()
		if err != nil {
			return false
		}
		cmd, ok := msg.Event.(bus.GameStateCommandEvent)
		return ok && cmd.Type == bus.SetMode && cmd.Mode != nil && *cmd.Mode == bus.ModeChipping
	}, time.Second, time.Millisecond)
}

func TestHandleSettings_GetReturnsCachedConfig(t *testing.T) {
	ts, _, _ := setupTestAPI(t)
	resp, err := http.Get(ts.URL + "/api/settings")
	require.NoError(t, err)
	defer resp.Body.Close()

	var cfg config.FlighthookConfig
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.NotEmpty(t, cfg.Webserver)
}

// TestHandleSettings_PostUpsertRoundTripsOutcome exercises the §4.8
// subscribe-before-publish, request_id-correlated request/reply: a system
// actor stands in for SystemActor, replying with a config_outcome.
func TestHandleSettings_PostUpsertRoundTripsOutcome(t *testing.T) {
	ts, busInst, _ := setupTestAPI(t)

	// A minimal stand-in for SystemActor: echo back a config_outcome for
	// every config_command it observes, as SystemActor would after a real
	// reconcile.
	responder := busInst.NewSender("test-system", actor.NewShutdownFlag())
	responderReceiver := responder.Subscribe()
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			msg, err := responderReceiver.Poll()
			if err != nil {
				time.Sleep(time.Millisecond)
				continue
			}
			if cmd, ok := msg.Event.(bus.ConfigCommandEvent); ok && cmd.RequestID != "" {
				responder.Send(bus.ConfigOutcomeEvent{RequestID: cmd.RequestID, Started: []string{"mevo.0"}}, bus.RawPayload{})
			}
		}
	}()

	body := []byte(`{"name":"bay-1","address":"10.0.0.5:2483"}`)
	resp, err := http.Post(ts.URL+"/api/settings?scope=mevo.0", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome bus.ConfigOutcomeEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
	assert.Equal(t, []string{"mevo.0"}, outcome.Started)
}

// TestHandleSettings_PostTimesOutWithoutOutcome exercises the 10s-timeout ->
// 504 path (§4.8) by giving the request context a short deadline instead of
// waiting out the real timeout: no responder is registered, so
// awaitOutcome blocks until the (shortened) deadline. The handler is called
// directly with a recorder, since an HTTP client whose own context expires
// returns an error rather than the server's 504.
func TestHandleSettings_PostTimesOutWithoutOutcome(t *testing.T) {
	busInst := bus.New(nil)
	status := NewStatusTable(busInst)
	t.Cleanup(status.Close)
	srv := New(busInst, status, shotdata.NewRing(), fakeConfigSource{cfg: config.DefaultConfig()}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/api/settings", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.handleSettings(rec, req)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestHandleSettings_MalformedScopeIsBadRequest(t *testing.T) {
	ts, _, _ := setupTestAPI(t)
	resp, err := http.Post(ts.URL+"/api/settings?scope=not-a-global-id", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
