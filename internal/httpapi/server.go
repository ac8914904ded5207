// Package httpapi implements the REST surface (§4.8, §6): status,
// shot history, unit conversion, mode changes, and settings read/write —
// the last implemented as a request/reply exchange over the bus.
//
// Grounded on the teacher's server/handlers.go: `engine.Ask` plus a
// timeout plus a typed-switch over the reply, adapted here from actor-Ask
// to "subscribe, publish, wait for a correlated bus event."
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
	"github.com/divotmaker/flighthook/internal/shotdata"
)

const settingsTimeout = 10 * time.Second

// ConfigSource supplies the currently cached configuration, satisfied by
// *system.SystemActor.
type ConfigSource interface {
	Config() config.FlighthookConfig
}

// Server wires the REST handlers to their backing components.
type Server struct {
	busInst *bus.Bus
	status  *StatusTable
	ring    *shotdata.Ring
	cfg     ConfigSource
	log     *zap.SugaredLogger
}

// New constructs an httpapi Server.
func New(busInst *bus.Bus, status *StatusTable, ring *shotdata.Ring, cfg ConfigSource, log *zap.SugaredLogger) *Server {
	return &Server{busInst: busInst, status: status, ring: ring, cfg: cfg, log: log}
}

// Routes registers every handler on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/shots", s.handleShots)
	mux.HandleFunc("/api/shots/convert", s.handleConvert)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/settings", s.handleSettings)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mode, actors := s.status.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":   mode,
		"actors": actors,
	})
}

func (s *Server) handleShots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	shots := s.ring.Recent(limit)

	system := shotdata.UnitSystem(r.URL.Query().Get("units"))
	if system != "" {
		converted := make([]shotdata.ShotData, len(shots))
		for i, shot := range shots {
			c, err := shotdata.Convert(shot, system)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			converted[i] = c
		}
		shots = converted
	}
	writeJSON(w, http.StatusOK, shots)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var shot shotdata.ShotData
	if err := json.NewDecoder(r.Body).Decode(&shot); err != nil {
		http.Error(w, "malformed shot: "+err.Error(), http.StatusBadRequest)
		return
	}
	system := shotdata.UnitSystem(r.URL.Query().Get("units"))
	converted, err := shotdata.Convert(shot, system)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, converted)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Mode bus.DetectionMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed body: "+err.Error(), http.StatusBadRequest)
		return
	}
	sender := s.busInst.NewSender("httpapi", nil)
	sender.Send(bus.GameStateCommandEvent{Type: bus.SetMode, Mode: &body.Mode}, bus.RawPayload{})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.cfg.Config())
	case http.MethodPost:
		s.handleSettingsPost(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSettingsPost(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	body, err := readAll(r)
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return
	}

	action, err := buildConfigAction(scope, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestID := uuid.NewString()
	receiver := s.busInst.Subscribe()
	defer receiver.Close()

	sender := s.busInst.NewSender("httpapi", nil)
	sender.Send(bus.ConfigCommandEvent{Action: action, RequestID: requestID}, bus.RawPayload{})

	outcome, err := awaitOutcome(r.Context(), receiver, requestID, settingsTimeout)
	if err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// buildConfigAction derives the ConfigAction from the optional scope query
// parameter ("" means a full-document replace; "{type}.{index}" means a
// single-section upsert) and the raw request body.
func buildConfigAction(scope string, body []byte) (bus.ConfigAction, error) {
	if scope == "" {
		return bus.ConfigAction{Type: bus.ActionReplaceAll, ReplaceConfig: body}, nil
	}

	t, idx, err := actor.ParseGlobalID(scope)
	if err != nil {
		return bus.ConfigAction{}, fmt.Errorf("invalid scope %q: %w", scope, err)
	}

	var actionType bus.ConfigActionType
	switch t {
	case actor.TypeMevo:
		actionType = bus.ActionUpsertMevo
	case actor.TypeGsPro:
		actionType = bus.ActionUpsertGsPro
	case actor.TypeWebserver:
		actionType = bus.ActionUpsertWebserver
	case actor.TypeMockMonitor:
		actionType = bus.ActionUpsertMockMonitor
	case actor.TypeRandomClub:
		actionType = bus.ActionUpsertRandomClub
	default:
		return bus.ConfigAction{}, fmt.Errorf("unrecognized scope type %q", t)
	}

	return bus.ConfigAction{Type: actionType, Index: idx, Section: body}, nil
}

// awaitOutcome subscribes-then-waits (the subscribe already happened, by
// the caller, before publish) for a config_outcome bearing requestID.
func awaitOutcome(ctx context.Context, receiver *bus.Receiver, requestID string, timeout time.Duration) (bus.ConfigOutcomeEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return bus.ConfigOutcomeEvent{}, fmt.Errorf("httpapi: timed out waiting for config_outcome %s", requestID)
		case <-ticker.C:
		}
		msg, err := receiver.Poll()
		if err != nil {
			continue
		}
		outcome, ok := msg.Event.(bus.ConfigOutcomeEvent)
		if !ok || outcome.RequestID != requestID {
			continue
		}
		return outcome, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
