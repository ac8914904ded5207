package bus

import (
	"encoding/json"
	"fmt"

	"github.com/divotmaker/flighthook/internal/shotdata"
)

// EventKind discriminates the FlighthookEvent tagged union (§3).
type EventKind string

const (
	KindLaunchMonitor     EventKind = "launch_monitor"
	KindActorStatus       EventKind = "actor_status"
	KindConfigChanged     EventKind = "config_changed"
	KindGameStateCommand  EventKind = "game_state_command"
	KindGameStateSnapshot EventKind = "game_state_snapshot"
	KindUserData          EventKind = "user_data"
	KindConfigCommand     EventKind = "config_command"
	KindConfigOutcome     EventKind = "config_outcome"
	KindAlert             EventKind = "alert"
)

// Event is implemented by every FlighthookEvent variant.
type Event interface {
	Kind() EventKind
}

// --- launch_monitor ---

// LaunchMonitorEvent carries either a finished shot or a ready-state update.
// Exactly one of Shot / Ready is non-nil.
type LaunchMonitorEvent struct {
	Shot  *shotdata.ShotData `json:"shot,omitempty"`
	Ready *ReadyState        `json:"ready,omitempty"`
}

func (LaunchMonitorEvent) Kind() EventKind { return KindLaunchMonitor }

// ReadyState is the launch monitor's armed/ball-detected status.
type ReadyState struct {
	Armed        bool `json:"armed"`
	BallDetected bool `json:"ball_detected"`
}

// --- actor_status ---

// ActorLifecycleStatus is the external status mapping described in §4.5.
type ActorLifecycleStatus string

const (
	StatusStarting     ActorLifecycleStatus = "starting"
	StatusDisconnected ActorLifecycleStatus = "disconnected"
	StatusConnected    ActorLifecycleStatus = "connected"
	StatusReconnecting ActorLifecycleStatus = "reconnecting"
)

// ActorStatusEvent reports an actor's lifecycle status and free-form telemetry.
type ActorStatusEvent struct {
	Status    ActorLifecycleStatus `json:"status"`
	Telemetry map[string]string    `json:"telemetry"`
}

func (ActorStatusEvent) Kind() EventKind { return KindActorStatus }

// --- config_changed ---

// ConfigChangedEvent carries the new settings applied in place to a device.
type ConfigChangedEvent struct {
	Section json.RawMessage `json:"section"`
}

func (ConfigChangedEvent) Kind() EventKind { return KindConfigChanged }

// --- game_state_command ---

// GameStateCommandType discriminates the nested game-state mutation.
type GameStateCommandType string

const (
	SetPlayerInfo GameStateCommandType = "set_player_info"
	SetClubInfo   GameStateCommandType = "set_club_info"
	SetMode       GameStateCommandType = "set_mode"
)

// GameStateCommandEvent is a request to mutate authoritative game state.
type GameStateCommandEvent struct {
	Type       GameStateCommandType `json:"type"`
	PlayerInfo *PlayerInfo          `json:"player_info,omitempty"`
	ClubInfo   *ClubInfo            `json:"club_info,omitempty"`
	Mode       *DetectionMode       `json:"mode,omitempty"`
}

func (GameStateCommandEvent) Kind() EventKind { return KindGameStateCommand }

// DetectionMode is global, derived from club selection (§9 Glossary).
type DetectionMode string

const (
	ModeFull     DetectionMode = "full"
	ModeChipping DetectionMode = "chipping"
	ModePutting  DetectionMode = "putting"
)

// PlayerInfo is the authoritative player identity.
type PlayerInfo struct {
	Name   string `json:"name"`
	Handed string `json:"handed,omitempty"`
}

// ClubInfo is the authoritative club selection.
type ClubInfo struct {
	Club string `json:"club"`
}

// --- game_state_snapshot ---

// GameStateSnapshotEvent is the full authoritative state, emitted after
// every accepted mutation.
type GameStateSnapshotEvent struct {
	PlayerInfo *PlayerInfo    `json:"player_info,omitempty"`
	ClubInfo   *ClubInfo      `json:"club_info,omitempty"`
	Mode       *DetectionMode `json:"mode,omitempty"`
}

func (GameStateSnapshotEvent) Kind() EventKind { return KindGameStateSnapshot }

// --- user_data ---

// UserDataEvent is an opaque payload from a third-party WebSocket client.
type UserDataEvent struct {
	Payload json.RawMessage `json:"payload"`
}

func (UserDataEvent) Kind() EventKind { return KindUserData }

// --- config_command ---

// ConfigActionType discriminates the mutation requested of SystemActor.
type ConfigActionType string

const (
	ActionReplaceAll        ConfigActionType = "replace_all"
	ActionUpsertMevo        ConfigActionType = "upsert_mevo"
	ActionUpsertGsPro       ConfigActionType = "upsert_gspro"
	ActionUpsertWebserver   ConfigActionType = "upsert_webserver"
	ActionUpsertMockMonitor ConfigActionType = "upsert_mock_monitor"
	ActionUpsertRandomClub  ConfigActionType = "upsert_random_club"
	ActionRemove            ConfigActionType = "remove"
)

// ConfigAction is the payload of a config_command event.
type ConfigAction struct {
	Type          ConfigActionType `json:"type"`
	Index         int              `json:"index,omitempty"`
	Section       json.RawMessage  `json:"section,omitempty"`
	ReplaceConfig json.RawMessage  `json:"replace_config,omitempty"`
	RemoveID      string           `json:"remove_id,omitempty"`
}

// ConfigCommandEvent requests a configuration mutation.
type ConfigCommandEvent struct {
	Action    ConfigAction `json:"action"`
	RequestID string       `json:"request_id,omitempty"`
}

func (ConfigCommandEvent) Kind() EventKind { return KindConfigCommand }

// --- config_outcome ---

// ConfigOutcomeEvent acknowledges a config mutation, keyed by RequestID.
type ConfigOutcomeEvent struct {
	RequestID       string   `json:"request_id"`
	RestartRequired bool     `json:"restart_required"`
	Restarted       []string `json:"restarted"`
	Stopped         []string `json:"stopped"`
	Started         []string `json:"started"`
}

func (ConfigOutcomeEvent) Kind() EventKind { return KindConfigOutcome }

// --- alert ---

// AlertLevel is warn or error.
type AlertLevel string

const (
	AlertWarn  AlertLevel = "warn"
	AlertError AlertLevel = "error"
)

// AlertEvent is a user-visible, free-text notification.
type AlertEvent struct {
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

func (AlertEvent) Kind() EventKind { return KindAlert }

// --- wire encoding ---

// marshalEvent encodes an Event in its wire shape: the event's own fields
// flattened alongside the "kind" discriminant.
func marshalEvent(e Event) (json.RawMessage, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, err := json.Marshal(e.Kind())
	if err != nil {
		return nil, err
	}
	fields["kind"] = kind
	return json.Marshal(fields)
}

func unmarshalEvent(raw json.RawMessage) (Event, error) {
	var peek struct {
		Kind EventKind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, fmt.Errorf("bus: decoding event kind: %w", err)
	}

	var event Event
	switch peek.Kind {
	case KindLaunchMonitor:
		event = &LaunchMonitorEvent{}
	case KindActorStatus:
		event = &ActorStatusEvent{}
	case KindConfigChanged:
		event = &ConfigChangedEvent{}
	case KindGameStateCommand:
		event = &GameStateCommandEvent{}
	case KindGameStateSnapshot:
		event = &GameStateSnapshotEvent{}
	case KindUserData:
		event = &UserDataEvent{}
	case KindConfigCommand:
		event = &ConfigCommandEvent{}
	case KindConfigOutcome:
		event = &ConfigOutcomeEvent{}
	case KindAlert:
		event = &AlertEvent{}
	default:
		return nil, fmt.Errorf("bus: unrecognized event kind %q", peek.Kind)
	}
	if err := json.Unmarshal(raw, event); err != nil {
		return nil, fmt.Errorf("bus: decoding %s event: %w", peek.Kind, err)
	}
	return dereference(event), nil
}

// dereference returns the concrete value (not pointer) implementing Event,
// matching the value-receiver Kind() methods above.
func dereference(e Event) Event {
	switch v := e.(type) {
	case *LaunchMonitorEvent:
		return *v
	case *ActorStatusEvent:
		return *v
	case *ConfigChangedEvent:
		return *v
	case *GameStateCommandEvent:
		return *v
	case *GameStateSnapshotEvent:
		return *v
	case *UserDataEvent:
		return *v
	case *ConfigCommandEvent:
		return *v
	case *ConfigOutcomeEvent:
		return *v
	case *AlertEvent:
		return *v
	default:
		return e
	}
}
