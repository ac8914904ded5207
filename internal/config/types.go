// Package config implements Flighthook's TOML configuration file (§6),
// the per-type section maps, and the resolved configuration consumed by
// the reload reconciler (§4.4) and the launch-monitor/integration actors.
//
// Grounded on the teacher's utils/config.go (a flat struct with a
// Default...() constructor), generalized to the per-type, index-keyed
// section maps §6 specifies. TOML load/save is grounded on
// teranos-QNTX's github.com/BurntSushi/toml usage.
package config

import "github.com/divotmaker/flighthook/internal/units"

// UsePartialPolicy controls whether a partial/estimated shot is emitted
// when no final result arrives in a burst (§4.5).
type UsePartialPolicy string

const (
	PartialNever        UsePartialPolicy = "never"
	PartialChippingOnly UsePartialPolicy = "chipping_only"
	PartialAlways       UsePartialPolicy = "always"
)

// WebserverSection configures a bound HTTP/WebSocket listener.
type WebserverSection struct {
	Name string `toml:"name" json:"name"`
	Bind string `toml:"bind" json:"bind"`
}

// MevoSection configures a Mevo-class radar launch monitor session.
type MevoSection struct {
	Name          string           `toml:"name" json:"name"`
	Address       string           `toml:"address,omitempty" json:"address,omitempty"`
	BallType      string           `toml:"ball_type,omitempty" json:"ball_type,omitempty"`
	TeeHeight     *units.Distance  `toml:"tee_height,omitempty" json:"tee_height,omitempty"`
	Range         *units.Distance  `toml:"range,omitempty" json:"range,omitempty"`
	SurfaceHeight *units.Distance  `toml:"surface_height,omitempty" json:"surface_height,omitempty"`
	TrackPct      *float64         `toml:"track_pct,omitempty" json:"track_pct,omitempty"`
	UsePartial    UsePartialPolicy `toml:"use_partial,omitempty" json:"use_partial,omitempty"`
}

// MockMonitorSection configures an in-repo synthetic launch-monitor
// fixture (SPEC_FULL.md §3 supplemented feature).
type MockMonitorSection struct {
	Name string `toml:"name" json:"name"`
}

// GsProSection configures an outbound simulator integration bridge.
type GsProSection struct {
	Name            string `toml:"name" json:"name"`
	Address         string `toml:"address,omitempty" json:"address,omitempty"`
	FullMonitor     string `toml:"full_monitor,omitempty" json:"full_monitor,omitempty"`
	ChippingMonitor string `toml:"chipping_monitor,omitempty" json:"chipping_monitor,omitempty"`
	PuttingMonitor  string `toml:"putting_monitor,omitempty" json:"putting_monitor,omitempty"`
}

// RandomClubSection configures an in-repo synthetic club-selection
// fixture (SPEC_FULL.md §3 supplemented feature).
type RandomClubSection struct {
	Name string `toml:"name" json:"name"`
}

// FlighthookConfig is the full TOML document (§6). JSON tags mirror the
// TOML names so a GET /api/settings response can be edited and POSTed
// back unchanged (§4.8).
type FlighthookConfig struct {
	ChippingClubs []string                      `toml:"chipping_clubs" json:"chipping_clubs"`
	PuttingClubs  []string                      `toml:"putting_clubs" json:"putting_clubs"`
	Webserver     map[string]WebserverSection   `toml:"webserver" json:"webserver"`
	Mevo          map[string]MevoSection        `toml:"mevo" json:"mevo"`
	MockMonitor   map[string]MockMonitorSection `toml:"mock_monitor" json:"mock_monitor"`
	GsPro         map[string]GsProSection       `toml:"gspro" json:"gspro"`
	RandomClub    map[string]RandomClubSection  `toml:"random_club" json:"random_club"`
}

// Clone returns a deep-enough copy for safe independent mutation (the
// cached config is owned exclusively by SystemActor; callers that need to
// mutate before ReplaceAll should clone first).
func (c FlighthookConfig) Clone() FlighthookConfig {
	clone := FlighthookConfig{
		ChippingClubs: append([]string(nil), c.ChippingClubs...),
		PuttingClubs:  append([]string(nil), c.PuttingClubs...),
		Webserver:     make(map[string]WebserverSection, len(c.Webserver)),
		Mevo:          make(map[string]MevoSection, len(c.Mevo)),
		MockMonitor:   make(map[string]MockMonitorSection, len(c.MockMonitor)),
		GsPro:         make(map[string]GsProSection, len(c.GsPro)),
		RandomClub:    make(map[string]RandomClubSection, len(c.RandomClub)),
	}
	for k, v := range c.Webserver {
		clone.Webserver[k] = v
	}
	for k, v := range c.Mevo {
		clone.Mevo[k] = v
	}
	for k, v := range c.MockMonitor {
		clone.MockMonitor[k] = v
	}
	for k, v := range c.GsPro {
		clone.GsPro[k] = v
	}
	for k, v := range c.RandomClub {
		clone.RandomClub[k] = v
	}
	return clone
}

// DefaultConfig returns a minimal, valid starting configuration: one
// webserver and no devices.
func DefaultConfig() FlighthookConfig {
	return FlighthookConfig{
		ChippingClubs: []string{"GW", "SW", "LW"},
		PuttingClubs:  []string{"PT"},
		Webserver: map[string]WebserverSection{
			"0": {Name: "default", Bind: "0.0.0.0:8080"},
		},
		Mevo:        map[string]MevoSection{},
		MockMonitor: map[string]MockMonitorSection{},
		GsPro:       map[string]GsProSection{},
		RandomClub:  map[string]RandomClubSection{},
	}
}
