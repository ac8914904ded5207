package system

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/divotmaker/flighthook/internal/actor"
	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/config"
)

// applyConfigAction interprets a single ConfigAction against cfg per the
// §4.3 table, returning the new cached config. Errors are rejected in
// place (the caller publishes an error-level alert and leaves the cached
// config untouched; §7 "Config errors during reload").
func applyConfigAction(cfg config.FlighthookConfig, action bus.ConfigAction) (config.FlighthookConfig, error) {
	next := cfg.Clone()

	switch action.Type {
	case bus.ActionReplaceAll:
		var replacement config.FlighthookConfig
		if err := json.Unmarshal(action.ReplaceConfig, &replacement); err != nil {
			return cfg, fmt.Errorf("system: replace_all: %w", err)
		}
		return replacement, nil

	case bus.ActionUpsertMevo:
		var sect config.MevoSection
		if err := json.Unmarshal(action.Section, &sect); err != nil {
			return cfg, fmt.Errorf("system: upsert_mevo: %w", err)
		}
		next.Mevo[strconv.Itoa(action.Index)] = sect

	case bus.ActionUpsertGsPro:
		var sect config.GsProSection
		if err := json.Unmarshal(action.Section, &sect); err != nil {
			return cfg, fmt.Errorf("system: upsert_gspro: %w", err)
		}
		next.GsPro[strconv.Itoa(action.Index)] = sect

	case bus.ActionUpsertWebserver:
		var sect config.WebserverSection
		if err := json.Unmarshal(action.Section, &sect); err != nil {
			return cfg, fmt.Errorf("system: upsert_webserver: %w", err)
		}
		next.Webserver[strconv.Itoa(action.Index)] = sect

	case bus.ActionUpsertMockMonitor:
		var sect config.MockMonitorSection
		if err := json.Unmarshal(action.Section, &sect); err != nil {
			return cfg, fmt.Errorf("system: upsert_mock_monitor: %w", err)
		}
		next.MockMonitor[strconv.Itoa(action.Index)] = sect

	case bus.ActionUpsertRandomClub:
		var sect config.RandomClubSection
		if err := json.Unmarshal(action.Section, &sect); err != nil {
			return cfg, fmt.Errorf("system: upsert_random_club: %w", err)
		}
		next.RandomClub[strconv.Itoa(action.Index)] = sect

	case bus.ActionRemove:
		t, idx, err := actor.ParseGlobalID(action.RemoveID)
		if err != nil {
			return cfg, fmt.Errorf("system: remove: %w", err)
		}
		key := strconv.Itoa(idx)
		switch t {
		case actor.TypeMevo:
			delete(next.Mevo, key)
		case actor.TypeGsPro:
			delete(next.GsPro, key)
		case actor.TypeWebserver:
			delete(next.Webserver, key)
		case actor.TypeMockMonitor:
			delete(next.MockMonitor, key)
		case actor.TypeRandomClub:
			delete(next.RandomClub, key)
		default:
			return cfg, fmt.Errorf("system: remove: unknown type prefix %q", t)
		}

	default:
		return cfg, fmt.Errorf("system: unknown config action type %q", action.Type)
	}

	return next, nil
}

// clubMode derives the detection mode for a club selection from the
// configured chipping/putting sets; clubs in neither set map to full
// (§4.3).
func clubMode(cfg config.FlighthookConfig, club string) bus.DetectionMode {
	for _, c := range cfg.ChippingClubs {
		if c == club {
			return bus.ModeChipping
		}
	}
	for _, c := range cfg.PuttingClubs {
		if c == club {
			return bus.ModePutting
		}
	}
	return bus.ModeFull
}
