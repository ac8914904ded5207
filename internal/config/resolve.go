package config

import (
	"sort"
	"strconv"

	"github.com/divotmaker/flighthook/internal/actor"
)

// MonitorSpec is a resolved launch-monitor entry.
type MonitorSpec struct {
	ID          string
	Name        string
	Type        actor.TypePrefix
	Mevo        *MevoSection
	MockMonitor *MockMonitorSection
}

// IntegrationSpec is a resolved simulator-integration entry.
type IntegrationSpec struct {
	ID         string
	Name       string
	Type       actor.TypePrefix
	GsPro      *GsProSection
	RandomClub *RandomClubSection
}

// WebserverEndpoint is a resolved HTTP/WebSocket bind target.
type WebserverEndpoint struct {
	ID   string
	Name string
	Bind string
}

// Resolved is the flat, reconciler-facing view of a FlighthookConfig (§3).
type Resolved struct {
	Monitors     []MonitorSpec
	Integrations []IntegrationSpec
	Webservers   []WebserverEndpoint
}

// IDs returns every actor-bearing global ID in the resolved config
// (monitors + integrations; webservers are reconciled separately per §4.3's
// "compute old-vs-new webserver bind set").
func (r Resolved) IDs() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Monitors)+len(r.Integrations))
	for _, m := range r.Monitors {
		set[m.ID] = struct{}{}
	}
	for _, i := range r.Integrations {
		set[i.ID] = struct{}{}
	}
	return set
}

// WebserverBinds returns the set of bind addresses across all webserver
// sections, used to decide restart_required on config_command (§4.3).
func (r Resolved) WebserverBinds() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Webservers))
	for _, w := range r.Webservers {
		set[w.Bind] = struct{}{}
	}
	return set
}

// Resolve derives the flat, ordered resolved configuration from cfg.
func Resolve(cfg FlighthookConfig) Resolved {
	var resolved Resolved

	for _, idx := range sortedKeys(cfg.Mevo) {
		section := cfg.Mevo[idx]
		i, _ := strconv.Atoi(idx)
		sec := section
		resolved.Monitors = append(resolved.Monitors, MonitorSpec{
			ID:   actor.GlobalID(actor.TypeMevo, i),
			Name: section.Name,
			Type: actor.TypeMevo,
			Mevo: &sec,
		})
	}
	for _, idx := range sortedKeys(cfg.MockMonitor) {
		section := cfg.MockMonitor[idx]
		i, _ := strconv.Atoi(idx)
		sec := section
		resolved.Monitors = append(resolved.Monitors, MonitorSpec{
			ID:          actor.GlobalID(actor.TypeMockMonitor, i),
			Name:        section.Name,
			Type:        actor.TypeMockMonitor,
			MockMonitor: &sec,
		})
	}

	for _, idx := range sortedKeys(cfg.GsPro) {
		section := cfg.GsPro[idx]
		i, _ := strconv.Atoi(idx)
		sec := section
		resolved.Integrations = append(resolved.Integrations, IntegrationSpec{
			ID:    actor.GlobalID(actor.TypeGsPro, i),
			Name:  section.Name,
			Type:  actor.TypeGsPro,
			GsPro: &sec,
		})
	}
	for _, idx := range sortedKeys(cfg.RandomClub) {
		section := cfg.RandomClub[idx]
		i, _ := strconv.Atoi(idx)
		sec := section
		resolved.Integrations = append(resolved.Integrations, IntegrationSpec{
			ID:         actor.GlobalID(actor.TypeRandomClub, i),
			Name:       section.Name,
			Type:       actor.TypeRandomClub,
			RandomClub: &sec,
		})
	}

	for _, idx := range sortedKeys(cfg.Webserver) {
		section := cfg.Webserver[idx]
		i, _ := strconv.Atoi(idx)
		resolved.Webservers = append(resolved.Webservers, WebserverEndpoint{
			ID:   actor.GlobalID(actor.TypeWebserver, i),
			Name: section.Name,
			Bind: section.Bind,
		})
	}

	return resolved
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, erri := strconv.Atoi(keys[i])
		nj, errj := strconv.Atoi(keys[j])
		if erri == nil && errj == nil {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}
