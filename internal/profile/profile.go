// SPDX-License-Identifier: MIT

// Package profile enumerates the player-client profiles the extraction engine
// can impersonate against the upstream site.
package profile

import (
	"fmt"
	"strings"

	"github.com/vgrab/vgrab/internal/log"
)

// Quality is a profile's quality ceiling.
type Quality string

const (
	QualityHD    Quality = "hd"
	QualitySD360 Quality = "sd-360p"
)

// Spec describes one player-client profile. Name is unique within the closed
// set; Client is the upstream impersonation parameter consumed by the engine.
type Spec struct {
	Name         string
	Quality      Quality
	RequiresCred bool
	Client       string
}

// The closed set of recognised profiles. The cookies profile rides the web
// client with an authenticated cookie jar.
var specs = []Spec{
	{Name: "tv", Quality: QualityHD, Client: "tv"},
	{Name: "ios", Quality: QualityHD, Client: "ios"},
	{Name: "android", Quality: QualitySD360, Client: "android"},
	{Name: "mweb", Quality: QualitySD360, Client: "mweb"},
	{Name: "web", Quality: QualityHD, Client: "web"},
	{Name: "cookies", Quality: QualityHD, Client: "web", RequiresCred: true},
}

// Registry resolves profile names against the closed set and carries the
// configured default order.
type Registry struct {
	byName       map[string]Spec
	defaultOrder []string
}

// NewRegistry builds a Registry from the configured order. Unknown names in
// the configuration are dropped with a warning; an empty resolved order is a
// startup error.
func NewRegistry(defaultOrder []string) (*Registry, error) {
	byName := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	logger := log.WithComponent("profile")
	var resolved []string
	seen := make(map[string]bool)
	for _, raw := range defaultOrder {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := byName[name]; !ok {
			logger.Warn().Str("profile", name).Msg("unknown profile in configured order, ignoring")
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		resolved = append(resolved, name)
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("no known profiles in configured order %v", defaultOrder)
	}

	return &Registry{byName: byName, defaultOrder: resolved}, nil
}

// List returns every profile in the closed set.
func (r *Registry) List() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// Get resolves a profile by name.
func (r *Registry) Get(name string) (Spec, bool) {
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// DefaultOrder returns the configured fallback order, unknown names removed
// and duplicates collapsed to their first occurrence.
func (r *Registry) DefaultOrder() []string {
	out := make([]string, len(r.defaultOrder))
	copy(out, r.defaultOrder)
	return out
}
