// SPDX-License-Identifier: MIT

package fallback

import (
	"github.com/vgrab/vgrab/internal/profile"
)

// BuildPlan constructs the ordered, deduplicated profile sequence for one
// request. The preferred profile (when known) goes first, the configured
// default order follows, and credentialled profiles are dropped entirely
// when no credentials are available. Plan construction is deterministic:
// same inputs and configuration produce the same plan.
func BuildPlan(reg *profile.Registry, preferred string, credsAvailable bool) []profile.Spec {
	var plan []profile.Spec
	seen := make(map[string]bool)

	add := func(name string) {
		spec, ok := reg.Get(name)
		if !ok || seen[spec.Name] {
			return
		}
		if spec.RequiresCred && !credsAvailable {
			return
		}
		seen[spec.Name] = true
		plan = append(plan, spec)
	}

	// An unknown preferred profile is treated as absent, not an error.
	if preferred != "" {
		add(preferred)
	}
	for _, name := range reg.DefaultOrder() {
		add(name)
	}
	return plan
}
