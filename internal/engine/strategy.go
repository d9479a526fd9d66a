package engine

import (
	"github.com/iconidentify/mediagrab/internal/extractor"
	"github.com/iconidentify/mediagrab/internal/identity"
)

// Strategy is one (client profile, network identity) combination the
// orchestrator will try.
type Strategy struct {
	Profile  extractor.ClientProfile
	Identity identity.Identity
}

func (s Strategy) key() string {
	return s.Profile.Name + "/" + s.Identity.Name
}

// BuildPlan produces the ordered, deduplicated strategy sequence: every
// profile over the direct route first (cheapest, least suspicious), then
// every profile over a freshly drawn proxied identity. The plan is capped
// at maxLen entries.
func BuildPlan(profiles []extractor.ClientProfile, pool *identity.Pool, maxLen int) []Strategy {
	if maxLen <= 0 {
		maxLen = 2 * len(profiles)
	}

	plan := make([]Strategy, 0, maxLen)
	seen := make(map[string]bool)

	add := func(s Strategy) {
		if len(plan) >= maxLen || seen[s.key()] {
			return
		}
		seen[s.key()] = true
		plan = append(plan, s)
	}

	for _, p := range profiles {
		add(Strategy{Profile: p, Identity: identity.Direct()})
	}

	// Identities already drawn for this plan are excluded so each proxied
	// step presents a different route.
	drawn := make(map[string]bool)
	for _, p := range profiles {
		id, ok := pool.Next(drawn)
		if !ok {
			break
		}
		drawn[id.Name] = true
		add(Strategy{Profile: p, Identity: id})
	}

	return plan
}
