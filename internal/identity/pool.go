// Package identity manages the pool of network identities an acquisition
// can present to upstream services: the implicit direct identity plus zero
// or more (proxy route, credential bundle) pairs.
package identity

import (
	"fmt"
	"math/rand"

	"github.com/iconidentify/mediagrab/internal/config"
)

// Identity is a network route plus the credential bundle used through it.
// The zero ProxyURL means the direct, unproxied route.
type Identity struct {
	Name     string
	ProxyURL string
	Bundle   string // credential bundle filename inside the vault, optional
}

// Direct returns the implicit unproxied identity.
func Direct() Identity {
	return Identity{Name: "direct"}
}

// IsDirect reports whether the identity uses no proxy route.
func (id Identity) IsDirect() bool {
	return id.ProxyURL == ""
}

// Pool supplies proxied identities in randomized order. Membership is fixed
// at startup and never mutated: remote failures are often transient or
// request-specific, so identities are excluded per attempt, not marked bad
// across calls.
type Pool struct {
	ids []Identity
}

// NewPool builds a pool from configuration.
func NewPool(entries []config.ProxyEntry) *Pool {
	ids := make([]Identity, 0, len(entries))
	for i, e := range entries {
		ids = append(ids, Identity{
			Name:     poolName(i),
			ProxyURL: e.URL,
			Bundle:   e.Bundle,
		})
	}
	return &Pool{ids: ids}
}

// Size returns the number of proxied identities configured.
func (p *Pool) Size() int {
	return len(p.ids)
}

// Next returns a uniformly random proxied identity whose name is not in
// exclude. The second return is false when the pool has no candidate left;
// callers fall back to the direct identity in that case.
func (p *Pool) Next(exclude map[string]bool) (Identity, bool) {
	candidates := make([]Identity, 0, len(p.ids))
	for _, id := range p.ids {
		if !exclude[id.Name] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return Identity{}, false
	}
	return candidates[rand.Intn(len(candidates))], true
}

func poolName(i int) string {
	return fmt.Sprintf("proxy-%d", i)
}
