// Package format selects one rendition from an upstream probe according to
// a deterministic preference policy.
package format

import (
	"github.com/iconidentify/mediagrab/internal/domain"
)

// CanonicalID is the well-known progressive audio+video encoding preferred
// for maximum playback compatibility on constrained clients.
const CanonicalID = "18"

// BestSentinel delegates selection to the upstream extractor's own heuristic.
const BestSentinel = "best"

// DefaultResolutionCap is applied when the caller does not cap resolution.
const DefaultResolutionCap = 1080

// Negotiate picks a rendition id for the requested content kind.
//
// Policy, in order: an explicitly requested id wins (with a progressive
// substitute if the requested one is segmented); for audio the best
// audio-only rendition; the canonical compatibility format when present;
// the best audio+video rendition within the resolution cap; the sentinel
// "best" when nothing qualifies.
func Negotiate(renditions []domain.Rendition, kind domain.ContentKind, resolutionCap int, requestedID string) string {
	if resolutionCap <= 0 {
		resolutionCap = DefaultResolutionCap
	}

	if requestedID != "" {
		if r, ok := find(renditions, requestedID); ok {
			if r.Progressive() {
				return r.ID
			}
			// Requested a segmented stream: substitute the closest
			// progressive alternative. This is a compatibility override,
			// not an error; the requested id stands if nothing is close.
			if sub, ok := closestProgressive(renditions, r); ok {
				return sub.ID
			}
			return r.ID
		}
	}

	if kind == domain.KindAudio {
		if r, ok := bestAudioOnly(renditions); ok {
			return r.ID
		}
		// No audio-only rendition: fall through to the video policy and
		// let the caller extract the track afterwards.
	}

	if _, ok := find(renditions, CanonicalID); ok {
		return CanonicalID
	}

	if r, ok := bestPlayable(renditions, resolutionCap); ok {
		return r.ID
	}

	return BestSentinel
}

func find(renditions []domain.Rendition, id string) (domain.Rendition, bool) {
	for _, r := range renditions {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Rendition{}, false
}

// bestPlayable returns the audio+video rendition maximizing (height, bitrate)
// within the cap. First-seen order breaks ties.
func bestPlayable(renditions []domain.Rendition, maxHeight int) (domain.Rendition, bool) {
	var best domain.Rendition
	found := false
	for _, r := range renditions {
		if !r.Playable() || r.Height > maxHeight {
			continue
		}
		if !found || r.Height > best.Height || (r.Height == best.Height && r.Bitrate > best.Bitrate) {
			best = r
			found = true
		}
	}
	return best, found
}

func bestAudioOnly(renditions []domain.Rendition) (domain.Rendition, bool) {
	var best domain.Rendition
	found := false
	for _, r := range renditions {
		if r.HasVideo || !r.HasAudio {
			continue
		}
		if !found || r.Bitrate > best.Bitrate {
			best = r
			found = true
		}
	}
	return best, found
}

// closestProgressive finds the non-segmented rendition nearest in height to
// want, preferring higher bitrate among equals.
func closestProgressive(renditions []domain.Rendition, want domain.Rendition) (domain.Rendition, bool) {
	var best domain.Rendition
	bestDist := -1
	for _, r := range renditions {
		if !r.Progressive() || r.ID == want.ID {
			continue
		}
		if want.HasVideo && !r.HasVideo {
			continue
		}
		dist := want.Height - r.Height
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && r.Bitrate > best.Bitrate) {
			best = r
			bestDist = dist
		}
	}
	return best, bestDist >= 0
}
