// Package extractor binds upstream media platforms behind a common
// probe/fetch pair so the acquisition engine never depends on a concrete
// platform.
package extractor

import (
	"context"
	"strings"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// ClientProfile shapes upstream requests to look like a particular client.
// Which profile is used affects which renditions upstream exposes.
type ClientProfile struct {
	Name         string
	PlayerClient string
	UserAgent    string
	Referer      string
}

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

// DefaultProfiles returns the emulation catalog in preference order:
// the ordinary web client first, then the embedded clients that tend to
// survive bot checks on hardened endpoints.
func DefaultProfiles() []ClientProfile {
	return []ClientProfile{
		{Name: "web", PlayerClient: "web", UserAgent: desktopUA, Referer: "https://www.youtube.com/"},
		{Name: "android_embedded", PlayerClient: "android_embedded", UserAgent: desktopUA},
		{Name: "tv_embedded", PlayerClient: "tv_embedded", UserAgent: desktopUA},
	}
}

// Options carries the per-call identity and profile for one attempt.
// Proxy and credentials are explicit parameters here, never ambient
// process state.
type Options struct {
	Profile    ClientProfile
	ProxyURL   string
	CookieFile string
}

// ProbeResult is what an upstream probe reports about a media object.
type ProbeResult struct {
	Title      string
	Uploader   string
	Duration   float64
	Renditions []domain.Rendition
}

// Extractor resolves a URL into renditions and fetches one of them.
type Extractor interface {
	// Probe inspects the URL without downloading content.
	Probe(ctx context.Context, url string, opts Options) (*ProbeResult, error)

	// Fetch downloads the rendition identified by formatID to destPath.
	Fetch(ctx context.Context, url, formatID, destPath string, opts Options) error
}

// Multi dispatches to the binding that can handle a given URL: plain
// progressive file URLs go to the direct fetcher, everything else to the
// yt-dlp binding.
type Multi struct {
	YtDlp  Extractor
	Direct Extractor
}

// Probe implements Extractor.
func (m *Multi) Probe(ctx context.Context, url string, opts Options) (*ProbeResult, error) {
	return m.pick(url).Probe(ctx, url, opts)
}

// Fetch implements Extractor.
func (m *Multi) Fetch(ctx context.Context, url, formatID, destPath string, opts Options) error {
	return m.pick(url).Fetch(ctx, url, formatID, destPath, opts)
}

func (m *Multi) pick(url string) Extractor {
	if isProgressiveFileURL(url) {
		return m.Direct
	}
	return m.YtDlp
}

// isProgressiveFileURL recognizes URLs that point straight at a media file
// (pin-style CDN links) rather than a watch page.
func isProgressiveFileURL(url string) bool {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	for _, ext := range []string{".mp4", ".m4v", ".webm", ".mp3", ".m4a"} {
		if strings.HasSuffix(trimmed, ext) {
			return true
		}
	}
	return false
}
