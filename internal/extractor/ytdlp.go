package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// YtDlp shells out to the yt-dlp binary for platforms that need full
// extraction (watch pages, short-form clips). Proxy and cookies are passed
// as flags on every invocation; retries belong to the engine, so the tool's
// own retry machinery is disabled.
type YtDlp struct {
	path string
}

// NewYtDlp locates the yt-dlp binary in PATH.
func NewYtDlp() (*YtDlp, error) {
	path, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found in PATH: %w", err)
	}
	return &YtDlp{path: path}, nil
}

// probePayload is the subset of --dump-single-json output we consume.
type probePayload struct {
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
	Formats  []struct {
		FormatID       string  `json:"format_id"`
		Height         int     `json:"height"`
		Ext            string  `json:"ext"`
		VCodec         string  `json:"vcodec"`
		ACodec         string  `json:"acodec"`
		TBR            float64 `json:"tbr"`
		Filesize       int64   `json:"filesize"`
		FilesizeApprox int64   `json:"filesize_approx"`
		Protocol       string  `json:"protocol"`
	} `json:"formats"`
}

// Probe implements Extractor.
func (y *YtDlp) Probe(ctx context.Context, url string, opts Options) (*ProbeResult, error) {
	args := append(y.commonArgs(opts),
		"--dump-single-json",
		"--skip-download",
		url,
	)

	cmd := exec.CommandContext(ctx, y.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classifyOutput(stderr.String(), fmt.Errorf("yt-dlp probe: %w", err))
	}

	var payload probePayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	result := &ProbeResult{
		Title:    payload.Title,
		Uploader: payload.Uploader,
		Duration: payload.Duration,
	}
	for _, f := range payload.Formats {
		size := f.Filesize
		if size == 0 {
			size = f.FilesizeApprox
		}
		result.Renditions = append(result.Renditions, domain.Rendition{
			ID:       f.FormatID,
			Height:   f.Height,
			Ext:      f.Ext,
			HasVideo: f.VCodec != "" && f.VCodec != "none",
			HasAudio: f.ACodec != "" && f.ACodec != "none",
			Bitrate:  f.TBR,
			Filesize: size,
			Protocol: f.Protocol,
		})
	}
	if len(result.Renditions) == 0 {
		return nil, domain.ErrNoRenditions
	}
	return result, nil
}

// Fetch implements Extractor.
func (y *YtDlp) Fetch(ctx context.Context, url, formatID, destPath string, opts Options) error {
	args := append(y.commonArgs(opts),
		"-f", formatID,
		"--no-part",
		"--retries", "0",
		"-o", destPath,
		url,
	)

	cmd := exec.CommandContext(ctx, y.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classifyOutput(stderr.String(), fmt.Errorf("yt-dlp fetch: %w", err))
	}
	return nil
}

func (y *YtDlp) commonArgs(opts Options) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", "30",
	}
	if opts.Profile.PlayerClient != "" {
		args = append(args,
			"--extractor-args", "youtube:player_client="+opts.Profile.PlayerClient,
		)
	}
	if opts.Profile.UserAgent != "" {
		args = append(args, "--user-agent", opts.Profile.UserAgent)
	}
	if opts.Profile.Referer != "" {
		args = append(args, "--referer", opts.Profile.Referer)
	}
	if opts.ProxyURL != "" {
		args = append(args, "--proxy", strings.TrimRight(opts.ProxyURL, "/")+"/")
	}
	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}
	return args
}

// classifyOutput maps yt-dlp stderr onto the domain error taxonomy so the
// engine can tell transient failures from fatal ones.
func classifyOutput(stderr string, fallback error) error {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate-limit"):
		return fmt.Errorf("%s: %w", firstLine(stderr), domain.ErrRateLimited)
	case strings.Contains(lower, "not available in your country") || strings.Contains(lower, "geo restriction") || strings.Contains(lower, "geo-restricted"):
		return fmt.Errorf("%s: %w", firstLine(stderr), domain.ErrGeoBlocked)
	case strings.Contains(lower, "unsupported url") || strings.Contains(lower, "is not a valid url"):
		return fmt.Errorf("%s: %w", firstLine(stderr), domain.ErrUnsupportedURL)
	case strings.Contains(lower, "sign in to confirm") || strings.Contains(lower, "login required") || strings.Contains(lower, "private video"):
		return fmt.Errorf("%s: %w", firstLine(stderr), domain.ErrAccessDenied)
	case strings.Contains(lower, "requested format is not available"):
		return fmt.Errorf("%s: %w", firstLine(stderr), domain.ErrNoRenditions)
	}
	return fallback
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
