package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// Direct fetches progressive file URLs (pin-style CDN links) over plain
// HTTP. Each call builds its own client so the proxy route is a per-call
// parameter, never shared transport state.
type Direct struct {
	headerTimeout time.Duration
	readTimeout   time.Duration
	logger        *slog.Logger
}

// NewDirect creates a progressive-HTTP fetcher.
func NewDirect(logger *slog.Logger) *Direct {
	return &Direct{
		headerTimeout: 30 * time.Second,
		readTimeout:   2 * time.Minute,
		logger:        logger,
	}
}

// Probe implements Extractor. A HEAD request yields a single pseudo
// rendition; there is nothing to negotiate on a direct file link.
func (d *Direct) Probe(ctx context.Context, rawURL string, opts Options) (*ProbeResult, error) {
	client, err := d.client(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	d.setHeaders(req, opts)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	ext := fileExt(rawURL)
	return &ProbeResult{
		Title: fileTitle(rawURL),
		Renditions: []domain.Rendition{{
			ID:       "progressive",
			Ext:      ext,
			HasVideo: ext != "mp3" && ext != "m4a",
			HasAudio: true,
			Filesize: resp.ContentLength,
			Protocol: "https",
		}},
	}, nil
}

// Fetch implements Extractor. The format id is ignored; a direct link has
// exactly one rendition.
func (d *Direct) Fetch(ctx context.Context, rawURL, formatID, destPath string, opts Options) error {
	client, err := d.client(opts)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	d.setHeaders(req, opts)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch request: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	reader := newStallReader(resp.Body, resp.ContentLength, d.readTimeout, d.logger, rawURL)
	_, copyErr := io.Copy(out, reader)
	closeErr := out.Close()
	reader.Close()

	if copyErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("stream to disk: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("finalize destination: %w", closeErr)
	}
	return nil
}

// client builds a per-call HTTP client. Streaming transfers get no overall
// timeout; stalls are detected per read instead.
func (d *Direct) client(opts Options) (*http.Client, error) {
	transport := &http.Transport{
		ResponseHeaderTimeout: d.headerTimeout,
	}
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport}, nil
}

func (d *Direct) setHeaders(req *http.Request, opts Options) {
	if opts.Profile.UserAgent != "" {
		req.Header.Set("User-Agent", opts.Profile.UserAgent)
	}
	if opts.Profile.Referer != "" {
		req.Header.Set("Referer", opts.Profile.Referer)
	}
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.8")
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return domain.ErrAccessDenied
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("status %d: %w", code, domain.ErrUnsupportedURL)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

func fileExt(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		ext = "mp4"
	}
	return ext
}

// fileTitle derives a title from the path component only; a bare host must
// not leak through as "example.com" with its TLD trimmed as an extension.
func fileTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "media"
	}
	base := path.Base(u.Path)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == "/" {
		return "media"
	}
	return base
}

// stallReader wraps a response body to detect stalls (no data for
// readTimeout) and log transfer progress.
type stallReader struct {
	reader      io.ReadCloser
	total       int64
	downloaded  int64
	readTimeout time.Duration
	lastRead    time.Time
	lastLog     time.Time
	logger      *slog.Logger
	url         string
	mu          sync.Mutex
	closed      bool
}

func newStallReader(r io.ReadCloser, total int64, readTimeout time.Duration, logger *slog.Logger, url string) *stallReader {
	now := time.Now()
	return &stallReader{
		reader:      r,
		total:       total,
		readTimeout: readTimeout,
		lastRead:    now,
		lastLog:     now,
		logger:      logger,
		url:         url,
	}
}

func (s *stallReader) Read(buf []byte) (int, error) {
	n, err := s.reader.Read(buf)

	s.mu.Lock()
	defer s.mu.Unlock()

	if n > 0 {
		s.downloaded += int64(n)
		s.lastRead = time.Now()

		if time.Since(s.lastLog) > 30*time.Second {
			s.logProgress()
			s.lastLog = time.Now()
		}
	}

	if err == nil && s.readTimeout > 0 && time.Since(s.lastRead) > s.readTimeout {
		return n, fmt.Errorf("transfer stalled: no data received for %v", s.readTimeout)
	}

	return n, err
}

func (s *stallReader) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.downloaded > 0 {
		s.logProgress()
	}
	s.mu.Unlock()

	return s.reader.Close()
}

func (s *stallReader) logProgress() {
	if s.total > 0 {
		pct := float64(s.downloaded) / float64(s.total) * 100
		s.logger.Info("transfer progress",
			"downloaded_mb", s.downloaded/(1024*1024),
			"total_mb", s.total/(1024*1024),
			"percent", fmt.Sprintf("%.1f%%", pct),
		)
	} else {
		s.logger.Info("transfer progress",
			"downloaded_mb", s.downloaded/(1024*1024),
		)
	}
}
