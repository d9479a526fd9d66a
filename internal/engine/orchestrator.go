package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/extractor"
	"github.com/iconidentify/mediagrab/internal/format"
	"github.com/iconidentify/mediagrab/internal/identity"
	"github.com/iconidentify/mediagrab/internal/naming"
)

// Orchestrator runs the acquisition state machine: an ordered strategy
// plan executed strictly sequentially, each strategy retried with bounded
// backoff, halting at the first success.
type Orchestrator struct {
	ex       extractor.Extractor
	pool     *identity.Pool
	vault    *identity.Vault
	profiles []extractor.ClientProfile
	cfg      config.EngineConfig
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator. The vault may be nil when no
// identity carries a credential bundle.
func NewOrchestrator(
	ex extractor.Extractor,
	pool *identity.Pool,
	vault *identity.Vault,
	profiles []extractor.ClientProfile,
	cfg config.EngineConfig,
	logger *slog.Logger,
) *Orchestrator {
	if len(profiles) == 0 {
		profiles = extractor.DefaultProfiles()
	}
	return &Orchestrator{
		ex:       ex,
		pool:     pool,
		vault:    vault,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run acquires the requested media object, registering every file it
// creates with the scope. On success exactly one artifact file exists;
// on failure none do.
func (o *Orchestrator) Run(ctx context.Context, req *domain.AcquisitionRequest, scope *Scope) (*domain.MediaArtifact, error) {
	if err := req.Validate(); err != nil {
		return nil, domain.NewAcquireError(req.ID, "validate", err)
	}

	plan := BuildPlan(o.profiles, o.pool, o.cfg.MaxStrategies)
	logger := o.logger.With("request_id", req.ID, "url", req.URL)

	var lastErr error
	for i, st := range plan {
		// Cooperative cancellation: the current attempt finishes its
		// network call, but no new strategy starts afterwards.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Info("trying strategy",
			"strategy", i+1,
			"of", len(plan),
			"profile", st.Profile.Name,
			"identity", st.Identity.Name,
		)

		artifact, err := o.runStrategy(ctx, req, st, scope)
		if err == nil {
			logger.Info("acquisition succeeded",
				"strategy", i+1,
				"path", artifact.Path,
				"size", artifact.Size,
			)
			return artifact, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		lastErr = err
		logger.Warn("strategy failed", "strategy", i+1, "error", err)
	}

	return nil, fmt.Errorf("%w after %d strategies: %w", domain.ErrExhausted, len(plan), lastErr)
}

// runStrategy executes one strategy with bounded retry. Only transient
// failures are retried; fatal ones surface immediately so the plan can
// advance.
func (o *Orchestrator) runStrategy(ctx context.Context, req *domain.AcquisitionRequest, st Strategy, scope *Scope) (*domain.MediaArtifact, error) {
	opts := extractor.Options{
		Profile:  st.Profile,
		ProxyURL: st.Identity.ProxyURL,
	}

	if st.Identity.Bundle != "" && o.vault != nil {
		cookiePath, release, err := o.vault.Checkout(st.Identity.Bundle)
		if err != nil {
			return nil, fmt.Errorf("credential checkout: %w", err)
		}
		defer release()
		opts.CookieFile = cookiePath
	}

	cfg := RetryConfig{
		MaxAttempts:   o.cfg.AttemptsPerStrategy,
		InitialDelay:  o.cfg.RetryDelay,
		MaxDelay:      o.cfg.MaxRetryDelay,
		BackoffFactor: 2.0,
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	return RetryWithCheck(ctx, cfg, func() (*domain.MediaArtifact, error) {
		return o.attempt(ctx, req, opts, scope)
	}, IsTransient)
}

// attempt is one probe-negotiate-fetch cycle under a fixed identity.
func (o *Orchestrator) attempt(ctx context.Context, req *domain.AcquisitionRequest, opts extractor.Options, scope *Scope) (*domain.MediaArtifact, error) {
	// Ambient proxy state must never leak into or out of an attempt.
	identity.ResetProxyEnv()
	defer identity.ResetProxyEnv()

	probeCtx, cancelProbe := context.WithTimeout(ctx, o.cfg.ProbeTimeout)
	defer cancelProbe()

	probe, err := o.ex.Probe(probeCtx, req.URL, opts)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}

	formatID := format.Negotiate(probe.Renditions, req.Kind, req.ResolutionCap, req.FormatID)
	ext := renditionExt(probe.Renditions, formatID, req.Kind)

	tmpPath := filepath.Join(req.DestDir, naming.TempName(req.ID, ext))
	scope.Track(tmpPath)

	fetchCtx, cancelFetch := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancelFetch()

	if err := o.ex.Fetch(fetchCtx, req.URL, formatID, tmpPath, opts); err != nil {
		// Partial files never outlive the attempt.
		os.Remove(tmpPath)
		scope.Disown(tmpPath)
		return nil, fmt.Errorf("fetch: %w", err)
	}

	title := naming.Sanitize(probe.Title)
	finalPath, err := naming.Resolve(req.DestDir, title, ext)
	if err != nil {
		os.Remove(tmpPath)
		scope.Disown(tmpPath)
		return nil, fmt.Errorf("resolve final name: %w", err)
	}
	scope.Track(finalPath)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		scope.Disown(tmpPath)
		scope.Release(finalPath)
		return nil, fmt.Errorf("finalize artifact: %w", err)
	}
	scope.Disown(tmpPath)

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	return &domain.MediaArtifact{
		Path:  finalPath,
		Size:  info.Size(),
		Title: title,
		Ext:   ext,
	}, nil
}

// IsTransient reports whether an attempt failure is worth retrying under
// the same strategy. Fatal classifications and context errors are not;
// everything else (network, TLS, throttling) is.
func IsTransient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrUnsupportedURL),
		errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrGeoBlocked),
		errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrNoRenditions):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// renditionExt finds the container extension for the negotiated format.
func renditionExt(renditions []domain.Rendition, formatID string, kind domain.ContentKind) string {
	for _, r := range renditions {
		if r.ID == formatID && r.Ext != "" {
			return r.Ext
		}
	}
	if kind == domain.KindAudio {
		return "m4a"
	}
	return "mp4"
}
