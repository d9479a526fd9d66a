package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/engine"
)

// Router decides which transport carries an artifact. Files at or under
// the threshold go over the standard endpoint; larger ones require the
// alternate endpoint, which is probed for liveness first.
type Router struct {
	standard     Transport
	alternate    ProbedTransport
	threshold    int64
	probeTimeout time.Duration
	logger       *slog.Logger
}

// NewRouter creates a delivery router. The alternate transport may be nil
// when no local server is configured; oversized artifacts then fail with
// ErrAlternateUnavailable.
func NewRouter(standard Transport, alternate ProbedTransport, threshold int64, probeTimeout time.Duration, logger *slog.Logger) *Router {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Router{
		standard:     standard,
		alternate:    alternate,
		threshold:    threshold,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Deliver uploads the artifact and returns the name of the transport that
// carried it. The artifact file is released from the scope on every exit
// path; delivered or not, it does not outlive this call.
func (r *Router) Deliver(ctx context.Context, dest Destination, artifact *domain.MediaArtifact, scope *engine.Scope) (string, error) {
	defer scope.Release(artifact.Path)

	if artifact.Size <= r.threshold {
		err := r.standard.Send(ctx, dest, artifact)
		if err == nil {
			r.logger.Info("delivered", "transport", r.standard.Name(), "size", artifact.Size)
			return r.standard.Name(), nil
		}
		// Standard-route errors, size rejections included, are surfaced
		// as-is. The alternate route only ever carries files that measured
		// over the threshold.
		return r.standard.Name(), err
	}

	if r.alternate == nil {
		return "", fmt.Errorf("%w: no alternate endpoint configured", domain.ErrAlternateUnavailable)
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	if err := r.alternate.Alive(probeCtx); err != nil {
		return r.alternate.Name(), err
	}

	if err := r.alternate.Send(ctx, dest, artifact); err != nil {
		return r.alternate.Name(), err
	}
	r.logger.Info("delivered", "transport", r.alternate.Name(), "size", artifact.Size)
	return r.alternate.Name(), nil
}
