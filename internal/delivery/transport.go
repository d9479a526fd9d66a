// Package delivery moves finished artifacts to their destination chat,
// routing each upload over the standard hosted endpoint or the local
// large-file endpoint by size.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/pkg/botapi"
)

// Destination identifies where an artifact is delivered.
type Destination struct {
	ChatID  int64
	Caption string
}

// Transport sends one artifact to a destination.
type Transport interface {
	Name() string
	Send(ctx context.Context, dest Destination, artifact *domain.MediaArtifact) error
}

// ProbedTransport is a transport whose availability can be checked before
// committing an upload to it.
type ProbedTransport interface {
	Transport
	Alive(ctx context.Context) error
}

var audioExts = map[string]bool{
	"mp3": true, "m4a": true, "aac": true, "flac": true,
	"ogg": true, "opus": true, "wav": true,
}

var videoExts = map[string]bool{
	"mp4": true, "m4v": true, "webm": true, "mov": true,
}

// StandardTransport uploads through the hosted Bot API endpoint.
type StandardTransport struct {
	client botapi.Client
	logger *slog.Logger
}

// NewStandardTransport creates the hosted-endpoint transport.
func NewStandardTransport(client botapi.Client, logger *slog.Logger) *StandardTransport {
	return &StandardTransport{client: client, logger: logger}
}

func (t *StandardTransport) Name() string { return "standard" }

func (t *StandardTransport) Send(ctx context.Context, dest Destination, artifact *domain.MediaArtifact) error {
	if err := send(ctx, t.client, dest, artifact); err != nil {
		if errors.Is(err, botapi.ErrTooLarge) {
			return fmt.Errorf("%w: %w", domain.ErrTooLarge, err)
		}
		return err
	}
	return nil
}

// AlternateTransport uploads through a locally hosted Bot API server, which
// accepts files far beyond the hosted endpoint's ceiling. The server is an
// optional sidecar, so availability is probed before use.
type AlternateTransport struct {
	client botapi.Client
	logger *slog.Logger
}

// NewAlternateTransport creates the local-server transport.
func NewAlternateTransport(client botapi.Client, logger *slog.Logger) *AlternateTransport {
	return &AlternateTransport{client: client, logger: logger}
}

func (t *AlternateTransport) Name() string { return "alternate" }

// Alive reports whether the local server answers a getMe call.
func (t *AlternateTransport) Alive(ctx context.Context) error {
	if _, err := t.client.GetMe(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAlternateUnavailable, err)
	}
	return nil
}

func (t *AlternateTransport) Send(ctx context.Context, dest Destination, artifact *domain.MediaArtifact) error {
	return send(ctx, t.client, dest, artifact)
}

// send picks the upload call matching the artifact's container.
func send(ctx context.Context, client botapi.Client, dest Destination, artifact *domain.MediaArtifact) error {
	upload := botapi.Upload{
		ChatID:   dest.ChatID,
		FilePath: artifact.Path,
		Caption:  dest.Caption,
	}

	var err error
	switch {
	case videoExts[artifact.Ext]:
		_, err = client.SendVideo(ctx, upload)
	case audioExts[artifact.Ext]:
		_, err = client.SendAudio(ctx, upload)
	default:
		_, err = client.SendDocument(ctx, upload)
	}
	if err != nil {
		return fmt.Errorf("upload %s: %w", artifact.Ext, err)
	}
	return nil
}
