package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/repository"
)

// TrackService manages the delivered-track catalog and playlists.
type TrackService struct {
	repo   repository.TrackRepository
	logger *slog.Logger
}

// NewTrackService creates a new track service.
func NewTrackService(repo repository.TrackRepository, logger *slog.Logger) *TrackService {
	return &TrackService{repo: repo, logger: logger}
}

// ListTracks returns delivered tracks, newest first.
func (s *TrackService) ListTracks(ctx context.Context, favoritesOnly bool, limit, offset int) ([]*domain.Track, error) {
	return s.repo.ListTracks(ctx, favoritesOnly, limit, offset)
}

// GetTrack retrieves one track.
func (s *TrackService) GetTrack(ctx context.Context, id domain.TrackID) (*domain.Track, error) {
	return s.repo.GetTrack(ctx, id)
}

// SetFavorite flags or unflags a track.
func (s *TrackService) SetFavorite(ctx context.Context, id domain.TrackID, favorite bool) error {
	return s.repo.SetFavorite(ctx, id, favorite)
}

// DeleteTrack removes a track record.
func (s *TrackService) DeleteTrack(ctx context.Context, id domain.TrackID) error {
	if err := s.repo.DeleteTrack(ctx, id); err != nil {
		return err
	}
	s.logger.Info("track deleted", "track_id", id)
	return nil
}

// CreatePlaylist creates a named playlist with an optional initial item list.
func (s *TrackService) CreatePlaylist(ctx context.Context, name string, items []domain.TrackID) (*domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyPlaylistName
	}

	now := time.Now().UTC()
	playlist := &domain.Playlist{
		ID:        domain.PlaylistID("pl_" + uuid.New().String()[:8]),
		Name:      name,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreatePlaylist(ctx, playlist); err != nil {
		return nil, err
	}

	s.logger.Info("playlist created", "playlist_id", playlist.ID, "name", name)
	return playlist, nil
}

// GetPlaylist retrieves a playlist with its ordered items.
func (s *TrackService) GetPlaylist(ctx context.Context, id domain.PlaylistID) (*domain.Playlist, error) {
	return s.repo.GetPlaylist(ctx, id)
}

// ListPlaylists returns all playlists sorted by name.
func (s *TrackService) ListPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	return s.repo.ListPlaylists(ctx)
}

// UpdatePlaylist replaces a playlist's name and item order.
func (s *TrackService) UpdatePlaylist(ctx context.Context, id domain.PlaylistID, name string, items []domain.TrackID) (*domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyPlaylistName
	}

	existing, err := s.repo.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = name
	existing.Items = items
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdatePlaylist(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeletePlaylist removes a playlist, leaving its tracks in place.
func (s *TrackService) DeletePlaylist(ctx context.Context, id domain.PlaylistID) error {
	if err := s.repo.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	s.logger.Info("playlist deleted", "playlist_id", id)
	return nil
}

// ListDeliveries returns the delivery audit log, newest first.
func (s *TrackService) ListDeliveries(ctx context.Context, limit, offset int) ([]*domain.Delivery, error) {
	return s.repo.ListDeliveries(ctx, limit, offset)
}
