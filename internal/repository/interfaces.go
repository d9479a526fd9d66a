package repository

import (
	"context"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// JobRepository manages the acquisition job queue.
type JobRepository interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue retrieves the next pending job (FIFO).
	Dequeue(ctx context.Context) (*domain.Job, error)

	// Update modifies job state.
	Update(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.Job, error)

	// ListPending returns all queued/retrying jobs.
	ListPending(ctx context.Context) ([]*domain.Job, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats contains job queue statistics.
type QueueStats struct {
	Queued     int
	Processing int
	Completed  int
	Failed     int
	Retrying   int
}

// TrackRepository persists delivered-track metadata, playlists, and the
// delivery audit log.
type TrackRepository interface {
	// SaveTrack records a delivered track.
	SaveTrack(ctx context.Context, track *domain.Track) error

	// GetTrack retrieves a track by ID.
	GetTrack(ctx context.Context, id domain.TrackID) (*domain.Track, error)

	// ListTracks returns tracks in reverse delivery order. When favoritesOnly
	// is set, only favorites are returned.
	ListTracks(ctx context.Context, favoritesOnly bool, limit, offset int) ([]*domain.Track, error)

	// SetFavorite flags or unflags a track.
	SetFavorite(ctx context.Context, id domain.TrackID, favorite bool) error

	// DeleteTrack removes a track and its playlist memberships.
	DeleteTrack(ctx context.Context, id domain.TrackID) error

	// CreatePlaylist adds a new playlist. Names are unique.
	CreatePlaylist(ctx context.Context, playlist *domain.Playlist) error

	// GetPlaylist retrieves a playlist with its ordered items.
	GetPlaylist(ctx context.Context, id domain.PlaylistID) (*domain.Playlist, error)

	// ListPlaylists returns all playlists sorted by name.
	ListPlaylists(ctx context.Context) ([]*domain.Playlist, error)

	// UpdatePlaylist replaces a playlist's name and item order.
	UpdatePlaylist(ctx context.Context, playlist *domain.Playlist) error

	// DeletePlaylist removes a playlist, leaving its tracks in place.
	DeletePlaylist(ctx context.Context, id domain.PlaylistID) error

	// RecordDelivery appends one row to the delivery audit log.
	RecordDelivery(ctx context.Context, d *domain.Delivery) error

	// ListDeliveries returns audit rows, newest first.
	ListDeliveries(ctx context.Context, limit, offset int) ([]*domain.Delivery, error)

	// Close releases the underlying store.
	Close() error
}
