package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iconidentify/mediagrab/internal/domain"

	_ "modernc.org/sqlite"
)

const trackSchema = `
CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	kind TEXT NOT NULL,
	ext TEXT NOT NULL,
	size INTEGER NOT NULL,
	chat_id TEXT NOT NULL,
	favorite INTEGER NOT NULL DEFAULT 0,
	delivered_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tracks_delivered_at ON tracks(delivered_at);

CREATE TABLE IF NOT EXISTS playlists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS playlist_items (
	playlist_id TEXT NOT NULL,
	track_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (playlist_id, track_id)
);

CREATE TABLE IF NOT EXISTS deliveries (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	url TEXT NOT NULL,
	kind TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	transport TEXT NOT NULL,
	ok INTEGER NOT NULL,
	reason TEXT,
	size INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_created_at ON deliveries(created_at);
`

// SQLiteTrackRepository implements TrackRepository backed by SQLite.
type SQLiteTrackRepository struct {
	db *sql.DB
}

// NewSQLiteTrackRepository opens (or creates) the database at path.
func NewSQLiteTrackRepository(path string) (*SQLiteTrackRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The driver is not safe under concurrent writers from multiple
	// connections against one file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(trackSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteTrackRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteTrackRepository) Close() error {
	return r.db.Close()
}

// SaveTrack records a delivered track.
func (r *SQLiteTrackRepository) SaveTrack(ctx context.Context, track *domain.Track) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracks (id, title, url, kind, ext, size, chat_id, favorite, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, track.ID, track.Title, track.URL, track.Kind, track.Ext, track.Size, track.ChatID, track.Favorite, track.DeliveredAt)
	if err != nil {
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

// GetTrack retrieves a track by ID.
func (r *SQLiteTrackRepository) GetTrack(ctx context.Context, id domain.TrackID) (*domain.Track, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, url, kind, ext, size, chat_id, favorite, delivered_at
		FROM tracks WHERE id = ?
	`, id)

	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTrackNotFound
	}
	return track, err
}

// ListTracks returns tracks in reverse delivery order.
func (r *SQLiteTrackRepository) ListTracks(ctx context.Context, favoritesOnly bool, limit, offset int) ([]*domain.Track, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, title, url, kind, ext, size, chat_id, favorite, delivered_at
		FROM tracks
	`
	if favoritesOnly {
		query += " WHERE favorite = 1"
	}
	query += " ORDER BY delivered_at DESC LIMIT ? OFFSET ?"

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*domain.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// SetFavorite flags or unflags a track.
func (r *SQLiteTrackRepository) SetFavorite(ctx context.Context, id domain.TrackID, favorite bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE tracks SET favorite = ? WHERE id = ?", favorite, id)
	if err != nil {
		return fmt.Errorf("update favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTrackNotFound
	}
	return nil
}

// DeleteTrack removes a track and its playlist memberships.
func (r *SQLiteTrackRepository) DeleteTrack(ctx context.Context, id domain.TrackID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTrackNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_items WHERE track_id = ?", id); err != nil {
		return fmt.Errorf("delete playlist items: %w", err)
	}

	return tx.Commit()
}

// CreatePlaylist adds a new playlist. Names are unique.
func (r *SQLiteTrackRepository) CreatePlaylist(ctx context.Context, playlist *domain.Playlist) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlists WHERE name = ?", playlist.Name).Scan(&count); err != nil {
		return fmt.Errorf("check name: %w", err)
	}
	if count > 0 {
		return domain.ErrDuplicatePlaylist
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playlists (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, playlist.ID, playlist.Name, playlist.CreatedAt, playlist.UpdatedAt); err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}

	if err := insertItems(ctx, tx, playlist); err != nil {
		return err
	}

	return tx.Commit()
}

// GetPlaylist retrieves a playlist with its ordered items.
func (r *SQLiteTrackRepository) GetPlaylist(ctx context.Context, id domain.PlaylistID) (*domain.Playlist, error) {
	p := &domain.Playlist{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM playlists WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query playlist: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT track_id FROM playlist_items WHERE playlist_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query playlist items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trackID domain.TrackID
		if err := rows.Scan(&trackID); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		p.Items = append(p.Items, trackID)
	}
	return p, rows.Err()
}

// ListPlaylists returns all playlists sorted by name, without items.
func (r *SQLiteTrackRepository) ListPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM playlists ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*domain.Playlist
	for rows.Next() {
		p := &domain.Playlist{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// UpdatePlaylist replaces a playlist's name and item order.
func (r *SQLiteTrackRepository) UpdatePlaylist(ctx context.Context, playlist *domain.Playlist) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlists WHERE name = ? AND id != ?", playlist.Name, playlist.ID).Scan(&count); err != nil {
		return fmt.Errorf("check name: %w", err)
	}
	if count > 0 {
		return domain.ErrDuplicatePlaylist
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?
	`, playlist.Name, playlist.UpdatedAt, playlist.ID)
	if err != nil {
		return fmt.Errorf("update playlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPlaylistNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_items WHERE playlist_id = ?", playlist.ID); err != nil {
		return fmt.Errorf("clear playlist items: %w", err)
	}
	if err := insertItems(ctx, tx, playlist); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePlaylist removes a playlist, leaving its tracks in place.
func (r *SQLiteTrackRepository) DeletePlaylist(ctx context.Context, id domain.PlaylistID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPlaylistNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_items WHERE playlist_id = ?", id); err != nil {
		return fmt.Errorf("delete playlist items: %w", err)
	}

	return tx.Commit()
}

// RecordDelivery appends one row to the delivery audit log.
func (r *SQLiteTrackRepository) RecordDelivery(ctx context.Context, d *domain.Delivery) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, request_id, url, kind, chat_id, transport, ok, reason, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.RequestID, d.URL, d.Kind, d.ChatID, d.Transport, d.OK, d.Reason, d.Size, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// ListDeliveries returns audit rows, newest first.
func (r *SQLiteTrackRepository) ListDeliveries(ctx context.Context, limit, offset int) ([]*domain.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, url, kind, chat_id, transport, ok, reason, size, created_at
		FROM deliveries ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*domain.Delivery
	for rows.Next() {
		d := &domain.Delivery{}
		var reason sql.NullString
		if err := rows.Scan(&d.ID, &d.RequestID, &d.URL, &d.Kind, &d.ChatID, &d.Transport, &d.OK, &reason, &d.Size, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Reason = reason.String
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*domain.Track, error) {
	t := &domain.Track{}
	if err := row.Scan(&t.ID, &t.Title, &t.URL, &t.Kind, &t.Ext, &t.Size, &t.ChatID, &t.Favorite, &t.DeliveredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan track: %w", err)
	}
	return t, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, playlist *domain.Playlist) error {
	for i, trackID := range playlist.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO playlist_items (playlist_id, track_id, position)
			VALUES (?, ?, ?)
		`, playlist.ID, trackID, i); err != nil {
			return fmt.Errorf("insert playlist item: %w", err)
		}
	}
	return nil
}
