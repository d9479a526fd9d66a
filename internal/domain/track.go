package domain

import "time"

// TrackID is a unique identifier for a saved track.
type TrackID string

// String returns the string representation of the TrackID.
func (id TrackID) String() string {
	return string(id)
}

// Track is the durable record of a delivered media object. The artifact file
// itself is deleted after delivery; only metadata survives.
type Track struct {
	ID          TrackID
	Title       string
	URL         string
	Kind        ContentKind
	Ext         string
	Size        int64
	ChatID      string
	Favorite    bool
	DeliveredAt time.Time
}

// PlaylistID is a unique identifier for a playlist.
type PlaylistID string

// String returns the string representation of the PlaylistID.
func (id PlaylistID) String() string {
	return string(id)
}

// Playlist is an ordered collection of saved tracks.
type Playlist struct {
	ID        PlaylistID
	Name      string
	Items     []TrackID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Delivery is one row of the delivery audit log.
type Delivery struct {
	ID        string
	RequestID string
	URL       string
	Kind      ContentKind
	ChatID    string
	Transport string
	OK        bool
	Reason    string
	Size      int64
	CreatedAt time.Time
}
