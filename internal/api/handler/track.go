package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/service"
)

// TrackHandler handles the track catalog and playlist HTTP requests.
type TrackHandler struct {
	svc    *service.TrackService
	logger *slog.Logger
}

// NewTrackHandler creates a new track handler.
func NewTrackHandler(svc *service.TrackService, logger *slog.Logger) *TrackHandler {
	return &TrackHandler{svc: svc, logger: logger}
}

// TrackResponse represents a track in list/get responses.
type TrackResponse struct {
	TrackID     string    `json:"track_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Kind        string    `json:"kind"`
	Ext         string    `json:"ext"`
	Size        int64     `json:"size"`
	Favorite    bool      `json:"favorite"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// PlaylistResponse represents a playlist.
type PlaylistResponse struct {
	PlaylistID string    `json:"playlist_id"`
	Name       string    `json:"name"`
	Items      []string  `json:"items,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PlaylistRequest is the JSON body for playlist create/update.
type PlaylistRequest struct {
	Name  string   `json:"name"`
	Items []string `json:"items,omitempty"`
}

// FavoriteRequest is the JSON body for flagging a track.
type FavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// DeliveryResponse represents one audit log row.
type DeliveryResponse struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	Transport string    `json:"transport"`
	OK        bool      `json:"ok"`
	Reason    string    `json:"reason,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ListTracks handles GET /api/v1/tracks
func (h *TrackHandler) ListTracks(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	favoritesOnly := r.URL.Query().Get("favorites") == "true"

	tracks, err := h.svc.ListTracks(r.Context(), favoritesOnly, limit, offset)
	if err != nil {
		h.logger.Error("list tracks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tracks")
		return
	}

	out := make([]TrackResponse, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, trackResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": out, "limit": limit, "offset": offset})
}

// GetTrack handles GET /api/v1/tracks/{trackID}
func (h *TrackHandler) GetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := h.svc.GetTrack(r.Context(), domain.TrackID(chi.URLParam(r, "trackID")))
	if err != nil {
		if errors.Is(err, domain.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, "track not found")
			return
		}
		h.logger.Error("get track failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get track")
		return
	}
	writeJSON(w, http.StatusOK, trackResponse(track))
}

// SetFavorite handles PUT /api/v1/tracks/{trackID}/favorite
func (h *TrackHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.SetFavorite(r.Context(), domain.TrackID(chi.URLParam(r, "trackID")), req.Favorite)
	if err != nil {
		if errors.Is(err, domain.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, "track not found")
			return
		}
		h.logger.Error("set favorite failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update track")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": req.Favorite})
}

// DeleteTrack handles DELETE /api/v1/tracks/{trackID}
func (h *TrackHandler) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteTrack(r.Context(), domain.TrackID(chi.URLParam(r, "trackID")))
	if err != nil {
		if errors.Is(err, domain.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, "track not found")
			return
		}
		h.logger.Error("delete track failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete track")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreatePlaylist handles POST /api/v1/playlists
func (h *TrackHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	playlist, err := h.svc.CreatePlaylist(r.Context(), req.Name, trackIDs(req.Items))
	if err != nil {
		h.playlistError(w, err, "create playlist")
		return
	}
	writeJSON(w, http.StatusCreated, playlistResponse(playlist))
}

// ListPlaylists handles GET /api/v1/playlists
func (h *TrackHandler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.svc.ListPlaylists(r.Context())
	if err != nil {
		h.logger.Error("list playlists failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list playlists")
		return
	}

	out := make([]PlaylistResponse, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, playlistResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": out})
}

// GetPlaylist handles GET /api/v1/playlists/{playlistID}
func (h *TrackHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.svc.GetPlaylist(r.Context(), domain.PlaylistID(chi.URLParam(r, "playlistID")))
	if err != nil {
		h.playlistError(w, err, "get playlist")
		return
	}
	writeJSON(w, http.StatusOK, playlistResponse(playlist))
}

// UpdatePlaylist handles PUT /api/v1/playlists/{playlistID}
func (h *TrackHandler) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	playlist, err := h.svc.UpdatePlaylist(r.Context(), domain.PlaylistID(chi.URLParam(r, "playlistID")), req.Name, trackIDs(req.Items))
	if err != nil {
		h.playlistError(w, err, "update playlist")
		return
	}
	writeJSON(w, http.StatusOK, playlistResponse(playlist))
}

// DeletePlaylist handles DELETE /api/v1/playlists/{playlistID}
func (h *TrackHandler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeletePlaylist(r.Context(), domain.PlaylistID(chi.URLParam(r, "playlistID")))
	if err != nil {
		h.playlistError(w, err, "delete playlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDeliveries handles GET /api/v1/deliveries
func (h *TrackHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	deliveries, err := h.svc.ListDeliveries(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list deliveries failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}

	out := make([]DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, DeliveryResponse{
			ID:        d.ID,
			RequestID: d.RequestID,
			URL:       d.URL,
			Kind:      string(d.Kind),
			Transport: d.Transport,
			OK:        d.OK,
			Reason:    d.Reason,
			Size:      d.Size,
			CreatedAt: d.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": out, "limit": limit, "offset": offset})
}

func (h *TrackHandler) playlistError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrPlaylistNotFound):
		writeError(w, http.StatusNotFound, "playlist not found")
	case errors.Is(err, domain.ErrDuplicatePlaylist):
		writeError(w, http.StatusConflict, "playlist with this name already exists")
	case errors.Is(err, domain.ErrEmptyPlaylistName):
		writeError(w, http.StatusBadRequest, "playlist name cannot be empty")
	default:
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func trackResponse(t *domain.Track) TrackResponse {
	return TrackResponse{
		TrackID:     string(t.ID),
		Title:       t.Title,
		URL:         t.URL,
		Kind:        string(t.Kind),
		Ext:         t.Ext,
		Size:        t.Size,
		Favorite:    t.Favorite,
		DeliveredAt: t.DeliveredAt,
	}
}

func playlistResponse(p *domain.Playlist) PlaylistResponse {
	items := make([]string, 0, len(p.Items))
	for _, id := range p.Items {
		items = append(items, string(id))
	}
	return PlaylistResponse{
		PlaylistID: string(p.ID),
		Name:       p.Name,
		Items:      items,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func trackIDs(items []string) []domain.TrackID {
	out := make([]domain.TrackID, 0, len(items))
	for _, s := range items {
		out = append(out, domain.TrackID(s))
	}
	return out
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
