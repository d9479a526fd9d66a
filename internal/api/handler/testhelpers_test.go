package handler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/repository"
	"github.com/iconidentify/mediagrab/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires real services over an in-memory job queue and a temp-dir
// SQLite catalog, mounted on the same chi routes the server uses.
type testEnv struct {
	router    *chi.Mux
	jobRepo   repository.JobRepository
	trackRepo repository.TrackRepository
	trackSvc  *service.TrackService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	trackRepo, err := repository.NewSQLiteTrackRepository(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { trackRepo.Close() })

	jobRepo := repository.NewInMemoryJobRepository()
	cfg := config.StorageConfig{VideoPath: dir, AudioPath: dir, TempPath: dir}
	acqSvc := service.NewAcquisitionService(nil, nil, nil, jobRepo, trackRepo, cfg, config.WorkerConfig{MaxRetries: 1}, testLogger())
	trackSvc := service.NewTrackService(trackRepo, testLogger())

	acqHandler := NewAcquisitionHandler(acqSvc, testLogger())
	trackHandler := NewTrackHandler(trackSvc, testLogger())

	r := chi.NewRouter()
	r.Post("/acquisitions", acqHandler.Submit)
	r.Get("/acquisitions/{jobID}", acqHandler.Get)
	r.Get("/tracks", trackHandler.ListTracks)
	r.Get("/tracks/{trackID}", trackHandler.GetTrack)
	r.Put("/tracks/{trackID}/favorite", trackHandler.SetFavorite)
	r.Delete("/tracks/{trackID}", trackHandler.DeleteTrack)
	r.Post("/playlists", trackHandler.CreatePlaylist)
	r.Get("/playlists", trackHandler.ListPlaylists)
	r.Get("/playlists/{playlistID}", trackHandler.GetPlaylist)
	r.Put("/playlists/{playlistID}", trackHandler.UpdatePlaylist)
	r.Delete("/playlists/{playlistID}", trackHandler.DeletePlaylist)
	r.Get("/deliveries", trackHandler.ListDeliveries)

	return &testEnv{router: r, jobRepo: jobRepo, trackRepo: trackRepo, trackSvc: trackSvc}
}

func (e *testEnv) seedTrack(t *testing.T, id, title string) {
	t.Helper()
	err := e.trackRepo.SaveTrack(context.Background(), &domain.Track{
		ID:          domain.TrackID(id),
		Title:       title,
		URL:         "https://example.com/watch?v=" + id,
		Kind:        domain.KindVideo,
		Ext:         "mp4",
		Size:        1024,
		ChatID:      "777",
		DeliveredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
}
