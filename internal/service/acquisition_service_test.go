package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/delivery"
	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/engine"
	"github.com/iconidentify/mediagrab/internal/repository"
	"github.com/iconidentify/mediagrab/pkg/ffmpeg"
)

type fakeOrchestrator struct {
	err   error
	title string
}

func (f *fakeOrchestrator) Run(ctx context.Context, req *domain.AcquisitionRequest, scope *engine.Scope) (*domain.MediaArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(req.DestDir, f.title+".mp4")
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		return nil, err
	}
	scope.Track(path)
	return &domain.MediaArtifact{Path: path, Size: 5, Title: f.title, Ext: "mp4"}, nil
}

type fakeDeliverer struct {
	err       error
	transport string
	delivered []*domain.MediaArtifact
}

func (f *fakeDeliverer) Deliver(ctx context.Context, dest delivery.Destination, artifact *domain.MediaArtifact, scope *engine.Scope) (string, error) {
	if f.err != nil {
		return f.transport, f.err
	}
	f.delivered = append(f.delivered, artifact)
	scope.Release(artifact.Path)
	return f.transport, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, orch *fakeOrchestrator, del *fakeDeliverer) (*AcquisitionService, *repository.SQLiteTrackRepository, string) {
	t.Helper()

	dir := t.TempDir()
	trackRepo, err := repository.NewSQLiteTrackRepository(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { trackRepo.Close() })

	cfg := config.StorageConfig{VideoPath: dir, AudioPath: dir, TempPath: dir}
	svc := NewAcquisitionService(orch, del, nil, repository.NewInMemoryJobRepository(), trackRepo, cfg, config.WorkerConfig{MaxRetries: 1}, testLogger())
	return svc, trackRepo, dir
}

func testJob(dir string) *domain.Job {
	return domain.NewJob("job_1", domain.AcquisitionRequest{
		ID:      "req_1",
		URL:     "https://example.com/watch?v=1",
		Kind:    domain.KindVideo,
		DestDir: dir,
	}, "777", 1)
}

func TestSubmit_EnqueuesJob(t *testing.T) {
	svc, _, _ := newService(t, &fakeOrchestrator{title: "x"}, &fakeDeliverer{transport: "standard"})

	resp, err := svc.Submit(context.Background(), SubmitRequest{
		URL:    "https://example.com/watch?v=1",
		Kind:   domain.KindVideo,
		ChatID: "777",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.JobStatusQueued {
		t.Errorf("status = %s, want queued", resp.Status)
	}

	status, err := svc.GetStatus(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != domain.JobStatusQueued {
		t.Errorf("status = %s", status.Status)
	}
}

func TestSubmit_RejectsInvalidURL(t *testing.T) {
	svc, _, _ := newService(t, &fakeOrchestrator{}, &fakeDeliverer{})

	if _, err := svc.Submit(context.Background(), SubmitRequest{URL: "not a url", ChatID: "1"}); !errors.Is(err, domain.ErrInvalidURL) {
		t.Errorf("err = %v, want ErrInvalidURL", err)
	}
}

func TestAcquireAndDeliver_Success(t *testing.T) {
	orch := &fakeOrchestrator{title: "Nice Clip"}
	del := &fakeDeliverer{transport: "standard"}
	svc, trackRepo, dir := newService(t, orch, del)

	result := svc.AcquireAndDeliver(context.Background(), testJob(dir))
	if !result.OK {
		t.Fatalf("result = %+v", result)
	}
	if result.Title != "Nice Clip" || result.Size != 5 {
		t.Errorf("result = %+v", result)
	}
	if len(del.delivered) != 1 {
		t.Fatalf("delivered %d artifacts", len(del.delivered))
	}

	// Audit row and track record both written.
	deliveries, err := trackRepo.ListDeliveries(context.Background(), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(deliveries) != 1 || !deliveries[0].OK || deliveries[0].Transport != "standard" {
		t.Errorf("deliveries = %+v", deliveries)
	}
	tracks, err := trackRepo.ListTracks(context.Background(), false, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || tracks[0].Title != "Nice Clip" {
		t.Errorf("tracks = %+v", tracks)
	}

	// The artifact file never survives the workflow.
	if _, err := os.Stat(del.delivered[0].Path); !os.IsNotExist(err) {
		t.Error("artifact file survived delivery")
	}
}

func TestAcquireAndDeliver_FailureMapping(t *testing.T) {
	tests := []struct {
		name        string
		orchErr     error
		delivErr    error
		wantFailure domain.FailureKind
	}{
		{"exhausted", domain.ErrExhausted, nil, domain.FailureExhausted},
		{"unsupported", domain.ErrUnsupportedURL, nil, domain.FailureUnsupported},
		{"canceled", context.Canceled, nil, domain.FailureCanceled},
		{"alternate down", nil, domain.ErrAlternateUnavailable, domain.FailureAlternateDown},
		{"too large", nil, domain.ErrTooLarge, domain.FailureTooLarge},
		{"generic delivery", nil, errors.New("boom"), domain.FailureDelivery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &fakeOrchestrator{title: "x", err: tt.orchErr}
			del := &fakeDeliverer{transport: "standard", err: tt.delivErr}
			svc, trackRepo, dir := newService(t, orch, del)

			result := svc.AcquireAndDeliver(context.Background(), testJob(dir))
			if result.OK {
				t.Fatal("result.OK = true, want failure")
			}
			if result.Failure != tt.wantFailure {
				t.Errorf("failure = %q, want %q", result.Failure, tt.wantFailure)
			}
			if result.Reason == "" {
				t.Error("reason is empty")
			}

			deliveries, err := trackRepo.ListDeliveries(context.Background(), 10, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(deliveries) != 1 || deliveries[0].OK {
				t.Errorf("audit = %+v", deliveries)
			}

			// No files left behind.
			entries, _ := os.ReadDir(dir)
			for _, e := range entries {
				if filepath.Ext(e.Name()) == ".mp4" {
					t.Errorf("leftover file: %s", e.Name())
				}
			}
		})
	}
}

func TestAcquireAndDeliver_BadChatID(t *testing.T) {
	svc, _, dir := newService(t, &fakeOrchestrator{title: "x"}, &fakeDeliverer{transport: "standard"})

	job := testJob(dir)
	job.ChatID = "not-a-number"

	result := svc.AcquireAndDeliver(context.Background(), job)
	if result.OK || result.Failure != domain.FailureInternal {
		t.Errorf("result = %+v", result)
	}
}

// writeFakeTool installs a stub binary that writes a marker byte to its
// last argument, the output path in every ffmpeg invocation used here.
func writeFakeTool(t *testing.T, dir, name string) {
	t.Helper()
	script := "#!/bin/sh\nfor a in \"$@\"; do out=\"$a\"; done\nprintf 'encoded' > \"$out\"\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestReencode_DisambiguatesFinalName(t *testing.T) {
	toolDir := t.TempDir()
	writeFakeTool(t, toolDir, "ffmpeg")
	writeFakeTool(t, toolDir, "ffprobe")
	t.Setenv("PATH", toolDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	proc, err := ffmpeg.NewProcessor()
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	// A previously delivered file already owns the plain name.
	if err := os.WriteFile(filepath.Join(dir, "Clip.mp4"), []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}
	srcPath := filepath.Join(dir, "Clip.webm")
	if err := os.WriteFile(srcPath, []byte("source"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.StorageConfig{VideoPath: dir, AudioPath: dir, TempPath: dir, Reencode: true}
	svc := NewAcquisitionService(nil, nil, proc, repository.NewInMemoryJobRepository(), nil, cfg, config.WorkerConfig{}, testLogger())

	scope := engine.NewScope(testLogger())
	defer scope.Close()
	scope.Track(srcPath)

	artifact := &domain.MediaArtifact{Path: srcPath, Size: 6, Title: "Clip", Ext: "webm"}
	out, err := svc.reencode(context.Background(), artifact, scope)
	if err != nil {
		t.Fatalf("reencode failed: %v", err)
	}

	if got := filepath.Base(out.Path); got != "Clip(1).mp4" {
		t.Errorf("final path = %q, want Clip(1).mp4", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Clip.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "original" {
		t.Errorf("existing delivery was overwritten: %q", data)
	}
}

func TestTrackService_PlaylistNameRequired(t *testing.T) {
	_, trackRepo, _ := newService(t, &fakeOrchestrator{}, &fakeDeliverer{})
	svc := NewTrackService(trackRepo, testLogger())

	if _, err := svc.CreatePlaylist(context.Background(), "   ", nil); !errors.Is(err, domain.ErrEmptyPlaylistName) {
		t.Errorf("err = %v, want ErrEmptyPlaylistName", err)
	}
}
