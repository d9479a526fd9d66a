// Package service glues acquisition, post-processing, delivery, and
// persistence into the workflows the API and worker pool drive.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/delivery"
	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/engine"
	"github.com/iconidentify/mediagrab/internal/naming"
	"github.com/iconidentify/mediagrab/internal/repository"
	"github.com/iconidentify/mediagrab/pkg/ffmpeg"
)

// Orchestrator acquires a media artifact for a request.
type Orchestrator interface {
	Run(ctx context.Context, req *domain.AcquisitionRequest, scope *engine.Scope) (*domain.MediaArtifact, error)
}

// Deliverer routes an artifact to its destination and reports which
// transport carried it.
type Deliverer interface {
	Deliver(ctx context.Context, dest delivery.Destination, artifact *domain.MediaArtifact, scope *engine.Scope) (string, error)
}

// AcquisitionService runs the full acquire-process-deliver workflow.
type AcquisitionService struct {
	orch      Orchestrator
	deliverer Deliverer
	processor *ffmpeg.Processor // nil when ffmpeg is not installed
	jobRepo   repository.JobRepository
	trackRepo repository.TrackRepository
	cfg       config.StorageConfig
	workerCfg config.WorkerConfig
	logger    *slog.Logger
}

// NewAcquisitionService creates a new acquisition service.
func NewAcquisitionService(
	orch Orchestrator,
	deliverer Deliverer,
	processor *ffmpeg.Processor,
	jobRepo repository.JobRepository,
	trackRepo repository.TrackRepository,
	storageCfg config.StorageConfig,
	workerCfg config.WorkerConfig,
	logger *slog.Logger,
) *AcquisitionService {
	return &AcquisitionService{
		orch:      orch,
		deliverer: deliverer,
		processor: processor,
		jobRepo:   jobRepo,
		trackRepo: trackRepo,
		cfg:       storageCfg,
		workerCfg: workerCfg,
		logger:    logger,
	}
}

// SubmitRequest represents an acquisition submission.
type SubmitRequest struct {
	URL           string
	Kind          domain.ContentKind
	ResolutionCap int
	FormatID      string
	ChatID        string
	Caption       string
}

// SubmitResponse is returned after submitting an acquisition.
type SubmitResponse struct {
	JobID     domain.JobID
	RequestID string
	Status    domain.JobStatus
}

// StatusResponse contains the current state of a job.
type StatusResponse struct {
	JobID     domain.JobID
	Status    domain.JobStatus
	Attempts  int
	LastError string
	Result    *domain.DeliveryResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Submit validates and enqueues a new acquisition.
func (s *AcquisitionService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.Kind == "" {
		req.Kind = domain.KindVideo
	}

	acqReq := domain.AcquisitionRequest{
		ID:            "req_" + uuid.New().String()[:8],
		URL:           req.URL,
		Kind:          req.Kind,
		ResolutionCap: req.ResolutionCap,
		FormatID:      req.FormatID,
		DestDir:       s.cfg.DestDir(string(req.Kind)),
	}
	if err := acqReq.Validate(); err != nil {
		return nil, err
	}

	jobID := domain.JobID("job_" + uuid.New().String()[:8])
	job := domain.NewJob(jobID, acqReq, req.ChatID, s.workerCfg.MaxRetries)
	job.Caption = req.Caption

	if err := s.jobRepo.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("acquisition submitted",
		"job_id", jobID,
		"request_id", acqReq.ID,
		"url", req.URL,
		"kind", req.Kind,
	)

	return &SubmitResponse{
		JobID:     jobID,
		RequestID: acqReq.ID,
		Status:    domain.JobStatusQueued,
	}, nil
}

// GetStatus returns the current state of a job.
func (s *AcquisitionService) GetStatus(ctx context.Context, jobID domain.JobID) (*StatusResponse, error) {
	job, err := s.jobRepo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &StatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Attempts:  job.Attempts,
		LastError: job.LastError,
		Result:    job.Result,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}, nil
}

// Stats returns queue statistics.
func (s *AcquisitionService) Stats(ctx context.Context) (*repository.QueueStats, error) {
	return s.jobRepo.Stats(ctx)
}

// AcquireAndDeliver runs the full workflow for one job. The returned result
// always reflects the outcome; intermediate files never survive the call.
func (s *AcquisitionService) AcquireAndDeliver(ctx context.Context, job *domain.Job) *domain.DeliveryResult {
	logger := s.logger.With("job_id", job.ID, "request_id", job.Request.ID)

	chatID, err := strconv.ParseInt(job.ChatID, 10, 64)
	if err != nil {
		return &domain.DeliveryResult{
			OK:      false,
			Failure: domain.FailureInternal,
			Reason:  "invalid destination chat id",
		}
	}

	if free := getFreeDiskSpace(job.Request.DestDir); free > 0 && free < s.cfg.MinFreeBytes {
		logger.Error("refusing acquisition, low disk space", "free_bytes", free)
		return &domain.DeliveryResult{
			OK:      false,
			Failure: domain.FailureInternal,
			Reason:  "server is low on disk space",
		}
	}

	scope := engine.NewScope(logger)
	defer scope.Close()

	artifact, err := s.orch.Run(ctx, &job.Request, scope)
	if err != nil {
		result := acquireFailure(err)
		s.audit(job, "", result)
		return result
	}

	artifact = s.postProcess(ctx, &job.Request, artifact, scope, logger)

	dest := delivery.Destination{ChatID: chatID, Caption: job.Caption}
	transport, err := s.deliverer.Deliver(ctx, dest, artifact, scope)
	if err != nil {
		result := deliveryFailure(err)
		s.audit(job, transport, result)
		return result
	}

	result := &domain.DeliveryResult{
		OK:    true,
		Title: artifact.Title,
		Size:  artifact.Size,
	}
	s.audit(job, transport, result)
	s.saveTrack(job, artifact)

	logger.Info("job delivered", "transport", transport, "title", artifact.Title, "size", artifact.Size)
	return result
}

// postProcess applies audio extraction and optional re-encoding. Failures
// here are logged and the unprocessed artifact is delivered instead.
func (s *AcquisitionService) postProcess(ctx context.Context, req *domain.AcquisitionRequest, artifact *domain.MediaArtifact, scope *engine.Scope, logger *slog.Logger) *domain.MediaArtifact {
	if s.processor == nil {
		return artifact
	}

	if req.Kind == domain.KindAudio && !isAudioExt(artifact.Ext) {
		extracted, err := s.extractAudio(ctx, req, artifact, scope)
		if err != nil {
			logger.Warn("audio extraction failed, delivering source file", "error", err)
			return artifact
		}
		return extracted
	}

	if s.cfg.Reencode && req.Kind == domain.KindVideo {
		reencoded, err := s.reencode(ctx, artifact, scope)
		if err != nil {
			logger.Warn("re-encode failed, delivering original", "error", err)
			return artifact
		}
		return reencoded
	}

	return artifact
}

func (s *AcquisitionService) extractAudio(ctx context.Context, req *domain.AcquisitionRequest, artifact *domain.MediaArtifact, scope *engine.Scope) (*domain.MediaArtifact, error) {
	outPath, err := naming.Resolve(req.DestDir, artifact.Title, "mp3")
	if err != nil {
		return nil, fmt.Errorf("resolve audio name: %w", err)
	}
	scope.Track(outPath)

	if _, err := s.processor.ExtractAudio(ctx, artifact.Path, ffmpeg.ExtractAudioConfig{OutputPath: outPath}); err != nil {
		scope.Release(outPath)
		return nil, err
	}
	scope.Release(artifact.Path)

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("stat extracted audio: %w", err)
	}

	return &domain.MediaArtifact{
		Path:  outPath,
		Size:  info.Size(),
		Title: artifact.Title,
		Ext:   "mp3",
	}, nil
}

func (s *AcquisitionService) reencode(ctx context.Context, artifact *domain.MediaArtifact, scope *engine.Scope) (*domain.MediaArtifact, error) {
	tmpPath := artifact.Path + ".reenc.mp4"
	scope.Track(tmpPath)

	if err := s.processor.Reencode(ctx, artifact.Path, tmpPath); err != nil {
		scope.Release(tmpPath)
		return nil, err
	}
	scope.Release(artifact.Path)

	finalPath, err := naming.Resolve(filepath.Dir(artifact.Path), artifact.Title, "mp4")
	if err != nil {
		scope.Release(tmpPath)
		return nil, fmt.Errorf("resolve re-encode name: %w", err)
	}
	scope.Track(finalPath)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		scope.Release(tmpPath)
		scope.Release(finalPath)
		return nil, fmt.Errorf("finalize re-encode: %w", err)
	}
	scope.Disown(tmpPath)

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat re-encoded file: %w", err)
	}

	return &domain.MediaArtifact{
		Path:  finalPath,
		Size:  info.Size(),
		Title: artifact.Title,
		Ext:   "mp4",
	}, nil
}

// audit writes one delivery log row; failures here never affect the result.
func (s *AcquisitionService) audit(job *domain.Job, transport string, result *domain.DeliveryResult) {
	if s.trackRepo == nil {
		return
	}

	d := &domain.Delivery{
		ID:        "dlv_" + uuid.New().String()[:8],
		RequestID: job.Request.ID,
		URL:       job.Request.URL,
		Kind:      job.Request.Kind,
		ChatID:    job.ChatID,
		Transport: transport,
		OK:        result.OK,
		Reason:    result.Reason,
		Size:      result.Size,
		CreatedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.trackRepo.RecordDelivery(ctx, d); err != nil {
		s.logger.Warn("failed to record delivery", "request_id", job.Request.ID, "error", err)
	}
}

func (s *AcquisitionService) saveTrack(job *domain.Job, artifact *domain.MediaArtifact) {
	if s.trackRepo == nil {
		return
	}

	track := &domain.Track{
		ID:          domain.TrackID("trk_" + uuid.New().String()[:8]),
		Title:       artifact.Title,
		URL:         job.Request.URL,
		Kind:        job.Request.Kind,
		Ext:         artifact.Ext,
		Size:        artifact.Size,
		ChatID:      job.ChatID,
		DeliveredAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.trackRepo.SaveTrack(ctx, track); err != nil {
		s.logger.Warn("failed to save track", "request_id", job.Request.ID, "error", err)
	}
}

// acquireFailure maps an acquisition error to a caller-facing result.
func acquireFailure(err error) *domain.DeliveryResult {
	result := &domain.DeliveryResult{OK: false}

	switch {
	case errors.Is(err, domain.ErrUnsupportedURL), errors.Is(err, domain.ErrInvalidURL):
		result.Failure = domain.FailureUnsupported
		result.Reason = "the link is not supported"
	case errors.Is(err, context.Canceled):
		result.Failure = domain.FailureCanceled
		result.Reason = "request canceled"
	case errors.Is(err, domain.ErrExhausted):
		result.Failure = domain.FailureExhausted
		result.Reason = "download failed after trying every strategy"
	default:
		result.Failure = domain.FailureInternal
		result.Reason = "download failed"
	}

	return result
}

// deliveryFailure maps a delivery error to a caller-facing result.
func deliveryFailure(err error) *domain.DeliveryResult {
	result := &domain.DeliveryResult{OK: false}

	switch {
	case errors.Is(err, domain.ErrAlternateUnavailable):
		result.Failure = domain.FailureAlternateDown
		result.Reason = "large-file delivery is temporarily unavailable"
	case errors.Is(err, domain.ErrTooLarge):
		result.Failure = domain.FailureTooLarge
		result.Reason = "the file is too large to deliver"
	case errors.Is(err, context.Canceled):
		result.Failure = domain.FailureCanceled
		result.Reason = "request canceled"
	default:
		result.Failure = domain.FailureDelivery
		result.Reason = "delivery failed"
	}

	return result
}

func isAudioExt(ext string) bool {
	switch ext {
	case "mp3", "m4a", "aac", "flac", "ogg", "opus", "wav":
		return true
	}
	return false
}
