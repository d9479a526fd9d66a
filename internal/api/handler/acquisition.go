package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/mediagrab/internal/domain"
	"github.com/iconidentify/mediagrab/internal/service"
)

// AcquisitionHandler handles acquisition-related HTTP requests.
type AcquisitionHandler struct {
	svc    *service.AcquisitionService
	logger *slog.Logger
}

// NewAcquisitionHandler creates a new acquisition handler.
func NewAcquisitionHandler(svc *service.AcquisitionService, logger *slog.Logger) *AcquisitionHandler {
	return &AcquisitionHandler{svc: svc, logger: logger}
}

// SubmitRequest is the JSON request body for an acquisition submission.
type SubmitRequest struct {
	URL           string `json:"url"`
	Kind          string `json:"kind,omitempty"` // "video" (default) or "audio"
	ResolutionCap int    `json:"resolution_cap,omitempty"`
	FormatID      string `json:"format_id,omitempty"`
	ChatID        string `json:"chat_id"`
	Caption       string `json:"caption,omitempty"`
}

// SubmitResponse is the JSON response after submission.
type SubmitResponse struct {
	JobID     string `json:"job_id"`
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// StatusResponse is returned for status queries.
type StatusResponse struct {
	JobID     string                 `json:"job_id"`
	Status    string                 `json:"status"`
	Attempts  int                    `json:"attempts"`
	LastError string                 `json:"last_error,omitempty"`
	Result    *domain.DeliveryResult `json:"result,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Submit handles POST /api/v1/acquisitions
func (h *AcquisitionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	result, err := h.svc.Submit(r.Context(), service.SubmitRequest{
		URL:           req.URL,
		Kind:          domain.ContentKind(req.Kind),
		ResolutionCap: req.ResolutionCap,
		FormatID:      req.FormatID,
		ChatID:        req.ChatID,
		Caption:       req.Caption,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, "invalid media URL")
			return
		}
		h.logger.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit acquisition")
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:     string(result.JobID),
		RequestID: result.RequestID,
		Status:    string(result.Status),
	})
}

// Get handles GET /api/v1/acquisitions/{jobID}
func (h *AcquisitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	status, err := h.svc.GetStatus(r.Context(), domain.JobID(jobID))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("get status failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get job status")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		JobID:     string(status.JobID),
		Status:    string(status.Status),
		Attempts:  status.Attempts,
		LastError: status.LastError,
		Result:    status.Result,
		CreatedAt: status.CreatedAt,
		UpdatedAt: status.UpdatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
