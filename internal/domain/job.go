package domain

import (
	"time"
)

// JobID is a unique identifier for a job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents one acquisition request in the queue together with
// its delivery destination and retry bookkeeping.
type Job struct {
	ID         JobID
	Request    AcquisitionRequest
	ChatID     string
	Caption    string
	Status     JobStatus
	Attempts   int
	MaxRetries int
	LastError  string
	Result     *DeliveryResult
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewJob creates a new job for an acquisition request.
func NewJob(id JobID, req AcquisitionRequest, chatID string, maxRetries int) *Job {
	now := time.Now()
	return &Job{
		ID:         id,
		Request:    req,
		ChatID:     chatID,
		Status:     JobStatusQueued,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanRetry returns true if the job can be retried. MaxRetries counts
// retries after the first failed run, so MaxRetries=1 means two runs total.
func (j *Job) CanRetry() bool {
	return j.Attempts <= j.MaxRetries
}

// MarkProcessing updates the job status to processing.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted records a successful delivery.
func (j *Job) MarkCompleted(result *DeliveryResult) {
	j.Status = JobStatusCompleted
	j.Result = result
	j.UpdatedAt = time.Now()
}

// MarkFailed records a failed delivery. The job moves to retrying while
// attempts remain, failed otherwise.
func (j *Job) MarkFailed(result *DeliveryResult) {
	j.Attempts++
	j.Result = result
	if result != nil {
		j.LastError = result.Reason
	}
	j.UpdatedAt = time.Now()

	if j.CanRetry() {
		j.Status = JobStatusRetrying
	} else {
		j.Status = JobStatusFailed
	}
}
