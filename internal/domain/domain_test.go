package domain

import (
	"testing"
)

func TestAcquisitionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AcquisitionRequest
		wantErr bool
	}{
		{
			name: "valid video request",
			req:  AcquisitionRequest{URL: "https://example.com/watch?v=abc", Kind: KindVideo},
		},
		{
			name: "valid audio request",
			req:  AcquisitionRequest{URL: "http://example.com/clip/1", Kind: KindAudio},
		},
		{
			name:    "missing host",
			req:     AcquisitionRequest{URL: "https://", Kind: KindVideo},
			wantErr: true,
		},
		{
			name:    "not a URL",
			req:     AcquisitionRequest{URL: "watch this", Kind: KindVideo},
			wantErr: true,
		},
		{
			name:    "bad scheme",
			req:     AcquisitionRequest{URL: "ftp://example.com/file", Kind: KindVideo},
			wantErr: true,
		},
		{
			name:    "bad kind",
			req:     AcquisitionRequest{URL: "https://example.com/watch?v=abc", Kind: "image"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRendition_Progressive(t *testing.T) {
	tests := []struct {
		protocol string
		want     bool
	}{
		{"https", true},
		{"http", true},
		{"", true},
		{"m3u8", false},
		{"m3u8_native", false},
		{"http_dash_segments", false},
		{"dash", false},
	}

	for _, tt := range tests {
		r := Rendition{Protocol: tt.protocol}
		if got := r.Progressive(); got != tt.want {
			t.Errorf("Progressive() with protocol %q = %v, want %v", tt.protocol, got, tt.want)
		}
	}
}

func TestJob_RetryFlow(t *testing.T) {
	req := AcquisitionRequest{ID: "req_1", URL: "https://example.com/v", Kind: KindVideo}
	// MaxRetries=1 permits one retry after the first failure.
	job := NewJob("job_1", req, "chat_1", 1)

	if job.Status != JobStatusQueued {
		t.Fatalf("new job status = %s, want queued", job.Status)
	}

	job.MarkProcessing()
	if job.Status != JobStatusProcessing {
		t.Errorf("status = %s, want processing", job.Status)
	}

	failed := &DeliveryResult{OK: false, Reason: "temporarily unavailable"}
	job.MarkFailed(failed)
	if job.Status != JobStatusRetrying {
		t.Errorf("after first failure status = %s, want retrying", job.Status)
	}
	if job.LastError != "temporarily unavailable" {
		t.Errorf("LastError = %q", job.LastError)
	}

	job.MarkFailed(failed)
	if job.Status != JobStatusFailed {
		t.Errorf("after exhausting retries status = %s, want failed", job.Status)
	}

	done := &DeliveryResult{OK: true}
	job.MarkCompleted(done)
	if job.Status != JobStatusCompleted || job.Result != done {
		t.Errorf("MarkCompleted did not record result")
	}
}

func TestAcquireError_Unwrap(t *testing.T) {
	wrapped := NewAcquireError("req_9", "probe", ErrRateLimited)

	if wrapped.Unwrap() != ErrRateLimited {
		t.Error("Unwrap should return the inner error")
	}
	want := "probe [req_9]: rate limited by upstream service"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}
