package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidURL is returned when the submitted URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid media URL")

	// ErrUnsupportedURL is returned when no extractor can handle the URL.
	ErrUnsupportedURL = errors.New("unsupported media URL")

	// ErrRateLimited is returned when the upstream service throttles us.
	ErrRateLimited = errors.New("rate limited by upstream service")

	// ErrGeoBlocked is returned when the content is unavailable in the server region.
	ErrGeoBlocked = errors.New("content is geo-blocked")

	// ErrAccessDenied is returned when the upstream service refuses the request
	// (login walls, bot checks, expired credentials).
	ErrAccessDenied = errors.New("upstream access denied")

	// ErrNoRenditions is returned when a probe yields no usable renditions.
	ErrNoRenditions = errors.New("no renditions available")

	// ErrExhausted is returned when every strategy in the plan has failed.
	ErrExhausted = errors.New("all acquisition strategies exhausted")

	// ErrTooLarge is returned when the artifact exceeds the transport's payload limit.
	ErrTooLarge = errors.New("artifact too large for transport")

	// ErrAlternateUnavailable is returned when the large-payload transport fails
	// its liveness probe.
	ErrAlternateUnavailable = errors.New("alternate transport unavailable")

	// ErrLowDiskSpace is returned when there is not enough free space to download.
	ErrLowDiskSpace = errors.New("insufficient disk space")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrTrackNotFound is returned when a saved track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrPlaylistNotFound is returned when a playlist cannot be found.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrDuplicatePlaylist is returned when a playlist with the same name already exists.
	ErrDuplicatePlaylist = errors.New("playlist with this name already exists")

	// ErrEmptyPlaylistName is returned when a playlist name is empty.
	ErrEmptyPlaylistName = errors.New("playlist name cannot be empty")
)

// AcquireError wraps an error with acquisition request context.
type AcquireError struct {
	RequestID string
	Op        string
	Err       error
}

func (e *AcquireError) Error() string {
	if e.RequestID != "" {
		return e.Op + " [" + e.RequestID + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// NewAcquireError creates a new AcquireError.
func NewAcquireError(requestID, op string, err error) *AcquireError {
	return &AcquireError{
		RequestID: requestID,
		Op:        op,
		Err:       err,
	}
}
