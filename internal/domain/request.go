package domain

import (
	"net/url"
	"strings"
)

// ContentKind is the kind of media the caller wants delivered.
type ContentKind string

const (
	KindVideo ContentKind = "video"
	KindAudio ContentKind = "audio"
)

// Valid reports whether the kind is one of the supported values.
func (k ContentKind) Valid() bool {
	return k == KindVideo || k == KindAudio
}

// AcquisitionRequest describes one media object to acquire.
// It is immutable after creation and owned by the caller.
type AcquisitionRequest struct {
	ID            string
	URL           string
	Kind          ContentKind
	ResolutionCap int    // max height in pixels; 0 means engine default
	FormatID      string // explicit rendition id requested by the caller, optional
	DestDir       string
}

// Validate checks the request fields that can be checked without network access.
func (r *AcquisitionRequest) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" || !strings.HasPrefix(u.Scheme, "http") {
		return ErrInvalidURL
	}
	if !r.Kind.Valid() {
		return ErrInvalidURL
	}
	return nil
}

// MediaArtifact is the locally stored file produced by a successful acquisition.
// It is owned by the delivery stage and deleted before the request completes.
type MediaArtifact struct {
	Path  string
	Size  int64
	Title string
	Ext   string
}

// FailureKind categorizes an unsuccessful delivery for the caller.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureExhausted     FailureKind = "exhausted"
	FailureUnsupported   FailureKind = "unsupported"
	FailureTooLarge      FailureKind = "too_large"
	FailureAlternateDown FailureKind = "alternate_transport_unavailable"
	FailureDelivery      FailureKind = "delivery_failed"
	FailureCanceled      FailureKind = "canceled"
	FailureInternal      FailureKind = "internal"
)

// DeliveryResult is the only thing a caller sees from an acquisition cycle.
type DeliveryResult struct {
	OK      bool        `json:"ok"`
	Reason  string      `json:"reason,omitempty"`
	Failure FailureKind `json:"failure,omitempty"`
	Title   string      `json:"title,omitempty"`
	Size    int64       `json:"size,omitempty"`
}
