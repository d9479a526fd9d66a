package domain

// Rendition is one encoding/quality variant of a media object as reported
// by an upstream probe. Ephemeral, produced per request.
type Rendition struct {
	ID       string
	Height   int
	Ext      string
	HasVideo bool
	HasAudio bool
	Bitrate  float64 // kbit/s as reported upstream, 0 if unknown
	Filesize int64   // bytes, 0 if unknown
	Protocol string  // "https", "m3u8_native", "http_dash_segments", ...
}

// Progressive reports whether the rendition is a single-file download
// rather than a segmented (HLS/DASH) stream.
func (r Rendition) Progressive() bool {
	switch r.Protocol {
	case "m3u8", "m3u8_native", "http_dash_segments", "dash":
		return false
	}
	return true
}

// Playable reports whether the rendition carries both audio and video.
func (r Rendition) Playable() bool {
	return r.HasVideo && r.HasAudio
}
