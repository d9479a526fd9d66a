// Package ffmpeg wraps the ffmpeg and ffprobe binaries for the media
// post-processing the engine needs: probing, audio track extraction, and
// compatibility re-encoding.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Processor runs ffmpeg operations against local files.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewProcessor creates a processor, locating ffmpeg and ffprobe in PATH.
func NewProcessor() (*Processor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Processor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// MediaInfo contains metadata about a media file.
type MediaInfo struct {
	Duration   float64 // seconds
	Width      int
	Height     int
	HasAudio   bool
	HasVideo   bool
	AudioCodec string
	VideoCodec string
	Bitrate    int64
	FileSize   int64
}

// Probe extracts metadata from a media file.
func (p *Processor) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat media: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	type ffprobeFormat struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	}
	type ffprobeStream struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	}
	type ffprobeOutput struct {
		Format  ffprobeFormat   `json:"format"`
		Streams []ffprobeStream `json:"streams"`
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &MediaInfo{FileSize: stat.Size()}

	if parsed.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			info.Duration = dur
		}
	}
	if parsed.Format.BitRate != "" {
		if br, err := strconv.ParseInt(parsed.Format.BitRate, 10, 64); err == nil {
			info.Bitrate = br
		}
	}

	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		case "video":
			info.HasVideo = true
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
			}
			if info.Width == 0 && s.Width > 0 {
				info.Width = s.Width
			}
			if info.Height == 0 && s.Height > 0 {
				info.Height = s.Height
			}
		}
	}

	return info, nil
}

// ExtractAudioConfig configures audio track extraction.
type ExtractAudioConfig struct {
	OutputPath string
	Format     string // "mp3", "m4a", "wav", "ogg" (default: "mp3")
	Bitrate    string // default "192k", listening quality rather than speech
}

// ExtractAudio pulls the audio track out of a video file.
func (p *Processor) ExtractAudio(ctx context.Context, videoPath string, cfg ExtractAudioConfig) (string, error) {
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if cfg.Bitrate == "" {
		cfg.Bitrate = "192k"
	}

	info, err := p.Probe(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("probe source: %w", err)
	}
	if !info.HasAudio {
		return "", fmt.Errorf("source has no audio track")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", audioCodec(cfg.Format),
		"-b:a", cfg.Bitrate,
		"-y",
		cfg.OutputPath,
	)
	if err := cmd.Run(); err != nil {
		os.Remove(cfg.OutputPath)
		return "", fmt.Errorf("extract audio: %w", err)
	}

	return cfg.OutputPath, nil
}

// Reencode rewrites a video as H.264/AAC with the moov atom up front so
// players can start streaming it before the download completes.
func (p *Processor) Reencode(ctx context.Context, inputPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	)
	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("reencode: %w", err)
	}
	return nil
}

func audioCodec(format string) string {
	switch format {
	case "mp3":
		return "libmp3lame"
	case "wav":
		return "pcm_s16le"
	case "m4a":
		return "aac"
	case "ogg":
		return "libvorbis"
	default:
		return "libmp3lame"
	}
}

// IsAvailable checks if ffmpeg and ffprobe are on the system.
func IsAvailable() bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return false
	}
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// Version returns the ffmpeg version string.
func Version() (string, error) {
	cmd := exec.Command("ffmpeg", "-version")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0]), nil
	}
	return "unknown", nil
}
