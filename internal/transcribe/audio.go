package transcribe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cliplab/backend/internal/media"
)

// Audio wraps the ffmpeg/ffprobe CLI tools for duration probing and chunking.
type Audio struct {
	FFmpeg  string
	FFprobe string
	Run     media.CommandRunner
}

// NewAudio constructs the audio toolbox around the given binaries.
func NewAudio(ffmpeg, ffprobe string, run media.CommandRunner) *Audio {
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	if strings.TrimSpace(ffprobe) == "" {
		ffprobe = "ffprobe"
	}
	if run == nil {
		run = media.DefaultRunner
	}
	return &Audio{FFmpeg: ffmpeg, FFprobe: ffprobe, Run: run}
}

// Duration returns the audio file duration in seconds.
func (a *Audio) Duration(ctx context.Context, audioFile string) (float64, error) {
	out, err := a.Run(ctx, a.FFprobe,
		"-i", audioFile,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// Chunk extracts a segment of the source file into dest via stream copy.
func (a *Audio) Chunk(ctx context.Context, audioFile string, start, duration int, dest string) error {
	out, err := a.Run(ctx, a.FFmpeg,
		"-v", "quiet",
		"-i", audioFile,
		"-ss", strconv.Itoa(start),
		"-t", strconv.Itoa(duration),
		"-c:a", "copy",
		"-y", dest)
	if err != nil {
		return fmt.Errorf("ffmpeg chunk: %w\noutput: %s", err, string(out))
	}
	return nil
}
