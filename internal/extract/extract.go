package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cliplab/backend/internal/media"
	"github.com/cliplab/backend/internal/models"
	"github.com/cliplab/backend/internal/transcribe"
)

// VideoSource is the yt-dlp surface the extractor depends on.
type VideoSource interface {
	Probe(ctx context.Context, url string) (media.VideoInfo, error)
	DownloadAudio(ctx context.Context, url, videoID, destDir string) (string, error)
}

// CaptionSource downloads and normalizes a caption track.
type CaptionSource interface {
	Fetch(ctx context.Context, tracks []media.CaptionTrack) (string, error)
}

// SpeechTranscriber converts an audio file into text.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audioFile string) (string, error)
}

// Extractor resolves a video URL into metadata plus a transcript, preferring
// published captions and falling back to speech-to-text.
type Extractor struct {
	Source      VideoSource
	Captions    CaptionSource
	Transcriber SpeechTranscriber
	TempDir     string
}

// NewExtractor wires an extractor from its collaborators.
func NewExtractor(source VideoSource, captions CaptionSource, transcriber SpeechTranscriber, tempDir string) *Extractor {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Extractor{
		Source:      source,
		Captions:    captions,
		Transcriber: transcriber,
		TempDir:     tempDir,
	}
}

// Result is a successful extraction.
type Result struct {
	Metadata   models.VideoMetadata
	Transcript string
	// FromCaptions reports whether the transcript came from a published
	// caption track rather than speech-to-text.
	FromCaptions bool
}

// Extract runs the full pipeline for one video URL. Failures come back as
// *Error with a Kind the caller can map onto user-facing messages. Every
// temp asset created along the way is removed before return on all paths.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Result, error) {
	url, err := media.NormalizeWatchURL(rawURL)
	if err != nil {
		return Result{}, newError(KindSourceUnavailable, "unrecognized video reference", err)
	}

	info, err := e.Source.Probe(ctx, url)
	if err != nil {
		if errors.Is(err, media.ErrSourceUnavailable) {
			return Result{}, newError(KindSourceUnavailable, "video is unavailable or private", err)
		}
		return Result{}, fmt.Errorf("probe video: %w", err)
	}

	// Any caption failure, missing track or network trouble alike, falls
	// through to the transcription path.
	if text, err := e.Captions.Fetch(ctx, info.Captions); err == nil {
		return Result{Metadata: info.Metadata, Transcript: text, FromCaptions: true}, nil
	}

	workDir, err := os.MkdirTemp(e.TempDir, "extract-*")
	if err != nil {
		return Result{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	audioFile, err := e.Source.DownloadAudio(ctx, url, info.Metadata.VideoID, workDir)
	if err != nil {
		if errors.Is(err, media.ErrSourceUnavailable) {
			return Result{}, newError(KindSourceUnavailable, "video is unavailable or private", err)
		}
		return Result{}, newError(KindDownloadFailed, "audio download failed", err)
	}

	text, err := e.Transcriber.Transcribe(ctx, audioFile)
	if err != nil {
		if errors.Is(err, transcribe.ErrModelUnavailable) {
			return Result{}, newError(KindModelUnavailable, "speech model is not configured", err)
		}
		return Result{}, newError(KindTranscriptionFailed, "speech-to-text failed", err)
	}

	if strings.TrimSpace(text) == "" {
		return Result{}, newError(KindTranscriptionFailed, "no speech recognized in audio", nil)
	}

	return Result{Metadata: info.Metadata, Transcript: text}, nil
}
