package transcribe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrModelUnavailable wraps speech model construction failures, typically a
// missing API key.
var ErrModelUnavailable = errors.New("transcribe: speech model unavailable")

// Decode acceptance thresholds, matching the usual Whisper fallback rules.
const (
	minAvgLogProb   = -0.8
	maxNoSpeechProb = 0.7
)

// temperatureLadder lists the decode temperatures tried per chunk, in order.
var temperatureLadder = []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0}

// Transcriber turns an audio file into text by cutting it into fixed-length
// chunks and transcribing them in order.
type Transcriber struct {
	Audio  *Audio
	Loader *ModelLoader

	// MaxDuration caps how much audio is transcribed; anything beyond it is
	// silently dropped. ChunkDuration is the per-chunk cut length.
	MaxDuration   time.Duration
	ChunkDuration time.Duration
	Language      string
	TempDir       string
}

// NewTranscriber wires a transcriber with its audio toolbox and model loader.
func NewTranscriber(audio *Audio, loader *ModelLoader, maxDuration, chunkDuration time.Duration, language, tempDir string) *Transcriber {
	if maxDuration <= 0 {
		maxDuration = 900 * time.Second
	}
	if chunkDuration <= 0 {
		chunkDuration = 300 * time.Second
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Transcriber{
		Audio:         audio,
		Loader:        loader,
		MaxDuration:   maxDuration,
		ChunkDuration: chunkDuration,
		Language:      language,
		TempDir:       tempDir,
	}
}

// Transcribe converts the audio file into a single transcript string. Chunk
// files are removed as soon as each one has been processed; the source file
// stays untouched and remains owned by the caller.
func (t *Transcriber) Transcribe(ctx context.Context, audioFile string) (string, error) {
	model, err := t.Loader.Load()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	duration, err := t.Audio.Duration(ctx, audioFile)
	if err != nil {
		return "", fmt.Errorf("probe audio duration: %w", err)
	}
	if duration <= 0 {
		return "", fmt.Errorf("audio reports non-positive duration %.2f", duration)
	}

	effective := math.Min(duration, t.MaxDuration.Seconds())
	chunkSec := int(t.ChunkDuration.Seconds())
	chunkCount := int(math.Ceil(effective / float64(chunkSec)))

	workDir, err := os.MkdirTemp(t.TempDir, "chunks-*")
	if err != nil {
		return "", fmt.Errorf("create chunk dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	var parts []string
	for i := 0; i < chunkCount; i++ {
		start := i * chunkSec
		length := chunkSec
		if remaining := int(effective) - start; remaining < length {
			length = remaining
		}
		if length <= 0 {
			break
		}

		chunkFile := filepath.Join(workDir, fmt.Sprintf("chunk_%03d.mp3", i))
		if err := t.Audio.Chunk(ctx, audioFile, start, length, chunkFile); err != nil {
			return "", fmt.Errorf("cut chunk %d: %w", i, err)
		}

		text, err := t.transcribeChunk(ctx, model, chunkFile)
		os.Remove(chunkFile)
		if err != nil {
			return "", fmt.Errorf("transcribe chunk %d: %w", i, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

// transcribeChunk walks the temperature ladder until a decode clears the
// confidence thresholds. A chunk the model judges as silence yields empty
// text; if no rung clears the bar, the final attempt's text is kept anyway.
func (t *Transcriber) transcribeChunk(ctx context.Context, model Model, chunkFile string) (string, error) {
	var last ChunkResult
	for _, temp := range temperatureLadder {
		result, err := model.Transcribe(ctx, chunkFile, t.Language, temp)
		if err != nil {
			return "", err
		}

		if result.NoSpeechProb > maxNoSpeechProb {
			return "", nil
		}
		if result.AvgLogProb >= minAvgLogProb {
			return strings.TrimSpace(result.Text), nil
		}

		last = result
	}

	return strings.TrimSpace(last.Text), nil
}
