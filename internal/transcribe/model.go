package transcribe

import (
	"context"
	"sync"
)

// ChunkResult carries one chunk's transcription along with the confidence
// signals used to judge whether a decoding attempt should be kept.
type ChunkResult struct {
	Text string
	// AvgLogProb is the mean token log probability of the decode. Models
	// that do not expose it report zero, which always passes the threshold.
	AvgLogProb float64
	// NoSpeechProb is the model's probability that the chunk holds no
	// speech at all.
	NoSpeechProb float64
}

// Model is a speech-to-text engine handle.
type Model interface {
	Transcribe(ctx context.Context, audioFile, language string, temperature float64) (ChunkResult, error)
}

// ModelLoader builds a Model on first use and reuses it afterwards. The build
// runs at most once per process even under concurrent callers.
type ModelLoader struct {
	build func() (Model, error)

	once  sync.Once
	model Model
	err   error
}

// NewModelLoader wraps a model constructor in a single-flight loader.
func NewModelLoader(build func() (Model, error)) *ModelLoader {
	return &ModelLoader{build: build}
}

// Load returns the shared model instance, constructing it on the first call.
// A failed construction is sticky: every later call returns the same error.
func (l *ModelLoader) Load() (Model, error) {
	l.once.Do(func() {
		l.model, l.err = l.build()
	})
	return l.model, l.err
}
