package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// WhisperModel adapts the OpenAI transcription endpoint to the Model
// interface. The hosted API does not expose per-decode confidence values, so
// both probabilities come back zero and every decode passes the thresholds.
type WhisperModel struct {
	client openai.Client
}

// NewWhisperModel constructs the adapter, failing fast on a missing API key.
func NewWhisperModel(apiKey string) (*WhisperModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("transcribe: missing OpenAI API key")
	}
	return &WhisperModel{client: openai.NewClient(option.WithAPIKey(apiKey))}, nil
}

// Transcribe uploads one audio chunk and returns its text.
func (m *WhisperModel) Transcribe(ctx context.Context, audioFile, language string, temperature float64) (ChunkResult, error) {
	f, err := os.Open(audioFile)
	if err != nil {
		return ChunkResult{}, fmt.Errorf("open audio chunk: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:        f,
		Model:       openai.AudioModelWhisper1,
		Temperature: openai.Float(temperature),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	resp, err := m.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return ChunkResult{}, fmt.Errorf("transcription request: %w", err)
	}

	return ChunkResult{Text: strings.TrimSpace(resp.Text)}, nil
}

var _ Model = (*WhisperModel)(nil)
