package extract

import "fmt"

// Kind classifies extraction failures for callers that need to present them
// differently.
type Kind string

const (
	// KindSourceUnavailable marks videos that cannot be reached at all:
	// deleted, private, or an input no video ID could be read from.
	KindSourceUnavailable Kind = "source_unavailable"
	// KindNoCaptions signals that the caption path produced nothing usable.
	// It never escapes Extract; the pipeline falls through to transcription.
	KindNoCaptions Kind = "no_captions"
	// KindDownloadFailed marks audio download failures.
	KindDownloadFailed Kind = "download_failed"
	// KindTranscriptionFailed marks speech-to-text failures.
	KindTranscriptionFailed Kind = "transcription_failed"
	// KindModelUnavailable marks a speech model that could not be built.
	KindModelUnavailable Kind = "model_unavailable"
)

// Error is a classified extraction failure wrapping its original cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}
