package media

import (
	"errors"
	"os/exec"
	"strings"
)

// ErrProviderUnavailable indicates the metadata provider is not configured.
var ErrProviderUnavailable = errors.New("media: provider unavailable")

// ErrSourceUnavailable indicates the video cannot be fetched at all: deleted,
// private, or region-blocked according to yt-dlp.
var ErrSourceUnavailable = errors.New("media: source unavailable")

// ErrNoCaptions indicates no usable caption track was found. Callers treat it
// as a fall-through signal, not a failure.
var ErrNoCaptions = errors.New("media: no captions")

var unavailableMarkers = []string{
	"Video unavailable",
	"Private video",
	"This video is not available",
	"has been removed",
	"account associated with this video has been terminated",
}

// classifyRunError maps yt-dlp process failures onto ErrSourceUnavailable when
// the tool reported the video itself as gone, leaving other failures intact.
func classifyRunError(err error) error {
	if err == nil {
		return nil
	}

	text := err.Error()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		text += " " + string(exitErr.Stderr)
	}

	for _, marker := range unavailableMarkers {
		if strings.Contains(text, marker) {
			return ErrSourceUnavailable
		}
	}

	return err
}
