package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Doer abstracts the HTTP client used to download caption files.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CaptionFetcher downloads and normalizes caption tracks.
type CaptionFetcher struct {
	Client Doer
	// Language is the preferred caption language, e.g. "ko".
	Language string
}

// NewCaptionFetcher constructs a fetcher with a bounded default client.
func NewCaptionFetcher(language string) *CaptionFetcher {
	return &CaptionFetcher{
		Client:   &http.Client{Timeout: 30 * time.Second},
		Language: language,
	}
}

// Fetch picks the best track for the preferred language, downloads it, and
// returns the normalized transcript text. ErrNoCaptions signals a clean
// fall-through: no usable track, or text too short to be a real transcript.
func (f *CaptionFetcher) Fetch(ctx context.Context, tracks []CaptionTrack) (string, error) {
	track, ok := SelectTrack(tracks, f.Language)
	if !ok {
		return "", ErrNoCaptions
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build caption request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download captions: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read caption body: %w", err)
	}

	text := NormalizeCaptionText(string(body))
	if len([]rune(text)) <= 10 {
		return "", ErrNoCaptions
	}

	return text, nil
}

// SelectTrack chooses the caption track to download: manual tracks in the
// preferred language first, then automatic ones, then English as a fallback.
// Within a tier, vtt wins over other formats.
func SelectTrack(tracks []CaptionTrack, language string) (CaptionTrack, bool) {
	pick := func(lang string, auto bool) (CaptionTrack, bool) {
		var found CaptionTrack
		var ok bool
		for _, t := range tracks {
			if t.Auto != auto || !matchesLanguage(t.Language, lang) {
				continue
			}
			if !ok || (t.Format == "vtt" && found.Format != "vtt") {
				found, ok = t, true
			}
		}
		return found, ok
	}

	for _, lang := range []string{language, "en"} {
		if lang == "" {
			continue
		}
		if t, ok := pick(lang, false); ok {
			return t, true
		}
		if t, ok := pick(lang, true); ok {
			return t, true
		}
	}

	return CaptionTrack{}, false
}

func matchesLanguage(trackLang, want string) bool {
	trackLang = strings.ToLower(trackLang)
	want = strings.ToLower(want)
	return trackLang == want || strings.HasPrefix(trackLang, want+"-")
}

var (
	inlineTagPattern = regexp.MustCompile(`<[^>]*>`)
	cueIndexPattern  = regexp.MustCompile(`^\d+$`)
)

// NormalizeCaptionText strips VTT/SRT framing from raw caption content and
// returns the spoken text as a single line. The function is idempotent:
// feeding its own output back in returns the same string.
func NormalizeCaptionText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "-->") {
			continue
		}
		if cueIndexPattern.MatchString(line) {
			continue
		}
		if line == "WEBVTT" || strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") ||
			strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") {
			continue
		}

		line = strings.TrimSpace(inlineTagPattern.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}

		// Rolling captions repeat the previous line; keep the first copy.
		if len(lines) > 0 && lines[len(lines)-1] == line {
			continue
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, " ")
}
