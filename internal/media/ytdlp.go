package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cliplab/backend/internal/models"
)

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// DefaultRunner executes commands through os/exec.
var DefaultRunner CommandRunner = defaultCommandRunner

// Provider resolves metadata for a single video URL.
type Provider interface {
	Lookup(ctx context.Context, url string) (models.VideoMetadata, error)
}

// CaptionTrack describes one caption variant advertised by yt-dlp.
type CaptionTrack struct {
	Language string
	Format   string
	URL      string
	// Auto marks machine-generated tracks, which rank below manual ones.
	Auto bool
}

// VideoInfo bundles everything a single yt-dlp probe reveals about a video.
type VideoInfo struct {
	Metadata models.VideoMetadata
	Captions []CaptionTrack
}

// ChannelEntry is one upload in a channel's flat playlist dump.
type ChannelEntry struct {
	VideoID   string
	Title     string
	Duration  int64
	ViewCount int64
}

// YTDLPProvider fetches metadata, captions, and audio using the yt-dlp CLI tool.
type YTDLPProvider struct {
	Binary  string
	Run     CommandRunner
	Timeout time.Duration
}

// NewYTDLPProvider constructs a provider that shells out to yt-dlp.
func NewYTDLPProvider(binary string, timeout time.Duration) *YTDLPProvider {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YTDLPProvider{
		Binary:  binary,
		Run:     defaultCommandRunner,
		Timeout: timeout,
	}
}

type captionVariant struct {
	URL string `json:"url"`
	Ext string `json:"ext"`
}

type probePayload struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Uploader     string  `json:"uploader"`
	UploadDate   string  `json:"upload_date"`
	ViewCount    *int64  `json:"view_count"`
	LikeCount    *int64  `json:"like_count"`
	CommentCount *int64  `json:"comment_count"`
	Thumbnail    string  `json:"thumbnail"`
	Duration     float64 `json:"duration"`

	Subtitles         map[string][]captionVariant `json:"subtitles"`
	AutomaticCaptions map[string][]captionVariant `json:"automatic_captions"`
}

// Probe executes a metadata-only yt-dlp run and parses the JSON response,
// including the advertised caption tracks.
func (p *YTDLPProvider) Probe(ctx context.Context, url string) (VideoInfo, error) {
	out, err := p.run(ctx, "--dump-single-json", "--no-warnings", "--no-playlist", "--skip-download", url)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrProviderUnavailable) {
			return VideoInfo{}, err
		}
		return VideoInfo{}, fmt.Errorf("yt-dlp probe: %w", err)
	}

	var payload probePayload
	if err := json.Unmarshal(out, &payload); err != nil {
		return VideoInfo{}, fmt.Errorf("parse yt-dlp response: %w", err)
	}
	if payload.ID == "" && payload.Title == "" {
		return VideoInfo{}, errors.New("yt-dlp returned empty metadata")
	}

	info := VideoInfo{
		Metadata: models.VideoMetadata{
			VideoID:      payload.ID,
			Title:        payload.Title,
			Uploader:     payload.Uploader,
			UploadDate:   normalizeUploadDate(payload.UploadDate),
			ViewCount:    payload.ViewCount,
			LikeCount:    payload.LikeCount,
			CommentCount: payload.CommentCount,
			ThumbnailURL: payload.Thumbnail,
			Duration:     int64(payload.Duration),
		},
	}
	info.Captions = append(info.Captions, flattenTracks(payload.Subtitles, false)...)
	info.Captions = append(info.Captions, flattenTracks(payload.AutomaticCaptions, true)...)

	return info, nil
}

// Lookup satisfies Provider by returning only the metadata half of a probe.
func (p *YTDLPProvider) Lookup(ctx context.Context, url string) (models.VideoMetadata, error) {
	info, err := p.Probe(ctx, url)
	if err != nil {
		return models.VideoMetadata{}, err
	}
	return info.Metadata, nil
}

// DownloadAudio extracts the video's audio track into destDir as a 16 kHz mp3
// suitable for speech-to-text. The caller owns destDir and the returned file.
func (p *YTDLPProvider) DownloadAudio(ctx context.Context, url, videoID, destDir string) (string, error) {
	outTemplate := filepath.Join(destDir, videoID+".%(ext)s")
	_, err := p.run(ctx,
		"-f", "m4a/bestaudio/best",
		"-x", "--audio-format", "mp3", "--audio-quality", "192K",
		"--postprocessor-args", "ffmpeg:-ar 16000",
		"--no-warnings", "--no-playlist",
		"-o", outTemplate,
		url,
	)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrProviderUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("yt-dlp audio download: %w", err)
	}

	path := filepath.Join(destDir, videoID+".mp3")
	stat, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("downloaded audio missing: %w", err)
	}
	if stat.Size() == 0 {
		return "", fmt.Errorf("downloaded audio is empty: %s", path)
	}

	return path, nil
}

// ChannelEntries dumps a channel's recent uploads via a flat playlist probe.
// Flat mode reads the playlist page only, so per-entry counts can be zero.
func (p *YTDLPProvider) ChannelEntries(ctx context.Context, channelURL string, limit int) ([]ChannelEntry, error) {
	args := []string{"--dump-single-json", "--flat-playlist", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprintf("%d", limit))
	}
	args = append(args, channelURL)

	out, err := p.run(ctx, args...)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("yt-dlp channel dump: %w", err)
	}

	var payload struct {
		Entries []struct {
			ID        string  `json:"id"`
			Title     string  `json:"title"`
			Duration  float64 `json:"duration"`
			ViewCount int64   `json:"view_count"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("parse channel dump: %w", err)
	}

	entries := make([]ChannelEntry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		if e.ID == "" {
			continue
		}
		entries = append(entries, ChannelEntry{
			VideoID:   e.ID,
			Title:     e.Title,
			Duration:  int64(e.Duration),
			ViewCount: e.ViewCount,
		})
	}

	return entries, nil
}

// TopComments fetches a video's highest ranked comments. yt-dlp only
// includes comments in the JSON dump when asked, and the extractor argument
// caps how many it pulls before giving up.
func (p *YTDLPProvider) TopComments(ctx context.Context, videoID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	out, err := p.run(ctx,
		"--dump-single-json", "--no-warnings", "--no-playlist", "--skip-download",
		"--write-comments",
		"--extractor-args", fmt.Sprintf("youtube:max_comments=%d;comment_sort=top", limit),
		"https://www.youtube.com/watch?v="+videoID,
	)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("yt-dlp comments: %w", err)
	}

	var payload struct {
		Comments []struct {
			Text string `json:"text"`
		} `json:"comments"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("parse comments: %w", err)
	}

	comments := make([]string, 0, limit)
	for _, c := range payload.Comments {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		comments = append(comments, text)
		if len(comments) == limit {
			break
		}
	}

	return comments, nil
}

func (p *YTDLPProvider) run(ctx context.Context, args ...string) ([]byte, error) {
	if p == nil {
		return nil, ErrProviderUnavailable
	}
	if p.Run == nil {
		p.Run = defaultCommandRunner
	}

	execCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	out, err := p.Run(execCtx, p.Binary, args...)
	if err != nil {
		return nil, classifyRunError(err)
	}
	return out, nil
}

// normalizeUploadDate converts yt-dlp's compact YYYYMMDD form into ISO dates.
// Unparseable values are dropped rather than passed through.
func normalizeUploadDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) != 8 {
		return ""
	}
	t, err := time.Parse("20060102", raw)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func flattenTracks(m map[string][]captionVariant, auto bool) []CaptionTrack {
	var tracks []CaptionTrack
	for lang, variants := range m {
		for _, v := range variants {
			if v.URL == "" {
				continue
			}
			tracks = append(tracks, CaptionTrack{
				Language: lang,
				Format:   v.Ext,
				URL:      v.URL,
				Auto:     auto,
			})
		}
	}
	return tracks
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
