package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestYTDLPProviderProbe(t *testing.T) {
	var gotBinary string
	var gotArgs []string

	provider := NewYTDLPProvider("yt-dlp-test", time.Second)
	provider.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary = binary
		gotArgs = args
		return []byte(`{
			"id": "dQw4w9WgXcQ",
			"title": "Example",
			"uploader": "Channel",
			"upload_date": "20240131",
			"view_count": 1200,
			"thumbnail": "https://example.com/t.jpg",
			"duration": 213.4,
			"subtitles": {"ko": [{"url": "https://example.com/ko.vtt", "ext": "vtt"}]},
			"automatic_captions": {"en": [{"url": "https://example.com/en.vtt", "ext": "vtt"}]}
		}`), nil
	}

	info, err := provider.Probe(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}

	if gotBinary != "yt-dlp-test" {
		t.Fatalf("unexpected binary %q", gotBinary)
	}
	if len(gotArgs) == 0 || gotArgs[len(gotArgs)-1] != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("expected url as final arg got %v", gotArgs)
	}

	meta := info.Metadata
	if meta.VideoID != "dQw4w9WgXcQ" || meta.Title != "Example" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.UploadDate != "2024-01-31" {
		t.Fatalf("expected normalized upload date got %q", meta.UploadDate)
	}
	if meta.ViewCount == nil || *meta.ViewCount != 1200 {
		t.Fatalf("unexpected view count: %+v", meta.ViewCount)
	}
	if meta.LikeCount != nil {
		t.Fatalf("expected nil like count got %v", *meta.LikeCount)
	}
	if meta.Duration != 213 {
		t.Fatalf("unexpected duration %d", meta.Duration)
	}

	if len(info.Captions) != 2 {
		t.Fatalf("expected 2 caption tracks got %d", len(info.Captions))
	}
	for _, track := range info.Captions {
		if track.Language == "ko" && track.Auto {
			t.Fatalf("manual track marked auto: %+v", track)
		}
		if track.Language == "en" && !track.Auto {
			t.Fatalf("auto track marked manual: %+v", track)
		}
	}
}

func TestYTDLPProviderProbeErrors(t *testing.T) {
	provider := NewYTDLPProvider("", 0)
	provider.Run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("ERROR: [youtube] abc: Video unavailable")
	}
	if _, err := provider.Probe(context.Background(), "https://example.com"); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable got %v", err)
	}

	provider.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("not-json"), nil
	}
	if _, err := provider.Probe(context.Background(), "https://example.com"); err == nil {
		t.Fatal("expected parse error")
	}

	provider.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("{}"), nil
	}
	if _, err := provider.Probe(context.Background(), "https://example.com"); err == nil {
		t.Fatal("expected empty metadata error")
	}
}

func TestYTDLPProviderDownloadAudio(t *testing.T) {
	dir := t.TempDir()

	provider := NewYTDLPProvider("yt-dlp", time.Second)
	provider.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return nil, os.WriteFile(filepath.Join(dir, "abc123def45.mp3"), []byte("audio"), 0o600)
	}

	path, err := provider.DownloadAudio(context.Background(), "https://example.com", "abc123def45", dir)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if filepath.Base(path) != "abc123def45.mp3" {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestYTDLPProviderDownloadAudioEmptyFile(t *testing.T) {
	dir := t.TempDir()

	provider := NewYTDLPProvider("yt-dlp", time.Second)
	provider.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return nil, os.WriteFile(filepath.Join(dir, "abc123def45.mp3"), nil, 0o600)
	}

	if _, err := provider.DownloadAudio(context.Background(), "https://example.com", "abc123def45", dir); err == nil {
		t.Fatal("expected error for zero-length file")
	}
}

func TestYTDLPProviderDownloadAudioMissingFile(t *testing.T) {
	provider := NewYTDLPProvider("yt-dlp", time.Second)
	provider.Run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, nil
	}

	if _, err := provider.DownloadAudio(context.Background(), "https://example.com", "abc123def45", t.TempDir()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestYTDLPProviderChannelEntries(t *testing.T) {
	provider := NewYTDLPProvider("yt-dlp", time.Second)
	provider.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte(`{"entries": [
			{"id": "aaaaaaaaaaa", "title": "Long video", "duration": 600, "view_count": 1000},
			{"id": "bbbbbbbbbbb", "title": "Clip #shorts", "duration": 30, "view_count": 5000},
			{"id": "", "title": "ghost"}
		]}`), nil
	}

	entries, err := provider.ChannelEntries(context.Background(), "https://www.youtube.com/@channel", 30)
	if err != nil {
		t.Fatalf("channel entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected ghost entry dropped got %d entries", len(entries))
	}
	if entries[0].VideoID != "aaaaaaaaaaa" || entries[0].Duration != 600 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestYTDLPProviderTopComments(t *testing.T) {
	var gotArgs []string

	provider := NewYTDLPProvider("yt-dlp", time.Second)
	provider.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		gotArgs = args
		return []byte(`{"comments": [
			{"text": "first!"},
			{"text": "   "},
			{"text": "great breakdown"},
			{"text": "subscribed"}
		]}`), nil
	}

	comments, err := provider.TopComments(context.Background(), "dQw4w9WgXcQ", 2)
	if err != nil {
		t.Fatalf("top comments: %v", err)
	}
	if len(comments) != 2 || comments[0] != "first!" || comments[1] != "great breakdown" {
		t.Fatalf("unexpected comments %v", comments)
	}

	joined := ""
	for _, a := range gotArgs {
		joined += a + " "
	}
	if !contains(gotArgs, "--write-comments") {
		t.Fatalf("expected --write-comments in args: %s", joined)
	}
	if gotArgs[len(gotArgs)-1] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("expected watch url as final arg got %s", gotArgs[len(gotArgs)-1])
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func TestNormalizeUploadDate(t *testing.T) {
	cases := map[string]string{
		"20240131": "2024-01-31",
		"2024013":  "",
		"notadate": "",
		"":         "",
	}
	for raw, want := range cases {
		if got := normalizeUploadDate(raw); got != want {
			t.Fatalf("normalizeUploadDate(%q) = %q want %q", raw, got, want)
		}
	}
}
