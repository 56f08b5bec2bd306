package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cliplab/backend/internal/ai"
	"github.com/cliplab/backend/internal/extract"
	"github.com/cliplab/backend/internal/media"
	"github.com/cliplab/backend/internal/models"
)

// Operation names accepted by the API.
const (
	OpVideoExtract      = "video.extract"
	OpScriptAnalyze     = "script.analyze"
	OpScriptRewrite     = "script.rewrite"
	OpScriptRewriteSafe = "script.rewrite_safe"
	OpScriptPredict     = "script.predict"
	OpScriptPlan        = "script.plan"
	OpChannelAnalyze    = "channel.analyze"
)

// ExtractService resolves a video URL into metadata and a transcript.
type ExtractService interface {
	Extract(ctx context.Context, url string) (extract.Result, error)
}

// ScriptEngine is the LLM surface the pipelines depend on.
type ScriptEngine interface {
	CorrectTranscript(ctx context.Context, transcript string) (string, error)
	AnalyzeTranscript(ctx context.Context, transcript string) (string, error)
	RewriteScript(ctx context.Context, script, category string) (string, error)
	RewriteScriptSafe(ctx context.Context, script, category string) (ai.SafeRewrite, error)
	PredictPerformance(ctx context.Context, script string) (string, error)
	GenerateBenchmarkReport(ctx context.Context, channelStats string, topTitles, topTranscripts []string) (ai.BenchmarkReport, error)
	PlanScript(ctx context.Context, req ai.PlanRequest) (ai.PlannedScript, error)
}

// ChannelSource dumps a channel's uploads.
type ChannelSource interface {
	ChannelEntries(ctx context.Context, channelURL string, limit int) ([]media.ChannelEntry, error)
}

// CommentSource fetches a video's top comments. The dependency is optional;
// without one the comment milestone is skipped.
type CommentSource interface {
	TopComments(ctx context.Context, videoID string, limit int) ([]string, error)
}

// Pipelines assembles the operation handlers from their collaborators.
type Pipelines struct {
	Extractor ExtractService
	Engine    ScriptEngine
	Channel   ChannelSource
	Comments  CommentSource
	Logger    *slog.Logger
}

// Handlers returns the full operation registry.
func (p *Pipelines) Handlers() map[string]Handler {
	return map[string]Handler{
		OpVideoExtract:      p.videoExtract,
		OpScriptAnalyze:     p.scriptAnalyze,
		OpScriptRewrite:     p.scriptRewrite,
		OpScriptRewriteSafe: p.scriptRewriteSafe,
		OpScriptPredict:     p.scriptPredict,
		OpScriptPlan:        p.scriptPlan,
		OpChannelAnalyze:    p.channelAnalyze,
	}
}

func (p *Pipelines) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// VideoExtractResult is the terminal payload of the video.extract operation.
type VideoExtractResult struct {
	models.VideoMetadata
	OriginalScript  string   `json:"original_script"`
	AnalysisSummary string   `json:"analysis_summary"`
	TopComments     []string `json:"top_comments,omitempty"`
}

type urlPayload struct {
	URL string `json:"url"`
}

type scriptPayload struct {
	Script   string `json:"script"`
	Category string `json:"category"`
}

type channelPayload struct {
	ChannelURL string `json:"channel_url"`
}

func (p *Pipelines) videoExtract(ctx context.Context, job models.Job, report ProgressFunc) (any, error) {
	var payload urlPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	const total = 5

	report("extracting metadata and transcript", 1, total)
	extracted, err := p.Extractor.Extract(ctx, payload.URL)
	if err != nil {
		return nil, err
	}

	report("correcting transcript", 2, total)
	script, err := p.Engine.CorrectTranscript(ctx, extracted.Transcript)
	if err != nil {
		// Correction is cosmetic; the raw transcript is still usable.
		p.logger().Warn("transcript correction failed", "jobId", job.ID, "error", err)
		script = extracted.Transcript
	}

	report("analyzing popularity factors", 3, total)
	analysis, err := p.Engine.AnalyzeTranscript(ctx, script)
	if err != nil {
		return nil, err
	}

	report("collecting top comments", 4, total)
	var comments []string
	if p.Comments != nil {
		comments, err = p.Comments.TopComments(ctx, extracted.Metadata.VideoID, 20)
		if err != nil {
			p.logger().Warn("top comment collection failed", "jobId", job.ID, "error", err)
			comments = nil
		}
	}

	report("assembling result", 5, total)
	return VideoExtractResult{
		VideoMetadata:   extracted.Metadata,
		OriginalScript:  script,
		AnalysisSummary: analysis,
		TopComments:     comments,
	}, nil
}

func (p *Pipelines) scriptAnalyze(ctx context.Context, job models.Job, report ProgressFunc) (any, error) {
	var payload scriptPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	report("analyzing script", 1, 1)
	analysis, err := p.Engine.AnalyzeTranscript(ctx, payload.Script)
	if err != nil {
		return nil, err
	}

	return map[string]string{"analysis": analysis}, nil
}

func (p *Pipelines) scriptRewrite(ctx context.Context, job models.Job, report ProgressFunc) (any, error) {
	var payload scriptPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	report("rewriting script", 1, 1)
	rewritten, err := p.Engine.RewriteScript(ctx, payload.Script, payload.Category)
	if err != nil {
		return nil, err
	}

	return map[string]string{"rewritten_script": rewritten}, nil
}

func (p *Pipelines) scriptRewriteSafe(ctx context.Context, job models.Job, report ProgressFunc) (any, error) {
	var payload scriptPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	const total = 2
	report("correcting script", 1, total)
	report("rewriting corrected script", 2, total)
	result, err := p.Engine.RewriteScriptSafe(ctx, payload.Script, payload.Category)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *Pipelines) scriptPredict(ctx context.Context, job models.Job, report ProgressFunc) (any, error) {
	var payload scriptPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	report("predicting performance", 1, 1)
	prediction, err := p.Engine.PredictPerformance(ctx, payload.Script)
	if err != nil {
		return nil, err
	}

	return map[string]string{"prediction": prediction}, nil
}

func (p *Pipelines) scriptPlan(ctx context.Context, job models.Job, report ProgressFunc) (any, error) {
	var req ai.PlanRequest
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	report("planning script package", 1, 1)
	return p.Engine.PlanScript(ctx, req)
}

// ChannelAnalyzeResult is the terminal payload of the channel.analyze
// operation.
type ChannelAnalyzeResult struct {
	Stats  media.ChannelStats `json:"stats"`
	Report ai.BenchmarkReport `json:"report"`
}

func (p *Pipelines) channelAnalyze(ctx context.Context, job models.Job, report ProgressFunc) (any, error) {
	var payload channelPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if strings.TrimSpace(payload.ChannelURL) == "" {
		return nil, errors.New("channel url is required")
	}

	const total = 3

	report("snapshotting channel uploads", 1, total)
	entries, err := p.Channel.ChannelEntries(ctx, payload.ChannelURL, 30)
	if err != nil {
		return nil, err
	}

	popular := false
	if len(entries) == 0 {
		// No recent uploads; fall back to the channel's most viewed videos.
		entries, err = p.Channel.ChannelEntries(ctx, popularTabURL(payload.ChannelURL), 20)
		if err != nil {
			return nil, err
		}
		popular = true
	}
	if len(entries) == 0 {
		return nil, errors.New("channel has no analyzable videos")
	}

	stats := media.BuildChannelStats(entries, popular)

	report("sampling top video transcripts", 2, total)
	topEntries := topByViews(entries, 5)
	titles := make([]string, 0, len(topEntries))
	for _, e := range topEntries {
		titles = append(titles, e.Title)
	}

	var transcripts []string
	for _, e := range topEntries {
		if len(transcripts) >= 2 {
			break
		}
		extracted, err := p.Extractor.Extract(ctx, "https://www.youtube.com/watch?v="+e.VideoID)
		if err != nil {
			p.logger().Warn("top video transcript skipped", "jobId", job.ID, "videoId", e.VideoID, "error", err)
			continue
		}
		transcripts = append(transcripts, extracted.Transcript)
	}

	report("writing benchmark report", 3, total)
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("encode channel stats: %w", err)
	}

	benchmark, err := p.Engine.GenerateBenchmarkReport(ctx, string(statsJSON), titles, transcripts)
	if err != nil {
		return nil, err
	}

	return ChannelAnalyzeResult{Stats: stats, Report: benchmark}, nil
}

// popularTabURL points yt-dlp at the channel's most-viewed videos tab.
func popularTabURL(channelURL string) string {
	base := strings.TrimRight(channelURL, "/")
	base = strings.TrimSuffix(base, "/videos")
	return base + "/videos?sort=p"
}

func topByViews(entries []media.ChannelEntry, n int) []media.ChannelEntry {
	sorted := make([]media.ChannelEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ViewCount > sorted[j].ViewCount })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// userMessage picks the failure text stored on the job. Classified extraction
// errors carry a message written for end users; everything else falls back to
// the error text itself.
func userMessage(err error) string {
	var exErr *extract.Error
	if errors.As(err, &exErr) {
		return exErr.Message
	}
	return err.Error()
}
