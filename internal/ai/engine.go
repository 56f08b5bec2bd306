package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Engine exposes the script operations built on top of a ChatClient.
type Engine struct {
	Chat ChatClient
}

// NewEngine wires the engine around a chat client.
func NewEngine(chat ChatClient) *Engine {
	return &Engine{Chat: chat}
}

// CorrectTranscript cleans up a raw speech-to-text transcript. Correction is
// best effort: when the model call fails the original transcript comes back
// unchanged, with the error for the caller to log.
func (e *Engine) CorrectTranscript(ctx context.Context, transcript string) (string, error) {
	out, err := e.Chat.Complete(ctx, ModelStandard, "", fmt.Sprintf(correctionPrompt, transcript), 0.2)
	if err != nil {
		return transcript, err
	}
	return out, nil
}

// AnalyzeTranscript explains why the video behind the transcript works.
func (e *Engine) AnalyzeTranscript(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("ai: empty transcript")
	}
	return e.Chat.Complete(ctx, ModelPremium, "", fmt.Sprintf(analysisPrompt, transcript), 0.5)
}

// RewriteScript re-tells the script in the category's voice.
func (e *Engine) RewriteScript(ctx context.Context, script, category string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", errors.New("ai: empty script")
	}

	style := styleFor(rewriteStyles, category)
	out, err := e.Chat.Complete(ctx, style.model, "", fmt.Sprintf(style.prompt, script), style.temperature)
	if err != nil {
		return "", err
	}

	return PostprocessScript(out), nil
}

// SafeRewrite is the result of the two-stage rewrite.
type SafeRewrite struct {
	FinalScript     string `json:"final_script"`
	CorrectedScript string `json:"corrected_script"`
	OriginalScript  string `json:"original_script"`
}

// RewriteScriptSafe first cleans the script, then rewrites the cleaned copy
// under strict no-invention rules. A failed cleaning stage degrades to the
// original script; a failed rewrite stage fails the operation.
func (e *Engine) RewriteScriptSafe(ctx context.Context, script, category string) (SafeRewrite, error) {
	if strings.TrimSpace(script) == "" {
		return SafeRewrite{}, errors.New("ai: empty script")
	}

	corrected, err := e.Chat.Complete(ctx, ModelStandard, "", fmt.Sprintf(safeCorrectionPrompt, script), 0.1)
	if err != nil {
		corrected = script
	}

	style := styleFor(safeRewriteStyles, category)
	rewritten, err := e.Chat.Complete(ctx, style.model, "", fmt.Sprintf(style.prompt, corrected), style.temperature)
	if err != nil {
		return SafeRewrite{}, err
	}

	return SafeRewrite{
		FinalScript:     CleanForTTS(rewritten),
		CorrectedScript: corrected,
		OriginalScript:  script,
	}, nil
}

// PredictPerformance scores how the script would perform as a video.
func (e *Engine) PredictPerformance(ctx context.Context, script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", errors.New("ai: empty script")
	}
	return e.Chat.Complete(ctx, ModelPremium, "", fmt.Sprintf(predictionPrompt, script), 0.6)
}

// BenchmarkReport is the parsed three-section channel report.
type BenchmarkReport struct {
	Strategy    string `json:"strategy"`
	Formula     string `json:"content_formula"`
	ActionItems string `json:"action_items"`
}

// GenerateBenchmarkReport writes and parses a channel benchmark report.
// Missing sections degrade to placeholders rather than failing the report.
func (e *Engine) GenerateBenchmarkReport(ctx context.Context, channelStats string, topTitles, topTranscripts []string) (BenchmarkReport, error) {
	prompt := fmt.Sprintf(benchmarkPrompt,
		channelStats,
		strings.Join(topTitles, "\n"),
		strings.Join(topTranscripts, "\n\n---\n\n"),
	)

	report, err := e.Chat.Complete(ctx, ModelPremium, "", prompt, 0.5)
	if err != nil {
		return BenchmarkReport{}, err
	}

	return BenchmarkReport{
		Strategy:    headedSection(report, "Strategy", placeholderSection),
		Formula:     headedSection(report, "Formula", placeholderSection),
		ActionItems: headedSection(report, "Action", placeholderSection),
	}, nil
}

// PlanRequest describes a from-scratch script planning job.
type PlanRequest struct {
	Category       string `json:"category"`
	Topic          string `json:"topic"`
	TargetAudience string `json:"target_audience"`
	Tone           string `json:"tone"`
}

// PlannedScript is the parsed planning output.
type PlannedScript struct {
	ProductionScript string `json:"production_script"`
	Storyboard       string `json:"storyboard"`
	FollowupTopics   string `json:"followup_topics"`
	TTSScript        string `json:"tts_script"`
}

// PlanScript generates a full script package for a topic. The delimited
// sections are parsed with per-section placeholders, and the narration-only
// TTS script is derived from the production script.
func (e *Engine) PlanScript(ctx context.Context, req PlanRequest) (PlannedScript, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return PlannedScript{}, errors.New("ai: empty topic")
	}

	system, ok := plannerStyles[req.Category]
	if !ok {
		system = plannerStyles[DefaultCategory]
	}
	if req.Tone != "" {
		system += fmt.Sprintf(plannerToneInstruction, req.Tone)
	}

	audience := req.TargetAudience
	if audience == "" {
		audience = "general viewers of all ages"
	}

	raw, err := e.Chat.Complete(ctx, ModelPremium, system, fmt.Sprintf(plannerUserPrompt, req.Topic, audience), 0.8)
	if err != nil {
		return PlannedScript{}, err
	}

	planned := PlannedScript{
		ProductionScript: delimitedSection(raw, "PRODUCTION_SCRIPT", placeholderProductionScript),
		Storyboard:       delimitedSection(raw, "STORYBOARD", placeholderStoryboard),
		FollowupTopics:   delimitedSection(raw, "FOLLOWUP_TOPICS", placeholderFollowupTopics),
	}

	if planned.ProductionScript != placeholderProductionScript {
		planned.TTSScript = ExtractNarration(planned.ProductionScript)
	}
	if planned.TTSScript == "" {
		planned.TTSScript = placeholderTTSScript
	}

	return planned, nil
}
