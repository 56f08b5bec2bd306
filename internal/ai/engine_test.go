package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go/v2"
)

type chatCall struct {
	model       openai.ChatModel
	system      string
	user        string
	temperature float64
}

type fakeChat struct {
	responses []string
	errs      []error
	calls     []chatCall
}

func (f *fakeChat) Complete(_ context.Context, model openai.ChatModel, system, user string, temperature float64) (string, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, chatCall{model: model, system: system, user: user, temperature: temperature})
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "ok", nil
}

func TestCorrectTranscriptSoftFallback(t *testing.T) {
	chat := &fakeChat{errs: []error{errors.New("rate limited")}}
	engine := NewEngine(chat)

	out, err := engine.CorrectTranscript(context.Background(), "raw transcript")
	if err == nil {
		t.Fatal("expected error surfaced for logging")
	}
	if out != "raw transcript" {
		t.Fatalf("expected original transcript back got %q", out)
	}
}

func TestRewriteScriptDeduplicatesOutput(t *testing.T) {
	chat := &fakeChat{responses: []string{"first line\n\n\n\nfirst line\nsecond line"}}
	engine := NewEngine(chat)

	out, err := engine.RewriteScript(context.Background(), "source script", "story")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if out != "first line\nsecond line" {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(chat.calls[0].user, "source script") {
		t.Fatal("prompt missing source script")
	}
}

func TestRewriteScriptUnknownCategoryFallsBack(t *testing.T) {
	chat := &fakeChat{}
	engine := NewEngine(chat)

	if _, err := engine.RewriteScript(context.Background(), "source", "no-such-category"); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if chat.calls[0].model != rewriteStyles[DefaultCategory].model {
		t.Fatalf("expected default category model got %v", chat.calls[0].model)
	}
}

func TestRewriteScriptEmptyInput(t *testing.T) {
	engine := NewEngine(&fakeChat{})
	if _, err := engine.RewriteScript(context.Background(), "   ", "story"); err == nil {
		t.Fatal("expected error for empty script")
	}
}

func TestRewriteScriptSafeStages(t *testing.T) {
	chat := &fakeChat{responses: []string{
		"cleaned script",
		"Narrator: final line (whispering)\n[scene: alley]",
	}}
	engine := NewEngine(chat)

	result, err := engine.RewriteScriptSafe(context.Background(), "original script", "story")
	if err != nil {
		t.Fatalf("safe rewrite: %v", err)
	}

	if result.CorrectedScript != "cleaned script" {
		t.Fatalf("unexpected corrected script %q", result.CorrectedScript)
	}
	if result.OriginalScript != "original script" {
		t.Fatalf("unexpected original script %q", result.OriginalScript)
	}
	if result.FinalScript != "final line" {
		t.Fatalf("expected TTS-cleaned final script got %q", result.FinalScript)
	}
	if !strings.Contains(chat.calls[1].user, "cleaned script") {
		t.Fatal("rewrite stage should consume the cleaned script")
	}
}

func TestRewriteScriptSafeCorrectionFailureDegrades(t *testing.T) {
	chat := &fakeChat{
		responses: []string{"", "rewritten"},
		errs:      []error{errors.New("down"), nil},
	}
	engine := NewEngine(chat)

	result, err := engine.RewriteScriptSafe(context.Background(), "original script", "story")
	if err != nil {
		t.Fatalf("safe rewrite: %v", err)
	}
	if result.CorrectedScript != "original script" {
		t.Fatalf("expected degraded corrected script got %q", result.CorrectedScript)
	}
	if !strings.Contains(chat.calls[1].user, "original script") {
		t.Fatal("rewrite stage should fall back to the original script")
	}
}

func TestGenerateBenchmarkReport(t *testing.T) {
	chat := &fakeChat{responses: []string{
		"### Core Strategy\nbe consistent\n### Content Formula\nhook early\n### Action Items\n1. do this",
	}}
	engine := NewEngine(chat)

	report, err := engine.GenerateBenchmarkReport(context.Background(), `{"views": 1}`, []string{"title"}, []string{"transcript"})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}

	if report.Strategy != "be consistent" || report.Formula != "hook early" || report.ActionItems != "1. do this" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestGenerateBenchmarkReportMissingSections(t *testing.T) {
	chat := &fakeChat{responses: []string{"### Core Strategy\nbe consistent"}}
	engine := NewEngine(chat)

	report, err := engine.GenerateBenchmarkReport(context.Background(), "{}", nil, nil)
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	if report.Strategy != "be consistent" {
		t.Fatalf("unexpected strategy %q", report.Strategy)
	}
	if report.Formula != placeholderSection || report.ActionItems != placeholderSection {
		t.Fatalf("expected placeholders for missing sections: %+v", report)
	}
}

func TestPlanScript(t *testing.T) {
	chat := &fakeChat{responses: []string{
		"[PRODUCTION_SCRIPT_START]\n[scene: intro]\nNarrator: hello viewers\n[PRODUCTION_SCRIPT_END]\n" +
			"[STORYBOARD_START]\nshot 1\n[STORYBOARD_END]\n" +
			"[FOLLOWUP_TOPICS_START]\ntopic a\n[FOLLOWUP_TOPICS_END]",
	}}
	engine := NewEngine(chat)

	planned, err := engine.PlanScript(context.Background(), PlanRequest{
		Category: "horror",
		Topic:    "abandoned hospital",
		Tone:     "calm",
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if !strings.Contains(planned.ProductionScript, "hello viewers") {
		t.Fatalf("unexpected production script %q", planned.ProductionScript)
	}
	if planned.Storyboard != "shot 1" || planned.FollowupTopics != "topic a" {
		t.Fatalf("unexpected sections: %+v", planned)
	}
	if planned.TTSScript != "hello viewers" {
		t.Fatalf("expected narration-only TTS script got %q", planned.TTSScript)
	}

	call := chat.calls[0]
	if !strings.Contains(call.system, "horror") && !strings.Contains(call.system, "dread") {
		t.Fatalf("expected horror system prompt got %q", call.system)
	}
	if !strings.Contains(call.system, "calm") {
		t.Fatal("tone instruction missing from system prompt")
	}
	if !strings.Contains(call.user, "abandoned hospital") {
		t.Fatal("topic missing from user prompt")
	}
}

func TestPlanScriptMissingSections(t *testing.T) {
	chat := &fakeChat{responses: []string{"no delimiters here"}}
	engine := NewEngine(chat)

	planned, err := engine.PlanScript(context.Background(), PlanRequest{Topic: "topic"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if planned.ProductionScript != placeholderProductionScript {
		t.Fatalf("expected placeholder got %q", planned.ProductionScript)
	}
	if planned.TTSScript != placeholderTTSScript {
		t.Fatalf("expected TTS placeholder got %q", planned.TTSScript)
	}
}
