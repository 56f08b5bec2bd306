package ai

import "github.com/openai/openai-go/v2"

// DefaultCategory is used when a request names no category or an unknown one.
const DefaultCategory = "story"

type rewriteStyle struct {
	model       openai.ChatModel
	temperature float64
	prompt      string
}

// rewriteStyles drive the direct rewrite operation: take a transcript and
// re-tell it in the category's voice, keeping every fact intact.
var rewriteStyles = map[string]rewriteStyle{
	"story": {
		model:       ModelPremium,
		temperature: 0.8,
		prompt: `Rewrite the script below as a first-person confessional story for a Korean
storytime channel. Keep every fact and the full sequence of events, but make
it addictive: open mid-conflict, short punchy sentences, cliffhangers between
beats. Return only the rewritten script, in Korean.

[SCRIPT]
%s`,
	},
	"horror": {
		model:       ModelPremium,
		temperature: 0.9,
		prompt: `Rewrite the script below as a slow-burn horror narration for a Korean horror
channel. Keep the facts, build dread through pacing and sensory detail, and
end on an unresolved note. Return only the rewritten script, in Korean.

[SCRIPT]
%s`,
	},
	"issue": {
		model:       ModelStandard,
		temperature: 0.6,
		prompt: `Rewrite the script below as a fast-paced current-affairs briefing for a
Korean issue channel. Keep the facts, lead with the most surprising point,
and keep sentences short and declarative. Return only the rewritten script,
in Korean.

[SCRIPT]
%s`,
	},
}

// safeRewriteStyles drive the two-stage safe rewrite: the script is cleaned
// first, then re-told with stricter instructions against invented detail.
var safeRewriteStyles = map[string]rewriteStyle{
	"story": {
		model:       ModelPremium,
		temperature: 0.7,
		prompt: `Rewrite the cleaned script below as a first-person story for a Korean
storytime channel. Strict rules: never invent facts, names, or numbers that
are not in the source; never change the order of events; mark any scene
direction in [brackets]. Return only the rewritten script, in Korean.

[CLEANED SCRIPT]
%s`,
	},
	"issue": {
		model:       ModelStandard,
		temperature: 0.5,
		prompt: `Rewrite the cleaned script below as a current-affairs briefing for a Korean
issue channel. Strict rules: never invent facts or numbers, attribute every
claim to the source script, mark any scene direction in [brackets]. Return
only the rewritten script, in Korean.

[CLEANED SCRIPT]
%s`,
	},
}

// plannerStyles hold the system message per planning category.
var plannerStyles = map[string]string{
	"story": `You are a veteran writer for Korean storytime YouTube channels. You turn a
topic into a complete, emotionally gripping first-person story script that
holds viewers to the last second.`,
	"horror": `You are a horror scriptwriter for Korean YouTube narration channels. You
turn a topic into a slow-burn script that builds dread scene by scene.`,
	"issue": `You are a current-affairs scriptwriter for Korean YouTube issue channels.
You turn a topic into a sharp, factual, fast-paced briefing script.`,
	"knowledge": `You are an educational scriptwriter for Korean YouTube knowledge channels.
You turn a topic into a clear, curiosity-driven explainer script.`,
}

func styleFor(styles map[string]rewriteStyle, category string) rewriteStyle {
	if s, ok := styles[category]; ok {
		return s
	}
	return styles[DefaultCategory]
}
