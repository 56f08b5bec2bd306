package ai

// Prompt templates for the script engine. Everything user-facing is produced
// in Korean; the instructions themselves are kept in English for stable model
// behavior across tiers.

const correctionPrompt = `The following text is a raw speech-to-text transcript of a YouTube video.
Fix obvious recognition errors, restore punctuation and paragraph breaks, and
remove filler noises. Do not summarize, do not add content, and keep the
original language of the transcript.

[TRANSCRIPT]
%s

[CORRECTED TRANSCRIPT]`

const analysisPrompt = `You are a YouTube content strategist. Analyze the transcript below and explain,
in Korean, why this video works: its hook, structure, pacing, emotional
triggers, and retention devices. Be concrete and quote short passages where
useful.

[TRANSCRIPT]
%s

[ANALYSIS]`

const predictionPrompt = `You are a YouTube performance analyst. Given the script below, predict how it
would perform as a video. Respond in Korean with: an overall score out of 100,
expected strengths, expected weaknesses, and two concrete edits that would
raise retention.

[SCRIPT]
%s

[PREDICTION]`

const benchmarkPrompt = `You are a YouTube channel consultant. Using the channel statistics and the
titles and transcripts of its top videos below, write a benchmark report in
Korean with exactly these three markdown sections:

### Core Strategy
What fundamentally makes this channel succeed.

### Content Formula
The repeatable pattern behind its popular videos.

### Action Items
Three concrete actions another channel should copy.

[CHANNEL STATISTICS]
%s

[TOP VIDEO TITLES]
%s

[TOP VIDEO TRANSCRIPTS]
%s`

const safeCorrectionPrompt = `Clean up the script below: fix typos and broken sentences while preserving
every fact, name, and the original tone. Return only the cleaned script.

[SCRIPT]
%s`

const plannerUserPrompt = `Topic: %s
Target audience: %s

Write a complete YouTube video script package for the topic above, in Korean,
using exactly these three delimited sections:

[PRODUCTION_SCRIPT_START]
The full production script with scene markers and narration.
[PRODUCTION_SCRIPT_END]

[STORYBOARD_START]
A shot-by-shot storyboard suggestion for the script.
[STORYBOARD_END]

[FOLLOWUP_TOPICS_START]
Three follow-up video topics that extend this one.
[FOLLOWUP_TOPICS_END]`

const plannerToneInstruction = `

[PRIORITY DIRECTIVE]
The script must be written in a '%s' tone. Word choice, rhythm, and mood all
follow this tone before any other consideration.`

// Section placeholders reported when the model drops a section.
const (
	placeholderProductionScript = "Production script generation failed."
	placeholderStoryboard       = "Storyboard generation failed."
	placeholderFollowupTopics   = "Follow-up topic generation failed."
	placeholderTTSScript        = "Could not derive a narration script."
	placeholderSection          = "This section could not be generated."
)
