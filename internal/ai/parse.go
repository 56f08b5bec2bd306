package ai

import (
	"regexp"
	"strings"
)

var (
	blankRunPattern    = regexp.MustCompile(`(\n\s*){2,}`)
	parentheticalRe    = regexp.MustCompile(`\([^)]*\)`)
	speakerLabelRe     = regexp.MustCompile(`^\s*[\w\s]+:\s*`)
	bracketedDirection = regexp.MustCompile(`\[[^\]]*\]`)
)

// PostprocessScript squeezes runs of blank lines and drops lines the model
// repeated verbatim, a common failure mode of creative rewrites.
func PostprocessScript(text string) string {
	text = strings.TrimSpace(blankRunPattern.ReplaceAllString(text, "\n\n"))

	seen := make(map[string]struct{})
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		key := strings.TrimSpace(line)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// ExtractNarration reduces a production script to the lines a voice actor
// would read: stage directions, scene separators, parentheticals, and speaker
// labels are stripped.
func ExtractNarration(script string) string {
	if script == "" {
		return ""
	}

	var narration []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			continue
		}
		if strings.HasPrefix(trimmed, "---") && strings.HasSuffix(trimmed, "---") {
			continue
		}

		cleaned := parentheticalRe.ReplaceAllString(line, "")
		cleaned = speakerLabelRe.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned != "" {
			narration = append(narration, cleaned)
		}
	}

	return strings.Join(narration, "\n")
}

// CleanForTTS strips every non-spoken artifact from a script: bracketed
// directions, parentheticals, quotes, and speaker labels.
func CleanForTTS(script string) string {
	if script == "" {
		return ""
	}

	cleaned := bracketedDirection.ReplaceAllString(script, "")
	cleaned = parentheticalRe.ReplaceAllString(cleaned, "")
	cleaned = strings.NewReplacer(`"`, "", `'`, "").Replace(cleaned)

	var lines []string
	for _, line := range strings.Split(cleaned, "\n") {
		line = speakerLabelRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

// delimitedSection extracts the text between [NAME_START] and [NAME_END]
// markers, returning the placeholder when the model dropped the section.
func delimitedSection(response, name, placeholder string) string {
	re := regexp.MustCompile(`(?s)\[` + name + `_START\](.*?)\[` + name + `_END\]`)
	match := re.FindStringSubmatch(response)
	if match == nil {
		return placeholder
	}
	return strings.TrimSpace(match[1])
}

// headedSection extracts the body of the "### <heading>" block whose heading
// contains the keyword, returning the placeholder when absent. Models drift
// on exact heading wording, so matching is by keyword.
func headedSection(report, keyword, placeholder string) string {
	re := regexp.MustCompile(`(?s)###[^\n]*` + regexp.QuoteMeta(keyword) + `[^\n]*\n(.*?)(?:###|$)`)
	match := re.FindStringSubmatch(report)
	if match == nil {
		return placeholder
	}
	return strings.TrimSpace(match[1])
}
