package media

import (
	"fmt"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`[\w-]{11}`)

// ExtractVideoID pulls the 11-character video identifier out of a watch URL,
// a short link, or a bare ID. Inputs mangled by chat clients, such as IDs
// wrapped in brackets, are repaired by taking the last ID-shaped token.
func ExtractVideoID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("extract video id: empty input")
	}

	matches := videoIDPattern.FindAllString(trimmed, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("extract video id: no id in %q", trimmed)
	}

	return matches[len(matches)-1], nil
}

// NormalizeWatchURL converts any supported input into a canonical watch URL.
func NormalizeWatchURL(input string) (string, error) {
	id, err := ExtractVideoID(input)
	if err != nil {
		return "", err
	}
	return "https://www.youtube.com/watch?v=" + id, nil
}
