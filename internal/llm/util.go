// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"regexp"
	"strings"
)

var (
	emphasisPattern = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	headingPattern  = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	bulletPattern   = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
)

// PlainSpeech strips markdown the model tends to emit even in voice mode.
// Replies are read aloud, so emphasis markers, headings and code fences would
// otherwise be spoken literally. Numbered list prefixes are kept.
func PlainSpeech(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// Drop code fences but keep their content
	if strings.Contains(text, "```") {
		lines := strings.Split(text, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.Join(kept, "\n")
	}

	text = emphasisPattern.ReplaceAllString(text, "$2")
	text = headingPattern.ReplaceAllString(text, "")
	text = bulletPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "`", "")

	return strings.TrimSpace(text)
}
