// Package ingestion turns uploaded resume documents into clean plain text.
package ingestion

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	blankLineRun   = regexp.MustCompile(`\n\n\n+`)
	glyphBulletPre = []string{"• ", "· ", "▪ ", "● "}
)

// CleanText cleans and normalizes extracted text while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	// Normalize line endings (CRLF → LF)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	// PDF extraction leaves form feeds between pages
	content = strings.ReplaceAll(content, "\f", "\n")

	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}

	result := strings.Join(cleanedLines, "\n")
	result = removeExcessiveBlankLines(result)
	return strings.TrimSpace(result)
}

// cleanLine cleans a single line while preserving structure
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	// Bullets keep their indentation; glyph bullets from PDFs become "- "
	if isBulletLine(trimmed) {
		indent := len(line) - len(trimmed)
		for _, prefix := range glyphBulletPre {
			if strings.HasPrefix(trimmed, prefix) {
				trimmed = "- " + strings.TrimPrefix(trimmed, prefix)
				break
			}
		}
		body := whitespaceRun.ReplaceAllString(strings.TrimSpace(trimmed[2:]), " ")
		return strings.Repeat(" ", indent) + trimmed[:2] + body
	}

	leadingSpace := len(line) - len(trimmed)
	content := whitespaceRun.ReplaceAllString(strings.TrimSpace(line), " ")
	if leadingSpace > 0 {
		return strings.Repeat(" ", leadingSpace) + content
	}
	return content
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(trimmed string) bool {
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		return true
	}
	for _, prefix := range glyphBulletPre {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// removeExcessiveBlankLines reduces consecutive blank lines to max 2
func removeExcessiveBlankLines(content string) string {
	return blankLineRun.ReplaceAllString(content, "\n\n")
}
