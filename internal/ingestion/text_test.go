package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText_PreserveMarkdownHeadings(t *testing.T) {
	input := "# Jane Doe\n## Experience\nStaff Engineer at Initech"
	result := CleanText(input)

	assert.Contains(t, result, "# Jane Doe")
	assert.Contains(t, result, "## Experience")
	assert.Contains(t, result, "Staff Engineer at Initech")
}

func TestCleanText_PreserveBulletLists(t *testing.T) {
	input := "- Built billing\n- Led team\n* Mentored interns"
	result := CleanText(input)

	assert.Contains(t, result, "- Built billing")
	assert.Contains(t, result, "- Led team")
	assert.Contains(t, result, "* Mentored interns")
}

func TestCleanText_NormalizesGlyphBullets(t *testing.T) {
	input := "• Reduced latency   by 40%\n  ▪ Migrated to Go"
	result := CleanText(input)

	assert.Equal(t, "- Reduced latency by 40%\n  - Migrated to Go", result)
}

func TestCleanText_NormalizeWhitespace(t *testing.T) {
	input := "Line    with    multiple    spaces"
	result := CleanText(input)

	assert.Equal(t, "Line with multiple spaces", result)
}

func TestCleanText_RemoveExcessiveBlankLines(t *testing.T) {
	input := "Education\n\n\n\n\nSkills"
	result := CleanText(input)

	assert.Equal(t, "Education\n\nSkills", result)
}

func TestCleanText_NormalizeLineEndings(t *testing.T) {
	input := "Line 1\r\nLine 2\rLine 3\fLine 4"
	result := CleanText(input)

	assert.Equal(t, "Line 1\nLine 2\nLine 3\nLine 4", result)
}

func TestCleanText_DeterministicOutput(t *testing.T) {
	input := "Test content   with   spaces\n\n\nMultiple   blank   lines"
	assert.Equal(t, CleanText(input), CleanText(input))
}

func TestCleanText_EmptyInput(t *testing.T) {
	assert.Empty(t, CleanText(""))
	assert.Empty(t, CleanText("   \n  \n  "))
}

func TestCleanText_SpecialCharacters(t *testing.T) {
	input := "Développeuse   senior 🚀 à Montréal"
	result := CleanText(input)

	assert.Equal(t, "Développeuse senior 🚀 à Montréal", result)
}

func TestCleanText_PreserveIndentation(t *testing.T) {
	input := "Projects\n    Indented   line\n  Less indented"
	result := CleanText(input)

	assert.Equal(t, "Projects\n    Indented line\n  Less indented", result)
}
