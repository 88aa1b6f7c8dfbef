package interview

import (
	"regexp"
	"strings"

	"github.com/jonathan/mock-interviewer/internal/prompts"
)

const promptFile = "interview.json"

// Marker is a completion token the model appends when a phase is done
type Marker string

const (
	MarkerNone       Marker = ""
	MarkerBehavioral Marker = "[END_BEHAVIORAL]"
	MarkerTechnical  Marker = "[END_TECHNICAL]"
	MarkerCoding     Marker = "[END_CODING]"
	MarkerConclusion Marker = "[END_CONCLUSION]"
)

type markerRule struct {
	marker  Marker
	closes  Phase
	pattern *regexp.Regexp
}

// markerSequence is ordered by the phase each marker closes.
var markerSequence = []markerRule{
	newMarkerRule(MarkerBehavioral, PhaseBehavioral),
	newMarkerRule(MarkerTechnical, PhaseTechnical),
	newMarkerRule(MarkerCoding, PhaseCoding),
	newMarkerRule(MarkerConclusion, PhaseConclusion),
}

// strayPattern catches marker-shaped tokens the model invents, e.g. [END_INTRO].
// Ordinary bracketed speech such as "[end of list]" does not match.
var strayPattern = regexp.MustCompile(`\s*\[END_[A-Z_]+\]`)

func newMarkerRule(m Marker, closes Phase) markerRule {
	return markerRule{
		marker:  m,
		closes:  closes,
		pattern: regexp.MustCompile(`(?i)\s*` + regexp.QuoteMeta(string(m))),
	}
}

// MarkerFor returns the marker that completes p, or MarkerNone.
func MarkerFor(p Phase) Marker {
	for _, rule := range markerSequence {
		if rule.closes == p {
			return rule.marker
		}
	}
	return MarkerNone
}

// Extraction is the result of scanning a generated reply for markers
type Extraction struct {
	// Text is the reply with every marker removed
	Text string
	// Marker is the earliest-phase known marker found, or MarkerNone
	Marker Marker
	// Found lists each distinct known marker in phase order
	Found []Marker
	// Stray lists removed tokens that are not distinct known markers:
	// repeats and unrecognised [END_...] tokens
	Stray []string
}

// Has reports whether m was among the markers found.
func (e Extraction) Has(m Marker) bool {
	for _, found := range e.Found {
		if found == m {
			return true
		}
	}
	return false
}

// ExtractMarker strips completion markers from text.
// Applying it to its own output always yields MarkerNone.
func ExtractMarker(text string) Extraction {
	result := Extraction{Text: text, Marker: MarkerNone}
	seen := make(map[Marker]bool, len(markerSequence))
	stripped := false

	// Removing a token can splice a new one together, so repeat until stable
	for {
		changed := false

		for _, rule := range markerSequence {
			matches := rule.pattern.FindAllString(result.Text, -1)
			if len(matches) == 0 {
				continue
			}
			for _, match := range matches {
				if !seen[rule.marker] {
					seen[rule.marker] = true
					continue
				}
				result.Stray = append(result.Stray, strings.TrimSpace(match))
			}
			result.Text = rule.pattern.ReplaceAllString(result.Text, "")
			changed = true
		}

		if matches := strayPattern.FindAllString(result.Text, -1); len(matches) > 0 {
			for _, match := range matches {
				result.Stray = append(result.Stray, strings.TrimSpace(match))
			}
			result.Text = strayPattern.ReplaceAllString(result.Text, "")
			changed = true
		}

		if !changed {
			break
		}
		stripped = true
	}

	for _, rule := range markerSequence {
		if seen[rule.marker] {
			result.Found = append(result.Found, rule.marker)
		}
	}
	if len(result.Found) > 0 {
		result.Marker = result.Found[0]
	}
	if stripped {
		result.Text = strings.TrimSpace(result.Text)
	}
	return result
}

var phasePromptKeys = map[Phase]string{
	PhaseBehavioral: "behavioral",
	PhaseTechnical:  "technical",
	PhaseCoding:     "coding",
	PhaseConclusion: "conclusion",
	PhaseFeedback:   "feedback",
}

// BuildInstructions returns the system instructions for the session's phase.
// Data-collection and unknown phases get the base persona only.
func BuildInstructions(state State) string {
	base := prompts.MustGet(promptFile, "base")
	if !state.Phase.Valid() {
		return base
	}

	key, ok := phasePromptKeys[state.Phase]
	if !ok {
		return base
	}

	phaseText, err := prompts.Render(promptFile, key, map[string]string{
		"ResumeText": valueOr(state.ResumeText, "No resume was provided."),
		"Skills":     strings.Join(state.Skills, ", "),
		"TargetRole": valueOr(state.TargetRole, "Software Engineer"),
	})
	if err != nil {
		return base
	}
	return base + "\n\n" + phaseText
}

func valueOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}
