package interview

import "strings"

// Phase is a stage of the interview
type Phase int

const (
	PhaseIntroduction Phase = iota
	PhaseAwaitingSkills
	PhaseAwaitingRole
	PhaseBehavioral
	PhaseTechnical
	PhaseCoding
	PhaseConclusion
	PhaseFeedback
)

var phaseNames = map[Phase]string{
	PhaseIntroduction:   "INTRODUCTION",
	PhaseAwaitingSkills: "AWAITING_SKILLS",
	PhaseAwaitingRole:   "AWAITING_ROLE",
	PhaseBehavioral:     "BEHAVIORAL",
	PhaseTechnical:      "TECHNICAL",
	PhaseCoding:         "CODING",
	PhaseConclusion:     "CONCLUSION",
	PhaseFeedback:       "FEEDBACK",
}

// transitions maps each phase to the one that follows it. FEEDBACK has no entry.
var transitions = map[Phase]Phase{
	PhaseIntroduction:   PhaseAwaitingSkills,
	PhaseAwaitingSkills: PhaseAwaitingRole,
	PhaseAwaitingRole:   PhaseBehavioral,
	PhaseBehavioral:     PhaseTechnical,
	PhaseTechnical:      PhaseCoding,
	PhaseCoding:         PhaseConclusion,
	PhaseConclusion:     PhaseFeedback,
}

// cannedMessages are spoken when a phase is entered without a generated reply.
var cannedMessages = map[Phase]string{
	PhaseIntroduction:   "Hello! I'm Alex, your AI-powered interview coach. To start, please upload your resume.",
	PhaseAwaitingSkills: "Thank you. I've received your resume. Now, please list the key skills you want to be interviewed on, separated by commas.",
	PhaseAwaitingRole:   "Great, I have your skills. What type of role are you targeting? For example, 'Senior Backend Engineer'.",
	PhaseBehavioral:     "Perfect. I've got everything I need. We'll be focusing on your listed skills. Let's get started.",
	PhaseTechnical:      "Great, let's move on to some technical questions.",
	PhaseCoding:         "Excellent. Now let's move on to our coding round.",
	PhaseConclusion:     "Thanks for walking me through that. We're almost at the end of our session.",
	PhaseFeedback:       "Thank you for your questions. I can now provide some feedback on our session.",
}

// String returns the upper-case phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Valid reports whether p is a declared phase.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// ParsePhase converts a phase name (case-insensitive) back to a Phase.
func ParsePhase(s string) (Phase, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, p := range Phases() {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, &UnknownPhaseError{Value: s}
}

// Advance returns the phase after p. It reports false when p is terminal
// or unknown, in which case p is returned unchanged.
func Advance(p Phase) (Phase, bool) {
	next, ok := transitions[p]
	if !ok {
		return p, false
	}
	return next, true
}

// IsDataCollection reports whether p gathers setup data with canned prompts
// instead of generated replies.
func (p Phase) IsDataCollection() bool {
	return p == PhaseIntroduction || p == PhaseAwaitingSkills || p == PhaseAwaitingRole
}

// Phases returns every phase in interview order.
func Phases() []Phase {
	phases := []Phase{PhaseIntroduction}
	for p := PhaseIntroduction; ; {
		next, ok := Advance(p)
		if !ok {
			return phases
		}
		phases = append(phases, next)
		p = next
	}
}

// CannedMessage returns the fixed line spoken on entering p.
func CannedMessage(p Phase) string {
	return cannedMessages[p]
}
